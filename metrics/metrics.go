// Copyright (c) 2025-2026, R.I. Pienaar and the Choria Project contributors
//
// SPDX-License-Identifier: Apache-2.0

package metrics

import (
	"fmt"
	"net/http"
	"strconv"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/choria-io/cbs/model"
)

var (
	NameSpace = "choria"
	Subsystem = "cbs"

	// CommandRunTime is a summary of the time taken by executed commands
	CommandRunTime = prometheus.NewSummaryVec(prometheus.SummaryOpts{
		Name: prometheus.BuildFQName(NameSpace, Subsystem, "command_duration_seconds"),
		Help: "Time taken to run commands",
	}, []string{"command", "mode"})

	// CommandExitCount counts how commands terminated
	CommandExitCount = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: prometheus.BuildFQName(NameSpace, Subsystem, "command_exit_count"),
		Help: "How many commands exited with a certain status",
	}, []string{"command", "status"})

	// CommandErrorCount counts commands that could not be run at all
	CommandErrorCount = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: prometheus.BuildFQName(NameSpace, Subsystem, "command_error_count"),
		Help: "How many commands could not be launched or read",
	}, []string{"command"})

	// PoolJobsEnqueued counts jobs added to worker pools
	PoolJobsEnqueued = prometheus.NewCounter(prometheus.CounterOpts{
		Name: prometheus.BuildFQName(NameSpace, Subsystem, "pool_jobs_enqueued_count"),
		Help: "How many jobs were added to worker pools",
	})

	// PoolJobsCompleted counts jobs run by worker pools
	PoolJobsCompleted = prometheus.NewCounter(prometheus.CounterOpts{
		Name: prometheus.BuildFQName(NameSpace, Subsystem, "pool_jobs_completed_count"),
		Help: "How many jobs were completed by worker pools",
	})

	// PoolJobsDiscarded counts jobs destroyed without running during pool shutdown
	PoolJobsDiscarded = prometheus.NewCounter(prometheus.CounterOpts{
		Name: prometheus.BuildFQName(NameSpace, Subsystem, "pool_jobs_discarded_count"),
		Help: "How many queued jobs were discarded at shutdown",
	})

	// PoolJobsPanicked counts jobs that panicked while running
	PoolJobsPanicked = prometheus.NewCounter(prometheus.CounterOpts{
		Name: prometheus.BuildFQName(NameSpace, Subsystem, "pool_jobs_panic_count"),
		Help: "How many jobs panicked",
	})

	// PoolJobsPending is the number of queued or running jobs
	PoolJobsPending = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: prometheus.BuildFQName(NameSpace, Subsystem, "pool_jobs_pending"),
		Help: "How many jobs are queued or running",
	})

	// RebuildCount counts self rebuild checks by outcome
	RebuildCount = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: prometheus.BuildFQName(NameSpace, Subsystem, "rebuild_count"),
		Help: "How many times the bootstrap check reached a certain state",
	}, []string{"state"})

	registerOnce sync.Once

	serveMu sync.Mutex
	serving int
)

// RegisterMetrics registers all collectors with the default registry, it is safe to call more than once
func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(CommandRunTime)
		prometheus.MustRegister(CommandExitCount)
		prometheus.MustRegister(CommandErrorCount)
		prometheus.MustRegister(PoolJobsEnqueued)
		prometheus.MustRegister(PoolJobsCompleted)
		prometheus.MustRegister(PoolJobsDiscarded)
		prometheus.MustRegister(PoolJobsPanicked)
		prometheus.MustRegister(PoolJobsPending)
		prometheus.MustRegister(RebuildCount)
	})
}

// StatusLabel is the label value used for an exit status
func StatusLabel(status int) string {
	if status == model.ExitSignaled {
		return "signaled"
	}

	return strconv.Itoa(status)
}

// ListenAndServe serves /metrics on port in the background, only one server is started per process
func ListenAndServe(port int, log model.Logger) {
	if port <= 0 {
		return
	}

	serveMu.Lock()
	defer serveMu.Unlock()

	if serving != 0 {
		if serving != port {
			log.Warn("Monitoring server already running", "port", serving, "requested", port)
		}
		return
	}
	serving = port

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	go func() {
		log.Info("Starting monitoring server", "port", port)
		err := http.ListenAndServe(fmt.Sprintf(":%d", port), mux)
		if err != nil {
			log.Error("HTTP Listener failed", "error", err)
		}
	}()
}
