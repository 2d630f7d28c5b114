// Copyright (c) 2025-2026, R.I. Pienaar and the Choria Project contributors
//
// SPDX-License-Identifier: Apache-2.0

// Package pool runs closures on a fixed set of worker goroutines.
//
// Jobs are dequeued in FIFO order and completion order is unspecified. Shutdown stops the workers
// after their current job, jobs still queued are never started and only have their cleanup run.
package pool

import (
	"errors"
	"fmt"
	"sync"

	"github.com/segmentio/ksuid"

	"github.com/choria-io/cbs/logging"
	"github.com/choria-io/cbs/metrics"
	"github.com/choria-io/cbs/model"
)

var (
	// ErrInvalidWorkerCount is returned when creating a pool with fewer than one worker
	ErrInvalidWorkerCount = errors.New("worker count must be at least 1")
	// ErrPoolStopped is returned when enqueueing on a pool that was shut down
	ErrPoolStopped = errors.New("worker pool is stopped")
)

type job struct {
	id      string
	fn      func()
	cleanup func()
	next    *job
}

// Pool is a fixed size set of workers consuming a shared queue
type Pool struct {
	mu      sync.Mutex
	cond    *sync.Cond
	head    *job
	tail    *job
	pending int
	stopped bool
	workers int
	wg      sync.WaitGroup
	log     model.Logger
}

// New starts a pool with workers goroutines
func New(workers int, opts ...Option) (*Pool, error) {
	if workers < 1 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidWorkerCount, workers)
	}

	p := &Pool{workers: workers}
	p.cond = sync.NewCond(&p.mu)

	for _, opt := range opts {
		err := opt(p)
		if err != nil {
			return nil, err
		}
	}

	if p.log == nil {
		p.log = logging.Discard()
	}

	p.log.Debug("Starting worker pool", "workers", workers)

	p.wg.Add(workers)
	for i := range workers {
		go p.worker(i)
	}

	return p, nil
}

// Workers is the number of workers the pool was started with
func (p *Pool) Workers() int { return p.workers }

// Pending is the number of jobs queued or running
func (p *Pool) Pending() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.pending
}

// Enqueue adds fn to the queue, cleanup is optional and runs after fn or instead of it during shutdown.
//
// When the pool is stopped ErrPoolStopped is returned and cleanup is called immediately.
func (p *Pool) Enqueue(fn func(), cleanup func()) error {
	if fn == nil {
		return fmt.Errorf("job function is required")
	}

	j := &job{id: ksuid.New().String(), fn: fn, cleanup: cleanup}

	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		runCleanup(j)
		return ErrPoolStopped
	}

	if p.tail == nil {
		p.head = j
	} else {
		p.tail.next = j
	}
	p.tail = j
	p.pending++
	p.cond.Signal()
	p.mu.Unlock()

	metrics.PoolJobsEnqueued.Inc()
	metrics.PoolJobsPending.Inc()

	return nil
}

// Wait blocks until every enqueued job completed or the pool was shut down
func (p *Pool) Wait() {
	p.mu.Lock()
	for p.pending > 0 && !p.stopped {
		p.cond.Wait()
	}
	p.mu.Unlock()
}

// Shutdown stops the workers once their current job finished and runs the cleanup of every job still queued.
//
// It is safe to call more than once.
func (p *Pool) Shutdown() {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		p.wg.Wait()
		return
	}
	p.stopped = true
	p.cond.Broadcast()
	p.mu.Unlock()

	p.wg.Wait()

	p.mu.Lock()
	queued := p.head
	p.head, p.tail = nil, nil
	p.mu.Unlock()

	discarded := 0
	for j := queued; j != nil; {
		next := j.next
		runCleanup(j)
		discarded++
		j = next
	}

	p.mu.Lock()
	p.pending -= discarded
	p.mu.Unlock()

	metrics.PoolJobsDiscarded.Add(float64(discarded))
	metrics.PoolJobsPending.Sub(float64(discarded))

	p.log.Debug("Worker pool stopped", "discarded", discarded)
}

func (p *Pool) worker(i int) {
	defer p.wg.Done()

	log := p.log.With("worker", i)

	for {
		p.mu.Lock()
		for p.head == nil && !p.stopped {
			p.cond.Wait()
		}

		if p.stopped {
			p.mu.Unlock()
			return
		}

		j := p.head
		p.head = j.next
		if p.head == nil {
			p.tail = nil
		}
		p.mu.Unlock()

		p.run(log, j)

		p.mu.Lock()
		p.pending--
		p.cond.Broadcast()
		p.mu.Unlock()

		metrics.PoolJobsCompleted.Inc()
		metrics.PoolJobsPending.Dec()
	}
}

func (p *Pool) run(log model.Logger, j *job) {
	defer runCleanup(j)
	defer func() {
		if r := recover(); r != nil {
			metrics.PoolJobsPanicked.Inc()
			log.Error("Job panicked", "job", j.id, "panic", fmt.Sprint(r))
		}
	}()

	j.fn()
}

func runCleanup(j *job) {
	if j.cleanup != nil {
		j.cleanup()
	}
}
