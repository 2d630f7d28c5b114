// Copyright (c) 2025-2026, R.I. Pienaar and the Choria Project contributors
//
// SPDX-License-Identifier: Apache-2.0

package model

import (
	"fmt"
	"time"

	"github.com/segmentio/ksuid"
)

type SessionEvent interface {
	SessionEventID() string
	String() string
}

// SessionStore records the processes executed during a build
type SessionStore interface {
	StartSession() error
	StopSession(destroy bool) (*SessionSummary, error)
	RecordEvent(SessionEvent) error
	AllEvents() ([]SessionEvent, error)
}

const ExecEventProtocol = "io.choria.cbs.v1.exec.event"
const SessionStartEventProtocol = "io.choria.cbs.v1.session.start"

// ExecEvent represents a single completed process execution
type ExecEvent struct {
	Protocol  string        `json:"protocol" yaml:"protocol"`
	EventID   string        `json:"event_id" yaml:"event_id"`
	TimeStamp time.Time     `json:"timestamp" yaml:"timestamp"`
	Command   string        `json:"command" yaml:"command"`
	Pid       int           `json:"pid,omitempty" yaml:"pid,omitempty"`
	Status    int           `json:"status" yaml:"status"`
	Captured  bool          `json:"captured" yaml:"captured"`
	Duration  time.Duration `json:"duration" yaml:"duration"`
	Error     string        `json:"error,omitempty" yaml:"error,omitempty"`
}

type SessionStartEvent struct {
	Protocol  string    `json:"protocol" yaml:"protocol"`
	EventID   string    `json:"event_id" yaml:"event_id"`
	TimeStamp time.Time `json:"timestamp" yaml:"timestamp"`
}

func NewSessionStartEvent() *SessionStartEvent {
	return &SessionStartEvent{
		Protocol:  SessionStartEventProtocol,
		EventID:   ksuid.New().String(),
		TimeStamp: time.Now().UTC(),
	}
}

func NewExecEvent(command string) *ExecEvent {
	return &ExecEvent{
		Protocol:  ExecEventProtocol,
		EventID:   ksuid.New().String(),
		TimeStamp: time.Now().UTC(),
		Command:   command,
	}
}

func (t *SessionStartEvent) SessionEventID() string { return t.EventID }
func (t *SessionStartEvent) String() string {
	return fmt.Sprintf("session %s started %s", t.EventID, t.TimeStamp.Format(time.RFC3339))
}

func (t *ExecEvent) SessionEventID() string { return t.EventID }

// Signaled indicates the process was terminated by a signal
func (t *ExecEvent) Signaled() bool { return t.Status == ExitSignaled }

// Failed indicates the process could not be run or did not exit cleanly
func (t *ExecEvent) Failed() bool { return t.Error != "" || t.Status != 0 }

func (t *ExecEvent) LogStatus(log Logger) {
	args := []any{
		"status", t.Status,
		"runtime", t.Duration.Truncate(time.Millisecond),
	}

	if t.Pid > 0 {
		args = append(args, "pid", t.Pid)
	}

	switch {
	case t.Error != "":
		log.Error(fmt.Sprintf("%s failed", t.Command), append(args, "error", t.Error)...)
	case t.Signaled():
		log.Error(fmt.Sprintf("%s terminated by signal", t.Command), args...)
	case t.Status != 0:
		log.Warn(fmt.Sprintf("%s exited with status %d", t.Command, t.Status), args...)
	default:
		log.Debug(fmt.Sprintf("%s completed", t.Command), args...)
	}
}

func (t *ExecEvent) String() string {
	switch {
	case t.Error != "":
		return fmt.Sprintf("%s failed runtime=%v error=%v", t.Command, t.Duration, t.Error)
	case t.Signaled():
		return fmt.Sprintf("%s signaled runtime=%v", t.Command, t.Duration)
	default:
		return fmt.Sprintf("%s status=%d runtime=%v", t.Command, t.Status, t.Duration)
	}
}

// SessionSummary provides a statistical summary of the processes run in a session
type SessionSummary struct {
	StartTime      time.Time     `json:"start_time" yaml:"start_time"`
	EndTime        time.Time     `json:"end_time" yaml:"end_time"`
	TotalDuration  time.Duration `json:"total_duration" yaml:"total_duration"`
	TotalCommands  int           `json:"total_commands" yaml:"total_commands"`
	FailedCommands int           `json:"failed_commands" yaml:"failed_commands"`
	Signaled       int           `json:"signaled" yaml:"signaled"`
	Captured       int           `json:"captured" yaml:"captured"`
	TotalErrors    int           `json:"total_errors" yaml:"total_errors"`
}

// BuildSessionSummary creates a summary report from all events in a session
func BuildSessionSummary(events []SessionEvent) *SessionSummary {
	summary := &SessionSummary{}
	var totalTime time.Duration

	for _, event := range events {
		if startEvent, ok := event.(*SessionStartEvent); ok {
			summary.StartTime = startEvent.TimeStamp
			continue
		}

		execEvent, ok := event.(*ExecEvent)
		if !ok {
			continue
		}

		totalTime += execEvent.Duration
		summary.TotalCommands++

		end := execEvent.TimeStamp.Add(execEvent.Duration)
		if end.After(summary.EndTime) {
			summary.EndTime = end
		}

		if execEvent.Captured {
			summary.Captured++
		}

		switch {
		case execEvent.Error != "":
			summary.FailedCommands++
			summary.TotalErrors++
		case execEvent.Signaled():
			summary.FailedCommands++
			summary.Signaled++
		case execEvent.Status != 0:
			summary.FailedCommands++
		}
	}

	if !summary.StartTime.IsZero() && !summary.EndTime.IsZero() {
		summary.TotalDuration = summary.EndTime.Sub(summary.StartTime)
	} else {
		summary.TotalDuration = totalTime
	}

	return summary
}

// String returns a human-readable summary of the session
func (s *SessionSummary) String() string {
	return fmt.Sprintf("Session: %d commands, %d failed, %d signaled, %d captured, duration=%v",
		s.TotalCommands, s.FailedCommands, s.Signaled, s.Captured, s.TotalDuration)
}
