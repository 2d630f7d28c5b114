// Copyright (c) 2025-2026, R.I. Pienaar and the Choria Project contributors
//
// SPDX-License-Identifier: Apache-2.0

package session

import (
	"sync"
	"time"

	"github.com/choria-io/cbs/model"
)

// MemorySessionStore stores execution events in memory for a session
type MemorySessionStore struct {
	start  time.Time
	events []model.SessionEvent
	log    model.Logger
	mu     sync.Mutex
}

var _ model.SessionStore = (*MemorySessionStore)(nil)

// NewMemorySessionStore creates a new in-memory session store
func NewMemorySessionStore(logger model.Logger) (*MemorySessionStore, error) {
	return &MemorySessionStore{
		log:    logger.With("store", "memory"),
		events: make([]model.SessionEvent, 0),
	}, nil
}

// StartSession clears the event log and starts a new session
func (s *MemorySessionStore) StartSession() error {
	s.mu.Lock()
	s.events = make([]model.SessionEvent, 0)
	s.mu.Unlock()

	s.log.Debug("Creating new session record")
	start := model.NewSessionStartEvent()
	s.start = start.TimeStamp

	return s.RecordEvent(start)
}

// RecordEvent adds an event to the session
func (s *MemorySessionStore) RecordEvent(event model.SessionEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.events = append(s.events, event)

	return nil
}

// StopSession summarizes the session, when destroy is true the recorded events are discarded
func (s *MemorySessionStore) StopSession(destroy bool) (*model.SessionSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	summary := model.BuildSessionSummary(s.events)

	if destroy {
		s.events = make([]model.SessionEvent, 0)
	}

	return summary, nil
}

// AllEvents returns all events in the session in the order they were recorded
func (s *MemorySessionStore) AllEvents() ([]model.SessionEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	eventsCopy := make([]model.SessionEvent, len(s.events))
	copy(eventsCopy, s.events)

	return eventsCopy, nil
}
