// Copyright (c) 2025-2026, R.I. Pienaar and the Choria Project contributors
//
// SPDX-License-Identifier: Apache-2.0

package session

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/choria-io/cbs/model"
)

// ParseEvent decodes a JSON encoded event based on its protocol
func ParseEvent(data []byte) (model.SessionEvent, error) {
	var eventType struct {
		Protocol string `json:"protocol"`
	}

	err := json.Unmarshal(data, &eventType)
	if err != nil {
		return nil, fmt.Errorf("invalid event: %w", err)
	}

	switch eventType.Protocol {
	case model.SessionStartEventProtocol:
		var event model.SessionStartEvent
		err = json.Unmarshal(data, &event)
		if err != nil {
			return nil, fmt.Errorf("invalid session start event: %w", err)
		}

		return &event, nil

	case model.ExecEventProtocol:
		var event model.ExecEvent
		err = json.Unmarshal(data, &event)
		if err != nil {
			return nil, fmt.Errorf("invalid exec event: %w", err)
		}

		return &event, nil

	default:
		return nil, fmt.Errorf("unknown event protocol %q", eventType.Protocol)
	}
}

func eventTime(event model.SessionEvent) time.Time {
	switch e := event.(type) {
	case *model.SessionStartEvent:
		return e.TimeStamp
	case *model.ExecEvent:
		return e.TimeStamp
	default:
		return time.Time{}
	}
}

// sortEvents orders by timestamp, ksuids only have second resolution so they break ties
func sortEvents(events []model.SessionEvent) {
	sort.SliceStable(events, func(i, j int) bool {
		ti, tj := eventTime(events[i]), eventTime(events[j])
		if !ti.Equal(tj) {
			return ti.Before(tj)
		}

		return events[i].SessionEventID() < events[j].SessionEventID()
	})
}
