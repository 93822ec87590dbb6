package trial

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Event is the envelope for all trial events published on the bus.
type Event struct {
	ID        string          `json:"id"`
	TrialID   string          `json:"trial_id"`
	Type      EventType       `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data"`
}

// EventType identifies the kind of trial event.
type EventType string

const (
	EventTypeTrialStarted        EventType = "TrialStarted"
	EventTypeObservationProduced EventType = "ObservationProduced"
	EventTypeTrialEnded          EventType = "TrialEnded"
)

// TrialStartedPayload announces a new trial.
type TrialStartedPayload struct {
	Environment string    `json:"environment"`
	WebActor    string    `json:"web_actor"`
	WebPlayer   string    `json:"web_player"`
	StartedAt   time.Time `json:"started_at"`
}

// TrialEndedPayload closes a trial with its final rewards.
type TrialEndedPayload struct {
	Rewards map[string]float64 `json:"rewards,omitempty"`
	EndedAt time.Time          `json:"ended_at"`
}

// NewEvent wraps a payload into the event envelope.
func NewEvent(trialID uuid.UUID, eventType EventType, payload any) (*Event, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", eventType, err)
	}
	return &Event{
		ID:        uuid.New().String(),
		TrialID:   trialID.String(),
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		Data:      data,
	}, nil
}

// EventPublisher delivers trial events to the bus. The session never blocks on
// broker details; tests supply an in-memory implementation.
type EventPublisher interface {
	Publish(ctx context.Context, event *Event) error
}

// ActionMessage is one serialized action submitted for a trial tick. Payload
// is the wire form produced by the spaces codec.
type ActionMessage struct {
	TrialID   string          `json:"trial_id"`
	ActorName string          `json:"actor"`
	TickID    int             `json:"tick_id"`
	Payload   json.RawMessage `json:"payload"`
}
