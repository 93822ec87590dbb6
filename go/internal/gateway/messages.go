package gateway

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// Client message types. The web client sends one of these per interaction.
const (
	ClientMessagePlay = "play" // drop a piece in a column
	ClientMessageStep = "step" // step the opponent's turn
	ClientMessageKey  = "key"  // raw key press, routed through shortcuts
)

// ClientMessage is an interaction received from a web client.
type ClientMessage struct {
	Type   string `json:"type"`
	Column int    `json:"column,omitempty"`
	Key    string `json:"key,omitempty"`
}

// Server message types pushed to web clients.
const (
	ServerMessageView         = "view"
	ServerMessageObservation  = "observation"
	ServerMessageTrialStarted = "trial_started"
	ServerMessageTrialEnded   = "trial_ended"
)

// ServerMessage is the envelope for everything pushed to web clients.
type ServerMessage struct {
	Type    string          `json:"type"`
	TrialID string          `json:"trial_id"`
	Data    json.RawMessage `json:"data"`
}

// marshalServerMessage wraps a payload into a ServerMessage wire form.
func marshalServerMessage(msgType string, trialID uuid.UUID, payload any) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", msgType, err)
	}
	msg := ServerMessage{
		Type:    msgType,
		TrialID: trialID.String(),
		Data:    data,
	}
	out, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("marshal %s message: %w", msgType, err)
	}
	return out, nil
}
