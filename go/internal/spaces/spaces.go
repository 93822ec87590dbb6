package spaces

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ActionKind identifies which actor class produced an action. A player action
// carries that actor's own move; a teacher action either overrides the move of
// the player it supervises or, when it carries no value, lets the supervised
// player's turn resolve untouched.
type ActionKind string

const (
	ActionKindPlayer  ActionKind = "player"
	ActionKindTeacher ActionKind = "teacher"
)

var ErrUnknownActionKind = errors.New("unknown action kind")

// Action is a discrete action ready for serialization. Value is nil for the
// no-op teacher action.
type Action struct {
	Kind  ActionKind `json:"kind"`
	Value *int       `json:"value,omitempty"`
}

// PlayerAction builds a discrete player action carrying value.
func PlayerAction(value int) Action {
	v := value
	return Action{Kind: ActionKindPlayer, Value: &v}
}

// NoOpAction builds the fixed no-op teacher action. It advances turn order
// without making a game move.
func NoOpAction() Action {
	return Action{Kind: ActionKindTeacher}
}

// IsNoOp reports whether the action is the no-op teacher action.
func (a Action) IsNoOp() bool {
	return a.Kind == ActionKindTeacher && a.Value == nil
}

// SerializeAction encodes an action into its wire form.
func SerializeAction(a Action) ([]byte, error) {
	switch a.Kind {
	case ActionKindPlayer, ActionKindTeacher:
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownActionKind, a.Kind)
	}
	return json.Marshal(a)
}

// DeserializeAction decodes an action from its wire form.
func DeserializeAction(data []byte) (Action, error) {
	var a Action
	if err := json.Unmarshal(data, &a); err != nil {
		return Action{}, fmt.Errorf("deserialize action: %w", err)
	}
	switch a.Kind {
	case ActionKindPlayer, ActionKindTeacher:
	default:
		return Action{}, fmt.Errorf("%w: %q", ErrUnknownActionKind, a.Kind)
	}
	return a, nil
}

// Observation is an environment-serialized snapshot of game state delivered to
// controlling actors. Value and ActionMask are opaque space-encoded payloads;
// consumers decode only the pieces they understand.
type Observation struct {
	TickID        int                `json:"tick_id"`
	CurrentPlayer string             `json:"current_player"`
	Value         json.RawMessage    `json:"value,omitempty"`
	ActionMask    json.RawMessage    `json:"action_mask,omitempty"`
	Done          bool               `json:"done"`
	Rewards       map[string]float64 `json:"rewards,omitempty"`
}

// SerializeObservation encodes an observation into its wire form.
func SerializeObservation(o Observation) ([]byte, error) {
	return json.Marshal(o)
}

// DeserializeObservation decodes an observation from its wire form.
func DeserializeObservation(data []byte) (Observation, error) {
	var o Observation
	if err := json.Unmarshal(data, &o); err != nil {
		return Observation{}, fmt.Errorf("deserialize observation: %w", err)
	}
	return o, nil
}
