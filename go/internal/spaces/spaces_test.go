package spaces

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestActionRoundTrip(t *testing.T) {
	tests := []struct {
		name   string
		action Action
	}{
		{name: "player action", action: PlayerAction(3)},
		{name: "no-op teacher action", action: NoOpAction()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := SerializeAction(tt.action)
			require.NoError(t, err)

			got, err := DeserializeAction(data)
			require.NoError(t, err)
			assert.Equal(t, tt.action.Kind, got.Kind)
			if tt.action.Value == nil {
				assert.Nil(t, got.Value)
			} else {
				require.NotNil(t, got.Value)
				assert.Equal(t, *tt.action.Value, *got.Value)
			}
		})
	}
}

func TestNoOpAction(t *testing.T) {
	noop := NoOpAction()
	assert.True(t, noop.IsNoOp())
	assert.Nil(t, noop.Value)
	assert.Equal(t, ActionKindTeacher, noop.Kind)

	assert.False(t, PlayerAction(0).IsNoOp())

	v := 2
	override := Action{Kind: ActionKindTeacher, Value: &v}
	assert.False(t, override.IsNoOp())
}

func TestSerializeActionUnknownKind(t *testing.T) {
	_, err := SerializeAction(Action{Kind: "observer"})
	assert.ErrorIs(t, err, ErrUnknownActionKind)
}

func TestDeserializeActionErrors(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{name: "not json", data: "{"},
		{name: "unknown kind", data: `{"kind":"referee","value":1}`},
		{name: "empty kind", data: `{"value":1}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DeserializeAction([]byte(tt.data))
			assert.Error(t, err)
		})
	}
}

func TestObservationRoundTrip(t *testing.T) {
	obs := Observation{
		TickID:        4,
		CurrentPlayer: "player_1",
		Value:         json.RawMessage(`{"board":[]}`),
		ActionMask:    json.RawMessage(`[1,0,1,1,1,1,1]`),
		Done:          true,
		Rewards:       map[string]float64{"player_0": 1, "player_1": -1},
	}

	data, err := SerializeObservation(obs)
	require.NoError(t, err)

	got, err := DeserializeObservation(data)
	require.NoError(t, err)
	assert.Equal(t, obs.TickID, got.TickID)
	assert.Equal(t, obs.CurrentPlayer, got.CurrentPlayer)
	assert.JSONEq(t, string(obs.ActionMask), string(got.ActionMask))
	assert.True(t, got.Done)
	assert.Equal(t, obs.Rewards, got.Rewards)
}
