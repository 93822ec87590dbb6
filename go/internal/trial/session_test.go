package trial

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elliottower/cogment-verse/go/internal/environments/connectfour"
	"github.com/elliottower/cogment-verse/go/internal/spaces"
)

// eventCollector funnels published events to the test goroutine.
type eventCollector struct {
	events chan *Event
}

func newEventCollector() *eventCollector {
	return &eventCollector{events: make(chan *Event, 64)}
}

func (c *eventCollector) Publish(_ context.Context, event *Event) error {
	c.events <- event
	return nil
}

func (c *eventCollector) next(t *testing.T) *Event {
	t.Helper()
	select {
	case event := <-c.events:
		return event
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for trial event")
		return nil
	}
}

func (c *eventCollector) nextObservation(t *testing.T) spaces.Observation {
	t.Helper()
	event := c.next(t)
	require.Equal(t, EventTypeObservationProduced, event.Type)
	obs, err := spaces.DeserializeObservation(event.Data)
	require.NoError(t, err)
	return obs
}

// fixedPolicy always plays the same column.
type fixedPolicy struct {
	column int
}

func (p fixedPolicy) Act(spaces.Observation, int) (int, error) {
	return p.column, nil
}

func sessionConfig() SessionConfig {
	return SessionConfig{
		Environment: connectfour.ImplementationName,
		WebActor:    "web_actor",
		WebPlayer:   connectfour.Agents[0],
		NumActions:  connectfour.Columns,
	}
}

func startSession(t *testing.T, policy Policy) (*Session, *eventCollector) {
	t.Helper()
	collector := newEventCollector()
	session := NewSession(uuid.New(), connectfour.New(), policy, collector, sessionConfig())

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go func() {
		_ = session.Run(ctx)
	}()
	return session, collector
}

func playerPayload(t *testing.T, column int) []byte {
	t.Helper()
	payload, err := spaces.SerializeAction(spaces.PlayerAction(column))
	require.NoError(t, err)
	return payload
}

func noOpPayload(t *testing.T) []byte {
	t.Helper()
	payload, err := spaces.SerializeAction(spaces.NoOpAction())
	require.NoError(t, err)
	return payload
}

func TestSessionPublishesStartAndInitialObservation(t *testing.T) {
	session, collector := startSession(t, fixedPolicy{column: 0})

	started := collector.next(t)
	assert.Equal(t, EventTypeTrialStarted, started.Type)
	assert.Equal(t, session.ID.String(), started.TrialID)

	obs := collector.nextObservation(t)
	assert.Equal(t, 0, obs.TickID)
	assert.Equal(t, "web_actor", obs.CurrentPlayer)
}

func TestSessionObservationsSpeakActorNames(t *testing.T) {
	// The environment reports agent IDs; published observations must carry
	// the web actor's name on its turns so downstream consumers can match
	// against the identity they know.
	session, collector := startSession(t, fixedPolicy{column: 6})
	collector.next(t)

	obs := collector.nextObservation(t)
	assert.Equal(t, "web_actor", obs.CurrentPlayer)
	assert.NotEqual(t, connectfour.Agents[0], obs.CurrentPlayer)

	session.SubmitAction(ActionMessage{
		TrialID: session.ID.String(),
		TickID:  0,
		Payload: playerPayload(t, 3),
	})
	obs = collector.nextObservation(t)
	assert.Equal(t, connectfour.Agents[1], obs.CurrentPlayer)

	session.SubmitAction(ActionMessage{
		TrialID: session.ID.String(),
		TickID:  1,
		Payload: noOpPayload(t),
	})
	obs = collector.nextObservation(t)
	assert.Equal(t, "web_actor", obs.CurrentPlayer)
}

func TestSessionPlayerMoveThenNoOpLetsBotMove(t *testing.T) {
	session, collector := startSession(t, fixedPolicy{column: 6})
	collector.next(t)            // TrialStarted
	collector.nextObservation(t) // tick 0

	// Web player's move.
	session.SubmitAction(ActionMessage{
		TrialID:   session.ID.String(),
		ActorName: "web_actor",
		TickID:    0,
		Payload:   playerPayload(t, 3),
	})
	obs := collector.nextObservation(t)
	assert.Equal(t, 1, obs.TickID)
	assert.Equal(t, connectfour.Agents[1], obs.CurrentPlayer)

	// No-op on the opponent's turn: the bot policy supplies the move.
	session.SubmitAction(ActionMessage{
		TrialID:   session.ID.String(),
		ActorName: "web_actor",
		TickID:    1,
		Payload:   noOpPayload(t),
	})
	obs = collector.nextObservation(t)
	assert.Equal(t, 2, obs.TickID)
	assert.Equal(t, "web_actor", obs.CurrentPlayer)
}

func TestSessionTeacherOverrideForcesBotMove(t *testing.T) {
	session, collector := startSession(t, fixedPolicy{column: 0})
	collector.next(t)
	collector.nextObservation(t)

	session.SubmitAction(ActionMessage{
		TrialID: session.ID.String(),
		TickID:  0,
		Payload: playerPayload(t, 0),
	})
	collector.nextObservation(t) // tick 1, opponent's turn

	// A teacher action carrying a value overrides the policy's choice.
	override := 5
	payload, err := spaces.SerializeAction(spaces.Action{Kind: spaces.ActionKindTeacher, Value: &override})
	require.NoError(t, err)
	session.SubmitAction(ActionMessage{
		TrialID: session.ID.String(),
		TickID:  1,
		Payload: payload,
	})
	obs := collector.nextObservation(t)

	var value struct {
		Board [connectfour.Rows][connectfour.Columns]uint8 `json:"board"`
	}
	require.NoError(t, json.Unmarshal(obs.Value, &value))
	assert.EqualValues(t, 2, value.Board[connectfour.Rows-1][5])
}

func TestSessionDropsStaleAndMalformedActions(t *testing.T) {
	session, collector := startSession(t, fixedPolicy{column: 0})
	collector.next(t)
	collector.nextObservation(t)

	// Stale tick: dropped without stepping the environment.
	session.SubmitAction(ActionMessage{
		TrialID: session.ID.String(),
		TickID:  7,
		Payload: playerPayload(t, 0),
	})
	// Malformed payload: dropped.
	session.SubmitAction(ActionMessage{
		TrialID: session.ID.String(),
		TickID:  0,
		Payload: []byte(`{"kind":"referee"}`),
	})
	// No-op on the web player's own turn: unresolvable, dropped.
	session.SubmitAction(ActionMessage{
		TrialID: session.ID.String(),
		TickID:  0,
		Payload: noOpPayload(t),
	})

	// The next valid action still answers tick 0.
	session.SubmitAction(ActionMessage{
		TrialID: session.ID.String(),
		TickID:  0,
		Payload: playerPayload(t, 2),
	})
	obs := collector.nextObservation(t)
	assert.Equal(t, 1, obs.TickID)
}

func TestSessionPublishesTrialEnded(t *testing.T) {
	// Bot always plays column 6; the web player stacks column 0 to a
	// vertical win.
	session, collector := startSession(t, fixedPolicy{column: 6})
	collector.next(t)
	obs := collector.nextObservation(t)

	for !obs.Done {
		var payload []byte
		if obs.CurrentPlayer == "web_actor" {
			payload = playerPayload(t, 0)
		} else {
			payload = noOpPayload(t)
		}
		session.SubmitAction(ActionMessage{
			TrialID: session.ID.String(),
			TickID:  obs.TickID,
			Payload: payload,
		})
		obs = collector.nextObservation(t)
	}

	assert.Equal(t, float64(1), obs.Rewards[connectfour.Agents[0]])

	ended := collector.next(t)
	require.Equal(t, EventTypeTrialEnded, ended.Type)

	var payload TrialEndedPayload
	require.NoError(t, json.Unmarshal(ended.Data, &payload))
	assert.Equal(t, float64(1), payload.Rewards[connectfour.Agents[0]])
	assert.Equal(t, float64(-1), payload.Rewards[connectfour.Agents[1]])
}
