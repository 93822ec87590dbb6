package controls

import (
	"fmt"
	"sync"
	"time"

	"github.com/elliottower/cogment-verse/go/internal/spaces"
)

// NumColumns is the number of discrete column actions in Connect Four.
const NumColumns = 7

// ConnectFourEnvironments lists the environment implementations this control
// set is compatible with. The registry uses it to match controls to trials.
var ConnectFourEnvironments = []string{
	"environments.pettingzoo_adapter.Environment/connect_four_v3",
}

// ActionSink delivers a serialized action to the trial's action stream. It is
// supplied by the host; the controls never consume a return value from it.
type ActionSink func(spaces.Action)

// ConnectFourControls translates user input into action messages for a
// Connect Four trial. It is purely reactive: observations come in through
// Observe, user interactions come in through Play, OpponentStep and HandleKey,
// and the only side effect is sending actions through the sink.
//
// Two flags carry all of its state. expecting is true from a turn change until
// an action is sent; turnKey is an opaque counter bumped on every turn change
// so the presentation layer can restart its countdown.
type ConnectFourControls struct {
	mu sync.Mutex

	actorName string
	turnTime  time.Duration
	send      ActionSink

	currentPlayer string
	expecting     bool
	turnKey       int
	mask          []uint8
}

// NewConnectFour builds the control set for the given local actor. turnTime is
// the per-turn countdown shown on the opponent-step control.
func NewConnectFour(actorName string, turnTime time.Duration, send ActionSink) *ConnectFourControls {
	return &ConnectFourControls{
		actorName: actorName,
		turnTime:  turnTime,
		send:      send,
	}
}

// Observe ingests the latest observation. On every change of the current
// player it bumps the turn key and re-arms the expecting flag, regardless of
// the flag's prior value. A malformed action mask is returned as an error;
// the controls add no recovery of their own.
func (c *ConnectFourControls) Observe(obs spaces.Observation) error {
	mask, err := spaces.DecodeActionMask(obs.ActionMask, NumColumns)
	if err != nil {
		return fmt.Errorf("connect four controls: %w", err)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.mask = mask
	if obs.CurrentPlayer != c.currentPlayer {
		c.currentPlayer = obs.CurrentPlayer
		c.turnKey++
		c.expecting = true
	}
	return nil
}

// OpponentStepDisabled reports whether the step-opponent-turn control is
// inactive. It is enabled only while an action is expected and it is not the
// local player's turn.
func (c *ConnectFourControls) OpponentStepDisabled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.opponentStepDisabledLocked()
}

func (c *ConnectFourControls) opponentStepDisabledLocked() bool {
	return !c.expecting || c.currentPlayer == c.actorName
}

// OpponentStep sends the fixed no-op action to let the opponent's turn
// resolve. While disabled it does nothing and reports false. After a send the
// control disarms itself until the next turn change.
func (c *ConnectFourControls) OpponentStep() bool {
	c.mu.Lock()
	if c.opponentStepDisabledLocked() {
		c.mu.Unlock()
		return false
	}
	c.expecting = false
	send := c.send
	c.mu.Unlock()

	send(spaces.NoOpAction())
	return true
}

// ColumnDisabled reports whether the button for the given column is inactive:
// no action is expected, it is not the local player's turn, or the action mask
// marks the column illegal.
func (c *ConnectFourControls) ColumnDisabled(col int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.columnDisabledLocked(col)
}

func (c *ConnectFourControls) columnDisabledLocked(col int) bool {
	if col < 0 || col >= NumColumns {
		return true
	}
	if !c.expecting || c.currentPlayer != c.actorName {
		return true
	}
	return len(c.mask) != NumColumns || c.mask[col] != 1
}

// Play sends a discrete action choosing the given column. While the column is
// disabled it does nothing and reports false.
func (c *ConnectFourControls) Play(col int) bool {
	c.mu.Lock()
	if c.columnDisabledLocked(col) {
		c.mu.Unlock()
		return false
	}
	c.expecting = false
	send := c.send
	c.mu.Unlock()

	send(spaces.PlayerAction(col))
	return true
}

// TurnKey returns the opaque per-turn counter. It carries no meaning beyond
// signalling that the countdown should restart.
func (c *ConnectFourControls) TurnKey() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.turnKey
}
