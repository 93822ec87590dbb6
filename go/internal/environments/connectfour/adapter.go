package connectfour

import (
	"encoding/json"
	"fmt"

	"github.com/elliottower/cogment-verse/go/internal/spaces"
)

// ImplementationName identifies this environment adapter to the controls
// registry and trial configuration.
const ImplementationName = "environments.pettingzoo_adapter.Environment/connect_four_v3"

// Agents lists the two participants in turn order.
var Agents = [2]string{"player_0", "player_1"}

// boardValue is the space-encoded observation value payload.
type boardValue struct {
	Board [Rows][Columns]uint8 `json:"board"`
}

// Environment is a two-player Connect Four environment. It is not safe for
// concurrent use; the trial session serializes access.
type Environment struct {
	board   Board
	current int
	tick    int
	done    bool
}

// New returns a fresh environment. Reset must be called before stepping.
func New() *Environment {
	return &Environment{}
}

// Reset clears the board and returns the initial observation.
func (e *Environment) Reset() spaces.Observation {
	e.board = Board{}
	e.current = 0
	e.tick = 0
	e.done = false
	return e.observation(nil)
}

// CurrentPlayer returns the agent whose turn it is.
func (e *Environment) CurrentPlayer() string {
	return Agents[e.current]
}

// Done reports whether the game has ended.
func (e *Environment) Done() bool {
	return e.done
}

// Step applies the current player's move and returns the next observation.
// An illegal move ends the game as a loss for the mover, matching the
// pettingzoo adapter's handling; legality masks make this unreachable from
// well-behaved actors.
func (e *Environment) Step(column int) (spaces.Observation, error) {
	if e.done {
		return spaces.Observation{}, fmt.Errorf("step on completed environment")
	}
	mover := e.current
	piece := PieceOne
	if mover == 1 {
		piece = PieceTwo
	}

	var rewards map[string]float64
	if _, err := e.board.Drop(column, piece); err != nil {
		e.done = true
		rewards = e.winRewards(1 - mover)
	} else if winner, ok := e.board.Winner(); ok {
		e.done = true
		if winner == piece {
			rewards = e.winRewards(mover)
		} else {
			rewards = e.winRewards(1 - mover)
		}
	} else if e.board.Full() {
		e.done = true
		rewards = map[string]float64{Agents[0]: 0, Agents[1]: 0}
	}

	e.current = 1 - e.current
	e.tick++
	return e.observation(rewards), nil
}

func (e *Environment) winRewards(winner int) map[string]float64 {
	return map[string]float64{
		Agents[winner]:   1,
		Agents[1-winner]: -1,
	}
}

func (e *Environment) observation(rewards map[string]float64) spaces.Observation {
	value, err := json.Marshal(boardValue{Board: e.encodeBoard()})
	if err != nil {
		// A fixed-size numeric grid cannot fail to marshal.
		panic(err)
	}
	mask, err := spaces.EncodeActionMask(e.board.LegalMask())
	if err != nil {
		panic(err)
	}
	return spaces.Observation{
		TickID:        e.tick,
		CurrentPlayer: e.CurrentPlayer(),
		Value:         value,
		ActionMask:    mask,
		Done:          e.done,
		Rewards:       rewards,
	}
}

func (e *Environment) encodeBoard() [Rows][Columns]uint8 {
	var out [Rows][Columns]uint8
	for r := 0; r < Rows; r++ {
		for c := 0; c < Columns; c++ {
			out[r][c] = uint8(e.board[r][c])
		}
	}
	return out
}
