package controls

// View is the render model for a control set. The gateway ships it to web
// clients after every observation; the client draws buttons from it and sends
// interactions back by column index or key.
type View struct {
	TurnKey       int                       `json:"turn_key"`
	CurrentPlayer string                    `json:"current_player"`
	Columns       [NumColumns]ColumnControl `json:"columns"`
	Step          StepControl               `json:"step"`
	Shortcuts     []Shortcut                `json:"shortcuts"`
}

// ColumnControl is the state of one column button.
type ColumnControl struct {
	Column   int  `json:"column"`
	Disabled bool `json:"disabled"`
}

// StepControl is the state of the step-opponent-turn button. TurnKey restarts
// the countdown visual whenever it changes.
type StepControl struct {
	Disabled     bool `json:"disabled"`
	CountdownSec int  `json:"countdown_sec"`
	TurnKey      int  `json:"turn_key"`
}

// Shortcut is one row of the keyboard hint list.
type Shortcut struct {
	Key   string `json:"key"`
	Label string `json:"label"`
}

// View snapshots the current control surface.
func (c *ConnectFourControls) View() View {
	c.mu.Lock()
	defer c.mu.Unlock()

	v := View{
		TurnKey:       c.turnKey,
		CurrentPlayer: c.currentPlayer,
		Step: StepControl{
			Disabled:     c.opponentStepDisabledLocked(),
			CountdownSec: int(c.turnTime.Seconds()),
			TurnKey:      c.turnKey,
		},
		Shortcuts: Shortcuts(),
	}
	for col := 0; col < NumColumns; col++ {
		v.Columns[col] = ColumnControl{
			Column:   col,
			Disabled: c.columnDisabledLocked(col),
		}
	}
	return v
}
