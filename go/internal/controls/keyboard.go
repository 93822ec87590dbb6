package controls

import "strings"

// StepShortcutKey is the single global key binding: spacebar steps the
// opponent's turn.
const StepShortcutKey = "space"

// Shortcuts returns the static hint list shown next to the controls.
func Shortcuts() []Shortcut {
	return []Shortcut{
		{Key: StepShortcutKey, Label: "step opponent turn"},
	}
}

// HandleKey routes a key press. The spacebar invokes OpponentStep; every other
// key is ignored. It reports whether an action was sent.
func (c *ConnectFourControls) HandleKey(key string) bool {
	if !isStepKey(key) {
		return false
	}
	return c.OpponentStep()
}

// isStepKey accepts the common spellings browsers use for the spacebar.
func isStepKey(key string) bool {
	switch strings.ToLower(key) {
	case " ", "space", "spacebar":
		return true
	}
	return false
}
