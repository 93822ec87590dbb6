package trial

import (
	"fmt"
	"math/rand"

	"github.com/elliottower/cogment-verse/go/internal/spaces"
)

// Policy chooses a discrete action for a non-human player from the latest
// observation.
type Policy interface {
	Act(obs spaces.Observation, numActions int) (int, error)
}

// RandomPolicy picks uniformly among the actions the observation's mask marks
// legal.
type RandomPolicy struct {
	rng *rand.Rand
}

// NewRandomPolicy seeds a random policy. Sessions use distinct seeds so
// concurrent trials do not share the generator.
func NewRandomPolicy(seed int64) *RandomPolicy {
	return &RandomPolicy{rng: rand.New(rand.NewSource(seed))}
}

func (p *RandomPolicy) Act(obs spaces.Observation, numActions int) (int, error) {
	mask, err := spaces.DecodeActionMask(obs.ActionMask, numActions)
	if err != nil {
		return 0, fmt.Errorf("random policy: %w", err)
	}
	legal := make([]int, 0, numActions)
	for i, v := range mask {
		if v == 1 {
			legal = append(legal, i)
		}
	}
	if len(legal) == 0 {
		return 0, fmt.Errorf("random policy: no legal actions")
	}
	return legal[p.rng.Intn(len(legal))], nil
}
