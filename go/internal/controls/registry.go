package controls

import (
	"fmt"
	"sync"
	"time"

	"github.com/elliottower/cogment-verse/go/internal/spaces"
)

// Controls is the surface the gateway drives for a discrete turn-based
// control set.
type Controls interface {
	Observe(obs spaces.Observation) error
	Play(value int) bool
	OpponentStep() bool
	HandleKey(key string) bool
	TurnKey() int
	View() View
}

// Factory builds a control set bound to a local actor and an action sink.
type Factory func(actorName string, turnTime time.Duration, send ActionSink) Controls

var (
	registry   = make(map[string]Factory)
	registryMu sync.RWMutex
)

// Register adds a control set factory under every environment implementation
// it supports. It should be called from the control set's init function.
func Register(envIDs []string, factory Factory) error {
	registryMu.Lock()
	defer registryMu.Unlock()
	for _, id := range envIDs {
		if id == "" {
			return fmt.Errorf("environment id cannot be empty")
		}
		if _, exists := registry[id]; exists {
			return fmt.Errorf("controls already registered for environment %q", id)
		}
		registry[id] = factory
	}
	return nil
}

// Lookup retrieves the control set factory matching an environment
// implementation, or an error if none is registered.
func Lookup(envID string) (Factory, error) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	factory, exists := registry[envID]
	if !exists {
		return nil, fmt.Errorf("no controls registered for environment %q", envID)
	}
	return factory, nil
}

// init registers the Connect Four control set.
func init() {
	factory := func(actorName string, turnTime time.Duration, send ActionSink) Controls {
		return NewConnectFour(actorName, turnTime, send)
	}
	if err := Register(ConnectFourEnvironments, factory); err != nil {
		panic(fmt.Sprintf("failed to register connect four controls: %v", err))
	}
}
