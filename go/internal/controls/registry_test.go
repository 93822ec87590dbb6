package controls

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elliottower/cogment-verse/go/internal/spaces"
)

func TestLookupConnectFour(t *testing.T) {
	for _, envID := range ConnectFourEnvironments {
		factory, err := Lookup(envID)
		require.NoError(t, err)

		c := factory("web_actor", 30*time.Second, func(spaces.Action) {})
		require.NotNil(t, c)
		assert.IsType(t, &ConnectFourControls{}, c)
	}
}

func TestLookupUnknownEnvironment(t *testing.T) {
	_, err := Lookup("environments.pettingzoo_adapter.Environment/chess_v6")
	assert.Error(t, err)
}

func TestRegisterRejectsDuplicates(t *testing.T) {
	err := Register(ConnectFourEnvironments, func(string, time.Duration, ActionSink) Controls {
		return nil
	})
	assert.Error(t, err)
}

func TestRegisterRejectsEmptyID(t *testing.T) {
	err := Register([]string{""}, func(string, time.Duration, ActionSink) Controls {
		return nil
	})
	assert.Error(t, err)
}
