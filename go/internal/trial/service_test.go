package trial

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elliottower/cogment-verse/go/internal/environments/connectfour"
)

func newServiceForTest(t *testing.T) (*Service, *eventCollector) {
	t.Helper()
	collector := newEventCollector()
	service := NewService(collector, func() Environment { return connectfour.New() }, sessionConfig())
	return service, collector
}

func TestServiceStartTrial(t *testing.T) {
	service, collector := newServiceForTest(t)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	id, err := service.StartTrial(ctx)
	require.NoError(t, err)

	started := collector.next(t)
	assert.Equal(t, EventTypeTrialStarted, started.Type)
	assert.Equal(t, id.String(), started.TrialID)
	assert.Equal(t, 1, service.ActiveTrials())
}

func TestServiceSubmitActionRouting(t *testing.T) {
	service, collector := newServiceForTest(t)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	id, err := service.StartTrial(ctx)
	require.NoError(t, err)
	collector.next(t)
	collector.nextObservation(t)

	err = service.SubmitAction(ActionMessage{
		TrialID: id.String(),
		TickID:  0,
		Payload: playerPayload(t, 3),
	})
	require.NoError(t, err)

	obs := collector.nextObservation(t)
	assert.Equal(t, 1, obs.TickID)
}

func TestServiceSubmitActionErrors(t *testing.T) {
	service, _ := newServiceForTest(t)

	err := service.SubmitAction(ActionMessage{TrialID: "not-a-uuid"})
	assert.Error(t, err)

	err = service.SubmitAction(ActionMessage{TrialID: "3b491c3c-2a2f-4a3e-9c5d-6f3f1d2b7a10"})
	assert.Error(t, err)
}
