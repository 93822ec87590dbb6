package bus

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go/jetstream"
	"github.com/rs/zerolog/log"

	"github.com/elliottower/cogment-verse/go/internal/trial"
)

// Publisher writes trial events and actions to their JetStream subjects. It
// satisfies trial.EventPublisher.
type Publisher struct {
	js jetstream.JetStream
}

// NewPublisher creates a publisher over an established JetStream context.
func NewPublisher(js jetstream.JetStream) *Publisher {
	return &Publisher{js: js}
}

// Publish writes a trial event to the trial's event subject.
func (p *Publisher) Publish(ctx context.Context, event *trial.Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	subject := EventSubject(event.TrialID)
	if _, err := p.js.Publish(ctx, subject, data); err != nil {
		return fmt.Errorf("publish to %s: %w", subject, err)
	}
	log.Debug().
		Str("subject", subject).
		Str("event_type", string(event.Type)).
		Msg("event published")
	return nil
}

// PublishAction writes a submitted action to the trial's action subject.
func (p *Publisher) PublishAction(ctx context.Context, msg trial.ActionMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal action message: %w", err)
	}
	subject := ActionSubject(msg.TrialID)
	if _, err := p.js.Publish(ctx, subject, data); err != nil {
		return fmt.Errorf("publish to %s: %w", subject, err)
	}
	return nil
}
