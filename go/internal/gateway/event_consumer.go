package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go/jetstream"
	"github.com/rs/zerolog/log"

	"github.com/elliottower/cogment-verse/go/internal/trial"
)

// EventConsumerConfig holds configuration for the JetStream event consumer.
type EventConsumerConfig struct {
	StreamName    string
	ConsumerName  string
	SubjectFilter string
	MaxDeliver    int
	AckWait       time.Duration
	MaxAckPending int
}

// DefaultEventConsumerConfig returns the default event consumer configuration.
func DefaultEventConsumerConfig() EventConsumerConfig {
	return EventConsumerConfig{
		StreamName:    "TRIAL_EVENTS",
		ConsumerName:  "web-gateway",
		SubjectFilter: "trial.events.>",
		MaxDeliver:    5,
		AckWait:       30 * time.Second,
		MaxAckPending: 100,
	}
}

// EventConsumer consumes trial events from JetStream and hands them to the
// gateway service.
type EventConsumer struct {
	service *Service
	js      jetstream.JetStream
	config  EventConsumerConfig

	consumer   jetstream.Consumer
	consumeCtx jetstream.ConsumeContext
}

// NewEventConsumer creates the consumer and provisions its durable.
func NewEventConsumer(ctx context.Context, service *Service, js jetstream.JetStream, config EventConsumerConfig) (*EventConsumer, error) {
	ec := &EventConsumer{
		service: service,
		js:      js,
		config:  config,
	}
	if err := ec.ensureConsumer(ctx); err != nil {
		return nil, err
	}
	return ec, nil
}

func (ec *EventConsumer) ensureConsumer(ctx context.Context) error {
	stream, err := ec.js.Stream(ctx, ec.config.StreamName)
	if err != nil {
		return fmt.Errorf("get stream: %w", err)
	}

	consumerConfig := jetstream.ConsumerConfig{
		Name:          ec.config.ConsumerName,
		Durable:       ec.config.ConsumerName,
		Description:   "Web gateway trial event consumer",
		FilterSubject: ec.config.SubjectFilter,
		DeliverPolicy: jetstream.DeliverNewPolicy,
		AckPolicy:     jetstream.AckExplicitPolicy,
		MaxDeliver:    ec.config.MaxDeliver,
		AckWait:       ec.config.AckWait,
		MaxAckPending: ec.config.MaxAckPending,
		ReplayPolicy:  jetstream.ReplayInstantPolicy,
	}

	consumer, err := stream.Consumer(ctx, ec.config.ConsumerName)
	if err != nil {
		consumer, err = stream.CreateConsumer(ctx, consumerConfig)
		if err != nil {
			return fmt.Errorf("create consumer: %w", err)
		}
		log.Info().
			Str("consumer", ec.config.ConsumerName).
			Str("stream", ec.config.StreamName).
			Msg("created JetStream event consumer")
	}

	ec.consumer = consumer
	return nil
}

// Start begins consuming events until the context is cancelled.
func (ec *EventConsumer) Start(ctx context.Context) error {
	consumeCtx, err := ec.consumer.Consume(func(msg jetstream.Msg) {
		var event trial.Event
		if err := json.Unmarshal(msg.Data(), &event); err != nil {
			log.Error().Err(err).Str("subject", msg.Subject()).Msg("failed to unmarshal trial event")
			msg.Nak()
			return
		}
		if err := ec.service.HandleTrialEvent(&event); err != nil {
			log.Error().Err(err).
				Str("trial_id", event.TrialID).
				Str("event_type", string(event.Type)).
				Msg("failed to handle trial event")
			msg.Nak()
			return
		}
		msg.Ack()
	})
	if err != nil {
		return fmt.Errorf("start event consumer: %w", err)
	}
	ec.consumeCtx = consumeCtx

	log.Info().Str("consumer", ec.config.ConsumerName).Msg("event consumer started")
	<-ctx.Done()
	return nil
}

// Stop halts consumption.
func (ec *EventConsumer) Stop() error {
	if ec.consumeCtx != nil {
		ec.consumeCtx.Stop()
	}
	return nil
}
