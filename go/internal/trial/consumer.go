package trial

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go/jetstream"
	"github.com/rs/zerolog/log"
)

// ActionConsumerConfig holds configuration for the JetStream action consumer.
type ActionConsumerConfig struct {
	StreamName    string
	ConsumerName  string
	SubjectFilter string
	MaxDeliver    int
	AckWait       time.Duration
	MaxAckPending int
}

// DefaultActionConsumerConfig returns the default action consumer configuration.
func DefaultActionConsumerConfig() ActionConsumerConfig {
	return ActionConsumerConfig{
		StreamName:    "TRIAL_ACTIONS",
		ConsumerName:  "trial-runner",
		SubjectFilter: "trial.actions.>",
		MaxDeliver:    5,
		AckWait:       30 * time.Second,
		MaxAckPending: 100,
	}
}

// ActionConsumer consumes submitted actions from JetStream and routes them to
// running sessions.
type ActionConsumer struct {
	service *Service
	js      jetstream.JetStream
	config  ActionConsumerConfig

	consumer   jetstream.Consumer
	consumeCtx jetstream.ConsumeContext
}

// NewActionConsumer creates the consumer and provisions its durable.
func NewActionConsumer(ctx context.Context, service *Service, js jetstream.JetStream, config ActionConsumerConfig) (*ActionConsumer, error) {
	ac := &ActionConsumer{
		service: service,
		js:      js,
		config:  config,
	}
	if err := ac.ensureConsumer(ctx); err != nil {
		return nil, err
	}
	return ac, nil
}

func (ac *ActionConsumer) ensureConsumer(ctx context.Context) error {
	stream, err := ac.js.Stream(ctx, ac.config.StreamName)
	if err != nil {
		return fmt.Errorf("get stream: %w", err)
	}

	consumerConfig := jetstream.ConsumerConfig{
		Name:          ac.config.ConsumerName,
		Durable:       ac.config.ConsumerName,
		Description:   "Trial runner action consumer",
		FilterSubject: ac.config.SubjectFilter,
		DeliverPolicy: jetstream.DeliverNewPolicy,
		AckPolicy:     jetstream.AckExplicitPolicy,
		MaxDeliver:    ac.config.MaxDeliver,
		AckWait:       ac.config.AckWait,
		MaxAckPending: ac.config.MaxAckPending,
		ReplayPolicy:  jetstream.ReplayInstantPolicy,
	}

	consumer, err := stream.Consumer(ctx, ac.config.ConsumerName)
	if err != nil {
		consumer, err = stream.CreateConsumer(ctx, consumerConfig)
		if err != nil {
			return fmt.Errorf("create consumer: %w", err)
		}
		log.Info().
			Str("consumer", ac.config.ConsumerName).
			Str("stream", ac.config.StreamName).
			Msg("created JetStream action consumer")
	}

	ac.consumer = consumer
	return nil
}

// Start begins consuming actions until Stop is called.
func (ac *ActionConsumer) Start(ctx context.Context) error {
	consumeCtx, err := ac.consumer.Consume(func(msg jetstream.Msg) {
		if err := ac.processMessage(msg); err != nil {
			log.Error().Err(err).Str("subject", msg.Subject()).Msg("failed to process action message")
			msg.Nak()
			return
		}
		msg.Ack()
	})
	if err != nil {
		return fmt.Errorf("start action consumer: %w", err)
	}
	ac.consumeCtx = consumeCtx

	log.Info().Str("consumer", ac.config.ConsumerName).Msg("action consumer started")
	<-ctx.Done()
	return nil
}

// Stop halts consumption.
func (ac *ActionConsumer) Stop() error {
	if ac.consumeCtx != nil {
		ac.consumeCtx.Stop()
	}
	return nil
}

func (ac *ActionConsumer) processMessage(msg jetstream.Msg) error {
	var action ActionMessage
	if err := json.Unmarshal(msg.Data(), &action); err != nil {
		return fmt.Errorf("unmarshal action message: %w", err)
	}

	log.Debug().
		Str("trial_id", action.TrialID).
		Str("actor", action.ActorName).
		Int("tick_id", action.TickID).
		Msg("routing submitted action")

	if err := ac.service.SubmitAction(action); err != nil {
		// A finished trial still has actions in flight sometimes; ack rather
		// than redeliver forever.
		log.Warn().Err(err).Str("trial_id", action.TrialID).Msg("action for unknown trial")
	}
	return nil
}
