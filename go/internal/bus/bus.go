package bus

import (
	"context"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/rs/zerolog/log"
)

// Stream and subject layout. Trial lifecycle and observation events flow on
// TRIAL_EVENTS; actions submitted by actors flow on TRIAL_ACTIONS.
const (
	EventsStream  = "TRIAL_EVENTS"
	ActionsStream = "TRIAL_ACTIONS"

	eventsSubjectPrefix  = "trial.events."
	actionsSubjectPrefix = "trial.actions."

	EventsSubjectFilter  = "trial.events.>"
	ActionsSubjectFilter = "trial.actions.>"
)

// EventSubject returns the subject carrying events for one trial.
func EventSubject(trialID string) string {
	return eventsSubjectPrefix + trialID
}

// ActionSubject returns the subject carrying submitted actions for one trial.
func ActionSubject(trialID string) string {
	return actionsSubjectPrefix + trialID
}

// Config holds NATS connection settings.
type Config struct {
	URL           string
	MaxReconnects int
	ReconnectWait time.Duration
}

// DefaultConfig returns the default NATS configuration.
func DefaultConfig() Config {
	return Config{
		URL:           nats.DefaultURL,
		MaxReconnects: -1,
		ReconnectWait: 2 * time.Second,
	}
}

// Connect establishes a NATS connection with JetStream enabled.
func Connect(cfg Config) (*nats.Conn, jetstream.JetStream, error) {
	opts := []nats.Option{
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.Error().Err(err).Msg("NATS disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
		}),
		nats.ErrorHandler(func(nc *nats.Conn, sub *nats.Subscription, err error) {
			log.Error().Err(err).Msg("NATS error")
		}),
	}

	nc, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to NATS: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, nil, fmt.Errorf("create JetStream context: %w", err)
	}

	return nc, js, nil
}

// EnsureStreams provisions the trial streams, creating or updating them so a
// fresh broker works out of the box.
func EnsureStreams(ctx context.Context, js jetstream.JetStream) error {
	streams := []jetstream.StreamConfig{
		{
			Name:        EventsStream,
			Description: "Trial lifecycle and observation events",
			Subjects:    []string{EventsSubjectFilter},
			Retention:   jetstream.LimitsPolicy,
			MaxAge:      24 * time.Hour,
		},
		{
			Name:        ActionsStream,
			Description: "Actions submitted by trial actors",
			Subjects:    []string{ActionsSubjectFilter},
			Retention:   jetstream.LimitsPolicy,
			MaxAge:      time.Hour,
		},
	}
	for _, cfg := range streams {
		if _, err := js.CreateOrUpdateStream(ctx, cfg); err != nil {
			return fmt.Errorf("ensure stream %s: %w", cfg.Name, err)
		}
		log.Info().Str("stream", cfg.Name).Msg("stream ready")
	}
	return nil
}
