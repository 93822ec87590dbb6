package trial

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/elliottower/cogment-verse/go/internal/spaces"
)

// Environment is what a session needs from an environment adapter.
type Environment interface {
	Reset() spaces.Observation
	Step(value int) (spaces.Observation, error)
	CurrentPlayer() string
	Done() bool
}

// sessionActionBuffer sizes the inbound action channel. Web actors send one
// action per tick, so a small buffer absorbs bursts.
const sessionActionBuffer = 16

// Session runs one trial: it owns the environment, requires an action from the
// web actor every tick, and resolves the opponent's turns with the bot policy.
//
// The web actor participates in every tick. On its own turn it sends a player
// action carrying a column; on the opponent's turn it sends the no-op teacher
// action, which lets the bot's move through. A teacher action that does carry
// a value overrides the bot, matching the adapter's teacher-override contract.
type Session struct {
	ID uuid.UUID

	env        Environment
	policy     Policy
	publisher  EventPublisher
	numActions int

	environment string
	webActor    string
	webPlayer   string

	tick     int
	actionCh chan ActionMessage
}

// SessionConfig describes a new session.
type SessionConfig struct {
	Environment string // implementation name, recorded in TrialStarted
	WebActor    string // actor name of the human participant
	WebPlayer   string // environment player the web actor moves for
	NumActions  int    // size of the discrete action space
}

// NewSession creates a session; Run starts it.
func NewSession(id uuid.UUID, env Environment, policy Policy, publisher EventPublisher, cfg SessionConfig) *Session {
	return &Session{
		ID:          id,
		env:         env,
		policy:      policy,
		publisher:   publisher,
		numActions:  cfg.NumActions,
		environment: cfg.Environment,
		webActor:    cfg.WebActor,
		webPlayer:   cfg.WebPlayer,
		actionCh:    make(chan ActionMessage, sessionActionBuffer),
	}
}

// SubmitAction hands an inbound action to the session without blocking. A full
// buffer drops the message; the web client resends on the next interaction.
func (s *Session) SubmitAction(msg ActionMessage) {
	select {
	case s.actionCh <- msg:
	default:
		log.Warn().
			Str("trial_id", s.ID.String()).
			Str("actor", msg.ActorName).
			Msg("session action buffer full, dropping action")
	}
}

// Run drives the trial until the environment completes or the context is
// cancelled. It publishes TrialStarted, one ObservationProduced per tick, and
// TrialEnded.
func (s *Session) Run(ctx context.Context) error {
	obs := s.env.Reset()
	s.tick = obs.TickID

	if err := s.publishEvent(ctx, EventTypeTrialStarted, TrialStartedPayload{
		Environment: s.environment,
		WebActor:    s.webActor,
		WebPlayer:   s.webPlayer,
		StartedAt:   time.Now().UTC(),
	}); err != nil {
		return err
	}
	if err := s.publishObservation(ctx, obs); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			log.Info().Str("trial_id", s.ID.String()).Msg("session cancelled")
			return ctx.Err()
		case msg := <-s.actionCh:
			if msg.TickID != s.tick {
				log.Debug().
					Str("trial_id", s.ID.String()).
					Int("tick_id", msg.TickID).
					Int("current_tick", s.tick).
					Msg("dropping stale action")
				continue
			}

			action, err := spaces.DeserializeAction(msg.Payload)
			if err != nil {
				log.Error().Err(err).
					Str("trial_id", s.ID.String()).
					Str("actor", msg.ActorName).
					Msg("dropping malformed action")
				continue
			}

			move, err := s.resolveMove(action, obs)
			if err != nil {
				log.Warn().Err(err).
					Str("trial_id", s.ID.String()).
					Str("actor", msg.ActorName).
					Msg("dropping unresolvable action")
				continue
			}

			obs, err = s.env.Step(move)
			if err != nil {
				log.Error().Err(err).
					Str("trial_id", s.ID.String()).
					Int("move", move).
					Msg("environment step failed")
				continue
			}
			s.tick = obs.TickID

			if err := s.publishObservation(ctx, obs); err != nil {
				return err
			}
			if obs.Done {
				return s.publishEvent(ctx, EventTypeTrialEnded, TrialEndedPayload{
					Rewards: obs.Rewards,
					EndedAt: time.Now().UTC(),
				})
			}
		}
	}
}

// resolveMove turns the web actor's action into the move the environment
// should apply this tick.
func (s *Session) resolveMove(action spaces.Action, obs spaces.Observation) (int, error) {
	if s.env.CurrentPlayer() == s.webPlayer {
		if action.Kind != spaces.ActionKindPlayer || action.Value == nil {
			return 0, fmt.Errorf("web actor must play a column on its own turn")
		}
		return *action.Value, nil
	}
	// Opponent's turn: an override value forces the move, the no-op defers to
	// the bot policy.
	if action.Value != nil {
		return *action.Value, nil
	}
	return s.policy.Act(obs, s.numActions)
}

// publishObservation rewrites the environment's agent ID to the web actor's
// name before the observation leaves the session. Consumers compare the
// current player against actor names; agent IDs stay internal to the
// environment.
func (s *Session) publishObservation(ctx context.Context, obs spaces.Observation) error {
	if obs.CurrentPlayer == s.webPlayer {
		obs.CurrentPlayer = s.webActor
	}
	return s.publishEvent(ctx, EventTypeObservationProduced, obs)
}

func (s *Session) publishEvent(ctx context.Context, eventType EventType, payload any) error {
	event, err := NewEvent(s.ID, eventType, payload)
	if err != nil {
		return err
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		return fmt.Errorf("publish %s: %w", eventType, err)
	}
	return nil
}
