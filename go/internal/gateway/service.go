package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/elliottower/cogment-verse/go/internal/actors"
	"github.com/elliottower/cogment-verse/go/internal/controls"
	"github.com/elliottower/cogment-verse/go/internal/spaces"
	"github.com/elliottower/cogment-verse/go/internal/trial"
)

// Broadcaster pushes marshaled messages to every connection of a trial.
type Broadcaster interface {
	BroadcastToTrial(trialID uuid.UUID, data []byte)
}

// ActionPublisher is what the controls' sink needs from the bus.
type ActionPublisher interface {
	PublishAction(ctx context.Context, msg trial.ActionMessage) error
}

// TrialStarter is what the HTTP surface needs from the trial service.
type TrialStarter interface {
	StartTrial(ctx context.Context) (uuid.UUID, error)
	ActiveTrials() int
}

// Service hosts one control set per trial. It feeds observations from the bus
// into the controls, routes web-client interactions back into them, runs the
// per-turn countdown, and broadcasts refreshed views to the trial's clients.
type Service struct {
	broadcaster Broadcaster
	publisher   ActionPublisher
	trials      TrialStarter
	factory     controls.Factory
	clock       clockwork.Clock
	turnTime    time.Duration

	mu       sync.Mutex
	sessions map[uuid.UUID]*controlSession
	ctx      context.Context
}

// controlSession is the gateway-side state for one trial: its control set,
// the latest tick, and the countdown timer.
type controlSession struct {
	trialID  uuid.UUID
	controls controls.Controls

	mu          sync.Mutex
	tick        int
	lastTurnKey int
	timer       clockwork.Timer
	timerCancel chan struct{}
}

// NewService builds the gateway service for one environment implementation.
func NewService(broadcaster Broadcaster, publisher ActionPublisher, trials TrialStarter, envID string, turnTime time.Duration, clock clockwork.Clock) (*Service, error) {
	factory, err := controls.Lookup(envID)
	if err != nil {
		return nil, fmt.Errorf("gateway service: %w", err)
	}
	return &Service{
		broadcaster: broadcaster,
		publisher:   publisher,
		trials:      trials,
		factory:     factory,
		clock:       clock,
		turnTime:    turnTime,
		sessions:    make(map[uuid.UUID]*controlSession),
		ctx:         context.Background(),
	}, nil
}

// Run holds the service open until the context is cancelled, then stops every
// countdown timer.
func (s *Service) Run(ctx context.Context) error {
	s.mu.Lock()
	s.ctx = ctx
	s.mu.Unlock()

	<-ctx.Done()

	s.mu.Lock()
	for _, cs := range s.sessions {
		cs.cancelTimer()
	}
	s.sessions = make(map[uuid.UUID]*controlSession)
	s.mu.Unlock()

	log.Info().Msg("gateway service stopped")
	return nil
}

// StartTrial starts a new trial on behalf of a web client. The session runs on
// the service's lifetime context, not the request's.
func (s *Service) StartTrial() (uuid.UUID, error) {
	s.mu.Lock()
	ctx := s.ctx
	s.mu.Unlock()
	return s.trials.StartTrial(ctx)
}

// ActiveTrials reports the number of running trials.
func (s *Service) ActiveTrials() int {
	return s.trials.ActiveTrials()
}

// HandleTrialEvent ingests one event from the trial event stream.
func (s *Service) HandleTrialEvent(event *trial.Event) error {
	trialID, err := uuid.Parse(event.TrialID)
	if err != nil {
		return fmt.Errorf("parse trial ID: %w", err)
	}

	switch event.Type {
	case trial.EventTypeTrialStarted:
		s.broadcast(ServerMessageTrialStarted, trialID, json.RawMessage(event.Data))
		return nil

	case trial.EventTypeObservationProduced:
		obs, err := spaces.DeserializeObservation(event.Data)
		if err != nil {
			return err
		}
		return s.handleObservation(trialID, obs)

	case trial.EventTypeTrialEnded:
		s.broadcast(ServerMessageTrialEnded, trialID, json.RawMessage(event.Data))
		s.dropSession(trialID)
		return nil

	default:
		log.Warn().
			Str("event_type", string(event.Type)).
			Str("trial_id", event.TrialID).
			Msg("unknown trial event type - ignoring")
		return nil
	}
}

// handleObservation feeds the observation to the trial's controls, restarts
// the countdown on a turn change, and pushes the observation and the refreshed
// view to the clients.
func (s *Service) handleObservation(trialID uuid.UUID, obs spaces.Observation) error {
	cs := s.ensureSession(trialID)
	if err := cs.controls.Observe(obs); err != nil {
		return fmt.Errorf("trial %s: %w", trialID, err)
	}
	cs.setTick(obs.TickID)

	if key := cs.controls.TurnKey(); cs.turnChanged(key) {
		s.restartCountdown(cs)
	}

	s.broadcast(ServerMessageObservation, trialID, obs)
	s.broadcastView(cs)
	return nil
}

// HandleClientMessage routes one interaction from a web client into the
// trial's controls. Interactions on disabled controls are silent no-ops.
func (s *Service) HandleClientMessage(conn *Connection, data []byte) {
	var msg ClientMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		log.Warn().Err(err).
			Str("connection_id", conn.ID).
			Msg("dropping malformed client message")
		return
	}

	cs := s.lookupSession(conn.TrialID)
	if cs == nil {
		// No observation has arrived for this trial yet.
		log.Debug().
			Str("trial_id", conn.TrialID.String()).
			Str("message_type", msg.Type).
			Msg("client message before first observation")
		return
	}

	var sent bool
	switch msg.Type {
	case ClientMessagePlay:
		sent = cs.controls.Play(msg.Column)
	case ClientMessageStep:
		sent = cs.controls.OpponentStep()
	case ClientMessageKey:
		sent = cs.controls.HandleKey(msg.Key)
	default:
		log.Warn().
			Str("message_type", msg.Type).
			Str("connection_id", conn.ID).
			Msg("unknown client message type")
		return
	}

	if sent {
		s.broadcastView(cs)
	}
}

func (s *Service) ensureSession(trialID uuid.UUID) *controlSession {
	s.mu.Lock()
	defer s.mu.Unlock()

	if cs, exists := s.sessions[trialID]; exists {
		return cs
	}

	cs := &controlSession{trialID: trialID}
	cs.controls = s.factory(actors.WebActorName, s.turnTime, s.actionSink(cs))
	s.sessions[trialID] = cs

	log.Debug().Str("trial_id", trialID.String()).Msg("control session created")
	return cs
}

func (s *Service) lookupSession(trialID uuid.UUID) *controlSession {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessions[trialID]
}

func (s *Service) dropSession(trialID uuid.UUID) {
	s.mu.Lock()
	cs, exists := s.sessions[trialID]
	if exists {
		delete(s.sessions, trialID)
	}
	s.mu.Unlock()

	if exists {
		cs.cancelTimer()
		log.Debug().Str("trial_id", trialID.String()).Msg("control session dropped")
	}
}

// actionSink publishes every action the controls send to the trial's action
// subject, stamped with the tick the action answers.
func (s *Service) actionSink(cs *controlSession) controls.ActionSink {
	return func(action spaces.Action) {
		payload, err := spaces.SerializeAction(action)
		if err != nil {
			log.Error().Err(err).
				Str("trial_id", cs.trialID.String()).
				Msg("failed to serialize action")
			return
		}

		s.mu.Lock()
		ctx := s.ctx
		s.mu.Unlock()

		msg := trial.ActionMessage{
			TrialID:   cs.trialID.String(),
			ActorName: actors.WebActorName,
			TickID:    cs.currentTick(),
			Payload:   payload,
		}
		if err := s.publisher.PublishAction(ctx, msg); err != nil {
			log.Error().Err(err).
				Str("trial_id", cs.trialID.String()).
				Msg("failed to publish action")
		}
	}
}

func (s *Service) broadcast(msgType string, trialID uuid.UUID, payload any) {
	data, err := marshalServerMessage(msgType, trialID, payload)
	if err != nil {
		log.Error().Err(err).
			Str("trial_id", trialID.String()).
			Msg("failed to marshal server message")
		return
	}
	s.broadcaster.BroadcastToTrial(trialID, data)
}

func (s *Service) broadcastView(cs *controlSession) {
	s.broadcast(ServerMessageView, cs.trialID, cs.controls.View())
}

func (cs *controlSession) setTick(tick int) {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	cs.tick = tick
}

func (cs *controlSession) currentTick() int {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	return cs.tick
}

// turnChanged records the latest turn key and reports whether it moved.
func (cs *controlSession) turnChanged(turnKey int) bool {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	if turnKey == cs.lastTurnKey {
		return false
	}
	cs.lastTurnKey = turnKey
	return true
}
