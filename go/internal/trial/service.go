package trial

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// EnvironmentFactory builds a fresh environment for a trial.
type EnvironmentFactory func() Environment

// Service manages running trial sessions. Sessions live only in memory; a
// trial that outlives the process is gone.
type Service struct {
	publisher EventPublisher
	newEnv    EnvironmentFactory
	cfg       SessionConfig

	mu       sync.RWMutex
	sessions map[uuid.UUID]*Session
}

// NewService creates a trial service for one environment implementation.
func NewService(publisher EventPublisher, newEnv EnvironmentFactory, cfg SessionConfig) *Service {
	return &Service{
		publisher: publisher,
		newEnv:    newEnv,
		cfg:       cfg,
		sessions:  make(map[uuid.UUID]*Session),
	}
}

// StartTrial creates a session and runs it in the background. The returned ID
// is what clients use to connect and submit actions.
func (s *Service) StartTrial(ctx context.Context) (uuid.UUID, error) {
	id := uuid.New()
	session := NewSession(id, s.newEnv(), NewRandomPolicy(time.Now().UnixNano()), s.publisher, s.cfg)

	s.mu.Lock()
	s.sessions[id] = session
	s.mu.Unlock()

	go func() {
		defer func() {
			s.mu.Lock()
			delete(s.sessions, id)
			s.mu.Unlock()
		}()
		if err := session.Run(ctx); err != nil && ctx.Err() == nil {
			log.Error().Err(err).Str("trial_id", id.String()).Msg("session exited with error")
			return
		}
		log.Info().Str("trial_id", id.String()).Msg("session finished")
	}()

	log.Info().
		Str("trial_id", id.String()).
		Str("environment", s.cfg.Environment).
		Msg("trial started")
	return id, nil
}

// SubmitAction routes an action message to its session.
func (s *Service) SubmitAction(msg ActionMessage) error {
	id, err := uuid.Parse(msg.TrialID)
	if err != nil {
		return fmt.Errorf("parse trial ID: %w", err)
	}
	s.mu.RLock()
	session, exists := s.sessions[id]
	s.mu.RUnlock()
	if !exists {
		return fmt.Errorf("no running trial %s", msg.TrialID)
	}
	session.SubmitAction(msg)
	return nil
}

// ActiveTrials returns the number of running sessions.
func (s *Service) ActiveTrials() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}
