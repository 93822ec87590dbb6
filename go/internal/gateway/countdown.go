package gateway

import (
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

// restartCountdown arms the per-turn countdown for a trial, replacing any
// timer from the previous turn. When the countdown elapses it steps the
// opponent's turn; the controls' own guard keeps a racing manual click or a
// countdown firing on the wrong turn from sending anything.
func (s *Service) restartCountdown(cs *controlSession) {
	timer := s.clock.NewTimer(s.turnTime)
	cancel := make(chan struct{})
	cs.replaceTimer(timer, cancel)

	s.mu.Lock()
	ctx := s.ctx
	s.mu.Unlock()

	go func() {
		select {
		case <-timer.Chan():
			if cs.controls.OpponentStep() {
				log.Debug().
					Str("trial_id", cs.trialID.String()).
					Msg("countdown elapsed - stepped opponent turn")
				s.broadcastView(cs)
			}
		case <-cancel:
			// Replaced by the next turn's timer.
		case <-ctx.Done():
			stopAndDrainTimer(timer)
		}
	}()
}

// replaceTimer atomically swaps in a new countdown timer, cancelling the
// previous one so only a single countdown goroutine lives per trial.
func (cs *controlSession) replaceTimer(newTimer clockwork.Timer, cancel chan struct{}) {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	cs.dropTimerLocked()
	cs.timer = newTimer
	cs.timerCancel = cancel
}

// cancelTimer stops the active countdown timer, if any.
func (cs *controlSession) cancelTimer() {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	cs.dropTimerLocked()
}

func (cs *controlSession) dropTimerLocked() {
	if cs.timer == nil {
		return
	}
	stopAndDrainTimer(cs.timer)
	close(cs.timerCancel)
	cs.timer = nil
	cs.timerCancel = nil
}

// stopAndDrainTimer safely stops a timer and drains its channel, following the
// pattern recommended in the time.Timer.Stop documentation.
func stopAndDrainTimer(timer clockwork.Timer) {
	if !timer.Stop() {
		select {
		case <-timer.Chan():
		default:
		}
	}
}
