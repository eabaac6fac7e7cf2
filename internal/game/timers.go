package game

import (
	"time"

	"github.com/jonboulle/clockwork"
)

// The session owns two one-shot timers: the buzz-open delay after a clue is
// shown, and the answer-submission timeout. Both are cancellable, and both
// callbacks verify the state they were scheduled against before mutating,
// so a fire that loses the race to a cancel still no-ops.

// scheduleBuzzOpenLocked arms the buzz-open timer for the given clue.
func (s *Session) scheduleBuzzOpenLocked(clueID string, delay time.Duration) {
	cancel := make(chan struct{})
	s.buzzOpenCancel = cancel

	timer := s.clock.NewTimer(delay)
	go func() {
		select {
		case <-timer.Chan():
			s.openBuzzing(clueID)
		case <-cancel:
			stopAndDrainTimer(timer)
		case <-s.closed:
			stopAndDrainTimer(timer)
		}
	}()
}

// scheduleAnswerTimeoutLocked arms the timeout for one answer window.
func (s *Session) scheduleAnswerTimeoutLocked(win *answerWindow, budget time.Duration) {
	timer := s.clock.NewTimer(budget)
	go func() {
		select {
		case <-timer.Chan():
			s.answerTimedOut(win)
		case <-win.cancel:
			stopAndDrainTimer(timer)
		case <-s.closed:
			stopAndDrainTimer(timer)
		}
	}()
}

// clearAnswerWindowLocked cancels the pending answer timer, if any, and
// drops the window.
func (s *Session) clearAnswerWindowLocked() {
	if s.answer == nil {
		return
	}
	close(s.answer.cancel)
	s.answer = nil
}

// cancelTimersLocked cancels every pending timer owned by the session.
func (s *Session) cancelTimersLocked() {
	if s.buzzOpenCancel != nil {
		close(s.buzzOpenCancel)
		s.buzzOpenCancel = nil
	}
	s.clearAnswerWindowLocked()
}

// stopAndDrainTimer stops a timer and drains its channel so the waiting
// goroutine does not leak, per the time.Timer.Stop contract.
func stopAndDrainTimer(timer clockwork.Timer) {
	if !timer.Stop() {
		select {
		case <-timer.Chan():
		default:
		}
	}
}
