package game

import (
	"fmt"

	"github.com/rs/zerolog/log"
)

// Host controls. Every operation here verifies host authority first; a
// mismatch is Forbidden, never a silent no-op.

func (s *Session) requireHostLocked(callerID string) error {
	if callerID != s.hostID {
		return fmt.Errorf("%w: only the host can perform this action", ErrForbidden)
	}
	return nil
}

// SkipClue reveals the active clue's answer and continues without scoring.
func (s *Session) SkipClue(callerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireHostLocked(callerID); err != nil {
		return err
	}
	if s.clue == nil {
		return fmt.Errorf("%w: no active clue", ErrInvalidState)
	}

	s.revealAnswerLocked()
	return nil
}

// RevealAnswer cancels any open answer window and reveals the active clue's
// answer early.
func (s *Session) RevealAnswer(callerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireHostLocked(callerID); err != nil {
		return err
	}
	if s.clue == nil {
		return fmt.Errorf("%w: no active clue", ErrInvalidState)
	}

	s.clearAnswerWindowLocked()
	s.revealAnswerLocked()
	return nil
}

// AdjustScore applies a signed delta to a player's score.
func (s *Session) AdjustScore(callerID, playerID string, delta int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireHostLocked(callerID); err != nil {
		return err
	}
	if _, ok := s.scores[playerID]; !ok {
		return fmt.Errorf("%w: player %s not in room", ErrNotFound, playerID)
	}

	s.scores[playerID] += delta

	log.Info().Str("room", s.code).Str("player", playerID).Int("delta", delta).Msg("score adjusted by host")

	s.broadcast(EventScoreAdjusted, ScoreAdjustedPayload{
		PlayerID:   playerID,
		Adjustment: delta,
		NewScore:   s.scores[playerID],
		Scores:     s.scoresSnapshot(),
	})
	return nil
}

// EndGame ends the session early with the current standings.
func (s *Session) EndGame(callerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireHostLocked(callerID); err != nil {
		return err
	}
	if s.status == StatusEnded {
		return fmt.Errorf("%w: game already ended", ErrInvalidTransition)
	}

	s.endGameLocked()
	return nil
}

// PauseGame notifies the room of a pause. Play state is untouched; the
// pause is presentational, matching observed behavior.
func (s *Session) PauseGame(callerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireHostLocked(callerID); err != nil {
		return err
	}
	s.broadcast(EventGamePaused, struct{}{})
	return nil
}

// ResumeGame notifies the room of a resume.
func (s *Session) ResumeGame(callerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireHostLocked(callerID); err != nil {
		return err
	}
	s.broadcast(EventGameResumed, struct{}{})
	return nil
}
