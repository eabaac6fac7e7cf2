package game

import (
	"fmt"
)

// Game-master operations drive a locally run game from a dedicated display:
// the GM station picks clues and awards points directly instead of running
// the buzz race. All of these carry host authority.

// GMSelectClue forces a clue open, bypassing the selector turn and the buzz
// timers. The broadcast includes the acceptable answers since the GM
// display judges locally.
func (s *Session) GMSelectClue(callerID, categoryID, clueID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireHostLocked(callerID); err != nil {
		return err
	}
	if s.status != StatusInRound {
		return fmt.Errorf("%w: no round in progress", ErrInvalidTransition)
	}
	if s.phase != PhaseIdle {
		return fmt.Errorf("%w: a clue is already active", ErrInvalidState)
	}
	if s.used[clueID] {
		return fmt.Errorf("%w: clue already used", ErrInvalidState)
	}

	cat, clue, ok := s.deck.FindClue(s.roundIdx, categoryID, clueID)
	if cat == nil {
		return fmt.Errorf("%w: category %s", ErrNotFound, categoryID)
	}
	if !ok {
		return fmt.Errorf("%w: clue %s", ErrNotFound, clueID)
	}

	s.used[clueID] = true
	s.clue = &activeClue{
		RoundID:     s.deck.Rounds[s.roundIdx].ID,
		CategoryID:  categoryID,
		ClueID:      clueID,
		Value:       clue.Value,
		Text:        clue.Text,
		Answers:     clue.AcceptableAnswers,
		DailyDouble: clue.IsDailyDouble,
		Media:       clue.Media,
	}
	s.phase = PhaseClueShown

	s.broadcast(EventClueSelected, ClueSelectedPayload{
		CategoryID: categoryID,
		ClueID:     clueID,
		Clue: CluePayload{
			ID:                clue.ID,
			Value:             clue.Value,
			Text:              clue.Text,
			IsDailyDouble:     clue.IsDailyDouble,
			Media:             clue.Media,
			AcceptableAnswers: clue.AcceptableAnswers,
		},
		UsedClues:       s.usedSnapshot(),
		CurrentSelector: s.selectorID,
	})
	return nil
}

// GMAwardPoints updates scores directly: either a delta for one player, or
// an authoritative overwrite of several.
func (s *Session) GMAwardPoints(callerID, playerID string, points int, scores map[string]int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireHostLocked(callerID); err != nil {
		return err
	}

	if len(scores) > 0 {
		for id, score := range scores {
			s.scores[id] = score
		}
	} else {
		if playerID == "" {
			return fmt.Errorf("%w: player id or scores map required", ErrInvalidArgument)
		}
		s.scores[playerID] += points
	}

	s.broadcast(EventScoreUpdated, ScoreUpdatedPayload{Scores: s.scoresSnapshot()})
	return nil
}

// GMCloseClue clears the active clue without scoring or revealing.
func (s *Session) GMCloseClue(callerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireHostLocked(callerID); err != nil {
		return err
	}
	if s.clue == nil {
		return fmt.Errorf("%w: no active clue", ErrInvalidState)
	}

	s.closeClueLocked()
	s.broadcast(EventClueClosed, ClueClosedPayload{UsedClues: s.usedSnapshot()})
	return nil
}

// GMEndGame ends the session with an optional authoritative score
// overwrite.
func (s *Session) GMEndGame(callerID string, scores map[string]int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireHostLocked(callerID); err != nil {
		return err
	}
	if s.status == StatusEnded {
		return fmt.Errorf("%w: game already ended", ErrInvalidTransition)
	}

	for id, score := range scores {
		s.scores[id] = score
	}
	s.endGameLocked()
	return nil
}
