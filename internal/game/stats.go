package game

// PlayerStats accumulates per-player counters derived from session
// transitions, reported in the game-ended broadcast.
type PlayerStats struct {
	Correct         int   `json:"correct"`
	Incorrect       int   `json:"incorrect"`
	BuzzWins        int   `json:"buzzWins"`
	TotalBuzzMillis int64 `json:"totalBuzzTime"`
}

// statsFor returns the stats record for a player, creating it if needed.
// Callers must hold the session lock.
func (s *Session) statsFor(playerID string) *PlayerStats {
	st, ok := s.stats[playerID]
	if !ok {
		st = &PlayerStats{}
		s.stats[playerID] = st
	}
	return st
}

// statsSnapshot copies stats into a plain map for broadcasting.
func (s *Session) statsSnapshot() map[string]PlayerStats {
	out := make(map[string]PlayerStats, len(s.stats))
	for id, st := range s.stats {
		out[id] = *st
	}
	return out
}

// scoresSnapshot copies scores into a plain map for broadcasting.
func (s *Session) scoresSnapshot() map[string]int {
	out := make(map[string]int, len(s.scores))
	for id, score := range s.scores {
		out[id] = score
	}
	return out
}
