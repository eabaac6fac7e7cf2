package game

import "github.com/quizwire/quizwire/internal/deck"

// Outbound payloads are derived views, never raw internal state.

// PlayerView is the public roster entry.
type PlayerView struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Ready bool   `json:"ready"`
}

// ClueCellView is a board cell: id and value only, no text, no answers, no
// daily-double flag.
type ClueCellView struct {
	ID    string `json:"id"`
	Value int    `json:"value"`
}

// CategoryView is a public board column.
type CategoryView struct {
	ID    string         `json:"id"`
	Name  string         `json:"name"`
	Clues []ClueCellView `json:"clues"`
}

// RoundView is the public board for one round.
type RoundView struct {
	ID         string         `json:"id"`
	Name       string         `json:"name"`
	Categories []CategoryView `json:"categories"`
}

// SessionView is the public snapshot sent to joining players and the HTTP
// room lookup.
type SessionView struct {
	Code              string                 `json:"code"`
	Title             string                 `json:"title"`
	Status            Status                 `json:"status"`
	HostID            string                 `json:"hostId"`
	Players           []PlayerView           `json:"players"`
	Scores            map[string]int         `json:"scores"`
	Stats             map[string]PlayerStats `json:"stats"`
	UsedClues         []string               `json:"usedClues"`
	CurrentRoundIndex int                    `json:"currentRoundIndex"`
	CurrentSelector   string                 `json:"currentSelector"`
	Round             *RoundView             `json:"round,omitempty"`
}

func roundView(r *deck.Round) RoundView {
	view := RoundView{ID: r.ID, Name: r.Name, Categories: make([]CategoryView, 0, len(r.Categories))}
	for _, cat := range r.Categories {
		cv := CategoryView{ID: cat.ID, Name: cat.Name, Clues: make([]ClueCellView, 0, len(cat.Clues))}
		for _, clue := range cat.Clues {
			cv.Clues = append(cv.Clues, ClueCellView{ID: clue.ID, Value: clue.Value})
		}
		view.Categories = append(view.Categories, cv)
	}
	return view
}

// rosterView returns roster entries in join order. Callers must hold the
// session lock.
func (s *Session) rosterView() []PlayerView {
	out := make([]PlayerView, 0, len(s.order))
	for _, id := range s.order {
		p := s.roster[id]
		out = append(out, PlayerView{ID: p.ID, Name: p.Name, Ready: p.Ready})
	}
	return out
}

// usedSnapshot returns the used-clue set as an unordered list snapshot.
func (s *Session) usedSnapshot() []string {
	out := make([]string, 0, len(s.used))
	for id := range s.used {
		out = append(out, id)
	}
	return out
}

// Snapshot returns the public view of the session.
func (s *Session) Snapshot() SessionView {
	s.mu.Lock()
	defer s.mu.Unlock()

	view := SessionView{
		Code:              s.code,
		Title:             s.deck.Title,
		Status:            s.status,
		HostID:            s.hostID,
		Players:           s.rosterView(),
		Scores:            s.scoresSnapshot(),
		Stats:             s.statsSnapshot(),
		UsedClues:         s.usedSnapshot(),
		CurrentRoundIndex: s.roundIdx,
		CurrentSelector:   s.selectorID,
	}
	if s.status != StatusLobby && s.roundIdx < len(s.deck.Rounds) {
		rv := roundView(&s.deck.Rounds[s.roundIdx])
		view.Round = &rv
	}
	return view
}
