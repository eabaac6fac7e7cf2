package game

import (
	"fmt"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/quizwire/quizwire/internal/answer"
	"github.com/quizwire/quizwire/internal/deck"
)

// Status is the top-level session state.
type Status string

const (
	StatusLobby   Status = "lobby"
	StatusInRound Status = "in_round"
	StatusFinal   Status = "final" // declared for parity with decks that carry a final round; nothing transitions here yet
	StatusEnded   Status = "ended"
)

// Phase is the clue sub-state nested inside StatusInRound. It replaces
// presence checks on optional fields: whether a clue is active is a
// type-level fact.
type Phase int

const (
	// PhaseIdle: no active clue, selector may pick.
	PhaseIdle Phase = iota
	// PhaseClueShown: clue broadcast, buzz-open timer pending.
	PhaseClueShown
	// PhaseAwaitingWager: daily double selected, text withheld until the
	// selector wagers.
	PhaseAwaitingWager
	// PhaseBuzzing: buzzing open, racing for the answer window.
	PhaseBuzzing
	// PhaseAnswering: one player's answer window is open.
	PhaseAnswering
)

// MinWager is the daily-double wager floor.
const MinWager = 5

// Player is a roster entry. The player id is the durable identity; the
// connection id changes across reconnects.
type Player struct {
	ID           string
	Name         string
	ConnectionID string
	Ready        bool
}

// activeClue is the clue currently in play. Value is the effective value:
// the face value, or the wager for a daily double.
type activeClue struct {
	RoundID     string
	CategoryID  string
	ClueID      string
	Value       int
	Text        string
	Answers     []string
	DailyDouble bool
	Media       *deck.Media
}

// buzzRace tracks the buzz window for the active clue.
type buzzRace struct {
	Enabled  bool
	WinnerID string
	Excluded []string
}

func (b *buzzRace) excluded(playerID string) bool {
	for _, id := range b.Excluded {
		if id == playerID {
			return true
		}
	}
	return false
}

// answerWindow tracks the one player currently owed an answer. The pending
// timeout goroutine holds a reference and compares it against the session's
// current window before acting, so a superseded timer no-ops.
type answerWindow struct {
	PlayerID  string
	StartedAt time.Time
	cancel    chan struct{}
}

// Session is the authoritative model of one game room. Every mutating
// operation serializes on the session mutex; timer callbacks re-acquire it
// and verify the state they were scheduled against before touching
// anything.
type Session struct {
	mu sync.Mutex

	code   string
	hostID string
	deck   *deck.Deck

	status     Status
	phase      Phase
	roster     map[string]*Player
	order      []string // join order
	scores     map[string]int
	stats      map[string]*PlayerStats
	used       map[string]bool
	roundIdx   int
	selectorID string

	clue   *activeClue
	buzz   *buzzRace
	answer *answerWindow

	// buzzOpenCancel cancels the pending buzz-open timer, nil when none.
	buzzOpenCancel chan struct{}

	clock  clockwork.Clock
	bc     Broadcaster
	closed chan struct{}
}

// NewSession builds a lobby-status session over an immutable deck snapshot.
// Scores and stats are zeroed for every deck-declared player; players
// joining at runtime are added as they arrive.
func NewSession(code, hostID string, d *deck.Deck, clock clockwork.Clock, bc Broadcaster) *Session {
	s := &Session{
		code:   code,
		hostID: hostID,
		deck:   d,
		status: StatusLobby,
		phase:  PhaseIdle,
		roster: make(map[string]*Player),
		scores: make(map[string]int),
		stats:  make(map[string]*PlayerStats),
		used:   make(map[string]bool),
		clock:  clock,
		bc:     bc,
		closed: make(chan struct{}),
	}
	for _, p := range d.Players {
		s.scores[p.ID] = 0
		s.stats[p.ID] = &PlayerStats{}
	}
	return s
}

// Code returns the immutable room code.
func (s *Session) Code() string { return s.code }

// HostID returns the host identity set at creation.
func (s *Session) HostID() string { return s.hostID }

// Close cancels all pending timers and marks the session dead. Safe to call
// once; the registry calls it on room deletion.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.isClosed() {
		return
	}
	s.cancelTimersLocked()
	close(s.closed)
}

func (s *Session) isClosed() bool {
	select {
	case <-s.closed:
		return true
	default:
		return false
	}
}

func (s *Session) broadcast(event EventType, payload any) {
	s.bc.Broadcast(s.code, event, payload)
}

// Join adds a player to the roster, or reattaches a known player after a
// reconnect. New players are only admitted while the session is in lobby.
func (s *Session) Join(playerID, displayName, connectionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if playerID == "" || displayName == "" {
		return fmt.Errorf("%w: player id and name are required", ErrInvalidArgument)
	}
	if s.status == StatusEnded {
		return fmt.Errorf("%w: game has ended", ErrInvalidTransition)
	}

	existing, known := s.roster[playerID]
	if !known && s.status != StatusLobby {
		return fmt.Errorf("%w: game already started", ErrInvalidTransition)
	}

	if known {
		existing.Name = displayName
		existing.ConnectionID = connectionID
	} else {
		s.roster[playerID] = &Player{ID: playerID, Name: displayName, ConnectionID: connectionID}
		s.order = append(s.order, playerID)
		if _, ok := s.scores[playerID]; !ok {
			s.scores[playerID] = 0
		}
		s.statsFor(playerID)
	}

	log.Info().Str("room", s.code).Str("player", playerID).Str("name", displayName).Msg("player joined")

	s.broadcast(EventPlayerJoined, PlayerJoinedPayload{
		PlayerID:   playerID,
		PlayerName: displayName,
		Players:    s.rosterView(),
	})
	return nil
}

// SetReady flips a player's lobby ready flag.
func (s *Session) SetReady(playerID string, ready bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status != StatusLobby {
		return fmt.Errorf("%w: ready state only changes in lobby", ErrInvalidTransition)
	}
	p, ok := s.roster[playerID]
	if !ok {
		return fmt.Errorf("%w: player %s not in room", ErrNotFound, playerID)
	}

	p.Ready = ready
	s.broadcast(EventPlayerReadyChanged, PlayerReadyChangedPayload{
		PlayerID: playerID,
		Ready:    ready,
		Players:  s.rosterView(),
	})
	return nil
}

// Start moves the session from lobby into the first round. Host only. An
// empty roster is permitted to start; a non-empty roster must be fully
// ready.
func (s *Session) Start(callerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status != StatusLobby {
		return fmt.Errorf("%w: game already started", ErrInvalidTransition)
	}
	if callerID != s.hostID {
		return fmt.Errorf("%w: only the host can start the game", ErrForbidden)
	}
	for _, id := range s.order {
		if !s.roster[id].Ready {
			return fmt.Errorf("%w: not all players are ready", ErrPreconditionFailed)
		}
	}

	s.status = StatusInRound
	s.roundIdx = 0
	if len(s.order) > 0 {
		s.selectorID = s.order[0]
	}

	log.Info().Str("room", s.code).Int("players", len(s.order)).Msg("game started")

	s.broadcast(EventGameStarted, GameStartedPayload{
		CurrentRoundIndex: s.roundIdx,
		CurrentSelector:   s.selectorID,
		Round:             roundView(&s.deck.Rounds[0]),
	})
	return nil
}

// SelectClue opens a clue from the board. Only the current selector may
// pick, only between clues, and never a used clue. Daily doubles withhold
// the clue text and solicit a wager instead of opening buzzing.
func (s *Session) SelectClue(callerID, categoryID, clueID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status != StatusInRound {
		return fmt.Errorf("%w: no round in progress", ErrInvalidTransition)
	}
	if s.phase != PhaseIdle {
		return fmt.Errorf("%w: a clue is already active", ErrInvalidState)
	}
	if callerID != s.selectorID {
		return fmt.Errorf("%w: not your turn to select", ErrForbidden)
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

	text := clue.Text
	if clue.IsDailyDouble {
		// Withheld until the wager is in.
		text = ""
	}
	s.broadcast(EventClueSelected, ClueSelectedPayload{
		CategoryID: categoryID,
		ClueID:     clueID,
		Clue: CluePayload{
			ID:            clue.ID,
			Value:         clue.Value,
			Text:          text,
			IsDailyDouble: clue.IsDailyDouble,
			Media:         clue.Media,
		},
		UsedClues:       s.usedSnapshot(),
		CurrentSelector: s.selectorID,
	})

	if clue.IsDailyDouble {
		s.phase = PhaseAwaitingWager
		s.broadcast(EventWagerRequested, WagerRequestedPayload{
			PlayerID:     s.selectorID,
			CurrentScore: s.scores[s.selectorID],
			MinWager:     MinWager,
			MaxWager:     maxWager(s.scores[s.selectorID], clue.Value),
		})
		return nil
	}

	s.phase = PhaseClueShown
	s.scheduleBuzzOpenLocked(clueID, s.deck.Rules.BuzzOpenDelay())
	return nil
}

func maxWager(score, clueValue int) int {
	if score > clueValue {
		return score
	}
	return clueValue
}

// openBuzzing is fired by the buzz-open timer. It no-ops unless the clue it
// was scheduled for is still the one shown.
func (s *Session) openBuzzing(clueID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isClosed() || s.status != StatusInRound || s.phase != PhaseClueShown {
		return
	}
	if s.clue == nil || s.clue.ClueID != clueID {
		return
	}

	s.buzzOpenCancel = nil
	s.buzz = &buzzRace{Enabled: true}
	s.phase = PhaseBuzzing
	s.broadcast(EventBuzzEnabled, BuzzEnabledPayload{ExcludedPlayers: []string{}})
}

// SubmitWager sets the effective value of an awaiting daily double, reveals
// the clue text, and opens the selector's answer window. Bounds: at least
// MinWager, at most the greater of the selector's score and the clue's face
// value, so negative-score players can still wager the face value.
func (s *Session) SubmitWager(callerID string, wager int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status != StatusInRound || s.phase != PhaseAwaitingWager || s.clue == nil {
		return fmt.Errorf("%w: no daily double awaiting a wager", ErrInvalidState)
	}
	if callerID != s.selectorID {
		return fmt.Errorf("%w: only the selector can wager", ErrForbidden)
	}

	max := maxWager(s.scores[callerID], s.clue.Value)
	if wager < MinWager || wager > max {
		return fmt.Errorf("%w: wager %d outside [%d, %d]", ErrInvalidArgument, wager, MinWager, max)
	}

	s.clue.Value = wager
	s.broadcast(EventDailyDoubleRevealed, DailyDoubleRevealedPayload{
		ClueText: s.clue.Text,
		Wager:    wager,
	})
	s.openAnswerWindowLocked(callerID)
	return nil
}

// Buzz races for the answer window. First valid buzz wins; later buzzes in
// the same window conflict, and players who already failed this clue are
// excluded.
func (s *Session) Buzz(playerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status != StatusInRound || s.buzz == nil {
		return fmt.Errorf("%w: buzzing is not open", ErrInvalidState)
	}
	// A won race reports Conflict, not InvalidState: winning disables the
	// window, but the loser raced and lost rather than acting out of phase.
	if s.buzz.WinnerID != "" {
		return fmt.Errorf("%w: someone already buzzed", ErrConflict)
	}
	if !s.buzz.Enabled {
		return fmt.Errorf("%w: buzzing is not open", ErrInvalidState)
	}
	if s.buzz.excluded(playerID) {
		return fmt.Errorf("%w: you already answered this clue", ErrForbidden)
	}
	p, ok := s.roster[playerID]
	if !ok {
		return fmt.Errorf("%w: player %s not in room", ErrNotFound, playerID)
	}

	s.buzz.WinnerID = playerID
	s.buzz.Enabled = false
	s.statsFor(playerID).BuzzWins++

	s.broadcast(EventBuzzWinner, BuzzWinnerPayload{PlayerID: playerID, PlayerName: p.Name})
	s.openAnswerWindowLocked(playerID)
	return nil
}

// openAnswerWindowLocked opens the answer window for a player and arms the
// timeout timer.
func (s *Session) openAnswerWindowLocked(playerID string) {
	s.phase = PhaseAnswering
	win := &answerWindow{
		PlayerID:  playerID,
		StartedAt: s.clock.Now(),
		cancel:    make(chan struct{}),
	}
	s.answer = win
	s.scheduleAnswerTimeoutLocked(win, s.deck.Rules.AnswerTime())
	s.broadcast(EventAnswerTimerStarted, AnswerTimerStartedPayload{
		PlayerID:    playerID,
		TimeSeconds: s.deck.Rules.AnswerTimeSeconds,
	})
}

// SubmitAnswer checks a free-text answer against the active clue. Only the
// player owed the current answer window may submit.
func (s *Session) SubmitAnswer(playerID, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.answer == nil || s.answer.PlayerID != playerID {
		return fmt.Errorf("%w: not your turn to answer", ErrConflict)
	}
	if s.clue == nil {
		return fmt.Errorf("%w: no active clue", ErrInvalidState)
	}

	win := s.answer
	s.clearAnswerWindowLocked()
	s.statsFor(playerID).TotalBuzzMillis += s.clock.Now().Sub(win.StartedAt).Milliseconds()

	correct := answer.Match(text, s.clue.Answers)
	s.applyScoreLocked(playerID, correct)

	s.broadcast(EventAnswerResult, AnswerResultPayload{
		PlayerID:      playerID,
		Answer:        text,
		IsCorrect:     correct,
		CorrectAnswer: s.clue.Answers[0],
		Scores:        s.scoresSnapshot(),
	})

	s.resolveAnswerLocked(playerID, correct)
	return nil
}

// JudgeAnswer applies a host ruling for the named player against the active
// clue. Used in host-judged mode, or to override an auto-check.
func (s *Session) JudgeAnswer(callerID, targetPlayerID string, isCorrect bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if callerID != s.hostID {
		return fmt.Errorf("%w: only the host can judge answers", ErrForbidden)
	}
	if s.clue == nil {
		return fmt.Errorf("%w: no active clue", ErrInvalidState)
	}
	if _, ok := s.roster[targetPlayerID]; !ok {
		return fmt.Errorf("%w: player %s not in room", ErrNotFound, targetPlayerID)
	}

	s.clearAnswerWindowLocked()
	s.applyScoreLocked(targetPlayerID, isCorrect)

	s.broadcast(EventAnswerJudged, AnswerJudgedPayload{
		PlayerID:      targetPlayerID,
		IsCorrect:     isCorrect,
		CorrectAnswer: s.clue.Answers[0],
		Scores:        s.scoresSnapshot(),
	})

	s.resolveAnswerLocked(targetPlayerID, isCorrect)
	return nil
}

// answerTimedOut is fired by the answer timer; it is equivalent to an
// incorrect answer from the owed player. Stale fires (the window was
// already resolved or replaced) no-op.
func (s *Session) answerTimedOut(win *answerWindow) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isClosed() || s.answer != win || s.clue == nil {
		return
	}

	playerID := win.PlayerID
	s.answer = nil
	s.phase = PhaseIdle // transiently; resolve below re-enters buzzing or ends the clue

	s.scores[playerID] -= s.clue.Value
	s.statsFor(playerID).Incorrect++

	log.Debug().Str("room", s.code).Str("player", playerID).Msg("answer window expired")

	s.broadcast(EventAnswerTimeout, AnswerTimeoutPayload{
		PlayerID:      playerID,
		CorrectAnswer: s.clue.Answers[0],
	})

	s.handleIncorrectLocked(playerID)
}

// applyScoreLocked applies the active clue's effective value to the
// player's score and stats.
func (s *Session) applyScoreLocked(playerID string, correct bool) {
	if correct {
		s.scores[playerID] += s.clue.Value
		s.statsFor(playerID).Correct++
	} else {
		s.scores[playerID] -= s.clue.Value
		s.statsFor(playerID).Incorrect++
	}
}

// resolveAnswerLocked advances the clue after a scored answer: a correct
// answer hands selection to the answerer and closes the clue; an incorrect
// one rebounds or reveals.
func (s *Session) resolveAnswerLocked(playerID string, correct bool) {
	if correct {
		s.selectorID = playerID
		s.closeClueLocked()
		s.finishClueLocked()
		return
	}
	s.handleIncorrectLocked(playerID)
}

// handleIncorrectLocked re-opens buzzing for remaining players when
// rebounds are enabled, otherwise reveals the answer and moves on. Daily
// doubles never rebound: they bypass the buzz race entirely.
func (s *Session) handleIncorrectLocked(playerID string) {
	if s.clue == nil {
		return
	}

	if s.deck.Rules.ReboundEnabled && s.buzz != nil && !s.clue.DailyDouble {
		s.buzz.Excluded = append(s.buzz.Excluded, playerID)

		remaining := 0
		for _, id := range s.order {
			if !s.buzz.excluded(id) {
				remaining++
			}
		}
		if remaining > 0 {
			s.buzz.Enabled = true
			s.buzz.WinnerID = ""
			s.phase = PhaseBuzzing
			s.broadcast(EventBuzzEnabled, BuzzEnabledPayload{
				ExcludedPlayers: append([]string(nil), s.buzz.Excluded...),
			})
			return
		}
	}

	s.revealAnswerLocked()
}

// revealAnswerLocked closes the clue without a winner, announcing the
// correct answer.
func (s *Session) revealAnswerLocked() {
	if s.clue == nil {
		return
	}
	s.broadcast(EventAnswerRevealed, AnswerRevealedPayload{
		CorrectAnswer: s.clue.Answers[0],
		Scores:        s.scoresSnapshot(),
	})
	s.closeClueLocked()
	s.finishClueLocked()
}

// closeClueLocked cancels pending timers and drops all clue sub-state.
func (s *Session) closeClueLocked() {
	s.cancelTimersLocked()
	s.clue = nil
	s.buzz = nil
	s.answer = nil
	s.phase = PhaseIdle
}

// finishClueLocked runs the round/game completion check after any clue
// resolution: advance the round when its board is exhausted, end the game
// after the last round, or hand the board back to the selector.
func (s *Session) finishClueLocked() {
	usedInRound := 0
	for _, cat := range s.deck.Rounds[s.roundIdx].Categories {
		for _, clue := range cat.Clues {
			if s.used[clue.ID] {
				usedInRound++
			}
		}
	}

	if usedInRound < s.deck.CountClues(s.roundIdx) {
		s.broadcast(EventReadyForNextClue, ReadyForNextCluePayload{CurrentSelector: s.selectorID})
		return
	}

	if s.roundIdx < len(s.deck.Rounds)-1 {
		completed := s.deck.Rounds[s.roundIdx].Name
		s.roundIdx++
		next := &s.deck.Rounds[s.roundIdx]

		log.Info().Str("room", s.code).Int("round", s.roundIdx).Msg("round transition")

		s.broadcast(EventRoundTransition, RoundTransitionPayload{
			CompletedRound: completed,
			NextRound:      next.Name,
			NextRoundIndex: s.roundIdx,
			Round:          roundView(next),
			Scores:         s.scoresSnapshot(),
		})
		return
	}

	s.endGameLocked()
}

// endGameLocked moves the session to its terminal state and broadcasts the
// final standings.
func (s *Session) endGameLocked() {
	s.closeClueLocked()
	s.status = StatusEnded

	log.Info().Str("room", s.code).Msg("game ended")

	s.broadcast(EventGameEnded, GameEndedPayload{
		FinalScores: s.scoresSnapshot(),
		Stats:       s.statsSnapshot(),
	})
}

// Disconnect marks a transport-level departure. The roster entry, score,
// and stats survive for reconnection; pending timers keep running.
func (s *Session) Disconnect(playerID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.roster[playerID]
	if !ok {
		return
	}
	p.ConnectionID = ""

	s.broadcast(EventPlayerLeft, PlayerLeftPayload{
		PlayerID:   playerID,
		PlayerName: p.Name,
		Players:    s.rosterView(),
	})
}
