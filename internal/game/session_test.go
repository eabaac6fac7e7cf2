package game

import (
	"errors"
	"sync"
	"testing"

	"github.com/jonboulle/clockwork"

	"github.com/quizwire/quizwire/internal/deck"
)

const (
	hostID = "host-1"
	p1     = "player-1"
	p2     = "player-2"
	p3     = "player-3"
)

type recordedEvent struct {
	Type    EventType
	Payload any
}

// recorder captures broadcasts for assertions.
type recorder struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (r *recorder) Broadcast(_ string, event EventType, payload any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, recordedEvent{Type: event, Payload: payload})
}

func (r *recorder) last(event EventType) (any, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.events) - 1; i >= 0; i-- {
		if r.events[i].Type == event {
			return r.events[i].Payload, true
		}
	}
	return nil, false
}

func (r *recorder) count(event EventType) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.events {
		if e.Type == event {
			n++
		}
	}
	return n
}

func singleClueDeck(t *testing.T, rebound bool) *deck.Deck {
	t.Helper()
	d := &deck.Deck{
		Title: "Test",
		Rounds: []deck.Round{
			{
				ID:   "r1",
				Name: "Round One",
				Categories: []deck.Category{
					{
						ID:   "c1",
						Name: "Games",
						Clues: []deck.Clue{
							{ID: "q1", Value: 200, Text: "This plumber wears red", AcceptableAnswers: []string{"Mario"}},
						},
					},
				},
			},
		},
		Rules: deck.Rules{ReboundEnabled: rebound},
	}
	if err := d.Validate(); err != nil {
		t.Fatal(err)
	}
	return d
}

func twoClueDeck(t *testing.T) *deck.Deck {
	t.Helper()
	d := &deck.Deck{
		Title: "Test",
		Rounds: []deck.Round{
			{
				ID:   "r1",
				Name: "Round One",
				Categories: []deck.Category{
					{
						ID:   "c1",
						Name: "Games",
						Clues: []deck.Clue{
							{ID: "q1", Value: 200, Text: "This plumber wears red", AcceptableAnswers: []string{"Mario"}},
							{ID: "q2", Value: 400, Text: "This plumber wears green", AcceptableAnswers: []string{"Luigi"}},
						},
					},
				},
			},
		},
	}
	if err := d.Validate(); err != nil {
		t.Fatal(err)
	}
	return d
}

func dailyDoubleDeck(t *testing.T) *deck.Deck {
	t.Helper()
	d := &deck.Deck{
		Title: "Test",
		Rounds: []deck.Round{
			{
				ID:   "r1",
				Name: "Round One",
				Categories: []deck.Category{
					{
						ID:   "c1",
						Name: "Games",
						Clues: []deck.Clue{
							{ID: "dd1", Value: 400, Text: "Hidden until wagered", AcceptableAnswers: []string{"Mario"}, IsDailyDouble: true},
							{ID: "q2", Value: 200, Text: "Regular clue", AcceptableAnswers: []string{"Luigi"}},
						},
					},
				},
			},
		},
	}
	if err := d.Validate(); err != nil {
		t.Fatal(err)
	}
	return d
}

func twoRoundDeck(t *testing.T) *deck.Deck {
	t.Helper()
	d := &deck.Deck{
		Title: "Test",
		Rounds: []deck.Round{
			{
				ID:   "r1",
				Name: "Round One",
				Categories: []deck.Category{
					{ID: "c1", Name: "Games", Clues: []deck.Clue{
						{ID: "q1", Value: 200, Text: "t1", AcceptableAnswers: []string{"Mario"}},
					}},
				},
			},
			{
				ID:   "r2",
				Name: "Round Two",
				Categories: []deck.Category{
					{ID: "c2", Name: "More Games", Clues: []deck.Clue{
						{ID: "q3", Value: 400, Text: "t3", AcceptableAnswers: []string{"Peach"}},
					}},
				},
			},
		},
	}
	if err := d.Validate(); err != nil {
		t.Fatal(err)
	}
	return d
}

func newTestSession(t *testing.T, d *deck.Deck) (*Session, *recorder) {
	t.Helper()
	rec := &recorder{}
	s := NewSession("TEST42", hostID, d, clockwork.NewFakeClock(), rec)
	t.Cleanup(s.Close)
	return s, rec
}

// joinReady joins the given players and marks them ready.
func joinReady(t *testing.T, s *Session, players ...string) {
	t.Helper()
	for _, id := range players {
		if err := s.Join(id, "Player "+id, "conn-"+id); err != nil {
			t.Fatalf("Join(%s) failed: %v", id, err)
		}
		if err := s.SetReady(id, true); err != nil {
			t.Fatalf("SetReady(%s) failed: %v", id, err)
		}
	}
}

func startGame(t *testing.T, s *Session, players ...string) {
	t.Helper()
	joinReady(t, s, players...)
	if err := s.Start(hostID); err != nil {
		t.Fatalf("Start() failed: %v", err)
	}
}

// buzzIn simulates the buzz-open timer firing, then buzzes the player.
func buzzIn(t *testing.T, s *Session, playerID string) {
	t.Helper()
	if s.phase == PhaseClueShown {
		s.openBuzzing(s.clue.ClueID)
	}
	if err := s.Buzz(playerID); err != nil {
		t.Fatalf("Buzz(%s) failed: %v", playerID, err)
	}
}

func TestJoinLifecycle(t *testing.T) {
	s, rec := newTestSession(t, singleClueDeck(t, false))

	if err := s.Join(p1, "Alice", "conn-1"); err != nil {
		t.Fatalf("Join failed: %v", err)
	}
	if s.scores[p1] != 0 {
		t.Error("joined player has no zeroed score")
	}
	if _, ok := rec.last(EventPlayerJoined); !ok {
		t.Error("no player-joined broadcast")
	}

	// Rejoining updates the roster entry in place.
	if err := s.Join(p1, "Alice B", "conn-2"); err != nil {
		t.Fatalf("rejoin failed: %v", err)
	}
	if len(s.order) != 1 {
		t.Fatal("rejoin duplicated the roster entry")
	}
	if s.roster[p1].Name != "Alice B" {
		t.Error("rejoin did not update display name")
	}

	if err := s.Join("", "Nobody", "conn-3"); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("empty player id: got %v, want ErrInvalidArgument", err)
	}
}

func TestJoinAfterStart(t *testing.T) {
	s, _ := newTestSession(t, singleClueDeck(t, false))
	startGame(t, s, p1)

	// New players cannot join mid-game.
	if err := s.Join(p2, "Bob", "conn-2"); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("mid-game join: got %v, want ErrInvalidTransition", err)
	}

	// A known player reconnects fine.
	if err := s.Join(p1, "Alice", "conn-9"); err != nil {
		t.Errorf("reconnect failed: %v", err)
	}
	if s.roster[p1].ConnectionID != "conn-9" {
		t.Error("reconnect did not update connection id")
	}
}

func TestSetReadyOnlyInLobby(t *testing.T) {
	s, _ := newTestSession(t, singleClueDeck(t, false))
	startGame(t, s, p1)

	if err := s.SetReady(p1, false); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("got %v, want ErrInvalidTransition", err)
	}
}

// Scenario C: start with a not-ready player fails and leaves the lobby
// untouched.
func TestStartRequiresAllReady(t *testing.T) {
	s, _ := newTestSession(t, singleClueDeck(t, false))
	joinReady(t, s, p1)
	if err := s.Join(p2, "Bob", "conn-2"); err != nil {
		t.Fatal(err)
	}

	err := s.Start(hostID)
	if !errors.Is(err, ErrPreconditionFailed) {
		t.Fatalf("got %v, want ErrPreconditionFailed", err)
	}
	if s.status != StatusLobby {
		t.Errorf("status = %v, want lobby", s.status)
	}
}

func TestStartAuthority(t *testing.T) {
	s, _ := newTestSession(t, singleClueDeck(t, false))
	joinReady(t, s, p1)

	if err := s.Start(p1); !errors.Is(err, ErrForbidden) {
		t.Errorf("non-host start: got %v, want ErrForbidden", err)
	}

	if err := s.Start(hostID); err != nil {
		t.Fatal(err)
	}
	if s.selectorID != p1 {
		t.Errorf("selector = %q, want first joined player", s.selectorID)
	}

	if err := s.Start(hostID); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("double start: got %v, want ErrInvalidTransition", err)
	}
}

// An empty roster is permitted to start; the every-ready precondition is
// vacuously true.
func TestStartEmptyRoster(t *testing.T) {
	s, _ := newTestSession(t, singleClueDeck(t, false))
	if err := s.Start(hostID); err != nil {
		t.Fatalf("empty-roster start failed: %v", err)
	}
	if s.status != StatusInRound {
		t.Errorf("status = %v, want in_round", s.status)
	}
}

// Scenario A: select, buzz, answer correctly, game ends.
func TestSingleClueCorrectAnswer(t *testing.T) {
	s, rec := newTestSession(t, singleClueDeck(t, false))
	startGame(t, s, p1)

	if err := s.SelectClue(p1, "c1", "q1"); err != nil {
		t.Fatal(err)
	}
	buzzIn(t, s, p1)
	if err := s.SubmitAnswer(p1, "mario"); err != nil {
		t.Fatal(err)
	}

	if s.scores[p1] != 200 {
		t.Errorf("score = %d, want 200", s.scores[p1])
	}
	if s.selectorID != p1 {
		t.Errorf("selector = %q, want %q", s.selectorID, p1)
	}
	if s.status != StatusEnded {
		t.Errorf("status = %v, want ended", s.status)
	}

	payload, ok := rec.last(EventGameEnded)
	if !ok {
		t.Fatal("no game-ended broadcast")
	}
	ended := payload.(GameEndedPayload)
	if ended.FinalScores[p1] != 200 {
		t.Errorf("final score = %d, want 200", ended.FinalScores[p1])
	}
	if ended.Stats[p1].Correct != 1 || ended.Stats[p1].BuzzWins != 1 {
		t.Errorf("stats = %+v, want 1 correct and 1 buzz win", ended.Stats[p1])
	}
}

// Scenario B: wrong answer rebounds to the other player.
func TestReboundToSecondPlayer(t *testing.T) {
	s, rec := newTestSession(t, singleClueDeck(t, true))
	startGame(t, s, p1, p2)

	if err := s.SelectClue(p1, "c1", "q1"); err != nil {
		t.Fatal(err)
	}
	buzzIn(t, s, p1)
	if err := s.SubmitAnswer(p1, "luigi"); err != nil {
		t.Fatal(err)
	}

	if s.scores[p1] != -200 {
		t.Errorf("score[p1] = %d, want -200", s.scores[p1])
	}
	payload, ok := rec.last(EventBuzzEnabled)
	if !ok {
		t.Fatal("buzzing did not reopen")
	}
	reopened := payload.(BuzzEnabledPayload)
	if len(reopened.ExcludedPlayers) != 1 || reopened.ExcludedPlayers[0] != p1 {
		t.Errorf("excluded = %v, want [%s]", reopened.ExcludedPlayers, p1)
	}

	// P1 may not rebound against themselves.
	if err := s.Buzz(p1); !errors.Is(err, ErrForbidden) {
		t.Errorf("excluded buzz: got %v, want ErrForbidden", err)
	}

	if err := s.Buzz(p2); err != nil {
		t.Fatal(err)
	}
	if err := s.SubmitAnswer(p2, "Mario"); err != nil {
		t.Fatal(err)
	}

	if s.scores[p1] != -200 || s.scores[p2] != 200 {
		t.Errorf("scores = {%d, %d}, want {-200, 200}", s.scores[p1], s.scores[p2])
	}
	if s.status != StatusEnded {
		t.Errorf("status = %v, want ended", s.status)
	}
}

func TestReboundExhaustion(t *testing.T) {
	s, rec := newTestSession(t, singleClueDeck(t, true))
	startGame(t, s, p1, p2, p3)

	if err := s.SelectClue(p1, "c1", "q1"); err != nil {
		t.Fatal(err)
	}
	for _, id := range []string{p1, p2, p3} {
		buzzIn(t, s, id)
		if err := s.SubmitAnswer(id, "wrong"); err != nil {
			t.Fatal(err)
		}
	}

	// All players failed: the answer is revealed instead of reopening.
	if _, ok := rec.last(EventAnswerRevealed); !ok {
		t.Fatal("no answer-revealed broadcast after exhaustion")
	}
	for _, id := range []string{p1, p2, p3} {
		if s.scores[id] != -200 {
			t.Errorf("score[%s] = %d, want -200", id, s.scores[id])
		}
	}
	if s.status != StatusEnded {
		t.Errorf("status = %v, want ended", s.status)
	}
}

func TestSelectClueValidation(t *testing.T) {
	s, _ := newTestSession(t, twoClueDeck(t))
	startGame(t, s, p1, p2)

	if err := s.SelectClue(p2, "c1", "q1"); !errors.Is(err, ErrForbidden) {
		t.Errorf("non-selector pick: got %v, want ErrForbidden", err)
	}
	if err := s.SelectClue(p1, "c1", "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing clue: got %v, want ErrNotFound", err)
	}
	if err := s.SelectClue(p1, "missing", "q1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing category: got %v, want ErrNotFound", err)
	}
	if len(s.used) != 0 {
		t.Fatal("rejected selections mutated the used set")
	}

	if err := s.SelectClue(p1, "c1", "q1"); err != nil {
		t.Fatal(err)
	}
	if err := s.SelectClue(p1, "c1", "q2"); !errors.Is(err, ErrInvalidState) {
		t.Errorf("pick with clue active: got %v, want ErrInvalidState", err)
	}
}

// Clue-use monotonicity: a used clue can never be selected again, and the
// rejection changes nothing.
func TestUsedClueNeverReselected(t *testing.T) {
	s, _ := newTestSession(t, twoClueDeck(t))
	startGame(t, s, p1)

	if err := s.SelectClue(p1, "c1", "q1"); err != nil {
		t.Fatal(err)
	}
	buzzIn(t, s, p1)
	if err := s.SubmitAnswer(p1, "Mario"); err != nil {
		t.Fatal(err)
	}

	if !s.used["q1"] {
		t.Fatal("resolved clue not in used set")
	}
	err := s.SelectClue(p1, "c1", "q1")
	if !errors.Is(err, ErrInvalidState) {
		t.Fatalf("got %v, want ErrInvalidState", err)
	}
	if s.clue != nil || s.phase != PhaseIdle {
		t.Error("rejected re-selection mutated clue state")
	}
}

func TestBuzzRace(t *testing.T) {
	s, _ := newTestSession(t, singleClueDeck(t, false))
	startGame(t, s, p1, p2)

	if err := s.SelectClue(p1, "c1", "q1"); err != nil {
		t.Fatal(err)
	}

	// Buzzing before the window opens is rejected.
	if err := s.Buzz(p1); !errors.Is(err, ErrInvalidState) {
		t.Errorf("early buzz: got %v, want ErrInvalidState", err)
	}

	s.openBuzzing("q1")
	if err := s.Buzz(p1); err != nil {
		t.Fatal(err)
	}

	// Exactly one winner; the loser sees Conflict and nothing changes.
	if err := s.Buzz(p2); !errors.Is(err, ErrConflict) {
		t.Errorf("second buzz: got %v, want ErrConflict", err)
	}
	if s.buzz.WinnerID != p1 {
		t.Errorf("winner = %q, want %q", s.buzz.WinnerID, p1)
	}
	if s.stats[p2].BuzzWins != 0 {
		t.Error("losing buzz incremented buzz wins")
	}
}

// Timeout equivalence: an expired answer window scores exactly like an
// explicit incorrect judgment.
func TestAnswerTimeoutEquivalence(t *testing.T) {
	run := func(t *testing.T, resolve func(s *Session)) (*Session, *recorder) {
		s, rec := newTestSession(t, singleClueDeck(t, false))
		startGame(t, s, p1, p2)
		if err := s.SelectClue(p1, "c1", "q1"); err != nil {
			t.Fatal(err)
		}
		buzzIn(t, s, p1)
		resolve(s)
		return s, rec
	}

	timedOut, _ := run(t, func(s *Session) {
		s.answerTimedOut(s.answer)
	})
	judged, _ := run(t, func(s *Session) {
		if err := s.JudgeAnswer(hostID, p1, false); err != nil {
			t.Fatal(err)
		}
	})

	if timedOut.scores[p1] != judged.scores[p1] {
		t.Errorf("timeout score %d != judged score %d", timedOut.scores[p1], judged.scores[p1])
	}
	if timedOut.scores[p1] != -200 {
		t.Errorf("score = %d, want -200", timedOut.scores[p1])
	}
	if timedOut.stats[p1].Incorrect != 1 || judged.stats[p1].Incorrect != 1 {
		t.Error("incorrect counter mismatch")
	}
	if timedOut.status != judged.status {
		t.Errorf("status diverged: %v vs %v", timedOut.status, judged.status)
	}
}

// Scenario D: daily double wagers are bounded below by the minimum and
// above by max(score, face value).
func TestDailyDoubleWager(t *testing.T) {
	s, rec := newTestSession(t, dailyDoubleDeck(t))
	startGame(t, s, p1)

	if err := s.SelectClue(p1, "c1", "dd1"); err != nil {
		t.Fatal(err)
	}

	// Text withheld until the wager is in.
	payload, _ := rec.last(EventClueSelected)
	if clue := payload.(ClueSelectedPayload).Clue; clue.Text != "" {
		t.Errorf("daily-double text leaked before wager: %q", clue.Text)
	}
	if _, ok := rec.last(EventWagerRequested); !ok {
		t.Fatal("no wager request broadcast")
	}

	// No buzzing on a daily double.
	if err := s.Buzz(p1); !errors.Is(err, ErrInvalidState) {
		t.Errorf("buzz on daily double: got %v, want ErrInvalidState", err)
	}

	if err := s.SubmitWager(p1, 3); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("below-minimum wager: got %v, want ErrInvalidArgument", err)
	}
	if err := s.SubmitWager(p1, 401); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("above-maximum wager: got %v, want ErrInvalidArgument", err)
	}
	if err := s.SubmitWager(p2, 400); !errors.Is(err, ErrForbidden) {
		t.Errorf("non-selector wager: got %v, want ErrForbidden", err)
	}

	// Score 0, face value 400: a 400 wager is allowed.
	if err := s.SubmitWager(p1, 400); err != nil {
		t.Fatal(err)
	}
	revealed, ok := rec.last(EventDailyDoubleRevealed)
	if !ok {
		t.Fatal("no daily-double reveal broadcast")
	}
	if revealed.(DailyDoubleRevealedPayload).ClueText == "" {
		t.Error("clue text still withheld after wager")
	}
	if _, ok := rec.last(EventAnswerTimerStarted); !ok {
		t.Fatal("answer timer did not start after wager")
	}

	if err := s.SubmitAnswer(p1, "Mario"); err != nil {
		t.Fatal(err)
	}
	if s.scores[p1] != 400 {
		t.Errorf("score = %d, want wager 400", s.scores[p1])
	}
}

// A missed daily double reveals immediately: there is no buzz race to
// rebound through.
func TestDailyDoubleIncorrectNoRebound(t *testing.T) {
	s, rec := newTestSession(t, dailyDoubleDeck(t))
	startGame(t, s, p1, p2)

	if err := s.SelectClue(p1, "c1", "dd1"); err != nil {
		t.Fatal(err)
	}
	if err := s.SubmitWager(p1, 100); err != nil {
		t.Fatal(err)
	}
	if err := s.SubmitAnswer(p1, "luigi"); err != nil {
		t.Fatal(err)
	}

	if s.scores[p1] != -100 {
		t.Errorf("score = %d, want -100", s.scores[p1])
	}
	if _, ok := rec.last(EventAnswerRevealed); !ok {
		t.Error("missed daily double did not reveal")
	}
	if got := rec.count(EventBuzzEnabled); got != 0 {
		t.Errorf("buzzing opened %d times on a daily double", got)
	}
	if s.phase != PhaseIdle {
		t.Errorf("phase = %v, want idle", s.phase)
	}
}

func TestSubmitAnswerOutsideWindow(t *testing.T) {
	s, _ := newTestSession(t, singleClueDeck(t, false))
	startGame(t, s, p1, p2)

	if err := s.SubmitAnswer(p1, "Mario"); !errors.Is(err, ErrConflict) {
		t.Errorf("answer with no window: got %v, want ErrConflict", err)
	}

	if err := s.SelectClue(p1, "c1", "q1"); err != nil {
		t.Fatal(err)
	}
	buzzIn(t, s, p1)

	if err := s.SubmitAnswer(p2, "Mario"); !errors.Is(err, ErrConflict) {
		t.Errorf("answer out of turn: got %v, want ErrConflict", err)
	}
	if s.scores[p2] != 0 {
		t.Error("rejected answer mutated score")
	}
}

// Score conservation: a judgment touches only the answerer's score.
func TestJudgeAnswerScoring(t *testing.T) {
	s, _ := newTestSession(t, twoClueDeck(t))
	startGame(t, s, p1, p2)

	if err := s.SelectClue(p1, "c1", "q1"); err != nil {
		t.Fatal(err)
	}
	buzzIn(t, s, p2)

	if err := s.JudgeAnswer(p1, p2, true); !errors.Is(err, ErrForbidden) {
		t.Errorf("non-host judge: got %v, want ErrForbidden", err)
	}

	if err := s.JudgeAnswer(hostID, p2, true); err != nil {
		t.Fatal(err)
	}
	if s.scores[p2] != 200 || s.scores[p1] != 0 {
		t.Errorf("scores = {%d, %d}, want {0, 200}", s.scores[p1], s.scores[p2])
	}
	if s.selectorID != p2 {
		t.Errorf("selector = %q, want %q", s.selectorID, p2)
	}
}

func TestRoundTransitionKeepsSelector(t *testing.T) {
	s, rec := newTestSession(t, twoRoundDeck(t))
	startGame(t, s, p1, p2)

	if err := s.SelectClue(p1, "c1", "q1"); err != nil {
		t.Fatal(err)
	}
	buzzIn(t, s, p2)
	if err := s.SubmitAnswer(p2, "Mario"); err != nil {
		t.Fatal(err)
	}

	payload, ok := rec.last(EventRoundTransition)
	if !ok {
		t.Fatal("no round transition broadcast")
	}
	trans := payload.(RoundTransitionPayload)
	if trans.NextRoundIndex != 1 {
		t.Errorf("next round index = %d, want 1", trans.NextRoundIndex)
	}
	if s.roundIdx != 1 {
		t.Errorf("round index = %d, want 1", s.roundIdx)
	}
	if s.selectorID != p2 {
		t.Errorf("selector = %q, want retained %q", s.selectorID, p2)
	}
	if s.status != StatusInRound {
		t.Errorf("status = %v, want in_round", s.status)
	}

	// Clues now resolve in the new round's categories.
	if err := s.SelectClue(p2, "c1", "q1"); !errors.Is(err, ErrInvalidState) {
		t.Errorf("re-selecting used clue across rounds: got %v, want ErrInvalidState", err)
	}
	if err := s.SelectClue(p2, "c2", "q3"); err != nil {
		t.Fatal(err)
	}
}

func TestHostActions(t *testing.T) {
	t.Run("skip clue", func(t *testing.T) {
		s, rec := newTestSession(t, twoClueDeck(t))
		startGame(t, s, p1)
		if err := s.SelectClue(p1, "c1", "q1"); err != nil {
			t.Fatal(err)
		}

		if err := s.SkipClue(p1); !errors.Is(err, ErrForbidden) {
			t.Errorf("non-host skip: got %v, want ErrForbidden", err)
		}
		if err := s.SkipClue(hostID); err != nil {
			t.Fatal(err)
		}
		if s.clue != nil {
			t.Error("clue still active after skip")
		}
		if s.scores[p1] != 0 {
			t.Error("skip changed a score")
		}
		if _, ok := rec.last(EventAnswerRevealed); !ok {
			t.Error("skip did not reveal the answer")
		}
	})

	t.Run("reveal answer cancels the answer window", func(t *testing.T) {
		s, _ := newTestSession(t, twoClueDeck(t))
		startGame(t, s, p1)
		if err := s.SelectClue(p1, "c1", "q1"); err != nil {
			t.Fatal(err)
		}
		buzzIn(t, s, p1)

		if err := s.RevealAnswer(hostID); err != nil {
			t.Fatal(err)
		}
		if s.answer != nil || s.clue != nil {
			t.Error("answer window or clue survived reveal")
		}
	})

	t.Run("adjust score", func(t *testing.T) {
		s, rec := newTestSession(t, twoClueDeck(t))
		startGame(t, s, p1)

		if err := s.AdjustScore(hostID, "ghost", 100); !errors.Is(err, ErrNotFound) {
			t.Errorf("unknown player: got %v, want ErrNotFound", err)
		}
		if err := s.AdjustScore(hostID, p1, -300); err != nil {
			t.Fatal(err)
		}
		if s.scores[p1] != -300 {
			t.Errorf("score = %d, want -300", s.scores[p1])
		}
		payload, _ := rec.last(EventScoreAdjusted)
		if payload.(ScoreAdjustedPayload).NewScore != -300 {
			t.Error("broadcast carries wrong new score")
		}
	})

	t.Run("end game", func(t *testing.T) {
		s, rec := newTestSession(t, twoClueDeck(t))
		startGame(t, s, p1)

		if err := s.EndGame(hostID); err != nil {
			t.Fatal(err)
		}
		if s.status != StatusEnded {
			t.Errorf("status = %v, want ended", s.status)
		}
		if _, ok := rec.last(EventGameEnded); !ok {
			t.Error("no game-ended broadcast")
		}
		if err := s.EndGame(hostID); !errors.Is(err, ErrInvalidTransition) {
			t.Errorf("double end: got %v, want ErrInvalidTransition", err)
		}
	})
}

func TestGameMasterOps(t *testing.T) {
	t.Run("forced selection includes answers", func(t *testing.T) {
		s, rec := newTestSession(t, twoClueDeck(t))
		startGame(t, s, p1)

		if err := s.GMSelectClue(p1, "c1", "q1"); !errors.Is(err, ErrForbidden) {
			t.Errorf("non-host gm select: got %v, want ErrForbidden", err)
		}
		if err := s.GMSelectClue(hostID, "c1", "q1"); err != nil {
			t.Fatal(err)
		}

		payload, _ := rec.last(EventClueSelected)
		clue := payload.(ClueSelectedPayload).Clue
		if len(clue.AcceptableAnswers) == 0 {
			t.Error("gm selection omitted acceptable answers")
		}
		if !s.used["q1"] {
			t.Error("gm selection did not mark the clue used")
		}
	})

	t.Run("close clue without scoring", func(t *testing.T) {
		s, rec := newTestSession(t, twoClueDeck(t))
		startGame(t, s, p1)
		if err := s.GMSelectClue(hostID, "c1", "q1"); err != nil {
			t.Fatal(err)
		}
		if err := s.GMCloseClue(hostID); err != nil {
			t.Fatal(err)
		}
		if s.clue != nil || s.phase != PhaseIdle {
			t.Error("clue state survived gm close")
		}
		if _, ok := rec.last(EventClueClosed); !ok {
			t.Error("no clue-closed broadcast")
		}
	})

	t.Run("award points", func(t *testing.T) {
		s, _ := newTestSession(t, twoClueDeck(t))
		startGame(t, s, p1, p2)

		if err := s.GMAwardPoints(hostID, p1, 500, nil); err != nil {
			t.Fatal(err)
		}
		if s.scores[p1] != 500 {
			t.Errorf("score = %d, want 500", s.scores[p1])
		}

		if err := s.GMAwardPoints(hostID, "", 0, map[string]int{p1: 100, p2: 300}); err != nil {
			t.Fatal(err)
		}
		if s.scores[p1] != 100 || s.scores[p2] != 300 {
			t.Errorf("overwrite scores = {%d, %d}, want {100, 300}", s.scores[p1], s.scores[p2])
		}

		if err := s.GMAwardPoints(hostID, "", 0, nil); !errors.Is(err, ErrInvalidArgument) {
			t.Errorf("no target: got %v, want ErrInvalidArgument", err)
		}
	})

	t.Run("end game with overwrite", func(t *testing.T) {
		s, rec := newTestSession(t, twoClueDeck(t))
		startGame(t, s, p1)

		if err := s.GMEndGame(hostID, map[string]int{p1: 1000}); err != nil {
			t.Fatal(err)
		}
		payload, _ := rec.last(EventGameEnded)
		if payload.(GameEndedPayload).FinalScores[p1] != 1000 {
			t.Error("final scores missing gm overwrite")
		}
	})
}

func TestDisconnectKeepsRosterAndScores(t *testing.T) {
	s, rec := newTestSession(t, twoClueDeck(t))
	startGame(t, s, p1, p2)
	s.scores[p1] = 600

	s.Disconnect(p1)

	if _, ok := s.roster[p1]; !ok {
		t.Fatal("disconnect removed roster entry")
	}
	if s.scores[p1] != 600 {
		t.Error("disconnect changed score")
	}
	if _, ok := rec.last(EventPlayerLeft); !ok {
		t.Error("no player-left broadcast")
	}

	// Unknown players disconnect silently.
	before := rec.count(EventPlayerLeft)
	s.Disconnect("ghost")
	if rec.count(EventPlayerLeft) != before {
		t.Error("unknown disconnect broadcast a departure")
	}
}

func TestSnapshotIsDerived(t *testing.T) {
	s, _ := newTestSession(t, twoClueDeck(t))
	startGame(t, s, p1, p2)

	view := s.Snapshot()
	if view.Code != "TEST42" || view.Status != StatusInRound {
		t.Errorf("snapshot basics wrong: %+v", view)
	}
	if view.Round == nil || len(view.Round.Categories) != 1 {
		t.Fatal("snapshot missing board view")
	}

	// Mutating the snapshot must not reach session state.
	view.Scores[p1] = 9999
	view.UsedClues = append(view.UsedClues, "zz")
	if s.scores[p1] == 9999 {
		t.Error("snapshot shares the scores map")
	}
	if s.used["zz"] {
		t.Error("snapshot shares the used set")
	}
}
