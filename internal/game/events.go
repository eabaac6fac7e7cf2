package game

import "github.com/quizwire/quizwire/internal/deck"

// EventType names an outbound broadcast.
type EventType string

const (
	EventPlayerJoined         EventType = "player-joined"
	EventPlayerReadyChanged   EventType = "player-ready-changed"
	EventPlayerLeft           EventType = "player-left"
	EventGameStarted          EventType = "game-started"
	EventClueSelected         EventType = "clue-selected"
	EventWagerRequested       EventType = "daily-double-wager-requested"
	EventDailyDoubleRevealed  EventType = "daily-double-clue-revealed"
	EventBuzzEnabled          EventType = "buzz-enabled"
	EventBuzzWinner           EventType = "buzz-winner"
	EventAnswerTimerStarted   EventType = "answer-timer-started"
	EventAnswerResult         EventType = "answer-result"
	EventAnswerJudged         EventType = "answer-judged"
	EventAnswerTimeout        EventType = "answer-timeout"
	EventAnswerRevealed       EventType = "answer-revealed"
	EventReadyForNextClue     EventType = "ready-for-next-clue"
	EventRoundTransition      EventType = "round-transition"
	EventScoreAdjusted        EventType = "score-adjusted"
	EventScoreUpdated         EventType = "score-updated"
	EventClueClosed           EventType = "clue-closed"
	EventGamePaused           EventType = "game-paused"
	EventGameResumed          EventType = "game-resumed"
	EventGameEnded            EventType = "game-ended"
)

// Broadcaster fans an event out to every connection subscribed to a room.
// Implementations must not block; sessions emit while holding their lock,
// and event ordering must match emission ordering.
type Broadcaster interface {
	Broadcast(roomCode string, event EventType, payload any)
}

// PlayerJoinedPayload announces a roster change.
type PlayerJoinedPayload struct {
	PlayerID   string       `json:"playerId"`
	PlayerName string       `json:"playerName"`
	Players    []PlayerView `json:"players"`
}

// PlayerReadyChangedPayload announces a ready-flag flip.
type PlayerReadyChangedPayload struct {
	PlayerID string       `json:"playerId"`
	Ready    bool         `json:"ready"`
	Players  []PlayerView `json:"players"`
}

// PlayerLeftPayload announces a disconnect. The roster entry survives for
// reconnection.
type PlayerLeftPayload struct {
	PlayerID   string       `json:"playerId"`
	PlayerName string       `json:"playerName"`
	Players    []PlayerView `json:"players"`
}

// GameStartedPayload carries the first round and the opening selector.
type GameStartedPayload struct {
	CurrentRoundIndex int       `json:"currentRoundIndex"`
	CurrentSelector   string    `json:"currentSelector"`
	Round             RoundView `json:"round"`
}

// CluePayload is the public view of the active clue. Text is withheld for
// daily doubles until the wager is in; acceptable answers are only included
// for game-master selections.
type CluePayload struct {
	ID                string      `json:"id"`
	Value             int         `json:"value"`
	Text              string      `json:"clueText"`
	IsDailyDouble     bool        `json:"isDailyDouble"`
	Media             *deck.Media `json:"media,omitempty"`
	AcceptableAnswers []string    `json:"acceptableAnswers,omitempty"`
}

// ClueSelectedPayload announces the active clue and the board state.
type ClueSelectedPayload struct {
	CategoryID      string      `json:"categoryId"`
	ClueID          string      `json:"clueId"`
	Clue            CluePayload `json:"clue"`
	UsedClues       []string    `json:"usedClues"`
	CurrentSelector string      `json:"currentSelector"`
}

// WagerRequestedPayload asks the selector for a daily-double wager.
type WagerRequestedPayload struct {
	PlayerID     string `json:"playerId"`
	CurrentScore int    `json:"currentScore"`
	MinWager     int    `json:"minWager"`
	MaxWager     int    `json:"maxWager"`
}

// DailyDoubleRevealedPayload reveals the clue text once the wager is set.
type DailyDoubleRevealedPayload struct {
	ClueText string `json:"clueText"`
	Wager    int    `json:"wager"`
}

// BuzzEnabledPayload opens (or re-opens) the buzz race.
type BuzzEnabledPayload struct {
	ExcludedPlayers []string `json:"excludedPlayers"`
}

// BuzzWinnerPayload announces the buzz race winner.
type BuzzWinnerPayload struct {
	PlayerID   string `json:"playerId"`
	PlayerName string `json:"playerName"`
}

// AnswerTimerStartedPayload announces an open answer window.
type AnswerTimerStartedPayload struct {
	PlayerID    string `json:"playerId"`
	TimeSeconds int    `json:"timeSeconds"`
}

// AnswerResultPayload reports an auto-checked submission.
type AnswerResultPayload struct {
	PlayerID      string         `json:"playerId"`
	Answer        string         `json:"answer"`
	IsCorrect     bool           `json:"isCorrect"`
	CorrectAnswer string         `json:"correctAnswer"`
	Scores        map[string]int `json:"scores"`
}

// AnswerJudgedPayload reports a host judgment.
type AnswerJudgedPayload struct {
	PlayerID      string         `json:"playerId"`
	IsCorrect     bool           `json:"isCorrect"`
	CorrectAnswer string         `json:"correctAnswer"`
	Scores        map[string]int `json:"scores"`
}

// AnswerTimeoutPayload reports an expired answer window, scored as
// incorrect.
type AnswerTimeoutPayload struct {
	PlayerID      string `json:"playerId"`
	CorrectAnswer string `json:"correctAnswer"`
}

// AnswerRevealedPayload closes a clue nobody answered correctly.
type AnswerRevealedPayload struct {
	CorrectAnswer string         `json:"correctAnswer"`
	Scores        map[string]int `json:"scores"`
}

// ReadyForNextCluePayload hands the board back to the selector.
type ReadyForNextCluePayload struct {
	CurrentSelector string `json:"currentSelector"`
}

// RoundTransitionPayload announces advancement to the next round.
type RoundTransitionPayload struct {
	CompletedRound string         `json:"completedRound"`
	NextRound      string         `json:"nextRound"`
	NextRoundIndex int            `json:"nextRoundIndex"`
	Round          RoundView      `json:"round"`
	Scores         map[string]int `json:"scores"`
}

// ScoreAdjustedPayload reports a manual host adjustment.
type ScoreAdjustedPayload struct {
	PlayerID   string         `json:"playerId"`
	Adjustment int            `json:"adjustment"`
	NewScore   int            `json:"newScore"`
	Scores     map[string]int `json:"scores"`
}

// ScoreUpdatedPayload reports a game-master score overwrite.
type ScoreUpdatedPayload struct {
	Scores map[string]int `json:"scores"`
}

// ClueClosedPayload reports a game-master clue close without scoring.
type ClueClosedPayload struct {
	UsedClues []string `json:"usedClues"`
}

// GameEndedPayload carries the final standings.
type GameEndedPayload struct {
	FinalScores map[string]int         `json:"finalScores"`
	Stats       map[string]PlayerStats `json:"stats"`
}
