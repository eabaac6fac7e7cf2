package gateway

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/quizwire/quizwire/internal/game"
)

// Event is the outbound envelope for every server → client message.
type Event struct {
	ID        string          `json:"id"`
	Room      string          `json:"room"`
	Type      string          `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data"`
}

// Direct (caller-only) event types; broadcast types live in the game
// package.
const (
	EventTypeError     = "error"
	EventTypeGameState = "game-state"
)

// newEvent wraps a payload in the outbound envelope.
func newEvent(room, eventType string, payload any) (Event, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Event{}, err
	}
	return Event{
		ID:        uuid.New().String(),
		Room:      room,
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		Data:      data,
	}, nil
}

// ErrorPayload is sent only to the caller whose action was rejected; other
// participants observe nothing.
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// GameStatePayload carries the full public snapshot to a joining or
// subscribing connection.
type GameStatePayload struct {
	Session game.SessionView `json:"session"`
}

// ClientMessage is the inbound envelope. Every event is scoped to a room
// code; the player id identifies callers that have not joined as a player
// on this connection (host consoles, game-master displays).
type ClientMessage struct {
	Type     string          `json:"type"`
	Room     string          `json:"room"`
	PlayerID string          `json:"playerId,omitempty"`
	Data     json.RawMessage `json:"data"`
}

// Inbound message types.
const (
	MsgJoin          = "join"
	MsgSubscribe     = "subscribe"
	MsgSetReady      = "set-ready"
	MsgStart         = "start"
	MsgSelectClue    = "select-clue"
	MsgSubmitWager   = "submit-daily-double-wager"
	MsgBuzz          = "buzz"
	MsgSubmitAnswer  = "submit-answer"
	MsgJudgeAnswer   = "judge-answer"
	MsgHostAction    = "host-action"
	MsgGMSelectClue  = "gm-select-clue"
	MsgGMAwardPoints = "gm-award-points"
	MsgGMCloseClue   = "gm-close-clue"
	MsgGMEndGame     = "gm-end-game"
)

// Inbound payloads, one struct per message type.

type JoinPayload struct {
	PlayerID   string `json:"playerId"`
	PlayerName string `json:"playerName"`
}

type SetReadyPayload struct {
	Ready bool `json:"ready"`
}

type SelectCluePayload struct {
	CategoryID string `json:"categoryId"`
	ClueID     string `json:"clueId"`
}

type SubmitWagerPayload struct {
	Wager int `json:"wager"`
}

type SubmitAnswerPayload struct {
	Answer string `json:"answer"`
}

type JudgeAnswerPayload struct {
	PlayerID  string `json:"playerId"`
	IsCorrect bool   `json:"isCorrect"`
}

// HostActionPayload is the closed tagged variant for host controls; the
// data shape depends on the action and is decoded per variant.
type HostActionPayload struct {
	Action string          `json:"action"`
	Data   json.RawMessage `json:"data"`
}

// Host action variants.
const (
	ActionSkipClue     = "skip-clue"
	ActionRevealAnswer = "reveal-answer"
	ActionAdjustScore  = "adjust-score"
	ActionEndGame      = "end-game"
	ActionPauseGame    = "pause-game"
	ActionResumeGame   = "resume-game"
)

type AdjustScorePayload struct {
	PlayerID   string `json:"playerId"`
	Adjustment int    `json:"adjustment"`
}

type GMAwardPointsPayload struct {
	PlayerID string         `json:"playerId"`
	Points   int            `json:"points"`
	Scores   map[string]int `json:"scores"`
}

type GMEndGamePayload struct {
	Scores map[string]int `json:"scores"`
}
