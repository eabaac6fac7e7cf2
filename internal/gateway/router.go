package gateway

import (
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/quizwire/quizwire/internal/game"
	"github.com/quizwire/quizwire/internal/room"
)

// Router binds inbound messages to registry lookups and session
// transitions. Errors are returned only to the originating connection;
// nothing is broadcast for a rejected action.
type Router struct {
	registry *room.Registry
	manager  *Manager
}

// NewRouter wires a router to the registry and the connection manager.
func NewRouter(registry *room.Registry, manager *Manager) *Router {
	r := &Router{registry: registry, manager: manager}
	manager.SetHandler(r)
	return r
}

// HandleMessage dispatches one inbound message. Implements Handler.
func (r *Router) HandleMessage(c *Connection, msg ClientMessage) {
	if err := r.dispatch(c, msg); err != nil {
		log.Debug().
			Str("connection", c.ID).
			Str("type", msg.Type).
			Str("room", msg.Room).
			Err(err).
			Msg("event rejected")
		c.Send(mustEvent(msg.Room, EventTypeError, ErrorPayload{
			Code:    game.ErrorCode(err),
			Message: err.Error(),
		}))
	}
}

// HandleDisconnect routes a transport-level disconnect to the session the
// connection was playing in. Implements Handler.
func (r *Router) HandleDisconnect(c *Connection) {
	roomCode := r.manager.Room(c)
	if roomCode == "" || c.PlayerID == "" {
		return
	}
	sess, err := r.registry.Get(roomCode)
	if err != nil {
		return
	}
	sess.Disconnect(c.PlayerID)
}

// caller resolves the acting identity: the player id bound to the
// connection by join, else the opaque id supplied on the message (host
// consoles and game-master displays subscribe without joining).
func (r *Router) caller(c *Connection, msg ClientMessage) string {
	if c.PlayerID != "" {
		return c.PlayerID
	}
	return msg.PlayerID
}

func (r *Router) dispatch(c *Connection, msg ClientMessage) error {
	roomCode := msg.Room
	if roomCode == "" {
		roomCode = r.manager.Room(c)
	}
	if roomCode == "" {
		return fmt.Errorf("%w: room code is required", game.ErrInvalidArgument)
	}

	sess, err := r.registry.Get(roomCode)
	if err != nil {
		return err
	}

	switch msg.Type {
	case MsgSubscribe:
		r.manager.Subscribe(c, roomCode)
		c.Send(mustEvent(roomCode, EventTypeGameState, GameStatePayload{Session: sess.Snapshot()}))
		return nil

	case MsgJoin:
		var p JoinPayload
		if err := decode(msg.Data, &p); err != nil {
			return err
		}
		// Subscribe before joining so the join broadcast reaches the
		// joiner's own connection. A failed join leaves the connection
		// subscribed as a plain spectator.
		r.manager.Subscribe(c, roomCode)
		if err := sess.Join(p.PlayerID, p.PlayerName, c.ID); err != nil {
			return err
		}
		c.PlayerID = p.PlayerID
		c.Send(mustEvent(roomCode, EventTypeGameState, GameStatePayload{Session: sess.Snapshot()}))
		return nil

	case MsgSetReady:
		var p SetReadyPayload
		if err := decode(msg.Data, &p); err != nil {
			return err
		}
		return sess.SetReady(r.caller(c, msg), p.Ready)

	case MsgStart:
		return sess.Start(r.caller(c, msg))

	case MsgSelectClue:
		var p SelectCluePayload
		if err := decode(msg.Data, &p); err != nil {
			return err
		}
		return sess.SelectClue(r.caller(c, msg), p.CategoryID, p.ClueID)

	case MsgSubmitWager:
		var p SubmitWagerPayload
		if err := decode(msg.Data, &p); err != nil {
			return err
		}
		return sess.SubmitWager(r.caller(c, msg), p.Wager)

	case MsgBuzz:
		return sess.Buzz(r.caller(c, msg))

	case MsgSubmitAnswer:
		var p SubmitAnswerPayload
		if err := decode(msg.Data, &p); err != nil {
			return err
		}
		return sess.SubmitAnswer(r.caller(c, msg), p.Answer)

	case MsgJudgeAnswer:
		var p JudgeAnswerPayload
		if err := decode(msg.Data, &p); err != nil {
			return err
		}
		return sess.JudgeAnswer(r.caller(c, msg), p.PlayerID, p.IsCorrect)

	case MsgHostAction:
		return r.dispatchHostAction(c, msg, sess)

	case MsgGMSelectClue:
		var p SelectCluePayload
		if err := decode(msg.Data, &p); err != nil {
			return err
		}
		return sess.GMSelectClue(r.caller(c, msg), p.CategoryID, p.ClueID)

	case MsgGMAwardPoints:
		var p GMAwardPointsPayload
		if err := decode(msg.Data, &p); err != nil {
			return err
		}
		return sess.GMAwardPoints(r.caller(c, msg), p.PlayerID, p.Points, p.Scores)

	case MsgGMCloseClue:
		return sess.GMCloseClue(r.caller(c, msg))

	case MsgGMEndGame:
		var p GMEndGamePayload
		if err := decode(msg.Data, &p); err != nil {
			return err
		}
		return sess.GMEndGame(r.caller(c, msg), p.Scores)

	default:
		return fmt.Errorf("%w: unknown message type %q", game.ErrInvalidArgument, msg.Type)
	}
}

// dispatchHostAction decodes the host-action variant once at the boundary;
// unknown or malformed variants fail fast.
func (r *Router) dispatchHostAction(c *Connection, msg ClientMessage, sess *game.Session) error {
	var p HostActionPayload
	if err := decode(msg.Data, &p); err != nil {
		return err
	}
	callerID := r.caller(c, msg)

	switch p.Action {
	case ActionSkipClue:
		return sess.SkipClue(callerID)
	case ActionRevealAnswer:
		return sess.RevealAnswer(callerID)
	case ActionAdjustScore:
		var adj AdjustScorePayload
		if err := decode(p.Data, &adj); err != nil {
			return err
		}
		if adj.PlayerID == "" {
			return fmt.Errorf("%w: adjust-score requires a player id", game.ErrInvalidArgument)
		}
		return sess.AdjustScore(callerID, adj.PlayerID, adj.Adjustment)
	case ActionEndGame:
		return sess.EndGame(callerID)
	case ActionPauseGame:
		return sess.PauseGame(callerID)
	case ActionResumeGame:
		return sess.ResumeGame(callerID)
	default:
		return fmt.Errorf("%w: unknown host action %q", game.ErrInvalidArgument, p.Action)
	}
}

func decode(data json.RawMessage, v any) error {
	if len(data) == 0 {
		return fmt.Errorf("%w: missing payload", game.ErrInvalidArgument)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: malformed payload: %v", game.ErrInvalidArgument, err)
	}
	return nil
}
