package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/julienschmidt/httprouter"
	"github.com/rs/zerolog/log"
	"github.com/skip2/go-qrcode"

	"github.com/quizwire/quizwire/internal/deck"
	"github.com/quizwire/quizwire/internal/game"
)

type createRoomRequest struct {
	// DeckID names a deck from the server's deck directory; Deck supplies
	// one inline. Exactly one is required.
	DeckID string     `json:"deckId,omitempty"`
	Deck   *deck.Deck `json:"deck,omitempty"`
	HostID string     `json:"hostId"`
}

type createRoomResponse struct {
	RoomCode string `json:"roomCode"`
	HostID   string `json:"hostId"`
	Status   string `json:"status"`
}

type hostRequest struct {
	HostID string `json:"hostId"`
}

func (s *Server) handleCreateRoom(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req createRoomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	var d *deck.Deck
	switch {
	case req.DeckID != "":
		named, ok := s.decks[req.DeckID]
		if !ok {
			writeError(w, http.StatusNotFound, fmt.Sprintf("deck %q not found", req.DeckID))
			return
		}
		// Each room gets its own copy of the shared named deck.
		d = cloneDeck(named)
	case req.Deck != nil:
		d = req.Deck
	default:
		writeError(w, http.StatusBadRequest, "either deckId or deck is required")
		return
	}

	sess, err := s.registry.Create(d, req.HostID)
	if err != nil {
		writeGameError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, createRoomResponse{
		RoomCode: sess.Code(),
		HostID:   req.HostID,
		Status:   string(game.StatusLobby),
	})
}

func (s *Server) handleGetRoom(w http.ResponseWriter, _ *http.Request, p httprouter.Params) {
	sess, err := s.registry.Get(p.ByName("code"))
	if err != nil {
		writeGameError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sess.Snapshot())
}

func (s *Server) handleStartRoom(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
	var req hostRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	sess, err := s.registry.Get(p.ByName("code"))
	if err != nil {
		writeGameError(w, err)
		return
	}
	if err := sess.Start(req.HostID); err != nil {
		writeGameError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "started"})
}

func (s *Server) handleEndRoom(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
	var req hostRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	sess, err := s.registry.Get(p.ByName("code"))
	if err != nil {
		writeGameError(w, err)
		return
	}
	if err := sess.EndGame(req.HostID); err != nil {
		writeGameError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ended"})
}

func (s *Server) handleDeleteRoom(w http.ResponseWriter, _ *http.Request, p httprouter.Params) {
	if err := s.registry.Delete(p.ByName("code")); err != nil {
		writeGameError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleRoomQR serves a PNG QR code encoding the join URL for a room.
func (s *Server) handleRoomQR(w http.ResponseWriter, _ *http.Request, p httprouter.Params) {
	code := p.ByName("code")
	if _, err := s.registry.Get(code); err != nil {
		writeGameError(w, err)
		return
	}

	joinURL := fmt.Sprintf("%s/join/%s", s.cfg.externalURL(), code)
	png, err := qrcode.Encode(joinURL, qrcode.Medium, 256)
	if err != nil {
		log.Error().Err(err).Str("room", code).Msg("failed to encode QR code")
		writeError(w, http.StatusInternalServerError, "failed to generate QR code")
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Write(png)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("failed to write response")
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// writeGameError maps the session error taxonomy onto HTTP status codes.
func writeGameError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, game.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, game.ErrForbidden):
		status = http.StatusForbidden
	case errors.Is(err, game.ErrInvalidArgument):
		status = http.StatusBadRequest
	case errors.Is(err, game.ErrPreconditionFailed):
		status = http.StatusPreconditionFailed
	case errors.Is(err, game.ErrInvalidState), errors.Is(err, game.ErrInvalidTransition), errors.Is(err, game.ErrConflict):
		status = http.StatusConflict
	}
	writeError(w, status, err.Error())
}

// cloneDeck deep-copies a deck through its JSON form. Decks are small;
// clarity beats speed here.
func cloneDeck(d *deck.Deck) *deck.Deck {
	data, err := json.Marshal(d)
	if err != nil {
		return d
	}
	var out deck.Deck
	if err := json.Unmarshal(data, &out); err != nil {
		return d
	}
	return &out
}
