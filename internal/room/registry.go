package room

import (
	"crypto/rand"
	"fmt"
	"sync"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/quizwire/quizwire/internal/deck"
	"github.com/quizwire/quizwire/internal/game"
)

// Code alphabet excludes visually ambiguous characters (0/O, 1/I).
const codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// CodeLength is the room code length.
const CodeLength = 6

// Registry owns the room code → session mapping. It is safe for concurrent
// use; the collision-retry loop re-checks under the same lock used for
// insertion.
type Registry struct {
	mu    sync.Mutex
	rooms map[string]*game.Session

	clock clockwork.Clock
	bc    game.Broadcaster
}

// NewRegistry builds an empty registry. Sessions it creates share the given
// clock and broadcaster.
func NewRegistry(clock clockwork.Clock, bc game.Broadcaster) *Registry {
	return &Registry{
		rooms: make(map[string]*game.Session),
		clock: clock,
		bc:    bc,
	}
}

// Create validates the deck, generates a unique room code, and stores a new
// lobby-status session.
func (r *Registry) Create(d *deck.Deck, hostID string) (*game.Session, error) {
	if hostID == "" {
		return nil, fmt.Errorf("%w: host id is required", game.ErrInvalidArgument)
	}
	if d == nil {
		return nil, fmt.Errorf("%w: deck is required", game.ErrInvalidArgument)
	}
	if err := d.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", game.ErrInvalidArgument, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	code := randomCode(CodeLength)
	for r.rooms[code] != nil {
		code = randomCode(CodeLength)
	}

	sess := game.NewSession(code, hostID, d, r.clock, r.bc)
	r.rooms[code] = sess

	log.Info().Str("room", code).Str("host", hostID).Str("deck", d.Title).Msg("room created")
	return sess, nil
}

// Get resolves a room code to its session.
func (r *Registry) Get(code string) (*game.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	sess, ok := r.rooms[code]
	if !ok {
		return nil, fmt.Errorf("%w: room %s", game.ErrNotFound, code)
	}
	return sess, nil
}

// Delete removes a room and cancels every timer the session owns, so no
// late callback can mutate a dead or reused code slot.
func (r *Registry) Delete(code string) error {
	r.mu.Lock()
	sess, ok := r.rooms[code]
	if ok {
		delete(r.rooms, code)
	}
	r.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: room %s", game.ErrNotFound, code)
	}

	sess.Close()
	log.Info().Str("room", code).Msg("room deleted")
	return nil
}

// Len reports the number of active rooms.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.rooms)
}

// randomCode draws n characters from the code alphabet using crypto/rand,
// with modulo-rejection to keep the distribution uniform.
func randomCode(n int) string {
	const max = byte(255 - (256 % len(codeAlphabet)))

	out := make([]byte, 0, n)
	buf := make([]byte, n)
	for len(out) < n {
		if _, err := rand.Read(buf); err != nil {
			log.Error().Err(err).Msg("rand.Read error")
			continue
		}
		for _, b := range buf {
			if b <= max && len(out) < n {
				out = append(out, codeAlphabet[int(b)%len(codeAlphabet)])
			}
		}
	}
	return string(out)
}
