package room

import (
	"errors"
	"strings"
	"testing"

	"github.com/jonboulle/clockwork"

	"github.com/quizwire/quizwire/internal/deck"
	"github.com/quizwire/quizwire/internal/game"
)

type noopBroadcaster struct{}

func (noopBroadcaster) Broadcast(string, game.EventType, any) {}

func testDeck() *deck.Deck {
	return &deck.Deck{
		Title: "Test",
		Rounds: []deck.Round{
			{
				ID:   "r1",
				Name: "Round One",
				Categories: []deck.Category{
					{ID: "c1", Name: "Games", Clues: []deck.Clue{
						{ID: "q1", Value: 200, Text: "t", AcceptableAnswers: []string{"a"}},
					}},
				},
			},
		},
	}
}

func newTestRegistry() *Registry {
	return NewRegistry(clockwork.NewFakeClock(), noopBroadcaster{})
}

func TestCreateAndGet(t *testing.T) {
	r := newTestRegistry()

	sess, err := r.Create(testDeck(), "host-1")
	if err != nil {
		t.Fatalf("Create() failed: %v", err)
	}
	t.Cleanup(sess.Close)

	if sess.HostID() != "host-1" {
		t.Errorf("host = %q, want host-1", sess.HostID())
	}
	if r.Len() != 1 {
		t.Errorf("Len() = %d, want 1", r.Len())
	}

	got, err := r.Get(sess.Code())
	if err != nil {
		t.Fatalf("Get() failed: %v", err)
	}
	if got != sess {
		t.Error("Get() returned a different session")
	}

	if _, err := r.Get("NOPE99"); !errors.Is(err, game.ErrNotFound) {
		t.Errorf("unknown code: got %v, want ErrNotFound", err)
	}
}

func TestCreateValidation(t *testing.T) {
	r := newTestRegistry()

	if _, err := r.Create(testDeck(), ""); !errors.Is(err, game.ErrInvalidArgument) {
		t.Errorf("missing host: got %v, want ErrInvalidArgument", err)
	}
	if _, err := r.Create(nil, "host-1"); !errors.Is(err, game.ErrInvalidArgument) {
		t.Errorf("nil deck: got %v, want ErrInvalidArgument", err)
	}

	bad := testDeck()
	bad.Rounds = nil
	if _, err := r.Create(bad, "host-1"); !errors.Is(err, game.ErrInvalidArgument) {
		t.Errorf("invalid deck: got %v, want ErrInvalidArgument", err)
	}

	if r.Len() != 0 {
		t.Errorf("failed creates left %d rooms behind", r.Len())
	}
}

func TestDelete(t *testing.T) {
	r := newTestRegistry()
	sess, err := r.Create(testDeck(), "host-1")
	if err != nil {
		t.Fatal(err)
	}

	if err := r.Delete(sess.Code()); err != nil {
		t.Fatalf("Delete() failed: %v", err)
	}
	if r.Len() != 0 {
		t.Errorf("Len() = %d after delete, want 0", r.Len())
	}
	if _, err := r.Get(sess.Code()); !errors.Is(err, game.ErrNotFound) {
		t.Errorf("deleted room still resolvable: %v", err)
	}

	if err := r.Delete(sess.Code()); !errors.Is(err, game.ErrNotFound) {
		t.Errorf("double delete: got %v, want ErrNotFound", err)
	}
}

func TestRoomCodes(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 200; i++ {
		code := randomCode(CodeLength)
		if len(code) != CodeLength {
			t.Fatalf("code %q has length %d, want %d", code, len(code), CodeLength)
		}
		for _, c := range code {
			if !strings.ContainsRune(codeAlphabet, c) {
				t.Fatalf("code %q contains %q, outside the alphabet", code, c)
			}
		}
		seen[code] = true
	}
	// 32^6 codes; 200 draws colliding would point at a broken generator.
	if len(seen) < 199 {
		t.Errorf("%d distinct codes out of 200 draws", len(seen))
	}
}

func TestCodesAvoidAmbiguousCharacters(t *testing.T) {
	for _, c := range "01OIl" {
		if strings.ContainsRune(codeAlphabet, c) {
			t.Errorf("alphabet contains ambiguous character %q", c)
		}
	}
}
