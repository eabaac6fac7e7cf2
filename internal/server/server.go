package server

import (
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/rs/cors"
	"github.com/rs/zerolog/log"

	"github.com/quizwire/quizwire/internal/deck"
	"github.com/quizwire/quizwire/internal/gateway"
	"github.com/quizwire/quizwire/internal/room"
)

// Version is the release version reported by /version.
const Version = "0.1.0"

// Config holds the HTTP surface settings.
type Config struct {
	Bind string
	Port int

	// ExternalURL is the address clients reach the server at, used to
	// build join links for QR codes. Defaults to the bind address.
	ExternalURL string
}

// Addr returns the listen address.
func (c Config) Addr() string {
	return net.JoinHostPort(c.Bind, strconv.Itoa(c.Port))
}

func (c Config) externalURL() string {
	if c.ExternalURL != "" {
		return c.ExternalURL
	}
	return fmt.Sprintf("http://%s", c.Addr())
}

// Server is the HTTP surface: room lifecycle, join QR codes, health, and
// the WebSocket mount.
type Server struct {
	cfg      Config
	registry *room.Registry
	manager  *gateway.Manager
	decks    map[string]*deck.Deck
}

// New builds the server. The deck map is the deck-source collaborator:
// named, pre-validated decks available to room creation.
func New(cfg Config, registry *room.Registry, manager *gateway.Manager, decks map[string]*deck.Deck) *Server {
	if decks == nil {
		decks = make(map[string]*deck.Deck)
	}
	return &Server{cfg: cfg, registry: registry, manager: manager, decks: decks}
}

// Handler assembles the route table and middleware.
func (s *Server) Handler() http.Handler {
	mux := httprouter.New()

	mux.POST("/rooms", s.handleCreateRoom)
	mux.GET("/rooms/:code", s.handleGetRoom)
	mux.POST("/rooms/:code/start", s.handleStartRoom)
	mux.POST("/rooms/:code/end", s.handleEndRoom)
	mux.DELETE("/rooms/:code", s.handleDeleteRoom)
	mux.GET("/rooms/:code/qr", s.handleRoomQR)

	mux.HandlerFunc(http.MethodGet, "/ws", s.handleWebSocket)
	mux.HandlerFunc(http.MethodGet, "/healthz", s.handleHealth)
	mux.HandlerFunc(http.MethodGet, "/version", s.handleVersion)

	c := cors.New(cors.Options{
		AllowedMethods: []string{
			http.MethodHead,
			http.MethodGet,
			http.MethodPost,
			http.MethodDelete,
		},
		AllowedOrigins: []string{"*"},
		AllowedHeaders: []string{"*"},
	})
	return c.Handler(mux)
}

// HTTPServer returns a configured http.Server ready to listen.
func (s *Server) HTTPServer() *http.Server {
	return &http.Server{
		Addr:              s.cfg.Addr(),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       10 * time.Minute,
	}
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	if err := s.manager.Serve(w, r); err != nil {
		log.Error().Err(err).Str("remote", r.RemoteAddr).Msg("websocket upgrade failed")
		http.Error(w, "failed to upgrade connection", http.StatusInternalServerError)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

func (s *Server) handleVersion(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprintf(w, "quizwire v%s\n", Version)
}
