package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/quizwire/quizwire/internal/deck"
	"github.com/quizwire/quizwire/internal/gateway"
	"github.com/quizwire/quizwire/internal/room"
	"github.com/quizwire/quizwire/internal/server"
)

const version = server.Version

const httpShutdownTimeout = 10 * time.Second

func run(ctx context.Context, cfg *config) error {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Warn().Err(err).Msg("could not load .env file")
	}

	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if cfg.verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	decks := make(map[string]*deck.Deck)
	if cfg.deckDir != "" {
		var err error
		decks, err = deck.LoadDir(cfg.deckDir)
		if err != nil {
			return err
		}
	}

	manager := gateway.NewManager(gateway.DefaultConfig())
	registry := room.NewRegistry(clockwork.NewRealClock(), manager)
	gateway.NewRouter(registry, manager)

	srv := server.New(server.Config{
		Bind:        cfg.bind,
		Port:        cfg.port,
		ExternalURL: cfg.externalURL,
	}, registry, manager, decks)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	go manager.Run(ctx)

	httpSrv := srv.HTTPServer()
	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", httpSrv.Addr).Str("version", version).Int("decks", len(decks)).
			Msg("quizwire listening")
		errCh <- httpSrv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	case <-ctx.Done():
		log.Info().Msg("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), httpShutdownTimeout)
		defer cancel()
		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			return err
		}
	}
	return nil
}
