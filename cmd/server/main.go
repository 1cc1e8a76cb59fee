package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	router "github.com/dkurin/huddle/internal/adapters/http"
	signaladapter "github.com/dkurin/huddle/internal/adapters/signal"
	"github.com/dkurin/huddle/internal/app"
	"github.com/dkurin/huddle/internal/auth"
	"github.com/dkurin/huddle/internal/config"
	"github.com/dkurin/huddle/internal/mailer"
	"github.com/dkurin/huddle/internal/storage"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Initialize zerolog global logger early so config.Load can use it.
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	if cfg.Mode == "debug" {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	db := openStore(ctx, cfg)
	if db == nil {
		return
	}
	defer db.Close()

	users := storage.NewUsers(db)
	meetings := storage.NewMeetings(db)
	mail := storage.NewMailJobs(db)

	if err := users.EnsureRoot(ctx, storage.RootAccount{
		Username:  cfg.RootUsername,
		Email:     cfg.RootEmail,
		Password:  cfg.RootPassword,
		FirstName: cfg.RootFirstName,
		LastName:  cfg.RootLastName,
	}); err != nil {
		log.Fatal().Err(err).Msg("root account bootstrap")
	}
	// No connection survives a restart; peer lists start empty.
	if err := meetings.ClearAllPeers(ctx); err != nil {
		log.Fatal().Err(err).Msg("peer list reset")
	}

	coord := app.NewCoordinator(users, meetings, nil)
	tokens := auth.NewTokens(cfg.Secret, cfg.TokenTTL)
	wsCtl := signaladapter.NewController(coord, tokens, users, cfg.HandshakeTimeout, cfg.ReadLimit)

	if cfg.MailerEnabled {
		transport := &mailer.SMTP{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
		}
		go mailer.NewDispatcher(mail, transport, cfg.MailerInterval).Run(ctx)
	}

	r := router.SetupRouter(ctx, cfg, router.Deps{
		Coord:    coord,
		Tokens:   tokens,
		Users:    users,
		Meetings: meetings,
		Mail:     mail,
		Signal:   wsCtl,
	})

	srv := &http.Server{
		Addr:    cfg.Addr(),
		Handler: r,
	}

	go serve(ctx, srv, cfg.ListenRetry)

	<-ctx.Done()
	log.Info().Msg("Shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	log.Info().Msg("Server exited gracefully")
}

// openStore opens the data directory, retrying on a fixed delay the way
// the listen loop does. Returns nil only when shutdown wins the race.
func openStore(ctx context.Context, cfg *config.Config) *badger.DB {
	for {
		db, err := storage.Open(cfg.DataDir)
		if err == nil {
			return db
		}
		log.Error().Err(err).Dur("retry_in", cfg.ListenRetry).Msg("store unavailable, retrying")
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(cfg.ListenRetry):
		}
	}
}

// serve retries a failed bind on a fixed delay instead of exiting; a
// previous instance may still be letting go of the port.
func serve(ctx context.Context, srv *http.Server, retry time.Duration) {
	for {
		log.Info().Str("addr", srv.Addr).Msg("Huddle server started")
		err := srv.ListenAndServe()
		if err == nil || errors.Is(err, http.ErrServerClosed) {
			return
		}
		log.Error().Err(err).Dur("retry_in", retry).Msg("listen failed, retrying")
		select {
		case <-ctx.Done():
			return
		case <-time.After(retry):
		}
	}
}
