package main

import (
	"context"
	"fmt"
	"math"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	slacklib "github.com/slack-go/slack"

	"github.com/publicworks-io/regie/internal/config"
	"github.com/publicworks-io/regie/internal/delegation"
	"github.com/publicworks-io/regie/internal/dossier"
	"github.com/publicworks-io/regie/internal/notify"
	"github.com/publicworks-io/regie/internal/server"
	"github.com/publicworks-io/regie/internal/store/postgres"
	redisstore "github.com/publicworks-io/regie/internal/store/redis"
)

func main() {
	if err := run(); err != nil {
		log.Fatal().Err(err).Msg("startup failed")
	}
}

func run() error {
	// Initialize structured logging from environment.
	logLevel := os.Getenv("REGIE_LOG_LEVEL")
	level, parseErr := zerolog.ParseLevel(logLevel)
	if parseErr != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	logFormat := os.Getenv("REGIE_LOG_FORMAT")
	if logFormat == "text" {
		log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	} else {
		log.Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
	}

	ctx := context.Background()

	// Load configuration from environment.
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	if cfg.Database.MaxConns < 0 || cfg.Database.MaxConns > math.MaxInt32 {
		return fmt.Errorf("database max_conns %d out of int32 range", cfg.Database.MaxConns)
	}

	// Connect to PostgreSQL and apply the schema.
	store, err := postgres.New(ctx, cfg.Database.DSN(), int32(cfg.Database.MaxConns)) //nolint:gosec // bounds checked above
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.EnsureSchema(ctx); err != nil {
		return err
	}

	// Notification fan-out. The log sink is always on; Slack and the
	// redis transition feed are wired only when configured.
	sinks := []notify.Sink{notify.LogSink{}}

	if cfg.Redis.Addr != "" {
		pubsub, pubsubErr := redisstore.New(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if pubsubErr != nil {
			return pubsubErr
		}
		defer pubsub.Close()
		sinks = append(sinks, notify.NewPubSubSink(pubsub, redisstore.TransitionsChannel))
		log.Info().Str("addr", cfg.Redis.Addr).Msg("redis transition feed enabled")
	}

	if cfg.Slack.BotToken != "" {
		slackClient := slacklib.New(cfg.Slack.BotToken)
		sinks = append(sinks, notify.NewSlackSink(slackClient, cfg.Slack.Channel))
		log.Info().Str("channel", cfg.Slack.Channel).Msg("slack notifications enabled")
	}

	dispatcher := notify.NewDispatcher(sinks...)

	// Lifecycle engine and dossier comment trail.
	delegations := delegation.NewService(store, dispatcher, delegation.WithMaxBatch(cfg.Batch.MaxItems))
	dossiers := dossier.NewTrail(store.DossierComments())

	// Graceful shutdown on SIGINT / SIGTERM.
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Create HTTP server with all routes wired.
	srv := server.New(ctx, cfg, delegations, dossiers)

	// Start server in background goroutine.
	go func() {
		log.Info().Str("addr", cfg.Server.Addr).Msg("starting server")
		if startErr := srv.Start(ctx); startErr != nil {
			log.Error().Err(startErr).Msg("server error")
		}
	}()

	// Block until shutdown signal.
	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if shutdownErr := srv.Shutdown(shutdownCtx); shutdownErr != nil {
		return shutdownErr
	}

	log.Info().Msg("stopped")
	return nil
}
