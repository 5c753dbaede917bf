// Package main provides the irened daemon: the HTTP backend the
// desktop overlay talks to.
package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/irene-overlay/irene/internal/api"
	"github.com/irene-overlay/irene/internal/chat"
	"github.com/irene-overlay/irene/internal/config"
	"github.com/irene-overlay/irene/internal/exec"
	"github.com/irene-overlay/irene/internal/gemini"
	"github.com/irene-overlay/irene/internal/store"
)

// Version is set at build time via ldflags.
var Version = "dev"

func main() {
	configPath := flag.String("config", defaultConfigPath(), "Path to config file")
	debug := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if *debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	if err := godotenv.Load(); err != nil {
		log.Debug().Msg("No .env file found, using environment variables")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Warn().Err(err).Str("path", *configPath).Msg("Failed to load config, using defaults")
		cfg = config.Default()
	}
	if !cfg.HasAPIKey() {
		log.Warn().Msg("No Gemini API key configured, model calls will fail to fallback responses")
	}

	manager := config.NewManager(*configPath, cfg)

	watcher, err := config.NewWatcher(manager)
	if err != nil {
		log.Warn().Err(err).Msg("Config watcher unavailable, hot reload disabled")
	} else if err := watcher.Start(); err != nil {
		log.Warn().Err(err).Msg("Failed to start config watcher")
	} else {
		defer watcher.Stop()
	}

	history, err := store.NewSQLite(cfg.DBPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.DBPath).Msg("Failed to open conversation store")
	}
	defer history.Close()

	if err := history.Ping(context.Background()); err != nil {
		log.Fatal().Err(err).Msg("Database health check failed")
	}

	model := gemini.NewClient(manager)
	runner := exec.New(cfg.CommandTimeout, cfg.MaxCommandOutput)
	svc := chat.NewService(manager, history, model, runner)

	if err := svc.EnsureDefaultChat(context.Background()); err != nil {
		log.Fatal().Err(err).Msg("Failed to prepare default chat")
	}

	srv := &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      api.NewHandler(svc, history, manager).Router(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 5 * time.Minute, // model turns can be slow
		IdleTimeout:  120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Str("addr", srv.Addr).Str("version", Version).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		log.Info().Msg("Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Fatal().Err(err).Msg("Server error")
	}
	log.Info().Msg("Server stopped")
}

func defaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "config.yaml"
	}
	return filepath.Join(home, ".irene", "config.yaml")
}
