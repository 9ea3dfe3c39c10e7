package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tatianab/werewolf/internal/agent"
	"github.com/tatianab/werewolf/internal/archive"
	"github.com/tatianab/werewolf/internal/config"
	"github.com/tatianab/werewolf/internal/logging"
	"github.com/tatianab/werewolf/internal/models"
	"github.com/tatianab/werewolf/internal/server"
	"github.com/tatianab/werewolf/internal/session"
)

func main() {
	configPath := flag.String("config", "werewolf.toml", "path to the TOML config file")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	boot := logging.New(os.Stderr, "info", true)
	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		boot.Fatal().Err(err).Msg("load config")
	}
	log := logging.New(os.Stderr, cfg.LogLevel, true)
	models.SaveDir = cfg.SaveDir

	gen, err := agent.NewGemini(ctx, cfg.GeminiAPIKey, cfg.Model, cfg.Temperature)
	if err != nil {
		log.Fatal().Err(err).Msg("create Gemini client")
	}
	defer gen.Close()

	var store server.Archive
	if cfg.ArchivePath != "" {
		db, err := archive.Open(cfg.ArchivePath)
		if err != nil {
			log.Fatal().Err(err).Str("path", cfg.ArchivePath).Msg("open archive")
		}
		defer db.Close()
		store = db
	}

	sessions := session.NewRegistry(session.NewFactory(agent.Roster(gen, log), cfg.Limits(), log), log)
	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           server.New(sessions, store, log),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("shutdown")
		}
	}()

	log.Info().Str("addr", cfg.Addr).Bool("archive", store != nil).Msg("listening")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal().Err(err).Msg("serve")
	}
}
