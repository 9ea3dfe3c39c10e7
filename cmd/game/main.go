package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"

	"github.com/google/uuid"
	"github.com/tatianab/werewolf/internal/agent"
	"github.com/tatianab/werewolf/internal/config"
	"github.com/tatianab/werewolf/internal/logging"
	"github.com/tatianab/werewolf/internal/models"
	"github.com/tatianab/werewolf/internal/session"
	"github.com/tatianab/werewolf/internal/tui"
)

func main() {
	configPath := flag.String("config", "werewolf.toml", "path to the TOML config file")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Printf("Error loading config: %v\n", err)
		os.Exit(1)
	}

	models.SaveDir = cfg.SaveDir

	// The terminal belongs to the game; logs go to a file.
	logFile, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		fmt.Printf("Error opening log file: %v\n", err)
		os.Exit(1)
	}
	defer logFile.Close()
	log := logging.New(logFile, cfg.LogLevel, false)

	gen, err := agent.NewGemini(ctx, cfg.GeminiAPIKey, cfg.Model, cfg.Temperature)
	if err != nil {
		fmt.Printf("Error creating Gemini client: %v\n", err)
		os.Exit(1)
	}
	defer gen.Close()

	factory := session.NewFactory(agent.Roster(gen, log), cfg.Limits(), log)
	sess := session.New(uuid.NewString(), factory, log)
	log.Info().Str("session", sess.ID).Str("human_role", string(sess.HumanRole())).Msg("local game started")

	if err := tui.Run(ctx, sess); err != nil {
		fmt.Printf("Error running TUI: %v\n", err)
		os.Exit(1)
	}
}
