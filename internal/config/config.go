package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
	"github.com/caarlos0/env/v11"
	"github.com/tatianab/werewolf/internal/engine"
)

// Config holds the application configuration.
type Config struct {
	GeminiAPIKey string  `toml:"gemini_api_key" env:"GEMINI_API_KEY"`
	Model        string  `toml:"model" env:"WEREWOLF_MODEL"`
	Temperature  float32 `toml:"temperature" env:"WEREWOLF_TEMPERATURE"`

	Addr        string `toml:"addr" env:"WEREWOLF_ADDR"`
	SaveDir     string `toml:"save_dir" env:"WEREWOLF_SAVE_DIR"`
	ArchivePath string `toml:"archive_path" env:"WEREWOLF_ARCHIVE_PATH"`
	LogLevel    string `toml:"log_level" env:"WEREWOLF_LOG_LEVEL"`
	LogFile     string `toml:"log_file" env:"WEREWOLF_LOG_FILE"`

	MaxDay           int `toml:"max_day" env:"WEREWOLF_MAX_DAY"`
	MaxSteps         int `toml:"max_steps" env:"WEREWOLF_MAX_STEPS"`
	MaxRetries       int `toml:"max_retries" env:"WEREWOLF_MAX_RETRIES"`
	MaxConversations int `toml:"max_conversations" env:"WEREWOLF_MAX_CONVERSATIONS"`
}

func Default() Config {
	return Config{
		Model:            "gemini-2.5-flash",
		Temperature:      0.7,
		Addr:             ":8000",
		SaveDir:          ".saves",
		LogLevel:         "info",
		LogFile:          "werewolf.log",
		MaxDay:           6,
		MaxSteps:         500,
		MaxRetries:       3,
		MaxConversations: 2,
	}
}

// LoadConfig starts from the defaults, applies the TOML file at path when it
// exists, then environment variables.
func LoadConfig(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("config parse failed (%s): %w", path, err)
		}
	}
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.GeminiAPIKey == "" {
		return fmt.Errorf("GEMINI_API_KEY environment variable is not set")
	}
	if c.MaxDay < 1 || c.MaxSteps < 1 {
		return fmt.Errorf("max_day and max_steps must be positive")
	}
	if c.MaxRetries < 0 || c.MaxConversations < 0 {
		return fmt.Errorf("max_retries and max_conversations cannot be negative")
	}
	return nil
}

// Limits returns the game loop caps.
func (c *Config) Limits() engine.Limits {
	return engine.Limits{
		MaxDay:           c.MaxDay,
		MaxSteps:         c.MaxSteps,
		MaxRetries:       c.MaxRetries,
		MaxConversations: c.MaxConversations,
	}
}
