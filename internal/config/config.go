package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config is read from the environment, after an optional .env file.
type Config struct {
	Port           string        `env:"PORT" envDefault:"8080"`
	LogLevel       string        `env:"CANVAS_LOG_LEVEL" envDefault:"info"`
	MaxUploadBytes int64         `env:"CANVAS_MAX_UPLOAD_BYTES" envDefault:"10485760"`
	FetchTimeout   time.Duration `env:"CANVAS_FETCH_TIMEOUT" envDefault:"10s"`
	Resample       string        `env:"CANVAS_RESAMPLE" envDefault:"lanczos"`
	DecodeWorkers  int           `env:"CANVAS_DECODE_WORKERS" envDefault:"4"`
	MaxPixels      int           `env:"CANVAS_MAX_PIXELS" envDefault:"40000000"`
	SessionTTL     time.Duration `env:"CANVAS_SESSION_TTL" envDefault:"30m"`
}

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

func Load() (Config, error) {
	var cfg Config
	if err := ParseEnv(&cfg); err != nil {
		return Config{}, err
	}
	if cfg.MaxUploadBytes <= 0 {
		return Config{}, fmt.Errorf("CANVAS_MAX_UPLOAD_BYTES must be positive, got %d", cfg.MaxUploadBytes)
	}
	if cfg.MaxPixels <= 0 {
		return Config{}, fmt.Errorf("CANVAS_MAX_PIXELS must be positive, got %d", cfg.MaxPixels)
	}
	return cfg, nil
}

// SlogLevel maps LogLevel onto slog, defaulting to info.
func (c Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
