package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config is the process configuration, read from the environment with
// an optional .env file for local development. DATABASE_URL left empty
// selects the in-memory store.
type Config struct {
	Port        int    `env:"PORT" envDefault:"8080"`
	DatabaseURL string `env:"DATABASE_URL"`

	// GracePeriod is how long a disconnected participant's seat is
	// held for a rejoin.
	GracePeriod time.Duration `env:"GRACE_PERIOD" envDefault:"1m"`

	// RoomIdleTTL is how long an empty room is kept before the sweep
	// deletes it.
	RoomIdleTTL   time.Duration `env:"ROOM_IDLE_TTL" envDefault:"1h"`
	SweepInterval time.Duration `env:"SWEEP_INTERVAL" envDefault:"30s"`

	AllowedOrigins   []string `env:"ALLOWED_ORIGINS" envSeparator:"," envDefault:"http://localhost:3000"`
	WSOriginPatterns []string `env:"WS_ORIGIN_PATTERNS" envSeparator:"," envDefault:"localhost:*"`
}

func Load() (Config, error) {
	_ = godotenv.Load() // missing .env is fine

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if cfg.GracePeriod <= 0 {
		return Config{}, fmt.Errorf("GRACE_PERIOD must be positive")
	}
	if cfg.RoomIdleTTL <= 0 {
		return Config{}, fmt.Errorf("ROOM_IDLE_TTL must be positive")
	}
	return cfg, nil
}
