// Package config loads runtime settings from the environment.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/talgya/sutki/internal/economy"
)

// Config holds every tunable of the sutki host.
type Config struct {
	DBPath        string        `env:"SUTKI_DB_PATH" envDefault:"data/sutki.db"`
	Port          int           `env:"SUTKI_PORT" envDefault:"8080"`
	TickInterval  time.Duration `env:"SUTKI_TICK_INTERVAL" envDefault:"100ms"`
	AutosaveEvery uint64        `env:"SUTKI_AUTOSAVE_EVERY" envDefault:"600"`
	SaveKeep      int           `env:"SUTKI_SAVE_KEEP" envDefault:"10"`

	// DayOffset shifts the wall clock before the day slot is read. Debug only;
	// never saved.
	DayOffset time.Duration `env:"SUTKI_DAY_OFFSET" envDefault:"1s"`
	MaxDelta  time.Duration `env:"SUTKI_MAX_DELTA" envDefault:"24h"`

	CatalogPath string     `env:"SUTKI_CATALOG"`
	AdminKey    string     `env:"SUTKI_ADMIN_KEY"`
	LogLevel    slog.Level `env:"SUTKI_LOG_LEVEL" envDefault:"info"`

	RateLimit float64 `env:"SUTKI_RATE_LIMIT" envDefault:"10"`
	RateBurst int     `env:"SUTKI_RATE_BURST" envDefault:"20"`

	// TrustProxy keys rate limits on X-Forwarded-For. Only safe behind a proxy
	// that sets the header itself.
	TrustProxy  bool     `env:"SUTKI_TRUST_PROXY" envDefault:"false"`
	CORSOrigins []string `env:"SUTKI_CORS_ORIGINS" envSeparator:","`
}

// Load parses the environment into a Config.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if cfg.TickInterval <= 0 {
		return Config{}, fmt.Errorf("SUTKI_TICK_INTERVAL must be positive, got %s", cfg.TickInterval)
	}
	return cfg, nil
}

// Catalog returns the upgrade catalog: the file at CatalogPath when set,
// otherwise the one built in.
func (c Config) Catalog() (economy.Catalog, error) {
	if c.CatalogPath == "" {
		return economy.DefaultCatalog(), nil
	}
	data, err := os.ReadFile(c.CatalogPath)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return economy.ParseCatalog(data)
}
