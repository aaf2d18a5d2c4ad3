// Package config loads the service configuration from the environment and
// opens the database connection.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	Port    string `env:"PORT" envDefault:"8080"`
	GinMode string `env:"GIN_MODE" envDefault:"debug"`

	DBDriver string `env:"DB_DRIVER" envDefault:"sqlite"`
	DBDSN    string `env:"DB_DSN" envDefault:"restaurant_pos.db"`

	JWTSecret string `env:"JWT_SECRET"`
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`

	TaxRate         float64 `env:"TAX_RATE" envDefault:"0"`
	PointsUnit      int64   `env:"POINTS_UNIT" envDefault:"10000"`
	TableNamePrefix string  `env:"TABLE_NAME_PREFIX" envDefault:"Table"`

	CORSOrigins    []string `env:"CORS_ORIGINS" envSeparator:"," envDefault:"http://localhost:5173"`
	RateLimitRPS   float64  `env:"RATE_LIMIT_RPS" envDefault:"20"`
	RateLimitBurst int      `env:"RATE_LIMIT_BURST" envDefault:"40"`

	AMQPURL      string        `env:"AMQP_URL"`
	OTELEndpoint string        `env:"OTEL_ENDPOINT"`
	ShutdownWait time.Duration `env:"SHUTDOWN_WAIT" envDefault:"10s"`
}

// Load reads an optional .env file and parses the environment into Config.
func Load(envFiles ...string) (Config, error) {
	if err := godotenv.Load(envFiles...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load env file: %w", err)
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects values the services cannot work with.
func (c Config) Validate() error {
	if c.TaxRate < 0 || c.TaxRate > 1 {
		return fmt.Errorf("TAX_RATE must be within [0,1], got %v", c.TaxRate)
	}
	if c.PointsUnit <= 0 {
		return fmt.Errorf("POINTS_UNIT must be positive, got %d", c.PointsUnit)
	}
	switch c.DBDriver {
	case "sqlite", "mysql", "postgres":
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.DBDriver)
	}
	return nil
}
