package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds process-wide settings for the CLI and the engine.
type Config struct {
	// DBDriver selects the storage backend. Values: "sqlite", "postgres".
	DBDriver string

	// DBDSN is a sqlite file path or a postgres connection string.
	// Empty means the default sqlite path.
	DBDSN string

	AMQP  AMQPConfig
	Redis RedisConfig

	LogLevel  string // debug|info|warn|error
	LogFormat string // text|json

	// ProficiencyThreshold is the score below which a skill counts as
	// not mastered. Default: 0.6.
	ProficiencyThreshold float64

	// DefaultTier applies to learners without a profile row.
	DefaultTier string

	// User is the learner id CLI commands act for.
	User string
}

// AMQPConfig configures the event publisher. An empty URL disables it.
type AMQPConfig struct {
	URL      string
	Exchange string
}

// RedisConfig configures the shared quota counter. An empty Addr means
// attempts are counted from the database instead.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		DBDriver: "sqlite",
		AMQP: AMQPConfig{
			Exchange: "testprep-events",
		},
		LogLevel:             "info",
		LogFormat:            "text",
		ProficiencyThreshold: 0.6,
		DefaultTier:          "free",
		User:                 "local",
	}
}

// FromEnv builds a Config from TESTPREP_* environment variables. A .env
// file in the working directory is loaded first when present; variables
// already set in the environment win.
func FromEnv() Config {
	_ = godotenv.Load()

	def := DefaultConfig()
	return Config{
		DBDriver: envOr("TESTPREP_DB_DRIVER", def.DBDriver),
		DBDSN:    envOr("TESTPREP_DB", def.DBDSN),
		AMQP: AMQPConfig{
			URL:      envOr("TESTPREP_AMQP_URL", ""),
			Exchange: envOr("TESTPREP_AMQP_EXCHANGE", def.AMQP.Exchange),
		},
		Redis: RedisConfig{
			Addr:     envOr("TESTPREP_REDIS_ADDR", ""),
			Password: envOr("TESTPREP_REDIS_PASSWORD", ""),
			DB:       envInt("TESTPREP_REDIS_DB", 0),
		},
		LogLevel:             envOr("TESTPREP_LOG_LEVEL", def.LogLevel),
		LogFormat:            envOr("TESTPREP_LOG_FORMAT", def.LogFormat),
		ProficiencyThreshold: envFloat("TESTPREP_PROFICIENCY_THRESHOLD", def.ProficiencyThreshold),
		DefaultTier:          envOr("TESTPREP_DEFAULT_TIER", def.DefaultTier),
		User:                 envOr("TESTPREP_USER", def.User),
	}
}

// Validate checks values that would otherwise fail deep inside the engine.
func (c Config) Validate() error {
	switch c.DBDriver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("unknown database driver: %q", c.DBDriver)
	}
	if c.DBDriver == "postgres" && c.DBDSN == "" {
		return fmt.Errorf("TESTPREP_DB is required for the postgres driver")
	}
	if c.ProficiencyThreshold <= 0 || c.ProficiencyThreshold > 1 {
		return fmt.Errorf("proficiency threshold must be in (0, 1], got %v", c.ProficiencyThreshold)
	}
	return nil
}

func envOr(k, def string) string {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		return v
	}
	return def
}

func envInt(k string, def int) int {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func envFloat(k string, def float64) float64 {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return f
}
