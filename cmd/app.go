package cmd

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/abhisek/testprep/internal/attempt"
	"github.com/abhisek/testprep/internal/config"
	"github.com/abhisek/testprep/internal/emergency"
	"github.com/abhisek/testprep/internal/events"
	"github.com/abhisek/testprep/internal/logging"
	"github.com/abhisek/testprep/internal/quota"
	"github.com/abhisek/testprep/internal/rewards"
	"github.com/abhisek/testprep/internal/selection"
	"github.com/abhisek/testprep/internal/store"
)

// app bundles the services a command needs. Build it with openApp and
// release it with Close.
type app struct {
	cfg    config.Config
	logger *slog.Logger
	user   string

	store     *store.Store
	publisher *events.AMQPPublisher
	redis     *redis.Client

	limiter   *quota.Limiter
	attempts  *attempt.Engine
	emergency *emergency.Service
	rewards   *rewards.Service
}

// openApp resolves configuration, opens the store and wires every service.
// Optional collaborators (AMQP, Redis) that fail to connect are logged and
// skipped.
func openApp(cmd *cobra.Command) (*app, error) {
	ctx := cmd.Context()

	cfg, err := resolveConfig(cmd)
	if err != nil {
		return nil, err
	}
	logger := logging.New(cfg.LogLevel, cfg.LogFormat, os.Stderr)

	dsn, err := resolveDSN(cfg)
	if err != nil {
		return nil, fmt.Errorf("resolve database path: %w", err)
	}
	st, err := store.Open(ctx, store.Driver(cfg.DBDriver), dsn)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	a := &app{cfg: cfg, logger: logger, user: cfg.User, store: st}

	var sinks []events.Sink
	a.rewards = rewards.NewService(st, cfg.DefaultTier, logger)
	sinks = append(sinks, a.rewards)

	if cfg.AMQP.URL != "" {
		pub, err := events.NewAMQPPublisher(cfg.AMQP.URL, cfg.AMQP.Exchange, logger)
		if err != nil {
			logger.Warn("event publisher not configured, events stay local", "error", err)
		} else {
			a.publisher = pub
			sinks = append(sinks, pub)
		}
	}
	dispatcher := events.NewDispatcher(logger, sinks...)

	var counter quota.Counter = quota.NewSQLCounter(st)
	if cfg.Redis.Addr != "" {
		client, err := quota.DialRedis(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			logger.Warn("redis unavailable, counting attempts from the database", "error", err)
		} else {
			a.redis = client
			counter = quota.NewRedisCounter(client)
		}
	}
	a.limiter = quota.NewLimiter(st, counter, quota.DefaultTiers(), cfg.DefaultTier)

	sel := selection.New(st, nil)

	attemptCfg := attempt.DefaultConfig()
	attemptCfg.ProficiencyThreshold = cfg.ProficiencyThreshold
	attemptCfg.DefaultTier = cfg.DefaultTier
	a.attempts = attempt.New(st, sel, a.limiter, dispatcher, attemptCfg, logger)

	emergencyCfg := emergency.DefaultConfig()
	emergencyCfg.ProficiencyThreshold = cfg.ProficiencyThreshold
	gen := emergency.NewGenerator(st, emergencyCfg, nil)
	a.emergency = emergency.NewService(st, gen, sel, dispatcher, logger)

	return a, nil
}

// Close releases every connection the app opened.
func (a *app) Close() error {
	var errs []error
	if a.publisher != nil {
		errs = append(errs, a.publisher.Close())
	}
	if a.redis != nil {
		errs = append(errs, a.redis.Close())
	}
	errs = append(errs, a.store.Close())
	return errors.Join(errs...)
}

// resolveConfig applies persistent flag overrides on top of the environment.
func resolveConfig(cmd *cobra.Command) (config.Config, error) {
	cfg := config.FromEnv()
	if v, _ := cmd.Flags().GetString("driver"); v != "" {
		cfg.DBDriver = v
	}
	if v, _ := cmd.Flags().GetString("db"); v != "" {
		cfg.DBDSN = v
	}
	if v, _ := cmd.Flags().GetString("user"); v != "" {
		cfg.User = v
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// resolveDSN returns the connection string for the configured driver. For
// sqlite it falls back to the default XDG path and makes sure the parent
// directory exists.
func resolveDSN(cfg config.Config) (string, error) {
	if store.Driver(cfg.DBDriver) != store.DriverSQLite {
		return cfg.DBDSN, nil
	}
	if cfg.DBDSN != "" {
		return cfg.DBDSN, store.EnsureDir(cfg.DBDSN)
	}
	return store.DefaultDBPath()
}

// withApp opens the app, runs fn and closes the app again.
func withApp(cmd *cobra.Command, fn func(a *app) error) error {
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			a.logger.Warn("close", "error", err)
		}
	}()
	return fn(a)
}
