package main

import (
	"context"
	"fmt"
	"time"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/moss/config"
	"github.com/Ramsey-B/moss/pkg/database"
	"github.com/Ramsey-B/moss/pkg/health"
	"github.com/Ramsey-B/moss/pkg/ili2db"
	"github.com/Ramsey-B/moss/pkg/lock"
	"github.com/Ramsey-B/moss/pkg/logging"
	"github.com/Ramsey-B/moss/pkg/metrics"
	"github.com/Ramsey-B/moss/pkg/orchestrator"
	"github.com/Ramsey-B/moss/pkg/progress"
	"github.com/Ramsey-B/moss/pkg/tracing"
)

// app holds the process wide dependencies of one command.
type app struct {
	cfg     *config.Config
	logs    *logging.Factory
	logger  ectologger.Logger
	orch    *orchestrator.Orchestrator
	health  *health.Checker
	closers []func(context.Context) error
}

// newApp wires the orchestrator. Without withDB no connection is opened,
// which is enough for detection and validation.
func newApp(ctx context.Context, configPath string, withDB bool) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	logs, err := logging.New(cfg)
	if err != nil {
		return nil, err
	}
	a := &app{
		cfg:    cfg,
		logs:   logs,
		logger: logs.Logger(),
		health: health.NewChecker(Version),
	}

	shutdown, err := tracing.Setup(ctx, cfg, Version)
	if err != nil {
		a.close(ctx)
		return nil, fmt.Errorf("failed to set up tracing: %w", err)
	}
	a.closers = append(a.closers, shutdown)

	opts := orchestrator.Options{Config: cfg, Logs: logs, Logger: a.logger}

	var db database.DB
	if withDB {
		if db, err = a.openDatabase(ctx); err != nil {
			a.close(ctx)
			return nil, err
		}
		a.closers = append(a.closers, func(context.Context) error { return db.Close() })
		a.health.Require("database", db.PingContext)
		opts.Store = orchestrator.NewSQLStore(db, a.logger)
	}
	opts.Tools = ili2db.New(ili2db.FromConfig(cfg), ili2db.ExecRunner{}, db, a.logger).Observe(metrics.ObserveTool)

	if cfg.RedisHost != "" {
		rdb, err := lock.Connect(ctx, lock.RedisConfig{
			Host:     cfg.RedisHost,
			Port:     cfg.RedisPort,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		}, a.logger)
		if err != nil {
			a.close(ctx)
			return nil, err
		}
		a.closers = append(a.closers, func(context.Context) error { return rdb.Close() })
		a.health.Optional("redis", func(ctx context.Context) error { return rdb.Ping(ctx).Err() })
		opts.Locker = lock.NewRedisLocker(rdb, cfg.RunLockTTL, a.logger)
	}

	if len(cfg.KafkaBrokers) > 0 {
		sink, err := progress.NewKafkaSink(progress.KafkaConfig{
			Brokers:      cfg.KafkaBrokers,
			Topic:        cfg.KafkaProgressTopic,
			RequiredAcks: cfg.KafkaRequiredAcks,
			Compression:  cfg.KafkaCompression,
		}, a.logger)
		if err != nil {
			a.close(ctx)
			return nil, err
		}
		a.closers = append(a.closers, func(context.Context) error { return sink.Close() })
		opts.Sink = sink
	}

	a.orch = orchestrator.New(opts)
	return a, nil
}

// openDatabase retries the connection with a fibonacci backoff while the
// database starts up.
func (a *app) openDatabase(ctx context.Context) (database.DB, error) {
	attempts := max(a.cfg.StartupMaxAttempts, 1)
	wait, next := 1, 1
	for attempt := 1; ; attempt++ {
		db, err := database.Open(ctx, a.cfg, a.logger)
		if err == nil {
			return db, nil
		}
		if attempt >= attempts {
			return nil, fmt.Errorf("database unreachable after %d attempts: %w", attempt, err)
		}

		a.logger.WithContext(ctx).Infof("retrying in %d seconds (attempt %d/%d)", wait, attempt, attempts)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(time.Duration(wait) * time.Second):
		}
		wait, next = next, wait+next
	}
}

// close releases the dependencies in reverse order.
func (a *app) close(ctx context.Context) {
	ctx = context.WithoutCancel(ctx)
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			a.logger.WithContext(ctx).WithError(err).Warn("failed to close dependency")
		}
	}
	a.closers = nil
	a.logs.Sync()
}
