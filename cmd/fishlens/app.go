package main

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/sanspareilsmyn/fishlens/internal/config"
	"github.com/sanspareilsmyn/fishlens/internal/logging"
	"github.com/sanspareilsmyn/fishlens/internal/notify"
	"github.com/sanspareilsmyn/fishlens/internal/pipeline"
	"github.com/sanspareilsmyn/fishlens/internal/store"
	"github.com/sanspareilsmyn/fishlens/internal/store/postgrest"
	"github.com/sanspareilsmyn/fishlens/internal/store/sqlstore"
)

// app holds everything a subcommand needs; close releases it in reverse
// order of acquisition.
type app struct {
	cfg     *config.Config
	logger  *zap.Logger
	querier store.Querier
	sql     *sqlstore.Store
	closers []io.Closer
}

func setup(configFile string) (*app, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration from %q: %w", configFile, err)
	}

	logger, err := logging.NewLogger(cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	sugar := logger.Sugar()
	sugar.Infow("Logger initialized",
		"level", cfg.Log.Level,
		"format", cfg.Log.Format,
	)
	sugar.Infow("Configuration loaded successfully", "path", configFile, "store_driver", cfg.Store.Driver)

	a := &app{cfg: cfg, logger: logger}
	switch cfg.Store.Driver {
	case config.DriverSQLite, config.DriverPostgres:
		db, err := sqlstore.Open(cfg.Store.Driver, cfg.Store.DSN)
		if err != nil {
			_ = logger.Sync()
			return nil, err
		}
		a.sql = db
		a.querier = db
		a.closers = append(a.closers, db)
	case config.DriverPostgREST:
		a.querier = postgrest.New(cfg.Store.URL, cfg.Store.APIKey, &http.Client{Timeout: cfg.Store.Timeout})
	default:
		_ = logger.Sync()
		return nil, fmt.Errorf("%w: %q", config.ErrUnknownStoreDriver, cfg.Store.Driver)
	}
	return a, nil
}

// notifier logs every notice and, when enabled, also publishes it to Kafka.
func (a *app) notifier() (notify.Notifier, error) {
	notifiers := notify.Multi{notify.NewLogNotifier(a.logger.Named("notify"))}
	if a.cfg.Notify.Kafka.Enabled {
		kn, err := notify.NewKafkaNotifier(a.cfg.Notify.Kafka, a.logger.Named("notify.kafka"))
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, kn)
		notifiers = append(notifiers, kn)
	}
	return notifiers, nil
}

func (a *app) service() (*pipeline.Service, error) {
	n, err := a.notifier()
	if err != nil {
		return nil, err
	}
	return pipeline.NewService(a.querier, a.cfg, n, a.logger.Named("pipeline")), nil
}

func (a *app) close() {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		a.logger.Warn("Errors while releasing resources", zap.Error(err))
	}
	_ = a.logger.Sync()
}

// requireSQL reports whether the configured store supports schema management.
func (a *app) requireSQL() (*sqlstore.Store, error) {
	if a.sql == nil {
		return nil, fmt.Errorf("store driver %q has no local schema; use %q or %q",
			a.cfg.Store.Driver, config.DriverSQLite, config.DriverPostgres)
	}
	return a.sql, nil
}
