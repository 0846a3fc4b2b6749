package cmd

import (
	"context"
	"fmt"

	"cabin-manager/core/config"
	"cabin-manager/core/database"
	"cabin-manager/core/feed"
	"cabin-manager/core/logger"
	"cabin-manager/core/reconcile"
	"cabin-manager/core/storage"
	"cabin-manager/feature/calendar"
	"cabin-manager/feature/integrity"
	"cabin-manager/feature/reservation"

	"go.uber.org/zap"
)

// application bundles the services every command builds from configuration.
type application struct {
	cfg          *config.Config
	logger       *zap.Logger
	spec         *reconcile.Spec
	store        reconcile.Store
	repository   *reservation.Repository
	storage      storage.Client
	reservations *reservation.Service
	calendar     *calendar.Service
}

// bootstrap loads configuration and wires the store, the feed fetcher and
// both services. Calendar publishing after commits is subscribed when enabled.
func bootstrap(ctx context.Context) (*application, error) {
	cfg, err := config.LoadConfig(configDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	l, err := logger.New(&cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	spec, err := cfg.Sync.Spec(cfg.Feed.Timeout(), cfg.Feed.Workers)
	if err != nil {
		return nil, fmt.Errorf("invalid sync configuration: %w", err)
	}

	app := &application{cfg: cfg, logger: l, spec: spec}

	switch cfg.Reservation.Store {
	case reservation.StoreCSV:
		app.store = reservation.NewCSVStore(cfg.Reservation.CSVPath)
		l.Info("Using CSV reservation store", zap.String("path", cfg.Reservation.CSVPath))
	case reservation.StoreDB, "":
		repo, err := openRepository(ctx, cfg, l)
		if err != nil {
			return nil, err
		}
		app.repository = repo
		app.store = repo
	default:
		return nil, fmt.Errorf("unknown reservation store %q", cfg.Reservation.Store)
	}

	cache, err := feed.NewCache(cfg.Feed)
	if err != nil {
		return nil, err
	}
	fetcher := feed.NewFetcher(cfg.Feed, cache, l)

	app.reservations = reservation.NewService(app.store, spec, fetcher, cfg.Reservation, l)

	if cfg.Calendar.UsesStorage() {
		if app.storage, err = storage.NewClient(cfg.Storage); err != nil {
			return nil, fmt.Errorf("failed to create storage client: %w", err)
		}
	}
	publishers, err := calendar.NewPublishers(cfg.Calendar, app.storage, cfg.Storage.Bucket, l)
	if err != nil {
		return nil, err
	}
	app.calendar = calendar.NewService(app.reservations, publishers, cfg.Calendar, l)
	if cfg.Calendar.PublishOnChange {
		app.reservations.Subscribe(app.calendar.OnCommit)
	}

	return app, nil
}

func openRepository(ctx context.Context, cfg *config.Config, l *zap.Logger) (*reservation.Repository, error) {
	db, err := database.Connect(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	repo := reservation.NewRepository(db, cfg.Reservation.BatchSize, l)
	if err := repo.Migrate(ctx); err != nil {
		return nil, fmt.Errorf("failed to migrate schema: %w", err)
	}
	return repo, nil
}

// integrityOptions wires the audit to whatever backends are configured.
func (a *application) integrityOptions() integrity.Options {
	opts := integrity.Options{
		Client: a.storage,
		Bucket: a.cfg.Storage.Bucket,
		Object: a.cfg.Calendar.ObjectName,
	}
	if a.repository != nil {
		opts.DB = a.repository.DB()
		opts.Migrator = a.repository
	}
	return opts
}

// close waits for background publishes and flushes the logger.
func (a *application) close() {
	a.calendar.Wait()
	_ = a.logger.Sync()
}
