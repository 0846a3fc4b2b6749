package integrity

import (
	"context"
	"fmt"

	"cabin-manager/core/reconcile"
	"cabin-manager/core/storage"
	"cabin-manager/feature/integrity/checks"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Migrator upgrades the database schema.
type Migrator interface {
	Migrate(ctx context.Context) error
}

// Options wires the optional parts of the audit. Checks whose dependency is
// missing report an error instead of running.
type Options struct {
	DB       *gorm.DB
	Migrator Migrator
	Client   storage.Client
	Bucket   string
	Object   string
}

// Service handles integrity checks.
type Service struct {
	store  reconcile.Store
	spec   *reconcile.Spec
	opts   Options
	logger *zap.Logger
}

// NewService creates a new integrity service.
func NewService(store reconcile.Store, spec *reconcile.Spec, opts Options, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, spec: spec, opts: opts, logger: logger}
}

// CheckReservations audits the stored reservations.
func (s *Service) CheckReservations(ctx context.Context) (*checks.ReservationReport, error) {
	set, err := s.store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load reservations: %w", err)
	}
	return checks.CheckReservations(set, s.spec), nil
}

// FixReservations persists inferred source tags on untagged rows and returns
// how many were tagged. Other findings need a human decision.
func (s *Service) FixReservations(ctx context.Context) (int, error) {
	set, err := s.store.Load(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to load reservations: %w", err)
	}
	n := set.MigrateSources(s.spec.Classifier)
	if n == 0 {
		return 0, nil
	}
	if err := s.store.Save(ctx, set); err != nil {
		return 0, fmt.Errorf("%w: %w", reconcile.ErrPersistence, err)
	}
	s.logger.Info("Tagged legacy reservations", zap.Int("count", n))
	return n, nil
}

// CheckSchema compares the database with the reservation model.
func (s *Service) CheckSchema() (*checks.SchemaReport, error) {
	return checks.CheckSchema(s.opts.DB)
}

// FixSchema runs the schema migration.
func (s *Service) FixSchema(ctx context.Context) error {
	if s.opts.Migrator == nil {
		return fmt.Errorf("no schema migrator configured")
	}
	return s.opts.Migrator.Migrate(ctx)
}

// CheckCalendar verifies the calendar object exists in storage.
func (s *Service) CheckCalendar(ctx context.Context) (*checks.CalendarReport, error) {
	if s.opts.Client == nil {
		return nil, fmt.Errorf("storage publishing is not configured")
	}
	return checks.CheckPublishedCalendar(ctx, s.opts.Client, s.opts.Bucket, s.opts.Object)
}

// CheckFeeds returns the cabins without a feed.
func (s *Service) CheckFeeds() []string {
	return checks.CheckFeeds(s.spec)
}

// CheckAll runs every check and collects the results by name.
func (s *Service) CheckAll(ctx context.Context) map[string]any {
	report := make(map[string]any)

	if r, err := s.CheckReservations(ctx); err != nil {
		report["reservations"] = errorEntry(err)
	} else {
		report["reservations"] = r
	}

	if r, err := s.CheckSchema(); err != nil {
		report["schema"] = errorEntry(err)
	} else {
		report["schema"] = r
	}

	if r, err := s.CheckCalendar(ctx); err != nil {
		report["calendar"] = errorEntry(err)
	} else {
		report["calendar"] = r
	}

	report["feeds"] = map[string]any{"status": "checked", "missing": s.CheckFeeds()}
	return report
}

func errorEntry(err error) map[string]any {
	return map[string]any{"status": "error", "error": err.Error()}
}
