package reservation

import (
	"context"
	"fmt"

	"cabin-manager/core/database"
	"cabin-manager/core/reconcile"
	"cabin-manager/feature/reservation/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Repository stores the reservation set in the reservations table.
// It implements reconcile.Store.
type Repository struct {
	db        *gorm.DB
	batchSize int
	logger    *zap.Logger
}

// NewRepository creates a repository over db.
func NewRepository(db *gorm.DB, batchSize int, logger *zap.Logger) *Repository {
	if batchSize <= 0 {
		batchSize = 200
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Repository{db: db, batchSize: batchSize, logger: logger}
}

// DB returns the underlying connection.
func (r *Repository) DB() *gorm.DB {
	return r.db
}

// Migrate creates or upgrades the reservations table. A table without the
// source column predates explicit tags; its rows are classified on the next load.
func (r *Repository) Migrate(ctx context.Context) error {
	db := r.db.WithContext(ctx)
	table := models.ReservationRecord{}.TableName()

	if db.Migrator().HasTable(table) {
		ok, err := database.HasColumn(db, table, "source")
		if err != nil {
			return err
		}
		if !ok {
			r.logger.Warn("Legacy reservation schema detected, source tags will be inferred", zap.String("table", table))
		}
	}

	if err := db.AutoMigrate(&models.ReservationRecord{}); err != nil {
		return fmt.Errorf("failed to migrate reservations: %w", err)
	}
	return nil
}

// Load returns every row in stored order.
func (r *Repository) Load(ctx context.Context) (*reconcile.ReservationSet, error) {
	var records []models.ReservationRecord
	if err := r.db.WithContext(ctx).Order("position ASC").Find(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to load reservations: %w", err)
	}

	set := reconcile.NewReservationSet()
	for _, rec := range records {
		set.Reservations = append(set.Reservations, rec.ToReservation())
	}
	return set, nil
}

// Save replaces every row in one transaction. On failure the table keeps its
// previous contents.
func (r *Repository) Save(ctx context.Context, set *reconcile.ReservationSet) error {
	records := make([]models.ReservationRecord, 0, set.Len())
	seen := make(map[string]struct{}, set.Len())
	for i, res := range set.Reservations {
		rec := models.FromReservation(res, i)
		if _, dup := seen[rec.ID]; rec.ID == "" || dup {
			rec.ID = uuid.NewString()
		}
		seen[rec.ID] = struct{}{}
		records = append(records, rec)
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&models.ReservationRecord{}).Error; err != nil {
			return fmt.Errorf("failed to clear reservations: %w", err)
		}
		if len(records) == 0 {
			return nil
		}
		// Already inside a transaction; batches must not open savepoints.
		batch := tx.Session(&gorm.Session{SkipDefaultTransaction: true})
		if err := batch.CreateInBatches(records, r.batchSize).Error; err != nil {
			return fmt.Errorf("failed to insert reservations: %w", err)
		}
		return nil
	})
}
