// Package history keeps a record of download runs and of what happened to
// each episode. It is informational only: reconciliation never reads it.
package history

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/glefebvre/animedl/internal/config"
	"github.com/glefebvre/animedl/internal/errors"
	"github.com/glefebvre/animedl/internal/logger"
	"github.com/glefebvre/animedl/internal/models"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

const defaultListLimit = 100

// Store persists runs and acquisitions through gorm
type Store struct {
	db *gorm.DB
}

// Open connects to the configured database and runs migrations
func Open(cfg config.HistoryConfig, logLevel string) (*Store, error) {
	var dialector gorm.Dialector
	switch cfg.Driver {
	case "", "sqlite":
		dialector = sqlite.Open(cfg.DSN)
	case "postgres":
		dialector = postgres.Open(cfg.DSN)
	default:
		return nil, errors.ConfigError(fmt.Sprintf("unsupported history driver %q", cfg.Driver), nil)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.NewGormAdapter(logger.DatabaseLogger(), logLevel),
	})
	if err != nil {
		return nil, errors.DatabaseError("failed to connect to history database", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, errors.DatabaseError("failed to get database instance", err)
	}
	if cfg.Driver == "postgres" {
		sqlDB.SetMaxIdleConns(5)
		sqlDB.SetMaxOpenConns(20)
		sqlDB.SetConnMaxLifetime(time.Hour)
	} else {
		// sqlite allows a single writer; batch saves report concurrently
		sqlDB.SetMaxOpenConns(1)
	}

	return New(db)
}

// New wraps an existing connection and runs migrations
func New(db *gorm.DB) (*Store, error) {
	if err := db.AutoMigrate(&models.Run{}, &models.Acquisition{}); err != nil {
		return nil, errors.DatabaseError("failed to run history migrations", err)
	}
	return &Store{db: db}, nil
}

// HealthCheck verifies database connectivity
func (s *Store) HealthCheck(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return errors.DatabaseError("failed to get database instance", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return errors.DatabaseError("history database ping failed", err)
	}
	return nil
}

// Close closes the database connection
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return errors.DatabaseError("failed to get database instance", err)
	}
	return sqlDB.Close()
}

// StartRun inserts a run
func (s *Store) StartRun(ctx context.Context, run *models.Run) error {
	if run.Status == "" {
		run.Status = models.RunStatusRunning
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now()
	}
	if err := s.db.WithContext(ctx).Create(run).Error; err != nil {
		return errors.DatabaseError("failed to record run start", err).WithContext("run_id", run.ID)
	}
	return nil
}

// FinishRun stores the final state of a run. A run that never reached
// StartRun (it failed before reconciliation) is inserted.
func (s *Store) FinishRun(ctx context.Context, run *models.Run) error {
	if run.FinishedAt == nil {
		now := time.Now()
		run.FinishedAt = &now
	}

	db := s.db.WithContext(ctx)
	var existing models.Run
	err := db.First(&existing, "id = ?", run.ID).Error
	switch {
	case stderrors.Is(err, gorm.ErrRecordNotFound):
		if run.StartedAt.IsZero() {
			run.StartedAt = *run.FinishedAt
		}
		err = db.Create(run).Error
	case err == nil:
		err = db.Model(&existing).Updates(map[string]interface{}{
			"discovered":    run.Discovered,
			"pending":       run.Pending,
			"status":        run.Status,
			"error_message": run.ErrorMessage,
			"finished_at":   run.FinishedAt,
		}).Error
	}
	if err != nil {
		return errors.DatabaseError("failed to record run end", err).WithContext("run_id", run.ID)
	}
	return nil
}

// RecordAcquisition inserts an episode outcome
func (s *Store) RecordAcquisition(ctx context.Context, a *models.Acquisition) error {
	if err := s.db.WithContext(ctx).Create(a).Error; err != nil {
		return errors.DatabaseError("failed to record acquisition", err).WithContext("identifier", a.Identifier)
	}
	return nil
}

// RunFilter narrows ListRuns
type RunFilter struct {
	Catalog string
	Status  models.RunStatus
	Limit   int
}

// ListRuns returns runs, newest first
func (s *Store) ListRuns(ctx context.Context, filter RunFilter) ([]models.Run, error) {
	query := s.db.WithContext(ctx).Model(&models.Run{})
	if filter.Catalog != "" {
		query = query.Where("catalog = ?", filter.Catalog)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}

	var runs []models.Run
	if err := query.Order("started_at DESC").Limit(limitOrDefault(filter.Limit)).Find(&runs).Error; err != nil {
		return nil, errors.DatabaseError("failed to list runs", err)
	}
	return runs, nil
}

// GetRun returns a run with its acquisitions
func (s *Store) GetRun(ctx context.Context, id string) (*models.Run, error) {
	var run models.Run
	err := s.db.WithContext(ctx).
		Preload("Acquisitions", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		First(&run, "id = ?", id).Error
	if stderrors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errors.NotFoundError("run", id)
	}
	if err != nil {
		return nil, errors.DatabaseError("failed to fetch run", err)
	}
	return &run, nil
}

// AcquisitionFilter narrows ListAcquisitions
type AcquisitionFilter struct {
	Catalog string
	State   models.AcquisitionState
	RunID   string
	Limit   int
}

// ListAcquisitions returns episode outcomes, newest first
func (s *Store) ListAcquisitions(ctx context.Context, filter AcquisitionFilter) ([]models.Acquisition, error) {
	query := s.db.WithContext(ctx).Model(&models.Acquisition{})
	if filter.Catalog != "" {
		query = query.Where("catalog = ?", filter.Catalog)
	}
	if filter.State != "" {
		query = query.Where("state = ?", filter.State)
	}
	if filter.RunID != "" {
		query = query.Where("run_id = ?", filter.RunID)
	}

	var acquisitions []models.Acquisition
	if err := query.Order("id DESC").Limit(limitOrDefault(filter.Limit)).Find(&acquisitions).Error; err != nil {
		return nil, errors.DatabaseError("failed to list acquisitions", err)
	}
	return acquisitions, nil
}

func limitOrDefault(limit int) int {
	if limit <= 0 {
		return defaultListLimit
	}
	return limit
}
