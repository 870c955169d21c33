package testing

import (
	"fmt"
	"testing"
	"time"

	"github.com/glefebvre/animedl/internal/models"
	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// TestDB creates an in-memory SQLite history database for testing
func TestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	// Every connection to :memory: is a separate database
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to get database instance: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	if err := db.AutoMigrate(&models.Run{}, &models.Acquisition{}); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	return db
}

// CreateRun creates a test run
func CreateRun(t *testing.T, db *gorm.DB, overrides ...func(*models.Run)) *models.Run {
	t.Helper()
	now := time.Now()
	run := &models.Run{
		ID:         uuid.New().String(),
		Catalog:    "naruto",
		Variant:    "subtitled",
		Mode:       "batch",
		Discovered: 3,
		Pending:    2,
		Status:     models.RunStatusSucceeded,
		StartedAt:  now,
		FinishedAt: &now,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	for _, override := range overrides {
		override(run)
	}

	if err := db.Create(run).Error; err != nil {
		t.Fatalf("failed to create run: %v", err)
	}
	return run
}

// CreateAcquisition creates a test acquisition attached to run
func CreateAcquisition(t *testing.T, db *gorm.DB, run *models.Run, overrides ...func(*models.Acquisition)) *models.Acquisition {
	t.Helper()
	path := fmt.Sprintf("/media/%s/episodio-01.mp4", run.Catalog)
	acquisition := &models.Acquisition{
		RunID:      run.ID,
		Catalog:    run.Catalog,
		Identifier: "episodio-01",
		Mode:       run.Mode,
		State:      models.AcquisitionPersisted,
		Path:       &path,
		CreatedAt:  time.Now(),
	}

	for _, override := range overrides {
		override(acquisition)
	}

	if err := db.Create(acquisition).Error; err != nil {
		t.Fatalf("failed to create acquisition: %v", err)
	}
	return acquisition
}

// AssertCount verifies the count of records in a table
func AssertCount(t *testing.T, db *gorm.DB, model interface{}, expected int64, message string) {
	t.Helper()
	var count int64
	db.Model(model).Count(&count)
	if count != expected {
		t.Fatalf("%s: expected count %d, got %d", message, expected, count)
	}
}

// WithCatalog sets the catalog of a run
func WithCatalog(catalog string) func(*models.Run) {
	return func(run *models.Run) {
		run.Catalog = catalog
	}
}

// WithStatus sets the status of a run
func WithStatus(status models.RunStatus) func(*models.Run) {
	return func(run *models.Run) {
		run.Status = status
	}
}

// WithStartedAt sets the start time of a run
func WithStartedAt(at time.Time) func(*models.Run) {
	return func(run *models.Run) {
		run.StartedAt = at
	}
}

// WithIdentifier sets the identifier of an acquisition
func WithIdentifier(id string) func(*models.Acquisition) {
	return func(a *models.Acquisition) {
		a.Identifier = id
	}
}

// WithState sets the state of an acquisition
func WithState(state models.AcquisitionState) func(*models.Acquisition) {
	return func(a *models.Acquisition) {
		a.State = state
		if state != models.AcquisitionPersisted {
			a.Path = nil
		}
	}
}
