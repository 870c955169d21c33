package models

import "time"

// RunStatus is the outcome of a download run
type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusSucceeded RunStatus = "succeeded"
	RunStatusFailed    RunStatus = "failed"
)

// AcquisitionState is the terminal state of one episode in a run
type AcquisitionState string

const (
	AcquisitionPersisted   AcquisitionState = "persisted"
	AcquisitionUnavailable AcquisitionState = "unavailable"
	AcquisitionFailed      AcquisitionState = "failed"
)

// Run records one invocation of the download command
type Run struct {
	ID           string     `gorm:"type:varchar(36);primaryKey" json:"id"`
	Catalog      string     `gorm:"type:varchar(255);not null;index:idx_runs_catalog" json:"catalog"`
	Variant      string     `gorm:"type:varchar(20);not null" json:"variant"`
	Mode         string     `gorm:"type:varchar(20);not null" json:"mode"`
	Discovered   int        `gorm:"not null;default:0" json:"discovered"`
	Pending      int        `gorm:"not null;default:0" json:"pending"`
	Status       RunStatus  `gorm:"type:varchar(20);not null;index:idx_runs_status" json:"status"`
	ErrorMessage *string    `gorm:"type:text" json:"error_message,omitempty"`
	StartedAt    time.Time  `gorm:"not null" json:"started_at"`
	FinishedAt   *time.Time `json:"finished_at,omitempty"`
	CreatedAt    time.Time  `gorm:"not null" json:"created_at"`
	UpdatedAt    time.Time  `gorm:"not null" json:"updated_at"`

	// Associations
	Acquisitions []Acquisition `gorm:"foreignKey:RunID" json:"acquisitions,omitempty"`
}

// TableName specifies the table name for Run
func (Run) TableName() string {
	return "runs"
}

// Acquisition records the terminal outcome of one episode
type Acquisition struct {
	ID           uint             `gorm:"primaryKey" json:"id"`
	RunID        string           `gorm:"type:varchar(36);not null;index:idx_acquisitions_run" json:"run_id"`
	Catalog      string           `gorm:"type:varchar(255);not null;index:idx_acquisitions_catalog_identifier" json:"catalog"`
	Identifier   string           `gorm:"type:varchar(512);not null;index:idx_acquisitions_catalog_identifier" json:"identifier"`
	Mode         string           `gorm:"type:varchar(20);not null" json:"mode"`
	State        AcquisitionState `gorm:"type:varchar(20);not null;index:idx_acquisitions_state" json:"state"`
	Path         *string          `gorm:"type:text" json:"path,omitempty"`
	ErrorMessage *string          `gorm:"type:text" json:"error_message,omitempty"`
	CreatedAt    time.Time        `gorm:"not null" json:"created_at"`
}

// TableName specifies the table name for Acquisition
func (Acquisition) TableName() string {
	return "acquisitions"
}
