package history

import (
	"context"
	"time"

	"github.com/glefebvre/animedl/internal/downloader"
	"github.com/glefebvre/animedl/internal/logger"
	"github.com/glefebvre/animedl/internal/models"
)

// Recorder writes run events to a Store. Write failures are logged and
// never affect the run.
type Recorder struct {
	store   *Store
	timeout time.Duration
}

// NewRecorder creates a Recorder for store
func NewRecorder(store *Store) *Recorder {
	return &Recorder{store: store, timeout: 10 * time.Second}
}

// Notify implements downloader.Observer
func (r *Recorder) Notify(e downloader.Event) {
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()
	ctx = logger.ContextWithRunID(ctx, e.RunID)

	var err error
	switch e.Kind {
	case downloader.EventRunStarted:
		err = r.store.StartRun(ctx, &models.Run{
			ID:         e.RunID,
			Catalog:    e.Catalog,
			Variant:    e.Variant,
			Mode:       string(e.Mode),
			Discovered: e.Discovered,
			Pending:    e.Pending,
			Status:     models.RunStatusRunning,
			StartedAt:  e.Time,
		})
	case downloader.EventRunFinished:
		finished := e.Time
		run := &models.Run{
			ID:         e.RunID,
			Catalog:    e.Catalog,
			Variant:    e.Variant,
			Mode:       string(e.Mode),
			Discovered: e.Discovered,
			Pending:    e.Pending,
			Status:     models.RunStatusSucceeded,
			FinishedAt: &finished,
		}
		if e.Err != nil {
			run.Status = models.RunStatusFailed
			run.ErrorMessage = errorMessage(e.Err)
		}
		err = r.store.FinishRun(ctx, run)
	case downloader.EventPersisted:
		err = r.record(ctx, e, models.AcquisitionPersisted)
	case downloader.EventUnavailable:
		err = r.record(ctx, e, models.AcquisitionUnavailable)
	case downloader.EventFailed:
		err = r.record(ctx, e, models.AcquisitionFailed)
	default:
		return
	}

	if err != nil {
		logger.AppLogger().WithFields(map[string]interface{}{
			"event":      string(e.Kind),
			"identifier": e.Identifier,
		}).ErrorContext(ctx, "failed to record history", err)
	}
}

func (r *Recorder) record(ctx context.Context, e downloader.Event, state models.AcquisitionState) error {
	a := &models.Acquisition{
		RunID:        e.RunID,
		Catalog:      e.Catalog,
		Identifier:   e.Identifier,
		Mode:         string(e.Mode),
		State:        state,
		ErrorMessage: errorMessage(e.Err),
		CreatedAt:    e.Time,
	}
	if e.Path != "" && state == models.AcquisitionPersisted {
		path := e.Path
		a.Path = &path
	}
	return r.store.RecordAcquisition(ctx, a)
}

func errorMessage(err error) *string {
	if err == nil {
		return nil
	}
	msg := err.Error()
	return &msg
}
