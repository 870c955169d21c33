package api

import (
	"time"

	"github.com/glefebvre/animedl/internal/models"
)

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// ListResponse wraps a list of results
type ListResponse struct {
	Data  interface{} `json:"data"`
	Count int         `json:"count"`
}

// RunResponse represents a download run
type RunResponse struct {
	ID           string                `json:"id"`
	Catalog      string                `json:"catalog"`
	Variant      string                `json:"variant"`
	Mode         string                `json:"mode"`
	Discovered   int                   `json:"discovered"`
	Pending      int                   `json:"pending"`
	Status       models.RunStatus      `json:"status"`
	ErrorMessage *string               `json:"error_message,omitempty"`
	StartedAt    string                `json:"started_at"`
	FinishedAt   *string               `json:"finished_at,omitempty"`
	Acquisitions []AcquisitionResponse `json:"acquisitions,omitempty"`
}

// AcquisitionResponse represents the outcome of one episode
type AcquisitionResponse struct {
	ID           uint                    `json:"id"`
	RunID        string                  `json:"run_id"`
	Catalog      string                  `json:"catalog"`
	Identifier   string                  `json:"identifier"`
	Mode         string                  `json:"mode"`
	State        models.AcquisitionState `json:"state"`
	Path         *string                 `json:"path,omitempty"`
	ErrorMessage *string                 `json:"error_message,omitempty"`
	CreatedAt    string                  `json:"created_at"`
}

func toRunResponse(run models.Run) RunResponse {
	resp := RunResponse{
		ID:           run.ID,
		Catalog:      run.Catalog,
		Variant:      run.Variant,
		Mode:         run.Mode,
		Discovered:   run.Discovered,
		Pending:      run.Pending,
		Status:       run.Status,
		ErrorMessage: run.ErrorMessage,
		StartedAt:    run.StartedAt.Format(time.RFC3339),
	}
	if run.FinishedAt != nil {
		finished := run.FinishedAt.Format(time.RFC3339)
		resp.FinishedAt = &finished
	}
	for _, a := range run.Acquisitions {
		resp.Acquisitions = append(resp.Acquisitions, toAcquisitionResponse(a))
	}
	return resp
}

func toAcquisitionResponse(a models.Acquisition) AcquisitionResponse {
	return AcquisitionResponse{
		ID:           a.ID,
		RunID:        a.RunID,
		Catalog:      a.Catalog,
		Identifier:   a.Identifier,
		Mode:         a.Mode,
		State:        a.State,
		Path:         a.Path,
		ErrorMessage: a.ErrorMessage,
		CreatedAt:    a.CreatedAt.Format(time.RFC3339),
	}
}
