package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/glefebvre/animedl/internal/errors"
	"github.com/glefebvre/animedl/internal/history"
	"github.com/glefebvre/animedl/internal/models"
)

const maxLimit = 1000

var (
	validRunStatuses = map[models.RunStatus]bool{
		models.RunStatusRunning:   true,
		models.RunStatusSucceeded: true,
		models.RunStatusFailed:    true,
	}
	validStates = map[models.AcquisitionState]bool{
		models.AcquisitionPersisted:   true,
		models.AcquisitionUnavailable: true,
		models.AcquisitionFailed:      true,
	}
)

func (s *Server) healthCheck(c *gin.Context) {
	if err := s.store.HealthCheck(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "unhealthy",
			"error":  err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
	})
}

func (s *Server) listRuns(c *gin.Context) {
	limit, err := parseLimit(c)
	if err != nil {
		respondError(c, err)
		return
	}
	status := models.RunStatus(c.Query("status"))
	if status != "" && !validRunStatuses[status] {
		respondError(c, errors.ValidationError("status must be one of: running, succeeded, failed"))
		return
	}

	runs, err := s.store.ListRuns(c.Request.Context(), history.RunFilter{
		Catalog: c.Query("catalog"),
		Status:  status,
		Limit:   limit,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	data := make([]RunResponse, 0, len(runs))
	for _, run := range runs {
		data = append(data, toRunResponse(run))
	}
	c.JSON(http.StatusOK, ListResponse{Data: data, Count: len(data)})
}

func (s *Server) getRun(c *gin.Context) {
	run, err := s.store.GetRun(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toRunResponse(*run))
}

func (s *Server) listAcquisitions(c *gin.Context) {
	s.acquisitions(c, c.Query("catalog"))
}

func (s *Server) listCatalogAcquisitions(c *gin.Context) {
	s.acquisitions(c, c.Param("name"))
}

func (s *Server) acquisitions(c *gin.Context, catalog string) {
	limit, err := parseLimit(c)
	if err != nil {
		respondError(c, err)
		return
	}
	state := models.AcquisitionState(c.Query("state"))
	if state != "" && !validStates[state] {
		respondError(c, errors.ValidationError("state must be one of: persisted, unavailable, failed"))
		return
	}

	acquisitions, err := s.store.ListAcquisitions(c.Request.Context(), history.AcquisitionFilter{
		Catalog: catalog,
		State:   state,
		RunID:   c.Query("run_id"),
		Limit:   limit,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	data := make([]AcquisitionResponse, 0, len(acquisitions))
	for _, a := range acquisitions {
		data = append(data, toAcquisitionResponse(a))
	}
	c.JSON(http.StatusOK, ListResponse{Data: data, Count: len(data)})
}

func parseLimit(c *gin.Context) (int, error) {
	raw := c.Query("limit")
	if raw == "" {
		return 0, nil
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 1 || limit > maxLimit {
		return 0, errors.ValidationError("limit must be an integer between 1 and 1000")
	}
	return limit, nil
}

func respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch errors.GetErrorCode(err) {
	case errors.CodeNotFound:
		status = http.StatusNotFound
	case errors.CodeValidation, errors.CodeInvalidInput:
		status = http.StatusBadRequest
	}

	message := err.Error()
	if status == http.StatusInternalServerError {
		message = "an unexpected error occurred"
	}
	c.JSON(status, ErrorResponse{
		Error:   http.StatusText(status),
		Message: message,
	})
}
