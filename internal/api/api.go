// Package api serves the download history over HTTP.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/glefebvre/animedl/internal/history"
	"github.com/glefebvre/animedl/internal/logger"
	"github.com/glefebvre/animedl/internal/models"
)

// Store is the read side of the history store
type Store interface {
	HealthCheck(ctx context.Context) error
	ListRuns(ctx context.Context, filter history.RunFilter) ([]models.Run, error)
	GetRun(ctx context.Context, id string) (*models.Run, error)
	ListAcquisitions(ctx context.Context, filter history.AcquisitionFilter) ([]models.Acquisition, error)
}

// Options configures the API server
type Options struct {
	// AllowedOrigins lists CORS origins; empty allows any origin
	AllowedOrigins []string
}

// Server represents the API server
type Server struct {
	router *gin.Engine
	store  Store
}

// NewServer creates a new API server instance
func NewServer(store Store, opts Options) *Server {
	router := gin.New()
	router.Use(requestIDMiddleware(), loggingMiddleware(), errorHandlerMiddleware())
	router.Use(cors.New(corsConfig(opts.AllowedOrigins)))

	s := &Server{
		router: router,
		store:  store,
	}

	s.setupRoutes()

	return s
}

// Handler returns the HTTP handler
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves on port until ctx is canceled, then shuts down gracefully
func (s *Server) Run(ctx context.Context, port int) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.AppLogger().Info(fmt.Sprintf("history API listening on %s", srv.Addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) setupRoutes() {
	// Health check endpoint
	s.router.GET("/health", s.healthCheck)

	// API v1 routes
	v1 := s.router.Group("/api/v1")
	{
		v1.GET("/runs", s.listRuns)
		v1.GET("/runs/:id", s.getRun)

		v1.GET("/acquisitions", s.listAcquisitions)
		v1.GET("/catalogs/:name/acquisitions", s.listCatalogAcquisitions)
	}
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{http.MethodGet, http.MethodOptions},
		AllowHeaders:  []string{"Origin", "Content-Type", "X-Request-ID"},
		ExposeHeaders: []string{"X-Request-ID"},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 0 {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	return cfg
}
