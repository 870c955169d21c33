// Package shutdown releases process resources in reverse order of
// acquisition once a run is over or interrupted.
package shutdown

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/glefebvre/animedl/internal/logger"
)

type step struct {
	name string
	fn   func(context.Context) error
}

// Handler manages graceful shutdown of the application
type Handler struct {
	mu             sync.Mutex
	steps          []step
	timeout        time.Duration
	shutdownChan   chan struct{}
	isShuttingDown bool
}

// New creates a new shutdown handler. Each step gets at most timeout.
func New(timeout time.Duration) *Handler {
	return &Handler{
		timeout:      timeout,
		shutdownChan: make(chan struct{}),
	}
}

// Register adds a named shutdown step.
// Steps run one at a time in reverse order of registration (LIFO).
func (h *Handler) Register(name string, fn func(context.Context) error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.steps = append(h.steps, step{name: name, fn: fn})
}

// Shutdown runs every registered step and returns their joined errors.
// A failing or slow step does not prevent the following ones from running.
// Only the first call does anything.
func (h *Handler) Shutdown() error {
	h.mu.Lock()
	if h.isShuttingDown {
		h.mu.Unlock()
		return nil
	}
	h.isShuttingDown = true
	steps := h.steps
	h.mu.Unlock()

	close(h.shutdownChan)

	var errs []error
	for i := len(steps) - 1; i >= 0; i-- {
		if err := h.run(steps[i]); err != nil {
			logger.AppLogger().WithFields(map[string]interface{}{
				"step":  steps[i].name,
				"error": err.Error(),
			}).Warn("shutdown step failed")
			errs = append(errs, fmt.Errorf("%s: %w", steps[i].name, err))
		}
	}
	return errors.Join(errs...)
}

func (h *Handler) run(s step) error {
	ctx, cancel := context.WithTimeout(context.Background(), h.timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- s.fn(ctx)
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// IsShuttingDown returns true if shutdown has been initiated
func (h *Handler) IsShuttingDown() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.isShuttingDown
}

// ShutdownChan returns a channel that is closed when shutdown is initiated
func (h *Handler) ShutdownChan() <-chan struct{} {
	return h.shutdownChan
}

// SignalContext returns a context canceled on SIGINT or SIGTERM
func SignalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}
