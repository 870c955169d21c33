package downloader

import (
	"sync"
	"sync/atomic"

	"github.com/glefebvre/animedl/internal/errors"
	"golang.org/x/sync/errgroup"
)

// Task is one save running in the background
type Task struct {
	Identifier string
	Path       string

	settled atomic.Bool
	err     error
}

// Settled reports whether the save has finished, successfully or not
func (t *Task) Settled() bool {
	return t.settled.Load()
}

// Err returns the save error. Only meaningful once Settled is true.
func (t *Task) Err() error {
	if !t.settled.Load() {
		return nil
	}
	return t.err
}

func (t *Task) settle(err error) {
	t.err = err
	t.settled.Store(true)
}

// Tracker keeps the saves started during one run and lets the run wait for
// all of them before the browser goes away
type Tracker struct {
	mu     sync.Mutex
	group  errgroup.Group
	tasks  []*Task
	closed bool
}

// NewTracker creates an empty tracker
func NewTracker() *Tracker {
	return &Tracker{}
}

// Register records task and runs save in the background. The task is
// settled with the save's result. Registering after Barrier is an error.
func (t *Tracker) Register(task *Task, save func() error) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return errors.New(errors.CodeInternal, "cannot register "+task.Identifier+": tracker barrier already reached")
	}

	t.tasks = append(t.tasks, task)
	t.group.Go(func() error {
		task.settle(save())
		return nil
	})
	return nil
}

// Len returns the number of registered tasks
func (t *Tracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.tasks)
}

// InFlight returns the number of registered tasks not yet settled
func (t *Tracker) InFlight() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	n := 0
	for _, task := range t.tasks {
		if !task.Settled() {
			n++
		}
	}
	return n
}

// Barrier blocks until every registered task has settled and returns the
// tasks in registration order. It closes the tracker to new registrations,
// so the registry it waits on is the one it returns. With nothing
// registered it returns immediately.
func (t *Tracker) Barrier() []*Task {
	t.mu.Lock()
	t.closed = true
	t.mu.Unlock()

	t.group.Wait()

	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]*Task(nil), t.tasks...)
}
