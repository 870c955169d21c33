package downloader

import (
	"time"
)

// EventKind identifies what happened during a run
type EventKind string

const (
	EventRunStarted  EventKind = "run_started"
	EventRunFinished EventKind = "run_finished"
	EventNavigating  EventKind = "navigating"
	EventUnavailable EventKind = "unavailable"
	EventPersisting  EventKind = "persisting"
	EventPersisted   EventKind = "persisted"
	EventFailed      EventKind = "failed"
)

// Event describes one step of a run. Item events carry Identifier; run
// events carry the Discovered and Pending counts.
type Event struct {
	Kind       EventKind
	RunID      string
	Catalog    string
	Variant    string
	Identifier string
	Mode       Mode
	Path       string
	Discovered int
	Pending    int
	Err        error
	Time       time.Time
}

// Observer receives run events. Batch saves report from their own
// goroutines, so implementations must be safe for concurrent use.
type Observer interface {
	Notify(Event)
}

// ObserverFunc adapts a function to Observer
type ObserverFunc func(Event)

// Notify implements Observer
func (f ObserverFunc) Notify(e Event) { f(e) }

// Observers fans an event out to several observers in order
type Observers []Observer

// Notify implements Observer
func (o Observers) Notify(e Event) {
	for _, obs := range o {
		if obs != nil {
			obs.Notify(e)
		}
	}
}
