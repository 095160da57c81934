// Package task runs one long operation at a time off the caller's
// goroutine.
//
// A Worker belongs to one owner (a launcher window, an HTTP session).  Start
// is a single compare-and-set, so a second start while a task is running is
// dropped rather than queued.  The owner learns about progress and the
// terminal state through the notify callback it passed to NewWorker; the
// callback runs on the worker goroutine and should hand events off to the
// owner's own queue.
package task

import (
	"context"
	"fmt"
)

// State of a Worker.
type State int32

const (
	Idle State = iota
	Running
	Completed
	Failed
	Cancelled
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Running:
		return "running"
	case Completed:
		return "completed"
	case Failed:
		return "failed"
	case Cancelled:
		return "cancelled"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// Terminal reports whether s is an end state.
func (s State) Terminal() bool {
	return s == Completed || s == Failed || s == Cancelled
}

func (s State) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// EventKind classifies an Event.
type EventKind string

const (
	EventStarted  EventKind = "started"
	EventProgress EventKind = "progress"
	EventLog      EventKind = "log"
	EventFinished EventKind = "finished"
	// EventLaunched reports that the game process has started.
	EventLaunched EventKind = "launched"
	// EventReopen asks the owner to show itself again after the game exits.
	EventReopen EventKind = "reopen"
)

// Event is delivered to a Worker's notify callback.
type Event struct {
	TaskID   string    `json:"taskId"`
	Task     string    `json:"task"`
	Kind     EventKind `json:"kind"`
	State    State     `json:"state"`
	Message  string    `json:"message,omitempty"`
	Progress float64   `json:"progress"` // 0..1, or -1 when unknown
	PID      int       `json:"pid,omitempty"`
	Err      error     `json:"-"`
	Error    string    `json:"error,omitempty"`
}

// Emit lets a running task report progress.  Kind and Message are taken from
// the event; the worker fills in ids and state.
type Emit func(Event)

// Task is a unit of work.  Run must return promptly once ctx is cancelled,
// checking ctx at its safe points.
type Task interface {
	Name() string
	Run(ctx context.Context, emit Emit) error
}

type funcTask struct {
	name string
	fn   func(ctx context.Context, emit Emit) error
}

func (f funcTask) Name() string                             { return f.name }
func (f funcTask) Run(ctx context.Context, emit Emit) error { return f.fn(ctx, emit) }

// Func wraps fn as a Task.
func Func(name string, fn func(ctx context.Context, emit Emit) error) Task {
	return funcTask{name: name, fn: fn}
}

// Progress is a convenience for building a progress event.
func Progress(fraction float64, msg string) Event {
	return Event{Kind: EventProgress, Progress: fraction, Message: msg}
}

// Log builds a log event with unknown progress.
func Log(format string, args ...any) Event {
	return Event{Kind: EventLog, Progress: -1, Message: fmt.Sprintf(format, args...)}
}
