package task

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"mclauncher/metrics"
)

// Worker runs at most one Task at a time.
type Worker struct {
	state  atomic.Int32
	notify func(Event)
	log    *zap.SugaredLogger

	mu     sync.Mutex
	id     string
	name   string
	cancel context.CancelFunc
	done   chan struct{}
	err    error
}

// NewWorker returns an idle worker.  notify may be nil.
func NewWorker(notify func(Event), log *zap.SugaredLogger) *Worker {
	if notify == nil {
		notify = func(Event) {}
	}
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	done := make(chan struct{})
	close(done)
	return &Worker{notify: notify, log: log, done: done}
}

// Start runs t in a new goroutine and returns its id.  It returns false,
// without touching the running task, when the worker is busy.
func (w *Worker) Start(parent context.Context, t Task) (string, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()

	for {
		s := State(w.state.Load())
		if s == Running {
			metrics.TasksRejected.Inc()
			w.log.Debugw("start ignored, task already running", "running", w.name, "requested", t.Name())
			return "", false
		}
		if w.state.CompareAndSwap(int32(s), int32(Running)) {
			break
		}
	}

	ctx, cancel := context.WithCancel(parent)
	w.id = uuid.New().String()[:8]
	w.name = t.Name()
	w.cancel = cancel
	w.done = make(chan struct{})
	w.err = nil

	metrics.TasksStarted.Inc()
	metrics.TasksRunning.Inc()
	w.log.Infow("task started", "task", w.name, "id", w.id)

	go w.run(ctx, t, w.id, w.done)
	return w.id, true
}

func (w *Worker) run(ctx context.Context, t Task, id string, done chan struct{}) {
	emit := func(ev Event) {
		ev.TaskID = id
		ev.Task = t.Name()
		ev.State = Running
		w.notify(ev)
	}
	emit(Event{Kind: EventStarted, Progress: 0})

	err := w.execute(ctx, t, emit)

	final := Completed
	switch {
	case err == nil:
	case ctx.Err() != nil && errors.Is(err, context.Canceled):
		final = Cancelled
	default:
		final = Failed
	}

	metrics.TasksRunning.Dec()
	metrics.TasksFinished.WithLabelValues(final.String()).Inc()
	if err != nil {
		w.log.Warnw("task finished", "task", t.Name(), "id", id, "state", final.String(), "err", err)
	} else {
		w.log.Infow("task finished", "task", t.Name(), "id", id, "state", final.String())
	}

	// Still Running until the finished event has been delivered.
	ev := Event{TaskID: id, Task: t.Name(), Kind: EventFinished, State: final, Progress: 1, Err: err}
	if err != nil {
		ev.Error = err.Error()
	}
	w.notify(ev)

	w.mu.Lock()
	w.err = err
	w.cancel()
	w.state.Store(int32(final))
	w.mu.Unlock()
	close(done)
}

func (w *Worker) execute(ctx context.Context, t Task, emit Emit) (err error) {
	defer func() {
		if r := recover(); r != nil {
			w.log.Errorw("task panicked", "task", t.Name(), "panic", r, "stack", string(debug.Stack()))
			err = fmt.Errorf("task %s panicked: %v", t.Name(), r)
		}
	}()
	return t.Run(ctx, emit)
}

// IsAlive reports whether a task is running.
func (w *Worker) IsAlive() bool {
	return State(w.state.Load()) == Running
}

// State returns the current state.
func (w *Worker) State() State {
	return State(w.state.Load())
}

// Cancel asks the running task to stop.  It returns immediately; the task
// stops at its next safe point.
func (w *Worker) Cancel() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.cancel != nil && State(w.state.Load()) == Running {
		w.log.Infow("task cancel requested", "task", w.name, "id", w.id)
		w.cancel()
	}
}

// Done is closed once the current (or last) task has ended and its finished
// event has been delivered.  It is already closed on an idle worker.
func (w *Worker) Done() <-chan struct{} {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.done
}

// Wait blocks until the current task ends or ctx is done, and returns the
// task's error.
func (w *Worker) Wait(ctx context.Context) error {
	select {
	case <-w.Done():
		return w.Err()
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Err is the last task's error, nil while running or after success.
func (w *Worker) Err() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.err
}

// Current returns the id and name of the running or last task.
func (w *Worker) Current() (id, name string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.id, w.name
}
