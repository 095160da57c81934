package task

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *recorder) notify(ev Event) {
	r.mu.Lock()
	r.events = append(r.events, ev)
	r.mu.Unlock()
}

func (r *recorder) kinds() []EventKind {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]EventKind, 0, len(r.events))
	for _, ev := range r.events {
		out = append(out, ev.Kind)
	}
	return out
}

func (r *recorder) last() Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.events[len(r.events)-1]
}

func wait(t *testing.T, w *Worker) {
	t.Helper()
	select {
	case <-w.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("task did not finish")
	}
}

func TestIdleWorker(t *testing.T) {
	w := NewWorker(nil, nil)
	assert.Equal(t, Idle, w.State())
	assert.False(t, w.IsAlive())
	assert.NoError(t, w.Wait(context.Background()))
	w.Cancel()
}

func TestSingleFlight(t *testing.T) {
	rec := &recorder{}
	w := NewWorker(rec.notify, nil)

	release := make(chan struct{})
	firstRan := make(chan struct{})
	first := Func("first", func(ctx context.Context, emit Emit) error {
		close(firstRan)
		<-release
		return nil
	})
	secondRan := false
	second := Func("second", func(ctx context.Context, emit Emit) error {
		secondRan = true
		return nil
	})

	id, ok := w.Start(context.Background(), first)
	require.True(t, ok)
	require.NotEmpty(t, id)
	<-firstRan
	assert.True(t, w.IsAlive())

	_, ok = w.Start(context.Background(), second)
	assert.False(t, ok, "second start while running must be rejected")
	assert.Equal(t, Running, w.State())
	curID, curName := w.Current()
	assert.Equal(t, id, curID)
	assert.Equal(t, "first", curName)

	close(release)
	wait(t, w)
	assert.Equal(t, Completed, w.State())
	assert.False(t, secondRan)

	_, ok = w.Start(context.Background(), second)
	require.True(t, ok, "start after completion must succeed")
	wait(t, w)
	assert.True(t, secondRan)
}

func TestRestartAfterEveryTerminalState(t *testing.T) {
	boom := errors.New("boom")
	cases := map[State]Task{
		Completed: Func("ok", func(context.Context, Emit) error { return nil }),
		Failed:    Func("fail", func(context.Context, Emit) error { return boom }),
		Cancelled: Func("cancel", func(ctx context.Context, _ Emit) error {
			<-ctx.Done()
			return ctx.Err()
		}),
	}
	for want, tk := range cases {
		t.Run(want.String(), func(t *testing.T) {
			w := NewWorker(nil, nil)
			_, ok := w.Start(context.Background(), tk)
			require.True(t, ok)
			if want == Cancelled {
				w.Cancel()
			}
			wait(t, w)
			assert.Equal(t, want, w.State())
			assert.True(t, w.State().Terminal())

			_, ok = w.Start(context.Background(), Func("again", func(context.Context, Emit) error { return nil }))
			require.True(t, ok)
			wait(t, w)
			assert.Equal(t, Completed, w.State())
		})
	}
}

func TestFailureDelivered(t *testing.T) {
	rec := &recorder{}
	w := NewWorker(rec.notify, nil)
	boom := errors.New("network down")

	_, ok := w.Start(context.Background(), Func("launch", func(_ context.Context, emit Emit) error {
		emit(Progress(0.5, "halfway"))
		emit(Log("checking %s", "updates"))
		return boom
	}))
	require.True(t, ok)
	wait(t, w)

	assert.ErrorIs(t, w.Err(), boom)
	assert.Equal(t, []EventKind{EventStarted, EventProgress, EventLog, EventFinished}, rec.kinds())
	last := rec.last()
	assert.Equal(t, Failed, last.State)
	assert.Equal(t, "network down", last.Error)
	assert.Equal(t, "launch", last.Task)
}

func TestPanicBecomesFailure(t *testing.T) {
	rec := &recorder{}
	w := NewWorker(rec.notify, nil)
	_, ok := w.Start(context.Background(), Func("bad", func(context.Context, Emit) error {
		panic("kaboom")
	}))
	require.True(t, ok)
	wait(t, w)

	assert.Equal(t, Failed, w.State())
	require.Error(t, w.Err())
	assert.Contains(t, w.Err().Error(), "kaboom")
	assert.Equal(t, Failed, rec.last().State)
}

func TestParentContextCancels(t *testing.T) {
	w := NewWorker(nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	_, ok := w.Start(ctx, Func("long", func(ctx context.Context, _ Emit) error {
		<-ctx.Done()
		return ctx.Err()
	}))
	require.True(t, ok)
	cancel()
	wait(t, w)
	assert.Equal(t, Cancelled, w.State())
}

func TestConcurrentStartsOnlyOneWins(t *testing.T) {
	w := NewWorker(nil, nil)
	release := make(chan struct{})
	tk := Func("t", func(context.Context, Emit) error {
		<-release
		return nil
	})

	var wg sync.WaitGroup
	var mu sync.Mutex
	wins := 0
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, ok := w.Start(context.Background(), tk); ok {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	close(release)
	wait(t, w)
	assert.Equal(t, 1, wins)
}

func TestFinishedDeliveredBeforeNextStart(t *testing.T) {
	rec := &recorder{}
	finishing := make(chan struct{})
	release := make(chan struct{})
	w := NewWorker(func(ev Event) {
		rec.notify(ev)
		if ev.Kind == EventFinished && ev.Task == "first" {
			close(finishing)
			<-release
		}
	}, nil)
	nop := func(context.Context, Emit) error { return nil }

	_, ok := w.Start(context.Background(), Func("first", nop))
	require.True(t, ok)
	<-finishing
	assert.True(t, w.IsAlive(), "running until the finished event is delivered")
	_, ok = w.Start(context.Background(), Func("second", nop))
	assert.False(t, ok)

	close(release)
	wait(t, w)
	assert.Equal(t, Completed, w.State())
	_, ok = w.Start(context.Background(), Func("second", nop))
	require.True(t, ok)
	wait(t, w)

	assert.Equal(t, []EventKind{EventStarted, EventFinished, EventStarted, EventFinished}, rec.kinds())
}
