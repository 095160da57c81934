// Package console collects the output of a launched game so it can be shown
// in an attached console: the HTTP console socket, or the terminal when
// launching from the command line.
package console

import (
	"bufio"
	"io"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	maxLineBuffer = 500
	lineTrimSize  = 100
	subscriberCap = 1000
)

// Stream identifies where a line came from.
type Stream string

const (
	Stdout   Stream = "stdout"
	Stderr   Stream = "stderr"
	Launcher Stream = "launcher"
)

// Line is one line of console output.
type Line struct {
	Time   time.Time `json:"time"`
	Stream Stream    `json:"stream"`
	Text   string    `json:"text"`
}

// Hub buffers recent lines and fans them out to subscribers.  Closing the
// hub stands for closing the console window: when configured it also kills
// the game.
type Hub struct {
	log *zap.SugaredLogger

	mu          sync.RWMutex
	buffer      []Line
	subscribers []chan Line
	closed      bool
	killOnClose bool
	kill        func() error
}

func NewHub(log *zap.SugaredLogger) *Hub {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Hub{log: log}
}

// SetKiller registers the function that terminates the game.  When
// killOnClose is set, Close calls it.
func (h *Hub) SetKiller(kill func() error, killOnClose bool) {
	h.mu.Lock()
	h.kill = kill
	h.killOnClose = killOnClose
	h.mu.Unlock()
}

// Attach copies r into the hub line by line until EOF.
func (h *Hub) Attach(r io.Reader, stream Stream) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		h.Append(stream, strings.TrimRight(scanner.Text(), " \r"))
	}
	if err := scanner.Err(); err != nil {
		h.log.Debugw("console stream ended", "stream", stream, "err", err)
	}
}

// Append adds a line and broadcasts it.  Lines appended after Close are
// dropped.
func (h *Hub) Append(stream Stream, text string) {
	line := Line{Time: time.Now(), Stream: stream, Text: text}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.buffer = append(h.buffer, line)
	if len(h.buffer) > maxLineBuffer {
		h.buffer = h.buffer[lineTrimSize:]
	}
	for _, ch := range h.subscribers {
		select {
		case ch <- line:
		default:
		}
	}
}

// Subscribe returns a channel that first receives the buffered lines and
// then every new one, plus an unsubscribe function.  On a closed hub the
// channel is closed after the replay.
func (h *Hub) Subscribe() (<-chan Line, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	ch := make(chan Line, subscriberCap)
	for _, line := range h.buffer {
		select {
		case ch <- line:
		default:
		}
	}
	if h.closed {
		close(ch)
		return ch, func() {}
	}
	h.subscribers = append(h.subscribers, ch)

	unsubscribe := func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		for i, sub := range h.subscribers {
			if sub == ch {
				h.subscribers = append(h.subscribers[:i], h.subscribers[i+1:]...)
				close(ch)
				break
			}
		}
	}
	return ch, unsubscribe
}

// Lines returns a copy of the buffered lines.
func (h *Hub) Lines() []Line {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]Line, len(h.buffer))
	copy(out, h.buffer)
	return out
}

// Close ends the console.  Subscribers are disconnected and, if the hub was
// told to, the game is killed.  Close is idempotent.
func (h *Hub) Close() error {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil
	}
	h.closed = true
	for _, ch := range h.subscribers {
		close(ch)
	}
	h.subscribers = nil
	kill, killOnClose := h.kill, h.killOnClose
	h.mu.Unlock()

	if killOnClose && kill != nil {
		h.log.Infow("console closed, killing game")
		return kill()
	}
	return nil
}

// Closed reports whether Close was called.
func (h *Hub) Closed() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.closed
}
