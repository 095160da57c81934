package handlers

import (
	"net/http"
	"strings"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"mclauncher/console"
	"mclauncher/launcher"
	"mclauncher/task"
)

// ConsoleHandler handles WebSocket connections for console streaming
type ConsoleHandler struct {
	l        *launcher.Launcher
	log      *zap.SugaredLogger
	upgrader websocket.Upgrader
}

// NewConsoleHandler creates a new ConsoleHandler
func NewConsoleHandler(l *launcher.Launcher, log *zap.SugaredLogger) *ConsoleHandler {
	return &ConsoleHandler{
		l:   l,
		log: log,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true // CORS handled at middleware level
			},
		},
	}
}

// wsMessage is the JSON structure sent to WebSocket clients
type wsMessage struct {
	Type  string        `json:"type"`
	Line  *console.Line `json:"line,omitempty"`
	Event *task.Event   `json:"event,omitempty"`
}

// WebSocket streams the current game's console and task events.  A client
// sending "close" closes the console, which kills the game when the
// console.kills-process setting is on.
func (h *ConsoleHandler) WebSocket() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := h.upgrader.Upgrade(w, r, nil)
		if err != nil {
			h.log.Warnw("websocket upgrade failed", "err", err)
			return
		}
		defer conn.Close()

		hub := h.l.Console()
		lines, unsubscribe := hub.Subscribe()
		defer unsubscribe()
		events, stopEvents := h.l.Subscribe()
		defer stopEvents()

		done := make(chan struct{})

		// Read goroutine: client sends commands
		go func() {
			defer close(done)
			for {
				_, msg, err := conn.ReadMessage()
				if err != nil {
					if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
						h.log.Debugw("websocket read error", "err", err)
					}
					return
				}
				if strings.TrimSpace(string(msg)) == "close" {
					if err := hub.Close(); err != nil {
						h.log.Warnw("failed to kill game on console close", "err", err)
					}
				}
			}
		}()

		for {
			select {
			case line, ok := <-lines:
				if !ok {
					conn.WriteMessage(websocket.CloseMessage,
						websocket.FormatCloseMessage(websocket.CloseNormalClosure, "console closed"))
					return
				}
				if err := conn.WriteJSON(wsMessage{Type: "log", Line: &line}); err != nil {
					h.log.Debugw("websocket write error", "err", err)
					return
				}
			case ev, ok := <-events:
				if !ok {
					return
				}
				if err := conn.WriteJSON(wsMessage{Type: "event", Event: &ev}); err != nil {
					h.log.Debugw("websocket write error", "err", err)
					return
				}
			case <-done:
				return
			}
		}
	})
}
