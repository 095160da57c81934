package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"mclauncher/console"
	"mclauncher/launcher"
)

// LaunchRequest is the expected JSON body for POST /api/launch
type LaunchRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Remember bool   `json:"remember"`
	Server   string `json:"server"`
	Jar      string `json:"jar"`
	// SkipUpdate launches without checking for updates.
	SkipUpdate bool `json:"skipUpdate"`
}

// StatusResponse describes the launch worker and the running game.
type StatusResponse struct {
	State   string         `json:"state"`
	Alive   bool           `json:"alive"`
	Profile string         `json:"profile"`
	PID     int            `json:"pid,omitempty"`
	Stats   *console.Stats `json:"stats,omitempty"`
}

// LaunchHandler starts and observes launches
type LaunchHandler struct {
	l   *launcher.Launcher
	log *zap.SugaredLogger
}

func NewLaunchHandler(l *launcher.Launcher, log *zap.SugaredLogger) *LaunchHandler {
	return &LaunchHandler{l: l, log: log}
}

// Launch handles POST /api/launch
func (h *LaunchHandler) Launch(w http.ResponseWriter, r *http.Request) {
	var req LaunchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Username == "" {
		req.Username = h.l.Options().LastUsername()
	}

	// The launch outlives this request.
	id, ok := h.l.Launch(context.Background(), launcher.Request{
		Username:    req.Username,
		Password:    req.Password,
		Remember:    req.Remember,
		AutoConnect: req.Server,
		Jar:         req.Jar,
		SkipUpdate:  req.SkipUpdate,
	})
	if !ok {
		respondError(w, http.StatusConflict, "A launch is already running")
		return
	}
	h.log.Infow("launch started", "task", id, "profile", h.l.Workspace().ID(), "user", req.Username)
	respondJSON(w, http.StatusAccepted, map[string]string{"taskId": id})
}

// Cancel handles POST /api/launch/cancel
func (h *LaunchHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	if !h.l.IsAlive() {
		respondError(w, http.StatusConflict, "No launch is running")
		return
	}
	h.l.Cancel()
	respondJSON(w, http.StatusOK, map[string]string{"status": "cancelling"})
}

// Status handles GET /api/status
func (h *LaunchHandler) Status(w http.ResponseWriter, r *http.Request) {
	resp := StatusResponse{
		State:   h.l.State().String(),
		Alive:   h.l.IsAlive(),
		Profile: h.l.Workspace().ID(),
		PID:     h.l.PID(),
	}
	if resp.PID > 0 {
		if s, err := console.Sample(resp.PID); err == nil {
			resp.Stats = &s
		}
	}
	respondJSON(w, http.StatusOK, resp)
}
