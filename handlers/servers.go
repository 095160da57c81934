package handlers

import (
	"encoding/json"
	"net/http"
	"sort"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"mclauncher/launcher"
	"mclauncher/profile"
)

// ServerEntry is one hot list server.
type ServerEntry struct {
	Name    string `json:"name"`
	Address string `json:"address"`
}

// CreateServerRequest is the expected JSON body for POST /api/servers
type CreateServerRequest struct {
	Name      string `json:"name"`
	Address   string `json:"address"`
	Overwrite bool   `json:"overwrite"`
}

// ServerHandler handles the server hot list
type ServerHandler struct {
	l   *launcher.Launcher
	log *zap.SugaredLogger
}

// NewServerHandler creates a new ServerHandler
func NewServerHandler(l *launcher.Launcher, log *zap.SugaredLogger) *ServerHandler {
	return &ServerHandler{l: l, log: log}
}

// List handles GET /api/servers
func (h *ServerHandler) List(w http.ResponseWriter, r *http.Request) {
	entries := h.l.Options().HotList().Entries()
	out := make([]ServerEntry, 0, len(entries))
	for name, addr := range entries {
		out = append(out, ServerEntry{Name: name, Address: addr})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	respondJSON(w, http.StatusOK, out)
}

// Create handles POST /api/servers
func (h *ServerHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateServerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Name == "" {
		respondError(w, http.StatusBadRequest, "Server name is required")
		return
	}
	if req.Address == "" {
		respondError(w, http.StatusBadRequest, "Server address is required")
		return
	}
	if _, _, err := profile.SplitAddress(req.Address); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	hot := h.l.Options().HotList()
	if old, ok := hot.Get(req.Name); ok && old != req.Address && !req.Overwrite {
		respondError(w, http.StatusConflict, "A server with that name already exists")
		return
	}
	hot.Register(req.Name, req.Address, true)
	if err := h.l.Options().Save(); err != nil {
		h.log.Errorw("failed to save options", "err", err)
		respondError(w, http.StatusInternalServerError, "Failed to save server list")
		return
	}
	respondJSON(w, http.StatusCreated, ServerEntry{Name: req.Name, Address: req.Address})
}

// Delete handles DELETE /api/servers/{name}
func (h *ServerHandler) Delete(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if _, ok := h.l.Options().HotList().Get(name); !ok {
		respondError(w, http.StatusNotFound, "Server not found")
		return
	}
	h.l.Options().HotList().Remove(name)
	if err := h.l.Options().Save(); err != nil {
		h.log.Errorw("failed to save options", "err", err)
		respondError(w, http.StatusInternalServerError, "Failed to save server list")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
