package handlers

import (
	"encoding/json"
	"errors"
	"image/png"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"mclauncher/launcher"
	"mclauncher/profile"
)

// ProfileView is the JSON shape of a profile.
type ProfileView struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	AppDir         string `json:"appDir,omitempty"`
	CustomBasePath string `json:"customBasePath,omitempty"`
	UpdateURL      string `json:"updateUrl,omitempty"`
	BuiltIn        bool   `json:"builtIn"`
	Default        bool   `json:"default"`
	Selected       bool   `json:"selected"`
	LastActiveJar  string `json:"lastActiveJar,omitempty"`
}

// CreateProfileRequest is the expected JSON body for POST /api/profiles
type CreateProfileRequest struct {
	Name      string `json:"name"`
	AppDir    string `json:"appDir"`
	BasePath  string `json:"basePath"`
	UpdateURL string `json:"updateUrl"`
}

// ProfileHandler handles profile management endpoints
type ProfileHandler struct {
	l   *launcher.Launcher
	log *zap.SugaredLogger
}

func NewProfileHandler(l *launcher.Launcher, log *zap.SugaredLogger) *ProfileHandler {
	return &ProfileHandler{l: l, log: log}
}

func (h *ProfileHandler) view(c *profile.Configuration) ProfileView {
	reg := h.l.Options().Registry()
	return ProfileView{
		ID:             c.ID(),
		Name:           c.Name(),
		AppDir:         c.AppDir(),
		CustomBasePath: c.CustomBasePath(),
		UpdateURL:      c.UpdateURL(),
		BuiltIn:        c.IsBuiltIn(),
		Default:        reg.Default() == c,
		Selected:       h.l.Workspace() == c,
		LastActiveJar:  c.LastActiveJar(),
	}
}

// profileStatus maps profile errors to HTTP status codes.
func profileStatus(err error) int {
	var verr *profile.ValidationError
	switch {
	case errors.Is(err, profile.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, profile.ErrBuiltIn), errors.Is(err, profile.ErrDuplicate):
		return http.StatusConflict
	case errors.As(err, &verr):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (h *ProfileHandler) lookup(w http.ResponseWriter, r *http.Request) (*profile.Configuration, bool) {
	c, err := h.l.Options().Registry().Get(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, profileStatus(err), err.Error())
		return nil, false
	}
	return c, true
}

func (h *ProfileHandler) save(w http.ResponseWriter) bool {
	if err := h.l.Options().Save(); err != nil {
		h.log.Errorw("failed to save options", "err", err)
		respondError(w, http.StatusInternalServerError, "Failed to save profiles")
		return false
	}
	return true
}

// List handles GET /api/profiles
func (h *ProfileHandler) List(w http.ResponseWriter, r *http.Request) {
	all := h.l.Options().Registry().List()
	out := make([]ProfileView, 0, len(all))
	for _, c := range all {
		out = append(out, h.view(c))
	}
	respondJSON(w, http.StatusOK, out)
}

// Create handles POST /api/profiles
func (h *ProfileHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Name == "" {
		respondError(w, http.StatusBadRequest, "Profile name is required")
		return
	}
	if req.AppDir != "" && req.BasePath != "" {
		respondError(w, http.StatusBadRequest, "Set either appDir or basePath, not both")
		return
	}

	c, err := h.l.Options().NewProfile(req.Name, req.AppDir, req.BasePath, req.UpdateURL)
	if err != nil {
		respondError(w, profileStatus(err), err.Error())
		return
	}
	if !h.save(w) {
		return
	}
	h.log.Infow("profile created", "profile", c.ID(), "name", c.Name())
	respondJSON(w, http.StatusCreated, h.view(c))
}

// Rename handles PUT /api/profiles/{id}/name
func (h *ProfileHandler) Rename(w http.ResponseWriter, r *http.Request) {
	c, ok := h.lookup(w, r)
	if !ok {
		return
	}
	var req struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := c.SetName(req.Name); err != nil {
		respondError(w, profileStatus(err), err.Error())
		return
	}
	if !h.save(w) {
		return
	}
	respondJSON(w, http.StatusOK, h.view(c))
}

// Delete handles DELETE /api/profiles/{id}
func (h *ProfileHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if h.l.IsAlive() && h.l.Workspace().ID() == id {
		respondError(w, http.StatusConflict, "Profile is in use by a running launch")
		return
	}
	selected := h.l.Workspace().ID() == id
	if err := h.l.Options().RemoveProfile(id); err != nil {
		respondError(w, profileStatus(err), err.Error())
		return
	}
	if selected {
		if _, err := h.l.Select(h.l.Options().Registry().Default().ID()); err != nil {
			h.log.Warnw("failed to select default profile", "err", err)
		}
	}
	if !h.save(w) {
		return
	}
	h.log.Infow("profile deleted", "profile", id)
	respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// Select handles POST /api/profiles/{id}/select
func (h *ProfileHandler) Select(w http.ResponseWriter, r *http.Request) {
	if h.l.IsAlive() {
		respondError(w, http.StatusConflict, "Cannot switch profiles while a launch is running")
		return
	}
	c, err := h.l.Select(chi.URLParam(r, "id"))
	switch {
	case errors.Is(err, launcher.ErrConfigurationBroken):
		respondJSON(w, http.StatusOK, map[string]any{
			"profile": h.view(c),
			"warning": "The selected profile's directory is unusable; switched to the default profile.",
		})
		return
	case err != nil:
		respondError(w, profileStatus(err), err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"profile": h.view(c)})
}

// Icon handles GET /api/profiles/{id}/icon
func (h *ProfileHandler) Icon(w http.ResponseWriter, r *http.Request) {
	c, ok := h.lookup(w, r)
	if !ok {
		return
	}
	img := c.Icon()
	if img == nil {
		respondError(w, http.StatusNotFound, "Profile has no icon")
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	if err := png.Encode(w, img); err != nil {
		h.log.Warnw("failed to encode icon", "profile", c.ID(), "err", err)
	}
}

// Jars handles GET /api/profiles/{id}/jars
func (h *ProfileHandler) Jars(w http.ResponseWriter, r *http.Request) {
	c, ok := h.lookup(w, r)
	if !ok {
		return
	}
	jars, err := c.Jars()
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"jars":     jars,
		"selected": c.SelectedJar(),
	})
}
