package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"

	"mclauncher/launcher"
	"mclauncher/profile"
)

// CrashReportHandler handles crash report endpoints
type CrashReportHandler struct {
	l *launcher.Launcher
}

// NewCrashReportHandler creates a new CrashReportHandler
func NewCrashReportHandler(l *launcher.Launcher) *CrashReportHandler {
	return &CrashReportHandler{l: l}
}

func (h *CrashReportHandler) lookup(w http.ResponseWriter, r *http.Request) (*profile.Configuration, bool) {
	c, err := h.l.Options().Registry().Get(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusNotFound, err.Error())
		return nil, false
	}
	return c, true
}

func crashStatus(err error) int {
	switch {
	case errors.Is(err, os.ErrNotExist):
		return http.StatusNotFound
	case errors.Is(err, profile.ErrInvalidFile):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// List handles GET /api/profiles/{id}/crash-reports
func (h *CrashReportHandler) List(w http.ResponseWriter, r *http.Request) {
	c, ok := h.lookup(w, r)
	if !ok {
		return
	}
	reports, err := c.CrashReports()
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, reports)
}

// Read handles GET /api/profiles/{id}/crash-reports/{name}
func (h *CrashReportHandler) Read(w http.ResponseWriter, r *http.Request) {
	c, ok := h.lookup(w, r)
	if !ok {
		return
	}
	name := chi.URLParam(r, "name")
	content, err := c.ReadCrashReport(name)
	if err != nil {
		respondError(w, crashStatus(err), err.Error())
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.WriteHeader(http.StatusOK)
	w.Write(content)
}

// Delete handles DELETE /api/profiles/{id}/crash-reports/{name}
func (h *CrashReportHandler) Delete(w http.ResponseWriter, r *http.Request) {
	c, ok := h.lookup(w, r)
	if !ok {
		return
	}
	if err := c.DeleteCrashReport(chi.URLParam(r, "name")); err != nil {
		respondError(w, crashStatus(err), err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
