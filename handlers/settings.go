package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"mclauncher/launcher"
	"mclauncher/profile"
	"mclauncher/settings"
)

type settingKey struct {
	Name    string        `json:"name"`
	Kind    settings.Kind `json:"kind"`
	Default any           `json:"default"`
}

// SettingsUpdate is the expected JSON body for PUT /api/settings.  Values
// may be JSON scalars or their string form.  Unset drops overrides so the
// key falls back to the global value or its default.
type SettingsUpdate struct {
	Profile string         `json:"profile"`
	Values  map[string]any `json:"values"`
	Unset   []string       `json:"unset"`
}

type SettingsHandler struct {
	l   *launcher.Launcher
	log *zap.SugaredLogger
}

func NewSettingsHandler(l *launcher.Launcher, log *zap.SugaredLogger) *SettingsHandler {
	return &SettingsHandler{l: l, log: log}
}

// target returns the settings list for profile id, or the global list when
// id is empty.
func (h *SettingsHandler) target(id string) (*settings.List, *profile.Configuration, error) {
	if id == "" {
		return h.l.Options().Settings(), nil, nil
	}
	c, err := h.l.Options().Registry().Get(id)
	if err != nil {
		return nil, nil, err
	}
	return c.Settings(), c, nil
}

// Get handles GET /api/settings?profile={id}
func (h *SettingsHandler) Get(w http.ResponseWriter, r *http.Request) {
	list, _, err := h.target(r.URL.Query().Get("profile"))
	if err != nil {
		respondError(w, profileStatus(err), err.Error())
		return
	}
	defs := settings.Defs()
	keys := make([]settingKey, 0, len(defs))
	for _, d := range defs {
		keys = append(keys, settingKey{Name: d.Name, Kind: d.Kind, Default: d.Default})
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"keys":      keys,
		"effective": list.Effective(),
		"overrides": list.Overrides(),
	})
}

// Update handles PUT /api/settings
func (h *SettingsHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req SettingsUpdate
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	list, c, err := h.target(req.Profile)
	if err != nil {
		respondError(w, profileStatus(err), err.Error())
		return
	}

	// validate everything before touching the live list
	scratch := settings.New(nil)
	raw := make(map[string]string, len(req.Values))
	for name, v := range req.Values {
		s := fmt.Sprint(v)
		if err := scratch.Parse(name, s); err != nil {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		raw[name] = s
	}
	for _, name := range req.Unset {
		if _, ok := settings.Lookup(name); !ok {
			respondError(w, http.StatusBadRequest, fmt.Sprintf("unknown setting %q", name))
			return
		}
	}

	for name, s := range raw {
		list.Parse(name, s)
	}
	for _, name := range req.Unset {
		list.Unset(name)
	}

	if c != nil {
		err = h.l.Options().SaveProfileSettings(c)
	} else {
		err = h.l.Options().Save()
	}
	if err != nil {
		h.log.Errorw("failed to save settings", "profile", req.Profile, "err", err)
		respondError(w, http.StatusInternalServerError, "Failed to save settings")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"effective": list.Effective(),
		"overrides": list.Overrides(),
	})
}
