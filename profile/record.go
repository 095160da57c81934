package profile

import "mclauncher/env"

// Record is the persisted form of a Configuration.
type Record struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	AppDir         string `json:"appDir,omitempty"`
	CustomBasePath string `json:"customBasePath,omitempty"`
	UpdateURL      string `json:"updateUrl,omitempty"`
	BuiltIn        bool   `json:"builtIn,omitempty"`
	LastActiveJar  string `json:"lastActiveJar,omitempty"`
}

// Record snapshots c for persistence.
func (c *Configuration) Record() Record {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return Record{
		ID:             c.id,
		Name:           c.name,
		AppDir:         c.appDir,
		CustomBasePath: c.customBasePath,
		UpdateURL:      c.updateURL,
		BuiltIn:        c.builtIn,
		LastActiveJar:  c.lastActiveJar,
	}
}

// FromRecord rebuilds a Configuration, validating every field.
func FromRecord(e *env.Environment, r Record) (*Configuration, error) {
	c, err := newConfiguration(e, r.ID, r.Name)
	if err != nil {
		return nil, err
	}
	if err := c.SetAppDir(r.AppDir); err != nil {
		return nil, err
	}
	if err := c.SetCustomBasePath(r.CustomBasePath); err != nil {
		return nil, err
	}
	if err := c.SetUpdateURL(r.UpdateURL); err != nil {
		return nil, err
	}
	c.builtIn = r.BuiltIn
	c.lastActiveJar = r.LastActiveJar
	return c, nil
}
