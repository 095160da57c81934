// Package options is the launcher's persisted state: the profile list, the
// last used profile and username, saved identities, the server hot list and
// the global settings.
package options

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"

	"mclauncher/env"
	"mclauncher/profile"
	"mclauncher/settings"
)

type optionsFile struct {
	Profiles       []profile.Record  `json:"profiles"`
	DefaultProfile string            `json:"defaultProfile,omitempty"`
	LastConfig     string            `json:"lastConfig,omitempty"`
	LastUsername   string            `json:"lastUsername,omitempty"`
	Servers        map[string]string `json:"servers,omitempty"`
	Identities     *identityFile     `json:"identities,omitempty"`
}

// Options is safe for concurrent use.
type Options struct {
	env *env.Environment
	log *zap.SugaredLogger

	registry   *profile.Registry
	hotList    *profile.ServerHotList
	global     *settings.List
	identities *IdentityStore

	mu           sync.RWMutex
	lastConfig   string
	lastUsername string
}

// Load reads launcher.json and the settings files.  Unreadable or corrupt
// files are logged and replaced by defaults; only failures to set up the
// identity store are returned.
func Load(e *env.Environment, log *zap.SugaredLogger) (*Options, error) {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	o := &Options{
		env:      e,
		log:      log,
		registry: profile.NewRegistry(profile.NewDefault(e)),
		hotList:  profile.NewServerHotList(),
	}

	var f optionsFile
	data, err := os.ReadFile(e.OptionsPath())
	switch {
	case err == nil:
		if err := json.Unmarshal(data, &f); err != nil {
			log.Warnw("options file is corrupt, using defaults", "path", e.OptionsPath(), "err", err)
			f = optionsFile{}
		}
	case !os.IsNotExist(err):
		log.Warnw("failed to read options file, using defaults", "path", e.OptionsPath(), "err", err)
	}

	global, err := settings.Load(e.GlobalSettingsPath(), nil)
	if err != nil {
		log.Warnw("failed to load global settings", "err", err)
	}
	o.global = global
	o.registry.Default().SetSettings(o.loadProfileSettings(o.registry.Default().ID()))
	o.registry.Default().SetLogger(log)

	for _, r := range f.Profiles {
		if r.ID == o.registry.Default().ID() {
			o.registry.Default().SetLastActiveJar(r.LastActiveJar)
			continue
		}
		c, err := profile.FromRecord(e, r)
		if err != nil {
			log.Warnw("skipping invalid profile", "profile", r.ID, "err", err)
			continue
		}
		c.SetSettings(o.loadProfileSettings(c.ID()))
		c.SetLogger(log)
		if err := o.registry.Add(c); err != nil {
			log.Warnw("skipping profile", "profile", r.ID, "err", err)
		}
	}
	if f.DefaultProfile != "" {
		if err := o.registry.SetDefault(f.DefaultProfile); err != nil {
			log.Warnw("default profile not found", "profile", f.DefaultProfile)
		}
	}

	o.hotList.Import(f.Servers, true)
	o.lastConfig = f.LastConfig
	o.lastUsername = f.LastUsername

	ids, err := loadIdentityStore(e.LauncherDir()+"|"+e.Config().AppName, f.Identities)
	if err != nil {
		log.Warnw("saved identities unreadable, starting empty", "err", err)
		if ids, err = loadIdentityStore(e.LauncherDir()+"|"+e.Config().AppName, nil); err != nil {
			return nil, err
		}
	}
	o.identities = ids

	log.Infow("options loaded", "profiles", o.registry.Len(), "servers", len(f.Servers))
	return o, nil
}

func (o *Options) loadProfileSettings(id string) *settings.List {
	l, err := settings.Load(o.env.ProfileSettingsPath(id), o.global)
	if err != nil {
		o.log.Warnw("failed to load profile settings", "profile", id, "err", err)
	}
	return l
}

// Save writes launcher.json, the global settings and every profile's
// settings.  All files are attempted; failures are joined.
func (o *Options) Save() error {
	o.mu.RLock()
	f := optionsFile{
		DefaultProfile: o.registry.Default().ID(),
		LastConfig:     o.lastConfig,
		LastUsername:   o.lastUsername,
		Servers:        o.hotList.Entries(),
		Identities:     o.identities.file(),
	}
	o.mu.RUnlock()
	for _, c := range o.registry.List() {
		f.Profiles = append(f.Profiles, c.Record())
	}

	var errs []error
	if err := writeJSON(o.env.OptionsPath(), &f); err != nil {
		errs = append(errs, err)
	}
	if err := o.global.Save(o.env.GlobalSettingsPath()); err != nil {
		errs = append(errs, fmt.Errorf("global settings: %w", err))
	}
	for _, c := range o.registry.List() {
		if err := o.SaveProfileSettings(c); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// SaveProfileSettings writes only c's settings file.
func (o *Options) SaveProfileSettings(c *profile.Configuration) error {
	if err := c.Settings().Save(o.env.ProfileSettingsPath(c.ID())); err != nil {
		return fmt.Errorf("settings for %s: %w", c.ID(), err)
	}
	return nil
}

// writeJSON writes v to path atomically
func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal options: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create options directory: %w", err)
	}
	tmpFile := path + ".tmp"
	if err := os.WriteFile(tmpFile, data, 0o600); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := os.Rename(tmpFile, path); err != nil {
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	return nil
}

func (o *Options) Environment() *env.Environment   { return o.env }
func (o *Options) Registry() *profile.Registry     { return o.registry }
func (o *Options) HotList() *profile.ServerHotList { return o.hotList }
func (o *Options) Settings() *settings.List        { return o.global }
func (o *Options) Identities() *IdentityStore      { return o.identities }

// NewProfile creates, registers and returns a profile stored in its own app
// directory (or under basePath when it is non-empty).  Its settings fall
// back to the global settings.
func (o *Options) NewProfile(name, appDir, basePath, updateURL string) (*profile.Configuration, error) {
	id := o.registry.NewID()
	var (
		c   *profile.Configuration
		err error
	)
	if basePath != "" {
		c, err = profile.NewWithCustomPath(o.env, id, name, basePath, updateURL)
	} else {
		if appDir == "" {
			appDir = "mclauncher-" + id
		}
		c, err = profile.NewWithAppDir(o.env, id, name, appDir, updateURL)
	}
	if err != nil {
		return nil, err
	}
	c.SetSettings(settings.New(o.global))
	c.SetLogger(o.log)
	if err := o.registry.Add(c); err != nil {
		return nil, err
	}
	return c, nil
}

// RemoveProfile unregisters id and deletes its settings file.  Game files
// are left on disk.
func (o *Options) RemoveProfile(id string) error {
	if err := o.registry.Remove(id); err != nil {
		return err
	}
	o.mu.Lock()
	if o.lastConfig == id {
		o.lastConfig = ""
	}
	o.mu.Unlock()
	if err := os.Remove(o.env.ProfileSettingsPath(id)); err != nil && !os.IsNotExist(err) {
		o.log.Warnw("failed to remove profile settings", "profile", id, "err", err)
	}
	return nil
}

func (o *Options) LastConfigName() string {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.lastConfig
}

func (o *Options) SetLastConfigName(id string) {
	o.mu.Lock()
	o.lastConfig = id
	o.mu.Unlock()
}

func (o *Options) LastUsername() string {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.lastUsername
}

func (o *Options) SetLastUsername(u string) {
	o.mu.Lock()
	o.lastUsername = u
	o.mu.Unlock()
}

// StartupConfiguration returns the last used profile, or the default when
// there is none or it no longer exists.
func (o *Options) StartupConfiguration() *profile.Configuration {
	if id := o.LastConfigName(); id != "" {
		if c, err := o.registry.Get(id); err == nil {
			return c
		}
	}
	return o.registry.Default()
}
