// Package profile holds launcher profiles ("configurations"): where each
// installation lives, its settings overrides, its icon and its multiplayer
// server list, plus the registry and server hot list that group them.
package profile

import (
	"fmt"
	"image"
	"os"
	"sync"

	"go.uber.org/zap"

	"mclauncher/env"
	"mclauncher/settings"
)

// DefaultJar is launched when a profile has no jar selected.
const DefaultJar = "minecraft.jar"

// Configuration is one installation profile.  Setters validate and leave the
// value untouched on error.
type Configuration struct {
	env *env.Environment
	log *zap.SugaredLogger

	mu             sync.RWMutex
	id             string
	name           string
	appDir         string
	customBasePath string
	updateURL      string
	builtIn        bool
	lastActiveJar  string
	settings       *settings.List

	iconMu      sync.Mutex
	iconChecked bool
	icon        image.Image
}

func newConfiguration(e *env.Environment, id, name string) (*Configuration, error) {
	if err := validateID(id); err != nil {
		return nil, err
	}
	if err := validateName(name); err != nil {
		return nil, err
	}
	return &Configuration{env: e, log: zap.NewNop().Sugar(), id: id, name: name, settings: settings.New(nil)}, nil
}

// NewWithAppDir creates a profile stored in the platform data directory named
// appDir.  An empty appDir means the platform default install directory.
func NewWithAppDir(e *env.Environment, id, name, appDir, updateURL string) (*Configuration, error) {
	c, err := newConfiguration(e, id, name)
	if err != nil {
		return nil, err
	}
	if err := c.SetAppDir(appDir); err != nil {
		return nil, err
	}
	if err := c.SetUpdateURL(updateURL); err != nil {
		return nil, err
	}
	return c, nil
}

// NewWithCustomPath creates a profile stored under an absolute directory.
func NewWithCustomPath(e *env.Environment, id, name, basePath, updateURL string) (*Configuration, error) {
	c, err := newConfiguration(e, id, name)
	if err != nil {
		return nil, err
	}
	if err := c.SetCustomBasePath(basePath); err != nil {
		return nil, err
	}
	if err := c.SetUpdateURL(updateURL); err != nil {
		return nil, err
	}
	return c, nil
}

// NewDefault returns the built-in profile that uses the stock game directory.
func NewDefault(e *env.Environment) *Configuration {
	c, _ := newConfiguration(e, "minecraft", "Minecraft")
	c.builtIn = true
	return c
}

// SetLogger sets where the profile reports files it had to skip.
func (c *Configuration) SetLogger(log *zap.SugaredLogger) {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	c.mu.Lock()
	c.log = log.With("profile", c.id)
	c.mu.Unlock()
}

func (c *Configuration) logger() *zap.SugaredLogger {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.log
}

// ID is the immutable identifier used in file names.
func (c *Configuration) ID() string { return c.id }

// Name is the display name.
func (c *Configuration) Name() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.name
}

// SetName renames the profile; invalid names return ErrInvalidName.
func (c *Configuration) SetName(name string) error {
	if err := validateName(name); err != nil {
		return err
	}
	c.mu.Lock()
	c.name = name
	c.mu.Unlock()
	return nil
}

// AppDir is the named data directory, or "".
func (c *Configuration) AppDir() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.appDir
}

// SetAppDir sets the named data directory; "" clears it.
func (c *Configuration) SetAppDir(dir string) error {
	if err := validateAppDir(dir); err != nil {
		return err
	}
	c.mu.Lock()
	c.appDir = dir
	c.mu.Unlock()
	return nil
}

// CustomBasePath is the absolute storage directory, or "".
func (c *Configuration) CustomBasePath() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.customBasePath
}

// SetCustomBasePath sets an absolute storage directory; "" clears it.
func (c *Configuration) SetCustomBasePath(p string) error {
	if err := validatePath(p); err != nil {
		return err
	}
	c.mu.Lock()
	c.customBasePath = p
	c.mu.Unlock()
	return nil
}

// UpdateURL returns the profile's update source, or "" for the default.
func (c *Configuration) UpdateURL() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.updateURL
}

// SetUpdateURL sets the update source; "" selects the default.
func (c *Configuration) SetUpdateURL(u string) error {
	if err := validateUpdateURL(u); err != nil {
		return err
	}
	c.mu.Lock()
	c.updateURL = u
	c.mu.Unlock()
	return nil
}

// IsBuiltIn reports whether the profile ships with the launcher and cannot
// be removed.
func (c *Configuration) IsBuiltIn() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.builtIn
}

// SetBuiltIn marks the profile as shipped with the launcher.
func (c *Configuration) SetBuiltIn(b bool) {
	c.mu.Lock()
	c.builtIn = b
	c.mu.Unlock()
}

// Settings are the profile's overrides; reads fall back to the global list.
func (c *Configuration) Settings() *settings.List {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.settings
}

// SetSettings replaces the profile's settings list.
func (c *Configuration) SetSettings(s *settings.List) {
	c.mu.Lock()
	c.settings = s
	c.mu.Unlock()
}

// LastActiveJar is the jar last launched from this profile, or "".
func (c *Configuration) LastActiveJar() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastActiveJar
}

// SetLastActiveJar remembers the jar of a launch that started the game.
func (c *Configuration) SetLastActiveJar(name string) {
	c.mu.Lock()
	c.lastActiveJar = name
	c.mu.Unlock()
}

// IsUsingDefaultPath reports whether neither a custom path nor an app
// directory is set.
func (c *Configuration) IsUsingDefaultPath() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.customBasePath == "" && c.appDir == ""
}

// BaseDir resolves the storage directory (custom path, then named app
// directory, then the launcher's own directory) and creates it.
func (c *Configuration) BaseDir() (string, error) {
	c.mu.RLock()
	custom, appDir := c.customBasePath, c.appDir
	c.mu.RUnlock()

	var dir string
	switch {
	case custom != "":
		dir = custom
	case appDir != "":
		dir = c.env.AppDataDir(appDir)
	default:
		dir = c.env.LauncherDir()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create base directory: %w", err)
	}
	return dir, nil
}

// Available reports whether the storage directory can be used without
// creating a custom path that has gone missing.  Named and launcher
// directories are created as BaseDir does.
func (c *Configuration) Available() error {
	custom := c.CustomBasePath()
	if custom == "" {
		_, err := c.BaseDir()
		return err
	}
	fi, err := os.Stat(custom)
	if err != nil {
		return err
	}
	if !fi.IsDir() {
		return fmt.Errorf("%s is not a directory", custom)
	}
	return nil
}

// MinecraftDir resolves the directory the game runs in and creates it.
// Profiles on the default path share the stock client's directory.
func (c *Configuration) MinecraftDir() (string, error) {
	var dir string
	if c.IsUsingDefaultPath() {
		dir = c.env.OfficialDataDir()
	} else {
		base, err := c.BaseDir()
		if err != nil {
			return "", err
		}
		dir = c.env.ToMinecraftDir(base)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create game directory: %w", err)
	}
	return dir, nil
}

func (c *Configuration) String() string {
	return fmt.Sprintf("%s (%s)", c.Name(), c.id)
}
