package env

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
)

// Environment is the explicit replacement for a process-wide launcher
// accessor.  It answers where the launcher keeps its own data and where game
// installations live on this platform.  Build one per process (or per test).
type Environment struct {
	cfg  Config
	home string
	goos string
}

// New builds an Environment from cfg.  When cfg.Paths.Home is empty the
// current user's home directory is used.
func New(cfg Config) (*Environment, error) {
	home := cfg.Paths.Home
	if home == "" {
		h, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("cannot determine home directory: %w", err)
		}
		home = h
	}
	return &Environment{cfg: cfg, home: home, goos: runtime.GOOS}, nil
}

// NewForTest returns an Environment rooted entirely under dir, using
// compiled-in defaults.
func NewForTest(dir string) *Environment {
	cfg := Defaults()
	cfg.Paths.Home = dir
	return &Environment{cfg: cfg, home: dir, goos: runtime.GOOS}
}

// Config returns a copy of the configuration the Environment was built from.
func (e *Environment) Config() Config {
	return e.cfg
}

// SetUpdateURL overrides the default update source.  Used by tests and by
// the --update-url flag.
func (e *Environment) SetUpdateURL(u string) {
	e.cfg.Update.DefaultURL = u
}

// SetAuthURL overrides the login service URL.
func (e *Environment) SetAuthURL(u string) {
	e.cfg.Auth.URL = u
}

// AppDataDir returns the platform data directory for an application name:
// %APPDATA%\.name on Windows, ~/Library/Application Support/name on macOS
// and ~/.name elsewhere.  The directory is not created.
func (e *Environment) AppDataDir(name string) string {
	switch e.goos {
	case "windows":
		base := filepath.Join(e.home, "AppData", "Roaming")
		if e.cfg.Paths.Home == "" {
			if appData := os.Getenv("APPDATA"); appData != "" {
				base = appData
			}
		}
		return filepath.Join(base, "."+name)
	case "darwin":
		return filepath.Join(e.home, "Library", "Application Support", name)
	default:
		return filepath.Join(e.home, "."+name)
	}
}

// LauncherDir is where the launcher keeps its own files: options, settings,
// logs, and the storage of profiles using the default path.
func (e *Environment) LauncherDir() string {
	if e.cfg.Paths.DataDir != "" {
		return e.cfg.Paths.DataDir
	}
	return e.AppDataDir(e.cfg.AppName)
}

// OfficialDataDir is the game directory used by the stock client.
func (e *Environment) OfficialDataDir() string {
	return e.AppDataDir("minecraft")
}

// ToMinecraftDir maps a profile base directory to the game directory inside
// it.
func (e *Environment) ToMinecraftDir(base string) string {
	return filepath.Join(base, "minecraft")
}

// ProfileSettingsPath is the per-profile settings file for id.
func (e *Environment) ProfileSettingsPath(id string) string {
	return filepath.Join(e.LauncherDir(), "profiles", id+".yml")
}

// GlobalSettingsPath is the launcher-wide settings file.
func (e *Environment) GlobalSettingsPath() string {
	return filepath.Join(e.LauncherDir(), "settings.yml")
}

// OptionsPath is the persisted launcher options file.
func (e *Environment) OptionsPath() string {
	return filepath.Join(e.LauncherDir(), "launcher.json")
}
