package update

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

const stateFile = ".update-state.yml"

// State is what the last successful update installed into a game directory.
type State struct {
	Version   string            `yaml:"version"`
	Source    string            `yaml:"source"`
	CheckedAt time.Time         `yaml:"checked_at"`
	Files     map[string]string `yaml:"files"` // path → sha256
}

// ReadState loads the state of gameDir.  A missing or corrupt file yields an
// empty state.
func ReadState(gameDir string) State {
	var s State
	data, err := os.ReadFile(filepath.Join(gameDir, stateFile))
	if err != nil {
		return State{Files: map[string]string{}}
	}
	if err := yaml.Unmarshal(data, &s); err != nil {
		return State{Files: map[string]string{}}
	}
	if s.Files == nil {
		s.Files = map[string]string{}
	}
	return s
}

func writeState(gameDir string, s State) error {
	data, err := yaml.Marshal(&s)
	if err != nil {
		return fmt.Errorf("failed to marshal update state: %w", err)
	}
	path := filepath.Join(gameDir, stateFile)
	tmpFile := path + ".tmp"
	if err := os.WriteFile(tmpFile, data, 0o644); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := os.Rename(tmpFile, path); err != nil {
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	return nil
}

// hashFile returns the hex sha256 of path.
func hashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
