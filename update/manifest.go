// Package update keeps a profile's game directory in step with its update
// source.
//
// An update source is a manifest (YAML or JSON) listing the files of one
// game version with their checksums.  A Check compares it with what is
// installed; Apply downloads the changed files into a staging directory and
// only then swaps them into place, restoring the previous files if any step
// of the swap fails.
package update

import (
	"errors"
	"fmt"
	"net/url"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"golang.org/x/mod/semver"
	"gopkg.in/yaml.v3"
)

var (
	ErrChecksumMismatch = errors.New("checksum mismatch")
	ErrBadManifest      = errors.New("invalid update manifest")
)

// File is one entry of a manifest.  Path is relative to the game directory
// and uses forward slashes.
type File struct {
	Path   string `yaml:"path" json:"path"`
	URL    string `yaml:"url" json:"url"`
	SHA256 string `yaml:"sha256" json:"sha256"`
	Size   int64  `yaml:"size,omitempty" json:"size,omitempty"`
}

// Manifest describes one published game version.
type Manifest struct {
	Version string `yaml:"version" json:"version"`
	Files   []File `yaml:"files" json:"files"`
	// Preserve lists glob patterns for user files that are never replaced
	// once they exist locally (saves, options.txt, ...).
	Preserve []string `yaml:"preserve,omitempty" json:"preserve,omitempty"`
}

// ParseManifest decodes a YAML or JSON manifest fetched from base and
// resolves relative file URLs against it.
func ParseManifest(data []byte, base string) (*Manifest, error) {
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadManifest, err)
	}
	if err := m.normalize(base); err != nil {
		return nil, err
	}
	return &m, nil
}

func (m *Manifest) normalize(base string) error {
	if strings.TrimSpace(m.Version) == "" {
		return fmt.Errorf("%w: missing version", ErrBadManifest)
	}
	baseURL, err := url.Parse(base)
	if err != nil {
		return fmt.Errorf("%w: bad base URL: %v", ErrBadManifest, err)
	}
	seen := make(map[string]bool, len(m.Files))
	for i := range m.Files {
		f := &m.Files[i]
		if !filepath.IsLocal(filepath.FromSlash(f.Path)) {
			return fmt.Errorf("%w: unsafe path %q", ErrBadManifest, f.Path)
		}
		if seen[f.Path] {
			return fmt.Errorf("%w: duplicate path %q", ErrBadManifest, f.Path)
		}
		seen[f.Path] = true
		if f.SHA256 == "" {
			return fmt.Errorf("%w: %s has no sha256", ErrBadManifest, f.Path)
		}
		f.SHA256 = strings.ToLower(f.SHA256)
		ref, err := url.Parse(f.URL)
		if err != nil || f.URL == "" {
			return fmt.Errorf("%w: %s has a bad url", ErrBadManifest, f.Path)
		}
		f.URL = baseURL.ResolveReference(ref).String()
	}
	for _, p := range m.Preserve {
		if !doublestar.ValidatePattern(p) {
			return fmt.Errorf("%w: bad preserve pattern %q", ErrBadManifest, p)
		}
	}
	return nil
}

// Preserved reports whether path matches one of the preserve patterns.
func (m *Manifest) Preserved(path string) bool {
	for _, p := range m.Preserve {
		if ok, _ := doublestar.Match(p, path); ok {
			return true
		}
	}
	return false
}

// Newer reports whether version a is newer than b.  Versions that are not
// semantic versions are compared for inequality only.
func Newer(a, b string) bool {
	if b == "" {
		return a != ""
	}
	ca, cb := canonical(a), canonical(b)
	if semver.IsValid(ca) && semver.IsValid(cb) {
		return semver.Compare(ca, cb) > 0
	}
	return a != b
}

func canonical(v string) string {
	v = strings.TrimSpace(v)
	if !strings.HasPrefix(v, "v") {
		v = "v" + v
	}
	return v
}
