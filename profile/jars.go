package profile

import (
	"archive/zip"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Jar is a game jar found in a profile's bin directory.
type Jar struct {
	Name    string `json:"name"`
	Path    string `json:"path"`
	Version string `json:"version,omitempty"`
}

// BinDir is where a profile keeps its game jars.
func (c *Configuration) BinDir() (string, error) {
	dir, err := c.MinecraftDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "bin"), nil
}

// Jars lists *.jar files in the bin directory, sorted by name.  A missing
// directory yields an empty list.
func (c *Configuration) Jars() ([]Jar, error) {
	bin, err := c.BinDir()
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(bin)
	if err != nil {
		if os.IsNotExist(err) {
			return []Jar{}, nil
		}
		return nil, err
	}
	jars := []Jar{}
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(strings.ToLower(e.Name()), ".jar") {
			continue
		}
		path := filepath.Join(bin, e.Name())
		jars = append(jars, Jar{Name: e.Name(), Path: path, Version: jarVersion(path)})
	}
	sort.Slice(jars, func(i, j int) bool { return jars[i].Name < jars[j].Name })
	return jars, nil
}

// SelectedJar is the jar a launch should use: the last active one, else
// DefaultJar.
func (c *Configuration) SelectedJar() string {
	if j := c.LastActiveJar(); j != "" {
		return j
	}
	return DefaultJar
}

// jarVersion reads the version label from a jar's version.json, or "".
func jarVersion(path string) string {
	r, err := zip.OpenReader(path)
	if err != nil {
		return ""
	}
	defer r.Close()

	for _, f := range r.File {
		if f.Name != "version.json" {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return ""
		}
		defer rc.Close()

		var data struct {
			ID   string `json:"id"`
			Name string `json:"name"`
		}
		if err := json.NewDecoder(rc).Decode(&data); err != nil {
			return ""
		}
		if data.ID != "" {
			return data.ID
		}
		return data.Name
	}
	return ""
}
