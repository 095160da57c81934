package profile

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
)

const crashDir = "crash-reports"

// CrashReport describes one file in the game's crash-reports directory.
type CrashReport struct {
	Name  string    `json:"name"`
	Date  time.Time `json:"date"`
	Size  string    `json:"size"`
	Cause string    `json:"cause"`
}

// CrashReports lists the profile's crash reports, newest first.  A missing
// directory yields an empty list.
func (c *Configuration) CrashReports() ([]CrashReport, error) {
	game, err := c.MinecraftDir()
	if err != nil {
		return nil, err
	}
	dir := filepath.Join(game, crashDir)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return []CrashReport{}, nil
		}
		return nil, err
	}

	reports := make([]CrashReport, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".txt") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		reports = append(reports, CrashReport{
			Name:  e.Name(),
			Date:  info.ModTime().UTC(),
			Size:  humanize.Bytes(uint64(info.Size())),
			Cause: crashCause(filepath.Join(dir, e.Name())),
		})
	}
	sort.Slice(reports, func(i, j int) bool {
		return reports[i].Date.After(reports[j].Date)
	})
	return reports, nil
}

// crashCause returns the Description line from the report header.
func crashCause(path string) string {
	f, err := os.Open(path)
	if err != nil {
		return "Unknown"
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for i := 0; i < 30 && scanner.Scan(); i++ {
		if cause, ok := strings.CutPrefix(scanner.Text(), "Description: "); ok {
			return cause
		}
	}
	return "Unknown"
}

func (c *Configuration) crashPath(name string) (string, error) {
	if name == "" || name != filepath.Base(name) || !filepath.IsLocal(name) {
		return "", fmt.Errorf("%w: crash report %q", ErrInvalidFile, name)
	}
	game, err := c.MinecraftDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(game, crashDir, name), nil
}

// ReadCrashReport returns the content of one crash report.
func (c *Configuration) ReadCrashReport(name string) ([]byte, error) {
	path, err := c.crashPath(name)
	if err != nil {
		return nil, err
	}
	return os.ReadFile(path)
}

// DeleteCrashReport removes one crash report.
func (c *Configuration) DeleteCrashReport(name string) error {
	path, err := c.crashPath(name)
	if err != nil {
		return err
	}
	return os.Remove(path)
}
