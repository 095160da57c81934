package update

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"mclauncher/metrics"
)

// Plan is the result of a Check.
type Plan struct {
	Source    string
	Installed string
	Manifest  *Manifest // nil when the check was skipped
	Outdated  bool
	// Files still to fetch; empty when the installation already matches.
	Files   []File
	Skipped bool
}

// Total is the number of bytes Files declare, 0 when unknown.
func (p *Plan) Total() int64 {
	var n int64
	for _, f := range p.Files {
		n += f.Size
	}
	return n
}

// Empty reports whether there is nothing to download.
func (p *Plan) Empty() bool { return len(p.Files) == 0 }

// CheckOptions tune Check.
type CheckOptions struct {
	// Force checks even when the last check is recent and verifies every
	// file against its checksum.
	Force bool
	// Interval is how long a previous check stays fresh.  Zero always checks.
	Interval time.Duration
	Now      func() time.Time
}

// Check compares the installation in gameDir with the manifest at source.
func (c *Client) Check(ctx context.Context, gameDir, source string, opts CheckOptions) (*Plan, error) {
	now := time.Now
	if opts.Now != nil {
		now = opts.Now
	}
	st := ReadState(gameDir)
	plan := &Plan{Source: source, Installed: st.Version}

	if !opts.Force && st.Version != "" && st.Source == source && opts.Interval > 0 &&
		now().Sub(st.CheckedAt) < opts.Interval {
		metrics.UpdateChecks.WithLabelValues("skipped").Inc()
		plan.Skipped = true
		return plan, nil
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m, err := c.FetchManifest(ctx, source)
	if err != nil {
		metrics.UpdateChecks.WithLabelValues("error").Inc()
		return nil, err
	}
	plan.Manifest = m
	plan.Outdated = opts.Force || st.Source != source || Newer(m.Version, st.Version)

	if plan.Outdated {
		for _, f := range m.Files {
			local := filepath.Join(gameDir, filepath.FromSlash(f.Path))
			if _, err := os.Stat(local); err == nil && m.Preserved(f.Path) {
				continue
			}
			sum, err := hashFile(local)
			if err == nil && sum == f.SHA256 {
				continue
			}
			plan.Files = append(plan.Files, f)
		}
		metrics.UpdateChecks.WithLabelValues("outdated").Inc()
	} else {
		metrics.UpdateChecks.WithLabelValues("current").Inc()
	}

	c.log.Infow("update check",
		"dir", gameDir,
		"installed", st.Version,
		"available", m.Version,
		"outdated", plan.Outdated,
		"files", len(plan.Files),
	)
	return plan, nil
}

// MarkChecked records a check that found nothing to do.
func MarkChecked(gameDir string, plan *Plan, now time.Time) error {
	if plan.Manifest == nil {
		return nil
	}
	st := ReadState(gameDir)
	st.Version = plan.Manifest.Version
	st.Source = plan.Source
	st.CheckedAt = now
	for _, f := range plan.Manifest.Files {
		st.Files[f.Path] = f.SHA256
	}
	if err := writeState(gameDir, st); err != nil {
		return fmt.Errorf("failed to record update check: %w", err)
	}
	return nil
}
