package update

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"mclauncher/metrics"
)

// Progress is reported while files download.
type Progress struct {
	File  string
	Done  int64
	Total int64 // 0 when the manifest gives no sizes
}

func (p Progress) Fraction() float64 {
	if p.Total <= 0 {
		return -1
	}
	return float64(p.Done) / float64(p.Total)
}

func (p Progress) String() string {
	if p.Total > 0 {
		return fmt.Sprintf("Downloading %s (%s / %s)", p.File,
			humanize.Bytes(uint64(p.Done)), humanize.Bytes(uint64(p.Total)))
	}
	return fmt.Sprintf("Downloading %s (%s)", p.File, humanize.Bytes(uint64(p.Done)))
}

// Apply downloads plan.Files into a staging directory inside gameDir, checks
// every checksum, and then moves the files into place.  If anything fails
// before or during the move, gameDir is left as it was.
func (c *Client) Apply(ctx context.Context, gameDir string, plan *Plan, workers int, progress func(Progress)) error {
	if plan.Manifest == nil {
		return nil
	}
	if progress == nil {
		progress = func(Progress) {}
	}
	if workers < 1 {
		workers = 1
	}

	id := uuid.New().String()[:8]
	staging := filepath.Join(gameDir, ".staging-"+id)
	if err := os.MkdirAll(staging, 0o755); err != nil {
		return fmt.Errorf("failed to create staging directory: %w", err)
	}
	defer os.RemoveAll(staging)

	start := time.Now()
	if err := c.download(ctx, staging, plan, workers, progress); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	backup := filepath.Join(gameDir, ".backup-"+id)
	if err := swap(gameDir, staging, backup, plan.Files); err != nil {
		return err
	}
	os.RemoveAll(backup)

	st := ReadState(gameDir)
	st.Version = plan.Manifest.Version
	st.Source = plan.Source
	st.CheckedAt = time.Now()
	for _, f := range plan.Manifest.Files {
		st.Files[f.Path] = f.SHA256
	}
	if err := writeState(gameDir, st); err != nil {
		c.log.Warnw("update applied but state not saved", "dir", gameDir, "err", err)
	}

	c.log.Infow("update applied",
		"dir", gameDir,
		"version", plan.Manifest.Version,
		"files", len(plan.Files),
		"took", time.Since(start).Round(time.Millisecond),
	)
	return nil
}

func (c *Client) download(ctx context.Context, staging string, plan *Plan, workers int, progress func(Progress)) error {
	total := plan.Total()
	var done atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for _, f := range plan.Files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			dest := filepath.Join(staging, filepath.FromSlash(f.Path))
			return c.fetch(gctx, f, dest, func(n int64) {
				progress(Progress{File: f.Path, Done: done.Add(n), Total: total})
			})
		})
	}
	return g.Wait()
}

// fetch downloads one file to dest and verifies its checksum.  dest is
// removed on any failure.
func (c *Client) fetch(ctx context.Context, f File, dest string, onBytes func(int64)) (err error) {
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return err
	}
	resp, err := c.http.R().SetContext(ctx).SetDoNotParseResponse(true).Get(f.URL)
	if err != nil {
		return fmt.Errorf("download %s: %w", f.Path, err)
	}
	body := resp.RawBody()
	defer body.Close()
	if resp.StatusCode() != 200 {
		return fmt.Errorf("download %s failed with status %d", f.Path, resp.StatusCode())
	}

	out, err := os.Create(dest)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := out.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			os.Remove(dest) // clean up partial download
		}
	}()

	h := sha256.New()
	w := io.MultiWriter(out, h, counter(onBytes))
	if _, err := io.Copy(w, body); err != nil {
		return fmt.Errorf("download %s: write failed: %w", f.Path, err)
	}
	if sum := hex.EncodeToString(h.Sum(nil)); sum != f.SHA256 {
		return fmt.Errorf("%s: %w (got %s, want %s)", f.Path, ErrChecksumMismatch, sum, f.SHA256)
	}
	return nil
}

type counter func(int64)

func (c counter) Write(p []byte) (int, error) {
	metrics.BytesDownloaded.Add(float64(len(p)))
	c(int64(len(p)))
	return len(p), nil
}

type moved struct {
	dest      string
	backup    string
	hadBackup bool
}

// swap moves staged files over their destinations, keeping the old files in
// backup until every move succeeded.
func swap(gameDir, staging, backup string, files []File) error {
	var done []moved
	rollback := func(cause error) error {
		errs := []error{cause}
		for i := len(done) - 1; i >= 0; i-- {
			m := done[i]
			if err := os.Remove(m.dest); err != nil && !os.IsNotExist(err) {
				errs = append(errs, err)
			}
			if m.hadBackup {
				if err := os.Rename(m.backup, m.dest); err != nil {
					errs = append(errs, fmt.Errorf("restore %s: %w", m.dest, err))
				}
			}
		}
		os.RemoveAll(backup)
		return errors.Join(errs...)
	}

	for _, f := range files {
		rel := filepath.FromSlash(f.Path)
		m := moved{
			dest:   filepath.Join(gameDir, rel),
			backup: filepath.Join(backup, rel),
		}
		if err := os.MkdirAll(filepath.Dir(m.dest), 0o755); err != nil {
			return rollback(err)
		}
		if _, err := os.Lstat(m.dest); err == nil {
			if err := os.MkdirAll(filepath.Dir(m.backup), 0o755); err != nil {
				return rollback(err)
			}
			if err := os.Rename(m.dest, m.backup); err != nil {
				return rollback(fmt.Errorf("back up %s: %w", f.Path, err))
			}
			m.hadBackup = true
		}
		if err := os.Rename(filepath.Join(staging, rel), m.dest); err != nil {
			if m.hadBackup {
				if rerr := os.Rename(m.backup, m.dest); rerr != nil {
					return rollback(errors.Join(err, rerr))
				}
			}
			return rollback(fmt.Errorf("install %s: %w", f.Path, err))
		}
		done = append(done, m)
	}
	return nil
}
