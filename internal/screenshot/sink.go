package screenshot

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DefaultSweepInterval mirrors the teacher's DefaultTTL constant: the
// cadence at which abandoned staging files get cleaned up, rather
// than a cache-entry expiry (screenshots written to disk don't
// expire).
const DefaultSweepInterval = 5 * time.Minute

const stagingInfix = ".tmp-"

// Sink persists a page's screenshots. DiskSink is the only
// implementation; it's an interface so tests can substitute an
// in-memory recorder.
type Sink interface {
	Write(hostname, label string, png []byte) error
}

// DiskSink writes `{hostname}-{label}.png` files under Dir, staging to
// a uuid-suffixed temp name first and renaming atomically so a crawl
// interrupted mid-write never leaves a half-written PNG behind. It
// keeps the teacher's mutex-free, goroutine-driven sweep idiom
// (StartCleanup) repurposed to remove orphaned staging files instead
// of expired cache entries.
type DiskSink struct {
	Dir string
}

// NewDiskSink builds a DiskSink rooted at dir, creating it if needed.
func NewDiskSink(dir string) (*DiskSink, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("screenshot: create dir %s: %w", dir, err)
	}
	return &DiskSink{Dir: dir}, nil
}

// Write stages png under a uuid-suffixed temp name, then renames it
// atomically to its final `{hostname}-{label}.png` path.
func (d *DiskSink) Write(hostname, label string, png []byte) error {
	final := filepath.Join(d.Dir, fmt.Sprintf("%s-%s.png", hostname, label))
	staging := final + stagingInfix + uuid.New().String()

	if err := os.WriteFile(staging, png, 0o644); err != nil {
		return fmt.Errorf("screenshot: write staging file: %w", err)
	}
	if err := os.Rename(staging, final); err != nil {
		os.Remove(staging)
		return fmt.Errorf("screenshot: rename into place: %w", err)
	}
	return nil
}

// sweep removes staging files older than maxAge — the residue of a
// crawl that was killed between WriteFile and Rename.
func (d *DiskSink) sweep(maxAge time.Duration) {
	entries, err := os.ReadDir(d.Dir)
	if err != nil {
		return
	}
	now := time.Now()
	for _, entry := range entries {
		if entry.IsDir() || !strings.Contains(entry.Name(), stagingInfix) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if now.Sub(info.ModTime()) > maxAge {
			os.Remove(filepath.Join(d.Dir, entry.Name()))
		}
	}
}

// StartSweep runs sweep on interval until ctx is cancelled.
func (d *DiskSink) StartSweep(ctx context.Context, interval time.Duration) {
	if interval == 0 {
		interval = DefaultSweepInterval
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				d.sweep(interval)
			}
		}
	}()
}
