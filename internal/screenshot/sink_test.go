package screenshot

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDiskSink_WriteCreatesFinalFile(t *testing.T) {
	dir := t.TempDir()
	sink, err := NewDiskSink(dir)
	if err != nil {
		t.Fatalf("NewDiskSink: %v", err)
	}

	if err := sink.Write("example.com", "original", []byte("fake-png")); err != nil {
		t.Fatalf("Write: %v", err)
	}

	final := filepath.Join(dir, "example.com-original.png")
	data, err := os.ReadFile(final)
	if err != nil {
		t.Fatalf("expected final file to exist: %v", err)
	}
	if string(data) != "fake-png" {
		t.Fatalf("unexpected file contents: %q", data)
	}

	entries, _ := os.ReadDir(dir)
	for _, e := range entries {
		if e.Name() != "example.com-original.png" {
			t.Fatalf("expected no leftover staging files, found %q", e.Name())
		}
	}
}

func TestDiskSink_WriteMultipleLabels(t *testing.T) {
	dir := t.TempDir()
	sink, err := NewDiskSink(dir)
	if err != nil {
		t.Fatalf("NewDiskSink: %v", err)
	}

	labels := []string{"original", "rules-0", "fixed-parent-0", "full-width-parent-1"}
	for _, label := range labels {
		if err := sink.Write("example.com", label, []byte(label)); err != nil {
			t.Fatalf("Write(%s): %v", label, err)
		}
	}

	for _, label := range labels {
		path := filepath.Join(dir, "example.com-"+label+".png")
		data, err := os.ReadFile(path)
		if err != nil {
			t.Fatalf("expected %s to exist: %v", path, err)
		}
		if string(data) != label {
			t.Fatalf("content mismatch for %s", label)
		}
	}
}

func TestDiskSink_SweepRemovesOldStagingFiles(t *testing.T) {
	dir := t.TempDir()
	sink, err := NewDiskSink(dir)
	if err != nil {
		t.Fatalf("NewDiskSink: %v", err)
	}

	orphan := filepath.Join(dir, "example.com-original.png.tmp-abc123")
	if err := os.WriteFile(orphan, []byte("partial"), 0o644); err != nil {
		t.Fatalf("write orphan: %v", err)
	}
	old := time.Now().Add(-time.Hour)
	if err := os.Chtimes(orphan, old, old); err != nil {
		t.Fatalf("chtimes: %v", err)
	}

	sink.sweep(time.Minute)

	if _, err := os.Stat(orphan); !os.IsNotExist(err) {
		t.Fatalf("expected orphan staging file to be removed")
	}
}

func TestDiskSink_SweepKeepsRecentStagingFiles(t *testing.T) {
	dir := t.TempDir()
	sink, err := NewDiskSink(dir)
	if err != nil {
		t.Fatalf("NewDiskSink: %v", err)
	}

	recent := filepath.Join(dir, "example.com-original.png.tmp-def456")
	if err := os.WriteFile(recent, []byte("partial"), 0o644); err != nil {
		t.Fatalf("write recent: %v", err)
	}

	sink.sweep(time.Hour)

	if _, err := os.Stat(recent); err != nil {
		t.Fatalf("expected recent staging file to survive a sweep: %v", err)
	}
}

func TestDiskSink_StartSweepStopsOnCancel(t *testing.T) {
	dir := t.TempDir()
	sink, err := NewDiskSink(dir)
	if err != nil {
		t.Fatalf("NewDiskSink: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	sink.StartSweep(ctx, 10*time.Millisecond)
	cancel()
	// Nothing to assert beyond "this doesn't hang or panic"; the
	// goroutine observes ctx.Done() and returns.
	time.Sleep(20 * time.Millisecond)
}

func TestNewDiskSink_CreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "screenshots")
	if _, err := NewDiskSink(dir); err != nil {
		t.Fatalf("NewDiskSink: %v", err)
	}
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		t.Fatalf("expected directory to be created at %s", dir)
	}
}
