package persistence

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestFileWatcherReportsExternalWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "graph.json")
	writeFile(t, path, `{"v":1}`)

	changed := make(chan string, 1)
	fw, err := NewFileWatcher(path, func(p string) { changed <- p })
	if err != nil {
		t.Fatalf("NewFileWatcher: %v", err)
	}
	defer fw.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	fw.Start(ctx)

	// Simulate the atomic write pattern persistence.Save uses.
	tmp := path + ".tmp"
	writeFile(t, tmp, `{"v":2}`)
	if err := os.Rename(tmp, path); err != nil {
		t.Fatalf("rename: %v", err)
	}

	select {
	case got := <-changed:
		if filepath.Clean(got) != path {
			t.Errorf("handler called with %q, want %q", got, path)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for external change notification")
	}
}

func TestFileWatcherIgnoresOwnWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "graph.json")
	writeFile(t, path, `{"v":1}`)

	changed := make(chan string, 1)
	fw, err := NewFileWatcher(path, func(p string) { changed <- p })
	if err != nil {
		t.Fatalf("NewFileWatcher: %v", err)
	}
	defer fw.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	fw.Start(ctx)

	fw.ExpectOwnWrite()
	tmp := path + ".tmp"
	writeFile(t, tmp, `{"v":2}`)
	if err := os.Rename(tmp, path); err != nil {
		t.Fatalf("rename: %v", err)
	}

	select {
	case got := <-changed:
		t.Fatalf("handler unexpectedly called for own write: %s", got)
	case <-time.After(500 * time.Millisecond):
		// expected: no notification within the ignore window
	}
}
