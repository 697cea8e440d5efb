package dryrun

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/organize/organize/internal/providers"
	"github.com/organize/organize/internal/providers/local"
)

func TestDryRunMoveLeavesRealFileInPlace(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "a.txt")
	if err := os.WriteFile(src, []byte("hello"), 0o644); err != nil {
		t.Fatalf("setup: %v", err)
	}

	ctx := context.Background()
	p := New("file", local.New())

	if _, err := p.Discover(ctx, providers.Location{Path: dir}); err != nil {
		t.Fatalf("discover: %v", err)
	}

	dst := filepath.Join(dir, "out", "a.txt")
	if err := p.Move(ctx, src, dst); err != nil {
		t.Fatalf("move: %v", err)
	}

	if _, err := os.Stat(src); err != nil {
		t.Fatalf("expected real file untouched: %v", err)
	}

	exists, err := p.Exists(ctx, dst)
	if err != nil || !exists {
		t.Fatalf("expected simulated destination to exist, exists=%v err=%v", exists, err)
	}

	data, err := p.ReadAll(ctx, dst)
	if err != nil || string(data) != "hello" {
		t.Fatalf("expected simulated content preserved, got %q err=%v", data, err)
	}
}
