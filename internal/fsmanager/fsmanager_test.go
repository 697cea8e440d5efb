package fsmanager

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/organize/organize/internal/providers"
	"github.com/organize/organize/internal/providers/local"
	"github.com/organize/organize/internal/providers/vfs"
)

func TestMoveSameBackend(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "a.txt")
	if err := os.WriteFile(src, []byte("x"), 0o644); err != nil {
		t.Fatalf("setup: %v", err)
	}

	m := New(local.New(), nil)
	dst := filepath.Join(dir, "b.txt")
	if err := m.Move(context.Background(), src, dst); err != nil {
		t.Fatalf("move: %v", err)
	}
	if _, err := os.Stat(dst); err != nil {
		t.Fatalf("expected destination to exist: %v", err)
	}
}

func TestCopyCrossBackendLocalToVFS(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "a.txt")
	if err := os.WriteFile(src, []byte("hello"), 0o644); err != nil {
		t.Fatalf("setup: %v", err)
	}

	dry := vfs.New("dryrun")
	m := New(local.New(), map[string]providers.StorageProvider{"dryrun": dry})

	if err := m.Copy(context.Background(), src, "dryrun:///out/a.txt"); err != nil {
		t.Fatalf("copy: %v", err)
	}
	got, err := dry.ReadAll(context.Background(), "/out/a.txt")
	if err != nil {
		t.Fatalf("read from vfs: %v", err)
	}
	if string(got) != "hello" {
		t.Fatalf("got %q", got)
	}
}

func TestHardlinkAcrossBackendsIsImpossibleOp(t *testing.T) {
	dry := vfs.New("dryrun")
	m := New(local.New(), map[string]providers.StorageProvider{"dryrun": dry})

	err := m.Hardlink(context.Background(), "/tmp/a.txt", "dryrun:///out/a.txt")
	if err == nil {
		t.Fatalf("expected ImpossibleOp error for cross-backend hardlink")
	}
}

func TestParseURI(t *testing.T) {
	cases := []struct {
		raw      string
		wantHost string
		wantPath string
	}{
		{"/local/path.txt", "file", "/local/path.txt"},
		{"dryrun:///out/a.txt", "dryrun", "/out/a.txt"},
	}
	for _, c := range cases {
		host, path := ParseURI(c.raw)
		if host != c.wantHost || path != c.wantPath {
			t.Fatalf("ParseURI(%q) = (%q, %q), want (%q, %q)", c.raw, host, path, c.wantHost, c.wantPath)
		}
	}
}
