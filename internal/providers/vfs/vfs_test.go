package vfs

import (
	"context"
	"testing"
)

func TestWriteThenReadRoundTrips(t *testing.T) {
	p := New("dryrun")
	ctx := context.Background()
	if err := p.WriteAll(ctx, "a/b/c.txt", []byte("hello")); err != nil {
		t.Fatalf("write: %v", err)
	}
	got, err := p.ReadAll(ctx, "a/b/c.txt")
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(got) != "hello" {
		t.Fatalf("got %q", got)
	}
	ok, err := p.Exists(ctx, "a/b")
	if err != nil || !ok {
		t.Fatalf("expected intermediate dir to exist, ok=%v err=%v", ok, err)
	}
}

func TestMoveUpdatesPath(t *testing.T) {
	p := New("dryrun")
	ctx := context.Background()
	must(t, p.WriteAll(ctx, "src.txt", []byte("x")))
	if err := p.Move(ctx, "src.txt", "dst/dst.txt"); err != nil {
		t.Fatalf("move: %v", err)
	}
	if ok, _ := p.Exists(ctx, "src.txt"); ok {
		t.Fatalf("expected source gone")
	}
	if ok, _ := p.Exists(ctx, "dst/dst.txt"); !ok {
		t.Fatalf("expected destination present")
	}
}

func TestDeleteRemovesSubtree(t *testing.T) {
	p := New("dryrun")
	ctx := context.Background()
	must(t, p.WriteAll(ctx, "dir/a.txt", []byte("a")))
	must(t, p.WriteAll(ctx, "dir/b.txt", []byte("b")))
	if err := p.Delete(ctx, "dir"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if ok, _ := p.Exists(ctx, "dir/a.txt"); ok {
		t.Fatalf("expected dir/a.txt gone")
	}
}

func must(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("setup failed: %v", err)
	}
}
