package plugins

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/organize/organize/internal/batch"
	"github.com/organize/organize/internal/execctx"
	"github.com/organize/organize/internal/fsmanager"
	"github.com/organize/organize/internal/providers/local"
	"github.com/organize/organize/internal/resource"
	"github.com/organize/organize/internal/template"
	"github.com/organize/organize/internal/undo"
)

func TestExtensionFilterKeepsMatches(t *testing.T) {
	r := resource.New("file", "/inbox/report.pdf", nil)
	f := ExtensionFilter{Extensions: []string{"pdf"}}
	ectx := execctx.ExecutionContext{}

	ok, err := f.CheckSingle(context.Background(), ectx, r)
	if err != nil || !ok {
		t.Fatalf("expected match, ok=%v err=%v", ok, err)
	}
}

func TestByExtensionPartitionerGroups(t *testing.T) {
	files := []*resource.Resource{
		resource.New("file", "/inbox/a.pdf", nil),
		resource.New("file", "/inbox/b.pdf", nil),
		resource.New("file", "/inbox/c.txt", nil),
	}
	b := batch.Initial(files)
	p := ByExtensionPartitioner{}

	groups, err := p.Partition(context.Background(), execctx.ExecutionContext{}, b)
	if err != nil {
		t.Fatalf("partition: %v", err)
	}
	if len(groups["pdf"].Files) != 2 || len(groups["txt"].Files) != 1 {
		t.Fatalf("unexpected grouping: %+v", groups)
	}
	if groups["pdf"].Context["by_extension"] != "pdf" {
		t.Fatalf("expected inherited context key, got %v", groups["pdf"].Context)
	}
}

func TestFirstNSelector(t *testing.T) {
	files := []*resource.Resource{
		resource.New("file", "/a", nil),
		resource.New("file", "/b", nil),
		resource.New("file", "/c", nil),
	}
	s := FirstNSelector{N: 2}
	got, err := s.Select(context.Background(), execctx.ExecutionContext{}, files)
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2, got %d", len(got))
	}
}

func TestMoveActionMovesAndRecordsUndo(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "a.txt")
	if err := os.WriteFile(src, []byte("hi"), 0o644); err != nil {
		t.Fatalf("setup: %v", err)
	}

	fs := fsmanager.New(local.New(), nil)
	ectx := execctx.ExecutionContext{
		Services: execctx.Services{
			FS:       fs,
			Compiler: template.NewCompiler("path", "name", "ext", "stem"),
			Settings: execctx.RunSettings{OnConflict: execctx.OnConflictRename},
		},
	}

	r := resource.New("file", src, nil)
	act := MoveAction{DestinationTemplate: filepath.Join(dir, "out", "{{name}}")}
	receipt, err := act.ActSingle(context.Background(), ectx, r)
	if err != nil {
		t.Fatalf("act: %v", err)
	}
	if len(receipt.Undo) != 1 {
		t.Fatalf("expected one undo entry, got %d", len(receipt.Undo))
	}
	if _, err := os.Stat(filepath.Join(dir, "out", "a.txt")); err != nil {
		t.Fatalf("expected moved file: %v", err)
	}
}

func TestMoveActionBacksUpOverwrittenDestination(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "a.txt")
	dst := filepath.Join(dir, "out", "a.txt")
	if err := os.WriteFile(src, []byte("new"), 0o644); err != nil {
		t.Fatalf("setup src: %v", err)
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		t.Fatalf("setup dst dir: %v", err)
	}
	if err := os.WriteFile(dst, []byte("old"), 0o644); err != nil {
		t.Fatalf("setup dst: %v", err)
	}

	fs := fsmanager.New(local.New(), nil)
	ectx := execctx.ExecutionContext{
		Services: execctx.Services{
			FS:       fs,
			Compiler: template.NewCompiler("path", "name", "ext", "stem"),
			Settings: execctx.RunSettings{OnConflict: execctx.OnConflictOverwrite},
		},
	}

	r := resource.New("file", src, nil)
	act := MoveAction{DestinationTemplate: dst}
	receipt, err := act.ActSingle(context.Background(), ectx, r)
	if err != nil {
		t.Fatalf("act: %v", err)
	}
	if len(receipt.Undo) != 1 {
		t.Fatalf("expected one undo entry, got %d", len(receipt.Undo))
	}
	mv, ok := receipt.Undo[0].(undo.Move)
	if !ok || mv.Backup == "" {
		t.Fatalf("expected a Move undo entry with a populated Backup path, got %+v", receipt.Undo[0])
	}
	data, err := os.ReadFile(mv.Backup)
	if err != nil {
		t.Fatalf("read backup: %v", err)
	}
	if string(data) != "old" {
		t.Fatalf("expected backup to preserve overwritten content, got %q", data)
	}
}
