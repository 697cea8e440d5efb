package engine

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/organize/organize/internal/execctx"
	"github.com/organize/organize/internal/pipeline"
	"github.com/organize/organize/internal/plugins"
	"github.com/organize/organize/internal/providers"
)

func TestRunMovesFilesAndMarksSessionSuccess(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "report.pdf"), []byte("x"), 0o644); err != nil {
		t.Fatalf("setup: %v", err)
	}

	ctx := context.Background()
	e, err := New(ctx, Options{DatabaseURL: ":memory:", OnConflict: execctx.OnConflictRename}, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer e.Close()

	rule := pipeline.Rule{Name: "move-pdfs", Stages: []pipeline.Stage{
		{Kind: pipeline.KindSearch, Params: pipeline.NewParams(), Location: providers.Location{
			Path: dir, Mode: providers.MergeReplace,
		}},
		{Kind: pipeline.KindAction, Params: pipeline.NewParams(), Action: plugins.MoveAction{
			DestinationTemplate: filepath.Join(dir, "out", "{{name}}"),
		}},
	}}

	if err := e.Run(ctx, []pipeline.Rule{rule}); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if _, err := os.Stat(filepath.Join(dir, "out", "report.pdf")); err != nil {
		t.Fatalf("expected moved file: %v", err)
	}
}

func TestRunWithDryRunLeavesRealFileInPlace(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "report.pdf"), []byte("x"), 0o644); err != nil {
		t.Fatalf("setup: %v", err)
	}

	ctx := context.Background()
	e, err := New(ctx, Options{DatabaseURL: ":memory:", DryRun: true, OnConflict: execctx.OnConflictRename}, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer e.Close()

	rule := pipeline.Rule{Name: "move-pdfs", Stages: []pipeline.Stage{
		{Kind: pipeline.KindSearch, Params: pipeline.NewParams(), Location: providers.Location{
			Path: dir, Mode: providers.MergeReplace,
		}},
		{Kind: pipeline.KindAction, Params: pipeline.NewParams(), Action: plugins.MoveAction{
			DestinationTemplate: filepath.Join(dir, "out", "{{name}}"),
		}},
	}}

	if err := e.Run(ctx, []pipeline.Rule{rule}); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if _, err := os.Stat(filepath.Join(dir, "report.pdf")); err != nil {
		t.Fatalf("expected real file untouched by dry run: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "out", "report.pdf")); err == nil {
		t.Fatalf("expected no real file created by dry run")
	}
}
