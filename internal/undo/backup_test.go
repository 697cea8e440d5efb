package undo

import (
	"context"
	"strings"
	"testing"
)

func TestCreateBackupCopiesExistingContent(t *testing.T) {
	fs := newFakeFS("/out/report.pdf")
	ctx := context.Background()

	backup, err := CreateBackup(ctx, fs, "/out/report.pdf")
	if err != nil {
		t.Fatalf("create backup: %v", err)
	}
	if backup == "" {
		t.Fatalf("expected a non-empty backup path")
	}
	if !strings.HasPrefix(backup, "/out/report.pdf.organize-backup-") {
		t.Fatalf("expected backup path derived from original, got %q", backup)
	}
	if len(fs.copies) != 1 || fs.copies[0][0] != "/out/report.pdf" || fs.copies[0][1] != backup {
		t.Fatalf("expected a copy from original to backup, copies=%v", fs.copies)
	}
}

func TestCreateBackupNoopWhenNothingExists(t *testing.T) {
	fs := newFakeFS()
	ctx := context.Background()

	backup, err := CreateBackup(ctx, fs, "/out/report.pdf")
	if err != nil {
		t.Fatalf("create backup: %v", err)
	}
	if backup != "" {
		t.Fatalf("expected empty backup path when nothing exists, got %q", backup)
	}
	if len(fs.copies) != 0 {
		t.Fatalf("expected no copy when there's nothing to back up, copies=%v", fs.copies)
	}
}
