package undo

import (
	"context"
	"testing"
)

type fakeFS struct {
	existing map[string]bool
	moves    [][2]string
	deletes  []string
	copies   [][2]string
}

func newFakeFS(existing ...string) *fakeFS {
	m := map[string]bool{}
	for _, e := range existing {
		m[e] = true
	}
	return &fakeFS{existing: m}
}

func (f *fakeFS) Exists(ctx context.Context, path string) (bool, error) {
	return f.existing[path], nil
}

func (f *fakeFS) Move(ctx context.Context, from, to string) error {
	f.moves = append(f.moves, [2]string{from, to})
	delete(f.existing, from)
	f.existing[to] = true
	return nil
}

func (f *fakeFS) Delete(ctx context.Context, path string) error {
	f.deletes = append(f.deletes, path)
	delete(f.existing, path)
	return nil
}

func (f *fakeFS) Copy(ctx context.Context, from, to string) error {
	f.copies = append(f.copies, [2]string{from, to})
	f.existing[to] = true
	return nil
}

func TestMoveUndoRestoresOriginal(t *testing.T) {
	fs := newFakeFS("/out/report.pdf")
	u := Move{Original: "/inbox/report.pdf", New: "/out/report.pdf"}
	ctx := context.Background()

	if err := u.Verify(ctx, fs); err != nil {
		t.Fatalf("verify: %v", err)
	}
	if err := u.Apply(ctx, fs, Settings{}, nil); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if !fs.existing["/inbox/report.pdf"] || fs.existing["/out/report.pdf"] {
		t.Fatalf("expected file moved back, state=%v", fs.existing)
	}
}

func TestMoveUndoConflictOverwrite(t *testing.T) {
	fs := newFakeFS("/out/report.pdf", "/inbox/report.pdf")
	u := Move{Original: "/inbox/report.pdf", New: "/out/report.pdf"}
	ctx := context.Background()

	if err := u.Apply(ctx, fs, Settings{OnConflict: ConflictOverwrite}, nil); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if len(fs.deletes) != 1 || fs.deletes[0] != "/inbox/report.pdf" {
		t.Fatalf("expected original deleted before restore, deletes=%v", fs.deletes)
	}
}

func TestMoveUndoSkipOnConflict(t *testing.T) {
	fs := newFakeFS("/out/report.pdf", "/inbox/report.pdf")
	u := Move{Original: "/inbox/report.pdf", New: "/out/report.pdf"}
	ctx := context.Background()

	if err := u.Apply(ctx, fs, Settings{OnConflict: ConflictSkip}, nil); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if len(fs.moves) != 0 {
		t.Fatalf("expected no move on skip, moves=%v", fs.moves)
	}
}

func TestMoveVerifyFailsWithoutNewOrBackup(t *testing.T) {
	fs := newFakeFS()
	u := Move{Original: "/inbox/report.pdf", New: "/out/report.pdf"}
	if err := u.Verify(context.Background(), fs); err == nil {
		t.Fatalf("expected verify to fail")
	}
}

func TestDeleteUndoRequiresBackup(t *testing.T) {
	fs := newFakeFS()
	u := Delete{Original: "/inbox/report.pdf"}
	if err := u.Verify(context.Background(), fs); err == nil {
		t.Fatalf("expected verify to fail without a backup")
	}
}

func TestDeleteUndoRestoresFromBackup(t *testing.T) {
	fs := newFakeFS("/backups/report.pdf")
	u := Delete{Original: "/inbox/report.pdf", Backup: "/backups/report.pdf"}
	ctx := context.Background()

	if err := u.Apply(ctx, fs, Settings{}, nil); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if len(fs.copies) != 1 || fs.copies[0][0] != "/backups/report.pdf" {
		t.Fatalf("expected restore copy from backup, copies=%v", fs.copies)
	}
}

func TestCopyUndoDeletesTheCopy(t *testing.T) {
	fs := newFakeFS("/out/report.pdf")
	u := Copy{New: "/out/report.pdf"}
	ctx := context.Background()

	if err := u.Apply(ctx, fs, Settings{}, nil); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if len(fs.deletes) != 1 || fs.deletes[0] != "/out/report.pdf" {
		t.Fatalf("expected the copy deleted, deletes=%v", fs.deletes)
	}
}
