package undo

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// BackupPath derives a sibling path to stash a pre-mutation copy of
// original under, tagged with a random suffix so two concurrent
// overwrites of the same destination never collide (spec.md §D
// backup-before-mutate).
func BackupPath(original string) string {
	return original + ".organize-backup-" + uuid.NewString()
}

// CreateBackup copies whatever currently lives at path to a fresh
// BackupPath before an overwrite action clobbers it, so Undo.Apply can
// restore the clobbered content later even though the original path was
// overwritten rather than moved aside. It returns "" with no error when
// path doesn't exist yet, since there's nothing to preserve.
func CreateBackup(ctx context.Context, fs FS, path string) (string, error) {
	exists, err := fs.Exists(ctx, path)
	if err != nil {
		return "", fmt.Errorf("undo: check backup source %s: %w", path, err)
	}
	if !exists {
		return "", nil
	}
	backup := BackupPath(path)
	if err := fs.Copy(ctx, path, backup); err != nil {
		return "", fmt.Errorf("undo: create backup of %s: %w", path, err)
	}
	return backup, nil
}
