// Package undo implements the Undo descriptor (spec.md §4.5): a tagged
// record stored in a Receipt that knows how to verify itself and reverse
// the mutation it describes, resolving any conflict at the original
// location through an UndoConflict policy.
package undo

import (
	"context"
	"fmt"

	organizeerrors "github.com/organize/organize/internal/errors"
	"github.com/organize/organize/internal/locker"
)

// ConflictPolicy mirrors spec.md §4.5's UndoConflict: what to do when the
// original path has since been reclaimed by something else.
type ConflictPolicy string

const (
	ConflictSkip       ConflictPolicy = "skip"
	ConflictAbort      ConflictPolicy = "abort"
	ConflictOverwrite  ConflictPolicy = "overwrite"
	ConflictAutoRename ConflictPolicy = "auto_rename"
	ConflictRename     ConflictPolicy = "rename"
)

// Resolver picks a ConflictPolicy when the default needs interactive
// input (settings.interactive); the CLI supplies a terminal prompt, tests
// supply a fixed answer.
type Resolver func(original string) ConflictPolicy

// Settings configures how undo resolves conflicts during a run.
type Settings struct {
	OnConflict  ConflictPolicy
	Interactive bool
	Resolve     Resolver
}

func (s Settings) policy(original string) ConflictPolicy {
	if s.Interactive && s.Resolve != nil {
		return s.Resolve(original)
	}
	return s.OnConflict
}

// FS is the subset of fsmanager.Manager that undo needs, expressed as an
// interface so this package never imports fsmanager directly and stays
// free to be exercised with a fake in tests.
type FS interface {
	Exists(ctx context.Context, path string) (bool, error)
	Move(ctx context.Context, from, to string) error
	Delete(ctx context.Context, path string) error
	Copy(ctx context.Context, from, to string) error
}

// Undo is the common interface every undo descriptor implements.
type Undo interface {
	// Verify is a preflight dry check: the new path or a backup must
	// exist, otherwise it fails with ErrPathNotFound (spec.md §4.5).
	Verify(ctx context.Context, fs FS) error
	Apply(ctx context.Context, fs FS, settings Settings, l *locker.Locker) error
}

// Move reverses a move/rename: original is where the file used to live,
// New is where the action put it, Backup is an optional pre-mutation
// backup path (spec.md §4.5, §D backup-before-mutate).
type Move struct {
	Original string
	New      string
	Backup   string
}

func (u Move) Verify(ctx context.Context, fs FS) error {
	newExists, err := fs.Exists(ctx, u.New)
	if err != nil {
		return organizeerrors.Undo(organizeerrors.Context{}, err)
	}
	if newExists {
		return nil
	}
	if u.Backup != "" {
		backupExists, err := fs.Exists(ctx, u.Backup)
		if err != nil {
			return organizeerrors.Undo(organizeerrors.Context{}, err)
		}
		if backupExists {
			return nil
		}
	}
	return organizeerrors.Undo(organizeerrors.Context{}, organizeerrors.ErrPathNotFound)
}

func (u Move) Apply(ctx context.Context, fs FS, settings Settings, l *locker.Locker) error {
	originalExists, err := fs.Exists(ctx, u.Original)
	if err != nil {
		return organizeerrors.Undo(organizeerrors.Context{}, err)
	}

	if originalExists {
		policy := settings.policy(u.Original)
		switch policy {
		case ConflictSkip:
			return nil
		case ConflictAbort:
			return organizeerrors.Undo(organizeerrors.Context{}, organizeerrors.ErrAbort)
		case ConflictOverwrite:
			if err := fs.Delete(ctx, u.Original); err != nil {
				return organizeerrors.Undo(organizeerrors.Context{}, err)
			}
		case ConflictAutoRename, ConflictRename:
			u.Original = locker.NextRenameCandidate(u.Original, 1)
		default:
			return organizeerrors.Undo(organizeerrors.Context{}, fmt.Errorf("undo: unknown conflict policy %q", policy))
		}
	}

	newExists, err := fs.Exists(ctx, u.New)
	if err != nil {
		return organizeerrors.Undo(organizeerrors.Context{}, err)
	}
	if newExists {
		if err := fs.Move(ctx, u.New, u.Original); err != nil {
			return organizeerrors.Undo(organizeerrors.Context{}, err)
		}
		return nil
	}
	if u.Backup != "" {
		if err := fs.Copy(ctx, u.Backup, u.Original); err != nil {
			return organizeerrors.Undo(organizeerrors.Context{}, err)
		}
		return nil
	}
	return organizeerrors.Undo(organizeerrors.Context{}, organizeerrors.ErrBackupMissing)
}

// Copy reverses a copy: the copy created at New is deleted. Backup is an
// optional pre-mutation backup (spec.md §D backup-before-mutate) taken
// when the copy overwrote something already at New; if set, it is
// restored to New after the copy is removed.
type Copy struct {
	New    string
	Backup string
}

func (u Copy) Verify(ctx context.Context, fs FS) error {
	exists, err := fs.Exists(ctx, u.New)
	if err != nil {
		return organizeerrors.Undo(organizeerrors.Context{}, err)
	}
	if !exists {
		return organizeerrors.Undo(organizeerrors.Context{}, organizeerrors.ErrPathNotFound)
	}
	return nil
}

func (u Copy) Apply(ctx context.Context, fs FS, settings Settings, l *locker.Locker) error {
	if err := fs.Delete(ctx, u.New); err != nil {
		return organizeerrors.Undo(organizeerrors.Context{}, err)
	}
	if u.Backup != "" {
		if err := fs.Copy(ctx, u.Backup, u.New); err != nil {
			return organizeerrors.Undo(organizeerrors.Context{}, err)
		}
	}
	return nil
}

// Delete reverses a delete: restores the original content from a backup
// that must have been taken before the delete ran (spec.md §D
// backup-before-mutate).
type Delete struct {
	Original string
	Backup   string
}

func (u Delete) Verify(ctx context.Context, fs FS) error {
	if u.Backup == "" {
		return organizeerrors.Undo(organizeerrors.Context{}, organizeerrors.ErrBackupMissing)
	}
	exists, err := fs.Exists(ctx, u.Backup)
	if err != nil {
		return organizeerrors.Undo(organizeerrors.Context{}, err)
	}
	if !exists {
		return organizeerrors.Undo(organizeerrors.Context{}, organizeerrors.ErrBackupMissing)
	}
	return nil
}

func (u Delete) Apply(ctx context.Context, fs FS, settings Settings, l *locker.Locker) error {
	if err := u.Verify(ctx, fs); err != nil {
		return err
	}
	originalExists, err := fs.Exists(ctx, u.Original)
	if err != nil {
		return organizeerrors.Undo(organizeerrors.Context{}, err)
	}
	if originalExists {
		switch settings.policy(u.Original) {
		case ConflictSkip:
			return nil
		case ConflictAbort:
			return organizeerrors.Undo(organizeerrors.Context{}, organizeerrors.ErrAbort)
		case ConflictOverwrite:
			if err := fs.Delete(ctx, u.Original); err != nil {
				return organizeerrors.Undo(organizeerrors.Context{}, err)
			}
		case ConflictAutoRename, ConflictRename:
			u.Original = locker.NextRenameCandidate(u.Original, 1)
		}
	}
	if err := fs.Copy(ctx, u.Backup, u.Original); err != nil {
		return organizeerrors.Undo(organizeerrors.Context{}, err)
	}
	return nil
}
