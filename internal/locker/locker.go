// Package locker implements in-process exclusive reservation of
// destination paths, integrated with conflict-resolution policy, so that
// two concurrent actions never race to write the same path (spec.md
// §4.2). It depends only on errors/rename helpers, not on providers or
// execctx, so fsmanager can own both without an import cycle: fsmanager
// injects the filesystem-existence check and the directory-creation step
// as closures.
package locker

import (
	"context"
	"fmt"
	"sync"

	organizeerrors "github.com/organize/organize/internal/errors"
)

// Strategy is the conflict-resolution policy applied when a destination
// path is already reserved or already exists on disk (spec.md §4.2).
type Strategy string

const (
	StrategySkip      Strategy = "skip"
	StrategyOverwrite Strategy = "overwrite"
	StrategyRename    Strategy = "rename"
)

// ExistsFunc reports whether path already exists on the destination
// backend. EnsureParentFunc creates path's parent directory. Both are
// injected by the caller (fsmanager) to keep this package free of a
// providers dependency.
type ExistsFunc func(ctx context.Context, path string) (bool, error)
type EnsureParentFunc func(ctx context.Context, path string) error

// Locker is the process-wide active-path set. Zero value is ready to use.
type Locker struct {
	mu     sync.Mutex
	active map[string]struct{}
}

// New returns a ready Locker.
func New() *Locker {
	return &Locker{active: map[string]struct{}{}}
}

func (l *Locker) tryReserve(path string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, taken := l.active[path]; taken {
		return false
	}
	l.active[path] = struct{}{}
	return true
}

func (l *Locker) release(path string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.active, path)
}

// WithLockedDestination resolves destination via render, then loops
// applying strategy until a path is reserved (or the strategy gives up),
// ensures the parent directory exists, invokes action, and releases the
// reservation on every exit path (spec.md §4.2 invariants).
//
// Go has no generic methods, so this is a package-level function
// parameterized over action's result type.
func WithLockedDestination[T any](
	ctx context.Context,
	destination string,
	strategy Strategy,
	exists ExistsFunc,
	ensureParent EnsureParentFunc,
	action func(ctx context.Context, path string) (T, error),
	l *Locker,
) (*T, error) {
	candidate := destination

	for attempt := 0; ; attempt++ {
		if attempt > maxRenameAttempts {
			return nil, organizeerrors.PathResolution(organizeerrors.Context{}, destination, fmt.Errorf("locker: exceeded %d rename attempts", maxRenameAttempts))
		}

		if !l.tryReserve(candidate) {
			switch strategy {
			case StrategySkip:
				return nil, nil
			case StrategyOverwrite:
				return nil, nil
			case StrategyRename:
				candidate = NextRenameCandidate(candidate, attempt+1)
				continue
			default:
				return nil, organizeerrors.PathResolution(organizeerrors.Context{}, candidate, fmt.Errorf("locker: unknown strategy %q", strategy))
			}
		}

		onDisk, err := exists(ctx, candidate)
		if err != nil {
			l.release(candidate)
			return nil, organizeerrors.IO(organizeerrors.Context{}, "stat", candidate, err)
		}

		if onDisk {
			switch strategy {
			case StrategySkip:
				l.release(candidate)
				return nil, nil
			case StrategyOverwrite:
				// Reservation already holds the path; the action itself
				// is responsible for the actual overwrite.
			case StrategyRename:
				l.release(candidate)
				candidate = NextRenameCandidate(candidate, attempt+1)
				continue
			}
		}

		if err := ensureParent(ctx, candidate); err != nil {
			l.release(candidate)
			return nil, organizeerrors.IO(organizeerrors.Context{}, "mkdir", candidate, err)
		}

		result, err := action(ctx, candidate)
		l.release(candidate)
		if err != nil {
			return nil, err
		}
		return &result, nil
	}
}

// maxRenameAttempts bounds the Rename loop so a pathological run (e.g. a
// destination template with no numbered-suffix room) fails loudly instead
// of spinning forever.
const maxRenameAttempts = 10000
