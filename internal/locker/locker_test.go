package locker

import (
	"context"
	"sync"
	"testing"
)

func alwaysFalse(ctx context.Context, path string) (bool, error) { return false, nil }
func noopEnsure(ctx context.Context, path string) error          { return nil }

func TestOverwriteReservesOnce(t *testing.T) {
	l := New()
	ctx := context.Background()

	result, err := WithLockedDestination(ctx, "/out/a.txt", StrategyOverwrite, alwaysFalse, noopEnsure,
		func(ctx context.Context, path string) (string, error) { return path, nil }, l)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result == nil || *result != "/out/a.txt" {
		t.Fatalf("got %v", result)
	}
	if len(l.active) != 0 {
		t.Fatalf("expected reservation released, active=%v", l.active)
	}
}

func TestSkipReturnsNilOnExistingPath(t *testing.T) {
	l := New()
	ctx := context.Background()
	exists := func(ctx context.Context, path string) (bool, error) { return true, nil }

	result, err := WithLockedDestination(ctx, "/out/a.txt", StrategySkip, exists, noopEnsure,
		func(ctx context.Context, path string) (string, error) { return path, nil }, l)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != nil {
		t.Fatalf("expected skip to return nil, got %v", *result)
	}
}

func TestRenameAdvancesOnDiskCollision(t *testing.T) {
	l := New()
	ctx := context.Background()
	exists := func(ctx context.Context, path string) (bool, error) {
		return path == "/out/a.txt" || path == "/out/a (1).txt", nil
	}

	result, err := WithLockedDestination(ctx, "/out/a.txt", StrategyRename, exists, noopEnsure,
		func(ctx context.Context, path string) (string, error) { return path, nil }, l)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result == nil || *result != "/out/a (2).txt" {
		t.Fatalf("got %v", result)
	}
}

func TestConcurrentRenamesArePairwiseDistinct(t *testing.T) {
	l := New()
	ctx := context.Background()

	const n = 50
	results := make([]string, n)
	// exists reports every path an earlier action created, as a real
	// backend would once a reservation has been released.
	var created sync.Map
	exists := func(ctx context.Context, path string) (bool, error) {
		_, ok := created.Load(path)
		return ok, nil
	}
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			r, err := WithLockedDestination(ctx, "/out/a.txt", StrategyRename, exists, noopEnsure,
				func(ctx context.Context, path string) (string, error) {
					created.Store(path, true)
					return path, nil
				}, l)
			if err != nil {
				t.Errorf("unexpected error: %v", err)
				return
			}
			if r != nil {
				results[i] = *r
			}
		}()
	}
	wg.Wait()

	seen := map[string]bool{}
	for _, r := range results {
		if r == "" {
			continue
		}
		if seen[r] {
			t.Fatalf("duplicate reserved path %q", r)
		}
		seen[r] = true
	}
}
