// Package local implements providers.StorageProvider over the real
// filesystem, grounded on organize-std/src/storage/local.rs: move falls
// back to copy+delete across devices, directory copy is recursive with a
// bounded work pool (spec.md §4.3, §5).
package local

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/organize/organize/internal/providers"
	"github.com/organize/organize/internal/resource"
)

// Provider is the "file" backend: every path without a "proto://" prefix
// routes here (spec.md §4.3).
type Provider struct {
	// WorkPoolSize bounds concurrent file operations during a recursive
	// directory copy. Zero means runtime.NumCPU().
	WorkPoolSize int
}

// New returns a Provider with default concurrency.
func New() *Provider { return &Provider{} }

func (p *Provider) Prefix() string { return "file" }

func (p *Provider) poolSize() int {
	if p.WorkPoolSize > 0 {
		return p.WorkPoolSize
	}
	return runtime.NumCPU()
}

// Discover walks root with filepath.WalkDir, which never descends into a
// symlinked directory on its own. When loc.Options.FollowSymlinks is set,
// a symlinked directory is resolved and walked separately so its contents
// still surface; seen guards against a symlink cycle re-walking
// the same target forever.
func (p *Provider) Discover(ctx context.Context, loc providers.Location) ([]*resource.Resource, error) {
	var out []*resource.Resource
	seen := map[string]bool{}
	if err := p.discover(ctx, loc, loc.Path, 0, seen, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (p *Provider) discover(ctx context.Context, loc providers.Location, dir string, baseDepth int, seen map[string]bool, out *[]*resource.Resource) error {
	if real, err := filepath.EvalSymlinks(dir); err == nil {
		if seen[real] {
			return nil
		}
		seen[real] = true
	}

	return filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if path == dir {
			return nil
		}

		depth := baseDepth + strings.Count(strings.TrimPrefix(path, dir), string(filepath.Separator))
		base := filepath.Base(path)
		hidden := strings.HasPrefix(base, ".")

		for _, ex := range loc.Options.Exclude {
			if matched, _ := filepath.Match(ex, base); matched {
				if d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}
		}

		isDir := d.IsDir()
		if d.Type()&os.ModeSymlink != 0 {
			if !loc.Options.FollowSymlinks {
				return nil
			}
			info, statErr := os.Stat(path)
			if statErr != nil {
				return nil // broken symlink, skip
			}
			if info.IsDir() {
				// WalkDir never descends through a symlink even when
				// given one as its root, so recurse on the resolved
				// real path instead of path itself.
				real, evalErr := filepath.EvalSymlinks(path)
				if evalErr != nil {
					return nil
				}
				if err := p.discover(ctx, loc, real, depth, seen, out); err != nil {
					return err
				}
				return nil
			}
			isDir = false
		}

		if isDir {
			if loc.Options.MaxDepth > 0 && depth >= loc.Options.MaxDepth {
				return filepath.SkipDir
			}
			if hidden && !loc.Options.HiddenFiles {
				return filepath.SkipDir
			}
			if loc.Options.Target == providers.TargetFiles {
				return nil
			}
		} else {
			if hidden && !loc.Options.HiddenFiles {
				return nil
			}
			if loc.Options.Target == providers.TargetFolders {
				return nil
			}
			if !loc.Options.PartialFiles && isPartialFile(base) {
				return nil
			}
		}

		if depth < loc.Options.MinDepth {
			return nil
		}

		*out = append(*out, resource.New("file", path, &resourceBackend{p: p}))
		return nil
	})
}

func isPartialFile(name string) bool {
	return strings.HasSuffix(name, ".part") || strings.HasSuffix(name, ".crdownload") || strings.HasSuffix(name, ".tmp")
}

func (p *Provider) Metadata(ctx context.Context, path string) (providers.Metadata, error) {
	info, err := os.Stat(path)
	if err != nil {
		return providers.Metadata{}, err
	}
	return providers.Metadata{
		Size:    info.Size(),
		ModTime: info.ModTime(),
		IsDir:   info.IsDir(),
		Mode:    uint32(info.Mode()),
	}, nil
}

func (p *Provider) Exists(ctx context.Context, path string) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, err
}

func (p *Provider) ReadAll(ctx context.Context, path string) ([]byte, error) {
	return os.ReadFile(path)
}

func (p *Provider) WriteAll(ctx context.Context, path string, data []byte) error {
	if err := p.Mkdir(ctx, filepath.Dir(path)); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func (p *Provider) Mkdir(ctx context.Context, path string) error {
	return os.MkdirAll(path, 0o755)
}

func (p *Provider) ReadDir(ctx context.Context, path string) ([]string, error) {
	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names, nil
}

// Move renames from to to, falling back to copy+delete when the rename
// crosses a device boundary (EXDEV), per spec.md §4.3.
func (p *Provider) Move(ctx context.Context, from, to string) error {
	if err := p.Mkdir(ctx, filepath.Dir(to)); err != nil {
		return err
	}
	err := os.Rename(from, to)
	if err == nil {
		return nil
	}
	if !isCrossDevice(err) {
		return err
	}
	if err := p.Copy(ctx, from, to); err != nil {
		return err
	}
	return os.RemoveAll(from)
}

// Copy copies from to to. Directories are copied recursively with a
// bounded work pool (spec.md §4.3).
func (p *Provider) Copy(ctx context.Context, from, to string) error {
	info, err := os.Stat(from)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return p.copyFile(from, to, info.Mode())
	}
	return p.copyDir(ctx, from, to)
}

func (p *Provider) copyFile(from, to string, mode os.FileMode) error {
	if err := p.Mkdir(context.Background(), filepath.Dir(to)); err != nil {
		return err
	}
	src, err := os.Open(from)
	if err != nil {
		return err
	}
	defer src.Close()

	dst, err := os.OpenFile(to, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, mode)
	if err != nil {
		return err
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return err
	}
	return dst.Sync()
}

func (p *Provider) copyDir(ctx context.Context, from, to string) error {
	if err := os.MkdirAll(to, 0o755); err != nil {
		return err
	}

	entries, err := os.ReadDir(from)
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.poolSize())

	for _, e := range entries {
		e := e
		src := filepath.Join(from, e.Name())
		dst := filepath.Join(to, e.Name())
		g.Go(func() error {
			if gctx.Err() != nil {
				return gctx.Err()
			}
			if e.IsDir() {
				return p.copyDir(gctx, src, dst)
			}
			info, err := e.Info()
			if err != nil {
				return err
			}
			return p.copyFile(src, dst, info.Mode())
		})
	}
	return g.Wait()
}

func (p *Provider) Delete(ctx context.Context, path string) error {
	return os.RemoveAll(path)
}

func (p *Provider) Hardlink(ctx context.Context, from, to string) error {
	if err := p.Mkdir(ctx, filepath.Dir(to)); err != nil {
		return err
	}
	return os.Link(from, to)
}

func (p *Provider) Symlink(ctx context.Context, from, to string) error {
	if err := p.Mkdir(ctx, filepath.Dir(to)); err != nil {
		return err
	}
	return os.Symlink(from, to)
}

func (p *Provider) Upload(ctx context.Context, localPath, path string) error {
	return p.Copy(ctx, localPath, path)
}

func (p *Provider) Download(ctx context.Context, path string) (string, error) {
	tmp, err := os.CreateTemp("", "organize-dl-*")
	if err != nil {
		return "", err
	}
	tmp.Close()
	if err := p.Copy(ctx, path, tmp.Name()); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("download %s: %w", path, err)
	}
	return tmp.Name(), nil
}

// resourceBackend adapts Provider to resource.Backend for the handles
// Discover hands back.
type resourceBackend struct{ p *Provider }

func (b *resourceBackend) Prefix() string { return b.p.Prefix() }
func (b *resourceBackend) Metadata(ctx context.Context, path string) (resource.Metadata, error) {
	return b.p.Metadata(ctx, path)
}
func (b *resourceBackend) ReadAll(ctx context.Context, path string) ([]byte, error) {
	return b.p.ReadAll(ctx, path)
}
