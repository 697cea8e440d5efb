// Package vfs implements providers.StorageProvider entirely in memory, the
// backend a dry run routes writes to instead of touching disk
// (spec.md §4.3 "Non-goals" lists dry-run as in scope for the overall
// engine even though individual filters stay pure). Grounded on the
// mutex-guarded map style of internal/cache.Cache, rather than sync.Map,
// to match the teacher's locking idiom throughout this codebase.
package vfs

import (
	"context"
	"fmt"
	"os"
	"path"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/organize/organize/internal/providers"
	"github.com/organize/organize/internal/resource"
)

type entry struct {
	data    []byte
	isDir   bool
	modTime time.Time
	mode    uint32
}

// Provider is an in-memory filesystem keyed by cleaned slash-separated
// paths. A fresh Provider starts empty; Seed loads an initial snapshot
// (e.g. a dry run's view of the real tree before any simulated mutation).
type Provider struct {
	name string

	mu      sync.RWMutex
	entries map[string]*entry
	links   map[string]string // symlink path -> target
}

// New returns an empty Provider identified by name (the "connection name"
// a pipeline's on_batches/Location addresses it by).
func New(name string) *Provider {
	return &Provider{
		name: name,
		entries: map[string]*entry{
			".": {isDir: true, modTime: time.Unix(0, 0)},
		},
		links: map[string]string{},
	}
}

func clean(p string) string {
	p = path.Clean(strings.ReplaceAll(p, "\\", "/"))
	return strings.TrimPrefix(p, "/")
}

func (p *Provider) Prefix() string { return p.name }

// Seed records discovered resources (directory flag, mode and
// modification time, no content) in the VFS, keyed by each resource's path relative to
// root.
func (p *Provider) Seed(root string, resources []*resource.Resource) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, r := range resources {
		rel := clean(strings.TrimPrefix(r.Path, root))
		meta, err := r.Meta(context.Background())
		if err != nil {
			continue
		}
		p.entries[rel] = &entry{isDir: meta.IsDir, modTime: meta.ModTime, mode: meta.Mode}
	}
}

func (p *Provider) Discover(ctx context.Context, loc providers.Location) ([]*resource.Resource, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	root := clean(loc.Path)
	var names []string
	for k := range p.entries {
		if k == root || k == "." {
			continue
		}
		if root == "." || root == "" || strings.HasPrefix(k, root+"/") {
			names = append(names, k)
		}
	}
	sort.Strings(names)

	out := make([]*resource.Resource, 0, len(names))
	for _, n := range names {
		e := p.entries[n]
		if loc.Options.Target == providers.TargetFiles && e.isDir {
			continue
		}
		if loc.Options.Target == providers.TargetFolders && !e.isDir {
			continue
		}
		out = append(out, resource.New(p.name, "/"+n, &backend{p: p}))
	}
	return out, nil
}

func (p *Provider) Metadata(ctx context.Context, path string) (providers.Metadata, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	e, ok := p.entries[clean(path)]
	if !ok {
		return providers.Metadata{}, os.ErrNotExist
	}
	return providers.Metadata{Size: int64(len(e.data)), ModTime: e.modTime, IsDir: e.isDir, Mode: e.mode}, nil
}

func (p *Provider) Exists(ctx context.Context, path string) (bool, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	_, ok := p.entries[clean(path)]
	return ok, nil
}

func (p *Provider) ReadAll(ctx context.Context, path string) ([]byte, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	e, ok := p.entries[clean(path)]
	if !ok {
		return nil, os.ErrNotExist
	}
	out := make([]byte, len(e.data))
	copy(out, e.data)
	return out, nil
}

func (p *Provider) WriteAll(ctx context.Context, filePath string, data []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.mkdirLocked(path.Dir(filePath))
	cp := make([]byte, len(data))
	copy(cp, data)
	p.entries[clean(filePath)] = &entry{data: cp, modTime: timeNow()}
	return nil
}

func (p *Provider) Mkdir(ctx context.Context, dirPath string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.mkdirLocked(dirPath)
	return nil
}

func (p *Provider) mkdirLocked(dirPath string) {
	c := clean(dirPath)
	for c != "." && c != "" {
		if _, ok := p.entries[c]; ok {
			break
		}
		p.entries[c] = &entry{isDir: true, modTime: timeNow()}
		c = clean(path.Dir(c))
	}
}

func (p *Provider) ReadDir(ctx context.Context, dirPath string) ([]string, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	prefix := clean(dirPath)
	var names []string
	for k := range p.entries {
		if k == prefix || k == "." {
			continue
		}
		dir := clean(path.Dir(k))
		if dir == prefix {
			names = append(names, path.Base(k))
		}
	}
	sort.Strings(names)
	return names, nil
}

func (p *Provider) Move(ctx context.Context, from, to string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	f := clean(from)
	e, ok := p.entries[f]
	if !ok {
		return os.ErrNotExist
	}
	delete(p.entries, f)
	p.mkdirLocked(path.Dir(to))
	p.entries[clean(to)] = e
	return nil
}

func (p *Provider) Copy(ctx context.Context, from, to string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	f := clean(from)
	e, ok := p.entries[f]
	if !ok {
		return os.ErrNotExist
	}
	data := make([]byte, len(e.data))
	copy(data, e.data)
	p.mkdirLocked(path.Dir(to))
	p.entries[clean(to)] = &entry{data: data, isDir: e.isDir, modTime: timeNow(), mode: e.mode}
	return nil
}

func (p *Provider) Delete(ctx context.Context, delPath string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	prefix := clean(delPath)
	delete(p.entries, prefix)
	for k := range p.entries {
		if strings.HasPrefix(k, prefix+"/") {
			delete(p.entries, k)
		}
	}
	return nil
}

func (p *Provider) Hardlink(ctx context.Context, from, to string) error {
	return p.Copy(ctx, from, to)
}

func (p *Provider) Symlink(ctx context.Context, from, to string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.links[clean(to)] = clean(from)
	return nil
}

func (p *Provider) Upload(ctx context.Context, localPath, vfsPath string) error {
	data, err := os.ReadFile(localPath)
	if err != nil {
		return err
	}
	return p.WriteAll(ctx, vfsPath, data)
}

func (p *Provider) Download(ctx context.Context, vfsPath string) (string, error) {
	data, err := p.ReadAll(ctx, vfsPath)
	if err != nil {
		return "", err
	}
	tmp, err := os.CreateTemp("", "organize-vfs-dl-*")
	if err != nil {
		return "", err
	}
	defer tmp.Close()
	if _, err := tmp.Write(data); err != nil {
		return "", fmt.Errorf("vfs download %s: %w", vfsPath, err)
	}
	return tmp.Name(), nil
}

type backend struct{ p *Provider }

func (b *backend) Prefix() string { return b.p.Prefix() }
func (b *backend) Metadata(ctx context.Context, path string) (resource.Metadata, error) {
	return b.p.Metadata(ctx, path)
}
func (b *backend) ReadAll(ctx context.Context, path string) ([]byte, error) {
	return b.p.ReadAll(ctx, path)
}

// timeNow is a seam: the dry-run VFS stamps modification times with wall
// clock time at the moment of the simulated mutation.
func timeNow() time.Time { return time.Now() }
