// Package dryrun implements a StorageProvider decorator that reads from a
// real backend but sends every mutation to an in-memory VFS instead, so a
// --dry-run engine run discovers real files while simulating their
// reorganization (spec.md §6: "If settings.dry_run is set... all writes
// route through the VFS provider").
package dryrun

import (
	"context"

	"github.com/organize/organize/internal/providers"
	"github.com/organize/organize/internal/providers/vfs"
	"github.com/organize/organize/internal/resource"
)

// Provider reads through Real and simulates writes against an embedded
// VFS, which starts empty: Discover records what Real reports, and a
// mutation copies a source's content from Real on first touch.
type Provider struct {
	name    string
	real    providers.StorageProvider
	virtual *vfs.Provider
}

// New wraps real behind a dry-run VFS layer named name (the backend/host
// key callers address it by).
func New(name string, real providers.StorageProvider) *Provider {
	return &Provider{name: name, real: real, virtual: vfs.New(name)}
}

func (p *Provider) Prefix() string { return p.name }

func (p *Provider) Discover(ctx context.Context, loc providers.Location) ([]*resource.Resource, error) {
	found, err := p.real.Discover(ctx, loc)
	if err != nil {
		return nil, err
	}
	p.virtual.Seed(loc.Path, found)
	out := make([]*resource.Resource, len(found))
	for i, r := range found {
		out[i] = resource.New(p.name, r.Path, p)
	}
	return out, nil
}

// Metadata, Exists, ReadAll prefer the virtual overlay (it holds any
// simulated mutation) and fall back to the real backend for paths the dry
// run has not touched. ReadDir lists the real backend only.
func (p *Provider) Metadata(ctx context.Context, path string) (providers.Metadata, error) {
	if ok, _ := p.virtual.Exists(ctx, path); ok {
		return p.virtual.Metadata(ctx, path)
	}
	return p.real.Metadata(ctx, path)
}

func (p *Provider) Exists(ctx context.Context, path string) (bool, error) {
	if ok, err := p.virtual.Exists(ctx, path); err == nil && ok {
		return true, nil
	}
	return p.real.Exists(ctx, path)
}

func (p *Provider) ReadAll(ctx context.Context, path string) ([]byte, error) {
	if ok, _ := p.virtual.Exists(ctx, path); ok {
		return p.virtual.ReadAll(ctx, path)
	}
	return p.real.ReadAll(ctx, path)
}

func (p *Provider) ReadDir(ctx context.Context, path string) ([]string, error) {
	names, err := p.real.ReadDir(ctx, path)
	if err != nil {
		return nil, err
	}
	return names, nil
}

// WriteAll, Mkdir, Move, Copy, Delete, Hardlink, Symlink never touch the
// real backend; they simulate the mutation in the virtual overlay.
func (p *Provider) WriteAll(ctx context.Context, path string, data []byte) error {
	return p.virtual.WriteAll(ctx, path, data)
}

func (p *Provider) Mkdir(ctx context.Context, path string) error {
	return p.virtual.Mkdir(ctx, path)
}

func (p *Provider) Move(ctx context.Context, from, to string) error {
	if err := p.ensureSeeded(ctx, from); err != nil {
		return err
	}
	return p.virtual.Move(ctx, from, to)
}

func (p *Provider) Copy(ctx context.Context, from, to string) error {
	if err := p.ensureSeeded(ctx, from); err != nil {
		return err
	}
	return p.virtual.Copy(ctx, from, to)
}

func (p *Provider) Delete(ctx context.Context, path string) error {
	if err := p.ensureSeeded(ctx, path); err != nil {
		return err
	}
	return p.virtual.Delete(ctx, path)
}

func (p *Provider) Hardlink(ctx context.Context, from, to string) error {
	if err := p.ensureSeeded(ctx, from); err != nil {
		return err
	}
	return p.virtual.Hardlink(ctx, from, to)
}

func (p *Provider) Symlink(ctx context.Context, from, to string) error {
	return p.virtual.Symlink(ctx, from, to)
}

func (p *Provider) Upload(ctx context.Context, localPath, path string) error {
	return p.virtual.Upload(ctx, localPath, path)
}

func (p *Provider) Download(ctx context.Context, path string) (string, error) {
	if ok, _ := p.virtual.Exists(ctx, path); ok {
		return p.virtual.Download(ctx, path)
	}
	return p.real.Download(ctx, path)
}

// ensureSeeded copies a real file's content into the virtual overlay the
// first time a mutation touches a path the dry run hasn't seen yet, so a
// subsequent ReadAll/Move sees the pre-mutation content rather than an
// empty virtual entry.
func (p *Provider) ensureSeeded(ctx context.Context, path string) error {
	if ok, _ := p.virtual.Exists(ctx, path); ok {
		return nil
	}
	realExists, err := p.real.Exists(ctx, path)
	if err != nil || !realExists {
		return nil
	}
	meta, err := p.real.Metadata(ctx, path)
	if err != nil {
		return nil
	}
	if meta.IsDir {
		return p.virtual.Mkdir(ctx, path)
	}
	data, err := p.real.ReadAll(ctx, path)
	if err != nil {
		return nil
	}
	return p.virtual.WriteAll(ctx, path, data)
}
