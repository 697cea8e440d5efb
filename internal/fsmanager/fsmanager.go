// Package fsmanager implements FileSystemManager: the component that
// routes a path to the correct StorageProvider by the backend name before
// its "://" (see ParseURI; there is no separate host segment after "://")
// and implements cross-backend move/copy by download→upload or
// copy+delete (spec.md §4.3). It owns the Locker and a metadata cache so
// callers never talk to providers.StorageProvider directly.
package fsmanager

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/organize/organize/internal/cache"
	organizeerrors "github.com/organize/organize/internal/errors"
	"github.com/organize/organize/internal/locker"
	"github.com/organize/organize/internal/providers"
	"github.com/organize/organize/internal/resource"
)

// Manager routes operations to the provider registered for a path's host
// prefix, always including "file" for local paths.
type Manager struct {
	backends map[string]providers.StorageProvider
	locker   *locker.Locker
	metaTTL  *cache.Cache[providers.Metadata]
}

// New builds a Manager. local is registered under the "file" prefix;
// remote is an optional set of additional backends keyed by connection
// name, as declared in a rule's connections table (spec.md §4.3).
func New(local providers.StorageProvider, remote map[string]providers.StorageProvider) *Manager {
	backends := map[string]providers.StorageProvider{"file": local}
	for name, p := range remote {
		backends[name] = p
	}
	return &Manager{
		backends: backends,
		locker:   locker.New(),
		metaTTL:  cache.New[providers.Metadata](30*time.Second, 10000),
	}
}

// Locker exposes the manager's reservation layer to callers that need to
// stage a destination through locker.WithLockedDestination.
func (m *Manager) Locker() *locker.Locker { return m.locker }

// ParseURI splits a path of the form "host://rest" into (host, path),
// where host names the backend registered for that connection (spec.md
// §4.3). A path with no "://" belongs to the "file" host.
func ParseURI(raw string) (host, path string) {
	if i := strings.Index(raw, "://"); i >= 0 {
		host = raw[:i]
		path = raw[i+3:]
		if !strings.HasPrefix(path, "/") {
			path = "/" + path
		}
		return host, path
	}
	return "file", raw
}

func (m *Manager) providerFor(host string) (providers.StorageProvider, error) {
	p, ok := m.backends[host]
	if !ok {
		return nil, organizeerrors.ImpossibleOp(organizeerrors.Context{}, fmt.Sprintf("no backend registered for host %q", host))
	}
	return p, nil
}

func (m *Manager) Exists(ctx context.Context, raw string) (bool, error) {
	host, p := ParseURI(raw)
	prov, err := m.providerFor(host)
	if err != nil {
		return false, err
	}
	return prov.Exists(ctx, p)
}

// EnsureParentDir creates the parent directory of raw on its backend.
// Injected into locker.WithLockedDestination as EnsureParentFunc.
func (m *Manager) EnsureParentDir(ctx context.Context, raw string) error {
	host, p := ParseURI(raw)
	prov, err := m.providerFor(host)
	if err != nil {
		return err
	}
	return prov.Mkdir(ctx, parentOf(p))
}

func parentOf(p string) string {
	i := strings.LastIndex(strings.TrimRight(p, "/"), "/")
	if i <= 0 {
		return "/"
	}
	return p[:i]
}

func (m *Manager) Metadata(ctx context.Context, raw string) (providers.Metadata, error) {
	if v, ok := m.metaTTL.Get(raw); ok {
		return v, nil
	}
	host, p := ParseURI(raw)
	prov, err := m.providerFor(host)
	if err != nil {
		return providers.Metadata{}, err
	}
	meta, err := prov.Metadata(ctx, p)
	if err != nil {
		return providers.Metadata{}, err
	}
	m.metaTTL.Set(raw, meta)
	return meta, nil
}

func (m *Manager) invalidate(raw string) {
	m.metaTTL.Delete(raw)
	m.metaTTL.DeleteByPrefix(raw + "/")
}

// Move implements spec.md §4.3 move: same-backend delegates to
// provider.Move; cross-backend falls back to copy then delete.
func (m *Manager) Move(ctx context.Context, from, to string) error {
	fromHost, fromPath := ParseURI(from)
	toHost, toPath := ParseURI(to)
	defer func() { m.invalidate(from); m.invalidate(to) }()

	if fromHost == toHost {
		prov, err := m.providerFor(fromHost)
		if err != nil {
			return err
		}
		if err := prov.Move(ctx, fromPath, toPath); err != nil {
			return organizeerrors.IO(organizeerrors.Context{}, from, to, err)
		}
		return nil
	}

	if err := m.Copy(ctx, from, to); err != nil {
		return err
	}
	return m.Delete(ctx, from)
}

// Copy implements spec.md §4.3 copy: same-backend delegates to
// provider.Copy; cross-backend bridges through Upload/Download, using a
// local temp file when neither side is local.
func (m *Manager) Copy(ctx context.Context, from, to string) error {
	fromHost, fromPath := ParseURI(from)
	toHost, toPath := ParseURI(to)
	defer m.invalidate(to)

	if fromHost == toHost {
		prov, err := m.providerFor(fromHost)
		if err != nil {
			return err
		}
		if err := prov.Copy(ctx, fromPath, toPath); err != nil {
			return organizeerrors.IO(organizeerrors.Context{}, from, to, err)
		}
		return nil
	}

	fromProv, err := m.providerFor(fromHost)
	if err != nil {
		return err
	}
	toProv, err := m.providerFor(toHost)
	if err != nil {
		return err
	}

	switch {
	case fromHost == "file":
		if err := toProv.Upload(ctx, fromPath, toPath); err != nil {
			return organizeerrors.IO(organizeerrors.Context{}, from, to, err)
		}
		return nil
	case toHost == "file":
		tmp, err := fromProv.Download(ctx, fromPath)
		if err != nil {
			return organizeerrors.IO(organizeerrors.Context{}, from, to, err)
		}
		local, lerr := m.providerFor("file")
		if lerr != nil {
			return lerr
		}
		if err := local.Copy(ctx, tmp, toPath); err != nil {
			return organizeerrors.IO(organizeerrors.Context{}, from, to, err)
		}
		_ = local.Delete(ctx, tmp)
		return nil
	default:
		tmp, err := fromProv.Download(ctx, fromPath)
		if err != nil {
			return organizeerrors.IO(organizeerrors.Context{}, from, to, err)
		}
		local, lerr := m.providerFor("file")
		if lerr == nil {
			defer local.Delete(ctx, tmp)
		}
		if err := toProv.Upload(ctx, tmp, toPath); err != nil {
			return organizeerrors.IO(organizeerrors.Context{}, from, to, err)
		}
		return nil
	}
}

func (m *Manager) Delete(ctx context.Context, raw string) error {
	defer m.invalidate(raw)
	host, p := ParseURI(raw)
	prov, err := m.providerFor(host)
	if err != nil {
		return err
	}
	if err := prov.Delete(ctx, p); err != nil {
		return organizeerrors.IO(organizeerrors.Context{}, raw, "", err)
	}
	return nil
}

// Hardlink and Symlink are only meaningful within one backend; a
// cross-backend request is an ImpossibleOp (spec.md §4.3).
func (m *Manager) Hardlink(ctx context.Context, from, to string) error {
	return m.sameBackendLink(ctx, from, to, func(p providers.StorageProvider, f, t string) error { return p.Hardlink(ctx, f, t) })
}

func (m *Manager) Symlink(ctx context.Context, from, to string) error {
	return m.sameBackendLink(ctx, from, to, func(p providers.StorageProvider, f, t string) error { return p.Symlink(ctx, f, t) })
}

func (m *Manager) sameBackendLink(ctx context.Context, from, to string, op func(providers.StorageProvider, string, string) error) error {
	fromHost, fromPath := ParseURI(from)
	toHost, toPath := ParseURI(to)
	if fromHost != toHost {
		return organizeerrors.ImpossibleOp(organizeerrors.Context{}, fmt.Sprintf("cross-backend link %s -> %s", from, to))
	}
	prov, err := m.providerFor(fromHost)
	if err != nil {
		return err
	}
	defer m.invalidate(to)
	if err := op(prov, fromPath, toPath); err != nil {
		return organizeerrors.IO(organizeerrors.Context{}, from, to, err)
	}
	return nil
}

func (m *Manager) ReadAll(ctx context.Context, raw string) ([]byte, error) {
	host, p := ParseURI(raw)
	prov, err := m.providerFor(host)
	if err != nil {
		return nil, err
	}
	return prov.ReadAll(ctx, p)
}

func (m *Manager) WriteAll(ctx context.Context, raw string, data []byte) error {
	defer m.invalidate(raw)
	host, p := ParseURI(raw)
	prov, err := m.providerFor(host)
	if err != nil {
		return err
	}
	return prov.WriteAll(ctx, p, data)
}

// Discover delegates to the provider registered for loc.Host, so callers
// can address a search Location by host name rather than holding the
// provider directly.
func (m *Manager) Discover(ctx context.Context, loc providers.Location) ([]*resource.Resource, error) {
	host := loc.Host
	if host == "" {
		host = "file"
	}
	prov, err := m.providerFor(host)
	if err != nil {
		return nil, err
	}
	return prov.Discover(ctx, loc)
}
