// Package resource defines Resource, the immutable handle to a file or
// directory on a named storage backend that flows through the pipeline.
package resource

import (
	"context"
	"path"
	"sync"
	"time"

	"github.com/gabriel-vasile/mimetype"
)

// Metadata is the subset of filesystem metadata a StorageProvider reports.
// It is cached lazily on the Resource once fetched.
type Metadata struct {
	Size    int64
	ModTime time.Time
	IsDir   bool
	Mode    uint32
}

// Backend is the minimal surface Resource needs from a StorageProvider to
// populate its lazy caches, without importing the providers package (which
// depends on resource, not the other way around).
type Backend interface {
	Prefix() string
	Metadata(ctx context.Context, path string) (Metadata, error)
	ReadAll(ctx context.Context, path string) ([]byte, error)
}

// onceCells holds the lazy-initialization guards for a Resource's derived
// caches. Concurrent callers of Meta/Bytes/Mime share a single in-flight
// computation (spec.md §9).
type onceCells struct {
	meta  sync.Once
	bytes sync.Once
	mime  sync.Once
}

// Resource is an immutable handle to a single file or directory on a named
// backend. Equality and hashing are by Path alone (spec.md §3): two
// Resources sharing a Path are the same logical file even if one has warmer
// caches than the other.
type Resource struct {
	Path     string
	Host     string
	Backend  Backend
	Location string // search origin this resource was discovered under, if any

	once *onceCells

	meta     Metadata
	metaErr  error
	bytes    []byte
	bytesErr error
	mimeType string
	mimeErr  error
}

// New constructs a Resource for path on host, backed by backend.
func New(host, p string, backend Backend) *Resource {
	return &Resource{Path: p, Host: host, Backend: backend, once: &onceCells{}}
}

// Key returns the identity used for equality/hashing: Path only.
func (r *Resource) Key() string { return r.Path }

// Name returns the final path segment.
func (r *Resource) Name() string { return path.Base(r.Path) }

// Ext returns the extension without the leading dot, in its original
// case, or "".
func (r *Resource) Ext() string {
	e := path.Ext(r.Path)
	if len(e) > 0 {
		e = e[1:]
	}
	return e
}

// WithPath returns a functional replacement of r with a new path. Content
// caches (bytes/mime) survive since the underlying bytes haven't changed;
// filesystem metadata is cleared since it is path-specific.
func (r *Resource) WithPath(newPath string) *Resource {
	clone := &Resource{
		Path:     newPath,
		Host:     r.Host,
		Backend:  r.Backend,
		Location: r.Location,
		once:     &onceCells{},
		bytes:    r.bytes,
		bytesErr: r.bytesErr,
		mimeType: r.mimeType,
		mimeErr:  r.mimeErr,
	}
	if r.bytes != nil || r.bytesErr != nil {
		clone.once.bytes.Do(func() {})
	}
	if r.mimeType != "" || r.mimeErr != nil {
		clone.once.mime.Do(func() {})
	}
	return clone
}

// WithFilename replaces only the final path segment, preserving the parent
// directory, via WithPath.
func (r *Resource) WithFilename(name string) *Resource {
	return r.WithPath(path.Join(path.Dir(r.Path), name))
}

// Meta lazily fetches and caches filesystem metadata.
func (r *Resource) Meta(ctx context.Context) (Metadata, error) {
	r.once.meta.Do(func() {
		r.meta, r.metaErr = r.Backend.Metadata(ctx, r.Path)
	})
	return r.meta, r.metaErr
}

// Bytes lazily fetches and caches the resource's full content.
func (r *Resource) Bytes(ctx context.Context) ([]byte, error) {
	r.once.bytes.Do(func() {
		r.bytes, r.bytesErr = r.Backend.ReadAll(ctx, r.Path)
	})
	return r.bytes, r.bytesErr
}

// Mime lazily computes and caches the MIME type from content sniffing.
func (r *Resource) Mime(ctx context.Context) (string, error) {
	r.once.mime.Do(func() {
		b, err := r.Bytes(ctx)
		if err != nil {
			r.mimeErr = err
			return
		}
		r.mimeType = mimetype.Detect(b).String()
	})
	return r.mimeType, r.mimeErr
}
