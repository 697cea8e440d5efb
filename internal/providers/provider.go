// Package providers implements StorageProvider, the uniform async interface
// over pluggable storage backends (spec.md §4.3): local filesystem, SFTP,
// and an in-memory VFS used for dry-run simulation.
package providers

import (
	"context"
	"time"

	"github.com/organize/organize/internal/resource"
)

// Target selects whether discovery returns files, folders, or both.
type Target string

const (
	TargetFiles   Target = "files"
	TargetFolders Target = "folders"
	TargetBoth    Target = "both"
)

// MergeMode controls how newly-discovered files combine with the files
// already in the pipeline stream (spec.md §4.1 Search).
type MergeMode string

const (
	MergeReplace MergeMode = "replace"
	MergeAppend  MergeMode = "append"
)

// DiscoveryOptions bounds a Location's search (spec.md §3 Location).
type DiscoveryOptions struct {
	MinDepth       int
	MaxDepth       int // 0 means unbounded
	FollowSymlinks bool
	HiddenFiles    bool
	PartialFiles   bool
	Target         Target
	Exclude        []string
}

// Location is a compiled search target.
type Location struct {
	Host          string
	Path          string
	Options       DiscoveryOptions
	Mode          MergeMode
	KeepStructure bool
}

// Metadata mirrors resource.Metadata; kept as a distinct alias point so
// providers can evolve independently of the resource package's cache shape.
type Metadata = resource.Metadata

// StorageProvider is the uniform contract every backend implements.
// Implementations: Local, SFTP, VFS (spec.md §4.3).
type StorageProvider interface {
	// Prefix identifies this provider for routing ("file" for local,
	// the connection name for SFTP/VFS).
	Prefix() string

	Discover(ctx context.Context, loc Location) ([]*resource.Resource, error)
	Metadata(ctx context.Context, path string) (Metadata, error)
	Exists(ctx context.Context, path string) (bool, error)
	ReadAll(ctx context.Context, path string) ([]byte, error)
	WriteAll(ctx context.Context, path string, data []byte) error
	Mkdir(ctx context.Context, path string) error
	ReadDir(ctx context.Context, path string) ([]string, error)

	Move(ctx context.Context, from, to string) error
	Copy(ctx context.Context, from, to string) error
	Delete(ctx context.Context, path string) error
	Hardlink(ctx context.Context, from, to string) error
	Symlink(ctx context.Context, from, to string) error

	// Upload/Download are the cross-backend bridge primitives: Upload
	// copies a local path to path on this (remote) provider; Download
	// copies path on this provider to a local temp file and returns its
	// path, per spec.md §4.3's cross-backend copy/move semantics.
	Upload(ctx context.Context, localPath, path string) error
	Download(ctx context.Context, path string) (localTempPath string, err error)
}

// modTimeOrZero maps a zero time to the Unix epoch. It is unexported, so
// the provider implementations in sub-packages do not call it.
func modTimeOrZero(t time.Time) time.Time {
	if t.IsZero() {
		return time.Unix(0, 0)
	}
	return t
}
