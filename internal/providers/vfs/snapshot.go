package vfs

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"os"
)

// entryType discriminates a snapshotEntry's kind (spec.md §4.3 binds this
// to exactly "file" or "dir").
type entryType string

const (
	entryFile entryType = "file"
	entryDir  entryType = "dir"
)

// snapshotEntry is the on-disk shape of one VFS node (spec.md §4.3: "a
// DashMap... loaded lazily from a JSON snapshot"). Host identifies which
// named connection the entry belongs to, so one snapshot file can carry
// the state of every backend touched by a dry run; ContentSource is
// base64-encoded file content, present only when the snapshot was
// captured with --include-content.
type snapshotEntry struct {
	Path          string    `json:"path"`
	EntryType     entryType `json:"entry_type"`
	Host          string    `json:"host"`
	Size          int64     `json:"size,omitempty"`
	ContentSource string    `json:"content_source,omitempty"`
}

// Snapshot serializes the current entries to JSON, optionally including
// file content (snapshot --include-content).
func (p *Provider) Snapshot(includeContent bool) ([]byte, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	out := make([]snapshotEntry, 0, len(p.entries))
	for path, e := range p.entries {
		if path == "." {
			continue
		}
		se := snapshotEntry{
			Path: path,
			Host: p.name,
		}
		if e.isDir {
			se.EntryType = entryDir
		} else {
			se.EntryType = entryFile
			se.Size = int64(len(e.data))
		}
		if includeContent && !e.isDir {
			se.ContentSource = base64.StdEncoding.EncodeToString(e.data)
		}
		out = append(out, se)
	}
	return json.MarshalIndent(out, "", "  ")
}

// LoadSnapshot replaces p's entries with the entries belonging to p's
// host out of a JSON snapshot previously written by Snapshot, used to
// seed a dry run without a live Discover pass (spec.md §4.3). A
// snapshot that mixes entries from several backends (host set to each
// one's connection name) is filtered down to this Provider's own
// entries so restoring one backend never pulls in another's files. A
// blank host (an older single-backend snapshot) is accepted unfiltered.
func (p *Provider) LoadSnapshot(data []byte) error {
	var in []snapshotEntry
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.entries = map[string]*entry{".": {isDir: true, modTime: timeNow()}}
	for _, se := range in {
		if se.Host != "" && se.Host != p.name {
			continue
		}
		e := &entry{isDir: se.EntryType == entryDir, modTime: timeNow()}
		if se.ContentSource != "" {
			if data, err := base64.StdEncoding.DecodeString(se.ContentSource); err == nil {
				e.data = data
			}
		}
		p.entries[clean(se.Path)] = e
	}
	return nil
}

// WriteSnapshotFile writes Snapshot's output to path.
func (p *Provider) WriteSnapshotFile(ctx context.Context, path string, includeContent bool) error {
	data, err := p.Snapshot(includeContent)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
