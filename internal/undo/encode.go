package undo

import (
	"encoding/json"
	"fmt"
)

// entryKind discriminates the concrete Undo implementation stored in a
// Receipt, needed because the journal persists receipts as JSON and an
// interface slice loses its concrete type across that round trip.
type entryKind string

const (
	kindMove   entryKind = "move"
	kindCopy   entryKind = "copy"
	kindDelete entryKind = "delete"
)

type entry struct {
	Kind     entryKind `json:"kind"`
	Original string    `json:"original,omitempty"`
	New      string    `json:"new,omitempty"`
	Backup   string    `json:"backup,omitempty"`
}

// MarshalEntries encodes a slice of Undo descriptors for storage in a
// journal transaction's receipt blob.
func MarshalEntries(entries []Undo) (json.RawMessage, error) {
	out := make([]entry, 0, len(entries))
	for _, u := range entries {
		switch v := u.(type) {
		case Move:
			out = append(out, entry{Kind: kindMove, Original: v.Original, New: v.New, Backup: v.Backup})
		case Copy:
			out = append(out, entry{Kind: kindCopy, New: v.New, Backup: v.Backup})
		case Delete:
			out = append(out, entry{Kind: kindDelete, Original: v.Original, Backup: v.Backup})
		default:
			return nil, fmt.Errorf("undo: unknown descriptor type %T", u)
		}
	}
	return json.Marshal(out)
}

// UnmarshalEntries reverses MarshalEntries, reconstructing the concrete
// Undo values an undo-session replay needs to call Verify/Apply on.
func UnmarshalEntries(blob json.RawMessage) ([]Undo, error) {
	var raw []entry
	if err := json.Unmarshal(blob, &raw); err != nil {
		return nil, fmt.Errorf("undo: decode entries: %w", err)
	}
	out := make([]Undo, 0, len(raw))
	for _, e := range raw {
		switch e.Kind {
		case kindMove:
			out = append(out, Move{Original: e.Original, New: e.New, Backup: e.Backup})
		case kindCopy:
			out = append(out, Copy{New: e.New, Backup: e.Backup})
		case kindDelete:
			out = append(out, Delete{Original: e.Original, Backup: e.Backup})
		default:
			return nil, fmt.Errorf("undo: unknown entry kind %q", e.Kind)
		}
	}
	return out, nil
}
