package locker

import (
	"fmt"
	"path"
	"strings"
)

// NextRenameCandidate produces the nth auto-rename of path, using the
// "<stem> (n)<ext>" scheme (spec.md §4.2 Rename strategy). n starts at 1
// for the first collision. Shared with the undo package, which applies
// the same scheme when restoring a path that has since been reclaimed.
func NextRenameCandidate(p string, n int) string {
	dir, base := path.Split(p)
	ext := path.Ext(base)
	stem := strings.TrimSuffix(base, ext)

	// If stem already carries a previous " (k)" suffix, strip it so
	// repeated collisions don't nest (" (1) (2)") but instead advance.
	if i := strings.LastIndex(stem, " ("); i > 0 && strings.HasSuffix(stem, ")") {
		inner := stem[i+2 : len(stem)-1]
		if isDigits(inner) {
			stem = stem[:i]
		}
	}

	return fmt.Sprintf("%s%s (%d)%s", dir, stem, n, ext)
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
