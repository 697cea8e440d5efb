package plugins

import (
	"context"

	"github.com/organize/organize/internal/execctx"
	"github.com/organize/organize/internal/resource"
)

// FirstNSelector keeps the first N files of a batch in its current
// order, the canonical "newest"/"largest" selector once a Sort stage has
// already established the order the spec's examples rely on (spec.md
// §4.1 Select).
type FirstNSelector struct {
	N int
}

func (FirstNSelector) Name() string { return "first_n" }

func (s FirstNSelector) Select(ctx context.Context, ectx execctx.ExecutionContext, files []*resource.Resource) ([]*resource.Resource, error) {
	if s.N >= len(files) {
		return files, nil
	}
	if s.N <= 0 {
		return nil, nil
	}
	return files[:s.N], nil
}
