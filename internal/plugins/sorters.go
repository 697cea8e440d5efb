package plugins

import (
	"context"
	"sort"

	"github.com/organize/organize/internal/execctx"
	"github.com/organize/organize/internal/resource"
)

// BySizeSorter orders a batch's files by size, ascending.
type BySizeSorter struct {
	Descending bool
}

func (BySizeSorter) Name() string { return "by_size" }

func (s BySizeSorter) Sort(ctx context.Context, ectx execctx.ExecutionContext, files []*resource.Resource) ([]*resource.Resource, error) {
	type sized struct {
		r    *resource.Resource
		size int64
	}
	pairs := make([]sized, len(files))
	for i, r := range files {
		m, err := r.Meta(ctx)
		if err != nil {
			return nil, err
		}
		pairs[i] = sized{r: r, size: m.Size}
	}
	sort.SliceStable(pairs, func(i, j int) bool {
		if s.Descending {
			return pairs[i].size > pairs[j].size
		}
		return pairs[i].size < pairs[j].size
	})
	out := make([]*resource.Resource, len(pairs))
	for i, p := range pairs {
		out[i] = p.r
	}
	return out, nil
}

// ByNameSorter orders a batch's files lexicographically by name.
type ByNameSorter struct {
	Descending bool
}

func (ByNameSorter) Name() string { return "by_name" }

func (s ByNameSorter) Sort(ctx context.Context, ectx execctx.ExecutionContext, files []*resource.Resource) ([]*resource.Resource, error) {
	out := append([]*resource.Resource{}, files...)
	sort.SliceStable(out, func(i, j int) bool {
		if s.Descending {
			return out[i].Name() > out[j].Name()
		}
		return out[i].Name() < out[j].Name()
	})
	return out, nil
}
