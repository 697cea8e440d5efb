package plugins

import (
	"context"
	"strings"

	"github.com/organize/organize/internal/batch"
	"github.com/organize/organize/internal/execctx"
	"github.com/organize/organize/internal/resource"
)

// ByExtensionPartitioner groups files by their lowercase extension
// (spec.md §4.1 Partition; "{{by_extension}}" is the canonical example
// placeholder throughout the spec).
type ByExtensionPartitioner struct{}

func (ByExtensionPartitioner) Name() string { return "by_extension" }

func (p ByExtensionPartitioner) Partition(ctx context.Context, ectx execctx.ExecutionContext, b batch.Batch) (map[string]batch.Batch, error) {
	groups := map[string][]*resource.Resource{}
	for _, r := range b.Files {
		key := strings.ToLower(r.Ext())
		if key == "" {
			key = "noext"
		}
		groups[key] = append(groups[key], r)
	}

	out := make(map[string]batch.Batch, len(groups))
	for key, files := range groups {
		out[key] = batch.Batch{
			Files:   files,
			Context: batch.InheritContext(b.Context, p.Name(), key),
		}
	}
	return out, nil
}
