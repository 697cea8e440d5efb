package plugins

import (
	"context"
	"strings"

	"github.com/organize/organize/internal/execctx"
	"github.com/organize/organize/internal/resource"
)

// ExtensionFilter keeps resources whose extension is in Extensions
// (case-insensitive, without the leading dot).
type ExtensionFilter struct {
	Extensions []string
}

func (ExtensionFilter) Name() string          { return "extension" }
func (ExtensionFilter) Model() ExecutionModel { return Single }

func (f ExtensionFilter) CheckSingle(ctx context.Context, ectx execctx.ExecutionContext, r *resource.Resource) (bool, error) {
	ext := strings.ToLower(strings.TrimPrefix(r.Ext(), "."))
	for _, e := range f.Extensions {
		if strings.ToLower(strings.TrimPrefix(e, ".")) == ext {
			return true, nil
		}
	}
	return false, nil
}

func (f ExtensionFilter) CheckBatch(ctx context.Context, ectx execctx.ExecutionContext, files []*resource.Resource) ([]*resource.Resource, error) {
	return filterSingle(ctx, ectx, files, f.CheckSingle)
}

// EmptyFilter keeps files with zero size or empty directories.
type EmptyFilter struct{}

func (EmptyFilter) Name() string          { return "empty" }
func (EmptyFilter) Model() ExecutionModel { return Single }

func (EmptyFilter) CheckSingle(ctx context.Context, ectx execctx.ExecutionContext, r *resource.Resource) (bool, error) {
	meta, err := r.Meta(ctx)
	if err != nil {
		return false, err
	}
	return meta.Size == 0, nil
}

func (f EmptyFilter) CheckBatch(ctx context.Context, ectx execctx.ExecutionContext, files []*resource.Resource) ([]*resource.Resource, error) {
	return filterSingle(ctx, ectx, files, f.CheckSingle)
}

// MimeFilter keeps resources whose sniffed MIME type matches one of
// MimeTypes (exact or "type/*" wildcard), using the same mimetype
// detection resource.Resource.Mime caches.
type MimeFilter struct {
	MimeTypes []string
}

func (MimeFilter) Name() string          { return "mime" }
func (MimeFilter) Model() ExecutionModel { return Single }

func (f MimeFilter) CheckSingle(ctx context.Context, ectx execctx.ExecutionContext, r *resource.Resource) (bool, error) {
	mt, err := r.Mime(ctx)
	if err != nil {
		return false, err
	}
	for _, want := range f.MimeTypes {
		if want == mt {
			return true, nil
		}
		if strings.HasSuffix(want, "/*") && strings.HasPrefix(mt, strings.TrimSuffix(want, "*")) {
			return true, nil
		}
	}
	return false, nil
}

func (f MimeFilter) CheckBatch(ctx context.Context, ectx execctx.ExecutionContext, files []*resource.Resource) ([]*resource.Resource, error) {
	return filterSingle(ctx, ectx, files, f.CheckSingle)
}

// filterSingle is the shared "apply a per-resource predicate, keep the
// ones that pass" loop every Single-model filter's CheckBatch falls back
// to when the pipeline needs a batch-shaped call.
func filterSingle(ctx context.Context, ectx execctx.ExecutionContext, files []*resource.Resource, check func(context.Context, execctx.ExecutionContext, *resource.Resource) (bool, error)) ([]*resource.Resource, error) {
	out := make([]*resource.Resource, 0, len(files))
	for _, r := range files {
		ok, err := check(ctx, ectx.WithResource(r), r)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, r)
		}
	}
	return out, nil
}
