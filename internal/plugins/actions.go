package plugins

import (
	"context"
	"encoding/json"

	"github.com/organize/organize/internal/execctx"
	"github.com/organize/organize/internal/locker"
	"github.com/organize/organize/internal/resource"
	"github.com/organize/organize/internal/undo"
)

func lockerStrategy(c execctx.OnConflict) locker.Strategy {
	switch c {
	case execctx.OnConflictSkip:
		return locker.StrategySkip
	case execctx.OnConflictOverwrite:
		return locker.StrategyOverwrite
	default:
		return locker.StrategyRename
	}
}

// MoveAction moves a resource to a rendered destination template, the
// most common action in practice (spec.md §1 examples).
type MoveAction struct {
	DestinationTemplate string
}

func (MoveAction) Name() string          { return "move" }
func (MoveAction) Model() ExecutionModel { return Single }

func (a MoveAction) ActSingle(ctx context.Context, ectx execctx.ExecutionContext, r *resource.Resource) (Receipt, error) {
	svc := ectx.Services
	dest, err := svc.Compiler.Compile(a.DestinationTemplate)
	if err != nil {
		return Receipt{}, err
	}
	destPath, err := dest.Render(ectx.WithResource(r).TemplateContext())
	if err != nil {
		return Receipt{}, err
	}

	strategy := lockerStrategy(svc.Settings.OnConflict)
	var backup string
	result, err := locker.WithLockedDestination(ctx, destPath, strategy,
		svc.FS.Exists, svc.FS.EnsureParentDir,
		func(ctx context.Context, resolved string) (string, error) {
			if strategy == locker.StrategyOverwrite {
				b, err := undo.CreateBackup(ctx, svc.FS, resolved)
				if err != nil {
					return "", err
				}
				backup = b
			}
			if err := svc.FS.Move(ctx, r.Path, resolved); err != nil {
				return "", err
			}
			return resolved, nil
		}, svc.FS.Locker())
	if err != nil {
		return Receipt{}, err
	}
	if result == nil {
		return Receipt{Inputs: []InputEntry{{Status: InputSkipped, Resource: r}}}, nil
	}

	moved := r.WithPath(*result)
	return Receipt{
		Inputs:  []InputEntry{{Status: InputProcessed, Resource: r}},
		Outputs: []OutputEntry{{Status: OutputCreated, Resource: moved}, {Status: OutputDeleted, Resource: r}},
		Next:    []*resource.Resource{moved},
		Undo:    []undo.Undo{undo.Move{Original: r.Path, New: *result, Backup: backup}},
	}, nil
}

func (a MoveAction) ActBatch(ctx context.Context, ectx execctx.ExecutionContext, files []*resource.Resource) (Receipt, error) {
	return actBatchFromSingle(ctx, ectx, files, a.ActSingle)
}

// CopyAction copies a resource to a rendered destination template,
// leaving the original in place.
type CopyAction struct {
	DestinationTemplate string
}

func (CopyAction) Name() string          { return "copy" }
func (CopyAction) Model() ExecutionModel { return Single }

func (a CopyAction) ActSingle(ctx context.Context, ectx execctx.ExecutionContext, r *resource.Resource) (Receipt, error) {
	svc := ectx.Services
	dest, err := svc.Compiler.Compile(a.DestinationTemplate)
	if err != nil {
		return Receipt{}, err
	}
	destPath, err := dest.Render(ectx.WithResource(r).TemplateContext())
	if err != nil {
		return Receipt{}, err
	}

	strategy := lockerStrategy(svc.Settings.OnConflict)
	var backup string
	result, err := locker.WithLockedDestination(ctx, destPath, strategy,
		svc.FS.Exists, svc.FS.EnsureParentDir,
		func(ctx context.Context, resolved string) (string, error) {
			if strategy == locker.StrategyOverwrite {
				b, err := undo.CreateBackup(ctx, svc.FS, resolved)
				if err != nil {
					return "", err
				}
				backup = b
			}
			if err := svc.FS.Copy(ctx, r.Path, resolved); err != nil {
				return "", err
			}
			return resolved, nil
		}, svc.FS.Locker())
	if err != nil {
		return Receipt{}, err
	}
	if result == nil {
		return Receipt{Inputs: []InputEntry{{Status: InputSkipped, Resource: r}}}, nil
	}

	copied := r.WithPath(*result)
	return Receipt{
		Inputs:  []InputEntry{{Status: InputProcessed, Resource: r}},
		Outputs: []OutputEntry{{Status: OutputCreated, Resource: copied}},
		Next:    []*resource.Resource{r, copied},
		Undo:    []undo.Undo{undo.Copy{New: *result, Backup: backup}},
	}, nil
}

func (a CopyAction) ActBatch(ctx context.Context, ectx execctx.ExecutionContext, files []*resource.Resource) (Receipt, error) {
	return actBatchFromSingle(ctx, ectx, files, a.ActSingle)
}

// WriteAction appends or overwrites a rendered body at a rendered path,
// supplementing the distilled spec's action set per original_source's
// Write action (SPEC_FULL.md §D).
type WriteAction struct {
	PathTemplate string
	BodyTemplate string
	Append       bool
}

func (WriteAction) Name() string          { return "write" }
func (WriteAction) Model() ExecutionModel { return Single }

func (a WriteAction) ActSingle(ctx context.Context, ectx execctx.ExecutionContext, r *resource.Resource) (Receipt, error) {
	svc := ectx.Services
	pathTmpl, err := svc.Compiler.Compile(a.PathTemplate)
	if err != nil {
		return Receipt{}, err
	}
	bodyTmpl, err := svc.Compiler.Compile(a.BodyTemplate)
	if err != nil {
		return Receipt{}, err
	}
	tctx := ectx.WithResource(r).TemplateContext()

	targetPath, err := pathTmpl.Render(tctx)
	if err != nil {
		return Receipt{}, err
	}
	body, err := bodyTmpl.Render(tctx)
	if err != nil {
		return Receipt{}, err
	}

	data := []byte(body)
	if a.Append {
		if existing, err := svc.FS.ReadAll(ctx, targetPath); err == nil {
			data = append(existing, data...)
		}
	}
	if err := svc.FS.WriteAll(ctx, targetPath, data); err != nil {
		return Receipt{}, err
	}

	written := resource.New(r.Host, targetPath, nil)
	return Receipt{
		Inputs:  []InputEntry{{Status: InputProcessed, Resource: r}},
		Outputs: []OutputEntry{{Status: OutputModified, Resource: written}},
		Next:    []*resource.Resource{r},
	}, nil
}

func (a WriteAction) ActBatch(ctx context.Context, ectx execctx.ExecutionContext, files []*resource.Resource) (Receipt, error) {
	return actBatchFromSingle(ctx, ectx, files, a.ActSingle)
}

// actBatchFromSingle is the shared "apply the Single implementation to
// every file and merge the receipts" fallback for actions the pipeline
// invokes with ExecutionModel Batch.
func actBatchFromSingle(ctx context.Context, ectx execctx.ExecutionContext, files []*resource.Resource, single func(context.Context, execctx.ExecutionContext, *resource.Resource) (Receipt, error)) (Receipt, error) {
	merged := Receipt{Metadata: map[string]json.RawMessage{}}
	for _, r := range files {
		rec, err := single(ctx, ectx.WithResource(r), r)
		if err != nil {
			return Receipt{}, err
		}
		merged.Inputs = append(merged.Inputs, rec.Inputs...)
		merged.Outputs = append(merged.Outputs, rec.Outputs...)
		merged.Next = append(merged.Next, rec.Next...)
		merged.Undo = append(merged.Undo, rec.Undo...)
	}
	return merged, nil
}
