// Package pipeline drives a Rule's ordered stages over a PipelineStream
// of named batches: Search, Filter, Partition, Sort, Select, Action,
// Flatten (spec.md §4.1). Stage carries a
// plugins.Filter/Action/Partitioner/Sorter/Selector plus StageParams;
// Pipeline.Run bounds per-resource parallelism within a Single-model
// stage via golang.org/x/sync/errgroup, matching spec.md §5's ~100
// concurrent I/O operation target.
package pipeline

import (
	"context"
	"encoding/json"

	"golang.org/x/sync/errgroup"

	"github.com/organize/organize/internal/batch"
	organizeerrors "github.com/organize/organize/internal/errors"
	"github.com/organize/organize/internal/execctx"
	"github.com/organize/organize/internal/plugins"
	"github.com/organize/organize/internal/providers"
	"github.com/organize/organize/internal/resource"
	"github.com/organize/organize/internal/undo"
)

// Kind distinguishes the seven stage variants (spec.md §3 Stage).
type Kind string

const (
	KindSearch    Kind = "search"
	KindFilter    Kind = "filter"
	KindAction    Kind = "action"
	KindPartition Kind = "partition"
	KindSort      Kind = "sort"
	KindSelect    Kind = "select"
	KindFlatten   Kind = "flatten"
)

// Params mirrors spec.md §3 StageParams. Enabled defaults to true; use
// NewParams to get that default from a zero value.
type Params struct {
	Description string
	Enabled     bool
	OnBatches   []string
	Check       string
}

// NewParams returns Params with Enabled defaulted true, per spec.md §3
// ("enabled (default true)").
func NewParams() Params { return Params{Enabled: true} }

// Stage is one compiled pipeline step (spec.md §3 Stage).
type Stage struct {
	Kind   Kind
	Params Params

	Location    providers.Location // Search; Mode/KeepStructure live on Location
	Filter      plugins.Filter
	Action      plugins.Action
	Partitioner plugins.Partitioner
	Sorter      plugins.Sorter
	Selector    plugins.Selector
	Flatten     bool
}

// Rule is a compiled rule: the configuration/TOML loader is out of scope
// (spec.md §1); by the time a Rule reaches the pipeline it is already an
// ordered Stage list plus a name for error/journal context.
type Rule struct {
	Name   string
	Stages []Stage
}

// Pipeline drives Rule.Stages over a Stream, recording every Action's
// transaction in the Journal (spec.md §4.1).
type Pipeline struct {
	rule Rule
}

// New returns a Pipeline for rule.
func New(rule Rule) *Pipeline {
	return &Pipeline{rule: rule}
}

// Run executes every enabled stage in order over a freshly empty stream,
// never retrying a failed stage (spec.md §4.1 Contract).
func (p *Pipeline) Run(ctx context.Context, ectx execctx.ExecutionContext) (*Stream, error) {
	stream := NewStream()

	for _, stage := range p.rule.Stages {
		if !stage.Params.Enabled {
			continue
		}
		stageCtx := ectx
		stageCtx.Scope.RuleName = p.rule.Name
		stageCtx.Scope.StageName = string(stage.Kind)

		if err := p.runStage(ctx, stageCtx, stream, stage); err != nil {
			if _, ok := err.(*organizeerrors.Error); ok {
				return stream, err
			}
			return stream, organizeerrors.Other(organizeerrors.Context{Rule: p.rule.Name, Stage: string(stage.Kind)}, err)
		}
	}
	return stream, nil
}

func (p *Pipeline) runStage(ctx context.Context, ectx execctx.ExecutionContext, stream *Stream, stage Stage) error {
	switch stage.Kind {
	case KindSearch:
		return p.runSearch(ctx, ectx, stream, stage)
	case KindFlatten:
		return p.runFlatten(stream, stage)
	default:
		selected, _ := stream.selectBatches(stage.Params.OnBatches)
		switch stage.Kind {
		case KindFilter:
			return p.runFilter(ctx, ectx, stream, stage, selected)
		case KindAction:
			return p.runAction(ctx, ectx, stream, stage, selected)
		case KindPartition:
			return p.runPartition(ctx, ectx, stream, stage, selected)
		case KindSort:
			return p.runSort(ctx, ectx, stream, stage, selected)
		case KindSelect:
			return p.runSelect(ctx, ectx, stream, stage, selected)
		}
	}
	return nil
}

// runSearch implements spec.md §4.1 Search.
func (p *Pipeline) runSearch(ctx context.Context, ectx execctx.ExecutionContext, stream *Stream, stage Stage) error {
	found, err := ectx.Services.FS.Discover(ctx, stage.Location)
	if err != nil {
		return err
	}

	switch stage.Location.Mode {
	case providers.MergeAppend:
		all := append(stream.AllFiles(), found...)
		return stream.repartition(ctx, ectx, dedupe(all))
	default: // MergeReplace
		if stage.Location.KeepStructure {
			return stream.repartition(ctx, ectx, found)
		}
		stream.Batches = map[string]batch.Batch{batch.RootName: batch.Initial(found)}
		stream.Partitioners = nil
		stream.Sorters = nil
		return nil
	}
}

func dedupe(files []*resource.Resource) []*resource.Resource {
	seen := map[string]bool{}
	out := make([]*resource.Resource, 0, len(files))
	for _, r := range files {
		if !seen[r.Key()] {
			seen[r.Key()] = true
			out = append(out, r)
		}
	}
	return out
}

// runFlatten implements spec.md §4.1 Flatten.
func (p *Pipeline) runFlatten(stream *Stream, stage Stage) error {
	if !stage.Flatten {
		return nil
	}
	all := stream.AllFiles()
	stream.Batches = map[string]batch.Batch{batch.RootName: batch.Initial(all)}
	stream.Partitioners = nil
	stream.Sorters = nil
	return nil
}

// runFilter implements spec.md §4.1 Filter: Single runs resources in
// parallel and keeps those that pass; Batch calls once per batch. Empty
// batches are dropped.
func (p *Pipeline) runFilter(ctx context.Context, ectx execctx.ExecutionContext, stream *Stream, stage Stage, selected []string) error {
	for _, name := range selected {
		b := stream.Batches[name]
		var kept []*resource.Resource
		var err error

		if stage.Filter.Model() == plugins.Batch {
			kept, err = stage.Filter.CheckBatch(ctx, ectx.WithBatch(name, b), b.Files)
		} else {
			kept, err = filterParallel(ctx, ectx.WithBatch(name, b), b.Files, stage.Filter.CheckSingle)
		}
		if err != nil {
			return err
		}

		if len(kept) == 0 {
			delete(stream.Batches, name)
			continue
		}
		b.Files = kept
		stream.Batches[name] = b
	}
	return nil
}

// maxConcurrentIO bounds per-resource parallelism within a Single-model
// stage (spec.md §5: "bound ≈ 100 concurrent I/O operations").
const maxConcurrentIO = 100

func filterParallel(ctx context.Context, ectx execctx.ExecutionContext, files []*resource.Resource, check func(context.Context, execctx.ExecutionContext, *resource.Resource) (bool, error)) ([]*resource.Resource, error) {
	results := make([]bool, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentIO)

	for i, r := range files {
		i, r := i, r
		g.Go(func() error {
			ok, err := check(gctx, ectx.WithResource(r), r)
			if err != nil {
				return err
			}
			results[i] = ok
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make([]*resource.Resource, 0, len(files))
	for i, r := range files {
		if results[i] {
			out = append(out, r)
		}
	}
	return out, nil
}

// runAction implements spec.md §4.1 Action: each invocation returns a
// Receipt; next replaces the batch's files; empty post-action batches
// are dropped; every invocation with at least one undo entry is recorded
// in the Journal.
func (p *Pipeline) runAction(ctx context.Context, ectx execctx.ExecutionContext, stream *Stream, stage Stage, selected []string) error {
	for _, name := range selected {
		b := stream.Batches[name]
		var receipts []plugins.Receipt

		if stage.Action.Model() == plugins.Batch {
			rec, err := stage.Action.ActBatch(ctx, ectx.WithBatch(name, b), b.Files)
			if err != nil {
				return err
			}
			receipts = []plugins.Receipt{rec}
		} else {
			var err error
			receipts, err = actParallel(ctx, ectx.WithBatch(name, b), b.Files, stage.Action.ActSingle)
			if err != nil {
				return err
			}
		}

		var next []*resource.Resource
		for _, rec := range receipts {
			next = append(next, rec.Next...)
			if err := recordTransaction(ctx, ectx, stage.Action.Name(), rec); err != nil {
				return err
			}
		}

		if len(next) == 0 {
			delete(stream.Batches, name)
			continue
		}
		b.Files = next
		stream.Batches[name] = b
	}
	return nil
}

func actParallel(ctx context.Context, ectx execctx.ExecutionContext, files []*resource.Resource, act func(context.Context, execctx.ExecutionContext, *resource.Resource) (plugins.Receipt, error)) ([]plugins.Receipt, error) {
	out := make([]plugins.Receipt, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentIO)

	for i, r := range files {
		i, r := i, r
		g.Go(func() error {
			rec, err := act(gctx, ectx.WithResource(r), r)
			if err != nil {
				return err
			}
			out[i] = rec
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func recordTransaction(ctx context.Context, ectx execctx.ExecutionContext, actionType string, rec plugins.Receipt) error {
	if len(rec.Undo) == 0 || ectx.Services.Journal == nil {
		return nil
	}
	actionBlob, err := json.Marshal(struct {
		Type string `json:"type"`
	}{Type: actionType})
	if err != nil {
		return err
	}
	undoBlob, err := undo.MarshalEntries(rec.Undo)
	if err != nil {
		return err
	}
	receiptBlob, err := json.Marshal(struct {
		Undo json.RawMessage `json:"undo"`
	}{Undo: undoBlob})
	if err != nil {
		return err
	}
	return ectx.Services.Journal.RecordTransaction(ctx, ectx.Scope.RuleName, actionType, actionBlob, receiptBlob, len(rec.Undo))
}

// runPartition implements spec.md §4.1 Partition.
func (p *Pipeline) runPartition(ctx context.Context, ectx execctx.ExecutionContext, stream *Stream, stage Stage, selected []string) error {
	for _, name := range selected {
		b := stream.Batches[name]
		children, err := stage.Partitioner.Partition(ctx, ectx.WithBatch(name, b), b)
		if err != nil {
			return err
		}
		delete(stream.Batches, name)
		for key, child := range children {
			stream.Batches[batch.ChildName(name, key)] = child
		}
	}
	stream.Partitioners = append(stream.Partitioners, stage.Partitioner)
	return stream.resort(ctx, ectx)
}

// runSort implements spec.md §4.1 Sort: with on_batches it's a local
// effect on the selected batches only; without it, it's pushed onto the
// stack and reapplied to every batch.
func (p *Pipeline) runSort(ctx context.Context, ectx execctx.ExecutionContext, stream *Stream, stage Stage, selected []string) error {
	if len(stage.Params.OnBatches) > 0 {
		for _, name := range selected {
			b := stream.Batches[name]
			sorted, err := stage.Sorter.Sort(ctx, ectx.WithBatch(name, b), b.Files)
			if err != nil {
				return err
			}
			b.Files = sorted
			stream.Batches[name] = b
		}
		return nil
	}
	stream.Sorters = append(stream.Sorters, stage.Sorter)
	return stream.resort(ctx, ectx)
}

// runSelect implements spec.md §4.1 Select: empty selections drop the
// batch.
func (p *Pipeline) runSelect(ctx context.Context, ectx execctx.ExecutionContext, stream *Stream, stage Stage, selected []string) error {
	for _, name := range selected {
		b := stream.Batches[name]
		kept, err := stage.Selector.Select(ctx, ectx.WithBatch(name, b), b.Files)
		if err != nil {
			return err
		}
		if len(kept) == 0 {
			delete(stream.Batches, name)
			continue
		}
		b.Files = kept
		stream.Batches[name] = b
	}
	return nil
}
