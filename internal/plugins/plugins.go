// Package plugins defines the Filter/Action/Partitioner/Sorter/Selector
// contracts the pipeline calls (spec.md §2, §4.1) plus a small registry of
// built-in implementations. Individual plugin bodies beyond the
// contracts they must honor are explicitly out of scope (spec.md §1), so
// builtins here are a minimal, genuinely useful set grounded in
// organize-std's shipped plugins rather than an exhaustive port.
package plugins

import (
	"context"
	"encoding/json"

	"github.com/organize/organize/internal/batch"
	"github.com/organize/organize/internal/execctx"
	"github.com/organize/organize/internal/resource"
	"github.com/organize/organize/internal/undo"
)

// ExecutionModel distinguishes a plugin invoked once per resource
// (parallel) from one invoked once per batch (spec.md §4.1).
type ExecutionModel string

const (
	Single ExecutionModel = "single"
	Batch  ExecutionModel = "batch"
)

// InputStatus/OutputStatus tag the entries of a Receipt (spec.md §3
// Receipt).
type InputStatus string
type OutputStatus string

const (
	InputProcessed InputStatus = "processed"
	InputSkipped   InputStatus = "skipped"

	OutputCreated  OutputStatus = "created"
	OutputDeleted  OutputStatus = "deleted"
	OutputModified OutputStatus = "modified"
)

type InputEntry struct {
	Status   InputStatus
	Resource *resource.Resource
}

type OutputEntry struct {
	Status   OutputStatus
	Resource *resource.Resource
}

// Receipt is what every Action invocation returns (spec.md §3).
type Receipt struct {
	Inputs   []InputEntry
	Outputs  []OutputEntry
	Next     []*resource.Resource
	Undo     []undo.Undo
	Metadata map[string]json.RawMessage
}

// Filter keeps or drops resources from a batch.
type Filter interface {
	Name() string
	Model() ExecutionModel
	// CheckSingle is called once per resource when Model() == Single.
	CheckSingle(ctx context.Context, ectx execctx.ExecutionContext, r *resource.Resource) (bool, error)
	// CheckBatch is called once per batch when Model() == Batch,
	// returning the retained subset.
	CheckBatch(ctx context.Context, ectx execctx.ExecutionContext, files []*resource.Resource) ([]*resource.Resource, error)
}

// Action performs a mutation and reports it via a Receipt.
type Action interface {
	Name() string
	Model() ExecutionModel
	ActSingle(ctx context.Context, ectx execctx.ExecutionContext, r *resource.Resource) (Receipt, error)
	ActBatch(ctx context.Context, ectx execctx.ExecutionContext, files []*resource.Resource) (Receipt, error)
}

// Partitioner splits a batch into named sub-batches (spec.md §4.1
// Partition).
type Partitioner interface {
	Name() string
	Partition(ctx context.Context, ectx execctx.ExecutionContext, b batch.Batch) (map[string]batch.Batch, error)
}

// Sorter imposes a total order on a batch's files (spec.md §4.1 Sort).
type Sorter interface {
	Name() string
	Sort(ctx context.Context, ectx execctx.ExecutionContext, files []*resource.Resource) ([]*resource.Resource, error)
}

// Selector subsets a batch (spec.md §4.1 Select).
type Selector interface {
	Name() string
	Select(ctx context.Context, ectx execctx.ExecutionContext, files []*resource.Resource) ([]*resource.Resource, error)
}

// Registry resolves plugin names (as they appear in a compiled Rule) to
// their implementation, the "SchemaRegistry" glue component (spec.md §2).
type Registry struct {
	filters      map[string]Filter
	actions      map[string]Action
	partitioners map[string]Partitioner
	sorters      map[string]Sorter
	selectors    map[string]Selector
}

// NewRegistry returns a Registry preloaded with this package's builtins.
func NewRegistry() *Registry {
	r := &Registry{
		filters:      map[string]Filter{},
		actions:      map[string]Action{},
		partitioners: map[string]Partitioner{},
		sorters:      map[string]Sorter{},
		selectors:    map[string]Selector{},
	}
	for _, f := range []Filter{ExtensionFilter{}, EmptyFilter{}, MimeFilter{}} {
		r.filters[f.Name()] = f
	}
	for _, a := range []Action{MoveAction{}, CopyAction{}, WriteAction{}, ScriptAction{}, EmailAction{}, ExtractAction{}} {
		r.actions[a.Name()] = a
	}
	for _, p := range []Partitioner{ByExtensionPartitioner{}} {
		r.partitioners[p.Name()] = p
	}
	for _, s := range []Sorter{BySizeSorter{}, ByNameSorter{}} {
		r.sorters[s.Name()] = s
	}
	for _, s := range []Selector{FirstNSelector{N: 1}} {
		r.selectors[s.Name()] = s
	}
	return r
}

func (r *Registry) Filter(name string) (Filter, bool) { f, ok := r.filters[name]; return f, ok }
func (r *Registry) Action(name string) (Action, bool) { a, ok := r.actions[name]; return a, ok }
func (r *Registry) Partitioner(name string) (Partitioner, bool) {
	p, ok := r.partitioners[name]
	return p, ok
}
func (r *Registry) Sorter(name string) (Sorter, bool)     { s, ok := r.sorters[name]; return s, ok }
func (r *Registry) Selector(name string) (Selector, bool) { s, ok := r.selectors[name]; return s, ok }

func (r *Registry) RegisterFilter(f Filter)           { r.filters[f.Name()] = f }
func (r *Registry) RegisterAction(a Action)           { r.actions[a.Name()] = a }
func (r *Registry) RegisterPartitioner(p Partitioner) { r.partitioners[p.Name()] = p }
func (r *Registry) RegisterSorter(s Sorter)           { r.sorters[s.Name()] = s }
func (r *Registry) RegisterSelector(s Selector)       { r.selectors[s.Name()] = s }
