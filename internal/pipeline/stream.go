package pipeline

import (
	"context"
	"sort"

	"github.com/gobwas/glob"

	"github.com/organize/organize/internal/batch"
	"github.com/organize/organize/internal/execctx"
	"github.com/organize/organize/internal/plugins"
	"github.com/organize/organize/internal/resource"
)

// Stream is PipelineStream (spec.md §3): the named batches a rule's
// stages read and write, plus the partitioner/sorter stacks replayed
// whenever Search appends new files with keep_structure.
type Stream struct {
	Batches      map[string]batch.Batch
	Partitioners []plugins.Partitioner
	Sorters      []plugins.Sorter
}

// NewStream returns an empty stream (spec.md §3 invariant (i): "root" is
// present iff no partitioner has run).
func NewStream() *Stream {
	return &Stream{Batches: map[string]batch.Batch{}}
}

// AllFiles returns the union of every batch's files, used by Search's
// Append mode (spec.md §4.1).
func (s *Stream) AllFiles() []*resource.Resource {
	seen := map[string]bool{}
	var out []*resource.Resource
	for _, b := range s.Batches {
		for _, r := range b.Files {
			if !seen[r.Key()] {
				seen[r.Key()] = true
				out = append(out, r)
			}
		}
	}
	return out
}

// selectBatches returns the batch names selected by onBatches (spec.md
// §4.1 "Batch selection"): glob-matched names, or every current batch
// name when onBatches is empty. Patterns matching nothing produce a
// warning string, not an error.
func (s *Stream) selectBatches(onBatches []string) (selected []string, warnings []string) {
	if len(onBatches) == 0 {
		for name := range s.Batches {
			selected = append(selected, name)
		}
		sort.Strings(selected)
		return selected, nil
	}

	seen := map[string]bool{}
	for _, pattern := range onBatches {
		g, err := glob.Compile(pattern, '.')
		if err != nil {
			warnings = append(warnings, "invalid on_batches pattern: "+pattern)
			continue
		}
		matchedAny := false
		for name := range s.Batches {
			if g.Match(name) && !seen[name] {
				selected = append(selected, name)
				seen[name] = true
				matchedAny = true
			}
		}
		if !matchedAny {
			warnings = append(warnings, "on_batches pattern matched no batch: "+pattern)
		}
	}
	sort.Strings(selected)
	return selected, warnings
}

// resort reapplies every sorter in s.Sorters to every batch (spec.md §3:
// the sorter stack is "reapplied after any change").
func (s *Stream) resort(ctx context.Context, ectx execctx.ExecutionContext) error {
	for name, b := range s.Batches {
		files := b.Files
		for _, sorter := range s.Sorters {
			sorted, err := sorter.Sort(ctx, ectx.WithBatch(name, b), files)
			if err != nil {
				return err
			}
			files = sorted
		}
		b.Files = files
		s.Batches[name] = b
	}
	return nil
}

// repartition replays every partitioner in s.Partitioners against files
// and replaces the stream's batches with the result, named by the dotted
// names the partitioner stack produces (spec.md §4.1 Search: "re-partition
// the new files through the current partitioner stack"). Callers that
// keep the existing files pass them in files.
func (s *Stream) repartition(ctx context.Context, ectx execctx.ExecutionContext, files []*resource.Resource) error {
	current := map[string]batch.Batch{batch.RootName: batch.Initial(files)}

	for _, partitioner := range s.Partitioners {
		next := map[string]batch.Batch{}
		for parentName, b := range current {
			children, err := partitioner.Partition(ctx, ectx.WithBatch(parentName, b), b)
			if err != nil {
				return err
			}
			for key, child := range children {
				next[batch.ChildName(parentName, key)] = child
			}
		}
		current = next
	}

	s.Batches = current
	return s.resort(ctx, ectx)
}
