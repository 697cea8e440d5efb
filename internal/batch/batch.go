// Package batch defines Batch and PipelineStream, the data that flows
// through a rule's stages (spec.md §3 Batch, PipelineStream).
package batch

import (
	"github.com/organize/organize/internal/resource"
)

// RootName is the sentinel batch name used before any partitioner has run.
const RootName = "root"

// Batch is an ordered list of resources plus a context map of partition
// keys. The context map is inherited when a batch is further subdivided;
// parent keys survive (spec.md §3 invariant (iii)).
type Batch struct {
	Files   []*resource.Resource
	Context map[string]string
}

// Initial builds a Batch with no partition context, the state of a
// freshly-discovered or freshly-flattened set of files.
func Initial(files []*resource.Resource) Batch {
	return Batch{Files: files, Context: map[string]string{}}
}

// Clone returns a shallow copy: the file slice and context map are copied,
// the Resource pointers themselves are shared (spec.md §9 "downstream
// stages receive clones of the shared handle").
func (b Batch) Clone() Batch {
	files := make([]*resource.Resource, len(b.Files))
	copy(files, b.Files)
	ctx := make(map[string]string, len(b.Context))
	for k, v := range b.Context {
		ctx[k] = v
	}
	return Batch{Files: files, Context: ctx}
}

// ChildName computes the dotted batch name for a sub-batch produced by
// partitioning parentName by keyPart, per spec.md §4.1 ("parent.key", or
// just "key" when parent was "root").
func ChildName(parentName, keyPart string) string {
	if parentName == RootName {
		return keyPart
	}
	return parentName + "." + keyPart
}

// InheritContext returns a context map containing parentContext's entries
// plus {partitionerName: keyPart}, per spec.md §3 invariant (iii).
func InheritContext(parentContext map[string]string, partitionerName, keyPart string) map[string]string {
	ctx := make(map[string]string, len(parentContext)+1)
	for k, v := range parentContext {
		ctx[k] = v
	}
	ctx[partitionerName] = keyPart
	return ctx
}
