// Package execctx defines Services and ExecutionContext/Scope: the
// read-only view passed to every plugin, and the bundle of long-lived
// collaborators (FileSystemManager, Journal, template compiler, reporter)
// the Engine owns and hands to every stage by reference (spec.md §6
// "Global state... live on a single Services bundle owned by the Engine").
package execctx

import (
	"github.com/organize/organize/internal/batch"
	"github.com/organize/organize/internal/fsmanager"
	"github.com/organize/organize/internal/journal"
	"github.com/organize/organize/internal/resource"
	"github.com/organize/organize/internal/template"
	"github.com/organize/organize/internal/undo"
)

// OnConflict is the default non-interactive conflict policy for path
// selection during an Action's locker reservation.
type OnConflict string

const (
	OnConflictSkip      OnConflict = "skip"
	OnConflictOverwrite OnConflict = "overwrite"
	OnConflictRename    OnConflict = "rename"
)

// RunSettings configures a single engine run (spec.md §4.6, §CLI surface).
type RunSettings struct {
	DryRun      bool
	Interactive bool
	OnConflict  OnConflict
	WorkerLimit int // bounds concurrent I/O (spec.md §5, ~100)
}

// Services is the bundle of collaborators every stage/plugin reaches
// through ExecutionContext rather than constructing for itself.
type Services struct {
	FS       *fsmanager.Manager
	Journal  *journal.Journal
	Compiler *template.Compiler
	Undo     undo.Settings
	Settings RunSettings
}

// Scope is the portion of ExecutionContext that changes as the pipeline
// descends into a stage acting on a specific batch/resource.
type Scope struct {
	RuleName   string
	StageName  string
	BatchName  string
	Resource   *resource.Resource
	BatchFiles []*resource.Resource
	Vars       map[string]string
}

// ExecutionContext is the read-only view handed to every plugin
// invocation: who is running (rule/stage/batch/resource), what services
// are available, and the run-wide settings (spec.md §2 ExecutionContext /
// Scope).
type ExecutionContext struct {
	Services Services
	Scope    Scope
}

// WithResource returns a copy of ctx scoped to a specific resource within
// the current batch, the shape handed to a Single-model plugin per item.
func (ctx ExecutionContext) WithResource(r *resource.Resource) ExecutionContext {
	next := ctx
	next.Scope.Resource = r
	return next
}

// WithBatch returns a copy of ctx scoped to batchName/b, the shape handed
// to a Batch-model plugin.
func (ctx ExecutionContext) WithBatch(batchName string, b batch.Batch) ExecutionContext {
	next := ctx
	next.Scope.BatchName = batchName
	next.Scope.BatchFiles = b.Files
	next.Scope.Vars = b.Context
	return next
}

// TemplateContext projects the current scope into a template.Context so
// a plugin can render a destination path or body without reaching back
// into ExecutionContext's internals.
func (ctx ExecutionContext) TemplateContext() template.Context {
	return template.Context{Resource: ctx.Scope.Resource, Vars: ctx.Scope.Vars}
}
