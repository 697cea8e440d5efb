// Package engine implements Engine: the top-level orchestrator that
// builds Services from RunSettings/Connections, runs every Rule's
// Pipeline in turn, and marks the journal session success or failed
// (spec.md §4.6). Grounded on the teacher's internal/sync/worker.go
// run loop (log.Printf progress lines, all rules wrapped in one overall
// session). The first rule that fails ends the run.
package engine

import (
	"context"
	"fmt"
	"log"

	"github.com/organize/organize/internal/execctx"
	"github.com/organize/organize/internal/fsmanager"
	"github.com/organize/organize/internal/journal"
	"github.com/organize/organize/internal/pipeline"
	"github.com/organize/organize/internal/providers"
	"github.com/organize/organize/internal/providers/dryrun"
	"github.com/organize/organize/internal/providers/local"
	"github.com/organize/organize/internal/providers/sftp"
	"github.com/organize/organize/internal/reporter"
	"github.com/organize/organize/internal/template"
	"github.com/organize/organize/internal/undo"
)

// Connection names a remote backend declared in a rule file's
// connections table (spec.md §4.3): "name" is the URI host the rule's
// paths address it by.
type Connection struct {
	Name string
	SFTP *sftp.Config
}

// Options configures a single Engine run (spec.md §4.6, §6 CLI surface).
type Options struct {
	DatabaseURL string
	DryRun      bool
	Interactive bool
	OnConflict  execctx.OnConflict
	WorkerLimit int
	Connections []Connection
	Resolve     undo.Resolver

	// UndoConflict overrides the policy undo replay uses when the
	// original path has been reclaimed (spec.md §4.5 UndoConflict). When
	// empty, it is derived from OnConflict via mapConflict.
	UndoConflict undo.ConflictPolicy
}

// Engine owns the collaborators every rule's Pipeline runs against:
// FileSystemManager, Journal, template Compiler, and the Reporter UI.
type Engine struct {
	services execctx.Services
	journal  *journal.Journal
	reporter reporter.Reporter
}

// New builds an Engine from opts, wiring local + declared remote
// connections into a FileSystemManager (wrapped in the dry-run VFS
// overlay when opts.DryRun), opening the journal at opts.DatabaseURL (or
// an in-memory journal when opts.DryRun), and defaulting the Reporter to
// a Console.
func New(ctx context.Context, opts Options, rep reporter.Reporter) (*Engine, error) {
	if rep == nil {
		rep = reporter.NewConsole(opts.Interactive)
	}

	var localProvider providers.StorageProvider = local.New()
	remote := map[string]providers.StorageProvider{}
	for _, conn := range opts.Connections {
		var prov providers.StorageProvider
		switch {
		case conn.SFTP != nil:
			prov = sftp.New(*conn.SFTP)
		default:
			return nil, fmt.Errorf("engine: connection %q declares no backend", conn.Name)
		}
		remote[conn.Name] = prov
	}

	if opts.DryRun {
		localProvider = dryrun.New("file", localProvider)
		for name, prov := range remote {
			remote[name] = dryrun.New(name, prov)
		}
		rep.DryRunNotice()
	}

	fs := fsmanager.New(localProvider, remote)

	dbURL := opts.DatabaseURL
	if opts.DryRun {
		dbURL = ":memory:"
	}
	j, err := journal.Open(dbURL)
	if err != nil {
		return nil, fmt.Errorf("engine: open journal: %w", err)
	}

	onConflict := opts.OnConflict
	if onConflict == "" {
		onConflict = execctx.OnConflictRename
	}
	undoConflict := opts.UndoConflict
	if undoConflict == "" {
		undoConflict = mapConflict(onConflict)
	}

	services := execctx.Services{
		FS:       fs,
		Journal:  j,
		Compiler: template.NewCompiler("path", "name", "ext", "stem"),
		Undo: undo.Settings{
			OnConflict:  undoConflict,
			Interactive: opts.Interactive,
			Resolve:     opts.Resolve,
		},
		Settings: execctx.RunSettings{
			DryRun:      opts.DryRun,
			Interactive: opts.Interactive,
			OnConflict:  onConflict,
			WorkerLimit: opts.WorkerLimit,
		},
	}

	return &Engine{services: services, journal: j, reporter: rep}, nil
}

func mapConflict(c execctx.OnConflict) undo.ConflictPolicy {
	switch c {
	case execctx.OnConflictSkip:
		return undo.ConflictSkip
	case execctx.OnConflictOverwrite:
		return undo.ConflictOverwrite
	default:
		return undo.ConflictAutoRename
	}
}

// Close releases the Engine's journal handle.
func (e *Engine) Close() error { return e.journal.Close() }

// Run executes every rule's Pipeline in order, within one journal
// session, and marks that session success or failed (spec.md §4.6:
// "on success mark the session success, else failed").
func (e *Engine) Run(ctx context.Context, rules []pipeline.Rule) error {
	sessionID, err := e.journal.StartSession(ctx)
	if err != nil {
		return fmt.Errorf("engine: start session: %w", err)
	}
	log.Printf("[engine] session %d started", sessionID)

	var runErr error
	for _, rule := range rules {
		e.reporter.RuleStarted(rule.Name)
		ectx := execctx.ExecutionContext{Services: e.services}
		stream, err := pipeline.New(rule).Run(ctx, ectx)
		moved, skipped, failed, bytesMoved := summarize(ctx, stream, err)
		e.reporter.RuleFinished(rule.Name, moved, skipped, failed, bytesMoved)
		if err != nil {
			e.reporter.Error(err)
			runErr = err
			break
		}
	}

	status := journal.StatusSuccess
	if runErr != nil {
		status = journal.StatusFailed
	}
	if err := e.journal.EndSession(ctx, sessionID, status); err != nil {
		log.Printf("[engine] failed to close session %d: %v", sessionID, err)
	}
	return runErr
}

// summarize derives rough per-rule counters for the Reporter from the
// final stream's batch sizes, plus the total bytes those files report
// via Metadata (spec.md's Reporter UI wants a moved-bytes figure, not
// just a file count). A nil stream (the rule failed before any stage
// ran) reports everything as failed.
func summarize(ctx context.Context, stream *pipeline.Stream, err error) (moved, skipped, failed int, bytesMoved int64) {
	if stream == nil {
		if err != nil {
			failed = 1
		}
		return
	}
	for _, b := range stream.Batches {
		moved += len(b.Files)
		for _, r := range b.Files {
			if meta, metaErr := r.Meta(ctx); metaErr == nil {
				bytesMoved += meta.Size
			}
		}
	}
	if err != nil {
		failed++
	}
	return
}
