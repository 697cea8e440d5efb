// Package errors defines the typed error taxonomy shared by the engine.
//
// Every error surfaced out of a rule run carries an ErrorContext so the
// Reporter can print "rule X, stage Y, batch Z, resource W: ..." without
// every call site having to thread that information through by hand.
package errors

import (
	"fmt"
)

// Kind classifies an error the way the engine's pipeline distinguishes them
// when deciding whether dry-run can paper over it.
type Kind string

const (
	KindIO             Kind = "io"
	KindImpossibleOp   Kind = "impossible_op"
	KindPathResolution Kind = "path_resolution"
	KindTemplate       Kind = "template"
	KindScript         Kind = "script"
	KindUndo           Kind = "undo"
	KindTransport      Kind = "transport"
	KindOther          Kind = "other"
)

// Context identifies where in a rule run an error occurred.
type Context struct {
	Rule     string
	Stage    string
	Batch    string
	Resource string
}

func (c Context) String() string {
	s := ""
	if c.Rule != "" {
		s += "rule=" + c.Rule
	}
	if c.Stage != "" {
		s += " stage=" + c.Stage
	}
	if c.Batch != "" {
		s += " batch=" + c.Batch
	}
	if c.Resource != "" {
		s += " resource=" + c.Resource
	}
	return s
}

// Error is the engine's single error type. Kind lets callers branch (e.g.
// dry-run converts KindIO on a real backend into a simulated success)
// without type-switching over a growing set of concrete types.
type Error struct {
	Kind    Kind
	Context Context
	Source  string // from-path or template text, kind-dependent
	Target  string // to-path, kind-dependent
	Err     error
}

func (e *Error) Error() string {
	ctx := e.Context.String()
	switch {
	case e.Source != "" && e.Target != "":
		return fmt.Sprintf("%s: %s -> %s: %v [%s]", e.Kind, e.Source, e.Target, e.Err, ctx)
	case e.Source != "":
		return fmt.Sprintf("%s: %s: %v [%s]", e.Kind, e.Source, e.Err, ctx)
	default:
		return fmt.Sprintf("%s: %v [%s]", e.Kind, e.Err, ctx)
	}
}

func (e *Error) Unwrap() error { return e.Err }

func IO(ctx Context, source, target string, err error) *Error {
	return &Error{Kind: KindIO, Context: ctx, Source: source, Target: target, Err: err}
}

func ImpossibleOp(ctx Context, msg string) *Error {
	return &Error{Kind: KindImpossibleOp, Context: ctx, Err: fmt.Errorf("%s", msg)}
}

func PathResolution(ctx Context, template string, err error) *Error {
	return &Error{Kind: KindPathResolution, Context: ctx, Source: template, Err: err}
}

func Template(ctx Context, template string, err error) *Error {
	return &Error{Kind: KindTemplate, Context: ctx, Source: template, Err: err}
}

func Script(ctx Context, scriptPath string, err error) *Error {
	return &Error{Kind: KindScript, Context: ctx, Source: scriptPath, Err: err}
}

func Undo(ctx Context, err error) *Error {
	return &Error{Kind: KindUndo, Context: ctx, Err: err}
}

func Transport(ctx Context, err error) *Error {
	return &Error{Kind: KindTransport, Context: ctx, Err: err}
}

func Other(ctx Context, err error) *Error {
	return &Error{Kind: KindOther, Context: ctx, Err: err}
}

// Undo-specific sentinel errors, returned wrapped inside an *Error of
// KindUndo so callers can still errors.Is() against them.
var (
	ErrPathNotFound  = fmt.Errorf("undo: path not found")
	ErrAlreadyExists = fmt.Errorf("undo: already exists")
	ErrBackupMissing = fmt.Errorf("undo: backup missing")
	ErrAbort         = fmt.Errorf("undo: aborted by conflict policy")
)
