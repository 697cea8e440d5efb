// Package template provides the minimal template-engine glue the core
// needs: Template.Render(ctx) -> string. The expression language inside a
// template is out of scope (spec.md §1): this package only recognizes
// "{{name}}" placeholders and resolves them against a Context's variables,
// the way organize_core's string/placeholder.rs resolves `{name}` tokens
// against the resource in scope before handing off to a richer renderer.
package template

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/organize/organize/internal/resource"
)

var placeholderPattern = regexp.MustCompile(`\{\{\s*([a-zA-Z0-9_.]+)\s*\}\}`)

// Template is a parsed template: the original input text plus the list of
// placeholder names it references, so a Compiler can validate them against
// a schema before a rule ever runs.
type Template struct {
	Input        string
	Placeholders []string
}

// Parse compiles raw template text, extracting its placeholder names.
// Parsing never fails in this minimal engine: an unparseable placeholder
// is simply not recognized and is emitted literally at render time.
func Parse(input string) *Template {
	names := map[string]struct{}{}
	for _, m := range placeholderPattern.FindAllStringSubmatch(input, -1) {
		names[m[1]] = struct{}{}
	}
	placeholders := make([]string, 0, len(names))
	for n := range names {
		placeholders = append(placeholders, n)
	}
	return &Template{Input: input, Placeholders: placeholders}
}

// Context is the render-time scope a Template is evaluated against: the
// resource currently in scope (for "{{path}}", "{{name}}", "{{ext}}") and
// the partition-key variables accumulated by the stream's context map (for
// "{{by_extension}}" and similar).
type Context struct {
	Resource *resource.Resource
	Vars     map[string]string
}

// Render evaluates every placeholder in t against ctx. An unknown
// placeholder renders as an error (spec.md §7 KindTemplate), matching the
// original engine's "render itself failed" case.
func (t *Template) Render(ctx Context) (string, error) {
	var renderErr error
	out := placeholderPattern.ReplaceAllStringFunc(t.Input, func(match string) string {
		name := placeholderPattern.FindStringSubmatch(match)[1]
		val, err := resolve(name, ctx)
		if err != nil {
			renderErr = err
			return match
		}
		return val
	})
	if renderErr != nil {
		return "", renderErr
	}
	return out, nil
}

func resolve(name string, ctx Context) (string, error) {
	switch name {
	case "path":
		if ctx.Resource == nil {
			return "", fmt.Errorf("template: %q requires a resource in scope", name)
		}
		return ctx.Resource.Path, nil
	case "name":
		if ctx.Resource == nil {
			return "", fmt.Errorf("template: %q requires a resource in scope", name)
		}
		return ctx.Resource.Name(), nil
	case "ext":
		if ctx.Resource == nil {
			return "", fmt.Errorf("template: %q requires a resource in scope", name)
		}
		return ctx.Resource.Ext(), nil
	case "stem":
		if ctx.Resource == nil {
			return "", fmt.Errorf("template: %q requires a resource in scope", name)
		}
		n := ctx.Resource.Name()
		if i := strings.LastIndex(n, "."); i > 0 {
			return n[:i], nil
		}
		return n, nil
	default:
		if v, ok := ctx.Vars[name]; ok {
			return v, nil
		}
		return "", fmt.Errorf("template: unresolved placeholder %q", name)
	}
}

// Compiler builds Templates from raw strings, the "Glue" component of
// spec.md's system overview ("Builds Templates and Accessors from raw text
// before run"). Kept as a type (rather than a bare function) so the engine
// can later extend it with a schema registry of known variable names.
type Compiler struct {
	KnownVars map[string]struct{}
}

// NewCompiler creates a Compiler aware of the given variable names (e.g.
// "path", "name", "ext", plus any partitioner names declared by the rule).
func NewCompiler(knownVars ...string) *Compiler {
	c := &Compiler{KnownVars: map[string]struct{}{
		"path": {}, "name": {}, "ext": {}, "stem": {},
	}}
	for _, v := range knownVars {
		c.KnownVars[v] = struct{}{}
	}
	return c
}

// Compile parses input and verifies every placeholder it references is
// known, surfacing unknown ones as a KindTemplate-class error at compile
// time instead of at render time.
func (c *Compiler) Compile(input string) (*Template, error) {
	t := Parse(input)
	for _, p := range t.Placeholders {
		if _, ok := c.KnownVars[p]; !ok {
			return nil, fmt.Errorf("template: unknown placeholder %q in %q", p, input)
		}
	}
	return t, nil
}
