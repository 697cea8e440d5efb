package template

import (
	"testing"

	"github.com/organize/organize/internal/resource"
)

func TestRenderResolvesResourceFields(t *testing.T) {
	r := resource.New("file", "/inbox/report.PDF", nil)
	tmpl := Parse("/out/{{ext}}/{{name}}")

	got, err := tmpl.Render(Context{Resource: r})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := "/out/PDF/report.PDF"; got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestRenderResolvesVars(t *testing.T) {
	tmpl := Parse("/out/{{by_extension}}/")
	got, err := tmpl.Render(Context{Vars: map[string]string{"by_extension": "pdf"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := "/out/pdf/"; got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestRenderUnknownPlaceholderErrors(t *testing.T) {
	tmpl := Parse("{{nope}}")
	if _, err := tmpl.Render(Context{}); err == nil {
		t.Fatalf("expected an error for an unresolved placeholder")
	}
}

func TestCompilerRejectsUnknownVars(t *testing.T) {
	c := NewCompiler("by_extension")
	if _, err := c.Compile("/out/{{by_extension}}/{{name}}"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := c.Compile("/out/{{bogus}}/"); err == nil {
		t.Fatalf("expected compile error for unknown placeholder")
	}
}
