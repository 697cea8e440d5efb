package reporter

import "testing"

func TestNonInteractiveConfirmAlwaysYes(t *testing.T) {
	c := NewConsole(false)
	if !c.Confirm("overwrite?") {
		t.Fatalf("expected non-interactive confirm to default to yes")
	}
}

func TestInteractiveConfirmUsesInjectedFunc(t *testing.T) {
	c := NewConsole(true)
	c.confirm = func(prompt string) bool { return prompt == "expected" }
	if !c.Confirm("expected") {
		t.Fatalf("expected confirm true for matching prompt")
	}
	if c.Confirm("other") {
		t.Fatalf("expected confirm false for non-matching prompt")
	}
}

func TestFormatSizeHumanizes(t *testing.T) {
	if got := FormatSize(1024); got == "" {
		t.Fatalf("expected non-empty formatted size")
	}
}
