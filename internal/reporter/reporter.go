// Package reporter defines the UI abstraction the engine reports progress
// and prompts through (spec.md §1 names the CLI/progress bars out of
// scope; the interface the core calls is in scope, per SPEC_FULL.md). The
// console implementation follows the teacher's log.Printf("[component]
// ...") convention (internal/sync/worker.go) rather than a terminal UI
// library.
package reporter

import (
	"fmt"
	"log"

	"github.com/dustin/go-humanize"
)

// Reporter is what the engine calls to surface progress, prompts, and
// errors without depending on any particular rendering.
type Reporter interface {
	RuleStarted(name string)
	RuleFinished(name string, moved, skipped, failed int, bytesMoved int64)
	StageStarted(rule, stage string)
	BatchProcessed(rule, batch string, files int)
	Error(err error)
	Confirm(prompt string) bool
	DryRunNotice()
}

// Console is the default Reporter: stdlib log output, prefixed per
// component like the teacher's sync worker.
type Console struct {
	Interactive bool
	confirm     func(prompt string) bool
}

// NewConsole returns a Console. When interactive is false, Confirm always
// answers yes without prompting (spec.md's "apply to all" short-circuit).
func NewConsole(interactive bool) *Console {
	return &Console{Interactive: interactive, confirm: defaultConfirm}
}

func (c *Console) RuleStarted(name string) {
	log.Printf("[organize] rule %q: starting", name)
}

func (c *Console) RuleFinished(name string, moved, skipped, failed int, bytesMoved int64) {
	log.Printf("[organize] rule %q: done (moved=%d skipped=%d failed=%d, %s moved)",
		name, moved, skipped, failed, FormatSize(bytesMoved))
}

func (c *Console) StageStarted(rule, stage string) {
	log.Printf("[organize] rule %q: stage %s", rule, stage)
}

func (c *Console) BatchProcessed(rule, batch string, files int) {
	log.Printf("[organize] rule %q: batch %q (%d files)", rule, batch, files)
}

func (c *Console) Error(err error) {
	log.Printf("[organize] error: %v", err)
}

func (c *Console) Confirm(prompt string) bool {
	if !c.Interactive {
		return true
	}
	return c.confirm(prompt)
}

func (c *Console) DryRunNotice() {
	log.Printf("[organize] dry run: no changes will be made to real backends")
}

func defaultConfirm(prompt string) bool {
	fmt.Printf("%s [y/N] ", prompt)
	var answer string
	if _, err := fmt.Scanln(&answer); err != nil {
		return false
	}
	return answer == "y" || answer == "Y"
}

// FormatSize renders a byte count for progress text (spec.md's Reporter
// UI, per SPEC_FULL.md's go-humanize wiring).
func FormatSize(bytes int64) string {
	return humanize.Bytes(uint64(bytes))
}
