// Package ui holds small interactive terminal helpers for long-running
// lifecycle commands.
package ui

import (
	"fmt"
	"os"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
)

// Spinner renders a one-line progress indicator on stderr while a lifecycle
// command runs. All methods are safe to call on a nil Spinner, so commands
// can run without any terminal feedback.
type Spinner struct {
	inner *spinner.Spinner
}

func NewSpinner(msg string) *Spinner {
	s := spinner.New(
		spinner.CharSets[14],
		200*time.Millisecond,
		spinner.WithHiddenCursor(true),
		spinner.WithWriter(os.Stderr),
		spinner.WithSuffix(" "+msg),
	)
	s.Start()
	return &Spinner{inner: s}
}

// UpdateMessage replaces the text shown next to the spinner. Orchestrator
// progress notifications are wired here.
func (s *Spinner) UpdateMessage(msg string) {
	if s == nil {
		return
	}
	s.inner.Suffix = " " + msg
}

// Success stops the spinner, leaving a green check and msg behind.
func (s *Spinner) Success(msg string) {
	s.stop(color.HiGreenString("✓"), msg)
}

// Fail stops the spinner, leaving a red cross and msg behind.
func (s *Spinner) Fail(msg string) {
	s.stop(color.HiRedString("✗"), msg)
}

func (s *Spinner) stop(mark, msg string) {
	if s == nil {
		return
	}
	s.inner.FinalMSG = fmt.Sprintf("%s %s\n", mark, msg)
	s.inner.Stop()
}
