// Package progress shows a spinner while a command is in flight.
package progress

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/pterm/pterm"
)

// Progress is the interface for progress indicators.
type Progress interface {
	// Start starts the indicator with a message.
	Start(message string) error
	// Update replaces the message.
	Update(message string) error
	// Success stops the indicator with a success message.
	Success(message string) error
	// Failure stops the indicator with a failure message.
	Failure(message string) error
	// Stop stops the indicator silently.
	Stop() error
	// IsActive returns true while the indicator runs.
	IsActive() bool
}

// Spinner implements Progress with a pterm spinner.
type Spinner struct {
	spinner *pterm.SpinnerPrinter
	writer  io.Writer
	active  bool
	mu      sync.Mutex
}

// NewSpinner creates a spinner drawing on w, or stderr when w is nil.
func NewSpinner(w io.Writer) *Spinner {
	if w == nil {
		w = os.Stderr
	}
	return &Spinner{writer: w}
}

// Start starts the spinner with a message.
func (s *Spinner) Start(message string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.active {
		return fmt.Errorf("spinner already active")
	}

	var err error
	s.spinner, err = pterm.DefaultSpinner.
		WithWriter(s.writer).
		WithRemoveWhenDone(true).
		Start(message)
	if err != nil {
		return fmt.Errorf("failed to start spinner: %w", err)
	}

	s.active = true
	return nil
}

// Update updates the spinner message.
func (s *Spinner) Update(message string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.active || s.spinner == nil {
		return nil
	}
	s.spinner.UpdateText(message)
	return nil
}

// Success marks the spinner as successful.
func (s *Spinner) Success(message string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.active || s.spinner == nil {
		return nil
	}
	s.spinner.Success(message)
	s.active = false
	return nil
}

// Failure marks the spinner as failed.
func (s *Spinner) Failure(message string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.active || s.spinner == nil {
		return nil
	}
	s.spinner.Fail(message)
	s.active = false
	return nil
}

// Stop stops the spinner.
func (s *Spinner) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.active || s.spinner == nil {
		return nil
	}
	if err := s.spinner.Stop(); err != nil {
		return fmt.Errorf("failed to stop spinner: %w", err)
	}
	s.active = false
	return nil
}

// IsActive returns true if the spinner is active.
func (s *Spinner) IsActive() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// Noop is a Progress that shows nothing.
type Noop struct{}

// NewNoop creates a silent progress indicator.
func NewNoop() *Noop {
	return &Noop{}
}

// Start implements Progress.
func (n *Noop) Start(string) error { return nil }

// Update implements Progress.
func (n *Noop) Update(string) error { return nil }

// Success implements Progress.
func (n *Noop) Success(string) error { return nil }

// Failure implements Progress.
func (n *Noop) Failure(string) error { return nil }

// Stop implements Progress.
func (n *Noop) Stop() error { return nil }

// IsActive implements Progress.
func (n *Noop) IsActive() bool { return false }
