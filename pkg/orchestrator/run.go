// =============================================================================
// pkg/orchestrator/run.go - Orchestrator Lifecycle
// =============================================================================
package orchestrator

import (
	"context"
	"fmt"
	"io"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/term"
)

// Orchestrator owns the event loop around a Model.
type Orchestrator struct {
	model   *Model
	program *tea.Program
}

// New prepares an orchestrator writing frames and status lines to out
func New(model *Model, out io.Writer) *Orchestrator {
	opts := []tea.ProgramOption{
		tea.WithInput(nil),
		tea.WithOutput(out),
		tea.WithoutSignalHandler(),
	}
	if model.opts.Quiet || model.opts.List {
		opts = append(opts, tea.WithoutRenderer())
	} else {
		opts = append(opts, tea.WithAltScreen())
		if f, ok := out.(*os.File); ok {
			if _, h, err := term.GetSize(int(f.Fd())); err == nil && h > 0 {
				model.height = h
			}
		}
	}
	return &Orchestrator{model: model, program: tea.NewProgram(model, opts...)}
}

// Run blocks until the run ends. Interrupts and ctx cancellation shut it
// down; the returned error is the fatal one that ended the run, if any.
func (o *Orchestrator) Run(ctx context.Context) error {
	stop := forwardSignals(ctx, o.program.Send)
	defer stop()

	if _, err := o.program.Run(); err != nil {
		return fmt.Errorf("event loop: %w", err)
	}
	if o.model.events != nil {
		o.model.events.Close()
	}
	return o.model.Err()
}

// Stop ends the run without removing data.
func (o *Orchestrator) Stop() {
	o.model.cancel()
	o.program.Quit()
}

// Model returns the orchestrated model.
func (o *Orchestrator) Model() *Model {
	return o.model
}
