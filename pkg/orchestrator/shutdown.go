// =============================================================================
// pkg/orchestrator/shutdown.go - Interrupt Handling
// =============================================================================
package orchestrator

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"

	"peerflix/pkg/api"
)

// exitingNotice is printed when an interrupt ends the run.
const exitingNotice = "peerflix is exiting..."

// handleInterrupt quits right away, or first removes downloaded data when
// asked to. A second interrupt during removal is ignored.
func (m *Model) handleInterrupt() tea.Cmd {
	if m.removing {
		m.log.Debug().Msg("removal already in progress")
		return nil
	}
	m.exitNotice = exitingNotice

	if !m.opts.Remove {
		return m.quit()
	}

	m.removing = true
	m.phase = ShuttingDown
	m.cancel()
	return remove(m.engine)
}

func remove(engine api.Engine) tea.Cmd {
	return func() tea.Msg {
		done := make(chan error, 1)
		engine.Remove(func(err error) { done <- err })
		return removedMsg{<-done}
	}
}

// forwardSignals delivers SIGINT, SIGTERM and ctx cancellation to the
// program as interrupts until stop is called.
func forwardSignals(ctx context.Context, send func(tea.Msg)) (stop func()) {
	sigs := make(chan os.Signal, 2)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)

	quit := make(chan struct{})
	go func() {
		for {
			select {
			case <-sigs:
				send(interruptMsg{})
			case <-ctx.Done():
				send(interruptMsg{})
				return
			case <-quit:
				return
			}
		}
	}()

	return func() {
		signal.Stop(sigs)
		close(quit)
	}
}
