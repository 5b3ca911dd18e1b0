// =============================================================================
// pkg/subtitle/state.go - Subtitle Search State
// =============================================================================
package subtitle

import (
	"errors"
	"fmt"
)

// State is the web subtitle search status.
type State int

const (
	None State = iota
	Searching
	Found
	NotFound
	Error
)

var stateLabels = map[State]string{
	None:      "NONE",
	Searching: "SEARCHING",
	Found:     "FOUND!",
	NotFound:  "NOT FOUND",
	Error:     "ERROR",
}

func (s State) String() string {
	if label, ok := stateLabels[s]; ok {
		return label
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Resolved reports whether the search has finished, whatever the outcome.
func (s State) Resolved() bool {
	return s.rank() == 2
}

func (s State) rank() int {
	switch s {
	case None:
		return 0
	case Searching:
		return 1
	default:
		return 2
	}
}

// ErrInvalidTransition is returned for a backward or repeated transition.
var ErrInvalidTransition = errors.New("invalid subtitle state transition")

// Tracker holds the current State and only moves it forward:
// NONE -> SEARCHING -> one of FOUND, NOT FOUND or ERROR.
type Tracker struct {
	state   State
	history []State
}

// State returns the current state.
func (t *Tracker) State() State {
	return t.state
}

// Advance moves to next, rejecting anything but the next step.
func (t *Tracker) Advance(next State) error {
	if _, ok := stateLabels[next]; !ok || next.rank() != t.state.rank()+1 {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, t.state, next)
	}
	if len(t.history) == 0 {
		t.history = append(t.history, t.state)
	}
	t.state = next
	t.history = append(t.history, next)
	return nil
}

// History returns every state visited, starting with NONE.
func (t *Tracker) History() []State {
	if len(t.history) == 0 {
		return []State{t.state}
	}
	return append([]State(nil), t.history...)
}
