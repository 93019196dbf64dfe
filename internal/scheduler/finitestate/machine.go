// Execution state machine for one script instance.
// Tracks whether the instance is idle, precomputing, or rendering.
package finitestate

import (
	"context"
	"log/slog"

	"github.com/robbyt/go-fsm"
)

// Execution state constants
const (
	StatusIdle         = "idle"
	StatusPrecomputing = "precomputing"
	StatusRendering    = "rendering"
)

// ExecutionTransitions defines the valid state transitions for script
// execution. Self transitions let the scheduler roll straight from one
// queued request into the next without an observable idle gap, which is
// what keeps queued animation frames from being dropped.
var ExecutionTransitions = map[string][]string{
	StatusIdle:         {StatusPrecomputing, StatusRendering},
	StatusPrecomputing: {StatusPrecomputing, StatusRendering, StatusIdle},
	StatusRendering:    {StatusRendering, StatusPrecomputing, StatusIdle},
}

// Machine defines the interface for the finite state machine that tracks
// a script instance's execution state. This abstraction allows for
// different FSM implementations and simplifies testing.
type Machine interface {
	// Transition attempts to transition the state machine to the specified state.
	Transition(state string) error

	// TransitionBool attempts to transition the state machine to the specified state.
	TransitionBool(state string) bool

	// TransitionIfCurrentState attempts to transition the state machine to the specified state
	TransitionIfCurrentState(currentState, newState string) error

	// GetState returns the current state of the state machine.
	GetState() string

	// GetStateChan returns a channel that emits the state machine's state whenever it changes.
	// The channel is closed when the provided context is canceled.
	GetStateChan(ctx context.Context) <-chan string
}

// ExecutionFSM embeds fsm.Machine for the execution states above.
type ExecutionFSM struct {
	*fsm.Machine
}

// New creates a new finite state machine starting at idle.
func New(handler slog.Handler) (Machine, error) {
	machine, err := fsm.New(handler, StatusIdle, ExecutionTransitions)
	if err != nil {
		return nil, err
	}
	return &ExecutionFSM{Machine: machine}, nil
}
