package orchestrator

import (
	"fmt"

	"github.com/sweetpotato0/convoroute/errors"
)

// Phase identifies a step of the turn-processing state machine
type Phase string

const (
	PhaseIngest      Phase = "ingest"
	PhaseSelectTool  Phase = "select_tool"
	PhaseExecuteTool Phase = "execute_tool"
	PhaseSynthesize  Phase = "synthesize"
	PhaseDone        Phase = "done"
)

// Signal is an event emitted by a phase to drive the next transition
type Signal string

const (
	// SignalAdvance moves to the sole successor of the current phase
	SignalAdvance Signal = "advance"
	// SignalToolResolved is emitted by tool selection when a tool was found
	SignalToolResolved Signal = "tool_resolved"
	// SignalNoTool is emitted by tool selection when no tool applies
	SignalNoTool Signal = "no_tool"
)

// transitions is the full legal state machine for one turn
var transitions = map[Phase]map[Signal]Phase{
	PhaseIngest: {
		SignalAdvance: PhaseSelectTool,
	},
	PhaseSelectTool: {
		SignalToolResolved: PhaseExecuteTool,
		SignalNoTool:       PhaseSynthesize,
	},
	PhaseExecuteTool: {
		SignalAdvance: PhaseSynthesize,
	},
	PhaseSynthesize: {
		SignalAdvance: PhaseDone,
	},
}

// Transition returns the phase that follows phase on the given signal. An
// undefined pair is an error: every legal move is listed in the table.
func Transition(phase Phase, signal Signal) (Phase, error) {
	next, ok := transitions[phase][signal]
	if !ok {
		return "", fmt.Errorf("no transition from %s on %s: %w", phase, signal, errors.ErrInvalidInput)
	}
	return next, nil
}
