package commander

import (
	"fmt"

	"github.com/rtai-hli/gtc-hackathon/pkg/errors"
)

// Phase is one state of an investigation.
type Phase string

const (
	PhaseInitial      Phase = "Initial"
	PhaseAssessing    Phase = "Assessing"
	PhaseDelegating   Phase = "Delegating"
	PhaseSynthesizing Phase = "Synthesizing"
	PhaseConcluding   Phase = "Concluding"
	PhaseResolved     Phase = "Resolved"
)

// Phases lists the working phases in execution order.
var Phases = []Phase{PhaseAssessing, PhaseDelegating, PhaseSynthesizing, PhaseConcluding}

var phaseTransitions = map[Phase]map[Phase]bool{
	PhaseInitial:      {PhaseAssessing: true},
	PhaseAssessing:    {PhaseDelegating: true},
	PhaseDelegating:   {PhaseSynthesizing: true},
	PhaseSynthesizing: {PhaseConcluding: true},
	PhaseConcluding:   {PhaseResolved: true},
}

// CanTransition reports whether an investigation may move from one phase to
// the next. Phases are never revisited.
func CanTransition(from, to Phase) bool {
	return phaseTransitions[from][to]
}

func checkTransition(from, to Phase) error {
	if CanTransition(from, to) {
		return nil
	}
	return errors.New(errors.CodeInternal, fmt.Sprintf("invalid phase transition %s -> %s", from, to), nil).
		WithContext("from", string(from)).
		WithContext("to", string(to))
}
