package agent

import "fmt"

// Phase is a stage of one conversational turn.
type Phase string

const (
	PhaseInterpret  Phase = "interpret"
	PhaseRoute      Phase = "route"
	PhaseInquiry    Phase = "inquiry"
	PhaseSpecialist Phase = "specialist"
	PhaseCompliance Phase = "compliance"
	PhaseExecute    Phase = "execute"
	PhaseEnd        Phase = "end"
)

// validTransitions encodes the turn flow. Every turn starts at interpret
// and finishes at end; compliance always gates execute.
var validTransitions = map[Phase][]Phase{
	PhaseInterpret:  {PhaseRoute, PhaseEnd},
	PhaseRoute:      {PhaseInquiry, PhaseSpecialist, PhaseCompliance, PhaseEnd},
	PhaseInquiry:    {PhaseEnd},
	PhaseSpecialist: {PhaseEnd},
	PhaseCompliance: {PhaseExecute, PhaseEnd},
	PhaseExecute:    {PhaseEnd},
	PhaseEnd:        {},
}

// Transition validates a phase change, guarding against flow bugs where a
// handler tries to skip the compliance gate.
func Transition(from, to Phase) (Phase, error) {
	for _, allowed := range validTransitions[from] {
		if allowed == to {
			return to, nil
		}
	}
	return from, fmt.Errorf("transição inválida: %s -> %s", from, to)
}

// IsTerminal reports whether the phase ends the turn.
func IsTerminal(p Phase) bool { return p == PhaseEnd }
