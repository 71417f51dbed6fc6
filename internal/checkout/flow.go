// Package checkout runs the drawer's two-step flow: reviewing the bag, then
// collecting buyer details and submitting the order. The flow owns the step
// transitions, the retained buyer draft, and the single-submission guard.
package checkout

import "strings"

// Step is where the drawer currently sits for one visitor.
type Step string

const (
	StepCart     Step = "cart"
	StepCheckout Step = "checkout"
)

// Draft holds the buyer details typed into the checkout form. It survives
// the Back transition so re-entering checkout resumes with prior input, but
// a drawer close discards it.
type Draft struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

func (d Draft) complete() bool {
	return strings.TrimSpace(d.Name) != "" && strings.TrimSpace(d.Phone) != ""
}

// State is the flow's view for one visitor.
type State struct {
	Step       Step  `json:"step"`
	Draft      Draft `json:"draft"`
	Submitting bool  `json:"submitting"`
}

type flowState struct {
	step       Step
	draft      Draft
	submitting bool
}

func (f *flowState) view() State {
	return State{Step: f.step, Draft: f.draft, Submitting: f.submitting}
}
