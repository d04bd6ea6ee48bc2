package session

// Step is a position in the wizard, numbered from 1.
type Step int

const (
	StepManuscript Step = iota + 1
	StepVoice
	StepMusic
	StepSettings
	StepProgress
	StepComplete
)

const (
	FirstStep = StepManuscript
	LastStep  = StepComplete
)

var stepNames = map[Step]string{
	StepManuscript: "Manuscript",
	StepVoice:      "Voice",
	StepMusic:      "Music",
	StepSettings:   "Settings",
	StepProgress:   "Progress",
	StepComplete:   "Complete",
}

// String returns the step's display name.
func (s Step) String() string {
	if name, ok := stepNames[s]; ok {
		return name
	}
	return "Unknown"
}

// Steps returns every step in order.
func Steps() []Step {
	return []Step{StepManuscript, StepVoice, StepMusic, StepSettings, StepProgress, StepComplete}
}

// Navigator is a linear cursor over the wizard steps. The zero value is not
// usable; call NewNavigator.
type Navigator struct {
	current Step
}

// NewNavigator returns a navigator positioned on the first step.
func NewNavigator() Navigator {
	return Navigator{current: FirstStep}
}

// Current returns the active step.
func (n Navigator) Current() Step {
	return n.current
}

// Terminal reports whether the wizard has reached the completion step.
func (n Navigator) Terminal() bool {
	return n.current == LastStep
}

// Advance moves forward one step, stopping at the last step.
func (n *Navigator) Advance() Step {
	if n.current < LastStep {
		n.current++
	}
	return n.current
}

// Retreat moves back one step, stopping at the first step. The completion
// step is final: only Reset leaves it.
func (n *Navigator) Retreat() Step {
	if n.current > FirstStep && n.current != LastStep {
		n.current--
	}
	return n.current
}

// Reset returns to the first step.
func (n *Navigator) Reset() {
	n.current = FirstStep
}
