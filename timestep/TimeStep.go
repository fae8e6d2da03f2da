// Package timestep implements timesteps of the agent-environment
// interaction
package timestep

import (
	"fmt"

	"github.com/samuelfneumann/gonav/observation"
)

// StepType denotes the type of step that a TimeStep can be, either the
// first environmental step, a middle step, or a last step
type StepType int

const (
	First StepType = iota
	Mid
	Last
)

func (s StepType) String() string {
	switch s {
	case First:
		return "First"
	case Last:
		return "Last"
	default:
		return "Mid"
	}
}

// EndType describes the cause of an episode ending. Episodes end
// because the goal was reached, because the agent entered an
// unrecoverable state, or because the step limit was reached.
type EndType int

const (
	// NotEnded denotes a timestep that is not the last in an episode
	NotEnded EndType = iota

	// TerminalStateReached denotes an episode that ended in success
	TerminalStateReached

	// Fatal denotes an episode that ended because the agent entered an
	// unrecoverable state, e.g. it tipped over
	Fatal

	// Timeout denotes an episode that ended at the step limit
	Timeout
)

func (e EndType) String() string {
	switch e {
	case TerminalStateReached:
		return "TerminalStateReached"
	case Fatal:
		return "Fatal"
	case Timeout:
		return "Timeout"
	default:
		return "NotEnded"
	}
}

// Metadata keys recorded in a TimeStep's Info map on episode
// termination
const (
	// InfoSuccess maps to a bool recording whether the episode ended
	// in the goal state
	InfoSuccess = "success"

	// InfoEpisodeLength maps to an int recording the number of steps
	// in the finished episode
	InfoEpisodeLength = "episode_length"

	// InfoLastObservation maps to the terminal *observation.Bundle of
	// an episode. It is present only when an environment automatically
	// resets on termination, in which case the observation held by the
	// TimeStep itself is the first observation of the next episode.
	InfoLastObservation = "last_observation"
)

// TimeStep packages together a single timestep in an environment
type TimeStep struct {
	StepType    StepType
	Reward      float64
	Discount    float64
	Observation *observation.Bundle
	Number      int

	endType EndType

	// Info holds episode metadata. It is nil on non-terminal steps.
	Info map[string]interface{}
}

// New constructs a new TimeStep with no metadata
func New(t StepType, r, d float64, o *observation.Bundle, n int) TimeStep {
	return TimeStep{
		StepType:    t,
		Reward:      r,
		Discount:    d,
		Observation: o,
		Number:      n,
		endType:     NotEnded,
	}
}

// First returns whether a TimeStep is the first in an environment
func (t *TimeStep) First() bool {
	return t.StepType == First
}

// Mid returns whether a TimeStep is a middle step in an environment
func (t *TimeStep) Mid() bool {
	return t.StepType == Mid
}

// Last returns whether a TimeStep is the last step in an environment
func (t *TimeStep) Last() bool {
	return t.StepType == Last
}

// SetEnd sets the cause of episode termination
func (t *TimeStep) SetEnd(e EndType) {
	t.endType = e
}

// End returns the cause of episode termination, or NotEnded if the
// timestep is not terminal
func (t *TimeStep) End() EndType {
	return t.endType
}

// SetInfo records a metadata key on the timestep
func (t *TimeStep) SetInfo(key string, value interface{}) {
	if t.Info == nil {
		t.Info = make(map[string]interface{})
	}
	t.Info[key] = value
}

// Success returns whether the timestep ended an episode in the goal
// state
func (t *TimeStep) Success() bool {
	if t.Info == nil {
		return false
	}
	success, ok := t.Info[InfoSuccess].(bool)
	return ok && success
}

func (t TimeStep) String() string {
	str := "TimeStep | Type: %v  |  End: %v  |  Reward:  %.2f  |  " +
		"Discount: %.2f  |  Step Number:  %v"

	return fmt.Sprintf(str, t.StepType, t.endType, t.Reward, t.Discount,
		t.Number)
}
