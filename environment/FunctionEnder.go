package environment

import (
	"github.com/samuelfneumann/gonav/timestep"
)

// FunctionEnder ends an episode whenever a function of the current
// timestep returns true. The function usually closes over environment
// state, e.g. the distance between an agent and its goal.
type FunctionEnder struct {
	end     func(*timestep.TimeStep) bool
	endType timestep.EndType
}

// NewFunctionEnder returns a new FunctionEnder which ends episodes
// with end type endType when f returns true
func NewFunctionEnder(f func(*timestep.TimeStep) bool,
	endType timestep.EndType) Ender {
	return &FunctionEnder{f, endType}
}

// End determines whether or not the current episode should be ended,
// returning a boolean to indicate episode termination. If the episode
// should be ended, End() will modify the timestep so that its StepType
// field is timestep.Last and its end type is the appropriate ending
// type.
func (f *FunctionEnder) End(t *timestep.TimeStep) bool {
	if f.end(t) {
		t.StepType = timestep.Last
		t.SetEnd(f.endType)
		return true
	}
	return false
}
