// Package environment outlines the interfaces and structs needed to
// implement concrete environments
package environment

import (
	"gonum.org/v1/gonum/mat"

	"github.com/samuelfneumann/gonav/timestep"
)

// Ender determines whether an episode should end. Enders inspect a
// timestep and, if the episode should end, mark the timestep as the
// last of its episode with the appropriate end type.
type Ender interface {
	End(*timestep.TimeStep) bool
}

// Environment implements a simulated environment. Step advances the
// environment by one agent-visible control step; Reset begins a new
// episode. Both return errors for integration faults rather than
// recovering silently.
type Environment interface {
	Reset() (timestep.TimeStep, error)
	Step(action *mat.VecDense) (timestep.TimeStep, bool, error)
	CurrentTimeStep() timestep.TimeStep

	ObservationSpec() Spec
	ActionSpec() Spec
	RewardSpec() Spec
	DiscountSpec() Spec
}
