package experiment

import (
	"golang.org/x/exp/rand"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"

	env "github.com/samuelfneumann/gonav/environment"
	ts "github.com/samuelfneumann/gonav/timestep"
)

// Policy selects an action given the latest environment timestep
type Policy interface {
	SelectAction(step ts.TimeStep) *mat.VecDense
}

// UniformRandom is a policy selecting actions uniformly at random
// within an environment's action bounds
type UniformRandom struct {
	dims []distuv.Uniform
}

// NewUniformRandom creates a uniform random policy over the action
// specification of e
func NewUniformRandom(e env.Environment, seed uint64) *UniformRandom {
	spec := e.ActionSpec()
	source := rand.NewSource(seed)

	dims := make([]distuv.Uniform, spec.Shape.Len())
	for i := range dims {
		dims[i] = distuv.Uniform{
			Min: spec.LowerBound.AtVec(i),
			Max: spec.UpperBound.AtVec(i),
			Src: source,
		}
	}
	return &UniformRandom{dims: dims}
}

// SelectAction samples an action uniformly at random
func (u *UniformRandom) SelectAction(step ts.TimeStep) *mat.VecDense {
	action := mat.NewVecDense(len(u.dims), nil)
	for i := range u.dims {
		action.SetVec(i, u.dims[i].Rand())
	}
	return action
}
