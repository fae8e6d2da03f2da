package nav

import (
	"github.com/samuelfneumann/gonav/environment"
	"github.com/samuelfneumann/gonav/physics"
	"github.com/samuelfneumann/gonav/timestep"
)

// Evaluator decides whether an episode ends, checking its enders in
// priority order: success first, then fatal robot states, then the
// step limit. The first ender to fire decides the episode's end type.
type Evaluator struct {
	enders []environment.Ender
}

// NewEvaluator constructs the episode termination evaluator for a
// robot and task
func NewEvaluator(config *Config, robot physics.Robot,
	task Task) *Evaluator {
	distTol := config.DistTol
	zBound := config.DeathZThreshold

	success := environment.NewFunctionEnder(
		func(*timestep.TimeStep) bool {
			return physics.Distance(task.Target(),
				task.PositionOfInterest()) < distTol
		}, timestep.TerminalStateReached)

	fatal := environment.NewFunctionEnder(
		func(*timestep.TimeStep) bool {
			return robot.State().Z > zBound
		}, timestep.Fatal)

	return &Evaluator{
		enders: []environment.Ender{
			success,
			fatal,
			environment.NewStepLimit(config.MaxStep),
		},
	}
}

// Evaluate checks the enders in order against step and returns whether
// the episode ended. When the episode ends, the step's info metadata
// is annotated with the success flag and the episode length.
func (e *Evaluator) Evaluate(step *timestep.TimeStep) bool {
	for _, ender := range e.enders {
		if ender.End(step) {
			step.SetInfo(timestep.InfoSuccess,
				step.End() == timestep.TerminalStateReached)
			step.SetInfo(timestep.InfoEpisodeLength, step.Number)
			return true
		}
	}
	return false
}
