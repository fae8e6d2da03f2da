// Package nav implements goal-directed navigation environments for
// embodied agents in a rigid-body simulation. An environment composes
// a task, which defines the goal semantics and reward potential, with
// a physics facade, an episode starter, and observation, reward, and
// termination collaborators. Three task kinds are provided: point-goal
// navigation, end-effector reaching, and interactive door-opening
// navigation.
package nav

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/samuelfneumann/gonav/completion"
	"github.com/samuelfneumann/gonav/environment"
	"github.com/samuelfneumann/gonav/observation"
	"github.com/samuelfneumann/gonav/physics"
	"github.com/samuelfneumann/gonav/render"
	"github.com/samuelfneumann/gonav/timestep"
)

// Env is a goal-directed navigation environment. The agent actuates
// the robot once per control step; each control step advances the
// simulation by a fixed number of physics ticks.
type Env struct {
	config  *Config
	facade  physics.Facade
	robot   physics.Robot
	task    Task
	starter Starter

	tracker   *PotentialTracker
	assembler *Assembler
	composer  *Composer
	evaluator *Evaluator

	ticksPerAction int
	settleTicks    int

	currentStep timestep.TimeStep
}

// New constructs a navigation environment from a validated
// configuration and its collaborators. The renderer and completer may
// be nil when the configuration requests no imagery channels. New
// surfaces configuration faults, including observation dimension
// mismatches, immediately rather than at the first step.
func New(config *Config, facade physics.Facade, robot physics.Robot,
	task Task, starter Starter, renderer render.Renderer,
	completer completion.Completer) (*Env, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("nav: %v", err)
	}

	if config.Task != task.Kind() {
		return nil, fmt.Errorf("nav: configured task %v does not match "+
			"the provided %v task", config.Task, task.Kind())
	}

	ticks := int(math.Round(config.ActionTimestep / facade.Timestep()))
	if ticks < 1 {
		return nil, fmt.Errorf("nav: action timestep %v is shorter than "+
			"one physics tick %v", config.ActionTimestep, facade.Timestep())
	}
	settle := int(math.Round(config.SettleTime / facade.Timestep()))

	tracker := NewPotentialTracker()
	assembler, err := NewAssembler(config, facade, robot, task, renderer,
		completer)
	if err != nil {
		return nil, fmt.Errorf("nav: %v", err)
	}
	if err := assembler.ValidateDims(); err != nil {
		return nil, fmt.Errorf("nav: %v", err)
	}

	return &Env{
		config:         config,
		facade:         facade,
		robot:          robot,
		task:           task,
		starter:        starter,
		tracker:        tracker,
		assembler:      assembler,
		composer:       NewComposer(config, robot, task, tracker),
		evaluator:      NewEvaluator(config, robot, task),
		ticksPerAction: ticks,
		settleTicks:    settle,
	}, nil
}

// Reset begins a new episode: the task's one-shot side effects are
// undone, the robot is re-placed by the starter, the scene is left to
// settle, and the potential baseline is re-established at the new
// start.
func (e *Env) Reset() (timestep.TimeStep, error) {
	if err := e.task.Reset(); err != nil {
		return timestep.TimeStep{}, fmt.Errorf("reset: %v", err)
	}
	if err := e.robot.Reset(); err != nil {
		return timestep.TimeStep{}, fmt.Errorf("reset: %v", err)
	}

	placement, err := e.starter.Place(e.facade, e.robot, e.ticksPerAction)
	if err != nil {
		return timestep.TimeStep{}, fmt.Errorf("reset: %v", err)
	}
	e.task.SetTarget(placement.Target)

	for tick := 0; tick < e.settleTicks; tick++ {
		if err := e.facade.AdvanceOneTick(); err != nil {
			return timestep.TimeStep{}, fmt.Errorf("reset: %v", err)
		}
	}

	potential, err := e.task.Potential()
	if err != nil {
		return timestep.TimeStep{}, fmt.Errorf("reset: %v", err)
	}
	if err := e.tracker.Init(potential); err != nil {
		return timestep.TimeStep{}, fmt.Errorf("reset: %v", err)
	}

	obs, err := e.assembler.Assemble(nil)
	if err != nil {
		return timestep.TimeStep{}, fmt.Errorf("reset: %v", err)
	}

	first := timestep.New(timestep.First, 0, e.config.DiscountFactor,
		obs, 0)
	e.currentStep = first
	return first, nil
}

// Step advances the environment by one control step: the action is
// applied to the robot's actuators, the simulation runs for the
// control step's physics ticks while contacts accumulate, the task's
// stage machine is checked, and the observation, reward, and
// termination decision are computed from the resulting state. When the
// episode ends and automatic reset is configured, Step returns the
// first timestep of the next episode carrying the ended episode's
// final observation and outcome in its info metadata.
func (e *Env) Step(action *mat.VecDense) (timestep.TimeStep, bool, error) {
	if e.currentStep.Last() && !e.config.AutomaticReset {
		return timestep.TimeStep{}, true, fmt.Errorf("step: episode has " +
			"ended; call Reset")
	}

	if err := e.robot.ApplyAction(action); err != nil {
		return timestep.TimeStep{}, false, fmt.Errorf("step: %v", err)
	}

	var contacts []physics.ContactEvent
	for tick := 0; tick < e.ticksPerAction; tick++ {
		if err := e.facade.AdvanceOneTick(); err != nil {
			return timestep.TimeStep{}, false, fmt.Errorf("step: %v", err)
		}

		tickContacts, err := e.facade.ContactPoints(e.robot.Body())
		if err != nil {
			return timestep.TimeStep{}, false, fmt.Errorf("step: %v", err)
		}
		contacts = append(contacts, tickContacts...)
	}

	transitioned, err := e.task.CheckStage()
	if err != nil {
		return timestep.TimeStep{}, false, fmt.Errorf("step: %v", err)
	}

	obs, err := e.assembler.Assemble(contacts)
	if err != nil {
		return timestep.TimeStep{}, false, fmt.Errorf("step: %v", err)
	}

	reward, err := e.composer.Compute(contacts, transitioned)
	if err != nil {
		return timestep.TimeStep{}, false, fmt.Errorf("step: %v", err)
	}

	step := timestep.New(timestep.Mid, reward, e.config.DiscountFactor,
		obs, e.currentStep.Number+1)
	done := e.evaluator.Evaluate(&step)

	if done && e.config.AutomaticReset {
		next, err := e.Reset()
		if err != nil {
			return timestep.TimeStep{}, true, fmt.Errorf("step: %v", err)
		}
		next.Reward = step.Reward
		next.SetInfo(timestep.InfoLastObservation, step.Observation)
		next.SetInfo(timestep.InfoSuccess,
			step.End() == timestep.TerminalStateReached)
		next.SetInfo(timestep.InfoEpisodeLength, step.Number)
		e.currentStep = next
		return next, true, nil
	}

	e.currentStep = step
	return step, done, nil
}

// CurrentTimeStep returns the last timestep of the environment
func (e *Env) CurrentTimeStep() timestep.TimeStep {
	return e.currentStep
}

// Reload replaces the environment's configuration, rebuilding every
// collaborator derived from it. The physics scene, robot, and task
// wiring are kept.
func (e *Env) Reload(config *Config, renderer render.Renderer,
	completer completion.Completer) error {
	fresh, err := New(config, e.facade, e.robot, e.task, e.starter,
		renderer, completer)
	if err != nil {
		return fmt.Errorf("reload: %v", err)
	}
	*e = *fresh
	return nil
}

// vectorObservationLength is the total length of the configured vector
// observation channels
func (e *Env) vectorObservationLength() int {
	length := 0
	for _, ch := range e.assembler.channels {
		switch ch {
		case observation.Sensor:
			length += e.config.AdditionalStatesDim
		case observation.AuxiliarySensor:
			length += e.config.AuxiliarySensorDim
		case observation.PointGoal:
			length += 2
		}
	}
	return length
}

// ObservationSpec returns the environment's observation specification,
// covering the configured vector observation channels
func (e *Env) ObservationSpec() environment.Spec {
	length := e.vectorObservationLength()

	shape := mat.NewVecDense(length, nil)
	low := make([]float64, length)
	high := make([]float64, length)
	for i := range low {
		if e.config.NormalizeObservation {
			low[i], high[i] = -1, 1
		} else {
			low[i] = math.Inf(-1)
			high[i] = math.Inf(1)
		}
	}

	return environment.NewSpec(shape, environment.Observation,
		mat.NewVecDense(length, low), mat.NewVecDense(length, high),
		environment.Continuous)
}

// ActionSpec returns the environment's action specification
func (e *Env) ActionSpec() environment.Spec {
	dims := e.robot.ActionDims()
	low, high := e.robot.ActionBounds()

	return environment.NewSpec(mat.NewVecDense(dims, nil),
		environment.Action, mat.NewVecDense(dims, low),
		mat.NewVecDense(dims, high), environment.Continuous)
}

// RewardSpec returns the environment's reward specification
func (e *Env) RewardSpec() environment.Spec {
	shape := mat.NewVecDense(1, nil)
	low := mat.NewVecDense(1, []float64{math.Inf(-1)})
	high := mat.NewVecDense(1, []float64{math.Inf(1)})

	return environment.NewSpec(shape, environment.Reward, low, high,
		environment.Continuous)
}

// DiscountSpec returns the environment's discount specification
func (e *Env) DiscountSpec() environment.Spec {
	shape := mat.NewVecDense(1, nil)
	bound := mat.NewVecDense(1, []float64{e.config.DiscountFactor})

	return environment.NewSpec(shape, environment.Discount, bound, bound,
		environment.Continuous)
}
