package nav

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/samuelfneumann/gonav/physics"
)

// Kind selects a navigation task variant
type Kind string

const (
	// PointGoal drives the robot base to a target position
	PointGoal Kind = "pointgoal"

	// Reaching drives the robot's end effector to a target position
	Reaching Kind = "reaching"

	// Interactive drives the robot through a door it must first open
	// with its end effector, then to a target position
	Interactive Kind = "interactive"
)

// Task is the variant-specific strategy set of a navigation
// environment: it defines the position of interest, the progress
// metric, the task state vectors, and the multi-stage behaviour, while
// a single Env composes them into the step/reset protocol.
type Task interface {
	Kind() Kind

	// PositionOfInterest returns the position whose distance to the
	// target defines success
	PositionOfInterest() r3.Vec

	// Target returns the current goal position
	Target() r3.Vec

	// SetTarget re-places the goal for a new episode
	SetTarget(target r3.Vec)

	// Potential returns the current stage's progress metric
	Potential() (float64, error)

	// AdditionalStates builds the task-specific sensor vector
	AdditionalStates() (*mat.VecDense, error)

	// AuxiliarySensor builds the task-specific auxiliary state vector.
	// Tasks without an auxiliary sensor return an error.
	AuxiliarySensor() (*mat.VecDense, error)

	// CheckStage evaluates stage transitions, returning whether a
	// transition fired this step. Single-stage tasks always return
	// false.
	CheckStage() (bool, error)

	// ContactWhitelisted excludes a contact from the collision
	// penalty, e.g. the end effector touching a handle it must grasp
	ContactWhitelisted(event physics.ContactEvent) bool

	// HasDeathPenalty returns whether the task subtracts the success
	// bonus when the agent reaches the fatal tip-over state
	HasDeathPenalty() bool

	// Reset clears per-episode task state, including any one-shot
	// physical side effects of stage transitions
	Reset() error
}

// pointGoalTask navigates the robot base to a target position
type pointGoalTask struct {
	robot  physics.Robot
	target r3.Vec
}

// NewPointGoal returns the point-goal navigation task
func NewPointGoal(robot physics.Robot, target r3.Vec) Task {
	return &pointGoalTask{robot: robot, target: target}
}

func (p *pointGoalTask) Kind() Kind {
	return PointGoal
}

func (p *pointGoalTask) PositionOfInterest() r3.Vec {
	return p.robot.Position()
}

func (p *pointGoalTask) Target() r3.Vec {
	return p.target
}

func (p *pointGoalTask) SetTarget(target r3.Vec) {
	p.target = target
}

func (p *pointGoalTask) Potential() (float64, error) {
	return physics.Distance(p.target, p.PositionOfInterest()), nil
}

// AdditionalStates returns the target position relative to the robot,
// rotated into the robot's body frame
func (p *pointGoalTask) AdditionalStates() (*mat.VecDense, error) {
	roll, pitch, yaw := p.robot.RPY()
	relative := r3.Sub(p.target, p.robot.Position())
	local := physics.RotateWorldToBody(relative, roll, pitch, yaw)

	return mat.NewVecDense(3, []float64{local.X, local.Y, local.Z}), nil
}

func (p *pointGoalTask) AuxiliarySensor() (*mat.VecDense, error) {
	return nil, fmt.Errorf("auxiliarySensor: task %v provides no "+
		"auxiliary sensor", p.Kind())
}

func (p *pointGoalTask) CheckStage() (bool, error) {
	return false, nil
}

func (p *pointGoalTask) ContactWhitelisted(physics.ContactEvent) bool {
	return false
}

func (p *pointGoalTask) HasDeathPenalty() bool {
	return false
}

func (p *pointGoalTask) Reset() error {
	return nil
}

// reachingTask drives the robot's end effector to a target position
type reachingTask struct {
	robot  physics.Robot
	target r3.Vec
}

// NewReaching returns the end-effector reaching task
func NewReaching(robot physics.Robot, target r3.Vec) Task {
	return &reachingTask{robot: robot, target: target}
}

func (r *reachingTask) Kind() Kind {
	return Reaching
}

func (r *reachingTask) PositionOfInterest() r3.Vec {
	return r.robot.EndEffectorPosition()
}

func (r *reachingTask) Target() r3.Vec {
	return r.target
}

func (r *reachingTask) SetTarget(target r3.Vec) {
	r.target = target
}

func (r *reachingTask) Potential() (float64, error) {
	return physics.Distance(r.target, r.PositionOfInterest()), nil
}

// AdditionalStates returns the body-frame target-relative vector
// concatenated with the body-frame end-effector position
func (r *reachingTask) AdditionalStates() (*mat.VecDense, error) {
	roll, pitch, yaw := r.robot.RPY()

	relative := r3.Sub(r.target, r.robot.Position())
	local := physics.RotateWorldToBody(relative, roll, pitch, yaw)

	ee := r3.Sub(r.robot.EndEffectorPosition(), r.robot.Position())
	eeLocal := physics.RotateWorldToBody(ee, roll, pitch, yaw)

	return mat.NewVecDense(6, []float64{
		local.X, local.Y, local.Z,
		eeLocal.X, eeLocal.Y, eeLocal.Z,
	}), nil
}

func (r *reachingTask) AuxiliarySensor() (*mat.VecDense, error) {
	return nil, fmt.Errorf("auxiliarySensor: task %v provides no "+
		"auxiliary sensor", r.Kind())
}

func (r *reachingTask) CheckStage() (bool, error) {
	return false, nil
}

func (r *reachingTask) ContactWhitelisted(physics.ContactEvent) bool {
	return false
}

func (r *reachingTask) HasDeathPenalty() bool {
	return false
}

func (r *reachingTask) Reset() error {
	return nil
}
