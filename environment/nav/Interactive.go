package nav

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/samuelfneumann/gonav/physics"
	"github.com/samuelfneumann/gonav/utils/floatutils"
)

// Interactive task stages, in transition order
const (
	StageGetToDoorHandle Stage = iota
	StageOpenDoor
	StageGetToTargetPos
)

// graspForce is the maximum force of the constraint holding the end
// effector to the door handle
const graspForce = 500.0

// InteractiveScene identifies the interactive door object within the
// physics simulation
type InteractiveScene struct {
	Door           physics.BodyID
	DoorAxisJoint  physics.JointID
	DoorHandleLink physics.LinkID
	DoorPosition   r3.Vec
}

// interactiveTask drives the robot to a door handle, has it pull the
// door open, then navigates it to a target position behind the door.
// Each stage has its own potential function; a point-to-point
// constraint grasps the handle for the duration of the door-opening
// stage.
type interactiveTask struct {
	facade physics.Facade
	robot  physics.Robot
	scene  InteractiveScene
	target r3.Vec

	// openAngle is the (negative) hinge angle past which the door
	// counts as open
	openAngle      float64
	handleDistance float64

	stages *StageMachine

	// cid is the handle-grasp constraint; nil whenever the end
	// effector is not attached to the handle
	cid *physics.ConstraintHandle
}

// NewInteractive returns the interactive door-opening navigation task
func NewInteractive(facade physics.Facade, robot physics.Robot,
	scene InteractiveScene, config *Config) (Task, error) {
	task := &interactiveTask{
		facade:         facade,
		robot:          robot,
		scene:          scene,
		openAngle:      config.DoorAngleRadians(),
		handleDistance: config.HandleDistance,
	}
	task.target = r3.Vec{
		X: config.TargetPos[0],
		Y: config.TargetPos[1],
		Z: config.TargetPos[2],
	}

	stages, err := NewStageMachine(
		[]string{"get_to_door_handle", "open_door", "get_to_target_pos"},
		[]StageTransition{
			{When: task.handleReached, Do: task.graspHandle},
			{When: task.doorOpened, Do: task.releaseHandle},
		},
	)
	if err != nil {
		return nil, fmt.Errorf("newInteractive: %v", err)
	}
	task.stages = stages

	return task, nil
}

func (i *interactiveTask) Kind() Kind {
	return Interactive
}

func (i *interactiveTask) PositionOfInterest() r3.Vec {
	return i.robot.Position()
}

func (i *interactiveTask) Target() r3.Vec {
	return i.target
}

func (i *interactiveTask) SetTarget(target r3.Vec) {
	i.target = target
}

// handlePosition returns the world position of the door handle
func (i *interactiveTask) handlePosition() (r3.Vec, error) {
	pose, err := i.facade.LinkPose(i.scene.Door, i.scene.DoorHandleLink)
	if err != nil {
		return r3.Vec{}, fmt.Errorf("handlePosition: %v", err)
	}
	return pose.Position, nil
}

// doorAngle returns the current hinge angle of the door
func (i *interactiveTask) doorAngle() (float64, error) {
	state, err := i.facade.JointState(i.scene.Door, i.scene.DoorAxisJoint)
	if err != nil {
		return 0, fmt.Errorf("doorAngle: %v", err)
	}
	return state.Position, nil
}

// handleReached is the first stage-transition predicate: the end
// effector is within the grasp threshold of the door handle
func (i *interactiveTask) handleReached() (bool, error) {
	handle, err := i.handlePosition()
	if err != nil {
		return false, err
	}
	dist := physics.Distance(handle, i.robot.EndEffectorPosition())
	return dist < i.handleDistance, nil
}

// graspHandle forms the end-effector-to-handle constraint. The nil
// handle is the idempotency guard: a transition fires exactly once, so
// a non-nil handle here is a state-machine violation.
func (i *interactiveTask) graspHandle() error {
	if i.cid != nil {
		return fmt.Errorf("graspHandle: handle constraint already exists")
	}

	cid, err := i.facade.CreateConstraint(
		i.robot.Body(), i.robot.EndEffectorLink(),
		i.scene.Door, i.scene.DoorHandleLink,
		graspForce,
	)
	if err != nil {
		return fmt.Errorf("graspHandle: %v", err)
	}
	i.cid = cid
	return nil
}

// doorOpened is the second stage-transition predicate: the hinge has
// swung past the configured opening angle
func (i *interactiveTask) doorOpened() (bool, error) {
	angle, err := i.doorAngle()
	if err != nil {
		return false, err
	}
	return angle < i.openAngle, nil
}

// releaseHandle tears down the grasp constraint
func (i *interactiveTask) releaseHandle() error {
	if i.cid == nil {
		return fmt.Errorf("releaseHandle: no handle constraint to remove")
	}
	if err := i.facade.RemoveConstraint(i.cid); err != nil {
		return fmt.Errorf("releaseHandle: %v", err)
	}
	i.cid = nil
	return nil
}

// Potential returns the current stage's progress metric: distance from
// the end effector to the handle, then how far the door is from fully
// open, then distance from the base to the target.
func (i *interactiveTask) Potential() (float64, error) {
	switch i.stages.Current() {
	case StageGetToDoorHandle:
		handle, err := i.handlePosition()
		if err != nil {
			return 0, fmt.Errorf("potential: %v", err)
		}
		return physics.Distance(handle, i.robot.EndEffectorPosition()), nil

	case StageOpenDoor:
		angle, err := i.doorAngle()
		if err != nil {
			return 0, fmt.Errorf("potential: %v", err)
		}
		return math.Abs(angle + math.Pi), nil

	default:
		return physics.Distance(i.target, i.robot.Position()), nil
	}
}

// AdditionalStates returns [x, y, ee_x, ee_y, ee_z, yaw, door_angle]
// with the end-effector position in the body frame and the two angles
// wrapped into [-π, π)
func (i *interactiveTask) AdditionalStates() (*mat.VecDense, error) {
	roll, pitch, yaw := i.robot.RPY()
	pos := i.robot.Position()

	ee := r3.Sub(i.robot.EndEffectorPosition(), pos)
	eeLocal := physics.RotateWorldToBody(ee, roll, pitch, yaw)

	angle, err := i.doorAngle()
	if err != nil {
		return nil, fmt.Errorf("additionalStates: %v", err)
	}

	return mat.NewVecDense(7, []float64{
		pos.X, pos.Y,
		eeLocal.X, eeLocal.Y, eeLocal.Z,
		floatutils.WrapToPi(yaw),
		floatutils.WrapToPi(angle),
	}), nil
}

// AuxiliarySensor builds the 42-dimensional auxiliary state from the
// robot's named-field state: base height and velocities, wheel and arm
// joint triples, angular velocity, heading, the handle-grasped flag,
// and the door and target positions in both frames.
func (i *interactiveTask) AuxiliarySensor() (*mat.VecDense, error) {
	state := i.robot.State()
	roll, pitch, yaw := i.robot.RPY()
	pos := i.robot.Position()

	aux := make([]float64, 0,
		9+3*len(state.WheelJoints)+3*len(state.ArmJoints)+12)
	aux = append(aux, state.Z, state.VX, state.VY, state.VZ, state.Roll,
		state.Pitch)

	for _, wheel := range state.WheelJoints {
		aux = append(aux, wheel.Position, wheel.Velocity, wheel.Torque)
	}
	for _, arm := range state.ArmJoints {
		aux = append(aux, floatutils.WrapToPi(arm.Position), arm.Velocity,
			arm.Torque)
	}
	aux = append(aux, state.VRoll, state.VPitch, state.VYaw)

	hasHandle := -1.0
	if i.stages.Current() == StageOpenDoor {
		hasHandle = 1.0
	}
	aux = append(aux, math.Cos(yaw), math.Sin(yaw), hasHandle)

	doorLocal := physics.RotateWorldToBody(
		r3.Sub(i.scene.DoorPosition, pos), roll, pitch, yaw)
	targetLocal := physics.RotateWorldToBody(
		r3.Sub(i.target, pos), roll, pitch, yaw)

	aux = append(aux, i.target.X, i.target.Y, i.target.Z)
	aux = append(aux, doorLocal.X, doorLocal.Y, doorLocal.Z)
	aux = append(aux, targetLocal.X, targetLocal.Y, targetLocal.Z)

	return mat.NewVecDense(len(aux), aux), nil
}

func (i *interactiveTask) CheckStage() (bool, error) {
	return i.stages.Check()
}

// ContactWhitelisted excludes contacts against the door handle from
// the collision penalty: touching the handle is the point of the task
func (i *interactiveTask) ContactWhitelisted(ev physics.ContactEvent) bool {
	return ev.BodyB == i.scene.Door && ev.LinkB == i.scene.DoorHandleLink
}

func (i *interactiveTask) HasDeathPenalty() bool {
	return true
}

// Stage returns the task's current stage
func (i *interactiveTask) Stage() Stage {
	return i.stages.Current()
}

// Reset releases the handle constraint if it survived the episode,
// closes the door, and returns the stage machine to its start state
func (i *interactiveTask) Reset() error {
	if i.cid != nil {
		if err := i.facade.RemoveConstraint(i.cid); err != nil {
			return fmt.Errorf("reset: %v", err)
		}
		i.cid = nil
	}

	err := i.facade.SetJointState(i.scene.Door, i.scene.DoorAxisJoint, 0, 0)
	if err != nil {
		return fmt.Errorf("reset: could not close door: %v", err)
	}

	i.stages.Reset()
	return nil
}
