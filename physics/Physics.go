// Package physics defines the seam between navigation environments
// and the rigid-body simulation that hosts them. All physics queries
// made by an environment go through the Facade interface, so that
// environments can be driven by a real simulation or by a
// deterministic test double.
package physics

import (
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"
)

// BodyID identifies a rigid body in the simulation
type BodyID int

// NoBody is the BodyID reported for rays that hit nothing
const NoBody BodyID = -1

// LinkID identifies a link (sub-part) of a rigid body
type LinkID int

// BaseLink is the link identifier of a body's root link
const BaseLink LinkID = -1

// JointID identifies a joint of a rigid body
type JointID int

// Pose is a rigid-body pose: a world position and a roll-pitch-yaw
// orientation
type Pose struct {
	Position r3.Vec

	// Orientation holds roll (X), pitch (Y) and yaw (Z) in radians
	Orientation r3.Vec
}

// JointState reports the instantaneous state of a single joint
type JointState struct {
	Position float64
	Velocity float64
	Torque   float64
}

// ContactEvent reports one contact between two body links during a
// single simulation tick
type ContactEvent struct {
	BodyA BodyID
	BodyB BodyID
	LinkA LinkID
	LinkB LinkID
}

// RayHit reports the result of a single raycast. Fraction is the
// fractional distance along the ray at which the hit occurred; rays
// that hit nothing report Body == NoBody and Fraction == 1.
type RayHit struct {
	Body     BodyID
	Fraction float64
}

// ConstraintHandle identifies a constraint created between two bodies.
// A nil *ConstraintHandle denotes the absence of a constraint; the
// handle is the idempotency guard for one-shot constraint side
// effects.
type ConstraintHandle int

// Facade exposes the simulation queries used by navigation
// environments. Query failures for unknown body, link, or joint
// identifiers are integration faults and are surfaced as errors, never
// silently defaulted.
type Facade interface {
	// AdvanceOneTick advances the simulation by one physics tick
	AdvanceOneTick() error

	// Timestep returns the duration of one physics tick in seconds
	Timestep() float64

	// BodyPose returns the pose of a body's root link
	BodyPose(body BodyID) (Pose, error)

	// LinkPose returns the world pose of a single link
	LinkPose(body BodyID, link LinkID) (Pose, error)

	// JointState returns the state of a single joint
	JointState(body BodyID, joint JointID) (JointState, error)

	// SetJointState overwrites the position and velocity of a single
	// joint
	SetJointState(body BodyID, joint JointID, position,
		velocity float64) error

	// ContactPoints returns the contacts involving body during the
	// most recent tick
	ContactPoints(body BodyID) ([]ContactEvent, error)

	// CreateConstraint forms a point-to-point constraint between two
	// body links
	CreateConstraint(bodyA BodyID, linkA LinkID, bodyB BodyID,
		linkB LinkID, maxForce float64) (*ConstraintHandle, error)

	// RemoveConstraint tears down a constraint created by
	// CreateConstraint
	RemoveConstraint(handle *ConstraintHandle) error

	// RaycastBatch casts len(origins) rays and reports the closest hit
	// of each. The slices must have equal length.
	RaycastBatch(origins, ends []r3.Vec) ([]RayHit, error)
}

// Actuator forwards agent actions to a robot's actuators
type Actuator interface {
	// ApplyAction forwards one control-step action to the robot. The
	// action layout is robot specific.
	ApplyAction(action *mat.VecDense) error
}

// Robot exposes the robot-state queries used by navigation
// environments, alongside actuation and episode re-placement.
type Robot interface {
	Actuator

	// Body returns the identifier of the robot's body
	Body() BodyID

	// EndEffectorLink returns the identifier of the robot's
	// end-effector link
	EndEffectorLink() LinkID

	// Position returns the world position of the robot base
	Position() r3.Vec

	// RPY returns the roll, pitch, and yaw of the robot base
	RPY() (roll, pitch, yaw float64)

	// EndEffectorPosition returns the world position of the robot's
	// end effector
	EndEffectorPosition() r3.Vec

	// ScanPose returns the world pose of the robot's range-scan sensor
	ScanPose() Pose

	// ActionDims returns the length of the robot's action vector
	ActionDims() int

	// ActionBounds returns the per-dimension lower and upper action
	// bounds
	ActionBounds() (min, max []float64)

	// State returns the robot's full named-field state
	State() RobotState

	// SetPose re-places the robot at a pose, zeroing its velocities
	SetPose(pose Pose) error

	// Reset returns the robot's actuators and joints to their initial
	// configuration
	Reset() error
}

// RobotState is the robot's full state with named fields. Wheel and
// arm joints are reported as JointState triples rather than positional
// slices of a flat state vector.
type RobotState struct {
	Z      float64
	VX     float64
	VY     float64
	VZ     float64
	Roll   float64
	Pitch  float64
	VRoll  float64
	VPitch float64
	VYaw   float64

	WheelJoints []JointState
	ArmJoints   []JointState
}

// Joints returns all wheel and arm joint states in order
func (r RobotState) Joints() []JointState {
	joints := make([]JointState, 0, len(r.WheelJoints)+len(r.ArmJoints))
	joints = append(joints, r.WheelJoints...)
	joints = append(joints, r.ArmJoints...)
	return joints
}
