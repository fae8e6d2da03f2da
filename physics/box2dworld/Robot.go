package box2dworld

import (
	"fmt"
	"math"

	"github.com/ByteArena/box2d"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/samuelfneumann/gonav/physics"
	"github.com/samuelfneumann/gonav/utils/floatutils"
)

// EndEffectorLink is the link identifier of the robot's arm tip
const EndEffectorLink physics.LinkID = 1

// Robot geometry and actuation limits
const (
	baseRadius       float64 = 0.3
	baseDensity      float64 = 5.0
	armSegments      int     = 5
	armSegmentLength float64 = 0.15
	armSegmentWidth  float64 = 0.03
	armDensity       float64 = 0.2
	armMotorTorque   float64 = 20.0
	armHeight        float64 = 1.0
	scanHeight       float64 = 0.5
	wheelRadius      float64 = 0.05
	axleLength       float64 = 0.35

	maxLinearVelocity  float64 = 1.0
	maxAngularVelocity float64 = math.Pi / 2
	maxArmJointSpeed   float64 = 1.0

	// wheelTorqueGain converts a change in commanded wheel speed into
	// the reported wheel drive torque
	wheelTorqueGain float64 = 0.1
)

// Robot is a differential-drive base with a motorized planar arm,
// simulated in a Box2D world
type Robot struct {
	world *World
	id    physics.BodyID

	base      *box2d.B2Body
	segments  []*box2d.B2Body
	armJoints []*box2d.B2RevoluteJoint

	initialPose physics.Pose
	wheels      [2]physics.JointState
}

// NewRobot creates a robot at (x, y) facing along the positive x axis.
// The arm extends from the front of the base as a chain of motorized
// revolute joints; the end effector is the tip of the last segment.
func NewRobot(w *World, x, y float64) (*Robot, error) {
	baseDef := box2d.NewB2BodyDef()
	baseDef.Type = box2d.B2BodyType.B2_dynamicBody
	baseDef.Position = box2d.MakeB2Vec2(x, y)
	base := w.world.CreateBody(baseDef)
	id := w.registerBody(base)

	circle := box2d.NewB2CircleShape()
	circle.M_radius = baseRadius

	baseFixture := box2d.MakeB2FixtureDef()
	baseFixture.Shape = circle
	baseFixture.Density = baseDensity
	baseFixture.Friction = 0.3
	baseFixture.UserData = fixtureTag{body: id, link: physics.BaseLink}

	// The arm must not collide with the robot's own body
	filter := box2d.MakeB2Filter()
	filter.GroupIndex = -1
	baseFixture.Filter = filter
	base.CreateFixtureFromDef(&baseFixture)

	r := &Robot{
		world: w,
		id:    id,
		base:  base,
		initialPose: physics.Pose{
			Position: r3.Vec{X: x, Y: y},
		},
	}

	previous := base
	anchor := box2d.MakeB2Vec2(baseRadius, 0)
	for i := 0; i < armSegments; i++ {
		segmentDef := box2d.NewB2BodyDef()
		segmentDef.Type = box2d.B2BodyType.B2_dynamicBody
		segmentDef.Position = box2d.MakeB2Vec2(
			x+baseRadius+(float64(i)+0.5)*armSegmentLength, y)
		segment := w.world.CreateBody(segmentDef)

		shape := box2d.NewB2PolygonShape()
		shape.SetAsBox(armSegmentLength/2, armSegmentWidth/2)

		segmentFixture := box2d.MakeB2FixtureDef()
		segmentFixture.Shape = shape
		segmentFixture.Density = armDensity
		segmentFixture.UserData = fixtureTag{body: id, link: EndEffectorLink}
		segmentFixture.Filter = filter
		segment.CreateFixtureFromDef(&segmentFixture)

		joint := box2d.MakeB2RevoluteJointDef()
		joint.BodyA = previous
		joint.BodyB = segment
		joint.LocalAnchorA = anchor
		joint.LocalAnchorB = box2d.MakeB2Vec2(-armSegmentLength/2, 0)
		joint.EnableMotor = true
		joint.MaxMotorTorque = armMotorTorque

		revolute := w.world.CreateJoint(&joint).(*box2d.B2RevoluteJoint)
		w.registerJoint(id, physics.JointID(i), revolute)

		r.segments = append(r.segments, segment)
		r.armJoints = append(r.armJoints, revolute)

		previous = segment
		anchor = box2d.MakeB2Vec2(armSegmentLength/2, 0)
	}

	// End effector at the tip of the last segment, mounted at the same
	// height as a door handle so it can grasp one
	w.links[linkKey{id, EndEffectorLink}] = linkRef{
		body:   previous,
		anchor: box2d.MakeB2Vec2(armSegmentLength/2, 0),
		height: handleHeight,
	}
	return r, nil
}

// ApplyAction forwards one control-step action to the robot. The
// action holds the commanded base linear and angular velocities
// followed by one commanded speed per arm joint.
func (r *Robot) ApplyAction(action *mat.VecDense) error {
	if action.Len() != r.ActionDims() {
		return fmt.Errorf("applyAction: expected %v action dimensions, "+
			"got %v", r.ActionDims(), action.Len())
	}

	linear := floatutils.Clip(action.AtVec(0), -maxLinearVelocity,
		maxLinearVelocity)
	angular := floatutils.Clip(action.AtVec(1), -maxAngularVelocity,
		maxAngularVelocity)

	heading := r.base.GetAngle()
	r.base.SetLinearVelocity(box2d.MakeB2Vec2(
		linear*math.Cos(heading), linear*math.Sin(heading)))
	r.base.SetAngularVelocity(angular)

	for i, joint := range r.armJoints {
		speed := floatutils.Clip(action.AtVec(2+i), -maxArmJointSpeed,
			maxArmJointSpeed)
		joint.SetMotorSpeed(speed)
	}

	r.updateWheels(linear, angular)
	return nil
}

// updateWheels derives the virtual differential-drive wheel states
// from the commanded base velocities
func (r *Robot) updateWheels(linear, angular float64) {
	left := (linear - angular*axleLength/2) / wheelRadius
	right := (linear + angular*axleLength/2) / wheelRadius

	r.wheels[0] = physics.JointState{
		Position: floatutils.WrapToPi(r.wheels[0].Position +
			left*r.world.dt),
		Velocity: left,
		Torque:   wheelTorqueGain * (left - r.wheels[0].Velocity),
	}
	r.wheels[1] = physics.JointState{
		Position: floatutils.WrapToPi(r.wheels[1].Position +
			right*r.world.dt),
		Velocity: right,
		Torque:   wheelTorqueGain * (right - r.wheels[1].Velocity),
	}
}

// ActionDims returns the length of the robot's action vector
func (r *Robot) ActionDims() int {
	return 2 + armSegments
}

// ActionBounds returns the per-dimension lower and upper action bounds
func (r *Robot) ActionBounds() (min, max []float64) {
	min = []float64{-maxLinearVelocity, -maxAngularVelocity}
	max = []float64{maxLinearVelocity, maxAngularVelocity}
	for i := 0; i < armSegments; i++ {
		min = append(min, -maxArmJointSpeed)
		max = append(max, maxArmJointSpeed)
	}
	return min, max
}

// Body returns the identifier of the robot's body
func (r *Robot) Body() physics.BodyID {
	return r.id
}

// EndEffectorLink returns the identifier of the robot's end-effector
// link
func (r *Robot) EndEffectorLink() physics.LinkID {
	return EndEffectorLink
}

// Position returns the world position of the robot base
func (r *Robot) Position() r3.Vec {
	position := r.base.GetPosition()
	return r3.Vec{X: position.X, Y: position.Y}
}

// RPY returns the roll, pitch, and yaw of the robot base. A planar
// robot has zero roll and pitch.
func (r *Robot) RPY() (roll, pitch, yaw float64) {
	return 0, 0, floatutils.WrapToPi(r.base.GetAngle())
}

// EndEffectorPosition returns the world position of the robot's end
// effector
func (r *Robot) EndEffectorPosition() r3.Vec {
	pose, err := r.world.LinkPose(r.id, EndEffectorLink)
	if err != nil {
		panic(fmt.Sprintf("endEffectorPosition: %v", err))
	}
	return pose.Position
}

// ScanPose returns the world pose of the robot's range-scan sensor,
// mounted at the centre of the base
func (r *Robot) ScanPose() physics.Pose {
	position := r.base.GetPosition()
	return physics.Pose{
		Position:    r3.Vec{X: position.X, Y: position.Y, Z: scanHeight},
		Orientation: r3.Vec{Z: floatutils.WrapToPi(r.base.GetAngle())},
	}
}

// State returns the robot's full named-field state
func (r *Robot) State() physics.RobotState {
	velocity := r.base.GetLinearVelocity()

	arm := make([]physics.JointState, len(r.armJoints))
	for i, joint := range r.armJoints {
		arm[i] = physics.JointState{
			Position: joint.GetJointAngle(),
			Velocity: joint.GetJointSpeed(),
			Torque:   joint.GetMotorTorque(1.0 / r.world.dt),
		}
	}

	return physics.RobotState{
		VX:          velocity.X,
		VY:          velocity.Y,
		VYaw:        r.base.GetAngularVelocity(),
		WheelJoints: r.wheels[:],
		ArmJoints:   arm,
	}
}

// SetPose re-places the robot at a pose with the arm straightened
// along the new heading, zeroing all velocities
func (r *Robot) SetPose(pose physics.Pose) error {
	yaw := pose.Orientation.Z
	r.base.SetTransform(box2d.MakeB2Vec2(pose.Position.X, pose.Position.Y),
		yaw)
	r.base.SetLinearVelocity(box2d.MakeB2Vec2(0, 0))
	r.base.SetAngularVelocity(0)

	cos, sin := math.Cos(yaw), math.Sin(yaw)
	for i, segment := range r.segments {
		along := baseRadius + (float64(i)+0.5)*armSegmentLength
		segment.SetTransform(box2d.MakeB2Vec2(
			pose.Position.X+along*cos, pose.Position.Y+along*sin), yaw)
		segment.SetLinearVelocity(box2d.MakeB2Vec2(0, 0))
		segment.SetAngularVelocity(0)
	}
	return nil
}

// Reset returns the robot's actuators and joints to their initial
// configuration
func (r *Robot) Reset() error {
	for _, joint := range r.armJoints {
		joint.SetMotorSpeed(0)
	}
	r.wheels = [2]physics.JointState{}

	if err := r.SetPose(r.initialPose); err != nil {
		return fmt.Errorf("reset: %v", err)
	}
	return nil
}
