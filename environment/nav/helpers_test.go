package nav

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/samuelfneumann/gonav/physics"
)

// Body identifiers used by the test scene
const (
	testRobotBody physics.BodyID = 0
	testDoorBody  physics.BodyID = 1
	testWallBody  physics.BodyID = 2
)

// fakeFacade is a deterministic in-memory physics facade
type fakeFacade struct {
	dt    float64
	ticks int

	linkPoses   map[[2]int]physics.Pose
	jointStates map[[2]int]physics.JointState
	contacts    map[physics.BodyID][]physics.ContactEvent
	rayHits     []physics.RayHit

	constraintsMade    int
	constraintsRemoved int
	nextConstraint     physics.ConstraintHandle
	active             map[physics.ConstraintHandle]bool
}

func newFakeFacade() *fakeFacade {
	return &fakeFacade{
		dt:          1.0 / 240.0,
		linkPoses:   make(map[[2]int]physics.Pose),
		jointStates: make(map[[2]int]physics.JointState),
		contacts:    make(map[physics.BodyID][]physics.ContactEvent),
		active:      make(map[physics.ConstraintHandle]bool),
	}
}

func (f *fakeFacade) AdvanceOneTick() error {
	f.ticks++
	return nil
}

func (f *fakeFacade) Timestep() float64 { return f.dt }

func (f *fakeFacade) BodyPose(body physics.BodyID) (physics.Pose, error) {
	return f.LinkPose(body, physics.BaseLink)
}

func (f *fakeFacade) LinkPose(body physics.BodyID,
	link physics.LinkID) (physics.Pose, error) {
	pose, ok := f.linkPoses[[2]int{int(body), int(link)}]
	if !ok {
		return physics.Pose{}, fmt.Errorf("unknown link %v of body %v",
			link, body)
	}
	return pose, nil
}

func (f *fakeFacade) JointState(body physics.BodyID,
	joint physics.JointID) (physics.JointState, error) {
	state, ok := f.jointStates[[2]int{int(body), int(joint)}]
	if !ok {
		return physics.JointState{}, fmt.Errorf("unknown joint %v of "+
			"body %v", joint, body)
	}
	return state, nil
}

func (f *fakeFacade) SetJointState(body physics.BodyID,
	joint physics.JointID, position, velocity float64) error {
	f.jointStates[[2]int{int(body), int(joint)}] = physics.JointState{
		Position: position,
		Velocity: velocity,
	}
	return nil
}

func (f *fakeFacade) ContactPoints(
	body physics.BodyID) ([]physics.ContactEvent, error) {
	return f.contacts[body], nil
}

func (f *fakeFacade) CreateConstraint(bodyA physics.BodyID,
	linkA physics.LinkID, bodyB physics.BodyID, linkB physics.LinkID,
	maxForce float64) (*physics.ConstraintHandle, error) {
	handle := f.nextConstraint
	f.nextConstraint++
	f.active[handle] = true
	f.constraintsMade++
	return &handle, nil
}

func (f *fakeFacade) RemoveConstraint(
	handle *physics.ConstraintHandle) error {
	if handle == nil || !f.active[*handle] {
		return fmt.Errorf("unknown constraint")
	}
	delete(f.active, *handle)
	f.constraintsRemoved++
	return nil
}

func (f *fakeFacade) RaycastBatch(origins,
	ends []r3.Vec) ([]physics.RayHit, error) {
	hits := make([]physics.RayHit, len(origins))
	for i := range hits {
		if i < len(f.rayHits) {
			hits[i] = f.rayHits[i]
		} else {
			hits[i] = physics.RayHit{Body: physics.NoBody, Fraction: 1}
		}
	}
	return hits, nil
}

// fakeRobot is a scriptable robot whose pose and state tests set
// directly
type fakeRobot struct {
	position r3.Vec
	yaw      float64
	ee       r3.Vec
	state    physics.RobotState

	lastAction *mat.VecDense
	resets     int
}

func newFakeRobot() *fakeRobot {
	return &fakeRobot{
		state: physics.RobotState{
			WheelJoints: make([]physics.JointState, 2),
			ArmJoints:   make([]physics.JointState, 5),
		},
	}
}

func (f *fakeRobot) ApplyAction(action *mat.VecDense) error {
	f.lastAction = action
	return nil
}

func (f *fakeRobot) Body() physics.BodyID { return testRobotBody }

func (f *fakeRobot) EndEffectorLink() physics.LinkID { return 1 }

func (f *fakeRobot) Position() r3.Vec { return f.position }

func (f *fakeRobot) RPY() (float64, float64, float64) {
	return 0, 0, f.yaw
}

func (f *fakeRobot) EndEffectorPosition() r3.Vec { return f.ee }

func (f *fakeRobot) ScanPose() physics.Pose {
	return physics.Pose{
		Position:    f.position,
		Orientation: r3.Vec{Z: f.yaw},
	}
}

func (f *fakeRobot) ActionDims() int { return 2 }

func (f *fakeRobot) ActionBounds() (min, max []float64) {
	return []float64{-1, -1}, []float64{1, 1}
}

func (f *fakeRobot) State() physics.RobotState { return f.state }

func (f *fakeRobot) SetPose(pose physics.Pose) error {
	f.position = pose.Position
	f.yaw = pose.Orientation.Z
	return nil
}

func (f *fakeRobot) Reset() error {
	f.resets++
	return nil
}
