package box2dworld

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/samuelfneumann/gonav/physics"
)

const testTick = 1.0 / 240.0

// newTestScene builds a 10 x 10 room with a unit door hinged at (5, 5)
// and a robot at (2, 5)
func newTestScene(t *testing.T) (*World, *Room, Door, *Robot) {
	t.Helper()

	world, err := NewWorld(testTick)
	if err != nil {
		t.Fatalf("newWorld: %v", err)
	}
	room, err := world.AddRoom(10, 10)
	if err != nil {
		t.Fatalf("addRoom: %v", err)
	}
	door, err := world.AddDoor(5, 5, 1)
	if err != nil {
		t.Fatalf("addDoor: %v", err)
	}
	robot, err := NewRobot(world, 2, 5)
	if err != nil {
		t.Fatalf("newRobot: %v", err)
	}
	return world, room, door, robot
}

func TestNewWorldRejectsNonPositiveTick(t *testing.T) {
	if _, err := NewWorld(0); err == nil {
		t.Error("expected an error for a zero tick")
	}
	if _, err := NewWorld(-testTick); err == nil {
		t.Error("expected an error for a negative tick")
	}
}

func TestScenePoses(t *testing.T) {
	world, room, door, robot := newTestScene(t)

	if len(room.WallSegments()) != 4 {
		t.Errorf("expected 4 walls, got %v", len(room.WallSegments()))
	}

	// The handle sits at the free end of the closed door
	handle, err := world.LinkPose(door.Body, door.HandleLink)
	if err != nil {
		t.Fatalf("linkPose: %v", err)
	}
	if math.Abs(handle.Position.X-(5+1-handleRadius)) > 1e-9 ||
		math.Abs(handle.Position.Y-5) > 1e-9 {
		t.Errorf("expected the handle at (%v, 5), got (%v, %v)",
			5+1-handleRadius, handle.Position.X, handle.Position.Y)
	}
	if handle.Position.Z != handleHeight {
		t.Errorf("expected the handle at height %v, got %v", handleHeight,
			handle.Position.Z)
	}

	// The end effector extends from the front of the base at handle
	// height
	ee := robot.EndEffectorPosition()
	wantX := 2 + baseRadius + float64(armSegments)*armSegmentLength
	if math.Abs(ee.X-wantX) > 1e-9 || math.Abs(ee.Y-5) > 1e-9 {
		t.Errorf("expected the end effector at (%v, 5), got (%v, %v)",
			wantX, ee.X, ee.Y)
	}
	if ee.Z != handleHeight {
		t.Errorf("expected the end effector at height %v, got %v",
			handleHeight, ee.Z)
	}

	if _, err := world.LinkPose(door.Body, 99); err == nil {
		t.Error("expected an error for an unknown link")
	}
}

func TestDoorStaysClosedAtRest(t *testing.T) {
	world, _, door, _ := newTestScene(t)

	for i := 0; i < 60; i++ {
		if err := world.AdvanceOneTick(); err != nil {
			t.Fatalf("advanceOneTick: %v", err)
		}
	}

	state, err := world.JointState(door.Body, door.AxisJoint)
	if err != nil {
		t.Fatalf("jointState: %v", err)
	}
	if math.Abs(state.Position) > 1e-3 {
		t.Errorf("expected the door to stay closed, got angle %v",
			state.Position)
	}
}

func TestSetJointStateReposesDoor(t *testing.T) {
	world, _, door, _ := newTestScene(t)

	angle := -math.Pi / 4
	err := world.SetJointState(door.Body, door.AxisJoint, angle, 0)
	if err != nil {
		t.Fatalf("setJointState: %v", err)
	}

	state, err := world.JointState(door.Body, door.AxisJoint)
	if err != nil {
		t.Fatalf("jointState: %v", err)
	}
	if math.Abs(state.Position-angle) > 1e-9 {
		t.Errorf("expected joint angle %v, got %v", angle, state.Position)
	}
	if state.Velocity != 0 {
		t.Errorf("expected the door still, got velocity %v", state.Velocity)
	}

	// The handle swings with the leaf around the hinge
	handle, err := world.LinkPose(door.Body, door.HandleLink)
	if err != nil {
		t.Fatalf("linkPose: %v", err)
	}
	radius := 1 - handleRadius
	wantX := 5 + radius*math.Cos(angle)
	wantY := 5 + radius*math.Sin(angle)
	if math.Abs(handle.Position.X-wantX) > 1e-6 ||
		math.Abs(handle.Position.Y-wantY) > 1e-6 {
		t.Errorf("expected the handle at (%v, %v), got (%v, %v)",
			wantX, wantY, handle.Position.X, handle.Position.Y)
	}

	if err := world.SetJointState(door.Body, 99, 0, 0); err == nil {
		t.Error("expected an error for an unknown joint")
	}
}

func TestRaycastBatch(t *testing.T) {
	world, room, _, _ := newTestScene(t)

	hits, err := world.RaycastBatch(
		[]r3.Vec{
			{X: 8, Y: 5},
			{X: 8, Y: 5},
		},
		[]r3.Vec{
			{X: 8, Y: 20},
			{X: 8, Y: 6},
		},
	)
	if err != nil {
		t.Fatalf("raycastBatch: %v", err)
	}

	// The long ray hits the north wall a third of the way along
	if hits[0].Body != room.Body {
		t.Errorf("expected the first ray to hit body %v, got %v",
			room.Body, hits[0].Body)
	}
	if math.Abs(hits[0].Fraction-5.0/15.0) > 1e-6 {
		t.Errorf("expected fraction %v, got %v", 5.0/15.0,
			hits[0].Fraction)
	}

	// The short ray hits nothing
	if hits[1].Body != physics.NoBody || hits[1].Fraction != 1 {
		t.Errorf("expected a miss, got body %v at fraction %v",
			hits[1].Body, hits[1].Fraction)
	}

	_, err = world.RaycastBatch([]r3.Vec{{}}, nil)
	if err == nil {
		t.Error("expected an error for mismatched ray endpoints")
	}
}

func TestConstraintLifecycle(t *testing.T) {
	world, _, door, robot := newTestScene(t)

	handle, err := world.CreateConstraint(
		robot.Body(), robot.EndEffectorLink(),
		door.Body, door.HandleLink, 500)
	if err != nil {
		t.Fatalf("createConstraint: %v", err)
	}

	if err := world.RemoveConstraint(handle); err != nil {
		t.Fatalf("removeConstraint: %v", err)
	}
	if err := world.RemoveConstraint(handle); err == nil {
		t.Error("expected an error removing a constraint twice")
	}
	if err := world.RemoveConstraint(nil); err == nil {
		t.Error("expected an error for a nil constraint handle")
	}

	_, err = world.CreateConstraint(robot.Body(), 99, door.Body,
		door.HandleLink, 500)
	if err == nil {
		t.Error("expected an error for an unknown link")
	}
}

func TestDrivingForwardMovesRobot(t *testing.T) {
	world, _, _, robot := newTestScene(t)

	action := mat.NewVecDense(robot.ActionDims(), nil)
	action.SetVec(0, maxLinearVelocity)

	for i := 0; i < 48; i++ {
		if err := robot.ApplyAction(action); err != nil {
			t.Fatalf("applyAction: %v", err)
		}
		if err := world.AdvanceOneTick(); err != nil {
			t.Fatalf("advanceOneTick: %v", err)
		}
	}

	if robot.Position().X < 2.1 {
		t.Errorf("expected the robot to drive forward from x = 2, got "+
			"x = %v", robot.Position().X)
	}
	if math.Abs(robot.Position().Y-5) > 0.05 {
		t.Errorf("expected the robot to hold its heading, got y = %v",
			robot.Position().Y)
	}

	// The virtual wheels spin together when driving straight
	state := robot.State()
	if len(state.WheelJoints) != 2 {
		t.Fatalf("expected 2 wheel joints, got %v", len(state.WheelJoints))
	}
	if state.WheelJoints[0].Velocity != state.WheelJoints[1].Velocity {
		t.Errorf("expected equal wheel speeds, got %v and %v",
			state.WheelJoints[0].Velocity, state.WheelJoints[1].Velocity)
	}
	if state.WheelJoints[0].Velocity <= 0 {
		t.Errorf("expected forward wheel spin, got %v",
			state.WheelJoints[0].Velocity)
	}

	if err := robot.ApplyAction(mat.NewVecDense(1, nil)); err == nil {
		t.Error("expected an error for a malformed action")
	}
}

func TestDrivingIntoWallReportsContact(t *testing.T) {
	world, room, _, robot := newTestScene(t)

	err := robot.SetPose(physics.Pose{Position: r3.Vec{X: 8.5, Y: 8}})
	if err != nil {
		t.Fatalf("setPose: %v", err)
	}

	action := mat.NewVecDense(robot.ActionDims(), nil)
	action.SetVec(0, maxLinearVelocity)

	hitWall := false
	for i := 0; i < 480 && !hitWall; i++ {
		if err := robot.ApplyAction(action); err != nil {
			t.Fatalf("applyAction: %v", err)
		}
		if err := world.AdvanceOneTick(); err != nil {
			t.Fatalf("advanceOneTick: %v", err)
		}

		events, err := world.ContactPoints(robot.Body())
		if err != nil {
			t.Fatalf("contactPoints: %v", err)
		}
		for _, event := range events {
			if event.BodyA != robot.Body() {
				t.Errorf("expected contacts filtered to body %v, got %v",
					robot.Body(), event.BodyA)
			}
			if event.BodyB == room.Body {
				hitWall = true
			}
		}
	}

	if !hitWall {
		t.Error("expected a wall contact while driving into the east wall")
	}

	if _, err := world.ContactPoints(99); err == nil {
		t.Error("expected an error for an unknown body")
	}
}

func TestRobotResetRestoresPose(t *testing.T) {
	world, _, _, robot := newTestScene(t)

	action := mat.NewVecDense(robot.ActionDims(), nil)
	action.SetVec(0, maxLinearVelocity)
	action.SetVec(1, maxAngularVelocity)
	for i := 0; i < 48; i++ {
		if err := robot.ApplyAction(action); err != nil {
			t.Fatalf("applyAction: %v", err)
		}
		if err := world.AdvanceOneTick(); err != nil {
			t.Fatalf("advanceOneTick: %v", err)
		}
	}

	if err := robot.Reset(); err != nil {
		t.Fatalf("reset: %v", err)
	}

	pos := robot.Position()
	if math.Abs(pos.X-2) > 1e-9 || math.Abs(pos.Y-5) > 1e-9 {
		t.Errorf("expected the robot back at (2, 5), got (%v, %v)",
			pos.X, pos.Y)
	}
	_, _, yaw := robot.RPY()
	if math.Abs(yaw) > 1e-9 {
		t.Errorf("expected zero yaw after reset, got %v", yaw)
	}

	state := robot.State()
	if state.VX != 0 || state.VY != 0 || state.VYaw != 0 {
		t.Errorf("expected the robot at rest after reset, got velocities "+
			"(%v, %v, %v)", state.VX, state.VY, state.VYaw)
	}
	for i, wheel := range state.WheelJoints {
		if wheel != (physics.JointState{}) {
			t.Errorf("expected wheel %v cleared after reset, got %+v", i,
				wheel)
		}
	}
}
