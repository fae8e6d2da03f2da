package box2dworld

import (
	"fmt"
	"math"

	"github.com/ByteArena/box2d"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/samuelfneumann/gonav/physics"
)

// Door link and joint identifiers
const (
	DoorAxisJoint  physics.JointID = 0
	DoorHandleLink physics.LinkID  = 1
)

const (
	wallThickness float64 = 0.1
	doorThickness float64 = 0.05
	doorHeight    float64 = 1.0
	handleHeight  float64 = 1.0
	handleRadius  float64 = 0.05
	doorDensity   float64 = 1.0
	doorFriction  float64 = 0.3
	doorDamping   float64 = 2.0
)

// Door describes a hinged door added to the world: its body, the hinge
// joint, the handle link, and the hinge's world position
type Door struct {
	Body       physics.BodyID
	AxisJoint  physics.JointID
	HandleLink physics.LinkID
	Position   r3.Vec

	leaf   *box2d.B2Body
	length float64
}

// Room is a rectangular walled region added to the world
type Room struct {
	Body   physics.BodyID
	Width  float64
	Height float64

	walls [][4]float64
}

// WallSegments returns the room's wall segments as (x1, y1, x2, y2)
// tuples
func (r *Room) WallSegments() [][4]float64 {
	return r.walls
}

// AddRoom creates a rectangular room spanning [0, width] x [0, height]
// with static edge walls
func (w *World) AddRoom(width, height float64) (*Room, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("addRoom: room must have positive size, "+
			"got %v x %v", width, height)
	}

	def := box2d.NewB2BodyDef()
	def.Type = box2d.B2BodyType.B2_staticBody
	body := w.world.CreateBody(def)
	id := w.registerBody(body)

	walls := [][4]float64{
		{0, 0, width, 0},
		{width, 0, width, height},
		{width, height, 0, height},
		{0, height, 0, 0},
	}
	for _, wall := range walls {
		edge := box2d.NewB2EdgeShape()
		edge.Set(box2d.MakeB2Vec2(wall[0], wall[1]),
			box2d.MakeB2Vec2(wall[2], wall[3]))

		fixture := box2d.MakeB2FixtureDef()
		fixture.Shape = edge
		fixture.Friction = doorFriction
		fixture.UserData = fixtureTag{body: id, link: physics.BaseLink}
		body.CreateFixtureFromDef(&fixture)
	}

	return &Room{Body: id, Width: width, Height: height, walls: walls}, nil
}

// AddDoor hinges a door at (hingeX, hingeY), closed along the positive
// x axis with the handle at its far end. The hinge swings through
// [-pi/2, 0], so opening drives the joint angle negative.
func (w *World) AddDoor(hingeX, hingeY, length float64) (Door, error) {
	if length <= 0 {
		return Door{}, fmt.Errorf("addDoor: door length must be positive, "+
			"got %v", length)
	}

	frameDef := box2d.NewB2BodyDef()
	frameDef.Type = box2d.B2BodyType.B2_staticBody
	frameDef.Position = box2d.MakeB2Vec2(hingeX, hingeY)
	frame := w.world.CreateBody(frameDef)

	doorDef := box2d.NewB2BodyDef()
	doorDef.Type = box2d.B2BodyType.B2_dynamicBody
	doorDef.Position = box2d.MakeB2Vec2(hingeX, hingeY)
	doorDef.AngularDamping = doorDamping
	door := w.world.CreateBody(doorDef)
	id := w.registerBody(door)

	// Door leaf from the hinge out to the handle end
	leaf := box2d.NewB2PolygonShape()
	leaf.SetAsBoxFromCenterAndAngle(length/2, doorThickness,
		box2d.MakeB2Vec2(length/2, 0), 0)

	leafFixture := box2d.MakeB2FixtureDef()
	leafFixture.Shape = leaf
	leafFixture.Density = doorDensity
	leafFixture.Friction = doorFriction
	leafFixture.UserData = fixtureTag{body: id, link: physics.BaseLink}
	door.CreateFixtureFromDef(&leafFixture)

	// Handle at the free end of the leaf
	handleAnchor := box2d.MakeB2Vec2(length-handleRadius, 0)
	handle := box2d.NewB2CircleShape()
	handle.M_radius = handleRadius
	handle.M_p = handleAnchor

	handleFixture := box2d.MakeB2FixtureDef()
	handleFixture.Shape = handle
	handleFixture.Density = doorDensity
	handleFixture.UserData = fixtureTag{body: id, link: DoorHandleLink}
	door.CreateFixtureFromDef(&handleFixture)

	w.registerLink(id, DoorHandleLink, handleAnchor, handleHeight)

	hinge := box2d.MakeB2RevoluteJointDef()
	hinge.BodyA = frame
	hinge.BodyB = door
	hinge.LocalAnchorA = box2d.MakeB2Vec2(0, 0)
	hinge.LocalAnchorB = box2d.MakeB2Vec2(0, 0)
	hinge.EnableLimit = true
	hinge.LowerAngle = -math.Pi / 2
	hinge.UpperAngle = 0

	joint := w.world.CreateJoint(&hinge).(*box2d.B2RevoluteJoint)
	w.registerJoint(id, DoorAxisJoint, joint)

	return Door{
		Body:       id,
		AxisJoint:  DoorAxisJoint,
		HandleLink: DoorHandleLink,
		Position:   r3.Vec{X: hingeX, Y: hingeY, Z: doorHeight / 2},
		leaf:       door,
		length:     length,
	}, nil
}
