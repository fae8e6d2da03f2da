// Package box2dworld backs the physics facade with a planar Box2D
// simulation. The world models a room's floor plan: bodies move in the
// x-y plane, the z axis is synthesized from known mounting heights,
// and gravity is zero.
package box2dworld

import (
	"fmt"

	"github.com/ByteArena/box2d"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/samuelfneumann/gonav/physics"
)

const (
	velocityIterations int = 8
	positionIterations int = 3
)

// fixtureTag identifies the body link a fixture belongs to. Every
// fixture in the world carries one as its user data.
type fixtureTag struct {
	body physics.BodyID
	link physics.LinkID
}

type linkKey struct {
	body physics.BodyID
	link physics.LinkID
}

// linkRef locates a link as a local anchor point on a Box2D body
type linkRef struct {
	body   *box2d.B2Body
	anchor box2d.B2Vec2
	height float64
}

type jointKey struct {
	body  physics.BodyID
	joint physics.JointID
}

type contactKey struct {
	a linkKey
	b linkKey
}

// World is a planar Box2D simulation implementing the physics facade
type World struct {
	world box2d.B2World
	dt    float64

	bodies []*box2d.B2Body
	links  map[linkKey]linkRef
	joints map[jointKey]*box2d.B2RevoluteJoint

	contacts map[contactKey]physics.ContactEvent

	constraints    map[physics.ConstraintHandle]box2d.B2JointInterface
	nextConstraint physics.ConstraintHandle
}

// NewWorld creates an empty planar world which advances by tick
// seconds per physics tick
func NewWorld(tick float64) (*World, error) {
	if tick <= 0 {
		return nil, fmt.Errorf("newWorld: tick must be positive, got %v",
			tick)
	}

	w := &World{
		world:       box2d.MakeB2World(box2d.B2Vec2{X: 0, Y: 0}),
		dt:          tick,
		links:       make(map[linkKey]linkRef),
		joints:      make(map[jointKey]*box2d.B2RevoluteJoint),
		contacts:    make(map[contactKey]physics.ContactEvent),
		constraints: make(map[physics.ConstraintHandle]box2d.B2JointInterface),
	}
	w.world.SetContactListener(&contactRecorder{w})
	return w, nil
}

// registerBody adds a Box2D body to the world's body table and returns
// its identifier
func (w *World) registerBody(body *box2d.B2Body) physics.BodyID {
	id := physics.BodyID(len(w.bodies))
	w.bodies = append(w.bodies, body)

	w.links[linkKey{id, physics.BaseLink}] = linkRef{
		body:   body,
		anchor: box2d.MakeB2Vec2(0, 0),
	}
	return id
}

// registerLink records a named link as a local anchor point on a body,
// with a fixed height above the floor
func (w *World) registerLink(body physics.BodyID, link physics.LinkID,
	anchor box2d.B2Vec2, height float64) {
	w.links[linkKey{body, link}] = linkRef{
		body:   w.bodies[body],
		anchor: anchor,
		height: height,
	}
}

// registerJoint records a revolute joint under a body-scoped joint
// identifier
func (w *World) registerJoint(body physics.BodyID, joint physics.JointID,
	revolute *box2d.B2RevoluteJoint) {
	w.joints[jointKey{body, joint}] = revolute
}

func (w *World) body(id physics.BodyID) (*box2d.B2Body, error) {
	if id < 0 || int(id) >= len(w.bodies) {
		return nil, fmt.Errorf("unknown body %v", id)
	}
	return w.bodies[id], nil
}

// AdvanceOneTick advances the simulation by one physics tick
func (w *World) AdvanceOneTick() error {
	w.world.Step(w.dt, velocityIterations, positionIterations)
	return nil
}

// Timestep returns the duration of one physics tick in seconds
func (w *World) Timestep() float64 {
	return w.dt
}

// BodyPose returns the pose of a body's root link
func (w *World) BodyPose(id physics.BodyID) (physics.Pose, error) {
	body, err := w.body(id)
	if err != nil {
		return physics.Pose{}, fmt.Errorf("bodyPose: %v", err)
	}

	position := body.GetPosition()
	return physics.Pose{
		Position:    r3.Vec{X: position.X, Y: position.Y},
		Orientation: r3.Vec{Z: body.GetAngle()},
	}, nil
}

// LinkPose returns the world pose of a single link
func (w *World) LinkPose(id physics.BodyID,
	link physics.LinkID) (physics.Pose, error) {
	ref, ok := w.links[linkKey{id, link}]
	if !ok {
		return physics.Pose{}, fmt.Errorf("linkPose: unknown link %v of "+
			"body %v", link, id)
	}

	point := ref.body.GetWorldPoint(ref.anchor)
	return physics.Pose{
		Position:    r3.Vec{X: point.X, Y: point.Y, Z: ref.height},
		Orientation: r3.Vec{Z: ref.body.GetAngle()},
	}, nil
}

// JointState returns the state of a single revolute joint
func (w *World) JointState(id physics.BodyID,
	joint physics.JointID) (physics.JointState, error) {
	revolute, ok := w.joints[jointKey{id, joint}]
	if !ok {
		return physics.JointState{}, fmt.Errorf("jointState: unknown "+
			"joint %v of body %v", joint, id)
	}

	return physics.JointState{
		Position: revolute.GetJointAngle(),
		Velocity: revolute.GetJointSpeed(),
		Torque:   revolute.GetMotorTorque(1.0 / w.dt),
	}, nil
}

// SetJointState overwrites the position and velocity of a single
// revolute joint by re-posing the joint's second body around the joint
// anchor
func (w *World) SetJointState(id physics.BodyID, joint physics.JointID,
	position, velocity float64) error {
	revolute, ok := w.joints[jointKey{id, joint}]
	if !ok {
		return fmt.Errorf("setJointState: unknown joint %v of body %v",
			joint, id)
	}

	anchor := revolute.GetAnchorA()
	bodyA := revolute.GetBodyA()
	bodyB := revolute.GetBodyB()

	angle := bodyA.GetAngle() + position
	local := revolute.M_localAnchorB

	// Re-pose B so that its local anchor lands on the joint anchor at
	// the requested angle
	rotated := box2d.B2RotVec2Mul(box2d.MakeB2RotFromAngle(angle), local)
	target := box2d.MakeB2Vec2(anchor.X-rotated.X, anchor.Y-rotated.Y)

	bodyB.SetTransform(target, angle)
	bodyB.SetAngularVelocity(velocity)
	bodyB.SetLinearVelocity(box2d.MakeB2Vec2(0, 0))
	return nil
}

// ContactPoints returns the contacts involving body during the most
// recent tick
func (w *World) ContactPoints(
	id physics.BodyID) ([]physics.ContactEvent, error) {
	if _, err := w.body(id); err != nil {
		return nil, fmt.Errorf("contactPoints: %v", err)
	}

	var events []physics.ContactEvent
	for _, event := range w.contacts {
		if event.BodyA == id {
			events = append(events, event)
		}
	}
	return events, nil
}

// CreateConstraint forms a point-to-point constraint between two body
// links, modelled as a zero-length distance joint between the link
// anchors
func (w *World) CreateConstraint(bodyA physics.BodyID,
	linkA physics.LinkID, bodyB physics.BodyID, linkB physics.LinkID,
	maxForce float64) (*physics.ConstraintHandle, error) {
	refA, ok := w.links[linkKey{bodyA, linkA}]
	if !ok {
		return nil, fmt.Errorf("createConstraint: unknown link %v of "+
			"body %v", linkA, bodyA)
	}
	refB, ok := w.links[linkKey{bodyB, linkB}]
	if !ok {
		return nil, fmt.Errorf("createConstraint: unknown link %v of "+
			"body %v", linkB, bodyB)
	}

	def := box2d.MakeB2DistanceJointDef()
	def.BodyA = refA.body
	def.BodyB = refB.body
	def.LocalAnchorA = refA.anchor
	def.LocalAnchorB = refB.anchor
	def.Length = 0.01
	def.CollideConnected = false

	joint := w.world.CreateJoint(&def)

	handle := w.nextConstraint
	w.nextConstraint++
	w.constraints[handle] = joint
	return &handle, nil
}

// RemoveConstraint tears down a constraint created by CreateConstraint
func (w *World) RemoveConstraint(handle *physics.ConstraintHandle) error {
	if handle == nil {
		return fmt.Errorf("removeConstraint: nil constraint handle")
	}

	joint, ok := w.constraints[*handle]
	if !ok {
		return fmt.Errorf("removeConstraint: unknown constraint %v",
			*handle)
	}

	w.world.DestroyJoint(joint)
	delete(w.constraints, *handle)
	return nil
}

// RaycastBatch casts len(origins) rays and reports the closest hit of
// each. Rays are cast in the floor plane; the z components of the
// endpoints are ignored.
func (w *World) RaycastBatch(origins,
	ends []r3.Vec) ([]physics.RayHit, error) {
	if len(origins) != len(ends) {
		return nil, fmt.Errorf("raycastBatch: %v origins for %v ray ends",
			len(origins), len(ends))
	}

	hits := make([]physics.RayHit, len(origins))
	for i := range origins {
		hit := physics.RayHit{Body: physics.NoBody, Fraction: 1}

		callback := func(fixture *box2d.B2Fixture, point box2d.B2Vec2,
			normal box2d.B2Vec2, fraction float64) float64 {
			tag, ok := fixture.GetUserData().(fixtureTag)
			if !ok {
				return -1
			}

			hit = physics.RayHit{Body: tag.body, Fraction: fraction}
			return fraction
		}

		w.world.RayCast(callback,
			box2d.MakeB2Vec2(origins[i].X, origins[i].Y),
			box2d.MakeB2Vec2(ends[i].X, ends[i].Y))
		hits[i] = hit
	}
	return hits, nil
}

// contactRecorder maintains the active contact set from Box2D's
// begin and end contact callbacks. Each contact is recorded under both
// body orderings so that per-body filtering sees it either way.
type contactRecorder struct {
	world *World
}

func (c *contactRecorder) BeginContact(contact box2d.B2ContactInterface) {
	tagA, okA := contact.GetFixtureA().GetUserData().(fixtureTag)
	tagB, okB := contact.GetFixtureB().GetUserData().(fixtureTag)
	if !okA || !okB {
		return
	}

	a := linkKey{tagA.body, tagA.link}
	b := linkKey{tagB.body, tagB.link}
	c.world.contacts[contactKey{a, b}] = physics.ContactEvent{
		BodyA: tagA.body, BodyB: tagB.body,
		LinkA: tagA.link, LinkB: tagB.link,
	}
	c.world.contacts[contactKey{b, a}] = physics.ContactEvent{
		BodyA: tagB.body, BodyB: tagA.body,
		LinkA: tagB.link, LinkB: tagA.link,
	}
}

func (c *contactRecorder) EndContact(contact box2d.B2ContactInterface) {
	tagA, okA := contact.GetFixtureA().GetUserData().(fixtureTag)
	tagB, okB := contact.GetFixtureB().GetUserData().(fixtureTag)
	if !okA || !okB {
		return
	}

	a := linkKey{tagA.body, tagA.link}
	b := linkKey{tagB.body, tagB.link}
	delete(c.world.contacts, contactKey{a, b})
	delete(c.world.contacts, contactKey{b, a})
}

func (c *contactRecorder) PreSolve(contact box2d.B2ContactInterface,
	oldManifold box2d.B2Manifold) {
}

func (c *contactRecorder) PostSolve(contact box2d.B2ContactInterface,
	impulse *box2d.B2ContactImpulse) {
}
