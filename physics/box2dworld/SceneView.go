package box2dworld

import (
	"github.com/ByteArena/box2d"
)

// SceneView exposes the drawable geometry of a room, its door, and a
// robot for an overhead renderer. The target position is read through
// a callback so the view follows per-episode goal placement.
type SceneView struct {
	room   *Room
	door   *Door
	robot  *Robot
	target func() (x, y float64)
}

// NewSceneView builds a renderable view of a scene. The door may be
// nil for scenes without one.
func NewSceneView(room *Room, door *Door, robot *Robot,
	target func() (x, y float64)) *SceneView {
	return &SceneView{room: room, door: door, robot: robot, target: target}
}

// Bounds returns the extent of the floor plan
func (s *SceneView) Bounds() (width, height float64) {
	return s.room.Width, s.room.Height
}

// WallSegments returns the room's wall segments as (x1, y1, x2, y2)
// tuples
func (s *SceneView) WallSegments() [][4]float64 {
	return s.room.WallSegments()
}

// DoorPolygon returns the door leaf's corner points in world
// coordinates, or nil when the scene has no door
func (s *SceneView) DoorPolygon() [][2]float64 {
	if s.door == nil {
		return nil
	}

	transform := s.door.leaf.M_xf
	corners := []box2d.B2Vec2{
		box2d.MakeB2Vec2(0, -doorThickness),
		box2d.MakeB2Vec2(s.door.length, -doorThickness),
		box2d.MakeB2Vec2(s.door.length, doorThickness),
		box2d.MakeB2Vec2(0, doorThickness),
	}

	polygon := make([][2]float64, len(corners))
	for i, corner := range corners {
		world := box2d.B2TransformVec2Mul(transform, corner)
		polygon[i] = [2]float64{world.X, world.Y}
	}
	return polygon
}

// RobotPose returns the robot's planar pose
func (s *SceneView) RobotPose() (x, y, yaw float64) {
	position := s.robot.base.GetPosition()
	return position.X, position.Y, s.robot.base.GetAngle()
}

// RobotRadius returns the drawn radius of the robot base
func (s *SceneView) RobotRadius() float64 {
	return baseRadius
}

// Target returns the goal position
func (s *SceneView) Target() (x, y float64) {
	return s.target()
}
