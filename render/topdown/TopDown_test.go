package topdown

import (
	"testing"

	"github.com/samuelfneumann/gonav/observation"
)

// stubScene is a fixed 10 x 10 room with the robot at its centre
type stubScene struct{}

func (stubScene) Bounds() (float64, float64) { return 10, 10 }

func (stubScene) WallSegments() [][4]float64 {
	return [][4]float64{
		{0, 0, 10, 0},
		{10, 0, 10, 10},
		{10, 10, 0, 10},
		{0, 10, 0, 0},
	}
}

func (stubScene) DoorPolygon() [][2]float64 { return nil }

func (stubScene) RobotPose() (float64, float64, float64) { return 5, 5, 0 }

func (stubScene) RobotRadius() float64 { return 1.0 }

func (stubScene) Target() (float64, float64) { return 8, 8 }

func TestNewRejectsNonPositiveResolution(t *testing.T) {
	if _, err := New(stubScene{}, 0); err == nil {
		t.Error("expected an error for a zero resolution")
	}
}

func TestRenderShapes(t *testing.T) {
	renderer, err := New(stubScene{}, 32)
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	images, err := renderer.Render([]observation.Channel{
		observation.RGB, observation.Depth, observation.Normal,
		observation.Seg,
	})
	if err != nil {
		t.Fatalf("render: %v", err)
	}

	cases := []struct {
		channel observation.Channel
		depth   int
	}{
		{observation.RGB, 3},
		{observation.Depth, 1},
		{observation.Normal, 3},
		{observation.Seg, 1},
	}
	for _, c := range cases {
		shape := images[c.channel].Shape()
		if len(shape) != 3 || shape[0] != 32 || shape[1] != 32 ||
			shape[2] != c.depth {
			t.Errorf("channel %v: expected shape (32, 32, %v), got %v",
				c.channel, c.depth, shape)
		}
	}
}

func TestRenderRejectsUnknownChannels(t *testing.T) {
	renderer, err := New(stubScene{}, 32)
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	_, err = renderer.Render([]observation.Channel{observation.Bump})
	if err == nil {
		t.Error("expected an error for a non-image channel")
	}
}

func TestSegmentationAndDepth(t *testing.T) {
	renderer, err := New(stubScene{}, 32)
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	images, err := renderer.Render([]observation.Channel{
		observation.Seg, observation.Depth,
	})
	if err != nil {
		t.Fatalf("render: %v", err)
	}

	seg := images[observation.Seg].Data().([]float64)
	depth := images[observation.Depth].Data().([]float64)

	// The image centre shows the robot
	centre := 16*32 + 16
	if seg[centre] != ClassRobot {
		t.Errorf("expected class %v at the robot, got %v", ClassRobot,
			seg[centre])
	}

	// An interior pixel away from all geometry shows the floor, which
	// sits a full camera height in front of the overhead camera
	floor := 8*32 + 8
	if seg[floor] != ClassFloor {
		t.Errorf("expected class %v on open floor, got %v", ClassFloor,
			seg[floor])
	}
	if depth[floor] != -cameraHeight {
		t.Errorf("expected depth %v on open floor, got %v", -cameraHeight,
			depth[floor])
	}
}

func TestRGBValuesInRange(t *testing.T) {
	renderer, err := New(stubScene{}, 16)
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	images, err := renderer.Render([]observation.Channel{observation.RGB})
	if err != nil {
		t.Fatalf("render: %v", err)
	}

	for _, v := range images[observation.RGB].Data().([]float64) {
		if v < 0 || v > 1 {
			t.Fatalf("expected pixel values in [0, 1], got %v", v)
		}
	}
}
