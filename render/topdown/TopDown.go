// Package topdown renders a planar navigation scene from a fixed
// overhead camera using the gg drawing library
package topdown

import (
	"fmt"
	"image/color"

	"github.com/fogleman/gg"
	"gorgonia.org/tensor"

	"github.com/samuelfneumann/gonav/observation"
	"github.com/samuelfneumann/gonav/render"
)

// Segmentation class indices
const (
	ClassFloor  float64 = 0
	ClassWall   float64 = 1
	ClassDoor   float64 = 2
	ClassRobot  float64 = 3
	ClassTarget float64 = 4
	ClassMarker float64 = 5
)

// cameraHeight is the height of the overhead camera above the floor
const cameraHeight float64 = 3.0

// heightOf maps each segmentation class to the height of its surface
// above the floor
var heightOf = map[float64]float64{
	ClassFloor:  0.0,
	ClassWall:   2.0,
	ClassDoor:   1.0,
	ClassRobot:  0.5,
	ClassTarget: 0.0,
	ClassMarker: 0.0,
}

// Scene exposes the geometry the renderer draws. All coordinates are
// world coordinates in the floor plane.
type Scene interface {
	// Bounds returns the extent of the floor plan
	Bounds() (width, height float64)

	// WallSegments returns the wall segments as (x1, y1, x2, y2)
	// tuples
	WallSegments() [][4]float64

	// DoorPolygon returns the door leaf's corner points, or nil when
	// the scene has no door
	DoorPolygon() [][2]float64

	// RobotPose returns the robot's planar pose
	RobotPose() (x, y, yaw float64)

	// RobotRadius returns the drawn radius of the robot base
	RobotRadius() float64

	// Target returns the goal position
	Target() (x, y float64)
}

// Renderer renders a scene from a fixed overhead camera
type Renderer struct {
	scene      Scene
	resolution int

	markers [][2]float64
}

// New returns an overhead renderer producing square images of the
// given resolution
func New(scene Scene, resolution int) (*Renderer, error) {
	if resolution <= 0 {
		return nil, fmt.Errorf("topdown: resolution must be positive, "+
			"got %v", resolution)
	}
	return &Renderer{scene: scene, resolution: resolution}, nil
}

// Resolution returns the square image edge length in pixels
func (r *Renderer) Resolution() int {
	return r.resolution
}

// SetMarkers places visual marker dots at the given world positions.
// Markers persist until replaced.
func (r *Renderer) SetMarkers(markers [][2]float64) {
	r.markers = markers
}

// Render draws the scene once and derives each requested channel from
// the drawing
func (r *Renderer) Render(
	channels []observation.Channel) (map[observation.Channel]*tensor.Dense,
	error) {
	classes := r.drawClasses()

	out := make(map[observation.Channel]*tensor.Dense, len(channels))
	for _, ch := range channels {
		switch ch {
		case observation.RGB:
			out[ch] = r.drawRGB()
		case observation.Depth:
			out[ch] = r.depth(classes)
		case observation.Normal:
			out[ch] = r.normal()
		case observation.Seg:
			out[ch] = r.segmentation(classes)
		default:
			return nil, fmt.Errorf("render: cannot render channel %v", ch)
		}
	}
	return out, nil
}

var _ render.Renderer = (*Renderer)(nil)

// scale returns the world-to-pixel scale factor
func (r *Renderer) scale() float64 {
	width, height := r.scene.Bounds()
	extent := width
	if height > extent {
		extent = height
	}
	return float64(r.resolution) / extent
}

// draw rasterizes the scene with one color per class, using the
// supplied palette
func (r *Renderer) draw(palette map[float64]color.Color) *gg.Context {
	dc := gg.NewContext(r.resolution, r.resolution)
	scale := r.scale()

	dc.SetColor(palette[ClassFloor])
	dc.Clear()

	dc.SetColor(palette[ClassWall])
	dc.SetLineWidth(3.0)
	for _, wall := range r.scene.WallSegments() {
		dc.DrawLine(wall[0]*scale, wall[1]*scale, wall[2]*scale,
			wall[3]*scale)
	}
	dc.Stroke()

	if door := r.scene.DoorPolygon(); len(door) > 0 {
		dc.ClearPath()
		dc.MoveTo(door[0][0]*scale, door[0][1]*scale)
		for _, corner := range door[1:] {
			dc.LineTo(corner[0]*scale, corner[1]*scale)
		}
		dc.ClosePath()
		dc.SetColor(palette[ClassDoor])
		dc.Fill()
	}

	targetX, targetY := r.scene.Target()
	dc.SetColor(palette[ClassTarget])
	dc.DrawCircle(targetX*scale, targetY*scale, 0.1*scale)
	dc.Fill()

	dc.SetColor(palette[ClassMarker])
	for _, marker := range r.markers {
		dc.DrawCircle(marker[0]*scale, marker[1]*scale, 0.05*scale)
		dc.Fill()
	}

	robotX, robotY, yaw := r.scene.RobotPose()
	radius := r.scene.RobotRadius()
	dc.SetColor(palette[ClassRobot])
	dc.DrawCircle(robotX*scale, robotY*scale, radius*scale)
	dc.Fill()

	// Heading tick
	dc.Push()
	dc.Translate(robotX*scale, robotY*scale)
	dc.Rotate(yaw)
	dc.DrawLine(0, 0, radius*scale, 0)
	dc.SetLineWidth(2.0)
	dc.Stroke()
	dc.Pop()

	return dc
}

// drawRGB rasterizes the scene in display colors and returns it as a
// (resolution, resolution, 3) tensor with values in [0, 1]
func (r *Renderer) drawRGB() *tensor.Dense {
	dc := r.draw(map[float64]color.Color{
		ClassFloor:  color.RGBA{R: 230, G: 230, B: 230, A: 255},
		ClassWall:   color.RGBA{R: 60, G: 60, B: 60, A: 255},
		ClassDoor:   color.RGBA{R: 153, G: 102, B: 51, A: 255},
		ClassRobot:  color.RGBA{R: 128, G: 102, B: 230, A: 255},
		ClassTarget: color.RGBA{R: 51, G: 179, B: 77, A: 255},
		ClassMarker: color.RGBA{R: 255, G: 166, B: 0, A: 255},
	})

	img := dc.Image()
	data := make([]float64, r.resolution*r.resolution*3)
	i := 0
	for y := 0; y < r.resolution; y++ {
		for x := 0; x < r.resolution; x++ {
			red, green, blue, _ := img.At(x, y).RGBA()
			data[i] = float64(red) / 0xffff
			data[i+1] = float64(green) / 0xffff
			data[i+2] = float64(blue) / 0xffff
			i += 3
		}
	}
	return tensor.New(tensor.WithShape(r.resolution, r.resolution, 3),
		tensor.WithBacking(data))
}

// drawClasses rasterizes the scene with each class drawn in a distinct
// gray level and reads the class index back per pixel
func (r *Renderer) drawClasses() []float64 {
	palette := make(map[float64]color.Color)
	for _, class := range []float64{ClassFloor, ClassWall, ClassDoor,
		ClassRobot, ClassTarget, ClassMarker} {
		level := uint8(class) * 40
		palette[class] = color.RGBA{R: level, G: level, B: level, A: 255}
	}

	dc := r.draw(palette)
	img := dc.Image()

	classes := make([]float64, r.resolution*r.resolution)
	i := 0
	for y := 0; y < r.resolution; y++ {
		for x := 0; x < r.resolution; x++ {
			red, _, _, _ := img.At(x, y).RGBA()

			// Undo antialiasing by snapping to the nearest class level
			level := float64(red>>8)/40 + 0.5
			classes[i] = float64(int(level))
			i++
		}
	}
	return classes
}

// segmentation returns the per-pixel class indices as a
// (resolution, resolution, 1) tensor
func (r *Renderer) segmentation(classes []float64) *tensor.Dense {
	data := make([]float64, len(classes))
	copy(data, classes)
	return tensor.New(tensor.WithShape(r.resolution, r.resolution, 1),
		tensor.WithBacking(data))
}

// depth returns the camera-frame z of each pixel's surface as a
// (resolution, resolution, 1) tensor. The camera looks straight down,
// so surfaces in front of it have negative z.
func (r *Renderer) depth(classes []float64) *tensor.Dense {
	data := make([]float64, len(classes))
	for i, class := range classes {
		data[i] = -(cameraHeight - heightOf[class])
	}
	return tensor.New(tensor.WithShape(r.resolution, r.resolution, 1),
		tensor.WithBacking(data))
}

// normal returns the per-pixel surface normals as a
// (resolution, resolution, 3) tensor. Every surface seen from straight
// above faces the camera.
func (r *Renderer) normal() *tensor.Dense {
	data := make([]float64, r.resolution*r.resolution*3)
	for i := 2; i < len(data); i += 3 {
		data[i] = 1
	}
	return tensor.New(tensor.WithShape(r.resolution, r.resolution, 3),
		tensor.WithBacking(data))
}
