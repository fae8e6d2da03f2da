package nav

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"
	"gorgonia.org/tensor"

	"github.com/samuelfneumann/gonav/completion"
	"github.com/samuelfneumann/gonav/observation"
	"github.com/samuelfneumann/gonav/physics"
	"github.com/samuelfneumann/gonav/render"
	"github.com/samuelfneumann/gonav/utils/floatutils"
)

// Range-scan geometry
const (
	ScanRaysPerSlice  int     = 128
	ScanVerticalBeams int     = 9
	ScanBottomAngle   float64 = -30.0 * math.Pi / 180.0
	ScanTopAngle      float64 = 10.0 * math.Pi / 180.0
	ScanRange         float64 = 30.0

	// scanMinFraction discards hits closer than 0.1 world units
	scanMinFraction float64 = 0.1 / ScanRange

	// scanMaxFraction discards rays that ran their full length
	scanMaxFraction float64 = 1.0 - 1e-5
)

// Assembler builds the per-step observation bundle from the robot,
// task, and collaborator queries, according to the configured channel
// set.
type Assembler struct {
	channels  []observation.Channel
	sensorDim int
	auxDim    int

	normalize  bool
	normalizer map[observation.Channel]NormBounds

	facade    physics.Facade
	robot     physics.Robot
	task      Task
	renderer  render.Renderer
	completer completion.Completer

	// scanDirs are the sensor-frame ray direction offsets, fixed for
	// the lifetime of the assembler
	scanDirs []r3.Vec
}

// NewAssembler constructs an observation assembler for a configured
// channel set. The renderer may be nil when no imagery channel is
// configured, and the completer may be nil when the rgb_filled channel
// is not configured.
func NewAssembler(config *Config, facade physics.Facade,
	robot physics.Robot, task Task, renderer render.Renderer,
	completer completion.Completer) (*Assembler, error) {
	channels, err := config.Channels()
	if err != nil {
		return nil, fmt.Errorf("newAssembler: %v", err)
	}

	if config.needsImagery() && renderer == nil {
		return nil, fmt.Errorf("newAssembler: imagery channels configured " +
			"without a renderer")
	}
	if config.HasChannel(observation.RGBFilled) && completer == nil {
		return nil, fmt.Errorf("newAssembler: rgb_filled configured " +
			"without a completion network")
	}

	normalizer := make(map[observation.Channel]NormBounds)
	for name, bounds := range config.ObservationNormalizer {
		normalizer[observation.Channel(name)] = bounds
	}

	a := &Assembler{
		channels:   channels,
		sensorDim:  config.AdditionalStatesDim,
		auxDim:     config.AuxiliarySensorDim,
		normalize:  config.NormalizeObservation,
		normalizer: normalizer,
		facade:     facade,
		robot:      robot,
		task:       task,
		renderer:   renderer,
		completer:  completer,
		scanDirs:   scanDirections(),
	}
	return a, nil
}

// scanDirections precomputes the fixed angular grid of sensor-frame
// ray offsets: ScanRaysPerSlice horizontal directions swept through
// ScanVerticalBeams elevation angles
func scanDirections() []r3.Vec {
	dirs := make([]r3.Vec, 0, ScanRaysPerSlice*ScanVerticalBeams)

	elevStep := (ScanTopAngle - ScanBottomAngle) / float64(ScanVerticalBeams)
	azimStep := 2 * math.Pi / float64(ScanRaysPerSlice)

	for beam := 0; beam < ScanVerticalBeams; beam++ {
		elev := ScanBottomAngle + float64(beam)*elevStep
		for ray := 0; ray < ScanRaysPerSlice; ray++ {
			azim := float64(ray) * azimStep
			dirs = append(dirs, r3.Vec{
				X: math.Cos(azim),
				Y: math.Sin(azim),
				Z: math.Tan(elev),
			})
		}
	}
	return dirs
}

// ValidateDims assembles the task state vectors once and checks them
// against the configured dimensions. A mismatch is a fatal
// configuration error surfaced at load, never at step.
func (a *Assembler) ValidateDims() error {
	if a.hasChannel(observation.Sensor) ||
		a.hasChannel(observation.PointGoal) {
		sensor, err := a.task.AdditionalStates()
		if err != nil {
			return fmt.Errorf("validateDims: %v", err)
		}
		if sensor.Len() != a.sensorDim {
			return fmt.Errorf("validateDims: assembled state vector has "+
				"length %v but additional_states_dim is %v", sensor.Len(),
				a.sensorDim)
		}
	}

	if a.hasChannel(observation.AuxiliarySensor) {
		aux, err := a.task.AuxiliarySensor()
		if err != nil {
			return fmt.Errorf("validateDims: %v", err)
		}
		if aux.Len() != a.auxDim {
			return fmt.Errorf("validateDims: assembled auxiliary vector "+
				"has length %v but auxiliary_sensor_dim is %v", aux.Len(),
				a.auxDim)
		}
	}
	return nil
}

func (a *Assembler) hasChannel(ch observation.Channel) bool {
	for _, c := range a.channels {
		if c == ch {
			return true
		}
	}
	return false
}

// Assemble builds the observation bundle for the current physics
// state. The contacts argument holds the contact events collected over
// the step's sub-ticks.
func (a *Assembler) Assemble(
	contacts []physics.ContactEvent) (*observation.Bundle, error) {
	bundle := observation.NewBundle(a.channels)

	var sensor *mat.VecDense
	if a.hasChannel(observation.Sensor) ||
		a.hasChannel(observation.PointGoal) {
		var err error
		sensor, err = a.task.AdditionalStates()
		if err != nil {
			return nil, fmt.Errorf("assemble: %v", err)
		}
		if sensor.Len() != a.sensorDim {
			return nil, fmt.Errorf("assemble: assembled state vector has "+
				"length %v but additional_states_dim is %v", sensor.Len(),
				a.sensorDim)
		}
	}

	var images map[observation.Channel]*tensor.Dense
	if a.renderer != nil {
		requested := a.imageryChannels()
		if len(requested) > 0 {
			var err error
			images, err = a.renderer.Render(requested)
			if err != nil {
				return nil, fmt.Errorf("assemble: could not render: %v", err)
			}
		}
	}

	for _, ch := range a.channels {
		var err error
		switch ch {
		case observation.Sensor:
			err = bundle.Set(ch, observation.Vector{VecDense: sensor})

		case observation.AuxiliarySensor:
			var aux *mat.VecDense
			aux, err = a.task.AuxiliarySensor()
			if err == nil {
				err = bundle.Set(ch, observation.Vector{VecDense: aux})
			}

		case observation.PointGoal:
			goal := mat.NewVecDense(2, []float64{
				sensor.AtVec(0), sensor.AtVec(1),
			})
			err = bundle.Set(ch, observation.Vector{VecDense: goal})

		case observation.RGB, observation.Normal, observation.Seg:
			err = bundle.Set(ch, observation.Image{Dense: images[ch]})

		case observation.Depth:
			err = bundle.Set(ch, observation.Image{
				Dense: negated(images[ch]),
			})

		case observation.RGBFilled:
			var filled *tensor.Dense
			filled, err = a.completeRGB(images[observation.RGB])
			if err == nil {
				err = bundle.Set(ch, observation.Image{Dense: filled})
			}

		case observation.Bump:
			err = bundle.Set(ch, observation.Bool(baseContact(contacts)))

		case observation.Scan:
			var points *tensor.Dense
			points, err = a.scan()
			if err == nil {
				err = bundle.Set(ch, observation.Points{Dense: points})
			}
		}
		if err != nil {
			return nil, fmt.Errorf("assemble: channel %v: %v", ch, err)
		}
	}

	if a.normalize {
		if err := a.normalizeBundle(bundle); err != nil {
			return nil, fmt.Errorf("assemble: %v", err)
		}
	}
	return bundle, nil
}

// imageryChannels returns the configured channels the renderer must
// produce. The rgb_filled channel consumes the renderer's rgb output.
func (a *Assembler) imageryChannels() []observation.Channel {
	var requested []observation.Channel
	needRGB := false

	for _, ch := range a.channels {
		switch ch {
		case observation.RGB:
			needRGB = true
		case observation.RGBFilled:
			if !a.hasChannel(observation.RGB) {
				needRGB = true
			}
		case observation.Depth, observation.Normal, observation.Seg:
			requested = append(requested, ch)
		}
	}
	if needRGB {
		requested = append(requested, observation.RGB)
	}
	return requested
}

// completeRGB feeds the rendered RGB image through the learned
// completion network. The image is first quantized to uint8 levels,
// matching the network's training input.
func (a *Assembler) completeRGB(rgb *tensor.Dense) (*tensor.Dense, error) {
	quantized := rgb.Clone().(*tensor.Dense)
	data := quantized.Data().([]float64)
	for i, v := range data {
		data[i] = math.Floor(floatutils.Clip(v, 0, 1)*255) / 255
	}

	filled, err := a.completer.Complete(quantized)
	if err != nil {
		return nil, fmt.Errorf("completeRGB: %v", err)
	}
	return filled, nil
}

// negated returns a copy of an image tensor with every value negated.
// The renderer reports camera-frame z values, which are negative in
// front of the camera; depth observations are positive.
func negated(img *tensor.Dense) *tensor.Dense {
	out := img.Clone().(*tensor.Dense)
	data := out.Data().([]float64)
	for i, v := range data {
		data[i] = -v
	}
	return out
}

// baseContact reports whether any collected contact involves the
// robot's base link
func baseContact(contacts []physics.ContactEvent) bool {
	for _, ev := range contacts {
		if ev.LinkA == physics.BaseLink {
			return true
		}
	}
	return false
}

// scan casts the fixed angular ray grid from the scan sensor and
// returns the sensor-frame hit points as an (n, 3) tensor. Rays that
// hit nothing, hit the robot itself, or fall outside the valid
// fractional range are discarded; the point list is never padded.
func (a *Assembler) scan() (*tensor.Dense, error) {
	pose := a.robot.ScanPose()
	roll, pitch, yaw := pose.Orientation.X, pose.Orientation.Y,
		pose.Orientation.Z

	origins := make([]r3.Vec, len(a.scanDirs))
	ends := make([]r3.Vec, len(a.scanDirs))
	for i, dir := range a.scanDirs {
		world := physics.RotateBodyToWorld(dir, roll, pitch, yaw)
		origins[i] = pose.Position
		ends[i] = r3.Add(pose.Position, r3.Scale(ScanRange, world))
	}

	hits, err := a.facade.RaycastBatch(origins, ends)
	if err != nil {
		return nil, fmt.Errorf("scan: %v", err)
	}

	points := make([]float64, 0, 3*len(hits))
	n := 0
	for i, hit := range hits {
		if hit.Body == physics.NoBody || hit.Body == a.robot.Body() {
			continue
		}
		if hit.Fraction >= scanMaxFraction || hit.Fraction < scanMinFraction {
			continue
		}

		dist := hit.Fraction * ScanRange
		dir := a.scanDirs[i]
		points = append(points, dist*dir.X, dist*dir.Y, dist*dir.Z)
		n++
	}

	return tensor.New(tensor.WithShape(n, 3),
		tensor.WithBacking(points)), nil
}

// normalizeBundle clips each configured channel to its bounds and maps
// it affinely onto [-1, 1]
func (a *Assembler) normalizeBundle(bundle *observation.Bundle) error {
	for _, ch := range a.channels {
		if ch == observation.Bump || ch == observation.Scan {
			continue
		}

		bounds, ok := a.normalizer[ch]
		if !ok {
			return fmt.Errorf("normalizeBundle: channel %v has no "+
				"normalization bounds", ch)
		}

		switch value := bundle.Get(ch).(type) {
		case observation.Vector:
			if err := normalizeVec(value.VecDense, bounds); err != nil {
				return fmt.Errorf("normalizeBundle: channel %v: %v", ch,
					err)
			}
		case observation.Image:
			normalizeImage(value.Dense, bounds)
		}
	}
	return nil
}

// normalizeVec normalizes a vector in place. Single-element bounds
// broadcast across all components.
func normalizeVec(v *mat.VecDense, bounds NormBounds) error {
	if len(bounds.Min) != 1 && len(bounds.Min) != v.Len() {
		return fmt.Errorf("normalizeVec: %v bounds for a length-%v vector",
			len(bounds.Min), v.Len())
	}

	for i := 0; i < v.Len(); i++ {
		lo, hi := bounds.Min[0], bounds.Max[0]
		if len(bounds.Min) > 1 {
			lo, hi = bounds.Min[i], bounds.Max[i]
		}

		mid := (hi + lo) / 2
		mag := (hi - lo) / 2
		v.SetVec(i, (floatutils.Clip(v.AtVec(i), lo, hi)-mid)/mag)
	}
	return nil
}

// normalizeImage normalizes an image tensor in place using the
// channel's scalar bounds
func normalizeImage(img *tensor.Dense, bounds NormBounds) {
	lo, hi := bounds.Min[0], bounds.Max[0]
	mid := (hi + lo) / 2
	mag := (hi - lo) / 2

	data := img.Data().([]float64)
	for i, v := range data {
		data[i] = (floatutils.Clip(v, lo, hi) - mid) / mag
	}
}
