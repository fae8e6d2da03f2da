// Package observation implements multi-channel environment
// observations. An observation is an ordered bundle of named channels,
// where each channel holds a differently shaped payload: a flat
// vector, an image, a variable-length point list, or a boolean.
package observation

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
	"gorgonia.org/tensor"
)

// Channel names a single component of an observation bundle
type Channel string

const (
	// Sensor is the task-specific state vector
	Sensor Channel = "sensor"

	// AuxiliarySensor is the task-specific auxiliary state vector
	AuxiliarySensor Channel = "auxiliary_sensor"

	// PointGoal is the 2-D projection of the goal-relative vector
	PointGoal Channel = "pointgoal"

	// RGB is a colour image rendered from the agent's viewpoint
	RGB Channel = "rgb"

	// Depth is a single-channel depth image
	Depth Channel = "depth"

	// Normal is a surface-normal image
	Normal Channel = "normal"

	// Seg is a segmentation-class image
	Seg Channel = "seg"

	// RGBFilled is the RGB image passed through a learned completion
	// network
	RGBFilled Channel = "rgb_filled"

	// Bump is true when the agent's base link is in contact with
	// anything
	Bump Channel = "bump"

	// Scan is a variable-length range-scan point list
	Scan Channel = "scan"
)

// Value is a single channel payload
type Value interface {
	// Copy returns a deep copy of the value
	Copy() Value
}

// Vector is a flat state-vector payload
type Vector struct {
	*mat.VecDense
}

// Copy returns a deep copy of the vector payload
func (v Vector) Copy() Value {
	out := mat.NewVecDense(v.Len(), nil)
	out.CopyVec(v.VecDense)
	return Vector{out}
}

// Image is an image payload of shape (height, width, channels)
type Image struct {
	*tensor.Dense
}

// Copy returns a deep copy of the image payload
func (i Image) Copy() Value {
	return Image{i.Dense.Clone().(*tensor.Dense)}
}

// Points is a variable-length point list of shape (n, 3)
type Points struct {
	*tensor.Dense
}

// Copy returns a deep copy of the point-list payload
func (p Points) Copy() Value {
	return Points{p.Dense.Clone().(*tensor.Dense)}
}

// Bool is a boolean payload
type Bool bool

// Copy returns a copy of the boolean payload
func (b Bool) Copy() Value {
	return b
}

// Bundle is an ordered mapping from channel name to payload. The
// channel set is fixed when the bundle is created; payloads are filled
// in channel by channel.
type Bundle struct {
	channels []Channel
	values   map[Channel]Value
}

// NewBundle constructs an empty observation bundle over a fixed
// channel set
func NewBundle(channels []Channel) *Bundle {
	ordered := make([]Channel, len(channels))
	copy(ordered, channels)

	return &Bundle{
		channels: ordered,
		values:   make(map[Channel]Value, len(channels)),
	}
}

// Channels returns the bundle's channel set in order
func (b *Bundle) Channels() []Channel {
	ordered := make([]Channel, len(b.channels))
	copy(ordered, b.channels)
	return ordered
}

// Has returns whether the bundle's channel set contains ch
func (b *Bundle) Has(ch Channel) bool {
	for _, c := range b.channels {
		if c == ch {
			return true
		}
	}
	return false
}

// Set records the payload for a channel. Set returns an error if the
// channel is not in the bundle's channel set.
func (b *Bundle) Set(ch Channel, v Value) error {
	if !b.Has(ch) {
		return fmt.Errorf("set: channel %v not in bundle channel set", ch)
	}
	b.values[ch] = v
	return nil
}

// Get returns the payload for a channel, or nil if the channel has no
// payload
func (b *Bundle) Get(ch Channel) Value {
	return b.values[ch]
}

// Vector returns the vector payload of a channel. It returns an error
// if the channel is absent or holds a non-vector payload.
func (b *Bundle) Vector(ch Channel) (*mat.VecDense, error) {
	v, ok := b.values[ch].(Vector)
	if !ok {
		return nil, fmt.Errorf("vector: channel %v holds no vector payload",
			ch)
	}
	return v.VecDense, nil
}

// Image returns the image payload of a channel. It returns an error if
// the channel is absent or holds a non-image payload.
func (b *Bundle) Image(ch Channel) (*tensor.Dense, error) {
	v, ok := b.values[ch].(Image)
	if !ok {
		return nil, fmt.Errorf("image: channel %v holds no image payload", ch)
	}
	return v.Dense, nil
}

// Points returns the point-list payload of a channel. It returns an
// error if the channel is absent or holds a non-point-list payload.
func (b *Bundle) Points(ch Channel) (*tensor.Dense, error) {
	v, ok := b.values[ch].(Points)
	if !ok {
		return nil, fmt.Errorf("points: channel %v holds no point-list "+
			"payload", ch)
	}
	return v.Dense, nil
}

// Bool returns the boolean payload of a channel. It returns an error
// if the channel is absent or holds a non-boolean payload.
func (b *Bundle) Bool(ch Channel) (bool, error) {
	v, ok := b.values[ch].(Bool)
	if !ok {
		return false, fmt.Errorf("bool: channel %v holds no boolean payload",
			ch)
	}
	return bool(v), nil
}

// Copy returns a deep copy of the bundle
func (b *Bundle) Copy() *Bundle {
	out := NewBundle(b.channels)
	for ch, v := range b.values {
		out.values[ch] = v.Copy()
	}
	return out
}

func (b *Bundle) String() string {
	return fmt.Sprintf("Bundle%v", b.channels)
}
