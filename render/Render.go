// Package render defines the seam between navigation environments and
// the sensor-image pipeline. Environments select which imagery
// channels to request; how the images are synthesized is the
// renderer's concern.
package render

import (
	"gorgonia.org/tensor"

	"github.com/samuelfneumann/gonav/observation"
)

// Renderer synthesizes per-channel image buffers from the agent's
// viewpoint.
//
// Image tensors have shape (resolution, resolution, channels) with
// float64 values. Colour values lie in [0, 1]. The depth channel
// reports camera-frame z values, which are negative in front of the
// camera; consumers apply their own sign convention.
type Renderer interface {
	Render(channels []observation.Channel) (
		map[observation.Channel]*tensor.Dense, error)

	// Resolution returns the height and width in pixels of rendered
	// images
	Resolution() int
}
