// Package completion implements the learned image-completion pass
// applied to rendered RGB observations.
package completion

import (
	"gorgonia.org/tensor"
)

// Completer fills in an RGB image, returning an image of the same
// shape. Input and output are (resolution, resolution, 3) float64
// tensors with values in [0, 1].
type Completer interface {
	Complete(rgb *tensor.Dense) (*tensor.Dense, error)
}
