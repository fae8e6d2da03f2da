package completion

import (
	"fmt"

	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// Net is a learned image completion model: a fully connected
// encoder-decoder over the flattened image, with a sigmoid output so
// completed pixel values stay in [0, 1].
type Net struct {
	graph  *G.ExprGraph
	input  *G.Node
	output *G.Node
	vm     G.VM

	resolution int
	features   int
}

// NewNet creates an image completion network for square RGB images of
// the given resolution, with a hidden encoding of size hidden
func NewNet(resolution, hidden int) (*Net, error) {
	if resolution <= 0 {
		return nil, fmt.Errorf("newNet: resolution must be positive, "+
			"got %v", resolution)
	}
	if hidden <= 0 {
		return nil, fmt.Errorf("newNet: hidden size must be positive, "+
			"got %v", hidden)
	}

	features := resolution * resolution * 3
	graph := G.NewGraph()

	input := G.NewMatrix(graph, tensor.Float64,
		G.WithShape(1, features), G.WithName("input"),
		G.WithInit(G.Zeroes()))

	encode := G.NewMatrix(graph, tensor.Float64,
		G.WithShape(features, hidden), G.WithName("encodeWeights"),
		G.WithInit(G.GlorotN(1.0)))
	decode := G.NewMatrix(graph, tensor.Float64,
		G.WithShape(hidden, features), G.WithName("decodeWeights"),
		G.WithInit(G.GlorotN(1.0)))

	hiddenLayer := G.Must(G.Rectify(G.Must(G.Mul(input, encode))))

	output, err := G.Sigmoid(G.Must(G.Mul(hiddenLayer, decode)))
	if err != nil {
		return nil, fmt.Errorf("newNet: could not compute forward "+
			"pass: %v", err)
	}
	net := &Net{
		graph:      graph,
		input:      input,
		output:     output,
		vm:         G.NewTapeMachine(graph),
		resolution: resolution,
		features:   features,
	}
	return net, nil
}

// Complete runs an image through the network, producing the completed
// image. The input must be a (resolution, resolution, 3) tensor.
func (n *Net) Complete(rgb *tensor.Dense) (*tensor.Dense, error) {
	shape := rgb.Shape()
	if len(shape) != 3 || shape[0] != n.resolution ||
		shape[1] != n.resolution || shape[2] != 3 {
		return nil, fmt.Errorf("complete: expected a (%v, %v, 3) image, "+
			"got %v", n.resolution, n.resolution, shape)
	}

	data, ok := rgb.Data().([]float64)
	if !ok {
		return nil, fmt.Errorf("complete: image must hold float64 values")
	}

	backing := make([]float64, len(data))
	copy(backing, data)
	inputTensor := tensor.New(tensor.WithShape(1, n.features),
		tensor.WithBacking(backing))

	if err := G.Let(n.input, inputTensor); err != nil {
		return nil, fmt.Errorf("complete: could not set input: %v", err)
	}

	n.vm.Reset()
	if err := n.vm.RunAll(); err != nil {
		return nil, fmt.Errorf("complete: could not run forward pass: %v",
			err)
	}

	outputData := n.output.Value().Data().([]float64)
	filled := make([]float64, len(outputData))
	copy(filled, outputData)

	return tensor.New(
		tensor.WithShape(n.resolution, n.resolution, 3),
		tensor.WithBacking(filled)), nil
}
