package network

import (
	"fmt"

	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// fcLayer implements a fully connected layer of a feed forward neural
// network
type fcLayer struct {
	weights *G.Node
	bias    *G.Node
	act     *Activation
}

// newFCLayer creates a fully connected layer on g with freshly
// initialized parameters. Parameter nodes are named
// namespace/L<index>/W and namespace/L<index>/b so that instances
// built under different namespaces never collide.
func newFCLayer(g *G.ExprGraph, namespace string, index, in, out int,
	bias bool, act *Activation, init G.InitWFn) *fcLayer {
	weights := G.NewMatrix(
		g,
		tensor.Float64,
		G.WithShape(in, out),
		G.WithName(fmt.Sprintf("%v/L%v/W", namespace, index)),
		G.WithInit(init),
	)

	var biasNode *G.Node
	if bias {
		biasNode = G.NewVector(
			g,
			tensor.Float64,
			G.WithShape(out),
			G.WithName(fmt.Sprintf("%v/L%v/b", namespace, index)),
			G.WithInit(init),
		)
	}

	return &fcLayer{
		weights: weights,
		bias:    biasNode,
		act:     act,
	}
}

// fwd adds the forward pass of the fcLayer to the computational graph
func (f *fcLayer) fwd(x *G.Node) (*G.Node, error) {
	x = G.Must(G.Mul(x, f.weights))
	if f.bias != nil {
		// Broadcast the bias weights to all samples along the batch
		// dimension
		x = G.Must(G.BroadcastAdd(x, f.bias, nil, []byte{0}))
	}
	if f.act == nil {
		return x, nil
	}
	return f.act.fwd(x)
}

// learnables returns the trainable parameter nodes of the fcLayer
func (f *fcLayer) learnables() G.Nodes {
	nodes := G.Nodes{f.weights}
	if f.bias != nil {
		nodes = append(nodes, f.bias)
	}
	return nodes
}

// buildFCLayers creates a stack of fully connected layers and runs the
// forward pass on the in node, returning the stack output and the
// learnables of all layers. The sizes parameter holds the output width
// of each layer in order.
func buildFCLayers(in *G.Node, namespace string, sizes []int, biases []bool,
	activations []*Activation, init G.InitWFn) (*G.Node, G.Nodes, error) {
	if len(sizes) != len(biases) {
		return nil, nil, fmt.Errorf("buildfclayers: invalid number of "+
			"biases \n\twant(%v) \n\thave(%v)", len(sizes), len(biases))
	}
	if len(sizes) != len(activations) {
		return nil, nil, fmt.Errorf("buildfclayers: invalid number of "+
			"activations \n\twant(%v) \n\thave(%v)", len(sizes),
			len(activations))
	}
	if !in.IsMatrix() {
		return nil, nil, fmt.Errorf("buildfclayers: input must be a matrix")
	}

	out := in
	features := in.Shape()[1]
	learnables := make(G.Nodes, 0, 2*len(sizes))

	var err error
	for i, size := range sizes {
		layer := newFCLayer(in.Graph(), namespace, i, features, size,
			biases[i], activations[i], init)
		if out, err = layer.fwd(out); err != nil {
			return nil, nil, fmt.Errorf("buildfclayers: could not compute "+
				"forward pass of layer %v: %v", i, err)
		}
		learnables = append(learnables, layer.learnables()...)
		features = size
	}

	return out, learnables, nil
}
