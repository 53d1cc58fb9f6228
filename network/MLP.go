package network

import (
	"fmt"

	"github.com/samuelfneumann/goddpg/initwfn"
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// MLPEncoder is the stock ObservationEncoder: an input node followed
// by an optional stack of fully connected hidden layers. With no
// hidden layers the encoder passes observations through unchanged,
// which together with a head of hidden size []int{} yields a linear
// approximator.
type MLPEncoder struct {
	features    int
	hiddenSizes []int
	biases      []bool
	activations []*Activation
	init        *initwfn.InitWFn
}

// NewMLPEncoder creates and returns a new MLPEncoder. For index i,
// hiddenSizes[i] is the number of units in hidden layer i, biases[i]
// determines whether that layer has a bias unit, and activations[i] is
// its activation function.
func NewMLPEncoder(features int, hiddenSizes []int, biases []bool,
	activations []*Activation, init *initwfn.InitWFn) (*MLPEncoder, error) {
	if features <= 0 {
		return nil, fmt.Errorf("newmlpencoder: features must be positive "+
			"\n\thave(%v)", features)
	}
	if len(hiddenSizes) != len(biases) {
		return nil, fmt.Errorf("newmlpencoder: invalid number of biases "+
			"\n\twant(%v) \n\thave(%v)", len(hiddenSizes), len(biases))
	}
	if len(hiddenSizes) != len(activations) {
		return nil, fmt.Errorf("newmlpencoder: invalid number of "+
			"activations \n\twant(%v) \n\thave(%v)", len(hiddenSizes),
			len(activations))
	}
	if init == nil {
		return nil, fmt.Errorf("newmlpencoder: no weight initializer given")
	}

	return &MLPEncoder{
		features:    features,
		hiddenSizes: hiddenSizes,
		biases:      biases,
		activations: activations,
		init:        init,
	}, nil
}

// Features returns the length of a single observation vector
func (m *MLPEncoder) Features() int {
	return m.features
}

// Encode builds the encoder trunk on g under namespace for a batch of
// observations
func (m *MLPEncoder) Encode(g *G.ExprGraph, namespace string,
	batch int) (*Encoding, error) {
	if batch <= 0 {
		return nil, fmt.Errorf("encode: batch size must be positive "+
			"\n\thave(%v)", batch)
	}

	input := G.NewMatrix(
		g,
		tensor.Float64,
		G.WithShape(batch, m.features),
		G.WithName(namespace+"/input"),
		G.WithInit(G.Zeroes()),
	)

	out, learnables, err := buildFCLayers(input, namespace+"/enc",
		m.hiddenSizes, m.biases, m.activations, m.init.InitWFn())
	if err != nil {
		return nil, fmt.Errorf("encode: %v", err)
	}

	return &Encoding{
		Input:      input,
		Output:     out,
		Learnables: learnables,
	}, nil
}

// SoftmaxPolicyHead is the stock PolicyHead: fully connected hidden
// layers followed by a final linear layer of width numActions and a
// row-wise softmax, so that each output row is a valid probability
// distribution over actions.
type SoftmaxPolicyHead struct {
	hiddenSizes []int
	biases      []bool
	activations []*Activation
	init        *initwfn.InitWFn
}

// NewSoftmaxPolicyHead creates and returns a new SoftmaxPolicyHead.
// The final linear layer is always added; hiddenSizes may be empty.
func NewSoftmaxPolicyHead(hiddenSizes []int, biases []bool,
	activations []*Activation,
	init *initwfn.InitWFn) (*SoftmaxPolicyHead, error) {
	if err := validateHead(hiddenSizes, biases, activations, init); err != nil {
		return nil, fmt.Errorf("newsoftmaxpolicyhead: %v", err)
	}

	return &SoftmaxPolicyHead{
		hiddenSizes: hiddenSizes,
		biases:      biases,
		activations: activations,
		init:        init,
	}, nil
}

// Policy builds the head on the graph of obs under namespace
func (p *SoftmaxPolicyHead) Policy(obs *G.Node, namespace string,
	numActions int) (*Head, error) {
	out, learnables, err := headLayers(obs, namespace+"/pi", p.hiddenSizes,
		p.biases, p.activations, numActions, p.init.InitWFn())
	if err != nil {
		return nil, fmt.Errorf("policy: %v", err)
	}

	probs, err := G.SoftMax(out, 1)
	if err != nil {
		return nil, fmt.Errorf("policy: could not compute softmax: %v", err)
	}

	return &Head{Output: probs, Learnables: learnables}, nil
}

// LinearValueHead is the stock ValueHead: fully connected hidden
// layers followed by a final linear layer predicting one value per
// action.
type LinearValueHead struct {
	hiddenSizes []int
	biases      []bool
	activations []*Activation
	init        *initwfn.InitWFn
}

// NewLinearValueHead creates and returns a new LinearValueHead. The
// final linear layer is always added; hiddenSizes may be empty.
func NewLinearValueHead(hiddenSizes []int, biases []bool,
	activations []*Activation,
	init *initwfn.InitWFn) (*LinearValueHead, error) {
	if err := validateHead(hiddenSizes, biases, activations, init); err != nil {
		return nil, fmt.Errorf("newlinearvaluehead: %v", err)
	}

	return &LinearValueHead{
		hiddenSizes: hiddenSizes,
		biases:      biases,
		activations: activations,
		init:        init,
	}, nil
}

// Values builds the head on the graph of obs under namespace
func (v *LinearValueHead) Values(obs *G.Node, namespace string,
	numActions int) (*Head, error) {
	out, learnables, err := headLayers(obs, namespace+"/q", v.hiddenSizes,
		v.biases, v.activations, numActions, v.init.InitWFn())
	if err != nil {
		return nil, fmt.Errorf("values: %v", err)
	}

	return &Head{Output: out, Learnables: learnables}, nil
}

// headLayers builds the hidden layers of a head plus the final linear
// layer of width numActions with a bias unit and no activation
func headLayers(obs *G.Node, namespace string, hiddenSizes []int,
	biases []bool, activations []*Activation, numActions int,
	init G.InitWFn) (*G.Node, G.Nodes, error) {
	if numActions <= 0 {
		return nil, nil, fmt.Errorf("headlayers: numActions must be "+
			"positive \n\thave(%v)", numActions)
	}

	sizes := make([]int, len(hiddenSizes), len(hiddenSizes)+1)
	copy(sizes, hiddenSizes)
	sizes = append(sizes, numActions)

	withBias := make([]bool, len(biases), len(biases)+1)
	copy(withBias, biases)
	withBias = append(withBias, true)

	acts := make([]*Activation, len(activations), len(activations)+1)
	copy(acts, activations)
	acts = append(acts, Identity())

	return buildFCLayers(obs, namespace, sizes, withBias, acts, init)
}

func validateHead(hiddenSizes []int, biases []bool,
	activations []*Activation, init *initwfn.InitWFn) error {
	if len(hiddenSizes) != len(biases) {
		return fmt.Errorf("invalid number of biases \n\twant(%v) "+
			"\n\thave(%v)", len(hiddenSizes), len(biases))
	}
	if len(hiddenSizes) != len(activations) {
		return fmt.Errorf("invalid number of activations \n\twant(%v) "+
			"\n\thave(%v)", len(hiddenSizes), len(activations))
	}
	if init == nil {
		return fmt.Errorf("no weight initializer given")
	}
	return nil
}
