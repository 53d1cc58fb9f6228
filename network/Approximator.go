package network

import (
	"fmt"
	"sort"

	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// Approximator is a single function approximator instance: a named,
// isolated collection of trainable parameters together with the graph
// that maps an observation batch to the approximator's output.
//
// Each Approximator lives on its own ExprGraph, so two instances built
// from the same encoder and head never alias parameters. The instance
// is identified by its namespace, which also prefixes all of its
// parameter node names.
type Approximator struct {
	namespace string
	g         *G.ExprGraph

	input  *G.Node
	output *G.Node
	outVal G.Value

	// learnables is kept sorted by node name so that two structurally
	// identical instances enumerate their parameters in the same order
	learnables G.Nodes
	model      []G.ValueGrad

	batchSize  int
	features   int
	numOutputs int
}

// NewPolicy creates an approximator that predicts a probability
// distribution over numActions actions for each observation in a
// batch. The encoder and head are invoked once; the output shape is
// validated against (batch x numActions).
func NewPolicy(namespace string, batch, numActions int,
	enc ObservationEncoder, head PolicyHead) (*Approximator, error) {
	g := G.NewGraph()

	encoding, err := enc.Encode(g, namespace, batch)
	if err != nil {
		return nil, fmt.Errorf("newpolicy: could not build encoder: %v", err)
	}

	h, err := head.Policy(encoding.Output, namespace, numActions)
	if err != nil {
		return nil, fmt.Errorf("newpolicy: could not build policy head: %v",
			err)
	}

	return newApproximator(namespace, batch, numActions, enc.Features(),
		encoding, h)
}

// NewValue creates an approximator that predicts one action value per
// action for each observation in a batch.
func NewValue(namespace string, batch, numActions int,
	enc ObservationEncoder, head ValueHead) (*Approximator, error) {
	g := G.NewGraph()

	encoding, err := enc.Encode(g, namespace, batch)
	if err != nil {
		return nil, fmt.Errorf("newvalue: could not build encoder: %v", err)
	}

	h, err := head.Values(encoding.Output, namespace, numActions)
	if err != nil {
		return nil, fmt.Errorf("newvalue: could not build value head: %v",
			err)
	}

	return newApproximator(namespace, batch, numActions, enc.Features(),
		encoding, h)
}

func newApproximator(namespace string, batch, numOutputs, features int,
	encoding *Encoding, head *Head) (*Approximator, error) {
	shape := head.Output.Shape()
	if len(shape) != 2 || shape[0] != batch || shape[1] != numOutputs {
		return nil, fmt.Errorf("newapproximator: invalid output shape for "+
			"%v \n\twant(%v x %v) \n\thave(%v)", namespace, batch,
			numOutputs, shape)
	}

	learnables := make(G.Nodes, 0,
		len(encoding.Learnables)+len(head.Learnables))
	learnables = append(learnables, encoding.Learnables...)
	learnables = append(learnables, head.Learnables...)
	sort.Slice(learnables, func(i, j int) bool {
		return learnables[i].Name() < learnables[j].Name()
	})

	approx := &Approximator{
		namespace:  namespace,
		g:          encoding.Input.Graph(),
		input:      encoding.Input,
		output:     head.Output,
		learnables: learnables,
		batchSize:  batch,
		features:   features,
		numOutputs: numOutputs,
	}
	G.Read(approx.output, &approx.outVal)

	return approx, nil
}

// Namespace returns the name identifying this approximator instance
func (a *Approximator) Namespace() string {
	return a.namespace
}

// Graph returns the computational graph of the Approximator
func (a *Approximator) Graph() *G.ExprGraph {
	return a.g
}

// BatchSize returns the number of observations per input batch
func (a *Approximator) BatchSize() int {
	return a.batchSize
}

// Features returns the length of a single observation vector
func (a *Approximator) Features() int {
	return a.features
}

// NumOutputs returns the number of values predicted per observation
func (a *Approximator) NumOutputs() int {
	return a.numOutputs
}

// SetInput sets the value of the input node before running the
// forward pass.
func (a *Approximator) SetInput(input []float64) error {
	if len(input) != a.features*a.batchSize {
		return fmt.Errorf("setinput: invalid number of inputs \n\twant(%v)"+
			"\n\thave(%v)", a.features*a.batchSize, len(input))
	}
	inputTensor := tensor.New(
		tensor.WithBacking(input),
		tensor.WithShape(a.input.Shape()...),
	)
	return G.Let(a.input, inputTensor)
}

// Learnables returns the learnable nodes of the Approximator, sorted
// by node name.
func (a *Approximator) Learnables() G.Nodes {
	return a.learnables
}

// Model returns the learnable nodes with their gradients.
func (a *Approximator) Model() []G.ValueGrad {
	// Lazy instantiation
	if a.model == nil {
		a.model = make([]G.ValueGrad, 0, len(a.learnables))
		for _, node := range a.learnables {
			a.model = append(a.model, node)
		}
	}
	return a.model
}

// OutputNode returns the node of the computational graph that stores
// the output of the Approximator
func (a *Approximator) OutputNode() *G.Node {
	return a.output
}

// Output returns the value of the output node from the last run of
// the Approximator's graph
func (a *Approximator) Output() G.Value {
	return a.outVal
}
