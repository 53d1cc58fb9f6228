// Package network implements function approximators for policies and
// action value functions using Gorgonia.
//
// Approximator architectures are not fixed by this package. Instead,
// the pieces that decide which layers exist are injected as strategy
// interfaces: an ObservationEncoder builds the observation-processing
// trunk, and a PolicyHead or ValueHead maps the trunk's output to the
// approximator's predictions. Every construction returns the learnable
// parameters it created, so that each approximator instance owns its
// parameter collection explicitly and no global registry is needed.
package network

import G "gorgonia.org/gorgonia"

// ObservationEncoder builds the observation-processing trunk of an
// approximator. Encode must be callable multiple times, producing a
// fresh, independent parameter set on each call.
type ObservationEncoder interface {
	// Features returns the length of a single observation vector
	Features() int

	// Encode builds the trunk on graph g for a batch of observations.
	// Parameter node names are prefixed with namespace.
	Encode(g *G.ExprGraph, namespace string, batch int) (*Encoding, error)
}

// Encoding is the result of running an ObservationEncoder: the input
// node that observation data is fed into, the encoded representation,
// and the learnable parameters the encoder created.
type Encoding struct {
	Input      *G.Node
	Output     *G.Node
	Learnables G.Nodes
}

// PolicyHead maps an encoded observation batch to a (batch x actions)
// matrix of action probabilities. Each row of the output must be a
// valid probability distribution.
type PolicyHead interface {
	Policy(obs *G.Node, namespace string, numActions int) (*Head, error)
}

// ValueHead maps an encoded observation batch to a (batch x actions)
// matrix of action value estimates.
type ValueHead interface {
	Values(obs *G.Node, namespace string, numActions int) (*Head, error)
}

// Head is the result of running a PolicyHead or ValueHead: the output
// node and the learnable parameters the head created.
type Head struct {
	Output     *G.Node
	Learnables G.Nodes
}
