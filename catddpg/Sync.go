package catddpg

import (
	"fmt"

	"github.com/samuelfneumann/goddpg/network"
	G "gorgonia.org/gorgonia"
)

// paramPair pairs a destination parameter with the source parameter
// whose value it receives on synchronization
type paramPair struct {
	dst *G.Node
	src *G.Node
}

// pairParams pairs each parameter of dst with its counterpart in src
// positionally. Both approximators enumerate their parameters sorted
// by node name, so structurally identical networks pair weight with
// weight and bias with bias. A length mismatch means the two networks
// have structurally diverged and is not recoverable.
func pairParams(dst, src *network.Approximator) ([]paramPair, error) {
	dstParams := dst.Learnables()
	srcParams := src.Learnables()
	if len(dstParams) != len(srcParams) {
		return nil, fmt.Errorf("pairparams: parameter count mismatch "+
			"between %v and %v \n\twant(%v) \n\thave(%v)", dst.Namespace(),
			src.Namespace(), len(srcParams), len(dstParams))
	}

	pairs := make([]paramPair, len(dstParams))
	for i := range dstParams {
		pairs[i] = paramPair{dst: dstParams[i], src: srcParams[i]}
	}
	return pairs, nil
}

// copyPairs assigns each destination parameter the current value of
// its paired source parameter (hard copy)
func copyPairs(pairs []paramPair) error {
	for _, pair := range pairs {
		src := pair.src.Clone()
		err := G.Let(pair.dst, src.(*G.Node).Value())
		if err != nil {
			return fmt.Errorf("copypairs: could not copy %v: %v",
				pair.src.Name(), err)
		}
	}
	return nil
}

// synchronizer performs hard updates of the target networks. The
// policy and critic copies form a single synchronization unit: both
// target networks always advance together.
type synchronizer struct {
	policyPairs []paramPair
	criticPairs []paramPair
}

// newSynchronizer pairs the target parameters of both network pairs
// with their online counterparts. Pairing failures are configuration
// errors surfaced before any training step runs.
func newSynchronizer(nets *networkPair) (*synchronizer, error) {
	policyPairs, err := pairParams(nets.targetPolicy, nets.onlinePolicy)
	if err != nil {
		return nil, fmt.Errorf("newsynchronizer: %v", err)
	}

	criticPairs, err := pairParams(nets.targetCritic, nets.onlineCritic)
	if err != nil {
		return nil, fmt.Errorf("newsynchronizer: %v", err)
	}

	return &synchronizer{
		policyPairs: policyPairs,
		criticPairs: criticPairs,
	}, nil
}

// sync hard-copies the online policy and online critic parameters
// into their target counterparts
func (s *synchronizer) sync() error {
	if err := copyPairs(s.policyPairs); err != nil {
		return fmt.Errorf("sync: could not copy policy parameters: %v", err)
	}
	if err := copyPairs(s.criticPairs); err != nil {
		return fmt.Errorf("sync: could not copy critic parameters: %v", err)
	}
	return nil
}
