package catddpg

import (
	"fmt"

	"github.com/samuelfneumann/goddpg/network"
)

// Namespaces of the four approximator instances built for training.
// The behaviour namespace holds the inference-time copy of the online
// policy used for action selection.
const (
	onlinePolicyScope = "online/policy"
	onlineCriticScope = "online/critic"
	targetPolicyScope = "target/policy"
	targetCriticScope = "target/critic"
	behaviourScope    = "behaviour/policy"
)

// networkPair holds the {online, target} x {policy, critic}
// approximator instances. The four instances are built from the same
// injected constructors but live under disjoint namespaces on separate
// graphs, so they never share parameter storage. Target parameters are
// freshly initialized rather than copied from the online networks; the
// first synchronization establishes equality.
type networkPair struct {
	onlinePolicy *network.Approximator
	onlineCritic *network.Approximator
	targetPolicy *network.Approximator
	targetCritic *network.Approximator
}

// buildNetworkPair invokes the injected constructors once per instance
// to build the four approximators. Output shape mismatches surface
// here as configuration errors.
func buildNetworkPair(batch, dimAct int, enc network.ObservationEncoder,
	policyHead network.PolicyHead,
	valueHead network.ValueHead) (*networkPair, error) {
	onlinePolicy, err := network.NewPolicy(onlinePolicyScope, batch, dimAct,
		enc, policyHead)
	if err != nil {
		return nil, fmt.Errorf("buildnetworkpair: %v", err)
	}

	onlineCritic, err := network.NewValue(onlineCriticScope, batch, dimAct,
		enc, valueHead)
	if err != nil {
		return nil, fmt.Errorf("buildnetworkpair: %v", err)
	}

	targetPolicy, err := network.NewPolicy(targetPolicyScope, batch, dimAct,
		enc, policyHead)
	if err != nil {
		return nil, fmt.Errorf("buildnetworkpair: %v", err)
	}

	targetCritic, err := network.NewValue(targetCriticScope, batch, dimAct,
		enc, valueHead)
	if err != nil {
		return nil, fmt.Errorf("buildnetworkpair: %v", err)
	}

	return &networkPair{
		onlinePolicy: onlinePolicy,
		onlineCritic: onlineCritic,
		targetPolicy: targetPolicy,
		targetCritic: targetCritic,
	}, nil
}

// networks returns the four approximators of the pair
func (n *networkPair) networks() []*network.Approximator {
	return []*network.Approximator{
		n.onlinePolicy,
		n.onlineCritic,
		n.targetPolicy,
		n.targetCritic,
	}
}
