package catddpg

import (
	"fmt"

	"github.com/samuelfneumann/goddpg/network"
	"github.com/samuelfneumann/goddpg/transition"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/floats"
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// Tracker records the loss metrics produced during training. A nil
// Tracker disables logging.
type Tracker interface {
	Track(step int, metrics map[string]float64) error
}

// Checkpointer persists the current network parameters. A nil
// Checkpointer disables checkpointing.
type Checkpointer interface {
	Checkpoint() error
}

// CatDDPG trains a stochastic categorical policy and an action value
// critic from batches of transitions. Training steps are synchronous:
// Update returns only after both gradient updates and any triggered
// synchronization, checkpointing, and logging have completed. Callers
// must serialize calls to Update.
type CatDDPG struct {
	config Config

	enc        network.ObservationEncoder
	policyHead network.PolicyHead
	valueHead  network.ValueHead

	nets  *networkPair
	sync  *synchronizer
	steps *Counter

	// Online policy training graph. criticValues is the input node fed
	// the online critic's action value estimates, so no gradient flows
	// into the critic from the policy loss.
	policyVM      G.VM
	policySolver  G.Solver
	criticValues  *G.Node
	policyLossVal G.Value

	// Online critic training graph. takenActions one-hot encodes the
	// batch's recorded actions; backup holds the fixed regression
	// targets, so no gradient flows through the bootstrap term.
	criticVM      G.VM
	criticSolver  G.Solver
	takenActions  *G.Node
	backup        *G.Node
	criticLossVal G.Value

	// Forward-only passes of the target networks
	targetPolicyVM G.VM
	targetCriticVM G.VM

	// Inference-time copy of the online policy, rebuilt whenever the
	// requested batch size changes
	behaviour   *network.Approximator
	behaviourVM G.VM

	rng rand.Source

	tracker      Tracker
	checkpointer Checkpointer
}

// New creates and returns a new CatDDPG agent. The encoder and heads
// are invoked once per network instance to build the four
// approximators; configuration errors, including output shape and
// parameter pairing mismatches, surface here before any training step
// can run.
func New(config Config, enc network.ObservationEncoder,
	policyHead network.PolicyHead, valueHead network.ValueHead,
	seed uint64) (*CatDDPG, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("new: %v", err)
	}
	if enc == nil || policyHead == nil || valueHead == nil {
		return nil, fmt.Errorf("new: encoder and heads may not be nil")
	}

	nets, err := buildNetworkPair(config.BatchSize, config.DimAct, enc,
		policyHead, valueHead)
	if err != nil {
		return nil, fmt.Errorf("new: %v", err)
	}

	sync, err := newSynchronizer(nets)
	if err != nil {
		return nil, fmt.Errorf("new: %v", err)
	}

	agent := &CatDDPG{
		config:     config,
		enc:        enc,
		policyHead: policyHead,
		valueHead:  valueHead,
		nets:       nets,
		sync:       sync,
		steps:      NewCounter(),
		rng:        rand.NewSource(seed),
	}

	if err := agent.buildPolicyLoss(); err != nil {
		return nil, fmt.Errorf("new: %v", err)
	}
	if err := agent.buildCriticLoss(); err != nil {
		return nil, fmt.Errorf("new: %v", err)
	}
	agent.targetPolicyVM = G.NewTapeMachine(nets.targetPolicy.Graph())
	agent.targetCriticVM = G.NewTapeMachine(nets.targetCritic.Graph())

	policySolver, err := config.policySolver()
	if err != nil {
		return nil, fmt.Errorf("new: could not create policy solver: %v",
			err)
	}
	agent.policySolver = policySolver

	valueSolver, err := config.valueSolver()
	if err != nil {
		return nil, fmt.Errorf("new: could not create value solver: %v", err)
	}
	agent.criticSolver = valueSolver

	return agent, nil
}

// buildPolicyLoss adds the policy loss to the online policy's graph:
// the negative mean over the batch of the expected action value under
// the policy's distribution.
func (c *CatDDPG) buildPolicyLoss() error {
	g := c.nets.onlinePolicy.Graph()
	c.criticValues = G.NewMatrix(
		g,
		tensor.Float64,
		G.WithShape(c.config.BatchSize, c.config.DimAct),
		G.WithName("criticValues"),
	)

	expected := G.Must(G.HadamardProd(c.nets.onlinePolicy.OutputNode(),
		c.criticValues))
	expected = G.Must(G.Sum(expected, 1))
	loss := G.Must(G.Mean(expected))
	loss = G.Must(G.Neg(loss))
	G.Read(loss, &c.policyLossVal)

	if _, err := G.Grad(loss,
		c.nets.onlinePolicy.Learnables()...); err != nil {
		return fmt.Errorf("buildpolicyloss: could not compute policy "+
			"gradient: %v", err)
	}

	c.policyVM = G.NewTapeMachine(g,
		G.BindDualValues(c.nets.onlinePolicy.Learnables()...))
	return nil
}

// buildCriticLoss adds the critic loss to the online critic's graph:
// the mean squared difference between the value estimates of the taken
// actions and their backup targets.
func (c *CatDDPG) buildCriticLoss() error {
	g := c.nets.onlineCritic.Graph()
	c.takenActions = G.NewMatrix(
		g,
		tensor.Float64,
		G.WithShape(c.config.BatchSize, c.config.DimAct),
		G.WithName("takenActions"),
	)
	c.backup = G.NewVector(
		g,
		tensor.Float64,
		G.WithShape(c.config.BatchSize),
		G.WithName("backup"),
	)

	qTaken := G.Must(G.HadamardProd(c.nets.onlineCritic.OutputNode(),
		c.takenActions))
	qTaken = G.Must(G.Sum(qTaken, 1))
	losses := G.Must(G.Sub(c.backup, qTaken))
	losses = G.Must(G.Square(losses))
	loss := G.Must(G.Mean(losses))
	G.Read(loss, &c.criticLossVal)

	if _, err := G.Grad(loss,
		c.nets.onlineCritic.Learnables()...); err != nil {
		return fmt.Errorf("buildcriticloss: could not compute critic "+
			"gradient: %v", err)
	}

	c.criticVM = G.NewTapeMachine(g,
		G.BindDualValues(c.nets.onlineCritic.Learnables()...))
	return nil
}

// Update performs one training step on the batch: one gradient update
// of the online policy and one of the online critic, followed by the
// periodic triggers in fixed order: target synchronization, then
// checkpointing, then logging. Any collaborator error propagates
// unchanged; no retry is attempted.
func (c *CatDDPG) Update(b transition.Batch) error {
	features := c.enc.Features()
	if err := b.Validate(features, c.config.DimAct); err != nil {
		return fmt.Errorf("update: %v", err)
	}
	if n := b.Size(features); n != c.config.BatchSize {
		return fmt.Errorf("update: batch has %v transitions \n\twant(%v)",
			n, c.config.BatchSize)
	}

	backup, err := c.backupFor(b)
	if err != nil {
		return fmt.Errorf("update: %v", err)
	}
	if _, _, _, err := c.runLosses(b, backup, true); err != nil {
		return fmt.Errorf("update: %v", err)
	}

	step := c.steps.Increment()

	if step%c.config.UpdateTargetFreq == 0 {
		if err := c.sync.sync(); err != nil {
			return fmt.Errorf("update: %v", err)
		}
	}
	if step%c.config.SaveModelFreq == 0 && c.checkpointer != nil {
		if err := c.checkpointer.Checkpoint(); err != nil {
			return fmt.Errorf("update: could not checkpoint at step %v: %v",
				step, err)
		}
	}
	if step%c.config.LogFreq == 0 && c.tracker != nil {
		metrics, err := c.lossRecord(b)
		if err != nil {
			return fmt.Errorf("update: %v", err)
		}
		if err := c.tracker.Track(step, metrics); err != nil {
			return fmt.Errorf("update: could not track at step %v: %v",
				step, err)
		}
	}

	return nil
}

// backupFor computes the fixed regression targets for the critic: one
// action per row is drawn from the target policy's distribution and
// the target critic's estimate at that action is bootstrapped into
//
//	r + γ * (1 - done) * q
//
// The target networks are evaluated on the current observations, not
// the next observations; the batch's next observations are validated
// but not consumed here.
func (c *CatDDPG) backupFor(b transition.Batch) ([]float64, error) {
	if err := c.nets.targetPolicy.SetInput(b.Observations); err != nil {
		return nil, err
	}
	if err := c.targetPolicyVM.RunAll(); err != nil {
		return nil, fmt.Errorf("backupfor: could not run target policy: %v",
			err)
	}
	probs := append([]float64(nil),
		c.nets.targetPolicy.Output().Data().([]float64)...)
	c.targetPolicyVM.Reset()

	if err := validateDistributions(probs, c.config.DimAct); err != nil {
		return nil, err
	}
	targetActions := sampleRows(probs, c.config.DimAct, c.rng)

	if err := c.nets.targetCritic.SetInput(b.Observations); err != nil {
		return nil, err
	}
	if err := c.targetCriticVM.RunAll(); err != nil {
		return nil, fmt.Errorf("backupfor: could not run target critic: %v",
			err)
	}
	qTarget := append([]float64(nil),
		c.nets.targetCritic.Output().Data().([]float64)...)
	c.targetCriticVM.Reset()

	qNext, err := gather(qTarget, c.config.DimAct, targetActions)
	if err != nil {
		return nil, err
	}
	return backupTargets(b.Rewards, b.Dones, qNext, c.config.Discount), nil
}

// runLosses runs the forward passes of both online networks against
// the batch and the given backup targets, returning the policy loss,
// critic loss, and the maximum online action value estimate. When step
// is true, both solvers apply one gradient update each; the policy
// update always consumes the critic's pre-update estimates.
func (c *CatDDPG) runLosses(b transition.Batch, backup []float64,
	step bool) (float64, float64, float64, error) {
	// Critic forward pass and gradients; its output also provides the
	// action values for the policy loss
	if err := c.nets.onlineCritic.SetInput(b.Observations); err != nil {
		return 0, 0, 0, err
	}
	actions := tensor.New(
		tensor.WithShape(c.config.BatchSize, c.config.DimAct),
		tensor.WithBacking(oneHot(b.Actions, c.config.DimAct)),
	)
	if err := G.Let(c.takenActions, actions); err != nil {
		return 0, 0, 0, fmt.Errorf("runlosses: could not set taken "+
			"actions: %v", err)
	}
	backupTensor := tensor.New(
		tensor.WithShape(c.config.BatchSize),
		tensor.WithBacking(backup),
	)
	if err := G.Let(c.backup, backupTensor); err != nil {
		return 0, 0, 0, fmt.Errorf("runlosses: could not set backup: %v",
			err)
	}
	if err := c.criticVM.RunAll(); err != nil {
		return 0, 0, 0, fmt.Errorf("runlosses: could not run critic: %v",
			err)
	}
	qOnline := append([]float64(nil),
		c.nets.onlineCritic.Output().Data().([]float64)...)

	// Policy forward pass against the pre-update critic estimates
	if err := c.nets.onlinePolicy.SetInput(b.Observations); err != nil {
		return 0, 0, 0, err
	}
	qTensor := tensor.New(
		tensor.WithShape(c.config.BatchSize, c.config.DimAct),
		tensor.WithBacking(append([]float64(nil), qOnline...)),
	)
	if err := G.Let(c.criticValues, qTensor); err != nil {
		return 0, 0, 0, fmt.Errorf("runlosses: could not set critic "+
			"values: %v", err)
	}
	if err := c.policyVM.RunAll(); err != nil {
		return 0, 0, 0, fmt.Errorf("runlosses: could not run policy: %v",
			err)
	}

	if step {
		if err := c.policySolver.Step(
			c.nets.onlinePolicy.Model()); err != nil {
			return 0, 0, 0, fmt.Errorf("runlosses: could not step policy "+
				"solver: %v", err)
		}
		if err := c.criticSolver.Step(
			c.nets.onlineCritic.Model()); err != nil {
			return 0, 0, 0, fmt.Errorf("runlosses: could not step critic "+
				"solver: %v", err)
		}
	}
	c.policyVM.Reset()
	c.criticVM.Reset()

	policyLoss := c.policyLossVal.Data().(float64)
	criticLoss := c.criticLossVal.Data().(float64)
	return policyLoss, criticLoss, floats.Max(qOnline), nil
}

// lossRecord recomputes the loss record on the batch with the current
// parameters, without applying any gradient update. The target action
// draw is fresh, so values reflect any synchronization that ran
// earlier in the same step.
func (c *CatDDPG) lossRecord(b transition.Batch) (map[string]float64,
	error) {
	backup, err := c.backupFor(b)
	if err != nil {
		return nil, err
	}

	policyLoss, criticLoss, maxQ, err := c.runLosses(b, backup, false)
	if err != nil {
		return nil, err
	}

	return map[string]float64{
		"policy_loss": policyLoss,
		"value_loss":  criticLoss,
		"max_q":       maxQ,
	}, nil
}

// GetAction evaluates the online policy on a batch of observations and
// draws one action per row from the resulting distributions. No
// gradient is computed. Draws consume the agent's RNG state, so
// repeated calls on the same input differ unless the agent was seeded
// identically.
func (c *CatDDPG) GetAction(obs []float64) ([]int, error) {
	features := c.enc.Features()
	if len(obs) == 0 || len(obs)%features != 0 {
		return nil, fmt.Errorf("getaction: invalid observation length "+
			"\n\twant multiple of (%v) \n\thave(%v)", features, len(obs))
	}
	n := len(obs) / features

	if c.behaviour == nil || c.behaviour.BatchSize() != n {
		if c.behaviourVM != nil {
			c.behaviourVM.Close()
		}
		behaviour, err := network.NewPolicy(behaviourScope, n,
			c.config.DimAct, c.enc, c.policyHead)
		if err != nil {
			return nil, fmt.Errorf("getaction: could not build behaviour "+
				"policy: %v", err)
		}
		c.behaviour = behaviour
		c.behaviourVM = G.NewTapeMachine(behaviour.Graph())
	}

	// Refresh the behaviour weights from the online policy
	pairs, err := pairParams(c.behaviour, c.nets.onlinePolicy)
	if err != nil {
		return nil, fmt.Errorf("getaction: %v", err)
	}
	if err := copyPairs(pairs); err != nil {
		return nil, fmt.Errorf("getaction: %v", err)
	}

	if err := c.behaviour.SetInput(obs); err != nil {
		return nil, fmt.Errorf("getaction: %v", err)
	}
	if err := c.behaviourVM.RunAll(); err != nil {
		return nil, fmt.Errorf("getaction: could not run policy: %v", err)
	}
	probs := append([]float64(nil),
		c.behaviour.Output().Data().([]float64)...)
	c.behaviourVM.Reset()

	if err := validateDistributions(probs, c.config.DimAct); err != nil {
		return nil, fmt.Errorf("getaction: %v", err)
	}
	return sampleRows(probs, c.config.DimAct, c.rng), nil
}

// SetTracker registers the logging collaborator invoked every LogFreq
// steps
func (c *CatDDPG) SetTracker(t Tracker) {
	c.tracker = t
}

// SetCheckpointer registers the checkpoint collaborator invoked every
// SaveModelFreq steps
func (c *CatDDPG) SetCheckpointer(ckpt Checkpointer) {
	c.checkpointer = ckpt
}

// Networks returns the four approximator instances owned by the agent
func (c *CatDDPG) Networks() []*network.Approximator {
	return c.nets.networks()
}

// Steps returns the number of completed training steps
func (c *CatDDPG) Steps() int {
	return c.steps.Count()
}

// Close releases the virtual machines owned by the agent
func (c *CatDDPG) Close() error {
	vms := []G.VM{c.policyVM, c.criticVM, c.targetPolicyVM,
		c.targetCriticVM, c.behaviourVM}

	var firstErr error
	for _, vm := range vms {
		if vm == nil {
			continue
		}
		if err := vm.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
