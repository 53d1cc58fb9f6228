// Package catddpg implements DDPG-style training for discrete action
// spaces. The deterministic policy of DDPG is replaced by a stochastic
// categorical policy: the actor outputs a probability distribution
// over actions and is pushed toward actions the critic currently rates
// highly, while the critic is regressed toward a bootstrapped temporal
// difference target computed through lagged target copies of both
// networks.
package catddpg

import (
	"fmt"

	"github.com/samuelfneumann/goddpg/solver"
)

// Default configuration values
const (
	DefaultDiscount         = 0.99
	DefaultPolicyLR         = 2.5e-4
	DefaultValueLR          = 3e-4
	DefaultUpdateTargetFreq = 10000
	DefaultSaveModelFreq    = 1000
	DefaultLogFreq          = 10
)

// EpsilonSchedule describes a linear exploration schedule. It is
// accepted for configuration compatibility but is never consulted:
// action selection always samples from the policy's distribution.
type EpsilonSchedule struct {
	Start      float64
	End        float64
	DecaySteps int
}

// Config represents a configuration for creating a CatDDPG agent
type Config struct {
	// DimAct is the number of discrete actions
	DimAct int

	// BatchSize is the number of transitions per training batch
	BatchSize int

	// Discount is the reward discount factor γ
	Discount float64

	// PolicyLR and ValueLR are the learning rates used when no
	// explicit solver is given
	PolicyLR float64
	ValueLR  float64

	// PolicySolver and ValueSolver adapt the online policy and online
	// critic weights. If nil, Adam solvers with PolicyLR and ValueLR
	// are used.
	PolicySolver *solver.Solver
	ValueSolver  *solver.Solver

	// UpdateTargetFreq is the number of training steps between hard
	// synchronizations of the target networks
	UpdateTargetFreq int

	// SaveModelFreq is the number of training steps between
	// checkpoints
	SaveModelFreq int

	// LogFreq is the number of training steps between tracked loss
	// records
	LogFreq int

	// Epsilon is accepted but never consulted; see EpsilonSchedule
	Epsilon *EpsilonSchedule
}

// NewConfig returns a Config for dimAct actions and the given batch
// size, with all other fields set to their defaults
func NewConfig(dimAct, batchSize int) Config {
	return Config{
		DimAct:           dimAct,
		BatchSize:        batchSize,
		Discount:         DefaultDiscount,
		PolicyLR:         DefaultPolicyLR,
		ValueLR:          DefaultValueLR,
		UpdateTargetFreq: DefaultUpdateTargetFreq,
		SaveModelFreq:    DefaultSaveModelFreq,
		LogFreq:          DefaultLogFreq,
	}
}

// Validate returns an error describing whether or not the
// configuration is valid.
func (c Config) Validate() error {
	if c.DimAct <= 0 {
		return fmt.Errorf("config: DimAct must be positive \n\thave(%v)",
			c.DimAct)
	}
	if c.BatchSize <= 0 {
		return fmt.Errorf("config: BatchSize must be positive \n\thave(%v)",
			c.BatchSize)
	}
	if c.Discount < 0 || c.Discount > 1 {
		return fmt.Errorf("config: Discount must be in [0, 1] \n\thave(%v)",
			c.Discount)
	}
	if c.PolicySolver == nil && c.PolicyLR <= 0 {
		return fmt.Errorf("config: PolicyLR must be positive \n\thave(%v)",
			c.PolicyLR)
	}
	if c.ValueSolver == nil && c.ValueLR <= 0 {
		return fmt.Errorf("config: ValueLR must be positive \n\thave(%v)",
			c.ValueLR)
	}
	if c.UpdateTargetFreq <= 0 {
		return fmt.Errorf("config: UpdateTargetFreq must be positive "+
			"\n\thave(%v)", c.UpdateTargetFreq)
	}
	if c.SaveModelFreq <= 0 {
		return fmt.Errorf("config: SaveModelFreq must be positive "+
			"\n\thave(%v)", c.SaveModelFreq)
	}
	if c.LogFreq <= 0 {
		return fmt.Errorf("config: LogFreq must be positive \n\thave(%v)",
			c.LogFreq)
	}
	return nil
}

// policySolver returns the solver that adapts the online policy
func (c Config) policySolver() (*solver.Solver, error) {
	if c.PolicySolver != nil {
		return c.PolicySolver, nil
	}
	return solver.NewDefaultAdam(c.PolicyLR, c.BatchSize)
}

// valueSolver returns the solver that adapts the online critic
func (c Config) valueSolver() (*solver.Solver, error) {
	if c.ValueSolver != nil {
		return c.ValueSolver, nil
	}
	return solver.NewDefaultAdam(c.ValueLR, c.BatchSize)
}
