// Package transition implements batches of environment transitions
// used to perform training updates.
package transition

import "fmt"

// Batch packages together a fixed-size batch of transitions as five
// parallel sequences. Observations and next observations are stored in
// row major order, so that row i of each sequence describes the same
// transition. A Batch is produced externally, usually by sampling a
// replay source, and consumed whole by a single training update.
type Batch struct {
	// Observations holds the (N x features) observation matrix in row
	// major order
	Observations []float64

	// Actions holds the N discrete action indices taken at each
	// observation
	Actions []int

	// Rewards holds the N scalar rewards
	Rewards []float64

	// Dones holds the N episode-termination flags. A flag is 1 if the
	// transition ended its episode and 0 otherwise.
	Dones []float64

	// NextObservations holds the (N x features) matrix of observations
	// following each transition, in row major order
	NextObservations []float64
}

// New creates and returns a new Batch
func New(obs []float64, actions []int, rewards, dones,
	nextObs []float64) Batch {
	return Batch{
		Observations:     obs,
		Actions:          actions,
		Rewards:          rewards,
		Dones:            dones,
		NextObservations: nextObs,
	}
}

// Size returns the number of transitions in the Batch given the
// length of a single observation vector
func (b Batch) Size(features int) int {
	if features <= 0 {
		return 0
	}
	return len(b.Observations) / features
}

// Validate returns an error if the Batch violates the batch contract:
// all five sequences must describe the same number of transitions,
// termination flags must be exactly 0 or 1, and action indices must be
// in [0, numActions).
func (b Batch) Validate(features, numActions int) error {
	if features <= 0 {
		return fmt.Errorf("validate: features must be positive \n\thave(%v)",
			features)
	}
	if len(b.Observations) == 0 {
		return fmt.Errorf("validate: batch has no observations")
	}
	if len(b.Observations)%features != 0 {
		return fmt.Errorf("validate: observations not divisible by feature "+
			"size \n\twant multiple of (%v) \n\thave(%v)", features,
			len(b.Observations))
	}
	if len(b.NextObservations) != len(b.Observations) {
		return fmt.Errorf("validate: next observations length mismatch "+
			"\n\twant(%v) \n\thave(%v)", len(b.Observations),
			len(b.NextObservations))
	}

	n := b.Size(features)
	if len(b.Actions) != n {
		return fmt.Errorf("validate: actions length mismatch \n\twant(%v) "+
			"\n\thave(%v)", n, len(b.Actions))
	}
	if len(b.Rewards) != n {
		return fmt.Errorf("validate: rewards length mismatch \n\twant(%v) "+
			"\n\thave(%v)", n, len(b.Rewards))
	}
	if len(b.Dones) != n {
		return fmt.Errorf("validate: dones length mismatch \n\twant(%v) "+
			"\n\thave(%v)", n, len(b.Dones))
	}

	for i, done := range b.Dones {
		if done != 0.0 && done != 1.0 {
			return fmt.Errorf("validate: done flag at row %v must be 0 or 1 "+
				"\n\thave(%v)", i, done)
		}
	}
	for i, action := range b.Actions {
		if action < 0 || action >= numActions {
			return fmt.Errorf("validate: action at row %v out of range "+
				"[0, %v) \n\thave(%v)", i, numActions, action)
		}
	}
	return nil
}
