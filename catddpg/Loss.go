package catddpg

import (
	"fmt"
	"math"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"
)

// distributionTol is the tolerance used when checking that a policy
// output row sums to 1
const distributionTol = 1e-6

// backupTargets computes the bootstrapped regression targets
//
//	r + γ * (1 - done) * qNext
//
// for each row. Terminal rows (done = 1) regress to the immediate
// reward exactly, independent of the discount and of qNext.
func backupTargets(rewards, dones, qNext []float64,
	discount float64) []float64 {
	targets := make([]float64, len(rewards))
	for i := range targets {
		targets[i] = rewards[i] + discount*(1-dones[i])*qNext[i]
	}
	return targets
}

// gather returns vals[i][idx[i]] for each row i of the row major
// (len(idx) x cols) matrix vals
func gather(vals []float64, cols int, idx []int) ([]float64, error) {
	if len(vals) != cols*len(idx) {
		return nil, fmt.Errorf("gather: invalid matrix size \n\twant(%v) "+
			"\n\thave(%v)", cols*len(idx), len(vals))
	}

	out := make([]float64, len(idx))
	for i, j := range idx {
		if j < 0 || j >= cols {
			return nil, fmt.Errorf("gather: index %v out of range [0, %v) "+
				"at row %v", j, cols, i)
		}
		out[i] = vals[i*cols+j]
	}
	return out, nil
}

// sampleRows draws one categorical action per row of the row major
// (N x cols) probability matrix probs
func sampleRows(probs []float64, cols int, src rand.Source) []int {
	n := len(probs) / cols
	actions := make([]int, n)
	for i := 0; i < n; i++ {
		dist := distuv.NewCategorical(probs[i*cols:(i+1)*cols], src)
		actions[i] = int(dist.Rand())
	}
	return actions
}

// validateDistributions checks that each row of the row major
// (N x cols) matrix probs is a valid probability distribution
func validateDistributions(probs []float64, cols int) error {
	if cols <= 0 || len(probs)%cols != 0 {
		return fmt.Errorf("validatedistributions: invalid matrix size "+
			"\n\thave(%v x %v)", len(probs), cols)
	}

	for i := 0; i < len(probs)/cols; i++ {
		sum := 0.0
		for _, p := range probs[i*cols : (i+1)*cols] {
			if p < 0 {
				return fmt.Errorf("validatedistributions: row %v has "+
					"negative probability %v", i, p)
			}
			sum += p
		}
		if math.Abs(sum-1.0) > distributionTol {
			return fmt.Errorf("validatedistributions: row %v sums to %v, "+
				"not 1", i, sum)
		}
	}
	return nil
}

// meanSquaredError returns the mean squared difference between pred
// and target. This is the critic loss for predicted action values and
// their backup targets.
func meanSquaredError(pred, target []float64) float64 {
	sum := 0.0
	for i := range pred {
		diff := target[i] - pred[i]
		sum += diff * diff
	}
	return sum / float64(len(pred))
}

// expectedValueLoss returns the negative mean over the batch of the
// inner product between each row's action probabilities and action
// values. This is the policy loss: minimizing it pushes probability
// mass toward actions with high value estimates.
func expectedValueLoss(probs, qVals []float64, cols int) float64 {
	n := len(probs) / cols
	sum := 0.0
	for i := 0; i < n; i++ {
		for j := 0; j < cols; j++ {
			sum += probs[i*cols+j] * qVals[i*cols+j]
		}
	}
	return -sum / float64(n)
}

// oneHot encodes each index in idx as a one-hot row of width cols,
// returning the row major (len(idx) x cols) matrix
func oneHot(idx []int, cols int) []float64 {
	out := make([]float64, len(idx)*cols)
	for i, j := range idx {
		out[i*cols+j] = 1.0
	}
	return out
}
