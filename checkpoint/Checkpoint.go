// Package checkpoint persists approximator parameters to disk as JSON
// snapshots and restores them again.
package checkpoint

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/samuelfneumann/goddpg/network"
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// WeightTensor represents a single named parameter tensor
type WeightTensor struct {
	Name  string    `json:"name"`
	Shape []int     `json:"shape"`
	Data  []float64 `json:"data"`
}

// Snapshot is a point-in-time copy of the parameters of a set of
// approximators, keyed by approximator namespace.
type Snapshot struct {
	SavedAt  time.Time                 `json:"saved_at"`
	Networks map[string][]WeightTensor `json:"networks"`
}

// Take copies the current parameters of the given approximators into
// a new Snapshot
func Take(nets ...*network.Approximator) (*Snapshot, error) {
	snapshot := &Snapshot{
		SavedAt:  time.Now(),
		Networks: make(map[string][]WeightTensor, len(nets)),
	}

	for _, net := range nets {
		if _, exists := snapshot.Networks[net.Namespace()]; exists {
			return nil, fmt.Errorf("take: duplicate namespace %v",
				net.Namespace())
		}

		weights := make([]WeightTensor, 0, len(net.Learnables()))
		for _, node := range net.Learnables() {
			dense, ok := node.Value().(*tensor.Dense)
			if !ok {
				return nil, fmt.Errorf("take: parameter %v has no dense "+
					"value", node.Name())
			}

			data := append([]float64(nil), dense.Data().([]float64)...)
			shape := append([]int(nil), dense.Shape()...)
			weights = append(weights, WeightTensor{
				Name:  node.Name(),
				Shape: shape,
				Data:  data,
			})
		}
		snapshot.Networks[net.Namespace()] = weights
	}

	return snapshot, nil
}

// Restore sets the parameters of the given approximators to the values
// stored in the Snapshot. Every approximator must have an entry in the
// Snapshot with matching parameter names and shapes.
func (s *Snapshot) Restore(nets ...*network.Approximator) error {
	for _, net := range nets {
		weights, ok := s.Networks[net.Namespace()]
		if !ok {
			return fmt.Errorf("restore: no snapshot entry for namespace %v",
				net.Namespace())
		}
		if len(weights) != len(net.Learnables()) {
			return fmt.Errorf("restore: parameter count mismatch for %v "+
				"\n\twant(%v) \n\thave(%v)", net.Namespace(),
				len(net.Learnables()), len(weights))
		}

		byName := make(map[string]WeightTensor, len(weights))
		for _, w := range weights {
			byName[w.Name] = w
		}

		for _, node := range net.Learnables() {
			w, ok := byName[node.Name()]
			if !ok {
				return fmt.Errorf("restore: snapshot has no parameter %v",
					node.Name())
			}
			if !node.Shape().Eq(tensor.Shape(w.Shape)) {
				return fmt.Errorf("restore: shape mismatch for %v "+
					"\n\twant%v \n\thave%v", w.Name, node.Shape(), w.Shape)
			}

			value := tensor.New(
				tensor.WithShape(w.Shape...),
				tensor.WithBacking(append([]float64(nil), w.Data...)),
			)
			if err := G.Let(node, value); err != nil {
				return fmt.Errorf("restore: could not set parameter %v: %v",
					w.Name, err)
			}
		}
	}

	return nil
}

// Load reads a Snapshot previously written by a File checkpointer
func Load(filename string) (*Snapshot, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("load: could not read checkpoint: %v", err)
	}

	var snapshot Snapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil, fmt.Errorf("load: could not decode checkpoint: %v", err)
	}
	return &snapshot, nil
}
