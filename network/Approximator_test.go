package network

import (
	"math"
	"strings"
	"testing"

	"github.com/samuelfneumann/goddpg/initwfn"
	G "gorgonia.org/gorgonia"
)

func testEncoder(t *testing.T, features int, hidden []int) *MLPEncoder {
	t.Helper()

	init, err := initwfn.NewGlorotN(1.0)
	if err != nil {
		t.Fatalf("could not create weight initializer: %v", err)
	}

	biases := make([]bool, len(hidden))
	acts := make([]*Activation, len(hidden))
	for i := range hidden {
		biases[i] = true
		acts[i] = ReLU()
	}

	enc, err := NewMLPEncoder(features, hidden, biases, acts, init)
	if err != nil {
		t.Fatalf("could not create encoder: %v", err)
	}
	return enc
}

func testPolicyHead(t *testing.T) *SoftmaxPolicyHead {
	t.Helper()

	init, err := initwfn.NewGlorotN(1.0)
	if err != nil {
		t.Fatalf("could not create weight initializer: %v", err)
	}
	head, err := NewSoftmaxPolicyHead(nil, nil, nil, init)
	if err != nil {
		t.Fatalf("could not create policy head: %v", err)
	}
	return head
}

func TestPolicyOutputsDistributions(t *testing.T) {
	const batch, features, numActions = 3, 4, 5

	enc := testEncoder(t, features, []int{8})
	approx, err := NewPolicy("online/policy", batch, numActions, enc,
		testPolicyHead(t))
	if err != nil {
		t.Fatalf("could not build policy: %v", err)
	}

	obs := make([]float64, batch*features)
	for i := range obs {
		obs[i] = float64(i) * 0.1
	}
	if err := approx.SetInput(obs); err != nil {
		t.Fatalf("could not set input: %v", err)
	}

	vm := G.NewTapeMachine(approx.Graph())
	defer vm.Close()
	if err := vm.RunAll(); err != nil {
		t.Fatalf("could not run policy: %v", err)
	}

	probs := approx.Output().Data().([]float64)
	if len(probs) != batch*numActions {
		t.Fatalf("wrong output length \n\twant(%v) \n\thave(%v)",
			batch*numActions, len(probs))
	}
	for row := 0; row < batch; row++ {
		sum := 0.0
		for col := 0; col < numActions; col++ {
			p := probs[row*numActions+col]
			if p < 0 {
				t.Errorf("row %v has negative probability %v", row, p)
			}
			sum += p
		}
		if math.Abs(sum-1.0) > 1e-8 {
			t.Errorf("row %v does not sum to 1 \n\thave(%v)", row, sum)
		}
	}
}

func TestInstancesDoNotAliasParameters(t *testing.T) {
	const batch, features, numActions = 2, 3, 2

	enc := testEncoder(t, features, []int{4})
	head := testPolicyHead(t)

	online, err := NewPolicy("online/policy", batch, numActions, enc, head)
	if err != nil {
		t.Fatalf("could not build online policy: %v", err)
	}
	target, err := NewPolicy("target/policy", batch, numActions, enc, head)
	if err != nil {
		t.Fatalf("could not build target policy: %v", err)
	}

	if online.Graph() == target.Graph() {
		t.Fatal("instances share a computational graph")
	}
	if len(online.Learnables()) != len(target.Learnables()) {
		t.Fatalf("parameter count mismatch \n\twant(%v) \n\thave(%v)",
			len(online.Learnables()), len(target.Learnables()))
	}

	for i, node := range online.Learnables() {
		other := target.Learnables()[i]
		if node == other {
			t.Errorf("parameter %v is shared between instances", node.Name())
		}
		if node.Value() == other.Value() {
			t.Errorf("parameter %v aliases storage with %v", node.Name(),
				other.Name())
		}
		if !strings.HasPrefix(node.Name(), "online/policy") {
			t.Errorf("parameter %v not under online/policy namespace",
				node.Name())
		}
		if !strings.HasPrefix(other.Name(), "target/policy") {
			t.Errorf("parameter %v not under target/policy namespace",
				other.Name())
		}
	}
}

func TestLearnablesSortedByName(t *testing.T) {
	enc := testEncoder(t, 3, []int{4, 4})
	approx, err := NewPolicy("online/policy", 2, 2, enc, testPolicyHead(t))
	if err != nil {
		t.Fatalf("could not build policy: %v", err)
	}

	learnables := approx.Learnables()
	for i := 1; i < len(learnables); i++ {
		if learnables[i-1].Name() >= learnables[i].Name() {
			t.Fatalf("learnables not sorted: %v before %v",
				learnables[i-1].Name(), learnables[i].Name())
		}
	}
}

// passThroughValueHead returns the encoded observations unchanged, so
// its output width never matches the action dimension unless the
// encoder output happens to be that wide.
type passThroughValueHead struct{}

func (passThroughValueHead) Values(obs *G.Node, _ string,
	_ int) (*Head, error) {
	return &Head{Output: obs}, nil
}

func TestOutputShapeMismatchIsBuildError(t *testing.T) {
	enc := testEncoder(t, 3, nil)

	// Encoder output width is 3 but 2 actions are requested
	_, err := NewValue("online/critic", 2, 2, enc, passThroughValueHead{})
	if err == nil {
		t.Fatal("expected shape mismatch to be a build error")
	}
}

func TestSetInputRejectsWrongLength(t *testing.T) {
	enc := testEncoder(t, 3, nil)
	approx, err := NewPolicy("online/policy", 2, 2, enc, testPolicyHead(t))
	if err != nil {
		t.Fatalf("could not build policy: %v", err)
	}

	if err := approx.SetInput(make([]float64, 5)); err == nil {
		t.Error("expected wrong-length input to be rejected")
	}
}
