package checkpoint

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/samuelfneumann/goddpg/initwfn"
	"github.com/samuelfneumann/goddpg/network"
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

func testApproximators(t *testing.T) (*network.Approximator,
	*network.Approximator) {
	t.Helper()

	init, err := initwfn.NewGlorotN(1.0)
	if err != nil {
		t.Fatalf("could not create weight initializer: %v", err)
	}

	enc, err := network.NewMLPEncoder(3, []int{4}, []bool{true},
		[]*network.Activation{network.ReLU()}, init)
	if err != nil {
		t.Fatalf("could not create encoder: %v", err)
	}

	policyHead, err := network.NewSoftmaxPolicyHead(nil, nil, nil, init)
	if err != nil {
		t.Fatalf("could not create policy head: %v", err)
	}
	valueHead, err := network.NewLinearValueHead(nil, nil, nil, init)
	if err != nil {
		t.Fatalf("could not create value head: %v", err)
	}

	policy, err := network.NewPolicy("online/policy", 2, 2, enc, policyHead)
	if err != nil {
		t.Fatalf("could not build policy: %v", err)
	}
	critic, err := network.NewValue("online/critic", 2, 2, enc, valueHead)
	if err != nil {
		t.Fatalf("could not build critic: %v", err)
	}

	return policy, critic
}

func params(net *network.Approximator) [][]float64 {
	var out [][]float64
	for _, node := range net.Learnables() {
		data := node.Value().Data().([]float64)
		out = append(out, append([]float64(nil), data...))
	}
	return out
}

func perturb(t *testing.T, net *network.Approximator) {
	t.Helper()
	for _, node := range net.Learnables() {
		data := node.Value().Data().([]float64)
		fresh := make([]float64, len(data))
		for i := range fresh {
			fresh[i] = 7.5
		}
		value := tensor.New(
			tensor.WithShape(node.Shape()...),
			tensor.WithBacking(fresh),
		)
		if err := G.Let(node, value); err != nil {
			t.Fatalf("could not perturb parameter %v: %v", node.Name(), err)
		}
	}
}

func TestSnapshotRestoreRoundTrip(t *testing.T) {
	policy, critic := testApproximators(t)
	saved := params(policy)

	snapshot, err := Take(policy, critic)
	if err != nil {
		t.Fatalf("could not take snapshot: %v", err)
	}

	perturb(t, policy)
	if err := snapshot.Restore(policy, critic); err != nil {
		t.Fatalf("could not restore snapshot: %v", err)
	}

	restored := params(policy)
	for i := range saved {
		for j := range saved[i] {
			if saved[i][j] != restored[i][j] {
				t.Fatalf("parameter %v differs after restore "+
					"\n\twant(%v) \n\thave(%v)", i, saved[i][j],
					restored[i][j])
			}
		}
	}
}

func TestFileCheckpointEnumeratesAndLoads(t *testing.T) {
	policy, critic := testApproximators(t)
	dir := t.TempDir()

	f := NewFile(dir, "model", policy, critic)
	if err := f.Checkpoint(); err != nil {
		t.Fatalf("could not checkpoint: %v", err)
	}
	if err := f.Checkpoint(); err != nil {
		t.Fatalf("could not checkpoint twice: %v", err)
	}

	for _, name := range []string{"model1.json", "model2.json"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Errorf("expected checkpoint file %v: %v", name, err)
		}
	}

	snapshot, err := Load(filepath.Join(dir, "model2.json"))
	if err != nil {
		t.Fatalf("could not load snapshot: %v", err)
	}
	if len(snapshot.Networks) != 2 {
		t.Fatalf("wrong number of networks \n\twant(2) \n\thave(%v)",
			len(snapshot.Networks))
	}
	if err := snapshot.Restore(policy, critic); err != nil {
		t.Errorf("could not restore loaded snapshot: %v", err)
	}
}
