package transition

import "testing"

// validBatch returns a batch of 3 transitions with 2 features each
func validBatch() Batch {
	return New(
		[]float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6},
		[]int{0, 1, 0},
		[]float64{1.0, 0.0, -1.0},
		[]float64{0.0, 0.0, 1.0},
		[]float64{0.2, 0.3, 0.4, 0.5, 0.6, 0.7},
	)
}

func TestValidateAcceptsValidBatch(t *testing.T) {
	b := validBatch()
	if err := b.Validate(2, 2); err != nil {
		t.Fatalf("valid batch rejected: %v", err)
	}
	if size := b.Size(2); size != 3 {
		t.Errorf("wrong batch size \n\twant(3) \n\thave(%v)", size)
	}
}

func TestValidateRejectsInvalidBatches(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Batch)
	}{
		{"short actions", func(b *Batch) { b.Actions = b.Actions[:2] }},
		{"short rewards", func(b *Batch) { b.Rewards = b.Rewards[:1] }},
		{"short dones", func(b *Batch) { b.Dones = b.Dones[:2] }},
		{"short next observations", func(b *Batch) {
			b.NextObservations = b.NextObservations[:4]
		}},
		{"ragged observations", func(b *Batch) {
			b.Observations = b.Observations[:5]
		}},
		{"fractional done", func(b *Batch) { b.Dones[1] = 0.5 }},
		{"negative action", func(b *Batch) { b.Actions[0] = -1 }},
		{"action too large", func(b *Batch) { b.Actions[2] = 2 }},
		{"empty", func(b *Batch) { *b = Batch{} }},
	}

	for _, test := range tests {
		b := validBatch()
		test.mutate(&b)
		if err := b.Validate(2, 2); err == nil {
			t.Errorf("%v: expected validation error, got none", test.name)
		}
	}
}
