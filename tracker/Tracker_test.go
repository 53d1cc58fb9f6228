package tracker

import (
	"path/filepath"
	"testing"
)

func TestScalarsRoundTrip(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "metrics.bin")

	s := NewScalars(filename)
	metrics := map[string]float64{"policy_loss": -0.5, "value_loss": 1.25}
	if err := s.Track(10, metrics); err != nil {
		t.Fatalf("could not track: %v", err)
	}

	// Mutations after tracking must not leak into the record
	metrics["policy_loss"] = 99.0
	if err := s.Track(20, map[string]float64{"value_loss": 0.75}); err != nil {
		t.Fatalf("could not track: %v", err)
	}

	if err := s.Save(); err != nil {
		t.Fatalf("could not save: %v", err)
	}

	records, err := LoadData(filename)
	if err != nil {
		t.Fatalf("could not load: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("wrong number of records \n\twant(2) \n\thave(%v)",
			len(records))
	}
	if records[0].Step != 10 || records[1].Step != 20 {
		t.Errorf("wrong steps recorded: %v, %v", records[0].Step,
			records[1].Step)
	}
	if records[0].Metrics["policy_loss"] != -0.5 {
		t.Errorf("tracked metric mutated after Track \n\twant(-0.5) "+
			"\n\thave(%v)", records[0].Metrics["policy_loss"])
	}
}

func TestTrackRejectsEmptyMetrics(t *testing.T) {
	s := NewScalars(filepath.Join(t.TempDir(), "metrics.bin"))
	if err := s.Track(1, nil); err == nil {
		t.Error("expected empty metrics to be rejected")
	}
}
