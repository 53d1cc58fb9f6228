// Package tracker implements collaborators that record scalar training
// metrics tagged with the training step that produced them.
package tracker

import (
	"encoding/gob"
	"fmt"
	"os"
)

// Tracker tracks scalar metric records during training
type Tracker interface {
	// Track records the metrics produced at a training step
	Track(step int, metrics map[string]float64) error

	// Save persists the tracked data
	Save() error
}

// Record is a single tracked metric record
type Record struct {
	Step    int
	Metrics map[string]float64
}

// Scalars accumulates metric records in memory and saves them to a
// gob-encoded file.
type Scalars struct {
	filename string
	records  []Record
}

// NewScalars creates and returns a new *Scalars Tracker which saves
// its data to filename
func NewScalars(filename string) *Scalars {
	return &Scalars{filename: filename}
}

// Track records the metrics produced at a training step. The metrics
// map is copied, so callers may reuse it between calls.
func (s *Scalars) Track(step int, metrics map[string]float64) error {
	if len(metrics) == 0 {
		return fmt.Errorf("track: no metrics to track at step %v", step)
	}

	copied := make(map[string]float64, len(metrics))
	for name, value := range metrics {
		copied[name] = value
	}
	s.records = append(s.records, Record{Step: step, Metrics: copied})

	return nil
}

// Save saves the data tracked by the Scalars Tracker to disk
func (s *Scalars) Save() error {
	file, err := os.Create(s.filename)
	if err != nil {
		return fmt.Errorf("save: could not open save file: %v", err)
	}
	defer file.Close()

	en := gob.NewEncoder(file)
	if err = en.Encode(s.records); err != nil {
		return fmt.Errorf("save: could not encode tracked data: %v", err)
	}
	return nil
}

// LoadData loads the records saved by a Scalars Tracker
func LoadData(filename string) ([]Record, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("loaddata: could not open file: %v", err)
	}
	defer file.Close()

	var records []Record
	dec := gob.NewDecoder(file)
	if err := dec.Decode(&records); err != nil {
		return nil, fmt.Errorf("loaddata: could not decode data: %v", err)
	}
	return records, nil
}
