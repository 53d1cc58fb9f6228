package checkpoint

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/samuelfneumann/goddpg/network"
)

// File checkpoints a fixed set of approximators, writing each snapshot
// to a separate JSON file with an enumerated filename.
type File struct {
	nets []*network.Approximator

	// filename returns the name of the next file to save a snapshot in
	filename func() string
}

// NewFile returns a checkpointer that saves the parameters of nets to
// enumerated files prefix1.json, prefix2.json, ... in dir.
func NewFile(dir, prefix string,
	nets ...*network.Approximator) *File {
	return &File{
		nets:     nets,
		filename: Enumerator(dir, prefix, "json"),
	}
}

// Checkpoint takes a snapshot of the tracked approximators and writes
// it to the next enumerated file
func (f *File) Checkpoint() error {
	snapshot, err := Take(f.nets...)
	if err != nil {
		return fmt.Errorf("checkpoint: %v", err)
	}

	data, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("checkpoint: could not encode snapshot: %v", err)
	}

	filename := f.filename()
	if err := os.WriteFile(filename, data, 0o644); err != nil {
		return fmt.Errorf("checkpoint: could not write %v: %v", filename,
			err)
	}
	return nil
}

// Enumerator returns a function that generates enumerated filenames
// dir/prefix1.ext, dir/prefix2.ext, ... on successive calls.
func Enumerator(dir, prefix, ext string) func() string {
	i := 0
	return func() string {
		i++
		return filepath.Join(dir, fmt.Sprintf("%v%v.%v", prefix, i, ext))
	}
}
