package filechannel

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

const StateFile = "piano_roll_state.json"

// State is the piano roll snapshot exported by the DAW-side script.
type State struct {
	PPQ   int              `json:"ppq"`
	Notes []map[string]any `json:"notes"`
}

// StatePath returns the state file location inside dir.
func StatePath(dir string) string {
	return filepath.Join(dir, StateFile)
}

// ReadState loads the last exported snapshot. ok=false when none was exported yet.
func ReadState(dir string) (State, bool, error) {
	path := StatePath(dir)
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return State{}, false, nil
		}
		return State{}, false, fmt.Errorf("read state %q: %w: %w", path, ErrIO, err)
	}

	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.UseNumber()
	var state State
	if err := decoder.Decode(&state); err != nil {
		return State{}, false, fmt.Errorf("%w: state file: %v", ErrMalformed, err)
	}
	return state, true, nil
}
