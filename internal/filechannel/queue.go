package filechannel

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

const RequestFile = "mcp_request.json"

// Queue actions understood by the piano roll script.
const (
	ActionClear       = "clear"
	ActionAddNotes    = "add_notes"
	ActionAddChord    = "add_chord"
	ActionDeleteNotes = "delete_notes"
)

// Request is one queued piano roll edit.
type Request map[string]any

// Action returns the request's "action" field.
func (r Request) Action() string {
	action, _ := r["action"].(string)
	return action
}

// Note is a piano roll note in quarter-note units.
type Note struct {
	MIDI     int     `json:"midi"`
	Duration float64 `json:"duration"`
	Time     float64 `json:"time"`
	Velocity float64 `json:"velocity"`
}

// ChordNote is one voice of a chord; timing is shared by the enclosing request.
type ChordNote struct {
	MIDI     int     `json:"midi"`
	Velocity float64 `json:"velocity"`
}

// NoteRef identifies a note to delete by pitch and start.
type NoteRef struct {
	MIDI int     `json:"midi"`
	Time float64 `json:"time"`
}

func ClearRequest() Request {
	return Request{"action": ActionClear}
}

func AddNotesRequest(notes []Note) Request {
	return Request{"action": ActionAddNotes, "notes": notes}
}

func AddChordRequest(time, duration float64, notes []ChordNote) Request {
	return Request{"action": ActionAddChord, "time": time, "duration": duration, "notes": notes}
}

func DeleteNotesRequest(notes []NoteRef) Request {
	return Request{"action": ActionDeleteNotes, "notes": notes}
}

// Queue batches requests in a JSON array until the DAW side consumes them.
// The DAW side (or Clear) empties it; Append never assumes it is empty.
type Queue struct {
	dir string
}

func NewQueue(dir string) *Queue {
	return &Queue{dir: dir}
}

func (q *Queue) Path() string { return filepath.Join(q.dir, RequestFile) }

// Exists reports whether a queue file is present.
func (q *Queue) Exists() bool {
	_, err := os.Stat(q.Path())
	return err == nil
}

// Append adds reqs after any pending entries and rewrites the whole file.
func (q *Queue) Append(reqs ...Request) error {
	if len(reqs) == 0 {
		return nil
	}
	existing, err := q.Read()
	if err != nil {
		if !errors.Is(err, ErrMalformed) {
			return err
		}
		existing = nil
	}

	existing = append(existing, reqs...)
	payload, err := json.MarshalIndent(existing, "", "  ")
	if err != nil {
		return fmt.Errorf("encode request queue: %w", err)
	}
	if err := writeFileAtomic(q.Path(), payload); err != nil {
		return fmt.Errorf("write request queue %q: %w: %w", q.Path(), ErrIO, err)
	}
	return nil
}

// Read returns pending requests. A missing file is an empty queue; a lone
// object is promoted to a one-entry queue; anything else is malformed.
func (q *Queue) Read() ([]Request, error) {
	data, err := os.ReadFile(q.Path())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read request queue %q: %w: %w", q.Path(), ErrIO, err)
	}
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, nil
	}

	decoder := json.NewDecoder(bytes.NewReader(trimmed))
	decoder.UseNumber()

	switch trimmed[0] {
	case '[':
		var list []Request
		if err := decoder.Decode(&list); err != nil {
			return nil, fmt.Errorf("%w: request queue: %v", ErrMalformed, err)
		}
		return list, nil
	case '{':
		var single Request
		if err := decoder.Decode(&single); err != nil {
			return nil, fmt.Errorf("%w: request queue: %v", ErrMalformed, err)
		}
		return []Request{single}, nil
	default:
		return nil, fmt.Errorf("%w: request queue is not a JSON array", ErrMalformed)
	}
}

// Clear drops all pending requests. A missing file is not an error.
func (q *Queue) Clear() error {
	return removeIfExists(q.Path())
}
