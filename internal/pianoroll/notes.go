package pianoroll

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/rbright/flmcp/internal/filechannel"
)

const (
	DefaultVelocity = 0.8
	summaryLimit    = 5
)

var pitchClasses = [12]string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}

// NoteName renders a MIDI note number with C4 = 60.
func NoteName(midi int) string {
	octave := midi/12 - 1
	pc := midi % 12
	if pc < 0 {
		pc += 12
		octave--
	}
	return pitchClasses[pc] + strconv.Itoa(octave)
}

// Summary lists the first notes as name@time and counts the remainder.
func Summary(notes []filechannel.Note) string {
	parts := make([]string, 0, min(len(notes), summaryLimit))
	for i, note := range notes {
		if i == summaryLimit {
			break
		}
		parts = append(parts, NoteName(note.MIDI)+"@"+FormatBeat(note.Time))
	}
	out := strings.Join(parts, ", ")
	if len(notes) > summaryLimit {
		out += fmt.Sprintf(", ... (%d more)", len(notes)-summaryLimit)
	}
	return out
}

// ChordNames renders a chord as comma separated note names.
func ChordNames(midi []int) string {
	names := make([]string, 0, len(midi))
	for _, m := range midi {
		names = append(names, NoteName(m))
	}
	return strings.Join(names, ", ")
}

// ParseNotes converts loosely typed note objects into notes. midi and
// duration are required; time defaults to 0 and velocity to 0.8.
func ParseNotes(raw []any) ([]filechannel.Note, error) {
	notes := make([]filechannel.Note, 0, len(raw))
	for i, item := range raw {
		obj, ok := item.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("note %d is not an object", i)
		}
		midi, ok := number(obj["midi"])
		if !ok {
			return nil, fmt.Errorf("note %d missing 'midi' field", i)
		}
		duration, ok := number(obj["duration"])
		if !ok {
			return nil, fmt.Errorf("note %d missing 'duration' field", i)
		}
		note := filechannel.Note{MIDI: int(midi), Duration: duration, Velocity: DefaultVelocity}
		if t, ok := number(obj["time"]); ok {
			note.Time = t
		}
		if v, ok := number(obj["velocity"]); ok {
			note.Velocity = v
		}
		if err := validateNote(i, note); err != nil {
			return nil, err
		}
		notes = append(notes, note)
	}
	return notes, nil
}

// ParseNoteRefs converts loosely typed {midi, time} objects.
func ParseNoteRefs(raw []any) ([]filechannel.NoteRef, error) {
	refs := make([]filechannel.NoteRef, 0, len(raw))
	for i, item := range raw {
		obj, ok := item.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("note %d is not an object", i)
		}
		midi, ok := number(obj["midi"])
		if !ok {
			return nil, fmt.Errorf("note %d missing 'midi' field", i)
		}
		ref := filechannel.NoteRef{MIDI: int(midi)}
		if t, ok := number(obj["time"]); ok {
			ref.Time = t
		}
		refs = append(refs, ref)
	}
	return refs, nil
}

func validateNote(i int, note filechannel.Note) error {
	switch {
	case note.MIDI < 0 || note.MIDI > 127:
		return fmt.Errorf("note %d midi %d out of range 0-127", i, note.MIDI)
	case note.Duration <= 0:
		return fmt.Errorf("note %d duration must be positive", i)
	case note.Time < 0:
		return fmt.Errorf("note %d time must not be negative", i)
	case note.Velocity < 0 || note.Velocity > 1:
		return fmt.Errorf("note %d velocity must be within 0.0-1.0", i)
	}
	return nil
}

func number(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

// FormatBeat renders a quarter-note position without trailing zeros.
func FormatBeat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
