package dawsim

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"path/filepath"
	"sort"
	"sync"

	"github.com/rbright/flmcp/internal/filechannel"
	"github.com/rbright/flmcp/internal/trigger"
)

// PianoRollScript applies the request queue to the project's notes and
// exports the state file, then removes the queue.
type PianoRollScript struct {
	dir     string
	mu      sync.Mutex
	project *Project
	runs    int
}

func NewPianoRollScript(dir string, project *Project) *PianoRollScript {
	if project == nil {
		project = NewProject()
	}
	return &PianoRollScript{dir: dir, project: project}
}

// Trigger returns a keystroke-kind trigger that runs the script.
func (s *PianoRollScript) Trigger() trigger.Trigger {
	return scriptTrigger{s: s}
}

// Runs counts completed script executions.
func (s *PianoRollScript) Runs() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.runs
}

// Run processes pending requests once.
func (s *PianoRollScript) Run() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	queue := filechannel.NewQueue(s.dir)
	reqs, err := queue.Read()
	if err != nil {
		return err
	}
	for i, req := range reqs {
		if err := s.apply(req); err != nil {
			return fmt.Errorf("request %d (%s): %w", i, req.Action(), err)
		}
	}
	if err := queue.Clear(); err != nil {
		return err
	}
	s.runs++
	return s.export()
}

func (s *PianoRollScript) apply(req filechannel.Request) error {
	p := s.project
	switch req.Action() {
	case filechannel.ActionClear:
		p.Notes = nil
	case filechannel.ActionAddNotes:
		for _, n := range objects(req["notes"]) {
			p.Notes = append(p.Notes, NoteState{
				MIDI:     int(num(n["midi"], 60)),
				Time:     s.ticks(num(n["time"], 0)),
				Length:   s.ticks(num(n["duration"], 1)),
				Velocity: num(n["velocity"], 0.8),
			})
		}
	case filechannel.ActionAddChord:
		start := s.ticks(num(req["time"], 0))
		length := s.ticks(num(req["duration"], 1))
		for _, n := range objects(req["notes"]) {
			p.Notes = append(p.Notes, NoteState{
				MIDI:     int(num(n["midi"], 60)),
				Time:     start,
				Length:   length,
				Velocity: num(n["velocity"], 0.8),
			})
		}
	case filechannel.ActionDeleteNotes:
		for _, ref := range objects(req["notes"]) {
			midi := int(num(ref["midi"], -1))
			at := s.ticks(num(ref["time"], 0))
			kept := p.Notes[:0]
			for _, note := range p.Notes {
				if note.MIDI == midi && note.Time == at {
					continue
				}
				kept = append(kept, note)
			}
			p.Notes = kept
		}
	default:
		return fmt.Errorf("unknown action %q", req.Action())
	}
	return nil
}

func (s *PianoRollScript) export() error {
	notes := append([]NoteState(nil), s.project.Notes...)
	sort.SliceStable(notes, func(i, j int) bool {
		if notes[i].Time != notes[j].Time {
			return notes[i].Time < notes[j].Time
		}
		return notes[i].MIDI < notes[j].MIDI
	})

	ppq := float64(s.project.PPQ)
	exported := make([]map[string]any, 0, len(notes))
	for _, n := range notes {
		exported = append(exported, map[string]any{
			"midi":     n.MIDI,
			"time":     float64(n.Time) / ppq,
			"duration": float64(n.Length) / ppq,
			"velocity": n.Velocity,
		})
	}
	payload, err := json.MarshalIndent(map[string]any{"ppq": s.project.PPQ, "notes": exported}, "", "  ")
	if err != nil {
		return err
	}
	return writeAtomic(filepath.Join(s.dir, filechannel.StateFile), payload)
}

func (s *PianoRollScript) ticks(quarters float64) int {
	return int(math.Round(quarters * float64(s.project.PPQ)))
}

func objects(v any) []map[string]any {
	list, _ := v.([]any)
	out := make([]map[string]any, 0, len(list))
	for _, item := range list {
		if obj, ok := item.(map[string]any); ok {
			out = append(out, obj)
		}
	}
	return out
}

func num(v any, def float64) float64 {
	switch n := v.(type) {
	case json.Number:
		if f, err := n.Float64(); err == nil {
			return f
		}
	case float64:
		return n
	}
	return def
}

type scriptTrigger struct {
	s *PianoRollScript
}

func (scriptTrigger) Kind() trigger.Kind           { return trigger.KindKeystroke }
func (scriptTrigger) Open(context.Context) error   { return nil }
func (scriptTrigger) Close() error                 { return nil }
func (t scriptTrigger) Fire(context.Context) error { return t.s.Run() }
func (scriptTrigger) Info() trigger.Info {
	return trigger.Info{Kind: trigger.KindKeystroke, Platform: "dawsim", Open: true, Keystroke: "Ctrl+Alt+Y"}
}

// Export writes the state file without consuming the queue.
func (s *PianoRollScript) Export() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.export()
}
