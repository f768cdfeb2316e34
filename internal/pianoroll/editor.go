// Package pianoroll queues note edits for the FL Studio piano roll script and
// reads back the state it exports.
package pianoroll

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/rbright/flmcp/internal/filechannel"
	"github.com/rbright/flmcp/internal/trigger"
)

// TriggerResult describes what happened to the optional script trigger.
type TriggerResult struct {
	Requested bool
	Supported bool
	Err       error
	Keystroke string
	Platform  string
}

// Fired reports whether the script trigger was dispatched.
func (r TriggerResult) Fired() bool {
	return r.Requested && r.Supported && r.Err == nil
}

// Suffix is appended to tool messages after a queue operation.
func (r TriggerResult) Suffix() string {
	switch {
	case !r.Requested:
		return ""
	case !r.Supported:
		return fmt.Sprintf(" Auto-trigger not supported on %s. Press the trigger key manually.", r.Platform)
	case r.Err != nil:
		return fmt.Sprintf(" Warning: Could not trigger FL Studio. Press %s manually.", r.Keystroke)
	default:
		return " FL Studio triggered successfully."
	}
}

// Info describes the piano roll integration.
type Info struct {
	Platform             string `json:"platform"`
	AutoTriggerSupported bool   `json:"auto_trigger_supported"`
	TriggerKeystroke     string `json:"trigger_keystroke"`
	ScriptsDir           string `json:"scripts_dir"`
	RequestFile          string `json:"request_file"`
	StateFile            string `json:"state_file"`
	RequestFileExists    bool   `json:"request_file_exists"`
	StateFileExists      bool   `json:"state_file_exists"`
}

// Editor appends requests to the queue file and fires the script trigger.
type Editor struct {
	dir     string
	queue   *filechannel.Queue
	trigger trigger.Trigger
	logger  *slog.Logger

	// mu serializes read-modify-write of the queue within this process.
	mu sync.Mutex
}

// New builds an editor for the piano roll scripts directory.
func New(dir string, trig trigger.Trigger, logger *slog.Logger) *Editor {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if trig == nil {
		trig = trigger.Unsupported{}
	}
	return &Editor{dir: dir, queue: filechannel.NewQueue(dir), trigger: trig, logger: logger}
}

// SendNotes queues notes. replace queues a clear first.
func (e *Editor) SendNotes(ctx context.Context, notes []filechannel.Note, replace bool, autoTrigger bool) (TriggerResult, error) {
	if len(notes) == 0 {
		return TriggerResult{}, errors.New("no notes provided")
	}
	reqs := make([]filechannel.Request, 0, 2)
	if replace {
		reqs = append(reqs, filechannel.ClearRequest())
	}
	reqs = append(reqs, filechannel.AddNotesRequest(notes))
	return e.enqueue(ctx, autoTrigger, reqs...)
}

// SendChord queues simultaneous notes sharing time, duration, and velocity.
func (e *Editor) SendChord(ctx context.Context, midi []int, time, duration, velocity float64, autoTrigger bool) (TriggerResult, error) {
	if len(midi) == 0 {
		return TriggerResult{}, errors.New("no MIDI notes provided")
	}
	voices := make([]filechannel.ChordNote, 0, len(midi))
	for _, m := range midi {
		if m < 0 || m > 127 {
			return TriggerResult{}, fmt.Errorf("midi %d out of range 0-127", m)
		}
		voices = append(voices, filechannel.ChordNote{MIDI: m, Velocity: velocity})
	}
	return e.enqueue(ctx, autoTrigger, filechannel.AddChordRequest(time, duration, voices))
}

// DeleteNotes queues removal of notes matched by pitch and start.
func (e *Editor) DeleteNotes(ctx context.Context, refs []filechannel.NoteRef, autoTrigger bool) (TriggerResult, error) {
	if len(refs) == 0 {
		return TriggerResult{}, errors.New("no notes specified for deletion")
	}
	return e.enqueue(ctx, autoTrigger, filechannel.DeleteNotesRequest(refs))
}

// Clear queues removal of every note in the open pattern.
func (e *Editor) Clear(ctx context.Context, autoTrigger bool) (TriggerResult, error) {
	return e.enqueue(ctx, autoTrigger, filechannel.ClearRequest())
}

// ClearQueue drops pending requests without running them.
func (e *Editor) ClearQueue() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.queue.Clear()
}

// Pending returns the queued requests.
func (e *Editor) Pending() ([]filechannel.Request, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.queue.Read()
}

// Trigger fires the script trigger unconditionally.
func (e *Editor) Trigger(ctx context.Context) TriggerResult {
	result := TriggerResult{
		Requested: true,
		Supported: e.trigger.Kind() != trigger.KindNone,
		Keystroke: e.keystroke(),
		Platform:  e.trigger.Info().Platform,
	}
	if !result.Supported {
		return result
	}

	if err := e.trigger.Open(ctx); err != nil {
		result.Err = err
	} else if err := e.trigger.Fire(ctx); err != nil {
		result.Err = err
	}
	if result.Err != nil {
		e.logger.Warn("piano roll trigger failed", "error", result.Err.Error())
	} else {
		e.logger.Debug("piano roll trigger fired", "strategy", e.trigger.Kind())
	}
	return result
}

// State reads the last exported snapshot and annotates notes with note_name.
func (e *Editor) State() (filechannel.State, bool, error) {
	state, ok, err := filechannel.ReadState(e.dir)
	if err != nil || !ok {
		return state, ok, err
	}
	for _, note := range state.Notes {
		if midi, ok := number(note["midi"]); ok {
			note["note_name"] = NoteName(int(midi))
		}
	}
	return state, true, nil
}

// Info reports paths and trigger support.
func (e *Editor) Info() Info {
	info := e.trigger.Info()
	return Info{
		Platform:             info.Platform,
		AutoTriggerSupported: e.trigger.Kind() != trigger.KindNone,
		TriggerKeystroke:     e.keystroke(),
		ScriptsDir:           e.dir,
		RequestFile:          e.queue.Path(),
		StateFile:            filechannel.StatePath(e.dir),
		RequestFileExists:    e.queue.Exists(),
		StateFileExists:      fileExists(filechannel.StatePath(e.dir)),
	}
}

func (e *Editor) enqueue(ctx context.Context, autoTrigger bool, reqs ...filechannel.Request) (TriggerResult, error) {
	e.mu.Lock()
	err := e.queue.Append(reqs...)
	e.mu.Unlock()
	if err != nil {
		return TriggerResult{}, err
	}
	e.logger.Debug("piano roll requests queued", "count", len(reqs), "first_action", reqs[0].Action())

	if !autoTrigger {
		return TriggerResult{}, nil
	}
	return e.Trigger(ctx), nil
}

func (e *Editor) keystroke() string {
	if ks := e.trigger.Info().Keystroke; ks != "" {
		return ks
	}
	return "the script hot-key"
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
