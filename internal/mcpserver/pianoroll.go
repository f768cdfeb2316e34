package mcpserver

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/rbright/flmcp/internal/pianoroll"
)

func registerPianoRollTools(s *server.MCPServer, h *handlers) {
	autoTrigger := mcp.WithBoolean("auto_trigger", mcp.DefaultBool(true), mcp.Description("Run the piano roll script right away"))

	s.AddTool(mcp.NewTool("fl_send_notes",
		mcp.WithDescription("Queue notes for the open piano roll pattern. Timing is in quarter notes."),
		mcp.WithArray("notes",
			mcp.Required(),
			mcp.Description("Notes with midi (60 = C4), duration, optional time (default 0), and optional velocity 0.0-1.0 (default 0.8)"),
			mcp.Items(map[string]any{
				"type": "object",
				"properties": map[string]any{
					"midi":     map[string]any{"type": "integer"},
					"duration": map[string]any{"type": "number"},
					"time":     map[string]any{"type": "number"},
					"velocity": map[string]any{"type": "number"},
				},
				"required": []string{"midi", "duration"},
			}),
		),
		mcp.WithString("mode", mcp.DefaultString("add"), mcp.Enum("add", "replace"), mcp.Description(`"replace" clears the pattern first`)),
		autoTrigger,
	), h.sendNotes)

	s.AddTool(mcp.NewTool("fl_send_chord",
		mcp.WithDescription("Queue simultaneous notes sharing start, length, and velocity."),
		mcp.WithArray("midi_notes", mcp.Required(), mcp.Items(map[string]any{"type": "integer"}), mcp.Description("MIDI note numbers, e.g. [60, 64, 67]")),
		mcp.WithNumber("time", mcp.DefaultNumber(0), mcp.Description("Start in quarter notes")),
		mcp.WithNumber("duration", mcp.DefaultNumber(1), mcp.Description("Length in quarter notes")),
		mcp.WithNumber("velocity", mcp.DefaultNumber(pianoroll.DefaultVelocity), mcp.Description("Velocity 0.0-1.0")),
		autoTrigger,
	), h.sendChord)

	s.AddTool(mcp.NewTool("fl_delete_notes",
		mcp.WithDescription("Queue deletion of notes matched by midi and time."),
		mcp.WithArray("notes",
			mcp.Required(),
			mcp.Items(map[string]any{
				"type": "object",
				"properties": map[string]any{
					"midi": map[string]any{"type": "integer"},
					"time": map[string]any{"type": "number"},
				},
				"required": []string{"midi"},
			}),
		),
		autoTrigger,
	), h.deleteNotes)

	s.AddTool(mcp.NewTool("fl_clear_piano_roll",
		mcp.WithDescription("Queue removal of every note in the open pattern."),
		autoTrigger,
	), h.clearPianoRoll)

	s.AddTool(mcp.NewTool("fl_get_piano_roll_state",
		mcp.WithDescription("Read the notes last exported by the piano roll script. Trigger the script to refresh it."),
		mcp.WithReadOnlyHintAnnotation(true),
	), h.pianoRollState)

	s.AddTool(mcp.NewTool("fl_clear_request_queue",
		mcp.WithDescription("Drop queued piano roll requests without running them."),
	), h.clearRequestQueue)

	s.AddTool(mcp.NewTool("fl_trigger_script",
		mcp.WithDescription("Run the piano roll script to apply queued requests."),
	), h.triggerScript)

	s.AddTool(mcp.NewTool("fl_get_piano_roll_info",
		mcp.WithDescription("Report file locations and whether the script can be triggered automatically."),
		mcp.WithReadOnlyHintAnnotation(true),
	), h.pianoRollInfo)
}

func (h *handlers) sendNotes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	raw := listArg(req, "notes")
	if len(raw) == 0 {
		return errorResult("No notes provided"), nil
	}
	notes, err := pianoroll.ParseNotes(raw)
	if err != nil {
		return errorResult(capitalize(err.Error())), nil
	}
	mode := strings.ToLower(req.GetString("mode", "add"))
	if mode != "add" && mode != "replace" {
		return errorResult(`mode must be "add" or "replace"`), nil
	}

	result, err := h.editor.SendNotes(ctx, notes, mode == "replace", req.GetBool("auto_trigger", true))
	if err != nil {
		return errorResult(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Queued %d note(s): %s.%s",
		len(notes), pianoroll.Summary(notes), result.Suffix())), nil
}

func (h *handlers) sendChord(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	raw := listArg(req, "midi_notes")
	if len(raw) == 0 {
		return errorResult("No MIDI notes provided"), nil
	}
	midi := make([]int, 0, len(raw))
	for i, v := range raw {
		n, ok := v.(float64)
		if !ok || n != float64(int(n)) {
			return errorResult(fmt.Sprintf("midi_notes[%d] must be an integer", i)), nil
		}
		midi = append(midi, int(n))
	}
	at := req.GetFloat("time", 0)
	duration := req.GetFloat("duration", 1)
	velocity := req.GetFloat("velocity", pianoroll.DefaultVelocity)
	if duration <= 0 {
		return errorResult("duration must be positive"), nil
	}
	if velocity < 0 || velocity > 1 {
		return errorResult("velocity must be between 0.0 and 1.0"), nil
	}

	result, err := h.editor.SendChord(ctx, midi, at, duration, velocity, req.GetBool("auto_trigger", true))
	if err != nil {
		return errorResult(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Queued chord [%s] at beat %s, duration %s.%s",
		pianoroll.ChordNames(midi), pianoroll.FormatBeat(at), pianoroll.FormatBeat(duration), result.Suffix())), nil
}

func (h *handlers) deleteNotes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	raw := listArg(req, "notes")
	if len(raw) == 0 {
		return errorResult("No notes specified for deletion"), nil
	}
	refs, err := pianoroll.ParseNoteRefs(raw)
	if err != nil {
		return errorResult(capitalize(err.Error())), nil
	}

	result, err := h.editor.DeleteNotes(ctx, refs, req.GetBool("auto_trigger", true))
	if err != nil {
		return errorResult(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Queued deletion of %d note(s).%s", len(refs), result.Suffix())), nil
}

func (h *handlers) clearPianoRoll(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	result, err := h.editor.Clear(ctx, req.GetBool("auto_trigger", true))
	if err != nil {
		return errorResult(err.Error()), nil
	}
	return mcp.NewToolResultText("Queued clear all notes." + result.Suffix()), nil
}

func (h *handlers) pianoRollState(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	state, ok, err := h.editor.State()
	if err != nil {
		return errorResult(err.Error()), nil
	}
	if !ok {
		return jsonResult(map[string]string{
			"error": "No piano roll state available. Make sure the piano roll script has been run at least once.",
		}), nil
	}
	if state.Notes == nil {
		state.Notes = []map[string]any{}
	}
	return jsonResult(state), nil
}

func (h *handlers) clearRequestQueue(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if err := h.editor.ClearQueue(); err != nil {
		return errorResult(err.Error()), nil
	}
	return mcp.NewToolResultText("Request queue cleared."), nil
}

func (h *handlers) triggerScript(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	result := h.editor.Trigger(ctx)
	switch {
	case !result.Supported:
		return errorResult("Auto-trigger not supported on " + result.Platform), nil
	case result.Err != nil:
		return mcp.NewToolResultError(fmt.Sprintf("Failed to trigger FL Studio. Try pressing %s manually.", result.Keystroke)), nil
	default:
		return mcp.NewToolResultText("FL Studio triggered successfully. Notes should now appear in the piano roll."), nil
	}
}

func (h *handlers) pianoRollInfo(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(h.editor.Info()), nil
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
