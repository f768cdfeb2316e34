package mcpserver

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/rbright/flmcp/internal/filechannel"
)

func registerTransportTools(s *server.MCPServer, h *handlers) {
	s.AddTool(mcp.NewTool("fl_play",
		mcp.WithDescription("Start or pause playback. Starts when stopped and pauses when playing."),
	), h.play)

	s.AddTool(mcp.NewTool("fl_stop",
		mcp.WithDescription("Stop playback and reset the song position."),
	), h.stop)

	s.AddTool(mcp.NewTool("fl_record",
		mcp.WithDescription("Toggle recording mode."),
	), h.record)

	s.AddTool(mcp.NewTool("fl_get_transport_status",
		mcp.WithDescription("Get playback and recording state, song position, and loop mode."),
		mcp.WithReadOnlyHintAnnotation(true),
	), h.transportStatus)

	s.AddTool(mcp.NewTool("fl_set_song_position",
		mcp.WithDescription("Set the playback position."),
		mcp.WithNumber("position", mcp.Required(), mcp.Description("Position value, interpreted according to mode")),
		mcp.WithNumber("mode",
			mcp.DefaultNumber(2),
			mcp.Description("0 = fraction of song, 1 = milliseconds, 2 = seconds, 3 = ticks, 4 = encoded bars:steps:ticks"),
		),
	), h.setSongPosition)

	s.AddTool(mcp.NewTool("fl_get_song_length",
		mcp.WithDescription("Get the length of the current song or pattern in ticks, seconds, and milliseconds."),
		mcp.WithReadOnlyHintAnnotation(true),
	), h.songLength)

	s.AddTool(mcp.NewTool("fl_set_loop_mode",
		mcp.WithDescription("Switch between pattern and song loop mode."),
		mcp.WithString("mode", mcp.Required(), mcp.Enum("pattern", "song")),
	), h.setLoopMode)

	s.AddTool(mcp.NewTool("fl_set_playback_speed",
		mcp.WithDescription("Set the playback speed multiplier. 1.0 is normal speed."),
		mcp.WithNumber("speed", mcp.Required(), mcp.Min(0.25), mcp.Max(4), mcp.Description("Multiplier from 0.25 to 4.0")),
	), h.setPlaybackSpeed)
}

func (h *handlers) play(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	resp, fail := h.send(ctx, "transport.start", nil)
	if fail != nil {
		return fail, nil
	}
	if resp.Bool("is_playing", false) {
		return mcp.NewToolResultText("Playback started"), nil
	}
	return mcp.NewToolResultText("Playback paused"), nil
}

func (h *handlers) stop(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if _, fail := h.send(ctx, "transport.stop", nil); fail != nil {
		return fail, nil
	}
	return mcp.NewToolResultText("Playback stopped"), nil
}

func (h *handlers) record(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	resp, fail := h.send(ctx, "transport.record", nil)
	if fail != nil {
		return fail, nil
	}
	if resp.Bool("is_recording", false) {
		return mcp.NewToolResultText("Recording enabled"), nil
	}
	return mcp.NewToolResultText("Recording disabled"), nil
}

// TransportStatus is the fl_get_transport_status and fl://project payload.
type TransportStatus struct {
	IsPlaying   bool   `json:"is_playing"`
	IsRecording bool   `json:"is_recording"`
	Position    string `json:"position"`
	LoopMode    string `json:"loop_mode"`
}

func transportStatusFrom(resp filechannel.Response) TransportStatus {
	return TransportStatus{
		IsPlaying:   resp.Bool("is_playing", false),
		IsRecording: resp.Bool("is_recording", false),
		Position:    resp.String("position", ""),
		LoopMode:    resp.String("loop_mode", "pattern"),
	}
}

func (h *handlers) transportStatus(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	resp, fail := h.send(ctx, "transport.getStatus", nil)
	if fail != nil {
		return fail, nil
	}
	return jsonResult(transportStatusFrom(resp)), nil
}

func (h *handlers) setSongPosition(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	position, err := req.RequireFloat("position")
	if err != nil {
		return errorResult(err.Error()), nil
	}
	mode := req.GetInt("mode", 2)
	if mode < 0 || mode > 4 {
		return errorResult("mode must be between 0 and 4"), nil
	}

	resp, fail := h.send(ctx, "transport.setPosition", map[string]any{"position": position, "mode": mode})
	if fail != nil {
		return fail, nil
	}
	return mcp.NewToolResultText("Position set to " + resp.String("position", "")), nil
}

func (h *handlers) songLength(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	resp, fail := h.send(ctx, "transport.getLength", nil)
	if fail != nil {
		return fail, nil
	}
	return jsonResult(map[string]any{
		"ticks":        resp.Int("ticks", 0),
		"seconds":      resp.Float("seconds", 0),
		"milliseconds": resp.Int("milliseconds", 0),
	}), nil
}

func (h *handlers) setLoopMode(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	mode, err := req.RequireString("mode")
	if err != nil {
		return errorResult(err.Error()), nil
	}
	mode = strings.ToLower(strings.TrimSpace(mode))
	if mode != "pattern" && mode != "song" {
		return errorResult(`mode must be "pattern" or "song"`), nil
	}

	if _, fail := h.send(ctx, "transport.setLoopMode", map[string]any{"mode": mode}); fail != nil {
		return fail, nil
	}
	return mcp.NewToolResultText("Loop mode set to " + mode), nil
}

func (h *handlers) setPlaybackSpeed(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	speed, err := req.RequireFloat("speed")
	if err != nil {
		return errorResult(err.Error()), nil
	}
	if speed < 0.25 || speed > 4 {
		return errorResult("Speed must be between 0.25 and 4.0"), nil
	}

	if _, fail := h.send(ctx, "transport.setPlaybackSpeed", map[string]any{"speed": speed}); fail != nil {
		return fail, nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Playback speed set to %gx", speed)), nil
}
