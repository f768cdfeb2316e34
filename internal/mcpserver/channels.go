package mcpserver

import (
	"context"
	"fmt"
	"strconv"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/rbright/flmcp/internal/filechannel"
	"github.com/rbright/flmcp/internal/pianoroll"
)

// maxSteps bounds step sequencer positions.
const maxSteps = 512

func registerChannelTools(s *server.MCPServer, h *handlers) {
	index := mcp.WithNumber("index", mcp.Required(), mcp.Description("Channel rack index"))

	s.AddTool(mcp.NewTool("fl_get_channel_count",
		mcp.WithDescription("Get the number of channels in the channel rack."),
		mcp.WithReadOnlyHintAnnotation(true),
	), h.channelCount)

	s.AddTool(mcp.NewTool("fl_get_channel_info",
		mcp.WithDescription("Get name, volume, pan, mute, selection, and mixer routing of a channel."),
		mcp.WithReadOnlyHintAnnotation(true),
		index,
	), h.channelInfo)

	s.AddTool(mcp.NewTool("fl_get_all_channels",
		mcp.WithDescription("List every channel in the channel rack."),
		mcp.WithReadOnlyHintAnnotation(true),
	), h.allChannels)

	s.AddTool(mcp.NewTool("fl_select_one_channel",
		mcp.WithDescription("Select a channel and deselect all others."),
		index,
	), h.selectOneChannel)

	s.AddTool(mcp.NewTool("fl_set_channel_volume",
		mcp.WithDescription("Set a channel volume."),
		index,
		mcp.WithNumber("volume", mcp.Required(), mcp.Min(0), mcp.Max(1), mcp.Description("Level from 0.0 to 1.0")),
	), h.setChannelVolume)

	s.AddTool(mcp.NewTool("fl_mute_channel",
		mcp.WithDescription("Mute or unmute a channel. Omit muted to toggle."),
		index,
		mcp.WithBoolean("muted"),
	), h.muteChannel)

	s.AddTool(mcp.NewTool("fl_get_selected_channel",
		mcp.WithDescription("Get the first selected channel, if any."),
		mcp.WithReadOnlyHintAnnotation(true),
	), h.selectedChannel)

	s.AddTool(mcp.NewTool("fl_select_channel",
		mcp.WithDescription("Select or deselect a channel without touching the others."),
		index,
		mcp.WithBoolean("select", mcp.DefaultBool(true)),
	), h.selectChannel)

	s.AddTool(mcp.NewTool("fl_trigger_note",
		mcp.WithDescription("Play a note on a channel in real time. The note is not written to the pattern unless FL Studio is recording."),
		mcp.WithNumber("channel", mcp.Required(), mcp.Min(0), mcp.Description("Channel rack index")),
		mcp.WithNumber("note", mcp.Required(), mcp.Min(0), mcp.Max(127), mcp.Description("MIDI note number, 60 = C4")),
		mcp.WithNumber("velocity", mcp.DefaultNumber(100), mcp.Min(0), mcp.Max(127), mcp.Description("1-127; 0 releases the note")),
		mcp.WithNumber("midi_channel", mcp.DefaultNumber(-1), mcp.Min(-1), mcp.Max(15), mcp.Description("MIDI channel 0-15, -1 for the channel default")),
	), h.triggerNote)

	s.AddTool(mcp.NewTool("fl_set_channel_pan",
		mcp.WithDescription("Set a channel pan position."),
		index,
		mcp.WithNumber("pan", mcp.Required(), mcp.Min(-1), mcp.Max(1), mcp.Description("-1.0 full left, 0 center, 1.0 full right")),
	), h.setChannelPan)

	s.AddTool(mcp.NewTool("fl_solo_channel",
		mcp.WithDescription("Solo or unsolo a channel. Omit solo to toggle."),
		index,
		mcp.WithBoolean("solo"),
	), h.soloChannel)

	s.AddTool(mcp.NewTool("fl_set_channel_name",
		mcp.WithDescription("Rename a channel."),
		index,
		mcp.WithString("name", mcp.Required()),
	), h.setChannelName)

	s.AddTool(mcp.NewTool("fl_set_channel_color",
		mcp.WithDescription("Set a channel color from RGB components."),
		index,
		red, green, blue,
	), h.setChannelColor)

	s.AddTool(mcp.NewTool("fl_route_channel_to_mixer",
		mcp.WithDescription("Route a channel to a mixer track."),
		mcp.WithNumber("channel_index", mcp.Required(), mcp.Min(0), mcp.Description("Channel rack index")),
		mcp.WithNumber("mixer_track", mcp.Required(), mcp.Min(0), mcp.Max(maxMixerTrack), mcp.Description("Mixer track index; 0 is the master")),
	), h.routeChannelToMixer)

	stepChannel := mcp.WithNumber("channel", mcp.Required(), mcp.Min(0), mcp.Description("Channel rack index"))
	position := mcp.WithNumber("position", mcp.Required(), mcp.Min(0), mcp.Max(maxSteps-1), mcp.Description("Step position, 0-based"))

	s.AddTool(mcp.NewTool("fl_get_grid_bit",
		mcp.WithDescription("Report whether a step sequencer step is on."),
		mcp.WithReadOnlyHintAnnotation(true),
		stepChannel, position,
	), h.gridBit)

	s.AddTool(mcp.NewTool("fl_set_grid_bit",
		mcp.WithDescription("Turn a step sequencer step on or off."),
		stepChannel, position,
		mcp.WithBoolean("value", mcp.Required()),
	), h.setGridBit)

	s.AddTool(mcp.NewTool("fl_get_step_sequence",
		mcp.WithDescription("Read a channel's step sequencer pattern."),
		mcp.WithReadOnlyHintAnnotation(true),
		stepChannel,
		mcp.WithNumber("steps", mcp.DefaultNumber(16), mcp.Min(1), mcp.Max(maxSteps), mcp.Description("Number of steps to read")),
	), h.stepSequence)

	s.AddTool(mcp.NewTool("fl_set_step_sequence",
		mcp.WithDescription("Write a channel's step sequencer pattern from the first step."),
		stepChannel,
		mcp.WithArray("pattern", mcp.Required(), mcp.Items(map[string]any{"type": "boolean"}), mcp.Description("One boolean per step, true = on")),
	), h.setStepSequence)
}

func (h *handlers) channelCount(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	resp, fail := h.send(ctx, "channels.getCount", map[string]any{"global_count": true})
	if fail != nil {
		return fail, nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("%d", resp.Int("count", 0))), nil
}

func (h *handlers) channelInfo(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	index, err := req.RequireInt("index")
	if err != nil {
		return errorResult(err.Error()), nil
	}
	resp, fail := h.send(ctx, "channels.getInfo", map[string]any{"index": index})
	if fail != nil {
		return fail, nil
	}
	delete(resp, "success")
	delete(resp, "error")
	return jsonResult(resp), nil
}

func (h *handlers) allChannels(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	resp, fail := h.send(ctx, "channels.getAll", nil)
	if fail != nil {
		return fail, nil
	}
	channels, ok := resp["channels"]
	if !ok {
		channels = []any{}
	}
	return jsonResult(channels), nil
}

func (h *handlers) selectOneChannel(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	index, err := req.RequireInt("index")
	if err != nil {
		return errorResult(err.Error()), nil
	}
	if _, fail := h.send(ctx, "channels.selectOne", map[string]any{"index": index}); fail != nil {
		return fail, nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Channel %d selected exclusively", index)), nil
}

func (h *handlers) setChannelVolume(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	index, err := req.RequireInt("index")
	if err != nil {
		return errorResult(err.Error()), nil
	}
	volume, err := req.RequireFloat("volume")
	if err != nil {
		return errorResult(err.Error()), nil
	}
	if volume < 0 || volume > 1 {
		return errorResult("Volume must be between 0.0 and 1.0"), nil
	}
	resp, fail := h.send(ctx, "channels.setVolume", map[string]any{"index": index, "volume": volume})
	if fail != nil {
		return fail, nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Channel %d volume set to %.2f", index, resp.Float("volume", volume))), nil
}

func (h *handlers) muteChannel(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	index, err := req.RequireInt("index")
	if err != nil {
		return errorResult(err.Error()), nil
	}
	resp, fail := h.send(ctx, "channels.mute", map[string]any{"index": index, "muted": optionalBool(req, "muted")})
	if fail != nil {
		return fail, nil
	}
	state := "unmuted"
	if resp.Bool("is_muted", false) {
		state = "muted"
	}
	return mcp.NewToolResultText(fmt.Sprintf("Channel '%s' %s", resp.String("name", fmt.Sprint(index)), state)), nil
}

func (h *handlers) selectedChannel(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	resp, fail := h.send(ctx, "channels.getSelected", nil)
	if fail != nil {
		return fail, nil
	}
	channel, ok := resp["channel"].(map[string]any)
	if !ok {
		return mcp.NewToolResultText("No channel selected"), nil
	}
	return jsonResult(channel), nil
}

func (h *handlers) selectChannel(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	index, err := req.RequireInt("index")
	if err != nil {
		return errorResult(err.Error()), nil
	}
	selected := req.GetBool("select", true)
	resp, fail := h.send(ctx, "channels.select", map[string]any{"index": index, "select": selected})
	if fail != nil {
		return fail, nil
	}
	state := "deselected"
	if selected {
		state = "selected"
	}
	return mcp.NewToolResultText(fmt.Sprintf("Channel '%s' %s", channelName(resp, index), state)), nil
}

func (h *handlers) triggerNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	channel, err := req.RequireInt("channel")
	if err != nil {
		return errorResult(err.Error()), nil
	}
	note, err := req.RequireInt("note")
	if err != nil {
		return errorResult(err.Error()), nil
	}
	if note < 0 || note > 127 {
		return errorResult("Note must be between 0 and 127"), nil
	}
	velocity := req.GetInt("velocity", 100)
	if velocity < 0 || velocity > 127 {
		return errorResult("Velocity must be between 0 and 127"), nil
	}
	midiChannel := req.GetInt("midi_channel", -1)
	if midiChannel < -1 || midiChannel > 15 {
		return errorResult("midi_channel must be between -1 and 15"), nil
	}

	if _, fail := h.send(ctx, "channels.triggerNote", map[string]any{
		"channel":      channel,
		"note":         note,
		"velocity":     velocity,
		"midi_channel": midiChannel,
	}); fail != nil {
		return fail, nil
	}
	name := pianoroll.NoteName(note)
	if velocity == 0 {
		return mcp.NewToolResultText(fmt.Sprintf("Note %s (MIDI %d) released on channel %d", name, note, channel)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Note %s (MIDI %d) triggered with velocity %d on channel %d", name, note, velocity, channel)), nil
}

func (h *handlers) setChannelPan(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	index, err := req.RequireInt("index")
	if err != nil {
		return errorResult(err.Error()), nil
	}
	pan, err := req.RequireFloat("pan")
	if err != nil {
		return errorResult(err.Error()), nil
	}
	if pan < -1 || pan > 1 {
		return errorResult("Pan must be between -1.0 and 1.0"), nil
	}
	resp, fail := h.send(ctx, "channels.setPan", map[string]any{"index": index, "pan": pan})
	if fail != nil {
		return fail, nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Channel '%s' pan set to %.2f", channelName(resp, index), resp.Float("pan", pan))), nil
}

func (h *handlers) soloChannel(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	index, err := req.RequireInt("index")
	if err != nil {
		return errorResult(err.Error()), nil
	}
	resp, fail := h.send(ctx, "channels.solo", map[string]any{"index": index, "solo": optionalBool(req, "solo")})
	if fail != nil {
		return fail, nil
	}
	state := "unsoloed"
	if resp.Bool("is_solo", false) {
		state = "soloed"
	}
	return mcp.NewToolResultText(fmt.Sprintf("Channel '%s' %s", channelName(resp, index), state)), nil
}

func (h *handlers) setChannelName(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	index, err := req.RequireInt("index")
	if err != nil {
		return errorResult(err.Error()), nil
	}
	name := req.GetString("name", "")
	if _, fail := h.send(ctx, "channels.setName", map[string]any{"index": index, "name": name}); fail != nil {
		return fail, nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Channel %d renamed to '%s'", index, name)), nil
}

func (h *handlers) setChannelColor(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	index, err := req.RequireInt("index")
	if err != nil {
		return errorResult(err.Error()), nil
	}
	r, g, b, err := rgbArgs(req)
	if err != nil {
		return errorResult(err.Error()), nil
	}
	if _, fail := h.send(ctx, "channels.setColor", map[string]any{"index": index, "r": r, "g": g, "b": b}); fail != nil {
		return fail, nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Channel %d color set to RGB(%d, %d, %d)", index, r, g, b)), nil
}

func (h *handlers) routeChannelToMixer(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	channel, err := req.RequireInt("channel_index")
	if err != nil {
		return errorResult(err.Error()), nil
	}
	track, err := req.RequireInt("mixer_track")
	if err != nil {
		return errorResult(err.Error()), nil
	}
	if track < 0 || track > maxMixerTrack {
		return errorResult(fmt.Sprintf("mixer_track must be between 0 and %d", maxMixerTrack)), nil
	}
	resp, fail := h.send(ctx, "channels.routeToMixer", map[string]any{"channel_index": channel, "mixer_track": track})
	if fail != nil {
		return fail, nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Channel '%s' routed to mixer track %d", channelName(resp, channel), track)), nil
}

// stepArgs reads the channel and a step position within maxSteps.
func stepArgs(req mcp.CallToolRequest) (int, int, error) {
	channel, err := req.RequireInt("channel")
	if err != nil {
		return 0, 0, err
	}
	position, err := req.RequireInt("position")
	if err != nil {
		return 0, 0, err
	}
	if position < 0 || position >= maxSteps {
		return 0, 0, fmt.Errorf("position must be between 0 and %d", maxSteps-1)
	}
	return channel, position, nil
}

func (h *handlers) gridBit(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	channel, position, err := stepArgs(req)
	if err != nil {
		return errorResult(err.Error()), nil
	}
	resp, fail := h.send(ctx, "channels.getGridBit", map[string]any{"channel": channel, "position": position})
	if fail != nil {
		return fail, nil
	}
	return mcp.NewToolResultText(strconv.FormatBool(resp.Bool("value", false))), nil
}

func (h *handlers) setGridBit(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	channel, position, err := stepArgs(req)
	if err != nil {
		return errorResult(err.Error()), nil
	}
	value, err := req.RequireBool("value")
	if err != nil {
		return errorResult(err.Error()), nil
	}
	resp, fail := h.send(ctx, "channels.setGridBit", map[string]any{"channel": channel, "position": position, "value": value})
	if fail != nil {
		return fail, nil
	}
	state := "disabled"
	if value {
		state = "enabled"
	}
	return mcp.NewToolResultText(fmt.Sprintf("Channel '%s' step %d %s", channelName(resp, channel), position, state)), nil
}

func (h *handlers) stepSequence(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	channel, err := req.RequireInt("channel")
	if err != nil {
		return errorResult(err.Error()), nil
	}
	steps := req.GetInt("steps", 16)
	if steps < 1 || steps > maxSteps {
		return errorResult(fmt.Sprintf("steps must be between 1 and %d", maxSteps)), nil
	}
	resp, fail := h.send(ctx, "channels.getStepSequence", map[string]any{"channel": channel, "steps": steps})
	if fail != nil {
		return fail, nil
	}
	seq, ok := resp["sequence"]
	if !ok {
		seq = []any{}
	}
	return jsonResult(seq), nil
}

func (h *handlers) setStepSequence(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	channel, err := req.RequireInt("channel")
	if err != nil {
		return errorResult(err.Error()), nil
	}
	raw := listArg(req, "pattern")
	if len(raw) == 0 || len(raw) > maxSteps {
		return errorResult(fmt.Sprintf("pattern must have between 1 and %d steps", maxSteps)), nil
	}
	pattern := make([]bool, len(raw))
	active := 0
	for i, v := range raw {
		on, ok := v.(bool)
		if !ok {
			return errorResult(fmt.Sprintf("pattern step %d must be a boolean", i)), nil
		}
		pattern[i] = on
		if on {
			active++
		}
	}

	resp, fail := h.send(ctx, "channels.setStepSequence", map[string]any{"channel": channel, "pattern": pattern})
	if fail != nil {
		return fail, nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Channel '%s' pattern set with %d/%d steps active",
		channelName(resp, channel), resp.Int("active_steps", active), resp.Int("total_steps", len(pattern)))), nil
}

func channelName(resp filechannel.Response, index int) string {
	return resp.String("channel_name", fmt.Sprintf("Channel %d", index))
}
