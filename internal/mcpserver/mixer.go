package mcpserver

import (
	"context"
	"fmt"
	"math"
	"strconv"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

func registerMixerTools(s *server.MCPServer, h *handlers) {
	track := mcp.WithNumber("track", mcp.Required(), mcp.Description("Mixer track index; 0 is the master"))

	s.AddTool(mcp.NewTool("fl_get_mixer_track_count",
		mcp.WithDescription("Get the number of mixer tracks, including the master."),
		mcp.WithReadOnlyHintAnnotation(true),
	), h.mixerTrackCount)

	s.AddTool(mcp.NewTool("fl_get_mixer_track_info",
		mcp.WithDescription("Get name, volume, pan, and mute/solo/arm state of a mixer track."),
		mcp.WithReadOnlyHintAnnotation(true),
		track,
	), h.mixerTrackInfo)

	s.AddTool(mcp.NewTool("fl_get_all_mixer_tracks",
		mcp.WithDescription("List mixer tracks. Unnamed inserts are skipped unless include_empty is set."),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithBoolean("include_empty", mcp.DefaultBool(false)),
	), h.allMixerTracks)

	s.AddTool(mcp.NewTool("fl_set_track_volume",
		mcp.WithDescription("Set a mixer track volume. 0.8 is unity gain; values above 1.0 may clip."),
		track,
		mcp.WithNumber("volume", mcp.Required(), mcp.Min(0), mcp.Max(1.25), mcp.Description("Fader level from 0.0 to 1.25")),
	), h.setTrackVolume)

	s.AddTool(mcp.NewTool("fl_set_track_pan",
		mcp.WithDescription("Set a mixer track pan position."),
		track,
		mcp.WithNumber("pan", mcp.Required(), mcp.Min(-1), mcp.Max(1), mcp.Description("-1.0 full left, 0 center, 1.0 full right")),
	), h.setTrackPan)

	s.AddTool(mcp.NewTool("fl_mute_track",
		mcp.WithDescription("Mute or unmute a mixer track. Omit muted to toggle."),
		track,
		mcp.WithBoolean("muted"),
	), h.muteTrack)

	s.AddTool(mcp.NewTool("fl_solo_track",
		mcp.WithDescription("Solo or unsolo a mixer track. Omit solo to toggle."),
		track,
		mcp.WithBoolean("solo"),
		mcp.WithNumber("mode",
			mcp.DefaultNumber(3),
			mcp.Description("1 = with source tracks, 2 = with send tracks, 3 = with both, 4 = track only"),
		),
	), h.soloTrack)

	s.AddTool(mcp.NewTool("fl_arm_track",
		mcp.WithDescription("Toggle recording arm on a mixer track."),
		track,
	), h.armTrack)

	s.AddTool(mcp.NewTool("fl_set_track_name",
		mcp.WithDescription("Rename a mixer track. An empty name restores the default."),
		track,
		mcp.WithString("name", mcp.Required()),
	), h.setTrackName)

	s.AddTool(mcp.NewTool("fl_set_track_color",
		mcp.WithDescription("Set a mixer track color from RGB components."),
		track,
		red, green, blue,
	), h.setTrackColor)

	s.AddTool(mcp.NewTool("fl_set_stereo_separation",
		mcp.WithDescription("Set the stereo separation of a mixer track."),
		track,
		mcp.WithNumber("separation", mcp.Required(), mcp.Min(-1), mcp.Max(1), mcp.Description("-1.0 merged to mono, 0 default, 1.0 full separation")),
	), h.setStereoSeparation)
}

// maxMixerTrack is the highest mixer insert index.
const maxMixerTrack = 126

var (
	red   = mcp.WithNumber("red", mcp.Required(), mcp.Min(0), mcp.Max(255), mcp.Description("Red component 0-255"))
	green = mcp.WithNumber("green", mcp.Required(), mcp.Min(0), mcp.Max(255), mcp.Description("Green component 0-255"))
	blue  = mcp.WithNumber("blue", mcp.Required(), mcp.Min(0), mcp.Max(255), mcp.Description("Blue component 0-255"))
)

// rgbArgs reads red, green, and blue, each within 0-255.
func rgbArgs(req mcp.CallToolRequest) (int, int, int, error) {
	out := [3]int{}
	for i, key := range []string{"red", "green", "blue"} {
		v, err := req.RequireInt(key)
		if err != nil {
			return 0, 0, 0, err
		}
		if v < 0 || v > 255 {
			return 0, 0, 0, fmt.Errorf("%s must be between 0 and 255", key)
		}
		out[i] = v
	}
	return out[0], out[1], out[2], nil
}

func (h *handlers) mixerTrackCount(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	resp, fail := h.send(ctx, "mixer.getTrackCount", nil)
	if fail != nil {
		return fail, nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("%d", resp.Int("count", 0))), nil
}

func (h *handlers) mixerTrackInfo(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	track, err := req.RequireInt("track")
	if err != nil {
		return errorResult(err.Error()), nil
	}
	resp, fail := h.send(ctx, "mixer.getTrackInfo", map[string]any{"track": track})
	if fail != nil {
		return fail, nil
	}
	return jsonResult(map[string]any{
		"index":             resp.Int("index", track),
		"name":              resp.String("name", ""),
		"volume":            resp.Float("volume", 0),
		"volume_db":         resp.Float("volume_db", 0),
		"pan":               resp.Float("pan", 0),
		"stereo_separation": resp.Float("stereo_separation", 0),
		"is_muted":          resp.Bool("is_muted", false),
		"is_solo":           resp.Bool("is_solo", false),
		"is_armed":          resp.Bool("is_armed", false),
		"color":             resp.String("color", "0x0"),
	}), nil
}

func (h *handlers) allMixerTracks(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	resp, fail := h.send(ctx, "mixer.getAllTracks", map[string]any{"include_empty": req.GetBool("include_empty", false)})
	if fail != nil {
		return fail, nil
	}
	tracks, ok := resp["tracks"]
	if !ok {
		tracks = []any{}
	}
	return jsonResult(tracks), nil
}

func (h *handlers) setTrackVolume(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	track, err := req.RequireInt("track")
	if err != nil {
		return errorResult(err.Error()), nil
	}
	volume, err := req.RequireFloat("volume")
	if err != nil {
		return errorResult(err.Error()), nil
	}
	if volume < 0 || volume > 1.25 {
		return errorResult("Volume should be between 0.0 and 1.25"), nil
	}

	resp, fail := h.send(ctx, "mixer.setTrackVolume", map[string]any{"track": track, "volume": volume})
	if fail != nil {
		return fail, nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Track %d volume set to %.3f (%.1f dB)",
		track, resp.Float("volume", 0), resp.Float("volume_db", 0))), nil
}

func (h *handlers) setTrackPan(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	track, err := req.RequireInt("track")
	if err != nil {
		return errorResult(err.Error()), nil
	}
	pan, err := req.RequireFloat("pan")
	if err != nil {
		return errorResult(err.Error()), nil
	}
	if pan < -1 || pan > 1 {
		return errorResult("Pan must be between -1.0 (left) and 1.0 (right)"), nil
	}

	resp, fail := h.send(ctx, "mixer.setTrackPan", map[string]any{"track": track, "pan": pan})
	if fail != nil {
		return fail, nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Track %d pan set to %s", track, panDirection(resp.Float("pan", 0)))), nil
}

func panDirection(pan float64) string {
	switch {
	case pan < -0.01:
		return fmt.Sprintf("%.0f%% left", math.Abs(pan)*100)
	case pan > 0.01:
		return fmt.Sprintf("%.0f%% right", pan*100)
	default:
		return "center"
	}
}

func (h *handlers) muteTrack(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	track, err := req.RequireInt("track")
	if err != nil {
		return errorResult(err.Error()), nil
	}
	resp, fail := h.send(ctx, "mixer.muteTrack", map[string]any{"track": track, "muted": optionalBool(req, "muted")})
	if fail != nil {
		return fail, nil
	}
	state := "unmuted"
	if resp.Bool("is_muted", false) {
		state = "muted"
	}
	return mcp.NewToolResultText(resp.String("track_name", fmt.Sprintf("Track %d", track)) + " " + state), nil
}

func (h *handlers) soloTrack(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	track, err := req.RequireInt("track")
	if err != nil {
		return errorResult(err.Error()), nil
	}
	mode := req.GetInt("mode", 3)
	if mode < 1 || mode > 4 {
		return errorResult("mode must be between 1 and 4"), nil
	}
	resp, fail := h.send(ctx, "mixer.soloTrack", map[string]any{
		"track": track,
		"solo":  optionalBool(req, "solo"),
		"mode":  mode,
	})
	if fail != nil {
		return fail, nil
	}
	state := "unsoloed"
	if resp.Bool("is_solo", false) {
		state = "soloed"
	}
	return mcp.NewToolResultText(resp.String("track_name", fmt.Sprintf("Track %d", track)) + " " + state), nil
}

func (h *handlers) armTrack(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	track, err := req.RequireInt("track")
	if err != nil {
		return errorResult(err.Error()), nil
	}
	resp, fail := h.send(ctx, "mixer.armTrack", map[string]any{"track": track})
	if fail != nil {
		return fail, nil
	}
	state := "disarmed"
	if resp.Bool("is_armed", false) {
		state = "armed"
	}
	return mcp.NewToolResultText(resp.String("track_name", fmt.Sprintf("Track %d", track)) + " recording " + state), nil
}

func (h *handlers) setTrackName(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	track, err := req.RequireInt("track")
	if err != nil {
		return errorResult(err.Error()), nil
	}
	name := req.GetString("name", "")
	if _, fail := h.send(ctx, "mixer.setTrackName", map[string]any{"track": track, "name": name}); fail != nil {
		return fail, nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Track %d renamed to '%s'", track, name)), nil
}

func (h *handlers) setTrackColor(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	track, err := req.RequireInt("track")
	if err != nil {
		return errorResult(err.Error()), nil
	}
	r, g, b, err := rgbArgs(req)
	if err != nil {
		return errorResult(err.Error()), nil
	}
	if _, fail := h.send(ctx, "mixer.setTrackColor", map[string]any{"track": track, "r": r, "g": g, "b": b}); fail != nil {
		return fail, nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Track %d color set to RGB(%d, %d, %d)", track, r, g, b)), nil
}

func (h *handlers) setStereoSeparation(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	track, err := req.RequireInt("track")
	if err != nil {
		return errorResult(err.Error()), nil
	}
	sep, err := req.RequireFloat("separation")
	if err != nil {
		return errorResult(err.Error()), nil
	}
	if sep < -1 || sep > 1 {
		return errorResult("Separation must be between -1.0 and 1.0"), nil
	}
	resp, fail := h.send(ctx, "mixer.setStereoSep", map[string]any{"track": track, "separation": sep})
	if fail != nil {
		return fail, nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Track %d stereo separation set to %s",
		track, strconv.FormatFloat(resp.Float("separation", sep), 'f', -1, 64))), nil
}
