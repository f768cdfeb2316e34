package dawsim

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/rbright/flmcp/internal/filechannel"
	"github.com/stretchr/testify/require"
)

func writeCommand(t *testing.T, dir, action string, params map[string]any) {
	t.Helper()
	require.NoError(t, filechannel.New(dir).WriteCommand(filechannel.Command{Action: action, Params: params}))
}

func readResponse(t *testing.T, dir string) map[string]any {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(dir, filechannel.ResponseFile))
	require.NoError(t, err)
	var resp map[string]any
	require.NoError(t, json.Unmarshal(data, &resp))
	return resp
}

func TestControllerDispatchesKnownAction(t *testing.T) {
	dir := t.TempDir()
	c := NewController(dir, Options{})

	writeCommand(t, dir, "transport.start", nil)
	require.NoError(t, c.Trigger().Fire(context.Background()))

	resp := readResponse(t, dir)
	require.Equal(t, true, resp["success"])
	require.Nil(t, resp["error"])
	require.Equal(t, true, resp["is_playing"])
	require.Equal(t, []string{"transport.start"}, c.Handled())
}

func TestControllerUnknownAction(t *testing.T) {
	dir := t.TempDir()
	c := NewController(dir, Options{})

	writeCommand(t, dir, "does.notExist", nil)
	require.NoError(t, c.Process())

	require.Equal(t, map[string]any{"success": false, "error": "Unknown action: does.notExist"}, readResponse(t, dir))
}

func TestControllerHandlerError(t *testing.T) {
	dir := t.TempDir()
	c := NewController(dir, Options{})

	writeCommand(t, dir, "mixer.getTrackInfo", map[string]any{"track": 99})
	require.NoError(t, c.Process())

	resp := readResponse(t, dir)
	require.Equal(t, false, resp["success"])
	require.Equal(t, "Error executing command: track index 99 out of range", resp["error"])
}

func TestControllerMissingCommand(t *testing.T) {
	dir := t.TempDir()
	c := NewController(dir, Options{})

	require.NoError(t, c.Process())
	require.Equal(t, "No command file found", readResponse(t, dir)["error"])
}

func TestControllerModes(t *testing.T) {
	dir := t.TempDir()
	c := NewController(dir, Options{Mode: ModeSilent})
	writeCommand(t, dir, "transport.stop", nil)

	require.NoError(t, c.Process())
	_, err := os.Stat(filepath.Join(dir, filechannel.ResponseFile))
	require.ErrorIs(t, err, os.ErrNotExist)

	c.SetMode(ModeGarbage)
	require.NoError(t, c.Process())
	data, err := os.ReadFile(filepath.Join(dir, filechannel.ResponseFile))
	require.NoError(t, err)
	require.Equal(t, "{not json", string(data))
}

func TestControllerCustomHandler(t *testing.T) {
	dir := t.TempDir()
	c := NewController(dir, Options{})
	c.Handle("custom.echo", func(_ *Project, params Params) (map[string]any, error) {
		return map[string]any{"echo": params.String("text", "")}, nil
	})

	writeCommand(t, dir, "custom.echo", map[string]any{"text": "hi"})
	require.NoError(t, c.Process())
	require.Equal(t, "hi", readResponse(t, dir)["echo"])
	require.Contains(t, c.Actions(), "custom.echo")
}

func TestMixerHandlers(t *testing.T) {
	p := NewProject()

	out, err := mixerSetVolume(p, Params{"track": 1.0, "volume": 2.0})
	require.NoError(t, err)
	require.Equal(t, 1.25, out["volume"])

	out, err = mixerMute(p, Params{"track": 1.0})
	require.NoError(t, err)
	require.Equal(t, true, out["is_muted"])
	require.Equal(t, "Insert 1", out["track_name"])

	out, err = mixerMute(p, Params{"track": 1.0, "muted": true})
	require.NoError(t, err)
	require.Equal(t, true, out["is_muted"])

	out, err = mixerTrackInfo(p, Params{"track": 0.0})
	require.NoError(t, err)
	require.Equal(t, "Master", out["name"])
	require.Equal(t, 0.0, out["volume_db"])

	out, err = mixerAllTracks(p, Params{})
	require.NoError(t, err)
	require.Len(t, out["tracks"], 1)
}

func TestTransportHandlers(t *testing.T) {
	p := NewProject()

	_, err := transportSetSpeed(p, Params{"speed": 8.0})
	require.Error(t, err)

	out, err := transportSetPosition(p, Params{"position": 75.0})
	require.NoError(t, err)
	require.Equal(t, "1:00", out["position"])

	out, err = transportSetLoopMode(p, Params{"mode": "Song"})
	require.NoError(t, err)
	require.Equal(t, "song", out["mode"])

	out, err = transportStatus(p, nil)
	require.NoError(t, err)
	require.Equal(t, "song", out["loop_mode"])
	require.Equal(t, false, out["is_playing"])
}

func TestPluginHandlers(t *testing.T) {
	p := NewProject()

	out, err := pluginsIsValid(p, Params{"index": 1.0, "slot_index": -1.0})
	require.NoError(t, err)
	require.Equal(t, true, out["valid"])
	out, err = pluginsIsValid(p, Params{"index": 2.0, "slot_index": 0.0})
	require.NoError(t, err)
	require.Equal(t, false, out["valid"])

	out, err = pluginsName(p, Params{"index": 1.0, "slot_index": 0.0})
	require.NoError(t, err)
	require.Equal(t, "Fruity Limiter", out["name"])

	out, err = pluginsParams(p, Params{"index": 1.0, "max_params": 2.0})
	require.NoError(t, err)
	require.Len(t, out["params"], 2)

	out, err = pluginsSetParamValue(p, Params{"plugin_index": 1.0, "param_index": 2.0, "value": 1.5})
	require.NoError(t, err)
	require.Equal(t, "Osc 2 volume", out["name"])
	require.Equal(t, 1.0, out["value"])
	require.Equal(t, "100%", out["value_string"])

	out, err = pluginsParamValue(p, Params{"plugin_index": 1.0, "param_index": 2.0})
	require.NoError(t, err)
	require.Equal(t, 1.0, out["value"])

	_, err = pluginsParamValue(p, Params{"plugin_index": 1.0, "param_index": 9.0})
	require.ErrorContains(t, err, "3x Osc has no parameter 9")

	out, err = pluginsPrevPreset(p, Params{"index": 1.0})
	require.NoError(t, err)
	require.Equal(t, "Lead", out["preset"])
	out, err = pluginsNextPreset(p, Params{"index": 1.0})
	require.NoError(t, err)
	require.Equal(t, "Default", out["preset"])

	out, err = pluginsNextPreset(p, Params{"index": 0.0})
	require.NoError(t, err)
	require.Equal(t, "FPC", out["plugin_name"])
	require.NotContains(t, out, "preset")

	out, err = pluginsColor(p, Params{"index": 1.0})
	require.NoError(t, err)
	require.Equal(t, "0x565148", out["color"])
}

func TestChannelRackHandlers(t *testing.T) {
	p := NewProject()

	out, err := channelSelected(p, Params{})
	require.NoError(t, err)
	require.Equal(t, "Kick", out["channel"].(map[string]any)["name"])

	_, err = channelSelect(p, Params{"index": 0.0, "select": false})
	require.NoError(t, err)
	out, err = channelSelected(p, Params{})
	require.NoError(t, err)
	require.Nil(t, out["channel"])

	_, err = channelTriggerNote(p, Params{"channel": 1.0, "note": 64.0, "velocity": 90.0})
	require.NoError(t, err)
	require.Equal(t, []NoteEvent{{Channel: 1, Note: 64, Velocity: 90, MIDIChannel: -1}}, p.Played)

	out, err = channelSolo(p, Params{"index": 1.0})
	require.NoError(t, err)
	require.Equal(t, true, out["is_solo"])

	out, err = channelSetColor(p, Params{"index": 0.0, "r": 255.0, "g": 128.0, "b": 0.0})
	require.NoError(t, err)
	require.Equal(t, "RGB(255, 128, 0)", out["color"])
	require.Equal(t, 0x0080ff, p.Channels[0].Color)

	_, err = channelRouteToMixer(p, Params{"channel_index": 1.0, "mixer_track": 4.0})
	require.NoError(t, err)
	require.Equal(t, 4, p.Channels[1].MixerTrack)
	_, err = channelRouteToMixer(p, Params{"channel_index": 1.0, "mixer_track": 40.0})
	require.ErrorContains(t, err, "track index 40 out of range")
}

func TestStepSequencerHandlers(t *testing.T) {
	p := NewProject()

	out, err := channelSetStepSequence(p, Params{"channel": 0.0, "pattern": []any{true, false, false, false, true}})
	require.NoError(t, err)
	require.Equal(t, 2, out["active_steps"])
	require.Equal(t, 5, out["total_steps"])

	_, err = channelSetGridBit(p, Params{"channel": 0.0, "position": 8.0, "value": true})
	require.NoError(t, err)

	out, err = channelGridBit(p, Params{"channel": 0.0, "position": 4.0})
	require.NoError(t, err)
	require.Equal(t, true, out["value"])
	out, err = channelGridBit(p, Params{"channel": 0.0, "position": 100.0})
	require.NoError(t, err)
	require.Equal(t, false, out["value"])

	out, err = channelStepSequence(p, Params{"channel": 0.0, "steps": 10.0})
	require.NoError(t, err)
	require.Equal(t, []bool{true, false, false, false, true, false, false, false, true, false}, out["sequence"])

	_, err = channelSetGridBit(p, Params{"channel": 0.0, "position": -1.0, "value": true})
	require.Error(t, err)
}

func TestMixerColorAndStereoSeparation(t *testing.T) {
	p := NewProject()

	out, err := mixerSetColor(p, Params{"track": 2.0, "r": 1.0, "g": 2.0, "b": 3.0})
	require.NoError(t, err)
	require.Equal(t, "RGB(1, 2, 3)", out["color"])
	require.Equal(t, 0x030201, p.Tracks[2].Color)

	out, err = mixerSetStereoSep(p, Params{"track": 2.0, "separation": -3.0})
	require.NoError(t, err)
	require.Equal(t, -1.0, out["separation"])

	out, err = mixerTrackInfo(p, Params{"track": 2.0})
	require.NoError(t, err)
	require.Equal(t, -1.0, out["stereo_separation"])
	require.Equal(t, "0x30201", out["color"])
}
