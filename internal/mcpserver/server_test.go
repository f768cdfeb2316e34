package mcpserver

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"github.com/rbright/flmcp/internal/bridge"
	"github.com/rbright/flmcp/internal/dawsim"
	"github.com/rbright/flmcp/internal/filechannel"
	"github.com/rbright/flmcp/internal/journal"
	"github.com/rbright/flmcp/internal/pianoroll"
	"github.com/rbright/flmcp/internal/trigger"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	srv     *server.MCPServer
	daw     *dawsim.Controller
	script  *dawsim.PianoRollScript
	session *bridge.Session
}

type fixtureOptions struct {
	commandTrigger func(daw *dawsim.Controller) trigger.Trigger
	scriptTrigger  func(script *dawsim.PianoRollScript) trigger.Trigger
	withoutHistory bool
}

func newFixture(t *testing.T, opts fixtureOptions) *fixture {
	t.Helper()
	hardware := t.TempDir()
	scripts := t.TempDir()

	daw := dawsim.NewController(hardware, dawsim.Options{})
	script := dawsim.NewPianoRollScript(scripts, daw.Project())

	cmdTrigger := daw.Trigger()
	if opts.commandTrigger != nil {
		cmdTrigger = opts.commandTrigger(daw)
	}
	scriptTrigger := script.Trigger()
	if opts.scriptTrigger != nil {
		scriptTrigger = opts.scriptTrigger(script)
	}

	var history History
	var recorder bridge.Recorder
	if !opts.withoutHistory {
		j, err := journal.Open(":memory:")
		require.NoError(t, err)
		t.Cleanup(func() { _ = j.Close() })
		history, recorder = j, j
	}

	session, err := bridge.New(bridge.Options{
		Channel:      filechannel.New(hardware),
		Trigger:      cmdTrigger,
		Journal:      recorder,
		PollInterval: 5 * time.Millisecond,
		DisableWatch: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = session.Close() })

	srv, err := New(Options{
		Name:    "fl-studio-test",
		Version: "test",
		Session: session,
		Editor:  pianoroll.New(scripts, scriptTrigger, nil),
		History: history,
		Timeout: time.Second,
	})
	require.NoError(t, err)
	return &fixture{srv: srv, daw: daw, script: script, session: session}
}

type rpcReply struct {
	Result json.RawMessage `json:"result"`
	Error  *struct {
		Message string `json:"message"`
	} `json:"error"`
}

func (f *fixture) rpc(t *testing.T, method string, params any) json.RawMessage {
	t.Helper()
	raw, err := json.Marshal(map[string]any{"jsonrpc": "2.0", "id": 1, "method": method, "params": params})
	require.NoError(t, err)

	out := f.srv.HandleMessage(context.Background(), raw)
	data, err := json.Marshal(out)
	require.NoError(t, err)

	var reply rpcReply
	require.NoError(t, json.Unmarshal(data, &reply))
	require.Nil(t, reply.Error, "rpc %s failed", method)
	return reply.Result
}

func (f *fixture) call(t *testing.T, tool string, args map[string]any) (string, bool) {
	t.Helper()
	if args == nil {
		args = map[string]any{}
	}
	result := f.rpc(t, "tools/call", map[string]any{"name": tool, "arguments": args})

	var decoded struct {
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
		IsError bool `json:"isError"`
	}
	require.NoError(t, json.Unmarshal(result, &decoded))
	require.NotEmpty(t, decoded.Content)
	require.Equal(t, "text", decoded.Content[0].Type)
	return decoded.Content[0].Text, decoded.IsError
}

func (f *fixture) read(t *testing.T, uri string) string {
	t.Helper()
	result := f.rpc(t, "resources/read", map[string]any{"uri": uri})

	var decoded struct {
		Contents []struct {
			URI  string `json:"uri"`
			Text string `json:"text"`
		} `json:"contents"`
	}
	require.NoError(t, json.Unmarshal(result, &decoded))
	require.Len(t, decoded.Contents, 1)
	require.Equal(t, uri, decoded.Contents[0].URI)
	return decoded.Contents[0].Text
}

func TestNewRequiresSessionAndEditor(t *testing.T) {
	_, err := New(Options{})
	require.ErrorContains(t, err, "session is required")

	session, err := bridge.New(bridge.Options{Channel: filechannel.New(t.TempDir()), Trigger: trigger.Unsupported{}})
	require.NoError(t, err)
	_, err = New(Options{Session: session})
	require.ErrorContains(t, err, "editor is required")
}

func TestToolsListed(t *testing.T) {
	f := newFixture(t, fixtureOptions{})

	var listed struct {
		Tools []struct {
			Name string `json:"name"`
		} `json:"tools"`
	}
	require.NoError(t, json.Unmarshal(f.rpc(t, "tools/list", map[string]any{}), &listed))

	names := make([]string, 0, len(listed.Tools))
	for _, tool := range listed.Tools {
		names = append(names, tool.Name)
	}
	for _, want := range []string{
		"fl_connect", "fl_connection_status", "fl_send_command",
		"fl_play", "fl_stop", "fl_record", "fl_get_transport_status",
		"fl_set_song_position", "fl_get_song_length", "fl_set_loop_mode", "fl_set_playback_speed",
		"fl_get_mixer_track_info", "fl_set_track_volume", "fl_set_track_pan", "fl_mute_track", "fl_solo_track",
		"fl_send_notes", "fl_send_chord", "fl_delete_notes", "fl_clear_piano_roll",
		"fl_get_piano_roll_state", "fl_clear_request_queue", "fl_trigger_script", "fl_get_piano_roll_info",
		"fl_recent_commands",
		"fl_set_track_color", "fl_set_stereo_separation",
		"fl_get_selected_channel", "fl_select_channel", "fl_trigger_note", "fl_set_channel_pan",
		"fl_solo_channel", "fl_set_channel_name", "fl_set_channel_color", "fl_route_channel_to_mixer",
		"fl_get_grid_bit", "fl_set_grid_bit", "fl_get_step_sequence", "fl_set_step_sequence",
		"fl_is_plugin_valid", "fl_get_plugin_name", "fl_get_plugin_param_count", "fl_get_plugin_params",
		"fl_get_plugin_param_value", "fl_set_plugin_param_value", "fl_get_preset_count",
		"fl_next_preset", "fl_prev_preset", "fl_get_plugin_color",
	} {
		require.Contains(t, names, want)
	}
}

func TestHistoryToolOmittedWithoutJournal(t *testing.T) {
	f := newFixture(t, fixtureOptions{withoutHistory: true})

	var listed struct {
		Tools []struct {
			Name string `json:"name"`
		} `json:"tools"`
	}
	require.NoError(t, json.Unmarshal(f.rpc(t, "tools/list", map[string]any{}), &listed))
	for _, tool := range listed.Tools {
		require.NotEqual(t, "fl_recent_commands", tool.Name)
	}
}
