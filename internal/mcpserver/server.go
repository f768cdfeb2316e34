// Package mcpserver exposes the bridge and the piano roll editor as MCP tools
// and resources.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/rbright/flmcp/internal/bridge"
	"github.com/rbright/flmcp/internal/filechannel"
	"github.com/rbright/flmcp/internal/journal"
	"github.com/rbright/flmcp/internal/pianoroll"
)

// Session is the part of bridge.Session the tools drive.
type Session interface {
	Connect(ctx context.Context) error
	Reset() error
	Status() bridge.Status
	SendCommand(ctx context.Context, action string, params map[string]any, timeout time.Duration) (filechannel.Response, error)
	Exchange(ctx context.Context, action string, params map[string]any, timeout time.Duration) (bridge.Result, error)
}

// History lists recorded exchanges.
type History interface {
	Recent(ctx context.Context, limit int) ([]journal.Entry, error)
}

// Options wires the server. Session and Editor are required; History is
// optional and the history tool is omitted without it.
type Options struct {
	Name    string
	Version string
	Session Session
	Editor  *pianoroll.Editor
	History History
	Timeout time.Duration
	Logger  *slog.Logger
}

// New builds an MCP server with every tool and resource registered.
func New(opts Options) (*server.MCPServer, error) {
	if opts.Session == nil {
		return nil, errors.New("mcpserver: session is required")
	}
	if opts.Editor == nil {
		return nil, errors.New("mcpserver: piano roll editor is required")
	}
	if opts.Name == "" {
		opts.Name = "fl-studio"
	}
	if opts.Version == "" {
		opts.Version = "dev"
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	s := server.NewMCPServer(
		opts.Name,
		opts.Version,
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithRecovery(),
		server.WithInstructions(instructions),
	)

	h := &handlers{
		session: opts.Session,
		editor:  opts.Editor,
		history: opts.History,
		timeout: opts.Timeout,
		logger:  logger,
	}
	registerConnectionTools(s, h)
	registerTransportTools(s, h)
	registerMixerTools(s, h)
	registerChannelTools(s, h)
	registerPluginTools(s, h)
	registerPianoRollTools(s, h)
	if h.history != nil {
		registerHistoryTools(s, h)
	}
	registerResources(s, h)
	return s, nil
}

// handlers carries shared dependencies for every tool.
type handlers struct {
	session Session
	editor  *pianoroll.Editor
	history History
	timeout time.Duration
	logger  *slog.Logger
}

// send runs one exchange. A non-nil result is the tool's error reply.
func (h *handlers) send(ctx context.Context, action string, params map[string]any) (filechannel.Response, *mcp.CallToolResult) {
	res, err := h.session.Exchange(ctx, action, params, h.timeout)
	if err != nil {
		return nil, errorResult(err.Error())
	}
	if !res.OK() {
		h.logger.Debug("tool command failed", "action", action, "failure", res.Failure)
		return nil, errorResult(res.Response.FailureMessage())
	}
	return res.Response, nil
}

func errorResult(msg string) *mcp.CallToolResult {
	return mcp.NewToolResultError("Error: " + msg)
}

func jsonResult(v any) *mcp.CallToolResult {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errorResult("encode result: " + err.Error())
	}
	return mcp.NewToolResultText(string(data))
}

// optionalBool distinguishes an absent argument (toggle) from false.
func optionalBool(req mcp.CallToolRequest, key string) any {
	if v, ok := req.GetArguments()[key].(bool); ok {
		return v
	}
	return nil
}

func listArg(req mcp.CallToolRequest, key string) []any {
	items, _ := req.GetArguments()[key].([]any)
	return items
}

const instructions = `Control a running FL Studio instance.

FL Studio must be running with the FLStudioMCP controller script enabled in
MIDI settings. Commands travel through JSON files in the FL Studio settings
directory and are triggered by a MIDI note or a hot-key.

Tool groups:
- Connection: fl_connect, fl_connection_status, fl_send_command
- Transport: play, stop, record, position, loop mode, playback speed
- Mixer: track info, volume, pan, mute, solo, arm, rename
- Channels: channel rack info, selection, volume, mute
- Piano roll: queue notes, chords, deletions, and clears for the piano roll
  script, then trigger it to apply them

Plugins cannot be loaded and patterns cannot be created.`
