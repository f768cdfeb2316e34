package mcpserver

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// maxTimeoutSeconds bounds fl_send_command waits.
const maxTimeoutSeconds = 300

func registerConnectionTools(s *server.MCPServer, h *handlers) {
	s.AddTool(mcp.NewTool("fl_connect",
		mcp.WithDescription("Connect or reconnect to FL Studio. Drops any open trigger channel and tries again, e.g. after starting FL Studio."),
	), h.connect)

	s.AddTool(mcp.NewTool("fl_connection_status",
		mcp.WithDescription("Report whether FL Studio is connected, the trigger in use, candidate MIDI ports, and the last error."),
		mcp.WithReadOnlyHintAnnotation(true),
	), h.connectionStatus)

	s.AddTool(mcp.NewTool("fl_send_command",
		mcp.WithDescription("Send a raw controller command such as \"transport.start\" and return the full response."),
		mcp.WithString("action", mcp.Required(), mcp.Description("Dotted controller action name")),
		mcp.WithObject("params", mcp.Description("Action parameters")),
		mcp.WithNumber("timeout_seconds", mcp.Description("Response wait in seconds, at most 300; defaults to the configured timeout")),
	), h.sendCommand)
}

func (h *handlers) connect(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if err := h.session.Reset(); err != nil {
		h.logger.Warn("reset before connect failed", "error", err.Error())
	}
	if err := h.session.Connect(ctx); err != nil {
		return mcp.NewToolResultError("Connection failed: " + err.Error()), nil
	}
	status := h.session.Status()
	msg := "Successfully connected to FL Studio"
	switch {
	case status.Port != "":
		msg += " via MIDI port " + status.Port
	case status.Keystroke != "":
		msg += " via " + status.Keystroke
	}
	return mcp.NewToolResultText(msg + "!"), nil
}

func (h *handlers) connectionStatus(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(h.session.Status()), nil
}

func (h *handlers) sendCommand(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	action, err := req.RequireString("action")
	if err != nil || strings.TrimSpace(action) == "" {
		return errorResult("action is required"), nil
	}
	params, _ := req.GetArguments()["params"].(map[string]any)

	timeout := h.timeout
	if secs := req.GetFloat("timeout_seconds", 0); secs > 0 {
		if secs > maxTimeoutSeconds {
			return errorResult(fmt.Sprintf("timeout_seconds must be at most %d", maxTimeoutSeconds)), nil
		}
		timeout = time.Duration(secs * float64(time.Second))
	}

	res, err := h.session.Exchange(ctx, strings.TrimSpace(action), params, timeout)
	if err != nil {
		return errorResult(err.Error()), nil
	}
	result := jsonResult(res.Response)
	if !res.OK() {
		result.IsError = true
		h.logger.Debug("raw command failed", "action", action, "failure", res.Failure)
	}
	return result, nil
}
