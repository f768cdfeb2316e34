package mcpserver

import (
	"context"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/rbright/flmcp/internal/journal"
)

// ExchangeView is one journal entry as reported to clients.
type ExchangeView struct {
	ID        string         `json:"id"`
	Action    string         `json:"action"`
	Params    map[string]any `json:"params"`
	Success   bool           `json:"success"`
	Error     string         `json:"error,omitempty"`
	Failure   string         `json:"failure,omitempty"`
	StartedAt time.Time      `json:"started_at"`
	LatencyMS int64          `json:"latency_ms"`
}

// ViewOf converts a journal entry for display.
func ViewOf(e journal.Entry) ExchangeView {
	params := e.Params
	if params == nil {
		params = map[string]any{}
	}
	return ExchangeView{
		ID:        e.ID,
		Action:    e.Action,
		Params:    params,
		Success:   e.Success,
		Error:     e.Error,
		Failure:   e.Failure,
		StartedAt: e.StartedAt.UTC(),
		LatencyMS: e.Latency.Milliseconds(),
	}
}

func registerHistoryTools(s *server.MCPServer, h *handlers) {
	s.AddTool(mcp.NewTool("fl_recent_commands",
		mcp.WithDescription("List the most recent controller commands with outcome and latency, newest first."),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithNumber("limit", mcp.DefaultNumber(20), mcp.Min(1), mcp.Max(500)),
	), h.recentCommands)
}

func (h *handlers) recentCommands(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	limit := req.GetInt("limit", 20)
	if limit < 1 || limit > 500 {
		return errorResult("limit must be between 1 and 500"), nil
	}
	entries, err := h.history.Recent(ctx, limit)
	if err != nil {
		return errorResult(err.Error()), nil
	}
	views := make([]ExchangeView, 0, len(entries))
	for _, e := range entries {
		views = append(views, ViewOf(e))
	}
	return jsonResult(views), nil
}
