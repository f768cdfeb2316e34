package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

const (
	StatusURI  = "fl://status"
	ProjectURI = "fl://project"
)

func registerResources(s *server.MCPServer, h *handlers) {
	s.AddResource(mcp.NewResource(StatusURI, "FL Studio connection status",
		mcp.WithResourceDescription("Whether the bridge is connected to FL Studio"),
		mcp.WithMIMEType("text/plain"),
	), h.statusResource)

	s.AddResource(mcp.NewResource(ProjectURI, "FL Studio project",
		mcp.WithResourceDescription("Transport state of the open project"),
		mcp.WithMIMEType("application/json"),
	), h.projectResource)
}

// StatusText is the fl://status body.
func StatusText(connected bool, lastErr string) string {
	if connected {
		return "Connected to FL Studio"
	}
	if lastErr == "" {
		lastErr = "not attempted"
	}
	return "Not connected: " + lastErr
}

func (h *handlers) statusResource(_ context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	status := h.session.Status()
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      req.Params.URI,
			MIMEType: "text/plain",
			Text:     StatusText(status.Connected, status.Error),
		},
	}, nil
}

// projectResource answers from the DAW only when already connected.
func (h *handlers) projectResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	var body any
	status := h.session.Status()
	if !status.Connected {
		body = map[string]string{"error": StatusText(false, status.Error)}
	} else {
		resp, err := h.session.SendCommand(ctx, "transport.getStatus", nil, h.timeout)
		switch {
		case err != nil:
			body = map[string]string{"error": err.Error()}
		case !resp.Success():
			body = map[string]string{"error": resp.ErrorMessage()}
		default:
			body = transportStatusFrom(resp)
		}
	}

	data, err := json.MarshalIndent(body, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode project resource: %w", err)
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      req.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}
