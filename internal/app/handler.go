package app

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/rbright/flmcp/internal/ipc"
)

// IPC commands served by the running server and executed locally otherwise.
const (
	ipcStatus     = "status"
	ipcSend       = "send"
	ipcTrigger    = "trigger"
	ipcQueueClear = "queue-clear"
)

// Handle executes one CLI request against the stack.
func (s *stack) Handle(ctx context.Context, req ipc.Request) ipc.Response {
	switch req.Command {
	case ipcStatus:
		status := s.session.Status()
		return ipc.Response{OK: true, State: string(status.State), Result: toMap(status)}
	case ipcSend:
		return s.handleSend(ctx, req)
	case ipcTrigger:
		result := s.editor.Trigger(ctx)
		switch {
		case !result.Supported:
			return ipc.Response{OK: false, Error: fmt.Sprintf("auto-trigger not supported on %s", result.Platform)}
		case result.Err != nil:
			return ipc.Response{OK: false, Error: fmt.Sprintf("trigger failed: %v; press %s manually", result.Err, result.Keystroke)}
		default:
			return ipc.Response{OK: true, Message: "piano roll script triggered"}
		}
	case ipcQueueClear:
		if err := s.editor.ClearQueue(); err != nil {
			return ipc.Response{OK: false, Error: err.Error()}
		}
		return ipc.Response{OK: true, Message: "request queue cleared"}
	default:
		return ipc.Response{OK: false, Error: fmt.Sprintf("unsupported command %q", req.Command)}
	}
}

func (s *stack) handleSend(ctx context.Context, req ipc.Request) ipc.Response {
	action := strings.TrimSpace(req.Action)
	if action == "" {
		return ipc.Response{OK: false, Error: "action is required"}
	}
	timeout := s.cfg.Timeout
	if req.TimeoutMS > 0 {
		timeout = time.Duration(req.TimeoutMS) * time.Millisecond
	}

	res, err := s.session.Exchange(ctx, action, req.Params, timeout)
	if err != nil {
		return ipc.Response{OK: false, Error: err.Error()}
	}
	out := ipc.Response{OK: res.OK(), State: string(res.Failure), Result: res.Response}
	if !out.OK {
		out.Error = res.Response.FailureMessage()
	}
	return out
}

// toMap flattens a JSON-tagged struct into the generic IPC result payload.
func toMap(v any) map[string]any {
	data, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil
	}
	return out
}
