package ipc

// Request is one newline-delimited JSON command forwarded to the running server.
type Request struct {
	Command   string         `json:"command"`
	Action    string         `json:"action,omitempty"`
	Params    map[string]any `json:"params,omitempty"`
	TimeoutMS int64          `json:"timeout_ms,omitempty"`
}

// Response carries the server outcome. Result holds the DAW response or status
// payload verbatim.
type Response struct {
	OK      bool           `json:"ok"`
	State   string         `json:"state,omitempty"`
	Message string         `json:"message,omitempty"`
	Error   string         `json:"error,omitempty"`
	Result  map[string]any `json:"result,omitempty"`
}
