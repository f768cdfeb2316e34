// Package filechannel owns the JSON files exchanged with FL Studio scripts.
//
// The command/response pair is a single slot: every WriteCommand overwrites the
// previous command and the DAW side answers with exactly one response file.
package filechannel

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

const (
	CommandFile  = "mcp_command.json"
	ResponseFile = "mcp_response.json"
)

var (
	// ErrIO marks local filesystem failures (unwritable dir, permission errors).
	ErrIO = errors.New("file channel io failure")
	// ErrMalformed marks file content that is not the expected JSON shape.
	ErrMalformed = errors.New("malformed content")
	// ErrMalformedResponse marks a response file that is not a JSON object.
	ErrMalformedResponse = fmt.Errorf("%w: response", ErrMalformed)
)

// Command is one request for the DAW-side dispatcher.
type Command struct {
	Action string         `json:"action"`
	Params map[string]any `json:"params"`
}

// Channel reads and writes the command/response pair inside one directory.
type Channel struct {
	dir string
}

// New returns a channel rooted at dir. The directory must already exist.
func New(dir string) *Channel {
	return &Channel{dir: dir}
}

func (c *Channel) Dir() string          { return c.dir }
func (c *Channel) CommandPath() string  { return filepath.Join(c.dir, CommandFile) }
func (c *Channel) ResponsePath() string { return filepath.Join(c.dir, ResponseFile) }

// WriteCommand fully replaces the command file with cmd.
func (c *Channel) WriteCommand(cmd Command) error {
	if cmd.Params == nil {
		cmd.Params = map[string]any{}
	}
	payload, err := json.MarshalIndent(cmd, "", "  ")
	if err != nil {
		return fmt.Errorf("encode command %q: %w", cmd.Action, err)
	}
	if err := writeFileAtomic(c.CommandPath(), payload); err != nil {
		return fmt.Errorf("write command %q: %w: %w", c.CommandPath(), ErrIO, err)
	}
	return nil
}

// ClearResponse removes a stale response file. A missing file is not an error.
func (c *Channel) ClearResponse() error {
	return removeIfExists(c.ResponsePath())
}

// TryReadResponse consumes the response file when present.
//
// It reports ok=false while the file is absent or still empty (the DAW side has
// created but not yet written it). Content that is not a JSON object returns
// ErrMalformedResponse; the file is removed either way so it is never re-read.
func (c *Channel) TryReadResponse() (Response, bool, error) {
	path := c.ResponsePath()
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("read response %q: %w: %w", path, ErrIO, err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, false, nil
	}

	resp, decodeErr := decodeResponse(data)
	if removeErr := removeIfExists(path); removeErr != nil && decodeErr == nil {
		return nil, false, removeErr
	}
	if decodeErr != nil {
		return nil, false, fmt.Errorf("%w: %v", ErrMalformedResponse, decodeErr)
	}
	return resp, true, nil
}

func decodeResponse(data []byte) (Response, error) {
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.UseNumber()

	var resp Response
	if err := decoder.Decode(&resp); err != nil {
		return nil, err
	}
	if resp == nil {
		return nil, errors.New("response is not a JSON object")
	}
	if decoder.More() {
		return nil, errors.New("unexpected trailing content")
	}
	return resp, nil
}
