// Package dawsim plays the DAW side of the bridge in-process: it answers the
// command file like the FL Studio controller script and applies the piano
// roll queue like the piano roll script.
package dawsim

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/rbright/flmcp/internal/filechannel"
	"github.com/rbright/flmcp/internal/trigger"
)

// Mode selects how the simulated controller answers.
type Mode string

const (
	ModeNormal  Mode = "normal"
	ModeSilent  Mode = "silent"
	ModeGarbage Mode = "garbage"
)

// Handler executes one action against the project.
type Handler func(p *Project, params Params) (map[string]any, error)

// Controller answers commands written to the hardware directory.
type Controller struct {
	dir      string
	latency  time.Duration
	mu       sync.Mutex
	mode     Mode
	project  *Project
	handlers map[string]Handler
	handled  []string
}

// Options configures a Controller.
type Options struct {
	// Latency delays the response after a trigger; zero answers synchronously.
	Latency time.Duration
	Mode    Mode
	Project *Project
}

// NewController builds a simulated controller over the hardware directory.
func NewController(dir string, opts Options) *Controller {
	project := opts.Project
	if project == nil {
		project = NewProject()
	}
	mode := opts.Mode
	if mode == "" {
		mode = ModeNormal
	}
	return &Controller{
		dir:      dir,
		latency:  opts.Latency,
		mode:     mode,
		project:  project,
		handlers: defaultHandlers(),
	}
}

// Handle registers or replaces the handler for action.
func (c *Controller) Handle(action string, h Handler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers[action] = h
}

// SetMode switches response behavior for later triggers.
func (c *Controller) SetMode(mode Mode) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.mode = mode
}

// Actions lists the registered actions in sorted order.
func (c *Controller) Actions() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	actions := make([]string, 0, len(c.handlers))
	for action := range c.handlers {
		actions = append(actions, action)
	}
	sort.Strings(actions)
	return actions
}

// Handled returns the actions processed so far, in order.
func (c *Controller) Handled() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.handled...)
}

// Project exposes the simulated state. Callers must not mutate it concurrently
// with command processing.
func (c *Controller) Project() *Project { return c.project }

// Trigger returns a trigger that makes the controller process the command file.
func (c *Controller) Trigger() trigger.Trigger {
	return trigger.Callback{Name: "dawsim controller", OnFire: c.fire}
}

func (c *Controller) fire(ctx context.Context) error {
	if c.latency <= 0 {
		return c.Process()
	}
	go func() {
		select {
		case <-ctx.Done():
		case <-time.After(c.latency):
		}
		_ = c.Process()
	}()
	return nil
}

// Process reads the command file and writes exactly one response, unless the
// controller is silent.
func (c *Controller) Process() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	responsePath := filepath.Join(c.dir, filechannel.ResponseFile)
	switch c.mode {
	case ModeSilent:
		return nil
	case ModeGarbage:
		return os.WriteFile(responsePath, []byte("{not json"), 0o644)
	}

	resp := c.execute()
	payload, err := json.MarshalIndent(resp, "", "  ")
	if err != nil {
		return fmt.Errorf("encode response: %w", err)
	}
	return writeAtomic(responsePath, payload)
}

func (c *Controller) execute() map[string]any {
	data, err := os.ReadFile(filepath.Join(c.dir, filechannel.CommandFile))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return map[string]any{"success": false, "error": "No command file found"}
		}
		return map[string]any{"success": false, "error": fmt.Sprintf("Error reading command: %v", err)}
	}

	var cmd struct {
		Action string         `json:"action"`
		Params map[string]any `json:"params"`
	}
	if err := json.Unmarshal(data, &cmd); err != nil {
		return map[string]any{"success": false, "error": fmt.Sprintf("Invalid JSON in command file: %v", err)}
	}
	c.handled = append(c.handled, cmd.Action)

	handler, ok := c.handlers[cmd.Action]
	if !ok {
		return map[string]any{"success": false, "error": "Unknown action: " + cmd.Action}
	}
	result, err := handler(c.project, Params(cmd.Params))
	if err != nil {
		return map[string]any{"success": false, "error": fmt.Sprintf("Error executing command: %v", err)}
	}

	resp := make(map[string]any, len(result)+2)
	for k, v := range result {
		resp[k] = v
	}
	resp["success"] = true
	resp["error"] = nil
	return resp
}

func writeAtomic(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
