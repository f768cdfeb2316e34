package config

import (
	"fmt"
	"strings"
	"time"
)

// Validate enforces config invariants and returns non-fatal warnings.
func Validate(cfg Config) ([]Warning, error) {
	warnings := make([]Warning, 0)

	switch cfg.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return nil, fmt.Errorf("log_level must be one of: debug, info, warn, error")
	}
	if cfg.Timeout <= 0 {
		return nil, fmt.Errorf("timeout must be > 0")
	}
	if cfg.PollInterval <= 0 {
		return nil, fmt.Errorf("poll_interval must be > 0")
	}
	if cfg.PollInterval >= cfg.Timeout {
		return nil, fmt.Errorf("poll_interval must be shorter than timeout")
	}
	if cfg.Timeout > time.Minute {
		warnings = append(warnings, Warning{Key: keyTimeout, Message: fmt.Sprintf("timeout %s is unusually long; tool calls block for the full duration", cfg.Timeout)})
	}

	switch cfg.Trigger.Strategy {
	case "auto", "note", "keystroke", "none":
	default:
		return nil, fmt.Errorf("trigger.strategy must be one of: auto, note, keystroke, none")
	}
	if cfg.Trigger.Note.Channel < 0 || cfg.Trigger.Note.Channel > 15 {
		return nil, fmt.Errorf("trigger.note.channel must be within 0-15")
	}
	if cfg.Trigger.Note.Number < 1 || cfg.Trigger.Note.Number > 127 {
		// 0 would read as unset in the note trigger and fall back to 127.
		return nil, fmt.Errorf("trigger.note.number must be within 1-127")
	}
	if cfg.Trigger.Note.Velocity < 1 || cfg.Trigger.Note.Velocity > 127 {
		// The controller ignores note-on with velocity 0, which MIDI treats as note-off.
		return nil, fmt.Errorf("trigger.note.velocity must be within 1-127")
	}
	if cfg.Trigger.Note.Number != 127 {
		warnings = append(warnings, Warning{Key: keyNoteNumber, Message: "trigger.note.number differs from 127; the controller script must listen for the same note"})
	}
	if cfg.Trigger.Keystroke.Command.Raw != "" && len(cfg.Trigger.Keystroke.Command.Argv) == 0 {
		return nil, fmt.Errorf("trigger.keystroke.command is configured but empty")
	}
	if cfg.Trigger.Keystroke.FocusDelay < 0 || cfg.Trigger.Keystroke.Delay < 0 {
		return nil, fmt.Errorf("trigger.keystroke delays must be >= 0")
	}
	if strings.TrimSpace(cfg.Trigger.Keystroke.App) == "" {
		return nil, fmt.Errorf("trigger.keystroke.app must not be empty")
	}

	if cfg.Journal.Keep < 0 {
		return nil, fmt.Errorf("journal.keep must be >= 0")
	}
	if cfg.HTTP.Enable && strings.TrimSpace(cfg.HTTP.Addr) == "" {
		return nil, fmt.Errorf("http.addr must not be empty when http.enable=true")
	}
	for _, origin := range cfg.HTTP.CORSOrigins {
		if origin != "*" && !strings.HasPrefix(origin, "http://") && !strings.HasPrefix(origin, "https://") {
			return nil, fmt.Errorf("http.cors_origins entry %q must be \"*\" or an http(s) origin", origin)
		}
	}
	if !strings.HasPrefix(cfg.MCP.HTTPPath, "/") {
		return nil, fmt.Errorf("mcp.http_path must start with '/'")
	}
	if strings.TrimSpace(cfg.MCP.Name) == "" {
		return nil, fmt.Errorf("mcp.name must not be empty")
	}

	return warnings, nil
}
