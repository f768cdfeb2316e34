// Package config resolves, parses, validates, and defaults flmcp configuration.
package config

import "time"

// Config is the fully materialized runtime configuration used by flmcp.
type Config struct {
	SettingsDir  string
	LogLevel     string
	Timeout      time.Duration
	PollInterval time.Duration
	Watch        bool
	Trigger      TriggerConfig
	Journal      JournalConfig
	HTTP         HTTPConfig
	MCP          MCPConfig
}

// TriggerConfig selects and tunes the out-of-band "process now" signal.
type TriggerConfig struct {
	Strategy  string
	Note      NoteConfig
	Keystroke KeystrokeConfig
}

// NoteConfig controls MIDI port selection and the sentinel note.
type NoteConfig struct {
	Port           string
	PreferredPorts []string
	Channel        int
	Number         int
	Velocity       int
}

// KeystrokeConfig controls DAW focus and the hot-key backend.
type KeystrokeConfig struct {
	App         string
	WindowClass string
	Command     CommandConfig
	FocusDelay  time.Duration
	Delay       time.Duration
}

// CommandConfig stores a raw command string and its parsed argv form.
type CommandConfig struct {
	Raw  string
	Argv []string
}

// JournalConfig controls the sqlite exchange journal.
type JournalConfig struct {
	Enable bool
	Path   string
	Keep   int
}

// HTTPConfig controls the optional local HTTP API.
type HTTPConfig struct {
	Enable bool
	Addr   string
	// Metrics exposes Prometheus metrics at /metrics.
	Metrics bool
	// CORSOrigins lists browser origins allowed to call the API.
	CORSOrigins []string
}

// MCPConfig controls the MCP server surface.
type MCPConfig struct {
	Name     string
	HTTPPath string
	Stdio    bool
}

// Warning is a non-fatal parse/validation message.
type Warning struct {
	Key     string
	Message string
}
