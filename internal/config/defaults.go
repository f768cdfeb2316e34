package config

import "time"

// Default returns the canonical runtime configuration used when no file is present.
func Default() Config {
	return Config{
		SettingsDir:  "",
		LogLevel:     "info",
		Timeout:      2 * time.Second,
		PollInterval: 20 * time.Millisecond,
		Watch:        true,
		Trigger: TriggerConfig{
			Strategy: "auto",
			Note: NoteConfig{
				PreferredPorts: []string{"IAC", "loopMIDI", "FL"},
				Channel:        0,
				Number:         127,
				Velocity:       127,
			},
			Keystroke: KeystrokeConfig{
				App:         "FL Studio",
				WindowClass: "fl64.exe",
				FocusDelay:  300 * time.Millisecond,
				Delay:       2 * time.Second,
			},
		},
		Journal: JournalConfig{
			Enable: true,
			Keep:   1000,
		},
		HTTP: HTTPConfig{
			Enable:  false,
			Addr:    "127.0.0.1:8765",
			Metrics: true,
		},
		MCP: MCPConfig{
			Name:     "fl-studio",
			HTTPPath: "/mcp",
			Stdio:    true,
		},
	}
}
