package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix namespaces environment overrides, e.g. FLMCP_TRIGGER_STRATEGY.
const EnvPrefix = "FLMCP"

// Loaded captures resolved config path, parsed values, and non-fatal warnings.
type Loaded struct {
	Path     string
	Config   Config
	Warnings []Warning
	Exists   bool
}

// Load resolves, reads, parses, and validates the runtime configuration.
// Environment overrides apply whether or not the file exists.
func Load(explicitPath string) (Loaded, error) {
	resolvedPath, err := ResolvePath(explicitPath)
	if err != nil {
		return Loaded{}, err
	}

	v := newViper(Default())
	warnings := make([]Warning, 0)
	exists := true

	content, err := os.ReadFile(resolvedPath)
	switch {
	case errors.Is(err, os.ErrNotExist):
		exists = false
		warnings = append(warnings, Warning{
			Message: fmt.Sprintf("config file %q not found; using defaults", resolvedPath),
		})
	case err != nil:
		return Loaded{}, fmt.Errorf("read config %q: %w", resolvedPath, err)
	default:
		if err := readInto(v, resolvedPath, string(content)); err != nil {
			return Loaded{}, fmt.Errorf("parse config %q: %w", resolvedPath, err)
		}
		warnings = append(warnings, unknownKeyWarnings(v)...)
	}

	cfg, err := fromViper(v)
	if err != nil {
		return Loaded{}, fmt.Errorf("parse config %q: %w", resolvedPath, err)
	}
	validated, err := Validate(cfg)
	if err != nil {
		return Loaded{}, fmt.Errorf("validate config %q: %w", resolvedPath, err)
	}
	warnings = append(warnings, validated...)

	return Loaded{
		Path:     resolvedPath,
		Config:   cfg,
		Warnings: warnings,
		Exists:   exists,
	}, nil
}

// Parse decodes content of the given format ("jsonc", "json", "toml", "yaml")
// over base. Environment overrides are not applied.
func Parse(content string, format string, base Config) (Config, []Warning, error) {
	v := viper.New()
	setDefaults(v, base)
	if err := readFormat(v, format, content); err != nil {
		return Config{}, nil, err
	}
	cfg, err := fromViper(v)
	if err != nil {
		return Config{}, nil, err
	}
	warnings := unknownKeyWarnings(v)
	validated, err := Validate(cfg)
	if err != nil {
		return Config{}, nil, err
	}
	return cfg, append(warnings, validated...), nil
}

func newViper(base Config) *viper.Viper {
	v := viper.New()
	setDefaults(v, base)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

func readInto(v *viper.Viper, path string, content string) error {
	return readFormat(v, formatForPath(path), content)
}

func formatForPath(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		return "toml"
	case ".yaml", ".yml":
		return "yaml"
	case ".json":
		return "json"
	default:
		return "jsonc"
	}
}

func readFormat(v *viper.Viper, format string, content string) error {
	if strings.TrimSpace(content) == "" {
		return nil
	}
	switch format {
	case "jsonc", "json":
		normalized, err := normalizeJSONC(content)
		if err != nil {
			return err
		}
		v.SetConfigType("json")
		if err := v.ReadConfig(strings.NewReader(normalized)); err != nil {
			return wrapJSONDecodeError(normalized, err)
		}
		return nil
	case "toml", "yaml":
		v.SetConfigType(format)
		return v.ReadConfig(strings.NewReader(content))
	default:
		return fmt.Errorf("unsupported config format %q", format)
	}
}

const (
	keySettingsDir      = "settings_dir"
	keyLogLevel         = "log_level"
	keyTimeout          = "timeout"
	keyPollInterval     = "poll_interval"
	keyWatch            = "watch"
	keyTriggerStrategy  = "trigger.strategy"
	keyNotePort         = "trigger.note.port"
	keyNotePreferred    = "trigger.note.preferred_ports"
	keyNoteChannel      = "trigger.note.channel"
	keyNoteNumber       = "trigger.note.number"
	keyNoteVelocity     = "trigger.note.velocity"
	keyKeystrokeApp     = "trigger.keystroke.app"
	keyKeystrokeClass   = "trigger.keystroke.window_class"
	keyKeystrokeCommand = "trigger.keystroke.command"
	keyKeystrokeFocus   = "trigger.keystroke.focus_delay"
	keyKeystrokeDelay   = "trigger.keystroke.delay"
	keyJournalEnable    = "journal.enable"
	keyJournalPath      = "journal.path"
	keyJournalKeep      = "journal.keep"
	keyHTTPEnable       = "http.enable"
	keyHTTPAddr         = "http.addr"
	keyHTTPMetrics      = "http.metrics"
	keyHTTPCORSOrigins  = "http.cors_origins"
	keyMCPName          = "mcp.name"
	keyMCPHTTPPath      = "mcp.http_path"
	keyMCPStdio         = "mcp.stdio"
)

func setDefaults(v *viper.Viper, cfg Config) {
	v.SetDefault(keySettingsDir, cfg.SettingsDir)
	v.SetDefault(keyLogLevel, cfg.LogLevel)
	v.SetDefault(keyTimeout, cfg.Timeout.String())
	v.SetDefault(keyPollInterval, cfg.PollInterval.String())
	v.SetDefault(keyWatch, cfg.Watch)
	v.SetDefault(keyTriggerStrategy, cfg.Trigger.Strategy)
	v.SetDefault(keyNotePort, cfg.Trigger.Note.Port)
	v.SetDefault(keyNotePreferred, cfg.Trigger.Note.PreferredPorts)
	v.SetDefault(keyNoteChannel, cfg.Trigger.Note.Channel)
	v.SetDefault(keyNoteNumber, cfg.Trigger.Note.Number)
	v.SetDefault(keyNoteVelocity, cfg.Trigger.Note.Velocity)
	v.SetDefault(keyKeystrokeApp, cfg.Trigger.Keystroke.App)
	v.SetDefault(keyKeystrokeClass, cfg.Trigger.Keystroke.WindowClass)
	v.SetDefault(keyKeystrokeCommand, cfg.Trigger.Keystroke.Command.Raw)
	v.SetDefault(keyKeystrokeFocus, cfg.Trigger.Keystroke.FocusDelay.String())
	v.SetDefault(keyKeystrokeDelay, cfg.Trigger.Keystroke.Delay.String())
	v.SetDefault(keyJournalEnable, cfg.Journal.Enable)
	v.SetDefault(keyJournalPath, cfg.Journal.Path)
	v.SetDefault(keyJournalKeep, cfg.Journal.Keep)
	v.SetDefault(keyHTTPEnable, cfg.HTTP.Enable)
	v.SetDefault(keyHTTPAddr, cfg.HTTP.Addr)
	v.SetDefault(keyHTTPMetrics, cfg.HTTP.Metrics)
	v.SetDefault(keyHTTPCORSOrigins, cfg.HTTP.CORSOrigins)
	v.SetDefault(keyMCPName, cfg.MCP.Name)
	v.SetDefault(keyMCPHTTPPath, cfg.MCP.HTTPPath)
	v.SetDefault(keyMCPStdio, cfg.MCP.Stdio)
}

func knownKeys() map[string]struct{} {
	keys := []string{
		keySettingsDir, keyLogLevel, keyTimeout, keyPollInterval, keyWatch,
		keyTriggerStrategy, keyNotePort, keyNotePreferred, keyNoteChannel, keyNoteNumber, keyNoteVelocity,
		keyKeystrokeApp, keyKeystrokeClass, keyKeystrokeCommand, keyKeystrokeFocus, keyKeystrokeDelay,
		keyJournalEnable, keyJournalPath, keyJournalKeep,
		keyHTTPEnable, keyHTTPAddr, keyHTTPMetrics, keyHTTPCORSOrigins,
		keyMCPName, keyMCPHTTPPath, keyMCPStdio,
	}
	out := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		out[k] = struct{}{}
	}
	return out
}

func unknownKeyWarnings(v *viper.Viper) []Warning {
	known := knownKeys()
	var unknown []string
	for _, key := range v.AllKeys() {
		if _, ok := known[key]; !ok {
			unknown = append(unknown, key)
		}
	}
	sort.Strings(unknown)

	warnings := make([]Warning, 0, len(unknown))
	for _, key := range unknown {
		warnings = append(warnings, Warning{Key: key, Message: fmt.Sprintf("unknown config key %q ignored", key)})
	}
	return warnings
}

func fromViper(v *viper.Viper) (Config, error) {
	cfg := Config{
		SettingsDir: strings.TrimSpace(v.GetString(keySettingsDir)),
		LogLevel:    strings.ToLower(strings.TrimSpace(v.GetString(keyLogLevel))),
		Watch:       v.GetBool(keyWatch),
		Trigger: TriggerConfig{
			Strategy: strings.ToLower(strings.TrimSpace(v.GetString(keyTriggerStrategy))),
			Note: NoteConfig{
				Port:           strings.TrimSpace(v.GetString(keyNotePort)),
				PreferredPorts: stringList(v.Get(keyNotePreferred)),
				Channel:        v.GetInt(keyNoteChannel),
				Number:         v.GetInt(keyNoteNumber),
				Velocity:       v.GetInt(keyNoteVelocity),
			},
			Keystroke: KeystrokeConfig{
				App:         strings.TrimSpace(v.GetString(keyKeystrokeApp)),
				WindowClass: strings.TrimSpace(v.GetString(keyKeystrokeClass)),
			},
		},
		Journal: JournalConfig{
			Enable: v.GetBool(keyJournalEnable),
			Path:   strings.TrimSpace(v.GetString(keyJournalPath)),
			Keep:   v.GetInt(keyJournalKeep),
		},
		HTTP: HTTPConfig{
			Enable:      v.GetBool(keyHTTPEnable),
			Addr:        strings.TrimSpace(v.GetString(keyHTTPAddr)),
			Metrics:     v.GetBool(keyHTTPMetrics),
			CORSOrigins: stringList(v.Get(keyHTTPCORSOrigins)),
		},
		MCP: MCPConfig{
			Name:     strings.TrimSpace(v.GetString(keyMCPName)),
			HTTPPath: strings.TrimSpace(v.GetString(keyMCPHTTPPath)),
			Stdio:    v.GetBool(keyMCPStdio),
		},
	}

	durations := []struct {
		key string
		dst *time.Duration
	}{
		{keyTimeout, &cfg.Timeout},
		{keyPollInterval, &cfg.PollInterval},
		{keyKeystrokeFocus, &cfg.Trigger.Keystroke.FocusDelay},
		{keyKeystrokeDelay, &cfg.Trigger.Keystroke.Delay},
	}
	for _, d := range durations {
		value, err := parseDuration(v.Get(d.key))
		if err != nil {
			return Config{}, fmt.Errorf("%s: %w", d.key, err)
		}
		*d.dst = value
	}

	command, err := parseCommand(v.Get(keyKeystrokeCommand))
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", keyKeystrokeCommand, err)
	}
	cfg.Trigger.Keystroke.Command = command

	return cfg, nil
}

// parseDuration accepts Go duration strings ("1.5s") or bare numbers in seconds.
func parseDuration(raw any) (time.Duration, error) {
	switch v := raw.(type) {
	case nil:
		return 0, nil
	case time.Duration:
		return v, nil
	case int:
		return time.Duration(v) * time.Second, nil
	case int64:
		return time.Duration(v) * time.Second, nil
	case float64:
		return time.Duration(v * float64(time.Second)), nil
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return 0, nil
		}
		if secs, err := strconv.ParseFloat(s, 64); err == nil {
			return time.Duration(secs * float64(time.Second)), nil
		}
		d, err := time.ParseDuration(s)
		if err != nil {
			return 0, fmt.Errorf("invalid duration %q", s)
		}
		return d, nil
	default:
		return 0, fmt.Errorf("invalid duration %v", raw)
	}
}

// parseCommand accepts a shell-like string or an explicit argv list.
func parseCommand(raw any) (CommandConfig, error) {
	switch v := raw.(type) {
	case nil:
		return CommandConfig{}, nil
	case string:
		argv, err := parseArgv(v)
		if err != nil {
			return CommandConfig{}, err
		}
		return CommandConfig{Raw: strings.TrimSpace(v), Argv: argv}, nil
	case []any, []string:
		argv := stringList(v)
		return CommandConfig{Raw: strings.Join(argv, " "), Argv: argv}, nil
	default:
		return CommandConfig{}, fmt.Errorf("expected string or string array")
	}
}

// stringList accepts a list or a comma-delimited string.
func stringList(raw any) []string {
	var items []string
	switch v := raw.(type) {
	case []string:
		items = v
	case []any:
		for _, item := range v {
			items = append(items, fmt.Sprint(item))
		}
	case string:
		items = strings.Split(v, ",")
	}

	out := make([]string, 0, len(items))
	for _, item := range items {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
