package doctor

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rbright/flmcp/internal/config"
	"github.com/rbright/flmcp/internal/settings"
	"github.com/stretchr/testify/require"
	"gitlab.com/gomidi/midi/v2/drivers"
)

type stubOut struct{ name string }

func (o stubOut) Open() error             { return nil }
func (o stubOut) Close() error            { return nil }
func (o stubOut) IsOpen() bool            { return true }
func (o stubOut) Number() int             { return 0 }
func (o stubOut) String() string          { return o.name }
func (o stubOut) Underlying() interface{} { return nil }
func (o stubOut) Send([]byte) error       { return nil }

type stubDriver struct{ outs []string }

func (d stubDriver) Ins() ([]drivers.In, error) { return nil, nil }
func (d stubDriver) Outs() ([]drivers.Out, error) {
	outs := make([]drivers.Out, 0, len(d.outs))
	for _, name := range d.outs {
		outs = append(outs, stubOut{name: name})
	}
	return outs, nil
}
func (d stubDriver) String() string { return "stub" }
func (d stubDriver) Close() error   { return nil }

func stubHost(goos string, ports ...string) host {
	return host{goos: goos, openDriver: func() (drivers.Driver, error) { return stubDriver{outs: ports}, nil }}
}

func findCheck(t *testing.T, report Report, name string) Check {
	t.Helper()
	for _, check := range report.Checks {
		if check.Name == name {
			return check
		}
	}
	t.Fatalf("check %q not in report:\n%s", name, report.String())
	return Check{}
}

func installController(t *testing.T, base string) {
	t.Helper()
	dirs, err := settings.Resolve(base)
	require.NoError(t, err)
	require.NoError(t, dirs.Ensure())
	require.NoError(t, os.WriteFile(dirs.ControllerScriptPath(), []byte("# controller\n"), 0o644))
}

func TestReportOKAndString(t *testing.T) {
	report := Report{Checks: []Check{
		{Name: "one", Pass: true, Message: "good"},
		{Name: "two", Pass: false, Message: "bad"},
	}}

	require.False(t, report.OK())
	text := report.String()
	require.Contains(t, text, "[OK] one: good")
	require.Contains(t, text, "[FAIL] two: bad")
}

func TestReportOKAllPassing(t *testing.T) {
	report := Report{Checks: []Check{{Name: "one", Pass: true}, {Name: "two", Pass: true}}}
	require.True(t, report.OK())
}

func TestCheckEnv(t *testing.T) {
	t.Setenv("TEST_DOCTOR_ENV", "abc")

	check := checkEnv(
		"TEST_DOCTOR_ENV",
		func(v string) bool { return strings.TrimSpace(v) != "" },
		"looks good",
		"unexpected",
	)

	require.True(t, check.Pass)
	require.Equal(t, "looks good", check.Message)
}

func TestCheckCommandEmpty(t *testing.T) {
	check := checkCommand(nil, "trigger.keystroke.command")
	require.False(t, check.Pass)
	require.Contains(t, check.Message, "command is empty")
}

func TestCheckBinaryFound(t *testing.T) {
	check := checkBinary("sh", "shell available")
	require.True(t, check.Pass)
	require.Contains(t, check.Message, "shell available")
}

func TestCheckBinaryMissing(t *testing.T) {
	check := checkBinary("definitely-not-a-real-binary", "unused")
	require.False(t, check.Pass)
	require.Contains(t, check.Message, "binary not found")
}

func TestCheckWritable(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "dir")

	check := checkWritable("settings.hardware", dir)
	require.True(t, check.Pass, check.Message)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Empty(t, entries)
}

func TestCheckWritableFailsUnderFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o600))

	check := checkWritable("settings.hardware", filepath.Join(file, "sub"))
	require.False(t, check.Pass)
}

func TestRunReportsMissingControllerScript(t *testing.T) {
	cfg := config.Default()
	cfg.SettingsDir = t.TempDir()
	cfg.Trigger.Strategy = "none"
	cfg.Journal.Enable = false

	report := run(config.Loaded{Path: "/tmp/config.jsonc", Config: cfg}, stubHost("darwin"))
	require.False(t, report.OK())
	require.Contains(t, findCheck(t, report, "config").Message, "not found; using defaults")
	require.False(t, findCheck(t, report, "controller.script").Pass)
	require.True(t, findCheck(t, report, "settings.piano_roll").Pass)
}

func TestRunAutoChecksMIDIAndKeystroke(t *testing.T) {
	binDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(binDir, "osascript"), []byte("#!/usr/bin/env sh\nexit 0\n"), 0o755))
	t.Setenv("PATH", binDir+":"+os.Getenv("PATH"))
	t.Setenv("XDG_STATE_HOME", t.TempDir())

	cfg := config.Default()
	cfg.SettingsDir = t.TempDir()
	installController(t, cfg.SettingsDir)

	report := run(config.Loaded{Path: "/tmp/config.jsonc", Config: cfg, Exists: true}, stubHost("darwin", "Bus 1", "IAC Driver FL"))
	require.True(t, report.OK(), report.String())
	require.Contains(t, findCheck(t, report, "midi.port").Message, `using "IAC Driver FL"`)
	require.Contains(t, findCheck(t, report, "osascript").Message, "Cmd+Opt+Y")
	require.True(t, findCheck(t, report, "journal").Pass)
}

func TestRunMIDIWithoutPortsFails(t *testing.T) {
	cfg := config.Default()
	cfg.SettingsDir = t.TempDir()
	cfg.Trigger.Strategy = "note"
	cfg.Journal.Enable = false

	report := run(config.Loaded{Path: "/tmp/config.jsonc", Config: cfg}, stubHost("windows"))
	check := findCheck(t, report, "midi.port")
	require.False(t, check.Pass)
	require.Contains(t, check.Message, "no ports")
}

func TestRunMIDIDriverFailure(t *testing.T) {
	cfg := config.Default()
	cfg.SettingsDir = t.TempDir()
	cfg.Journal.Enable = false

	h := host{goos: "linux", openDriver: func() (drivers.Driver, error) { return nil, errors.New("alsa unavailable") }}
	report := run(config.Loaded{Path: "/tmp/config.jsonc", Config: cfg}, h)
	check := findCheck(t, report, "midi.port")
	require.False(t, check.Pass)
	require.Contains(t, check.Message, "alsa unavailable")
}

func TestRunKeystrokeUsesCustomCommand(t *testing.T) {
	binDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(binDir, "fake-keys"), []byte("#!/usr/bin/env sh\nexit 0\n"), 0o755))
	t.Setenv("PATH", binDir+":"+os.Getenv("PATH"))

	cfg := config.Default()
	cfg.SettingsDir = t.TempDir()
	cfg.Trigger.Strategy = "keystroke"
	cfg.Trigger.Keystroke.Command = config.CommandConfig{Raw: "fake-keys --y", Argv: []string{"fake-keys", "--y"}}
	cfg.Journal.Enable = false

	report := run(config.Loaded{Path: "/tmp/config.jsonc", Config: cfg}, stubHost("linux"))
	require.True(t, findCheck(t, report, "fake-keys").Pass)
	for _, check := range report.Checks {
		require.NotEqual(t, "hyprctl", check.Name)
		require.NotEqual(t, "midi.port", check.Name)
	}
}

func TestRunLinuxKeystrokeNeedsHyprland(t *testing.T) {
	t.Setenv("HYPRLAND_INSTANCE_SIGNATURE", "")

	cfg := config.Default()
	cfg.SettingsDir = t.TempDir()
	cfg.Trigger.Strategy = "keystroke"
	cfg.Journal.Enable = false

	report := run(config.Loaded{Path: "/tmp/config.jsonc", Config: cfg}, stubHost("linux"))
	require.False(t, findCheck(t, report, "HYPRLAND_INSTANCE_SIGNATURE").Pass)
}

func TestRunUnknownStrategyStopsEarly(t *testing.T) {
	cfg := config.Default()
	cfg.SettingsDir = t.TempDir()
	cfg.Trigger.Strategy = "telepathy"

	report := run(config.Loaded{Path: "/tmp/config.jsonc", Config: cfg}, stubHost("darwin"))
	require.False(t, findCheck(t, report, "trigger.strategy").Pass)
}
