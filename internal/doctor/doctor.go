// Package doctor runs runtime readiness diagnostics for config, FL Studio
// settings, and the trigger backends.
package doctor

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/rbright/flmcp/internal/config"
	"github.com/rbright/flmcp/internal/journal"
	"github.com/rbright/flmcp/internal/mididriver"
	"github.com/rbright/flmcp/internal/settings"
	"github.com/rbright/flmcp/internal/trigger"
)

// Check is one doctor assertion result.
type Check struct {
	Name    string
	Pass    bool
	Message string
}

// Report is the full doctor output contract.
type Report struct {
	Checks []Check
}

// OK returns true when all checks pass.
func (r Report) OK() bool {
	for _, check := range r.Checks {
		if !check.Pass {
			return false
		}
	}
	return true
}

// String renders the report as user-facing text output.
func (r Report) String() string {
	var b strings.Builder
	for _, check := range r.Checks {
		status := "OK"
		if !check.Pass {
			status = "FAIL"
		}
		b.WriteString(fmt.Sprintf("[%s] %s: %s\n", status, check.Name, check.Message))
	}
	return strings.TrimSuffix(b.String(), "\n")
}

// host is what the checks need from the machine; tests swap it.
type host struct {
	goos       string
	openDriver trigger.DriverFunc
}

// Run executes environment/config/runtime checks for a loaded config.
func Run(cfg config.Loaded) Report {
	return run(cfg, host{goos: runtime.GOOS, openDriver: mididriver.Open})
}

func run(cfg config.Loaded, h host) Report {
	checks := []Check{}

	message := fmt.Sprintf("loaded %q", cfg.Path)
	if !cfg.Exists {
		message = fmt.Sprintf("%q not found; using defaults", cfg.Path)
	}
	checks = append(checks, Check{Name: "config", Pass: true, Message: message})

	dirs, err := settings.Resolve(cfg.Config.SettingsDir)
	if err != nil {
		checks = append(checks, Check{Name: "settings", Pass: false, Message: err.Error()})
	} else {
		checks = append(checks, checkWritable("settings.hardware", dirs.Hardware))
		checks = append(checks, checkWritable("settings.piano_roll", dirs.PianoRoll))
		checks = append(checks, checkControllerScript(dirs))
	}

	strategy, ok := trigger.ParseStrategy(cfg.Config.Trigger.Strategy)
	if !ok {
		checks = append(checks, Check{
			Name:    "trigger.strategy",
			Pass:    false,
			Message: fmt.Sprintf("unknown strategy %q", cfg.Config.Trigger.Strategy),
		})
		return Report{Checks: checks}
	}

	switch strategy {
	case trigger.StrategyNone:
		checks = append(checks, Check{Name: "trigger.strategy", Pass: true, Message: "triggers disabled; press the script keys manually"})
	case trigger.StrategyKeystroke:
		checks = append(checks, checkKeystroke(cfg.Config.Trigger.Keystroke, h.goos)...)
	default:
		checks = append(checks, checkMIDIPort(cfg.Config.Trigger.Note, h))
		checks = append(checks, checkKeystroke(cfg.Config.Trigger.Keystroke, h.goos)...)
	}

	if cfg.Config.Journal.Enable {
		checks = append(checks, checkJournal(cfg.Config.Journal.Path))
	}

	return Report{Checks: checks}
}

// checkEnv validates an environment variable through a caller-supplied predicate.
func checkEnv(name string, predicate func(string) bool, okMsg, failMsg string) Check {
	value := os.Getenv(name)
	if predicate(value) {
		return Check{Name: name, Pass: true, Message: okMsg}
	}
	return Check{Name: name, Pass: false, Message: failMsg}
}

// checkCommand validates that argv contains a runnable command.
func checkCommand(argv []string, name string) Check {
	if len(argv) == 0 {
		return Check{Name: name, Pass: false, Message: "command is empty"}
	}
	return checkBinary(argv[0], fmt.Sprintf("%s command is available", name))
}

// checkBinary validates that a binary exists in PATH.
func checkBinary(bin string, okMsg string) Check {
	path, err := exec.LookPath(bin)
	if err != nil {
		return Check{Name: bin, Pass: false, Message: fmt.Sprintf("binary not found in PATH: %s", bin)}
	}
	return Check{Name: bin, Pass: true, Message: fmt.Sprintf("found at %s (%s)", path, okMsg)}
}

// checkWritable creates dir when needed and proves a file can be written there.
func checkWritable(name, dir string) Check {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Check{Name: name, Pass: false, Message: fmt.Sprintf("create %s: %v", dir, err)}
	}
	scratch, err := os.CreateTemp(dir, ".flmcp-doctor-*")
	if err != nil {
		return Check{Name: name, Pass: false, Message: fmt.Sprintf("%s is not writable: %v", dir, err)}
	}
	_ = scratch.Close()
	_ = os.Remove(scratch.Name())
	return Check{Name: name, Pass: true, Message: fmt.Sprintf("writable %s", dir)}
}

// checkControllerScript confirms the FL Studio side of the bridge is installed.
func checkControllerScript(dirs settings.Dirs) Check {
	path := dirs.ControllerScriptPath()
	if _, err := os.Stat(path); err != nil {
		return Check{
			Name:    "controller.script",
			Pass:    false,
			Message: fmt.Sprintf("%s not found; install the controller script and enable it in MIDI settings", path),
		}
	}
	return Check{Name: "controller.script", Pass: true, Message: fmt.Sprintf("installed at %s", path)}
}

// checkMIDIPort opens the note trigger the way the server would and reports
// the selected port.
func checkMIDIPort(cfg config.NoteConfig, h host) Check {
	if h.openDriver == nil {
		return Check{Name: "midi.port", Pass: false, Message: mididriver.ErrNoDriver.Error()}
	}
	note := trigger.NewNote(trigger.NoteConfig{
		Port:           cfg.Port,
		PreferredPorts: cfg.PreferredPorts,
		Channel:        uint8(cfg.Channel),
		Note:           uint8(cfg.Number),
		Velocity:       uint8(cfg.Velocity),
	}, h.goos, h.openDriver)
	defer func() { _ = note.Close() }()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := note.Open(ctx); err != nil {
		return Check{Name: "midi.port", Pass: false, Message: err.Error()}
	}

	info := note.Info()
	message := fmt.Sprintf("using %q", info.Port)
	if len(info.Candidates) > 1 {
		message += fmt.Sprintf(" (%d ports available)", len(info.Candidates))
	}
	return Check{Name: "midi.port", Pass: true, Message: message}
}

// checkKeystroke validates the backend that sends the script hot-key.
func checkKeystroke(cfg config.KeystrokeConfig, goos string) []Check {
	if len(cfg.Command.Argv) > 0 {
		return []Check{checkCommand(cfg.Command.Argv, "trigger.keystroke.command")}
	}
	switch goos {
	case "darwin":
		return []Check{checkBinary("osascript", "sends Cmd+Opt+Y")}
	case "windows":
		return []Check{checkBinary("powershell", "sends Ctrl+Alt+Y")}
	case "linux":
		return []Check{
			checkEnv("HYPRLAND_INSTANCE_SIGNATURE", func(v string) bool {
				return strings.TrimSpace(v) != ""
			}, "Hyprland session detected", "HYPRLAND_INSTANCE_SIGNATURE is empty; set trigger.keystroke.command"),
			checkBinary("hyprctl", "sends Ctrl+Alt+Y"),
		}
	default:
		return []Check{{Name: "trigger.keystroke", Pass: false, Message: fmt.Sprintf("no keystroke backend on %s", goos)}}
	}
}

// checkJournal opens the journal database once.
func checkJournal(path string) Check {
	if path == "" {
		p, err := config.DefaultJournalPath()
		if err != nil {
			return Check{Name: "journal", Pass: false, Message: err.Error()}
		}
		path = p
	}
	j, err := journal.Open(filepath.Clean(path))
	if err != nil {
		return Check{Name: "journal", Pass: false, Message: err.Error()}
	}
	_ = j.Close()
	return Check{Name: "journal", Pass: true, Message: fmt.Sprintf("ready at %s", path)}
}
