package trigger

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/rbright/flmcp/internal/hypr"
)

const (
	DefaultApp         = "FL Studio"
	DefaultWindowClass = "fl64.exe"
)

// KeystrokeConfig controls how the DAW is focused and which chord is sent.
type KeystrokeConfig struct {
	App         string
	WindowClass string
	Command     []string
	FocusDelay  time.Duration
	Delay       time.Duration
}

// Keystroke foregrounds the DAW and synthesizes the script hot-key.
type Keystroke struct {
	cfg  KeystrokeConfig
	goos string
}

// NewKeystroke builds a keystroke trigger for goos.
func NewKeystroke(cfg KeystrokeConfig, goos string) *Keystroke {
	if strings.TrimSpace(cfg.App) == "" {
		cfg.App = DefaultApp
	}
	if strings.TrimSpace(cfg.WindowClass) == "" {
		cfg.WindowClass = DefaultWindowClass
	}
	if cfg.FocusDelay <= 0 {
		cfg.FocusDelay = 300 * time.Millisecond
	}
	return &Keystroke{cfg: cfg, goos: goos}
}

// KeystrokeSupported reports whether goos has a keystroke backend.
func KeystrokeSupported(cfg KeystrokeConfig, goos string) bool {
	if len(cfg.Command) > 0 {
		return true
	}
	switch goos {
	case "darwin", "windows":
		return true
	case "linux":
		return hypr.Available()
	default:
		return false
	}
}

func (k *Keystroke) Kind() Kind { return KindKeystroke }

// Open verifies that the backend binary is present.
func (k *Keystroke) Open(_ context.Context) error {
	bin := k.binary()
	if bin == "" {
		return fmt.Errorf("%w on %s", ErrUnsupported, k.goos)
	}
	if _, err := exec.LookPath(bin); err != nil {
		return &ConnectionError{Reason: ReasonDriverMissing, Port: bin, Err: err}
	}
	return nil
}

// Fire focuses the DAW, sends the chord, then waits the configured settle delay.
func (k *Keystroke) Fire(ctx context.Context) error {
	var err error
	switch {
	case len(k.cfg.Command) > 0:
		err = runCommand(ctx, k.cfg.Command)
	case k.goos == "darwin":
		err = runCommand(ctx, []string{"osascript", "-e", k.appleScript()})
	case k.goos == "windows":
		err = runCommand(ctx, []string{"powershell", "-NoProfile", "-NonInteractive", "-Command", k.powerShellScript()})
	case k.goos == "linux":
		err = k.fireHypr(ctx)
	default:
		return fmt.Errorf("%w on %s", ErrUnsupported, k.goos)
	}
	if err != nil {
		return fmt.Errorf("send %s: %w", k.Chord(), err)
	}

	if k.cfg.Delay > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(k.cfg.Delay):
		}
	}
	return nil
}

func (k *Keystroke) Close() error { return nil }

func (k *Keystroke) Info() Info {
	return Info{Kind: KindKeystroke, Platform: k.goos, Open: true, Keystroke: k.Chord()}
}

// Chord is the human readable hot-key for the platform.
func (k *Keystroke) Chord() string {
	switch {
	case len(k.cfg.Command) > 0:
		return strings.Join(k.cfg.Command, " ")
	case k.goos == "darwin":
		return "Cmd+Opt+Y"
	case k.goos == "windows", k.goos == "linux":
		return "Ctrl+Alt+Y"
	default:
		return "Unknown"
	}
}

func (k *Keystroke) binary() string {
	switch {
	case len(k.cfg.Command) > 0:
		return k.cfg.Command[0]
	case k.goos == "darwin":
		return "osascript"
	case k.goos == "windows":
		return "powershell"
	case k.goos == "linux":
		return "hyprctl"
	default:
		return ""
	}
}

func (k *Keystroke) appleScript() string {
	return fmt.Sprintf(`tell application %q
	activate
end tell
delay %.2f
tell application "System Events"
	keystroke "y" using {command down, option down}
end tell`, k.cfg.App, k.cfg.FocusDelay.Seconds())
}

func (k *Keystroke) powerShellScript() string {
	app := strings.ReplaceAll(k.cfg.App, "'", "''")
	return fmt.Sprintf(
		"$w = New-Object -ComObject WScript.Shell; $null = $w.AppActivate('%s'); Start-Sleep -Milliseconds %d; $w.SendKeys('^%%y')",
		app,
		k.cfg.FocusDelay.Milliseconds(),
	)
}

func (k *Keystroke) fireHypr(ctx context.Context) error {
	if err := hypr.FocusWindow(ctx, "class:"+k.cfg.WindowClass); err != nil {
		return err
	}
	window, err := activeWindowWithRetry(ctx, k.cfg.WindowClass, 5, k.cfg.FocusDelay/5)
	if err != nil {
		return err
	}
	return hypr.SendShortcut(ctx, "CTRL ALT,Y,address:"+window.Address)
}

// activeWindowWithRetry waits for the focus change to land on a window matching class.
func activeWindowWithRetry(ctx context.Context, class string, attempts int, delay time.Duration) (hypr.ActiveWindow, error) {
	if attempts <= 0 {
		attempts = 1
	}

	var lastErr error
	for i := 0; i < attempts; i++ {
		window, err := hypr.QueryActiveWindow(ctx)
		if err == nil && window.Matches(class) {
			return window, nil
		}
		if err == nil {
			err = fmt.Errorf("active window %q is not %q", window.Class, class)
		}
		lastErr = err
		if i == attempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			return hypr.ActiveWindow{}, ctx.Err()
		case <-time.After(delay):
		}
	}
	return hypr.ActiveWindow{}, fmt.Errorf("resolve DAW window: %w", lastErr)
}

// runCommand executes argv and folds its combined output into the error.
func runCommand(ctx context.Context, argv []string) error {
	if len(argv) == 0 {
		return fmt.Errorf("command argv cannot be empty")
	}
	out, err := exec.CommandContext(ctx, argv[0], argv[1:]...).CombinedOutput()
	if err != nil {
		trimmed := strings.TrimSpace(string(out))
		if trimmed == "" {
			return fmt.Errorf("%s failed: %w", argv[0], err)
		}
		return fmt.Errorf("%s failed: %w (%s)", argv[0], err, trimmed)
	}
	return nil
}
