// Package settings resolves the FL Studio settings directories shared with DAW-side scripts.
package settings

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

const (
	// HardwareSubdir holds the MIDI controller script and its command/response files.
	HardwareSubdir = "Hardware/FLStudioMCP"
	// PianoRollSubdir holds piano roll scripts and the request/state files.
	PianoRollSubdir = "Piano roll scripts"
	// ControllerScript is the DAW-side dispatcher file name.
	ControllerScript = "device_FLStudioMCP.py"
)

// Dirs bundles every directory the bridge reads or writes.
type Dirs struct {
	Base      string
	Hardware  string
	PianoRoll string
}

// Resolve derives directories from an explicit base, or the per-OS default when empty.
func Resolve(explicit string) (Dirs, error) {
	base := strings.TrimSpace(explicit)
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return Dirs{}, errors.New("unable to resolve user home for FL Studio settings")
		}
		base = DefaultBase(runtime.GOOS, home)
	}
	return Dirs{
		Base:      base,
		Hardware:  filepath.Join(base, filepath.FromSlash(HardwareSubdir)),
		PianoRoll: filepath.Join(base, PianoRollSubdir),
	}, nil
}

// DefaultBase returns FL Studio's settings root for goos. Linux has no official
// FL Studio build, so it gets a dot-directory fallback.
func DefaultBase(goos string, home string) string {
	switch goos {
	case "darwin", "windows":
		return filepath.Join(home, "Documents", "Image-Line", "FL Studio", "Settings")
	default:
		return filepath.Join(home, ".fl-studio", "Settings")
	}
}

// Ensure creates the hardware and piano roll directories.
func (d Dirs) Ensure() error {
	for _, dir := range []string{d.Hardware, d.PianoRoll} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create settings dir %q: %w", dir, err)
		}
	}
	return nil
}

// ControllerScriptPath is where the DAW-side controller script is expected.
func (d Dirs) ControllerScriptPath() string {
	return filepath.Join(d.Hardware, ControllerScript)
}
