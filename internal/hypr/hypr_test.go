package hypr

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestQueryActiveWindow(t *testing.T) {
	installHyprctlStub(t, `
if [[ "${1:-}" == "-j" && "${2:-}" == "activewindow" ]]; then
  echo '{"address":" 0xabc ","class":" fl64.exe ","initialClass":" fl64.exe ","title":" FL Studio 21 "}'
  exit 0
fi
exit 1
`)

	window, err := QueryActiveWindow(context.Background())
	require.NoError(t, err)
	require.Equal(t, "0xabc", window.Address)
	require.Equal(t, "fl64.exe", window.Class)
	require.Equal(t, "FL Studio 21", window.Title)
	require.True(t, window.Matches("FL64"))
	require.True(t, window.Matches("studio"))
	require.False(t, window.Matches("firefox"))
}

func TestQueryActiveWindowRejectsEmptyAddress(t *testing.T) {
	installHyprctlStub(t, `
echo '{"address":"","class":"fl64.exe"}'
`)

	_, err := QueryActiveWindow(context.Background())
	require.Error(t, err)
	require.Contains(t, err.Error(), "empty address")
}

func TestSendShortcutRequiresNonEmptyPayload(t *testing.T) {
	err := SendShortcut(context.Background(), " ")
	require.Error(t, err)
	require.Contains(t, err.Error(), "non-empty payload")
}

func TestFocusWindowRequiresSelector(t *testing.T) {
	err := FocusWindow(context.Background(), "")
	require.Error(t, err)
	require.Contains(t, err.Error(), "non-empty selector")
}

func TestFocusAndShortcutUseHyprctlDispatch(t *testing.T) {
	argsFile := filepath.Join(t.TempDir(), "hypr-args.log")
	t.Setenv("HYPR_ARGS_FILE", argsFile)
	installHyprctlStub(t, `
printf '%s\n' "$*" >> "${HYPR_ARGS_FILE}"
`)

	require.NoError(t, FocusWindow(context.Background(), "class:fl64.exe"))
	require.NoError(t, SendShortcut(context.Background(), "CTRL ALT,Y,address:0xabc"))

	data, err := os.ReadFile(argsFile)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Equal(t, []string{
		"--quiet dispatch focuswindow class:fl64.exe",
		"--quiet dispatch sendshortcut CTRL ALT,Y,address:0xabc",
	}, lines)
}

func TestSendShortcutReturnsCombinedOutputOnFailure(t *testing.T) {
	installHyprctlStub(t, `
echo 'boom from hyprctl' >&2
exit 1
`)

	err := SendShortcut(context.Background(), "CTRL ALT,Y,address:0xabc")
	require.Error(t, err)
	require.Contains(t, err.Error(), "boom from hyprctl")
}

func TestAvailableRequiresSignature(t *testing.T) {
	installHyprctlStub(t, "exit 0")
	t.Setenv("HYPRLAND_INSTANCE_SIGNATURE", "")
	require.False(t, Available())

	t.Setenv("HYPRLAND_INSTANCE_SIGNATURE", "abc")
	require.True(t, Available())
}

func installHyprctlStub(t *testing.T, body string) {
	t.Helper()

	dir := t.TempDir()
	path := filepath.Join(dir, "hyprctl")
	script := "#!/usr/bin/env bash\nset -euo pipefail\n" + body + "\n"
	require.NoError(t, os.WriteFile(path, []byte(script), 0o755))
	t.Setenv("PATH", dir+":"+os.Getenv("PATH"))
}
