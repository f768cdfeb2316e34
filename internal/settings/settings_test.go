package settings

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefaultBasePerPlatform(t *testing.T) {
	home := "/home/test"
	require.Equal(t, filepath.Join(home, "Documents", "Image-Line", "FL Studio", "Settings"), DefaultBase("darwin", home))
	require.Equal(t, filepath.Join(home, "Documents", "Image-Line", "FL Studio", "Settings"), DefaultBase("windows", home))
	require.Equal(t, filepath.Join(home, ".fl-studio", "Settings"), DefaultBase("linux", home))
}

func TestResolveExplicitBase(t *testing.T) {
	base := t.TempDir()

	dirs, err := Resolve(base)
	require.NoError(t, err)
	require.Equal(t, base, dirs.Base)
	require.Equal(t, filepath.Join(base, "Hardware", "FLStudioMCP"), dirs.Hardware)
	require.Equal(t, filepath.Join(base, "Piano roll scripts"), dirs.PianoRoll)
	require.Equal(t, filepath.Join(dirs.Hardware, "device_FLStudioMCP.py"), dirs.ControllerScriptPath())
}

func TestResolveFallsBackToHome(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("USERPROFILE", home)

	dirs, err := Resolve("  ")
	require.NoError(t, err)
	require.Contains(t, dirs.Base, home)
}

func TestEnsureCreatesDirectories(t *testing.T) {
	dirs, err := Resolve(filepath.Join(t.TempDir(), "Settings"))
	require.NoError(t, err)
	require.NoError(t, dirs.Ensure())

	for _, dir := range []string{dirs.Hardware, dirs.PianoRoll} {
		info, statErr := os.Stat(dir)
		require.NoError(t, statErr)
		require.True(t, info.IsDir())
	}
}
