package app

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"testing"

	"github.com/rbright/flmcp/internal/ipc"
	"github.com/stretchr/testify/require"
)

func TestExecuteHelp(t *testing.T) {
	var stdout bytes.Buffer
	var stderr bytes.Buffer

	exitCode := Execute(context.Background(), []string{"--help"}, &stdout, &stderr)
	require.Equal(t, 0, exitCode)
	require.Contains(t, stdout.String(), "Usage:")
	require.Empty(t, stderr.String())
}

func TestExecuteVersion(t *testing.T) {
	var stdout bytes.Buffer
	var stderr bytes.Buffer

	exitCode := Execute(context.Background(), []string{"version"}, &stdout, &stderr)
	require.Equal(t, 0, exitCode)
	require.Contains(t, stdout.String(), "flmcp")
	require.Empty(t, stderr.String())
}

func TestExecuteUnknownCommand(t *testing.T) {
	var stdout bytes.Buffer
	var stderr bytes.Buffer

	exitCode := Execute(context.Background(), []string{"definitely-not-a-command"}, &stdout, &stderr)
	require.Equal(t, 2, exitCode)
	require.Contains(t, stderr.String(), "unknown command")
	require.Contains(t, stderr.String(), "Usage:")
}

func TestRunnerStatusRunsLocallyWithoutServer(t *testing.T) {
	paths := setupRunnerEnv(t)

	var stdout bytes.Buffer
	var stderr bytes.Buffer
	runner := Runner{Stdout: &stdout, Stderr: &stderr}

	exitCode := runner.Execute(context.Background(), []string{"--config", paths.configPath, "status"})
	require.Equal(t, 0, exitCode, stderr.String())

	var status map[string]any
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &status))
	require.Equal(t, false, status["connected"])
	require.Equal(t, "none", status["strategy"])
	require.Contains(t, status["error"], "trigger unsupported")
	require.Equal(t, filepath.Join(paths.settingsDir, "Hardware", "FLStudioMCP", "mcp_command.json"), status["command_file"])
}

func TestRunnerSendLocallyReportsTriggerFailure(t *testing.T) {
	paths := setupRunnerEnv(t)

	var stdout bytes.Buffer
	var stderr bytes.Buffer
	runner := Runner{Stdout: &stdout, Stderr: &stderr}

	exitCode := runner.Execute(context.Background(), []string{"--config", paths.configPath, "send", "transport.start"})
	require.Equal(t, 1, exitCode)
	require.Contains(t, stderr.String(), "trigger unsupported")
}

func TestRunnerSendRejectsBadParams(t *testing.T) {
	paths := setupRunnerEnv(t)

	var stderr bytes.Buffer
	runner := Runner{Stdout: &bytes.Buffer{}, Stderr: &stderr}

	exitCode := runner.Execute(context.Background(), []string{"--config", paths.configPath, "send", "mixer.setTrackVolume", "[1,2]"})
	require.Equal(t, 2, exitCode)
	require.Contains(t, stderr.String(), "params must be a JSON object")
}

func TestRunnerQueueClearLocally(t *testing.T) {
	paths := setupRunnerEnv(t)
	queue := filepath.Join(paths.settingsDir, "Piano roll scripts", "mcp_request.json")
	require.NoError(t, os.MkdirAll(filepath.Dir(queue), 0o755))
	require.NoError(t, os.WriteFile(queue, []byte(`[{"action":"clear"}]`), 0o644))

	var stdout bytes.Buffer
	var stderr bytes.Buffer
	runner := Runner{Stdout: &stdout, Stderr: &stderr}

	exitCode := runner.Execute(context.Background(), []string{"--config", paths.configPath, "queue-clear"})
	require.Equal(t, 0, exitCode, stderr.String())
	require.Equal(t, "request queue cleared\n", stdout.String())
	_, err := os.Stat(queue)
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestRunnerTriggerUnsupportedLocally(t *testing.T) {
	paths := setupRunnerEnv(t)

	var stderr bytes.Buffer
	runner := Runner{Stdout: &bytes.Buffer{}, Stderr: &stderr}

	exitCode := runner.Execute(context.Background(), []string{"--config", paths.configPath, "trigger"})
	require.Equal(t, 1, exitCode)
	require.Contains(t, stderr.String(), "auto-trigger not supported")
}

func TestRunnerForwardsCommandsToRunningServer(t *testing.T) {
	paths := setupRunnerEnv(t)
	requests := make(chan ipc.Request, 8)

	shutdown := startIPCServerForRunnerTest(t, filepath.Join(paths.runtimeDir, "flmcp.sock"), func(_ context.Context, req ipc.Request) ipc.Response {
		requests <- req
		switch req.Command {
		case "status":
			return ipc.Response{OK: true, State: "connected", Result: map[string]any{"connected": true}}
		case "send":
			return ipc.Response{OK: true, State: "none", Result: map[string]any{"success": true, "is_playing": true}}
		case "trigger", "queue-clear":
			return ipc.Response{OK: true, Message: req.Command + " handled"}
		default:
			return ipc.Response{OK: false, Error: "unsupported"}
		}
	})
	defer shutdown()

	for _, args := range [][]string{
		{"status"},
		{"--timeout", "750ms", "send", "transport.start", `{"mode":1}`},
		{"trigger"},
		{"queue-clear"},
	} {
		stdout := &bytes.Buffer{}
		stderr := &bytes.Buffer{}
		runner := Runner{Stdout: stdout, Stderr: stderr}

		exitCode := runner.Execute(context.Background(), append([]string{"--config", paths.configPath}, args...))
		require.Equal(t, 0, exitCode, args)
		require.Empty(t, stderr.String(), args)
		require.NotEmpty(t, stdout.String(), args)
	}

	got := []ipc.Request{<-requests, <-requests, <-requests, <-requests}
	require.Equal(t, "status", got[0].Command)
	require.Equal(t, "send", got[1].Command)
	require.Equal(t, "transport.start", got[1].Action)
	require.Equal(t, int64(750), got[1].TimeoutMS)
	require.Equal(t, json.Number("1"), got[1].Params["mode"])
	require.Equal(t, "trigger", got[2].Command)
	require.Equal(t, "queue-clear", got[3].Command)
}

func TestRunnerForwardedSendFailureExitsNonZero(t *testing.T) {
	paths := setupRunnerEnv(t)

	shutdown := startIPCServerForRunnerTest(t, filepath.Join(paths.runtimeDir, "flmcp.sock"), func(_ context.Context, req ipc.Request) ipc.Response {
		return ipc.Response{OK: false, State: "dispatch", Error: "Unknown action: nope", Result: map[string]any{"success": false}}
	})
	defer shutdown()

	var stdout bytes.Buffer
	var stderr bytes.Buffer
	runner := Runner{Stdout: &stdout, Stderr: &stderr}

	exitCode := runner.Execute(context.Background(), []string{"--config", paths.configPath, "send", "nope"})
	require.Equal(t, 1, exitCode)
	require.Contains(t, stdout.String(), `"success": false`)
	require.Contains(t, stderr.String(), "Unknown action: nope")
}

func TestRunnerSimulateServesStdioUntilEOF(t *testing.T) {
	paths := setupRunnerEnv(t)

	stdin := strings.Join([]string{
		`{"jsonrpc":"2.0","id":1,"method":"initialize","params":{"protocolVersion":"2025-03-26","capabilities":{},"clientInfo":{"name":"test","version":"1"}}}`,
		"",
	}, "\n")

	var stdout bytes.Buffer
	var stderr bytes.Buffer
	runner := Runner{Stdin: strings.NewReader(stdin), Stdout: &stdout, Stderr: &stderr}

	exitCode := runner.Execute(context.Background(), []string{"--config", paths.configPath, "simulate"})
	require.Equal(t, 0, exitCode, stderr.String())
	require.Contains(t, stdout.String(), "fl-studio")
	require.Contains(t, stderr.String(), "simulating FL Studio")

	// owner path should clean up runtime socket on exit
	_, statErr := os.Stat(filepath.Join(paths.runtimeDir, "flmcp.sock"))
	require.ErrorIs(t, statErr, os.ErrNotExist)
}

func TestRunnerServeRefusesSecondOwner(t *testing.T) {
	paths := setupRunnerEnv(t)

	shutdown := startIPCServerForRunnerTest(t, filepath.Join(paths.runtimeDir, "flmcp.sock"), func(_ context.Context, req ipc.Request) ipc.Response {
		return ipc.Response{OK: true, State: "connected"}
	})
	defer shutdown()

	var stderr bytes.Buffer
	runner := Runner{Stdin: strings.NewReader(""), Stdout: &bytes.Buffer{}, Stderr: &stderr}

	exitCode := runner.Execute(context.Background(), []string{"--config", paths.configPath, "serve"})
	require.Equal(t, 1, exitCode)
	require.Contains(t, stderr.String(), "already running")
}

func TestRunnerHistoryReadsJournal(t *testing.T) {
	paths := setupRunnerEnv(t)
	runner := Runner{Stdout: &bytes.Buffer{}, Stderr: &bytes.Buffer{}}
	runner.Execute(context.Background(), []string{"--config", paths.configPath, "send", "transport.start"})

	var stdout bytes.Buffer
	var stderr bytes.Buffer
	runner = Runner{Stdout: &stdout, Stderr: &stderr}

	exitCode := runner.Execute(context.Background(), []string{"--config", paths.configPath, "history", "5"})
	require.Equal(t, 0, exitCode, stderr.String())
	require.Contains(t, stdout.String(), "transport.start")
	require.Contains(t, stdout.String(), "unsupported: trigger unsupported")

	exitCode = runner.Execute(context.Background(), []string{"--config", paths.configPath, "history", "0"})
	require.Equal(t, 2, exitCode)
}

func TestRunnerDoctorCommandDispatchesAndPrintsReport(t *testing.T) {
	paths := setupRunnerEnv(t)

	var stdout bytes.Buffer
	var stderr bytes.Buffer
	runner := Runner{Stdout: &stdout, Stderr: &stderr}

	exitCode := runner.Execute(context.Background(), []string{"--config", paths.configPath, "doctor"})
	require.Equal(t, 1, exitCode)
	require.Contains(t, stdout.String(), "config: loaded")
	require.Contains(t, stdout.String(), "[FAIL] controller.script")
}

func TestTryForwardSuccessAndFailureResponses(t *testing.T) {
	runtimeDir := t.TempDir()
	socketPath := filepath.Join(runtimeDir, "flmcp.sock")

	listener, err := net.Listen("unix", socketPath)
	require.NoError(t, err)

	serverCtx, cancelServer := context.WithCancel(context.Background())
	serverDone := make(chan error, 1)
	go func() {
		serverDone <- ipc.Serve(serverCtx, listener, ipc.HandlerFunc(func(_ context.Context, req ipc.Request) ipc.Response {
			switch req.Command {
			case "status":
				return ipc.Response{OK: true, State: "connected"}
			default:
				return ipc.Response{OK: false, Error: "unsupported"}
			}
		}))
	}()

	resp, handled, err := tryForward(context.Background(), socketPath, ipc.Request{Command: "status"}, forwardTimeout)
	require.True(t, handled)
	require.NoError(t, err)
	require.Equal(t, "connected", resp.State)

	_, handled, err = tryForward(context.Background(), socketPath, ipc.Request{Command: "trigger"}, forwardTimeout)
	require.True(t, handled)
	require.Error(t, err)
	require.Contains(t, err.Error(), "unsupported")

	cancelServer()
	require.NoError(t, <-serverDone)
}

func TestTryForwardDoesNotRemoveSocketPathOnForwardFailure(t *testing.T) {
	socketPath := filepath.Join(t.TempDir(), "flmcp.sock")
	require.NoError(t, os.WriteFile(socketPath, []byte("stale"), 0o600))

	_, handled, err := tryForward(context.Background(), socketPath, ipc.Request{Command: "status"}, forwardTimeout)
	require.False(t, handled)
	require.NoError(t, err)

	_, statErr := os.Stat(socketPath)
	require.NoError(t, statErr)
}

func TestTryForwardTreatsReadFailuresAsHandledErrors(t *testing.T) {
	socketPath := filepath.Join(t.TempDir(), "flmcp.sock")

	listener, err := net.Listen("unix", socketPath)
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		defer close(done)
		conn, acceptErr := listener.Accept()
		if acceptErr == nil {
			_ = conn.Close()
		}
	}()

	_, handled, err := tryForward(context.Background(), socketPath, ipc.Request{Command: "status"}, forwardTimeout)
	require.True(t, handled)
	require.Error(t, err)
	require.Contains(t, err.Error(), "forward command \"status\":")

	<-done
	_, statErr := os.Stat(socketPath)
	require.NoError(t, statErr)
	require.NoError(t, listener.Close())
}

func TestSocketErrorHelpers(t *testing.T) {
	require.False(t, isSocketMissing(nil))
	require.False(t, isConnectionRefused(nil))

	require.True(t, isSocketMissing(os.ErrNotExist))
	require.True(t, isSocketMissing(errors.New("dial unix /tmp/flmcp.sock: no such file or directory")))
	require.False(t, isSocketMissing(errors.New("other error")))

	require.True(t, isConnectionRefused(syscall.ECONNREFUSED))
	require.False(t, isConnectionRefused(errors.New("other error")))
}

type runnerPaths struct {
	configPath  string
	runtimeDir  string
	settingsDir string
}

// setupRunnerEnv isolates XDG dirs and writes a config with triggers disabled
// so no test touches real MIDI ports or sends keystrokes.
func setupRunnerEnv(t *testing.T) runnerPaths {
	t.Helper()

	xdgStateHome := t.TempDir()
	runtimeDir := t.TempDir()
	settingsDir := t.TempDir()
	t.Setenv("XDG_STATE_HOME", xdgStateHome)
	t.Setenv("XDG_RUNTIME_DIR", runtimeDir)

	cfg, err := json.Marshal(map[string]any{
		"settings_dir": settingsDir,
		"timeout":      "200ms",
		"watch":        false,
		"trigger":      map[string]any{"strategy": "none"},
	})
	require.NoError(t, err)
	configPath := filepath.Join(t.TempDir(), "config.jsonc")
	require.NoError(t, os.WriteFile(configPath, cfg, 0o600))

	return runnerPaths{configPath: configPath, runtimeDir: runtimeDir, settingsDir: settingsDir}
}

func startIPCServerForRunnerTest(t *testing.T, socketPath string, handler func(context.Context, ipc.Request) ipc.Response) func() {
	t.Helper()

	listener, err := net.Listen("unix", socketPath)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- ipc.Serve(ctx, listener, ipc.HandlerFunc(handler))
	}()

	return func() {
		cancel()
		require.NoError(t, <-done)
	}
}
