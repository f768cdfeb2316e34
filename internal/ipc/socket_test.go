package ipc

import (
	"context"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestAcquireTakesOverStaleSocket(t *testing.T) {
	t.Parallel()

	socketPath := filepath.Join(t.TempDir(), "flmcp.sock")
	require.NoError(t, os.WriteFile(socketPath, []byte("stale"), 0o600))

	owner, err := Acquire(context.Background(), socketPath, AcquireOptions{PingTimeout: 50 * time.Millisecond, Retries: 2})
	require.NoError(t, err)

	info, err := os.Stat(socketPath)
	require.NoError(t, err)
	require.Equal(t, os.ModeSocket, info.Mode().Type())
	require.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	require.NoError(t, owner.Close())
	_, err = os.Stat(socketPath)
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestAcquireCreatesRuntimeDir(t *testing.T) {
	t.Parallel()

	socketPath := filepath.Join(t.TempDir(), "nested", "run", "flmcp.sock")
	owner, err := Acquire(context.Background(), socketPath, DefaultAcquireOptions)
	require.NoError(t, err)
	require.NoError(t, owner.Close())
}

func TestAcquireReturnsAlreadyRunningWhenSocketResponsive(t *testing.T) {
	t.Parallel()

	socketPath := filepath.Join(t.TempDir(), "flmcp.sock")
	first, err := Acquire(context.Background(), socketPath, DefaultAcquireOptions)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	serverDone := make(chan error, 1)
	go func() {
		serverDone <- Serve(ctx, first, HandlerFunc(func(_ context.Context, _ Request) Response {
			return Response{OK: true, State: "connected"}
		}))
	}()

	_, err = Acquire(context.Background(), socketPath, AcquireOptions{PingTimeout: 80 * time.Millisecond, Retries: 1})
	require.ErrorIs(t, err, ErrAlreadyRunning)

	cancel()
	require.NoError(t, <-serverDone)
	require.NoError(t, first.Close())
}

func TestAcquireDoesNotUnlinkWhenLivenessInconclusive(t *testing.T) {
	t.Parallel()

	socketPath := filepath.Join(t.TempDir(), "flmcp.sock")
	listener, err := net.Listen("unix", socketPath)
	require.NoError(t, err)

	acceptDone := make(chan struct{})
	go func() {
		defer close(acceptDone)
		for {
			conn, acceptErr := listener.Accept()
			if acceptErr != nil {
				return
			}
			go func(c net.Conn) {
				defer c.Close()
				time.Sleep(250 * time.Millisecond)
			}(conn)
		}
	}()

	_, err = Acquire(context.Background(), socketPath, AcquireOptions{PingTimeout: 30 * time.Millisecond})
	require.Error(t, err)
	require.NotErrorIs(t, err, ErrAlreadyRunning)
	require.Contains(t, err.Error(), "ping existing socket")

	_, statErr := os.Stat(socketPath)
	require.NoError(t, statErr)
	require.NoError(t, listener.Close())
	<-acceptDone
}

func TestOwnerCloseAfterServeIsClean(t *testing.T) {
	t.Parallel()

	socketPath := filepath.Join(t.TempDir(), "flmcp.sock")
	owner, err := Acquire(context.Background(), socketPath, DefaultAcquireOptions)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- Serve(ctx, owner, HandlerFunc(func(context.Context, Request) Response { return Response{OK: true} }))
	}()
	cancel()
	require.NoError(t, <-done)

	require.NoError(t, owner.Close())
}

func TestRuntimeSocketPath(t *testing.T) {
	runtimeDir := t.TempDir()
	t.Setenv("XDG_RUNTIME_DIR", runtimeDir)
	path, err := RuntimeSocketPath()
	require.NoError(t, err)
	require.Equal(t, filepath.Join(runtimeDir, "flmcp.sock"), path)

	t.Setenv("XDG_RUNTIME_DIR", "")
	t.Setenv("TMPDIR", runtimeDir)
	path, err = RuntimeSocketPath()
	require.NoError(t, err)
	require.Equal(t, runtimeDir, filepath.Dir(path))
	require.Contains(t, filepath.Base(path), "flmcp-")
}
