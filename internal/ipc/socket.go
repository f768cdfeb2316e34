package ipc

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"time"
)

// ErrAlreadyRunning reports that another flmcp server owns the socket.
var ErrAlreadyRunning = errors.New("flmcp server already running")

const socketName = "flmcp.sock"

// RuntimeSocketPath prefers XDG_RUNTIME_DIR and falls back to a per-user
// socket in the temp dir (macOS has no runtime dir).
func RuntimeSocketPath() (string, error) {
	if dir := strings.TrimSpace(os.Getenv("XDG_RUNTIME_DIR")); dir != "" {
		return filepath.Join(dir, socketName), nil
	}
	tmp := strings.TrimSpace(os.TempDir())
	if tmp == "" {
		return "", errors.New("neither XDG_RUNTIME_DIR nor a temp dir is available")
	}
	return filepath.Join(tmp, fmt.Sprintf("flmcp-%d.sock", os.Getuid())), nil
}

// AcquireOptions tunes stale-socket takeover.
type AcquireOptions struct {
	// PingTimeout bounds the status ping sent to an existing socket.
	PingTimeout time.Duration
	// Retries is how many more listen attempts follow a stale-socket removal.
	Retries int
}

// DefaultAcquireOptions is what the server uses.
var DefaultAcquireOptions = AcquireOptions{PingTimeout: 180 * time.Millisecond, Retries: 8}

// Owner is the listening side of the socket. Close also unlinks the path.
type Owner struct {
	net.Listener
	Path string
}

// Close stops listening and removes the socket file.
func (o *Owner) Close() error {
	err := o.Listener.Close()
	if errors.Is(err, net.ErrClosed) {
		err = nil
	}
	if removeErr := os.Remove(o.Path); removeErr != nil && !errors.Is(removeErr, os.ErrNotExist) {
		err = errors.Join(err, removeErr)
	}
	return err
}

// Acquire listens on path. A socket left behind by a dead server is removed
// and retried; a socket that answers a status ping yields ErrAlreadyRunning.
// A ping that neither answers nor is refused leaves the path untouched.
func Acquire(ctx context.Context, path string, opts AcquireOptions) (*Owner, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("ensure runtime socket dir: %w", err)
	}

	for attempt := 0; ; attempt++ {
		listener, err := net.Listen("unix", path)
		if err == nil {
			_ = os.Chmod(path, 0o600)
			return &Owner{Listener: listener, Path: path}, nil
		}
		if !errors.Is(err, syscall.EADDRINUSE) {
			return nil, fmt.Errorf("listen unix %s: %w", path, err)
		}
		if err := removeStale(ctx, path, opts.PingTimeout); err != nil {
			return nil, err
		}
		if attempt >= opts.Retries {
			return nil, fmt.Errorf("acquire socket %s: still in use after %d retries", path, opts.Retries)
		}

		backoff := time.Duration(25*(attempt+1)) * time.Millisecond
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
	}
}

func removeStale(ctx context.Context, path string, pingTimeout time.Duration) error {
	alive, err := Ping(ctx, path, pingTimeout)
	switch {
	case alive:
		return ErrAlreadyRunning
	case err != nil:
		return fmt.Errorf("ping existing socket %s: %w", path, err)
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove stale socket %s: %w", path, err)
	}
	return nil
}
