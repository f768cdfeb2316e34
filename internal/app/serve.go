package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/mark3labs/mcp-go/server"
	"github.com/rbright/flmcp/internal/cli"
	"github.com/rbright/flmcp/internal/config"
	"github.com/rbright/flmcp/internal/httpapi"
	"github.com/rbright/flmcp/internal/ipc"
	"github.com/rbright/flmcp/internal/mcpserver"
	"github.com/rbright/flmcp/internal/metrics"
	"github.com/rbright/flmcp/internal/version"
)

// commandServe owns the IPC socket and runs the MCP server until stdin
// closes or ctx is canceled.
func (r Runner) commandServe(ctx context.Context, cfg config.Config, parsed cli.Parsed, logger *slog.Logger, simulate bool) int {
	socketPath, err := ipc.RuntimeSocketPath()
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	owner, err := ipc.Acquire(ctx, socketPath, ipc.DefaultAcquireOptions)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	defer func() { _ = owner.Close() }()

	s, err := newStack(ctx, cfg, logger, stackOptions{Simulate: simulate})
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		logger.Error("build bridge failed", "error", err.Error())
		return 1
	}
	defer func() { _ = s.Close() }()

	serverCtx, serverCancel := context.WithCancel(ctx)
	defer serverCancel()

	errCh := make(chan error, 3)
	running := 0

	running++
	go func() {
		if err := ipc.Serve(serverCtx, owner, ipc.HandlerFunc(s.Handle)); err != nil {
			errCh <- fmt.Errorf("ipc server: %w", err)
			return
		}
		errCh <- nil
	}()

	addr := strings.TrimSpace(parsed.HTTPAddr)
	if addr == "" && cfg.HTTP.Enable {
		addr = cfg.HTTP.Addr
	}
	if addr != "" {
		router := httpapi.NewRouter(httpapi.Options{
			Session:     s.session,
			History:     s.history(),
			MCP:         server.NewStreamableHTTPServer(s.mcp),
			MCPPath:     cfg.MCP.HTTPPath,
			Timeout:     cfg.Timeout,
			Version:     version.Resolved(),
			Logger:      logger,
			Metrics:     s.httpMetrics(),
			Feed:        s.feed,
			CORSOrigins: cfg.HTTP.CORSOrigins,
		})
		running++
		go func() {
			if err := httpapi.ListenAndServe(serverCtx, addr, router); err != nil {
				errCh <- fmt.Errorf("http server: %w", err)
				return
			}
			errCh <- nil
		}()
		logger.Info("http listening", "addr", addr, "mcp_path", cfg.MCP.HTTPPath)
	}

	if cfg.MCP.Stdio {
		running++
		go func() {
			errCh <- r.serveStdio(serverCtx, s, logger)
		}()
	}

	if simulate {
		fmt.Fprintf(r.Stderr, "simulating FL Studio under %s\n", s.dirs.Base)
	}
	logger.Info("server started", "socket", socketPath, "stdio", cfg.MCP.Stdio, "simulate", simulate)

	// The first transport to finish stops the rest.
	firstErr := <-errCh
	serverCancel()
	for i := 1; i < running; i++ {
		if err := <-errCh; err != nil && firstErr == nil {
			firstErr = err
		}
	}

	if firstErr != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", firstErr)
		logger.Error("server failed", "error", firstErr.Error())
		return 1
	}
	logger.Info("server stopped")
	return 0
}

func (r Runner) serveStdio(ctx context.Context, s *stack, logger *slog.Logger) error {
	stdin := r.Stdin
	if stdin == nil {
		stdin = os.Stdin
	}
	stdio := server.NewStdioServer(s.mcp)
	stdio.SetErrorLogger(slog.NewLogLogger(logger.Handler(), slog.LevelError))

	err := stdio.Listen(ctx, stdin, r.Stdout)
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, io.EOF) {
		return nil
	}
	return fmt.Errorf("stdio server: %w", err)
}

// history is nil (not a typed nil) when the journal is disabled.
func (s *stack) history() mcpserver.History {
	if s.journal == nil {
		return nil
	}
	return s.journal
}

// httpMetrics is nil when http.metrics is off.
func (s *stack) httpMetrics() *metrics.Metrics {
	if !s.cfg.HTTP.Metrics {
		return nil
	}
	return s.metrics
}
