package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/rbright/flmcp/internal/cli"
	"github.com/rbright/flmcp/internal/config"
	"github.com/rbright/flmcp/internal/doctor"
	"github.com/rbright/flmcp/internal/ipc"
	"github.com/rbright/flmcp/internal/journal"
	"github.com/rbright/flmcp/internal/logging"
	"github.com/rbright/flmcp/internal/mcpserver"
	"github.com/rbright/flmcp/internal/mididriver"
	"github.com/rbright/flmcp/internal/version"
)

// forwardTimeout bounds IPC calls that do not wait on the DAW.
const forwardTimeout = 220 * time.Millisecond

type Runner struct {
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
	Logger *slog.Logger
}

func Execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	r := Runner{Stdin: os.Stdin, Stdout: stdout, Stderr: stderr}
	return r.Execute(ctx, args)
}

func (r Runner) Execute(ctx context.Context, args []string) int {
	parsed, err := cli.Parse(args)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n\n", err)
		fmt.Fprint(r.Stderr, cli.HelpText("flmcp"))
		return 2
	}

	if parsed.ShowHelp {
		fmt.Fprint(r.Stdout, cli.HelpText("flmcp"))
		return 0
	}

	if parsed.Command == cli.CommandVersion {
		fmt.Fprintln(r.Stdout, version.String())
		return 0
	}

	cfgLoaded, err := config.Load(parsed.ConfigPath)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	cfg := cfgLoaded.Config
	if parsed.Timeout > 0 {
		cfg.Timeout = parsed.Timeout
	}

	logRuntime, err := logging.New(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(r.Stderr, "warning: setup logging: %v\n", err)
		logRuntime = logging.Discard()
	}
	defer func() { _ = logRuntime.Close() }()

	logger := r.Logger
	if logger == nil {
		logger = logRuntime.Logger
	}

	for _, w := range cfgLoaded.Warnings {
		msg := w.Message
		if w.Key != "" {
			msg = fmt.Sprintf("%s: %s", w.Key, w.Message)
		}
		// A missing file is the normal first-run case for the server.
		if cfgLoaded.Exists || parsed.Command == cli.CommandDoctor {
			fmt.Fprintf(r.Stderr, "warning: %s\n", msg)
		}
		logger.Warn("config warning", "key", w.Key, "message", w.Message)
	}

	logger.Info("command start",
		"command", parsed.Command,
		"config", cfgLoaded.Path,
		"log", logRuntime.Path,
	)

	switch parsed.Command {
	case cli.CommandDoctor:
		report := doctor.Run(cfgLoaded)
		fmt.Fprintln(r.Stdout, report.String())
		if report.OK() {
			return 0
		}
		return 1
	case cli.CommandServe:
		return r.commandServe(ctx, cfg, parsed, logger, false)
	case cli.CommandSimulate:
		return r.commandServe(ctx, cfg, parsed, logger, true)
	case cli.CommandStatus:
		return r.commandStatus(ctx, cfg, logger)
	case cli.CommandSend:
		return r.commandSend(ctx, cfg, parsed.Args, logger)
	case cli.CommandTrigger:
		return r.forwardOrLocal(ctx, cfg, ipc.Request{Command: ipcTrigger}, logger)
	case cli.CommandQueueClear:
		return r.forwardOrLocal(ctx, cfg, ipc.Request{Command: ipcQueueClear}, logger)
	case cli.CommandPorts:
		return r.commandPorts()
	case cli.CommandHistory:
		return r.commandHistory(ctx, cfg, parsed.Args)
	default:
		fmt.Fprintf(r.Stderr, "error: unsupported command %q\n", parsed.Command)
		return 2
	}
}

func (r Runner) commandStatus(ctx context.Context, cfg config.Config, logger *slog.Logger) int {
	resp, err := r.dispatch(ctx, cfg, ipc.Request{Command: ipcStatus}, forwardTimeout, logger)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	r.printJSON(resp.Result)
	return 0
}

func (r Runner) commandSend(ctx context.Context, cfg config.Config, args []string, logger *slog.Logger) int {
	req := ipc.Request{Command: ipcSend, Action: args[0], TimeoutMS: cfg.Timeout.Milliseconds()}
	if len(args) > 1 {
		dec := json.NewDecoder(strings.NewReader(args[1]))
		dec.UseNumber()
		if err := dec.Decode(&req.Params); err != nil {
			fmt.Fprintf(r.Stderr, "error: params must be a JSON object: %v\n", err)
			return 2
		}
	}

	resp, err := r.dispatch(ctx, cfg, req, ipc.DeadlineFor(req, cfg.Timeout), logger)
	if resp.Result != nil {
		r.printJSON(resp.Result)
	}
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	return 0
}

func (r Runner) forwardOrLocal(ctx context.Context, cfg config.Config, req ipc.Request, logger *slog.Logger) int {
	resp, err := r.dispatch(ctx, cfg, req, cfg.Timeout+ipc.ReplyGrace, logger)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	if resp.Message != "" {
		fmt.Fprintln(r.Stdout, resp.Message)
	}
	return 0
}

// dispatch forwards req to a running server, or runs it against a
// short-lived local stack when none is listening.
func (r Runner) dispatch(ctx context.Context, cfg config.Config, req ipc.Request, timeout time.Duration, logger *slog.Logger) (ipc.Response, error) {
	if socketPath, err := ipc.RuntimeSocketPath(); err == nil {
		resp, handled, err := tryForward(ctx, socketPath, req, timeout)
		if handled {
			return resp, err
		}
	}

	s, err := newStack(ctx, cfg, logger, stackOptions{})
	if err != nil {
		return ipc.Response{}, err
	}
	defer func() { _ = s.Close() }()

	if req.Command == ipcStatus {
		// Connect populates trigger diagnostics; failures land in the status.
		_ = s.session.Connect(ctx)
	}
	resp := s.Handle(ctx, req)
	if !resp.OK {
		return resp, errors.New(resp.Error)
	}
	return resp, nil
}

func (r Runner) commandPorts() int {
	if !mididriver.Available {
		fmt.Fprintf(r.Stderr, "error: %v\n", mididriver.ErrNoDriver)
		return 1
	}
	drv, err := mididriver.Open()
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: open MIDI driver: %v\n", err)
		return 1
	}
	defer func() { _ = drv.Close() }()

	outs, err := drv.Outs()
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: list MIDI outputs: %v\n", err)
		return 1
	}
	if len(outs) == 0 {
		fmt.Fprintln(r.Stdout, "no MIDI output ports found")
		return 1
	}
	for _, out := range outs {
		fmt.Fprintf(r.Stdout, "%d %s\n", out.Number(), out.String())
	}
	return 0
}

func (r Runner) commandHistory(ctx context.Context, cfg config.Config, args []string) int {
	limit := 20
	if len(args) > 0 {
		n, err := strconv.Atoi(args[0])
		if err != nil || n < 1 || n > 500 {
			fmt.Fprintf(r.Stderr, "error: history limit must be an integer between 1 and 500\n")
			return 2
		}
		limit = n
	}
	if !cfg.Journal.Enable {
		fmt.Fprintln(r.Stderr, "error: journal is disabled")
		return 1
	}
	path := cfg.Journal.Path
	if path == "" {
		p, err := config.DefaultJournalPath()
		if err != nil {
			fmt.Fprintf(r.Stderr, "error: %v\n", err)
			return 1
		}
		path = p
	}

	j, err := journal.Open(path)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	defer func() { _ = j.Close() }()

	entries, err := j.Recent(ctx, limit)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	for _, e := range entries {
		v := mcpserver.ViewOf(e)
		outcome := "ok"
		if !v.Success {
			outcome = v.Failure
			if v.Error != "" {
				outcome += ": " + v.Error
			}
		}
		fmt.Fprintf(r.Stdout, "%s %-28s %5dms %s\n", e.StartedAt.Format(time.RFC3339), v.Action, v.LatencyMS, outcome)
	}
	return 0
}

func (r Runner) printJSON(v any) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: encode output: %v\n", err)
		return
	}
	fmt.Fprintln(r.Stdout, string(data))
}

func tryForward(ctx context.Context, socketPath string, req ipc.Request, timeout time.Duration) (ipc.Response, bool, error) {
	resp, err := ipc.Send(ctx, socketPath, req, timeout)
	if err == nil {
		if resp.OK {
			return resp, true, nil
		}
		return resp, true, errors.New(resp.Error)
	}

	if isSocketMissing(err) {
		return ipc.Response{}, false, nil
	}
	if isConnectionRefused(err) {
		return ipc.Response{}, false, nil
	}

	return ipc.Response{}, true, fmt.Errorf("forward command %q: %w", req.Command, err)
}

func isSocketMissing(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, os.ErrNotExist) ||
		strings.Contains(err.Error(), "no such file or directory")
}

func isConnectionRefused(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, syscall.ECONNREFUSED)
}
