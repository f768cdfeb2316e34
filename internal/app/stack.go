package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"runtime"

	"github.com/mark3labs/mcp-go/server"
	"github.com/rbright/flmcp/internal/bridge"
	"github.com/rbright/flmcp/internal/config"
	"github.com/rbright/flmcp/internal/dawsim"
	"github.com/rbright/flmcp/internal/feed"
	"github.com/rbright/flmcp/internal/filechannel"
	"github.com/rbright/flmcp/internal/journal"
	"github.com/rbright/flmcp/internal/mcpserver"
	"github.com/rbright/flmcp/internal/metrics"
	"github.com/rbright/flmcp/internal/mididriver"
	"github.com/rbright/flmcp/internal/pianoroll"
	"github.com/rbright/flmcp/internal/settings"
	"github.com/rbright/flmcp/internal/trigger"
	"github.com/rbright/flmcp/internal/version"
)

// stack is one fully wired bridge with the MCP server over it.
type stack struct {
	cfg     config.Config
	dirs    settings.Dirs
	logger  *slog.Logger
	journal *journal.Journal
	session *bridge.Session
	editor  *pianoroll.Editor
	mcp     *server.MCPServer
	metrics *metrics.Metrics
	feed    *feed.Hub

	// simulator state; nil unless built with simulate.
	daw     *dawsim.Controller
	script  *dawsim.PianoRollScript
	simBase string
}

type stackOptions struct {
	// Simulate replaces FL Studio with in-process dawsim scripts under a
	// throwaway settings directory.
	Simulate bool
}

func newStack(ctx context.Context, cfg config.Config, logger *slog.Logger, opts stackOptions) (_ *stack, err error) {
	s := &stack{cfg: cfg, logger: logger, metrics: metrics.New(), feed: feed.New(feed.DefaultBuffer)}
	defer func() {
		if err != nil {
			_ = s.Close()
		}
	}()

	explicit := cfg.SettingsDir
	if opts.Simulate {
		s.simBase, err = os.MkdirTemp("", "flmcp-sim-")
		if err != nil {
			return nil, fmt.Errorf("create simulator dir: %w", err)
		}
		explicit = s.simBase
	}
	s.dirs, err = settings.Resolve(explicit)
	if err != nil {
		return nil, err
	}
	if err := s.dirs.Ensure(); err != nil {
		return nil, err
	}

	var cmdTrigger, scriptTrigger trigger.Trigger
	if opts.Simulate {
		s.daw = dawsim.NewController(s.dirs.Hardware, dawsim.Options{})
		s.script = dawsim.NewPianoRollScript(s.dirs.PianoRoll, s.daw.Project())
		cmdTrigger, scriptTrigger = s.daw.Trigger(), s.script.Trigger()
	} else {
		trigOpts, err := triggerOptions(cfg)
		if err != nil {
			return nil, err
		}
		cmdTrigger = trigger.SelectCommand(trigOpts)
		scriptTrigger = trigger.SelectScript(trigOpts)
	}

	var recorder bridge.Recorder
	var history mcpserver.History
	if cfg.Journal.Enable {
		s.journal, err = openJournal(ctx, cfg, opts.Simulate, logger)
		if err != nil {
			return nil, err
		}
		recorder, history = s.journal, s.journal
	}

	s.session, err = bridge.New(bridge.Options{
		Channel:      filechannel.New(s.dirs.Hardware),
		Trigger:      cmdTrigger,
		Logger:       logger,
		Journal:      bridge.Recorders(recorder, s.metrics, s.feed),
		PollInterval: cfg.PollInterval,
		DisableWatch: !cfg.Watch,
	})
	if err != nil {
		return nil, err
	}
	s.editor = pianoroll.New(s.dirs.PianoRoll, scriptTrigger, logger)

	s.mcp, err = mcpserver.New(mcpserver.Options{
		Name:    cfg.MCP.Name,
		Version: version.Resolved(),
		Session: s.session,
		Editor:  s.editor,
		History: history,
		Timeout: cfg.Timeout,
		Logger:  logger,
	})
	if err != nil {
		return nil, err
	}

	logger.Info("bridge ready",
		"settings_dir", s.dirs.Base,
		"strategy", cmdTrigger.Kind(),
		"script_trigger", scriptTrigger.Kind(),
		"journal", s.journal != nil,
		"simulate", opts.Simulate,
	)
	return s, nil
}

// triggerOptions maps config onto trigger selection for the host platform.
func triggerOptions(cfg config.Config) (trigger.Options, error) {
	strategy, ok := trigger.ParseStrategy(cfg.Trigger.Strategy)
	if !ok {
		return trigger.Options{}, fmt.Errorf("unknown trigger strategy %q", cfg.Trigger.Strategy)
	}
	note := cfg.Trigger.Note
	ks := cfg.Trigger.Keystroke
	return trigger.Options{
		Strategy: strategy,
		GOOS:     runtime.GOOS,
		Note: trigger.NoteConfig{
			Port:           note.Port,
			PreferredPorts: note.PreferredPorts,
			Channel:        uint8(note.Channel),
			Note:           uint8(note.Number),
			Velocity:       uint8(note.Velocity),
		},
		Keystroke: trigger.KeystrokeConfig{
			App:         ks.App,
			WindowClass: ks.WindowClass,
			Command:     ks.Command.Argv,
			FocusDelay:  ks.FocusDelay,
			Delay:       ks.Delay,
		},
		OpenDriver: mididriver.Open,
	}, nil
}

func openJournal(ctx context.Context, cfg config.Config, simulate bool, logger *slog.Logger) (*journal.Journal, error) {
	path := cfg.Journal.Path
	switch {
	case simulate:
		path = ":memory:"
	case path == "":
		p, err := config.DefaultJournalPath()
		if err != nil {
			return nil, err
		}
		path = p
	}

	j, err := journal.Open(path)
	if err != nil {
		return nil, err
	}
	if cfg.Journal.Keep > 0 {
		pruned, err := j.Prune(ctx, cfg.Journal.Keep)
		if err != nil {
			logger.Warn("journal prune failed", "path", path, "error", err.Error())
		} else if pruned > 0 {
			logger.Debug("journal pruned", "path", path, "removed", pruned)
		}
	}
	return j, nil
}

// Close releases everything newStack opened.
func (s *stack) Close() error {
	var errs []error
	if s.feed != nil {
		errs = append(errs, s.feed.Close())
	}
	if s.session != nil {
		errs = append(errs, s.session.Close())
	}
	if s.journal != nil {
		errs = append(errs, s.journal.Close())
	}
	if s.simBase != "" {
		errs = append(errs, os.RemoveAll(s.simBase))
	}
	return errors.Join(errs...)
}
