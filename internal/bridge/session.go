// Package bridge runs the command/response round trip against the DAW.
package bridge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rbright/flmcp/internal/filechannel"
	"github.com/rbright/flmcp/internal/fsm"
	"github.com/rbright/flmcp/internal/journal"
	"github.com/rbright/flmcp/internal/trigger"
)

const (
	DefaultTimeout      = 2 * time.Second
	DefaultPollInterval = 20 * time.Millisecond
)

// Recorder persists finished exchanges.
type Recorder interface {
	Record(ctx context.Context, entry journal.Entry) error
}

type recorders []Recorder

func (rs recorders) Record(ctx context.Context, entry journal.Entry) error {
	var errs []error
	for _, r := range rs {
		errs = append(errs, r.Record(ctx, entry))
	}
	return errors.Join(errs...)
}

// Recorders fans one exchange out to every non-nil recorder. It returns nil
// when none remain.
func Recorders(rs ...Recorder) Recorder {
	var out recorders
	for _, r := range rs {
		if r == nil {
			continue
		}
		out = append(out, r)
	}
	switch len(out) {
	case 0:
		return nil
	case 1:
		return out[0]
	}
	return out
}

// Options wires a Session. Channel and Trigger are required.
type Options struct {
	Channel      *filechannel.Channel
	Trigger      trigger.Trigger
	Logger       *slog.Logger
	Journal      Recorder
	PollInterval time.Duration
	// DisableWatch skips the fsnotify watcher and relies on polling alone.
	DisableWatch bool
}

// Status is a diagnostic snapshot of a Session.
type Status struct {
	Connected    bool         `json:"connected"`
	State        fsm.State    `json:"state"`
	Strategy     trigger.Kind `json:"strategy"`
	Platform     string       `json:"platform,omitempty"`
	Port         string       `json:"port,omitempty"`
	Keystroke    string       `json:"keystroke,omitempty"`
	Candidates   []string     `json:"candidates"`
	Error        string       `json:"error,omitempty"`
	CommandFile  string       `json:"command_file"`
	ResponseFile string       `json:"response_file"`
}

// Session owns one trigger channel and serializes exchanges over it.
type Session struct {
	channel *filechannel.Channel
	trigger trigger.Trigger
	logger  *slog.Logger
	journal Recorder
	poll    time.Duration

	// mu is held for the whole of an exchange, connect, or reset.
	mu sync.Mutex

	stateMu sync.Mutex
	state   fsm.State
	lastErr string

	watch   bool
	watcher *responseWatcher
}

// New builds a disconnected Session.
func New(opts Options) (*Session, error) {
	if opts.Channel == nil {
		return nil, errors.New("bridge: channel is required")
	}
	if opts.Trigger == nil {
		return nil, errors.New("bridge: trigger is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	poll := opts.PollInterval
	if poll <= 0 {
		poll = DefaultPollInterval
	}
	return &Session{
		channel: opts.Channel,
		trigger: opts.Trigger,
		logger:  logger,
		journal: opts.Journal,
		poll:    poll,
		state:   fsm.StateDisconnected,
		watch:   !opts.DisableWatch,
	}, nil
}

// Connect establishes the trigger channel if it is not already open.
func (s *Session) Connect(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connectLocked(ctx)
}

func (s *Session) connectLocked(ctx context.Context) error {
	if s.State() == fsm.StateConnected {
		return nil
	}

	err := s.trigger.Open(ctx)
	if err != nil {
		s.transition(fsm.EventConnectErr, err.Error())
		s.logger.Warn("trigger connect failed", "strategy", s.trigger.Kind(), "error", err.Error())
		return err
	}

	s.transition(fsm.EventConnected, "")
	info := s.trigger.Info()
	s.logger.Info("trigger connected", "strategy", info.Kind, "port", info.Port, "keystroke", info.Keystroke)
	return nil
}

// SendCommand performs one exchange. Remote-side and protocol failures come
// back as a failed Response; only a local failure writing the command file
// is returned as an error.
func (s *Session) SendCommand(ctx context.Context, action string, params map[string]any, timeout time.Duration) (filechannel.Response, error) {
	res, err := s.Exchange(ctx, action, params, timeout)
	return res.Response, err
}

// Exchange is SendCommand with the failure kind attached.
func (s *Session) Exchange(ctx context.Context, action string, params map[string]any, timeout time.Duration) (Result, error) {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	id := uuid.NewString()
	started := time.Now()
	res, err := s.exchange(ctx, action, params, timeout)
	latency := time.Since(started)

	switch {
	case err != nil:
		s.logger.Error("command failed", "id", id, "action", action, "error", err.Error())
		s.record(ctx, id, action, params, fail(FailureIO, "%v", err), started, latency)
	case !res.OK():
		s.logger.Warn("command unsuccessful",
			"id", id,
			"action", action,
			"failure", res.Failure,
			"error", res.Response.ErrorMessage(),
			"latency_ms", latency.Milliseconds(),
		)
		s.record(ctx, id, action, params, res, started, latency)
	default:
		s.logger.Debug("command complete", "id", id, "action", action, "latency_ms", latency.Milliseconds())
		s.record(ctx, id, action, params, res, started, latency)
	}
	return res, err
}

func (s *Session) exchange(ctx context.Context, action string, params map[string]any, timeout time.Duration) (Result, error) {
	if err := s.connectLocked(ctx); err != nil {
		if errors.Is(err, trigger.ErrUnsupported) {
			return fail(FailureUnsupported, "%v", err), nil
		}
		return fail(FailureConnection, "%s: %v", msgConnection, err), nil
	}

	if err := s.channel.WriteCommand(filechannel.Command{Action: action, Params: params}); err != nil {
		return Result{Failure: FailureIO}, err
	}
	if err := s.channel.ClearResponse(); err != nil {
		s.logger.Warn("clear stale response failed", "error", err.Error())
	}

	wake := s.ensureWatcher()
	if wake != nil {
		wake.drain()
	}

	if err := s.trigger.Fire(ctx); err != nil {
		if errors.Is(err, trigger.ErrUnsupported) {
			return fail(FailureUnsupported, "%v", err), nil
		}
		return fail(FailureConnection, "%s: %v", msgTriggerFailed, err), nil
	}

	return s.await(ctx, timeout, wake), nil
}

// await polls for the response until it appears or the deadline passes.
func (s *Session) await(ctx context.Context, timeout time.Duration, wake *responseWatcher) Result {
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	ticker := time.NewTicker(s.poll)
	defer ticker.Stop()

	var wakeC <-chan struct{}
	if wake != nil {
		wakeC = wake.C()
	}

	for {
		if res, done := s.tryRead(); done {
			return res
		}

		select {
		case <-ctx.Done():
			return fail(FailureCanceled, "%s: %v", msgCanceled, ctx.Err())
		case <-deadline.C:
			if res, done := s.tryRead(); done {
				return res
			}
			return fail(FailureTimeout, "%s %ss, verify DAW running and controller enabled", msgTimeout, formatSeconds(timeout))
		case <-ticker.C:
		case <-wakeC:
		}
	}
}

func (s *Session) tryRead() (Result, bool) {
	resp, ok, err := s.channel.TryReadResponse()
	switch {
	case err != nil && errors.Is(err, filechannel.ErrMalformed):
		return fail(FailureMalformed, "%s: %v", msgMalformed, err), true
	case err != nil:
		return fail(FailureIO, "%s: %v", msgReadFailed, err), true
	case ok:
		return fromDAW(resp), true
	default:
		return Result{}, false
	}
}

// Reset closes the trigger channel; the next exchange reconnects.
func (s *Session) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.resetLocked()
}

func (s *Session) resetLocked() error {
	err := s.trigger.Close()
	s.transition(fsm.EventReset, "")
	s.logger.Info("trigger reset", "strategy", s.trigger.Kind())
	if err != nil {
		return fmt.Errorf("close trigger: %w", err)
	}
	return nil
}

// Close resets the session and stops the response watcher.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.resetLocked()
	if s.watcher != nil {
		err = errors.Join(err, s.watcher.Close())
		s.watcher = nil
	}
	return err
}

// State returns the connection state without waiting for an exchange.
func (s *Session) State() fsm.State {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	return s.state
}

// Status never blocks on an in-flight exchange.
func (s *Session) Status() Status {
	info := s.trigger.Info()

	s.stateMu.Lock()
	state, lastErr := s.state, s.lastErr
	s.stateMu.Unlock()

	candidates := info.Candidates
	if candidates == nil {
		candidates = []string{}
	}
	return Status{
		Connected:    state == fsm.StateConnected,
		State:        state,
		Strategy:     info.Kind,
		Platform:     info.Platform,
		Port:         info.Port,
		Keystroke:    info.Keystroke,
		Candidates:   candidates,
		Error:        lastErr,
		CommandFile:  s.channel.CommandPath(),
		ResponseFile: s.channel.ResponsePath(),
	}
}

func (s *Session) transition(event fsm.Event, errText string) {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()

	next, err := fsm.Transition(s.state, event)
	if err != nil {
		s.logger.Error("state transition rejected", "state", s.state, "event", event, "error", err.Error())
		return
	}
	s.state = next
	s.lastErr = errText
}

func (s *Session) ensureWatcher() *responseWatcher {
	if !s.watch {
		return nil
	}
	if s.watcher != nil {
		return s.watcher
	}
	w, err := newResponseWatcher(s.channel.Dir(), filechannel.ResponseFile)
	if err != nil {
		s.logger.Debug("response watcher unavailable, polling only", "error", err.Error())
		s.watch = false
		return nil
	}
	s.watcher = w
	return w
}

func (s *Session) record(ctx context.Context, id, action string, params map[string]any, res Result, started time.Time, latency time.Duration) {
	if s.journal == nil {
		return
	}
	entry := journal.Entry{
		ID:        id,
		Action:    action,
		Params:    params,
		Success:   res.OK(),
		Error:     res.Response.ErrorMessage(),
		Failure:   string(res.Failure),
		Response:  res.Response,
		StartedAt: started,
		Latency:   latency,
	}
	if err := s.journal.Record(context.WithoutCancel(ctx), entry); err != nil {
		s.logger.Warn("journal record failed", "id", id, "error", err.Error())
	}
}
