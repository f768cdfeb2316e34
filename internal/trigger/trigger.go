// Package trigger wakes the DAW-side script once a request file is ready.
//
// A trigger only promises that the signal was dispatched; whether the DAW
// processed the request is observed through the response file.
package trigger

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Kind tags the strategy chosen at startup.
type Kind string

const (
	KindNone      Kind = "none"
	KindNote      Kind = "note"
	KindKeystroke Kind = "keystroke"
)

// ErrUnsupported reports that no trigger strategy exists on this platform.
var ErrUnsupported = errors.New("trigger unsupported")

// ErrNotOpen reports Fire on a trigger whose channel was never opened.
var ErrNotOpen = errors.New("trigger channel not open")

// Reason classifies why a trigger channel could not be opened.
type Reason string

const (
	ReasonNoPorts       Reason = "no ports"
	ReasonPortBusy      Reason = "port busy"
	ReasonDriverMissing Reason = "driver missing"
)

// ConnectionError is returned by Open when no trigger channel can be established.
type ConnectionError struct {
	Reason     Reason
	Port       string
	Candidates []string
	Hint       string
	Err        error
}

func (e *ConnectionError) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Reason))
	if e.Port != "" {
		fmt.Fprintf(&b, " (%s)", e.Port)
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	if e.Hint != "" {
		b.WriteString(". ")
		b.WriteString(e.Hint)
	}
	return b.String()
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// Info is a diagnostic snapshot of a trigger.
type Info struct {
	Kind       Kind
	Platform   string
	Open       bool
	Port       string
	Candidates []string
	Keystroke  string
}

// Trigger is the out-of-band "process now" signal shared by all strategies.
type Trigger interface {
	Kind() Kind
	// Open establishes the underlying channel. It is idempotent.
	Open(ctx context.Context) error
	// Fire dispatches one signal.
	Fire(ctx context.Context) error
	Close() error
	Info() Info
}

// Unsupported is the strategy used when the platform offers none.
type Unsupported struct {
	Platform string
}

func (Unsupported) Kind() Kind { return KindNone }

func (u Unsupported) Open(context.Context) error {
	return fmt.Errorf("%w on %s", ErrUnsupported, u.Platform)
}

func (u Unsupported) Fire(context.Context) error {
	return fmt.Errorf("%w on %s", ErrUnsupported, u.Platform)
}

func (Unsupported) Close() error { return nil }

func (u Unsupported) Info() Info {
	return Info{Kind: KindNone, Platform: u.Platform}
}

// Callback fires by invoking a function. It backs in-process simulation.
type Callback struct {
	Name   string
	OnFire func(context.Context) error
}

func (Callback) Kind() Kind                 { return KindNote }
func (Callback) Open(context.Context) error { return nil }
func (Callback) Close() error               { return nil }
func (c Callback) Info() Info               { return Info{Kind: KindNote, Open: true, Port: c.Name} }
func (c Callback) Fire(ctx context.Context) error {
	if c.OnFire == nil {
		return nil
	}
	return c.OnFire(ctx)
}
