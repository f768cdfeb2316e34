package trigger

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
)

const (
	// DefaultNote is the sentinel the controller script listens for.
	DefaultNote     uint8 = 127
	DefaultVelocity uint8 = 127
)

// DefaultPreferredPorts are matched case-insensitively, in order.
var DefaultPreferredPorts = []string{"IAC", "loopMIDI", "FL"}

// DriverFunc opens the host MIDI driver.
type DriverFunc func() (drivers.Driver, error)

// NoteConfig controls port selection and the sentinel message.
type NoteConfig struct {
	Port           string
	PreferredPorts []string
	Channel        uint8
	Note           uint8
	Velocity       uint8
}

// Note sends a sentinel note-on over a virtual MIDI output port.
type Note struct {
	cfg        NoteConfig
	platform   string
	openDriver DriverFunc

	mu         sync.Mutex
	driver     drivers.Driver
	port       drivers.Out
	portName   string
	candidates []string
}

// NewNote builds a note trigger. Zero note/velocity fall back to 127.
func NewNote(cfg NoteConfig, platform string, openDriver DriverFunc) *Note {
	if cfg.Note == 0 {
		cfg.Note = DefaultNote
	}
	if cfg.Velocity == 0 {
		cfg.Velocity = DefaultVelocity
	}
	if len(cfg.PreferredPorts) == 0 {
		cfg.PreferredPorts = DefaultPreferredPorts
	}
	return &Note{cfg: cfg, platform: platform, openDriver: openDriver}
}

func (n *Note) Kind() Kind { return KindNote }

// Open discovers output ports and opens the preferred one.
func (n *Note) Open(_ context.Context) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.port != nil && n.port.IsOpen() {
		return nil
	}

	if n.openDriver == nil {
		return &ConnectionError{Reason: ReasonDriverMissing, Hint: n.driverHint()}
	}
	if n.driver == nil {
		driver, err := n.openDriver()
		if err != nil {
			return &ConnectionError{Reason: ReasonDriverMissing, Err: err, Hint: n.driverHint()}
		}
		if driver == nil {
			return &ConnectionError{Reason: ReasonDriverMissing, Hint: n.driverHint()}
		}
		n.driver = driver
	}

	outs, err := n.driver.Outs()
	if err != nil {
		return &ConnectionError{Reason: ReasonDriverMissing, Err: fmt.Errorf("list MIDI outputs: %w", err), Hint: n.driverHint()}
	}

	n.candidates = make([]string, 0, len(outs))
	for _, out := range outs {
		n.candidates = append(n.candidates, out.String())
	}
	if len(outs) == 0 {
		return &ConnectionError{Reason: ReasonNoPorts, Hint: n.portHint()}
	}

	target, err := pickPort(outs, n.cfg.Port, n.cfg.PreferredPorts)
	if err != nil {
		return &ConnectionError{Reason: ReasonNoPorts, Candidates: n.candidatesLocked(), Err: err, Hint: n.portHint()}
	}
	if err := target.Open(); err != nil {
		return &ConnectionError{Reason: ReasonPortBusy, Port: target.String(), Candidates: n.candidatesLocked(), Err: err}
	}

	n.port = target
	n.portName = target.String()
	return nil
}

// Fire sends one note-on with the configured sentinel values.
func (n *Note) Fire(_ context.Context) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.port == nil {
		return ErrNotOpen
	}
	msg := midi.NoteOn(n.cfg.Channel, n.cfg.Note, n.cfg.Velocity)
	if err := n.port.Send(msg); err != nil {
		return fmt.Errorf("send note-on to %q: %w", n.portName, err)
	}
	return nil
}

// Close releases the port and the driver. Open may be called again afterwards.
func (n *Note) Close() error {
	n.mu.Lock()
	defer n.mu.Unlock()

	var errs []error
	if n.port != nil {
		if err := n.port.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close MIDI port %q: %w", n.portName, err))
		}
		n.port = nil
	}
	if n.driver != nil {
		if err := n.driver.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close MIDI driver: %w", err))
		}
		n.driver = nil
	}
	n.portName = ""
	return errors.Join(errs...)
}

// Candidates returns the port names seen by the last Open attempt.
func (n *Note) Candidates() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.candidatesLocked()
}

func (n *Note) candidatesLocked() []string {
	return append([]string(nil), n.candidates...)
}

func (n *Note) Info() Info {
	n.mu.Lock()
	defer n.mu.Unlock()
	return Info{
		Kind:       KindNote,
		Platform:   n.platform,
		Open:       n.port != nil && n.port.IsOpen(),
		Port:       n.portName,
		Candidates: n.candidatesLocked(),
	}
}

func (n *Note) portHint() string {
	switch n.platform {
	case "darwin":
		return "Enable the IAC Driver in Audio MIDI Setup"
	case "windows":
		return "Create a loopMIDI virtual port"
	default:
		return "Create a virtual MIDI output port (e.g. snd-virmidi)"
	}
}

func (n *Note) driverHint() string {
	return "MIDI driver unavailable; build with cgo and the rtmidi system libraries"
}

// pickPort honours an explicit port name first, then preference patterns,
// then the first port.
func pickPort(outs []drivers.Out, explicit string, preferred []string) (drivers.Out, error) {
	explicit = strings.TrimSpace(explicit)
	if explicit != "" {
		for _, out := range outs {
			if out.String() == explicit {
				return out, nil
			}
		}
		for _, out := range outs {
			if containsFold(out.String(), explicit) {
				return out, nil
			}
		}
		return nil, fmt.Errorf("configured port %q not found", explicit)
	}

	for _, pattern := range preferred {
		pattern = strings.TrimSpace(pattern)
		if pattern == "" {
			continue
		}
		for _, out := range outs {
			if containsFold(out.String(), pattern) {
				return out, nil
			}
		}
	}
	return outs[0], nil
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
