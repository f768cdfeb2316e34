//go:build !cgo || nomidi

package mididriver

import "gitlab.com/gomidi/midi/v2/drivers"

// Available reports whether this build links a real MIDI driver.
const Available = false

func Open() (drivers.Driver, error) {
	return nil, ErrNoDriver
}
