//go:build cgo && !nomidi

package mididriver

import (
	"gitlab.com/gomidi/midi/v2/drivers"
	"gitlab.com/gomidi/midi/v2/drivers/rtmididrv"
)

// Available reports whether this build links a real MIDI driver.
const Available = true

// Open opens the rtmidi driver for the host MIDI subsystem
// (CoreMIDI, WinMM, ALSA).
func Open() (drivers.Driver, error) {
	drv, err := rtmididrv.New()
	if err != nil {
		return nil, err
	}
	return drv, nil
}
