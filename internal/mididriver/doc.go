// Package mididriver selects the host MIDI driver at build time so that only
// binaries built with cgo link against rtmidi.
package mididriver

import "errors"

// ErrNoDriver is returned by Open when the binary was built without MIDI support.
var ErrNoDriver = errors.New("built without MIDI support (requires cgo)")
