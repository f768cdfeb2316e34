package trigger

import "strings"

// Strategy is the configured trigger preference.
type Strategy string

const (
	StrategyAuto      Strategy = "auto"
	StrategyNote      Strategy = "note"
	StrategyKeystroke Strategy = "keystroke"
	StrategyNone      Strategy = "none"
)

// ParseStrategy normalizes a config value; unknown values return ok=false.
func ParseStrategy(raw string) (Strategy, bool) {
	switch s := Strategy(strings.ToLower(strings.TrimSpace(raw))); s {
	case "":
		return StrategyAuto, true
	case StrategyAuto, StrategyNote, StrategyKeystroke, StrategyNone:
		return s, true
	default:
		return "", false
	}
}

// Options carries everything needed to select triggers once at startup.
type Options struct {
	Strategy   Strategy
	GOOS       string
	Note       NoteConfig
	Keystroke  KeystrokeConfig
	OpenDriver DriverFunc
}

// SelectCommand picks the trigger for command/response exchanges.
// auto prefers the MIDI note, which works wherever a driver is available.
// The keystroke settle delay applies to the piano roll script only; command
// exchanges start their response deadline as soon as the chord is sent.
func SelectCommand(opts Options) Trigger {
	switch opts.Strategy {
	case StrategyNone:
		return Unsupported{Platform: opts.GOOS}
	case StrategyKeystroke:
		opts.Keystroke.Delay = 0
		return selectKeystroke(opts)
	default:
		return NewNote(opts.Note, opts.GOOS, opts.OpenDriver)
	}
}

// SelectScript picks the trigger for the piano roll script, which FL Studio
// only runs from a hot-key.
func SelectScript(opts Options) Trigger {
	if opts.Strategy == StrategyNone {
		return Unsupported{Platform: opts.GOOS}
	}
	return selectKeystroke(opts)
}

func selectKeystroke(opts Options) Trigger {
	if !KeystrokeSupported(opts.Keystroke, opts.GOOS) {
		return Unsupported{Platform: opts.GOOS}
	}
	return NewKeystroke(opts.Keystroke, opts.GOOS)
}
