package dawsim

// Track is one mixer insert. Effects are its plugin slots in order.
type Track struct {
	Name      string
	Volume    float64
	Pan       float64
	StereoSep float64
	Color     int
	Muted     bool
	Solo      bool
	Armed     bool
	Effects   []*Plugin
}

// ChannelState is one channel rack entry.
type ChannelState struct {
	Name       string
	Volume     float64
	Pan        float64
	Color      int
	Muted      bool
	Solo       bool
	Selected   bool
	MixerTrack int
	Steps      []bool
	Generator  *Plugin
}

// Plugin is a generator or effect with normalized 0-1 parameters.
type Plugin struct {
	Name    string
	Color   int
	Params  []PluginParam
	Presets []string
	Preset  int
}

// PluginParam is one automatable plugin parameter.
type PluginParam struct {
	Name  string
	Value float64
}

// NoteEvent is a live note sent to a channel; it never lands in a pattern.
type NoteEvent struct {
	Channel     int
	Note        int
	Velocity    int
	MIDIChannel int
}

// NoteState is a note in the simulated piano roll, in ticks.
type NoteState struct {
	MIDI     int     `json:"midi"`
	Time     int     `json:"time"`
	Length   int     `json:"length"`
	Velocity float64 `json:"velocity"`
}

// Project is the simulated DAW state touched by commands.
type Project struct {
	Playing         bool
	Recording       bool
	PositionSeconds float64
	LoopSong        bool
	Speed           float64
	Tempo           float64
	LengthSeconds   float64
	PPQ             int
	Tracks          []Track
	Channels        []ChannelState
	Notes           []NoteState
	Played          []NoteEvent
}

// NewProject returns a small default project: master plus four inserts, a
// limiter on insert 1, and two channels with generators.
func NewProject() *Project {
	p := &Project{
		Speed:         1,
		Tempo:         130,
		LengthSeconds: 60,
		PPQ:           96,
	}
	p.Tracks = append(p.Tracks, Track{Name: "Master", Volume: 0.8})
	for i := 1; i <= 4; i++ {
		p.Tracks = append(p.Tracks, Track{Volume: 0.8})
	}
	p.Tracks[1].Effects = []*Plugin{{
		Name:  "Fruity Limiter",
		Color: 0x3c4a56,
		Params: []PluginParam{
			{Name: "Gain", Value: 0.5},
			{Name: "Ceiling", Value: 1},
		},
	}}
	p.Channels = []ChannelState{
		{
			Name: "Kick", Volume: 0.78, MixerTrack: 1, Selected: true,
			Generator: &Plugin{Name: "FPC", Color: 0x485156, Params: []PluginParam{{Name: "Master level", Value: 0.8}}},
		},
		{
			Name: "Sampler", Volume: 0.78, MixerTrack: 2,
			Generator: &Plugin{
				Name:  "3x Osc",
				Color: 0x565148,
				Params: []PluginParam{
					{Name: "Osc 1 panning", Value: 0.5},
					{Name: "Osc 1 volume", Value: 1},
					{Name: "Osc 2 volume", Value: 0.5},
				},
				Presets: []string{"Default", "Bass", "Lead"},
			},
		},
	}
	return p
}
