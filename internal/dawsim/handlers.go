package dawsim

import (
	"fmt"
	"math"
	"strings"
)

func defaultHandlers() map[string]Handler {
	return map[string]Handler{
		"transport.start":            transportStart,
		"transport.stop":             transportStop,
		"transport.record":           transportRecord,
		"transport.getStatus":        transportStatus,
		"transport.setPosition":      transportSetPosition,
		"transport.getLength":        transportLength,
		"transport.setLoopMode":      transportSetLoopMode,
		"transport.setPlaybackSpeed": transportSetSpeed,

		"mixer.getTrackCount":  mixerTrackCount,
		"mixer.getTrackInfo":   mixerTrackInfo,
		"mixer.getAllTracks":   mixerAllTracks,
		"mixer.setTrackVolume": mixerSetVolume,
		"mixer.setTrackPan":    mixerSetPan,
		"mixer.muteTrack":      mixerMute,
		"mixer.soloTrack":      mixerSolo,
		"mixer.armTrack":       mixerArm,
		"mixer.setTrackName":   mixerSetName,
		"mixer.setTrackColor":  mixerSetColor,
		"mixer.setStereoSep":   mixerSetStereoSep,

		"channels.getCount":        channelCount,
		"channels.getInfo":         channelInfo,
		"channels.getAll":          channelAll,
		"channels.getSelected":     channelSelected,
		"channels.select":          channelSelect,
		"channels.selectOne":       channelSelectOne,
		"channels.triggerNote":     channelTriggerNote,
		"channels.setVolume":       channelSetVolume,
		"channels.setPan":          channelSetPan,
		"channels.mute":            channelMute,
		"channels.solo":            channelSolo,
		"channels.setName":         channelSetName,
		"channels.setColor":        channelSetColor,
		"channels.routeToMixer":    channelRouteToMixer,
		"channels.getGridBit":      channelGridBit,
		"channels.setGridBit":      channelSetGridBit,
		"channels.getStepSequence": channelStepSequence,
		"channels.setStepSequence": channelSetStepSequence,

		"plugins.isValid":        pluginsIsValid,
		"plugins.getName":        pluginsName,
		"plugins.getParamCount":  pluginsParamCount,
		"plugins.getParams":      pluginsParams,
		"plugins.getParamValue":  pluginsParamValue,
		"plugins.setParamValue":  pluginsSetParamValue,
		"plugins.getPresetCount": pluginsPresetCount,
		"plugins.nextPreset":     pluginsNextPreset,
		"plugins.prevPreset":     pluginsPrevPreset,
		"plugins.getColor":       pluginsColor,
	}
}

func transportStart(p *Project, _ Params) (map[string]any, error) {
	p.Playing = !p.Playing
	return map[string]any{"is_playing": p.Playing}, nil
}

func transportStop(p *Project, _ Params) (map[string]any, error) {
	p.Playing = false
	p.Recording = false
	p.PositionSeconds = 0
	return map[string]any{"stopped": true}, nil
}

func transportRecord(p *Project, _ Params) (map[string]any, error) {
	p.Recording = !p.Recording
	return map[string]any{"is_recording": p.Recording}, nil
}

func transportStatus(p *Project, _ Params) (map[string]any, error) {
	return map[string]any{
		"is_playing":   p.Playing,
		"is_recording": p.Recording,
		"position":     p.positionHint(),
		"loop_mode":    p.loopMode(),
	}, nil
}

func transportSetPosition(p *Project, params Params) (map[string]any, error) {
	pos := params.Float("position", 0)
	if pos < 0 {
		return nil, fmt.Errorf("position must not be negative")
	}
	p.PositionSeconds = math.Min(pos, p.LengthSeconds)
	return map[string]any{"position": p.positionHint()}, nil
}

func transportLength(p *Project, _ Params) (map[string]any, error) {
	beats := p.LengthSeconds * p.Tempo / 60
	return map[string]any{
		"ticks":        int(beats * float64(p.PPQ)),
		"seconds":      p.LengthSeconds,
		"milliseconds": int(p.LengthSeconds * 1000),
	}, nil
}

func transportSetLoopMode(p *Project, params Params) (map[string]any, error) {
	mode := strings.ToLower(params.String("mode", "pattern"))
	p.LoopSong = mode == "song"
	return map[string]any{"mode": mode}, nil
}

func transportSetSpeed(p *Project, params Params) (map[string]any, error) {
	speed := params.Float("speed", 1)
	if speed < 0.25 || speed > 4 {
		return nil, fmt.Errorf("speed %.2f out of range", speed)
	}
	p.Speed = speed
	return map[string]any{"speed": speed}, nil
}

func mixerTrackCount(p *Project, _ Params) (map[string]any, error) {
	return map[string]any{"count": len(p.Tracks)}, nil
}

func mixerTrackInfo(p *Project, params Params) (map[string]any, error) {
	i := params.Int("track", 0)
	t, err := index(p.Tracks, i, "track")
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"index":             i,
		"name":              trackName(i, t),
		"volume":            t.Volume,
		"volume_db":         volumeDB(t.Volume),
		"pan":               t.Pan,
		"stereo_separation": t.StereoSep,
		"color":             hexColor(t.Color),
		"is_muted":          t.Muted,
		"is_solo":           t.Solo,
		"is_armed":          t.Armed,
	}, nil
}

func mixerAllTracks(p *Project, params Params) (map[string]any, error) {
	includeEmpty := params.Bool("include_empty", false)
	tracks := make([]map[string]any, 0, len(p.Tracks))
	for i := range p.Tracks {
		t := &p.Tracks[i]
		if !includeEmpty && i != 0 && t.Name == "" {
			continue
		}
		tracks = append(tracks, map[string]any{
			"index":    i,
			"name":     trackName(i, t),
			"volume":   t.Volume,
			"pan":      t.Pan,
			"is_muted": t.Muted,
			"is_solo":  t.Solo,
		})
	}
	return map[string]any{"tracks": tracks}, nil
}

func mixerSetVolume(p *Project, params Params) (map[string]any, error) {
	t, err := index(p.Tracks, params.Int("track", 0), "track")
	if err != nil {
		return nil, err
	}
	t.Volume = clamp(params.Float("volume", 0.8), 0, 1.25)
	return map[string]any{"volume": t.Volume, "volume_db": volumeDB(t.Volume)}, nil
}

func mixerSetPan(p *Project, params Params) (map[string]any, error) {
	t, err := index(p.Tracks, params.Int("track", 0), "track")
	if err != nil {
		return nil, err
	}
	t.Pan = clamp(params.Float("pan", 0), -1, 1)
	return map[string]any{"pan": t.Pan}, nil
}

func mixerMute(p *Project, params Params) (map[string]any, error) {
	i := params.Int("track", 0)
	t, err := index(p.Tracks, i, "track")
	if err != nil {
		return nil, err
	}
	t.Muted = toggle(t.Muted, params.OptBool("muted"))
	return map[string]any{"is_muted": t.Muted, "track_name": trackName(i, t)}, nil
}

func mixerSolo(p *Project, params Params) (map[string]any, error) {
	i := params.Int("track", 0)
	t, err := index(p.Tracks, i, "track")
	if err != nil {
		return nil, err
	}
	t.Solo = toggle(t.Solo, params.OptBool("solo"))
	return map[string]any{"is_solo": t.Solo, "track_name": trackName(i, t)}, nil
}

func mixerArm(p *Project, params Params) (map[string]any, error) {
	i := params.Int("track", 0)
	t, err := index(p.Tracks, i, "track")
	if err != nil {
		return nil, err
	}
	t.Armed = !t.Armed
	return map[string]any{"is_armed": t.Armed, "track_name": trackName(i, t)}, nil
}

func mixerSetName(p *Project, params Params) (map[string]any, error) {
	t, err := index(p.Tracks, params.Int("track", 0), "track")
	if err != nil {
		return nil, err
	}
	t.Name = params.String("name", "")
	return map[string]any{"name": t.Name}, nil
}

func channelCount(p *Project, _ Params) (map[string]any, error) {
	return map[string]any{"count": len(p.Channels)}, nil
}

func channelInfo(p *Project, params Params) (map[string]any, error) {
	i := params.Int("index", 0)
	ch, err := index(p.Channels, i, "channel")
	if err != nil {
		return nil, err
	}
	return channelFields(i, ch), nil
}

func channelAll(p *Project, _ Params) (map[string]any, error) {
	out := make([]map[string]any, 0, len(p.Channels))
	for i := range p.Channels {
		out = append(out, channelFields(i, &p.Channels[i]))
	}
	return map[string]any{"channels": out}, nil
}

func channelSelectOne(p *Project, params Params) (map[string]any, error) {
	i := params.Int("index", 0)
	if _, err := index(p.Channels, i, "channel"); err != nil {
		return nil, err
	}
	for j := range p.Channels {
		p.Channels[j].Selected = j == i
	}
	return map[string]any{"selected": i}, nil
}

func channelSetVolume(p *Project, params Params) (map[string]any, error) {
	ch, err := index(p.Channels, params.Int("index", 0), "channel")
	if err != nil {
		return nil, err
	}
	ch.Volume = clamp(params.Float("volume", 0.78), 0, 1)
	return map[string]any{"volume": ch.Volume}, nil
}

func channelMute(p *Project, params Params) (map[string]any, error) {
	ch, err := index(p.Channels, params.Int("index", 0), "channel")
	if err != nil {
		return nil, err
	}
	ch.Muted = toggle(ch.Muted, params.OptBool("muted"))
	return map[string]any{"is_muted": ch.Muted, "name": ch.Name}, nil
}

func mixerSetColor(p *Project, params Params) (map[string]any, error) {
	t, err := index(p.Tracks, params.Int("track", 0), "track")
	if err != nil {
		return nil, err
	}
	r, g, b := params.Int("r", 0), params.Int("g", 0), params.Int("b", 0)
	t.Color = bgr(r, g, b)
	return map[string]any{"color": fmt.Sprintf("RGB(%d, %d, %d)", r, g, b)}, nil
}

func mixerSetStereoSep(p *Project, params Params) (map[string]any, error) {
	t, err := index(p.Tracks, params.Int("track", 0), "track")
	if err != nil {
		return nil, err
	}
	t.StereoSep = clamp(params.Float("separation", 0), -1, 1)
	return map[string]any{"separation": t.StereoSep}, nil
}

func channelSelected(p *Project, _ Params) (map[string]any, error) {
	for i := range p.Channels {
		if ch := &p.Channels[i]; ch.Selected {
			return map[string]any{"channel": channelFields(i, ch)}, nil
		}
	}
	return map[string]any{"channel": nil}, nil
}

func channelSelect(p *Project, params Params) (map[string]any, error) {
	ch, err := index(p.Channels, params.Int("index", 0), "channel")
	if err != nil {
		return nil, err
	}
	ch.Selected = params.Bool("select", true)
	return map[string]any{"selected": ch.Selected, "channel_name": ch.Name}, nil
}

func channelTriggerNote(p *Project, params Params) (map[string]any, error) {
	i := params.Int("channel", 0)
	if _, err := index(p.Channels, i, "channel"); err != nil {
		return nil, err
	}
	ev := NoteEvent{
		Channel:     i,
		Note:        params.Int("note", 60),
		Velocity:    params.Int("velocity", 100),
		MIDIChannel: params.Int("midi_channel", -1),
	}
	p.Played = append(p.Played, ev)
	return map[string]any{"triggered": true, "note": ev.Note, "velocity": ev.Velocity}, nil
}

func channelSetPan(p *Project, params Params) (map[string]any, error) {
	ch, err := index(p.Channels, params.Int("index", 0), "channel")
	if err != nil {
		return nil, err
	}
	ch.Pan = clamp(params.Float("pan", 0), -1, 1)
	return map[string]any{"pan": ch.Pan, "channel_name": ch.Name}, nil
}

func channelSolo(p *Project, params Params) (map[string]any, error) {
	ch, err := index(p.Channels, params.Int("index", 0), "channel")
	if err != nil {
		return nil, err
	}
	ch.Solo = toggle(ch.Solo, params.OptBool("solo"))
	return map[string]any{"is_solo": ch.Solo, "channel_name": ch.Name}, nil
}

func channelSetName(p *Project, params Params) (map[string]any, error) {
	ch, err := index(p.Channels, params.Int("index", 0), "channel")
	if err != nil {
		return nil, err
	}
	ch.Name = params.String("name", "")
	return map[string]any{"name": ch.Name}, nil
}

func channelSetColor(p *Project, params Params) (map[string]any, error) {
	ch, err := index(p.Channels, params.Int("index", 0), "channel")
	if err != nil {
		return nil, err
	}
	r, g, b := params.Int("r", 0), params.Int("g", 0), params.Int("b", 0)
	ch.Color = bgr(r, g, b)
	return map[string]any{"color": fmt.Sprintf("RGB(%d, %d, %d)", r, g, b)}, nil
}

func channelRouteToMixer(p *Project, params Params) (map[string]any, error) {
	ch, err := index(p.Channels, params.Int("channel_index", 0), "channel")
	if err != nil {
		return nil, err
	}
	track := params.Int("mixer_track", 0)
	if _, err := index(p.Tracks, track, "track"); err != nil {
		return nil, err
	}
	ch.MixerTrack = track
	return map[string]any{"channel_name": ch.Name, "mixer_track": track}, nil
}

func channelGridBit(p *Project, params Params) (map[string]any, error) {
	ch, err := index(p.Channels, params.Int("channel", 0), "channel")
	if err != nil {
		return nil, err
	}
	return map[string]any{"value": ch.step(params.Int("position", 0))}, nil
}

func channelSetGridBit(p *Project, params Params) (map[string]any, error) {
	ch, err := index(p.Channels, params.Int("channel", 0), "channel")
	if err != nil {
		return nil, err
	}
	pos := params.Int("position", 0)
	if pos < 0 {
		return nil, fmt.Errorf("step position %d out of range", pos)
	}
	value := params.Bool("value", false)
	ch.setStep(pos, value)
	return map[string]any{"value": value, "channel_name": ch.Name}, nil
}

func channelStepSequence(p *Project, params Params) (map[string]any, error) {
	ch, err := index(p.Channels, params.Int("channel", 0), "channel")
	if err != nil {
		return nil, err
	}
	steps := max(params.Int("steps", 16), 0)
	seq := make([]bool, steps)
	for i := range seq {
		seq[i] = ch.step(i)
	}
	return map[string]any{"sequence": seq}, nil
}

func channelSetStepSequence(p *Project, params Params) (map[string]any, error) {
	ch, err := index(p.Channels, params.Int("channel", 0), "channel")
	if err != nil {
		return nil, err
	}
	pattern, _ := params["pattern"].([]any)
	active := 0
	for i, v := range pattern {
		on, _ := v.(bool)
		ch.setStep(i, on)
		if on {
			active++
		}
	}
	return map[string]any{"active_steps": active, "total_steps": len(pattern), "channel_name": ch.Name}, nil
}

func (ch *ChannelState) step(i int) bool {
	return i >= 0 && i < len(ch.Steps) && ch.Steps[i]
}

func (ch *ChannelState) setStep(i int, on bool) {
	for len(ch.Steps) <= i {
		ch.Steps = append(ch.Steps, false)
	}
	ch.Steps[i] = on
}

func channelFields(i int, ch *ChannelState) map[string]any {
	return map[string]any{
		"index":       i,
		"name":        ch.Name,
		"color":       hexColor(ch.Color),
		"volume":      ch.Volume,
		"pan":         ch.Pan,
		"is_muted":    ch.Muted,
		"is_solo":     ch.Solo,
		"is_selected": ch.Selected,
		"mixer_track": ch.MixerTrack,
	}
}

func (p *Project) positionHint() string {
	total := int(p.PositionSeconds)
	return fmt.Sprintf("%d:%02d", total/60, total%60)
}

func (p *Project) loopMode() string {
	if p.LoopSong {
		return "song"
	}
	return "pattern"
}

func trackName(i int, t *Track) string {
	switch {
	case t.Name != "":
		return t.Name
	case i == 0:
		return "Master"
	default:
		return fmt.Sprintf("Insert %d", i)
	}
}

// volumeDB maps FL's linear fader where 0.8 is unity gain. Silence is
// reported as -100 since JSON has no infinity.
func volumeDB(v float64) float64 {
	if v <= 0 {
		return -100
	}
	return math.Round(20*math.Log10(v/0.8)*10) / 10
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func toggle(current bool, want *bool) bool {
	if want == nil {
		return !current
	}
	return *want
}
