package dawsim

import (
	"fmt"
	"math"
)

// pluginAt resolves a generator (slot < 0, index is a channel) or a mixer
// effect (index is a track, slot its effect slot).
func (p *Project) pluginAt(i, slot int) (*Plugin, error) {
	if slot < 0 {
		ch, err := index(p.Channels, i, "channel")
		if err != nil {
			return nil, err
		}
		if ch.Generator == nil {
			return nil, fmt.Errorf("no plugin on channel %d", i)
		}
		return ch.Generator, nil
	}
	t, err := index(p.Tracks, i, "track")
	if err != nil {
		return nil, err
	}
	if slot >= len(t.Effects) || t.Effects[slot] == nil {
		return nil, fmt.Errorf("no plugin in track %d slot %d", i, slot)
	}
	return t.Effects[slot], nil
}

func pluginFor(p *Project, params Params, indexKey string) (*Plugin, error) {
	return p.pluginAt(params.Int(indexKey, 0), params.Int("slot_index", -1))
}

func (pl *Plugin) param(i int) (*PluginParam, error) {
	if i < 0 || i >= len(pl.Params) {
		return nil, fmt.Errorf("%s has no parameter %d", pl.Name, i)
	}
	return &pl.Params[i], nil
}

func pluginsIsValid(p *Project, params Params) (map[string]any, error) {
	_, err := pluginFor(p, params, "index")
	return map[string]any{"valid": err == nil}, nil
}

func pluginsName(p *Project, params Params) (map[string]any, error) {
	pl, err := pluginFor(p, params, "index")
	if err != nil {
		return nil, err
	}
	return map[string]any{"name": pl.Name}, nil
}

func pluginsParamCount(p *Project, params Params) (map[string]any, error) {
	pl, err := pluginFor(p, params, "index")
	if err != nil {
		return nil, err
	}
	return map[string]any{"count": len(pl.Params)}, nil
}

func pluginsParams(p *Project, params Params) (map[string]any, error) {
	pl, err := pluginFor(p, params, "index")
	if err != nil {
		return nil, err
	}
	limit := min(len(pl.Params), max(params.Int("max_params", 50), 0))
	out := make([]map[string]any, 0, limit)
	for i := range limit {
		out = append(out, paramFields(i, &pl.Params[i]))
	}
	return map[string]any{"params": out}, nil
}

func pluginsParamValue(p *Project, params Params) (map[string]any, error) {
	pl, err := pluginFor(p, params, "plugin_index")
	if err != nil {
		return nil, err
	}
	i := params.Int("param_index", 0)
	param, err := pl.param(i)
	if err != nil {
		return nil, err
	}
	return paramFields(i, param), nil
}

func pluginsSetParamValue(p *Project, params Params) (map[string]any, error) {
	pl, err := pluginFor(p, params, "plugin_index")
	if err != nil {
		return nil, err
	}
	param, err := pl.param(params.Int("param_index", 0))
	if err != nil {
		return nil, err
	}
	param.Value = clamp(params.Float("value", 0), 0, 1)
	return map[string]any{
		"name":         param.Name,
		"value":        param.Value,
		"value_string": valueString(param.Value),
	}, nil
}

func pluginsPresetCount(p *Project, params Params) (map[string]any, error) {
	pl, err := pluginFor(p, params, "index")
	if err != nil {
		return nil, err
	}
	return map[string]any{"count": len(pl.Presets)}, nil
}

func pluginsNextPreset(p *Project, params Params) (map[string]any, error) {
	return stepPreset(p, params, 1)
}

func pluginsPrevPreset(p *Project, params Params) (map[string]any, error) {
	return stepPreset(p, params, -1)
}

// stepPreset wraps around the preset list; plugins without presets stay put.
func stepPreset(p *Project, params Params, delta int) (map[string]any, error) {
	pl, err := pluginFor(p, params, "index")
	if err != nil {
		return nil, err
	}
	out := map[string]any{"plugin_name": pl.Name}
	if n := len(pl.Presets); n > 0 {
		pl.Preset = ((pl.Preset+delta)%n + n) % n
		out["preset"] = pl.Presets[pl.Preset]
	}
	return out, nil
}

func pluginsColor(p *Project, params Params) (map[string]any, error) {
	pl, err := pluginFor(p, params, "index")
	if err != nil {
		return nil, err
	}
	return map[string]any{"color": hexColor(pl.Color)}, nil
}

func paramFields(i int, param *PluginParam) map[string]any {
	return map[string]any{
		"index":        i,
		"name":         param.Name,
		"value":        param.Value,
		"value_string": valueString(param.Value),
	}
}

func valueString(v float64) string {
	return fmt.Sprintf("%.0f%%", math.Round(v*100))
}

func hexColor(c int) string {
	return fmt.Sprintf("%#x", c)
}

// bgr packs an RGB triple the way FL stores colors.
func bgr(r, g, b int) int {
	return (b&0xff)<<16 | (g&0xff)<<8 | r&0xff
}
