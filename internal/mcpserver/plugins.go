package mcpserver

import (
	"context"
	"fmt"
	"strconv"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// maxEffectSlot is the last mixer effect slot on an insert.
const maxEffectSlot = 9

// Plugin tools address existing plugins only; FL Studio cannot load plugins
// from a script.
func registerPluginTools(s *server.MCPServer, h *handlers) {
	index := mcp.WithNumber("index", mcp.Required(), mcp.Min(0), mcp.Description("Channel index, or mixer track index when slot_index is set"))
	slot := mcp.WithNumber("slot_index", mcp.DefaultNumber(-1), mcp.Min(-1), mcp.Max(maxEffectSlot), mcp.Description("Mixer effect slot 0-9; -1 addresses the channel rack plugin"))
	global := mcp.WithBoolean("use_global_index", mcp.DefaultBool(true), mcp.Description("Index channels globally, ignoring channel groups"))

	s.AddTool(mcp.NewTool("fl_is_plugin_valid",
		mcp.WithDescription("Check whether a plugin exists on a channel or mixer effect slot."),
		mcp.WithReadOnlyHintAnnotation(true),
		index, slot, global,
	), h.pluginValid)

	s.AddTool(mcp.NewTool("fl_get_plugin_name",
		mcp.WithDescription("Get the name of a plugin."),
		mcp.WithReadOnlyHintAnnotation(true),
		index, slot, global,
	), h.pluginName)

	s.AddTool(mcp.NewTool("fl_get_plugin_param_count",
		mcp.WithDescription("Get the number of parameters a plugin exposes."),
		mcp.WithReadOnlyHintAnnotation(true),
		index, slot, global,
	), h.pluginParamCount)

	s.AddTool(mcp.NewTool("fl_get_plugin_params",
		mcp.WithDescription("List plugin parameters with their current values."),
		mcp.WithReadOnlyHintAnnotation(true),
		index, slot, global,
		mcp.WithNumber("max_params", mcp.DefaultNumber(50), mcp.Min(1), mcp.Max(4096), mcp.Description("Return at most this many parameters")),
	), h.pluginParams)

	pluginIndex := mcp.WithNumber("plugin_index", mcp.Required(), mcp.Min(0), mcp.Description("Channel index, or mixer track index when slot_index is set"))
	paramIndex := mcp.WithNumber("param_index", mcp.Required(), mcp.Min(0), mcp.Description("Parameter index"))

	s.AddTool(mcp.NewTool("fl_get_plugin_param_value",
		mcp.WithDescription("Get one plugin parameter with its display string."),
		mcp.WithReadOnlyHintAnnotation(true),
		paramIndex, pluginIndex, slot, global,
	), h.pluginParamValue)

	s.AddTool(mcp.NewTool("fl_set_plugin_param_value",
		mcp.WithDescription("Set a plugin parameter to a normalized value."),
		paramIndex,
		mcp.WithNumber("value", mcp.Required(), mcp.Min(0), mcp.Max(1), mcp.Description("Normalized value from 0.0 to 1.0")),
		pluginIndex, slot, global,
	), h.setPluginParamValue)

	s.AddTool(mcp.NewTool("fl_get_preset_count",
		mcp.WithDescription("Get the number of presets available for a plugin."),
		mcp.WithReadOnlyHintAnnotation(true),
		index, slot, global,
	), h.presetCount)

	s.AddTool(mcp.NewTool("fl_next_preset",
		mcp.WithDescription("Switch a plugin to its next preset."),
		index, slot, global,
	), h.nextPreset)

	s.AddTool(mcp.NewTool("fl_prev_preset",
		mcp.WithDescription("Switch a plugin to its previous preset."),
		index, slot, global,
	), h.prevPreset)

	s.AddTool(mcp.NewTool("fl_get_plugin_color",
		mcp.WithDescription("Get the color of a plugin as a hex string."),
		mcp.WithReadOnlyHintAnnotation(true),
		index, slot, global,
	), h.pluginColor)
}

// pluginLocation reads the shared plugin location arguments. indexKey is
// "index" or "plugin_index" depending on the tool.
func pluginLocation(req mcp.CallToolRequest, indexKey string) (map[string]any, error) {
	index, err := req.RequireInt(indexKey)
	if err != nil {
		return nil, err
	}
	if index < 0 {
		return nil, fmt.Errorf("%s must not be negative", indexKey)
	}
	slot := req.GetInt("slot_index", -1)
	if slot < -1 || slot > maxEffectSlot {
		return nil, fmt.Errorf("slot_index must be between -1 and %d", maxEffectSlot)
	}
	return map[string]any{
		indexKey:     index,
		"slot_index": slot,
		"use_global": req.GetBool("use_global_index", true),
	}, nil
}

func (h *handlers) pluginValid(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	params, err := pluginLocation(req, "index")
	if err != nil {
		return errorResult(err.Error()), nil
	}
	resp, fail := h.send(ctx, "plugins.isValid", params)
	if fail != nil {
		return fail, nil
	}
	return mcp.NewToolResultText(strconv.FormatBool(resp.Bool("valid", false))), nil
}

func (h *handlers) pluginName(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	params, err := pluginLocation(req, "index")
	if err != nil {
		return errorResult(err.Error()), nil
	}
	resp, fail := h.send(ctx, "plugins.getName", params)
	if fail != nil {
		return fail, nil
	}
	return mcp.NewToolResultText(resp.String("name", "")), nil
}

func (h *handlers) pluginParamCount(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	params, err := pluginLocation(req, "index")
	if err != nil {
		return errorResult(err.Error()), nil
	}
	resp, fail := h.send(ctx, "plugins.getParamCount", params)
	if fail != nil {
		return fail, nil
	}
	return mcp.NewToolResultText(strconv.Itoa(resp.Int("count", 0))), nil
}

func (h *handlers) pluginParams(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	params, err := pluginLocation(req, "index")
	if err != nil {
		return errorResult(err.Error()), nil
	}
	limit := req.GetInt("max_params", 50)
	if limit < 1 || limit > 4096 {
		return errorResult("max_params must be between 1 and 4096"), nil
	}
	params["max_params"] = limit

	resp, fail := h.send(ctx, "plugins.getParams", params)
	if fail != nil {
		return fail, nil
	}
	list, ok := resp["params"]
	if !ok {
		list = []any{}
	}
	return jsonResult(list), nil
}

// paramLocation adds a validated param_index to the plugin location.
func paramLocation(req mcp.CallToolRequest) (map[string]any, error) {
	params, err := pluginLocation(req, "plugin_index")
	if err != nil {
		return nil, err
	}
	param, err := req.RequireInt("param_index")
	if err != nil {
		return nil, err
	}
	if param < 0 {
		return nil, fmt.Errorf("param_index must not be negative")
	}
	params["param_index"] = param
	return params, nil
}

func (h *handlers) pluginParamValue(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	params, err := paramLocation(req)
	if err != nil {
		return errorResult(err.Error()), nil
	}
	resp, fail := h.send(ctx, "plugins.getParamValue", params)
	if fail != nil {
		return fail, nil
	}
	return jsonResult(map[string]any{
		"index":        resp.Int("index", params["param_index"].(int)),
		"name":         resp.String("name", ""),
		"value":        resp.Float("value", 0),
		"value_string": resp.String("value_string", ""),
	}), nil
}

func (h *handlers) setPluginParamValue(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	params, err := paramLocation(req)
	if err != nil {
		return errorResult(err.Error()), nil
	}
	value, err := req.RequireFloat("value")
	if err != nil {
		return errorResult(err.Error()), nil
	}
	if value < 0 || value > 1 {
		return errorResult("Value must be between 0.0 and 1.0"), nil
	}
	params["value"] = value

	resp, fail := h.send(ctx, "plugins.setParamValue", params)
	if fail != nil {
		return fail, nil
	}
	name := resp.String("name", fmt.Sprintf("Parameter %d", params["param_index"]))
	return mcp.NewToolResultText(fmt.Sprintf("Parameter '%s' set to %.4f (%s)",
		name, resp.Float("value", value), resp.String("value_string", ""))), nil
}

func (h *handlers) presetCount(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	params, err := pluginLocation(req, "index")
	if err != nil {
		return errorResult(err.Error()), nil
	}
	resp, fail := h.send(ctx, "plugins.getPresetCount", params)
	if fail != nil {
		return fail, nil
	}
	return mcp.NewToolResultText(strconv.Itoa(resp.Int("count", 0))), nil
}

func (h *handlers) nextPreset(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return h.stepPreset(ctx, req, "plugins.nextPreset", "next")
}

func (h *handlers) prevPreset(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return h.stepPreset(ctx, req, "plugins.prevPreset", "previous")
}

func (h *handlers) stepPreset(ctx context.Context, req mcp.CallToolRequest, action, direction string) (*mcp.CallToolResult, error) {
	params, err := pluginLocation(req, "index")
	if err != nil {
		return errorResult(err.Error()), nil
	}
	resp, fail := h.send(ctx, action, params)
	if fail != nil {
		return fail, nil
	}
	msg := fmt.Sprintf("Switched '%s' to %s preset", resp.String("plugin_name", "Plugin"), direction)
	if preset := resp.String("preset", ""); preset != "" {
		msg += fmt.Sprintf(" (%s)", preset)
	}
	return mcp.NewToolResultText(msg), nil
}

func (h *handlers) pluginColor(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	params, err := pluginLocation(req, "index")
	if err != nil {
		return errorResult(err.Error()), nil
	}
	resp, fail := h.send(ctx, "plugins.getColor", params)
	if fail != nil {
		return fail, nil
	}
	return mcp.NewToolResultText(resp.String("color", "0x0")), nil
}
