package filechannel

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFailure(t *testing.T) {
	resp := Failure("timeout after %gs", 2.0)
	require.False(t, resp.Success())
	require.Equal(t, "timeout after 2s", resp.ErrorMessage())
}

func TestSuccessSemantics(t *testing.T) {
	require.True(t, Response{"success": true}.Success())
	require.True(t, Response{"success": true, "error": nil}.Success())
	require.True(t, Response{"is_playing": true}.Success())
	require.False(t, Response{"success": false}.Success())
	require.False(t, Response{"success": true, "error": "Unknown action: x"}.Success())
	require.False(t, Response{"error": "boom"}.Success())
}

func TestTypedAccessors(t *testing.T) {
	resp := Response{
		"count":   json.Number("125"),
		"volume":  json.Number("0.8"),
		"name":    "Master",
		"muted":   true,
		"percent": 0.25,
	}

	require.Equal(t, 125, resp.Int("count", -1))
	require.Equal(t, 0, resp.Int("volume", -1))
	require.InDelta(t, 0.8, resp.Float("volume", 0), 1e-9)
	require.InDelta(t, 0.25, resp.Float("percent", 0), 1e-9)
	require.Equal(t, "Master", resp.String("name", ""))
	require.Equal(t, "125", resp.String("count", ""))
	require.Equal(t, "fallback", resp.String("missing", "fallback"))
	require.True(t, resp.Bool("muted", false))
	require.True(t, resp.Bool("missing", true))
	require.Equal(t, -1, resp.Int("name", -1))
}

func TestFailureMessageFallsBackForBareFailure(t *testing.T) {
	require.Equal(t, "Unknown action: x", Response{"success": false, "error": "Unknown action: x"}.FailureMessage())
	require.Equal(t, "DAW reported failure without an error message", Response{"success": false}.FailureMessage())
}
