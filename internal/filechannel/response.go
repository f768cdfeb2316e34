package filechannel

import (
	"encoding/json"
	"fmt"
)

// Response is the DAW-side reply. Result fields are kept verbatim next to
// "success" and "error".
type Response map[string]any

// Failure builds the uniform failed response used for every protocol error.
func Failure(format string, args ...any) Response {
	return Response{"success": false, "error": fmt.Sprintf(format, args...)}
}

// Success reports the "success" flag. A missing flag with no error counts as success,
// matching controller scripts that only return result fields.
func (r Response) Success() bool {
	if v, ok := r["success"].(bool); ok {
		return v && r.ErrorMessage() == ""
	}
	return r.ErrorMessage() == ""
}

// ErrorMessage returns the "error" field, or "" when absent or null.
func (r Response) ErrorMessage() string {
	switch v := r["error"].(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		return fmt.Sprint(v)
	}
}

// FailureMessage is ErrorMessage with a fallback for a bare
// {"success": false}, which still counts as a failure.
func (r Response) FailureMessage() string {
	if msg := r.ErrorMessage(); msg != "" {
		return msg
	}
	return "DAW reported failure without an error message"
}

// Bool returns key as a bool, or def.
func (r Response) Bool(key string, def bool) bool {
	if v, ok := r[key].(bool); ok {
		return v
	}
	return def
}

// String returns key as a string, or def.
func (r Response) String(key string, def string) string {
	switch v := r[key].(type) {
	case string:
		return v
	case json.Number:
		return v.String()
	case nil:
		return def
	default:
		return fmt.Sprint(v)
	}
}

// Float returns key as a float64, or def.
func (r Response) Float(key string, def float64) float64 {
	switch v := r[key].(type) {
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return def
		}
		return f
	case float64:
		return v
	case int:
		return float64(v)
	default:
		return def
	}
}

// Int returns key as an int, or def.
func (r Response) Int(key string, def int) int {
	switch v := r[key].(type) {
	case json.Number:
		if i, err := v.Int64(); err == nil {
			return int(i)
		}
		if f, err := v.Float64(); err == nil {
			return int(f)
		}
		return def
	case float64:
		return int(v)
	case int:
		return v
	default:
		return def
	}
}
