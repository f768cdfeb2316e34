package dawsim

import "fmt"

// Params is a decoded command "params" object.
type Params map[string]any

func (p Params) Float(key string, def float64) float64 {
	if v, ok := p[key].(float64); ok {
		return v
	}
	return def
}

func (p Params) Int(key string, def int) int {
	if v, ok := p[key].(float64); ok {
		return int(v)
	}
	return def
}

func (p Params) String(key, def string) string {
	if v, ok := p[key].(string); ok {
		return v
	}
	return def
}

// OptBool returns nil when key is absent or null, which handlers treat as toggle.
func (p Params) OptBool(key string) *bool {
	v, ok := p[key].(bool)
	if !ok {
		return nil
	}
	return &v
}

func (p Params) Bool(key string, def bool) bool {
	if v := p.OptBool(key); v != nil {
		return *v
	}
	return def
}

func index[T any](items []T, i int, what string) (*T, error) {
	if i < 0 || i >= len(items) {
		return nil, fmt.Errorf("%s index %d out of range", what, i)
	}
	return &items[i], nil
}
