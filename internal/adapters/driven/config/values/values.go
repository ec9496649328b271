// Package values converts loosely typed configuration values.
//
// Values come from TOML (int64, float64, string), from callers (int) and
// from environment overrides (always strings), so every conversion accepts
// each of those forms.
package values

import (
	"strconv"
	"strings"
)

// String returns v when it is a string and "" otherwise.
func String(v any) string {
	s, _ := v.(string)
	return s
}

// Int converts v to an int. Floats are rejected rather than truncated.
func Int(v any) int {
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case string:
		i, err := strconv.Atoi(strings.TrimSpace(n))
		if err != nil {
			return 0
		}
		return i
	default:
		return 0
	}
}

// Float converts v to a float64, widening integers.
func Float(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	case int64:
		return float64(n)
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0
		}
		return f
	default:
		return 0
	}
}
