// Package settings turns loosely typed plugin settings into typed values.
//
// Optional values never fail: they fall back to a default and numeric values
// are clamped into their bounds. Required values fail with a configuration
// error from pkg/dasherr carrying the user-facing message.
package settings

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"

	"github.com/mule-ai/inkdash/pkg/dasherr"
	"github.com/mule-ai/inkdash/pkg/i18n"
	"github.com/mule-ai/inkdash/pkg/types"
)

// Int parses key as an integer, substitutes def when it is missing or not a
// number, and clamps the result into [lo, hi].
func Int(s types.Settings, key string, def, lo, hi int) int {
	n, ok := toInt(s[key])
	if !ok {
		n = def
	}
	return Clamp(n, lo, hi)
}

// Clamp limits n to the inclusive range [lo, hi].
func Clamp(n, lo, hi int) int {
	return max(lo, min(n, hi))
}

func toInt(v any) (int, bool) {
	switch t := v.(type) {
	case nil:
		return 0, false
	case int:
		return t, true
	case int32:
		return int(t), true
	case int64:
		return clampInt64(t), true
	case float64:
		return truncFloat(t)
	case float32:
		return truncFloat(float64(t))
	case bool:
		if t {
			return 1, true
		}
		return 0, true
	case string:
		trimmed := strings.TrimSpace(t)
		n, err := strconv.ParseInt(trimmed, 10, 64)
		if errors.Is(err, strconv.ErrRange) {
			if strings.HasPrefix(trimmed, "-") {
				return math.MinInt, true
			}
			return math.MaxInt, true
		}
		if err != nil {
			return 0, false
		}
		return clampInt64(n), true
	default:
		return 0, false
	}
}

func truncFloat(f float64) (int, bool) {
	if math.IsNaN(f) {
		return 0, false
	}
	if math.IsInf(f, 0) || f >= math.MaxInt || f <= math.MinInt {
		if f > 0 {
			return math.MaxInt, true
		}
		return math.MinInt, true
	}
	return int(f), true
}

func clampInt64(n int64) int {
	if n > math.MaxInt {
		return math.MaxInt
	}
	if n < math.MinInt {
		return math.MinInt
	}
	return int(n)
}

// Bool accepts native booleans unchanged and otherwise compares the
// lower-cased string form against "true". Missing values yield def.
func Bool(s types.Settings, key string, def bool) bool {
	v, ok := s[key]
	if !ok || v == nil {
		return def
	}
	if b, ok := v.(bool); ok {
		return b
	}
	return strings.ToLower(fmt.Sprint(v)) == "true"
}

// String returns the value of key formatted as a string, keeping empty
// strings. Missing values yield def.
func String(s types.Settings, key string, def string) string {
	v, ok := s[key]
	if !ok || v == nil {
		return def
	}
	if str, ok := v.(string); ok {
		return str
	}
	return fmt.Sprint(v)
}

// TrimmedString returns the trimmed value of key or "" when missing.
func TrimmedString(s types.Settings, key string) string {
	return strings.TrimSpace(String(s, key, ""))
}

// RequiredString returns the trimmed value of key or a configuration error
// with message msg when it is empty.
func RequiredString(s types.Settings, key string, msg i18n.Key) (string, error) {
	v := TrimmedString(s, key)
	if v == "" {
		return "", dasherr.Configuration(msg)
	}
	return v, nil
}

// RequiredFloat parses key as a floating point number.
func RequiredFloat(s types.Settings, key string, msg i18n.Key) (float64, error) {
	switch t := s[key].(type) {
	case float64:
		return t, nil
	case float32:
		return float64(t), nil
	case int:
		return float64(t), nil
	case int64:
		return float64(t), nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return 0, dasherr.Configuration(msg)
		}
		return f, nil
	default:
		return 0, dasherr.Configuration(msg)
	}
}

// Enum returns the value of key when it is one of allowed, def when key is
// missing, and a configuration error otherwise.
func Enum(s types.Settings, key, def string, allowed []string, msg i18n.Key) (string, error) {
	v := String(s, key, def)
	if !slices.Contains(allowed, v) {
		return "", dasherr.Configuration(msg)
	}
	return v, nil
}
