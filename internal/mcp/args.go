package mcp

import (
	"math"
	"strings"

	"github.com/soyeahso/mcp-digitalocean/internal/domain"
)

// Args is a tool call's argument map as decoded from JSON. Accessors
// report a missing required argument as a ConfigurationError and a value
// of the wrong type as a ValidationError. A JSON null counts as missing.
type Args map[string]any

func (a Args) lookup(key string) (any, bool) {
	v, ok := a[key]
	if !ok || v == nil {
		return nil, false
	}
	return v, true
}

// RequiredString returns a non-blank string argument.
func (a Args) RequiredString(op, key string) (string, error) {
	v, ok := a.lookup(key)
	if !ok {
		return "", missing(op, key)
	}
	s, ok := v.(string)
	if !ok {
		return "", wrongType(op, key, "a string", v)
	}
	if strings.TrimSpace(s) == "" {
		return "", missing(op, key)
	}
	return s, nil
}

// OptionalString returns a string argument or def when absent.
func (a Args) OptionalString(op, key, def string) (string, error) {
	v, ok := a.lookup(key)
	if !ok {
		return def, nil
	}
	s, ok := v.(string)
	if !ok {
		return "", wrongType(op, key, "a string", v)
	}
	return s, nil
}

// RequiredInt returns an integral number argument.
func (a Args) RequiredInt(op, key string) (int, error) {
	v, ok := a.lookup(key)
	if !ok {
		return 0, missing(op, key)
	}
	return toInt(op, key, v)
}

// OptionalInt returns an integral number argument or def when absent.
func (a Args) OptionalInt(op, key string, def int) (int, error) {
	v, ok := a.lookup(key)
	if !ok {
		return def, nil
	}
	return toInt(op, key, v)
}

// OptionalFloat returns a number argument or def when absent.
func (a Args) OptionalFloat(op, key string, def float64) (float64, error) {
	v, ok := a.lookup(key)
	if !ok {
		return def, nil
	}
	switch n := v.(type) {
	case float64:
		return n, nil
	case int:
		return float64(n), nil
	}
	return 0, wrongType(op, key, "a number", v)
}

// OptionalBool returns a boolean argument or def when absent.
func (a Args) OptionalBool(op, key string, def bool) (bool, error) {
	v, ok := a.lookup(key)
	if !ok {
		return def, nil
	}
	b, ok := v.(bool)
	if !ok {
		return false, wrongType(op, key, "a boolean", v)
	}
	return b, nil
}

// OptionalStringList returns a list of strings. A comma-separated string
// is accepted as well as a JSON array.
func (a Args) OptionalStringList(op, key string) ([]string, error) {
	v, ok := a.lookup(key)
	if !ok {
		return nil, nil
	}

	var out []string
	switch list := v.(type) {
	case string:
		for _, part := range strings.Split(list, ",") {
			if p := strings.TrimSpace(part); p != "" {
				out = append(out, p)
			}
		}
	case []string:
		out = append(out, list...)
	case []any:
		for _, item := range list {
			s, ok := item.(string)
			if !ok {
				return nil, wrongType(op, key, "a list of strings", v)
			}
			out = append(out, s)
		}
	default:
		return nil, wrongType(op, key, "a list of strings", v)
	}
	return out, nil
}

// maxExactInt is the largest integer a float64 holds exactly.
const maxExactInt = 1 << 53

func toInt(op, key string, v any) (int, error) {
	switch n := v.(type) {
	case int:
		return n, nil
	case float64:
		if n == math.Trunc(n) && math.Abs(n) <= maxExactInt {
			return int(n), nil
		}
		return 0, domain.ValidationError(op, "argument %q must be an integer, got %v", key, n)
	}
	return 0, wrongType(op, key, "an integer", v)
}

func missing(op, key string) error {
	return domain.ConfigurationError(op, "missing required argument %q", key)
}

func wrongType(op, key, want string, got any) error {
	return domain.ValidationError(op, "argument %q must be %s, got %s", key, want, jsonType(got))
}

// jsonType names the JSON type of a decoded value.
func jsonType(v any) string {
	switch v.(type) {
	case string:
		return "string"
	case float64, int:
		return "number"
	case bool:
		return "boolean"
	case []any, []string:
		return "array"
	case map[string]any:
		return "object"
	case nil:
		return "null"
	}
	return "unknown"
}
