package protocol

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Params is the flat string-keyed parameter map carried by requests.
// Values arrive as strings or JSON primitives; the typed getters coerce
// either form so callers never care which one the wire used.
type Params map[string]any

// Vector3 is the conventional bracketed wire form "[x,y,z]".
type Vector3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// String formats v in the wire form.
func (v Vector3) String() string {
	return fmt.Sprintf("[%s,%s,%s]", trimFloat(v.X), trimFloat(v.Y), trimFloat(v.Z))
}

func trimFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// ParseVector3 parses the bracketed textual form "[x,y,z]".
func ParseVector3(s string) (Vector3, error) {
	trimmed := strings.TrimSpace(s)
	if !strings.HasPrefix(trimmed, "[") || !strings.HasSuffix(trimmed, "]") {
		return Vector3{}, fmt.Errorf("invalid vector %q: expected form [x,y,z]", s)
	}
	parts := strings.Split(trimmed[1:len(trimmed)-1], ",")
	if len(parts) != 3 {
		return Vector3{}, fmt.Errorf("invalid vector %q: expected 3 components, got %d", s, len(parts))
	}
	var out [3]float64
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return Vector3{}, fmt.Errorf("invalid vector %q: component %d: %v", s, i, err)
		}
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return Vector3{}, fmt.Errorf("invalid vector %q: component %d is not finite", s, i)
		}
		out[i] = f
	}
	return Vector3{X: out[0], Y: out[1], Z: out[2]}, nil
}

// String returns the string form of the parameter. Primitives are
// stringified; missing keys return ("", false).
func (p Params) String(key string) (string, bool) {
	v, ok := p[key]
	if !ok || v == nil {
		return "", false
	}
	switch val := v.(type) {
	case string:
		return val, true
	case bool:
		return strconv.FormatBool(val), true
	case float64:
		return trimFloat(val), true
	case int:
		return strconv.Itoa(val), true
	default:
		return fmt.Sprintf("%v", val), true
	}
}

// Require returns the string form of a mandatory parameter.
func (p Params) Require(key string) (string, error) {
	s, ok := p.String(key)
	if !ok || s == "" {
		return "", fmt.Errorf("missing required parameter %q", key)
	}
	return s, nil
}

// StringOr returns the string form or a default when absent.
func (p Params) StringOr(key, def string) string {
	if s, ok := p.String(key); ok && s != "" {
		return s
	}
	return def
}

// Int coerces the parameter to an int.
func (p Params) Int(key string) (int, error) {
	v, ok := p[key]
	if !ok {
		return 0, fmt.Errorf("missing required parameter %q", key)
	}
	switch val := v.(type) {
	case float64:
		return int(val), nil
	case int:
		return val, nil
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(val))
		if err != nil {
			return 0, fmt.Errorf("parameter %q: expected integer, got %q", key, val)
		}
		return n, nil
	default:
		return 0, fmt.Errorf("parameter %q: expected integer, got %T", key, v)
	}
}

// Float coerces the parameter to a float64.
func (p Params) Float(key string) (float64, error) {
	v, ok := p[key]
	if !ok {
		return 0, fmt.Errorf("missing required parameter %q", key)
	}
	switch val := v.(type) {
	case float64:
		return val, nil
	case int:
		return float64(val), nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
		if err != nil {
			return 0, fmt.Errorf("parameter %q: expected number, got %q", key, val)
		}
		return f, nil
	default:
		return 0, fmt.Errorf("parameter %q: expected number, got %T", key, v)
	}
}

// Bool coerces the parameter to a bool.
func (p Params) Bool(key string) (bool, error) {
	v, ok := p[key]
	if !ok {
		return false, fmt.Errorf("missing required parameter %q", key)
	}
	switch val := v.(type) {
	case bool:
		return val, nil
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(val))
		if err != nil {
			return false, fmt.Errorf("parameter %q: expected boolean, got %q", key, val)
		}
		return b, nil
	default:
		return false, fmt.Errorf("parameter %q: expected boolean, got %T", key, v)
	}
}

// BoolOr coerces an optional boolean parameter with a default.
func (p Params) BoolOr(key string, def bool) (bool, error) {
	if _, ok := p[key]; !ok {
		return def, nil
	}
	return p.Bool(key)
}

// Vector3 parses a mandatory "[x,y,z]" parameter.
func (p Params) Vector3(key string) (Vector3, error) {
	s, ok := p.String(key)
	if !ok {
		return Vector3{}, fmt.Errorf("missing required parameter %q", key)
	}
	vec, err := ParseVector3(s)
	if err != nil {
		return Vector3{}, fmt.Errorf("parameter %q: %v", key, err)
	}
	return vec, nil
}

// Vector3Or parses an optional "[x,y,z]" parameter with a default.
func (p Params) Vector3Or(key string, def Vector3) (Vector3, error) {
	if _, ok := p[key]; !ok {
		return def, nil
	}
	return p.Vector3(key)
}

// Has reports whether the key is present.
func (p Params) Has(key string) bool {
	_, ok := p[key]
	return ok
}
