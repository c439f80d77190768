package payload

import (
	"fmt"
	"strconv"
	"strings"
)

// RawPayload is one push event as handed over by the transport: loosely typed
// string/bool/number values, possibly with a nested "notification" object
// and/or JSON-encoded "message"/"data" fields.
type RawPayload map[string]any

// Fields is the flat canonical mapping produced by Flatten. Values are
// string, bool or float64; canonical keys are unique (last-write-wins).
//
// Treat as immutable once composition starts.
type Fields map[string]any

// Has reports whether a canonical key is present.
func (f Fields) Has(key string) bool {
	_, ok := f[key]
	return ok
}

// Str returns the value under key rendered as a string, or "" when absent.
func (f Fields) Str(key string) string {
	v, ok := f[key]
	if !ok {
		return ""
	}
	return stringify(v)
}

// StrDefault returns the value under key, or def when absent.
func (f Fields) StrDefault(key, def string) string {
	if !f.Has(key) {
		return def
	}
	return f.Str(key)
}

// Bool parses the value under key as a boolean; absent or unparsable values
// yield def.
func (f Fields) Bool(key string, def bool) bool {
	v, ok := f[key]
	if !ok {
		return def
	}
	switch x := v.(type) {
	case bool:
		return x
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(x))
		if err != nil {
			return def
		}
		return b
	default:
		return def
	}
}

// Int parses the value under key as an integer; absent or unparsable values
// yield def.
func (f Fields) Int(key string, def int) int {
	v, ok := f[key]
	if !ok {
		return def
	}
	switch x := v.(type) {
	case float64:
		return int(x)
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(x))
		if err != nil {
			return def
		}
		return n
	default:
		return def
	}
}

// Flag mirrors the transport convention of boolean-ish fields arriving as
// "1"/"true"/true.
func (f Fields) Flag(key string) bool {
	v, ok := f[key]
	if !ok {
		return false
	}
	switch x := v.(type) {
	case bool:
		return x
	case float64:
		return x == 1
	case string:
		s := strings.TrimSpace(x)
		return s == "1" || strings.EqualFold(s, "true")
	default:
		return false
	}
}

func stringify(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case bool:
		return strconv.FormatBool(x)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	default:
		return fmt.Sprint(x)
	}
}
