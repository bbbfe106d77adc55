package platform

import (
	"math"
	"strconv"
)

// toInt64 reads an integer out of a decoded native reply field.
// JSON numbers arrive as float64, CBOR integers as int64 or uint64, and
// some native shells send handles as decimal text.
func toInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case uint32:
		return int64(n), true
	case uint64:
		if n > math.MaxInt64 {
			return 0, false
		}
		return int64(n), true
	case float64:
		if n != math.Trunc(n) {
			return 0, false
		}
		return int64(n), true
	case string:
		i, err := strconv.ParseInt(n, 10, 64)
		return i, err == nil
	}
	return 0, false
}

// toInt32 narrows to the native handle width, rejecting values that do
// not fit.
func toInt32(v any) (int32, bool) {
	n, ok := toInt64(v)
	if !ok || n < math.MinInt32 || n > math.MaxInt32 {
		return 0, false
	}
	return int32(n), true
}

// parseString returns a property value as text. CBOR may carry it as a
// byte string.
func parseString(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case []byte:
		return string(s)
	}
	return ""
}

// parseMap normalises a decoded reply object. Both codecs produce
// map[string]any at the top level; map[any]any still turns up nested
// inside values a native bridge hands over already decoded.
func parseMap(v any) map[string]any {
	switch m := v.(type) {
	case map[string]any:
		return m
	case map[any]any:
		out := make(map[string]any, len(m))
		for k, val := range m {
			if key, ok := k.(string); ok {
				out[key] = val
			}
		}
		return out
	}
	return nil
}
