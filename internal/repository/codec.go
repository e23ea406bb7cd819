package repository

import (
	"encoding/json"
	"math"
	"time"
)

func stringValue(v interface{}) string {
	s, _ := v.(string)
	return s
}

func boolValue(v interface{}) bool {
	b, _ := v.(bool)
	return b
}

func stringList(v interface{}) []string {
	switch t := v.(type) {
	case []string:
		return append([]string(nil), t...)
	case []interface{}:
		out := make([]string, 0, len(t))
		for _, e := range t {
			if s, ok := e.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

func stringListValue(list []string) []interface{} {
	out := make([]interface{}, len(list))
	for i, s := range list {
		out[i] = s
	}
	return out
}

// timeValue reads a timestamp stored natively, as an RFC 3339 string, as Unix
// milliseconds, or as an exported {seconds, nanoseconds} object.
func timeValue(v interface{}) time.Time {
	switch t := v.(type) {
	case time.Time:
		return t
	case *time.Time:
		if t != nil {
			return *t
		}
	case string:
		if parsed, err := time.Parse(time.RFC3339Nano, t); err == nil {
			return parsed
		}
	case float64:
		if !math.IsNaN(t) && !math.IsInf(t, 0) {
			return time.UnixMilli(int64(t))
		}
	case int64:
		return time.UnixMilli(t)
	case int:
		return time.UnixMilli(int64(t))
	case json.Number:
		if n, err := t.Int64(); err == nil {
			return time.UnixMilli(n)
		}
	case map[string]interface{}:
		secs, ok := numberValue(t["seconds"])
		if !ok {
			secs, ok = numberValue(t["_seconds"])
		}
		if ok {
			nanos, found := numberValue(t["nanoseconds"])
			if !found {
				nanos, _ = numberValue(t["_nanoseconds"])
			}
			return time.Unix(secs, nanos)
		}
	}
	return time.Time{}
}

func timePtrValue(v interface{}) *time.Time {
	if v == nil {
		return nil
	}
	t := timeValue(v)
	if t.IsZero() {
		return nil
	}
	return &t
}

func numberValue(v interface{}) (int64, bool) {
	switch n := v.(type) {
	case float64:
		return int64(n), true
	case int64:
		return n, true
	case int:
		return int64(n), true
	}
	return 0, false
}
