package parse

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// layouts tried in order for string timestamps, after RFC3339 variants.
var timeLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// NormalizeTime converts a heterogeneous timestamp value to a usable
// instant. It tries structured parsing first, then general-purpose string
// parsing, then the supplied fallback (normally the file's mtime), then
// "now". It never fails.
func NormalizeTime(v any, fallback time.Time) time.Time {
	if t, ok := coerceTime(v); ok {
		return t
	}
	if !fallback.IsZero() {
		return fallback
	}
	return time.Now()
}

func coerceTime(v any) (time.Time, bool) {
	switch tv := v.(type) {
	case nil:
		return time.Time{}, false
	case time.Time:
		if tv.IsZero() {
			return time.Time{}, false
		}
		return tv, true
	case float64:
		return epochTime(int64(tv))
	case int64:
		return epochTime(tv)
	case int:
		return epochTime(int64(tv))
	case json.Number:
		if n, err := tv.Int64(); err == nil {
			return epochTime(n)
		}
		if f, err := tv.Float64(); err == nil {
			return epochTime(int64(f))
		}
		return time.Time{}, false
	case string:
		return parseTimeString(tv)
	}
	return time.Time{}, false
}

// epochTime interprets a numeric epoch. Values above 1e12 are taken as
// milliseconds, everything else as seconds.
func epochTime(n int64) (time.Time, bool) {
	if n <= 0 {
		return time.Time{}, false
	}
	if n > 1_000_000_000_000 {
		return time.UnixMilli(n), true
	}
	return time.Unix(n, 0), true
}

func parseTimeString(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, true
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, true
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	// epoch written as a string
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return epochTime(n)
	}
	return time.Time{}, false
}
