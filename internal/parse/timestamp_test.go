package parse

import (
	"testing"
	"time"
)

func TestNormalizeTimeStrings(t *testing.T) {
	fallback := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name  string
		input string
		want  time.Time
	}{
		{"rfc3339", "2024-03-15T10:30:00Z", time.Date(2024, 3, 15, 10, 30, 0, 0, time.UTC)},
		{"rfc3339 offset", "2024-03-15T10:30:00+02:00", time.Date(2024, 3, 15, 10, 30, 0, 0, time.FixedZone("", 2*3600))},
		{"no zone", "2024-03-15T10:30:00", time.Date(2024, 3, 15, 10, 30, 0, 0, time.UTC)},
		{"space separator", "2024-03-15 10:30:00", time.Date(2024, 3, 15, 10, 30, 0, 0, time.UTC)},
		{"date only", "2024-03-15", time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)},
		{"epoch seconds string", "1710498600", time.Unix(1710498600, 0)},
		{"garbage", "not a time", fallback},
		{"empty", "", fallback},
	}

	for _, tt := range tests {
		got := NormalizeTime(tt.input, fallback)
		if !got.Equal(tt.want) {
			t.Errorf("%s: NormalizeTime(%q) = %v, want %v", tt.name, tt.input, got, tt.want)
		}
	}
}

func TestNormalizeTimeNumbers(t *testing.T) {
	fallback := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name  string
		input any
		want  time.Time
	}{
		{"epoch seconds", float64(1710498600), time.Unix(1710498600, 0)},
		{"epoch millis", float64(1710498600123), time.UnixMilli(1710498600123)},
		{"int64 seconds", int64(1710498600), time.Unix(1710498600, 0)},
		{"zero", float64(0), fallback},
		{"negative", float64(-5), fallback},
		{"nil", nil, fallback},
	}

	for _, tt := range tests {
		got := NormalizeTime(tt.input, fallback)
		if !got.Equal(tt.want) {
			t.Errorf("%s: NormalizeTime(%v) = %v, want %v", tt.name, tt.input, got, tt.want)
		}
	}
}

func TestNormalizeTimeFallbackChain(t *testing.T) {
	// usable fallback wins over "now"
	fallback := time.Date(2023, 1, 2, 3, 4, 5, 0, time.UTC)
	if got := NormalizeTime(nil, fallback); !got.Equal(fallback) {
		t.Errorf("NormalizeTime(nil, fallback) = %v, want fallback %v", got, fallback)
	}

	// zero fallback degrades to now
	before := time.Now()
	got := NormalizeTime(nil, time.Time{})
	after := time.Now()
	if got.Before(before) || got.After(after) {
		t.Errorf("NormalizeTime(nil, zero) = %v, want within [%v, %v]", got, before, after)
	}
}
