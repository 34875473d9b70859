package measure

import "testing"

func TestParseMode(t *testing.T) {
	tests := []struct {
		input   string
		want    Mode
		wantErr bool
	}{
		{"chars", ModeChars, false},
		{"bytes", ModeBytes, false},
		{"tokens", ModeTokens, false},
		{"", ModeChars, false},
		{"words", "", true},
		{"CHARS", "", true},
	}

	for _, tt := range tests {
		got, err := ParseMode(tt.input)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ParseMode(%q) expected error, got %q", tt.input, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseMode(%q) error: %v", tt.input, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseMode(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestCount(t *testing.T) {
	tests := []struct {
		mode Mode
		s    string
		want int
	}{
		{ModeChars, "", 0},
		{ModeChars, "hello", 5},
		{ModeChars, "héllo", 5},
		{ModeChars, "日本語", 3},
		{ModeBytes, "hello", 5},
		{ModeBytes, "héllo", 6},
		{ModeBytes, "日本語", 9},
		{ModeTokens, "", 0},
		{ModeTokens, "abc", 1},
		{ModeTokens, "abcd", 1},
		{ModeTokens, "abcde", 2},
		{ModeTokens, "12345678", 2},
		{ModeTokens, "日本語語語", 2},
	}

	for _, tt := range tests {
		got := Count(tt.mode, tt.s)
		if got != tt.want {
			t.Errorf("Count(%q, %q) = %d, want %d", tt.mode, tt.s, got, tt.want)
		}
	}
}

func TestAtLeastOne(t *testing.T) {
	tests := []struct {
		input int
		want  int
	}{
		{-5, 1},
		{0, 1},
		{1, 1},
		{42, 42},
	}

	for _, tt := range tests {
		if got := AtLeastOne(tt.input); got != tt.want {
			t.Errorf("AtLeastOne(%d) = %d, want %d", tt.input, got, tt.want)
		}
	}
}
