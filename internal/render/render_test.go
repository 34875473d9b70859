package render

import (
	"strings"
	"testing"
	"time"

	"github.com/ewhitmore/sessionlens/internal/model"
)

func TestWrapLine(t *testing.T) {
	tests := []struct {
		name  string
		line  string
		width int
		want  int // lines
	}{
		{"no wrap", "hello", 10, 1},
		{"exact fit", "hello", 5, 1},
		{"wraps", "hello world", 5, 3},
		{"zero width passthrough", strings.Repeat("x", 100), 0, 1},
		{"wide runes", "日本語日本語", 4, 3},
		{"empty", "", 10, 1},
	}

	for _, tt := range tests {
		got := wrapLine(tt.line, tt.width)
		if len(got) != tt.want {
			t.Errorf("%s: wrapLine(%q, %d) = %d lines %q, want %d", tt.name, tt.line, tt.width, len(got), got, tt.want)
		}
	}
}

func TestWrapLineSkipsANSI(t *testing.T) {
	// escape codes carry no visible width
	line := "\033[1;34mhello\033[0m"
	got := wrapLine(line, 5)
	if len(got) != 1 {
		t.Errorf("wrapLine with ANSI = %d lines, want 1", len(got))
	}
}

func TestHighlightKeywords(t *testing.T) {
	got := highlightKeywords("fix the Login bug", "login")
	if !strings.Contains(got, colorBoldRed+"Login"+colorReset) {
		t.Errorf("highlightKeywords = %q, original case not preserved", got)
	}

	// FTS operators are not treated as keywords
	got = highlightKeywords("a AND b", "AND")
	if strings.Contains(got, colorBoldRed) {
		t.Errorf("highlightKeywords highlighted an operator: %q", got)
	}

	if got := highlightKeywords("text", ""); got != "text" {
		t.Errorf("empty query altered text: %q", got)
	}
}

func TestRenderSession(t *testing.T) {
	d := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	s := &model.Session{
		Tool: model.ToolClaude, SessionID: "s1",
		ProjectDisplay: "/proj/web",
		Messages: []model.Message{
			{Type: model.MsgUser, Role: "user", Content: "question", Timestamp: d},
			{Type: model.MsgAssistant, Role: "assistant", Content: "answer", Timestamp: d.Add(time.Minute)},
			{Type: model.MsgToolCall, Role: "assistant", Content: "bash ls", Timestamp: d.Add(2 * time.Minute)},
		},
	}

	out, hitLine := RenderSession(s, Options{HitMsgID: -1})
	if hitLine != -1 {
		t.Errorf("hitLine = %d, want -1", hitLine)
	}
	for _, want := range []string{"claude:s1", "USER", "ASST", "CALL", "question", "answer"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q", want)
		}
	}

	out, hitLine = RenderSession(s, Options{HitMsgID: 1, Context: -1})
	if hitLine < 0 {
		t.Error("expected a hit line for a valid HitMsgID")
	}
	if !strings.Contains(out, colorHit) {
		t.Error("hit message not marked")
	}
}

func TestRenderSessionEmpty(t *testing.T) {
	s := &model.Session{Tool: model.ToolClaude, SessionID: "s1"}
	out, hitLine := RenderSession(s, Options{})
	if out != "(empty session)" || hitLine != -1 {
		t.Errorf("RenderSession(empty) = %q, %d", out, hitLine)
	}
}

func TestSizeBar(t *testing.T) {
	tests := []struct {
		size, max, width int
		want             string
	}{
		{0, 100, 4, "░░░░"},
		{100, 100, 4, "████"},
		{50, 100, 4, "██░░"},
		{1, 1000, 4, "█░░░"}, // nonzero always shows at least one cell
		{10, 0, 4, ""},
	}

	for _, tt := range tests {
		if got := SizeBar(tt.size, tt.max, tt.width); got != tt.want {
			t.Errorf("SizeBar(%d, %d, %d) = %q, want %q", tt.size, tt.max, tt.width, got, tt.want)
		}
	}
}
