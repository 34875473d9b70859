package parse

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ewhitmore/sessionlens/internal/measure"
	"github.com/ewhitmore/sessionlens/internal/model"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func charOpts() model.ScanOptions {
	return model.ScanOptions{SizeMode: measure.ModeChars}
}

func TestScanClaudeStream(t *testing.T) {
	root := t.TempDir()
	log := `{"sessionId":"s1","type":"user","timestamp":"2024-03-15T10:00:00Z","cwd":"/home/anna/web","message":{"role":"user","content":"hello there"}}
{"sessionId":"s1","type":"assistant","timestamp":"2024-03-15T10:00:05Z","message":{"role":"assistant","content":[{"type":"text","text":"hi"}]}}
{"sessionId":"s1","type":"assistant","timestamp":"2024-03-15T10:00:10Z","message":{"role":"assistant","content":[{"type":"tool_use","name":"bash","input":{"cmd":"ls"}}]}}
{"sessionId":"s1","type":"user","timestamp":"2024-03-15T10:00:15Z","message":{"role":"user","content":[{"type":"tool_result","tool_use_id":"t1","content":"file.txt"}]}}
`
	writeFile(t, root, "proj/s1.jsonl", log)

	msgs, err := ScanClaude(root, charOpts(), discardLogger())
	if err != nil {
		t.Fatalf("ScanClaude: %v", err)
	}
	if len(msgs) != 4 {
		t.Fatalf("got %d messages, want 4", len(msgs))
	}

	wantTypes := []model.MsgType{model.MsgUser, model.MsgAssistant, model.MsgToolCall, model.MsgToolResult}
	for i, want := range wantTypes {
		if msgs[i].Type != want {
			t.Errorf("msg %d: Type = %q, want %q", i, msgs[i].Type, want)
		}
	}

	m := msgs[0]
	if m.Tool != model.ToolClaude {
		t.Errorf("Tool = %q", m.Tool)
	}
	if m.SessionID != "s1" {
		t.Errorf("SessionID = %q", m.SessionID)
	}
	if m.ProjectDisplay != "/home/anna/web" {
		t.Errorf("ProjectDisplay = %q", m.ProjectDisplay)
	}
	if m.Content != "hello there" {
		t.Errorf("Content = %q", m.Content)
	}
	if m.Size != len("hello there") {
		t.Errorf("Size = %d, want %d", m.Size, len("hello there"))
	}
	want := time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)
	if !m.Timestamp.Equal(want) {
		t.Errorf("Timestamp = %v, want %v", m.Timestamp, want)
	}
	if m.Raw.Claude == nil {
		t.Error("Raw.Claude not retained")
	}
}

func TestScanClaudeUnknownTypeFallsBackToAssistant(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "p/a.jsonl",
		`{"sessionId":"s1","type":"summary","timestamp":"2024-03-15T10:00:00Z","message":{"role":"","content":"a summary"}}`+"\n")

	msgs, err := ScanClaude(root, charOpts(), discardLogger())
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 1 {
		t.Fatalf("got %d messages, want 1", len(msgs))
	}
	if msgs[0].Type != model.MsgAssistant {
		t.Errorf("Type = %q, want assistant fallback", msgs[0].Type)
	}
}

func TestScanClaudeSessionIDFallbacks(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "myproj/a.jsonl",
		`{"requestId":"req-1","type":"user","timestamp":"2024-03-15T10:00:00Z","message":{"role":"user","content":"x"}}
{"type":"user","timestamp":"2024-03-15T10:30:00Z","message":{"role":"user","content":"y"}}
`)

	msgs, err := ScanClaude(root, charOpts(), discardLogger())
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 2 {
		t.Fatalf("got %d messages, want 2", len(msgs))
	}
	if msgs[0].SessionID != "req-1" {
		t.Errorf("SessionID = %q, want requestId fallback", msgs[0].SessionID)
	}
	// hour bucket + containing directory
	if msgs[1].SessionID != "2024-03-15T10-myproj" {
		t.Errorf("SessionID = %q, want derived id", msgs[1].SessionID)
	}
}

func TestScanClaudeProjectDirDecoding(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "-Users-anna-src-web/a.jsonl",
		`{"sessionId":"s1","type":"user","timestamp":"2024-03-15T10:00:00Z","message":{"role":"user","content":"x"}}`+"\n")

	msgs, err := ScanClaude(root, charOpts(), discardLogger())
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 1 {
		t.Fatal("no messages")
	}
	if msgs[0].ProjectDisplay != "/Users/anna/src/web" {
		t.Errorf("ProjectDisplay = %q", msgs[0].ProjectDisplay)
	}
	if msgs[0].ProjectPath != "/Users/anna/src/web" {
		t.Errorf("ProjectPath = %q", msgs[0].ProjectPath)
	}
}

func TestScanClaudeSinceFilter(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "p/a.jsonl",
		`{"sessionId":"s1","type":"user","timestamp":"2024-03-01T10:00:00Z","message":{"role":"user","content":"old"}}
{"sessionId":"s1","type":"user","timestamp":"2024-03-20T10:00:00Z","message":{"role":"user","content":"new"}}
`)

	opts := charOpts()
	opts.Since = time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)
	msgs, err := ScanClaude(root, opts, discardLogger())
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 1 {
		t.Fatalf("got %d messages, want 1", len(msgs))
	}
	if msgs[0].Content != "new" {
		t.Errorf("Content = %q, want the recent record", msgs[0].Content)
	}
}

func TestScanClaudeJSONArrayDocument(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "p/doc.json",
		`[
  {"sessionId":"s1","type":"user","timestamp":"2024-03-15T10:00:00Z","message":{"role":"user","content":"a"}},
  {"sessionId":"s1","type":"assistant","timestamp":"2024-03-15T10:00:01Z","message":{"role":"assistant","content":"b"}}
]`)

	msgs, err := ScanClaude(root, charOpts(), discardLogger())
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 2 {
		t.Fatalf("got %d messages, want 2", len(msgs))
	}
}

func TestScanClaudeLineDelimitedJSONExtension(t *testing.T) {
	// a .json file that is actually NDJSON should be detected by sampling
	root := t.TempDir()
	writeFile(t, root, "p/log.json",
		`{"sessionId":"s1","type":"user","timestamp":"2024-03-15T10:00:00Z","message":{"role":"user","content":"a"}}
{"sessionId":"s1","type":"user","timestamp":"2024-03-15T10:00:01Z","message":{"role":"user","content":"b"}}
{"sessionId":"s1","type":"user","timestamp":"2024-03-15T10:00:02Z","message":{"role":"user","content":"c"}}
`)

	msgs, err := ScanClaude(root, charOpts(), discardLogger())
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 3 {
		t.Fatalf("got %d messages, want 3", len(msgs))
	}
}

func TestScanClaudeSkipsMalformedLines(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "p/a.jsonl",
		`{"sessionId":"s1","type":"user","timestamp":"2024-03-15T10:00:00Z","message":{"role":"user","content":"ok"}}
this is not json at all
{"sessionId":"s1","type":"user","timestamp":"2024-03-15T10:00:02Z","message":{"role":"user","content":"also ok"}}
`)

	msgs, err := ScanClaude(root, charOpts(), discardLogger())
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 2 {
		t.Fatalf("got %d messages, want 2 (malformed line skipped)", len(msgs))
	}
}

func TestScanClaudeNoTimestampNoID(t *testing.T) {
	// a record with neither a timestamp nor any identifier still survives,
	// with the file mtime as its event time and a derived session id
	root := t.TempDir()
	writeFile(t, root, "proj/a.jsonl",
		`{"type":"user","message":{"role":"user","content":"orphan"}}`+"\n")

	msgs, err := ScanClaude(root, charOpts(), discardLogger())
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 1 {
		t.Fatalf("got %d messages, want 1", len(msgs))
	}
	m := msgs[0]
	if m.Timestamp.IsZero() {
		t.Error("Timestamp is zero, want mtime fallback")
	}
	if !m.Timestamp.Equal(m.FileModifiedAt) {
		t.Errorf("Timestamp = %v, want mtime %v", m.Timestamp, m.FileModifiedAt)
	}
	if m.SessionID == "" {
		t.Error("SessionID empty, want derived id")
	}
}

func TestScanClaudeMissingRoot(t *testing.T) {
	msgs, err := ScanClaude(filepath.Join(t.TempDir(), "nope"), charOpts(), discardLogger())
	if err != nil {
		t.Fatalf("missing root should not error: %v", err)
	}
	if msgs != nil {
		t.Errorf("got %d messages, want none", len(msgs))
	}
}

func TestScanClaudeMinimumSize(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "p/a.jsonl",
		`{"sessionId":"s1","type":"user","timestamp":"2024-03-15T10:00:00Z","message":{"role":"user","content":""}}`+"\n")

	msgs, err := ScanClaude(root, charOpts(), discardLogger())
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 1 {
		t.Fatal("no messages")
	}
	if msgs[0].Size != 1 {
		t.Errorf("Size = %d, want floor of 1", msgs[0].Size)
	}
}
