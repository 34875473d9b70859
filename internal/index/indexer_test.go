package index

import (
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ewhitmore/sessionlens/internal/measure"
	"github.com/ewhitmore/sessionlens/internal/model"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func mkMsg(tool model.Tool, sid string, ts time.Time, typ model.MsgType, size int) model.Message {
	return model.Message{
		Tool:      tool,
		SessionID: sid,
		Timestamp: ts,
		Type:      typ,
		Size:      size,
	}
}

func fixedScanner(msgs []model.Message, calls *atomic.Int32) scanFunc {
	return func(root string, opts model.ScanOptions, logger *slog.Logger) ([]model.Message, error) {
		if calls != nil {
			calls.Add(1)
		}
		return msgs, nil
	}
}

func testOpts() model.ScanOptions {
	return model.ScanOptions{ClaudeRoot: "/a", OpenCodeRoot: "/b", SizeMode: measure.ModeChars}
}

func TestBuildGroupsAndBuckets(t *testing.T) {
	d1 := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	d2 := time.Date(2024, 3, 2, 14, 0, 0, 0, time.UTC)

	claudeMsgs := []model.Message{
		mkMsg(model.ToolClaude, "s1", d1.Add(time.Minute), model.MsgAssistant, 10),
		mkMsg(model.ToolClaude, "s1", d1, model.MsgUser, 5),
		mkMsg(model.ToolClaude, "s2", d2, model.MsgUser, 7),
	}
	opencodeMsgs := []model.Message{
		mkMsg(model.ToolOpenCode, "s1", d1.Add(2*time.Minute), model.MsgUser, 3),
	}

	ix := New(discardLogger())
	ix.scanClaude = fixedScanner(claudeMsgs, nil)
	ix.scanOpenCode = fixedScanner(opencodeMsgs, nil)

	idx := ix.Build(testOpts())

	if got := idx.SessionCount(); got != 3 {
		t.Fatalf("SessionCount = %d, want 3 (same id, different tools stay separate)", got)
	}

	dates := idx.Dates()
	if len(dates) != 2 || dates[0] != "2024-03-01" || dates[1] != "2024-03-02" {
		t.Fatalf("Dates = %v", dates)
	}

	s := idx.Lookup("claude:s1")
	if s == nil {
		t.Fatal("claude:s1 not found")
	}
	if len(s.Messages) != 2 {
		t.Fatalf("claude:s1 has %d messages", len(s.Messages))
	}
	// messages sorted ascending inside the session
	if !s.Messages[0].Timestamp.Equal(d1) {
		t.Errorf("first message at %v, want %v", s.Messages[0].Timestamp, d1)
	}
	if !s.StartedAt.Equal(d1) || !s.EndedAt.Equal(d1.Add(time.Minute)) {
		t.Errorf("StartedAt/EndedAt = %v/%v", s.StartedAt, s.EndedAt)
	}

	// bucket order ascending by StartedAt
	day1 := idx.Days["2024-03-01"]
	if len(day1) != 2 {
		t.Fatalf("day1 has %d sessions", len(day1))
	}
	if !day1[0].StartedAt.Before(day1[1].StartedAt) {
		t.Error("day bucket not sorted by StartedAt")
	}
}

func TestBuildCachesUntilCleared(t *testing.T) {
	var calls atomic.Int32
	ix := New(discardLogger())
	ix.scanClaude = fixedScanner(nil, &calls)
	ix.scanOpenCode = fixedScanner(nil, &calls)

	opts := testOpts()
	first := ix.Build(opts)
	second := ix.Build(opts)

	if got := calls.Load(); got != 2 {
		t.Fatalf("scanners called %d times, want 2 (one per source, second build cached)", got)
	}
	if first != second {
		t.Error("cached build returned a different index")
	}

	// different options miss the cache
	opts.SizeMode = measure.ModeTokens
	ix.Build(opts)
	if got := calls.Load(); got != 4 {
		t.Fatalf("scanners called %d times after differing options, want 4", got)
	}

	ix.ClearCache()
	ix.Build(opts)
	if got := calls.Load(); got != 6 {
		t.Fatalf("scanners called %d times after ClearCache, want 6", got)
	}
}

func TestBuildIsolatesScannerFailure(t *testing.T) {
	d := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	good := []model.Message{mkMsg(model.ToolClaude, "s1", d, model.MsgUser, 5)}

	ix := New(discardLogger())
	ix.scanClaude = fixedScanner(good, nil)
	ix.scanOpenCode = func(root string, opts model.ScanOptions, logger *slog.Logger) ([]model.Message, error) {
		return nil, errors.New("disk on fire")
	}

	idx := ix.Build(testOpts())
	if got := idx.SessionCount(); got != 1 {
		t.Fatalf("SessionCount = %d, want 1 (failed source contributes nothing)", got)
	}
}

func TestBuildIsolatesScannerPanic(t *testing.T) {
	d := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	good := []model.Message{mkMsg(model.ToolOpenCode, "s1", d, model.MsgUser, 5)}

	ix := New(discardLogger())
	ix.scanClaude = func(root string, opts model.ScanOptions, logger *slog.Logger) ([]model.Message, error) {
		panic("boom")
	}
	ix.scanOpenCode = fixedScanner(good, nil)

	idx := ix.Build(testOpts())
	if got := idx.SessionCount(); got != 1 {
		t.Fatalf("SessionCount = %d, want 1 (panicking source contributes nothing)", got)
	}
}

func TestFingerprintStableAcrossRebuilds(t *testing.T) {
	d := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	msgs := []model.Message{
		mkMsg(model.ToolClaude, "s1", d, model.MsgUser, 5),
		mkMsg(model.ToolClaude, "s1", d.Add(time.Minute), model.MsgAssistant, 8),
	}

	build := func() *model.Index {
		ix := New(discardLogger())
		ix.scanClaude = fixedScanner(msgs, nil)
		ix.scanOpenCode = fixedScanner(nil, nil)
		return ix.Build(testOpts())
	}

	a, b := build(), build()
	if a.Fingerprint == "" {
		t.Fatal("empty fingerprint")
	}
	if a.Fingerprint != b.Fingerprint {
		t.Error("same input produced different fingerprints")
	}

	changed := append([]model.Message{}, msgs...)
	changed[1].Size = 9
	ix := New(discardLogger())
	ix.scanClaude = fixedScanner(changed, nil)
	ix.scanOpenCode = fixedScanner(nil, nil)
	c := ix.Build(testOpts())
	if c.Fingerprint == a.Fingerprint {
		t.Error("changed input kept the same fingerprint")
	}
}
