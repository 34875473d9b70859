package model

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/ewhitmore/sessionlens/internal/measure"
)

// Tool identifies the assistant that produced a log file.
type Tool string

const (
	ToolClaude   Tool = "claude"
	ToolOpenCode Tool = "opencode"
)

// MsgType is the normalized message taxonomy. Every retained record is
// assigned exactly one of these; records the classifier cannot place
// default to MsgAssistant.
type MsgType string

const (
	MsgUser       MsgType = "user"
	MsgAssistant  MsgType = "assistant"
	MsgToolCall   MsgType = "tool_call"
	MsgToolResult MsgType = "tool_result"
)

// RawPayload retains the source-shaped documents a Message was built from,
// tagged by origin so the exporter can pattern-match instead of re-deriving
// shape. Exactly one side is populated.
type RawPayload struct {
	Claude   json.RawMessage // original stream record, Tool == ToolClaude
	OpenCode *OpenCodeRaw    // original structured docs, Tool == ToolOpenCode
}

// OpenCodeRaw carries the message document plus the part documents that
// contributed to one normalized Message.
type OpenCodeRaw struct {
	Message json.RawMessage
	Parts   []json.RawMessage
}

// Message is one normalized conversational turn or tool event. Immutable
// once constructed.
type Message struct {
	Tool           Tool
	SessionID      string
	ProjectDisplay string
	ProjectPath    string
	Timestamp      time.Time // event time, used for ordering and bucketing
	FileModifiedAt time.Time // mtime of the contributing file
	SourcePath     string    // file the message was parsed from
	Role           string    // "user" or "assistant", may be empty
	Type           MsgType
	Size           int // always >= 1
	Content        string
	Raw            RawPayload
}

// Session aggregates all messages sharing one (tool, session id) pair.
type Session struct {
	Tool             Tool
	SessionID        string
	ProjectDisplay   string
	ProjectPath      string
	StartedAt        time.Time
	EndedAt          time.Time
	FileLastModified time.Time
	Messages         []Message
}

// Key returns the grouping key shared by all messages of this session.
func (s *Session) Key() string {
	return string(s.Tool) + ":" + s.SessionID
}

// TotalSize sums the computed sizes of all member messages.
func (s *Session) TotalSize() int {
	total := 0
	for _, m := range s.Messages {
		total += m.Size
	}
	return total
}

// FirstUserContent returns the content of the earliest user message,
// used as a session summary line.
func (s *Session) FirstUserContent() string {
	for _, m := range s.Messages {
		if m.Type == MsgUser {
			return m.Content
		}
	}
	if len(s.Messages) > 0 {
		return s.Messages[0].Content
	}
	return ""
}

// DeleteMessage removes the message at index i from the in-memory view.
// This is a UI-local mutation; nothing is written back to source files.
// Session times are re-derived so invariants hold for the remaining
// messages. Deleting the last message leaves an empty session the caller
// is expected to drop.
func (s *Session) DeleteMessage(i int) {
	if i < 0 || i >= len(s.Messages) {
		return
	}
	s.Messages = append(s.Messages[:i], s.Messages[i+1:]...)
	if len(s.Messages) == 0 {
		return
	}
	s.StartedAt = s.Messages[0].Timestamp
	s.EndedAt = s.Messages[len(s.Messages)-1].Timestamp
}

// DateKey is the bucket key format for Index, the calendar date of a
// session's start time.
const DateKey = "2006-01-02"

// Index maps date keys (YYYY-MM-DD, from Session.StartedAt) to sessions
// starting on that date, each bucket ascending by StartedAt.
type Index struct {
	Days        map[string][]*Session
	Fingerprint string
	BuiltAt     time.Time
}

// Dates returns the bucket keys in ascending order.
func (ix *Index) Dates() []string {
	dates := make([]string, 0, len(ix.Days))
	for d := range ix.Days {
		dates = append(dates, d)
	}
	sort.Strings(dates)
	return dates
}

// Sessions returns every session across all buckets, ascending by date
// then start time.
func (ix *Index) Sessions() []*Session {
	var out []*Session
	for _, d := range ix.Dates() {
		out = append(out, ix.Days[d]...)
	}
	return out
}

// SessionCount returns the number of sessions across all buckets.
func (ix *Index) SessionCount() int {
	n := 0
	for _, bucket := range ix.Days {
		n += len(bucket)
	}
	return n
}

// Lookup finds a session by its grouping key.
func (ix *Index) Lookup(key string) *Session {
	for _, bucket := range ix.Days {
		for _, s := range bucket {
			if s.Key() == key {
				return s
			}
		}
	}
	return nil
}

// ScanOptions configures one index build.
type ScanOptions struct {
	ClaudeRoot   string
	OpenCodeRoot string
	SizeMode     measure.Mode
	Since        time.Time // zero = no lower bound
}

// CacheKey derives the cache key for these options. Since is folded in as
// epoch seconds with -1 as the no-filter sentinel.
func (o ScanOptions) CacheKey() string {
	since := int64(-1)
	if !o.Since.IsZero() {
		since = o.Since.Unix()
	}
	return fmt.Sprintf("%s|%s|%s|%d", o.ClaudeRoot, o.OpenCodeRoot, o.SizeMode, since)
}
