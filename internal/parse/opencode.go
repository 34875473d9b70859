package parse

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/ewhitmore/sessionlens/internal/measure"
	"github.com/ewhitmore/sessionlens/internal/model"
)

// Fixed path patterns of the structured format. Session, message and part
// ids are recovered from the path segments.
var (
	ocInfoRe = regexp.MustCompile(`session[/\\]info[/\\]([^/\\]+)\.json$`)
	ocMsgRe  = regexp.MustCompile(`session[/\\]message[/\\]([^/\\]+)[/\\]([^/\\]+)\.json$`)
	ocPartRe = regexp.MustCompile(`session[/\\]part[/\\]([^/\\]+)[/\\]([^/\\]+)[/\\]([^/\\]+)\.json$`)
)

type opencodeSessionInfo struct {
	Cwd       string `json:"cwd"`
	Workspace string `json:"workspace"`
	Created   any    `json:"created"`
	CreatedAt any    `json:"createdAt"`
	Updated   any    `json:"updated"`
	UpdatedAt any    `json:"updatedAt"`
}

type opencodeMessage struct {
	ID   string `json:"id"`
	Role string `json:"role"`
	Time struct {
		Created any `json:"created"`
	} `json:"time"`
}

type opencodeTime struct {
	Start   any `json:"start"`
	End     any `json:"end"`
	Created any `json:"created"`
}

type opencodeState struct {
	Status string          `json:"status"`
	Input  json.RawMessage `json:"input"`
	Output json.RawMessage `json:"output"`
	Time   opencodeTime    `json:"time"`
}

type opencodePart struct {
	MessageID string         `json:"messageID"`
	Type      string         `json:"type"`
	Text      string         `json:"text"`
	Reasoning string         `json:"reasoning"`
	Tool      string         `json:"tool"`
	CallID    string         `json:"callID"`
	State     *opencodeState `json:"state"`
	Time      opencodeTime   `json:"time"`
}

type ocMsgFile struct {
	sid   string
	mid   string
	path  string
	mtime time.Time
}

type ocPartFile struct {
	pid   string
	mtime time.Time
	raw   json.RawMessage
	part  opencodePart
}

// ScanOpenCode walks the structured-format root, pairs message files with
// their part files, and expands each logical turn into normalized
// messages. Parse and I/O failures are logged per file and never abort
// the scan.
func ScanOpenCode(root string, opts model.ScanOptions, logger *slog.Logger) ([]model.Message, error) {
	if root == "" {
		return nil, nil
	}
	if _, err := os.Stat(root); os.IsNotExist(err) {
		return nil, nil
	}

	infos := make(map[string]opencodeSessionInfo)
	var msgFiles []ocMsgFile
	partsByMsg := make(map[string][]ocPartFile)

	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		if info.IsDir() || filepath.Ext(path) != ".json" {
			return nil
		}

		if m := ocInfoRe.FindStringSubmatch(path); m != nil {
			var si opencodeSessionInfo
			if readJSONFile(path, &si, logger) {
				infos[m[1]] = si
			}
			return nil
		}
		if m := ocMsgRe.FindStringSubmatch(path); m != nil {
			msgFiles = append(msgFiles, ocMsgFile{sid: m[1], mid: m[2], path: path, mtime: info.ModTime()})
			return nil
		}
		if m := ocPartRe.FindStringSubmatch(path); m != nil {
			raw, err := os.ReadFile(path)
			if err != nil {
				logger.Warn("skip unreadable part", "path", path, "err", err)
				return nil
			}
			var part opencodePart
			if err := json.Unmarshal(raw, &part); err != nil {
				logger.Warn("skip unparsable part", "path", path, "err", err)
				return nil
			}
			owner := part.MessageID
			if owner == "" {
				owner = m[2]
			}
			partsByMsg[owner] = append(partsByMsg[owner], ocPartFile{
				pid:   m[3],
				mtime: info.ModTime(),
				raw:   raw,
				part:  part,
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	// deterministic part order within equal timestamps
	for _, parts := range partsByMsg {
		sort.Slice(parts, func(i, j int) bool { return parts[i].pid < parts[j].pid })
	}
	sort.Slice(msgFiles, func(i, j int) bool { return msgFiles[i].mid < msgFiles[j].mid })

	var msgs []model.Message
	for _, mf := range msgFiles {
		msgs = append(msgs, expandOpenCodeMessage(mf, infos[mf.sid], partsByMsg, opts, logger)...)
	}

	if !opts.Since.IsZero() {
		kept := msgs[:0]
		for _, m := range msgs {
			if !m.Timestamp.Before(opts.Since) {
				kept = append(kept, m)
			}
		}
		msgs = kept
	}
	return msgs, nil
}

// expandOpenCodeMessage turns one message file plus its parts into zero or
// more normalized messages, depending on role.
func expandOpenCodeMessage(mf ocMsgFile, info opencodeSessionInfo, partsByMsg map[string][]ocPartFile, opts model.ScanOptions, logger *slog.Logger) []model.Message {
	rawMsg, err := os.ReadFile(mf.path)
	if err != nil {
		logger.Warn("skip unreadable message", "path", mf.path, "err", err)
		return nil
	}
	var msg opencodeMessage
	if err := json.Unmarshal(rawMsg, &msg); err != nil {
		logger.Warn("skip unparsable message", "path", mf.path, "err", err)
		return nil
	}

	mid := msg.ID
	if mid == "" {
		mid = mf.mid
	}
	parts := partsByMsg[mid]

	// latest touch across the message file and all its parts
	modifiedAt := mf.mtime
	for _, pf := range parts {
		if pf.mtime.After(modifiedAt) {
			modifiedAt = pf.mtime
		}
	}

	base := model.Message{
		Tool:           model.ToolOpenCode,
		SessionID:      mf.sid,
		FileModifiedAt: modifiedAt,
		SourcePath:     mf.path,
	}
	base.ProjectDisplay, base.ProjectPath = opencodeProject(info)

	declaredTime := NormalizeTime(msg.Time.Created, modifiedAt)

	switch msg.Role {
	case "user":
		return []model.Message{opencodeUserMessage(base, rawMsg, parts, declaredTime, opts)}
	case "assistant":
		return opencodeAssistantMessages(base, rawMsg, parts, declaredTime, opts)
	default:
		return nil
	}
}

// opencodeUserMessage collapses a user turn into a single message whose
// event time is the earliest of its parts' start/created times, falling
// back to the message's own declared time.
func opencodeUserMessage(base model.Message, rawMsg json.RawMessage, parts []ocPartFile, declared time.Time, opts model.ScanOptions) model.Message {
	ts := declared
	var earliest int64
	for _, pf := range parts {
		if ms := partEpochMs(pf.part); ms > 0 && (earliest == 0 || ms < earliest) {
			earliest = ms
		}
	}
	if earliest > 0 {
		ts = time.UnixMilli(earliest)
	}

	var pieces []string
	size := 0
	rawParts := make([]json.RawMessage, 0, len(parts))
	for _, pf := range parts {
		rawParts = append(rawParts, pf.raw)
		if text := partText(pf.part); text != "" {
			pieces = append(pieces, text)
			size += measure.Count(opts.SizeMode, text)
		}
	}

	m := base
	m.Timestamp = ts
	m.Role = "user"
	m.Type = model.MsgUser
	m.Content = strings.Join(pieces, "\n")
	m.Size = measure.AtLeastOne(size)
	m.Raw = model.RawPayload{OpenCode: &model.OpenCodeRaw{Message: rawMsg, Parts: rawParts}}
	return m
}

// opencodeAssistantMessages expands an assistant turn part by part: text
// and reasoning parts each become their own message, completed tool parts
// become a synthetic call/result pair, anything else is dropped.
func opencodeAssistantMessages(base model.Message, rawMsg json.RawMessage, parts []ocPartFile, declared time.Time, opts model.ScanOptions) []model.Message {
	filtered := make([]ocPartFile, 0, len(parts))
	for _, pf := range parts {
		switch pf.part.Type {
		case "text", "tool", "reasoning":
			filtered = append(filtered, pf)
		}
	}
	sort.SliceStable(filtered, func(i, j int) bool {
		return partEpochMs(filtered[i].part) < partEpochMs(filtered[j].part)
	})

	var out []model.Message
	for _, pf := range filtered {
		p := pf.part
		partTime := declared
		if ms := partEpochMs(p); ms > 0 {
			partTime = time.UnixMilli(ms)
		}
		raw := model.RawPayload{OpenCode: &model.OpenCodeRaw{Message: rawMsg, Parts: []json.RawMessage{pf.raw}}}

		switch p.Type {
		case "text", "reasoning":
			m := base
			m.Timestamp = partTime
			m.Role = "assistant"
			m.Type = model.MsgAssistant
			m.Content = partText(p)
			m.Size = measure.AtLeastOne(measure.Count(opts.SizeMode, m.Content))
			m.Raw = raw
			out = append(out, m)

		case "tool":
			if p.State == nil || p.State.Status != "completed" {
				continue
			}
			start := NormalizeTime(p.State.Time.Start, partTime)
			end, ok := coerceTime(p.State.Time.End)
			if !ok {
				end = start.Add(time.Millisecond)
			}

			call := base
			call.Timestamp = start
			call.Role = "assistant"
			call.Type = model.MsgToolCall
			call.Content = toolContent(p, stringifyJSON(p.State.Input))
			call.Size = measure.AtLeastOne(measure.Count(opts.SizeMode, call.Content))
			call.Raw = raw
			out = append(out, call)

			result := base
			result.Timestamp = end
			result.Role = "assistant"
			result.Type = model.MsgToolResult
			result.Content = toolContent(p, stringifyJSON(p.State.Output))
			result.Size = measure.AtLeastOne(measure.Count(opts.SizeMode, result.Content))
			result.Raw = raw
			out = append(out, result)
		}
	}
	return out
}

func toolContent(p opencodePart, payload string) string {
	name := p.Tool
	if name == "" {
		name = "tool"
	}
	s := name
	if p.CallID != "" {
		s += " " + p.CallID
	}
	if payload != "" {
		s += "\n" + payload
	}
	return s
}

func partText(p opencodePart) string {
	if p.Type == "reasoning" && p.Reasoning != "" {
		return p.Reasoning
	}
	return p.Text
}

// partEpochMs resolves a part's own timestamp for ordering: tool start,
// then created, then end, 0 when absent.
func partEpochMs(p opencodePart) int64 {
	candidates := []any{}
	if p.State != nil {
		candidates = append(candidates, p.State.Time.Start)
	}
	candidates = append(candidates, p.Time.Start, p.Time.Created)
	if p.State != nil {
		candidates = append(candidates, p.State.Time.End)
	}
	candidates = append(candidates, p.Time.End)

	for _, c := range candidates {
		if t, ok := coerceTime(c); ok {
			return t.UnixMilli()
		}
	}
	return 0
}

func opencodeProject(info opencodeSessionInfo) (display, path string) {
	cwd := info.Cwd
	if cwd == "" {
		cwd = info.Workspace
	}
	return cwd, cwd
}

func readJSONFile(path string, v any, logger *slog.Logger) bool {
	raw, err := os.ReadFile(path)
	if err != nil {
		logger.Warn("skip unreadable file", "path", path, "err", err)
		return false
	}
	if err := json.Unmarshal(raw, v); err != nil {
		logger.Warn("skip unparsable file", "path", path, "err", err)
		return false
	}
	return true
}
