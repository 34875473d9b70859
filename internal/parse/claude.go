package parse

import (
	"bufio"
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/ewhitmore/sessionlens/internal/measure"
	"github.com/ewhitmore/sessionlens/internal/model"
)

const maxLineSize = 10 * 1024 * 1024 // 10MB

// claudeExts are the file extensions considered candidate stream logs.
var claudeExts = map[string]bool{
	".json":   true,
	".jsonl":  true,
	".ndjson": true,
	".log":    true,
}

// claudeRecord is one stream record. Timestamp stays untyped because the
// logs mix ISO strings, epoch numbers, and missing fields.
type claudeRecord struct {
	SessionID string          `json:"sessionId"`
	RequestID string          `json:"requestId"`
	Type      string          `json:"type"`
	Timestamp any             `json:"timestamp"`
	Cwd       string          `json:"cwd"`
	Message   json.RawMessage `json:"message"`
}

type claudeMessage struct {
	Role    string          `json:"role"`
	Content json.RawMessage `json:"content"`
}

type claudeContentPart struct {
	Type      string          `json:"type"`
	Text      string          `json:"text"`
	Thinking  string          `json:"thinking"`
	Name      string          `json:"name"`
	Input     json.RawMessage `json:"input"`
	ToolUseID string          `json:"tool_use_id"`
	Content   json.RawMessage `json:"content"`
}

// ScanClaude walks the stream-format root and returns all messages parsed
// from candidate files. Per-file and per-record failures are logged and
// skipped; the returned error covers only a failed walk of the root.
func ScanClaude(root string, opts model.ScanOptions, logger *slog.Logger) ([]model.Message, error) {
	if root == "" {
		return nil, nil
	}
	if _, err := os.Stat(root); os.IsNotExist(err) {
		return nil, nil
	}

	files, err := discoverClaudeFiles(root)
	if err != nil {
		return nil, err
	}

	var msgs []model.Message
	for _, path := range files {
		fileMsgs, err := scanClaudeFile(path, opts, logger)
		if err != nil {
			logger.Warn("skip unreadable file", "path", path, "err", err)
			continue
		}
		msgs = append(msgs, fileMsgs...)
	}
	return msgs, nil
}

func scanClaudeFile(path string, opts model.ScanOptions, logger *slog.Logger) ([]model.Message, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}

	fctx := claudeFileContext{
		path:  path,
		dir:   filepath.Base(filepath.Dir(path)),
		mtime: info.ModTime(),
	}

	ext := filepath.Ext(path)
	if ext == ".jsonl" || ext == ".ndjson" {
		return scanClaudeStream(path, fctx, opts, logger)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if looksLineDelimited(data) {
		return parseClaudeLines(data, fctx, opts, logger), nil
	}
	return parseClaudeDocument(data, fctx, opts, logger), nil
}

type claudeFileContext struct {
	path  string
	dir   string
	mtime time.Time
}

// looksLineDelimited samples the first 5 non-empty lines; the file is
// treated as line-delimited when at least 2 of them parse as JSON.
func looksLineDelimited(data []byte) bool {
	valid, sampled := 0, 0
	for _, line := range bytes.Split(data, []byte("\n")) {
		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			continue
		}
		sampled++
		if gjson.ValidBytes(line) {
			valid++
		}
		if sampled == 5 {
			break
		}
	}
	return valid >= 2
}

func scanClaudeStream(path string, fctx claudeFileContext, opts model.ScanOptions, logger *slog.Logger) ([]model.Message, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var msgs []model.Message
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		if m, ok := parseClaudeRecord(line, fctx, opts, logger); ok {
			msgs = append(msgs, m)
		}
	}
	return msgs, scanner.Err()
}

func parseClaudeLines(data []byte, fctx claudeFileContext, opts model.ScanOptions, logger *slog.Logger) []model.Message {
	var msgs []model.Message
	for _, line := range bytes.Split(data, []byte("\n")) {
		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			continue
		}
		if m, ok := parseClaudeRecord(line, fctx, opts, logger); ok {
			msgs = append(msgs, m)
		}
	}
	return msgs
}

// parseClaudeDocument handles a single JSON document; a top-level array is
// iterated, any other value is treated as one record.
func parseClaudeDocument(data []byte, fctx claudeFileContext, opts model.ScanOptions, logger *slog.Logger) []model.Message {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil
	}
	if data[0] == '[' {
		var items []json.RawMessage
		if err := json.Unmarshal(data, &items); err != nil {
			logger.Warn("skip unparsable document", "path", fctx.path, "err", err)
			return nil
		}
		var msgs []model.Message
		for _, item := range items {
			if m, ok := parseClaudeRecord(item, fctx, opts, logger); ok {
				msgs = append(msgs, m)
			}
		}
		return msgs
	}
	if m, ok := parseClaudeRecord(data, fctx, opts, logger); ok {
		return []model.Message{m}
	}
	return nil
}

func parseClaudeRecord(raw []byte, fctx claudeFileContext, opts model.ScanOptions, logger *slog.Logger) (model.Message, bool) {
	var rec claudeRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		logger.Debug("skip unparsable record", "path", fctx.path, "err", err)
		return model.Message{}, false
	}

	ts := NormalizeTime(rec.Timestamp, fctx.mtime)
	if !opts.Since.IsZero() && ts.Before(opts.Since) {
		return model.Message{}, false
	}

	msgType, role := classifyClaude(rec)
	content, size := measureClaude(rec, raw, opts.SizeMode)

	sessionID := rec.SessionID
	if sessionID == "" {
		sessionID = rec.RequestID
	}
	if sessionID == "" {
		sessionID = derivedSessionID(ts, fctx.dir)
	}

	display, projPath := claudeProject(rec.Cwd, fctx.dir)

	rawCopy := make(json.RawMessage, len(raw))
	copy(rawCopy, raw)

	return model.Message{
		Tool:           model.ToolClaude,
		SessionID:      sessionID,
		ProjectDisplay: display,
		ProjectPath:    projPath,
		Timestamp:      ts,
		FileModifiedAt: fctx.mtime,
		SourcePath:     fctx.path,
		Role:           role,
		Type:           msgType,
		Size:           size,
		Content:        content,
		Raw:            model.RawPayload{Claude: rawCopy},
	}, true
}

// classifyClaude routes each record through a closed set of discriminator
// variants. User records carrying an embedded tool result become
// tool_result, assistant records carrying a tool use become tool_call,
// and every unrecognized discriminator falls back to assistant.
func classifyClaude(rec claudeRecord) (model.MsgType, string) {
	switch rec.Type {
	case "user":
		if claudeHasPart(rec.Message, "tool_result") {
			return model.MsgToolResult, "user"
		}
		return model.MsgUser, "user"
	case "assistant":
		if claudeHasPart(rec.Message, "tool_use") {
			return model.MsgToolCall, "assistant"
		}
		return model.MsgAssistant, "assistant"
	default:
		return model.MsgAssistant, ""
	}
}

func claudeHasPart(rawMsg json.RawMessage, partType string) bool {
	var msg claudeMessage
	if err := json.Unmarshal(rawMsg, &msg); err != nil {
		return false
	}
	var parts []claudeContentPart
	if err := json.Unmarshal(msg.Content, &parts); err != nil {
		return false
	}
	for _, p := range parts {
		if p.Type == partType {
			return true
		}
	}
	return false
}

// measureClaude extracts the content-bearing sub-fields of a record and
// scores them under the size mode. Unrecognized shapes fall back to
// measuring the stringified whole record.
func measureClaude(rec claudeRecord, raw []byte, mode measure.Mode) (string, int) {
	pieces, ok := claudeContentPieces(rec.Message)
	if !ok {
		return "", measure.AtLeastOne(measure.Count(mode, string(raw)))
	}
	size := 0
	for _, p := range pieces {
		size += measure.Count(mode, p)
	}
	return strings.TrimSpace(strings.Join(pieces, "\n")), measure.AtLeastOne(size)
}

func claudeContentPieces(rawMsg json.RawMessage) ([]string, bool) {
	var msg claudeMessage
	if err := json.Unmarshal(rawMsg, &msg); err != nil {
		return nil, false
	}

	// plain string content
	var s string
	if err := json.Unmarshal(msg.Content, &s); err == nil {
		return []string{s}, true
	}

	var parts []claudeContentPart
	if err := json.Unmarshal(msg.Content, &parts); err != nil {
		return nil, false
	}
	var pieces []string
	for _, p := range parts {
		switch p.Type {
		case "text":
			if p.Text != "" {
				pieces = append(pieces, p.Text)
			}
		case "thinking":
			if p.Thinking != "" {
				pieces = append(pieces, p.Thinking)
			}
		case "tool_use":
			pieces = append(pieces, "[tool_use] "+p.Name+"\n"+stringifyJSON(p.Input))
		case "tool_result":
			pieces = append(pieces, "[tool_result] "+p.ToolUseID+"\n"+stringifyJSON(p.Content))
		}
	}
	return pieces, true
}

func stringifyJSON(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	// strings render without quotes, everything else verbatim
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}

// derivedSessionID is the heuristic fallback for records with no explicit
// identifier: an hour-aligned bucket of the timestamp combined with the
// containing directory name.
func derivedSessionID(ts time.Time, dir string) string {
	return ts.UTC().Truncate(time.Hour).Format("2006-01-02T15") + "-" + dir
}

// claudeProject derives the project label from the record's working
// directory when present, else from the parent directory name with the
// path-separator encoding decoded back.
func claudeProject(cwd, dir string) (display, path string) {
	if cwd != "" {
		return cwd, cwd
	}
	decoded := decodeProjectDir(dir)
	if strings.HasPrefix(decoded, "/") {
		return decoded, decoded
	}
	return decoded, ""
}

// decodeProjectDir reverses the separator encoding used for project
// directory names, e.g. "-Users-anna-src-web" -> "/Users/anna/src/web".
func decodeProjectDir(name string) string {
	if strings.HasPrefix(name, "-") {
		return "/" + strings.ReplaceAll(name[1:], "-", "/")
	}
	return name
}

func discoverClaudeFiles(root string) ([]string, error) {
	var files []string
	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil // skip unreadable dirs
		}
		if info.IsDir() {
			return nil
		}
		if !claudeExts[filepath.Ext(path)] {
			return nil
		}
		if strings.Contains(filepath.Base(path), "sessions-index") {
			return nil
		}
		files = append(files, path)
		return nil
	})
	return files, err
}
