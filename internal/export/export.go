package export

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/ewhitmore/sessionlens/internal/model"
)

// streamRecord is the line shape synthesized when exporting a session to
// the stream format from a source that did not originate there.
type streamRecord struct {
	SessionID string        `json:"sessionId"`
	Type      string        `json:"type"`
	Timestamp string        `json:"timestamp"`
	Cwd       string        `json:"cwd,omitempty"`
	Message   streamMessage `json:"message"`
}

type streamMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// WriteStreamJSONL writes a session as newline-delimited JSON records.
// Messages that originated in the stream format are emitted verbatim from
// their retained raw document; everything else is synthesized.
func WriteStreamJSONL(w io.Writer, s *model.Session) error {
	bw := bufio.NewWriter(w)
	for _, m := range s.Messages {
		if m.Raw.Claude != nil {
			if _, err := bw.Write(m.Raw.Claude); err != nil {
				return err
			}
			if err := bw.WriteByte('\n'); err != nil {
				return err
			}
			continue
		}

		rec := streamRecord{
			SessionID: m.SessionID,
			Type:      m.Role,
			Timestamp: m.Timestamp.UTC().Format(time.RFC3339),
			Cwd:       m.ProjectPath,
			Message:   streamMessage{Role: m.Role, Content: m.Content},
		}
		if rec.Type == "" {
			rec.Type = "assistant"
		}
		line, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("marshal record: %w", err)
		}
		if _, err := bw.Write(line); err != nil {
			return err
		}
		if err := bw.WriteByte('\n'); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// WriteStructuredTree writes a session as the three-tier file layout under
// dir: session/info, session/message and session/part. Messages that
// originated in the structured format reuse their retained raw documents;
// stream-format messages are synthesized into single-part messages.
func WriteStructuredTree(dir string, s *model.Session) error {
	infoDir := filepath.Join(dir, "session", "info")
	msgDir := filepath.Join(dir, "session", "message", s.SessionID)
	partRoot := filepath.Join(dir, "session", "part", s.SessionID)
	for _, d := range []string{infoDir, msgDir, partRoot} {
		if err := os.MkdirAll(d, 0o755); err != nil {
			return fmt.Errorf("create export dir: %w", err)
		}
	}

	info := map[string]any{
		"id":      s.SessionID,
		"cwd":     s.ProjectPath,
		"created": s.StartedAt.UnixMilli(),
		"updated": s.EndedAt.UnixMilli(),
	}
	if err := writeJSONFile(filepath.Join(infoDir, s.SessionID+".json"), info); err != nil {
		return err
	}

	for i, m := range s.Messages {
		mid := fmt.Sprintf("msg_%04d", i)

		if m.Raw.OpenCode != nil {
			if err := writeRawFile(filepath.Join(msgDir, mid+".json"), m.Raw.OpenCode.Message); err != nil {
				return err
			}
			partDir := filepath.Join(partRoot, mid)
			if err := os.MkdirAll(partDir, 0o755); err != nil {
				return err
			}
			for j, p := range m.Raw.OpenCode.Parts {
				name := fmt.Sprintf("prt_%04d.json", j)
				if err := writeRawFile(filepath.Join(partDir, name), p); err != nil {
					return err
				}
			}
			continue
		}

		role := m.Role
		if role == "" {
			role = "assistant"
		}
		doc := map[string]any{
			"id":   mid,
			"role": role,
			"time": map[string]any{"created": m.Timestamp.UnixMilli()},
		}
		if err := writeJSONFile(filepath.Join(msgDir, mid+".json"), doc); err != nil {
			return err
		}

		partDir := filepath.Join(partRoot, mid)
		if err := os.MkdirAll(partDir, 0o755); err != nil {
			return err
		}
		part := map[string]any{
			"messageID": mid,
			"type":      "text",
			"text":      m.Content,
			"time":      map[string]any{"created": m.Timestamp.UnixMilli()},
		}
		if err := writeJSONFile(filepath.Join(partDir, "prt_0000.json"), part); err != nil {
			return err
		}
	}
	return nil
}

func writeJSONFile(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", filepath.Base(path), err)
	}
	return writeRawFile(path, data)
}

func writeRawFile(path string, data []byte) error {
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
