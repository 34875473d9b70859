package render

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/mattn/go-runewidth"

	"github.com/ewhitmore/sessionlens/internal/model"
)

const (
	colorReset   = "\033[0m"
	colorUser    = "\033[1;34m" // bold blue
	colorAssist  = "\033[1;32m" // bold green
	colorTool    = "\033[2;36m" // dim cyan for tool traffic
	colorDim     = "\033[2m"
	colorHit     = "\033[43m"   // yellow background
	colorBoldRed = "\033[1;31m" // bold red for keyword highlights
)

type Options struct {
	HitMsgID int    // index of the message to center on, -1 = none
	Context  int    // messages before/after hit to show, <0 = all
	Width    int    // wrap width (0 = no wrap)
	Query    string // search query for keyword highlighting
}

// fts5Operators are FTS5 operators that should not be highlighted as keywords.
var fts5Operators = map[string]bool{
	"AND": true, "OR": true, "NOT": true, "NEAR": true,
	"and": true, "or": true, "not": true, "near": true,
}

// highlightKeywords wraps case-insensitive matches of query terms in bold red ANSI codes.
func highlightKeywords(text, query string) string {
	if query == "" {
		return text
	}
	var terms []string
	for _, t := range strings.Fields(query) {
		if !fts5Operators[t] {
			terms = append(terms, t)
		}
	}
	for _, term := range terms {
		lower := strings.ToLower(term)
		i := 0
		for i < len(text) {
			idx := strings.Index(strings.ToLower(text[i:]), lower)
			if idx < 0 {
				break
			}
			pos := i + idx
			orig := text[pos : pos+len(term)]
			replacement := colorBoldRed + orig + colorReset
			text = text[:pos] + replacement + text[pos+len(term):]
			i = pos + len(replacement)
		}
	}
	return text
}

func indentLines(text, prefix string) string {
	lines := strings.Split(text, "\n")
	for i, l := range lines {
		lines[i] = prefix + l
	}
	return strings.Join(lines, "\n")
}

// wrapLine breaks a single line into lines that fit within maxWidth visible
// columns, skipping ANSI escape sequences when measuring width.
func wrapLine(line string, maxWidth int) []string {
	if maxWidth <= 0 {
		return []string{line}
	}

	var result []string
	var cur strings.Builder
	visW := 0

	i := 0
	for i < len(line) {
		if i+1 < len(line) && line[i] == '\033' && line[i+1] == '[' {
			j := i + 2
			for j < len(line) && line[j] != 'm' {
				j++
			}
			if j < len(line) {
				j++
			}
			cur.WriteString(line[i:j])
			i = j
			continue
		}

		r, size := utf8.DecodeRuneInString(line[i:])
		rw := runewidth.RuneWidth(r)

		if visW+rw > maxWidth {
			result = append(result, cur.String())
			cur.Reset()
			visW = 0
		}

		cur.WriteRune(r)
		visW += rw
		i += size
	}

	if cur.Len() > 0 {
		result = append(result, cur.String())
	}
	if len(result) == 0 {
		return []string{""}
	}
	return result
}

func roleStyle(m model.Message) (color, label string) {
	switch m.Type {
	case model.MsgUser:
		return colorUser, "USER"
	case model.MsgToolCall:
		return colorTool, "CALL"
	case model.MsgToolResult:
		return colorTool, "RESULT"
	default:
		return colorAssist, "ASST"
	}
}

// RenderSession renders a session transcript and returns the content plus
// the 0-based line number of the hit message header (-1 if no hit).
func RenderSession(s *model.Session, opts Options) (string, int) {
	if opts.Context == 0 {
		opts.Context = 10
	}
	if opts.Context < 0 {
		opts.Context = len(s.Messages)
	}

	if len(s.Messages) == 0 {
		return "(empty session)", -1
	}

	start, end := 0, len(s.Messages)
	if opts.HitMsgID >= 0 && opts.HitMsgID < len(s.Messages) {
		start = opts.HitMsgID - opts.Context
		if start < 0 {
			start = 0
		}
		end = opts.HitMsgID + opts.Context + 1
		if end > len(s.Messages) {
			end = len(s.Messages)
		}
	}

	var b strings.Builder
	hitLine := -1
	lineCount := 0
	separator := colorDim + "--------------------------------------------------" + colorReset

	writeLine := func(line string) {
		for _, wl := range wrapLine(line, opts.Width) {
			b.WriteString(wl)
			b.WriteString("\n")
			lineCount++
		}
	}

	writeLine(fmt.Sprintf("%s--- %s [%s] %s ---%s", colorDim, s.Key(), s.Tool, s.ProjectDisplay, colorReset))

	if start > 0 {
		writeLine(fmt.Sprintf("%s... (%d messages before) ...%s", colorDim, start, colorReset))
	}

	for i := start; i < end; i++ {
		m := s.Messages[i]
		isHit := i == opts.HitMsgID

		if i > start {
			writeLine(separator)
		}
		if isHit {
			hitLine = lineCount
		}

		roleColor, roleLabel := roleStyle(m)
		ts := m.Timestamp.Format("2006-01-02 15:04:05")
		if isHit {
			writeLine(fmt.Sprintf("%s>> %s > %s <<%s", colorHit, roleLabel, ts, colorReset))
		} else {
			writeLine(fmt.Sprintf("%s%s >%s %s%s%s", roleColor, roleLabel, colorReset, colorDim, ts, colorReset))
		}

		text := m.Content
		if m.Type == model.MsgToolCall || m.Type == model.MsgToolResult {
			text = colorDim + text + colorReset
		}
		text = highlightKeywords(text, opts.Query)
		text = indentLines(text, "  ")
		for _, tl := range strings.Split(text, "\n") {
			writeLine(tl)
		}
		writeLine("")
	}

	if skipAfter := len(s.Messages) - end; skipAfter > 0 {
		writeLine(fmt.Sprintf("%s... (%d messages after) ...%s", colorDim, skipAfter, colorReset))
	}

	return b.String(), hitLine
}

// SizeBar renders a fixed-width bar proportional to size/max, for the
// session list view.
func SizeBar(size, max, width int) string {
	if max <= 0 || width <= 0 {
		return ""
	}
	filled := size * width / max
	if filled < 1 && size > 0 {
		filled = 1
	}
	if filled > width {
		filled = width
	}
	return strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
}
