package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/mattn/go-runewidth"

	"github.com/ewhitmore/sessionlens/internal/model"
)

// linesPerItem is the number of terminal lines each session occupies.
const linesPerItem = 2

// renderList renders the left panel: the filtered session list with scrolling.
func (m browseModel) renderList(width, height int) string {
	if len(m.filtered) == 0 {
		return lipgloss.NewStyle().
			Foreground(colorDim).
			Width(width).
			Height(height).
			Align(lipgloss.Center, lipgloss.Center).
			Render("No sessions")
	}

	var lines []string
	for i, s := range m.filtered {
		if i < m.listOffset {
			continue
		}
		if len(lines)+linesPerItem > height {
			break
		}
		lines = append(lines, formatSessionLines(s, width, i == m.cursor)...)
	}

	for len(lines) < height {
		lines = append(lines, strings.Repeat(" ", width))
	}
	return strings.Join(lines, "\n")
}

// formatSessionLines formats one session as two lines:
//
//	line 1: [>] date tool summary
//	line 2:     N msgs, size, project (dimmed)
func formatSessionLines(s *model.Session, width int, selected bool) []string {
	var tool string
	switch s.Tool {
	case model.ToolClaude:
		tool = styleToolClaude.Render("claude  ")
	case model.ToolOpenCode:
		tool = styleToolOpenCode.Render("opencode")
	default:
		tool = string(s.Tool)
	}

	date := styleDateHeading.Render(s.StartedAt.Format(model.DateKey))

	summary := strings.ReplaceAll(s.FirstUserContent(), "\n", " ")
	summaryMax := width - 2 - 10 - 8 - 3 // prefix + date + tool + padding
	if summaryMax < 0 {
		summaryMax = 0
	}
	if runewidth.StringWidth(summary) > summaryMax {
		summary = runewidth.Truncate(summary, summaryMax, "")
	}

	line1 := fmt.Sprintf("%s %s %s", date, tool, summary)
	if selected {
		line1 = styleListSelected.Render("> ") + line1
	} else {
		line1 = "  " + line1
	}

	detail := fmt.Sprintf("%d msgs, %s units", len(s.Messages), humanize.Comma(int64(s.TotalSize())))
	if s.ProjectDisplay != "" {
		detail += ", " + s.ProjectDisplay
	}
	detailMax := width - 4
	if detailMax < 0 {
		detailMax = 0
	}
	if runewidth.StringWidth(detail) > detailMax {
		detail = runewidth.Truncate(detail, detailMax, "")
	}
	line2 := "    " + lipgloss.NewStyle().Foreground(colorDim).Render(detail)

	return []string{line1, line2}
}

// adjustListScroll keeps the cursor visible within the list viewport.
func (m *browseModel) adjustListScroll(listHeight int) {
	visibleItems := listHeight / linesPerItem
	if visibleItems < 1 {
		visibleItems = 1
	}
	if m.cursor < m.listOffset {
		m.listOffset = m.cursor
	}
	if m.cursor >= m.listOffset+visibleItems {
		m.listOffset = m.cursor - visibleItems + 1
	}
}
