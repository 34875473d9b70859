package tui

import (
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/ewhitmore/sessionlens/internal/model"
	"github.com/ewhitmore/sessionlens/internal/render"
)

// previewRenderedMsg is sent when an async preview render completes.
type previewRenderedMsg struct {
	sessionKey string
	msgIdx     int
	content    string
	hitLine    int
}

// loadPreviewCmd returns a tea.Cmd that renders a session transcript async.
func loadPreviewCmd(s *model.Session, msgIdx int, query string, width int) tea.Cmd {
	return func() tea.Msg {
		content, hitLine := render.RenderSession(s, render.Options{
			HitMsgID: msgIdx,
			Context:  -1,
			Width:    width,
			Query:    query,
		})
		return previewRenderedMsg{
			sessionKey: s.Key(),
			msgIdx:     msgIdx,
			content:    content,
			hitLine:    hitLine,
		}
	}
}

func newViewport(width, height int) viewport.Model {
	vp := viewport.New(width, height)
	vp.Style = stylePanelBorder
	return vp
}
