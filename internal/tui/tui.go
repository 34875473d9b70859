package tui

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/sahilm/fuzzy"

	"github.com/ewhitmore/sessionlens/internal/index"
	"github.com/ewhitmore/sessionlens/internal/model"
)

const debounceDelay = 200 * time.Millisecond

// message types

type indexLoadedMsg struct {
	sessions []*model.Session
}

type debounceTickMsg struct {
	filter string
}

// browseModel is the interactive session browser: filtered list on the
// left, transcript preview on the right.
type browseModel struct {
	indexer *index.Indexer
	opts    model.ScanOptions

	sessions []*model.Session // all sessions, newest first
	filtered []*model.Session

	cursor     int
	listOffset int
	msgCursor  int // selected message within the previewed session, -1 = none

	filter      string
	filterInput textinput.Model
	preview     viewport.Model
	previewKey  string // "sessionKey:msgIdx" to avoid duplicate renders
	width       int
	height      int
	ready       bool
	quitting    bool
	loading     bool
	chosen      *model.Session
}

func initialModel(ix *index.Indexer, opts model.ScanOptions) browseModel {
	ti := textinput.New()
	ti.Placeholder = "Filter..."
	ti.Focus()
	ti.Prompt = "> "
	ti.PromptStyle = styleInputPrompt
	ti.TextStyle = styleInput
	ti.CharLimit = 256

	return browseModel{
		indexer:     ix,
		opts:        opts,
		msgCursor:   -1,
		filterInput: ti,
		preview:     viewport.New(0, 0),
		loading:     true,
	}
}

// Run starts the browser and blocks until it exits. If the user selects a
// session, the matching resume command is copied to the clipboard.
func Run(ix *index.Indexer, opts model.ScanOptions) error {
	m := initialModel(ix, opts)
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseCellMotion())
	finalModel, err := p.Run()
	if err != nil {
		return fmt.Errorf("tui: %w", err)
	}

	fm := finalModel.(browseModel)
	if fm.chosen != nil {
		return copyResumeCommand(fm.chosen)
	}
	return nil
}

// copyResumeCommand builds the tool-specific resume command for a session
// and puts it on the clipboard, printing it as a fallback.
func copyResumeCommand(s *model.Session) error {
	var resumeCmd string
	switch s.Tool {
	case model.ToolClaude:
		resumeCmd = fmt.Sprintf("claude --resume %s", s.SessionID)
	case model.ToolOpenCode:
		resumeCmd = fmt.Sprintf("opencode --session %s", s.SessionID)
	default:
		resumeCmd = s.SessionID
	}

	fullCmd := resumeCmd
	if s.ProjectPath != "" {
		fullCmd = fmt.Sprintf("cd %s && %s", s.ProjectPath, resumeCmd)
	}

	if err := clipboard.WriteAll(fullCmd); err != nil {
		fmt.Printf("%s\n", fullCmd)
		return nil
	}
	fmt.Printf("Copied to clipboard: %s\n", fullCmd)
	return nil
}

func loadIndexCmd(ix *index.Indexer, opts model.ScanOptions) tea.Cmd {
	return func() tea.Msg {
		idx := ix.Build(opts)
		sessions := idx.Sessions()
		// newest first for browsing
		sort.SliceStable(sessions, func(i, j int) bool {
			return sessions[i].StartedAt.After(sessions[j].StartedAt)
		})
		return indexLoadedMsg{sessions: sessions}
	}
}

func (m browseModel) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, loadIndexCmd(m.indexer, m.opts))
}

func (m browseModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		m.preview = newViewport(m.previewWidth(), m.panelHeight())
		if m.current() != nil {
			cmds = append(cmds, m.loadCurrentPreview(true))
		}
		return m, tea.Batch(cmds...)

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Quit):
			m.quitting = true
			return m, tea.Quit

		case key.Matches(msg, keys.Enter):
			if s := m.current(); s != nil {
				m.chosen = s
				m.quitting = true
				return m, tea.Quit
			}

		case key.Matches(msg, keys.Up):
			if m.cursor > 0 {
				m.cursor--
				m.msgCursor = -1
				m.adjustListScroll(m.panelHeight())
				cmds = append(cmds, m.loadCurrentPreview(false))
			}
			return m, tea.Batch(cmds...)

		case key.Matches(msg, keys.Down):
			if m.cursor < len(m.filtered)-1 {
				m.cursor++
				m.msgCursor = -1
				m.adjustListScroll(m.panelHeight())
				cmds = append(cmds, m.loadCurrentPreview(false))
			}
			return m, tea.Batch(cmds...)

		case key.Matches(msg, keys.PreviewUp):
			m.preview.LineUp(m.panelHeight() / 2)
			return m, nil

		case key.Matches(msg, keys.PreviewDn):
			m.preview.LineDown(m.panelHeight() / 2)
			return m, nil

		case key.Matches(msg, keys.MsgNext):
			if s := m.current(); s != nil && m.msgCursor < len(s.Messages)-1 {
				m.msgCursor++
				cmds = append(cmds, m.loadCurrentPreview(true))
			}
			return m, tea.Batch(cmds...)

		case key.Matches(msg, keys.MsgPrev):
			if m.msgCursor > 0 {
				m.msgCursor--
				cmds = append(cmds, m.loadCurrentPreview(true))
			}
			return m, tea.Batch(cmds...)

		case key.Matches(msg, keys.MsgDelete):
			if s := m.current(); s != nil && m.msgCursor >= 0 && m.msgCursor < len(s.Messages) {
				s.DeleteMessage(m.msgCursor)
				if len(s.Messages) == 0 {
					m.dropSession(s)
					m.msgCursor = -1
				} else if m.msgCursor >= len(s.Messages) {
					m.msgCursor = len(s.Messages) - 1
				}
				cmds = append(cmds, m.loadCurrentPreview(true))
			}
			return m, tea.Batch(cmds...)

		case key.Matches(msg, keys.Refresh):
			m.indexer.ClearCache()
			m.loading = true
			cmds = append(cmds, loadIndexCmd(m.indexer, m.opts))
			return m, tea.Batch(cmds...)
		}

		// Pass remaining keys to the filter input
		var tiCmd tea.Cmd
		m.filterInput, tiCmd = m.filterInput.Update(msg)
		cmds = append(cmds, tiCmd)

		newFilter := m.filterInput.Value()
		if newFilter != m.filter {
			m.filter = newFilter
			cmds = append(cmds, m.scheduleDebouncedFilter(newFilter))
		}
		return m, tea.Batch(cmds...)

	case tea.MouseMsg:
		if !m.ready || len(m.filtered) == 0 {
			return m, nil
		}

		region, itemIdx := m.hitTest(msg.X, msg.Y)

		switch {
		case region == regionList && msg.Button == tea.MouseButtonWheelUp:
			if m.listOffset > 0 {
				m.listOffset--
			}
			return m, nil

		case region == regionList && msg.Button == tea.MouseButtonWheelDown:
			visibleItems := m.panelHeight() / linesPerItem
			maxOffset := len(m.filtered) - visibleItems
			if maxOffset < 0 {
				maxOffset = 0
			}
			if m.listOffset < maxOffset {
				m.listOffset++
			}
			return m, nil

		case region == regionList && msg.Button == tea.MouseButtonLeft && msg.Action == tea.MouseActionPress:
			if itemIdx >= 0 && itemIdx < len(m.filtered) && m.cursor != itemIdx {
				m.cursor = itemIdx
				m.msgCursor = -1
				m.adjustListScroll(m.panelHeight())
				cmds = append(cmds, m.loadCurrentPreview(false))
			}
			return m, tea.Batch(cmds...)

		case region == regionPreview && (msg.Button == tea.MouseButtonWheelUp || msg.Button == tea.MouseButtonWheelDown):
			var vpCmd tea.Cmd
			m.preview, vpCmd = m.preview.Update(msg)
			if vpCmd != nil {
				cmds = append(cmds, vpCmd)
			}
			return m, tea.Batch(cmds...)
		}
		return m, nil

	case debounceTickMsg:
		// Only re-filter if the input hasn't changed since the tick was scheduled
		if msg.filter == m.filter {
			m.applyFilter()
			cmds = append(cmds, m.loadCurrentPreview(false))
		}
		return m, tea.Batch(cmds...)

	case indexLoadedMsg:
		m.loading = false
		m.sessions = msg.sessions
		m.applyFilter()
		if len(m.filtered) > 0 {
			cmds = append(cmds, m.loadCurrentPreview(true))
		} else {
			m.preview.SetContent("")
			m.previewKey = ""
		}
		return m, tea.Batch(cmds...)

	case previewRenderedMsg:
		key := previewCacheKey(msg.sessionKey, msg.msgIdx)
		if key == m.previewKey {
			return m, nil
		}
		if s := m.current(); s != nil {
			if key != previewCacheKey(s.Key(), m.msgCursor) {
				return m, nil // stale preview
			}
		}
		m.preview.SetContent(msg.content)
		if msg.hitLine > 0 {
			m.preview.SetYOffset(msg.hitLine)
		} else {
			m.preview.GotoTop()
		}
		m.previewKey = key
		return m, nil
	}

	return m, tea.Batch(cmds...)
}

func (m browseModel) View() string {
	if m.quitting || !m.ready {
		return ""
	}

	listW := m.listWidth()
	previewW := m.previewWidth()
	panelH := m.panelHeight()

	inputRow := m.filterInput.View()

	listPanel := stylePanelBorder.
		Width(listW).
		Height(panelH).
		Render(m.renderList(listW, panelH))

	m.preview.Width = previewW
	m.preview.Height = panelH
	previewPanel := styleActiveBorder.
		Width(previewW).
		Height(panelH).
		Render(m.preview.View())

	panels := lipgloss.JoinHorizontal(lipgloss.Top, listPanel, previewPanel)

	return lipgloss.JoinVertical(lipgloss.Left, inputRow, panels, m.statusBar())
}

// helper methods

func (m browseModel) current() *model.Session {
	if len(m.filtered) == 0 || m.cursor >= len(m.filtered) {
		return nil
	}
	return m.filtered[m.cursor]
}

func (m *browseModel) dropSession(s *model.Session) {
	for i, other := range m.sessions {
		if other == s {
			m.sessions = append(m.sessions[:i], m.sessions[i+1:]...)
			break
		}
	}
	m.applyFilter()
	m.previewKey = ""
}

// applyFilter recomputes the visible list with a fuzzy match over a
// per-session target string.
func (m *browseModel) applyFilter() {
	if m.filter == "" {
		m.filtered = m.sessions
	} else {
		targets := make([]string, len(m.sessions))
		for i, s := range m.sessions {
			targets[i] = filterTarget(s)
		}
		matches := fuzzy.Find(m.filter, targets)
		m.filtered = make([]*model.Session, 0, len(matches))
		for _, match := range matches {
			m.filtered = append(m.filtered, m.sessions[match.Index])
		}
	}
	if m.cursor >= len(m.filtered) {
		m.cursor = 0
		m.listOffset = 0
	}
	m.msgCursor = -1
}

func filterTarget(s *model.Session) string {
	summary := s.FirstUserContent()
	if len(summary) > 200 {
		summary = summary[:200]
	}
	return strings.Join([]string{
		s.StartedAt.Format(model.DateKey),
		string(s.Tool),
		s.ProjectDisplay,
		summary,
	}, " ")
}

func (m browseModel) listWidth() int {
	if m.width <= 0 {
		return 40
	}
	w := m.width*40/100 - 4
	if w < 20 {
		w = 20
	}
	return w
}

func (m browseModel) previewWidth() int {
	if m.width <= 0 {
		return 60
	}
	w := m.width*60/100 - 4
	if w < 20 {
		w = 20
	}
	return w
}

func (m browseModel) panelHeight() int {
	if m.height <= 0 {
		return 20
	}
	// input row (1) + status bar (1) + borders (4)
	h := m.height - 6
	if h < 5 {
		h = 5
	}
	return h
}

type mouseRegion int

const (
	regionNone mouseRegion = iota
	regionList
	regionPreview
)

// hitTest maps terminal coordinates to a panel region and list item index.
func (m browseModel) hitTest(x, y int) (mouseRegion, int) {
	pH := m.panelHeight()
	contentYStart := 2 // input row (1) + top border (1)
	contentYEnd := contentYStart + pH - 1

	if y < contentYStart || y > contentYEnd {
		return regionNone, -1
	}
	relY := y - contentYStart

	lw := m.listWidth()
	listBoxRight := lw + 1

	if x >= 1 && x <= lw {
		return regionList, m.listOffset + (relY / linesPerItem)
	}
	if x > listBoxRight+1 {
		return regionPreview, -1
	}
	return regionNone, -1
}

func (m browseModel) statusBar() string {
	var parts []string
	if m.loading {
		parts = append(parts, "scanning...")
	} else {
		parts = append(parts, fmt.Sprintf("%d/%d sessions", len(m.filtered), len(m.sessions)))
	}
	if m.msgCursor >= 0 {
		parts = append(parts, fmt.Sprintf("msg %d", m.msgCursor))
	}
	parts = append(parts, "C-n/C-p message", "C-x hide", "C-r rescan", "Enter copy resume cmd", "Esc quit")
	return styleStatusBar.Render(strings.Join(parts, " | "))
}

func (m browseModel) scheduleDebouncedFilter(filter string) tea.Cmd {
	return tea.Tick(debounceDelay, func(time.Time) tea.Msg {
		return debounceTickMsg{filter: filter}
	})
}

// loadCurrentPreview renders the selected session. force bypasses the
// previewKey dedup, needed after width changes and message deletion.
func (m *browseModel) loadCurrentPreview(force bool) tea.Cmd {
	s := m.current()
	if s == nil {
		return nil
	}
	key := previewCacheKey(s.Key(), m.msgCursor)
	if !force && key == m.previewKey {
		return nil
	}
	if force {
		m.previewKey = ""
	}
	return loadPreviewCmd(s, m.msgCursor, m.filter, m.previewWidth())
}

func previewCacheKey(sessionKey string, msgIdx int) string {
	return fmt.Sprintf("%s:%d", sessionKey, msgIdx)
}
