package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Up        key.Binding
	Down      key.Binding
	Enter     key.Binding
	Quit      key.Binding
	PreviewUp key.Binding
	PreviewDn key.Binding
	MsgNext   key.Binding
	MsgPrev   key.Binding
	MsgDelete key.Binding
	Refresh   key.Binding
}

var keys = keyMap{
	Up: key.NewBinding(
		key.WithKeys("up", "ctrl+k"),
		key.WithHelp("up/C-k", "up"),
	),
	Down: key.NewBinding(
		key.WithKeys("down", "ctrl+j"),
		key.WithHelp("dn/C-j", "down"),
	),
	Enter: key.NewBinding(
		key.WithKeys("enter"),
		key.WithHelp("enter", "copy resume cmd"),
	),
	Quit: key.NewBinding(
		key.WithKeys("esc", "ctrl+c"),
		key.WithHelp("esc", "quit"),
	),
	PreviewUp: key.NewBinding(
		key.WithKeys("ctrl+u", "pgup"),
		key.WithHelp("C-u", "preview up"),
	),
	PreviewDn: key.NewBinding(
		key.WithKeys("ctrl+d", "pgdown"),
		key.WithHelp("C-d", "preview down"),
	),
	MsgNext: key.NewBinding(
		key.WithKeys("ctrl+n"),
		key.WithHelp("C-n", "next message"),
	),
	MsgPrev: key.NewBinding(
		key.WithKeys("ctrl+p"),
		key.WithHelp("C-p", "prev message"),
	),
	MsgDelete: key.NewBinding(
		key.WithKeys("ctrl+x"),
		key.WithHelp("C-x", "hide message"),
	),
	Refresh: key.NewBinding(
		key.WithKeys("ctrl+r"),
		key.WithHelp("C-r", "rescan"),
	),
}
