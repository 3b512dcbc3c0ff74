package ui

import "github.com/charmbracelet/bubbles/key"

// keyMap defines the [key.Binding] mapping for the TUI.
type keyMap struct {
	up        key.Binding
	down      key.Binding
	enter     key.Binding
	back      key.Binding
	tab       key.Binding
	move      key.Binding
	playPause key.Binding
	skip      key.Binding
	seek      key.Binding
	jump      key.Binding
	quit      key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		up:        key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		down:      key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		enter:     key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "select")),
		back:      key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back")),
		tab:       key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "switch view")),
		move:      key.NewBinding(key.WithKeys("m"), key.WithHelp("m", "move to category")),
		playPause: key.NewBinding(key.WithKeys(" "), key.WithHelp("space", "play/pause")),
		skip:      key.NewBinding(key.WithKeys("<", ">"), key.WithHelp("</>", "prev/next")),
		seek:      key.NewBinding(key.WithKeys(",", "."), key.WithHelp(",/.", "-/+10s")),
		jump:      key.NewBinding(key.WithKeys("1", "2", "3", "4", "5"), key.WithHelp("1-5", "seek 0-80%")),
		quit:      key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.tab, k.quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.playPause, k.skip, k.seek, k.jump},
		{k.up, k.down, k.enter, k.back},
		{k.move, k.tab, k.quit},
	}
}
