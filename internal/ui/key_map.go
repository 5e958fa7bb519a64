package ui

import "github.com/charmbracelet/bubbles/key"

// keyMap defines the [key.Binding] mapping for the TUI.
type keyMap struct {
	up      key.Binding
	down    key.Binding
	search  key.Binding
	open    key.Binding
	back    key.Binding
	history key.Binding
	again   key.Binding
	quit    key.Binding
	abort   key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		up:      key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		down:    key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		search:  key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "search")),
		open:    key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "open")),
		back:    key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back")),
		history: key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "history")),
		again:   key.NewBinding(key.WithKeys("n", "/"), key.WithHelp("n", "new search")),
		quit:    key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
		abort:   key.NewBinding(key.WithKeys("ctrl+c"), key.WithHelp("ctrl+c", "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.up, k.down, k.open},
		{k.search, k.back, k.history},
		{k.again, k.quit},
	}
}
