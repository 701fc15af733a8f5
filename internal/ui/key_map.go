package ui

import "github.com/charmbracelet/bubbles/key"

// keyMap defines the [key.Binding] mapping for the TUI.
type keyMap struct {
	enter   key.Binding
	back    key.Binding
	library key.Binding
	radio   key.Binding
	search  key.Binding
	quit    key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		enter:   key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "select")),
		back:    key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back")),
		library: key.NewBinding(key.WithKeys("ctrl+l"), key.WithHelp("ctrl+l", "library")),
		radio:   key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "radio")),
		search:  key.NewBinding(key.WithKeys("/"), key.WithHelp("/", "search")),
		quit:    key.NewBinding(key.WithKeys("ctrl+c"), key.WithHelp("ctrl+c", "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.enter, k.back, k.search},
		{k.library, k.radio, k.quit},
	}
}
