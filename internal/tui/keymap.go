package tui

import (
	"github.com/charmbracelet/bubbles/key"
)

// keyMap defines the key bindings shared by the picker and the export view.
type keyMap struct {
	Select key.Binding
	Keep   key.Binding
	Cancel key.Binding
	Up     key.Binding
	Down   key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		Select: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "colour by field"),
		),
		Keep: key.NewBinding(
			key.WithKeys("q", "esc"),
			key.WithHelp("q/esc", "keep current"),
		),
		Cancel: key.NewBinding(
			key.WithKeys("ctrl+c"),
			key.WithHelp("ctrl+c", "cancel"),
		),
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "up"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "down"),
		),
	}
}
