package tui

import (
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
)

// handleKey cancels the export on ctrl+c. The program keeps running until the
// export goroutine reports back so that its cleanup is never cut short.
func (m exportModel) handleKey(msg tea.KeyMsg) (exportModel, tea.Cmd) {
	if key.Matches(msg, m.keys.Cancel) && !m.canceling {
		m.canceling = true
		if m.cancel != nil {
			m.cancel()
		}
	}
	return m, nil
}

// handleKey selects on enter and keeps the current field on q, esc or ctrl+c.
// While the filter prompt is open every key goes to the list.
func (m pickerModel) handleKey(msg tea.KeyMsg) (pickerModel, tea.Cmd) {
	if m.list.FilterState() == list.Filtering {
		var cmd tea.Cmd
		m.list, cmd = m.list.Update(msg)
		return m, cmd
	}

	switch {
	case key.Matches(msg, m.keys.Select):
		if it, ok := m.list.SelectedItem().(fieldItem); ok {
			m.choice = it.Ref
			m.chosen = true
		}
		return m, tea.Quit

	case key.Matches(msg, m.keys.Keep), key.Matches(msg, m.keys.Cancel):
		m.chosen = false
		return m, tea.Quit
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}
