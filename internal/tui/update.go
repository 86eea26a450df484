package tui

import (
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
)

// Update implements tea.Model.
func (m exportModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) { // nolint:ireturn
	switch x := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = x.Width
		m.progress.Width = min(max(x.Width-progressMargin, 1), progressMaxWidth)
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(x)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(x)
		return m, cmd

	case tickElapsedMsg:
		m.now = time.Time(x)
		if m.finished {
			return m, nil
		}
		return m, m.tickElapsed()

	case progressMsg:
		m.done, m.total = x.Done, x.Total
		return m, m.listenForProgress()

	case exportDoneMsg:
		m.finished = true
		m.err = x.Err
		m.now = time.Now()
		return m, tea.Quit
	}

	return m, nil
}

// Update implements tea.Model.
func (m pickerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) { // nolint:ireturn
	switch x := msg.(type) {
	case tea.WindowSizeMsg:
		height := max(x.Height-listOverheadLines, listMinHeight)
		m.list.SetSize(x.Width, height)
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(x)
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}
