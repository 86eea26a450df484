package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/ensigniasec/render-vtps/internal/summary"
)

func (m exportModel) View() string {
	var b strings.Builder
	status := m.spinner.View()
	label := m.label
	switch {
	case m.finished && m.err != nil:
		status = lipgloss.NewStyle().Foreground(lipgloss.Color(errorColor)).Render("✗")
	case m.finished:
		status = lipgloss.NewStyle().Foreground(lipgloss.Color(okColor)).Render("✓")
	case m.canceling:
		label += lipgloss.NewStyle().Foreground(lipgloss.Color(warnColor)).Render(" (canceling...)")
	}
	b.WriteString(fmt.Sprintf("%s %s\n", status, label))
	b.WriteString(m.progress.ViewAs(m.percent()))
	b.WriteString("\n")
	b.WriteString(renderCounter(m))
	b.WriteString("\n")
	return b.String()
}

func renderCounter(m exportModel) string {
	frames := "sweeping colour range"
	if m.total > 0 {
		frames = fmt.Sprintf("frame %d/%d", m.done, m.total)
	}
	elapsed := summary.HumanDuration(m.now.Sub(m.started))
	return lipgloss.NewStyle().Foreground(lipgloss.Color(mutedColor)).
		Render(fmt.Sprintf("%s • %s elapsed • ctrl+c: cancel", frames, elapsed))
}

func (m pickerModel) View() string {
	var b strings.Builder
	title := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(accentColor)).Render("Colour by which field?")
	b.WriteString(title)
	b.WriteString("\n\n")
	b.WriteString(m.list.View())
	b.WriteString("\n")
	b.WriteString(renderPickerFooter())
	return b.String()
}

func renderPickerFooter() string {
	return lipgloss.NewStyle().Foreground(lipgloss.Color(mutedColor)).
		Render("enter: select • q/esc: keep current • ↑/↓ or j/k: move • /: filter")
}
