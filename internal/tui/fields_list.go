package tui

import (
	"fmt"
	"io"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/ensigniasec/render-vtps/internal/engine"
)

// fieldItem is the list item backing one scalar field.
type fieldItem struct {
	Ref     engine.FieldRef
	Current bool
}

// List item interface methods.
func (it fieldItem) Title() string       { return it.Ref.Name }
func (it fieldItem) Description() string { return it.Ref.Assoc.String() }
func (it fieldItem) FilterValue() string { return it.Ref.Name + " " + it.Ref.Assoc.String() }

// fieldDelegate renders fieldItem rows with the association right-justified.
type fieldDelegate struct{}

func (d fieldDelegate) Height() int                             { return 1 }
func (d fieldDelegate) Spacing() int                            { return 0 }
func (d fieldDelegate) Update(_ tea.Msg, _ *list.Model) tea.Cmd { return nil }

func (d fieldDelegate) Render(w io.Writer, m list.Model, index int, listItem list.Item) {
	it, ok := listItem.(fieldItem)
	if !ok {
		return
	}
	selected := index == m.Index()
	leftPrefix := "  "
	lineStyle := lipgloss.NewStyle()
	if selected {
		leftPrefix = "> "
		lineStyle = lineStyle.Foreground(lipgloss.Color(accentColor)).Bold(true)
	}

	left := fmt.Sprintf("%s%02d. %s", leftPrefix, index+1, it.Ref.Name)
	right := it.Ref.Assoc.String()
	if it.Current {
		right += " " + lipgloss.NewStyle().Foreground(lipgloss.Color(okColor)).Render("●")
	}

	padding := max(m.Width()-lipgloss.Width(left)-lipgloss.Width(right), 1)
	line := left + spaces(padding) + right
	_, _ = fmt.Fprint(w, lineStyle.Render(line))
}

func spaces(n int) string {
	if n <= 0 {
		return ""
	}
	return lipgloss.NewStyle().Width(n).Render("")
}
