package tui

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/ensigniasec/render-vtps/internal/engine"
)

// exportModel shows a spinner and a frame progress bar while an export runs.
type exportModel struct {
	label     string
	started   time.Time
	now       time.Time
	done      int
	total     int
	width     int
	finished  bool
	canceling bool
	err       error

	spinner  spinner.Model
	progress progress.Model

	// inbound messages from the export goroutine
	progressCh <-chan progressMsg
	doneCh     <-chan exportDoneMsg
	cancel     context.CancelFunc

	keys keyMap
}

func newExportModel(label string, progressCh <-chan progressMsg, doneCh <-chan exportDoneMsg, cancel context.CancelFunc) exportModel {
	sp := spinner.New(
		spinner.WithSpinner(spinner.Dot),
		spinner.WithStyle(lipgloss.NewStyle().Foreground(lipgloss.Color(accentColor))),
	)
	p := progress.New(progress.WithDefaultGradient(), progress.WithWidth(progressMaxWidth))
	now := time.Now()
	return exportModel{
		label:      label,
		started:    now,
		now:        now,
		spinner:    sp,
		progress:   p,
		progressCh: progressCh,
		doneCh:     doneCh,
		cancel:     cancel,
		keys:       newKeyMap(),
	}
}

// Init implements tea.Model.
func (m exportModel) Init() tea.Cmd {
	return tea.Batch(
		m.spinner.Tick,
		m.listenForProgress(),
		m.listenForDone(),
		m.tickElapsed(),
	)
}

// listenForProgress returns a Tea command that waits for the next progressMsg.
// A closed channel yields no message.
func (m exportModel) listenForProgress() tea.Cmd {
	return func() tea.Msg {
		msg, ok := <-m.progressCh
		if !ok {
			return nil
		}
		return msg
	}
}

// listenForDone returns a Tea command that waits for the export result.
func (m exportModel) listenForDone() tea.Cmd {
	return func() tea.Msg {
		return <-m.doneCh
	}
}

// tickElapsed schedules the next elapsed-time refresh.
func (m exportModel) tickElapsed() tea.Cmd {
	return tea.Tick(elapsedTickInterval, func(t time.Time) tea.Msg {
		return tickElapsedMsg(t)
	})
}

func (m exportModel) percent() float64 {
	if m.total <= 0 {
		return 0
	}
	pct := float64(m.done) / float64(m.total)
	if pct > 1 {
		pct = 1
	}
	return pct
}

// pickerModel is a one-shot list for choosing the colouring field.
type pickerModel struct {
	list    list.Model
	current engine.FieldRef
	choice  engine.FieldRef
	chosen  bool
	keys    keyMap
}

func newPickerModel(choices []engine.FieldRef, current engine.FieldRef) pickerModel {
	items := make([]list.Item, 0, len(choices))
	selected := 0
	for i, c := range choices {
		items = append(items, fieldItem{Ref: c, Current: c == current})
		if c == current {
			selected = i
		}
	}
	lst := list.New(items, fieldDelegate{}, defaultListWidth, defaultListHeight)
	lst.SetShowTitle(false)
	lst.SetShowStatusBar(false)
	lst.SetFilteringEnabled(true)
	lst.SetShowHelp(false)
	lst.SetShowPagination(true)
	lst.Select(selected)
	return pickerModel{
		list:    lst,
		current: current,
		keys:    newKeyMap(),
	}
}

// Init implements tea.Model.
func (m pickerModel) Init() tea.Cmd { return nil }
