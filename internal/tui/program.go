// Package tui holds the terminal views of render-vtps: a field picker for
// interactive mode and a progress view for exports.
package tui

import (
	"context"
	"errors"
	"io"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/sirupsen/logrus"

	"github.com/ensigniasec/render-vtps/internal/engine"
)

// silenceLogs routes logrus to io.Discard while a program owns the terminal
// and returns the function that restores it.
func silenceLogs() func() {
	prevOut := logrus.StandardLogger().Out
	logrus.SetOutput(io.Discard)
	return func() { logrus.SetOutput(prevOut) }
}

// ExportFunc runs an export, reporting rendered frames through progress.
type ExportFunc func(ctx context.Context, progress func(done, total int)) error

// RunExport runs job in the background while drawing its progress. Pressing
// ctrl+c cancels job's context; RunExport still waits for job to return and
// returns its error.
func RunExport(ctx context.Context, label string, job ExportFunc, opts ...tea.ProgramOption) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	progressCh := make(chan progressMsg, channelBufferSize)
	doneCh := make(chan exportDoneMsg, 1)
	model := newExportModel(label, progressCh, doneCh, cancel)

	report := func(done, total int) {
		select {
		case progressCh <- progressMsg{Done: done, Total: total}:
		default:
			// The view only needs the latest count.
		}
	}

	var jobErr error
	jobDone := make(chan struct{})
	go func() {
		err := job(ctx, report)
		close(progressCh)
		jobErr = err
		close(jobDone)
		doneCh <- exportDoneMsg{Err: err}
	}()

	p := tea.NewProgram(model, opts...)

	// Silence external logs (WARN/ERRO) during TUI to avoid corrupting the view.
	restore := silenceLogs()
	final, runErr := p.Run()
	restore()

	if fm, ok := final.(exportModel); ok && fm.finished {
		return fm.err
	}
	// The program stopped before the job did; let the job wind down.
	cancel()
	<-jobDone
	return errors.Join(runErr, jobErr)
}

// Picker chooses the colouring field from a list. It implements
// session.Picker.
type Picker struct {
	In  io.Reader
	Out io.Writer
}

// PickField shows choices with current highlighted. It returns false when the
// user keeps the current field.
func (p Picker) PickField(ctx context.Context, choices []engine.FieldRef, current engine.FieldRef) (engine.FieldRef, bool, error) {
	if len(choices) == 0 {
		return current, false, nil
	}
	opts := []tea.ProgramOption{tea.WithContext(ctx)}
	if p.In != nil {
		opts = append(opts, tea.WithInput(p.In))
	}
	if p.Out != nil {
		opts = append(opts, tea.WithOutput(p.Out))
	}
	prog := tea.NewProgram(newPickerModel(choices, current), opts...)

	restore := silenceLogs()
	final, err := prog.Run()
	restore()
	if err != nil {
		return current, false, err
	}
	fm, ok := final.(pickerModel)
	if !ok || !fm.chosen {
		return current, false, nil
	}
	return fm.choice, true, nil
}
