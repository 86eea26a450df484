package session

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/ensigniasec/render-vtps/internal/config"
	"github.com/ensigniasec/render-vtps/internal/engine"
	"github.com/ensigniasec/render-vtps/internal/fields"
)

// Picker lets the user choose a colouring field after interaction.
// It returns false to keep the current field.
type Picker interface {
	PickField(ctx context.Context, choices []engine.FieldRef, current engine.FieldRef) (engine.FieldRef, bool, error)
}

const interactiveTips = `Entering interactive mode. Adjust camera, then close the window to continue.

Interactive tips:
  - Drag to orbit/pan; scroll to zoom.
  - Press 'r' to reset the camera to fit all visible data.
  - Close the window to continue.
`

// Interactive hands the view to the user until the window closes, captures the
// camera, offers a field choice and prints the camera as a reusable flag.
func (s *Session) Interactive(ctx context.Context, out io.Writer, picker Picker) (engine.Camera, error) {
	fmt.Fprint(out, interactiveTips)

	engine.Try("render", s.eng.Render(ctx, s.view)).Log(s.log)
	if err := s.eng.Interact(ctx, s.view); err != nil {
		if !errors.Is(err, engine.ErrNotSupported) {
			return engine.Camera{}, fmt.Errorf("interact: %w", err)
		}
		s.log.Warn("Engine cannot run an interactive window; keeping the current camera.")
	}

	cam, err := s.eng.Camera(ctx, s.view)
	if err != nil {
		return engine.Camera{}, fmt.Errorf("capture camera: %w", err)
	}
	s.camera = &cam

	choices := fields.Choices(s.Arrays)
	if len(choices) == 0 {
		fmt.Fprintln(out, "No fields available for interactive selection.")
	} else if picker != nil {
		picked, ok, err := picker.PickField(ctx, choices, s.Field)
		if err != nil {
			return cam, err
		}
		if ok {
			s.SetField(ctx, picked)
			fmt.Fprintf(out, "Selected field: %s [%s]\n", picked.Name, picked.Assoc)
		}
	}

	fmt.Fprintln(out, "Reusable camera for future runs:")
	fmt.Fprintf(out, "--camera-view-point '%s'\n", config.FormatCamera(cam))

	engine.Try("render", s.eng.Render(ctx, s.view)).Log(s.log)
	fmt.Fprintln(out, "Exiting interactive mode.")
	return cam, nil
}

// PromptPicker is a numbered stdin prompt for terminals without a TUI.
type PromptPicker struct {
	In  io.Reader
	Out io.Writer
}

func (p PromptPicker) PickField(
	_ context.Context,
	choices []engine.FieldRef,
	_ engine.FieldRef,
) (engine.FieldRef, bool, error) {
	fmt.Fprintln(p.Out, "Available fields:")
	for i, c := range choices {
		fmt.Fprintf(p.Out, "  %d: %s [%s]\n", i, c.Name, c.Assoc)
	}
	fmt.Fprint(p.Out, "Enter the number of the field to visualize (or press Enter to keep current): ")

	line, err := bufio.NewReader(p.In).ReadString('\n')
	switch {
	case errors.Is(err, io.EOF) && line == "":
		fmt.Fprintln(p.Out, "\nInput stream closed; keeping current field.")
		return engine.FieldRef{}, false, nil
	case err != nil && !errors.Is(err, io.EOF):
		return engine.FieldRef{}, false, err
	}

	answer := strings.TrimSpace(line)
	if answer == "" {
		return engine.FieldRef{}, false, nil
	}
	if strings.Trim(answer, "0123456789") != "" {
		fmt.Fprintln(p.Out, "Unrecognized input. Keeping current field.")
		return engine.FieldRef{}, false, nil
	}
	idx, err := strconv.Atoi(answer)
	if err != nil || idx >= len(choices) {
		fmt.Fprintln(p.Out, "Index out of range. Keeping current field.")
		return engine.FieldRef{}, false, nil
	}
	return choices[idx], true, nil
}
