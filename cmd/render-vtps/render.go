package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/mattn/go-isatty"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/ensigniasec/render-vtps/internal/animation"
	"github.com/ensigniasec/render-vtps/internal/config"
	"github.com/ensigniasec/render-vtps/internal/discovery"
	"github.com/ensigniasec/render-vtps/internal/engine/pvpython"
	"github.com/ensigniasec/render-vtps/internal/presets"
	"github.com/ensigniasec/render-vtps/internal/session"
	"github.com/ensigniasec/render-vtps/internal/storage"
	"github.com/ensigniasec/render-vtps/internal/summary"
	"github.com/ensigniasec/render-vtps/internal/tui"
)

func runRender(cmd *cobra.Command, _ []string) {
	configureLogging()

	cfg, err := loadConfig(cmd)
	if err != nil {
		logrus.Fatalf("Invalid configuration: %v", err)
	}
	plan, err := cfg.Resolve()
	if err != nil {
		logrus.Fatalf("Invalid configuration: %v", err)
	}

	rep, err := render(cmd.Context(), plan)
	if errors.Is(err, pvpython.ErrPVPythonNotFound) {
		logrus.Error(err)
		os.Exit(exitPVPythonNotFound)
	}
	if err != nil {
		logrus.Fatal(err)
	}
	if err := summary.Print(os.Stdout, rep, jsonOutput); err != nil {
		logrus.Fatal(err)
	}
}

// render runs one export: discovery, engine start, scene bootstrap, optional
// interactive setup and the movie export. The run is recorded in the state
// file whether it succeeds or not. An unusable state file only stops the run
// when a camera preset has to be read from it.
func render(ctx context.Context, plan *config.Plan) (animation.Report, error) {
	datasets, err := discovery.DiscoverAll(ctx, plan.Datasets)
	if err != nil {
		return animation.Report{}, err
	}

	st, err := storage.NewOrExistingStorage(stateFile)
	if err != nil {
		if plan.CameraPreset != "" {
			return animation.Report{}, fmt.Errorf("unable to open or create state file: %w", err)
		}
		logrus.WithField("path", stateFile).
			Warnf("State file unavailable; camera and run history will not be saved: %v", err)
		st = nil
	}

	camera := plan.Camera
	if plan.CameraPreset != "" {
		cameras := &presets.Manager{Storage: st}
		cam, err := cameras.Get(plan.CameraPreset)
		if err != nil {
			return animation.Report{}, err
		}
		camera = &cam
	}

	eng, err := pvpython.Start(ctx, pvpython.Config{
		PVPython:  plan.Engine.PVPython,
		Args:      plan.Engine.Args,
		Offscreen: plan.Engine.Offscreen,
	})
	if err != nil {
		return animation.Report{}, err
	}
	defer func() {
		if err := eng.Close(); err != nil {
			logrus.Debugf("closing rendering engine: %v", err)
		}
	}()
	logrus.WithField("version", eng.Version()).Info("Connected to ParaView")

	sess, err := session.Open(ctx, eng, session.Options{
		Size:           plan.Size,
		Background:     plan.Background,
		Representation: plan.Representation,
		Field:          plan.Field,
		Camera:         camera,
	}, datasets, plan.ReferenceMesh)
	if err != nil {
		return animation.Report{}, err
	}
	defer func() {
		if err := sess.Close(context.WithoutCancel(ctx)); err != nil {
			logrus.Debugf("closing session: %v", err)
		}
	}()

	if plan.Interactive {
		cam, err := sess.Interactive(ctx, messageWriter(), pickerFor())
		if err != nil {
			return animation.Report{}, err
		}
		if st != nil {
			cameras := &presets.Manager{Storage: st}
			if err := cameras.Remember(cam); err != nil {
				logrus.Warnf("Unable to remember camera: %v", err)
			}
		}
	}

	opts := animation.Options{
		Output:     plan.Output,
		Size:       plan.Size,
		FPS:        plan.FPS,
		FixedRange: plan.FixedRange,
	}
	rep, exportErr := export(ctx, sess, opts)
	if st != nil {
		recordRun(st, plan, rep, exportErr)
	}
	return rep, exportErr
}

// export runs the exporter, behind the progress view in TUI mode.
func export(ctx context.Context, sess *session.Session, opts animation.Options) (animation.Report, error) {
	if !tuiMode {
		return animation.Export(ctx, sess, opts)
	}
	var rep animation.Report
	err := tui.RunExport(ctx, "Rendering "+opts.Output.Path(), func(ctx context.Context, progress func(done, total int)) error {
		opts.Progress = progress
		var err error
		rep, err = animation.Export(ctx, sess, opts)
		return err
	})
	return rep, err
}

func recordRun(st *storage.Storage, plan *config.Plan, rep animation.Report, exportErr error) {
	rec := storage.RunRecord{
		Path:      plan.Output.Path(),
		Frames:    rep.Frames,
		Field:     rep.Field,
		Range:     rep.Range,
		StartedAt: rep.StartedAt,
		Duration:  rep.Duration,
	}
	if rep.RunID != uuid.Nil {
		rec.ID = rep.RunID.String()
	}
	if rec.StartedAt.IsZero() {
		rec.StartedAt = time.Now()
	}
	if exportErr != nil {
		rec.Error = exportErr.Error()
	}
	if err := st.RecordRun(rec); err != nil {
		logrus.Warnf("Unable to record run in state file: %v", err)
	}
}

func stdinIsTerminal() bool {
	return isatty.IsTerminal(os.Stdin.Fd()) || isatty.IsCygwinTerminal(os.Stdin.Fd())
}

// pickerFor returns the list picker on a terminal and the numbered prompt
// otherwise.
func pickerFor() session.Picker {
	if stdinIsTerminal() && isatty.IsTerminal(os.Stdout.Fd()) {
		return tui.Picker{}
	}
	return session.PromptPicker{In: os.Stdin, Out: messageWriter()}
}

// messageWriter keeps stdout clean for --json.
func messageWriter() io.Writer {
	if jsonOutput {
		return os.Stderr
	}
	return os.Stdout
}
