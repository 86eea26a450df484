package main

import (
	"context"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/ensigniasec/render-vtps/internal/colorrange"
	"github.com/ensigniasec/render-vtps/internal/config"
	"github.com/ensigniasec/render-vtps/internal/discovery"
	"github.com/ensigniasec/render-vtps/internal/engine"
	"github.com/ensigniasec/render-vtps/internal/engine/native"
	"github.com/ensigniasec/render-vtps/internal/fields"
	"github.com/ensigniasec/render-vtps/internal/summary"
	"github.com/ensigniasec/render-vtps/internal/timeline"
)

// openNative discovers the datasets of plan and opens each one as a series in
// a native engine, pinned to its first step.
func openNative(ctx context.Context, plan *config.Plan) (*native.Engine, []discovery.Dataset, []engine.Pipeline, error) {
	datasets, err := discovery.DiscoverAll(ctx, plan.Datasets)
	if err != nil {
		return nil, nil, nil, err
	}
	eng := native.New()
	pipes := make([]engine.Pipeline, 0, len(datasets))
	for _, ds := range datasets {
		p, err := eng.OpenSeries(ctx, engine.Series{Name: ds.Name, Files: ds.Files(), Times: ds.Times()})
		if err != nil {
			_ = eng.Close()
			return nil, nil, nil, fmt.Errorf("open %s: %w", ds.Name, err)
		}
		if err := eng.Update(ctx, p, nil); err != nil {
			logrus.WithField("dataset", ds.Name).Warnf("Reading first step failed: %v", err)
		}
		pipes = append(pipes, p)
	}
	return eng, datasets, pipes, nil
}

func resolvePlan(cmd *cobra.Command) *config.Plan {
	configureLogging()
	cfg, err := loadConfig(cmd)
	if err != nil {
		logrus.Fatalf("Invalid configuration: %v", err)
	}
	plan, err := cfg.Resolve()
	if err != nil {
		logrus.Fatalf("Invalid configuration: %v", err)
	}
	return plan
}

//nolint:gochecknoglobals // Cobra command is defined at package scope in current structure.
var fieldsCmd = &cobra.Command{
	Use:   "fields",
	Short: "List the arrays of every dataset and the field a render would colour by",
	Long: `Read the first time step of every dataset directly (no ParaView needed) and list its point and
cell arrays. The field marked with '*' is the one a render would colour by.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, _ []string) {
		plan := resolvePlan(cmd)
		ctx := cmd.Context()
		eng, datasets, pipes, err := openNative(ctx, plan)
		if err != nil {
			logrus.Fatal(err)
		}
		defer eng.Close()

		out := make([]summary.DatasetFields, 0, len(datasets))
		for i, ds := range datasets {
			arrays, err := eng.Arrays(ctx, pipes[i])
			if err != nil {
				logrus.WithField("dataset", ds.Name).Warnf("Reading arrays failed: %v", err)
			}
			sel := fields.Select(arrays, plan.Field)
			out = append(out, summary.DatasetFields{
				Name:     ds.Name,
				Root:     ds.Root,
				Filename: ds.Filename,
				Steps:    len(ds.Steps),
				Times:    ds.Times(),
				Arrays:   arrays,
				Selected: sel.Field,
				Warning:  sel.Warning,
			})
		}
		if err := summary.PrintFields(os.Stdout, out, jsonOutput); err != nil {
			logrus.Fatal(err)
		}
	},
}

//nolint:gochecknoglobals // Cobra command is defined at package scope in current structure.
var rangesCmd = &cobra.Command{
	Use:   "ranges",
	Short: "Compute the colour range a render would use, step by step",
	Long: `Sweep every time step of every dataset directly (no ParaView needed) and print the per-step range
of the selected field, the reconciled colour range and an optional plot. With --range the fixed
range is reported and no sweep runs.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, _ []string) {
		plan := resolvePlan(cmd)
		ctx := cmd.Context()
		eng, datasets, pipes, err := openNative(ctx, plan)
		if err != nil {
			logrus.Fatal(err)
		}
		defer eng.Close()

		arrays, err := eng.Arrays(ctx, pipes[0])
		if err != nil {
			logrus.Fatalf("Reading arrays of %s: %v", datasets[0].Name, err)
		}
		sel := fields.Select(arrays, plan.Field)
		if sel.Field.IsZero() {
			logrus.Fatalf("No scalar field to colour by in %s", datasets[0].Filename)
		}

		axis, err := timeline.Sync(ctx, eng)
		if err != nil {
			logrus.Warnf("Time keeper sync failed: %v", err)
		}
		res, err := colorrange.Reconcile(ctx, eng, axis, sel.Field, pipes, plan.FixedRange)
		if err != nil {
			logrus.Fatal(err)
		}

		names := make([]string, 0, len(datasets))
		for _, ds := range datasets {
			names = append(names, ds.Name)
		}
		table := summary.RangeTable{Field: sel.Field, Datasets: names, Result: res}
		if err := summary.PrintRanges(os.Stdout, table, plotRanges, jsonOutput); err != nil {
			logrus.Fatal(err)
		}
	},
}

//nolint:gochecknoglobals // Cobra command is defined at package scope in current structure.
var initConfigCmd = &cobra.Command{
	Use:   "init-config PATH",
	Short: "Write the effective run configuration to a YAML file",
	Long:  "Write the defaults, merged with --config and any flags given, to PATH for use with --config.",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		configureLogging()
		cfg, err := loadConfig(cmd)
		if err != nil {
			logrus.Fatalf("Invalid configuration: %v", err)
		}
		if _, err := cfg.Resolve(); err != nil {
			logrus.Fatalf("Invalid configuration: %v", err)
		}
		if err := config.Save(args[0], cfg); err != nil {
			logrus.Fatal(err)
		}
		fmt.Fprintf(os.Stdout, "Configuration written to %s\n", args[0])
	},
}
