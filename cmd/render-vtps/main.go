package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/ensigniasec/render-vtps/internal/config"
	"github.com/ensigniasec/render-vtps/internal/storage"
)

// exitPVPythonNotFound follows the shell convention for "command not found".
const exitPVPythonNotFound = 127

//nolint:gochecknoglobals // Cobra requires package-level vars for flag bindings in current structure.
var (
	// Version metadata populated at build time via -ldflags.
	releaseVersion = "dev"
	commit         = "none"
	date           = "unknown"

	// Used for flags.
	stateFile    = storage.DefaultPath()
	configFile   string
	verbose      bool
	jsonOutput   bool
	tuiMode      bool
	timeDirs     []string
	vtpFilenames []string
	plotRanges   bool

	// flagConfig receives every render flag; loadConfig merges it over --config.
	flagConfig = config.DefaultConfig()

	rootCmd = &cobra.Command{
		Use:   "render-vtps",
		Short: "Batch-render OpenFOAM VTP/VTK time series into a movie with ParaView.",
		Long: `render-vtps discovers OpenFOAM time directories, loads the surface meshes in each one and exports
a movie through ParaView's pvpython. The colour scale is reconciled across every time step so the
whole animation shares one legend, or fixed with --range. Use --interactive-mode to set up the camera
and field by hand before the export.`,
		Args: cobra.NoArgs,
		Run:  runRender,
	}
)

// normalizeFlagName accepts the historical underscore spellings of every flag.
func normalizeFlagName(_ *pflag.FlagSet, name string) pflag.NormalizedName {
	return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
}

//nolint:gochecknoinits // Cobra command wiring performed in init in current structure.
func init() {
	// Route logs to stderr to avoid polluting stdout, especially for --json output.
	logrus.SetOutput(os.Stderr)

	rootCmd.SetGlobalNormalizationFunc(normalizeFlagName)

	pf := rootCmd.PersistentFlags()
	pf.BoolVarP(&verbose, "verbose", "v", false, "Enable detailed logging output")
	pf.BoolVar(&jsonOutput, "json", false, "Output results in JSON format instead of rich text")
	pf.BoolVar(&tuiMode, "tui", false, "Enable TUI mode with a field picker and live export progress")
	pf.StringVar(&stateFile, "state-file", stateFile, "Path of the state file holding camera presets and run history")
	pf.StringVar(&configFile, "config", "", "Optional: YAML run file; explicitly set flags override its values")
	pf.StringArrayVar(&timeDirs, "time-dirs-path", nil,
		"Directory holding the numeric time directories (repeatable, one per dataset; default \".\")")
	pf.StringArrayVar(&vtpFilenames, "vtp-filename", nil,
		"Mesh file to load from each time directory (repeatable, one per --time-dirs-path; default: first one found)")
	pf.StringVar(&flagConfig.Field, "field", "", "Field to colour by (default: first available point scalar)")
	pf.StringVar(&flagConfig.Range, "range", "", "Fixed colour range as 'min,max' or 'min:max' (default: swept over all time steps)")

	f := rootCmd.Flags()
	f.StringVar(&flagConfig.BackgroundColor, "background-color", flagConfig.BackgroundColor,
		"Background colour: white, black, grey, paraview or #rrggbb")
	f.StringVar(&flagConfig.OutputFolder, "output-folder", flagConfig.OutputFolder, "Folder the movie is written to")
	f.StringVar(&flagConfig.AnimationFilename, "animation-filename", flagConfig.AnimationFilename, "Movie file name without extension")
	f.StringVar(&flagConfig.OutputFormat, "output-format", flagConfig.OutputFormat, "Movie file extension, e.g. avi, ogv or png")
	f.StringVar(&flagConfig.Representation, "representation", flagConfig.Representation,
		"Surface, \"Surface With Edges\", Wireframe, Points or Outline")
	f.StringVar(&flagConfig.RenderSize, "render-size", flagConfig.RenderSize, "Render resolution as WxH")
	f.StringVar(&flagConfig.CameraViewPoint, "camera-view-point", "",
		"Camera as 9 numbers: position, focal point and view up, e.g. '[0,0,10, 0,0,0, 0,1,0]'")
	f.StringVar(&flagConfig.CameraPreset, "camera-preset", "", "Use a saved camera preset (see 'camera list'); 'last' is the last interactive camera")
	f.BoolVar(&flagConfig.InteractiveMode, "interactive-mode", false, "Enable interactive camera setup mode")
	f.IntVar(&flagConfig.FPS, "fps", flagConfig.FPS, "Frames per second of the movie")
	f.StringVar(&flagConfig.ReferenceMesh, "reference-mesh", "", "Optional static mesh shown in solid grey for context")
	f.StringVar(&flagConfig.Engine.PVPython, "pvpython", "", "Path to pvpython (default: $PVPYTHON, then PATH)")
	f.BoolVar(&flagConfig.Engine.Offscreen, "offscreen", false, "Force offscreen rendering in pvpython")

	rangesCmd.Flags().BoolVar(&plotRanges, "plot", true, "Plot per-step minimum and maximum")

	rootCmd.AddCommand(fieldsCmd)
	rootCmd.AddCommand(rangesCmd)
	rootCmd.AddCommand(initConfigCmd)

	cameraCmd.AddCommand(cameraListCmd)
	cameraCmd.AddCommand(cameraSaveCmd)
	cameraCmd.AddCommand(cameraShowCmd)
	cameraCmd.AddCommand(cameraDeleteCmd)
	cameraCmd.AddCommand(cameraResetCmd)
	rootCmd.AddCommand(cameraCmd)

	// Built-in version flag: set version string and a custom template.
	rootCmd.Version = releaseVersion
	rootCmd.Annotations = map[string]string{"commit": commit, "date": date}
	rootCmd.SetVersionTemplate("{{printf \"%s %s\\ncommit: %s\\ndate: %s\\n\" .DisplayName .Version (index .Annotations \"commit\") (index .Annotations \"date\")}}")
}

// configureLogging applies --verbose, --json and --tui to the log level.
func configureLogging() {
	if jsonOutput && tuiMode {
		logrus.Fatal("Cannot use --json and --tui flags together")
	}
	switch {
	case verbose:
		logrus.SetLevel(logrus.DebugLevel)
	case jsonOutput || tuiMode:
		logrus.SetLevel(logrus.WarnLevel)
	}
}

// loadConfig builds the run configuration: defaults, then the --config file,
// then every flag the user set explicitly.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if configFile != "" {
		loaded, err := config.Load(configFile)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	cmd.Flags().Visit(func(fl *pflag.Flag) {
		switch fl.Name {
		case "field":
			cfg.Field = flagConfig.Field
		case "range":
			cfg.Range = flagConfig.Range
		case "background-color":
			cfg.BackgroundColor = flagConfig.BackgroundColor
		case "output-folder":
			cfg.OutputFolder = flagConfig.OutputFolder
		case "animation-filename":
			cfg.AnimationFilename = flagConfig.AnimationFilename
		case "output-format":
			cfg.OutputFormat = flagConfig.OutputFormat
		case "representation":
			cfg.Representation = flagConfig.Representation
		case "render-size":
			cfg.RenderSize = flagConfig.RenderSize
		case "camera-view-point":
			cfg.CameraViewPoint = flagConfig.CameraViewPoint
		case "camera-preset":
			cfg.CameraPreset = flagConfig.CameraPreset
		case "interactive-mode":
			cfg.InteractiveMode = flagConfig.InteractiveMode
		case "fps":
			cfg.FPS = flagConfig.FPS
		case "reference-mesh":
			cfg.ReferenceMesh = flagConfig.ReferenceMesh
		case "pvpython":
			cfg.Engine.PVPython = flagConfig.Engine.PVPython
		case "offscreen":
			cfg.Engine.Offscreen = flagConfig.Engine.Offscreen
		}
	})

	changed := cmd.Flags().Changed("time-dirs-path") || cmd.Flags().Changed("vtp-filename")
	if changed || len(cfg.Datasets) == 0 {
		specs, err := config.PairDatasets(timeDirs, vtpFilenames)
		if err != nil {
			return nil, err
		}
		cfg.Datasets = specs
	}
	return cfg, nil
}

func Execute(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		logrus.Fatal(err)
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	Execute(ctx)
}
