package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/ensigniasec/render-vtps/internal/config"
	"github.com/ensigniasec/render-vtps/internal/presets"
)

func presetManager() *presets.Manager {
	m, err := presets.NewManager(stateFile)
	if err != nil {
		logrus.Fatal(err)
	}
	return m
}

//nolint:gochecknoglobals // Cobra command is defined at package scope in current structure.
var cameraCmd = &cobra.Command{
	Use:   "camera",
	Short: "Manage saved camera presets",
	Long:  "View, save, show, delete or reset named camera presets. Presets are used with --camera-preset.",
	Run: func(cmd *cobra.Command, args []string) {
		presetManager().View(os.Stdout)
	},
}

//nolint:gochecknoglobals // Cobra command is defined at package scope in current structure.
var cameraListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved camera presets",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		presetManager().View(os.Stdout)
	},
}

//nolint:gochecknoglobals // Cobra command is defined at package scope in current structure.
var cameraSaveCmd = &cobra.Command{
	Use:   "save NAME CAMERA",
	Short: "Save a camera preset",
	Long:  "Save CAMERA (9 numbers: position, focal point, view up) under NAME, e.g. save front '[0,0,10,0,0,0,0,1,0]'.",
	Args:  cobra.ExactArgs(2), //nolint:mnd // 'save' requires a name and a camera by CLI contract
	Run: func(cmd *cobra.Command, args []string) {
		cam, err := config.ParseCamera(args[1])
		if err != nil {
			logrus.Fatal(err)
		}
		if cam == nil {
			logrus.Fatal("Camera must not be empty")
		}
		if err := presetManager().Save(args[0], *cam); err != nil {
			logrus.Fatal(err)
		}
		fmt.Fprintf(os.Stdout, "Camera preset '%s' saved\n", args[0])
	},
}

//nolint:gochecknoglobals // Cobra command is defined at package scope in current structure.
var cameraShowCmd = &cobra.Command{
	Use:   "show NAME",
	Short: "Print a camera preset as a reusable --camera-view-point value",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		cam, err := presetManager().Get(args[0])
		if err != nil {
			logrus.Fatal(err)
		}
		fmt.Fprintln(os.Stdout, config.FormatCamera(cam))
	},
}

//nolint:gochecknoglobals // Cobra command is defined at package scope in current structure.
var cameraDeleteCmd = &cobra.Command{
	Use:   "delete NAME",
	Short: "Delete a camera preset",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if err := presetManager().Delete(args[0]); err != nil {
			logrus.Fatal(err)
		}
		fmt.Fprintf(os.Stdout, "Camera preset '%s' deleted\n", args[0])
	},
}

//nolint:gochecknoglobals // Cobra command is defined at package scope in current structure.
var cameraResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Remove every camera preset and the last interactive camera",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		if err := presetManager().Reset(); err != nil {
			logrus.Fatal(err)
		}
		fmt.Fprintln(os.Stdout, "Camera presets cleared")
	},
}
