package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

//nolint:gochecknoglobals // test binary path is set in TestMain
var testBinaryPath string

// TestMain builds the CLI binary once for the entire package and reuses it.
func TestMain(m *testing.M) {
	dir, err := os.MkdirTemp("", "render-vtps-test-")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create temp dir: %v\n", err)
		os.Exit(1) //nolint:gocritic // Mkdir failed, nothing to cleanup
	}

	bin := filepath.Join(dir, "render-vtps-test")
	cmd := exec.Command("go", "build", "-o", bin, ".")
	if out, err := cmd.CombinedOutput(); err != nil {
		fmt.Fprintf(os.Stderr, "failed to build test binary: %v\nOutput: %s\n", err, string(out))
		os.RemoveAll(dir)
		os.Exit(1)
	}
	testBinaryPath = bin

	code := m.Run()
	os.RemoveAll(dir)
	os.Exit(code)
}

// newCmd runs the test binary against a private state file.
func newCmd(t *testing.T, args ...string) *exec.Cmd {
	t.Helper()
	if testBinaryPath == "" {
		t.Fatalf("test binary not built")
	}
	state := filepath.Join(t.TempDir(), "state.json")
	return exec.Command(testBinaryPath, append([]string{"--state-file", state}, args...)...)
}

// writeCase lays out <root>/<time>/wall.vtp with p taking the given values.
func writeCase(t *testing.T, steps map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for dir, values := range steps {
		doc := fmt.Sprintf(`<VTKFile type="PolyData"><PolyData><Piece>
<PointData><DataArray type="Float32" Name="p" format="ascii">%s</DataArray>
<DataArray type="Float32" Name="U" NumberOfComponents="3" format="ascii">0 0 1</DataArray></PointData>
<CellData><DataArray type="Float64" Name="rho" format="ascii">1.2</DataArray></CellData>
</Piece></PolyData></VTKFile>`, values)
		require.NoError(t, os.MkdirAll(filepath.Join(root, dir), 0o755))
		require.NoError(t, os.WriteFile(filepath.Join(root, dir, "wall.vtp"), []byte(doc), 0o600))
	}
	require.NoError(t, os.MkdirAll(filepath.Join(root, "constant"), 0o755))
	return root
}

func threeSteps(t *testing.T) string {
	t.Helper()
	return writeCase(t, map[string]string{"0": "0 1", "0.5": "2 3", "1": "0.5 4"})
}

func exitCode(err error) int {
	var ee *exec.ExitError
	if errors.As(err, &ee) {
		return ee.ExitCode()
	}
	return 0
}

func TestCLI_HelpOutput(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		contains []string
	}{
		{
			name: "root help",
			args: []string{"--help"},
			contains: []string{
				"render-vtps",
				"ParaView",
				"--time-dirs-path",
				"--vtp-filename",
				"--camera-view-point",
				"--interactive-mode",
				"--range",
				"fields",
				"ranges",
				"camera",
			},
		},
		{
			name:     "ranges help",
			args:     []string{"ranges", "--help"},
			contains: []string{"no ParaView needed", "--plot", "--field", "--json"},
		},
		{
			name:     "camera help",
			args:     []string{"camera", "--help"},
			contains: []string{"list", "save", "show", "delete", "reset"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := newCmd(t, tt.args...).CombinedOutput()
			require.NoError(t, err, string(out))
			for _, s := range tt.contains {
				assert.Contains(t, string(out), s)
			}
		})
	}
}

func TestCLI_Version(t *testing.T) {
	out, err := newCmd(t, "--version").CombinedOutput()
	require.NoError(t, err)
	assert.Contains(t, string(out), "render-vtps dev")
	assert.Contains(t, string(out), "commit: none")
}

func TestCLI_InvalidInputFailsBeforeEngine(t *testing.T) {
	root := threeSteps(t)

	tests := []struct {
		name    string
		args    []string
		message string
	}{
		{
			name:    "range with min above max",
			args:    []string{"--time-dirs-path", root, "--range", "5,1"},
			message: "min < max",
		},
		{
			name:    "unparseable range",
			args:    []string{"--time-dirs-path", root, "--range", "abc"},
			message: "invalid range 'abc'",
		},
		{
			name:    "bad render size",
			args:    []string{"--time-dirs-path", root, "--render-size", "1280by720"},
			message: "1280by720",
		},
		{
			name:    "mismatched filenames",
			args:    []string{"--time-dirs-path", root, "--time-dirs-path", root, "--vtp-filename", "wall.vtp"},
			message: "one filename per root",
		},
		{
			name:    "requested file missing",
			args:    []string{"--time-dirs-path", root, "--vtp-filename", "inlet.vtp", "fields"},
			message: "inlet.vtp",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := newCmd(t, tt.args...).CombinedOutput()
			require.Error(t, err)
			assert.NotEqual(t, 0, exitCode(err))
			assert.Contains(t, string(out), tt.message)
		})
	}
}

func TestCLI_MissingPVPython(t *testing.T) {
	root := threeSteps(t)
	cmd := newCmd(t, "--time-dirs-path", root, "--pvpython", filepath.Join(t.TempDir(), "no-such-pvpython"),
		"--output-folder", t.TempDir())
	cmd.Env = append(os.Environ(), "PVPYTHON=", "PATH="+t.TempDir())
	out, err := cmd.CombinedOutput()
	require.Error(t, err)
	assert.Equal(t, exitPVPythonNotFound, exitCode(err))
	assert.Contains(t, string(out), "pvpython not found")
}

func TestCLI_UnusableStateFile(t *testing.T) {
	corrupt := filepath.Join(t.TempDir(), "state.json")
	require.NoError(t, os.WriteFile(corrupt, []byte("{not json"), 0o600))
	regular := filepath.Join(t.TempDir(), "plain")
	require.NoError(t, os.WriteFile(regular, []byte("x"), 0o600))

	tests := []struct {
		name     string
		state    string
		extra    []string
		wantCode int
		wantOut  string
	}{
		{name: "corrupt json", state: corrupt, wantCode: exitPVPythonNotFound, wantOut: "pvpython not found"},
		{name: "path under a regular file", state: filepath.Join(regular, "state.json"), wantCode: exitPVPythonNotFound, wantOut: "pvpython not found"},
		{name: "camera preset needs state", state: corrupt, extra: []string{"--camera-preset", "last"}, wantCode: 1, wantOut: "state file"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := threeSteps(t)
			args := []string{
				"--state-file", tt.state,
				"--time-dirs-path", root,
				"--pvpython", filepath.Join(t.TempDir(), "no-such-pvpython"),
				"--output-folder", t.TempDir(),
			}
			cmd := exec.Command(testBinaryPath, append(args, tt.extra...)...)
			cmd.Env = append(os.Environ(), "PVPYTHON=", "PATH="+t.TempDir())
			out, err := cmd.CombinedOutput()
			require.Error(t, err)
			assert.Equal(t, tt.wantCode, exitCode(err), string(out))
			assert.Contains(t, string(out), tt.wantOut)
		})
	}
}

func TestCLI_Fields(t *testing.T) {
	root := threeSteps(t)

	out, err := newCmd(t, "--time_dirs_path", root, "fields", "--json").Output()
	require.NoError(t, err)

	var got []map[string]any
	require.NoError(t, json.Unmarshal(out, &got))
	require.Len(t, got, 1)
	assert.Equal(t, "wall", got[0]["name"])
	assert.InDelta(t, 3, got[0]["steps"], 0)
	assert.Equal(t, []any{0.0, 0.5, 1.0}, got[0]["times"])
	assert.Equal(t, "p", got[0]["selected"].(map[string]any)["name"])

	out, err = newCmd(t, "--time-dirs-path", root, "--field", "rho", "fields").Output()
	require.NoError(t, err)
	text := string(out)
	assert.Contains(t, text, "wall (wall.vtp, 3 steps, t=0..1)")
	assert.Regexp(t, `\*\s+rho\s+CELLS`, text)
}

func TestCLI_Ranges(t *testing.T) {
	root := threeSteps(t)

	out, err := newCmd(t, "--time-dirs-path", root, "ranges", "--json").Output()
	require.NoError(t, err)
	var table struct {
		Datasets []string `json:"datasets"`
		Result   struct {
			Range    map[string]float64 `json:"range"`
			Observed bool               `json:"observed"`
			Fixed    bool               `json:"fixed"`
			Steps    []any              `json:"steps"`
		} `json:"result"`
	}
	require.NoError(t, json.Unmarshal(out, &table))
	assert.Equal(t, []string{"wall"}, table.Datasets)
	assert.True(t, table.Result.Observed)
	assert.InDelta(t, 0, table.Result.Range["min"], 0)
	assert.InDelta(t, 4, table.Result.Range["max"], 0)
	assert.Len(t, table.Result.Steps, 3)

	out, err = newCmd(t, "--time-dirs-path", root, "--range", "0:10", "ranges").Output()
	require.NoError(t, err)
	assert.Contains(t, string(out), "Colour range: [0, 10] (fixed)")

	out, err = newCmd(t, "--time-dirs-path", root, "ranges").Output()
	require.NoError(t, err)
	assert.Contains(t, string(out), "Colour range: [0, 4]")
	assert.Contains(t, string(out), "p min/max per step")
}

func TestCLI_ConfigFileAndOverrides(t *testing.T) {
	root := threeSteps(t)
	cfgPath := filepath.Join(t.TempDir(), "render.yaml")
	yaml := fmt.Sprintf("datasets:\n  - root: %q\nfield: rho\nrange: \"1,2\"\n", root)
	require.NoError(t, os.WriteFile(cfgPath, []byte(yaml), 0o600))

	out, err := newCmd(t, "--config", cfgPath, "ranges").Output()
	require.NoError(t, err)
	assert.Contains(t, string(out), "Field rho [CELLS]")
	assert.Contains(t, string(out), "[1, 2] (fixed)")

	out, err = newCmd(t, "--config", cfgPath, "--range", "3,4", "--field", "p", "ranges").Output()
	require.NoError(t, err)
	assert.Contains(t, string(out), "Field p [POINTS]")
	assert.Contains(t, string(out), "[3, 4] (fixed)")
}

func TestCLI_InitConfig(t *testing.T) {
	root := threeSteps(t)
	path := filepath.Join(t.TempDir(), "render.yaml")
	out, err := newCmd(t, "--time-dirs-path", root, "--field", "p", "init-config", path).CombinedOutput()
	require.NoError(t, err, string(out))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "field: p")
	assert.Contains(t, string(data), root)
	assert.Contains(t, string(data), "render_size: 1280x720")
}

func TestCLI_CameraPresets(t *testing.T) {
	state := filepath.Join(t.TempDir(), "state.json")
	run := func(args ...string) (string, error) {
		out, err := exec.Command(testBinaryPath, append([]string{"--state-file", state}, args...)...).CombinedOutput()
		return string(out), err
	}

	out, err := run("camera", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "No camera presets saved.")

	out, err = run("camera", "save", "front", "[0, 0, 10, 0, 0, 0, 0, 1, 0]")
	require.NoError(t, err, out)
	assert.Contains(t, out, "Camera preset 'front' saved")

	out, err = run("camera", "show", "front")
	require.NoError(t, err)
	assert.Equal(t, "[0,0,10,0,0,0,0,1,0]", strings.TrimSpace(out))

	out, err = run("camera")
	require.NoError(t, err)
	assert.Contains(t, out, "front: [0,0,10,0,0,0,0,1,0]")

	_, err = run("camera", "save", "bad", "[0,0,0, 0,0,0, 0,1,0]")
	require.Error(t, err, "position equal to focal point is degenerate")

	_, err = run("camera", "show", "missing")
	require.Error(t, err)

	out, err = run("camera", "delete", "front")
	require.NoError(t, err, out)
	out, err = run("camera", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "No camera presets saved.")

	_, err = run("camera", "save", "side", "1,0,0,0,0,0,0,0,1")
	require.NoError(t, err)
	_, err = run("camera", "reset")
	require.NoError(t, err)
	out, err = run("camera", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "No camera presets saved.")
}
