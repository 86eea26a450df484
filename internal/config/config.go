package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ensigniasec/render-vtps/internal/engine"
	"github.com/ensigniasec/render-vtps/internal/validate"
)

const (
	DefaultBackground     = "white"
	DefaultOutputFolder   = "."
	DefaultAnimationName  = "animation"
	DefaultOutputFormat   = "avi"
	DefaultRepresentation = "Surface"
	DefaultRenderSize     = "1280x720"
	DefaultFPS            = 30
	DefaultTimeDirsPath   = "."
)

// DatasetSpec is one (root, filename) pair to discover.
type DatasetSpec struct {
	Root     string `yaml:"root" json:"root" validate:"required"`
	Filename string `yaml:"filename,omitempty" json:"filename,omitempty" validate:"omitempty,meshfile"`
}

// EngineConfig selects and configures the rendering backend.
type EngineConfig struct {
	PVPython  string   `yaml:"pvpython,omitempty"`
	Args      []string `yaml:"args,omitempty"`
	Offscreen bool     `yaml:"offscreen,omitempty"`
}

// Config is the raw run configuration as read from a YAML file and flags.
type Config struct {
	Datasets          []DatasetSpec `yaml:"datasets" validate:"required,min=1,dive"`
	BackgroundColor   string        `yaml:"background_color"`
	Field             string        `yaml:"field,omitempty"`
	Range             string        `yaml:"range,omitempty"`
	OutputFolder      string        `yaml:"output_folder" validate:"required"`
	AnimationFilename string        `yaml:"animation_filename" validate:"required,excludesall=/\\"`
	OutputFormat      string        `yaml:"output_format" validate:"required,alphanum"`
	Representation    string        `yaml:"representation"`
	RenderSize        string        `yaml:"render_size" validate:"required"`
	CameraViewPoint   string        `yaml:"camera_view_point,omitempty"`
	CameraPreset      string        `yaml:"camera_preset,omitempty"`
	InteractiveMode   bool          `yaml:"interactive_mode"`
	FPS               int           `yaml:"fps" validate:"gt=0,lte=240"`
	ReferenceMesh     string        `yaml:"reference_mesh,omitempty"`
	Engine            EngineConfig  `yaml:"engine"`
}

// DefaultConfig returns the configuration used when no file or flag overrides it.
func DefaultConfig() *Config {
	return &Config{
		BackgroundColor:   DefaultBackground,
		OutputFolder:      DefaultOutputFolder,
		AnimationFilename: DefaultAnimationName,
		OutputFormat:      DefaultOutputFormat,
		Representation:    DefaultRepresentation,
		RenderSize:        DefaultRenderSize,
		FPS:               DefaultFPS,
	}
}

// Load reads a YAML run file on top of the defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("%w: config %s: %w", validate.ErrMalformed, path, err)
	}
	return cfg, nil
}

// Save writes cfg as YAML.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// PairDatasets zips dataset roots with explicit filenames. Filenames may be
// omitted entirely; otherwise there must be exactly one per root.
func PairDatasets(roots, filenames []string) ([]DatasetSpec, error) {
	if len(roots) == 0 {
		roots = []string{DefaultTimeDirsPath}
	}
	if len(filenames) > 0 && len(filenames) != len(roots) {
		return nil, validate.Invalidf("got %d dataset roots but %d filenames; pass one filename per root or none",
			len(roots), len(filenames))
	}
	specs := make([]DatasetSpec, 0, len(roots))
	for i, root := range roots {
		spec := DatasetSpec{Root: root}
		if len(filenames) > 0 {
			spec.Filename = strings.TrimSpace(filenames[i])
		}
		specs = append(specs, spec)
	}
	return specs, nil
}

// Output names the movie file an export run produces.
type Output struct {
	Folder   string
	Basename string
	Format   string
}

// Path returns <folder>/<basename>.<format>.
func (o Output) Path() string {
	return filepath.Join(o.Folder, o.Basename+"."+o.Format)
}

// Plan is a fully parsed and validated run configuration.
type Plan struct {
	Datasets       []DatasetSpec
	Background     engine.Color
	Field          string
	FixedRange     *engine.Range
	Output         Output
	Representation engine.Representation
	Size           engine.Size
	Camera         *engine.Camera
	CameraPreset   string
	Interactive    bool
	FPS            int
	ReferenceMesh  string
	Engine         EngineConfig
}

// Resolve validates the configuration and parses every string-typed option.
// It never touches the filesystem or the engine.
func (c *Config) Resolve() (*Plan, error) {
	if err := validate.Struct(c); err != nil {
		return nil, err
	}
	fixed, err := ParseFixedRange(c.Range)
	if err != nil {
		return nil, err
	}
	size, err := ParseRenderSize(c.RenderSize)
	if err != nil {
		return nil, err
	}
	cam, err := ParseCamera(c.CameraViewPoint)
	if err != nil {
		return nil, err
	}
	if cam != nil && c.CameraPreset != "" {
		return nil, validate.Invalidf("use either a camera view point or a camera preset, not both")
	}
	rep, err := ParseRepresentation(c.Representation)
	if err != nil {
		return nil, err
	}
	return &Plan{
		Datasets:   c.Datasets,
		Background: ParseBackground(c.BackgroundColor),
		Field:      strings.TrimSpace(c.Field),
		FixedRange: fixed,
		Output: Output{
			Folder:   c.OutputFolder,
			Basename: c.AnimationFilename,
			Format:   strings.ToLower(c.OutputFormat),
		},
		Representation: rep,
		Size:           size,
		Camera:         cam,
		CameraPreset:   c.CameraPreset,
		Interactive:    c.InteractiveMode,
		FPS:            c.FPS,
		ReferenceMesh:  c.ReferenceMesh,
		Engine:         c.Engine,
	}, nil
}
