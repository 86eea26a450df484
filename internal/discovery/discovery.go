package discovery

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/ensigniasec/render-vtps/internal/config"
	"github.com/ensigniasec/render-vtps/internal/validate"
)

// ErrNoMeshFiles is returned when a root holds no mesh files in any time directory.
var ErrNoMeshFiles = errors.New("no mesh files found")

// MissingFileError reports an explicitly requested mesh file that discovery did not find.
type MissingFileError struct {
	Name string
	Root string
}

func (e *MissingFileError) Error() string {
	return fmt.Sprintf("specified mesh file '%s' not found in any time directory under %s", e.Name, e.Root)
}

// Is makes a missing requested file a validation error.
func (e *MissingFileError) Is(target error) bool {
	return target == validate.ErrInvalid
}

//nolint:gochecknoglobals // immutable pattern used across the package.
var timeDirPattern = regexp.MustCompile(`^[0-9]+(\.[0-9]+)?$`)

// IsTimeDir reports whether a directory basename names a time step.
func IsTimeDir(name string) bool {
	return timeDirPattern.MatchString(name)
}

// TimeValue parses a time directory name.
func TimeValue(name string) (float64, bool) {
	if !IsTimeDir(name) {
		return 0, false
	}
	v, err := strconv.ParseFloat(name, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// Step is one time step of a dataset.
type Step struct {
	Dir  string  `json:"dir"`
	Time float64 `json:"time"`
	Path string  `json:"path"`
}

// Dataset is a mesh file repeated across the time directories of one root.
type Dataset struct {
	Name     string `json:"name"`
	Root     string `json:"root"`
	Filename string `json:"filename"`
	Steps    []Step `json:"steps"`
}

// Files returns the per-step file paths in time order.
func (d Dataset) Files() []string {
	out := make([]string, 0, len(d.Steps))
	for _, s := range d.Steps {
		out = append(out, s.Path)
	}
	return out
}

// Times returns the per-step time values in order.
func (d Dataset) Times() []float64 {
	out := make([]float64, 0, len(d.Steps))
	for _, s := range d.Steps {
		out = append(out, s.Time)
	}
	return out
}

// FindMeshFiles returns the time directories directly under root, sorted by numeric
// value, and every .vtp/.vtk file found recursively under them, string-sorted.
func FindMeshFiles(ctx context.Context, root string) ([]string, []string, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, nil, err
	}

	type timeDir struct {
		path  string
		value float64
	}
	var dirs []timeDir
	for _, entry := range entries {
		v, ok := TimeValue(entry.Name())
		if !ok {
			continue
		}
		full := filepath.Join(root, entry.Name())
		// Stat follows symlinked time directories.
		if st, err := os.Stat(full); err != nil || !st.IsDir() {
			continue
		}
		dirs = append(dirs, timeDir{path: full, value: v})
	}
	sort.SliceStable(dirs, func(i, j int) bool {
		if dirs[i].value != dirs[j].value {
			return dirs[i].value < dirs[j].value
		}
		return dirs[i].path < dirs[j].path
	})

	timeDirs := make([]string, 0, len(dirs))
	var files []string
	for _, d := range dirs {
		timeDirs = append(timeDirs, d.path)
		for p := range streamMeshFiles(ctx, d.path) {
			files = append(files, p)
		}
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}
	}
	sort.Strings(files)
	return timeDirs, files, nil
}

// SelectFile picks the mesh file basename for a dataset. An explicit request must
// match a discovered file by basename; otherwise the first file is used.
func SelectFile(requested string, files []string, root string) (string, error) {
	if requested != "" {
		for _, f := range files {
			if filepath.Base(f) == requested {
				return requested, nil
			}
		}
		return "", &MissingFileError{Name: requested, Root: root}
	}
	if len(files) == 0 {
		return "", fmt.Errorf("%w under %s", ErrNoMeshFiles, root)
	}
	return filepath.Base(files[0]), nil
}

// Discover resolves one (root, filename) pair into a time-ordered dataset.
func Discover(ctx context.Context, spec config.DatasetSpec) (Dataset, error) {
	log := logrus.WithField("root", spec.Root)
	timeDirs, files, err := FindMeshFiles(ctx, spec.Root)
	if err != nil {
		return Dataset{}, err
	}
	log.Debugf("found %d time directories and %d mesh files", len(timeDirs), len(files))

	name, err := SelectFile(spec.Filename, files, spec.Root)
	if err != nil {
		return Dataset{}, err
	}

	ds := Dataset{
		Name:     strings.TrimSuffix(name, filepath.Ext(name)),
		Root:     spec.Root,
		Filename: name,
	}
	for _, dir := range timeDirs {
		p := filepath.Join(dir, name)
		st, err := os.Stat(p)
		if err != nil || st.IsDir() {
			log.Debugf("time directory %s has no %s; skipping", filepath.Base(dir), name)
			continue
		}
		v, _ := TimeValue(filepath.Base(dir))
		ds.Steps = append(ds.Steps, Step{Dir: dir, Time: v, Path: p})
	}
	if len(ds.Steps) == 0 {
		return Dataset{}, fmt.Errorf("%w: '%s' is not directly inside any time directory under %s",
			ErrNoMeshFiles, name, spec.Root)
	}
	return ds, nil
}

// DiscoverAll discovers every dataset independently; the first failure aborts.
func DiscoverAll(ctx context.Context, specs []config.DatasetSpec) ([]Dataset, error) {
	out := make([]Dataset, 0, len(specs))
	for _, spec := range specs {
		ds, err := Discover(ctx, spec)
		if err != nil {
			return nil, err
		}
		out = append(out, ds)
	}
	if len(out) > 1 {
		dedupeNames(out)
	}
	return out, nil
}

// dedupeNames suffixes repeated dataset names so pipelines stay distinguishable.
func dedupeNames(ds []Dataset) {
	seen := make(map[string]int, len(ds))
	for i := range ds {
		n := seen[ds[i].Name]
		seen[ds[i].Name] = n + 1
		if n > 0 {
			ds[i].Name = fmt.Sprintf("%s#%d", ds[i].Name, n+1)
		}
	}
}
