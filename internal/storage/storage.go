package storage

import (
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ensigniasec/render-vtps/internal/engine"
	"github.com/ensigniasec/render-vtps/internal/validate"
)

// MaxRuns bounds the run history kept in the state file.
const MaxRuns = 20

// RunRecord is one finished (or failed) export.
type RunRecord struct {
	ID        string        `json:"id" validate:"required,uuid4"`
	Path      string        `json:"path" validate:"required"`
	Frames    int           `json:"frames" validate:"gte=0"`
	Field     string        `json:"field,omitempty"`
	Range     *engine.Range `json:"range,omitempty"`
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration"`
	Error     string        `json:"error,omitempty"`
}

// Data represents the structure of the state file.
type Data struct {
	Cameras    map[string]engine.Camera `json:"cameras"`
	LastCamera *engine.Camera           `json:"last_camera,omitempty"`
	Runs       []RunRecord              `json:"runs" validate:"dive"`
	HostUUID   string                   `json:"host_uuid,omitempty" validate:"omitempty,uuid4"`
}

// Storage handles the loading and saving of the state file.
type Storage struct {
	Path string `validate:"required,filepath"`
	Data Data
}

// DefaultPath returns <user config dir>/render-vtps/state.json.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return filepath.Join("~", ".config", "render-vtps", "state.json")
	}
	return filepath.Join(dir, "render-vtps", "state.json")
}

// NewStorage creates a new Storage instance, loading the file when it exists.
func NewStorage(path string) (*Storage, error) {
	expandedPath, err := expandTilde(path)
	if err != nil {
		return nil, err
	}

	s := &Storage{
		Path: expandedPath,
		Data: Data{Cameras: make(map[string]engine.Camera)},
	}
	if err := s.Load(); err != nil {
		// If the file doesn't exist, we can ignore the error.
		if !os.IsNotExist(err) {
			return nil, err
		}
	}
	if s.Data.HostUUID == "" {
		s.Data.HostUUID = uuid.NewString()
	}
	return s, nil
}

// NewOrExistingStorage returns existing storage if the file exists, or creates
// and writes a new one otherwise.
func NewOrExistingStorage(path string) (*Storage, error) {
	expandedPath, err := expandTilde(path)
	if err != nil {
		return nil, err
	}

	_, statErr := os.Stat(expandedPath)
	if statErr != nil && !os.IsNotExist(statErr) {
		return nil, statErr
	}
	s, err := NewStorage(path)
	if err != nil {
		return nil, err
	}
	if os.IsNotExist(statErr) {
		if err := s.Save(); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (s *Storage) Load() error {
	logrus.Debug("Loading state file from: ", s.Path)
	data, err := os.ReadFile(s.Path)
	if err != nil {
		return err
	}

	if err := json.Unmarshal(data, &s.Data); err != nil {
		return validate.Malformedf("state file %s: %v", s.Path, err)
	}
	if s.Data.Cameras == nil {
		s.Data.Cameras = make(map[string]engine.Camera)
	}

	if s.heal() {
		return s.Save()
	}
	return nil
}

// heal repairs what validation rejects and reports whether anything changed.
func (s *Storage) heal() bool {
	changed := false
	if err := validate.Struct(s.Data); err != nil {
		logrus.Debugf("State file failed validation: %v", err)
		if s.Data.HostUUID != "" && validate.Var(s.Data.HostUUID, "uuid4") != nil {
			s.Data.HostUUID = uuid.NewString()
			changed = true
		}
		kept := s.Data.Runs[:0]
		for _, r := range s.Data.Runs {
			if validate.Var(r.ID, "required,uuid4") != nil {
				r.ID = uuid.NewString()
				changed = true
			}
			if r.Path == "" || r.Frames < 0 {
				logrus.Warn("Dropping unreadable run record from state file.")
				changed = true
				continue
			}
			kept = append(kept, r)
		}
		s.Data.Runs = kept
	}

	for name, cam := range s.Data.Cameras {
		if !ValidCamera(cam) {
			logrus.Warnf("Dropping invalid camera preset '%s' from state file.", name)
			delete(s.Data.Cameras, name)
			changed = true
		}
	}
	if s.Data.LastCamera != nil && !ValidCamera(*s.Data.LastCamera) {
		s.Data.LastCamera = nil
		changed = true
	}
	if len(s.Data.Runs) > MaxRuns {
		s.Data.Runs = s.Data.Runs[len(s.Data.Runs)-MaxRuns:]
		changed = true
	}
	return changed
}

// Save writes the state data to the file.
func (s *Storage) Save() error {
	logrus.Debug("Saving state file to: ", s.Path)
	if err := os.MkdirAll(filepath.Dir(s.Path), 0o700); err != nil {
		return err
	}
	data, err := json.MarshalIndent(s.Data, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(s.Path, data, 0o600)
}

// RecordRun appends rec to the history, keeping the newest MaxRuns, and saves.
func (s *Storage) RecordRun(rec RunRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if err := validate.Struct(rec); err != nil {
		return err
	}
	s.Data.Runs = append(s.Data.Runs, rec)
	if len(s.Data.Runs) > MaxRuns {
		s.Data.Runs = s.Data.Runs[len(s.Data.Runs)-MaxRuns:]
	}
	return s.Save()
}

// ValidCamera reports whether cam has finite values, distinct position and
// focal point, and a non-zero view up vector.
func ValidCamera(cam engine.Camera) bool {
	for _, vec := range []engine.Vec3{cam.Position, cam.FocalPoint, cam.ViewUp} {
		for _, v := range vec {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return false
			}
		}
	}
	if cam.Position == cam.FocalPoint {
		return false
	}
	if cam.ViewUp == (engine.Vec3{}) {
		return false
	}
	return !cam.HasParallelScale || cam.ParallelScale > 0
}

// expandTilde expands the tilde in a path to the user's home directory.
func expandTilde(path string) (string, error) {
	if len(path) == 0 || path[0] != '~' {
		return path, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}

	return filepath.Join(home, path[1:]), nil
}
