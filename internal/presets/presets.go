// Package presets manages named camera presets and the last interactively
// captured camera in the state file.
package presets

import (
	"fmt"
	"io"
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/ensigniasec/render-vtps/internal/config"
	"github.com/ensigniasec/render-vtps/internal/engine"
	"github.com/ensigniasec/render-vtps/internal/storage"
	"github.com/ensigniasec/render-vtps/internal/validate"
)

// LastName resolves to the last captured camera when no preset uses it.
const LastName = "last"

// Manager handles the logic for the camera commands.
type Manager struct {
	Storage *storage.Storage
}

// NewManager creates a new Manager instance.
func NewManager(storagePath string) (*Manager, error) {
	s, err := storage.NewStorage(storagePath)
	if err != nil {
		return nil, err
	}

	return &Manager{Storage: s}, nil
}

// View prints the saved presets, sorted by name, to the provided writer.
func (m *Manager) View(w io.Writer) {
	if len(m.Storage.Data.Cameras) == 0 && m.Storage.Data.LastCamera == nil {
		fmt.Fprintln(w, "No camera presets saved.")
		return
	}

	names := make([]string, 0, len(m.Storage.Data.Cameras))
	for name := range m.Storage.Data.Cameras {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(w, "%s: %s\n", name, config.FormatCamera(m.Storage.Data.Cameras[name]))
	}
	if last := m.Storage.Data.LastCamera; last != nil {
		fmt.Fprintf(w, "(%s): %s\n", LastName, config.FormatCamera(*last))
	}
}

// Save stores cam under name, replacing any preset with that name.
func (m *Manager) Save(name string, cam engine.Camera) error {
	if err := validate.Var(name, "required,max=64,printascii,excludesall=/\\"); err != nil {
		return fmt.Errorf("camera preset name %q: %w", name, err)
	}
	if !storage.ValidCamera(cam) {
		return validate.Invalidf("camera %s is degenerate", config.FormatCamera(cam))
	}
	logrus.Debugf("Saving camera preset: name=%s", name)
	m.Storage.Data.Cameras[name] = cam
	return m.Storage.Save()
}

// Get returns the preset called name. The name "last" falls back to the last
// captured camera.
func (m *Manager) Get(name string) (engine.Camera, error) {
	if cam, ok := m.Storage.Data.Cameras[name]; ok {
		return cam, nil
	}
	if name == LastName && m.Storage.Data.LastCamera != nil {
		return *m.Storage.Data.LastCamera, nil
	}
	return engine.Camera{}, validate.Invalidf("unknown camera preset '%s'", name)
}

// Remember records cam as the last captured camera.
func (m *Manager) Remember(cam engine.Camera) error {
	if !storage.ValidCamera(cam) {
		logrus.Debug("Not remembering degenerate camera")
		return nil
	}
	m.Storage.Data.LastCamera = &cam
	return m.Storage.Save()
}

// Delete removes one preset.
func (m *Manager) Delete(name string) error {
	if _, ok := m.Storage.Data.Cameras[name]; !ok {
		return validate.Invalidf("unknown camera preset '%s'", name)
	}
	delete(m.Storage.Data.Cameras, name)
	return m.Storage.Save()
}

// Reset removes every preset and the last captured camera.
func (m *Manager) Reset() error {
	logrus.Debug("Resetting camera presets")
	m.Storage.Data.Cameras = make(map[string]engine.Camera)
	m.Storage.Data.LastCamera = nil
	return m.Storage.Save()
}
