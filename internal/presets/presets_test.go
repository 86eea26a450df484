package presets

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ensigniasec/render-vtps/internal/engine"
	"github.com/ensigniasec/render-vtps/internal/validate"
)

var side = engine.Camera{
	Position:   engine.Vec3{10, 0, 0},
	FocalPoint: engine.Vec3{0, 0, 0},
	ViewUp:     engine.Vec3{0, 0, 1},
}

func newManager(t *testing.T) (*Manager, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "state.json")
	m, err := NewManager(path)
	require.NoError(t, err)
	return m, path
}

func TestView_Empty(t *testing.T) {
	t.Parallel()
	m, _ := newManager(t)
	var buf bytes.Buffer
	m.View(&buf)
	assert.Contains(t, buf.String(), "No camera presets saved.")
}

func TestSave_PersistsAndViews(t *testing.T) {
	t.Parallel()
	m, path := newManager(t)
	require.NoError(t, m.Save("side", side))
	require.NoError(t, m.Save("iso", engine.Camera{
		Position: engine.Vec3{1, 1, 1}, ViewUp: engine.Vec3{0, 0, 1},
	}))

	_, err := os.Stat(path)
	require.NoError(t, err)

	reopened, err := NewManager(path)
	require.NoError(t, err)
	got, err := reopened.Get("side")
	require.NoError(t, err)
	assert.Equal(t, side, got)

	var buf bytes.Buffer
	reopened.View(&buf)
	assert.Equal(t, "iso: [1,1,1,0,0,0,0,0,1]\nside: [10,0,0,0,0,0,0,0,1]\n", buf.String())
}

func TestSave_Rejects(t *testing.T) {
	t.Parallel()
	m, _ := newManager(t)
	assert.ErrorIs(t, m.Save("", side), validate.ErrInvalid)
	assert.ErrorIs(t, m.Save("a/b", side), validate.ErrInvalid)
	assert.ErrorIs(t, m.Save("flat", engine.Camera{ViewUp: engine.Vec3{0, 1, 0}}), validate.ErrInvalid)
}

func TestRememberAndLast(t *testing.T) {
	t.Parallel()
	m, path := newManager(t)
	_, err := m.Get(LastName)
	require.ErrorIs(t, err, validate.ErrInvalid)

	require.NoError(t, m.Remember(side))
	reopened, err := NewManager(path)
	require.NoError(t, err)
	got, err := reopened.Get(LastName)
	require.NoError(t, err)
	assert.Equal(t, side, got)

	var buf bytes.Buffer
	reopened.View(&buf)
	assert.Contains(t, buf.String(), "(last): [10,0,0,0,0,0,0,0,1]")
}

func TestDeleteAndReset(t *testing.T) {
	t.Parallel()
	m, _ := newManager(t)
	require.NoError(t, m.Save("side", side))
	require.NoError(t, m.Remember(side))

	require.ErrorIs(t, m.Delete("missing"), validate.ErrInvalid)
	require.NoError(t, m.Delete("side"))
	_, err := m.Get("side")
	require.Error(t, err)

	require.NoError(t, m.Save("side", side))
	require.NoError(t, m.Reset())
	assert.Empty(t, m.Storage.Data.Cameras)
	assert.Nil(t, m.Storage.Data.LastCamera)
}
