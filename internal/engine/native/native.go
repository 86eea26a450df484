// Package native is a pure-Go data backend. It opens file series and answers
// array and range queries by reading the VTK files directly, so the data side
// of a run works without ParaView. It does not render.
package native

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/ensigniasec/render-vtps/internal/engine"
	"github.com/ensigniasec/render-vtps/internal/vtkio"
)

var (
	_ engine.Source     = (*Engine)(nil)
	_ engine.TimeKeeper = (*Engine)(nil)
)

type series struct {
	spec engine.Series
	step int
}

// Engine implements engine.Source and engine.TimeKeeper over vtkio.
type Engine struct {
	mu     sync.Mutex
	series map[string]*series
	order  []string
	time   *float64
	cache  map[string]vtkio.Info
	reads  int
	nextID int
}

// New returns an empty engine.
func New() *Engine {
	return &Engine{
		series: map[string]*series{},
		cache:  map[string]vtkio.Info{},
	}
}

func (e *Engine) OpenSeries(_ context.Context, s engine.Series) (engine.Pipeline, error) {
	if len(s.Files) == 0 {
		return engine.Pipeline{}, errors.New("series has no files")
	}
	if len(s.Times) > 0 && len(s.Times) != len(s.Files) {
		return engine.Pipeline{}, fmt.Errorf("series %s: %d times for %d files", s.Name, len(s.Times), len(s.Files))
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.nextID++
	id := fmt.Sprintf("native-%d", e.nextID)
	e.series[id] = &series{spec: s}
	e.order = append(e.order, id)
	return engine.Pipeline{ID: id, Name: s.Name}, nil
}

func (e *Engine) lookup(p engine.Pipeline) (*series, error) {
	s, ok := e.series[p.ID]
	if !ok {
		return nil, fmt.Errorf("unknown pipeline %q", p.ID)
	}
	return s, nil
}

// Update selects the last step whose time is <= at. A nil time or a time
// before the first step selects the first step.
func (e *Engine) Update(ctx context.Context, p engine.Pipeline, at *float64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	s, err := e.lookup(p)
	if err != nil {
		return err
	}
	s.step = 0
	if at == nil {
		return nil
	}
	for i, t := range s.spec.Times {
		if t <= *at {
			s.step = i
		}
	}
	return nil
}

func (e *Engine) current(ctx context.Context, p engine.Pipeline) (vtkio.Info, error) {
	if err := ctx.Err(); err != nil {
		return vtkio.Info{}, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	s, err := e.lookup(p)
	if err != nil {
		return vtkio.Info{}, err
	}
	path := s.spec.Files[s.step]
	if info, ok := e.cache[path]; ok {
		return info, nil
	}
	logrus.WithFields(logrus.Fields{"dataset": p.Name, "file": path}).Debug("Reading mesh file")
	info, err := vtkio.ReadInfo(path)
	if err != nil {
		return vtkio.Info{}, err
	}
	e.reads++
	e.cache[path] = info
	return info, nil
}

func (e *Engine) Arrays(ctx context.Context, p engine.Pipeline) (engine.Arrays, error) {
	info, err := e.current(ctx, p)
	if err != nil {
		return engine.Arrays{}, err
	}
	return info.Arrays(), nil
}

func (e *Engine) ArrayRange(ctx context.Context, p engine.Pipeline, f engine.FieldRef) (engine.Range, error) {
	info, err := e.current(ctx, p)
	if err != nil {
		return engine.Range{}, err
	}
	return info.Range(f)
}

// SyncTimeSteps returns the sorted union of every opened series' times.
func (e *Engine) SyncTimeSteps(context.Context) ([]float64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	seen := map[float64]bool{}
	var out []float64
	for _, id := range e.order {
		for _, t := range e.series[id].spec.Times {
			if !seen[t] {
				seen[t] = true
				out = append(out, t)
			}
		}
	}
	sort.Float64s(out)
	return out, nil
}

// SetTime records the animation time. Pipelines move only on Update.
func (e *Engine) SetTime(_ context.Context, t float64) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.time = &t
	return nil
}

// Time returns the last time set, if any.
func (e *Engine) Time() (float64, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.time == nil {
		return 0, false
	}
	return *e.time, true
}

// Close drops the file cache.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.cache = map[string]vtkio.Info{}
	return nil
}
