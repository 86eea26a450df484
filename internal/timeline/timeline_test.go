package timeline

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ensigniasec/render-vtps/internal/engine"
)

func TestNewAxis(t *testing.T) {
	ax := NewAxis([]float64{2, 0.5, math.NaN(), 0, 2, math.Inf(1)})
	assert.Equal(t, []float64{0, 0.5, 2}, ax.Values())
	assert.Equal(t, 3, ax.Len())
	assert.False(t, ax.Synthetic())
	for i, in := range ax.Instants {
		assert.Equal(t, i, in.Index)
		require.NotNil(t, in.At())
		assert.InDelta(t, in.Value, *in.At(), 0)
	}
}

func TestNewAxis_EmptyIsSynthetic(t *testing.T) {
	ax := NewAxis(nil)
	require.Equal(t, 1, ax.Len())
	assert.True(t, ax.Synthetic())
	assert.Nil(t, ax.Instants[0].At())
	assert.Empty(t, ax.Values())
	assert.Equal(t, "static", ax.Instants[0].String())
}

type stepperCall struct {
	op   string
	name string
	at   *float64
}

type recordingStepper struct {
	calls   []stepperCall
	failFor string
	setErr  error
}

func (r *recordingStepper) SetTime(_ context.Context, t float64) error {
	r.calls = append(r.calls, stepperCall{op: "time", at: &t})
	return r.setErr
}

func (r *recordingStepper) Update(_ context.Context, p engine.Pipeline, at *float64) error {
	r.calls = append(r.calls, stepperCall{op: "update", name: p.Name, at: at})
	if p.Name == r.failFor {
		return errors.New("reader hiccup")
	}
	return nil
}

func TestAdvance_RoundRobin(t *testing.T) {
	s := &recordingStepper{}
	pipes := []engine.Pipeline{{ID: "1", Name: "a"}, {ID: "2", Name: "b"}}
	ax := NewAxis([]float64{0, 1})

	for _, in := range ax.Instants {
		require.NoError(t, Advance(context.Background(), s, pipes, in))
	}

	var ops []string
	for _, c := range s.calls {
		ops = append(ops, c.op+":"+c.name)
	}
	assert.Equal(t, []string{"time:", "update:a", "update:b", "time:", "update:a", "update:b"}, ops)
	assert.InDelta(t, 1.0, *s.calls[4].at, 0)
}

func TestAdvance_FailuresAreJoinedNotFatal(t *testing.T) {
	s := &recordingStepper{failFor: "a"}
	pipes := []engine.Pipeline{{Name: "a"}, {Name: "b"}}
	err := Advance(context.Background(), s, pipes, Instant{Value: 3})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "update a at t=3")
	assert.Len(t, s.calls, 3, "b is still updated after a fails")
}

func TestAdvance_SyntheticSkipsTimeKeeper(t *testing.T) {
	s := &recordingStepper{}
	err := Advance(context.Background(), s, []engine.Pipeline{{Name: "a"}}, NewAxis(nil).Instants[0])
	require.NoError(t, err)
	require.Len(t, s.calls, 1)
	assert.Equal(t, "update", s.calls[0].op)
	assert.Nil(t, s.calls[0].at)
}

func TestAdvance_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s := &recordingStepper{}
	err := Advance(ctx, s, []engine.Pipeline{{Name: "a"}}, Instant{Value: 1})
	assert.ErrorIs(t, err, context.Canceled)
}

type fixedKeeper struct {
	values []float64
	err    error
}

func (f fixedKeeper) SyncTimeSteps(context.Context) ([]float64, error) { return f.values, f.err }
func (f fixedKeeper) SetTime(context.Context, float64) error           { return nil }

func TestSync(t *testing.T) {
	ax, err := Sync(context.Background(), fixedKeeper{values: []float64{3, 1}})
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 3}, ax.Values())

	ax, err = Sync(context.Background(), fixedKeeper{err: errors.New("boom")})
	require.Error(t, err)
	assert.True(t, ax.Synthetic())
}
