package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/spaghetti/internal/circuit"
	"github.com/roach88/spaghetti/internal/elements"
	"github.com/roach88/spaghetti/internal/ir"
)

// recordEdgeRun ticks a falling-edge package over inputs and returns its
// document and recorded samples.
func recordEdgeRun(t *testing.T, inputs []bool) (ir.PackageDoc, []ir.Sample) {
	t.Helper()
	reg := newRegistry(t)
	p := circuit.New(reg)
	_, err := p.AddInput(ir.KindBool, "in")
	require.NoError(t, err)
	_, err = p.AddOutput(ir.KindBool, "pulse")
	require.NoError(t, err)
	tr, _, err := p.Add(elements.TriggerFallingType)
	require.NoError(t, err)
	require.NoError(t, p.Connect(circuit.InputsID, 0, tr, 0))
	require.NoError(t, p.Connect(tr, 0, circuit.OutputsID, 0))

	doc, err := p.Enumerate()
	require.NoError(t, err)

	rec := NewRecorder()
	e := New(p, WithTickHook(rec.Hook()))
	for _, in := range inputs {
		require.NoError(t, p.SetInput(0, ir.Bool(in)))
		e.Tick()
	}
	return doc, rec.Samples()
}

func TestRecorder_SamplesPerTick(t *testing.T) {
	_, samples := recordEdgeRun(t, []bool{true, false})
	require.Len(t, samples, 4)
	assert.Equal(t, ir.Sample{Tick: 1, Direction: ir.DirectionIn, Socket: 0, Label: "in", Value: ir.Bool(true)}, samples[0])
	assert.Equal(t, ir.Sample{Tick: 1, Direction: ir.DirectionOut, Socket: 0, Label: "pulse", Value: ir.Bool(false)}, samples[1])
	assert.Equal(t, ir.Sample{Tick: 2, Direction: ir.DirectionOut, Socket: 0, Label: "pulse", Value: ir.Bool(true)}, samples[3])
}

func TestReplay_IdenticalRun(t *testing.T) {
	doc, samples := recordEdgeRun(t, []bool{false, true, true, false, false, true})

	res, err := Replay(context.Background(), newRegistry(t), doc, samples)
	require.NoError(t, err)
	assert.Equal(t, int64(6), res.Ticks)
	assert.False(t, res.Diverged())
	assert.NoError(t, res.Err())

	want, err := ir.TraceHash(samples)
	require.NoError(t, err)
	assert.Equal(t, want, res.TraceHash, "replayed trace hashes like the recording")
}

func TestReplay_ReportsDivergence(t *testing.T) {
	doc, samples := recordEdgeRun(t, []bool{true, false, false})
	for i := range samples {
		if samples[i].Tick == 2 && samples[i].Direction == ir.DirectionOut {
			samples[i].Value = ir.Bool(false)
		}
	}

	res, err := Replay(context.Background(), newRegistry(t), doc, samples)
	require.NoError(t, err)
	require.True(t, res.Diverged())
	assert.Equal(t, Divergence{Tick: 2, Socket: 0, Label: "pulse", Want: ir.Bool(false), Got: ir.Bool(true)}, res.Divergences[0])
	assert.True(t, IsDivergence(res.Err()))
}

func TestReplay_RejectsGaps(t *testing.T) {
	doc, samples := recordEdgeRun(t, []bool{true, false, false})
	var gapped []ir.Sample
	for _, s := range samples {
		if s.Tick != 2 {
			gapped = append(gapped, s)
		}
	}

	_, err := Replay(context.Background(), newRegistry(t), doc, gapped)
	assert.ErrorContains(t, err, "skips from tick 1 to 3")
}

func TestReplay_HonorsCancel(t *testing.T) {
	doc, samples := recordEdgeRun(t, []bool{true})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Replay(ctx, newRegistry(t), doc, samples)
	assert.ErrorIs(t, err, context.Canceled)
}
