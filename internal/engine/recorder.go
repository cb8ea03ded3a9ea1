package engine

import (
	"sync"

	"github.com/roach88/spaghetti/internal/circuit"
	"github.com/roach88/spaghetti/internal/ir"
)

// Recorder collects the external input and output values of a package
// after every tick. Attach it with WithTickHook(rec.Hook()).
type Recorder struct {
	mu      sync.Mutex
	samples []ir.Sample
}

// NewRecorder returns an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{samples: []ir.Sample{}}
}

// Hook returns the tick hook that feeds the recorder.
func (r *Recorder) Hook() TickHook {
	return func(tick int64, p *circuit.Package) {
		snap := Snapshot(tick, p)
		r.mu.Lock()
		r.samples = append(r.samples, snap...)
		r.mu.Unlock()
	}
}

// Samples returns a copy of everything recorded so far, ordered by tick,
// then inputs before outputs, then socket index.
func (r *Recorder) Samples() []ir.Sample {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]ir.Sample, len(r.samples))
	copy(out, r.samples)
	return out
}

// Len returns the number of recorded samples.
func (r *Recorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.samples)
}

// Snapshot reads every external socket of p as samples for tick.
func Snapshot(tick int64, p *circuit.Package) []ir.Sample {
	out := make([]ir.Sample, 0, len(p.Inputs())+len(p.Outputs()))
	for i, in := range p.Inputs() {
		out = append(out, ir.Sample{Tick: tick, Direction: ir.DirectionIn, Socket: i, Label: in.Label(), Value: in.Read()})
	}
	for i, o := range p.Outputs() {
		out = append(out, ir.Sample{Tick: tick, Direction: ir.DirectionOut, Socket: i, Label: o.Label(), Value: o.Value()})
	}
	return out
}
