package engine

import (
	"context"
	"fmt"
	"slices"

	"github.com/roach88/spaghetti/internal/circuit"
	"github.com/roach88/spaghetti/internal/ir"
	"github.com/roach88/spaghetti/internal/registry"
)

// Divergence is one output that differs between a recording and its
// replay.
type Divergence struct {
	Tick   int64    `json:"tick"`
	Socket int      `json:"socket"`
	Label  string   `json:"label"`
	Want   ir.Value `json:"want"`
	Got    ir.Value `json:"got"`
}

// ReplayResult reports a replayed run.
type ReplayResult struct {
	Ticks       int64        `json:"ticks"`
	TraceHash   string       `json:"trace_hash"`
	Divergences []Divergence `json:"divergences"`
}

// Diverged reports whether any output differed.
func (r ReplayResult) Diverged() bool { return len(r.Divergences) > 0 }

// Err returns a REPLAY_DIVERGED error for the first divergence, or nil.
func (r ReplayResult) Err() error {
	if !r.Diverged() {
		return nil
	}
	d := r.Divergences[0]
	return &RuntimeError{
		Code:    ErrCodeDiverged,
		Message: fmt.Sprintf("output %q: recorded %s, replayed %s (%d divergences)", d.Label, ir.FormatValue(d.Want), ir.FormatValue(d.Got), len(r.Divergences)),
		Tick:    d.Tick,
	}
}

// Replay rebuilds the package from doc and re-executes a recorded run:
// before each tick the recorded input samples are applied, after it the
// outputs are compared with the recorded output samples.
//
// Replay is the determinism check for the engine. The same document and
// inputs always produce the same outputs, so a divergence means the
// element catalog changed behavior since the run was recorded.
func Replay(ctx context.Context, reg *registry.Registry, doc ir.PackageDoc, samples []ir.Sample, opts ...Option) (ReplayResult, error) {
	pkg, err := circuit.Reconstruct(reg, doc)
	if err != nil {
		return ReplayResult{}, fmt.Errorf("replay: %w", err)
	}

	byTick := make(map[int64][]ir.Sample)
	var ticks []int64
	for _, s := range samples {
		if _, ok := byTick[s.Tick]; !ok {
			ticks = append(ticks, s.Tick)
		}
		byTick[s.Tick] = append(byTick[s.Tick], s)
	}
	slices.Sort(ticks)

	rec := NewRecorder()
	e := New(pkg, append(opts, WithTickHook(rec.Hook()))...)

	res := ReplayResult{Divergences: []Divergence{}}
	for _, want := range ticks {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		if want != e.clock.Current()+1 {
			return res, fmt.Errorf("replay: recording skips from tick %d to %d", e.clock.Current(), want)
		}

		recorded := byTick[want]
		err := e.Do(func(p *circuit.Package) error {
			for _, s := range recorded {
				if s.Direction != ir.DirectionIn {
					continue
				}
				if err := p.SetInput(s.Socket, s.Value); err != nil {
					return fmt.Errorf("tick %d: %w", want, err)
				}
			}
			return nil
		})
		if err != nil {
			return res, fmt.Errorf("replay: %w", err)
		}

		e.Tick()
		res.Ticks++

		for _, s := range recorded {
			if s.Direction != ir.DirectionOut {
				continue
			}
			got, err := pkg.Output(s.Socket)
			if err != nil {
				return res, fmt.Errorf("replay: tick %d: %w", want, err)
			}
			if !ir.Equal(s.Value, got) {
				res.Divergences = append(res.Divergences, Divergence{
					Tick:   want,
					Socket: s.Socket,
					Label:  s.Label,
					Want:   s.Value,
					Got:    got,
				})
			}
		}
	}

	hash, err := ir.TraceHash(rec.Samples())
	if err != nil {
		return res, fmt.Errorf("replay: %w", err)
	}
	res.TraceHash = hash
	return res, nil
}
