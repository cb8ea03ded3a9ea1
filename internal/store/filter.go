package store

import (
	"github.com/roach88/spaghetti/internal/ir"
	"github.com/roach88/spaghetti/internal/queryir"
)

// SampleFilter selects samples for trace output. Zero fields match
// everything; ToTick 0 means no upper bound.
type SampleFilter struct {
	RunID     string
	Label     string
	Direction ir.Direction
	FromTick  int64
	ToTick    int64
}

// Predicate converts the filter to a QueryIR predicate over the samples
// table.
func (f SampleFilter) Predicate() queryir.Predicate {
	var and queryir.And
	if f.RunID != "" {
		and = and.Append(queryir.Equals{Field: "run_id", Value: f.RunID})
	}
	if f.Direction != "" {
		and = and.Append(queryir.Equals{Field: "direction", Value: string(f.Direction)})
	}
	if f.Label != "" {
		and = and.Append(queryir.Equals{Field: "label", Value: f.Label})
	}
	if f.FromTick > 0 || f.ToTick > 0 {
		high := f.ToTick
		if high <= 0 {
			high = maxTick
		}
		and = and.Append(queryir.Between{Field: "tick", Low: f.FromTick, High: high})
	}
	return and
}

const maxTick = int64(^uint64(0) >> 1)
