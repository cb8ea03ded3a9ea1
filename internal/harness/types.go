package harness

import (
	"github.com/roach88/spaghetti/internal/compiler"
	"github.com/roach88/spaghetti/internal/ir"
)

// Result is the outcome of a scenario run.
type Result struct {
	// Pass indicates overall test success.
	// True if every expectation and assertion held.
	Pass bool `json:"pass"`

	// RunID names the recorded run in the scenario's store.
	RunID string `json:"run_id"`

	// Ticks is the number of ticks executed.
	Ticks int64 `json:"ticks"`

	// Samples contains every external socket value per tick, in
	// recording order. Used for golden comparison.
	Samples []ir.Sample `json:"samples"`

	// Outputs maps each external output label to its value per tick;
	// index 0 is tick 1.
	Outputs map[string][]ir.Value `json:"outputs"`

	// TraceHash is the content hash of Samples.
	TraceHash string `json:"trace_hash"`

	// Feedback lists the feedback loops found in the scenario's package
	// definition. Loops are legal; they are reported for information.
	Feedback []compiler.CycleWarning `json:"feedback,omitempty"`

	// Errors contains validation error messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
// Used as the starting point for test execution.
func NewResult() *Result {
	return &Result{
		Pass:    true,
		Samples: []ir.Sample{},
		Outputs: make(map[string][]ir.Value),
		Errors:  []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// AddSamples appends one tick's samples and indexes its outputs.
func (r *Result) AddSamples(samples []ir.Sample) {
	for _, s := range samples {
		r.Samples = append(r.Samples, s)
		if s.Direction == ir.DirectionOut {
			r.Outputs[s.Label] = append(r.Outputs[s.Label], s.Value)
		}
	}
}

// OutputAt returns the value of an output after a 1-based tick.
func (r *Result) OutputAt(label string, tick int64) (ir.Value, bool) {
	values, ok := r.Outputs[label]
	if !ok || tick < 1 || tick > int64(len(values)) {
		return nil, false
	}
	return values[tick-1], true
}
