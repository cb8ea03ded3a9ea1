package store

import (
	"path/filepath"
	"testing"

	"github.com/roach88/spaghetti/internal/ir"
)

// createTestStore creates a new file-backed store for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// testDoc is a one-input, one-output package around a falling-edge
// detector.
func testDoc() ir.PackageDoc {
	return ir.PackageDoc{
		Type:    "demo/edge",
		Meta:    ir.Metadata{Name: "Edge"},
		Inputs:  []ir.SocketDoc{{Label: "in", Kind: ir.KindBool}},
		Outputs: []ir.SocketDoc{{Label: "pulse", Kind: ir.KindBool}},
		Elements: []ir.ElementDoc{{
			ID:      1,
			Type:    "logic/trigger_falling",
			Inputs:  []ir.SocketDoc{{Label: "#1", Kind: ir.KindBool, Default: ir.Bool(false)}},
			Outputs: []ir.SocketDoc{{Label: "#1", Kind: ir.KindBool}},
		}},
		Links: []ir.LinkDoc{
			{From: -1, FromSocket: 0, To: 1, ToSocket: 0},
			{From: 1, FromSocket: 0, To: -2, ToSocket: 0},
		},
	}
}

// edgeSamples returns the trace of the edge detector for inputs.
func edgeSamples(inputs, outputs []bool) []ir.Sample {
	var out []ir.Sample
	for i := range inputs {
		tick := int64(i + 1)
		out = append(out,
			ir.Sample{Tick: tick, Direction: ir.DirectionIn, Socket: 0, Label: "in", Value: ir.Bool(inputs[i])},
			ir.Sample{Tick: tick, Direction: ir.DirectionOut, Socket: 0, Label: "pulse", Value: ir.Bool(outputs[i])},
		)
	}
	return out
}
