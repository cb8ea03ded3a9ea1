package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/spaghetti/internal/ir"
)

// goldenDir holds the golden traces of a package's tests.
const goldenDir = "testdata/golden"

// TraceSnapshot is the golden form of a scenario run. The trace hash is
// left out: it is derived from the samples, and a golden diff should show
// which sample moved rather than a new digest.
type TraceSnapshot struct {
	ScenarioName string      `json:"scenario_name"`
	Type         string      `json:"type,omitempty"`
	Ticks        int64       `json:"ticks"`
	Samples      []ir.Sample `json:"samples"`
}

// Marshal renders the snapshot as canonical JSON.
func (s TraceSnapshot) Marshal() ([]byte, error) {
	if s.Samples == nil {
		s.Samples = []ir.Sample{}
	}
	return ir.MarshalCanonical(s)
}

// RunWithGolden runs a scenario and compares its trace with
// testdata/golden/<name>.golden. Regenerate with
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, scenario *Scenario, opts ...Option) (*Result, error) {
	t.Helper()

	result, err := Run(scenario, opts...)
	if err != nil {
		return nil, err
	}
	snapshot := TraceSnapshot{
		ScenarioName: scenario.Name,
		Type:         scenario.Type,
		Ticks:        result.Ticks,
		Samples:      result.Samples,
	}
	if err := assertSnapshot(t, scenario.Name, snapshot); err != nil {
		return nil, err
	}
	return result, nil
}

func assertSnapshot(t *testing.T, name string, snapshot TraceSnapshot) error {
	t.Helper()
	data, err := snapshot.Marshal()
	if err != nil {
		return err
	}
	g := goldie.New(t,
		goldie.WithFixtureDir(goldenDir),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, data)
	return nil
}
