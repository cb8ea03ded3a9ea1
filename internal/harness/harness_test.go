package harness

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/spaghetti/internal/ir"
	"github.com/roach88/spaghetti/internal/store"
	"github.com/roach88/spaghetti/internal/testutil"
)

var (
	scenariosDir = filepath.Join("..", "..", "testdata", "scenarios")
	specsDir     = filepath.Join("..", "..", "testdata", "specs")
)

func loadScenario(t *testing.T, name string) *Scenario {
	t.Helper()
	s, err := LoadScenario(filepath.Join(scenariosDir, name+".yaml"))
	require.NoError(t, err)
	return s
}

// TestScenarios runs every scenario under testdata/scenarios and compares
// its samples with the golden trace.
func TestScenarios(t *testing.T) {
	for _, name := range []string{"falling_edge", "blinker", "scale", "edge_chain"} {
		t.Run(name, func(t *testing.T) {
			s := loadScenario(t, name)
			result, err := RunWithGolden(t, s)
			require.NoError(t, err)

			assert.True(t, result.Pass, "scenario should pass: errors=%v", result.Errors)
			assert.Equal(t, s.Ticks, result.Ticks)
			assert.Equal(t, testutil.DefaultRunID, result.RunID)
			assert.NotEmpty(t, result.TraceHash)
		})
	}
}

func TestRun_Deterministic(t *testing.T) {
	s := loadScenario(t, "edge_chain")

	first, err := Run(s)
	require.NoError(t, err)
	second, err := Run(s)
	require.NoError(t, err)

	assert.Equal(t, first.TraceHash, second.TraceHash)
	assert.Equal(t, first.Samples, second.Samples)
}

func TestRun_ReportsFeedback(t *testing.T) {
	result, err := Run(loadScenario(t, "blinker"))
	require.NoError(t, err)
	require.Len(t, result.Feedback, 1)
	assert.Equal(t, []string{"not#1", "not#1"}, result.Feedback[0].Path)

	result, err = Run(loadScenario(t, "falling_edge"))
	require.NoError(t, err)
	assert.Empty(t, result.Feedback)
}

func TestRun_FailedExpectations(t *testing.T) {
	s := loadScenario(t, "falling_edge")
	s.Expect = map[string][]any{"pulse": {false, true}}
	s.Assertions = []Assertion{{Type: AssertCountTrue, Output: "pulse", Count: 2}}

	result, err := Run(s)
	require.NoError(t, err)

	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 2)
	assert.Contains(t, result.Errors[0], "Assertion failed: expect (pulse)")
	assert.Contains(t, result.Errors[0], "Expected: true at tick 2")
	assert.Contains(t, result.Errors[1], "Expected: true on 2 ticks")
	assert.Contains(t, result.Errors[1], "Actual: true on 1 ticks")
}

func TestRun_ExecutionErrors(t *testing.T) {
	base := func() *Scenario {
		return &Scenario{
			Name:   "x",
			Specs:  []string{specsDir},
			Type:   "demo/edge",
			Ticks:  2,
			Expect: map[string][]any{"pulse": {false}},
		}
	}

	t.Run("unknown type", func(t *testing.T) {
		s := base()
		s.Type = "demo/missing"
		_, err := Run(s)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to create demo/missing")
	})

	t.Run("built-in element", func(t *testing.T) {
		s := base()
		s.Type = "logic/not"
		_, err := Run(s)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "not a package definition")
	})

	t.Run("unknown input", func(t *testing.T) {
		s := base()
		s.Inputs = map[string][]any{"nope": {true}}
		_, err := Run(s)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "inputs.nope")
	})

	t.Run("wrong input kind", func(t *testing.T) {
		s := base()
		s.Inputs = map[string][]any{"in": {1.5}}
		_, err := Run(s)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "inputs.in[0]")
	})

	t.Run("bad specs", func(t *testing.T) {
		s := base()
		s.Specs = []string{t.TempDir()}
		_, err := Run(s)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to load specs")
	})
}

func TestRun_WithStore(t *testing.T) {
	st, err := store.Open(":memory:")
	require.NoError(t, err)
	defer st.Close()

	s := loadScenario(t, "falling_edge")
	s.RunID = "edge-run"
	result, err := Run(s, WithStore(st))
	require.NoError(t, err)
	require.True(t, result.Pass, result.Errors)

	rec, err := st.LoadRecording(t.Context(), "edge-run")
	require.NoError(t, err)
	assert.Equal(t, result.TraceHash, rec.Run.TraceHash)
	assert.Equal(t, int64(6), rec.Run.Ticks)
	assert.Equal(t, "demo/edge", rec.Doc.Type)
	assert.ElementsMatch(t, result.Samples, rec.Samples)
}

func TestResult_OutputAt(t *testing.T) {
	r := NewResult()
	r.AddSamples([]ir.Sample{
		{Tick: 1, Direction: ir.DirectionIn, Label: "in", Value: ir.Bool(true)},
		{Tick: 1, Direction: ir.DirectionOut, Label: "q", Value: ir.Bool(false)},
	})

	v, ok := r.OutputAt("q", 1)
	assert.True(t, ok)
	assert.Equal(t, ir.Bool(false), v)

	_, ok = r.OutputAt("q", 2)
	assert.False(t, ok)
	_, ok = r.OutputAt("in", 1)
	assert.False(t, ok, "inputs are not outputs")

	r.AddError("boom")
	assert.False(t, r.Pass)
}
