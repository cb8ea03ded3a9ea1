package store

import (
	"database/sql"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/spaghetti/internal/ir"
	"github.com/roach88/spaghetti/internal/queryir"
)

var (
	edgeIn  = []bool{false, true, true, false, false, true}
	edgeOut = []bool{false, false, false, true, false, false}
)

func recordTwoRuns(t *testing.T, s *Store) {
	t.Helper()
	ctx := t.Context()
	_, err := s.RecordRun(ctx, "run-b", testDoc(), edgeSamples(edgeIn, edgeOut))
	require.NoError(t, err)
	_, err = s.RecordRun(ctx, "run-a", testDoc(), edgeSamples(edgeIn[:2], edgeOut[:2]))
	require.NoError(t, err)
}

func TestReadRun_NotFound(t *testing.T) {
	s := createTestStore(t)

	_, err := s.ReadRun(t.Context(), "missing")
	assert.ErrorIs(t, err, sql.ErrNoRows)

	_, err = s.LatestRun(t.Context())
	assert.ErrorIs(t, err, sql.ErrNoRows)

	_, err = s.ReadPackage(t.Context(), "missing")
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestListRuns_OrderedBySeq(t *testing.T) {
	s := createTestStore(t)
	recordTwoRuns(t, s)

	runs, err := s.ListRuns(t.Context())
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "run-b", runs[0].ID, "seq order, not id order")
	assert.Equal(t, "run-a", runs[1].ID)

	latest, err := s.LatestRun(t.Context())
	require.NoError(t, err)
	assert.Equal(t, "run-a", latest.ID)

	pkgs, err := s.ListPackages(t.Context())
	require.NoError(t, err)
	assert.Len(t, pkgs, 1, "both runs share one package snapshot")
}

func TestReadSamples_RoundTrip(t *testing.T) {
	s := createTestStore(t)
	recordTwoRuns(t, s)

	got, err := s.ReadSamples(t.Context(), "run-b")
	require.NoError(t, err)
	if diff := cmp.Diff(edgeSamples(edgeIn, edgeOut), got); diff != "" {
		t.Errorf("samples mismatch (-want +got):\n%s", diff)
	}

	none, err := s.ReadSamples(t.Context(), "missing")
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)
}

func TestQuerySamples_Filter(t *testing.T) {
	s := createTestStore(t)
	recordTwoRuns(t, s)
	ctx := t.Context()

	tests := []struct {
		name   string
		filter SampleFilter
		want   int
	}{
		{"everything", SampleFilter{}, 16},
		{"one run", SampleFilter{RunID: "run-a"}, 4},
		{"outputs", SampleFilter{RunID: "run-b", Direction: ir.DirectionOut}, 6},
		{"by label", SampleFilter{Label: "pulse"}, 8},
		{"tick window", SampleFilter{RunID: "run-b", FromTick: 3, ToTick: 4}, 4},
		{"open upper bound", SampleFilter{RunID: "run-b", FromTick: 5}, 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.QuerySamples(ctx, tt.filter.Predicate())
			require.NoError(t, err)
			assert.Len(t, got, tt.want)
		})
	}

	t.Run("by value", func(t *testing.T) {
		got, err := s.QuerySamples(ctx, queryir.And{Predicates: []queryir.Predicate{
			queryir.Equals{Field: "run_id", Value: "run-b"},
			queryir.Equals{Field: "direction", Value: "out"},
			queryir.Equals{Field: "value", Value: ir.Bool(true)},
		}})
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, int64(4), got[0].Tick)
	})

	t.Run("invalid filter", func(t *testing.T) {
		_, err := s.QuerySamples(ctx, queryir.Equals{Field: "bogus", Value: "x"})
		assert.Error(t, err)
	})
}

func TestLoadRecording(t *testing.T) {
	s := createTestStore(t)
	recordTwoRuns(t, s)

	rec, err := s.LoadRecording(t.Context(), "")
	require.NoError(t, err)
	assert.Equal(t, "run-a", rec.Run.ID)
	assert.Len(t, rec.Samples, 4)
	assert.Equal(t, "demo/edge", rec.Doc.Type)
	assert.NoError(t, rec.Verify())

	rec, err = s.LoadRecording(t.Context(), "run-b")
	require.NoError(t, err)
	assert.NoError(t, rec.Verify())

	rec.Samples[1].Value = ir.Bool(true)
	assert.Error(t, rec.Verify(), "tampered sample changes the trace hash")

	_, err = s.LoadRecording(t.Context(), "missing")
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestSampleFilter_Predicate(t *testing.T) {
	assert.Equal(t, queryir.And{}, SampleFilter{}.Predicate())

	p := SampleFilter{RunID: "r", Label: "x", Direction: ir.DirectionIn, ToTick: 9}.Predicate()
	assert.Equal(t, queryir.And{Predicates: []queryir.Predicate{
		queryir.Equals{Field: "run_id", Value: "r"},
		queryir.Equals{Field: "direction", Value: "in"},
		queryir.Equals{Field: "label", Value: "x"},
		queryir.Between{Field: "tick", Low: 0, High: 9},
	}}, p)
}
