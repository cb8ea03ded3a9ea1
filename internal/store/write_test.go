package store

import (
	"database/sql"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/spaghetti/internal/ir"
)

func TestSavePackage_ContentAddressed(t *testing.T) {
	s := createTestStore(t)
	ctx := t.Context()

	id1, err := s.SavePackage(ctx, testDoc())
	require.NoError(t, err)
	assert.Equal(t, ir.MustPackageID(testDoc()), id1)

	id2, err := s.SavePackage(ctx, testDoc())
	require.NoError(t, err)
	assert.Equal(t, id1, id2, "same document must have the same id")

	changed := testDoc()
	changed.Meta.Name = "Edge 2"
	id3, err := s.SavePackage(ctx, changed)
	require.NoError(t, err)
	assert.NotEqual(t, id1, id3)

	pkgs, err := s.ListPackages(ctx)
	require.NoError(t, err)
	require.Len(t, pkgs, 2)
	assert.Equal(t, int64(1), pkgs[0].Seq)
	assert.Equal(t, int64(2), pkgs[1].Seq)
	assert.Equal(t, "Edge 2", pkgs[1].Name)
}

func TestSavePackage_RoundTrip(t *testing.T) {
	s := createTestStore(t)
	ctx := t.Context()

	doc := testDoc()
	doc.Elements = append(doc.Elements, ir.ElementDoc{
		ID:      2,
		Type:    "values/const_float",
		Meta:    ir.Metadata{Name: "k", Position: ir.Position{X: 1.5, Y: -2}},
		Config:  ir.Config{"value": ir.Float(0.25)},
		Inputs:  []ir.SocketDoc{},
		Outputs: []ir.SocketDoc{{Label: "#1", Kind: ir.KindFloat}},
	})

	id, err := s.SavePackage(ctx, doc)
	require.NoError(t, err)

	rec, err := s.ReadPackage(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "demo/edge", rec.Type)
	if diff := cmp.Diff(doc, rec.Doc); diff != "" {
		t.Errorf("stored doc mismatch (-want +got):\n%s", diff)
	}
}

func TestCreateRun(t *testing.T) {
	s := createTestStore(t)
	ctx := t.Context()

	pkgID, err := s.SavePackage(ctx, testDoc())
	require.NoError(t, err)

	run, err := s.CreateRun(ctx, "run-1", pkgID)
	require.NoError(t, err)
	assert.Equal(t, Run{
		ID:            "run-1",
		PackageID:     pkgID,
		Seq:           1,
		EngineVersion: ir.EngineVersion,
		IRVersion:     ir.IRVersion,
	}, run)

	_, err = s.CreateRun(ctx, "run-1", pkgID)
	assert.Error(t, err, "duplicate run id")

	_, err = s.CreateRun(ctx, "run-2", "no-such-package")
	assert.Error(t, err, "foreign key on package_id")
}

func TestWriteSamples(t *testing.T) {
	s := createTestStore(t)
	ctx := t.Context()

	pkgID, err := s.SavePackage(ctx, testDoc())
	require.NoError(t, err)
	_, err = s.CreateRun(ctx, "run-1", pkgID)
	require.NoError(t, err)

	first := edgeSamples([]bool{false, true, true}, []bool{false, false, false})
	require.NoError(t, s.WriteSamples(ctx, "run-1", first))

	run, err := s.ReadRun(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, int64(3), run.Ticks)

	// Rewriting tick 3 is ignored, tick 4 is appended.
	more := edgeSamples([]bool{false, true, true, false}, []bool{false, false, false, true})[4:]
	more[0].Value = ir.Bool(false)
	require.NoError(t, s.WriteSamples(ctx, "run-1", more))

	got, err := s.ReadSamples(ctx, "run-1")
	require.NoError(t, err)
	require.Len(t, got, 8)
	assert.Equal(t, ir.Bool(true), got[4].Value, "tick 3 input keeps its first value")
	assert.Equal(t, ir.Bool(true), got[7].Value)

	run, err = s.ReadRun(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, int64(4), run.Ticks)
}

func TestWriteSamples_Errors(t *testing.T) {
	s := createTestStore(t)
	ctx := t.Context()

	smp := []ir.Sample{{Tick: 1, Direction: ir.DirectionIn, Label: "in", Value: ir.Bool(true)}}
	assert.Error(t, s.WriteSamples(ctx, "no-such-run", smp), "foreign key on run_id")

	pkgID, err := s.SavePackage(ctx, testDoc())
	require.NoError(t, err)
	_, err = s.CreateRun(ctx, "run-1", pkgID)
	require.NoError(t, err)

	bad := []ir.Sample{
		{Tick: 1, Direction: ir.DirectionIn, Label: "in", Value: ir.Bool(true)},
		{Tick: 1, Direction: ir.DirectionOut, Label: "pulse"},
	}
	assert.Error(t, s.WriteSamples(ctx, "run-1", bad), "nil value")

	got, err := s.ReadSamples(ctx, "run-1")
	require.NoError(t, err)
	assert.Empty(t, got, "failed batch must roll back")
}

func TestFinishRun(t *testing.T) {
	s := createTestStore(t)
	ctx := t.Context()

	err := s.FinishRun(ctx, "missing", "abc")
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestRecordRun(t *testing.T) {
	s := createTestStore(t)
	ctx := t.Context()

	samples := edgeSamples(
		[]bool{false, true, true, false, false, true},
		[]bool{false, false, false, true, false, false},
	)
	run, err := s.RecordRun(ctx, "run-1", testDoc(), samples)
	require.NoError(t, err)

	hash, err := ir.TraceHash(samples)
	require.NoError(t, err)
	assert.Equal(t, hash, run.TraceHash)
	assert.Equal(t, int64(6), run.Ticks)
	assert.Equal(t, ir.MustPackageID(testDoc()), run.PackageID)
}
