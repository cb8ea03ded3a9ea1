package compiler

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/spaghetti/internal/ir"
	"github.com/roach88/spaghetti/internal/testutil"
)

var specsDir = filepath.Join("..", "..", "testdata", "specs")

func TestLoad_Specs(t *testing.T) {
	res, errs := Load(specsDir, LoadModeCollectAll)
	require.Empty(t, errs)

	assert.Equal(t, 1, res.CUEFiles)
	assert.Equal(t, 1, res.HCLFiles)
	assert.Equal(t, []string{"demo/edge", "demo/scale", "demo/blinker", "demo/edges", "demo/edge_chain"}, res.Types())

	edge, ok := res.Lookup("demo/edge")
	require.True(t, ok)
	assert.Equal(t, "Edge Detector", edge.Meta.Name)
	assert.Equal(t, ir.Position{X: 120, Y: 40}, edge.Elements[0].Meta.Position)

	_, ok = res.Lookup("demo/missing")
	assert.False(t, ok)

	for _, doc := range res.Docs {
		assert.Empty(t, Validate(doc, nil), doc.Type)
	}
	assert.Empty(t, AnalyzeComposition(res.Docs))
}

func TestLoad_BuildRegistryAndRun(t *testing.T) {
	res, errs := Load(specsDir, LoadModeFailFast)
	require.Empty(t, errs)

	reg, err := BuildRegistry(res.Docs, nil)
	require.NoError(t, err)

	for _, typ := range res.Types() {
		assert.True(t, reg.Has(typ), typ)
	}

	pkg := testutil.NewPackage(t, reg, "demo/edge_chain")
	got := testutil.DriveBool(t, pkg, 0, 0, []bool{false, true, true, false, false, true})
	assert.Equal(t, []bool{false, false, false, true, false, false}, got)
}

func TestLoad_Errors(t *testing.T) {
	t.Run("missing directory", func(t *testing.T) {
		_, errs := Load(filepath.Join(t.TempDir(), "nope"), LoadModeFailFast)
		require.Len(t, errs, 1)
		assert.Contains(t, errs[0].Error(), ErrCodeNotFound)
	})

	t.Run("not a directory", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "file.cue")
		require.NoError(t, os.WriteFile(path, []byte("package x"), 0o644))
		_, errs := Load(path, LoadModeFailFast)
		require.Len(t, errs, 1)
		assert.Contains(t, errs[0].Error(), ErrCodeNotFound)
	})

	t.Run("no definition files", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("hi"), 0o644))
		_, errs := Load(dir, LoadModeFailFast)
		require.Len(t, errs, 1)
		assert.Contains(t, errs[0].Error(), ErrCodeNoFiles)
	})

	t.Run("duplicate type across files", func(t *testing.T) {
		dir := t.TempDir()
		def := "circuit \"demo/x\" {\n}\n"
		require.NoError(t, os.WriteFile(filepath.Join(dir, "a.hcl"), []byte(def), 0o644))
		require.NoError(t, os.WriteFile(filepath.Join(dir, "b.hcl"), []byte(def), 0o644))

		res, errs := Load(dir, LoadModeCollectAll)
		require.Len(t, errs, 1)
		assert.Contains(t, errs[0].Error(), ErrCodeDuplicate)
		assert.Equal(t, []string{"demo/x"}, res.Types())
	})

	t.Run("collect all keeps going", func(t *testing.T) {
		dir := t.TempDir()
		bad := "circuit \"x\" {\n}\n"
		good := "circuit \"demo/ok\" {\n}\n"
		require.NoError(t, os.WriteFile(filepath.Join(dir, "a.hcl"), []byte(bad), 0o644))
		require.NoError(t, os.WriteFile(filepath.Join(dir, "b.hcl"), []byte(bad), 0o644))
		require.NoError(t, os.WriteFile(filepath.Join(dir, "c.hcl"), []byte(good), 0o644))

		res, errs := Load(dir, LoadModeCollectAll)
		require.Len(t, errs, 2)
		assert.Equal(t, []string{"demo/ok"}, res.Types())

		var le *LoadError
		require.ErrorAs(t, errs[0], &le)
		assert.Equal(t, ErrBadTypeName, le.Code)
		assert.Equal(t, 1, le.Line)

		_, errs = Load(dir, LoadModeFailFast)
		assert.Len(t, errs, 1)
	})
}

func TestMapFieldToErrorCode(t *testing.T) {
	assert.Equal(t, ErrBadTypeName, MapFieldToErrorCode("type"))
	assert.Equal(t, ErrCodeBuildFailed, MapFieldToErrorCode("hcl"))
	assert.Equal(t, ErrInvalidKind, MapFieldToErrorCode("inputs[0].kind"))
	assert.Equal(t, ErrUnknownLinkEnd, MapFieldToErrorCode("links[2].to"))
	assert.Equal(t, ErrCodeGeneric, MapFieldToErrorCode("elements.a"))
}
