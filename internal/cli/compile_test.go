package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/spaghetti/internal/compiler"
)

// writeDefs writes definition files into a fresh directory.
func writeDefs(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}
	return dir
}

func TestCompile_Text(t *testing.T) {
	out, _, err := execute(t, "compile", specsDir)
	require.NoError(t, err)

	assert.Contains(t, out, "✓ Compiled 5 definition(s) from 1 CUE and 1 HCL file(s)")
	assert.Contains(t, out, "Definitions:")
	assert.Contains(t, out, "demo/edge: 1 input(s), 1 output(s), 1 element(s), 2 link(s)")
	assert.Contains(t, out, "demo/blinker: 0 input(s), 1 output(s), 1 element(s), 2 link(s)")
}

func TestCompile_JSON(t *testing.T) {
	out, _, err := execute(t, "--format", "json", "compile", specsDir)
	require.NoError(t, err)

	var result struct {
		Packages []struct {
			Type string `json:"type"`
		} `json:"packages"`
	}
	resp := decodeResponse(t, out, &result)
	assert.Equal(t, "ok", resp.Status)

	var types []string
	for _, p := range result.Packages {
		types = append(types, p.Type)
	}
	assert.Equal(t, []string{"demo/edge", "demo/scale", "demo/blinker", "demo/edges", "demo/edge_chain"}, types)
}

func TestCompile_OutputFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "defs.json")

	out, _, err := execute(t, "compile", specsDir, "-o", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Wrote canonical JSON to "+path)

	first, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(first), `"type":"demo/edge"`)

	// Canonical output is stable across compilations.
	_, _, err = execute(t, "compile", specsDir, "-o", path)
	require.NoError(t, err)
	second, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestCompile_Errors(t *testing.T) {
	t.Run("missing directory", func(t *testing.T) {
		out, _, err := execute(t, "compile", filepath.Join(t.TempDir(), "nope"))
		require.Error(t, err)
		assert.Equal(t, ExitCommandError, GetExitCode(err))
		assert.Contains(t, out, "Error ["+compiler.ErrCodeNotFound+"]")
	})

	t.Run("no definition files", func(t *testing.T) {
		dir := writeDefs(t, map[string]string{"README.md": "nothing here"})
		out, _, err := execute(t, "--format", "json", "compile", dir)
		require.Error(t, err)

		resp := decodeResponse(t, out, nil)
		assert.Equal(t, "error", resp.Status)
		require.NotNil(t, resp.Error)
		assert.Equal(t, compiler.ErrCodeNoFiles, resp.Error.Code)
	})

	t.Run("bad definition", func(t *testing.T) {
		dir := writeDefs(t, map[string]string{"bad.hcl": "circuit \"x\" {\n}\n"})
		out, _, err := execute(t, "compile", dir)
		require.Error(t, err)
		assert.Equal(t, ExitCommandError, GetExitCode(err))
		assert.Contains(t, out, "✗ Compilation failed")
		assert.Contains(t, out, "bad.hcl:1:")
	})

	t.Run("recursive composition", func(t *testing.T) {
		dir := writeDefs(t, map[string]string{"loop.hcl": `
circuit "demo/ping" {
  element "p" {
    type = "demo/pong"
  }
}
circuit "demo/pong" {
  element "p" {
    type = "demo/ping"
  }
}
`})
		out, _, err := execute(t, "--format", "json", "compile", dir)
		require.Error(t, err)

		var details []CLIError
		resp := decodeResponse(t, out, &details)
		require.NotNil(t, resp.Error)
		assert.Equal(t, compiler.ErrSelfNesting, resp.Error.Code)
		assert.Contains(t, resp.Error.Message, "demo/ping -> demo/pong -> demo/ping")
		assert.Len(t, details, 1)
	})
}
