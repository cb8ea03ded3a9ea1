package cli

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const edgeScenario = `name: edge
description: falling edge
specs: [SPECS]
type: demo/edge
ticks: 6
inputs:
  in: [false, true, true, false, false, true]
expect:
  pulse: [false, false, false, true, false, false]
`

const wrongScenario = `name: wrong
description: expects the pulse a tick late
specs: [SPECS]
type: demo/edge
ticks: 3
inputs:
  in: [true, false]
expect:
  pulse: [false, false, true]
`

// scenarioDir writes scenario files into a fresh directory, pointing
// their SPECS placeholder at the shared definitions.
func scenarioDir(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	specs := absSpecs(t)
	for name, content := range files {
		path := filepath.Join(dir, name)
		content = strings.ReplaceAll(content, "SPECS", strconv.Quote(specs))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	return dir
}

func absSpecs(t *testing.T) string {
	t.Helper()
	abs, err := filepath.Abs(specsDir)
	require.NoError(t, err)
	return abs
}

func TestTestCommand_Scenarios(t *testing.T) {
	out, _, err := execute(t, "test", scenariosDir)
	require.NoError(t, err, out)

	assert.Contains(t, out, "✓ falling_edge")
	assert.Contains(t, out, "✓ blinker")
	assert.Contains(t, out, "Test Summary: 4 passed, 0 failed, 4 total")
	assert.Contains(t, out, "✓ All scenarios passed")
}

func TestTestCommand_JSON(t *testing.T) {
	out, _, err := execute(t, "--format", "json", "test", scenariosDir)
	require.NoError(t, err, out)

	var result TestResult
	resp := decodeResponse(t, out, &result)
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, 4, result.Total)
	assert.Equal(t, 4, result.Passed)

	var names []string
	for _, s := range result.Scenarios {
		names = append(names, s.Name)
		assert.True(t, s.Pass, s.Name)
		assert.NotEmpty(t, s.TraceHash, s.Name)
	}
	assert.Equal(t, []string{"blinker", "edge_chain", "falling_edge", "scale"}, names)
}

func TestTestCommand_Filter(t *testing.T) {
	out, _, err := execute(t, "--format", "json", "test", scenariosDir, "--filter", "falling*")
	require.NoError(t, err)

	var result TestResult
	decodeResponse(t, out, &result)
	require.Equal(t, 1, result.Total)
	assert.Equal(t, "falling_edge", result.Scenarios[0].Name)
}

func TestTestCommand_Failures(t *testing.T) {
	dir := scenarioDir(t, map[string]string{
		"edge.yaml":  edgeScenario,
		"wrong.yaml": wrongScenario,
		"bad.yaml":   "name: [unclosed\n",
	})

	out, _, err := execute(t, "--format", "json", "test", dir, "--specs", absSpecs(t))
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var result TestResult
	resp := decodeResponse(t, out, &result)
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeTestFailed, resp.Error.Code)
	assert.Equal(t, 3, result.Total)
	assert.Equal(t, 1, result.Passed)
	assert.Equal(t, 2, result.Failed)

	byName := map[string]ScenarioResult{}
	for _, s := range result.Scenarios {
		byName[s.Name] = s
	}
	require.Contains(t, byName, "bad.yaml")
	assert.Contains(t, byName["bad.yaml"].Errors[0], "Load error")
	require.Contains(t, byName, "wrong")
	assert.False(t, byName["wrong"].Pass)
	assert.True(t, byName["edge"].Pass)
}

func TestTestCommand_Golden(t *testing.T) {
	dir := scenarioDir(t, map[string]string{"edge.yaml": edgeScenario})
	specs := absSpecs(t)
	golden := filepath.Join(dir, "golden", "edge.golden")

	out, _, err := execute(t, "test", dir, "--specs", specs, "--update")
	require.NoError(t, err)
	assert.Contains(t, out, "✓ edge (golden updated)")
	data, err := os.ReadFile(golden)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"demo/edge"`)

	_, _, err = execute(t, "test", dir, "--specs", specs)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(golden, []byte("{}\n"), 0o644))
	out, _, err = execute(t, "test", dir, "--specs", specs)
	require.Error(t, err)
	assert.Contains(t, out, "✗ edge")
	assert.Contains(t, out, "trace does not match golden file")
}

func TestTestCommand_Errors(t *testing.T) {
	t.Run("missing scenarios directory", func(t *testing.T) {
		_, _, err := execute(t, "test", filepath.Join(t.TempDir(), "nope"))
		require.Error(t, err)
		assert.Equal(t, ExitCommandError, GetExitCode(err))
	})

	t.Run("missing specs directory", func(t *testing.T) {
		_, _, err := execute(t, "test", scenariosDir, "--specs", filepath.Join(t.TempDir(), "nope"))
		require.Error(t, err)
		assert.Equal(t, ExitCommandError, GetExitCode(err))
		assert.Contains(t, err.Error(), "specs directory not found")
	})

	t.Run("bad filter", func(t *testing.T) {
		_, _, err := execute(t, "test", scenariosDir, "--filter", "[")
		require.Error(t, err)
		assert.Equal(t, ExitCommandError, GetExitCode(err))
	})

	t.Run("no scenarios", func(t *testing.T) {
		out, _, err := execute(t, "test", t.TempDir())
		require.NoError(t, err)
		assert.Contains(t, out, "No scenarios found.")
	})
}

func TestFindScenarioFiles(t *testing.T) {
	dir := scenarioDir(t, map[string]string{
		"b.yml":              "",
		"a.yaml":             "",
		"notes.txt":          "",
		"nested/c.yaml":      "",
		"golden/skip.yaml":   "",
		"golden/a.golden":    "",
		"nested/golden.yaml": "",
	})

	files, err := findScenarioFiles(dir, "")
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "a.yaml"),
		filepath.Join(dir, "b.yml"),
		filepath.Join(dir, "nested", "c.yaml"),
		filepath.Join(dir, "nested", "golden.yaml"),
	}, files)

	files, err = findScenarioFiles(dir, "c")
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "nested", "c.yaml")}, files)
}

func TestGoldenFilePath(t *testing.T) {
	assert.Equal(t, filepath.Join("scenarios", "golden", "edge.golden"), goldenFilePath(filepath.Join("scenarios", "edge.yaml")))
}
