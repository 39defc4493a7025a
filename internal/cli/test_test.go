package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const harnessScenarios = "../harness/testdata/scenarios"

const failingScenario = `name: wrong
description: "expects a row the program never derives"
steps:
  - program:
      - relation_declaration:
          - relation_name:r
          - decl_term_list: [type:int]
      - add_fact:
          - relation_name:r
          - const_term_list: [integer:1]
      - query:
          - relation:
              - relation_name:r
              - term_list: [free_var_name:X]
    expect:
      results:
        - query: r(X)
          rows: ['(2)']
`

func writeScenario(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0644))
}

func TestTestPassingScenarios(t *testing.T) {
	stdout, _, err := execute(t, "test", "--backend", "memory", harnessScenarios)
	require.NoError(t, err, stdout)

	assert.Contains(t, stdout, "✓ parent [memory]")
	assert.Contains(t, stdout, "✓ cousin [memory]")
	assert.Contains(t, stdout, "0 failed")
	assert.NotContains(t, stdout, "[sqlite]")
}

func TestTestFilter(t *testing.T) {
	stdout, _, err := execute(t, "--format", "json", "test", "--backend", "memory", "--filter", "par*", harnessScenarios)
	require.NoError(t, err)

	var resp struct {
		Status string     `json:"status"`
		Data   TestResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &resp))
	assert.Equal(t, "ok", resp.Status)
	require.Len(t, resp.Data.Scenarios, 1)
	assert.Equal(t, "parent", resp.Data.Scenarios[0].Name)
	assert.Equal(t, 1, resp.Data.Passed)
}

func TestTestFailingScenario(t *testing.T) {
	dir := t.TempDir()
	writeScenario(t, dir, "wrong.yaml", failingScenario)

	stdout, _, err := execute(t, "test", "--backend", "memory", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, stdout, "✗ wrong [memory]")
	assert.Contains(t, stdout, "1 failed")
}

func TestTestUpdateGolden(t *testing.T) {
	dir := t.TempDir()
	scenarios := filepath.Join(dir, "scenarios")
	require.NoError(t, os.MkdirAll(scenarios, 0755))
	data, err := os.ReadFile(filepath.Join(harnessScenarios, "parent.yaml"))
	require.NoError(t, err)
	writeScenario(t, scenarios, "parent.yaml", string(data))

	_, _, err = execute(t, "test", "--backend", "memory", "--update", scenarios)
	require.NoError(t, err)

	written, err := os.ReadFile(filepath.Join(dir, "golden", "parent.golden"))
	require.NoError(t, err)
	want, err := os.ReadFile("../harness/testdata/golden/parent.golden")
	require.NoError(t, err)
	assert.Equal(t, string(want), string(written))

	// The regenerated file now matches.
	_, _, err = execute(t, "test", "--backend", "memory", scenarios)
	require.NoError(t, err)
}

func TestTestMissingGolden(t *testing.T) {
	dir := t.TempDir()
	data, err := os.ReadFile(filepath.Join(harnessScenarios, "parent.yaml"))
	require.NoError(t, err)
	writeScenario(t, dir, "parent.yaml", string(data))

	stdout, _, err := execute(t, "test", "--backend", "memory", "--golden-dir", t.TempDir(), dir)
	require.Error(t, err)
	assert.Contains(t, stdout, "failed to read golden file")
}

func TestTestMissingDirectory(t *testing.T) {
	_, _, err := execute(t, "test", "testdata/no-such-dir")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestTestInvalidFilter(t *testing.T) {
	_, _, err := execute(t, "test", "--filter", "[", harnessScenarios)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
