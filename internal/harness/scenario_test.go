package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadScenario(t *testing.T) {
	s, err := LoadScenario("testdata/scenarios/parent.yaml")
	require.NoError(t, err)

	assert.Equal(t, "parent", s.Name)
	assert.True(t, s.Golden)
	assert.Equal(t, filepath.Join("testdata", "scenarios"), s.Dir)
	require.Len(t, s.Steps, 2)
	assert.Len(t, s.Steps[0].Program, 6)
	assert.Equal(t, "program", s.Steps[0].Source().Data)
	require.Len(t, s.Steps[0].Expect.Results, 1)
	assert.Equal(t, "grandparent(X, Z)", s.Steps[0].Expect.Results[0].Query)
	require.Len(t, s.Assertions, 2)
	assert.Equal(t, AssertRows, s.Assertions[0].Type)
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.ErrorContains(t, err, "failed to read scenario file")
}

func TestLoadScenarios_Sorted(t *testing.T) {
	dir := t.TempDir()
	body := "description: d\nsteps:\n  - program: [{data: relation_declaration}]\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.yaml"), []byte("name: b\n"+body), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.yaml"), []byte("name: a\n"+body), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0o644))

	scenarios, err := LoadScenarios(dir)
	require.NoError(t, err)
	require.Len(t, scenarios, 2)
	assert.Equal(t, "a", scenarios[0].Name)
	assert.Equal(t, "b", scenarios[1].Name)
}

func TestParseScenario_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		input string
		err   string
	}{
		{
			name:  "unknown field",
			input: "name: x\ndescription: d\nstep: []\n",
			err:   "failed to parse YAML",
		},
		{
			name:  "missing name",
			input: "description: d\nsteps: [{program: [{data: relation_declaration}]}]\n",
			err:   "name is required",
		},
		{
			name:  "missing description",
			input: "name: x\nsteps: [{program: [{data: relation_declaration}]}]\n",
			err:   "description is required",
		},
		{
			name:  "no steps",
			input: "name: x\ndescription: d\n",
			err:   "steps list is required",
		},
		{
			name:  "empty program",
			input: "name: x\ndescription: d\nsteps: [{program: []}]\n",
			err:   "steps[0]: program is required",
		},
		{
			name:  "unknown backend",
			input: "name: x\ndescription: d\nbackends: [oracle]\nsteps: [{program: [{data: relation_declaration}]}]\n",
			err:   `unknown backend "oracle"`,
		},
		{
			name:  "negative quota",
			input: "name: x\ndescription: d\nmax_ie_tuples: -1\nsteps: [{program: [{data: relation_declaration}]}]\n",
			err:   "max_ie_tuples must be non-negative",
		},
		{
			name: "error and results",
			input: `name: x
description: d
steps:
  - program: [{data: relation_declaration}]
    expect:
      error: RuleNotSafe
      results: [{rows: []}]
`,
			err: "error and results are exclusive",
		},
		{
			name:  "unknown assertion",
			input: "name: x\ndescription: d\nsteps: [{program: [{data: relation_declaration}]}]\nassertions: [{type: exists, relation: r}]\n",
			err:   `unknown assertion type "exists"`,
		},
		{
			name:  "contains without rows",
			input: "name: x\ndescription: d\nsteps: [{program: [{data: relation_declaration}]}]\nassertions: [{type: contains, relation: r}]\n",
			err:   "rows are required for contains",
		},
		{
			name:  "assertion without relation",
			input: "name: x\ndescription: d\nsteps: [{program: [{data: relation_declaration}]}]\nassertions: [{type: count}]\n",
			err:   "relation is required",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseScenario([]byte(tt.input))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.err)
		})
	}
}

func TestRunsOn(t *testing.T) {
	all := &Scenario{}
	for _, b := range AllBackends {
		assert.True(t, all.RunsOn(b))
	}
	assert.False(t, all.RunsOn("postgres"))

	only := &Scenario{Backends: []string{"memory"}}
	assert.True(t, only.RunsOn("memory"))
	assert.False(t, only.RunsOn("sqlite"))
}
