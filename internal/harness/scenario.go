package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/roach88/rgxlog/internal/ast"
	"github.com/roach88/rgxlog/internal/config"
)

// AllBackends lists the backends a scenario runs on by default.
var AllBackends = []string{config.BackendMemory, config.BackendSQLite, config.BackendMangle}

// Scenario defines a conformance test scenario.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Backends restricts the backends the scenario runs on.
	Backends []string `yaml:"backends,omitempty"`

	// MaxIETuples overrides the engine's IE tuple quota.
	MaxIETuples *int `yaml:"max_ie_tuples,omitempty"`

	// Golden enables transcript comparison against testdata/golden/{name}.golden.
	Golden bool `yaml:"golden,omitempty"`

	// Steps are loaded into one session in order.
	Steps []Step `yaml:"steps"`

	// Assertions check relation contents after the last step.
	Assertions []Assertion `yaml:"assertions,omitempty"`

	// Dir is the directory of the scenario file. Relative read paths
	// resolve against it.
	Dir string `yaml:"-"`
}

// Step is one program and its expected outcome.
type Step struct {
	// Program holds the program's statements as labeled trees.
	Program []*ast.Labeled `yaml:"program"`

	// Expect specifies the expected outcome. A zero Expect means the
	// program succeeds without queries.
	Expect Expect `yaml:"expect,omitempty"`
}

// Expect specifies the expected outcome of a step.
type Expect struct {
	// Error is the expected error kind; empty means success.
	Error string `yaml:"error,omitempty"`

	// Results are the expected query answers in execution order.
	Results []ExpectedResult `yaml:"results,omitempty"`
}

// ExpectedResult is the expected answer to one query.
type ExpectedResult struct {
	// Query is the rendered query, e.g. parent("abe", X). Optional.
	Query string `yaml:"query,omitempty"`

	// Rows are rendered tuples in answer order.
	Rows []string `yaml:"rows"`
}

// Assertion validates final relation contents.
type Assertion struct {
	// Type is one of rows, contains, count.
	Type string `yaml:"type"`

	// Relation is the relation to read.
	Relation string `yaml:"relation"`

	// Rows are rendered tuples (used by rows and contains).
	Rows []string `yaml:"rows,omitempty"`

	// Count is the expected number of rows (used by count).
	Count int `yaml:"count,omitempty"`
}

// Assertion type constants.
const (
	AssertRows     = "rows"
	AssertContains = "contains"
	AssertCount    = "count"
)

// Source assembles the step's statements into a program tree.
func (s Step) Source() *ast.Labeled {
	return ast.Tree("program", s.Program...)
}

// RunsOn reports whether the scenario runs on backend.
func (s *Scenario) RunsOn(backend string) bool {
	if len(s.Backends) == 0 {
		return slices.Contains(AllBackends, backend)
	}
	return slices.Contains(s.Backends, backend)
}

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	scenario, err := ParseScenario(data)
	if err != nil {
		return nil, err
	}
	scenario.Dir = filepath.Dir(path)
	return scenario, nil
}

// ParseScenario parses scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	// Strict field validation catches typos like "assertion:" vs "assertions:"
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// LoadScenarios loads every *.yaml scenario in dir, sorted by file name.
func LoadScenarios(dir string) ([]*Scenario, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.yaml"))
	if err != nil {
		return nil, err
	}
	sort.Strings(paths)

	scenarios := make([]*Scenario, 0, len(paths))
	for _, path := range paths {
		s, err := LoadScenario(path)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		scenarios = append(scenarios, s)
	}
	return scenarios, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	for _, b := range s.Backends {
		if !slices.Contains(AllBackends, b) {
			return fmt.Errorf("unknown backend %q", b)
		}
	}

	if s.MaxIETuples != nil && *s.MaxIETuples < 0 {
		return fmt.Errorf("max_ie_tuples must be non-negative")
	}

	for i, step := range s.Steps {
		if len(step.Program) == 0 {
			return fmt.Errorf("steps[%d]: program is required", i)
		}
		if step.Expect.Error != "" && len(step.Expect.Results) > 0 {
			return fmt.Errorf("steps[%d].expect: error and results are exclusive", i)
		}
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}

	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}
	if a.Relation == "" {
		return fmt.Errorf("assertions[%d]: relation is required", index)
	}

	switch a.Type {
	case AssertRows:
	case AssertContains:
		if len(a.Rows) == 0 {
			return fmt.Errorf("assertions[%d]: rows are required for contains", index)
		}
	case AssertCount:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}
