// Package harness provides conformance testing for rgxlog programs.
//
// The harness runs a sequence of programs through one engine session per
// backend and checks query answers, expected errors and final relation
// contents. Every backend call is recorded as a transcript, which can be
// compared against a golden file.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: scenario_name
//	description: "What this scenario validates"
//	backends: [memory, sqlite, mangle]   # optional, default all
//	max_ie_tuples: 100                   # optional
//	golden: true                         # compare the transcript
//	steps:
//	  - program:                         # labeled tree statements
//	      - relation_declaration:
//	          - relation_name:parent
//	          - decl_term_list: [type:str, type:str]
//	    expect:
//	      results:
//	        - query: parent(X, Y)
//	          rows: ['("abe", "homer")']
//	  - program: [...]
//	    expect:
//	      error: RuleNotSafe
//	assertions:
//	  - type: rows
//	    relation: parent
//	    rows: ['("abe", "homer")']
//
// Statements use the compact labeled-tree forms accepted by ast.ReadYAML.
// Expected errors name a compiler error kind, an engine runtime error code
// or "ShapeError".
//
// # Assertion Types
//
//   - rows: the relation holds exactly the given rows
//   - contains: the relation holds at least the given rows
//   - count: the relation holds exactly Count rows
//
// # Deterministic Testing
//
// Every run uses a fixed session ID and a fresh temporary relation namer,
// and backends answer queries in ir.CompareTuples order, so the transcript
// of a scenario is byte-identical across runs and across backends.
//
// # Usage
//
//	scenario, err := harness.LoadScenario("testdata/scenarios/parent.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	result, err := harness.Run(ctx, scenario, "sqlite")
//	if !result.Pass {
//	    for _, err := range result.Errors {
//	        log.Println(err)
//	    }
//	}
package harness
