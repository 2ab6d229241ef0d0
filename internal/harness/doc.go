// Package harness provides conformance testing for p4ir programs.
//
// The harness loads a CUE program, runs static validation and the builder, and
// checks the outcome against the scenario's expectations and assertions.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: scenario_name
//	description: "What this scenario validates"
//	program: ../programs/regression.cue
//	arch: v1model            # optional, overrides the program's arch
//	expect:
//	  outcome: ok            # ok | error | invalid
//	  error_kind: InvalidSlice
//	  error_decl: ingress
//	  message_contains: "out of range"
//	  codes: [E106]
//	assertions:
//	  - type: stage
//	    role: Ingress
//	    decl: ingress
//	  - type: extracted_width
//	    parser: p
//	    state: start
//	    width: 120
//	golden: true
//
// # Assertion Types
//
// The following assertion types are supported:
//
//   - stage: the package binds role to decl
//   - pipeline: the role-bound blocks in execution order
//   - extracted_width: bits consumed by a parser state's extractions
//   - call_target: the declaration a call site resolved to
//   - unreachable: the parser states not reachable from start
//   - no_match: the reachable states whose select has no default arm
//   - type_width: the layout width of a named type
//   - loops: the number of parser loop warnings
//
// # Deterministic Testing
//
// Every scenario builds in isolation and records its build in a fresh in-memory
// store with a fixed build id, so golden snapshots are reproducible.
//
// # Usage
//
//	scenario, err := harness.LoadScenario("testdata/scenarios/regression.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	result, err := harness.Run(scenario)
//	if !result.Pass {
//	    for _, err := range result.Errors {
//	        log.Println(err)
//	    }
//	}
package harness
