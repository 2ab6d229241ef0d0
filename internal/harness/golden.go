package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/p4ir/internal/ir"
)

// OutcomeSnapshot captures the deterministic part of a scenario run.
// Fingerprints and build ids are left out; they live in the store.
type OutcomeSnapshot struct {
	ScenarioName string
	Outcome      string
	ErrorKind    string
	ErrorDecl    string
	Codes        []string
	Package      *ir.ResolvedPackage
	Warnings     []loopFinding
}

type loopFinding struct {
	Parser string
	Level  string
	Path   []string
}

// NewOutcomeSnapshot extracts the snapshot of a finished run.
func NewOutcomeSnapshot(scenarioName string, result *Result) OutcomeSnapshot {
	s := OutcomeSnapshot{
		ScenarioName: scenarioName,
		Outcome:      result.Outcome,
		ErrorKind:    result.ErrorKind,
		ErrorDecl:    result.ErrorDecl,
		Codes:        result.Codes(),
	}
	if result.Program != nil {
		s.Package = result.Program.Main
	}
	for _, w := range result.Warnings {
		s.Warnings = append(s.Warnings, loopFinding{Parser: w.Parser, Level: w.Level, Path: w.Path})
	}
	return s
}

// toCanonicalMap converts the snapshot to a map[string]any for canonical JSON serialization.
// This is required because ir.MarshalCanonical only handles maps, slices and primitives.
func (s *OutcomeSnapshot) toCanonicalMap() map[string]any {
	warnings := make([]any, len(s.Warnings))
	for i, w := range s.Warnings {
		path := w.Path
		if path == nil {
			path = []string{}
		}
		warnings[i] = map[string]any{
			"parser": w.Parser,
			"level":  w.Level,
			"path":   path,
		}
	}

	m := map[string]any{
		"scenario": s.ScenarioName,
		"outcome":  s.Outcome,
		"warnings": warnings,
	}
	if s.ErrorKind != "" {
		m["error_kind"] = s.ErrorKind
	}
	if s.ErrorDecl != "" {
		m["error_decl"] = s.ErrorDecl
	}
	if len(s.Codes) > 0 {
		m["codes"] = s.Codes
	}
	if s.Package != nil {
		m["package"] = ir.Snapshot(s.Package)
	}
	return m
}

// Marshal renders the snapshot as canonical JSON.
func (s *OutcomeSnapshot) Marshal() ([]byte, error) {
	return ir.MarshalCanonical(s.toCanonicalMap())
}

// RunWithGolden executes a scenario and compares its outcome snapshot against a
// golden file. The golden file is stored in testdata/golden/{scenario.Name}.golden
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns error if scenario execution fails.
// Test failure (via goldie) occurs if the snapshot doesn't match the golden file.
func RunWithGolden(t *testing.T, scenario *Scenario) error {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return err
	}
	return AssertGolden(t, scenario.Name, result)
}

// AssertGolden compares the given result's snapshot against a golden file
// without re-running the scenario.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	snapshot := NewOutcomeSnapshot(scenarioName, result)
	data, err := snapshot.Marshal()
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, data)

	return nil
}
