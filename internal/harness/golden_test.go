package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/p4ir/internal/compiler"
)

func TestRunWithGolden_Regression(t *testing.T) {
	scenario, err := LoadScenario("testdata/scenarios/regression.yaml")
	require.NoError(t, err)

	// To regenerate: go test ./internal/harness -run TestRunWithGolden -update
	require.NoError(t, RunWithGolden(t, scenario))
}

func TestAssertGolden_BuildError(t *testing.T) {
	scenario, err := LoadScenario("testdata/scenarios/bad_slice.yaml")
	require.NoError(t, err)

	result, err := Run(scenario)
	require.NoError(t, err)
	require.True(t, result.Pass, "errors: %v", result.Errors)

	require.NoError(t, AssertGolden(t, scenario.Name, result))
}

func TestOutcomeSnapshot_OmitsEmptyFields(t *testing.T) {
	r := NewResult()
	r.Outcome = OutcomeInvalid
	r.Validation = []compiler.ValidationError{{Code: "E106"}, {Code: "E108"}}

	s := NewOutcomeSnapshot("zero_width", r)
	data, err := s.Marshal()
	require.NoError(t, err)
	assert.Equal(t, `{"codes":["E106","E108"],"outcome":"invalid","scenario":"zero_width","warnings":[]}`, string(data))
}

func TestOutcomeSnapshot_Warnings(t *testing.T) {
	r := NewResult()
	r.Outcome = OutcomeOK
	r.Warnings = []compiler.CycleWarning{
		{Parser: "p", Path: []string{"a", "b", "a"}, Message: "Parser loop: a → b → a", Level: "warning"},
	}

	s := NewOutcomeSnapshot("loop", r)
	data, err := s.Marshal()
	require.NoError(t, err)
	assert.Equal(t, `{"outcome":"ok","scenario":"loop","warnings":[{"level":"warning","parser":"p","path":["a","b","a"]}]}`, string(data),
		"messages stay out of snapshots")
}

func TestOutcomeSnapshot_Deterministic(t *testing.T) {
	scenario, err := LoadScenario("testdata/scenarios/select.yaml")
	require.NoError(t, err)

	var outputs []string
	for range 5 {
		result, err := Run(scenario)
		require.NoError(t, err)
		s := NewOutcomeSnapshot(scenario.Name, result)
		data, err := s.Marshal()
		require.NoError(t, err)
		outputs = append(outputs, string(data))
	}
	for i := 1; i < len(outputs); i++ {
		assert.Equal(t, outputs[0], outputs[i], "run %d differs", i)
	}
}
