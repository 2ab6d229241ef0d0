package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// createTestProgram writes a placeholder program file; scenario loading only
// checks that it exists.
func createTestProgram(t *testing.T, dir, name string) string {
	t.Helper()
	programsDir := filepath.Join(dir, "programs")
	if err := os.MkdirAll(programsDir, 0755); err != nil {
		t.Fatal(err)
	}
	programPath := filepath.Join(programsDir, name)
	if err := os.WriteFile(programPath, []byte("// placeholder program"), 0644); err != nil {
		t.Fatal(err)
	}
	return programPath
}

// writeScenario writes content to dir/test.yaml and returns its path.
func writeScenario(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "test.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadScenario_ValidFile(t *testing.T) {
	dir := t.TempDir()
	programPath := createTestProgram(t, dir, "regression.cue")

	path := writeScenario(t, dir, `
name: test_scenario
description: "Test scenario for validation"
program: `+programPath+`
assertions:
  - type: stage
    role: Ingress
    decl: ingress
  - type: extracted_width
    parser: p
    state: start
    width: 120
golden: true
`)

	scenario, err := LoadScenario(path)
	require.NoError(t, err)

	assert.Equal(t, "test_scenario", scenario.Name)
	assert.Equal(t, "Test scenario for validation", scenario.Description)
	assert.Equal(t, programPath, scenario.Program)
	assert.Equal(t, OutcomeOK, scenario.Expect.Outcome, "outcome defaults to ok")
	assert.True(t, scenario.Golden)
	require.Len(t, scenario.Assertions, 2)
	assert.Equal(t, AssertStage, scenario.Assertions[0].Type)
	assert.Equal(t, 120, scenario.Assertions[1].Width)
}

func TestLoadScenario_RelativeProgramPath(t *testing.T) {
	dir := t.TempDir()
	createTestProgram(t, dir, "regression.cue")

	path := writeScenario(t, dir, `
name: relative
description: "Program path relative to the scenario"
program: programs/regression.cue
`)

	scenario, err := LoadScenario(path)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "programs", "regression.cue"), scenario.Program)
}

func TestLoadScenarioWithBasePath(t *testing.T) {
	dir := t.TempDir()
	base := t.TempDir()
	createTestProgram(t, base, "regression.cue")

	path := writeScenario(t, dir, `
name: based
description: "Program path relative to the base path"
program: programs/regression.cue
`)

	scenario, err := LoadScenarioWithBasePath(path, base)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(base, "programs", "regression.cue"), scenario.Program)
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario("/nonexistent/scenario.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario file")
}

func TestLoadScenario_UnknownField(t *testing.T) {
	dir := t.TempDir()
	programPath := createTestProgram(t, dir, "regression.cue")

	path := writeScenario(t, dir, `
name: typo
description: "Misspelled assertions key"
program: `+programPath+`
assertion:
  - type: loops
`)

	_, err := LoadScenario(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse YAML")
	assert.Contains(t, err.Error(), "assertion")
}

func TestLoadScenario_MalformedYAML(t *testing.T) {
	dir := t.TempDir()
	path := writeScenario(t, dir, "name: [unclosed\n")

	_, err := LoadScenario(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse YAML")
}

func TestLoadScenario_ProgramNotFound(t *testing.T) {
	dir := t.TempDir()
	path := writeScenario(t, dir, `
name: missing
description: "Program does not exist"
program: programs/nope.cue
`)

	_, err := LoadScenario(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "program file not found")
}

// =============================================================================
// Scenario Validation
// =============================================================================

func TestValidateScenario_RequiredFields(t *testing.T) {
	dir := t.TempDir()
	programPath := createTestProgram(t, dir, "p.cue")

	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name:    "missing name",
			content: "description: d\nprogram: " + programPath,
			wantErr: "name is required",
		},
		{
			name:    "missing description",
			content: "name: n\nprogram: " + programPath,
			wantErr: "description is required",
		},
		{
			name:    "missing program",
			content: "name: n\ndescription: d",
			wantErr: "program is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeScenario(t, t.TempDir(), tt.content)
			_, err := LoadScenario(path)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidateScenario_Expectations(t *testing.T) {
	dir := t.TempDir()
	programPath := createTestProgram(t, dir, "p.cue")

	tests := []struct {
		name    string
		expect  string
		wantErr string
	}{
		{"ok", "outcome: ok", ""},
		{"error with kind", "outcome: error\n  error_kind: InvalidSlice\n  error_decl: ingress", ""},
		{"error without kind", "outcome: error", "error_kind is required"},
		{"invalid with codes", "outcome: invalid\n  codes: [E106]", ""},
		{"ok with error fields", "error_kind: InvalidSlice", "error fields require outcome error or invalid"},
		{"unknown outcome", "outcome: crashed", `unknown outcome "crashed"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeScenario(t, t.TempDir(),
				"name: n\ndescription: d\nprogram: "+programPath+"\nexpect:\n  "+tt.expect+"\n")
			_, err := LoadScenario(path)
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidateScenario_AssertionsRequireOK(t *testing.T) {
	dir := t.TempDir()
	programPath := createTestProgram(t, dir, "p.cue")

	path := writeScenario(t, dir, `
name: n
description: d
program: `+programPath+`
expect:
  outcome: error
  error_kind: InvalidSlice
assertions:
  - type: loops
`)

	_, err := LoadScenario(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "assertions require outcome ok")
}

func TestValidateAssertion(t *testing.T) {
	tests := []struct {
		name      string
		assertion Assertion
		wantErr   string
	}{
		{"missing type", Assertion{}, "type is required"},
		{"unknown type", Assertion{Type: "trace_contains"}, `unknown assertion type "trace_contains"`},
		{"stage ok", Assertion{Type: AssertStage, Role: "Ingress", Decl: "ingress"}, ""},
		{"stage without decl", Assertion{Type: AssertStage, Role: "Ingress"}, "role and decl are required"},
		{"pipeline ok", Assertion{Type: AssertPipeline, Decls: []string{"p"}}, ""},
		{"pipeline empty", Assertion{Type: AssertPipeline}, "decls list is required"},
		{"extracted_width without state", Assertion{Type: AssertExtractedWidth, Parser: "p"}, "parser and state are required"},
		{"extracted_width zero ok", Assertion{Type: AssertExtractedWidth, Parser: "p", State: "orphan"}, ""},
		{"call_target without target", Assertion{Type: AssertCallTarget, Block: "ingress", Where: "apply[0]"}, "block, where and target are required"},
		{"unreachable without parser", Assertion{Type: AssertUnreachable}, "parser is required for unreachable"},
		{"no_match without parser", Assertion{Type: AssertNoMatch}, "parser is required for no_match"},
		{"type_width without name", Assertion{Type: AssertTypeWidth, Width: 8}, "type_name is required"},
		{"type_width zero", Assertion{Type: AssertTypeWidth, TypeName: "H"}, "width must be positive"},
		{"loops zero ok", Assertion{Type: AssertLoops}, ""},
		{"loops negative", Assertion{Type: AssertLoops, Count: -1}, "count must be non-negative"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateAssertion(3, &tt.assertion)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), "assertions[3]")
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadScenario_Testdata(t *testing.T) {
	paths, err := filepath.Glob("testdata/scenarios/*.yaml")
	require.NoError(t, err)
	require.NotEmpty(t, paths)

	for _, path := range paths {
		t.Run(filepath.Base(path), func(t *testing.T) {
			scenario, err := LoadScenario(path)
			require.NoError(t, err)
			base := filepath.Base(path)
			assert.Equal(t, base[:len(base)-len(".yaml")], scenario.Name, "scenario name matches file name")
		})
	}
}
