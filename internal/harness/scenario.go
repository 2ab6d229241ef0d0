package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Scenario defines a conformance test scenario: one program and the outcome its
// build must have.
type Scenario struct {
	// Name uniquely identifies this scenario. It also names the golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Program is the path of the CUE program file.
	// Relative paths are resolved against the scenario file location.
	Program string `yaml:"program"`

	// Arch overrides the program's architecture prelude when set.
	Arch string `yaml:"arch,omitempty"`

	// Expect specifies the build outcome.
	Expect Expectation `yaml:"expect"`

	// Assertions inspect the resolved package. Only valid with outcome ok.
	Assertions []Assertion `yaml:"assertions,omitempty"`

	// Golden compares the outcome snapshot against testdata/golden/{name}.golden.
	Golden bool `yaml:"golden,omitempty"`
}

// Expectation specifies how the build must end.
type Expectation struct {
	// Outcome is "ok", "error" (builder rejected a declaration) or "invalid"
	// (the program failed to decode or validate). Defaults to "ok".
	Outcome string `yaml:"outcome,omitempty"`

	// ErrorKind is the expected build error kind (e.g., "InvalidSlice").
	ErrorKind string `yaml:"error_kind,omitempty"`

	// ErrorDecl is the declaration the build error is attributed to.
	ErrorDecl string `yaml:"error_decl,omitempty"`

	// MessageContains is a substring of the error message.
	MessageContains string `yaml:"message_contains,omitempty"`

	// Codes are the expected validation codes, in order (outcome invalid).
	Codes []string `yaml:"codes,omitempty"`
}

// Outcome values.
const (
	OutcomeOK      = "ok"
	OutcomeError   = "error"
	OutcomeInvalid = "invalid"
)

// Assertion inspects the resolved package of a successful build.
type Assertion struct {
	// Type specifies the assertion type (see the Assert* constants).
	Type string `yaml:"type"`

	// Role is the architecture role name (used by stage).
	Role string `yaml:"role,omitempty"`

	// Decl is the expected block name (used by stage).
	Decl string `yaml:"decl,omitempty"`

	// Decls is the expected pipeline order (used by pipeline).
	Decls []string `yaml:"decls,omitempty"`

	// Parser and State locate a parser state (extracted_width, unreachable, no_match).
	Parser string `yaml:"parser,omitempty"`
	State  string `yaml:"state,omitempty"`

	// States is the expected state list (unreachable, no_match).
	States []string `yaml:"states,omitempty"`

	// Block and Where locate a call site (call_target). Block is a control or
	// parser name; Where is the call site location ("apply[0]", "start[1]").
	Block string `yaml:"block,omitempty"`
	Where string `yaml:"where,omitempty"`

	// Target is the expected resolved declaration (call_target).
	Target string `yaml:"target,omitempty"`

	// TypeName is the type to measure (type_width).
	TypeName string `yaml:"type_name,omitempty"`

	// Width is the expected width in bits (extracted_width, type_width).
	Width int `yaml:"width,omitempty"`

	// Count is the expected number of loop warnings (loops).
	Count int `yaml:"count,omitempty"`
}

// Assertion type constants.
const (
	AssertStage          = "stage"
	AssertPipeline       = "pipeline"
	AssertExtractedWidth = "extracted_width"
	AssertCallTarget     = "call_target"
	AssertUnreachable    = "unreachable"
	AssertNoMatch        = "no_match"
	AssertTypeWidth      = "type_width"
	AssertLoops          = "loops"
)

// LoadScenario reads and parses a scenario YAML file.
// The program path is resolved relative to the scenario file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	return LoadScenarioWithBasePath(path, filepath.Dir(path))
}

// LoadScenarioWithBasePath reads and parses a scenario YAML file,
// resolving the program path relative to the provided base path.
func LoadScenarioWithBasePath(path, basePath string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	// Strict field validation catches typos like "assertion:" vs "assertions:"
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	// Resolve the program path BEFORE validation
	if scenario.Program != "" && !filepath.IsAbs(scenario.Program) && basePath != "" {
		scenario.Program = filepath.Join(basePath, scenario.Program)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if s.Program == "" {
		return fmt.Errorf("program is required")
	}
	if _, err := os.Stat(s.Program); os.IsNotExist(err) {
		return fmt.Errorf("program file not found: %s", s.Program)
	}

	if s.Expect.Outcome == "" {
		s.Expect.Outcome = OutcomeOK
	}
	switch s.Expect.Outcome {
	case OutcomeOK:
		if s.Expect.ErrorKind != "" || s.Expect.ErrorDecl != "" || s.Expect.MessageContains != "" || len(s.Expect.Codes) > 0 {
			return fmt.Errorf("expect: error fields require outcome error or invalid")
		}
	case OutcomeError:
		if s.Expect.ErrorKind == "" {
			return fmt.Errorf("expect: error_kind is required for outcome error")
		}
	case OutcomeInvalid:
	default:
		return fmt.Errorf("expect: unknown outcome %q", s.Expect.Outcome)
	}

	if len(s.Assertions) > 0 && s.Expect.Outcome != OutcomeOK {
		return fmt.Errorf("assertions require outcome ok")
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

	switch a.Type {
	case AssertStage:
		if a.Role == "" || a.Decl == "" {
			return fmt.Errorf("assertions[%d]: role and decl are required for stage", index)
		}
	case AssertPipeline:
		if len(a.Decls) == 0 {
			return fmt.Errorf("assertions[%d]: decls list is required for pipeline", index)
		}
	case AssertExtractedWidth:
		if a.Parser == "" || a.State == "" {
			return fmt.Errorf("assertions[%d]: parser and state are required for extracted_width", index)
		}
	case AssertCallTarget:
		if a.Block == "" || a.Where == "" || a.Target == "" {
			return fmt.Errorf("assertions[%d]: block, where and target are required for call_target", index)
		}
	case AssertUnreachable, AssertNoMatch:
		if a.Parser == "" {
			return fmt.Errorf("assertions[%d]: parser is required for %s", index, a.Type)
		}
	case AssertTypeWidth:
		if a.TypeName == "" {
			return fmt.Errorf("assertions[%d]: type_name is required for type_width", index)
		}
		if a.Width <= 0 {
			return fmt.Errorf("assertions[%d]: width must be positive for type_width", index)
		}
	case AssertLoops:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for loops", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}
