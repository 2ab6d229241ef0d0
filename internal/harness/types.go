package harness

import (
	"github.com/roach88/p4ir/internal/builder"
	"github.com/roach88/p4ir/internal/compiler"
	"github.com/roach88/p4ir/internal/store"
)

// Result is the outcome of a test scenario execution.
type Result struct {
	// Pass indicates overall test success.
	// True if the outcome matched the expectation and every assertion held.
	Pass bool `json:"pass"`

	// Outcome is what actually happened: ok, error or invalid.
	Outcome string `json:"outcome"`

	// ErrorKind, ErrorDecl and Error describe the build error (outcome error)
	// or the decode error (outcome invalid without validation codes).
	ErrorKind string `json:"error_kind,omitempty"`
	ErrorDecl string `json:"error_decl,omitempty"`
	Error     string `json:"error,omitempty"`

	// Validation holds the collect-all validation errors (outcome invalid).
	Validation []compiler.ValidationError `json:"validation,omitempty"`

	// Warnings are the parser loop and reachability findings.
	Warnings []compiler.CycleWarning `json:"warnings"`

	// Errors contains expectation and assertion failure messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// Build is the recorded build (outcome ok).
	Build *store.Build `json:"build,omitempty"`

	// Program is the built program (outcome ok). Not serialized.
	Program *builder.Program `json:"-"`
}

// NewResult creates a new passing result.
// Used as the starting point for test execution.
func NewResult() *Result {
	return &Result{
		Pass:     true,
		Warnings: []compiler.CycleWarning{},
		Errors:   []string{},
	}
}

// AddError adds a failure message and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// Codes returns the validation codes in order.
func (r *Result) Codes() []string {
	codes := make([]string, len(r.Validation))
	for i, v := range r.Validation {
		codes[i] = v.Code
	}
	return codes
}
