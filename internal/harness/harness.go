package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strings"

	"github.com/roach88/p4ir/internal/builder"
	"github.com/roach88/p4ir/internal/compiler"
	"github.com/roach88/p4ir/internal/ir"
	"github.com/roach88/p4ir/internal/store"
)

// Harness is the test execution engine.
// It runs one scenario against a fresh in-memory store.
type Harness struct {
	store  *store.Store
	logger *slog.Logger
}

// Option configures a scenario run.
type Option func(*Harness)

// WithLogger sets the logger handed to the builder. Defaults to a discard logger.
func WithLogger(l *slog.Logger) Option {
	return func(h *Harness) {
		if l != nil {
			h.logger = l
		}
	}
}

// Run executes a test scenario and returns the result.
func Run(scenario *Scenario, opts ...Option) (*Result, error) {
	return RunContext(context.Background(), scenario, opts...)
}

// RunContext executes a test scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database for isolation, with the build
// id fixed to "scenario-{name}".
//
// Execution flow:
// 1. Decode the CUE program
// 2. Run collect-all validation
// 3. Build prelude + program declarations
// 4. Record the build and analyze parser loops
// 5. Compare the outcome and evaluate assertions
//
// A returned error means the harness itself failed; scenario failures are
// reported through Result.Pass and Result.Errors.
func RunContext(ctx context.Context, scenario *Scenario, opts ...Option) (*Result, error) {
	st, err := store.Open(":memory:", store.WithIDGenerator(store.NewFixedGenerator("scenario-"+scenario.Name)))
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	h := &Harness{
		store:  st,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)), // Suppress logs in tests
	}
	for _, opt := range opts {
		opt(h)
	}

	result := NewResult()
	if err := h.execute(ctx, scenario, result); err != nil {
		return nil, err
	}

	h.checkExpectation(scenario.Expect, result)
	if result.Outcome == OutcomeOK && scenario.Expect.Outcome == OutcomeOK {
		for _, errMsg := range EvaluateAssertions(result, scenario.Assertions) {
			result.AddError(errMsg)
		}
	}
	return result, nil
}

// execute fills in the actual outcome.
func (h *Harness) execute(ctx context.Context, scenario *Scenario, result *Result) error {
	prog, err := compiler.LoadProgram(scenario.Program)
	if err != nil {
		result.Outcome = OutcomeInvalid
		result.Error = err.Error()
		return nil
	}

	if verrs := compiler.Validate(prog); len(verrs) > 0 {
		result.Outcome = OutcomeInvalid
		result.Validation = verrs
		return nil
	}
	result.Warnings = compiler.AnalyzeProgram(prog)
	if result.Warnings == nil {
		result.Warnings = []compiler.CycleWarning{}
	}

	archName := scenario.Arch
	if archName == "" {
		archName = prog.Arch
	}
	decls, err := prog.WithPrelude(archName)
	if err != nil {
		result.Outcome = OutcomeInvalid
		result.Error = err.Error()
		return nil
	}

	built, err := builder.Build(decls, builder.WithLogger(h.logger))
	if err != nil {
		result.Outcome = OutcomeError
		result.Error = err.Error()
		var be *ir.BuildError
		if errors.As(err, &be) {
			result.ErrorKind = string(be.Kind)
			result.ErrorDecl = be.Decl
		} else if errors.Is(err, builder.ErrNoMain) {
			result.ErrorKind = "NoMain"
		}
		return nil
	}
	result.Outcome = OutcomeOK
	result.Program = built

	rec, err := store.NewBuild(prog.Name, archName, decls, built.Main)
	if err != nil {
		return fmt.Errorf("scenario %s: %w", scenario.Name, err)
	}
	rec, err = h.store.RecordBuild(ctx, rec)
	if err != nil {
		return fmt.Errorf("scenario %s: %w", scenario.Name, err)
	}
	result.Build = &rec
	return nil
}

// checkExpectation compares the actual outcome with the expected one.
func (h *Harness) checkExpectation(exp Expectation, result *Result) {
	want := exp.Outcome
	if want == "" {
		want = OutcomeOK
	}
	if result.Outcome != want {
		msg := fmt.Sprintf("expected outcome %s, got %s", want, result.Outcome)
		if result.Error != "" {
			msg += ": " + result.Error
		}
		if len(result.Validation) > 0 {
			msg += ": " + strings.Join(result.Codes(), ", ")
		}
		result.AddError(msg)
		return
	}

	if exp.ErrorKind != "" && result.ErrorKind != exp.ErrorKind {
		result.AddError(fmt.Sprintf("expected error kind %s, got %s (%s)", exp.ErrorKind, result.ErrorKind, result.Error))
	}
	if exp.ErrorDecl != "" && result.ErrorDecl != exp.ErrorDecl {
		result.AddError(fmt.Sprintf("expected error in %q, got %q", exp.ErrorDecl, result.ErrorDecl))
	}
	if exp.MessageContains != "" && !strings.Contains(result.Error, exp.MessageContains) {
		result.AddError(fmt.Sprintf("expected error message containing %q, got %q", exp.MessageContains, result.Error))
	}
	if len(exp.Codes) > 0 && !slices.Equal(exp.Codes, result.Codes()) {
		result.AddError(fmt.Sprintf("expected validation codes %v, got %v", exp.Codes, result.Codes()))
	}
}
