package harness

import (
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/p4ir/internal/ir"
	"github.com/roach88/p4ir/internal/table"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string              // Assertion type for categorization
	Expected string              // Human-readable expected outcome
	Actual   string              // Human-readable actual outcome
	Package  *ir.ResolvedPackage // Resolved package for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if e.Package != nil {
		fmt.Fprintf(&buf, "\nPackage %s = %s:\n", e.Package.Name, e.Package.Package)
		for i, s := range e.Package.Stages {
			name := "<none>"
			if s.Decl != nil {
				name = s.Decl.Name
			}
			fmt.Fprintf(&buf, "  [%d] %s: %s = %s\n", i+1, s.Param, s.RoleType, name)
		}
	}

	return buf.String()
}

// EvaluateAssertions runs every assertion against a successful result and returns
// the failure messages. An empty slice means all assertions held.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var errs []string
	for i, a := range assertions {
		if err := evaluateAssertion(result, a); err != nil {
			errs = append(errs, fmt.Sprintf("assertions[%d]: %s", i, err.Error()))
		}
	}
	return errs
}

func evaluateAssertion(result *Result, a Assertion) error {
	if result.Program == nil || result.Program.Main == nil {
		return fmt.Errorf("%s assertion requires a resolved package", a.Type)
	}
	prog := result.Program

	switch a.Type {
	case AssertStage:
		return assertStage(prog.Main, a)
	case AssertPipeline:
		return assertPipeline(prog.Main, a)
	case AssertExtractedWidth:
		return assertExtractedWidth(prog.Parsers, a)
	case AssertCallTarget:
		return assertCallTarget(prog.Parsers, prog.Controls, a)
	case AssertUnreachable:
		return assertUnreachable(prog.Parsers, a)
	case AssertNoMatch:
		return assertNoMatch(prog.Parsers, a)
	case AssertTypeWidth:
		return assertTypeWidth(prog.View, a)
	case AssertLoops:
		return assertLoops(result, a)
	}
	return fmt.Errorf("unknown assertion type %q", a.Type)
}

// assertStage checks that the package binds the role to the named block.
func assertStage(pkg *ir.ResolvedPackage, a Assertion) error {
	role, ok := ir.RoleByName(a.Role)
	if !ok {
		return fmt.Errorf("unknown role %q", a.Role)
	}
	stage := pkg.Stage(role)
	actual := "role not bound"
	if stage != nil && stage.Decl != nil {
		if stage.Decl.Name == a.Decl {
			return nil
		}
		actual = fmt.Sprintf("bound to %s", stage.Decl.Name)
	}
	return &AssertionError{
		Type:     AssertStage,
		Expected: fmt.Sprintf("%s bound to %s", a.Role, a.Decl),
		Actual:   actual,
		Package:  pkg,
	}
}

// assertPipeline checks the role-bound blocks in execution order.
func assertPipeline(pkg *ir.ResolvedPackage, a Assertion) error {
	var names []string
	for _, d := range pkg.Pipeline() {
		names = append(names, d.Name)
	}
	if slices.Equal(names, a.Decls) {
		return nil
	}
	return &AssertionError{
		Type:     AssertPipeline,
		Expected: fmt.Sprintf("pipeline %v", a.Decls),
		Actual:   fmt.Sprintf("pipeline %v", names),
		Package:  pkg,
	}
}

func parserState(parsers map[string]*ir.ParserGraph, parser, state string) (*ir.CheckedState, error) {
	g, ok := parsers[parser]
	if !ok {
		return nil, fmt.Errorf("no parser %q", parser)
	}
	st := g.State(state)
	if st == nil {
		return nil, fmt.Errorf("parser %q has no state %q", parser, state)
	}
	return st, nil
}

// assertExtractedWidth checks the bits a state's extractions consume.
func assertExtractedWidth(parsers map[string]*ir.ParserGraph, a Assertion) error {
	st, err := parserState(parsers, a.Parser, a.State)
	if err != nil {
		return err
	}
	if got := st.ExtractedWidth(); got != a.Width {
		return &AssertionError{
			Type:     AssertExtractedWidth,
			Expected: fmt.Sprintf("%s.%s extracts %d bits", a.Parser, a.State, a.Width),
			Actual:   fmt.Sprintf("%d bits", got),
		}
	}
	return nil
}

// assertCallTarget checks what a call site resolved to. Block names a control or
// a parser.
func assertCallTarget(parsers map[string]*ir.ParserGraph, controls map[string]*ir.ControlModel, a Assertion) error {
	var calls []ir.CallSite
	if c, ok := controls[a.Block]; ok {
		calls = c.Calls
	} else if g, ok := parsers[a.Block]; ok {
		for _, st := range g.States {
			calls = append(calls, st.Calls...)
		}
	} else {
		return fmt.Errorf("no control or parser %q", a.Block)
	}

	var seen []string
	for _, c := range calls {
		if c.Where == a.Where {
			if c.Target == a.Target {
				return nil
			}
			return &AssertionError{
				Type:     AssertCallTarget,
				Expected: fmt.Sprintf("%s %s calls %s", a.Block, a.Where, a.Target),
				Actual:   fmt.Sprintf("calls %s", c.Target),
			}
		}
		seen = append(seen, c.Where)
	}
	return &AssertionError{
		Type:     AssertCallTarget,
		Expected: fmt.Sprintf("call site %s in %s", a.Where, a.Block),
		Actual:   fmt.Sprintf("call sites %v", seen),
	}
}

// assertUnreachable checks the exact set of dead parser states, in declaration order.
func assertUnreachable(parsers map[string]*ir.ParserGraph, a Assertion) error {
	g, ok := parsers[a.Parser]
	if !ok {
		return fmt.Errorf("no parser %q", a.Parser)
	}
	got := g.Unreachable()
	if slices.Equal(got, a.States) {
		return nil
	}
	return &AssertionError{
		Type:     AssertUnreachable,
		Expected: fmt.Sprintf("unreachable states %v", a.States),
		Actual:   fmt.Sprintf("unreachable states %v", got),
	}
}

// assertNoMatch checks which reachable states can fail with NoMatch at run time.
func assertNoMatch(parsers map[string]*ir.ParserGraph, a Assertion) error {
	g, ok := parsers[a.Parser]
	if !ok {
		return fmt.Errorf("no parser %q", a.Parser)
	}
	var got []string
	for _, name := range g.Reachable() {
		if st := g.State(name); st != nil && !st.HasDefault {
			got = append(got, name)
		}
	}
	if slices.Equal(got, a.States) {
		return nil
	}
	return &AssertionError{
		Type:     AssertNoMatch,
		Expected: fmt.Sprintf("states without default %v", a.States),
		Actual:   fmt.Sprintf("states without default %v", got),
	}
}

// assertTypeWidth checks the layout width of a named type.
func assertTypeWidth(view *table.View, a Assertion) error {
	got, err := table.Width(view, ir.Named(a.TypeName))
	if err != nil {
		return &AssertionError{
			Type:     AssertTypeWidth,
			Expected: fmt.Sprintf("%s is %d bits", a.TypeName, a.Width),
			Actual:   err.Error(),
		}
	}
	if got != a.Width {
		return &AssertionError{
			Type:     AssertTypeWidth,
			Expected: fmt.Sprintf("%s is %d bits", a.TypeName, a.Width),
			Actual:   fmt.Sprintf("%d bits", got),
		}
	}
	return nil
}

// assertLoops checks the number of warning-level parser loop findings.
func assertLoops(result *Result, a Assertion) error {
	count := 0
	for _, w := range result.Warnings {
		if w.Level == "warning" {
			count++
		}
	}
	if count != a.Count {
		return &AssertionError{
			Type:     AssertLoops,
			Expected: fmt.Sprintf("%d parser loops", a.Count),
			Actual:   fmt.Sprintf("%d parser loops", count),
		}
	}
	return nil
}
