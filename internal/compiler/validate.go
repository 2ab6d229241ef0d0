package compiler

import (
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/p4ir/internal/arch"
	"github.com/roach88/p4ir/internal/ir"
)

// Validation error codes (E100-E199)
const (
	// Program errors (E101-E104)
	ErrProgramNameEmpty = "E101" // name is required
	ErrNoDeclarations   = "E102" // at least one declaration required
	ErrUnknownArch      = "E103" // arch is not a known prelude
	ErrNoMain           = "E104" // no instance named main

	// Declaration errors (E105-E109)
	ErrDuplicateName  = "E105" // duplicate declaration/field/member/parameter/state name
	ErrInvalidWidth   = "E106" // bit<0>
	ErrEmptyName      = "E107" // empty declaration, field or parameter name
	ErrInvalidSlice   = "E108" // slice with high < low
	ErrEmptyTypeDecl  = "E109" // enum without members

	// Parser errors (E110-E119)
	ErrNoStartState     = "E110" // parser without a start state
	ErrTerminalDeclared = "E111" // accept or reject declared as a state
	ErrUnknownState     = "E112" // transition to an undeclared state
	ErrInvalidSelect    = "E113" // select without keys or cases, keyset arity
	ErrNoTransition     = "E114" // state without next or select
)

// ValidationError represents a schema validation error.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
	Line    int    `json:"line,omitempty"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("[%s] line %d: %s: %s", e.Code, e.Line, e.Field, e.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// Validate checks a decoded program for structural problems that need no name
// resolution. It returns all errors found (does not fail-fast); resolution and
// typing are left to the builder.
func Validate(p *Program) []ValidationError {
	var errs []ValidationError

	// E101: name is required
	if strings.TrimSpace(p.Name) == "" {
		errs = append(errs, ValidationError{
			Field:   "name",
			Message: "program name is required and must be non-empty",
			Code:    ErrProgramNameEmpty,
		})
	}

	// E102: at least one declaration
	if len(p.Decls) == 0 {
		errs = append(errs, ValidationError{
			Field:   "decls",
			Message: "at least one declaration is required",
			Code:    ErrNoDeclarations,
		})
	}

	// E103: arch must name a prelude
	if p.Arch != "" && !slices.Contains(arch.Names(), p.Arch) {
		errs = append(errs, ValidationError{
			Field:   "arch",
			Message: fmt.Sprintf("unknown architecture %q, must be one of %s", p.Arch, strings.Join(arch.Names(), ", ")),
			Code:    ErrUnknownArch,
		})
	}

	seen := make(map[string]ir.DeclKind)
	hasMain := false
	for i, d := range p.Decls {
		field := fmt.Sprintf("decls[%d]", i)
		line := p.Line(i)
		v := &declValidator{line: line}

		if d.Kind != ir.DeclMatchKind {
			if d.Name == "" {
				v.add(field+".name", "declaration name is empty", ErrEmptyName)
			} else if prev, dup := seen[d.Name]; dup && !(prev == ir.DeclMethod && d.Kind == ir.DeclMethod) {
				v.add(field+".name", fmt.Sprintf("duplicate declaration name: %q", d.Name), ErrDuplicateName)
			}
			seen[d.Name] = d.Kind
		}
		if d.Kind == ir.DeclInstance && d.Name == "main" {
			hasMain = true
		}

		v.decl(d, fmt.Sprintf("%s(%s)", field, d.Name))
		errs = append(errs, v.errs...)
	}

	// E104: the program's entry point
	if len(p.Decls) > 0 && !hasMain {
		errs = append(errs, ValidationError{
			Field:   "decls",
			Message: "no instance named \"main\"",
			Code:    ErrNoMain,
		})
	}
	return errs
}

type declValidator struct {
	line int
	errs []ValidationError
}

func (v *declValidator) add(field, msg, code string) {
	v.errs = append(v.errs, ValidationError{Field: field, Message: msg, Code: code, Line: v.line})
}

func (v *declValidator) decl(d ir.Declaration, field string) {
	switch {
	case d.Type != nil:
		if d.Type.Class == ir.ClassEnum {
			// E109: enums need members
			if len(d.Type.Members) == 0 {
				v.add(field+".members", fmt.Sprintf("enum %q has no members", d.Name), ErrEmptyTypeDecl)
			}
			v.unique(d.Type.Members, field+".members", "member")
		}
		names := make([]string, len(d.Type.Fields))
		for i, f := range d.Type.Fields {
			names[i] = f.Name
			v.typeRef(f.Type, fmt.Sprintf("%s.fields[%d].type", field, i))
		}
		v.unique(names, field+".fields", "field")
		v.unique(d.Type.TypeParams, field+".type_params", "type parameter")

	case d.Extern != nil:
		v.unique(d.Extern.TypeParams, field+".type_params", "type parameter")
		for i, m := range d.Extern.Methods {
			v.decl(m, fmt.Sprintf("%s.methods[%d](%s)", field, i, m.Name))
		}

	case d.Signature != nil:
		v.unique(d.Signature.TypeParams.Params, field+".type_params", "type parameter")
		if r := d.Signature.TypeParams.Return; r != nil {
			v.typeRef(*r, field+".returns")
		}
		v.params(d.Signature.Params, field+".params")

	case d.Proto != nil:
		v.unique(d.Proto.TypeParams, field+".type_params", "type parameter")
		v.params(d.Proto.Params, field+".params")

	case d.Action != nil:
		v.params(d.Action.Params, field+".params")
		v.stmt(d.Action.Body, field+".body")

	case d.Block != nil:
		v.params(append(append([]ir.Parameter(nil), d.Block.Params...), d.Block.ConstParams...), field+".params")
		for i, l := range d.Block.LocalDecls {
			v.decl(l, fmt.Sprintf("%s.locals[%d](%s)", field, i, l.Name))
		}
		if d.Block.Body != nil {
			v.stmt(*d.Block.Body, field+".body")
		}
		if d.Kind == ir.DeclParser {
			v.states(d.Block.States, field+".states")
		}

	case d.Table != nil:
		for i, k := range d.Table.Keys {
			kf := fmt.Sprintf("%s.keys[%d]", field, i)
			v.expr(k.Expr, kf+".expr")
			if k.MatchKind == "" {
				v.add(kf+".match_kind", "empty match_kind", ErrEmptyName)
			}
		}
		v.unique(d.Table.Actions, field+".actions", "action")

	case d.Instance != nil:
		v.typeRef(d.Instance.Type, field+".type")
		for i, a := range d.Instance.Args {
			v.expr(a, fmt.Sprintf("%s.args[%d]", field, i))
		}
	}
}

func (v *declValidator) unique(names []string, field, what string) {
	seen := make(map[string]bool, len(names))
	for _, n := range names {
		if n == "" {
			v.add(field, fmt.Sprintf("empty %s name", what), ErrEmptyName)
			continue
		}
		if seen[n] {
			v.add(field, fmt.Sprintf("duplicate %s name: %q", what, n), ErrDuplicateName)
		}
		seen[n] = true
	}
}

func (v *declValidator) params(ps []ir.Parameter, field string) {
	names := make([]string, len(ps))
	for i, p := range ps {
		names[i] = p.Name
		v.typeRef(p.Type, fmt.Sprintf("%s[%d].type", field, i))
		if p.Default != nil {
			v.expr(*p.Default, fmt.Sprintf("%s[%d].default", field, i))
		}
	}
	v.unique(names, field, "parameter")
}

// typeRef reports E106 for bit<0> anywhere in t.
func (v *declValidator) typeRef(t ir.TypeRef, field string) {
	switch t.Kind {
	case ir.KindBits:
		if t.Width <= 0 {
			v.add(field, fmt.Sprintf("invalid width in %s", t), ErrInvalidWidth)
		}
	case ir.KindNamed:
		for _, a := range t.Args {
			v.typeRef(a, field)
		}
	}
}

func (v *declValidator) stmt(s ir.Statement, field string) {
	switch s.Kind {
	case ir.StmtBlock:
		for i, c := range s.Stmts {
			v.stmt(c, fmt.Sprintf("%s[%d]", field, i))
		}
	case ir.StmtMethodCall:
		if s.Call != nil {
			v.expr(*s.Call, field)
		}
	case ir.StmtAssign:
		if s.Target != nil {
			v.expr(*s.Target, field+".target")
		}
		if s.Value != nil {
			v.expr(*s.Value, field+".value")
		}
	}
}

// expr reports E108 for slices whose bounds are out of order. Bounds against the
// base width need types and are the builder's concern.
func (v *declValidator) expr(e ir.Expr, field string) {
	switch e.Kind {
	case ir.ExprSlice:
		if e.High < e.Low {
			v.add(field, fmt.Sprintf("slice %s has high < low", e), ErrInvalidSlice)
		}
		v.expr(*e.Base, field)
	case ir.ExprMember:
		v.expr(*e.Base, field)
	case ir.ExprMethodCall:
		v.expr(*e.Callee, field)
		for _, t := range e.TypeArgs {
			v.typeRef(t, field)
		}
		for _, a := range e.Args {
			v.expr(a, field)
		}
	}
}

func (v *declValidator) states(states []ir.ParserState, field string) {
	declared := make(map[string]bool, len(states))
	names := make([]string, 0, len(states))
	for i, st := range states {
		// E111: terminals are implicit
		if ir.IsTerminalState(st.Name) {
			v.add(fmt.Sprintf("%s[%d].name", field, i), fmt.Sprintf("state %q is implicit and cannot be declared", st.Name), ErrTerminalDeclared)
			continue
		}
		declared[st.Name] = true
		names = append(names, st.Name)
	}
	v.unique(names, field, "state")

	// E110: the entry state
	if !declared[ir.StateStart] {
		v.add(field, "parser has no \"start\" state", ErrNoStartState)
	}

	for i, st := range states {
		sfield := fmt.Sprintf("%s[%d](%s)", field, i, st.Name)
		for j, c := range st.Components {
			v.stmt(c, fmt.Sprintf("%s.components[%d]", sfield, j))
		}
		sel := st.Select
		switch {
		case len(sel.Keys) == 0 && len(sel.Cases) == 0:
			// E114: every state leaves somewhere
			if sel.Next == "" {
				v.add(sfield, "state has no transition", ErrNoTransition)
				continue
			}
		case len(sel.Keys) == 0 || len(sel.Cases) == 0:
			// E113
			v.add(sfield+".select", "select needs both keys and cases", ErrInvalidSelect)
		}
		for j, c := range sel.Cases {
			if !(len(c.Keyset) == 1 && c.Keyset[0].Kind == ir.ExprDefault) && len(sel.Keys) > 0 && len(c.Keyset) != len(sel.Keys) {
				v.add(fmt.Sprintf("%s.select.cases[%d]", sfield, j),
					fmt.Sprintf("keyset has %d values for %d keys", len(c.Keyset), len(sel.Keys)), ErrInvalidSelect)
			}
		}
		// E112: transitions stay inside the graph
		for _, next := range sel.Targets() {
			if next != "" && !declared[next] && !ir.IsTerminalState(next) {
				v.add(sfield, fmt.Sprintf("transition to undeclared state %q", next), ErrUnknownState)
			}
		}
	}
}
