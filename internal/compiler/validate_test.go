package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/p4ir/internal/ir"
	"github.com/roach88/p4ir/internal/testutil"
)

func programOf(decls ...ir.Declaration) *Program {
	return &Program{Name: "test", Arch: "v1model", Decls: append(decls, testutil.MainInstance())}
}

func codes(errs []ValidationError) []string {
	out := make([]string, len(errs))
	for i, e := range errs {
		out[i] = e.Code
	}
	return out
}

// =============================================================================
// Program Validation Tests
// =============================================================================

func TestValidateRegressionProgram(t *testing.T) {
	prog, err := CompileSource("regression.cue", []byte(testutil.RegressionSource))
	require.NoError(t, err)
	assert.Empty(t, Validate(prog), "regression program should have no errors")
}

func TestValidateProgramErrors(t *testing.T) {
	errs := Validate(&Program{Name: " ", Arch: "tofino"})
	assert.Equal(t, []string{ErrProgramNameEmpty, ErrNoDeclarations, ErrUnknownArch}, codes(errs))
	assert.Contains(t, errs[2].Message, "core, none, v1model")
}

func TestValidateNoMain(t *testing.T) {
	prog := &Program{Name: "x", Decls: []ir.Declaration{ir.NewStruct("s")}}
	errs := Validate(prog)
	require.Len(t, errs, 1)
	assert.Equal(t, ErrNoMain, errs[0].Code)
}

func TestValidateEmptyArchAllowed(t *testing.T) {
	prog := programOf()
	prog.Arch = ""
	assert.Empty(t, Validate(prog))
}

// =============================================================================
// Declaration Validation Tests
// =============================================================================

func TestValidateDuplicateNames(t *testing.T) {
	prog := programOf(
		ir.NewStruct("s"),
		ir.NewHeader("s"),
		ir.NewMethod("f", ir.TypeParams{}),
		ir.NewMethod("f", ir.TypeParams{}, ir.In("x", ir.Bits(8))),
		ir.NewMatchKind("exact"),
		ir.NewMatchKind("lpm"),
	)
	errs := Validate(prog)
	require.Len(t, errs, 1, "method overloads and match kinds may repeat")
	assert.Equal(t, ErrDuplicateName, errs[0].Code)
	assert.Equal(t, "decls[1].name", errs[0].Field)
}

func TestValidateEmptyDeclName(t *testing.T) {
	errs := Validate(programOf(ir.NewStruct("")))
	require.Len(t, errs, 1)
	assert.Equal(t, ErrEmptyName, errs[0].Code)
}

func TestValidateTypeDecls(t *testing.T) {
	tests := []struct {
		name string
		decl ir.Declaration
		code string
	}{
		{"zero width field", ir.NewHeader("h", ir.F("a", ir.Bits(0))), ErrInvalidWidth},
		{"nested zero width", ir.NewStruct("s", ir.F("r", ir.Named("register", ir.Bits(0)))), ErrInvalidWidth},
		{"duplicate field", ir.NewHeader("h", ir.F("a", ir.Bits(8)), ir.F("a", ir.Bits(8))), ErrDuplicateName},
		{"empty field name", ir.NewHeader("h", ir.F("", ir.Bits(8))), ErrEmptyName},
		{"empty enum", ir.NewEnum("e"), ErrEmptyTypeDecl},
		{"duplicate member", ir.NewEnum("e", "a", "a"), ErrDuplicateName},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := Validate(programOf(tt.decl))
			require.Len(t, errs, 1)
			assert.Equal(t, tt.code, errs[0].Code)
		})
	}
}

func TestValidateSignatures(t *testing.T) {
	prog := programOf(
		ir.NewMethod("f", ir.Generic("T", "T"), ir.In("a", ir.Bits(8)), ir.In("a", ir.Bits(0))),
		ir.NewExtern("e", []string{"T"},
			ir.NewMethod("g", ir.Returning(ir.Bits(0))),
		),
		ir.NewControlType("C", []string{"H"}, ir.InOut("", ir.Named("H"))),
	)
	errs := Validate(prog)
	assert.ElementsMatch(t,
		[]string{ErrDuplicateName, ErrInvalidWidth, ErrDuplicateName, ErrInvalidWidth, ErrEmptyName},
		codes(errs))
}

func TestValidateSlices(t *testing.T) {
	body := ir.Assign(ir.Path("x"), ir.Slice(ir.Path("y"), 1, 7))
	prog := programOf(ir.NewAction("a", nil, body))
	errs := Validate(prog)
	require.Len(t, errs, 1)
	assert.Equal(t, ErrInvalidSlice, errs[0].Code)
	assert.Equal(t, "decls[0](a).body[0].value", errs[0].Field)
	assert.Contains(t, errs[0].Message, "y[1:7]")
}

func TestValidateControlLocals(t *testing.T) {
	local := ir.NewAction("act", []ir.Parameter{ir.In("v", ir.Bits(8))},
		ir.CallStmt(ir.Call(ir.Path("f"), nil, ir.Slice(ir.Path("v"), 0, 3))))
	reg := ir.NewInstance("r", ir.Named("register", ir.Bits(0)), ir.Int(4))
	prog := programOf(ir.NewControl("c", nil, []ir.Declaration{local, reg}))
	errs := Validate(prog)
	assert.Equal(t, []string{ErrInvalidSlice, ErrInvalidWidth}, codes(errs))
	assert.Equal(t, "decls[0](c).locals[0](act).body[0]", errs[0].Field)
}

func TestValidateInstanceArgs(t *testing.T) {
	inst := ir.NewInstance("i", ir.Named("Pkg"), ir.Slice(ir.Path("x"), 0, 1))
	errs := Validate(programOf(inst))
	require.Len(t, errs, 1)
	assert.Equal(t, "decls[0](i).args[0]", errs[0].Field)
}

// =============================================================================
// Parser Validation Tests
// =============================================================================

func TestValidateParserStates(t *testing.T) {
	tests := []struct {
		name   string
		states []ir.ParserState
		codes  []string
	}{
		{
			name:   "valid",
			states: []ir.ParserState{ir.State("start", "parse_h"), ir.State("parse_h", "accept")},
		},
		{
			name:   "no start",
			states: []ir.ParserState{ir.State("parse_h", "accept")},
			codes:  []string{ErrNoStartState},
		},
		{
			name:   "declared accept",
			states: []ir.ParserState{ir.State("start", "accept"), ir.State("accept", "reject")},
			codes:  []string{ErrTerminalDeclared},
		},
		{
			name:   "duplicate state",
			states: []ir.ParserState{ir.State("start", "accept"), ir.State("start", "accept")},
			codes:  []string{ErrDuplicateName},
		},
		{
			name:   "undeclared target",
			states: []ir.ParserState{ir.State("start", "missing")},
			codes:  []string{ErrUnknownState},
		},
		{
			name:   "no transition",
			states: []ir.ParserState{ir.State("start", "")},
			codes:  []string{ErrNoTransition},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := Validate(programOf(ir.NewParser("p", nil, nil, tt.states...)))
			if tt.codes == nil {
				assert.Empty(t, errs)
				return
			}
			assert.Equal(t, tt.codes, codes(errs))
		})
	}
}

func TestValidateSelect(t *testing.T) {
	keys := []ir.Expr{ir.Path("a"), ir.Path("b")}
	tests := []struct {
		name  string
		sel   ir.Transition
		codes []string
	}{
		{
			name: "valid",
			sel: ir.Transition{Keys: keys, Cases: []ir.SelectCase{
				{Keyset: []ir.Expr{ir.Int(1), ir.Int(2)}, Next: "accept"},
				{Keyset: []ir.Expr{ir.Default()}, Next: "reject"},
			}},
		},
		{
			name:  "keys without cases",
			sel:   ir.Transition{Keys: keys},
			codes: []string{ErrInvalidSelect},
		},
		{
			name: "cases without keys",
			sel: ir.Transition{Cases: []ir.SelectCase{
				{Keyset: []ir.Expr{ir.Default()}, Next: "accept"},
			}},
			codes: []string{ErrInvalidSelect},
		},
		{
			name: "keyset arity",
			sel: ir.Transition{Keys: keys, Cases: []ir.SelectCase{
				{Keyset: []ir.Expr{ir.Int(1)}, Next: "accept"},
			}},
			codes: []string{ErrInvalidSelect},
		},
		{
			name: "undeclared case target",
			sel: ir.Transition{Keys: keys, Cases: []ir.SelectCase{
				{Keyset: []ir.Expr{ir.Int(1), ir.Int(2)}, Next: "nowhere"},
			}},
			codes: []string{ErrUnknownState},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := ir.ParserState{Name: "start", Select: tt.sel}
			errs := Validate(programOf(ir.NewParser("p", nil, nil, st)))
			if tt.codes == nil {
				assert.Empty(t, errs)
				return
			}
			assert.Equal(t, tt.codes, codes(errs))
		})
	}
}

func TestValidateCollectsAllErrors(t *testing.T) {
	prog := programOf(
		ir.NewHeader("h", ir.F("a", ir.Bits(0))),
		ir.NewEnum("e"),
		ir.NewParser("p", nil, nil, ir.State("s", "t")),
	)
	errs := Validate(prog)
	assert.Equal(t, []string{ErrInvalidWidth, ErrEmptyTypeDecl, ErrNoStartState, ErrUnknownState}, codes(errs))
}

func TestValidationErrorLine(t *testing.T) {
	src := `program: {
	name: "x"
	decls: [
		{kind: "struct", name: "s"},
		{kind: "header", name: "h", fields: [{name: "a", type: "bit<0>"}]},
		{kind: "instance", name: "main", type: "Pkg"},
	]
}`
	prog, err := CompileSource("x.cue", []byte(src))
	require.NoError(t, err)
	errs := Validate(prog)
	require.Len(t, errs, 1)
	assert.Equal(t, 5, errs[0].Line)
	assert.Equal(t, "[E106] line 5: decls[1](h).fields[0].type: invalid width in bit<0>", errs[0].Error())

	noLine := ValidationError{Field: "f", Message: "m", Code: "E101"}
	assert.Equal(t, "[E101] f: m", noLine.Error())
}
