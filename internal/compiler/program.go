package compiler

import (
	"fmt"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/roach88/p4ir/internal/arch"
	"github.com/roach88/p4ir/internal/ir"
)

// Program is a decoded program document: an ordered declaration sequence plus the
// architecture prelude it expects.
type Program struct {
	Name  string
	Arch  string
	Decls []ir.Declaration

	// Pos holds the source position of each entry of Decls.
	Pos []token.Pos
}

// Line returns the source line of the i-th declaration, or 0 when unknown.
func (p *Program) Line(i int) int {
	if i < 0 || i >= len(p.Pos) || !p.Pos[i].IsValid() {
		return 0
	}
	return p.Pos[i].Line()
}

// WithPrelude returns the architecture prelude followed by the program's own
// declarations. A non-empty arch overrides the program's arch.
func (p *Program) WithPrelude(archName string) ([]ir.Declaration, error) {
	if archName == "" {
		archName = p.Arch
	}
	decls, err := arch.Prelude(archName)
	if err != nil {
		return nil, err
	}
	return append(decls, p.Decls...), nil
}

// LoadProgram reads a CUE file and compiles its top-level "program" field.
func LoadProgram(path string) (*Program, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return CompileSource(path, data)
}

// CompileSource compiles CUE source text and decodes its "program" field. filename
// is used for error positions only.
func CompileSource(filename string, src []byte) (*Program, error) {
	v := cuecontext.New().CompileBytes(src, cue.Filename(filename))
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	pv := v.LookupPath(cue.ParsePath("program"))
	if !pv.Exists() {
		return nil, &CompileError{Field: "program", Message: "program is required", Pos: v.Pos()}
	}
	return CompileProgram(pv)
}

// CompileProgram decodes a CUE program value into a Program.
//
// The value should be the program struct itself:
//
//	ctx := cuecontext.New()
//	v := ctx.CompileString(`program: { name: "x", decls: [...] }`)
//	prog, err := CompileProgram(v.LookupPath(cue.ParsePath("program")))
func CompileProgram(v cue.Value) (*Program, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	prog := &Program{}

	name, err := requiredString(v, "name")
	if err != nil {
		return nil, err
	}
	prog.Name = name
	if prog.Arch, err = optionalString(v, "arch"); err != nil {
		return nil, err
	}

	declsVal := v.LookupPath(cue.ParsePath("decls"))
	if !declsVal.Exists() {
		return nil, &CompileError{Field: "decls", Message: "decls is required", Pos: v.Pos()}
	}
	iter, err := declsVal.List()
	if err != nil {
		return nil, formatCUEError(err)
	}
	for i := 0; iter.Next(); i++ {
		d, err := compileDecl(iter.Value(), fmt.Sprintf("decls[%d]", i), false)
		if err != nil {
			return nil, err
		}
		prog.Decls = append(prog.Decls, d)
		prog.Pos = append(prog.Pos, iter.Value().Pos())
	}
	return prog, nil
}

// CompileError represents a compilation error with source position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	// CUE errors may contain multiple errors
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	// Return first error with position info
	firstErr := errs[0]
	positions := errors.Positions(firstErr)
	if len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: firstErr.Error(),
			Pos:     positions[0],
		}
	}

	return err
}

// fieldError wraps a syntax error from a type or expression string with the
// position of the CUE value it came from.
func fieldError(v cue.Value, field string, err error) error {
	return &CompileError{Field: field, Message: err.Error(), Pos: v.Pos()}
}

func requiredString(v cue.Value, field string) (string, error) {
	fv := v.LookupPath(cue.ParsePath(field))
	if !fv.Exists() {
		return "", &CompileError{Field: field, Message: field + " is required", Pos: v.Pos()}
	}
	s, err := fv.String()
	if err != nil {
		return "", formatCUEError(err)
	}
	return s, nil
}

func optionalString(v cue.Value, field string) (string, error) {
	fv := v.LookupPath(cue.ParsePath(field))
	if !fv.Exists() {
		return "", nil
	}
	s, err := fv.String()
	if err != nil {
		return "", formatCUEError(err)
	}
	return s, nil
}

// stringList reads a list of strings. A single string is accepted as a one-element list.
func stringList(v cue.Value, field string) ([]string, error) {
	fv := v.LookupPath(cue.ParsePath(field))
	if !fv.Exists() {
		return nil, nil
	}
	if s, err := fv.String(); err == nil {
		return []string{s}, nil
	}
	iter, err := fv.List()
	if err != nil {
		return nil, formatCUEError(err)
	}
	var out []string
	for iter.Next() {
		s, err := iter.Value().String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		out = append(out, s)
	}
	return out, nil
}

// each calls fn for every element of the list field, with its path.
func each(v cue.Value, field, path string, fn func(cue.Value, string) error) error {
	fv := v.LookupPath(cue.ParsePath(field))
	if !fv.Exists() {
		return nil
	}
	iter, err := fv.List()
	if err != nil {
		return formatCUEError(err)
	}
	for i := 0; iter.Next(); i++ {
		if err := fn(iter.Value(), fmt.Sprintf("%s.%s[%d]", path, field, i)); err != nil {
			return err
		}
	}
	return nil
}
