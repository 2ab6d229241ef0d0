package cli

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"cuelang.org/go/cue/token"

	"github.com/roach88/p4ir/internal/builder"
	"github.com/roach88/p4ir/internal/compiler"
	"github.com/roach88/p4ir/internal/ir"
)

// LoadError represents an error that occurred while loading a program file.
type LoadError struct {
	Code    string
	Message string
	Pos     token.Pos // CUE position if available
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Error code constants - unified across all CLI commands. Validation codes
// (E1xx) come from the compiler; build errors use their kind as the code.
const (
	ErrCodeGeneric     = "E001" // Generic/unknown error
	ErrCodeNotFound    = "E005" // Path not found
	ErrCodeLoadFailed  = "E004" // CUE decode failed
	ErrCodeWriteFailed = "E007" // File write error
	ErrCodeStoreFailed = "E008" // Build history error
	ErrCodeArtifact    = "E009" // Artifact read error
)

// LoadProgram reads and decodes one CUE program file.
func LoadProgram(path string) (*compiler.Program, error) {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("program file not found: %s", path)}
	}
	if err != nil {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("error accessing program file: %v", err)}
	}
	if info.IsDir() {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("not a file: %s", path)}
	}

	prog, err := compiler.LoadProgram(path)
	if err != nil {
		return nil, convertCompileError(err)
	}
	return prog, nil
}

// convertCompileError converts a compiler error to a LoadError with position info.
func convertCompileError(err error) *LoadError {
	var compileErr *compiler.CompileError
	if errors.As(err, &compileErr) {
		return &LoadError{
			Code:    ErrCodeLoadFailed,
			Message: fmt.Sprintf("%s: %s", compileErr.Field, compileErr.Message),
			Pos:     compileErr.Pos,
		}
	}
	return &LoadError{Code: ErrCodeLoadFailed, Message: err.Error()}
}

// Compiled is one program taken as far through the pipeline as it goes:
// decode, collect-all validation, loop analysis, then the fail-fast build.
type Compiled struct {
	Path       string                     `json:"path"`
	Name       string                     `json:"name"`
	Arch       string                     `json:"arch"`
	Validation []compiler.ValidationError `json:"validation,omitempty"`
	Warnings   []compiler.CycleWarning    `json:"warnings,omitempty"`
	BuildError *ir.BuildError             `json:"build_error,omitempty"`

	Decls   []ir.Declaration `json:"-"`
	Program *builder.Program `json:"-"`
	Err     error            `json:"-"`
}

// OK reports whether the program built.
func (c *Compiled) OK() bool {
	return c.Program != nil
}

// compileFile runs a program file through the pipeline. The arch comes from the
// override, then the program, then the config default. The returned error is a
// LoadError; validation and build failures are reported on Compiled.
func compileFile(path, archOverride, archDefault string, logger *slog.Logger) (*Compiled, error) {
	prog, err := LoadProgram(path)
	if err != nil {
		return nil, err
	}

	c := &Compiled{Path: filepath.Clean(path), Name: prog.Name}
	c.Arch = archOverride
	if c.Arch == "" {
		c.Arch = prog.Arch
	}
	if c.Arch == "" {
		c.Arch = archDefault
	}

	if verrs := compiler.Validate(prog); len(verrs) > 0 {
		c.Validation = verrs
		c.Err = fmt.Errorf("validation failed with %d error(s)", len(verrs))
		return c, nil
	}
	c.Warnings = compiler.AnalyzeProgram(prog)
	for _, w := range c.Warnings {
		if w.Level == "warning" {
			logger.Warn("parser loop", "program", prog.Name, "parser", w.Parser, "path", w.Path)
		}
	}

	decls, err := prog.WithPrelude(c.Arch)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeLoadFailed, Message: err.Error()}
	}
	c.Decls = decls

	built, err := builder.Build(decls, builder.WithLogger(logger))
	if err != nil {
		c.Err = err
		var be *ir.BuildError
		if errors.As(err, &be) {
			c.BuildError = be
		}
		return c, nil
	}
	c.Program = built
	return c, nil
}
