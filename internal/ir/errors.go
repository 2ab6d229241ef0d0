package ir

import (
	"errors"
	"fmt"
)

// ErrorKind categorizes build errors. Every build error is fatal to the whole program.
type ErrorKind string

const (
	ErrUnknownName          ErrorKind = "UnknownName"
	ErrAmbiguousOverload    ErrorKind = "AmbiguousOverload"
	ErrNoMatchingOverload   ErrorKind = "NoMatchingOverload"
	ErrArityMismatch        ErrorKind = "ArityMismatch"
	ErrUnknownState         ErrorKind = "UnknownState"
	ErrInvalidSlice         ErrorKind = "InvalidSlice"
	ErrPackageShapeMismatch ErrorKind = "PackageShapeMismatch"
	ErrDuplicateName        ErrorKind = "DuplicateName"
	ErrCyclicDefinition     ErrorKind = "CyclicDefinition"
	ErrUnboundTypeParameter ErrorKind = "UnboundTypeParameter"
	ErrTypeMismatch         ErrorKind = "TypeMismatch"
	ErrInvalidDeclaration   ErrorKind = "InvalidDeclaration"
)

// BuildError is the single tagged failure of a program build.
type BuildError struct {
	// Kind identifies the error category.
	Kind ErrorKind `json:"kind"`

	// Decl names the offending top-level declaration. It is filled in by the builder
	// when a lower layer reports an error without one.
	Decl string `json:"decl,omitempty"`

	// Message is a human-readable description.
	Message string `json:"message"`
}

// Error implements the error interface.
func (e *BuildError) Error() string {
	if e.Decl != "" {
		return fmt.Sprintf("%s: %q: %s", e.Kind, e.Decl, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Errorf creates a BuildError without a declaration name.
func Errorf(kind ErrorKind, format string, args ...any) *BuildError {
	return &BuildError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// KindOf returns the kind of the first BuildError in err's chain.
func KindOf(err error) (ErrorKind, bool) {
	var be *BuildError
	if errors.As(err, &be) {
		return be.Kind, true
	}
	return "", false
}

// IsKind reports whether err carries a BuildError of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	k, ok := KindOf(err)
	return ok && k == kind
}

// RuntimeErrors are the names of the evaluator's error signals. They are data passed
// through unchanged; the builder never raises them.
var RuntimeErrors = []string{
	"NoError",
	"PacketTooShort",
	"NoMatch",
	"StackOutOfBounds",
	"HeaderTooShort",
	"ParserTimeout",
	"ParserInvalidArgument",
}
