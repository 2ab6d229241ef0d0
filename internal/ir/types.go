package ir

import (
	"fmt"
	"strings"
)

// TypeKind discriminates the TypeRef variants.
type TypeKind int

const (
	// KindBits is a fixed-width unsigned bit vector, bit<W>.
	KindBits TypeKind = iota
	// KindBool is the boolean type.
	KindBool
	// KindNamed refers to a declaration by name, optionally specialised with type arguments.
	KindNamed
	// KindParam is an open type parameter that must be bound before value-level use.
	KindParam
)

var typeKindNames = map[TypeKind]string{
	KindBits:  "bits",
	KindBool:  "bool",
	KindNamed: "named",
	KindParam: "param",
}

func (k TypeKind) String() string {
	if s, ok := typeKindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("TypeKind(%d)", int(k))
}

// TypeRef is a reference to a type: BitVector(width), Bool, Named(name) or TypeParam(name).
//
// Named references may carry type arguments (Parser<H, M>, register<bit<32>>).
// TypeRef values are treated as immutable; every rewrite produces a fresh value.
type TypeRef struct {
	Kind  TypeKind  `json:"kind"`
	Width int       `json:"width,omitempty"` // KindBits only
	Name  string    `json:"name,omitempty"`  // KindNamed and KindParam
	Args  []TypeRef `json:"args,omitempty"`  // KindNamed only
}

// Bits returns bit<width>.
func Bits(width int) TypeRef { return TypeRef{Kind: KindBits, Width: width} }

// Bool returns the boolean type.
func Bool() TypeRef { return TypeRef{Kind: KindBool} }

// Named returns a reference to a named declaration, specialised with args if given.
func Named(name string, args ...TypeRef) TypeRef {
	return TypeRef{Kind: KindNamed, Name: name, Args: cloneTypes(args)}
}

// Param returns an open type parameter reference.
func Param(name string) TypeRef { return TypeRef{Kind: KindParam, Name: name} }

// IsParam reports whether t is an open type parameter.
func (t TypeRef) IsParam() bool { return t.Kind == KindParam }

// Equal reports structural equality: same variant, same width, same name, equal arguments.
func (t TypeRef) Equal(o TypeRef) bool {
	if t.Kind != o.Kind {
		return false
	}
	switch t.Kind {
	case KindBits:
		return t.Width == o.Width
	case KindBool:
		return true
	case KindParam:
		return t.Name == o.Name
	}
	if t.Name != o.Name || len(t.Args) != len(o.Args) {
		return false
	}
	for i := range t.Args {
		if !t.Args[i].Equal(o.Args[i]) {
			return false
		}
	}
	return true
}

// Clone returns a deep copy of t.
func (t TypeRef) Clone() TypeRef {
	t.Args = cloneTypes(t.Args)
	return t
}

// HasParams reports whether any type parameter occurs inside t.
func (t TypeRef) HasParams() bool {
	if t.Kind == KindParam {
		return true
	}
	for _, a := range t.Args {
		if a.HasParams() {
			return true
		}
	}
	return false
}

// String renders t in source form: bit<8>, bool, ethernet_t, Parser<H, M>.
func (t TypeRef) String() string {
	switch t.Kind {
	case KindBits:
		return fmt.Sprintf("bit<%d>", t.Width)
	case KindBool:
		return "bool"
	case KindParam:
		return t.Name
	}
	if len(t.Args) == 0 {
		return t.Name
	}
	args := make([]string, len(t.Args))
	for i, a := range t.Args {
		args[i] = a.String()
	}
	return t.Name + "<" + strings.Join(args, ", ") + ">"
}

func cloneTypes(ts []TypeRef) []TypeRef {
	if len(ts) == 0 {
		return nil
	}
	out := make([]TypeRef, len(ts))
	for i, t := range ts {
		out[i] = t.Clone()
	}
	return out
}

// Direction constrains mutation visibility across a call boundary.
type Direction int

const (
	// DirNone marks a compile-time/structural parameter (e.g. an instance argument).
	DirNone Direction = iota
	// DirIn is read-only to the callee.
	DirIn
	// DirOut is write-only and must be assigned before the callee returns.
	DirOut
	// DirInOut is read-write and aliases the caller's storage.
	DirInOut
)

var directionNames = []string{"none", "in", "out", "inout"}

func (d Direction) String() string {
	if int(d) >= 0 && int(d) < len(directionNames) {
		return directionNames[d]
	}
	return fmt.Sprintf("Direction(%d)", int(d))
}

// ParseDirection parses "none", "in", "out" or "inout". The empty string is DirNone.
func ParseDirection(s string) (Direction, error) {
	if s == "" {
		return DirNone, nil
	}
	for i, name := range directionNames {
		if name == s {
			return Direction(i), nil
		}
	}
	return DirNone, fmt.Errorf("unknown parameter direction %q", s)
}

// Parameter is one formal parameter of a method, action, control or package.
type Parameter struct {
	Direction Direction `json:"direction"`
	Name      string    `json:"name"`
	Type      TypeRef   `json:"type"`
	Default   *Expr     `json:"default,omitempty"`
}

// In returns an in-parameter.
func In(name string, t TypeRef) Parameter { return Parameter{Direction: DirIn, Name: name, Type: t} }

// Out returns an out-parameter.
func Out(name string, t TypeRef) Parameter { return Parameter{Direction: DirOut, Name: name, Type: t} }

// InOut returns an inout-parameter.
func InOut(name string, t TypeRef) Parameter {
	return Parameter{Direction: DirInOut, Name: name, Type: t}
}

// NoDir returns a directionless (structural) parameter.
func NoDir(name string, t TypeRef) Parameter {
	return Parameter{Direction: DirNone, Name: name, Type: t}
}

// TypeParams is the generic header of a method: an optional return slot plus the
// positional type-parameter list.
//
// Return is nil when the method returns nothing. When Return is a type parameter that does
// not appear in Params it is inferred from the call's assignment target, never supplied
// positionally.
type TypeParams struct {
	Return *TypeRef `json:"return,omitempty"`
	Params []string `json:"params,omitempty"`
}

// ReturnParam returns the name of the return-type parameter, if the return slot holds one.
func (tp TypeParams) ReturnParam() (string, bool) {
	if tp.Return == nil || tp.Return.Kind != KindParam {
		return "", false
	}
	return tp.Return.Name, true
}

// Field is one named member of a composite type.
type Field struct {
	Name string  `json:"name"`
	Type TypeRef `json:"type"`
}

// TypeClass distinguishes the named user types.
type TypeClass int

const (
	ClassStruct TypeClass = iota
	ClassHeader
	ClassEnum
)

var typeClassNames = []string{"struct", "header", "enum"}

func (c TypeClass) String() string {
	if int(c) >= 0 && int(c) < len(typeClassNames) {
		return typeClassNames[c]
	}
	return fmt.Sprintf("TypeClass(%d)", int(c))
}

// EnumWidth is the layout width given to enum and error values.
const EnumWidth = 32
