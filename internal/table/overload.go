package table

import (
	"strconv"
	"strings"

	"github.com/roach88/p4ir/internal/ir"
)

// Shape is the statically known type of one call argument.
type Shape struct {
	// Type is nil for an unsized integer literal, which fits any bit<W>.
	Type *ir.TypeRef
}

// ShapeOf returns the shape of an argument of type t.
func ShapeOf(t ir.TypeRef) Shape { return Shape{Type: &t} }

// Untyped returns the shape of an unsized integer literal.
func Untyped() Shape { return Shape{} }

func (s Shape) String() string {
	if s.Type == nil {
		return "int"
	}
	return s.Type.String()
}

// ParamsOf returns the formal parameters of a callable declaration (method or action).
func ParamsOf(d *ir.Declaration) []ir.Parameter {
	switch {
	case d.Signature != nil:
		return d.Signature.Params
	case d.Action != nil:
		return d.Action.Params
	}
	return nil
}

// ReturnOf returns the return slot of a method, or nil.
func ReturnOf(d *ir.Declaration) *ir.TypeRef {
	if d.Signature != nil {
		return d.Signature.TypeParams.Return
	}
	return nil
}

// SignatureKey renders the overload-distinguishing part of a signature: the arity
// and each parameter type, with type parameters collapsed to "*".
func SignatureKey(d *ir.Declaration) string {
	params := ParamsOf(d)
	parts := make([]string, len(params))
	for i, p := range params {
		parts[i] = keyType(p.Type)
	}
	return strconv.Itoa(len(params)) + "(" + strings.Join(parts, ", ") + ")"
}

func keyType(t ir.TypeRef) string {
	switch t.Kind {
	case ir.KindParam:
		return "*"
	case ir.KindNamed:
		if len(t.Args) == 0 {
			return t.Name
		}
		args := make([]string, len(t.Args))
		for i, a := range t.Args {
			args[i] = keyType(a)
		}
		return t.Name + "<" + strings.Join(args, ", ") + ">"
	}
	return t.String()
}

// SelectOverload picks the unique member of set whose parameters accept shapes.
//
// A candidate accepts when the argument count lies between its required and total
// parameter counts (trailing parameters with defaults may be omitted) and each
// argument fits its parameter type. Type parameters accept anything. Direction does
// not participate.
//
// It returns the index of the chosen member within set.
func SelectOverload(name string, set []*ir.Declaration, shapes []Shape) (int, error) {
	return SelectOverloadFor(name, set, shapes, nil)
}

// SelectOverloadFor is SelectOverload with an optional assignment target. When
// several candidates accept the arguments, those whose return slot fits target
// are preferred.
func SelectOverloadFor(name string, set []*ir.Declaration, shapes []Shape, target *ir.TypeRef) (int, error) {
	if len(set) == 0 {
		return -1, ir.Errorf(ir.ErrUnknownName, "no callable named %q", name)
	}
	var matches []int
	for i, d := range set {
		if accepts(ParamsOf(d), shapes) {
			matches = append(matches, i)
		}
	}
	if len(matches) > 1 && target != nil {
		var narrowed []int
		for _, i := range matches {
			if r := ReturnOf(set[i]); r != nil && Fits(*r, ShapeOf(*target)) {
				narrowed = append(narrowed, i)
			}
		}
		if len(narrowed) > 0 {
			matches = narrowed
		}
	}
	switch len(matches) {
	case 1:
		return matches[0], nil
	case 0:
		return -1, ir.Errorf(ir.ErrNoMatchingOverload,
			"no overload of %q accepts (%s); candidates: %s", name, shapeList(shapes), candidateList(set))
	}
	keys := make([]string, len(matches))
	for i, m := range matches {
		keys[i] = SignatureKey(set[m])
	}
	return -1, ir.Errorf(ir.ErrAmbiguousOverload,
		"%d overloads of %q accept (%s): %s", len(matches), name, shapeList(shapes), strings.Join(keys, ", "))
}

func accepts(params []ir.Parameter, shapes []Shape) bool {
	required := 0
	for _, p := range params {
		if p.Default == nil {
			required++
		}
	}
	if len(shapes) < required || len(shapes) > len(params) {
		return false
	}
	for i, s := range shapes {
		if !Fits(params[i].Type, s) {
			return false
		}
	}
	return true
}

// Fits reports whether an argument of shape s can be passed where p is expected.
func Fits(p ir.TypeRef, s Shape) bool {
	if p.Kind == ir.KindParam {
		return true
	}
	if s.Type == nil {
		return p.Kind == ir.KindBits
	}
	return compatible(p, *s.Type)
}

func compatible(p, a ir.TypeRef) bool {
	if p.Kind == ir.KindParam {
		return true
	}
	if p.Kind != a.Kind {
		return false
	}
	switch p.Kind {
	case ir.KindBits:
		return p.Width == a.Width
	case ir.KindBool:
		return true
	}
	if p.Name != a.Name || len(p.Args) != len(a.Args) {
		return false
	}
	for i := range p.Args {
		if !compatible(p.Args[i], a.Args[i]) {
			return false
		}
	}
	return true
}

func shapeList(shapes []Shape) string {
	parts := make([]string, len(shapes))
	for i, s := range shapes {
		parts[i] = s.String()
	}
	return strings.Join(parts, ", ")
}

func candidateList(set []*ir.Declaration) string {
	parts := make([]string, len(set))
	for i, d := range set {
		parts[i] = SignatureKey(d)
	}
	return strings.Join(parts, ", ")
}
