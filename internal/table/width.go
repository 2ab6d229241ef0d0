package table

import (
	"github.com/roach88/p4ir/internal/generic"
	"github.com/roach88/p4ir/internal/ir"
)

// Width computes the layout width of t in bits.
//
//	bit<W>            W
//	bool              1
//	enum, error       32
//	struct, header    sum of field widths, after substituting type arguments
//
// Externs, controls, parsers and packages have no layout. Open type parameters
// cannot be measured.
func Width(r Resolver, t ir.TypeRef) (int, error) {
	return width(r, t, nil)
}

func width(r Resolver, t ir.TypeRef, stack []string) (int, error) {
	switch t.Kind {
	case ir.KindBits:
		if t.Width <= 0 {
			return 0, ir.Errorf(ir.ErrInvalidDeclaration, "bit width must be positive, got %d", t.Width)
		}
		return t.Width, nil
	case ir.KindBool:
		return 1, nil
	case ir.KindParam:
		return 0, ir.Errorf(ir.ErrUnboundTypeParameter, "cannot measure open type parameter %s", t.Name)
	}

	for _, name := range stack {
		if name == t.Name {
			return 0, ir.Errorf(ir.ErrCyclicDefinition, "type %s contains itself", t.Name)
		}
	}
	d, err := r.Resolve(t.Name)
	if err != nil {
		return 0, err
	}
	if d.Kind != ir.DeclType || d.Type == nil {
		return 0, ir.Errorf(ir.ErrInvalidDeclaration, "%s %s has no layout", d.Kind, t.Name)
	}
	if d.Type.Class == ir.ClassEnum {
		return ir.EnumWidth, nil
	}

	subst, err := generic.BindList(d.Type.TypeParams, t.Args)
	if err != nil {
		return 0, err
	}
	total := 0
	for _, f := range subst.ApplyFields(d.Type.Fields) {
		w, err := width(r, f.Type, append(stack, t.Name))
		if err != nil {
			return 0, err
		}
		total += w
	}
	return total, nil
}

// FieldOf returns the type of the named field of composite t, with t's type
// arguments substituted.
func FieldOf(r Resolver, t ir.TypeRef, field string) (ir.TypeRef, *ir.Declaration, error) {
	if t.Kind != ir.KindNamed {
		return ir.TypeRef{}, nil, ir.Errorf(ir.ErrTypeMismatch, "%s has no field %q", t, field)
	}
	d, err := r.Resolve(t.Name)
	if err != nil {
		return ir.TypeRef{}, nil, err
	}
	if d.Kind != ir.DeclType || d.Type == nil || d.Type.Class == ir.ClassEnum {
		return ir.TypeRef{}, d, ir.Errorf(ir.ErrTypeMismatch, "%s is not a struct or header", t)
	}
	f, ok := d.Type.Field(field)
	if !ok {
		return ir.TypeRef{}, d, ir.Errorf(ir.ErrUnknownName, "%s has no field %q", t, field)
	}
	subst, err := generic.BindList(d.Type.TypeParams, t.Args)
	if err != nil {
		return ir.TypeRef{}, d, err
	}
	return subst.Apply(f.Type), d, nil
}
