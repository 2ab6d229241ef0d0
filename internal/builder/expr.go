package builder

import (
	"fmt"

	"github.com/roach88/p4ir/internal/generic"
	"github.com/roach88/p4ir/internal/ir"
	"github.com/roach88/p4ir/internal/table"
)

// Header built-in methods. They exist on every header value without declaration.
const (
	builtinIsValid    = "isValid"
	builtinSetValid   = "setValid"
	builtinSetInvalid = "setInvalid"
)

// scope checks the statements and expressions of one block, action or parser.
type scope struct {
	b     *Builder
	owner string
	tbl   *table.Table
	vars  map[string]ir.TypeRef

	// typeParams are the enclosing block's type parameters.
	typeParams []string

	where string
	calls []ir.CallSite

	// extractions is non-nil while a parser state is being checked.
	extractions *[]ir.Extraction

	// tables holds the checked local tables of a control.
	tables []ir.TableModel
}

func (b *Builder) newScope(owner string, tbl *table.Table, vars map[string]ir.TypeRef) *scope {
	if vars == nil {
		vars = make(map[string]ir.TypeRef)
	}
	return &scope{b: b, owner: owner, tbl: tbl, vars: vars}
}

// withParams returns a nested scope where params shadow the enclosing variables.
// Calls recorded in the nested scope are appended to the parent's by the caller.
func (s *scope) withParams(params []ir.Parameter) *scope {
	vars := make(map[string]ir.TypeRef, len(s.vars)+len(params))
	for k, v := range s.vars {
		vars[k] = v
	}
	for _, p := range params {
		vars[p.Name] = p.Type
	}
	return &scope{b: s.b, owner: s.owner, tbl: s.tbl, vars: vars, typeParams: s.typeParams}
}

func (s *scope) lookupVar(name string) (ir.TypeRef, bool) {
	if t, ok := s.vars[name]; ok {
		return t, true
	}
	t, ok := s.b.globals[name]
	return t, ok
}

// typeOf returns the static type of e. Unsized integer literals yield an untyped shape.
func (s *scope) typeOf(e ir.Expr) (table.Shape, error) {
	switch e.Kind {
	case ir.ExprPath:
		if t, ok := s.lookupVar(e.Name); ok {
			return table.ShapeOf(t), nil
		}
		if d, err := s.tbl.Resolve(e.Name); err == nil {
			return table.Shape{}, ir.Errorf(ir.ErrTypeMismatch, "%s %q used as a value", d.Kind, e.Name)
		}
		return table.Shape{}, ir.Errorf(ir.ErrUnknownName, "undeclared variable %q", e.Name)

	case ir.ExprMember:
		return s.typeOfMember(e)

	case ir.ExprSlice:
		t, err := s.checkSlice(e)
		if err != nil {
			return table.Shape{}, err
		}
		return table.ShapeOf(t), nil

	case ir.ExprInt:
		if e.Width > 0 {
			if e.Value < 0 || (e.Width < 63 && e.Value >= int64(1)<<e.Width) {
				return table.Shape{}, ir.Errorf(ir.ErrTypeMismatch, "literal %s does not fit bit<%d>", e, e.Width)
			}
			return table.ShapeOf(ir.Bits(e.Width)), nil
		}
		return table.Untyped(), nil

	case ir.ExprBool:
		return table.ShapeOf(ir.Bool()), nil

	case ir.ExprMethodCall:
		ret, err := s.checkCall(e, nil)
		if err != nil {
			return table.Shape{}, err
		}
		if ret == nil {
			return table.Shape{}, ir.Errorf(ir.ErrTypeMismatch, "%s returns no value", e.Callee)
		}
		return table.ShapeOf(*ret), nil

	case ir.ExprConstCall:
		return table.Shape{}, ir.Errorf(ir.ErrTypeMismatch, "construction %s is only valid as an instance argument", e)

	case ir.ExprDefault:
		return table.Shape{}, ir.Errorf(ir.ErrInvalidDeclaration, "default is only valid in a select keyset")
	}
	return table.Shape{}, ir.Errorf(ir.ErrInvalidDeclaration, "unsupported expression %s", e.Kind)
}

func (s *scope) typeOfMember(e ir.Expr) (table.Shape, error) {
	// error.NoMatch, CounterType.packets: member of an enum type name.
	if e.Base.Kind == ir.ExprPath {
		if _, isVar := s.lookupVar(e.Base.Name); !isVar {
			d, err := s.tbl.Resolve(e.Base.Name)
			if err != nil {
				return table.Shape{}, ir.Errorf(ir.ErrUnknownName, "undeclared variable %q", e.Base.Name)
			}
			if d.Type == nil || d.Type.Class != ir.ClassEnum {
				return table.Shape{}, ir.Errorf(ir.ErrTypeMismatch, "%s %q used as a value", d.Kind, d.Name)
			}
			if !d.Type.HasMember(e.Field) {
				return table.Shape{}, ir.Errorf(ir.ErrUnknownName, "%s has no member %q", d.Name, e.Field)
			}
			return table.ShapeOf(ir.Named(d.Name)), nil
		}
	}

	base, err := s.typed(*e.Base)
	if err != nil {
		return table.Shape{}, err
	}
	if base.Kind != ir.KindNamed {
		return table.Shape{}, ir.Errorf(ir.ErrTypeMismatch, "%s of type %s has no field %q", e.Base, base, e.Field)
	}
	d, err := s.tbl.Resolve(base.Name)
	if err != nil {
		return table.Shape{}, err
	}
	if d.Kind != ir.DeclType {
		return table.Shape{}, ir.Errorf(ir.ErrTypeMismatch, "method %s.%s used as a value", base.Name, e.Field)
	}
	if d.Type.Class == ir.ClassHeader && isHeaderBuiltin(e.Field) {
		return table.Shape{}, ir.Errorf(ir.ErrTypeMismatch, "method %s.%s used as a value", base.Name, e.Field)
	}
	ft, _, err := table.FieldOf(s.tbl, base, e.Field)
	if err != nil {
		return table.Shape{}, err
	}
	return table.ShapeOf(ft), nil
}

// typed is typeOf for positions where an unsized literal is not allowed.
func (s *scope) typed(e ir.Expr) (ir.TypeRef, error) {
	sh, err := s.typeOf(e)
	if err != nil {
		return ir.TypeRef{}, err
	}
	if sh.Type == nil {
		return ir.TypeRef{}, ir.Errorf(ir.ErrTypeMismatch, "unsized literal %s needs a width here", e)
	}
	return *sh.Type, nil
}

// checkSlice validates base[high:low]. It succeeds iff 0 <= low <= high < width(base).
func (s *scope) checkSlice(e ir.Expr) (ir.TypeRef, error) {
	base, err := s.typed(*e.Base)
	if err != nil {
		return ir.TypeRef{}, err
	}
	if base.Kind != ir.KindBits {
		return ir.TypeRef{}, ir.Errorf(ir.ErrInvalidSlice, "cannot slice %s of type %s", e.Base, base)
	}
	if e.Low < 0 || e.High < e.Low || e.High >= base.Width {
		return ir.TypeRef{}, ir.Errorf(ir.ErrInvalidSlice,
			"%s is out of range for %s (need 0 <= low <= high < %d)", e, base, base.Width)
	}
	return ir.Bits(e.High - e.Low + 1), nil
}

func isLValue(e ir.Expr) bool {
	switch e.Kind {
	case ir.ExprPath:
		return true
	case ir.ExprMember, ir.ExprSlice:
		return isLValue(*e.Base)
	}
	return false
}

func isHeaderBuiltin(name string) bool {
	return name == builtinIsValid || name == builtinSetValid || name == builtinSetInvalid
}

// candidates is a resolved callee: the overload set plus naming for call sites.
type candidates struct {
	target   string
	set      []*ir.Declaration
	receiver *ir.Declaration // extern declaration for method calls on instances
	builtin  bool
	returns  *ir.TypeRef // header built-ins only
}

func (s *scope) resolveCallee(callee ir.Expr) (candidates, error) {
	switch callee.Kind {
	case ir.ExprMember:
		if t := s.localTable(*callee.Base); t != nil {
			if callee.Field != ir.TableApply {
				return candidates{}, ir.Errorf(ir.ErrUnknownName, "table %s has no method %q", t.Name, callee.Field)
			}
			return candidates{target: t.Name + "." + ir.TableApply, builtin: true}, nil
		}
		base, err := s.typed(*callee.Base)
		if err != nil {
			return candidates{}, err
		}
		if base.Kind != ir.KindNamed {
			return candidates{}, ir.Errorf(ir.ErrTypeMismatch, "%s of type %s has no methods", callee.Base, base)
		}
		d, err := s.tbl.Resolve(base.Name)
		if err != nil {
			return candidates{}, err
		}
		if d.Kind == ir.DeclType && d.Type.Class == ir.ClassHeader && isHeaderBuiltin(callee.Field) {
			c := candidates{target: base.Name + "." + callee.Field, builtin: true}
			if callee.Field == builtinIsValid {
				r := ir.Bool()
				c.returns = &r
			}
			return c, nil
		}
		if d.Kind != ir.DeclExtern {
			return candidates{}, ir.Errorf(ir.ErrUnknownName, "%s has no method %q", base, callee.Field)
		}
		subst, err := generic.BindList(d.Extern.TypeParams, base.Args)
		if err != nil {
			return candidates{}, err
		}
		methods := d.Extern.MethodsNamed(callee.Field)
		if len(methods) == 0 || callee.Field == d.Name {
			return candidates{}, ir.Errorf(ir.ErrUnknownName, "extern %s has no method %q", d.Name, callee.Field)
		}
		set := make([]*ir.Declaration, len(methods))
		for i, m := range methods {
			set[i] = methodIn(subst, m)
		}
		return candidates{target: d.Name + "." + callee.Field, set: set, receiver: d}, nil

	case ir.ExprPath:
		found := s.tbl.Lookup(callee.Name)
		if len(found) == 0 {
			return candidates{}, ir.Errorf(ir.ErrUnknownName, "no action or method named %q", callee.Name)
		}
		for _, d := range found {
			if d.Kind != ir.DeclMethod && d.Kind != ir.DeclAction {
				return candidates{}, ir.Errorf(ir.ErrTypeMismatch, "%s %q is not callable", d.Kind, callee.Name)
			}
		}
		return candidates{target: callee.Name, set: found}, nil
	}
	return candidates{}, ir.Errorf(ir.ErrTypeMismatch, "%s is not callable", callee)
}

// methodIn applies an extern's type arguments to one of its methods. The
// method's own type parameters shadow the extern's.
func methodIn(ext generic.Substitution, m ir.Declaration) *ir.Declaration {
	sig := ext.Without(m.Signature.TypeParams.Params...).ApplySignature(*m.Signature)
	return &ir.Declaration{Name: m.Name, Kind: ir.DeclMethod, Signature: &sig}
}

// localTable returns the table e names, or nil when e is not a table.
func (s *scope) localTable(e ir.Expr) *ir.Declaration {
	if e.Kind != ir.ExprPath {
		return nil
	}
	if _, isVar := s.lookupVar(e.Name); isVar {
		return nil
	}
	d, err := s.tbl.Resolve(e.Name)
	if err != nil || d.Kind != ir.DeclTable {
		return nil
	}
	return d
}

// checkCall resolves a method or action call and records its call site. target is
// the assignment destination's type when the call's value is stored. It returns the
// call's result type, or nil when it returns nothing.
func (s *scope) checkCall(e ir.Expr, target *ir.TypeRef) (*ir.TypeRef, error) {
	c, err := s.resolveCallee(*e.Callee)
	if err != nil {
		return nil, err
	}
	site := ir.CallSite{Where: s.where, Callee: e.Callee.String(), Target: c.target}

	if c.builtin {
		if len(e.Args) != 0 || len(e.TypeArgs) != 0 {
			return nil, ir.Errorf(ir.ErrArityMismatch, "%s takes no arguments", c.target)
		}
		site.Return = c.returns
		s.calls = append(s.calls, site)
		return c.returns, nil
	}

	shapes := make([]table.Shape, len(e.Args))
	for i, a := range e.Args {
		sh, err := s.typeOf(a)
		if err != nil {
			return nil, fmt.Errorf("argument %d of %s: %w", i, e.Callee, err)
		}
		shapes[i] = sh
	}

	idx, err := table.SelectOverloadFor(c.target, c.set, shapes, target)
	if err != nil {
		return nil, err
	}
	chosen := c.set[idx]
	site.Overload = idx

	params := table.ParamsOf(chosen)
	var ret *ir.TypeRef
	if chosen.Signature != nil {
		subst, err := s.bindCall(e, c.target, chosen.Signature, shapes, target)
		if err != nil {
			return nil, err
		}
		applied := subst.ApplySignature(*chosen.Signature)
		params = applied.Params
		ret = applied.TypeParams.Return
		for _, n := range chosen.Signature.TypeParams.Params {
			t, _ := subst.Lookup(n)
			site.TypeArgs = append(site.TypeArgs, t)
		}
	} else if len(e.TypeArgs) > 0 {
		return nil, ir.Errorf(ir.ErrArityMismatch, "action %s takes no type arguments", c.target)
	}

	for _, p := range params {
		if err := s.b.checkType(p.Type, s.typeParams); err != nil {
			return nil, fmt.Errorf("%s parameter %s: %w", c.target, p.Name, err)
		}
	}
	for i, sh := range shapes {
		p := params[i]
		if !table.Fits(p.Type, sh) {
			return nil, ir.Errorf(ir.ErrNoMatchingOverload,
				"argument %d of %s: %s does not fit %s %s", i, c.target, sh, p.Name, p.Type)
		}
		if (p.Direction == ir.DirOut || p.Direction == ir.DirInOut) && !isLValue(e.Args[i]) {
			return nil, ir.Errorf(ir.ErrTypeMismatch,
				"argument %d of %s: %s is not assignable but %s is %s", i, c.target, e.Args[i], p.Name, p.Direction)
		}
	}
	if target != nil && ret != nil && !ret.Equal(*target) {
		return nil, ir.Errorf(ir.ErrTypeMismatch, "%s returns %s, assigned to %s", c.target, ret, target)
	}

	if s.extractions != nil && c.receiver != nil && chosen.Name == "extract" && len(params) > 0 {
		if err := requireHeader(s.tbl, params[0].Type); err != nil {
			return nil, fmt.Errorf("%s: %w", c.target, err)
		}
		w, err := table.Width(s.tbl, params[0].Type)
		if err != nil {
			return nil, fmt.Errorf("extract %s: %w", params[0].Type, err)
		}
		*s.extractions = append(*s.extractions, ir.Extraction{
			Header:   params[0].Type,
			Width:    w,
			Variable: len(e.Args) > 1,
		})
	}

	site.Return = ret
	s.calls = append(s.calls, site)
	return ret, nil
}

// requireHeader fails unless t names a header type.
func requireHeader(r table.Resolver, t ir.TypeRef) error {
	if t.Kind == ir.KindNamed {
		d, err := r.Resolve(t.Name)
		if err != nil {
			return err
		}
		if d.Type != nil && d.Type.Class == ir.ClassHeader {
			return nil
		}
	}
	return ir.Errorf(ir.ErrTypeMismatch, "can only extract a header, got %s", t)
}

// bindCall binds a method's own type parameters: from explicit type arguments when
// given, otherwise by unifying parameter types with argument types, and finally a
// return-only parameter from the assignment target.
func (s *scope) bindCall(e ir.Expr, name string, sig *ir.Signature, shapes []table.Shape, target *ir.TypeRef) (generic.Substitution, error) {
	tps := sig.TypeParams.Params
	if len(e.TypeArgs) > 0 {
		for _, ta := range e.TypeArgs {
			if err := s.b.checkType(ta, s.typeParams); err != nil {
				return generic.Substitution{}, err
			}
		}
		subst, err := generic.Bind(sig.TypeParams, e.TypeArgs)
		if err != nil {
			return generic.Substitution{}, fmt.Errorf("%s: %w", name, err)
		}
		return subst, nil
	}

	subst := generic.Empty()
	for i, sh := range shapes {
		if sh.Type == nil {
			continue
		}
		next, ok := generic.Unify(sig.Params[i].Type, *sh.Type, tps, subst)
		if !ok {
			return generic.Substitution{}, ir.Errorf(ir.ErrNoMatchingOverload,
				"argument %d of %s: %s conflicts with %s", i, name, sh, subst.Apply(sig.Params[i].Type))
		}
		subst = next
	}
	if r := sig.TypeParams.Return; r != nil && target != nil {
		next, ok := generic.Unify(*r, *target, tps, subst)
		if !ok {
			return generic.Substitution{}, ir.Errorf(ir.ErrTypeMismatch,
				"%s returns %s, assigned to %s", name, subst.Apply(*r), target)
		}
		subst = next
	}
	for _, n := range tps {
		if _, ok := subst.Lookup(n); !ok {
			return generic.Substitution{}, ir.Errorf(ir.ErrUnboundTypeParameter,
				"cannot infer type parameter %s of %s; pass it explicitly", n, name)
		}
	}
	return subst, nil
}

// checkConstructor validates an extern instantiation against the extern's
// constructors. An extern without constructors takes no arguments.
func (s *scope) checkConstructor(t ir.TypeRef, ext *ir.Declaration, args []ir.Expr) error {
	subst, err := generic.BindList(ext.Extern.TypeParams, t.Args)
	if err != nil {
		return err
	}
	for _, a := range t.Args {
		if err := s.b.checkType(a, s.typeParams); err != nil {
			return err
		}
	}
	ctors := ext.Extern.MethodsNamed(ext.Name)
	if len(ctors) == 0 {
		if len(args) > 0 {
			return ir.Errorf(ir.ErrArityMismatch, "extern %s has no constructor taking %d arguments", ext.Name, len(args))
		}
		return nil
	}
	set := make([]*ir.Declaration, len(ctors))
	for i, m := range ctors {
		set[i] = methodIn(subst, m)
	}
	shapes := make([]table.Shape, len(args))
	for i, a := range args {
		sh, err := s.typeOf(a)
		if err != nil {
			return fmt.Errorf("argument %d of %s: %w", i, ext.Name, err)
		}
		shapes[i] = sh
	}
	idx, err := table.SelectOverload(ext.Name, set, shapes)
	if err != nil {
		return err
	}
	for _, p := range set[idx].Signature.Params {
		if err := s.b.checkType(p.Type, s.typeParams); err != nil {
			return fmt.Errorf("%s parameter %s: %w", ext.Name, p.Name, err)
		}
	}
	return nil
}
