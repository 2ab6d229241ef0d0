// Package generic binds type parameters to concrete types and substitutes them
// through type references, signatures and field lists.
//
// A Substitution is an immutable value. Apply performs a single structural pass
// over a TypeRef: a parameter is replaced by its binding, and the binding itself
// is not revisited, so substitution always terminates even when a binding
// mentions its own name. Inputs are never mutated; every result is a fresh copy.
package generic

import (
	"sort"
	"strings"

	"github.com/roach88/p4ir/internal/ir"
)

// Substitution maps type-parameter names to concrete types.
type Substitution struct {
	m map[string]ir.TypeRef
}

// Empty returns the identity substitution.
func Empty() Substitution { return Substitution{} }

// Bind zips the positional type parameters of tp with args.
// The return slot is not bound here: a return-type parameter either appears in
// tp.Params or is inferred from the call site.
func Bind(tp ir.TypeParams, args []ir.TypeRef) (Substitution, error) {
	return BindList(tp.Params, args)
}

// BindList zips names with args. Count mismatch is an ArityMismatch.
func BindList(names []string, args []ir.TypeRef) (Substitution, error) {
	if len(names) != len(args) {
		return Substitution{}, ir.Errorf(ir.ErrArityMismatch,
			"expected %d type arguments <%s>, got %d", len(names), strings.Join(names, ", "), len(args))
	}
	if len(names) == 0 {
		return Empty(), nil
	}
	m := make(map[string]ir.TypeRef, len(names))
	for i, n := range names {
		m[n] = args[i].Clone()
	}
	return Substitution{m: m}, nil
}

// Len returns the number of bindings.
func (s Substitution) Len() int { return len(s.m) }

// Lookup returns the binding for name.
func (s Substitution) Lookup(name string) (ir.TypeRef, bool) {
	t, ok := s.m[name]
	if !ok {
		return ir.TypeRef{}, false
	}
	return t.Clone(), true
}

// Names returns the bound names in sorted order.
func (s Substitution) Names() []string {
	out := make([]string, 0, len(s.m))
	for n := range s.m {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// With returns a copy of s with name bound to t.
func (s Substitution) With(name string, t ir.TypeRef) Substitution {
	m := make(map[string]ir.TypeRef, len(s.m)+1)
	for k, v := range s.m {
		m[k] = v
	}
	m[name] = t.Clone()
	return Substitution{m: m}
}

// Without returns a copy of s with the given names unbound, for entering a scope
// whose own type parameters shadow outer bindings.
func (s Substitution) Without(names ...string) Substitution {
	if len(s.m) == 0 || len(names) == 0 {
		return s
	}
	m := make(map[string]ir.TypeRef, len(s.m))
	for k, v := range s.m {
		m[k] = v
	}
	for _, n := range names {
		delete(m, n)
	}
	return Substitution{m: m}
}

// Apply replaces every bound parameter in t. Unbound parameters are left in place.
func (s Substitution) Apply(t ir.TypeRef) ir.TypeRef {
	switch t.Kind {
	case ir.KindParam:
		if b, ok := s.m[t.Name]; ok {
			return b.Clone()
		}
		return t
	case ir.KindNamed:
		out := ir.TypeRef{Kind: ir.KindNamed, Name: t.Name}
		if len(t.Args) > 0 {
			out.Args = make([]ir.TypeRef, len(t.Args))
			for i, a := range t.Args {
				out.Args[i] = s.Apply(a)
			}
		}
		return out
	}
	return t
}

// ApplyTypes applies s to each element.
func (s Substitution) ApplyTypes(ts []ir.TypeRef) []ir.TypeRef {
	if ts == nil {
		return nil
	}
	out := make([]ir.TypeRef, len(ts))
	for i, t := range ts {
		out[i] = s.Apply(t)
	}
	return out
}

// ApplyParams applies s to each parameter type.
func (s Substitution) ApplyParams(ps []ir.Parameter) []ir.Parameter {
	if ps == nil {
		return nil
	}
	out := make([]ir.Parameter, len(ps))
	for i, p := range ps {
		out[i] = ir.Parameter{Direction: p.Direction, Name: p.Name, Type: s.Apply(p.Type)}
		if p.Default != nil {
			d := *p.Default
			out[i].Default = &d
		}
	}
	return out
}

// ApplyFields applies s to each field type.
func (s Substitution) ApplyFields(fs []ir.Field) []ir.Field {
	if fs == nil {
		return nil
	}
	out := make([]ir.Field, len(fs))
	for i, f := range fs {
		out[i] = ir.Field{Name: f.Name, Type: s.Apply(f.Type)}
	}
	return out
}

// ApplySignature applies s to a method's return slot and parameters. Names bound
// by s are removed from the type-parameter list.
func (s Substitution) ApplySignature(sig ir.Signature) ir.Signature {
	out := ir.Signature{Params: s.ApplyParams(sig.Params)}
	if sig.TypeParams.Return != nil {
		r := s.Apply(*sig.TypeParams.Return)
		out.TypeParams.Return = &r
	}
	for _, n := range sig.TypeParams.Params {
		if _, ok := s.m[n]; !ok {
			out.TypeParams.Params = append(out.TypeParams.Params, n)
		}
	}
	return out
}

// String renders the substitution as {A=bit<8>, B=H}.
func (s Substitution) String() string {
	parts := make([]string, 0, len(s.m))
	for _, n := range s.Names() {
		parts = append(parts, n+"="+s.m[n].String())
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

// Unify matches pattern against actual, binding the parameters listed in vars.
// Parameters outside vars must match structurally. It returns the extended
// substitution and whether unification succeeded; acc is never modified.
func Unify(pattern, actual ir.TypeRef, vars []string, acc Substitution) (Substitution, bool) {
	if pattern.Kind == ir.KindParam && contains(vars, pattern.Name) {
		if bound, ok := acc.m[pattern.Name]; ok {
			return acc, bound.Equal(actual)
		}
		return acc.With(pattern.Name, actual), true
	}
	if pattern.Kind != actual.Kind {
		return acc, false
	}
	switch pattern.Kind {
	case ir.KindBits:
		return acc, pattern.Width == actual.Width
	case ir.KindBool:
		return acc, true
	case ir.KindParam:
		return acc, pattern.Name == actual.Name
	}
	if pattern.Name != actual.Name || len(pattern.Args) != len(actual.Args) {
		return acc, false
	}
	cur := acc
	for i := range pattern.Args {
		var ok bool
		cur, ok = Unify(pattern.Args[i], actual.Args[i], vars, cur)
		if !ok {
			return acc, false
		}
	}
	return cur, true
}

// Unbound returns the parameter names still occurring in t, in first-seen order.
func Unbound(t ir.TypeRef) []string {
	var out []string
	var walk func(ir.TypeRef)
	walk = func(r ir.TypeRef) {
		switch r.Kind {
		case ir.KindParam:
			if !contains(out, r.Name) {
				out = append(out, r.Name)
			}
		case ir.KindNamed:
			for _, a := range r.Args {
				walk(a)
			}
		}
	}
	walk(t)
	return out
}

func contains(list []string, s string) bool {
	for _, x := range list {
		if x == s {
			return true
		}
	}
	return false
}
