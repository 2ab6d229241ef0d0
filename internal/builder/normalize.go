package builder

import "github.com/roach88/p4ir/internal/ir"

// normalize rewrites every bare Named reference whose name is an in-scope type
// parameter into a parameter reference. Callers may therefore write Named("T")
// for a type parameter. The input is not modified.
func normalize(d ir.Declaration) ir.Declaration {
	return normalizeIn(d, nil)
}

type typeScope map[string]bool

func (s typeScope) with(names ...string) typeScope {
	if len(names) == 0 {
		return s
	}
	out := make(typeScope, len(s)+len(names))
	for k := range s {
		out[k] = true
	}
	for _, n := range names {
		out[n] = true
	}
	return out
}

func (s typeScope) rewrite(t ir.TypeRef) ir.TypeRef {
	switch t.Kind {
	case ir.KindNamed:
		if len(t.Args) == 0 && s[t.Name] {
			return ir.Param(t.Name)
		}
		out := ir.TypeRef{Kind: ir.KindNamed, Name: t.Name}
		if len(t.Args) > 0 {
			out.Args = make([]ir.TypeRef, len(t.Args))
			for i, a := range t.Args {
				out.Args[i] = s.rewrite(a)
			}
		}
		return out
	case ir.KindParam:
		return t
	}
	return t
}

func (s typeScope) params(ps []ir.Parameter) []ir.Parameter {
	if ps == nil {
		return nil
	}
	out := make([]ir.Parameter, len(ps))
	for i, p := range ps {
		out[i] = p
		out[i].Type = s.rewrite(p.Type)
	}
	return out
}

func (s typeScope) signature(sig *ir.Signature) *ir.Signature {
	if sig == nil {
		return nil
	}
	inner := s.with(sig.TypeParams.Params...)
	out := &ir.Signature{
		TypeParams: ir.TypeParams{Params: sig.TypeParams.Params},
		Params:     inner.params(sig.Params),
	}
	if sig.TypeParams.Return != nil {
		r := inner.rewrite(*sig.TypeParams.Return)
		out.TypeParams.Return = &r
	}
	return out
}

func normalizeIn(d ir.Declaration, outer typeScope) ir.Declaration {
	switch {
	case d.Signature != nil:
		d.Signature = outer.signature(d.Signature)
	case d.Type != nil:
		td := *d.Type
		s := outer.with(td.TypeParams...)
		td.Fields = make([]ir.Field, len(d.Type.Fields))
		for i, f := range d.Type.Fields {
			td.Fields[i] = ir.Field{Name: f.Name, Type: s.rewrite(f.Type)}
		}
		d.Type = &td
	case d.Extern != nil:
		ext := *d.Extern
		s := outer.with(ext.TypeParams...)
		ext.Methods = make([]ir.Declaration, len(d.Extern.Methods))
		for i, m := range d.Extern.Methods {
			ext.Methods[i] = normalizeIn(m, s)
		}
		d.Extern = &ext
	case d.Proto != nil:
		p := *d.Proto
		p.Params = outer.with(p.TypeParams...).params(p.Params)
		d.Proto = &p
	case d.Block != nil:
		blk := *d.Block
		s := outer.with(blk.TypeParams...)
		blk.Params = s.params(blk.Params)
		blk.ConstParams = s.params(blk.ConstParams)
		if len(blk.LocalDecls) > 0 {
			blk.LocalDecls = make([]ir.Declaration, len(d.Block.LocalDecls))
			for i, l := range d.Block.LocalDecls {
				blk.LocalDecls[i] = normalizeIn(l, s)
			}
		}
		d.Block = &blk
	case d.Action != nil:
		a := *d.Action
		a.Params = outer.params(a.Params)
		d.Action = &a
	case d.Instance != nil:
		inst := *d.Instance
		inst.Type = outer.rewrite(inst.Type)
		d.Instance = &inst
	}
	return d
}
