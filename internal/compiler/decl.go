package compiler

import (
	"fmt"

	"cuelang.org/go/cue"

	"github.com/roach88/p4ir/internal/ir"
)

// Declaration kinds accepted in a program document.
const (
	KindHeader      = "header"
	KindStruct      = "struct"
	KindEnum        = "enum"
	KindMatchKind   = "match_kind"
	KindExtern      = "extern"
	KindMethod      = "method"
	KindAction      = "action"
	KindControlType = "control_type"
	KindParserType  = "parser_type"
	KindPackage     = "package"
	KindControl     = "control"
	KindParser      = "parser"
	KindInstance    = "instance"
	KindTable       = "table"
)

// compileDecl decodes one declaration object. local is set inside a control or
// parser's locals list.
func compileDecl(v cue.Value, path string, local bool) (ir.Declaration, error) {
	kind, err := requiredString(v, "kind")
	if err != nil {
		return ir.Declaration{}, err
	}
	if kind == KindMatchKind {
		tags, err := stringList(v, "members")
		if err != nil {
			return ir.Declaration{}, err
		}
		return ir.NewMatchKind(tags...), nil
	}

	name, err := requiredString(v, "name")
	if err != nil {
		return ir.Declaration{}, err
	}
	path = fmt.Sprintf("%s(%s)", path, name)

	typeParams, err := stringList(v, "type_params")
	if err != nil {
		return ir.Declaration{}, err
	}

	switch kind {
	case KindHeader, KindStruct:
		fields, err := compileFields(v, path)
		if err != nil {
			return ir.Declaration{}, err
		}
		d := ir.NewStruct(name, fields...)
		if kind == KindHeader {
			d = ir.NewHeader(name, fields...)
		}
		d.Type.TypeParams = typeParams
		return d, nil

	case KindEnum:
		members, err := stringList(v, "members")
		if err != nil {
			return ir.Declaration{}, err
		}
		return ir.NewEnum(name, members...), nil

	case KindExtern:
		var methods []ir.Declaration
		err := each(v, "methods", path, func(mv cue.Value, mpath string) error {
			m, err := compileMethod(mv, mpath)
			if err != nil {
				return err
			}
			methods = append(methods, m)
			return nil
		})
		if err != nil {
			return ir.Declaration{}, err
		}
		return ir.NewExtern(name, typeParams, methods...), nil

	case KindMethod:
		return compileMethod(v, path)

	case KindAction:
		params, err := compileParams(v, "params", path)
		if err != nil {
			return ir.Declaration{}, err
		}
		body, err := compileStmts(v, "body", path)
		if err != nil {
			return ir.Declaration{}, err
		}
		return ir.NewAction(name, params, body...), nil

	case KindControlType, KindParserType, KindPackage:
		params, err := compileParams(v, "params", path)
		if err != nil {
			return ir.Declaration{}, err
		}
		switch kind {
		case KindControlType:
			return ir.NewControlType(name, typeParams, params...), nil
		case KindParserType:
			return ir.NewParserType(name, typeParams, params...), nil
		}
		return ir.NewPackage(name, typeParams, params...), nil

	case KindControl, KindParser:
		return compileBlock(v, kind, name, typeParams, path)

	case KindInstance:
		return compileInstance(v, name, path)

	case KindTable:
		if !local {
			return ir.Declaration{}, &CompileError{Field: path + ".kind", Message: "tables are declared in a control's locals", Pos: v.Pos()}
		}
		return compileTable(v, name, path)
	}

	msg := fmt.Sprintf("unknown declaration kind %q", kind)
	if local {
		msg = fmt.Sprintf("unknown local declaration kind %q", kind)
	}
	return ir.Declaration{}, &CompileError{Field: path + ".kind", Message: msg, Pos: v.Pos()}
}

func compileFields(v cue.Value, path string) ([]ir.Field, error) {
	var fields []ir.Field
	err := each(v, "fields", path, func(fv cue.Value, fpath string) error {
		name, err := requiredString(fv, "name")
		if err != nil {
			return err
		}
		ts, err := requiredString(fv, "type")
		if err != nil {
			return err
		}
		t, err := ParseType(ts)
		if err != nil {
			return fieldError(fv, fpath+".type", err)
		}
		fields = append(fields, ir.F(name, t))
		return nil
	})
	return fields, err
}

// compileMethod decodes {name, type_params, returns, params}.
func compileMethod(v cue.Value, path string) (ir.Declaration, error) {
	name, err := requiredString(v, "name")
	if err != nil {
		return ir.Declaration{}, err
	}
	typeParams, err := stringList(v, "type_params")
	if err != nil {
		return ir.Declaration{}, err
	}
	tp := ir.Generic(typeParams...)
	ret, err := optionalString(v, "returns")
	if err != nil {
		return ir.Declaration{}, err
	}
	if ret != "" {
		rt, err := ParseType(ret)
		if err != nil {
			return ir.Declaration{}, fieldError(v, path+".returns", err)
		}
		tp = ir.Returning(rt, typeParams...)
	}
	params, err := compileParams(v, "params", path)
	if err != nil {
		return ir.Declaration{}, err
	}
	return ir.NewMethod(name, tp, params...), nil
}

// compileParams decodes [{dir, name, type, default}].
func compileParams(v cue.Value, field, path string) ([]ir.Parameter, error) {
	var params []ir.Parameter
	err := each(v, field, path, func(pv cue.Value, ppath string) error {
		name, err := requiredString(pv, "name")
		if err != nil {
			return err
		}
		ts, err := requiredString(pv, "type")
		if err != nil {
			return err
		}
		t, err := ParseType(ts)
		if err != nil {
			return fieldError(pv, ppath+".type", err)
		}
		dirName, err := optionalString(pv, "dir")
		if err != nil {
			return err
		}
		dir, err := ir.ParseDirection(dirName)
		if err != nil {
			return fieldError(pv, ppath+".dir", err)
		}
		p := ir.Parameter{Direction: dir, Name: name, Type: t}
		def, err := optionalString(pv, "default")
		if err != nil {
			return err
		}
		if def != "" {
			e, err := ParseExpr(def)
			if err != nil {
				return fieldError(pv, ppath+".default", err)
			}
			p.Default = &e
		}
		params = append(params, p)
		return nil
	})
	return params, err
}

func compileBlock(v cue.Value, kind, name string, typeParams []string, path string) (ir.Declaration, error) {
	params, err := compileParams(v, "params", path)
	if err != nil {
		return ir.Declaration{}, err
	}
	constParams, err := compileParams(v, "const_params", path)
	if err != nil {
		return ir.Declaration{}, err
	}
	var locals []ir.Declaration
	err = each(v, "locals", path, func(lv cue.Value, lpath string) error {
		l, err := compileDecl(lv, lpath, true)
		if err != nil {
			return err
		}
		locals = append(locals, l)
		return nil
	})
	if err != nil {
		return ir.Declaration{}, err
	}

	var d ir.Declaration
	if kind == KindControl {
		body, err := compileStmts(v, "body", path)
		if err != nil {
			return ir.Declaration{}, err
		}
		d = ir.NewControl(name, params, locals, body...)
	} else {
		var states []ir.ParserState
		err := each(v, "states", path, func(sv cue.Value, spath string) error {
			st, err := compileState(sv, spath)
			if err != nil {
				return err
			}
			states = append(states, st)
			return nil
		})
		if err != nil {
			return ir.Declaration{}, err
		}
		d = ir.NewParser(name, params, locals, states...)
	}
	d.Block.TypeParams = typeParams
	d.Block.ConstParams = constParams
	return d, nil
}

// compileState decodes {name, components, next} or {name, components, select: {keys, cases}}.
func compileState(v cue.Value, path string) (ir.ParserState, error) {
	name, err := requiredString(v, "name")
	if err != nil {
		return ir.ParserState{}, err
	}
	path = fmt.Sprintf("%s(%s)", path, name)
	comps, err := compileStmts(v, "components", path)
	if err != nil {
		return ir.ParserState{}, err
	}
	st := ir.ParserState{Name: name, Components: comps}

	sel := v.LookupPath(cue.ParsePath("select"))
	if !sel.Exists() {
		if st.Select.Next, err = optionalString(v, "next"); err != nil {
			return ir.ParserState{}, err
		}
		return st, nil
	}
	if v.LookupPath(cue.ParsePath("next")).Exists() {
		return ir.ParserState{}, &CompileError{Field: path, Message: "state has both next and select", Pos: v.Pos()}
	}
	keys, err := stringList(sel, "keys")
	if err != nil {
		return ir.ParserState{}, err
	}
	for _, k := range keys {
		e, err := ParseExpr(k)
		if err != nil {
			return ir.ParserState{}, fieldError(sel, path+".select.keys", err)
		}
		st.Select.Keys = append(st.Select.Keys, e)
	}
	err = each(sel, "cases", path+".select", func(cv cue.Value, cpath string) error {
		next, err := requiredString(cv, "next")
		if err != nil {
			return err
		}
		keyset, err := stringList(cv, "keyset")
		if err != nil {
			return err
		}
		c := ir.SelectCase{Next: next}
		for _, k := range keyset {
			e, err := ParseExpr(k)
			if err != nil {
				return fieldError(cv, cpath+".keyset", err)
			}
			c.Keyset = append(c.Keyset, e)
		}
		st.Select.Cases = append(st.Select.Cases, c)
		return nil
	})
	return st, err
}

// compileTable decodes {keys: [{expr, match_kind}], actions, default_action}.
func compileTable(v cue.Value, name, path string) (ir.Declaration, error) {
	var keys []ir.TableKey
	err := each(v, "keys", path, func(kv cue.Value, kpath string) error {
		es, err := requiredString(kv, "expr")
		if err != nil {
			return err
		}
		e, err := ParseExpr(es)
		if err != nil {
			return fieldError(kv, kpath+".expr", err)
		}
		mk, err := requiredString(kv, "match_kind")
		if err != nil {
			return err
		}
		keys = append(keys, ir.Key(e, mk))
		return nil
	})
	if err != nil {
		return ir.Declaration{}, err
	}
	actions, err := stringList(v, "actions")
	if err != nil {
		return ir.Declaration{}, err
	}
	def, err := optionalString(v, "default_action")
	if err != nil {
		return ir.Declaration{}, err
	}
	return ir.NewTable(name, keys, actions, def), nil
}

func compileInstance(v cue.Value, name, path string) (ir.Declaration, error) {
	ts, err := requiredString(v, "type")
	if err != nil {
		return ir.Declaration{}, err
	}
	t, err := ParseType(ts)
	if err != nil {
		return ir.Declaration{}, fieldError(v, path+".type", err)
	}
	argStrs, err := stringList(v, "args")
	if err != nil {
		return ir.Declaration{}, err
	}
	args := make([]ir.Expr, len(argStrs))
	for i, s := range argStrs {
		e, err := ParseExpr(s)
		if err != nil {
			return ir.Declaration{}, fieldError(v, fmt.Sprintf("%s.args[%d]", path, i), err)
		}
		args[i] = constructionArg(e)
	}
	return ir.NewInstance(name, t, args...), nil
}

// constructionArg turns a bare name or a zero-argument call "p()" into a
// construction of p. Other expressions are constructor arguments of externs.
func constructionArg(e ir.Expr) ir.Expr {
	switch {
	case e.Kind == ir.ExprPath:
		return ir.ConstCall(e.Name)
	case e.Kind == ir.ExprMethodCall && e.Callee.Kind == ir.ExprPath && len(e.Args) == 0 && len(e.TypeArgs) == 0:
		return ir.ConstCall(e.Callee.Name)
	}
	return e
}

// compileStmts decodes a statement list.
func compileStmts(v cue.Value, field, path string) ([]ir.Statement, error) {
	var out []ir.Statement
	err := each(v, field, path, func(sv cue.Value, spath string) error {
		st, err := compileStmt(sv, spath)
		if err != nil {
			return err
		}
		out = append(out, st)
		return nil
	})
	return out, err
}

// compileStmt decodes {call, type_args, args}, {noop: true}, {block: [...]},
// {target, value} or {target, call, type_args, args}.
func compileStmt(v cue.Value, path string) (ir.Statement, error) {
	if b := v.LookupPath(cue.ParsePath("block")); b.Exists() {
		stmts, err := compileStmts(v, "block", path)
		if err != nil {
			return ir.Statement{}, err
		}
		return ir.BlockStmt(stmts...), nil
	}
	if n := v.LookupPath(cue.ParsePath("noop")); n.Exists() {
		return ir.Noop(), nil
	}

	var call *ir.Expr
	if v.LookupPath(cue.ParsePath("call")).Exists() {
		c, err := compileCall(v, path)
		if err != nil {
			return ir.Statement{}, err
		}
		call = &c
	}

	target, err := optionalString(v, "target")
	if err != nil {
		return ir.Statement{}, err
	}
	if target == "" {
		if call == nil {
			return ir.Statement{}, &CompileError{Field: path, Message: "statement needs call, target, block or noop", Pos: v.Pos()}
		}
		return ir.CallStmt(*call), nil
	}

	te, err := ParseExpr(target)
	if err != nil {
		return ir.Statement{}, fieldError(v, path+".target", err)
	}
	if call != nil {
		return ir.Assign(te, *call), nil
	}
	value, err := requiredString(v, "value")
	if err != nil {
		return ir.Statement{}, err
	}
	ve, err := ParseExpr(value)
	if err != nil {
		return ir.Statement{}, fieldError(v, path+".value", err)
	}
	return ir.Assign(te, ve), nil
}

func compileCall(v cue.Value, path string) (ir.Expr, error) {
	callee, err := requiredString(v, "call")
	if err != nil {
		return ir.Expr{}, err
	}
	ce, err := ParseExpr(callee)
	if err != nil {
		return ir.Expr{}, fieldError(v, path+".call", err)
	}
	if ce.Kind != ir.ExprPath && ce.Kind != ir.ExprMember {
		return ir.Expr{}, &CompileError{Field: path + ".call", Message: fmt.Sprintf("%q is not a callee", callee), Pos: v.Pos()}
	}
	typeArgStrs, err := stringList(v, "type_args")
	if err != nil {
		return ir.Expr{}, err
	}
	var typeArgs []ir.TypeRef
	for _, s := range typeArgStrs {
		t, err := ParseType(s)
		if err != nil {
			return ir.Expr{}, fieldError(v, path+".type_args", err)
		}
		typeArgs = append(typeArgs, t)
	}
	argStrs, err := stringList(v, "args")
	if err != nil {
		return ir.Expr{}, err
	}
	var args []ir.Expr
	for i, s := range argStrs {
		e, err := ParseExpr(s)
		if err != nil {
			return ir.Expr{}, fieldError(v, fmt.Sprintf("%s.args[%d]", path, i), err)
		}
		args = append(args, e)
	}
	return ir.Call(ce, typeArgs, args...), nil
}
