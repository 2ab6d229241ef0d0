package builder

import (
	"fmt"
	"slices"

	"github.com/roach88/p4ir/internal/ir"
	"github.com/roach88/p4ir/internal/table"
)

// checkStmt checks one statement. where names its position for call sites:
// "apply[0]", "do_action_0[1][0]", "start[2]".
func (s *scope) checkStmt(st ir.Statement, where string) error {
	switch st.Kind {
	case ir.StmtBlock:
		for i, c := range st.Stmts {
			if err := s.checkStmt(c, fmt.Sprintf("%s[%d]", where, i)); err != nil {
				return err
			}
		}
		return nil

	case ir.StmtNoop:
		return nil

	case ir.StmtMethodCall:
		if st.Call == nil || st.Call.Kind != ir.ExprMethodCall {
			return ir.Errorf(ir.ErrInvalidDeclaration, "%s: call statement without a call", where)
		}
		s.where = where
		_, err := s.checkCall(*st.Call, nil)
		if err != nil {
			return fmt.Errorf("%s: %w", where, err)
		}
		return nil

	case ir.StmtAssign:
		if st.Target == nil || st.Value == nil {
			return ir.Errorf(ir.ErrInvalidDeclaration, "%s: incomplete assignment", where)
		}
		s.where = where
		if err := s.checkAssign(*st.Target, *st.Value); err != nil {
			return fmt.Errorf("%s: %w", where, err)
		}
		return nil
	}
	return ir.Errorf(ir.ErrInvalidDeclaration, "%s: unsupported statement %s", where, st.Kind)
}

func (s *scope) checkAssign(target, value ir.Expr) error {
	if !isLValue(target) {
		return ir.Errorf(ir.ErrTypeMismatch, "cannot assign to %s", target)
	}
	tt, err := s.typed(target)
	if err != nil {
		return err
	}
	if value.Kind == ir.ExprMethodCall {
		ret, err := s.checkCall(value, &tt)
		if err != nil {
			return err
		}
		if ret == nil {
			return ir.Errorf(ir.ErrTypeMismatch, "%s returns no value", value.Callee)
		}
		return nil
	}
	vs, err := s.typeOf(value)
	if err != nil {
		return err
	}
	if !table.Fits(tt, vs) {
		return ir.Errorf(ir.ErrTypeMismatch, "cannot assign %s to %s of type %s", vs, target, tt)
	}
	return nil
}

// checkAction checks an action's parameters and body and returns its call sites.
func (s *scope) checkAction(d ir.Declaration) ([]ir.CallSite, error) {
	if err := s.b.checkParams(d.Action.Params, s.typeParams); err != nil {
		return nil, err
	}
	inner := s.withParams(d.Action.Params)
	if err := inner.checkStmt(d.Action.Body, d.Name); err != nil {
		return nil, fmt.Errorf("action %s: %w", d.Name, err)
	}
	return inner.calls, nil
}

// blockScope prepares the scope shared by controls and parsers: parameters and
// constructor parameters as variables, local actions, tables and extern instances
// in a child table. Tables are checked where they appear, so their actions must
// be declared before them.
func (b *Builder) blockScope(d ir.Declaration, allowActions bool) (*scope, []ir.Declaration, error) {
	blk := d.Block
	if err := checkTypeParamNames(blk.TypeParams); err != nil {
		return nil, nil, err
	}
	all := append(append([]ir.Parameter(nil), blk.Params...), blk.ConstParams...)
	if err := b.checkParams(all, blk.TypeParams); err != nil {
		return nil, nil, err
	}
	vars := make(map[string]ir.TypeRef, len(all))
	for _, p := range all {
		vars[p.Name] = p.Type
	}
	s := b.newScope(d.Name, b.table.Child(), vars)
	s.typeParams = blk.TypeParams

	var actions []ir.Declaration
	for _, l := range blk.LocalDecls {
		if _, taken := vars[l.Name]; taken {
			return nil, nil, ir.Errorf(ir.ErrDuplicateName, "local %q shadows a parameter", l.Name)
		}
		switch {
		case l.Kind == ir.DeclAction && allowActions && l.Action != nil:
			actions = append(actions, l)
		case l.Kind == ir.DeclTable && allowActions && l.Table != nil:
			tm, err := s.checkTable(l)
			if err != nil {
				return nil, nil, fmt.Errorf("table %s: %w", l.Name, err)
			}
			s.tables = append(s.tables, tm)
		case l.Kind == ir.DeclInstance && l.Instance != nil:
			ext, err := s.tbl.Resolve(l.Instance.Type.Name)
			if err != nil {
				return nil, nil, err
			}
			if ext.Kind != ir.DeclExtern {
				return nil, nil, ir.Errorf(ir.ErrInvalidDeclaration,
					"local instance %s must be an extern, got %s", l.Name, ext.Kind)
			}
			if err := s.checkConstructor(l.Instance.Type, ext, l.Instance.Args); err != nil {
				return nil, nil, fmt.Errorf("local instance %s: %w", l.Name, err)
			}
			vars[l.Name] = l.Instance.Type
		default:
			return nil, nil, ir.Errorf(ir.ErrInvalidDeclaration,
				"%s %q cannot be declared inside %s", l.Kind, l.Name, d.Name)
		}
		if err := s.tbl.Declare(l); err != nil {
			return nil, nil, err
		}
	}
	return s, actions, nil
}

func (b *Builder) checkControl(d ir.Declaration) (*ir.ControlModel, error) {
	s, actions, err := b.blockScope(d, true)
	if err != nil {
		return nil, err
	}
	model := &ir.ControlModel{Name: d.Name}
	for _, a := range actions {
		calls, err := s.checkAction(a)
		if err != nil {
			return nil, err
		}
		s.calls = append(s.calls, calls...)
		model.Actions = append(model.Actions, a.Name)
	}
	if d.Block.Body != nil {
		if err := s.checkStmt(*d.Block.Body, "apply"); err != nil {
			return nil, err
		}
	}
	model.Tables = s.tables
	model.Calls = s.calls
	b.logger.Debug("control checked", "name", d.Name,
		"actions", len(model.Actions), "tables", len(model.Tables), "calls", len(model.Calls))
	return model, nil
}

// checkTable checks a control-local table. Keys are typed in the control's scope
// and match with a declared match_kind. Each action resolves among the control's
// locals first and then globally.
func (s *scope) checkTable(d ir.Declaration) (ir.TableModel, error) {
	td := d.Table
	model := ir.TableModel{Name: d.Name, DefaultAction: td.DefaultAction, Actions: []ir.TableAction{}}

	kinds := s.b.table.MatchKinds()
	for i, k := range td.Keys {
		s.where = fmt.Sprintf("%s[key %d]", d.Name, i)
		t, err := s.typed(k.Expr)
		if err != nil {
			return model, fmt.Errorf("key %d: %w", i, err)
		}
		if !s.matchable(t) {
			return model, ir.Errorf(ir.ErrTypeMismatch, "key %d: %s of type %s cannot be matched", i, k.Expr, t)
		}
		if !slices.Contains(kinds, k.MatchKind) {
			return model, ir.Errorf(ir.ErrUnknownName, "key %d: unknown match_kind %q", i, k.MatchKind)
		}
		model.Keys = append(model.Keys, ir.CheckedKey{Expr: k.Expr.String(), Type: t, MatchKind: k.MatchKind})
	}

	listed := make(map[string]bool, len(td.Actions))
	for _, name := range td.Actions {
		if listed[name] {
			return model, ir.Errorf(ir.ErrDuplicateName, "action %s listed twice", name)
		}
		listed[name] = true
		found, local := s.tbl.LookupLocal(name), true
		if len(found) == 0 {
			found, local = s.b.table.Lookup(name), false
		}
		if len(found) == 0 {
			return model, ir.Errorf(ir.ErrUnknownName, "no action named %q", name)
		}
		if found[0].Kind != ir.DeclAction {
			return model, ir.Errorf(ir.ErrInvalidDeclaration, "%s %q is not an action", found[0].Kind, name)
		}
		model.Actions = append(model.Actions, ir.TableAction{Name: name, Local: local})
	}
	if td.DefaultAction != "" && !listed[td.DefaultAction] {
		return model, ir.Errorf(ir.ErrInvalidDeclaration, "default action %s is not in the action list", td.DefaultAction)
	}
	return model, nil
}

// matchable reports whether values of t can be table keys: bits, bool or an enum.
func (s *scope) matchable(t ir.TypeRef) bool {
	switch t.Kind {
	case ir.KindBits, ir.KindBool:
		return true
	case ir.KindNamed:
		d, err := s.tbl.Resolve(t.Name)
		return err == nil && d.Type != nil && d.Type.Class == ir.ClassEnum
	}
	return false
}
