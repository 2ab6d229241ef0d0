package builder

import (
	"fmt"

	"github.com/roach88/p4ir/internal/ir"
	"github.com/roach88/p4ir/internal/table"
)

// checkParser validates a concrete parser as a state machine.
//
// State names are unique and never accept or reject, a start state exists, and
// every transition targets a declared state or a terminal. Components are checked
// like control statements; extract calls are recorded in order with their widths.
func (b *Builder) checkParser(d ir.Declaration) (*ir.ParserGraph, error) {
	s, _, err := b.blockScope(d, false)
	if err != nil {
		return nil, err
	}

	declared := make(map[string]bool, len(d.Block.States))
	for _, st := range d.Block.States {
		if ir.IsTerminalState(st.Name) {
			return nil, ir.Errorf(ir.ErrInvalidDeclaration, "state %q is implicit and cannot be declared", st.Name)
		}
		if declared[st.Name] {
			return nil, ir.Errorf(ir.ErrDuplicateName, "state %q declared twice", st.Name)
		}
		declared[st.Name] = true
	}
	if !declared[ir.StateStart] {
		return nil, ir.Errorf(ir.ErrUnknownState, "parser has no %q state", ir.StateStart)
	}

	graph := &ir.ParserGraph{Name: d.Name}
	for _, st := range d.Block.States {
		var extractions []ir.Extraction
		s.calls = nil
		s.extractions = &extractions
		for i, c := range st.Components {
			if err := s.checkStmt(c, fmt.Sprintf("%s[%d]", st.Name, i)); err != nil {
				return nil, fmt.Errorf("state %s: %w", st.Name, err)
			}
		}
		s.extractions = nil
		if err := s.checkTransition(st, declared); err != nil {
			return nil, fmt.Errorf("state %s: %w", st.Name, err)
		}
		graph.States = append(graph.States, ir.CheckedState{
			ParserState: st,
			Calls:       s.calls,
			Extractions: extractions,
			HasDefault:  st.Select.HasDefault(),
		})
	}
	b.logger.Debug("parser checked", "name", d.Name, "states", len(graph.States))
	return graph, nil
}

func (s *scope) checkTransition(st ir.ParserState, declared map[string]bool) error {
	known := func(name string) error {
		if declared[name] || ir.IsTerminalState(name) {
			return nil
		}
		if name == "" {
			return ir.Errorf(ir.ErrUnknownState, "state %q has no transition", st.Name)
		}
		return ir.Errorf(ir.ErrUnknownState, "transition to undeclared state %q", name)
	}

	sel := st.Select
	if len(sel.Keys) == 0 {
		if len(sel.Cases) > 0 {
			return ir.Errorf(ir.ErrInvalidDeclaration, "select cases without keys")
		}
		return known(sel.Next)
	}
	if len(sel.Cases) == 0 {
		return ir.Errorf(ir.ErrInvalidDeclaration, "select without cases")
	}

	s.where = st.Name + "[select]"
	keys := make([]ir.TypeRef, len(sel.Keys))
	for i, k := range sel.Keys {
		t, err := s.typed(k)
		if err != nil {
			return fmt.Errorf("select key %d: %w", i, err)
		}
		keys[i] = t
	}
	for ci, c := range sel.Cases {
		if len(c.Keyset) == 1 && c.Keyset[0].Kind == ir.ExprDefault {
			if err := known(c.Next); err != nil {
				return err
			}
			continue
		}
		if len(c.Keyset) != len(keys) {
			return ir.Errorf(ir.ErrArityMismatch, "case %d has %d keyset values for %d keys", ci, len(c.Keyset), len(keys))
		}
		for i, v := range c.Keyset {
			if v.Kind == ir.ExprDefault {
				continue
			}
			sh, err := s.typeOf(v)
			if err != nil {
				return fmt.Errorf("case %d: %w", ci, err)
			}
			if !table.Fits(keys[i], sh) {
				return ir.Errorf(ir.ErrTypeMismatch, "case %d: %s does not match key %s of type %s", ci, v, sel.Keys[i], keys[i])
			}
		}
		if err := known(c.Next); err != nil {
			return err
		}
	}
	return nil
}
