package table

import (
	"errors"
	"fmt"

	"github.com/roach88/p4ir/internal/ir"
)

// ErrSealed is returned by Declare once the table has been sealed.
var ErrSealed = errors.New("declaration table is sealed")

// Resolver resolves a name to its unique non-method declaration.
// Both *Table and *View implement it.
type Resolver interface {
	Resolve(name string) (*ir.Declaration, error)
}

// Table is the append-only, insertion-ordered declaration table.
//
// A name maps to several declarations only for method overload sets and for
// additive match_kind tag sets. Declarations are stored once and referenced by
// stable pointer; Resolve returns the same pointer on every call.
//
// A Table created with Child is a local scope: lookups consult it first and
// fall back to the parent.
type Table struct {
	parent  *Table
	entries []*ir.Declaration
	byName  map[string][]int
	sealed  bool
}

// New creates an empty global table.
func New() *Table {
	return &Table{byName: make(map[string][]int)}
}

// Child creates a local scope whose lookups fall back to t.
func (t *Table) Child() *Table {
	return &Table{parent: t, byName: make(map[string][]int)}
}

// Declare appends d to its name's set.
//
// Errors:
//   - DuplicateName when the name is already bound to a non-overloadable declaration
//     in this scope, or a match_kind tag repeats
//   - AmbiguousOverload when a method's parameter shape cannot be told apart from an
//     existing overload
func (t *Table) Declare(d ir.Declaration) error {
	if t.sealed {
		return ErrSealed
	}
	if d.Name == "" {
		return ir.Errorf(ir.ErrInvalidDeclaration, "declaration of kind %s has no name", d.Kind)
	}
	if idx, ok := t.byName[d.Name]; ok {
		if err := t.checkAdditive(d, idx); err != nil {
			return err
		}
	}
	stored := d
	t.entries = append(t.entries, &stored)
	t.byName[d.Name] = append(t.byName[d.Name], len(t.entries)-1)
	return nil
}

func (t *Table) checkAdditive(d ir.Declaration, existing []int) error {
	for _, i := range existing {
		prev := t.entries[i]
		switch {
		case d.Kind == ir.DeclMethod && prev.Kind == ir.DeclMethod:
			if SignatureKey(prev) == SignatureKey(&d) {
				return ir.Errorf(ir.ErrAmbiguousOverload,
					"method %q redeclared with indistinguishable parameters %s", d.Name, SignatureKey(&d))
			}
		case d.Kind == ir.DeclMatchKind && prev.Kind == ir.DeclMatchKind:
			for _, tag := range d.Tags {
				for _, old := range prev.Tags {
					if tag == old {
						return ir.Errorf(ir.ErrDuplicateName, "match_kind tag %q declared twice", tag)
					}
				}
			}
		default:
			return ir.Errorf(ir.ErrDuplicateName, "%q already declared as %s", d.Name, prev.Kind)
		}
	}
	return nil
}

// Lookup returns every declaration bound to name in the nearest scope that binds it.
func (t *Table) Lookup(name string) []*ir.Declaration {
	for s := t; s != nil; s = s.parent {
		if idx, ok := s.byName[name]; ok {
			out := make([]*ir.Declaration, len(idx))
			for i, j := range idx {
				out[i] = s.entries[j]
			}
			return out
		}
	}
	return nil
}

// LookupLocal is Lookup restricted to this scope.
func (t *Table) LookupLocal(name string) []*ir.Declaration {
	idx := t.byName[name]
	out := make([]*ir.Declaration, len(idx))
	for i, j := range idx {
		out[i] = t.entries[j]
	}
	return out
}

// Resolve returns the unique non-method declaration bound to name.
// Match_kind sets resolve to one merged declaration.
func (t *Table) Resolve(name string) (*ir.Declaration, error) {
	set := t.Lookup(name)
	if len(set) == 0 {
		return nil, ir.Errorf(ir.ErrUnknownName, "no declaration named %q", name)
	}
	if set[0].Kind == ir.DeclMatchKind {
		return mergeMatchKinds(name, set), nil
	}
	var found []*ir.Declaration
	for _, d := range set {
		if d.Kind != ir.DeclMethod {
			found = append(found, d)
		}
	}
	switch len(found) {
	case 0:
		return nil, ir.Errorf(ir.ErrUnknownName, "%q names only methods", name)
	case 1:
		return found[0], nil
	}
	return nil, ir.Errorf(ir.ErrUnknownName, "%q is ambiguous (%d declarations)", name, len(found))
}

// Overloads returns the method overload set bound to name, in declaration order.
func (t *Table) Overloads(name string) []*ir.Declaration {
	var out []*ir.Declaration
	for _, d := range t.Lookup(name) {
		if d.Kind == ir.DeclMethod {
			out = append(out, d)
		}
	}
	return out
}

// MatchKinds returns the merged match_kind tag set.
func (t *Table) MatchKinds() []string {
	d, err := t.Resolve("match_kind")
	if err != nil {
		return nil
	}
	return d.Tags
}

func mergeMatchKinds(name string, set []*ir.Declaration) *ir.Declaration {
	merged := &ir.Declaration{Name: name, Kind: ir.DeclMatchKind}
	for _, d := range set {
		merged.Tags = append(merged.Tags, d.Tags...)
	}
	return merged
}

// All returns this scope's declarations in insertion order.
func (t *Table) All() []*ir.Declaration {
	out := make([]*ir.Declaration, len(t.entries))
	copy(out, t.entries)
	return out
}

// Len returns the number of declarations in this scope.
func (t *Table) Len() int { return len(t.entries) }

// Seal freezes the table and returns its read-only view. Further Declare calls fail
// with ErrSealed. Sealing twice returns an equivalent view.
func (t *Table) Seal() *View {
	t.sealed = true
	return &View{t: t}
}

// Sealed reports whether Seal has been called.
func (t *Table) Sealed() bool { return t.sealed }

// View is the immutable, freely shareable view of a sealed table.
type View struct {
	t *Table
}

// Resolve is Table.Resolve.
func (v *View) Resolve(name string) (*ir.Declaration, error) { return v.t.Resolve(name) }

// Lookup is Table.Lookup.
func (v *View) Lookup(name string) []*ir.Declaration { return v.t.Lookup(name) }

// Overloads is Table.Overloads.
func (v *View) Overloads(name string) []*ir.Declaration { return v.t.Overloads(name) }

// MatchKinds is Table.MatchKinds.
func (v *View) MatchKinds() []string { return v.t.MatchKinds() }

// All is Table.All.
func (v *View) All() []*ir.Declaration { return v.t.All() }

// Len is Table.Len.
func (v *View) Len() int { return v.t.Len() }

// String summarises the view for logs.
func (v *View) String() string {
	return fmt.Sprintf("table(%d declarations, sealed)", v.t.Len())
}
