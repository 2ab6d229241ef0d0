package ir

import "fmt"

// Role is one of the six fixed pipeline positions of the architecture.
type Role int

const (
	RoleParser Role = iota
	RoleVerifyChecksum
	RoleIngress
	RoleEgress
	RoleComputeChecksum
	RoleDeparser
)

// Roles lists the pipeline positions in execution order.
var Roles = []Role{
	RoleParser,
	RoleVerifyChecksum,
	RoleIngress,
	RoleEgress,
	RoleComputeChecksum,
	RoleDeparser,
}

var roleNames = []string{"Parser", "VerifyChecksum", "Ingress", "Egress", "ComputeChecksum", "Deparser"}

// String returns the architecture type name of the role.
func (r Role) String() string {
	if int(r) >= 0 && int(r) < len(roleNames) {
		return roleNames[r]
	}
	return fmt.Sprintf("Role(%d)", int(r))
}

// RoleByName maps an architecture type name to its role.
func RoleByName(name string) (Role, bool) {
	for i, n := range roleNames {
		if n == name {
			return Role(i), true
		}
	}
	return 0, false
}

// Stage binds one package parameter to the concrete declaration filling it.
type Stage struct {
	// Param is the package parameter name ("p", "vr", "ig", ...).
	Param string `json:"param"`

	// RoleType is the prototype the parameter requires, after substitution.
	RoleType TypeRef `json:"role_type"`

	// Role is set when RoleType names one of the six architecture roles.
	Role    Role `json:"role"`
	HasRole bool `json:"has_role"`

	// Decl is the concrete control or parser bound to the parameter.
	Decl *Declaration `json:"decl"`

	// Parser or Control holds the checked model of Decl.
	Parser  *ParserGraph  `json:"parser,omitempty"`
	Control *ControlModel `json:"control,omitempty"`
}

// ResolvedPackage is the fully-resolved root object handed to the evaluator.
type ResolvedPackage struct {
	// Name is the instance name ("main").
	Name string `json:"name"`

	// Package is the architecture package instantiated ("V1Switch").
	Package string `json:"package"`

	// TypeArgs are the concrete type arguments bound to the package's type parameters.
	TypeArgs []TypeRef `json:"type_args"`

	// Stages follow the package's parameter order.
	Stages []Stage `json:"stages"`
}

// Stage returns the stage filling role, or nil.
func (p *ResolvedPackage) Stage(role Role) *Stage {
	for i := range p.Stages {
		if p.Stages[i].HasRole && p.Stages[i].Role == role {
			return &p.Stages[i]
		}
	}
	return nil
}

func (p *ResolvedPackage) decl(role Role) *Declaration {
	if s := p.Stage(role); s != nil {
		return s.Decl
	}
	return nil
}

// Parser returns the declaration bound to the Parser role.
func (p *ResolvedPackage) Parser() *Declaration { return p.decl(RoleParser) }

// VerifyChecksum returns the declaration bound to the VerifyChecksum role.
func (p *ResolvedPackage) VerifyChecksum() *Declaration { return p.decl(RoleVerifyChecksum) }

// Ingress returns the declaration bound to the Ingress role.
func (p *ResolvedPackage) Ingress() *Declaration { return p.decl(RoleIngress) }

// Egress returns the declaration bound to the Egress role.
func (p *ResolvedPackage) Egress() *Declaration { return p.decl(RoleEgress) }

// ComputeChecksum returns the declaration bound to the ComputeChecksum role.
func (p *ResolvedPackage) ComputeChecksum() *Declaration { return p.decl(RoleComputeChecksum) }

// Deparser returns the declaration bound to the Deparser role.
func (p *ResolvedPackage) Deparser() *Declaration { return p.decl(RoleDeparser) }

// Pipeline returns the role-bound declarations in execution order, skipping absent roles.
func (p *ResolvedPackage) Pipeline() []*Declaration {
	var out []*Declaration
	for _, r := range Roles {
		if d := p.decl(r); d != nil {
			out = append(out, d)
		}
	}
	return out
}

// CallSite records how one method-call statement was resolved.
type CallSite struct {
	// Where locates the call: "start[1]", "apply[0]", "do_action_0[0]".
	Where string `json:"where"`

	// Callee is the call expression's callee in source form ("pkt.extract").
	Callee string `json:"callee"`

	// Target is the resolved declaration: "packet_in.extract", "do_action_0", "verify".
	Target string `json:"target"`

	// Overload is the index of the chosen signature within its overload set.
	Overload int `json:"overload"`

	// TypeArgs are the bound method type arguments in parameter order.
	TypeArgs []TypeRef `json:"type_args,omitempty"`

	// Return is the call's result type after substitution, if any.
	Return *TypeRef `json:"return,omitempty"`
}

// Extraction is one header extraction within a parser state. Extractions of a state
// are sequential; the cursor advances by Width bits for each.
type Extraction struct {
	Header   TypeRef `json:"header"`
	Width    int     `json:"width"`
	Variable bool    `json:"variable,omitempty"`
}

// CheckedState is a parser state after validation.
type CheckedState struct {
	ParserState
	Calls       []CallSite   `json:"calls,omitempty"`
	Extractions []Extraction `json:"extractions,omitempty"`
	HasDefault  bool         `json:"has_default"`
}

// ExtractedWidth is the total number of bits the state's extractions consume.
func (s *CheckedState) ExtractedWidth() int {
	total := 0
	for _, e := range s.Extractions {
		total += e.Width
	}
	return total
}

// ParserGraph is the validated state machine of one concrete parser.
type ParserGraph struct {
	Name   string         `json:"name"`
	States []CheckedState `json:"states"`
}

// State returns the named state, or nil for terminals and unknown names.
func (g *ParserGraph) State(name string) *CheckedState {
	for i := range g.States {
		if g.States[i].Name == name {
			return &g.States[i]
		}
	}
	return nil
}

// Reachable returns the declared states reachable from start, in breadth-first order.
func (g *ParserGraph) Reachable() []string {
	var order []string
	seen := map[string]bool{StateStart: true}
	queue := []string{StateStart}
	for len(queue) > 0 {
		name := queue[0]
		queue = queue[1:]
		st := g.State(name)
		if st == nil {
			continue
		}
		order = append(order, name)
		for _, next := range st.Select.Targets() {
			if !seen[next] && !IsTerminalState(next) {
				seen[next] = true
				queue = append(queue, next)
			}
		}
	}
	return order
}

// Unreachable returns the declared states not reachable from start, in declaration order.
func (g *ParserGraph) Unreachable() []string {
	reach := make(map[string]bool)
	for _, n := range g.Reachable() {
		reach[n] = true
	}
	var out []string
	for _, s := range g.States {
		if !reach[s.Name] {
			out = append(out, s.Name)
		}
	}
	return out
}

// ControlModel is the validated body of one concrete control.
type ControlModel struct {
	Name    string       `json:"name"`
	Actions []string     `json:"actions,omitempty"`
	Tables  []TableModel `json:"tables,omitempty"`
	Calls   []CallSite   `json:"calls,omitempty"`
}

// Table returns the checked table with the given name, or nil.
func (m *ControlModel) Table(name string) *TableModel {
	for i := range m.Tables {
		if m.Tables[i].Name == name {
			return &m.Tables[i]
		}
	}
	return nil
}

// TableModel is a checked table declaration.
type TableModel struct {
	Name          string        `json:"name"`
	Keys          []CheckedKey  `json:"keys,omitempty"`
	Actions       []TableAction `json:"actions"`
	DefaultAction string        `json:"default_action,omitempty"`
}

// CheckedKey is a table key with its static type.
type CheckedKey struct {
	Expr      string  `json:"expr"`
	Type      TypeRef `json:"type"`
	MatchKind string  `json:"match_kind"`
}

// TableAction is an entry of a table's action list. Local is set when the name
// resolved to an action of the enclosing control rather than a global one.
type TableAction struct {
	Name  string `json:"name"`
	Local bool   `json:"local"`
}
