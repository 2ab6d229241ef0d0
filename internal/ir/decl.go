package ir

import "fmt"

// DeclKind tags the Declaration variants.
type DeclKind int

const (
	DeclExtern DeclKind = iota
	DeclMethod
	DeclType
	DeclControl
	DeclParser
	DeclPackage
	DeclAction
	DeclInstance
	DeclMatchKind
	DeclTable
)

var declKindNames = []string{
	"extern", "method", "type", "control", "parser", "package", "action", "instance", "match_kind", "table",
}

func (k DeclKind) String() string {
	if int(k) >= 0 && int(k) < len(declKindNames) {
		return declKindNames[k]
	}
	return fmt.Sprintf("DeclKind(%d)", int(k))
}

// Declaration is one named entry of the global declaration table.
//
// Exactly one payload field is set, matching Kind:
//
//	DeclMethod     Signature
//	DeclType       Type
//	DeclExtern     Extern
//	DeclControl    Proto (control type) or Block (concrete control)
//	DeclParser     Proto (parser type) or Block (concrete parser)
//	DeclPackage    Proto
//	DeclAction     Action
//	DeclInstance   Instance
//	DeclMatchKind  Tags
//	DeclTable      Table (control locals only)
type Declaration struct {
	Name      string        `json:"name"`
	Kind      DeclKind      `json:"kind"`
	Signature *Signature    `json:"signature,omitempty"`
	Type      *TypeDecl     `json:"type,omitempty"`
	Extern    *ExternDecl   `json:"extern,omitempty"`
	Proto     *Prototype    `json:"proto,omitempty"`
	Block     *Block        `json:"block,omitempty"`
	Action    *ActionDecl   `json:"action,omitempty"`
	Instance  *InstanceDecl `json:"instance,omitempty"`
	Tags      []string      `json:"tags,omitempty"`
	Table     *TableDecl    `json:"table,omitempty"`
}

// IsPrototype reports whether d is an architecture declaration (control type, parser type
// or package) rather than a concrete block.
func (d *Declaration) IsPrototype() bool { return d.Proto != nil }

// IsTypeLike reports whether d can be the target of a Named type reference.
func (d *Declaration) IsTypeLike() bool {
	switch d.Kind {
	case DeclType, DeclExtern:
		return true
	case DeclControl, DeclParser, DeclPackage:
		return d.Proto != nil
	}
	return false
}

// Signature is a method signature.
type Signature struct {
	TypeParams TypeParams  `json:"type_params"`
	Params     []Parameter `json:"params"`
}

// TypeDecl is a struct, header or enum.
type TypeDecl struct {
	Class      TypeClass `json:"class"`
	Fields     []Field   `json:"fields,omitempty"`
	Members    []string  `json:"members,omitempty"` // ClassEnum
	TypeParams []string  `json:"type_params,omitempty"`
}

// Field returns the field with the given name.
func (t *TypeDecl) Field(name string) (Field, bool) {
	for _, f := range t.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// HasMember reports whether an enum declares the member.
func (t *TypeDecl) HasMember(name string) bool {
	for _, m := range t.Members {
		if m == name {
			return true
		}
	}
	return false
}

// ExternDecl is a capability interface: type parameters and method signatures, no layout.
type ExternDecl struct {
	TypeParams []string      `json:"type_params,omitempty"`
	Methods    []Declaration `json:"methods"`
}

// MethodsNamed returns the overload set for name, in declaration order.
func (e *ExternDecl) MethodsNamed(name string) []Declaration {
	var out []Declaration
	for _, m := range e.Methods {
		if m.Name == name {
			out = append(out, m)
		}
	}
	return out
}

// Prototype is the required shape of a control, parser or package.
type Prototype struct {
	TypeParams []string    `json:"type_params,omitempty"`
	Params     []Parameter `json:"params"`
}

// Block is a concrete control or parser.
type Block struct {
	TypeParams  []string      `json:"type_params,omitempty"`
	Params      []Parameter   `json:"params"`
	ConstParams []Parameter   `json:"const_params,omitempty"`
	LocalDecls  []Declaration `json:"local_decls,omitempty"`
	Body        *Statement    `json:"body,omitempty"`   // DeclControl
	States      []ParserState `json:"states,omitempty"` // DeclParser
}

// ActionDecl is an action: parameters and a body.
type ActionDecl struct {
	Params []Parameter `json:"params"`
	Body   Statement   `json:"body"`
}

// InstanceDecl instantiates a package or extern: Instance(Type<type_args>)(args...).
type InstanceDecl struct {
	Type TypeRef `json:"type"`
	Args []Expr  `json:"args,omitempty"`
}

// TableDecl is a match-action table: keys matched against entries, the actions an
// entry may select and the action run on a miss.
type TableDecl struct {
	Keys          []TableKey `json:"keys,omitempty"`
	Actions       []string   `json:"actions"`
	DefaultAction string     `json:"default_action,omitempty"`
}

// TableKey is one key element: an expression and how entries match it.
type TableKey struct {
	Expr      Expr   `json:"expr"`
	MatchKind string `json:"match_kind"`
}

// TableApply is the only method of a table.
const TableApply = "apply"

// ParserState is one node of a parser graph.
type ParserState struct {
	Name       string      `json:"name"`
	Components []Statement `json:"components,omitempty"`
	Select     Transition  `json:"select"`
}

// Transition selects the successor of a parser state. With no Keys it is a direct
// transition to Next; otherwise Cases are tried in order against the key values.
type Transition struct {
	Next  string       `json:"next,omitempty"`
	Keys  []Expr       `json:"keys,omitempty"`
	Cases []SelectCase `json:"cases,omitempty"`
}

// SelectCase is one arm of a select transition. A keyset entry of kind ExprDefault
// matches anything.
type SelectCase struct {
	Keyset []Expr `json:"keyset"`
	Next   string `json:"next"`
}

// Targets returns every state name the transition can lead to, in order, without duplicates.
func (t Transition) Targets() []string {
	if len(t.Keys) == 0 {
		if t.Next == "" {
			return nil
		}
		return []string{t.Next}
	}
	seen := make(map[string]bool)
	var out []string
	for _, c := range t.Cases {
		if !seen[c.Next] {
			seen[c.Next] = true
			out = append(out, c.Next)
		}
	}
	return out
}

// HasDefault reports whether the transition can never fail with NoMatch.
func (t Transition) HasDefault() bool {
	if len(t.Keys) == 0 {
		return true
	}
	for _, c := range t.Cases {
		all := len(c.Keyset) > 0
		for _, k := range c.Keyset {
			if k.Kind != ExprDefault {
				all = false
				break
			}
		}
		if all {
			return true
		}
	}
	return false
}

// Terminal parser states. They are implicit sinks and never declared.
const (
	StateStart  = "start"
	StateAccept = "accept"
	StateReject = "reject"
)

// IsTerminalState reports whether name is accept or reject.
func IsTerminalState(name string) bool { return name == StateAccept || name == StateReject }

// NewMethod declares a method signature.
func NewMethod(name string, tp TypeParams, params ...Parameter) Declaration {
	return Declaration{Name: name, Kind: DeclMethod, Signature: &Signature{TypeParams: tp, Params: params}}
}

// Generic builds a TypeParams with no return slot.
func Generic(params ...string) TypeParams { return TypeParams{Params: params} }

// Returning builds a TypeParams with a return slot.
func Returning(ret TypeRef, params ...string) TypeParams {
	return TypeParams{Return: &ret, Params: params}
}

// NewStruct declares a struct type.
func NewStruct(name string, fields ...Field) Declaration {
	return Declaration{Name: name, Kind: DeclType, Type: &TypeDecl{Class: ClassStruct, Fields: fields}}
}

// NewHeader declares a header type.
func NewHeader(name string, fields ...Field) Declaration {
	return Declaration{Name: name, Kind: DeclType, Type: &TypeDecl{Class: ClassHeader, Fields: fields}}
}

// NewEnum declares an enum type.
func NewEnum(name string, members ...string) Declaration {
	return Declaration{Name: name, Kind: DeclType, Type: &TypeDecl{Class: ClassEnum, Members: members}}
}

// F builds a Field.
func F(name string, t TypeRef) Field { return Field{Name: name, Type: t} }

// NewExtern declares an extern with its methods.
func NewExtern(name string, typeParams []string, methods ...Declaration) Declaration {
	return Declaration{Name: name, Kind: DeclExtern, Extern: &ExternDecl{TypeParams: typeParams, Methods: methods}}
}

// NewControlType declares an architecture control type.
func NewControlType(name string, typeParams []string, params ...Parameter) Declaration {
	return Declaration{Name: name, Kind: DeclControl, Proto: &Prototype{TypeParams: typeParams, Params: params}}
}

// NewParserType declares an architecture parser type.
func NewParserType(name string, typeParams []string, params ...Parameter) Declaration {
	return Declaration{Name: name, Kind: DeclParser, Proto: &Prototype{TypeParams: typeParams, Params: params}}
}

// NewPackage declares an architecture package.
func NewPackage(name string, typeParams []string, params ...Parameter) Declaration {
	return Declaration{Name: name, Kind: DeclPackage, Proto: &Prototype{TypeParams: typeParams, Params: params}}
}

// NewControl declares a concrete control.
func NewControl(name string, params []Parameter, locals []Declaration, body ...Statement) Declaration {
	blk := BlockStmt(body...)
	return Declaration{Name: name, Kind: DeclControl, Block: &Block{Params: params, LocalDecls: locals, Body: &blk}}
}

// NewParser declares a concrete parser.
func NewParser(name string, params []Parameter, locals []Declaration, states ...ParserState) Declaration {
	return Declaration{Name: name, Kind: DeclParser, Block: &Block{Params: params, LocalDecls: locals, States: states}}
}

// NewAction declares an action.
func NewAction(name string, params []Parameter, body ...Statement) Declaration {
	return Declaration{Name: name, Kind: DeclAction, Action: &ActionDecl{Params: params, Body: BlockStmt(body...)}}
}

// NewInstance declares an instance of a package or extern.
func NewInstance(name string, t TypeRef, args ...Expr) Declaration {
	return Declaration{Name: name, Kind: DeclInstance, Instance: &InstanceDecl{Type: t, Args: args}}
}

// NewMatchKind declares (or extends) a match_kind tag set.
func NewMatchKind(tags ...string) Declaration {
	return Declaration{Name: "match_kind", Kind: DeclMatchKind, Tags: tags}
}

// NewTable declares a control-local table.
func NewTable(name string, keys []TableKey, actions []string, defaultAction string) Declaration {
	return Declaration{Name: name, Kind: DeclTable, Table: &TableDecl{Keys: keys, Actions: actions, DefaultAction: defaultAction}}
}

// Key builds a TableKey.
func Key(e Expr, matchKind string) TableKey { return TableKey{Expr: e, MatchKind: matchKind} }

// State builds a parser state with a direct transition.
func State(name, next string, components ...Statement) ParserState {
	return ParserState{Name: name, Components: components, Select: Transition{Next: next}}
}
