package ir

import (
	"fmt"
	"strings"
)

// ExprKind tags the Expr variants.
type ExprKind int

const (
	ExprPath ExprKind = iota
	ExprMember
	ExprSlice
	ExprMethodCall
	ExprConstCall
	ExprInt
	ExprBool
	ExprDefault
)

var exprKindNames = []string{"path", "member", "slice", "call", "const_call", "int", "bool", "default"}

func (k ExprKind) String() string {
	if int(k) >= 0 && int(k) < len(exprKindNames) {
		return exprKindNames[k]
	}
	return fmt.Sprintf("ExprKind(%d)", int(k))
}

// Expr is an expression node.
//
//	ExprPath        Name
//	ExprMember      Base.Field
//	ExprSlice       Base[High:Low]
//	ExprMethodCall  Callee<TypeArgs>(Args...)
//	ExprConstCall   Name()  zero-argument construction of a named instance
//	ExprInt         Value, with Width > 0 for sized literals
//	ExprBool        Bool
//	ExprDefault     the select keyset wildcard
type Expr struct {
	Kind     ExprKind  `json:"kind"`
	Name     string    `json:"name,omitempty"`
	Base     *Expr     `json:"base,omitempty"`
	Field    string    `json:"field,omitempty"`
	High     int       `json:"high,omitempty"`
	Low      int       `json:"low,omitempty"`
	Callee   *Expr     `json:"callee,omitempty"`
	TypeArgs []TypeRef `json:"type_args,omitempty"`
	Args     []Expr    `json:"args,omitempty"`
	Value    int64     `json:"value,omitempty"`
	Width    int       `json:"width,omitempty"`
	Bool     bool      `json:"bool,omitempty"`
}

// Path references a variable, parameter or declaration by name.
func Path(name string) Expr { return Expr{Kind: ExprPath, Name: name} }

// Member selects a field (or method) of base.
func Member(base Expr, field string) Expr {
	return Expr{Kind: ExprMember, Base: &base, Field: field}
}

// Slice selects bits high..low of base.
func Slice(base Expr, high, low int) Expr {
	return Expr{Kind: ExprSlice, Base: &base, High: high, Low: low}
}

// Call invokes callee with explicit type arguments and value arguments.
func Call(callee Expr, typeArgs []TypeRef, args ...Expr) Expr {
	return Expr{Kind: ExprMethodCall, Callee: &callee, TypeArgs: typeArgs, Args: args}
}

// ConstCall constructs the named instance with no arguments.
func ConstCall(name string) Expr { return Expr{Kind: ExprConstCall, Name: name} }

// Int is an unsized integer literal; it is compatible with any bit<W>.
func Int(v int64) Expr { return Expr{Kind: ExprInt, Value: v} }

// SizedInt is a literal of type bit<width>.
func SizedInt(width int, v int64) Expr { return Expr{Kind: ExprInt, Value: v, Width: width} }

// BoolLit is a boolean literal.
func BoolLit(b bool) Expr { return Expr{Kind: ExprBool, Bool: b} }

// Default is the select keyset wildcard.
func Default() Expr { return Expr{Kind: ExprDefault} }

// String renders the expression in source form.
func (e Expr) String() string {
	switch e.Kind {
	case ExprPath:
		return e.Name
	case ExprMember:
		return e.Base.String() + "." + e.Field
	case ExprSlice:
		return fmt.Sprintf("%s[%d:%d]", e.Base.String(), e.High, e.Low)
	case ExprMethodCall:
		var sb strings.Builder
		sb.WriteString(e.Callee.String())
		if len(e.TypeArgs) > 0 {
			targs := make([]string, len(e.TypeArgs))
			for i, t := range e.TypeArgs {
				targs[i] = t.String()
			}
			sb.WriteString("<" + strings.Join(targs, ", ") + ">")
		}
		args := make([]string, len(e.Args))
		for i, a := range e.Args {
			args[i] = a.String()
		}
		sb.WriteString("(" + strings.Join(args, ", ") + ")")
		return sb.String()
	case ExprConstCall:
		return e.Name + "()"
	case ExprInt:
		if e.Width > 0 {
			return fmt.Sprintf("%dw%d", e.Width, e.Value)
		}
		return fmt.Sprintf("%d", e.Value)
	case ExprBool:
		if e.Bool {
			return "true"
		}
		return "false"
	case ExprDefault:
		return "default"
	}
	return e.Kind.String()
}

// StmtKind tags the Statement variants.
type StmtKind int

const (
	StmtBlock StmtKind = iota
	StmtMethodCall
	StmtNoop
	StmtAssign
)

var stmtKindNames = []string{"block", "call", "noop", "assign"}

func (k StmtKind) String() string {
	if int(k) >= 0 && int(k) < len(stmtKindNames) {
		return stmtKindNames[k]
	}
	return fmt.Sprintf("StmtKind(%d)", int(k))
}

// Statement is a statement node.
//
//	StmtBlock       Stmts
//	StmtMethodCall  Call (an ExprMethodCall)
//	StmtNoop
//	StmtAssign      Target = Value
type Statement struct {
	Kind   StmtKind    `json:"kind"`
	Stmts  []Statement `json:"stmts,omitempty"`
	Call   *Expr       `json:"call,omitempty"`
	Target *Expr       `json:"target,omitempty"`
	Value  *Expr       `json:"value,omitempty"`
}

// BlockStmt groups statements.
func BlockStmt(stmts ...Statement) Statement { return Statement{Kind: StmtBlock, Stmts: stmts} }

// CallStmt wraps a method call expression as a statement.
func CallStmt(call Expr) Statement { return Statement{Kind: StmtMethodCall, Call: &call} }

// Noop is the empty statement.
func Noop() Statement { return Statement{Kind: StmtNoop} }

// Assign stores value into target.
func Assign(target, value Expr) Statement {
	return Statement{Kind: StmtAssign, Target: &target, Value: &value}
}
