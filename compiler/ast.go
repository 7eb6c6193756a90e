package compiler

import (
	"fmt"
	"strings"
)

// ---------------------------------------------------------------------------
// Type annotations
// ---------------------------------------------------------------------------

// TypeKind discriminates the annotation type lattice.
type TypeKind int

const (
	TypeAny TypeKind = iota
	TypeNil
	TypeBool
	TypeInt
	TypeReal
	TypeString
	TypeList     // element type in Elem
	TypeFunction // parameter types in Params, result in Elem
)

// Type is a source-level type annotation. Any is the top of the lattice and
// the default wherever an annotation is omitted.
type Type struct {
	Kind   TypeKind
	Elem   *Type  // list element or function result
	Params []Type // function parameters; nil means unknown ("untyped" function)
}

// AnyType is the unannotated type.
var AnyType = Type{Kind: TypeAny}

// NamedType resolves a type name appearing in an annotation.
func NamedType(name string) (Type, bool) {
	switch name {
	case "Any":
		return Type{Kind: TypeAny}, true
	case "Nil":
		return Type{Kind: TypeNil}, true
	case "Bool":
		return Type{Kind: TypeBool}, true
	case "Int":
		return Type{Kind: TypeInt}, true
	case "Real":
		return Type{Kind: TypeReal}, true
	case "String":
		return Type{Kind: TypeString}, true
	case "List":
		any := AnyType
		return Type{Kind: TypeList, Elem: &any}, true
	case "Function":
		any := AnyType
		return Type{Kind: TypeFunction, Elem: &any}, true
	}
	return Type{}, false
}

// IsNumeric reports whether the type is Int or Real.
func (t Type) IsNumeric() bool {
	return t.Kind == TypeInt || t.Kind == TypeReal
}

// CanAssign reports whether a value statically typed as other may be bound
// to a slot annotated as t. Any accepts everything; function types check
// result covariantly and parameters contravariantly.
func (t Type) CanAssign(other Type) bool {
	if t.Kind == TypeAny || other.Kind == TypeAny {
		return true
	}
	switch t.Kind {
	case TypeList:
		if other.Kind != TypeList {
			return false
		}
		return t.Elem.CanAssign(*other.Elem)
	case TypeFunction:
		if other.Kind != TypeFunction {
			return false
		}
		if t.Params != nil {
			if other.Params == nil || len(t.Params) != len(other.Params) {
				return false
			}
			for i := range t.Params {
				if !other.Params[i].CanAssign(t.Params[i]) {
					return false
				}
			}
		}
		return t.Elem.CanAssign(*other.Elem)
	default:
		return t.Kind == other.Kind
	}
}

func (t Type) String() string {
	switch t.Kind {
	case TypeAny:
		return "Any"
	case TypeNil:
		return "Nil"
	case TypeBool:
		return "Bool"
	case TypeInt:
		return "Int"
	case TypeReal:
		return "Real"
	case TypeString:
		return "String"
	case TypeList:
		if t.Elem == nil || t.Elem.Kind == TypeAny {
			return "List"
		}
		return fmt.Sprintf("List(%s)", t.Elem)
	case TypeFunction:
		if t.Params == nil {
			if t.Elem == nil || t.Elem.Kind == TypeAny {
				return "Function"
			}
			return fmt.Sprintf("Function -> %s", t.Elem)
		}
		parts := make([]string, len(t.Params))
		for i, p := range t.Params {
			parts[i] = p.String()
		}
		return fmt.Sprintf("Function(%s) -> %s", strings.Join(parts, ", "), t.Elem)
	}
	return "Unknown"
}

// ---------------------------------------------------------------------------
// AST
// ---------------------------------------------------------------------------

// Node is implemented by every AST node and exposes its source position.
type Node interface {
	NodePos() Pos
}

// Expr is an expression node.
type Expr interface {
	Node
	exprNode()
}

// Stat is a statement node.
type Stat interface {
	Node
	statNode()
}

// Program is a parsed source file: the top-level statement block.
type Program struct {
	Body []Stat
}

type base struct {
	Pos Pos
}

func (b base) NodePos() Pos { return b.Pos }

// --- Expressions ---

// NilLit is the literal nil.
type NilLit struct{ base }

// BoolLit is true or false.
type BoolLit struct {
	base
	Value bool
}

// IntLit is an integer literal.
type IntLit struct {
	base
	Value int64
}

// RealLit is a floating-point literal, including inf and NaN.
type RealLit struct {
	base
	Value float64
}

// StringLit is a string literal (contents already unescaped).
type StringLit struct {
	base
	Value string
}

// ListLit is a list display [a, b, c].
type ListLit struct {
	base
	Elems []Expr
}

// Ident is a variable reference.
type Ident struct {
	base
	Name string
}

// UnaOpKind is a unary operator.
type UnaOpKind int

const (
	UnaNot UnaOpKind = iota
	UnaNeg
)

func (k UnaOpKind) String() string {
	if k == UnaNot {
		return "not"
	}
	return "-"
}

// UnaOp applies a unary operator.
type UnaOp struct {
	base
	Op      UnaOpKind
	Operand Expr
}

// BinOpKind is a binary operator.
type BinOpKind int

const (
	BinAnd BinOpKind = iota
	BinOr
	BinEqual
	BinNEq
	BinLess
	BinLEq
	BinGreater
	BinGEq
	BinPlus
	BinMinus
	BinTimes
	BinDivides
	BinModulo
	BinPower
)

var binOpNames = [...]string{
	BinAnd: "and", BinOr: "or",
	BinEqual: "==", BinNEq: "!=",
	BinLess: "<", BinLEq: "<=", BinGreater: ">", BinGEq: ">=",
	BinPlus: "+", BinMinus: "-", BinTimes: "*", BinDivides: "/",
	BinModulo: "%", BinPower: "^",
}

func (k BinOpKind) String() string { return binOpNames[k] }

// BinOp applies a binary operator. And/Or short-circuit.
type BinOp struct {
	base
	Op          BinOpKind
	Left, Right Expr
}

// Index is a subscript a[i].
type Index struct {
	base
	Seq Expr
	Key Expr
}

// Call is a function application f(a, b).
type Call struct {
	base
	Callee Expr
	Args   []Expr
}

// Param is one function parameter with its annotation.
type Param struct {
	Name string
	Type Type
	Pos  Pos
}

// FunLit is a function literal. Named function declarations desugar to a
// let binding of a FunLit.
type FunLit struct {
	base
	Name    string // diagnostic name; "" for anonymous literals
	Params  []Param
	RetType Type
	Body    []Stat
}

func (NilLit) exprNode()    {}
func (BoolLit) exprNode()   {}
func (IntLit) exprNode()    {}
func (RealLit) exprNode()   {}
func (StringLit) exprNode() {}
func (ListLit) exprNode()   {}
func (Ident) exprNode()     {}
func (UnaOp) exprNode()     {}
func (BinOp) exprNode()     {}
func (Index) exprNode()     {}
func (Call) exprNode()      {}
func (FunLit) exprNode()    {}

// --- Statements ---

// Let introduces a new binding in the current scope.
type Let struct {
	base
	Name  string
	Type  Type
	Value Expr
}

// Assign mutates an assignable target: a name or a subscript. Whether the
// target is actually assignable is decided during bytecode compilation.
type Assign struct {
	base
	Target Expr
	Value  Expr
}

// CondBranch is one arm of an if/else-if/else chain. A nil Cond marks the
// final else branch.
type CondBranch struct {
	Cond Expr
	Body []Stat
}

// Cond is an if statement with any number of else-if arms.
type Cond struct {
	base
	Branches []CondBranch
}

// While is a pre-tested loop.
type While struct {
	base
	Cond Expr
	Body []Stat
}

// Return exits the enclosing function with a value.
type Return struct {
	base
	Value Expr // nil returns nil
}

// Log prints its arguments through the log native.
type Log struct {
	base
	Args []Expr
}

// ExprStat evaluates an expression for its effect and discards the result.
type ExprStat struct {
	base
	Value Expr
}

func (Let) statNode()      {}
func (Assign) statNode()   {}
func (Cond) statNode()     {}
func (While) statNode()    {}
func (Return) statNode()   {}
func (Log) statNode()      {}
func (ExprStat) statNode() {}
