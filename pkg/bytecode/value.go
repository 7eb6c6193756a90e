package bytecode

import (
	"fmt"
	"strconv"
	"strings"
)

// ValueKind identifies the runtime type of a Value.
type ValueKind uint8

const (
	KindNil ValueKind = iota
	KindBool
	KindInt
	KindReal
	KindString
	KindList
	KindClosure
	KindNative
	KindProto
)

var kindNames = [...]string{
	KindNil:     "Nil",
	KindBool:    "Bool",
	KindInt:     "Int",
	KindReal:    "Real",
	KindString:  "String",
	KindList:    "List",
	KindClosure: "Function",
	KindNative:  "Function",
	KindProto:   "Function",
}

func (k ValueKind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("ValueKind(%d)", uint8(k))
}

// Value is the tagged runtime value. Nil, Bool, Int and Real are carried
// inline; String, List, Closure and NativeFunction are heap-owned and the
// Value holds a handle. The zero Value is nil.
type Value struct {
	kind ValueKind
	i    int64
	r    float64
	s    string
	obj  any
}

// Nil is the nil value.
var Nil = Value{}

// BoolValue wraps a Go bool.
func BoolValue(b bool) Value {
	v := Value{kind: KindBool}
	if b {
		v.i = 1
	}
	return v
}

// IntValue wraps a Go int64.
func IntValue(n int64) Value {
	return Value{kind: KindInt, i: n}
}

// RealValue wraps a Go float64.
func RealValue(r float64) Value {
	return Value{kind: KindReal, r: r}
}

// StringValue wraps a Go string.
func StringValue(s string) Value {
	return Value{kind: KindString, s: s}
}

// ListValue wraps a heap list.
func ListValue(l *List) Value {
	return Value{kind: KindList, obj: l}
}

// ClosureValue wraps a closure.
func ClosureValue(c *Closure) Value {
	return Value{kind: KindClosure, obj: c}
}

// NativeValue wraps a host function.
func NativeValue(n *NativeFunction) Value {
	return Value{kind: KindNative, obj: n}
}

// ProtoValue wraps a bare function prototype reference.
func ProtoValue(p *Prototype) Value {
	return Value{kind: KindProto, obj: p}
}

// Kind returns the value's runtime type tag.
func (v Value) Kind() ValueKind { return v.kind }

func (v Value) IsNil() bool  { return v.kind == KindNil }
func (v Value) IsBool() bool { return v.kind == KindBool }

// IsNumeric reports whether the value is Int or Real.
func (v Value) IsNumeric() bool {
	return v.kind == KindInt || v.kind == KindReal
}

// Bool returns the boolean payload. Only valid for KindBool.
func (v Value) Bool() bool { return v.i != 0 }

// Int returns the integer payload. Only valid for KindInt.
func (v Value) Int() int64 { return v.i }

// Real returns the float payload. Only valid for KindReal.
func (v Value) Real() float64 { return v.r }

// AsReal widens Int or Real to float64.
func (v Value) AsReal() float64 {
	if v.kind == KindInt {
		return float64(v.i)
	}
	return v.r
}

// Str returns the string payload. Only valid for KindString.
func (v Value) Str() string { return v.s }

// ListRef returns the list payload, or nil for other kinds.
func (v Value) ListRef() *List {
	l, _ := v.obj.(*List)
	return l
}

// ClosureRef returns the closure payload, or nil for other kinds.
func (v Value) ClosureRef() *Closure {
	c, _ := v.obj.(*Closure)
	return c
}

// NativeRef returns the native function payload, or nil for other kinds.
func (v Value) NativeRef() *NativeFunction {
	n, _ := v.obj.(*NativeFunction)
	return n
}

// ProtoRef returns the prototype payload, or nil for other kinds.
func (v Value) ProtoRef() *Prototype {
	p, _ := v.obj.(*Prototype)
	return p
}

// Equal compares two values. Values of different kinds are never equal
// (1 and 1.0 differ). Strings compare by content; lists, closures and
// natives compare by identity.
func Equal(a, b Value) bool {
	if a.kind != b.kind {
		return false
	}
	switch a.kind {
	case KindNil:
		return true
	case KindBool, KindInt:
		return a.i == b.i
	case KindReal:
		return a.r == b.r
	case KindString:
		return a.s == b.s
	default:
		return a.obj == b.obj
	}
}

// Repr formats a value the way literals are written in source: strings are
// quoted, lists recurse. This is what the log native prints.
func (v Value) Repr() string {
	switch v.kind {
	case KindNil:
		return "nil"
	case KindBool:
		if v.Bool() {
			return "true"
		}
		return "false"
	case KindInt:
		return strconv.FormatInt(v.i, 10)
	case KindReal:
		return formatReal(v.r)
	case KindString:
		return strconv.Quote(v.s)
	case KindList:
		l := v.ListRef()
		parts := make([]string, len(l.Elems))
		for i, e := range l.Elems {
			parts[i] = e.Repr()
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case KindClosure:
		c := v.ClosureRef()
		if c.Proto.Name != "" {
			return fmt.Sprintf("<function %s>", c.Proto.Name)
		}
		return "<function>"
	case KindNative:
		return fmt.Sprintf("<native %s>", v.NativeRef().Name)
	case KindProto:
		return "<function prototype>"
	}
	return "<unknown>"
}

// Display formats a value for direct output: like Repr, except strings print
// their raw contents.
func (v Value) Display() string {
	if v.kind == KindString {
		return v.s
	}
	return v.Repr()
}

func formatReal(r float64) string {
	s := strconv.FormatFloat(r, 'g', -1, 64)
	// Integral reals keep a trailing .0 so they read as reals.
	if !strings.ContainsAny(s, ".eEnI") {
		s += ".0"
	}
	return s
}

// List is a growable sequence of values.
type List struct {
	Elems []Value
}

// NewList builds a list taking ownership of elems.
func NewList(elems []Value) *List {
	return &List{Elems: elems}
}

// Closure pairs a function prototype with the upvalue cells it captured.
// The cell list is ordered to match the prototype's descriptor list.
type Closure struct {
	Proto    *Prototype
	Upvalues []*Upvalue
}

// NativeFunction is a host-provided callable invoked without a VM frame.
// Variadic natives accept any argument count; otherwise the VM checks Arity.
type NativeFunction struct {
	Name     string
	Arity    int
	Variadic bool
	Fn       func(args []Value) (Value, error)
}
