package bytecode

import (
	"math"
	"testing"
)

func TestEqualAcrossKinds(t *testing.T) {
	if Equal(IntValue(1), RealValue(1)) {
		t.Error("1 == 1.0 across kinds")
	}
	if Equal(Nil, BoolValue(false)) {
		t.Error("nil == false")
	}
	if !Equal(Nil, Nil) {
		t.Error("nil != nil")
	}
	if !Equal(StringValue("ab"), StringValue("ab")) {
		t.Error("equal strings compare unequal")
	}
	if Equal(StringValue("ab"), StringValue("ba")) {
		t.Error("distinct strings compare equal")
	}
}

func TestEqualListsByIdentity(t *testing.T) {
	a := ListValue(NewList([]Value{IntValue(1)}))
	b := ListValue(NewList([]Value{IntValue(1)}))
	if Equal(a, b) {
		t.Error("structurally equal lists compare equal; identity expected")
	}
	if !Equal(a, a) {
		t.Error("list not equal to itself")
	}
}

func TestEqualNaN(t *testing.T) {
	if Equal(RealValue(math.NaN()), RealValue(math.NaN())) {
		t.Error("NaN == NaN")
	}
}

func TestReprLiterals(t *testing.T) {
	tests := []struct {
		v    Value
		want string
	}{
		{Nil, "nil"},
		{BoolValue(true), "true"},
		{BoolValue(false), "false"},
		{IntValue(-7), "-7"},
		{RealValue(2.5), "2.5"},
		{RealValue(3), "3.0"},
		{RealValue(math.Inf(1)), "+Inf"},
		{StringValue("a\nb"), `"a\nb"`},
		{ListValue(NewList([]Value{IntValue(1), StringValue("x")})), `[1, "x"]`},
	}
	for _, tc := range tests {
		if got := tc.v.Repr(); got != tc.want {
			t.Errorf("Repr(%v) = %q, want %q", tc.v.Kind(), got, tc.want)
		}
	}
}

func TestDisplayStringsRaw(t *testing.T) {
	if got := StringValue("hi").Display(); got != "hi" {
		t.Errorf("Display = %q, want hi", got)
	}
	if got := IntValue(5).Display(); got != "5" {
		t.Errorf("Display = %q, want 5", got)
	}
}

func TestFunctionKindsDisplayAsFunction(t *testing.T) {
	for _, k := range []ValueKind{KindClosure, KindNative, KindProto} {
		if k.String() != "Function" {
			t.Errorf("%d.String() = %q, want Function", k, k.String())
		}
	}
}

func TestAsRealWidens(t *testing.T) {
	if IntValue(3).AsReal() != 3.0 {
		t.Error("Int does not widen")
	}
	if RealValue(2.5).AsReal() != 2.5 {
		t.Error("Real mangled by AsReal")
	}
}
