package bytecode

import (
	"strings"
	"testing"
)

func TestAllOpcodesHaveMetadata(t *testing.T) {
	for _, op := range AllOpcodes() {
		info := GetOpcodeInfo(op)
		if info.Name == "" || strings.HasPrefix(info.Name, "UNKNOWN") {
			t.Errorf("opcode 0x%02X has no metadata", byte(op))
		}
	}
}

func TestUnknownOpcode(t *testing.T) {
	info := GetOpcodeInfo(Opcode(0xEE))
	if !strings.HasPrefix(info.Name, "UNKNOWN") {
		t.Errorf("metadata for undefined opcode = %q", info.Name)
	}
}

func TestOpcodeRanges(t *testing.T) {
	// Category ranges keep related opcodes together.
	ranges := []struct {
		op       Opcode
		lo, hi   Opcode
		category string
	}{
		{OpPop, 0x00, 0x0F, "stack"},
		{OpConst, 0x10, 0x1F, "constants"},
		{OpLoadLocal, 0x20, 0x2F, "locals"},
		{OpLoadUpvalue, 0x30, 0x3F, "upvalues"},
		{OpLoadGlobal, 0x40, 0x4F, "globals"},
		{OpAdd, 0x50, 0x5F, "arithmetic"},
		{OpEq, 0x60, 0x6F, "comparison"},
		{OpMakeList, 0x70, 0x7F, "lists"},
		{OpJump, 0x80, 0x8F, "control flow"},
		{OpCall, 0x90, 0x9F, "functions"},
		{OpReturn, 0xF0, 0xFF, "return"},
	}
	for _, r := range ranges {
		if r.op < r.lo || r.op > r.hi {
			t.Errorf("%s is outside the %s range 0x%02X-0x%02X", r.op, r.category, byte(r.lo), byte(r.hi))
		}
	}
}

func TestOperandLengths(t *testing.T) {
	tests := []struct {
		op   Opcode
		want int
	}{
		{OpNop, 0},
		{OpConst, 2},
		{OpLoadLocal, 1},
		{OpLoadGlobal, 2},
		{OpJump, 2},
		{OpCall, 1},
		{OpMakeClosure, 2},
		{OpReturn, 0},
	}
	for _, tc := range tests {
		if got := tc.op.OperandLen(); got != tc.want {
			t.Errorf("%s.OperandLen() = %d, want %d", tc.op, got, tc.want)
		}
		if got := tc.op.InstructionLen(); got != tc.want+1 {
			t.Errorf("%s.InstructionLen() = %d, want %d", tc.op, got, tc.want+1)
		}
	}
}

func TestIsJumpAndIsReturn(t *testing.T) {
	for _, op := range []Opcode{OpJump, OpJumpTrue, OpJumpFalse} {
		if !op.IsJump() {
			t.Errorf("%s.IsJump() = false", op)
		}
	}
	if OpCall.IsJump() || OpReturn.IsJump() {
		t.Error("non-jump opcode reported as jump")
	}
	if !OpReturn.IsReturn() || !OpReturnNil.IsReturn() {
		t.Error("return opcode not reported as return")
	}
	if OpJump.IsReturn() {
		t.Error("OpJump reported as return")
	}
}
