package bytecode

import (
	"strings"
	"testing"

	"github.com/Luapix/hissy/compiler"
)

func TestDisassembleListsAllPrototypes(t *testing.T) {
	src := "let twice(n: Int) -> Int:\n\treturn n * 2\nlog twice(4)\n"
	prog := compileSrc(t, src)
	out := Disassemble(prog)

	if !strings.Contains(out, "; === <script> ===") {
		t.Error("missing script section header")
	}
	if !strings.Contains(out, "; === twice ===") {
		t.Error("missing function section header")
	}
	for _, mnemonic := range []string{"CONST", "CALL", "MUL", "RETURN"} {
		if !strings.Contains(out, mnemonic) {
			t.Errorf("listing lacks %s", mnemonic)
		}
	}
}

func TestDisassembleShowsConstants(t *testing.T) {
	out := Disassemble(compileSrc(t, "log \"hello\"\n"))
	if !strings.Contains(out, `"hello"`) {
		t.Error("constant pool entry not rendered")
	}
	if !strings.Contains(out, `"log"`) {
		t.Error("global name constant not rendered")
	}
}

func TestDisassembleJumpTargets(t *testing.T) {
	out := Disassemble(compileSrc(t, "if true:\n\tlog 1\n"))
	if !strings.Contains(out, "JUMP_FALSE") {
		t.Fatal("conditional jump missing")
	}
	if !strings.Contains(out, "; -> ") {
		t.Error("jump target annotation missing")
	}
}

func TestDisassembleNamesLocalsAndUpvalues(t *testing.T) {
	src := "let make():\n\tlet hidden = 1\n\tlet get():\n\t\treturn hidden\n\treturn get\n"
	out := Disassemble(compileSrc(t, src))
	if !strings.Contains(out, "; hidden") {
		t.Error("local variable name not rendered")
	}
	if !strings.Contains(out, "local 0 (hidden)") {
		t.Error("upvalue descriptor not rendered with its name")
	}
}

func TestDisassembleStrippedFallsBackToIndexes(t *testing.T) {
	prog, err := compiler.ParseSource("let x = 5\nlog x\n")
	if err != nil {
		t.Fatal(err)
	}
	program, err := Compile(prog, Options{Strip: true})
	if err != nil {
		t.Fatal(err)
	}
	out := Disassemble(program)
	if !strings.Contains(out, "; === proto_0 ===") {
		t.Error("stripped prototype not given a placeholder name")
	}
	if strings.Contains(out, "; x") {
		t.Error("stripped listing still names variables")
	}
}

func TestFormatInstructionAdvancesCorrectly(t *testing.T) {
	p := &Prototype{}
	idx, _ := p.AddConstant(Constant{Kind: ConstInt, Int: 5})
	p.EmitWithUint16(OpConst, idx)
	p.Emit(OpPop)
	p.Emit(OpReturnNil)

	text, next := FormatInstruction(p, 0)
	if !strings.Contains(text, "CONST") || next != 3 {
		t.Errorf("FormatInstruction(0) = %q, %d", text, next)
	}
	text, next = FormatInstruction(p, 3)
	if !strings.Contains(text, "POP") || next != 4 {
		t.Errorf("FormatInstruction(3) = %q, %d", text, next)
	}
}
