package compiler

import (
	"testing"
)

func parse(t *testing.T, src string) *Program {
	t.Helper()
	prog, err := ParseSource(src)
	if err != nil {
		t.Fatalf("ParseSource(%q): %v", src, err)
	}
	return prog
}

func parseExpr(t *testing.T, src string) Expr {
	t.Helper()
	prog := parse(t, src)
	if len(prog.Body) != 1 {
		t.Fatalf("ParseSource(%q): %d statements, want 1", src, len(prog.Body))
	}
	es, ok := prog.Body[0].(*ExprStat)
	if !ok {
		t.Fatalf("ParseSource(%q): statement is %T, want *ExprStat", src, prog.Body[0])
	}
	return es.Value
}

func TestParseLet(t *testing.T) {
	prog := parse(t, "let x: Int = 3\n")
	let, ok := prog.Body[0].(*Let)
	if !ok {
		t.Fatalf("statement is %T, want *Let", prog.Body[0])
	}
	if let.Name != "x" || let.Type.Kind != TypeInt {
		t.Errorf("let = {%s %s}, want {x Int}", let.Name, let.Type)
	}
	if lit, ok := let.Value.(*IntLit); !ok || lit.Value != 3 {
		t.Errorf("value = %#v, want IntLit(3)", let.Value)
	}
}

func TestParseLetDefaultsToAny(t *testing.T) {
	prog := parse(t, "let x = nil\n")
	let := prog.Body[0].(*Let)
	if let.Type.Kind != TypeAny {
		t.Errorf("unannotated let type = %s, want Any", let.Type)
	}
}

func TestParsePrecedence(t *testing.T) {
	// 1 + 2 * 3 parses as 1 + (2 * 3)
	e := parseExpr(t, "1 + 2 * 3\n")
	add, ok := e.(*BinOp)
	if !ok || add.Op != BinPlus {
		t.Fatalf("top = %#v, want +", e)
	}
	mul, ok := add.Right.(*BinOp)
	if !ok || mul.Op != BinTimes {
		t.Fatalf("right = %#v, want *", add.Right)
	}
}

func TestParsePowerRightAssociative(t *testing.T) {
	// 2 ^ 3 ^ 2 parses as 2 ^ (3 ^ 2)
	e := parseExpr(t, "2 ^ 3 ^ 2\n")
	outer, ok := e.(*BinOp)
	if !ok || outer.Op != BinPower {
		t.Fatalf("top = %#v, want ^", e)
	}
	if inner, ok := outer.Right.(*BinOp); !ok || inner.Op != BinPower {
		t.Fatalf("right = %#v, want ^", outer.Right)
	}
}

func TestParseUnaryMinusBindsLooserThanPower(t *testing.T) {
	// -2 ^ 2 parses as -(2 ^ 2)
	e := parseExpr(t, "-2 ^ 2\n")
	neg, ok := e.(*UnaOp)
	if !ok || neg.Op != UnaNeg {
		t.Fatalf("top = %#v, want unary minus", e)
	}
	if pow, ok := neg.Operand.(*BinOp); !ok || pow.Op != BinPower {
		t.Fatalf("operand = %#v, want ^", neg.Operand)
	}
}

func TestParseNotBindsLooserThanComparison(t *testing.T) {
	// not a == b parses as not (a == b)
	e := parseExpr(t, "not a == b\n")
	n, ok := e.(*UnaOp)
	if !ok || n.Op != UnaNot {
		t.Fatalf("top = %#v, want not", e)
	}
	if cmp, ok := n.Operand.(*BinOp); !ok || cmp.Op != BinEqual {
		t.Fatalf("operand = %#v, want ==", n.Operand)
	}
}

func TestParseAndOrBindLoosest(t *testing.T) {
	// a == b and c < d
	e := parseExpr(t, "a == b and c < d\n")
	and, ok := e.(*BinOp)
	if !ok || and.Op != BinAnd {
		t.Fatalf("top = %#v, want and", e)
	}
	if l, ok := and.Left.(*BinOp); !ok || l.Op != BinEqual {
		t.Fatalf("left = %#v, want ==", and.Left)
	}
	if r, ok := and.Right.(*BinOp); !ok || r.Op != BinLess {
		t.Fatalf("right = %#v, want <", and.Right)
	}
}

func TestParsePostfixChain(t *testing.T) {
	// f(1)[2](3) applies left to right
	e := parseExpr(t, "f(1)[2](3)\n")
	call, ok := e.(*Call)
	if !ok {
		t.Fatalf("top = %#v, want call", e)
	}
	idx, ok := call.Callee.(*Index)
	if !ok {
		t.Fatalf("callee = %#v, want index", call.Callee)
	}
	if _, ok := idx.Seq.(*Call); !ok {
		t.Fatalf("sequence = %#v, want call", idx.Seq)
	}
}

func TestParseListDisplay(t *testing.T) {
	e := parseExpr(t, "[1, 2.5, \"x\"]\n")
	l, ok := e.(*ListLit)
	if !ok || len(l.Elems) != 3 {
		t.Fatalf("expr = %#v, want 3-element list", e)
	}
}

func TestParseFunctionDeclaration(t *testing.T) {
	src := "let add(a: Int, b: Int) -> Int:\n\treturn a + b\n"
	prog := parse(t, src)
	let := prog.Body[0].(*Let)
	fun, ok := let.Value.(*FunLit)
	if !ok {
		t.Fatalf("value = %#v, want *FunLit", let.Value)
	}
	if fun.Name != "add" || len(fun.Params) != 2 {
		t.Fatalf("fun = {%s %d params}, want {add 2 params}", fun.Name, len(fun.Params))
	}
	if fun.Params[0].Type.Kind != TypeInt || fun.RetType.Kind != TypeInt {
		t.Errorf("signature types wrong: %s -> %s", fun.Params[0].Type, fun.RetType)
	}
	if let.Type.Kind != TypeFunction || len(let.Type.Params) != 2 {
		t.Errorf("binding type = %s, want a 2-parameter function type", let.Type)
	}
	if _, ok := fun.Body[0].(*Return); !ok {
		t.Errorf("body[0] = %T, want *Return", fun.Body[0])
	}
}

func TestParseParamCommasOptional(t *testing.T) {
	src := "let f(a b: Int c):\n\treturn a\n"
	prog := parse(t, src)
	fun := prog.Body[0].(*Let).Value.(*FunLit)
	if len(fun.Params) != 3 {
		t.Fatalf("params = %d, want 3", len(fun.Params))
	}
	if fun.Params[0].Type.Kind != TypeAny || fun.Params[1].Type.Kind != TypeInt {
		t.Errorf("param types = %s, %s; want Any, Int", fun.Params[0].Type, fun.Params[1].Type)
	}
}

func TestParseAnonymousFun(t *testing.T) {
	src := "let f = fun (x):\n\treturn x\n"
	prog := parse(t, src)
	fun, ok := prog.Body[0].(*Let).Value.(*FunLit)
	if !ok {
		t.Fatalf("value is not a fun literal")
	}
	if fun.Name != "" {
		t.Errorf("anonymous fun has name %q", fun.Name)
	}
}

func TestParseIfElseChain(t *testing.T) {
	src := "if a:\n\tlog 1\nelse if b:\n\tlog 2\nelse:\n\tlog 3\n"
	prog := parse(t, src)
	cond, ok := prog.Body[0].(*Cond)
	if !ok {
		t.Fatalf("statement is %T, want *Cond", prog.Body[0])
	}
	if len(cond.Branches) != 3 {
		t.Fatalf("branches = %d, want 3", len(cond.Branches))
	}
	if cond.Branches[0].Cond == nil || cond.Branches[1].Cond == nil {
		t.Error("first two branches must have conditions")
	}
	if cond.Branches[2].Cond != nil {
		t.Error("else branch must have no condition")
	}
}

func TestParseWhile(t *testing.T) {
	src := "while i < 10:\n\ti = i + 1\n"
	prog := parse(t, src)
	w, ok := prog.Body[0].(*While)
	if !ok {
		t.Fatalf("statement is %T, want *While", prog.Body[0])
	}
	if _, ok := w.Body[0].(*Assign); !ok {
		t.Errorf("body[0] = %T, want *Assign", w.Body[0])
	}
}

func TestParseAssignTargets(t *testing.T) {
	prog := parse(t, "x = 1\nx[0] = 2\n")
	a1 := prog.Body[0].(*Assign)
	if _, ok := a1.Target.(*Ident); !ok {
		t.Errorf("target = %T, want *Ident", a1.Target)
	}
	a2 := prog.Body[1].(*Assign)
	if _, ok := a2.Target.(*Index); !ok {
		t.Errorf("target = %T, want *Index", a2.Target)
	}
}

func TestParseBareReturn(t *testing.T) {
	src := "let f():\n\treturn\n"
	prog := parse(t, src)
	fun := prog.Body[0].(*Let).Value.(*FunLit)
	ret := fun.Body[0].(*Return)
	if ret.Value != nil {
		t.Errorf("bare return has value %#v", ret.Value)
	}
}

func TestParseLogArgs(t *testing.T) {
	prog := parse(t, "log 1, \"two\", [3]\n")
	l := prog.Body[0].(*Log)
	if len(l.Args) != 3 {
		t.Errorf("log args = %d, want 3", len(l.Args))
	}
}

func TestParseErrors(t *testing.T) {
	bad := []string{
		"let = 3\n",
		"let x: Wat = 3\n",
		"if true\n\tlog 1\n",
		"let f(:\n\treturn\n",
		"1 +\n",
		"[1, 2\n",
		"x = \n",
	}
	for _, src := range bad {
		if _, err := ParseSource(src); err == nil {
			t.Errorf("ParseSource(%q) succeeded, want error", src)
		}
	}
}
