package bytecode

import (
	"bytes"
	"math"
	"strings"
	"testing"

	"github.com/Luapix/hissy/compiler"
)

// run compiles and executes a source snippet, returning the script's result.
func run(t *testing.T, src string) Value {
	t.Helper()
	program := compileSrc(t, src)
	vm := NewVM(program)
	result, err := vm.Run()
	if err != nil {
		t.Fatalf("run %q: %v", src, err)
	}
	return result
}

// runErr executes a snippet that must fail, returning the RuntimeError.
func runErr(t *testing.T, src string) *RuntimeError {
	t.Helper()
	program := compileSrc(t, src)
	vm := NewVM(program)
	_, err := vm.Run()
	if err == nil {
		t.Fatalf("run %q succeeded, want error", src)
	}
	re, ok := err.(*RuntimeError)
	if !ok {
		t.Fatalf("run %q: error type %T, want *RuntimeError", src, err)
	}
	return re
}

// capture collects what the log native prints while fn runs.
func capture(t *testing.T, fn func()) string {
	t.Helper()
	var buf bytes.Buffer
	old := logOutput
	logOutput = &buf
	defer func() { logOutput = old }()
	fn()
	return buf.String()
}

func expectInt(t *testing.T, src string, want int64) {
	t.Helper()
	v := run(t, src)
	if v.Kind() != KindInt || v.Int() != want {
		t.Errorf("run %q = %s, want %d", src, v.Repr(), want)
	}
}

func expectReal(t *testing.T, src string, want float64) {
	t.Helper()
	v := run(t, src)
	if v.Kind() != KindReal || v.Real() != want {
		t.Errorf("run %q = %s, want %v", src, v.Repr(), want)
	}
}

func TestArithmeticIntStaysInt(t *testing.T) {
	expectInt(t, "return 2 + 3\n", 5)
	expectInt(t, "return 2 - 5\n", -3)
	expectInt(t, "return 6 * 7\n", 42)
	expectInt(t, "return 7 % 3\n", 1)
}

func TestArithmeticMixedPromotesToReal(t *testing.T) {
	expectReal(t, "return 2 + 0.5\n", 2.5)
	expectReal(t, "return 1.5 * 2\n", 3.0)
}

func TestDivisionAlwaysReal(t *testing.T) {
	expectReal(t, "return 7 / 2\n", 3.5)
	expectReal(t, "return 6 / 3\n", 2.0)
}

func TestPowerAlwaysReal(t *testing.T) {
	expectReal(t, "return 2 ^ 10\n", 1024.0)
	expectReal(t, "return 4 ^ 0.5\n", 2.0)
}

func TestModuloNonNegative(t *testing.T) {
	expectInt(t, "return -7 % 3\n", 2)
	expectInt(t, "return 7 % -3\n", 1)
	expectReal(t, "return -7.5 % 3.0\n", 1.5)
}

func TestStringConcatenation(t *testing.T) {
	v := run(t, "return \"foo\" + \"bar\"\n")
	if v.Kind() != KindString || v.Str() != "foobar" {
		t.Errorf("concat = %s, want \"foobar\"", v.Repr())
	}
}

func TestDivisionByZero(t *testing.T) {
	for _, src := range []string{
		"let z = 0\nreturn 1 / z\n",
		"let z = 0.0\nreturn 1.5 / z\n",
		"let z = 0\nreturn 1 % z\n",
	} {
		re := runErr(t, src)
		if re.Kind != RuntimeDivisionByZero {
			t.Errorf("run %q: kind = %s, want DivisionByZero", src, re.Kind)
		}
	}
}

func TestComparisons(t *testing.T) {
	cases := []struct {
		src  string
		want bool
	}{
		{"return 1 < 2\n", true},
		{"return 2 <= 2\n", true},
		{"return 2 > 2\n", false},
		{"return 2 >= 2\n", true},
		{"return 1 < 1.5\n", true},
		{"return \"abc\" < \"abd\"\n", true},
		{"return 1 == 1\n", true},
		{"return 1 == 1.0\n", false},
		{"return \"a\" != \"b\"\n", true},
		{"return nil == nil\n", true},
		{"return [1] == [1]\n", false},
	}
	for _, tc := range cases {
		v := run(t, tc.src)
		if v.Kind() != KindBool || v.Bool() != tc.want {
			t.Errorf("run %q = %s, want %t", tc.src, v.Repr(), tc.want)
		}
	}
}

func TestNaNNeverOrders(t *testing.T) {
	cases := []struct {
		src  string
		want bool
	}{
		{"return NaN < 1.0\n", false},
		{"return NaN <= 1.0\n", false},
		{"return NaN > 1.0\n", false},
		{"return NaN >= 1.0\n", false},
		{"return 1.0 < NaN\n", false},
		{"return 1.0 > NaN\n", false},
		{"return NaN >= NaN\n", false},
		{"return 1 > NaN\n", false},
		{"return NaN == NaN\n", false},
		{"return NaN != NaN\n", true},
	}
	for _, tc := range cases {
		v := run(t, tc.src)
		if v.Kind() != KindBool || v.Bool() != tc.want {
			t.Errorf("run %q = %s, want %t", tc.src, v.Repr(), tc.want)
		}
	}
}

func TestShortCircuitSkipsRightOperand(t *testing.T) {
	// The division by zero on the right must never execute.
	src := "let safe(z: Int) -> Bool:\n" +
		"\treturn 1 / z > 0.0\n" +
		"let z = 0\n" +
		"return z != 0 and safe(z)\n"
	v := run(t, src)
	if v.Kind() != KindBool || v.Bool() {
		t.Errorf("result = %s, want false", v.Repr())
	}

	src = "let z = 0\nreturn z == 0 or 1 / z > 0.0\n"
	v = run(t, src)
	if v.Kind() != KindBool || !v.Bool() {
		t.Errorf("result = %s, want true", v.Repr())
	}
}

func TestConditionMustBeBool(t *testing.T) {
	re := runErr(t, "let x = 1\nif x:\n\tlog x\n")
	if re.Kind != RuntimeTypeMismatch {
		t.Errorf("kind = %s, want TypeMismatch", re.Kind)
	}
}

func TestNegation(t *testing.T) {
	expectInt(t, "return -(3 + 4)\n", -7)
	expectReal(t, "return -2.5\n", -2.5)
	re := runErr(t, "let s = \"x\"\nreturn -s\n")
	if re.Kind != RuntimeTypeMismatch {
		t.Errorf("kind = %s, want TypeMismatch", re.Kind)
	}
}

func TestIfElseChain(t *testing.T) {
	src := "let classify(n: Int) -> String:\n" +
		"\tif n < 0:\n" +
		"\t\treturn \"negative\"\n" +
		"\telse if n == 0:\n" +
		"\t\treturn \"zero\"\n" +
		"\telse:\n" +
		"\t\treturn \"positive\"\n" +
		"return classify(%s)\n"
	cases := map[string]string{"-5": "negative", "0": "zero", "3": "positive"}
	for arg, want := range cases {
		v := run(t, strings.Replace(src, "%s", arg, 1))
		if v.Str() != want {
			t.Errorf("classify(%s) = %s, want %q", arg, v.Repr(), want)
		}
	}
}

func TestWhileLoop(t *testing.T) {
	src := "let i = 0\nlet total = 0\nwhile i < 5:\n\ti = i + 1\n\ttotal = total + i\nreturn total\n"
	expectInt(t, src, 15)
}

func TestListOperations(t *testing.T) {
	expectInt(t, "let l = [10, 20, 30]\nreturn l[1]\n", 20)
	expectInt(t, "let l = [1, 2]\nl[0] = 9\nreturn l[0] + l[1]\n", 11)
	expectInt(t, "let l = [1, 2, 3]\nreturn size(l)\n", 3)
	expectInt(t, "return size(\"hello\")\n", 5)
	expectInt(t, "let l = [1]\nadd(l, 2)\nadd(l, 3)\nreturn size(l)\n", 3)
}

func TestIndexOutOfBounds(t *testing.T) {
	for _, src := range []string{
		"let l = [1, 2]\nreturn l[2]\n",
		"let l = [1, 2]\nreturn l[-1]\n",
		"let l = []\nl[0] = 1\n",
	} {
		re := runErr(t, src)
		if re.Kind != RuntimeIndexOutOfBounds {
			t.Errorf("run %q: kind = %s, want IndexOutOfBounds", src, re.Kind)
		}
	}
}

func TestListsAreReferences(t *testing.T) {
	src := "let a = [1, 2]\nlet b = a\nb[0] = 99\nreturn a[0]\n"
	expectInt(t, src, 99)
}

func TestFunctionsAndRecursion(t *testing.T) {
	src := "let fib(n: Int) -> Int:\n" +
		"\tif n < 2:\n" +
		"\t\treturn n\n" +
		"\treturn fib(n - 1) + fib(n - 2)\n" +
		"return fib(10)\n"
	expectInt(t, src, 55)
}

func TestFunctionImplicitNilReturn(t *testing.T) {
	src := "let f():\n\tlet x = 1\nreturn f()\n"
	v := run(t, src)
	if !v.IsNil() {
		t.Errorf("result = %s, want nil", v.Repr())
	}
}

func TestClosureCounter(t *testing.T) {
	src := "let counter() -> Function:\n" +
		"\tlet n = 0\n" +
		"\treturn fun () -> Int:\n" +
		"\t\tn = n + 1\n" +
		"\t\treturn n\n" +
		"let c = counter()\n" +
		"c()\n" +
		"c()\n" +
		"return c()\n"
	expectInt(t, src, 3)
}

func TestClosureInstancesIndependent(t *testing.T) {
	src := "let counter() -> Function:\n" +
		"\tlet n = 0\n" +
		"\treturn fun () -> Int:\n" +
		"\t\tn = n + 1\n" +
		"\t\treturn n\n" +
		"let a = counter()\n" +
		"let b = counter()\n" +
		"a()\n" +
		"a()\n" +
		"return b()\n"
	expectInt(t, src, 1)
}

func TestClosuresShareOneCell(t *testing.T) {
	// get and set capture the same variable; writes through one closure
	// are visible through the other after the defining frame returned.
	src := "let make() -> List:\n" +
		"\tlet x = 0\n" +
		"\tlet get() -> Int:\n" +
		"\t\treturn x\n" +
		"\tlet set(v: Int):\n" +
		"\t\tx = v\n" +
		"\treturn [get, set]\n" +
		"let pair = make()\n" +
		"let get = pair[0]\n" +
		"let set = pair[1]\n" +
		"set(42)\n" +
		"return get()\n"
	expectInt(t, src, 42)
}

func TestLoopSharesOneCellPerVariable(t *testing.T) {
	// A let inside a loop body reuses its slot, so every closure made in
	// the loop sees the final value.
	src := "let fns = []\n" +
		"let i = 0\n" +
		"while i < 3:\n" +
		"\tlet v = i\n" +
		"\tlet get() -> Int:\n" +
		"\t\treturn v\n" +
		"\tadd(fns, get)\n" +
		"\ti = i + 1\n" +
		"return fns[0]()\n"
	expectInt(t, src, 2)
}

func TestDynamicArityMismatch(t *testing.T) {
	src := "let f: Any = fun (a: Int):\n\treturn a\nf(1, 2)\n"
	re := runErr(t, src)
	if re.Kind != RuntimeArityMismatch {
		t.Errorf("kind = %s, want ArityMismatch", re.Kind)
	}
}

func TestCallingNonFunction(t *testing.T) {
	src := "let x: Any = 3\nx(1)\n"
	re := runErr(t, src)
	if re.Kind != RuntimeTypeMismatch {
		t.Errorf("kind = %s, want TypeMismatch", re.Kind)
	}
}

func TestStackOverflow(t *testing.T) {
	src := "let loop():\n\tloop()\nloop()\n"
	re := runErr(t, src)
	if re.Kind != RuntimeStackOverflow {
		t.Errorf("kind = %s, want StackOverflow", re.Kind)
	}
}

func TestMaxFramesConfigurable(t *testing.T) {
	src := "let down(n: Int):\n\tif n > 0:\n\t\tdown(n - 1)\ndown(40)\n"
	program := compileSrc(t, src)
	vm := NewVM(program)
	vm.MaxFrames = 16
	if _, err := vm.Run(); err == nil {
		t.Fatal("deep recursion succeeded under a small frame budget")
	}
	vm = NewVM(program)
	if _, err := vm.Run(); err != nil {
		t.Fatalf("recursion failed under the default frame budget: %v", err)
	}
}

func TestRuntimeErrorCarriesLocation(t *testing.T) {
	src := "let f(z: Int) -> Real:\n\treturn 1 / z\nf(0)\n"
	re := runErr(t, src)
	if re.Function != "f" {
		t.Errorf("function = %q, want f", re.Function)
	}
	if re.Line != 2 {
		t.Errorf("line = %d, want 2", re.Line)
	}
}

func TestLogStatement(t *testing.T) {
	out := capture(t, func() {
		run(t, "log 1 + 1, \"two\", [3, nil]\n")
	})
	want := "2 \"two\" [3, nil]\n"
	if out != want {
		t.Errorf("log output = %q, want %q", out, want)
	}
}

func TestLogEmpty(t *testing.T) {
	out := capture(t, func() {
		run(t, "log\n")
	})
	if out != "\n" {
		t.Errorf("bare log output = %q, want newline", out)
	}
}

func TestGlobalsInjectedByHost(t *testing.T) {
	prog, err := compiler.ParseSource("return answer\n")
	if err != nil {
		t.Fatal(err)
	}
	program, err := Compile(prog, Options{
		Globals: map[string]compiler.Type{"answer": compiler.AnyType},
	})
	if err != nil {
		t.Fatal(err)
	}
	vm := NewVM(program)
	vm.SetGlobal("answer", IntValue(42))
	v, err := vm.Run()
	if err != nil {
		t.Fatal(err)
	}
	if v.Int() != 42 {
		t.Errorf("result = %s, want 42", v.Repr())
	}
}

func TestNativeArityCheckedStatically(t *testing.T) {
	ce := compileErr(t, "size([1], [2])\n")
	if ce.Kind != CompileArityMismatch {
		t.Errorf("kind = %s, want ArityMismatch", ce.Kind)
	}
}

func TestNativeArityCheckedDynamically(t *testing.T) {
	re := runErr(t, "let f: Any = size\nf(1, 2)\n")
	if re.Kind != RuntimeArityMismatch {
		t.Errorf("kind = %s, want ArityMismatch", re.Kind)
	}
}

func TestNativeTypeMismatchLocated(t *testing.T) {
	re := runErr(t, "let x: Any = 3\nsize(x)\n")
	if re.Kind != RuntimeTypeMismatch {
		t.Errorf("kind = %s, want TypeMismatch", re.Kind)
	}
	if re.Line != 2 {
		t.Errorf("line = %d, want 2", re.Line)
	}
}

func TestNaNPropagates(t *testing.T) {
	v := run(t, "return 0.0 / 1.0 + NaN\n")
	if v.Kind() != KindReal || !math.IsNaN(v.Real()) {
		t.Errorf("result = %s, want NaN", v.Repr())
	}
}

func TestScriptResultValue(t *testing.T) {
	v := run(t, "let x = 1\n")
	if !v.IsNil() {
		t.Errorf("script without return produced %s", v.Repr())
	}
}

func TestSameProgramMultipleVMs(t *testing.T) {
	program := compileSrc(t, "let n = 0\nn = n + 1\nreturn n\n")
	for i := 0; i < 3; i++ {
		vm := NewVM(program)
		v, err := vm.Run()
		if err != nil {
			t.Fatal(err)
		}
		if v.Int() != 1 {
			t.Errorf("run %d = %s, want 1", i, v.Repr())
		}
	}
}
