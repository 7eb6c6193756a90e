package bytecode

import "fmt"

// CompileErrorKind classifies compilation failures.
type CompileErrorKind int

const (
	CompileUndefinedVariable CompileErrorKind = iota
	CompileDuplicateBinding
	CompileInvalidAssignTarget
	CompileArityMismatch
	CompileTypeMismatch
)

var compileKindNames = [...]string{
	CompileUndefinedVariable:   "UndefinedVariable",
	CompileDuplicateBinding:    "DuplicateBinding",
	CompileInvalidAssignTarget: "InvalidAssignTarget",
	CompileArityMismatch:       "ArityMismatch",
	CompileTypeMismatch:        "TypeMismatch",
}

func (k CompileErrorKind) String() string {
	if int(k) < len(compileKindNames) {
		return compileKindNames[k]
	}
	return fmt.Sprintf("CompileErrorKind(%d)", int(k))
}

// CompileError is the single error compilation aborts with. Line and Column
// are 1-based and zero when no source position is available.
type CompileError struct {
	Kind   CompileErrorKind
	Msg    string
	Line   int
	Column int
}

func (e *CompileError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("compile error at %d:%d: %s: %s", e.Line, e.Column, e.Kind, e.Msg)
	}
	return fmt.Sprintf("compile error: %s: %s", e.Kind, e.Msg)
}

// RuntimeErrorKind classifies execution failures.
type RuntimeErrorKind int

const (
	RuntimeTypeMismatch RuntimeErrorKind = iota
	RuntimeDivisionByZero
	RuntimeIndexOutOfBounds
	RuntimeUndefinedGlobal
	RuntimeStackOverflow
	RuntimeArityMismatch
)

var runtimeKindNames = [...]string{
	RuntimeTypeMismatch:     "TypeMismatch",
	RuntimeDivisionByZero:   "DivisionByZero",
	RuntimeIndexOutOfBounds: "IndexOutOfBounds",
	RuntimeUndefinedGlobal:  "UndefinedGlobal",
	RuntimeStackOverflow:    "StackOverflow",
	RuntimeArityMismatch:    "ArityMismatch",
}

func (k RuntimeErrorKind) String() string {
	if int(k) < len(runtimeKindNames) {
		return runtimeKindNames[k]
	}
	return fmt.Sprintf("RuntimeErrorKind(%d)", int(k))
}

// RuntimeError halts the VM at the failing instruction. Offset is always
// filled in; Function, Line and Column require debug symbols and are zero
// values on stripped programs.
type RuntimeError struct {
	Kind     RuntimeErrorKind
	Msg      string
	Function string
	Offset   int
	Line     int
	Column   int
}

func (e *RuntimeError) Error() string {
	where := fmt.Sprintf("offset 0x%04X", e.Offset)
	if e.Function != "" {
		where = fmt.Sprintf("%s, %s", e.Function, where)
	}
	if e.Line > 0 {
		where = fmt.Sprintf("%s, line %d:%d", where, e.Line, e.Column)
	}
	return fmt.Sprintf("runtime error: %s: %s (at %s)", e.Kind, e.Msg, where)
}
