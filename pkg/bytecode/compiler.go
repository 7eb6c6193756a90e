package bytecode

import (
	"fmt"

	"github.com/Luapix/hissy/compiler"
)

// Options configure a compilation run.
type Options struct {
	// Strip omits debug symbols (source maps, variable and function names)
	// from the produced program.
	Strip bool
	// ScriptName is the diagnostic name of the top-level prototype.
	ScriptName string
	// Globals declares host-provided globals beyond the standard library,
	// with their static types (use AnyType when unknown).
	Globals map[string]compiler.Type
}

// Compile lowers a parsed program to bytecode. Compilation aborts on the
// first error; the returned error is a *CompileError unless an internal
// limit (locals, constants, jump distance) was exceeded.
func Compile(prog *compiler.Program, opts Options) (*Program, error) {
	c := &comp{
		program: &Program{Version: FormatVersion},
		globals: make(map[string]compiler.Type),
		strip:   opts.Strip,
	}
	if !opts.Strip {
		c.program.Flags |= ProgramFlagDebug
	}
	for name, typ := range StdlibTypes() {
		c.globals[name] = typ
	}
	for name, typ := range opts.Globals {
		c.globals[name] = typ
	}

	main := &Prototype{}
	if !opts.Strip {
		if opts.ScriptName != "" {
			main.Name = opts.ScriptName
		} else {
			main.Name = "<script>"
		}
	}
	c.program.Protos = append(c.program.Protos, main)
	c.fs = &funcScope{proto: main, retType: compiler.AnyType}

	if err := c.compileBlock(prog.Body); err != nil {
		return nil, err
	}
	main.Emit(OpReturnNil)
	main.LocalCount = uint8(len(c.fs.locals))
	return c.program, nil
}

// local is a compile-time binding in the current function. Slots are never
// reused within a function, so a closed scope leaves dead entries behind and
// shadowing allocates a fresh slot.
type local struct {
	name  string
	typ   compiler.Type
	depth int
	alive bool
}

type funcScope struct {
	enclosing *funcScope
	proto     *Prototype
	retType   compiler.Type
	locals    []local
	upvalTyps []compiler.Type // parallel to proto.Upvalues
	depth     int
}

type comp struct {
	program *Program
	globals map[string]compiler.Type
	fs      *funcScope
	strip   bool
}

func (c *comp) errorAt(pos compiler.Pos, kind CompileErrorKind, format string, args ...any) error {
	return &CompileError{
		Kind:   kind,
		Msg:    fmt.Sprintf(format, args...),
		Line:   pos.Line,
		Column: pos.Column,
	}
}

// mark records the source position of the next instruction to be emitted.
func (c *comp) mark(pos compiler.Pos) {
	if c.strip {
		return
	}
	c.fs.proto.MarkSource(len(c.fs.proto.Code), pos.Line, pos.Column)
}

func (c *comp) emitConstant(con Constant) error {
	idx, err := c.fs.proto.AddConstant(con)
	if err != nil {
		return err
	}
	c.fs.proto.EmitWithUint16(OpConst, idx)
	return nil
}

func (c *comp) nameConstant(name string) (uint16, error) {
	return c.fs.proto.AddConstant(Constant{Kind: ConstString, Str: name})
}

// ---------------------------------------------------------------------------
// Scopes and identifier resolution
// ---------------------------------------------------------------------------

func (c *comp) beginScope() {
	c.fs.depth++
}

func (c *comp) endScope() {
	fs := c.fs
	for i := range fs.locals {
		if fs.locals[i].alive && fs.locals[i].depth == fs.depth {
			fs.locals[i].alive = false
		}
	}
	fs.depth--
}

// declareLocal binds a name in the current scope and returns its slot.
func (c *comp) declareLocal(pos compiler.Pos, name string, typ compiler.Type) (uint8, error) {
	fs := c.fs
	for i := range fs.locals {
		if fs.locals[i].alive && fs.locals[i].depth == fs.depth && fs.locals[i].name == name {
			return 0, c.errorAt(pos, CompileDuplicateBinding, "%q is already bound in this scope", name)
		}
	}
	if len(fs.locals) >= 256 {
		return 0, fmt.Errorf("too many local variables in %q", fs.proto.Name)
	}
	slot := uint8(len(fs.locals))
	fs.locals = append(fs.locals, local{name: name, typ: typ, depth: fs.depth, alive: true})
	if !c.strip {
		fs.proto.VarNames = append(fs.proto.VarNames, name)
	}
	return slot, nil
}

// resolveLocal finds a live local of fs, innermost binding first.
func resolveLocal(fs *funcScope, name string) int {
	for i := len(fs.locals) - 1; i >= 0; i-- {
		if fs.locals[i].alive && fs.locals[i].name == name {
			return i
		}
	}
	return -1
}

// resolveUpvalue resolves a name against enclosing functions, threading an
// upvalue descriptor chain through every intermediate function. Returns the
// upvalue index in fs, or -1.
func (c *comp) resolveUpvalue(fs *funcScope, name string) (int, error) {
	if fs.enclosing == nil {
		return -1, nil
	}
	if slot := resolveLocal(fs.enclosing, name); slot >= 0 {
		return c.addUpvalue(fs, UpvalueLocal, uint8(slot), name, fs.enclosing.locals[slot].typ)
	}
	parent, err := c.resolveUpvalue(fs.enclosing, name)
	if err != nil {
		return -1, err
	}
	if parent >= 0 {
		return c.addUpvalue(fs, UpvalueParent, uint8(parent), name, fs.enclosing.upvalTyps[parent])
	}
	return -1, nil
}

func (c *comp) addUpvalue(fs *funcScope, source UpvalueSource, index uint8, name string, typ compiler.Type) (int, error) {
	for i, uv := range fs.proto.Upvalues {
		if uv.Source == source && uv.Index == index {
			return i, nil
		}
	}
	if len(fs.proto.Upvalues) >= 256 {
		return -1, fmt.Errorf("too many captured variables in %q", fs.proto.Name)
	}
	desc := UpvalueDescriptor{Source: source, Index: index}
	if !c.strip {
		desc.Name = name
	}
	fs.proto.Upvalues = append(fs.proto.Upvalues, desc)
	fs.upvalTyps = append(fs.upvalTyps, typ)
	return len(fs.proto.Upvalues) - 1, nil
}

// ---------------------------------------------------------------------------
// Statements
// ---------------------------------------------------------------------------

func (c *comp) compileBlock(stats []compiler.Stat) error {
	for _, s := range stats {
		if err := c.compileStat(s); err != nil {
			return err
		}
	}
	return nil
}

func (c *comp) compileStat(s compiler.Stat) error {
	c.mark(s.NodePos())
	switch s := s.(type) {
	case *compiler.Let:
		return c.compileLet(s)
	case *compiler.Assign:
		return c.compileAssign(s)
	case *compiler.Cond:
		return c.compileCond(s)
	case *compiler.While:
		return c.compileWhile(s)
	case *compiler.Return:
		return c.compileReturn(s)
	case *compiler.Log:
		return c.compileLog(s)
	case *compiler.ExprStat:
		if err := c.compileExpr(s.Value); err != nil {
			return err
		}
		c.fs.proto.Emit(OpPop)
		return nil
	}
	return fmt.Errorf("unhandled statement %T", s)
}

func (c *comp) compileLet(s *compiler.Let) error {
	if fun, ok := s.Value.(*compiler.FunLit); ok {
		// Bind the name before compiling the body so the function can
		// capture itself for recursion.
		valType := c.inferExpr(fun)
		if !s.Type.CanAssign(valType) {
			return c.errorAt(s.NodePos(), CompileTypeMismatch,
				"cannot bind %s value to %q declared as %s", valType, s.Name, s.Type)
		}
		slot, err := c.declareLocal(s.NodePos(), s.Name, s.Type)
		if err != nil {
			return err
		}
		if err := c.compileFunction(fun); err != nil {
			return err
		}
		c.fs.proto.EmitWithByte(OpStoreLocal, slot)
		return nil
	}

	// The initializer is compiled before the binding exists, so
	// `let x = x` refers to an enclosing x.
	valType := c.inferExpr(s.Value)
	if err := c.compileExpr(s.Value); err != nil {
		return err
	}
	if !s.Type.CanAssign(valType) {
		return c.errorAt(s.NodePos(), CompileTypeMismatch,
			"cannot bind %s value to %q declared as %s", valType, s.Name, s.Type)
	}
	slot, err := c.declareLocal(s.NodePos(), s.Name, s.Type)
	if err != nil {
		return err
	}
	c.fs.proto.EmitWithByte(OpStoreLocal, slot)
	return nil
}

func (c *comp) compileAssign(s *compiler.Assign) error {
	switch target := s.Target.(type) {
	case *compiler.Ident:
		valType := c.inferExpr(s.Value)
		if err := c.compileExpr(s.Value); err != nil {
			return err
		}
		if slot := resolveLocal(c.fs, target.Name); slot >= 0 {
			if !c.fs.locals[slot].typ.CanAssign(valType) {
				return c.errorAt(s.NodePos(), CompileTypeMismatch,
					"cannot assign %s value to %q declared as %s", valType, target.Name, c.fs.locals[slot].typ)
			}
			c.fs.proto.EmitWithByte(OpStoreLocal, uint8(slot))
			return nil
		}
		idx, err := c.resolveUpvalue(c.fs, target.Name)
		if err != nil {
			return err
		}
		if idx >= 0 {
			if !c.fs.upvalTyps[idx].CanAssign(valType) {
				return c.errorAt(s.NodePos(), CompileTypeMismatch,
					"cannot assign %s value to %q declared as %s", valType, target.Name, c.fs.upvalTyps[idx])
			}
			c.fs.proto.EmitWithByte(OpStoreUpvalue, uint8(idx))
			return nil
		}
		if typ, ok := c.globals[target.Name]; ok {
			if !typ.CanAssign(valType) {
				return c.errorAt(s.NodePos(), CompileTypeMismatch,
					"cannot assign %s value to global %q of type %s", valType, target.Name, typ)
			}
			nameIdx, err := c.nameConstant(target.Name)
			if err != nil {
				return err
			}
			c.fs.proto.EmitWithUint16(OpStoreGlobal, nameIdx)
			return nil
		}
		return c.errorAt(target.NodePos(), CompileUndefinedVariable, "undefined variable %q", target.Name)

	case *compiler.Index:
		seqType := c.inferExpr(target.Seq)
		if seqType.Kind != compiler.TypeAny && seqType.Kind != compiler.TypeList {
			return c.errorAt(target.NodePos(), CompileTypeMismatch, "cannot index into %s", seqType)
		}
		if err := c.compileExpr(target.Seq); err != nil {
			return err
		}
		if err := c.compileExpr(target.Key); err != nil {
			return err
		}
		if err := c.compileExpr(s.Value); err != nil {
			return err
		}
		c.mark(target.NodePos())
		c.fs.proto.Emit(OpIndexSet)
		return nil

	default:
		return c.errorAt(s.NodePos(), CompileInvalidAssignTarget,
			"left side of assignment is not a variable or subscript")
	}
}

func (c *comp) compileCond(s *compiler.Cond) error {
	var endJumps []int
	for i, br := range s.Branches {
		last := i == len(s.Branches)-1
		if br.Cond != nil {
			if err := c.compileBoolOperand(br.Cond, "if condition"); err != nil {
				return err
			}
			falseJump := c.fs.proto.EmitJump(OpJumpFalse)
			c.beginScope()
			err := c.compileBlock(br.Body)
			c.endScope()
			if err != nil {
				return err
			}
			if !last {
				endJumps = append(endJumps, c.fs.proto.EmitJump(OpJump))
			}
			if err := c.fs.proto.PatchJump(falseJump); err != nil {
				return err
			}
		} else {
			c.beginScope()
			err := c.compileBlock(br.Body)
			c.endScope()
			if err != nil {
				return err
			}
		}
	}
	for _, j := range endJumps {
		if err := c.fs.proto.PatchJump(j); err != nil {
			return err
		}
	}
	return nil
}

func (c *comp) compileWhile(s *compiler.While) error {
	loopStart := len(c.fs.proto.Code)
	if err := c.compileBoolOperand(s.Cond, "while condition"); err != nil {
		return err
	}
	exitJump := c.fs.proto.EmitJump(OpJumpFalse)
	c.beginScope()
	err := c.compileBlock(s.Body)
	c.endScope()
	if err != nil {
		return err
	}
	if err := c.fs.proto.EmitLoop(loopStart); err != nil {
		return err
	}
	return c.fs.proto.PatchJump(exitJump)
}

func (c *comp) compileReturn(s *compiler.Return) error {
	if s.Value == nil {
		c.fs.proto.Emit(OpReturnNil)
		return nil
	}
	valType := c.inferExpr(s.Value)
	if !c.fs.retType.CanAssign(valType) {
		return c.errorAt(s.NodePos(), CompileTypeMismatch,
			"cannot return %s from a function declared to return %s", valType, c.fs.retType)
	}
	if err := c.compileExpr(s.Value); err != nil {
		return err
	}
	c.fs.proto.Emit(OpReturn)
	return nil
}

// compileLog lowers a log statement to a call of the log native.
func (c *comp) compileLog(s *compiler.Log) error {
	nameIdx, err := c.nameConstant("log")
	if err != nil {
		return err
	}
	c.fs.proto.EmitWithUint16(OpLoadGlobal, nameIdx)
	if len(s.Args) > 255 {
		return c.errorAt(s.NodePos(), CompileArityMismatch, "too many log arguments")
	}
	for _, arg := range s.Args {
		if err := c.compileExpr(arg); err != nil {
			return err
		}
	}
	c.mark(s.NodePos())
	c.fs.proto.EmitWithByte(OpCall, uint8(len(s.Args)))
	c.fs.proto.Emit(OpPop)
	return nil
}

// ---------------------------------------------------------------------------
// Expressions
// ---------------------------------------------------------------------------

func (c *comp) compileExpr(e compiler.Expr) error {
	switch e := e.(type) {
	case *compiler.NilLit:
		c.fs.proto.Emit(OpNil)
		return nil
	case *compiler.BoolLit:
		if e.Value {
			c.fs.proto.Emit(OpTrue)
		} else {
			c.fs.proto.Emit(OpFalse)
		}
		return nil
	case *compiler.IntLit:
		return c.emitConstant(Constant{Kind: ConstInt, Int: e.Value})
	case *compiler.RealLit:
		return c.emitConstant(Constant{Kind: ConstReal, Real: e.Value})
	case *compiler.StringLit:
		return c.emitConstant(Constant{Kind: ConstString, Str: e.Value})
	case *compiler.ListLit:
		if len(e.Elems) > 65535 {
			return fmt.Errorf("list literal too long")
		}
		for _, el := range e.Elems {
			if err := c.compileExpr(el); err != nil {
				return err
			}
		}
		c.fs.proto.EmitWithUint16(OpMakeList, uint16(len(e.Elems)))
		return nil
	case *compiler.Ident:
		return c.compileIdent(e)
	case *compiler.UnaOp:
		return c.compileUnaOp(e)
	case *compiler.BinOp:
		return c.compileBinOp(e)
	case *compiler.Index:
		return c.compileIndex(e)
	case *compiler.Call:
		return c.compileCall(e)
	case *compiler.FunLit:
		return c.compileFunction(e)
	}
	return fmt.Errorf("unhandled expression %T", e)
}

func (c *comp) compileIdent(e *compiler.Ident) error {
	if slot := resolveLocal(c.fs, e.Name); slot >= 0 {
		c.fs.proto.EmitWithByte(OpLoadLocal, uint8(slot))
		return nil
	}
	idx, err := c.resolveUpvalue(c.fs, e.Name)
	if err != nil {
		return err
	}
	if idx >= 0 {
		c.fs.proto.EmitWithByte(OpLoadUpvalue, uint8(idx))
		return nil
	}
	if _, ok := c.globals[e.Name]; ok {
		nameIdx, err := c.nameConstant(e.Name)
		if err != nil {
			return err
		}
		c.fs.proto.EmitWithUint16(OpLoadGlobal, nameIdx)
		return nil
	}
	return c.errorAt(e.NodePos(), CompileUndefinedVariable, "undefined variable %q", e.Name)
}

func (c *comp) compileUnaOp(e *compiler.UnaOp) error {
	switch e.Op {
	case compiler.UnaNot:
		return c.compileNotOf(e)
	case compiler.UnaNeg:
		t := c.inferExpr(e.Operand)
		if t.Kind != compiler.TypeAny && !t.IsNumeric() {
			return c.errorAt(e.NodePos(), CompileTypeMismatch, "cannot negate %s", t)
		}
		if err := c.compileExpr(e.Operand); err != nil {
			return err
		}
		c.mark(e.NodePos())
		c.fs.proto.Emit(OpNeg)
		return nil
	}
	return fmt.Errorf("unhandled unary operator %v", e.Op)
}

func (c *comp) compileNotOf(e *compiler.UnaOp) error {
	if err := c.compileBoolOperand(e.Operand, "'not' operand"); err != nil {
		return err
	}
	c.mark(e.NodePos())
	c.fs.proto.Emit(OpNot)
	return nil
}

// compileBoolOperand compiles an expression that must produce a Bool
// (conditions and logical operands), rejecting statically known mismatches.
func (c *comp) compileBoolOperand(e compiler.Expr, what string) error {
	t := c.inferExpr(e)
	if t.Kind != compiler.TypeAny && t.Kind != compiler.TypeBool {
		return c.errorAt(e.NodePos(), CompileTypeMismatch, "%s must be Bool, found %s", what, t)
	}
	return c.compileExpr(e)
}

var binOpcodes = map[compiler.BinOpKind]Opcode{
	compiler.BinEqual:   OpEq,
	compiler.BinNEq:     OpNe,
	compiler.BinLess:    OpLt,
	compiler.BinLEq:     OpLe,
	compiler.BinGreater: OpGt,
	compiler.BinGEq:     OpGe,
	compiler.BinPlus:    OpAdd,
	compiler.BinMinus:   OpSub,
	compiler.BinTimes:   OpMul,
	compiler.BinDivides: OpDiv,
	compiler.BinModulo:  OpMod,
	compiler.BinPower:   OpPow,
}

func (c *comp) compileBinOp(e *compiler.BinOp) error {
	switch e.Op {
	case compiler.BinAnd:
		// Short-circuit: the right operand must never run when the left
		// is false.
		if err := c.compileBoolOperand(e.Left, "'and' operand"); err != nil {
			return err
		}
		c.fs.proto.Emit(OpDup)
		end := c.fs.proto.EmitJump(OpJumpFalse)
		c.fs.proto.Emit(OpPop)
		if err := c.compileBoolOperand(e.Right, "'and' operand"); err != nil {
			return err
		}
		return c.fs.proto.PatchJump(end)

	case compiler.BinOr:
		if err := c.compileBoolOperand(e.Left, "'or' operand"); err != nil {
			return err
		}
		c.fs.proto.Emit(OpDup)
		end := c.fs.proto.EmitJump(OpJumpTrue)
		c.fs.proto.Emit(OpPop)
		if err := c.compileBoolOperand(e.Right, "'or' operand"); err != nil {
			return err
		}
		return c.fs.proto.PatchJump(end)
	}

	if err := c.checkBinOperands(e); err != nil {
		return err
	}
	if err := c.compileExpr(e.Left); err != nil {
		return err
	}
	if err := c.compileExpr(e.Right); err != nil {
		return err
	}
	c.mark(e.NodePos())
	c.fs.proto.Emit(binOpcodes[e.Op])
	return nil
}

// checkBinOperands rejects operand types that are statically known to fail
// at runtime. Unknown (Any) operands always pass; the VM re-checks.
func (c *comp) checkBinOperands(e *compiler.BinOp) error {
	lt := c.inferExpr(e.Left)
	rt := c.inferExpr(e.Right)
	if lt.Kind == compiler.TypeAny || rt.Kind == compiler.TypeAny {
		return nil
	}
	switch e.Op {
	case compiler.BinEqual, compiler.BinNEq:
		return nil // equality is defined across all types
	case compiler.BinPlus:
		if lt.Kind == compiler.TypeString && rt.Kind == compiler.TypeString {
			return nil
		}
		fallthrough
	case compiler.BinMinus, compiler.BinTimes, compiler.BinDivides,
		compiler.BinModulo, compiler.BinPower:
		if !lt.IsNumeric() || !rt.IsNumeric() {
			return c.errorAt(e.NodePos(), CompileTypeMismatch,
				"operator %s is not defined on %s and %s", e.Op, lt, rt)
		}
		return nil
	case compiler.BinLess, compiler.BinLEq, compiler.BinGreater, compiler.BinGEq:
		if lt.IsNumeric() && rt.IsNumeric() {
			return nil
		}
		if lt.Kind == compiler.TypeString && rt.Kind == compiler.TypeString {
			return nil
		}
		return c.errorAt(e.NodePos(), CompileTypeMismatch,
			"operator %s is not defined on %s and %s", e.Op, lt, rt)
	}
	return nil
}

func (c *comp) compileIndex(e *compiler.Index) error {
	seqType := c.inferExpr(e.Seq)
	if seqType.Kind != compiler.TypeAny && seqType.Kind != compiler.TypeList {
		return c.errorAt(e.NodePos(), CompileTypeMismatch, "cannot index into %s", seqType)
	}
	if err := c.compileExpr(e.Seq); err != nil {
		return err
	}
	if err := c.compileExpr(e.Key); err != nil {
		return err
	}
	c.mark(e.NodePos())
	c.fs.proto.Emit(OpIndexGet)
	return nil
}

func (c *comp) compileCall(e *compiler.Call) error {
	calleeType := c.inferExpr(e.Callee)
	if calleeType.Kind != compiler.TypeAny && calleeType.Kind != compiler.TypeFunction {
		return c.errorAt(e.NodePos(), CompileTypeMismatch, "cannot call %s", calleeType)
	}
	if calleeType.Kind == compiler.TypeFunction && calleeType.Params != nil {
		if len(e.Args) != len(calleeType.Params) {
			return c.errorAt(e.NodePos(), CompileArityMismatch,
				"call expects %d arguments, found %d", len(calleeType.Params), len(e.Args))
		}
		for i, arg := range e.Args {
			at := c.inferExpr(arg)
			if !calleeType.Params[i].CanAssign(at) {
				return c.errorAt(arg.NodePos(), CompileTypeMismatch,
					"argument %d must be %s, found %s", i+1, calleeType.Params[i], at)
			}
		}
	}
	if len(e.Args) > 255 {
		return c.errorAt(e.NodePos(), CompileArityMismatch, "too many call arguments")
	}
	if err := c.compileExpr(e.Callee); err != nil {
		return err
	}
	for _, arg := range e.Args {
		if err := c.compileExpr(arg); err != nil {
			return err
		}
	}
	c.mark(e.NodePos())
	c.fs.proto.EmitWithByte(OpCall, uint8(len(e.Args)))
	return nil
}

// compileFunction compiles a function literal into its own prototype and
// emits the MakeClosure instruction in the enclosing function.
func (c *comp) compileFunction(f *compiler.FunLit) error {
	if len(f.Params) > 255 {
		return c.errorAt(f.NodePos(), CompileArityMismatch, "too many parameters")
	}
	if len(c.program.Protos) >= 65536 {
		return fmt.Errorf("too many functions")
	}

	proto := &Prototype{Arity: uint8(len(f.Params))}
	if !c.strip {
		proto.Name = f.Name
	}
	protoIndex := uint16(len(c.program.Protos))
	c.program.Protos = append(c.program.Protos, proto)

	c.fs = &funcScope{enclosing: c.fs, proto: proto, retType: f.RetType}
	for _, prm := range f.Params {
		if _, err := c.declareLocal(prm.Pos, prm.Name, prm.Type); err != nil {
			c.fs = c.fs.enclosing
			return err
		}
	}
	if err := c.compileBlock(f.Body); err != nil {
		c.fs = c.fs.enclosing
		return err
	}
	proto.Emit(OpReturnNil)
	proto.LocalCount = uint8(len(c.fs.locals))
	c.fs = c.fs.enclosing

	c.fs.proto.EmitWithUint16(OpMakeClosure, protoIndex)
	return nil
}

// ---------------------------------------------------------------------------
// Static type inference
// ---------------------------------------------------------------------------

// inferExpr computes the statically known type of an expression, falling
// back to Any whenever the type depends on runtime values. Inference never
// fails; mismatches are reported by the emission paths.
func (c *comp) inferExpr(e compiler.Expr) compiler.Type {
	switch e := e.(type) {
	case *compiler.NilLit:
		return compiler.Type{Kind: compiler.TypeNil}
	case *compiler.BoolLit:
		return compiler.Type{Kind: compiler.TypeBool}
	case *compiler.IntLit:
		return compiler.Type{Kind: compiler.TypeInt}
	case *compiler.RealLit:
		return compiler.Type{Kind: compiler.TypeReal}
	case *compiler.StringLit:
		return compiler.Type{Kind: compiler.TypeString}
	case *compiler.ListLit:
		elem := compiler.AnyType
		return compiler.Type{Kind: compiler.TypeList, Elem: &elem}
	case *compiler.Ident:
		if slot := resolveLocal(c.fs, e.Name); slot >= 0 {
			return c.fs.locals[slot].typ
		}
		for fs := c.fs.enclosing; fs != nil; fs = fs.enclosing {
			if slot := resolveLocal(fs, e.Name); slot >= 0 {
				return fs.locals[slot].typ
			}
		}
		if typ, ok := c.globals[e.Name]; ok {
			return typ
		}
		return compiler.AnyType
	case *compiler.UnaOp:
		if e.Op == compiler.UnaNot {
			return compiler.Type{Kind: compiler.TypeBool}
		}
		t := c.inferExpr(e.Operand)
		if t.IsNumeric() {
			return t
		}
		return compiler.AnyType
	case *compiler.BinOp:
		return c.inferBinOp(e)
	case *compiler.Index:
		t := c.inferExpr(e.Seq)
		if t.Kind == compiler.TypeList && t.Elem != nil {
			return *t.Elem
		}
		return compiler.AnyType
	case *compiler.Call:
		t := c.inferExpr(e.Callee)
		if t.Kind == compiler.TypeFunction && t.Elem != nil {
			return *t.Elem
		}
		return compiler.AnyType
	case *compiler.FunLit:
		params := make([]compiler.Type, len(e.Params))
		for i, prm := range e.Params {
			params[i] = prm.Type
		}
		ret := e.RetType
		return compiler.Type{Kind: compiler.TypeFunction, Params: params, Elem: &ret}
	}
	return compiler.AnyType
}

func (c *comp) inferBinOp(e *compiler.BinOp) compiler.Type {
	switch e.Op {
	case compiler.BinAnd, compiler.BinOr,
		compiler.BinEqual, compiler.BinNEq,
		compiler.BinLess, compiler.BinLEq, compiler.BinGreater, compiler.BinGEq:
		return compiler.Type{Kind: compiler.TypeBool}
	}
	lt := c.inferExpr(e.Left)
	rt := c.inferExpr(e.Right)
	switch e.Op {
	case compiler.BinDivides, compiler.BinPower:
		// Division and power always produce Real.
		if lt.IsNumeric() && rt.IsNumeric() {
			return compiler.Type{Kind: compiler.TypeReal}
		}
	case compiler.BinPlus:
		if lt.Kind == compiler.TypeString && rt.Kind == compiler.TypeString {
			return compiler.Type{Kind: compiler.TypeString}
		}
		fallthrough
	case compiler.BinMinus, compiler.BinTimes, compiler.BinModulo:
		if lt.Kind == compiler.TypeInt && rt.Kind == compiler.TypeInt {
			return compiler.Type{Kind: compiler.TypeInt}
		}
		if lt.IsNumeric() && rt.IsNumeric() {
			return compiler.Type{Kind: compiler.TypeReal}
		}
	}
	return compiler.AnyType
}
