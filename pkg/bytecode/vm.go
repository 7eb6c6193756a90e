package bytecode

import (
	"fmt"
	"math"

	"github.com/google/uuid"
	"github.com/tliron/commonlog"
)

// DefaultMaxFrames bounds call depth unless the host overrides it.
const DefaultMaxFrames = 256

// Upvalue is a captured-variable cell. While the frame that owns the
// variable is live the cell is open and reads through to the stack slot;
// when that frame returns the cell closes over the final value and becomes
// self-contained.
type Upvalue struct {
	vm     *VM
	index  int // absolute stack slot while open
	closed bool
	value  Value
}

// Get reads the cell's current value.
func (u *Upvalue) Get() Value {
	if u.closed {
		return u.value
	}
	return u.vm.stack[u.index]
}

// Set writes through to the stack slot while open, or to the cell itself
// once closed. All closures sharing the cell observe the write.
func (u *Upvalue) Set(v Value) {
	if u.closed {
		u.value = v
		return
	}
	u.vm.stack[u.index] = v
}

// Close detaches the cell from the stack, capturing the slot's final value.
func (u *Upvalue) Close() {
	if u.closed {
		return
	}
	u.value = u.vm.stack[u.index]
	u.closed = true
	u.vm = nil
}

// Frame is one activation record. Locals live on the operand stack starting
// at bp; slot i is stack[bp+i].
type Frame struct {
	closure *Closure // nil for the top-level script frame
	proto   *Prototype
	ip      int
	opStart int // offset of the instruction being executed
	bp      int
	open    map[int]*Upvalue // open cells keyed by absolute stack slot
}

// captureLocal returns the open cell for an absolute stack slot, creating it
// on first capture so every closure over the slot shares one cell.
func (f *Frame) captureLocal(vm *VM, index int) *Upvalue {
	if cell, ok := f.open[index]; ok {
		return cell
	}
	if f.open == nil {
		f.open = make(map[int]*Upvalue)
	}
	cell := &Upvalue{vm: vm, index: index}
	f.open[index] = cell
	return cell
}

// VM executes a compiled program. A VM is single-threaded; run several VMs
// over the same Program for concurrency.
type VM struct {
	program *Program
	stack   []Value
	frames  []*Frame
	globals map[string]Value

	// MaxFrames bounds call depth; exceeding it raises StackOverflow.
	MaxFrames int
	// Trace logs every executed instruction at debug level.
	Trace bool

	log   commonlog.Logger
	runID string
}

// NewVM builds a VM over a program with the standard library installed.
func NewVM(program *Program) *VM {
	vm := &VM{
		program:   program,
		globals:   make(map[string]Value),
		MaxFrames: DefaultMaxFrames,
		log:       commonlog.GetLogger("hissy.vm"),
		runID:     uuid.NewString(),
	}
	for name, v := range Stdlib() {
		vm.globals[name] = v
	}
	return vm
}

// RunID identifies this VM instance in trace output.
func (vm *VM) RunID() string { return vm.runID }

// SetGlobal installs or replaces a global binding before or between runs.
func (vm *VM) SetGlobal(name string, v Value) {
	vm.globals[name] = v
}

// GetGlobal reads a global binding.
func (vm *VM) GetGlobal(name string) (Value, bool) {
	v, ok := vm.globals[name]
	return v, ok
}

func (vm *VM) push(v Value) {
	vm.stack = append(vm.stack, v)
}

func (vm *VM) pop() Value {
	v := vm.stack[len(vm.stack)-1]
	vm.stack = vm.stack[:len(vm.stack)-1]
	return v
}

func (vm *VM) peek(depth int) Value {
	return vm.stack[len(vm.stack)-1-depth]
}

func (vm *VM) frame() *Frame {
	return vm.frames[len(vm.frames)-1]
}

// runtimeError builds a RuntimeError located at the current instruction.
func (vm *VM) runtimeError(kind RuntimeErrorKind, format string, args ...any) error {
	e := &RuntimeError{
		Kind: kind,
		Msg:  fmt.Sprintf(format, args...),
	}
	if len(vm.frames) > 0 {
		f := vm.frame()
		e.Function = f.proto.Name
		e.Offset = f.opStart
		e.Line, e.Column = f.proto.GetSourceLocation(uint32(f.opStart))
	}
	return e
}

// locate fills location fields into a RuntimeError raised by a native.
func (vm *VM) locate(err error) error {
	re, ok := err.(*RuntimeError)
	if !ok {
		re = &RuntimeError{Kind: RuntimeTypeMismatch, Msg: err.Error()}
	}
	if len(vm.frames) > 0 {
		f := vm.frame()
		re.Function = f.proto.Name
		re.Offset = f.opStart
		re.Line, re.Column = f.proto.GetSourceLocation(uint32(f.opStart))
	}
	return re
}

// Run executes the program's top-level script and returns the value it
// returns (nil when the script runs off the end).
func (vm *VM) Run() (Value, error) {
	main := vm.program.Main()
	vm.stack = vm.stack[:0]
	vm.frames = vm.frames[:0]
	vm.frames = append(vm.frames, &Frame{proto: main, bp: 0})
	for i := 0; i < int(main.LocalCount); i++ {
		vm.push(Nil)
	}
	if vm.Trace {
		vm.log.Infof("run %s: %d prototypes", vm.runID, len(vm.program.Protos))
	}
	return vm.run()
}

func (vm *VM) run() (Value, error) {
	for {
		frame := vm.frame()
		proto := frame.proto
		if frame.ip >= len(proto.Code) {
			// Implicit end of function; the compiler always emits a
			// return, so this indicates a truncated code stream.
			return Nil, vm.runtimeError(RuntimeTypeMismatch, "code stream ended without return")
		}
		frame.opStart = frame.ip
		if vm.Trace {
			text, _ := FormatInstruction(proto, frame.ip)
			vm.log.Debugf("run %s: %s: %s", vm.runID, proto.Name, text)
		}
		op := Opcode(proto.Code[frame.ip])
		frame.ip++

		switch op {
		case OpNop:

		case OpPop:
			vm.pop()

		case OpDup:
			vm.push(vm.peek(0))

		case OpConst:
			idx := proto.readUint16(frame.ip)
			frame.ip += 2
			if int(idx) >= len(proto.Constants) {
				return Nil, vm.runtimeError(RuntimeTypeMismatch, "constant index %d out of range", idx)
			}
			vm.push(proto.Constants[idx].Value())

		case OpNil:
			vm.push(Nil)
		case OpTrue:
			vm.push(BoolValue(true))
		case OpFalse:
			vm.push(BoolValue(false))

		case OpLoadLocal:
			slot := int(proto.Code[frame.ip])
			frame.ip++
			vm.push(vm.stack[frame.bp+slot])

		case OpStoreLocal:
			slot := int(proto.Code[frame.ip])
			frame.ip++
			vm.stack[frame.bp+slot] = vm.pop()

		case OpLoadUpvalue:
			idx := int(proto.Code[frame.ip])
			frame.ip++
			vm.push(frame.closure.Upvalues[idx].Get())

		case OpStoreUpvalue:
			idx := int(proto.Code[frame.ip])
			frame.ip++
			frame.closure.Upvalues[idx].Set(vm.pop())

		case OpLoadGlobal:
			idx := proto.readUint16(frame.ip)
			frame.ip += 2
			name := proto.Constants[idx].Str
			v, ok := vm.globals[name]
			if !ok {
				return Nil, vm.runtimeError(RuntimeUndefinedGlobal, "undefined global %q", name)
			}
			vm.push(v)

		case OpStoreGlobal:
			idx := proto.readUint16(frame.ip)
			frame.ip += 2
			vm.globals[proto.Constants[idx].Str] = vm.pop()

		case OpAdd, OpSub, OpMul, OpDiv, OpMod, OpPow:
			if err := vm.arith(op); err != nil {
				return Nil, err
			}

		case OpNeg:
			v := vm.pop()
			switch v.Kind() {
			case KindInt:
				vm.push(IntValue(-v.Int()))
			case KindReal:
				vm.push(RealValue(-v.Real()))
			default:
				return Nil, vm.runtimeError(RuntimeTypeMismatch, "cannot negate %s", v.Kind())
			}

		case OpEq:
			b, a := vm.pop(), vm.pop()
			vm.push(BoolValue(Equal(a, b)))
		case OpNe:
			b, a := vm.pop(), vm.pop()
			vm.push(BoolValue(!Equal(a, b)))

		case OpLt, OpLe, OpGt, OpGe:
			if err := vm.compare(op); err != nil {
				return Nil, err
			}

		case OpNot:
			v := vm.pop()
			if !v.IsBool() {
				return Nil, vm.runtimeError(RuntimeTypeMismatch, "'not' operand must be Bool, found %s", v.Kind())
			}
			vm.push(BoolValue(!v.Bool()))

		case OpMakeList:
			count := int(proto.readUint16(frame.ip))
			frame.ip += 2
			elems := make([]Value, count)
			copy(elems, vm.stack[len(vm.stack)-count:])
			vm.stack = vm.stack[:len(vm.stack)-count]
			vm.push(ListValue(NewList(elems)))

		case OpIndexGet:
			key, seq := vm.pop(), vm.pop()
			elem, err := vm.indexList(seq, key)
			if err != nil {
				return Nil, err
			}
			vm.push(elem)

		case OpIndexSet:
			val, key, seq := vm.pop(), vm.pop(), vm.pop()
			if err := vm.indexSet(seq, key, val); err != nil {
				return Nil, err
			}

		case OpJump:
			delta := proto.readInt16(frame.ip)
			frame.ip += 2
			frame.ip += int(delta)

		case OpJumpTrue, OpJumpFalse:
			delta := proto.readInt16(frame.ip)
			frame.ip += 2
			cond := vm.pop()
			if !cond.IsBool() {
				return Nil, vm.runtimeError(RuntimeTypeMismatch, "condition must be Bool, found %s", cond.Kind())
			}
			if cond.Bool() == (op == OpJumpTrue) {
				frame.ip += int(delta)
			}

		case OpCall:
			argc := int(proto.Code[frame.ip])
			frame.ip++
			if err := vm.call(argc); err != nil {
				return Nil, err
			}

		case OpMakeClosure:
			idx := proto.readUint16(frame.ip)
			frame.ip += 2
			target := vm.program.Protos[idx]
			closure := &Closure{Proto: target}
			for _, desc := range target.Upvalues {
				switch desc.Source {
				case UpvalueLocal:
					closure.Upvalues = append(closure.Upvalues,
						frame.captureLocal(vm, frame.bp+int(desc.Index)))
				case UpvalueParent:
					closure.Upvalues = append(closure.Upvalues,
						frame.closure.Upvalues[desc.Index])
				}
			}
			vm.push(ClosureValue(closure))

		case OpReturn:
			result := vm.pop()
			if done, final := vm.popFrame(result); done {
				return final, nil
			}

		case OpReturnNil:
			if done, final := vm.popFrame(Nil); done {
				return final, nil
			}

		default:
			return Nil, vm.runtimeError(RuntimeTypeMismatch, "unknown opcode 0x%02X", byte(op))
		}
	}
}

// call dispatches OpCall: the callee sits under argc arguments.
func (vm *VM) call(argc int) error {
	callee := vm.peek(argc)
	switch callee.Kind() {
	case KindClosure:
		closure := callee.ClosureRef()
		proto := closure.Proto
		if argc != int(proto.Arity) {
			return vm.runtimeError(RuntimeArityMismatch,
				"%s expects %d arguments, found %d", functionName(proto), proto.Arity, argc)
		}
		if len(vm.frames) >= vm.MaxFrames {
			return vm.runtimeError(RuntimeStackOverflow, "call depth exceeds %d frames", vm.MaxFrames)
		}
		frame := &Frame{
			closure: closure,
			proto:   proto,
			bp:      len(vm.stack) - argc,
		}
		for i := argc; i < int(proto.LocalCount); i++ {
			vm.push(Nil)
		}
		vm.frames = append(vm.frames, frame)
		return nil

	case KindNative:
		native := callee.NativeRef()
		if !native.Variadic && argc != native.Arity {
			return vm.runtimeError(RuntimeArityMismatch,
				"%s expects %d arguments, found %d", native.Name, native.Arity, argc)
		}
		args := make([]Value, argc)
		copy(args, vm.stack[len(vm.stack)-argc:])
		result, err := native.Fn(args)
		if err != nil {
			return vm.locate(err)
		}
		vm.stack = vm.stack[:len(vm.stack)-argc-1]
		vm.push(result)
		return nil
	}
	return vm.runtimeError(RuntimeTypeMismatch, "cannot call %s", callee.Kind())
}

// popFrame unwinds the current frame, closing its captured cells, and pushes
// the result into the caller. Reports true with the final value when the
// top-level script returned.
func (vm *VM) popFrame(result Value) (bool, Value) {
	frame := vm.frame()
	for _, cell := range frame.open {
		cell.Close()
	}
	vm.frames = vm.frames[:len(vm.frames)-1]
	if len(vm.frames) == 0 {
		return true, result
	}
	// Discard the callee along with the frame's slots.
	vm.stack = vm.stack[:frame.bp-1]
	vm.push(result)
	return false, Nil
}

func functionName(p *Prototype) string {
	if p.Name != "" {
		return p.Name
	}
	return "function"
}

// ---------------------------------------------------------------------------
// Operator semantics
// ---------------------------------------------------------------------------

func (vm *VM) arith(op Opcode) error {
	b, a := vm.pop(), vm.pop()
	if op == OpAdd && a.Kind() == KindString && b.Kind() == KindString {
		vm.push(StringValue(a.Str() + b.Str()))
		return nil
	}
	if !a.IsNumeric() || !b.IsNumeric() {
		return vm.runtimeError(RuntimeTypeMismatch,
			"operator %s is not defined on %s and %s", arithSymbol(op), a.Kind(), b.Kind())
	}
	bothInt := a.Kind() == KindInt && b.Kind() == KindInt

	switch op {
	case OpAdd:
		if bothInt {
			vm.push(IntValue(a.Int() + b.Int()))
		} else {
			vm.push(RealValue(a.AsReal() + b.AsReal()))
		}
	case OpSub:
		if bothInt {
			vm.push(IntValue(a.Int() - b.Int()))
		} else {
			vm.push(RealValue(a.AsReal() - b.AsReal()))
		}
	case OpMul:
		if bothInt {
			vm.push(IntValue(a.Int() * b.Int()))
		} else {
			vm.push(RealValue(a.AsReal() * b.AsReal()))
		}
	case OpDiv:
		if b.AsReal() == 0 {
			return vm.runtimeError(RuntimeDivisionByZero, "division by zero")
		}
		vm.push(RealValue(a.AsReal() / b.AsReal()))
	case OpMod:
		if b.AsReal() == 0 {
			return vm.runtimeError(RuntimeDivisionByZero, "modulo by zero")
		}
		if bothInt {
			r := a.Int() % b.Int()
			if r < 0 {
				if d := b.Int(); d < 0 {
					r -= d
				} else {
					r += d
				}
			}
			vm.push(IntValue(r))
		} else {
			r := math.Mod(a.AsReal(), b.AsReal())
			if r < 0 {
				r += math.Abs(b.AsReal())
			}
			vm.push(RealValue(r))
		}
	case OpPow:
		vm.push(RealValue(math.Pow(a.AsReal(), b.AsReal())))
	}
	return nil
}

func arithSymbol(op Opcode) string {
	switch op {
	case OpAdd:
		return "+"
	case OpSub:
		return "-"
	case OpMul:
		return "*"
	case OpDiv:
		return "/"
	case OpMod:
		return "%"
	case OpPow:
		return "^"
	}
	return op.String()
}

func (vm *VM) compare(op Opcode) error {
	b, a := vm.pop(), vm.pop()
	var result bool
	switch {
	case a.IsNumeric() && b.IsNumeric():
		if a.Kind() == KindInt && b.Kind() == KindInt {
			x, y := a.Int(), b.Int()
			switch op {
			case OpLt:
				result = x < y
			case OpLe:
				result = x <= y
			case OpGt:
				result = x > y
			case OpGe:
				result = x >= y
			}
		} else {
			// Each operator applies directly, so NaN orders as false under
			// all four.
			x, y := a.AsReal(), b.AsReal()
			switch op {
			case OpLt:
				result = x < y
			case OpLe:
				result = x <= y
			case OpGt:
				result = x > y
			case OpGe:
				result = x >= y
			}
		}
	case a.Kind() == KindString && b.Kind() == KindString:
		x, y := a.Str(), b.Str()
		switch op {
		case OpLt:
			result = x < y
		case OpLe:
			result = x <= y
		case OpGt:
			result = x > y
		case OpGe:
			result = x >= y
		}
	default:
		return vm.runtimeError(RuntimeTypeMismatch,
			"cannot order %s and %s", a.Kind(), b.Kind())
	}
	vm.push(BoolValue(result))
	return nil
}

func (vm *VM) indexList(seq, key Value) (Value, error) {
	if seq.Kind() != KindList {
		return Nil, vm.runtimeError(RuntimeTypeMismatch, "cannot index into %s", seq.Kind())
	}
	if key.Kind() != KindInt {
		return Nil, vm.runtimeError(RuntimeTypeMismatch, "list index must be Int, found %s", key.Kind())
	}
	l := seq.ListRef()
	i := key.Int()
	if i < 0 || i >= int64(len(l.Elems)) {
		return Nil, vm.runtimeError(RuntimeIndexOutOfBounds,
			"index %d out of bounds for list of size %d", i, len(l.Elems))
	}
	return l.Elems[i], nil
}

func (vm *VM) indexSet(seq, key, val Value) error {
	if seq.Kind() != KindList {
		return vm.runtimeError(RuntimeTypeMismatch, "cannot index into %s", seq.Kind())
	}
	if key.Kind() != KindInt {
		return vm.runtimeError(RuntimeTypeMismatch, "list index must be Int, found %s", key.Kind())
	}
	l := seq.ListRef()
	i := key.Int()
	if i < 0 || i >= int64(len(l.Elems)) {
		return vm.runtimeError(RuntimeIndexOutOfBounds,
			"index %d out of bounds for list of size %d", i, len(l.Elems))
	}
	l.Elems[i] = val
	return nil
}
