package bytecode

import (
	"encoding/binary"
	"fmt"
	"math"
)

// BytecodeMagic identifies Hissy bytecode artifacts.
const BytecodeMagic = "HSYC"

// FormatVersion is the current bytecode format version.
const FormatVersion uint16 = 1

// ProgramFlags carries artifact-level option bits.
type ProgramFlags uint8

const (
	// ProgramFlagDebug marks a program carrying debug symbols
	// (source maps, variable and function names).
	ProgramFlagDebug ProgramFlags = 1 << 0
)

// Program is the compiled artifact: the ordered function-prototype table.
// Protos[0] is the top-level script. A Program is immutable once compiled
// and may be executed by any number of VM instances.
type Program struct {
	Version uint16       `cbor:"1,keyasint"`
	Flags   ProgramFlags `cbor:"2,keyasint"`
	Protos  []*Prototype `cbor:"3,keyasint"`
}

// Main returns the top-level script prototype.
func (p *Program) Main() *Prototype {
	return p.Protos[0]
}

// HasDebug reports whether debug symbols were kept at compile time.
func (p *Program) HasDebug() bool {
	return p.Flags&ProgramFlagDebug != 0
}

// UpvalueSource says where a captured variable lives in the enclosing
// function at closure-creation time.
type UpvalueSource uint8

const (
	// UpvalueLocal captures a local slot of the creating frame.
	UpvalueLocal UpvalueSource = 0
	// UpvalueParent forwards a cell already captured by the creating closure.
	UpvalueParent UpvalueSource = 1
)

func (s UpvalueSource) String() string {
	switch s {
	case UpvalueLocal:
		return "local"
	case UpvalueParent:
		return "parent"
	}
	return fmt.Sprintf("UpvalueSource(%d)", uint8(s))
}

// UpvalueDescriptor is produced at compile time and consumed when the VM
// builds a closure: Index is a local slot for UpvalueLocal, or an index into
// the creating closure's own upvalue list for UpvalueParent.
type UpvalueDescriptor struct {
	Source UpvalueSource `cbor:"1,keyasint"`
	Index  uint8         `cbor:"2,keyasint"`
	Name   string        `cbor:"3,keyasint,omitempty"` // debug only
}

// ConstKind discriminates constant-pool entries.
type ConstKind uint8

const (
	ConstNil ConstKind = iota
	ConstBool
	ConstInt
	ConstReal
	ConstString
)

// Constant is one deduplicated constant-pool entry.
type Constant struct {
	Kind ConstKind `cbor:"1,keyasint"`
	Bool bool      `cbor:"2,keyasint,omitempty"`
	Int  int64     `cbor:"3,keyasint,omitempty"`
	Real float64   `cbor:"4,keyasint,omitempty"`
	Str  string    `cbor:"5,keyasint,omitempty"`
}

// Value converts a constant-pool entry to its runtime value.
func (c Constant) Value() Value {
	switch c.Kind {
	case ConstBool:
		return BoolValue(c.Bool)
	case ConstInt:
		return IntValue(c.Int)
	case ConstReal:
		return RealValue(c.Real)
	case ConstString:
		return StringValue(c.Str)
	}
	return Nil
}

func (c Constant) equal(other Constant) bool {
	if c.Kind != other.Kind {
		return false
	}
	switch c.Kind {
	case ConstBool:
		return c.Bool == other.Bool
	case ConstInt:
		return c.Int == other.Int
	case ConstReal:
		// Bit comparison so NaN constants still deduplicate.
		return math.Float64bits(c.Real) == math.Float64bits(other.Real)
	case ConstString:
		return c.Str == other.Str
	}
	return true
}

// SourceLocation maps an instruction offset to a source position.
type SourceLocation struct {
	Offset uint32 `cbor:"1,keyasint"`
	Line   uint32 `cbor:"2,keyasint"`
	Column uint32 `cbor:"3,keyasint"`
}

// Prototype is one compiled function: its instruction stream, constant pool
// and upvalue descriptors, plus debug symbols unless they were stripped.
type Prototype struct {
	Name       string              `cbor:"1,keyasint,omitempty"`
	Arity      uint8               `cbor:"2,keyasint"`
	LocalCount uint8               `cbor:"3,keyasint"`
	Upvalues   []UpvalueDescriptor `cbor:"4,keyasint,omitempty"`
	Code       []byte              `cbor:"5,keyasint"`
	Constants  []Constant          `cbor:"6,keyasint,omitempty"`

	// Debug symbols; empty when compiled with strip.
	SourceMap []SourceLocation `cbor:"7,keyasint,omitempty"`
	VarNames  []string         `cbor:"8,keyasint,omitempty"` // slot -> name
}

// ---------------------------------------------------------------------------
// Emission helpers (used by the compiler; a Prototype is immutable after
// compilation finishes)
// ---------------------------------------------------------------------------

// Emit appends a bare opcode.
func (p *Prototype) Emit(op Opcode) {
	p.Code = append(p.Code, byte(op))
}

// EmitWithByte appends an opcode with a one-byte operand.
func (p *Prototype) EmitWithByte(op Opcode, operand uint8) {
	p.Code = append(p.Code, byte(op), operand)
}

// EmitWithUint16 appends an opcode with a big-endian two-byte operand.
func (p *Prototype) EmitWithUint16(op Opcode, operand uint16) {
	p.Code = append(p.Code, byte(op), byte(operand>>8), byte(operand))
}

// AddConstant interns a constant, returning its pool index. Identical
// constants share one entry.
func (p *Prototype) AddConstant(c Constant) (uint16, error) {
	for i, existing := range p.Constants {
		if existing.equal(c) {
			return uint16(i), nil
		}
	}
	if len(p.Constants) >= math.MaxUint16 {
		return 0, fmt.Errorf("constant pool overflow in %q", p.Name)
	}
	p.Constants = append(p.Constants, c)
	return uint16(len(p.Constants) - 1), nil
}

// EmitJump appends a jump instruction with a placeholder offset and returns
// the position of the instruction for later patching.
func (p *Prototype) EmitJump(op Opcode) int {
	pos := len(p.Code)
	p.Code = append(p.Code, byte(op), 0xFF, 0xFF)
	return pos
}

// PatchJump resolves a jump emitted by EmitJump to land on the next
// instruction to be emitted. The operand is the signed distance from the end
// of the jump instruction.
func (p *Prototype) PatchJump(pos int) error {
	delta := len(p.Code) - (pos + 3)
	if delta > math.MaxInt16 {
		return fmt.Errorf("jump distance %d exceeds 16 bits", delta)
	}
	binary.BigEndian.PutUint16(p.Code[pos+1:], uint16(int16(delta)))
	return nil
}

// EmitLoop appends a backward jump targeting an already-emitted offset.
func (p *Prototype) EmitLoop(target int) error {
	delta := target - (len(p.Code) + 3)
	if delta < math.MinInt16 {
		return fmt.Errorf("loop distance %d exceeds 16 bits", delta)
	}
	p.Code = append(p.Code, byte(OpJump), byte(uint16(int16(delta))>>8), byte(uint16(int16(delta))))
	return nil
}

// MarkSource records the source position of the instruction at the given
// code offset. Consecutive marks at the same offset collapse.
func (p *Prototype) MarkSource(offset int, line, column int) {
	if n := len(p.SourceMap); n > 0 && p.SourceMap[n-1].Offset == uint32(offset) {
		p.SourceMap[n-1].Line = uint32(line)
		p.SourceMap[n-1].Column = uint32(column)
		return
	}
	p.SourceMap = append(p.SourceMap, SourceLocation{
		Offset: uint32(offset),
		Line:   uint32(line),
		Column: uint32(column),
	})
}

// GetSourceLocation returns the source position covering an instruction
// offset, or zeros when no debug information is present.
func (p *Prototype) GetSourceLocation(offset uint32) (line, column int) {
	for i := len(p.SourceMap) - 1; i >= 0; i-- {
		if p.SourceMap[i].Offset <= offset {
			return int(p.SourceMap[i].Line), int(p.SourceMap[i].Column)
		}
	}
	return 0, 0
}

// VarName returns the debug name of a local slot, or "".
func (p *Prototype) VarName(slot int) string {
	if slot < len(p.VarNames) {
		return p.VarNames[slot]
	}
	return ""
}

// readUint16 reads a big-endian uint16 operand from the code.
func (p *Prototype) readUint16(offset int) uint16 {
	if offset+1 >= len(p.Code) {
		return 0
	}
	return binary.BigEndian.Uint16(p.Code[offset:])
}

// readInt16 reads a big-endian int16 operand from the code.
func (p *Prototype) readInt16(offset int) int16 {
	return int16(p.readUint16(offset))
}
