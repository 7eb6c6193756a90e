package bytecode

import "fmt"

// Opcode represents a bytecode instruction.
// Opcodes are organized into ranges by category for easy identification.
type Opcode byte

const (
	// ========================================================================
	// Stack manipulation (0x00-0x0F)
	// ========================================================================

	OpNop Opcode = 0x00 // No operation
	OpPop Opcode = 0x01 // Pop top of stack
	OpDup Opcode = 0x02 // Duplicate top of stack

	// ========================================================================
	// Constants (0x10-0x1F)
	// ========================================================================

	OpConst Opcode = 0x10 // Push constant from pool: OpConst <index:u16>
	OpNil   Opcode = 0x11 // Push nil
	OpTrue  Opcode = 0x12 // Push true
	OpFalse Opcode = 0x13 // Push false

	// ========================================================================
	// Local variables (0x20-0x2F)
	// ========================================================================

	OpLoadLocal  Opcode = 0x20 // Push local slot: OpLoadLocal <slot:u8>
	OpStoreLocal Opcode = 0x21 // Pop and store to local slot: OpStoreLocal <slot:u8>

	// ========================================================================
	// Upvalues (0x30-0x3F)
	// ========================================================================

	OpLoadUpvalue  Opcode = 0x30 // Push captured cell value: OpLoadUpvalue <index:u8>
	OpStoreUpvalue Opcode = 0x31 // Pop and store into captured cell: OpStoreUpvalue <index:u8>

	// ========================================================================
	// Globals (0x40-0x4F)
	// ========================================================================

	OpLoadGlobal  Opcode = 0x40 // Push global by name: OpLoadGlobal <name_const:u16>
	OpStoreGlobal Opcode = 0x41 // Pop and store global: OpStoreGlobal <name_const:u16>

	// ========================================================================
	// Arithmetic (0x50-0x5F)
	// ========================================================================

	OpAdd Opcode = 0x50 // Pop two, push sum (or string concatenation)
	OpSub Opcode = 0x51 // Pop two, push difference
	OpMul Opcode = 0x52 // Pop two, push product
	OpDiv Opcode = 0x53 // Pop two, push quotient (always Real)
	OpMod Opcode = 0x54 // Pop two, push non-negative remainder
	OpPow Opcode = 0x55 // Pop two, push power (always Real)
	OpNeg Opcode = 0x56 // Negate top of stack

	// ========================================================================
	// Comparison and logic (0x60-0x6F)
	// ========================================================================

	OpEq Opcode = 0x60 // Pop two, push equality
	OpNe Opcode = 0x61 // Pop two, push inequality
	OpLt Opcode = 0x62 // Pop two, push a < b
	OpLe Opcode = 0x63 // Pop two, push a <= b
	OpGt Opcode = 0x64 // Pop two, push a > b
	OpGe Opcode = 0x65 // Pop two, push a >= b

	OpNot Opcode = 0x68 // Boolean NOT of top of stack

	// ========================================================================
	// Lists (0x70-0x7F)
	// ========================================================================

	OpMakeList Opcode = 0x70 // Pop count elements, push list: OpMakeList <count:u16>
	OpIndexGet Opcode = 0x71 // Pop index and list, push element
	OpIndexSet Opcode = 0x72 // Pop value, index and list; store element

	// ========================================================================
	// Control flow (0x80-0x8F)
	// ========================================================================

	OpJump      Opcode = 0x80 // Unconditional jump: OpJump <delta:i16>
	OpJumpTrue  Opcode = 0x81 // Pop Bool, jump if true: OpJumpTrue <delta:i16>
	OpJumpFalse Opcode = 0x82 // Pop Bool, jump if false: OpJumpFalse <delta:i16>

	// ========================================================================
	// Functions (0x90-0x9F)
	// ========================================================================

	OpCall        Opcode = 0x90 // Call callee under argc args: OpCall <argc:u8>
	OpMakeClosure Opcode = 0x91 // Build closure over prototype: OpMakeClosure <proto:u16>

	// ========================================================================
	// Return (0xF0-0xFF)
	// ========================================================================

	OpReturn    Opcode = 0xF0 // Return top of stack from the current frame
	OpReturnNil Opcode = 0xF1 // Return nil
)

// OpcodeInfo provides metadata about each opcode for debugging and validation.
type OpcodeInfo struct {
	Name       string // Human-readable name
	StackPop   int    // How many values popped from stack (-1 = variable)
	StackPush  int    // How many values pushed to stack
	OperandLen int    // Number of operand bytes following the opcode
}

// opcodeInfoTable maps opcodes to their metadata.
var opcodeInfoTable = map[Opcode]OpcodeInfo{
	// Stack manipulation
	OpNop: {"NOP", 0, 0, 0},
	OpPop: {"POP", 1, 0, 0},
	OpDup: {"DUP", 1, 2, 0},

	// Constants
	OpConst: {"CONST", 0, 1, 2},
	OpNil:   {"NIL", 0, 1, 0},
	OpTrue:  {"TRUE", 0, 1, 0},
	OpFalse: {"FALSE", 0, 1, 0},

	// Local variables
	OpLoadLocal:  {"LOAD_LOCAL", 0, 1, 1},
	OpStoreLocal: {"STORE_LOCAL", 1, 0, 1},

	// Upvalues
	OpLoadUpvalue:  {"LOAD_UPVALUE", 0, 1, 1},
	OpStoreUpvalue: {"STORE_UPVALUE", 1, 0, 1},

	// Globals
	OpLoadGlobal:  {"LOAD_GLOBAL", 0, 1, 2},
	OpStoreGlobal: {"STORE_GLOBAL", 1, 0, 2},

	// Arithmetic
	OpAdd: {"ADD", 2, 1, 0},
	OpSub: {"SUB", 2, 1, 0},
	OpMul: {"MUL", 2, 1, 0},
	OpDiv: {"DIV", 2, 1, 0},
	OpMod: {"MOD", 2, 1, 0},
	OpPow: {"POW", 2, 1, 0},
	OpNeg: {"NEG", 1, 1, 0},

	// Comparison and logic
	OpEq:  {"EQ", 2, 1, 0},
	OpNe:  {"NE", 2, 1, 0},
	OpLt:  {"LT", 2, 1, 0},
	OpLe:  {"LE", 2, 1, 0},
	OpGt:  {"GT", 2, 1, 0},
	OpGe:  {"GE", 2, 1, 0},
	OpNot: {"NOT", 1, 1, 0},

	// Lists
	OpMakeList: {"MAKE_LIST", -1, 1, 2},
	OpIndexGet: {"INDEX_GET", 2, 1, 0},
	OpIndexSet: {"INDEX_SET", 3, 0, 0},

	// Control flow
	OpJump:      {"JUMP", 0, 0, 2},
	OpJumpTrue:  {"JUMP_TRUE", 1, 0, 2},
	OpJumpFalse: {"JUMP_FALSE", 1, 0, 2},

	// Functions
	OpCall:        {"CALL", -1, 1, 1},
	OpMakeClosure: {"MAKE_CLOSURE", 0, 1, 2},

	// Return
	OpReturn:    {"RETURN", 1, 0, 0},
	OpReturnNil: {"RETURN_NIL", 0, 0, 0},
}

// GetOpcodeInfo returns metadata for an opcode.
// Returns a zero OpcodeInfo with name "UNKNOWN" if the opcode is not recognized.
func GetOpcodeInfo(op Opcode) OpcodeInfo {
	if info, ok := opcodeInfoTable[op]; ok {
		return info
	}
	return OpcodeInfo{Name: fmt.Sprintf("UNKNOWN(0x%02X)", byte(op)), StackPop: 0, StackPush: 0, OperandLen: 0}
}

// String returns the human-readable name of an opcode.
func (op Opcode) String() string {
	return GetOpcodeInfo(op).Name
}

// OperandLen returns the number of operand bytes for this opcode.
func (op Opcode) OperandLen() int {
	return GetOpcodeInfo(op).OperandLen
}

// InstructionLen returns the total length of an instruction (1 + operand bytes).
func (op Opcode) InstructionLen() int {
	return 1 + op.OperandLen()
}

// IsJump returns true if this opcode is a jump instruction.
func (op Opcode) IsJump() bool {
	return op >= OpJump && op <= OpJumpFalse
}

// IsReturn returns true if this opcode terminates the current frame.
func (op Opcode) IsReturn() bool {
	return op == OpReturn || op == OpReturnNil
}

// AllOpcodes returns a slice of all defined opcodes.
// Useful for testing that all opcodes have metadata.
func AllOpcodes() []Opcode {
	opcodes := make([]Opcode, 0, len(opcodeInfoTable))
	for op := range opcodeInfoTable {
		opcodes = append(opcodes, op)
	}
	return opcodes
}

// OpcodeCount returns the number of defined opcodes.
func OpcodeCount() int {
	return len(opcodeInfoTable)
}
