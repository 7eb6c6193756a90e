package bytecode

import (
	"fmt"
	"strings"
)

// Disassemble renders a whole program as assembly-like text, one section per
// prototype.
func Disassemble(program *Program) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "; hissy bytecode, format version %d\n", program.Version)
	if program.HasDebug() {
		sb.WriteString("; debug symbols present\n")
	}
	for i, proto := range program.Protos {
		sb.WriteByte('\n')
		sb.WriteString(DisassemblePrototype(proto, i))
	}
	return sb.String()
}

// DisassemblePrototype renders one function: header, constant pool, upvalue
// descriptors, then the instruction listing.
func DisassemblePrototype(p *Prototype, index int) string {
	var sb strings.Builder

	name := p.Name
	if name == "" {
		name = fmt.Sprintf("proto_%d", index)
	}
	fmt.Fprintf(&sb, "; === %s ===\n", name)
	fmt.Fprintf(&sb, "; arity=%d locals=%d code=%d bytes\n", p.Arity, p.LocalCount, len(p.Code))

	if len(p.Constants) > 0 {
		sb.WriteString("; constants:\n")
		for i, c := range p.Constants {
			fmt.Fprintf(&sb, ";   [%d] %s\n", i, c.Value().Repr())
		}
	}
	if len(p.Upvalues) > 0 {
		sb.WriteString("; upvalues:\n")
		for i, uv := range p.Upvalues {
			if uv.Name != "" {
				fmt.Fprintf(&sb, ";   [%d] %s %d (%s)\n", i, uv.Source, uv.Index, uv.Name)
			} else {
				fmt.Fprintf(&sb, ";   [%d] %s %d\n", i, uv.Source, uv.Index)
			}
		}
	}

	for offset := 0; offset < len(p.Code); {
		text, next := FormatInstruction(p, offset)
		sb.WriteString(text)
		sb.WriteByte('\n')
		offset = next
	}
	return sb.String()
}

// FormatInstruction renders the instruction at offset and returns the offset
// of the next instruction. Used by both the disassembler and the VM tracer.
func FormatInstruction(p *Prototype, offset int) (string, int) {
	op := Opcode(p.Code[offset])
	info := GetOpcodeInfo(op)
	if offset+info.OperandLen >= len(p.Code) {
		return fmt.Sprintf("%04X  %s <truncated>", offset, info.Name), len(p.Code)
	}

	var operand string
	switch op {
	case OpConst:
		idx := p.readUint16(offset + 1)
		if int(idx) < len(p.Constants) {
			operand = fmt.Sprintf("%d  ; %s", idx, p.Constants[idx].Value().Repr())
		} else {
			operand = fmt.Sprintf("%d  ; <bad index>", idx)
		}
	case OpLoadGlobal, OpStoreGlobal:
		idx := p.readUint16(offset + 1)
		if int(idx) < len(p.Constants) {
			operand = fmt.Sprintf("%d  ; %s", idx, p.Constants[idx].Value().Repr())
		} else {
			operand = fmt.Sprintf("%d", idx)
		}
	case OpLoadLocal, OpStoreLocal:
		slot := int(p.Code[offset+1])
		if name := p.VarName(slot); name != "" {
			operand = fmt.Sprintf("%d  ; %s", slot, name)
		} else {
			operand = fmt.Sprintf("%d", slot)
		}
	case OpLoadUpvalue, OpStoreUpvalue:
		idx := int(p.Code[offset+1])
		if idx < len(p.Upvalues) && p.Upvalues[idx].Name != "" {
			operand = fmt.Sprintf("%d  ; %s", idx, p.Upvalues[idx].Name)
		} else {
			operand = fmt.Sprintf("%d", idx)
		}
	case OpJump, OpJumpTrue, OpJumpFalse:
		delta := p.readInt16(offset + 1)
		target := offset + 3 + int(delta)
		operand = fmt.Sprintf("%+d  ; -> %04X", delta, target)
	case OpMakeList, OpMakeClosure:
		operand = fmt.Sprintf("%d", p.readUint16(offset+1))
	case OpCall:
		operand = fmt.Sprintf("%d", p.Code[offset+1])
	default:
		switch info.OperandLen {
		case 1:
			operand = fmt.Sprintf("%d", p.Code[offset+1])
		case 2:
			operand = fmt.Sprintf("%d", p.readUint16(offset+1))
		}
	}

	if operand == "" {
		return fmt.Sprintf("%04X  %s", offset, info.Name), offset + 1 + info.OperandLen
	}
	return fmt.Sprintf("%04X  %-14s %s", offset, info.Name, operand), offset + 1 + info.OperandLen
}
