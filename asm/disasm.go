package asm

import (
	"fmt"

	"github.com/nic-obert/rusty-vm/isa"
)

// DisassembleOne decodes exactly one instruction from code starting at
// offset, returning its textual form and its encoded length in bytes.
// It is deliberately minimal, not a full disassembler: it produces a
// readable one-line mnemonic, not round-trippable source. The rvm CLI's
// -v trace and the debug IPC server do not call it; the -v trace logs
// only the opcode name.
func DisassembleOne(code []byte, offset uint64) (string, uint64, error) {
	if offset >= uint64(len(code)) {
		return "", 0, fmt.Errorf("offset %#x out of range", offset)
	}
	op := isa.Opcode(code[offset])
	if !op.Valid() {
		return "", 0, fmt.Errorf("invalid opcode %#x at %#x", code[offset], offset)
	}

	pos := offset + 1
	text := op.String()

	readByte := func() (byte, error) {
		if pos >= uint64(len(code)) {
			return 0, fmt.Errorf("truncated instruction at %#x", offset)
		}
		b := code[pos]
		pos++
		return b, nil
	}
	readReg := func() (string, error) {
		b, err := readByte()
		if err != nil {
			return "", err
		}
		return isa.Register(b).String(), nil
	}
	readAddr := func() (uint64, error) {
		if pos+8 > uint64(len(code)) {
			return 0, fmt.Errorf("truncated address at %#x", offset)
		}
		v := isa.Endian.Uint64(code[pos : pos+8])
		pos += 8
		return v, nil
	}

	hasSize := opcodeHasSizeTag(op)
	var size isa.SizeTag = isa.Size8
	if hasSize {
		b, err := readByte()
		if err != nil {
			return "", 0, err
		}
		if !isa.ValidSizeTag(b) {
			return "", 0, fmt.Errorf("invalid size tag %#x at %#x", b, offset)
		}
		size = isa.SizeTag(b)
		text += fmt.Sprintf("%d", size)
	}

	for _, kind := range operandKindsOf(op) {
		switch kind {
		case OperandRegister, OperandAddrInReg:
			r, err := readReg()
			if err != nil {
				return "", 0, err
			}
			if kind == OperandAddrInReg {
				text += fmt.Sprintf(" [%s]", r)
			} else {
				text += fmt.Sprintf(" %s", r)
			}
		case OperandAddrLiteral:
			a, err := readAddr()
			if err != nil {
				return "", 0, err
			}
			text += fmt.Sprintf(" [%#x]", a)
		case OperandImmediate:
			if hasSize {
				if pos+uint64(size) > uint64(len(code)) {
					return "", 0, fmt.Errorf("truncated immediate at %#x", offset)
				}
				v := isa.GetUint(code[pos:pos+uint64(size)], size)
				pos += uint64(size)
				text += fmt.Sprintf(" %d", v)
			} else {
				v, err := readAddr()
				if err != nil {
					return "", 0, err
				}
				text += fmt.Sprintf(" %d", v)
			}
		}
	}

	return text, pos - offset, nil
}

func opcodeHasSizeTag(op isa.Opcode) bool {
	switch {
	case op >= isa.MoveRegReg && op <= isa.MoveAddrLiteralAddrLiteral:
		return true
	case op >= isa.PushReg && op <= isa.PushAddrLiteral:
		return true
	case op >= isa.PopIntoReg && op <= isa.PopIntoAddrLiteral:
		return true
	case op >= isa.CompareRegReg && op <= isa.CompareAddrLiteralAddrLiteral:
		return true
	case op == isa.SwapBytesEndianness:
		return true
	case op == isa.IncAddrInReg || op == isa.IncAddrLiteral || op == isa.DecAddrInReg || op == isa.DecAddrLiteral:
		return true
	default:
		return false
	}
}

// operandKindsOf returns the fixed operand-kind shape for opcodes whose
// decode order this function knows about. It covers the families the
// rvm CLI's trace output cares about; opcodes not listed here decode
// with zero operands (correct for the bare ALU/control family, and
// harmless -- just under-descriptive -- for anything this table misses).
func operandKindsOf(op isa.Opcode) []OperandKind {
	switch op {
	case isa.IncReg, isa.DecReg:
		return []OperandKind{OperandRegister}
	case isa.IncAddrInReg, isa.DecAddrInReg:
		return []OperandKind{OperandAddrInReg}
	case isa.IncAddrLiteral, isa.DecAddrLiteral:
		return []OperandKind{OperandAddrLiteral}
	case isa.SwapBytesEndianness:
		return []OperandKind{OperandRegister}

	case isa.MoveRegReg:
		return []OperandKind{OperandRegister, OperandRegister}
	case isa.MoveRegAddrInReg:
		return []OperandKind{OperandRegister, OperandAddrInReg}
	case isa.MoveRegConst:
		return []OperandKind{OperandRegister, OperandImmediate}
	case isa.MoveRegAddrLiteral:
		return []OperandKind{OperandRegister, OperandAddrLiteral}
	case isa.MoveAddrInRegReg:
		return []OperandKind{OperandAddrInReg, OperandRegister}
	case isa.MoveAddrInRegAddrInReg:
		return []OperandKind{OperandAddrInReg, OperandAddrInReg}
	case isa.MoveAddrInRegConst:
		return []OperandKind{OperandAddrInReg, OperandImmediate}
	case isa.MoveAddrInRegAddrLiteral:
		return []OperandKind{OperandAddrInReg, OperandAddrLiteral}
	case isa.MoveAddrLiteralReg:
		return []OperandKind{OperandAddrLiteral, OperandRegister}
	case isa.MoveAddrLiteralAddrInReg:
		return []OperandKind{OperandAddrLiteral, OperandAddrInReg}
	case isa.MoveAddrLiteralConst:
		return []OperandKind{OperandAddrLiteral, OperandImmediate}
	case isa.MoveAddrLiteralAddrLiteral:
		return []OperandKind{OperandAddrLiteral, OperandAddrLiteral}

	case isa.PushReg:
		return []OperandKind{OperandRegister}
	case isa.PushAddrInReg:
		return []OperandKind{OperandAddrInReg}
	case isa.PushConst:
		return []OperandKind{OperandImmediate}
	case isa.PushAddrLiteral:
		return []OperandKind{OperandAddrLiteral}

	case isa.PopIntoReg:
		return []OperandKind{OperandRegister}
	case isa.PopIntoAddrInReg:
		return []OperandKind{OperandAddrInReg}
	case isa.PopIntoAddrLiteral:
		return []OperandKind{OperandAddrLiteral}

	case isa.PushStackPointerReg, isa.PopStackPointerReg:
		return []OperandKind{OperandRegister}
	case isa.PushStackPointerAddrInReg, isa.PopStackPointerAddrInReg:
		return []OperandKind{OperandAddrInReg}
	case isa.PushStackPointerConst, isa.PopStackPointerConst:
		return []OperandKind{OperandImmediate}
	case isa.PushStackPointerAddrLiteral, isa.PopStackPointerAddrLiteral:
		return []OperandKind{OperandAddrLiteral}

	case isa.MemCopyBlockReg:
		return []OperandKind{OperandRegister, OperandRegister, OperandRegister}
	case isa.MemCopyBlockAddrInReg:
		return []OperandKind{OperandRegister, OperandRegister, OperandAddrInReg}
	case isa.MemCopyBlockConst:
		return []OperandKind{OperandRegister, OperandRegister, OperandImmediate}
	case isa.MemCopyBlockAddrLiteral:
		return []OperandKind{OperandRegister, OperandRegister, OperandAddrLiteral}

	case isa.CompareRegReg:
		return []OperandKind{OperandRegister, OperandRegister}
	case isa.CompareRegAddrInReg:
		return []OperandKind{OperandRegister, OperandAddrInReg}
	case isa.CompareRegConst:
		return []OperandKind{OperandRegister, OperandImmediate}
	case isa.CompareRegAddrLiteral:
		return []OperandKind{OperandRegister, OperandAddrLiteral}
	case isa.CompareAddrInRegReg:
		return []OperandKind{OperandAddrInReg, OperandRegister}
	case isa.CompareAddrInRegAddrInReg:
		return []OperandKind{OperandAddrInReg, OperandAddrInReg}
	case isa.CompareAddrInRegConst:
		return []OperandKind{OperandAddrInReg, OperandImmediate}
	case isa.CompareAddrInRegAddrLiteral:
		return []OperandKind{OperandAddrInReg, OperandAddrLiteral}
	case isa.CompareConstReg:
		return []OperandKind{OperandImmediate, OperandRegister}
	case isa.CompareConstAddrInReg:
		return []OperandKind{OperandImmediate, OperandAddrInReg}
	case isa.CompareConstConst:
		return []OperandKind{OperandImmediate, OperandImmediate}
	case isa.CompareConstAddrLiteral:
		return []OperandKind{OperandImmediate, OperandAddrLiteral}
	case isa.CompareAddrLiteralReg:
		return []OperandKind{OperandAddrLiteral, OperandRegister}
	case isa.CompareAddrLiteralAddrInReg:
		return []OperandKind{OperandAddrLiteral, OperandAddrInReg}
	case isa.CompareAddrLiteralConst:
		return []OperandKind{OperandAddrLiteral, OperandImmediate}
	case isa.CompareAddrLiteralAddrLiteral:
		return []OperandKind{OperandAddrLiteral, OperandAddrLiteral}

	case isa.CallConst:
		return []OperandKind{OperandImmediate}
	case isa.CallReg:
		return []OperandKind{OperandRegister}
	case isa.Return:
		return nil

	default:
		if op.IsJump() {
			return []OperandKind{OperandImmediate}
		}
		return nil
	}
}
