package asm

import "github.com/nic-obert/rusty-vm/isa"

// bareOpcodes maps mnemonics that take no operands of their own (the
// integer/float ALU family always works on r1/r2, and a handful of
// control opcodes need nothing but the opcode byte) straight to their
// isa.Opcode. Grounded on original_source/rusty_vm_lib/src/byte_code.rs's
// operand-less ByteCodes variants.
var bareOpcodes = map[string]isa.Opcode{
	"iadd": isa.IntegerAdd, "isub": isa.IntegerSub, "imul": isa.IntegerMul, "idiv": isa.IntegerDiv, "imod": isa.IntegerMod,
	"fadd": isa.FloatAdd, "fsub": isa.FloatSub, "fmul": isa.FloatMul, "fdiv": isa.FloatDiv, "fmod": isa.FloatMod,
	"and": isa.BitAnd, "or": isa.BitOr, "xor": isa.BitXor, "not": isa.BitNot, "shl": isa.ShiftLeft, "shr": isa.ShiftRight,
	"nop": isa.NoOperation, "ret": isa.Return, "intr": isa.Interrupt, "breakpoint": isa.Breakpoint, "exit": isa.Exit_,
}

// jumpOpcodes maps the thirteen jump/branch mnemonics, each taking a
// single address-or-label operand, straight to their isa.Opcode.
var jumpOpcodes = map[string]isa.Opcode{
	"jmp": isa.Jump, "jmpnz": isa.JumpNotZero, "jmpz": isa.JumpZero,
	"jmpgr": isa.JumpGreater, "jmpge": isa.JumpGreaterOrEqual,
	"jmplt": isa.JumpLess, "jmple": isa.JumpLessOrEqual,
	"jmpcr": isa.JumpCarry, "jmpncr": isa.JumpNotCarry,
	"jmpof": isa.JumpOverflow, "jmpnof": isa.JumpNotOverflow,
	"jmpsn": isa.JumpSign, "jmpnsn": isa.JumpNotSign,
}

var moveByDst = [4][4]isa.Opcode{
	OperandRegister:    {isa.MoveRegReg, isa.MoveRegAddrInReg, isa.MoveRegConst, isa.MoveRegAddrLiteral},
	OperandAddrInReg:   {isa.MoveAddrInRegReg, isa.MoveAddrInRegAddrInReg, isa.MoveAddrInRegConst, isa.MoveAddrInRegAddrLiteral},
	OperandAddrLiteral: {isa.MoveAddrLiteralReg, isa.MoveAddrLiteralAddrInReg, isa.MoveAddrLiteralConst, isa.MoveAddrLiteralAddrLiteral},
}

var compareByOperands = [4][4]isa.Opcode{
	OperandRegister: {isa.CompareRegReg, isa.CompareRegAddrInReg, isa.CompareRegConst, isa.CompareRegAddrLiteral},
	OperandAddrInReg: {isa.CompareAddrInRegReg, isa.CompareAddrInRegAddrInReg, isa.CompareAddrInRegConst, isa.CompareAddrInRegAddrLiteral},
	OperandImmediate: {isa.CompareConstReg, isa.CompareConstAddrInReg, isa.CompareConstConst, isa.CompareConstAddrLiteral},
	OperandAddrLiteral: {isa.CompareAddrLiteralReg, isa.CompareAddrLiteralAddrInReg, isa.CompareAddrLiteralConst, isa.CompareAddrLiteralAddrLiteral},
}

var pushBySrc = [4]isa.Opcode{isa.PushReg, isa.PushAddrInReg, isa.PushConst, isa.PushAddrLiteral}
var pushStackPointerBySrc = [4]isa.Opcode{isa.PushStackPointerReg, isa.PushStackPointerAddrInReg, isa.PushStackPointerConst, isa.PushStackPointerAddrLiteral}
var popStackPointerBySrc = [4]isa.Opcode{isa.PopStackPointerReg, isa.PopStackPointerAddrInReg, isa.PopStackPointerConst, isa.PopStackPointerAddrLiteral}
var memCopyCountBySrc = [4]isa.Opcode{isa.MemCopyBlockReg, isa.MemCopyBlockAddrInReg, isa.MemCopyBlockConst, isa.MemCopyBlockAddrLiteral}

// popByDst has no entry for OperandImmediate: popping into a constant is
// not a legal destination.
var popByDst = map[OperandKind]isa.Opcode{
	OperandRegister:    isa.PopIntoReg,
	OperandAddrInReg:   isa.PopIntoAddrInReg,
	OperandAddrLiteral: isa.PopIntoAddrLiteral,
}

var incByDst = map[OperandKind]isa.Opcode{
	OperandAddrInReg:   isa.IncAddrInReg,
	OperandAddrLiteral: isa.IncAddrLiteral,
}

var decByDst = map[OperandKind]isa.Opcode{
	OperandAddrInReg:   isa.DecAddrInReg,
	OperandAddrLiteral: isa.DecAddrLiteral,
}
