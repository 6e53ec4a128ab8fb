package isa

// Opcode is the single byte that tags every instruction in the bytecode
// stream. The set is grounded on original_source/rusty_vm_lib/src/byte_code.rs's
// ByteCodes enum: one concrete opcode per operand-form combination rather
// than one mnemonic with a runtime-dispatched addressing mode, so the
// decoder never has to re-branch on operand shape once it has the opcode.
type Opcode byte

const (
	// Arithmetic: integer
	IntegerAdd Opcode = iota
	IntegerSub
	IntegerMul
	IntegerDiv
	IntegerMod

	// Arithmetic: float
	FloatAdd
	FloatSub
	FloatMul
	FloatDiv
	FloatMod

	// Bitwise
	BitAnd
	BitOr
	BitXor
	BitNot
	ShiftLeft
	ShiftRight
	SwapBytesEndianness

	// Increment / decrement
	IncReg
	IncAddrInReg
	IncAddrLiteral
	DecReg
	DecAddrInReg
	DecAddrLiteral

	NoOperation

	// Move family: destination register
	MoveRegReg
	MoveRegAddrInReg
	MoveRegConst
	MoveRegAddrLiteral

	// Move family: destination address-in-register
	MoveAddrInRegReg
	MoveAddrInRegAddrInReg
	MoveAddrInRegConst
	MoveAddrInRegAddrLiteral

	// Move family: destination address literal
	MoveAddrLiteralReg
	MoveAddrLiteralAddrInReg
	MoveAddrLiteralConst
	MoveAddrLiteralAddrLiteral

	// Bulk memory copy
	MemCopyBlockReg
	MemCopyBlockAddrInReg
	MemCopyBlockConst
	MemCopyBlockAddrLiteral

	// Stack: push
	PushReg
	PushAddrInReg
	PushConst
	PushAddrLiteral

	// Stack: reserve (advance stp without writing)
	PushStackPointerReg
	PushStackPointerAddrInReg
	PushStackPointerConst
	PushStackPointerAddrLiteral

	// Stack: pop
	PopIntoReg
	PopIntoAddrInReg
	PopIntoAddrLiteral

	// Stack: retract (retreat stp without reading)
	PopStackPointerReg
	PopStackPointerAddrInReg
	PopStackPointerConst
	PopStackPointerAddrLiteral

	// Control flow
	Jump
	JumpNotZero
	JumpZero
	JumpGreater
	JumpGreaterOrEqual
	JumpLess
	JumpLessOrEqual
	JumpCarry
	JumpNotCarry
	JumpOverflow
	JumpNotOverflow
	JumpSign
	JumpNotSign

	CallConst
	CallReg
	Return

	// Compare family (sets flags from a-b without storing the result)
	CompareRegReg
	CompareRegAddrInReg
	CompareRegConst
	CompareRegAddrLiteral
	CompareAddrInRegReg
	CompareAddrInRegAddrInReg
	CompareAddrInRegConst
	CompareAddrInRegAddrLiteral
	CompareConstReg
	CompareConstAddrInReg
	CompareConstConst
	CompareConstAddrLiteral
	CompareAddrLiteralReg
	CompareAddrLiteralAddrInReg
	CompareAddrLiteralConst
	CompareAddrLiteralAddrLiteral

	Interrupt
	Breakpoint

	Exit_

	opcodeCount
)

// OpcodeCount is the number of real, executable opcodes. The assembler's
// pseudo-instructions (dn/ds/db/da/offsetfrom/printstr, see asm package) are
// not part of this enum: they never reach the dispatch table, they only
// describe how the emitter lays out literal bytes.
const OpcodeCount = int(opcodeCount)

var opcodeNames = [opcodeCount]string{
	IntegerAdd: "iadd", IntegerSub: "isub", IntegerMul: "imul", IntegerDiv: "idiv", IntegerMod: "imod",
	FloatAdd: "fadd", FloatSub: "fsub", FloatMul: "fmul", FloatDiv: "fdiv", FloatMod: "fmod",
	BitAnd: "and", BitOr: "or", BitXor: "xor", BitNot: "not", ShiftLeft: "shl", ShiftRight: "shr",
	SwapBytesEndianness: "bswap",
	IncReg:              "inc", IncAddrInReg: "inc_addr_in_reg", IncAddrLiteral: "inc_addr_literal",
	DecReg: "dec", DecAddrInReg: "dec_addr_in_reg", DecAddrLiteral: "dec_addr_literal",
	NoOperation: "nop",

	MoveRegReg: "mov_reg_reg", MoveRegAddrInReg: "mov_reg_addrinreg", MoveRegConst: "mov_reg_const", MoveRegAddrLiteral: "mov_reg_addrlit",
	MoveAddrInRegReg: "mov_addrinreg_reg", MoveAddrInRegAddrInReg: "mov_addrinreg_addrinreg", MoveAddrInRegConst: "mov_addrinreg_const", MoveAddrInRegAddrLiteral: "mov_addrinreg_addrlit",
	MoveAddrLiteralReg: "mov_addrlit_reg", MoveAddrLiteralAddrInReg: "mov_addrlit_addrinreg", MoveAddrLiteralConst: "mov_addrlit_const", MoveAddrLiteralAddrLiteral: "mov_addrlit_addrlit",

	MemCopyBlockReg: "memcopy_reg", MemCopyBlockAddrInReg: "memcopy_addrinreg", MemCopyBlockConst: "memcopy_const", MemCopyBlockAddrLiteral: "memcopy_addrlit",

	PushReg: "push_reg", PushAddrInReg: "push_addrinreg", PushConst: "push_const", PushAddrLiteral: "push_addrlit",
	PushStackPointerReg: "pushsp_reg", PushStackPointerAddrInReg: "pushsp_addrinreg", PushStackPointerConst: "pushsp_const", PushStackPointerAddrLiteral: "pushsp_addrlit",
	PopIntoReg: "pop_reg", PopIntoAddrInReg: "pop_addrinreg", PopIntoAddrLiteral: "pop_addrlit",
	PopStackPointerReg: "popsp_reg", PopStackPointerAddrInReg: "popsp_addrinreg", PopStackPointerConst: "popsp_const", PopStackPointerAddrLiteral: "popsp_addrlit",

	Jump: "jmp", JumpNotZero: "jmpnz", JumpZero: "jmpz", JumpGreater: "jmpgr", JumpGreaterOrEqual: "jmpge",
	JumpLess: "jmplt", JumpLessOrEqual: "jmple", JumpCarry: "jmpcr", JumpNotCarry: "jmpncr",
	JumpOverflow: "jmpof", JumpNotOverflow: "jmpnof", JumpSign: "jmpsn", JumpNotSign: "jmpnsn",

	CallConst: "call_const", CallReg: "call_reg", Return: "ret",

	CompareRegReg: "cmp_reg_reg", CompareRegAddrInReg: "cmp_reg_addrinreg", CompareRegConst: "cmp_reg_const", CompareRegAddrLiteral: "cmp_reg_addrlit",
	CompareAddrInRegReg: "cmp_addrinreg_reg", CompareAddrInRegAddrInReg: "cmp_addrinreg_addrinreg", CompareAddrInRegConst: "cmp_addrinreg_const", CompareAddrInRegAddrLiteral: "cmp_addrinreg_addrlit",
	CompareConstReg: "cmp_const_reg", CompareConstAddrInReg: "cmp_const_addrinreg", CompareConstConst: "cmp_const_const", CompareConstAddrLiteral: "cmp_const_addrlit",
	CompareAddrLiteralReg: "cmp_addrlit_reg", CompareAddrLiteralAddrInReg: "cmp_addrlit_addrinreg", CompareAddrLiteralConst: "cmp_addrlit_const", CompareAddrLiteralAddrLiteral: "cmp_addrlit_addrlit",

	Interrupt: "intr", Breakpoint: "breakpoint", Exit_: "exit",
}

func (op Opcode) String() string {
	if int(op) < len(opcodeNames) {
		if n := opcodeNames[op]; n != "" {
			return n
		}
	}
	return "invalid_opcode"
}

// Valid reports whether op names a real, dispatchable opcode.
func (op Opcode) Valid() bool {
	return op < opcodeCount
}

// IsJump reports whether op is part of the jump/call/ret family, for which
// pc is set directly by the handler instead of by the generic
// pc += instruction length path.
func (op Opcode) IsJump() bool {
	return op >= Jump && op <= Return
}
