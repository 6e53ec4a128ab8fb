package asm

import "github.com/nic-obert/rusty-vm/isa"

// Section names the three memory regions a program's items are assigned
// to via the .data/.text/.bss directives.
type Section int

const (
	SectionText Section = iota
	SectionData
	SectionBss
)

func (s Section) String() string {
	switch s {
	case SectionText:
		return ".text"
	case SectionData:
		return ".data"
	case SectionBss:
		return ".bss"
	default:
		return ".unknown"
	}
}

// OperandKind classifies one decoded operand's addressing form.
type OperandKind int

// The ordering here (register, address-in-register, immediate,
// address-literal) matches the order isa.Opcode's move and compare
// families enumerate their four operand shapes in, so resolveMove and
// resolveCompare can index straight into mnemonics.go's moveByDst and
// compareByOperands tables instead of switching.
const (
	OperandRegister OperandKind = iota
	OperandAddrInReg
	OperandImmediate
	OperandAddrLiteral
)

// Operand is one decoded instruction argument. Label/name references
// (bare identifiers, or identifiers inside brackets) carry their name in
// Label and are resolved to a concrete address by the backend's address
// pass; Value is valid once resolved (or immediately, for literal
// numbers).
type Operand struct {
	Kind  OperandKind
	Reg   isa.Register
	Value uint64
	Label string // nonempty if this operand names a label instead of a literal
	Tok   Token
}

// Item is one parsed element of the program: an instruction, a label
// definition, or a data/reservation directive. The backend's two passes
// (address assignment, then emission) both walk a flat []Item per
// section.
type Item struct {
	Tok     Token
	Section Section

	// Label, if nonempty, is a label defined at this item's address
	// (from "name:"). Anon is true for an anonymous "&:" label. Exported
	// is true when the definition was written "@name:", marking it visible
	// to whatever file .includes this one.
	Label    string
	Anon     bool
	Exported bool

	Instruction *Instruction
	Data        *DataDirective
}

// Instruction is one resolved opcode plus its decoded operands, not yet
// assigned an address.
type Instruction struct {
	Op       isa.Opcode
	Size     isa.SizeTag // zero if this opcode carries no size tag
	HasSize  bool
	Operands []Operand
}

// DataDirective covers the pseudo-instructions that lay out literal
// bytes or reserve space: db (bytes), dn (numbers, sized), ds (reserve
// N bytes, zero-filled), da (address-sized pointer constants), and
// offsetfrom (a label-relative computed constant: this item's own address
// minus the named label's address). Grounded on ie64asm.go's directive
// set, renamed to the mnemonics original_source's assembler uses. Used
// inside .text, every one of these is preceded by an assembler-inserted
// unconditional jump (see Parser.emitTextData) so the literal bytes it
// lays down are never reached as instructions.
type DataDirective struct {
	Kind   DataKind
	Size   isa.SizeTag
	Bytes  []byte   // db
	Values []uint64 // dn, da (after resolution) literal operand values
	Labels []string // dn/da operands that name a label instead of a literal

	Count uint64 // ds

	OffsetFromLabel string // offsetfrom
}

type DataKind int

const (
	DataBytes DataKind = iota
	DataNumbers
	DataReserve
	DataAddresses
	DataOffsetFrom
)
