// Package isa holds the definitions shared by the assembler and the
// processor: the register file layout, the opcode and interrupt enums, the
// runtime error codes, and the little-endian bytecode helpers. Neither the
// assembler nor the processor owns these — both depend on them — so they
// live in their own package the way rusty_vm_lib sits underneath both the
// assembler and the vm crates in the original sources.
package isa

// Register indexes a single 64-bit slot in the VM's register file.
//
// The ordering below resolves the inconsistency the original README left
// between its table and its prose: r1..r8, exit, input, error, print, int,
// stp, pc, sbp, pep, zf, sf, rf, cf, of.
type Register byte

const (
	R1 Register = iota
	R2
	R3
	R4
	R5
	R6
	R7
	R8

	Exit
	Input
	Error
	Print
	Int

	Stp
	Pc
	Sbp
	Pep

	Zf
	Sf
	Rf
	Cf
	Of

	RegisterCount
)

// GeneralPurposeRegisterCount is the number of r1..r8 slots.
const GeneralPurposeRegisterCount = int(R8) + 1

var registerNames = [RegisterCount]string{
	R1: "r1", R2: "r2", R3: "r3", R4: "r4",
	R5: "r5", R6: "r6", R7: "r7", R8: "r8",
	Exit: "exit", Input: "input", Error: "error", Print: "print", Int: "int",
	Stp: "stp", Pc: "pc", Sbp: "sbp", Pep: "pep",
	Zf: "zf", Sf: "sf", Rf: "rf", Cf: "cf", Of: "of",
}

func (r Register) String() string {
	if r < RegisterCount {
		return registerNames[r]
	}
	return "invalid_register"
}

// Valid reports whether r is a legal register index.
func (r Register) Valid() bool {
	return r < RegisterCount
}

// RegisterFromName returns the register named by name, and whether it
// exists. Names are case-sensitive, matching the assembler's mnemonics.
func RegisterFromName(name string) (Register, bool) {
	for i, n := range registerNames {
		if n == name {
			return Register(i), true
		}
	}
	return 0, false
}

// IsFlagRegister reports whether r is one of the five flag registers.
func (r Register) IsFlagRegister() bool {
	return r >= Zf && r <= Of
}
