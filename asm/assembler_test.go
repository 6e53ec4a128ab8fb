package asm

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/nic-obert/rusty-vm/isa"
)

func assembleString(t *testing.T, src string) []byte {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "main.asm")
	require.NoError(t, os.WriteFile(path, []byte(src), 0o644))

	a := NewAssembler(Options{EntryLabel: "main"}, zap.NewNop())
	out, err := a.AssembleFile(path)
	require.NoError(t, err)
	return out
}

func TestAssembleMinimalProgram(t *testing.T) {
	out := assembleString(t, "main:\n\texit\n")

	require.Len(t, out, isa.OpcodeSize+isa.EntryAddressSize)
	assert.Equal(t, byte(isa.Exit_), out[0])
	entry := isa.Endian.Uint64(out[len(out)-isa.EntryAddressSize:])
	assert.Equal(t, uint64(0), entry)
}

func TestAssembleMoveAndArithmetic(t *testing.T) {
	out := assembleString(t, `
main:
	mov8 r1, 40
	mov8 r2, 2
	iadd
	exit
`)
	// mov8 r1,40 -> 1(op)+1(size)+1(reg)+8(imm) = 11 bytes
	// mov8 r2,2  -> 11 bytes
	// iadd -> 1 byte
	// exit -> 1 byte
	require.Len(t, out, 11+11+1+1+isa.EntryAddressSize)
	assert.Equal(t, byte(isa.MoveRegConst), out[0])
	assert.Equal(t, byte(isa.Size8), out[1])
	assert.Equal(t, byte(isa.R1), out[2])
	assert.Equal(t, uint64(40), isa.Endian.Uint64(out[3:11]))
}

func TestAssembleForwardJump(t *testing.T) {
	out := assembleString(t, `
main:
	jmp skip
	exit
skip:
	exit
`)
	// jmp skip -> 1(op)+8(addr) = 9 bytes, then a 1-byte exit, so skip
	// (the instruction after that) lands at address 10.
	require.Equal(t, byte(isa.Jump), out[0])
	target := isa.Endian.Uint64(out[1:9])
	assert.Equal(t, uint64(10), target)
}

func TestInlineMacroExpansion(t *testing.T) {
	out := assembleString(t, `
%%- WIDTH: 320
main:
	mov8 r1, =WIDTH
	exit
`)
	assert.Equal(t, uint64(320), isa.Endian.Uint64(out[3:11]))
}

func TestInlineMacroExpansionIsRecursive(t *testing.T) {
	out := assembleString(t, `
%- BASE: 320
%%- WIDTH: =BASE
main:
	mov8 r1, =WIDTH
	exit
`)
	assert.Equal(t, uint64(320), isa.Endian.Uint64(out[3:11]))
}

func TestParametricMacroExpansion(t *testing.T) {
	out := assembleString(t, `
%% setreg target value:
	mov8 {target}, {value}
%endmacro
main:
	!setreg r1 99
	exit
`)
	assert.Equal(t, byte(isa.MoveRegConst), out[0])
	assert.Equal(t, byte(isa.R1), out[2])
	assert.Equal(t, uint64(99), isa.Endian.Uint64(out[3:11]))
}

func TestParametricMacroInvocationAcceptsBracketedArgument(t *testing.T) {
	out := assembleString(t, `
%% load dst src:
	mov8 {dst}, {src}
%endmacro
main:
	!load r1 [r2]
	exit
`)
	assert.Equal(t, byte(isa.MoveRegAddrInReg), out[0])
}

func TestDataBytesDirective(t *testing.T) {
	out := assembleString(t, `
main:
	exit
.data
msg: db "hi", 0
`)
	require.True(t, len(out) >= 1+3+isa.EntryAddressSize)
	assert.Equal(t, []byte("hi\x00"), out[1:4])
}

func TestOffsetFromComputesSignedDelta(t *testing.T) {
	out := assembleString(t, `
main:
	exit
.data
label1: db 1, 2, 3
label2:
	offsetfrom label1
`)
	require.True(t, len(out) >= 1+3+8)
	got := int64(isa.Endian.Uint64(out[4:12]))
	assert.Equal(t, int64(3), got)
}

func TestDataBytesInsideTextIsGuardedByAJump(t *testing.T) {
	out := assembleString(t, `
main:
	jmp after
msg: db "hi", 0
after:
	exit
`)
	// jmp after (9 bytes) jumps straight past an assembler-inserted guard
	// jump plus the "hi\0" bytes it protects.
	require.Equal(t, byte(isa.Jump), out[0])
	afterTarget := isa.Endian.Uint64(out[1:9])

	require.Equal(t, byte(isa.Jump), out[9], "db inside .text must be preceded by a generated guard jump")
	skipTarget := isa.Endian.Uint64(out[10:18])
	assert.Equal(t, []byte("hi\x00"), out[18:21])
	assert.Equal(t, uint64(21), skipTarget)
	assert.Equal(t, uint64(21), afterTarget)
	assert.Equal(t, byte(isa.Exit_), out[21])
}

func TestPrintStrExpandsToGuardedDataAndPrintSequence(t *testing.T) {
	out := assembleString(t, `
main:
	printstr "hi"
	exit
`)
	require.Equal(t, byte(isa.Jump), out[0])
	skipTarget := isa.Endian.Uint64(out[1:9])
	assert.Equal(t, uint64(12), skipTarget)
	assert.Equal(t, []byte("hi\x00"), out[9:12])

	assert.Equal(t, byte(isa.MoveRegConst), out[12])
	assert.Equal(t, byte(isa.Size1), out[13])
	assert.Equal(t, byte(isa.Int), out[14])
	assert.Equal(t, byte(isa.PrintString), out[15])

	assert.Equal(t, byte(isa.MoveRegConst), out[16])
	assert.Equal(t, byte(isa.Size8), out[17])
	assert.Equal(t, byte(isa.Print), out[18])
	assert.Equal(t, uint64(9), isa.Endian.Uint64(out[19:27]))

	assert.Equal(t, byte(isa.Interrupt), out[27])
	assert.Equal(t, byte(isa.Exit_), out[28])
}

func TestExportedLabelParsesAndResolves(t *testing.T) {
	out := assembleString(t, `
@main:
	jmp skip
	exit
skip:
	exit
`)
	require.Equal(t, byte(isa.Jump), out[0])
	target := isa.Endian.Uint64(out[1:9])
	assert.Equal(t, uint64(10), target)
}

func TestAnonymousLabelResolvesForward(t *testing.T) {
	out := assembleString(t, `
main:
	jmp &
&:
	exit
`)
	target := isa.Endian.Uint64(out[1:9])
	assert.Equal(t, uint64(9), target)
}
