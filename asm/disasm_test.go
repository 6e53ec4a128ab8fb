package asm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nic-obert/rusty-vm/isa"
)

func TestDisassembleOneBareOpcode(t *testing.T) {
	code := []byte{byte(isa.Exit_)}
	text, n, err := DisassembleOne(code, 0)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), n)
	assert.Contains(t, text, "exit")
}

func TestDisassembleOneReturnHasNoOperand(t *testing.T) {
	code := []byte{byte(isa.Return), byte(isa.Exit_)}
	text, n, err := DisassembleOne(code, 0)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), n)
	assert.NotContains(t, text, "0x")

	// decoding the next instruction must land exactly on the second byte
	text2, n2, err := DisassembleOne(code, n)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), n2)
	assert.Contains(t, text2, "exit")
}

func TestDisassembleOneCompareConsumesBothOperands(t *testing.T) {
	code := make([]byte, 0, 11)
	code = append(code, byte(isa.CompareRegConst), byte(isa.Size8), byte(isa.R1))
	imm := make([]byte, 8)
	isa.PutUint(imm, isa.Size8, 7)
	code = append(code, imm...)

	text, n, err := DisassembleOne(code, 0)
	require.NoError(t, err)
	assert.Equal(t, uint64(len(code)), n)
	assert.Contains(t, text, "7")
}

func TestDisassembleOneMoveRegConst(t *testing.T) {
	code := make([]byte, 0, 11)
	code = append(code, byte(isa.MoveRegConst), byte(isa.Size8), byte(isa.R1))
	imm := make([]byte, 8)
	isa.PutUint(imm, isa.Size8, 1234)
	code = append(code, imm...)

	text, n, err := DisassembleOne(code, 0)
	require.NoError(t, err)
	assert.Equal(t, uint64(11), n)
	assert.Contains(t, text, "1234")
}

func TestDisassembleOneTruncatedInstruction(t *testing.T) {
	code := []byte{byte(isa.MoveRegConst), byte(isa.Size8), byte(isa.R1)}
	_, _, err := DisassembleOne(code, 0)
	assert.Error(t, err)
}

func TestDisassembleOneInvalidOpcode(t *testing.T) {
	code := []byte{0xFF}
	_, _, err := DisassembleOne(code, 0)
	assert.Error(t, err)
}
