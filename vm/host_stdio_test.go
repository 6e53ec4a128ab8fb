package vm

import (
	"bufio"
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nic-obert/rusty-vm/isa"
)

func newStdioHost(stdin string) (*HostModules, *bytes.Buffer) {
	var out bytes.Buffer
	return &HostModules{
		Stdout: &out,
		Stdin:  bufio.NewReader(strings.NewReader(stdin)),
	}, &out
}

func TestPrintSignedReadsPrintRegisterNotR1(t *testing.T) {
	p, _ := newTestProcessor(t)
	host, out := newStdioHost("")
	p.Registers().Set(isa.R1, 999)
	negSeven := int64(-7)
	p.Registers().Set(isa.Print, uint64(negSeven))

	require.NoError(t, host.handlePrintSigned(p))
	assert.Equal(t, isa.NoError, p.Registers().GetError())
	assert.Equal(t, "-7", out.String())
}

func TestPrintUnsignedUsesPrintRegister(t *testing.T) {
	p, _ := newTestProcessor(t)
	host, out := newStdioHost("")
	p.Registers().Set(isa.Print, 42)

	require.NoError(t, host.handlePrintUnsigned(p))
	assert.Equal(t, "42", out.String())
}

func TestPrintStringReadsNulTerminatedBytesFromPrintAddress(t *testing.T) {
	p, _ := newTestProcessor(t)
	host, out := newStdioHost("")
	require.NoError(t, p.Memory().WriteBytes(100, append([]byte("hi"), 0)))
	p.Registers().Set(isa.Print, 100)

	require.NoError(t, host.handlePrintString(p))
	assert.Equal(t, isa.NoError, p.Registers().GetError())
	assert.Equal(t, "hi", out.String())
}

func TestPrintBytesUsesR1ForCountAndPrintForAddress(t *testing.T) {
	p, _ := newTestProcessor(t)
	host, out := newStdioHost("")
	require.NoError(t, p.Memory().WriteBytes(200, []byte("hello world")))
	p.Registers().Set(isa.Print, 200)
	p.Registers().Set(isa.R1, 5)

	require.NoError(t, host.handlePrintBytes(p))
	assert.Equal(t, "hello", out.String())
}

func TestInputSignedReadsIntoInputRegister(t *testing.T) {
	p, _ := newTestProcessor(t)
	host, _ := newStdioHost("-123\n")

	require.NoError(t, host.handleInputSigned(p))
	assert.Equal(t, isa.NoError, p.Registers().GetError())
	negOneTwoThree := int64(-123)
	assert.Equal(t, uint64(negOneTwoThree), p.Registers().Get(isa.Input))
}

// handleInputString has no caller-owned buffer to write into: the bytes it
// reads go onto the stack, and input/r1 report where they landed.
func TestInputStringPushesBytesAndReportsAddressAndLength(t *testing.T) {
	p, _ := newTestProcessor(t)
	host, _ := newStdioHost("hello\n")
	stpBefore := p.Registers().Get(isa.Stp)

	require.NoError(t, host.handleInputString(p))
	assert.Equal(t, isa.NoError, p.Registers().GetError())
	assert.Equal(t, stpBefore, p.Registers().Get(isa.Input))
	assert.Equal(t, uint64(5), p.Registers().Get(isa.R1))
	assert.Equal(t, stpBefore+5, p.Registers().Get(isa.Stp))

	got, err := p.Memory().ReadBytes(stpBefore, 5)
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), got)
}

func TestInputStringReportsStackOverflowWithoutCorruptingStp(t *testing.T) {
	p, _ := newTestProcessor(t)
	host, _ := newStdioHost(strings.Repeat("x", 8192) + "\n")
	stpBefore := p.Registers().Get(isa.Stp)

	require.NoError(t, host.handleInputString(p))
	assert.Equal(t, isa.StackOverflow, p.Registers().GetError())
	assert.Equal(t, stpBefore, p.Registers().Get(isa.Stp))
}
