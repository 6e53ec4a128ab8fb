package vm

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nic-obert/rusty-vm/isa"
)

// fakeHost records every dispatched interrupt code instead of touching
// any real stdio/filesystem state, so the processor tests can assert on
// dispatch without a live terminal or disk.
type fakeHost struct {
	dispatched []isa.InterruptCode
}

func (h *fakeHost) Dispatch(code isa.InterruptCode, p *Processor) error {
	h.dispatched = append(h.dispatched, code)
	p.Registers().SetError(isa.NoError)
	return nil
}

func newTestProcessor(t *testing.T) (*Processor, *fakeHost) {
	t.Helper()
	mem := NewMemory(4096)
	host := &fakeHost{}
	p := NewProcessor(mem, host)
	p.Registers().Set(isa.Stp, 2048)
	p.Registers().Set(isa.Sbp, 2048)
	p.Registers().Set(isa.Pep, 4096)
	return p, host
}

func writeProgram(t *testing.T, p *Processor, bytes []byte) {
	t.Helper()
	require.NoError(t, p.Memory().WriteBytes(0, bytes))
	p.Registers().Set(isa.Pc, 0)
}

func TestIntegerAddSetsR1AndFlags(t *testing.T) {
	p, _ := newTestProcessor(t)
	p.Registers().Set(isa.R1, 40)
	p.Registers().Set(isa.R2, 2)
	writeProgram(t, p, []byte{byte(isa.IntegerAdd), byte(isa.Exit_)})

	require.NoError(t, p.Step())

	assert.Equal(t, uint64(42), p.Registers().Get(isa.R1))
	assert.Equal(t, uint64(0), p.Registers().Get(isa.Zf))
}

func TestIntegerDivByZeroSetsErrorRegister(t *testing.T) {
	p, _ := newTestProcessor(t)
	p.Registers().Set(isa.R1, 10)
	p.Registers().Set(isa.R2, 0)
	writeProgram(t, p, []byte{byte(isa.IntegerDiv)})

	require.NoError(t, p.Step())

	assert.Equal(t, isa.ZeroDivision, p.Registers().GetError())
}

func TestMoveRegConstIsSizedAndZeroExtends(t *testing.T) {
	p, _ := newTestProcessor(t)
	p.Registers().Set(isa.R1, 0xFFFFFFFFFFFFFFFF)
	writeProgram(t, p, []byte{
		byte(isa.MoveRegConst), byte(isa.Size1), byte(isa.R1), 0x07,
	})

	require.NoError(t, p.Step())

	assert.Equal(t, uint64(0x07), p.Registers().Get(isa.R1))
}

func TestPushThenPopRoundTrips(t *testing.T) {
	p, _ := newTestProcessor(t)
	p.Registers().Set(isa.R1, 0x1122334455667788)
	writeProgram(t, p, []byte{
		byte(isa.PushReg), byte(isa.Size8), byte(isa.R1),
		byte(isa.PopIntoReg), byte(isa.Size8), byte(isa.R2),
	})

	require.NoError(t, p.Step())
	assert.Equal(t, uint64(2048+8), p.Registers().Get(isa.Stp))

	require.NoError(t, p.Step())
	assert.Equal(t, uint64(2048), p.Registers().Get(isa.Stp))
	assert.Equal(t, uint64(0x1122334455667788), p.Registers().Get(isa.R2))
}

func TestCallPushesReturnAddressAndRetRestoresIt(t *testing.T) {
	p, _ := newTestProcessor(t)
	var prog [32]byte
	prog[0] = byte(isa.CallConst)
	isa.Endian.PutUint64(prog[1:9], 20)
	prog[9] = byte(isa.Exit_)
	prog[20] = byte(isa.Return)
	writeProgram(t, p, prog[:])

	require.NoError(t, p.Step()) // call -> jumps to 20
	assert.Equal(t, uint64(20), p.Registers().Get(isa.Pc))

	require.NoError(t, p.Step()) // ret -> back to address 9 (right after the call)
	assert.Equal(t, uint64(9), p.Registers().Get(isa.Pc))
}

func TestCompareRegConstSetsZeroFlagOnEquality(t *testing.T) {
	p, _ := newTestProcessor(t)
	p.Registers().Set(isa.R1, 5)
	writeProgram(t, p, []byte{
		byte(isa.CompareRegConst), byte(isa.Size1), byte(isa.R1), 5,
	})

	require.NoError(t, p.Step())

	assert.Equal(t, uint64(1), p.Registers().Get(isa.Zf))
}

func TestJumpZeroFollowsWhenZeroFlagSet(t *testing.T) {
	p, _ := newTestProcessor(t)
	var prog [32]byte
	prog[0] = byte(isa.CompareRegConst)
	prog[1] = byte(isa.Size1)
	prog[2] = byte(isa.R1)
	prog[3] = 0
	prog[4] = byte(isa.JumpZero)
	isa.Endian.PutUint64(prog[5:13], 24)
	writeProgram(t, p, prog[:])

	require.NoError(t, p.Step())
	require.NoError(t, p.Step())

	assert.Equal(t, uint64(24), p.Registers().Get(isa.Pc))
}

func TestInterruptDispatchesToHost(t *testing.T) {
	p, host := newTestProcessor(t)
	p.Registers().Set(isa.Int, uint64(isa.Random))
	writeProgram(t, p, []byte{byte(isa.Interrupt)})

	require.NoError(t, p.Step())

	require.Len(t, host.dispatched, 1)
	assert.Equal(t, isa.Random, host.dispatched[0])
}

func TestExitHalts(t *testing.T) {
	p, _ := newTestProcessor(t)
	p.Registers().Set(isa.Exit, 7)
	writeProgram(t, p, []byte{byte(isa.Exit_)})

	require.NoError(t, p.Run())

	assert.True(t, p.Halted())
	assert.Equal(t, uint64(7), p.Registers().Get(isa.Exit))
}

func TestBreakpointHaltsAndInvokesHandler(t *testing.T) {
	p, _ := newTestProcessor(t)
	var hit bool
	p.SetBreakpointHandler(func(*Processor) { hit = true })
	writeProgram(t, p, []byte{byte(isa.Breakpoint), byte(isa.Exit_)})

	require.NoError(t, p.Step())

	assert.True(t, hit)
	assert.True(t, p.BreakpointHit())
	assert.True(t, p.Halted())
}

func TestJumpGreaterOrEqualNotTakenBelowThreshold(t *testing.T) {
	p, _ := newTestProcessor(t)
	negOne := int64(-1)
	p.Registers().Set(isa.R1, uint64(negOne))
	var prog [32]byte
	prog[0] = byte(isa.CompareRegConst)
	prog[1] = byte(isa.Size8)
	prog[2] = byte(isa.R1)
	isa.Endian.PutUint64(prog[3:11], 1)
	prog[11] = byte(isa.JumpGreaterOrEqual)
	isa.Endian.PutUint64(prog[12:20], 24)
	writeProgram(t, p, prog[:])

	require.NoError(t, p.Step()) // cmp r1, 1  ->  -1 - 1 = -2, sf=1, of=0
	require.NoError(t, p.Step())

	assert.Equal(t, uint64(20), p.Registers().Get(isa.Pc), "jmpge must not jump when r1 < 1")
}

func TestJumpLessTakesBranchOnOverflowedComparison(t *testing.T) {
	p, _ := newTestProcessor(t)
	minInt64 := int64(math.MinInt64)
	p.Registers().Set(isa.R1, uint64(minInt64))
	var prog [32]byte
	prog[0] = byte(isa.CompareRegConst)
	prog[1] = byte(isa.Size8)
	prog[2] = byte(isa.R1)
	isa.Endian.PutUint64(prog[3:11], 1)
	prog[11] = byte(isa.JumpLess)
	isa.Endian.PutUint64(prog[12:20], 24)
	writeProgram(t, p, prog[:])

	require.NoError(t, p.Step()) // cmp r1, 1 -> MinInt64 - 1 overflows: sf=0, of=1
	require.NoError(t, p.Step())

	assert.Equal(t, uint64(24), p.Registers().Get(isa.Pc),
		"jmplt must use sf!=of, not bare sf, to survive the subtraction's own overflow")
}

func TestIntegerDivStoresActualRemainder(t *testing.T) {
	p, _ := newTestProcessor(t)
	p.Registers().Set(isa.R1, 17)
	p.Registers().Set(isa.R2, 5)
	writeProgram(t, p, []byte{byte(isa.IntegerDiv)})

	require.NoError(t, p.Step())

	assert.Equal(t, uint64(3), p.Registers().Get(isa.R1))
	assert.Equal(t, uint64(2), p.Registers().Get(isa.Rf))
}

func TestIntegerModClearsRemainderFlagUnconditionally(t *testing.T) {
	p, _ := newTestProcessor(t)
	p.Registers().Set(isa.Rf, 99)
	p.Registers().Set(isa.R1, 17)
	p.Registers().Set(isa.R2, 5)
	writeProgram(t, p, []byte{byte(isa.IntegerMod)})

	require.NoError(t, p.Step())

	assert.Equal(t, uint64(2), p.Registers().Get(isa.R1))
	assert.Equal(t, uint64(0), p.Registers().Get(isa.Rf))
}

func TestOutOfBoundsMoveSetsErrorRegisterAndContinues(t *testing.T) {
	p, _ := newTestProcessor(t)
	p.Registers().Set(isa.R1, 1<<40) // well past the 4096-byte test memory
	var prog [32]byte
	prog[0] = byte(isa.MoveRegAddrInReg)
	prog[1] = byte(isa.Size8)
	prog[2] = byte(isa.R2)
	prog[3] = byte(isa.R1)
	prog[4] = byte(isa.Exit_)
	writeProgram(t, p, prog[:5])

	require.NoError(t, p.Step(), "an out-of-bounds access from running bytecode must not halt the VM")

	assert.Equal(t, isa.OutOfBounds, p.Registers().GetError())
	assert.Equal(t, uint64(4), p.Registers().Get(isa.Pc), "execution continues past the faulting instruction")
}

func TestStackUnderflowHaltsTheProcessor(t *testing.T) {
	p, _ := newTestProcessor(t)
	writeProgram(t, p, []byte{byte(isa.PopIntoReg), byte(isa.Size8), byte(isa.R1)})

	err := p.Step()

	require.Error(t, err, "popping below sbp is a catastrophic fault, not a recoverable runtime error")
}

func TestMemCopyBlockConstCopiesBytes(t *testing.T) {
	p, _ := newTestProcessor(t)
	require.NoError(t, p.Memory().WriteBytes(100, []byte("hello")))
	var prog [32]byte
	prog[0] = byte(isa.MemCopyBlockConst)
	prog[1] = byte(isa.R1)
	prog[2] = byte(isa.R2)
	isa.Endian.PutUint64(prog[3:11], 5)
	p.Registers().Set(isa.R1, 200)
	p.Registers().Set(isa.R2, 100)
	writeProgram(t, p, prog[:11])

	require.NoError(t, p.Step())

	got, err := p.Memory().ReadBytes(200, 5)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(got))
}
