package vm

import (
	"fmt"

	"github.com/nic-obert/rusty-vm/isa"
)

// Host is the interface the processor calls into for every `intr`
// instruction. *HostModules is the only production implementation;
// tests substitute a narrower fake to exercise the dispatch opcode in
// isolation.
type Host interface {
	Dispatch(code isa.InterruptCode, p *Processor) error
}

// Processor is the fetch/decode/execute core: a register file, a flat
// memory image, and a dispatch table from isa.Opcode to handler.
// Grounded on cpu_ie64.go's Execute loop, generalized from a 64-bit-only
// ALU to the sized-operand family this ISA requires and from an unsafe
// memory cast to vm.Memory's bounds-checked accessors.
type Processor struct {
	regs RegisterFile
	mem  *Memory
	host Host

	halted   bool
	breakHit bool

	// onBreakpoint, when set, is invoked synchronously every time a
	// breakpoint opcode executes, before Run returns control to its
	// caller. The debug IPC server uses this to mark its run as stopped.
	onBreakpoint func(*Processor)

	// onStep, when set, is invoked after every instruction, for verbose
	// tracing (-v on the rvm CLI).
	onStep func(pc uint64, op isa.Opcode)

	dispatch [isa.OpcodeCount]func(*Processor) error
}

// NewProcessor builds a processor over mem, dispatching interrupts to
// host. The caller is responsible for loading a program into mem and
// setting pc/sbp/stp/pep before calling Run or Step (see Loader).
func NewProcessor(mem *Memory, host Host) *Processor {
	p := &Processor{mem: mem, host: host}
	p.buildDispatchTable()
	return p
}

// Registers exposes the register file for the loader, the debug IPC
// server, and tests; the processor itself only ever touches it through
// p.regs.
func (p *Processor) Registers() *RegisterFile { return &p.regs }

// Memory exposes the flat memory image for the same callers.
func (p *Processor) Memory() *Memory { return p.mem }

// Halted reports whether the last Step halted the loop, either via the
// exit opcode or a breakpoint trap.
func (p *Processor) Halted() bool { return p.halted }

// BreakpointHit reports whether the halt was specifically a breakpoint
// trap (as opposed to exit), and clears the flag.
func (p *Processor) BreakpointHit() bool {
	hit := p.breakHit
	p.breakHit = false
	return hit
}

// Resume clears the halted flag so Run can continue past a breakpoint.
func (p *Processor) Resume() { p.halted = false }

// SetBreakpointHandler installs the hook execBreakpoint invokes.
func (p *Processor) SetBreakpointHandler(f func(*Processor)) { p.onBreakpoint = f }

// SetStepHandler installs a per-instruction trace hook.
func (p *Processor) SetStepHandler(f func(pc uint64, op isa.Opcode)) { p.onStep = f }

// Run executes instructions until halted becomes true (exit or
// breakpoint) or an error occurs. A non-nil error always indicates a
// catastrophic fault: a malformed instruction stream, an out-of-bounds
// fetch, or a stack underflow, never an ordinary
// runtime condition (those are reported through the error register and
// Run keeps going).
func (p *Processor) Run() error {
	for !p.halted {
		if err := p.Step(); err != nil {
			return err
		}
	}
	return nil
}

// Step executes exactly one instruction.
func (p *Processor) Step() error {
	if p.host != nil {
		if hm, ok := p.host.(*HostModules); ok {
			if handler, fired := hm.timerFired(); fired {
				p.regs.Set(isa.Pc, handler)
			}
		}
	}

	pc := p.regs.Get(isa.Pc)
	opByte, err := p.fetchByte()
	if err != nil {
		return err
	}
	op := isa.Opcode(opByte)
	if !op.Valid() {
		return fmt.Errorf("invalid opcode %#x at address %#x", opByte, pc)
	}

	handler := p.dispatch[op]
	if handler == nil {
		return fmt.Errorf("unimplemented opcode %s at address %#x", op, pc)
	}
	if err := handler(p); err != nil {
		return fmt.Errorf("executing %s at %#x: %w", op, pc, err)
	}

	if p.onStep != nil {
		p.onStep(pc, op)
	}
	return nil
}

func (p *Processor) buildDispatchTable() {
	d := &p.dispatch

	d[isa.IntegerAdd] = (*Processor).execIntegerAdd
	d[isa.IntegerSub] = (*Processor).execIntegerSub
	d[isa.IntegerMul] = (*Processor).execIntegerMul
	d[isa.IntegerDiv] = (*Processor).execIntegerDiv
	d[isa.IntegerMod] = (*Processor).execIntegerMod

	d[isa.FloatAdd] = (*Processor).execFloatAdd
	d[isa.FloatSub] = (*Processor).execFloatSub
	d[isa.FloatMul] = (*Processor).execFloatMul
	d[isa.FloatDiv] = (*Processor).execFloatDiv
	d[isa.FloatMod] = (*Processor).execFloatMod

	d[isa.BitAnd] = (*Processor).execBitAnd
	d[isa.BitOr] = (*Processor).execBitOr
	d[isa.BitXor] = (*Processor).execBitXor
	d[isa.BitNot] = (*Processor).execBitNot
	d[isa.ShiftLeft] = (*Processor).execShiftLeft
	d[isa.ShiftRight] = (*Processor).execShiftRight
	d[isa.SwapBytesEndianness] = (*Processor).execSwapBytesEndianness

	d[isa.IncReg] = (*Processor).execIncReg
	d[isa.IncAddrInReg] = (*Processor).execIncAddrInReg
	d[isa.IncAddrLiteral] = (*Processor).execIncAddrLiteral
	d[isa.DecReg] = (*Processor).execDecReg
	d[isa.DecAddrInReg] = (*Processor).execDecAddrInReg
	d[isa.DecAddrLiteral] = (*Processor).execDecAddrLiteral

	d[isa.NoOperation] = (*Processor).execNoOperation

	d[isa.MoveRegReg] = (*Processor).execMoveRegReg
	d[isa.MoveRegAddrInReg] = (*Processor).execMoveRegAddrInReg
	d[isa.MoveRegConst] = (*Processor).execMoveRegConst
	d[isa.MoveRegAddrLiteral] = (*Processor).execMoveRegAddrLiteral
	d[isa.MoveAddrInRegReg] = (*Processor).execMoveAddrInRegReg
	d[isa.MoveAddrInRegAddrInReg] = (*Processor).execMoveAddrInRegAddrInReg
	d[isa.MoveAddrInRegConst] = (*Processor).execMoveAddrInRegConst
	d[isa.MoveAddrInRegAddrLiteral] = (*Processor).execMoveAddrInRegAddrLiteral
	d[isa.MoveAddrLiteralReg] = (*Processor).execMoveAddrLiteralReg
	d[isa.MoveAddrLiteralAddrInReg] = (*Processor).execMoveAddrLiteralAddrInReg
	d[isa.MoveAddrLiteralConst] = (*Processor).execMoveAddrLiteralConst
	d[isa.MoveAddrLiteralAddrLiteral] = (*Processor).execMoveAddrLiteralAddrLiteral

	d[isa.MemCopyBlockReg] = (*Processor).execMemCopyBlockReg
	d[isa.MemCopyBlockAddrInReg] = (*Processor).execMemCopyBlockAddrInReg
	d[isa.MemCopyBlockConst] = (*Processor).execMemCopyBlockConst
	d[isa.MemCopyBlockAddrLiteral] = (*Processor).execMemCopyBlockAddrLiteral

	d[isa.PushReg] = (*Processor).execPushReg
	d[isa.PushAddrInReg] = (*Processor).execPushAddrInReg
	d[isa.PushConst] = (*Processor).execPushConst
	d[isa.PushAddrLiteral] = (*Processor).execPushAddrLiteral
	d[isa.PushStackPointerReg] = (*Processor).execPushStackPointerReg
	d[isa.PushStackPointerAddrInReg] = (*Processor).execPushStackPointerAddrInReg
	d[isa.PushStackPointerConst] = (*Processor).execPushStackPointerConst
	d[isa.PushStackPointerAddrLiteral] = (*Processor).execPushStackPointerAddrLiteral
	d[isa.PopIntoReg] = (*Processor).execPopIntoReg
	d[isa.PopIntoAddrInReg] = (*Processor).execPopIntoAddrInReg
	d[isa.PopIntoAddrLiteral] = (*Processor).execPopIntoAddrLiteral
	d[isa.PopStackPointerReg] = (*Processor).execPopStackPointerReg
	d[isa.PopStackPointerAddrInReg] = (*Processor).execPopStackPointerAddrInReg
	d[isa.PopStackPointerConst] = (*Processor).execPopStackPointerConst
	d[isa.PopStackPointerAddrLiteral] = (*Processor).execPopStackPointerAddrLiteral

	d[isa.Jump] = (*Processor).execJump
	d[isa.JumpNotZero] = (*Processor).execJumpNotZero
	d[isa.JumpZero] = (*Processor).execJumpZero
	d[isa.JumpGreater] = (*Processor).execJumpGreater
	d[isa.JumpGreaterOrEqual] = (*Processor).execJumpGreaterOrEqual
	d[isa.JumpLess] = (*Processor).execJumpLess
	d[isa.JumpLessOrEqual] = (*Processor).execJumpLessOrEqual
	d[isa.JumpCarry] = (*Processor).execJumpCarry
	d[isa.JumpNotCarry] = (*Processor).execJumpNotCarry
	d[isa.JumpOverflow] = (*Processor).execJumpOverflow
	d[isa.JumpNotOverflow] = (*Processor).execJumpNotOverflow
	d[isa.JumpSign] = (*Processor).execJumpSign
	d[isa.JumpNotSign] = (*Processor).execJumpNotSign

	d[isa.CallConst] = (*Processor).execCallConst
	d[isa.CallReg] = (*Processor).execCallReg
	d[isa.Return] = (*Processor).execReturn

	d[isa.CompareRegReg] = (*Processor).execCompareRegReg
	d[isa.CompareRegAddrInReg] = (*Processor).execCompareRegAddrInReg
	d[isa.CompareRegConst] = (*Processor).execCompareRegConst
	d[isa.CompareRegAddrLiteral] = (*Processor).execCompareRegAddrLiteral
	d[isa.CompareAddrInRegReg] = (*Processor).execCompareAddrInRegReg
	d[isa.CompareAddrInRegAddrInReg] = (*Processor).execCompareAddrInRegAddrInReg
	d[isa.CompareAddrInRegConst] = (*Processor).execCompareAddrInRegConst
	d[isa.CompareAddrInRegAddrLiteral] = (*Processor).execCompareAddrInRegAddrLiteral
	d[isa.CompareConstReg] = (*Processor).execCompareConstReg
	d[isa.CompareConstAddrInReg] = (*Processor).execCompareConstAddrInReg
	d[isa.CompareConstConst] = (*Processor).execCompareConstConst
	d[isa.CompareConstAddrLiteral] = (*Processor).execCompareConstAddrLiteral
	d[isa.CompareAddrLiteralReg] = (*Processor).execCompareAddrLiteralReg
	d[isa.CompareAddrLiteralAddrInReg] = (*Processor).execCompareAddrLiteralAddrInReg
	d[isa.CompareAddrLiteralConst] = (*Processor).execCompareAddrLiteralConst
	d[isa.CompareAddrLiteralAddrLiteral] = (*Processor).execCompareAddrLiteralAddrLiteral

	d[isa.Interrupt] = (*Processor).execInterrupt
	d[isa.Breakpoint] = (*Processor).execBreakpoint
	d[isa.Exit_] = (*Processor).execExit
}
