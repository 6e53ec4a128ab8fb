package vm

import "github.com/nic-obert/rusty-vm/isa"

// execInterrupt reads the `int` register and dispatches to the matching
// host module handler.
func (p *Processor) execInterrupt() error {
	code := isa.InterruptCode(p.regs.Get(isa.Int))
	if !code.Valid() {
		p.regs.SetError(isa.InvalidInput)
		return nil
	}
	return p.host.Dispatch(code, p)
}

// execBreakpoint raises the debug trap: it halts the fetch/decode/execute
// loop exactly as if the caller had called Step one instruction at a
// time, so an attached debugger (vm/debugipc) can inspect state before
// resuming. Grounded on debug_monitor.go's freeze/resume state machine,
// adapted from a GUI freeze flag to the onBreakpoint callback an embedder
// installs with SetBreakpointHandler.
func (p *Processor) execBreakpoint() error {
	p.halted = true
	p.breakHit = true
	if p.onBreakpoint != nil {
		p.onBreakpoint(p)
	}
	return nil
}

func (p *Processor) execExit() error {
	p.halted = true
	return nil
}
