package vm

// recoverableFault turns a *Fault raised by a direct memory access (as
// opposed to an instruction-stream fetch) into an error-register report:
// it copies the fault's code into the error register and returns nil, so
// the instruction that triggered it finishes and execution continues,
// exactly as a running program touching a bad address is meant to
// observe. Any other error is not expected at this layer and is
// returned unchanged so it still halts the VM rather than being
// silently swallowed. Only vm/decode.go's fetch helpers, which read the
// instruction stream itself rather than program data, let a *Fault
// escape as a real error and halt the VM.
func (p *Processor) recoverableFault(err error) error {
	if f, ok := err.(*Fault); ok {
		p.regs.SetError(f.Code)
		return nil
	}
	return err
}
