package vm

import (
	"fmt"

	"github.com/nic-obert/rusty-vm/isa"
)

// The stack grows upward from sbp: stp always holds the address one past
// the last occupied byte. pep holds the address past the end of the
// region reserved for the stack (set by the loader from Loader.StackSize,
// the rvm CLI's -s flag); pushing past it reports StackOverflow
// through the error register rather than faulting the whole VM, since a
// program can legitimately check the error register and recover.
func (p *Processor) stackLimit() uint64 {
	if pep := p.regs.Get(isa.Pep); pep != 0 {
		return pep
	}
	return p.mem.Size()
}

func (p *Processor) pushValue(size isa.SizeTag, v uint64) error {
	stp := p.regs.Get(isa.Stp)
	if stp+uint64(size) > p.stackLimit() {
		p.regs.SetError(isa.StackOverflow)
		return nil
	}
	if err := p.mem.WriteSized(stp, size, v); err != nil {
		return p.recoverableFault(err)
	}
	p.regs.Set(isa.Stp, stp+uint64(size))
	return nil
}

// pushBytes writes b onto the stack one byte at a time and advances stp by
// len(b), for host calls that hand back a variable-length result (an
// INPUT_STRING line, say) rather than a single sized value.
func (p *Processor) pushBytes(b []byte) error {
	stp := p.regs.Get(isa.Stp)
	if stp+uint64(len(b)) > p.stackLimit() {
		p.regs.SetError(isa.StackOverflow)
		return nil
	}
	if err := p.mem.WriteBytes(stp, b); err != nil {
		return p.recoverableFault(err)
	}
	p.regs.Set(isa.Stp, stp+uint64(len(b)))
	return nil
}

func (p *Processor) reserveStack(n uint64) error {
	stp := p.regs.Get(isa.Stp)
	if stp+n > p.stackLimit() {
		p.regs.SetError(isa.StackOverflow)
		return nil
	}
	p.regs.Set(isa.Stp, stp+n)
	return nil
}

// stackUnderflow reports a pop/retract that would reach below sbp. Unlike
// pushing past pep, this can only happen if the program's own call/return
// and push/pop nesting is unbalanced, not from any input the program can
// validate beforehand, so it is a catastrophic fault rather than an
// error-register outcome: it halts the VM instead of letting execution
// continue on a corrupt stack.
func stackUnderflow(stp, sbp, n uint64) error {
	return fmt.Errorf("stack underflow: popping %d bytes at stp=%#x, sbp=%#x", n, stp, sbp)
}

func (p *Processor) popValue(size isa.SizeTag) (uint64, error) {
	stp := p.regs.Get(isa.Stp)
	sbp := p.regs.Get(isa.Sbp)
	if stp < sbp+uint64(size) {
		return 0, stackUnderflow(stp, sbp, uint64(size))
	}
	newStp := stp - uint64(size)
	v, err := p.mem.ReadSized(newStp, size)
	if err != nil {
		return 0, p.recoverableFault(err)
	}
	p.regs.Set(isa.Stp, newStp)
	return v, nil
}

func (p *Processor) retractStack(n uint64) error {
	stp := p.regs.Get(isa.Stp)
	sbp := p.regs.Get(isa.Sbp)
	if stp < sbp+n {
		return stackUnderflow(stp, sbp, n)
	}
	p.regs.Set(isa.Stp, stp-n)
	return nil
}

func (p *Processor) execPushReg() error {
	size, err := p.fetchSizeTag()
	if err != nil {
		return err
	}
	reg, err := p.fetchRegister()
	if err != nil {
		return err
	}
	return p.pushValue(size, p.regs.GetSized(reg, size))
}

func (p *Processor) execPushAddrInReg() error {
	size, err := p.fetchSizeTag()
	if err != nil {
		return err
	}
	addrReg, err := p.fetchRegister()
	if err != nil {
		return err
	}
	v, err := p.mem.ReadSized(p.regs.Get(addrReg), size)
	if err != nil {
		return p.recoverableFault(err)
	}
	return p.pushValue(size, v)
}

func (p *Processor) execPushConst() error {
	size, err := p.fetchSizeTag()
	if err != nil {
		return err
	}
	v, err := p.fetchImmediate(size)
	if err != nil {
		return err
	}
	return p.pushValue(size, v)
}

func (p *Processor) execPushAddrLiteral() error {
	size, err := p.fetchSizeTag()
	if err != nil {
		return err
	}
	addr, err := p.fetchAddress()
	if err != nil {
		return err
	}
	v, err := p.mem.ReadSized(addr, size)
	if err != nil {
		return p.recoverableFault(err)
	}
	return p.pushValue(size, v)
}

func (p *Processor) execPushStackPointerReg() error {
	reg, err := p.fetchRegister()
	if err != nil {
		return err
	}
	return p.reserveStack(p.regs.Get(reg))
}

func (p *Processor) execPushStackPointerAddrInReg() error {
	addrReg, err := p.fetchRegister()
	if err != nil {
		return err
	}
	n, err := p.mem.ReadSized(p.regs.Get(addrReg), isa.Size8)
	if err != nil {
		return p.recoverableFault(err)
	}
	return p.reserveStack(n)
}

func (p *Processor) execPushStackPointerConst() error {
	n, err := p.fetchAddress()
	if err != nil {
		return err
	}
	return p.reserveStack(n)
}

func (p *Processor) execPushStackPointerAddrLiteral() error {
	addr, err := p.fetchAddress()
	if err != nil {
		return err
	}
	n, err := p.mem.ReadSized(addr, isa.Size8)
	if err != nil {
		return p.recoverableFault(err)
	}
	return p.reserveStack(n)
}

func (p *Processor) execPopIntoReg() error {
	size, err := p.fetchSizeTag()
	if err != nil {
		return err
	}
	reg, err := p.fetchRegister()
	if err != nil {
		return err
	}
	v, err := p.popValue(size)
	if err != nil {
		return err
	}
	p.regs.SetSized(reg, size, v)
	return nil
}

func (p *Processor) execPopIntoAddrInReg() error {
	size, err := p.fetchSizeTag()
	if err != nil {
		return err
	}
	addrReg, err := p.fetchRegister()
	if err != nil {
		return err
	}
	v, err := p.popValue(size)
	if err != nil {
		return err
	}
	if err := p.mem.WriteSized(p.regs.Get(addrReg), size, v); err != nil {
		return p.recoverableFault(err)
	}
	return nil
}

func (p *Processor) execPopIntoAddrLiteral() error {
	size, err := p.fetchSizeTag()
	if err != nil {
		return err
	}
	addr, err := p.fetchAddress()
	if err != nil {
		return err
	}
	v, err := p.popValue(size)
	if err != nil {
		return err
	}
	if err := p.mem.WriteSized(addr, size, v); err != nil {
		return p.recoverableFault(err)
	}
	return nil
}

func (p *Processor) execPopStackPointerReg() error {
	reg, err := p.fetchRegister()
	if err != nil {
		return err
	}
	return p.retractStack(p.regs.Get(reg))
}

func (p *Processor) execPopStackPointerAddrInReg() error {
	addrReg, err := p.fetchRegister()
	if err != nil {
		return err
	}
	n, err := p.mem.ReadSized(p.regs.Get(addrReg), isa.Size8)
	if err != nil {
		return p.recoverableFault(err)
	}
	return p.retractStack(n)
}

func (p *Processor) execPopStackPointerConst() error {
	n, err := p.fetchAddress()
	if err != nil {
		return err
	}
	return p.retractStack(n)
}

func (p *Processor) execPopStackPointerAddrLiteral() error {
	addr, err := p.fetchAddress()
	if err != nil {
		return err
	}
	n, err := p.mem.ReadSized(addr, isa.Size8)
	if err != nil {
		return p.recoverableFault(err)
	}
	return p.retractStack(n)
}

// execCallConst and execCallReg push the return address (the address of
// the instruction following the call) and jump.
func (p *Processor) execCallConst() error {
	target, err := p.fetchAddress()
	if err != nil {
		return err
	}
	if err := p.pushValue(isa.Size8, p.regs.Get(isa.Pc)); err != nil {
		return err
	}
	p.regs.Set(isa.Pc, target)
	return nil
}

func (p *Processor) execCallReg() error {
	reg, err := p.fetchRegister()
	if err != nil {
		return err
	}
	target := p.regs.Get(reg)
	if err := p.pushValue(isa.Size8, p.regs.Get(isa.Pc)); err != nil {
		return err
	}
	p.regs.Set(isa.Pc, target)
	return nil
}

func (p *Processor) execReturn() error {
	ret, err := p.popValue(isa.Size8)
	if err != nil {
		return err
	}
	p.regs.Set(isa.Pc, ret)
	return nil
}
