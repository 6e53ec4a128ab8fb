package vm

import "github.com/nic-obert/rusty-vm/isa"

// --- shared source/destination operand readers ---
//
// The move and compare families both range over the same four operand
// shapes (register, address-in-register, immediate constant, address
// literal); these helpers decode one such shape at a time so each of the
// twelve move and sixteen compare opcodes reduces to "read destination,
// read source, apply".

func (p *Processor) readRegValue(size isa.SizeTag) (uint64, error) {
	reg, err := p.fetchRegister()
	if err != nil {
		return 0, err
	}
	return p.regs.GetSized(reg, size), nil
}

func (p *Processor) readAddrInRegValue(size isa.SizeTag) (uint64, error) {
	addrReg, err := p.fetchRegister()
	if err != nil {
		return 0, err
	}
	v, err := p.mem.ReadSized(p.regs.Get(addrReg), size)
	if err != nil {
		return 0, p.recoverableFault(err)
	}
	return v, nil
}

func (p *Processor) readConstValue(size isa.SizeTag) (uint64, error) {
	return p.fetchImmediate(size)
}

func (p *Processor) readAddrLiteralValue(size isa.SizeTag) (uint64, error) {
	addr, err := p.fetchAddress()
	if err != nil {
		return 0, err
	}
	v, err := p.mem.ReadSized(addr, size)
	if err != nil {
		return 0, p.recoverableFault(err)
	}
	return v, nil
}

// --- move family ---

func (p *Processor) execMoveRegReg() error { return p.moveIntoReg(p.readRegValue) }
func (p *Processor) execMoveRegAddrInReg() error {
	return p.moveIntoReg(p.readAddrInRegValue)
}
func (p *Processor) execMoveRegConst() error      { return p.moveIntoReg(p.readConstValue) }
func (p *Processor) execMoveRegAddrLiteral() error {
	return p.moveIntoReg(p.readAddrLiteralValue)
}

func (p *Processor) moveIntoReg(readSrc func(isa.SizeTag) (uint64, error)) error {
	size, err := p.fetchSizeTag()
	if err != nil {
		return err
	}
	dst, err := p.fetchRegister()
	if err != nil {
		return err
	}
	v, err := readSrc(size)
	if err != nil {
		return err
	}
	p.regs.SetSized(dst, size, v)
	return nil
}

func (p *Processor) execMoveAddrInRegReg() error {
	return p.moveIntoAddrInReg(p.readRegValue)
}
func (p *Processor) execMoveAddrInRegAddrInReg() error {
	return p.moveIntoAddrInReg(p.readAddrInRegValue)
}
func (p *Processor) execMoveAddrInRegConst() error {
	return p.moveIntoAddrInReg(p.readConstValue)
}
func (p *Processor) execMoveAddrInRegAddrLiteral() error {
	return p.moveIntoAddrInReg(p.readAddrLiteralValue)
}

func (p *Processor) moveIntoAddrInReg(readSrc func(isa.SizeTag) (uint64, error)) error {
	size, err := p.fetchSizeTag()
	if err != nil {
		return err
	}
	dstReg, err := p.fetchRegister()
	if err != nil {
		return err
	}
	v, err := readSrc(size)
	if err != nil {
		return err
	}
	if err := p.mem.WriteSized(p.regs.Get(dstReg), size, v); err != nil {
		return p.recoverableFault(err)
	}
	return nil
}

func (p *Processor) execMoveAddrLiteralReg() error {
	return p.moveIntoAddrLiteral(p.readRegValue)
}
func (p *Processor) execMoveAddrLiteralAddrInReg() error {
	return p.moveIntoAddrLiteral(p.readAddrInRegValue)
}
func (p *Processor) execMoveAddrLiteralConst() error {
	return p.moveIntoAddrLiteral(p.readConstValue)
}
func (p *Processor) execMoveAddrLiteralAddrLiteral() error {
	return p.moveIntoAddrLiteral(p.readAddrLiteralValue)
}

func (p *Processor) moveIntoAddrLiteral(readSrc func(isa.SizeTag) (uint64, error)) error {
	size, err := p.fetchSizeTag()
	if err != nil {
		return err
	}
	dstAddr, err := p.fetchAddress()
	if err != nil {
		return err
	}
	v, err := readSrc(size)
	if err != nil {
		return err
	}
	if err := p.mem.WriteSized(dstAddr, size, v); err != nil {
		return p.recoverableFault(err)
	}
	return nil
}

// --- bulk memory copy ---
//
// dst and src are always address registers; the four opcodes vary only in
// where the byte count comes from.

func (p *Processor) execMemCopyBlockReg() error {
	return p.memCopyBlock(func() (uint64, error) {
		reg, err := p.fetchRegister()
		if err != nil {
			return 0, err
		}
		return p.regs.Get(reg), nil
	})
}

func (p *Processor) execMemCopyBlockAddrInReg() error {
	return p.memCopyBlock(func() (uint64, error) {
		reg, err := p.fetchRegister()
		if err != nil {
			return 0, err
		}
		n, err := p.mem.ReadSized(p.regs.Get(reg), isa.Size8)
		if err != nil {
			return 0, p.recoverableFault(err)
		}
		return n, nil
	})
}

func (p *Processor) execMemCopyBlockConst() error {
	return p.memCopyBlock(p.fetchAddress)
}

func (p *Processor) execMemCopyBlockAddrLiteral() error {
	return p.memCopyBlock(func() (uint64, error) {
		addr, err := p.fetchAddress()
		if err != nil {
			return 0, err
		}
		n, err := p.mem.ReadSized(addr, isa.Size8)
		if err != nil {
			return 0, p.recoverableFault(err)
		}
		return n, nil
	})
}

func (p *Processor) memCopyBlock(readCount func() (uint64, error)) error {
	dstReg, err := p.fetchRegister()
	if err != nil {
		return err
	}
	srcReg, err := p.fetchRegister()
	if err != nil {
		return err
	}
	count, err := readCount()
	if err != nil {
		return err
	}
	if err := p.mem.CopyWithin(p.regs.Get(dstReg), p.regs.Get(srcReg), count); err != nil {
		return p.recoverableFault(err)
	}
	return nil
}

// --- compare family ---
//
// All sixteen opcodes share the same shape: read size, decode operand A
// per A's fixed kind, decode operand B per B's fixed kind, set flags from
// A-B without storing the difference.

func (p *Processor) compare(readA, readB func(isa.SizeTag) (uint64, error)) error {
	size, err := p.fetchSizeTag()
	if err != nil {
		return err
	}
	a, err := readA(size)
	if err != nil {
		return err
	}
	b, err := readB(size)
	if err != nil {
		return err
	}
	p.setCompareFlags(a, b, size)
	return nil
}

func (p *Processor) execCompareRegReg() error { return p.compare(p.readRegValue, p.readRegValue) }
func (p *Processor) execCompareRegAddrInReg() error {
	return p.compare(p.readRegValue, p.readAddrInRegValue)
}
func (p *Processor) execCompareRegConst() error {
	return p.compare(p.readRegValue, p.readConstValue)
}
func (p *Processor) execCompareRegAddrLiteral() error {
	return p.compare(p.readRegValue, p.readAddrLiteralValue)
}

func (p *Processor) execCompareAddrInRegReg() error {
	return p.compare(p.readAddrInRegValue, p.readRegValue)
}
func (p *Processor) execCompareAddrInRegAddrInReg() error {
	return p.compare(p.readAddrInRegValue, p.readAddrInRegValue)
}
func (p *Processor) execCompareAddrInRegConst() error {
	return p.compare(p.readAddrInRegValue, p.readConstValue)
}
func (p *Processor) execCompareAddrInRegAddrLiteral() error {
	return p.compare(p.readAddrInRegValue, p.readAddrLiteralValue)
}

func (p *Processor) execCompareConstReg() error {
	return p.compare(p.readConstValue, p.readRegValue)
}
func (p *Processor) execCompareConstAddrInReg() error {
	return p.compare(p.readConstValue, p.readAddrInRegValue)
}
func (p *Processor) execCompareConstConst() error {
	return p.compare(p.readConstValue, p.readConstValue)
}
func (p *Processor) execCompareConstAddrLiteral() error {
	return p.compare(p.readConstValue, p.readAddrLiteralValue)
}

func (p *Processor) execCompareAddrLiteralReg() error {
	return p.compare(p.readAddrLiteralValue, p.readRegValue)
}
func (p *Processor) execCompareAddrLiteralAddrInReg() error {
	return p.compare(p.readAddrLiteralValue, p.readAddrInRegValue)
}
func (p *Processor) execCompareAddrLiteralConst() error {
	return p.compare(p.readAddrLiteralValue, p.readConstValue)
}
func (p *Processor) execCompareAddrLiteralAddrLiteral() error {
	return p.compare(p.readAddrLiteralValue, p.readAddrLiteralValue)
}

// --- jump / call family ---

func (p *Processor) jumpIf(cond bool) error {
	target, err := p.fetchAddress()
	if err != nil {
		return err
	}
	if cond {
		p.regs.Set(isa.Pc, target)
	}
	return nil
}

func (p *Processor) execJump() error       { return p.jumpIf(true) }
func (p *Processor) execJumpNotZero() error { return p.jumpIf(p.regs.Get(isa.Zf) == 0) }
func (p *Processor) execJumpZero() error    { return p.jumpIf(p.regs.Get(isa.Zf) != 0) }

// signFlagsAgree reports whether sf and of currently agree, the signed-safe
// stand-in for "the comparison came out non-negative": after a subtraction
// that itself overflowed, sf alone reads backwards (e.g. comparing
// math.MinInt64 against 1), so greater/less-or-equal must fold of in too.
func (p *Processor) signFlagsAgree() bool {
	return p.regs.Get(isa.Sf) == p.regs.Get(isa.Of)
}

func (p *Processor) execJumpGreater() error {
	return p.jumpIf(p.regs.Get(isa.Zf) == 0 && p.signFlagsAgree())
}
func (p *Processor) execJumpGreaterOrEqual() error { return p.jumpIf(p.signFlagsAgree()) }
func (p *Processor) execJumpLess() error           { return p.jumpIf(!p.signFlagsAgree()) }
func (p *Processor) execJumpLessOrEqual() error {
	return p.jumpIf(p.regs.Get(isa.Zf) != 0 || !p.signFlagsAgree())
}
func (p *Processor) execJumpCarry() error      { return p.jumpIf(p.regs.Get(isa.Cf) != 0) }
func (p *Processor) execJumpNotCarry() error   { return p.jumpIf(p.regs.Get(isa.Cf) == 0) }
func (p *Processor) execJumpOverflow() error   { return p.jumpIf(p.regs.Get(isa.Of) != 0) }
func (p *Processor) execJumpNotOverflow() error { return p.jumpIf(p.regs.Get(isa.Of) == 0) }
func (p *Processor) execJumpSign() error       { return p.jumpIf(p.regs.Get(isa.Sf) != 0) }
func (p *Processor) execJumpNotSign() error    { return p.jumpIf(p.regs.Get(isa.Sf) == 0) }
