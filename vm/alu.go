package vm

import (
	"math"

	"github.com/nic-obert/rusty-vm/isa"
)

// The integer and float arithmetic/bitwise opcodes carry no operands of
// their own: they always read r1 and r2 and write the result back to r1,
// at the full 8-byte register width. Grounded on
// original_source/rusty_vm_lib/src/byte_code.rs, where ByteCodes::ADD and
// friends are bare variants with no operand bytes.

func (p *Processor) execIntegerAdd() error {
	a, b := p.regs.Get(isa.R1), p.regs.Get(isa.R2)
	sum, carry := addWithCarry(a, b, isa.Size8)
	p.regs.Set(isa.R1, sum)
	p.setArithmeticFlags(a, b, sum, isa.Size8, carry, addOverflows(a, b, isa.Size8))
	return nil
}

func (p *Processor) execIntegerSub() error {
	a, b := p.regs.Get(isa.R1), p.regs.Get(isa.R2)
	diff, carry := subWithCarry(a, b, isa.Size8)
	p.regs.Set(isa.R1, diff)
	p.setArithmeticFlags(a, b, diff, isa.Size8, carry, subOverflows(a, b, isa.Size8))
	return nil
}

func (p *Processor) execIntegerMul() error {
	a, b := p.regs.Get(isa.R1), p.regs.Get(isa.R2)
	hi, lo := bitsMul64(a, b)
	p.regs.Set(isa.R1, lo)
	p.setArithmeticFlags(a, b, lo, isa.Size8, hi != 0, hi != 0)
	return nil
}

func (p *Processor) execIntegerDiv() error {
	a, b := p.regs.Get(isa.R1), p.regs.Get(isa.R2)
	if b == 0 {
		p.regs.SetError(isa.ZeroDivision)
		return nil
	}
	q := int64(a) / int64(b)
	p.regs.Set(isa.R1, uint64(q))
	p.setRemainderFlag(uint64(int64(a) % int64(b)))
	p.setArithmeticFlags(a, b, uint64(q), isa.Size8, false, false)
	return nil
}

func (p *Processor) execIntegerMod() error {
	a, b := p.regs.Get(isa.R1), p.regs.Get(isa.R2)
	if b == 0 {
		p.regs.SetError(isa.ZeroDivision)
		return nil
	}
	r := int64(a) % int64(b)
	p.regs.Set(isa.R1, uint64(r))
	p.setRemainderFlag(0)
	p.setArithmeticFlags(a, b, uint64(r), isa.Size8, false, false)
	return nil
}

func (p *Processor) execFloatAdd() error { return p.floatOp(func(a, b float64) float64 { return a + b }) }
func (p *Processor) execFloatSub() error { return p.floatOp(func(a, b float64) float64 { return a - b }) }
func (p *Processor) execFloatMul() error { return p.floatOp(func(a, b float64) float64 { return a * b }) }
func (p *Processor) execFloatDiv() error {
	return p.floatOp(func(a, b float64) float64 { return a / b })
}
func (p *Processor) execFloatMod() error {
	return p.floatOp(func(a, b float64) float64 { return math.Mod(a, b) })
}

func (p *Processor) floatOp(f func(a, b float64) float64) error {
	a := math.Float64frombits(p.regs.Get(isa.R1))
	b := math.Float64frombits(p.regs.Get(isa.R2))
	result := f(a, b)
	p.regs.Set(isa.R1, math.Float64bits(result))
	p.regs.Set(isa.Zf, boolToUint(result == 0))
	p.regs.Set(isa.Sf, boolToUint(result < 0))
	return nil
}

func (p *Processor) execBitAnd() error { return p.bitwiseOp(func(a, b uint64) uint64 { return a & b }) }
func (p *Processor) execBitOr() error  { return p.bitwiseOp(func(a, b uint64) uint64 { return a | b }) }
func (p *Processor) execBitXor() error { return p.bitwiseOp(func(a, b uint64) uint64 { return a ^ b }) }

func (p *Processor) execBitNot() error {
	v := p.regs.Get(isa.R1)
	result := ^v
	p.regs.Set(isa.R1, result)
	p.regs.Set(isa.Zf, boolToUint(result == 0))
	p.regs.Set(isa.Sf, boolToUint(isNegative(result, isa.Size8)))
	return nil
}

func (p *Processor) execShiftLeft() error {
	return p.bitwiseOp(func(a, b uint64) uint64 { return a << (b & 63) })
}

func (p *Processor) execShiftRight() error {
	return p.bitwiseOp(func(a, b uint64) uint64 { return a >> (b & 63) })
}

func (p *Processor) bitwiseOp(f func(a, b uint64) uint64) error {
	a, b := p.regs.Get(isa.R1), p.regs.Get(isa.R2)
	result := f(a, b)
	p.regs.Set(isa.R1, result)
	p.regs.Set(isa.Zf, boolToUint(result == 0))
	p.regs.Set(isa.Sf, boolToUint(isNegative(result, isa.Size8)))
	return nil
}

// execSwapBytesEndianness reverses the low `size` bytes of a register.
func (p *Processor) execSwapBytesEndianness() error {
	size, err := p.fetchSizeTag()
	if err != nil {
		return err
	}
	reg, err := p.fetchRegister()
	if err != nil {
		return err
	}
	v := p.regs.GetSized(reg, size)
	buf := make([]byte, size)
	isa.PutUint(buf, size, v)
	for i, j := 0, len(buf)-1; i < j; i, j = i+1, j-1 {
		buf[i], buf[j] = buf[j], buf[i]
	}
	p.regs.SetSized(reg, size, isa.GetUint(buf, size))
	return nil
}

func (p *Processor) execNoOperation() error { return nil }

func (p *Processor) execIncReg() error {
	reg, err := p.fetchRegister()
	if err != nil {
		return err
	}
	p.regs.Set(reg, p.regs.Get(reg)+1)
	return nil
}

func (p *Processor) execDecReg() error {
	reg, err := p.fetchRegister()
	if err != nil {
		return err
	}
	p.regs.Set(reg, p.regs.Get(reg)-1)
	return nil
}

func (p *Processor) execIncAddrInReg() error { return p.incDecAddrInReg(+1) }
func (p *Processor) execDecAddrInReg() error { return p.incDecAddrInReg(-1) }

func (p *Processor) incDecAddrInReg(delta int64) error {
	size, err := p.fetchSizeTag()
	if err != nil {
		return err
	}
	addrReg, err := p.fetchRegister()
	if err != nil {
		return err
	}
	addr := p.regs.Get(addrReg)
	v, err := p.mem.ReadSized(addr, size)
	if err != nil {
		return p.recoverableFault(err)
	}
	if err := p.mem.WriteSized(addr, size, uint64(int64(v)+delta)); err != nil {
		return p.recoverableFault(err)
	}
	return nil
}

func (p *Processor) execIncAddrLiteral() error { return p.incDecAddrLiteral(+1) }
func (p *Processor) execDecAddrLiteral() error { return p.incDecAddrLiteral(-1) }

func (p *Processor) incDecAddrLiteral(delta int64) error {
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
	if err := p.mem.WriteSized(addr, size, uint64(int64(v)+delta)); err != nil {
		return p.recoverableFault(err)
	}
	return nil
}

// bitsMul64 returns the high and low 64 bits of the unsigned product a*b,
// matching the imul handler's overflow-into-carry semantics.
func bitsMul64(a, b uint64) (hi, lo uint64) {
	prodHi, prodLo := mul64(a, b)
	return prodHi, prodLo
}

func mul64(a, b uint64) (hi, lo uint64) {
	const mask32 = 0xFFFFFFFF
	aLo, aHi := a&mask32, a>>32
	bLo, bHi := b&mask32, b>>32

	lo64 := aLo * bLo
	mid1 := aHi * bLo
	mid2 := aLo * bHi
	hi64 := aHi * bHi

	mid := mid1 + mid2
	carry := uint64(0)
	if mid < mid1 {
		carry = 1 << 32
	}

	lo = lo64 + (mid << 32)
	if lo < lo64 {
		hi64++
	}
	hi = hi64 + (mid >> 32) + carry
	return hi, lo
}
