package vm

import (
	"math/bits"

	"github.com/nic-obert/rusty-vm/isa"
)

// setArithmeticFlags derives zf/sf/cf/of (not rf; see setRemainderFlag) from the result of a binary
// integer operation, given the two sized operands and the unsigned result
// before truncation. Grounded on cpu_ie64.go's updateFlags, adapted to the
// explicit isa.SizeTag width instead of a fixed 64-bit ALU.
func (p *Processor) setArithmeticFlags(a, b, result uint64, size isa.SizeTag, carry, overflow bool) {
	masked := isa.MaskToSize(result, size)
	p.regs.Set(isa.Zf, boolToUint(masked == 0))
	p.regs.Set(isa.Sf, boolToUint(isNegative(masked, size)))
	p.regs.Set(isa.Cf, boolToUint(carry))
	p.regs.Set(isa.Of, boolToUint(overflow))
}

// setRemainderFlag writes remainder into rf verbatim. idiv passes its
// actual a%b value through; imod always passes 0, clearing rf
// unconditionally since the remainder itself already went to r1.
func (p *Processor) setRemainderFlag(remainder uint64) {
	p.regs.Set(isa.Rf, remainder)
}

// setCompareFlags implements the cmp family: computes a-b at the given
// width without storing it, and sets flags exactly as a subtraction would.
func (p *Processor) setCompareFlags(a, b uint64, size isa.SizeTag) {
	a = isa.MaskToSize(a, size)
	b = isa.MaskToSize(b, size)
	result, carry := subWithCarry(a, b, size)
	overflow := subOverflows(a, b, size)
	p.setArithmeticFlags(a, b, result, size, carry, overflow)
}

func boolToUint(b bool) uint64 {
	if b {
		return 1
	}
	return 0
}

func isNegative(v uint64, size isa.SizeTag) bool {
	switch size {
	case isa.Size1:
		return int8(v) < 0
	case isa.Size2:
		return int16(v) < 0
	case isa.Size4:
		return int32(v) < 0
	default:
		return int64(v) < 0
	}
}

func addWithCarry(a, b uint64, size isa.SizeTag) (uint64, bool) {
	sum, carryOut := bits.Add64(a, b, 0)
	switch size {
	case isa.Size1:
		return sum & 0xFF, (a&0xFF)+(b&0xFF) > 0xFF
	case isa.Size2:
		return sum & 0xFFFF, (a&0xFFFF)+(b&0xFFFF) > 0xFFFF
	case isa.Size4:
		return sum & 0xFFFFFFFF, (a&0xFFFFFFFF)+(b&0xFFFFFFFF) > 0xFFFFFFFF
	default:
		return sum, carryOut != 0
	}
}

func subWithCarry(a, b uint64, size isa.SizeTag) (uint64, bool) {
	diff, borrow := bits.Sub64(a, b, 0)
	switch size {
	case isa.Size1:
		return diff & 0xFF, (a & 0xFF) < (b & 0xFF)
	case isa.Size2:
		return diff & 0xFFFF, (a & 0xFFFF) < (b & 0xFFFF)
	case isa.Size4:
		return diff & 0xFFFFFFFF, (a & 0xFFFFFFFF) < (b & 0xFFFFFFFF)
	default:
		return diff, borrow != 0
	}
}

// addOverflows and subOverflows use the classic sign-comparison rule
// rather than widening into a larger integer type, since size8 already
// occupies the full width of uint64/int64 and there is no wider type to
// widen into: addition overflows iff both operands share a sign and the
// result's sign differs from theirs; subtraction overflows iff the
// operands' signs differ and the result's sign differs from the
// minuend's.
func addOverflows(a, b uint64, size isa.SizeTag) bool {
	sum, _ := addWithCarry(a, b, size)
	sa, sb, sr := isNegative(a, size), isNegative(b, size), isNegative(sum, size)
	return sa == sb && sr != sa
}

func subOverflows(a, b uint64, size isa.SizeTag) bool {
	diff, _ := subWithCarry(a, b, size)
	sa, sb, sr := isNegative(a, size), isNegative(b, size), isNegative(diff, size)
	return sa != sb && sr != sa
}
