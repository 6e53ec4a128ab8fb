package vm

import "github.com/nic-obert/rusty-vm/isa"

// fetchByte reads one byte at pc and advances pc. It is the single
// primitive every other fetch* helper is built from, matching
// processor.rs's get_next_byte in original_source/vm/src.
func (p *Processor) fetchByte() (byte, error) {
	pc := p.regs.Get(isa.Pc)
	b, err := p.mem.ReadByte(pc)
	if err != nil {
		return 0, err
	}
	p.regs.Set(isa.Pc, pc+1)
	return b, nil
}

// fetchBytes reads n bytes starting at pc and advances pc by n.
func (p *Processor) fetchBytes(n uint64) ([]byte, error) {
	pc := p.regs.Get(isa.Pc)
	b, err := p.mem.ReadBytes(pc, n)
	if err != nil {
		return nil, err
	}
	p.regs.Set(isa.Pc, pc+n)
	return b, nil
}

// fetchRegister reads one register-index byte.
func (p *Processor) fetchRegister() (isa.Register, error) {
	b, err := p.fetchByte()
	if err != nil {
		return 0, err
	}
	r := isa.Register(b)
	if !r.Valid() {
		return 0, &Fault{Code: isa.GenericError, Addr: p.regs.Get(isa.Pc), Size: 1}
	}
	return r, nil
}

// fetchSizeTag reads one size-tag byte. A bytecode image containing an
// invalid size tag is malformed: this should have been caught at
// assembly time, so this is treated as a catastrophic decode fault
// rather than a runtime error-register outcome.
func (p *Processor) fetchSizeTag() (isa.SizeTag, error) {
	b, err := p.fetchByte()
	if err != nil {
		return 0, err
	}
	if !isa.ValidSizeTag(b) {
		return 0, &Fault{Code: isa.GenericError, Addr: p.regs.Get(isa.Pc), Size: 1}
	}
	return isa.SizeTag(b), nil
}

// fetchAddress reads an 8-byte little-endian address literal.
func (p *Processor) fetchAddress() (uint64, error) {
	b, err := p.fetchBytes(isa.AddressSize)
	if err != nil {
		return 0, err
	}
	return isa.Endian.Uint64(b), nil
}

// fetchImmediate reads `size` bytes and returns them zero-extended to
// uint64, little-endian.
func (p *Processor) fetchImmediate(size isa.SizeTag) (uint64, error) {
	b, err := p.fetchBytes(uint64(size))
	if err != nil {
		return 0, err
	}
	return isa.GetUint(b, size), nil
}
