package vm

import "github.com/nic-obert/rusty-vm/isa"

func (h *HostModules) handleRandom(p *Processor) error {
	p.regs.Set(isa.R1, h.rng.Uint64())
	p.regs.SetError(isa.NoError)
	return nil
}
