package vm

import (
	"sync"

	"github.com/nic-obert/rusty-vm/isa"
)

// bumpAllocator is a minimal free-list allocator over a fixed region of
// the flat memory image, backing the MALLOC/FREE interrupts. A real heap
// allocator's internals are out of scope here; this is the simplest thing
// that lets a program allocate and free without leaking the region
// forever, matching original_source's own comment that the reference
// VM's malloc is "good enough, not general purpose".
type bumpAllocator struct {
	mu    sync.Mutex
	base  uint64
	limit uint64
	next  uint64
	free  map[uint64]uint64 // addr -> size, for blocks freed and available for reuse
}

func newBumpAllocator(base, size uint64) *bumpAllocator {
	return &bumpAllocator{base: base, limit: base + size, next: base, free: make(map[uint64]uint64)}
}

func (a *bumpAllocator) alloc(size uint64) (uint64, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for addr, blockSize := range a.free {
		if blockSize >= size {
			delete(a.free, addr)
			if blockSize > size {
				a.free[addr+size] = blockSize - size
			}
			return addr, true
		}
	}
	if a.next+size > a.limit {
		return 0, false
	}
	addr := a.next
	a.next += size
	return addr, true
}

func (a *bumpAllocator) free_(addr, size uint64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.free[addr] = size
}

func (h *HostModules) handleMalloc(p *Processor) error {
	size := p.regs.Get(isa.R1)
	addr, ok := h.heap.alloc(size)
	if !ok {
		p.regs.SetError(isa.OutOfMemory)
		return nil
	}
	p.regs.Set(isa.R1, addr)
	p.regs.SetError(isa.NoError)
	return nil
}

func (h *HostModules) handleFree(p *Processor) error {
	addr, size := p.regs.Get(isa.R1), p.regs.Get(isa.R2)
	h.heap.free_(addr, size)
	p.regs.SetError(isa.NoError)
	return nil
}
