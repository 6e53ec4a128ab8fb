// Package vm implements the register-based processor and its host-service
// modules: the fetch/decode/execute loop, the flat memory image, and the
// interrupt-dispatched terminal/storage/time/random/filesystem handlers.
package vm

import (
	"fmt"
	"sync"

	"github.com/nic-obert/rusty-vm/isa"
)

// Memory is the VM's flat byte store. It is the single point through which
// every multi-byte access passes, grounded on memory_bus.go's SystemBus:
// a contiguous []byte plus a mutex, with all multi-byte access going
// through encoding/binary rather than an unsafe pointer cast.
//
// Unlike memory_bus.go, Memory has no memory-mapped I/O page table — the
// VM has no bus-addressable peripherals; every host service is reached
// through the `intr` opcode instead.
type Memory struct {
	mu   sync.RWMutex
	data []byte
}

// NewMemory allocates a flat memory image of the given size in bytes.
func NewMemory(size uint64) *Memory {
	return &Memory{data: make([]byte, size)}
}

// Size returns the memory's total capacity in bytes.
func (m *Memory) Size() uint64 {
	return uint64(len(m.data))
}

// Fault is returned by Memory's accessors (and by the processor's
// fetch/decode path) when an access would read or write outside the
// memory's bounds. It carries an isa.ErrorCode so callers reached directly
// by running bytecode can copy it into the error register, while callers
// reached during fetch/decode treat it as catastrophic and halt the VM.
type Fault struct {
	Code isa.ErrorCode
	Addr uint64
	Size uint64
}

func (f *Fault) Error() string {
	return fmt.Sprintf("%s at address %#x (size %d, memory bounds violated)", f.Code, f.Addr, f.Size)
}

func (m *Memory) checkBounds(addr, size uint64) error {
	if addr+size < addr || addr+size > m.Size() {
		return &Fault{Code: isa.OutOfBounds, Addr: addr, Size: size}
	}
	return nil
}

// ReadByte reads a single byte at addr.
func (m *Memory) ReadByte(addr uint64) (byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.checkBounds(addr, 1); err != nil {
		return 0, err
	}
	return m.data[addr], nil
}

// WriteByte writes a single byte at addr.
func (m *Memory) WriteByte(addr uint64, v byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.checkBounds(addr, 1); err != nil {
		return err
	}
	m.data[addr] = v
	return nil
}

// ReadSized reads a little-endian integer of the given size at addr.
func (m *Memory) ReadSized(addr uint64, size isa.SizeTag) (uint64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.checkBounds(addr, uint64(size)); err != nil {
		return 0, err
	}
	return isa.GetUint(m.data[addr:addr+uint64(size)], size), nil
}

// WriteSized writes a little-endian integer of the given size at addr. Any
// bits of v above the size's width are discarded, mirroring the
// processor's "sized move zeroes high bytes" rule applied to memory rather
// than a register.
func (m *Memory) WriteSized(addr uint64, size isa.SizeTag, v uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.checkBounds(addr, uint64(size)); err != nil {
		return err
	}
	isa.PutUint(m.data[addr:addr+uint64(size)], size, v)
	return nil
}

// ReadBytes copies n bytes starting at addr into a freshly allocated slice.
// The caller owns the returned slice; it is never an alias of the
// underlying store, so later writes through Memory cannot retroactively
// mutate data the caller already observed.
func (m *Memory) ReadBytes(addr, n uint64) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.checkBounds(addr, n); err != nil {
		return nil, err
	}
	out := make([]byte, n)
	copy(out, m.data[addr:addr+n])
	return out, nil
}

// WriteBytes copies src into memory starting at addr.
func (m *Memory) WriteBytes(addr uint64, src []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.checkBounds(addr, uint64(len(src))); err != nil {
		return err
	}
	copy(m.data[addr:], src)
	return nil
}

// Borrow returns a direct, mutable slice over [addr, addr+n) of the
// underlying store, for host modules that need to read or fill a region
// without a copy (e.g. the terminal key-listener buffer, disk transfers).
// Other than the terminal key listener, whose goroutine keeps writing its
// two-byte mailbox until stopped, callers use the borrow only while the
// handler runs.
func (m *Memory) Borrow(addr, n uint64) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.checkBounds(addr, n); err != nil {
		return nil, err
	}
	return m.data[addr : addr+n], nil
}

// CopyWithin copies n bytes from src to dst within the same memory image,
// correctly handling overlap (the mem-copy opcodes may target
// overlapping regions when src and dst registers alias).
func (m *Memory) CopyWithin(dst, src, n uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.checkBounds(src, n); err != nil {
		return err
	}
	if err := m.checkBounds(dst, n); err != nil {
		return err
	}
	copy(m.data[dst:dst+n], m.data[src:src+n])
	return nil
}

// LoadImage overwrites the start of memory with program, starting at
// address 0. Used by the program loader (C9) to install a bytecode image.
func (m *Memory) LoadImage(program []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if uint64(len(program)) > m.Size() {
		return &Fault{Code: isa.OutOfBounds, Addr: 0, Size: uint64(len(program))}
	}
	copy(m.data, program)
	return nil
}

// Reset clears the entire memory image to zero.
func (m *Memory) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.data {
		m.data[i] = 0
	}
}
