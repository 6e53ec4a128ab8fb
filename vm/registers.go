package vm

import "github.com/nic-obert/rusty-vm/isa"

// RegisterFile holds the VM's fixed set of 64-bit registers, addressed by
// isa.Register. Every register is a plain 8-byte slot; sized reads/writes
// go through GetSized/SetSized with an isa.SizeTag and operate on the
// low-order bytes.
type RegisterFile struct {
	slots [isa.RegisterCount]uint64
}

// Get returns the full 64-bit content of r.
func (f *RegisterFile) Get(r isa.Register) uint64 {
	return f.slots[r]
}

// Set overwrites the full 64-bit content of r.
func (f *RegisterFile) Set(r isa.Register, v uint64) {
	f.slots[r] = v
}

// GetSized returns the low `size` bytes of r, zero-extended to 64 bits.
func (f *RegisterFile) GetSized(r isa.Register, size isa.SizeTag) uint64 {
	return isa.MaskToSize(f.slots[r], size)
}

// SetSized overwrites the low `size` bytes of r and zeroes the remaining
// high bytes: a sized move always zeroes the register's high bytes.
func (f *RegisterFile) SetSized(r isa.Register, size isa.SizeTag, v uint64) {
	f.slots[r] = isa.MaskToSize(v, size)
}

// SetError is a convenience wrapper for writing the `error` register.
func (f *RegisterFile) SetError(code isa.ErrorCode) {
	f.slots[isa.Error] = uint64(code)
}

// GetError reads the `error` register as an isa.ErrorCode.
func (f *RegisterFile) GetError() isa.ErrorCode {
	return isa.ErrorCode(f.slots[isa.Error])
}

// Reset zeroes every register.
func (f *RegisterFile) Reset() {
	for i := range f.slots {
		f.slots[i] = 0
	}
}

// Snapshot copies the full register file out, for the debug IPC surface.
func (f *RegisterFile) Snapshot() [isa.RegisterCount]uint64 {
	return f.slots
}
