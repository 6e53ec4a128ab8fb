package vm

import (
	"golang.org/x/sync/errgroup"

	"github.com/nic-obert/rusty-vm/isa"
)

// DISK_READ/DISK_WRITE convention: r1 holds the disk-relative offset,
// r2 holds the memory address to transfer to/from, r3 holds the
// transfer length in bytes. On success r1 is overwritten with the number
// of bytes moved. Grounded on file_io.go's FILE_OP_READ and
// FILE_OP_WRITE register triplet, adapted from a single fixed-size MMIO
// sector buffer to an arbitrary memory-to-disk span since this VM has no
// MMIO window.

// diskStripeThreshold and diskStripeCount control when a transfer is
// split into concurrent ReadAt/WriteAt calls: *os.File supports
// concurrent positioned I/O, so a large transfer can stripe across
// several goroutines instead of copying serially.
const (
	diskStripeThreshold = 64 * 1024
	diskStripeCount     = 4
)

func (h *HostModules) handleDiskRead(p *Processor) error {
	if h.disk == nil {
		p.regs.SetError(isa.ModuleUnavailable)
		return nil
	}
	offset, addr, length := p.regs.Get(isa.R1), p.regs.Get(isa.R2), p.regs.Get(isa.R3)
	buf, err := p.mem.Borrow(addr, length)
	if err != nil {
		p.regs.SetError(isa.OutOfBounds)
		return nil
	}
	n, err := stripedTransfer(buf, int64(offset), func(chunk []byte, at int64) (int, error) {
		return h.disk.ReadAt(chunk, at)
	})
	if err != nil && n == 0 {
		p.regs.SetError(isa.FromIOError(err))
		return nil
	}
	p.regs.Set(isa.R1, uint64(n))
	p.regs.SetError(isa.NoError)
	return nil
}

func (h *HostModules) handleDiskWrite(p *Processor) error {
	if h.disk == nil {
		p.regs.SetError(isa.ModuleUnavailable)
		return nil
	}
	offset, addr, length := p.regs.Get(isa.R1), p.regs.Get(isa.R2), p.regs.Get(isa.R3)
	buf, err := p.mem.ReadBytes(addr, length)
	if err != nil {
		p.regs.SetError(isa.OutOfBounds)
		return nil
	}
	n, err := stripedTransfer(buf, int64(offset), func(chunk []byte, at int64) (int, error) {
		return h.disk.WriteAt(chunk, at)
	})
	if err != nil && n == 0 {
		p.regs.SetError(isa.FromIOError(err))
		return nil
	}
	p.regs.Set(isa.R1, uint64(n))
	p.regs.SetError(isa.NoError)
	return nil
}

// stripedTransfer splits buf into diskStripeCount chunks and runs xfer
// over each concurrently once buf is large enough to make that worth it,
// falling back to a single call otherwise. Either way it returns the
// sum of the bytes every call moved, together with the first error any
// call returned.
func stripedTransfer(buf []byte, offset int64, xfer func(chunk []byte, at int64) (int, error)) (int, error) {
	if len(buf) < diskStripeThreshold {
		return xfer(buf, offset)
	}

	chunkSize := (len(buf) + diskStripeCount - 1) / diskStripeCount
	totals := make([]int, diskStripeCount)
	var g errgroup.Group
	for i := 0; i < diskStripeCount; i++ {
		i := i
		start := i * chunkSize
		if start >= len(buf) {
			break
		}
		end := start + chunkSize
		if end > len(buf) {
			end = len(buf)
		}
		g.Go(func() error {
			n, err := xfer(buf[start:end], offset+int64(start))
			totals[i] = n
			return err
		})
	}
	err := g.Wait()

	total := 0
	for _, n := range totals {
		total += n
	}
	return total, err
}
