package vm

import (
	"bufio"
	"io"
	"math/rand"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/nic-obert/rusty-vm/isa"
)

// HostModules bundles every service reachable through the `intr` opcode.
// Each family (stdio, memory, random, time, disk, terminal, filesystem) is
// implemented in its own file; Dispatch is the single switch tying the
// `int` register's value to a handler, grounded on program_executor.go's
// interrupt-to-handler wiring adapted from a fixed MMIO table to the
// `intr` opcode's runtime selector.
type HostModules struct {
	Stdout io.Writer
	Stdin  *bufio.Reader

	rng *rand.Rand

	heap *bumpAllocator

	disk ReadWriterAt

	term *terminalController

	timer *hostTimer

	fsRoot string

	log *zap.Logger
}

// ReadWriterAt is the minimal interface the disk-read/disk-write
// interrupts need; an *os.File or a bytes-backed test double both satisfy
// it without dragging in a concrete storage dependency.
type ReadWriterAt interface {
	io.ReaderAt
	io.WriterAt
}

// NewHostModules builds the default host module set: real stdin/stdout,
// a process-seeded RNG, a fresh bump allocator above the loaded image, and
// no disk backing until AttachDisk is called.
func NewHostModules(log *zap.Logger, heapBase, heapSize uint64) *HostModules {
	return &HostModules{
		Stdout: os.Stdout,
		Stdin:  bufio.NewReader(os.Stdin),
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
		heap:   newBumpAllocator(heapBase, heapSize),
		term:   newTerminalController(),
		timer:  newHostTimer(),
		fsRoot: ".",
		log:    log,
	}
}

// AttachDisk wires a backing store for DISK_READ/DISK_WRITE.
func (h *HostModules) AttachDisk(d ReadWriterAt) {
	h.disk = d
}

// SetFilesystemRoot constrains HOST_FS_INTR operations to paths rooted at
// root, preventing bytecode from walking outside its sandbox.
func (h *HostModules) SetFilesystemRoot(root string) {
	h.fsRoot = root
}

// Dispatch runs the host handler selected by code, operating on p's
// registers and memory. It returns a Go error only for conditions the
// processor should treat as catastrophic (a nil host field it needed);
// ordinary failures are reported through the error register by the
// handler itself.
func (h *HostModules) Dispatch(code isa.InterruptCode, p *Processor) error {
	switch code {
	case isa.PrintSigned:
		return h.handlePrintSigned(p)
	case isa.PrintUnsigned:
		return h.handlePrintUnsigned(p)
	case isa.PrintChar:
		return h.handlePrintChar(p)
	case isa.PrintString:
		return h.handlePrintString(p)
	case isa.PrintBytes:
		return h.handlePrintBytes(p)
	case isa.PrintFloat:
		return h.handlePrintFloat(p)
	case isa.InputSigned:
		return h.handleInputSigned(p)
	case isa.InputUnsigned:
		return h.handleInputUnsigned(p)
	case isa.InputString:
		return h.handleInputString(p)
	case isa.Malloc:
		return h.handleMalloc(p)
	case isa.Free:
		return h.handleFree(p)
	case isa.Random:
		return h.handleRandom(p)
	case isa.HostTimeNanos:
		return h.handleHostTimeNanos(p)
	case isa.ElapsedTimeNanos:
		return h.handleElapsedTimeNanos(p)
	case isa.DiskRead:
		return h.handleDiskRead(p)
	case isa.DiskWrite:
		return h.handleDiskWrite(p)
	case isa.TermIntr:
		return h.handleTermIntr(p)
	case isa.SetTimerNanos:
		return h.handleSetTimerNanos(p)
	case isa.FlushStdout:
		return h.handleFlushStdout(p)
	case isa.HostFsIntr:
		return h.handleHostFsIntr(p)
	default:
		p.regs.SetError(isa.InvalidInput)
		return nil
	}
}
