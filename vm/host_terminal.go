package vm

import (
	"io"
	"os"
	"runtime"
	"sync"
	"sync/atomic"

	"golang.org/x/sys/unix"
	"golang.org/x/term"

	"github.com/nic-obert/rusty-vm/isa"
)

// termKeyKind occupies byte 0 of the listener's two-byte mailbox slot.
// termKeyNone means the slot holds no unconsumed key; any other value is
// a committed key, with its character in byte 1. Only termKeyChar is
// produced today; a non-zero, non-unitary encoding leaves room for a
// later modifier/kind split without changing the wire shape.
type termKeyKind byte

const (
	termKeyNone termKeyKind = 0
	termKeyChar termKeyKind = 1
)

// termKeySlotSize is the fixed mailbox size: one kind byte, one char
// byte. Grounded on terminal_io.go's single-key MMIO register pair,
// adapted from two memory-mapped registers to two bytes of VM memory the
// guest polls directly.
const termKeySlotSize = 2

// terminalController owns the raw-mode state and the key-listener
// goroutine for TERM_INTR. Grounded on terminal_io.go's TERM_* register
// family: that file drove an MMIO-style poll from the CPU's main loop,
// this one drives a background goroutine that fills a two-byte mailbox in
// VM memory, since the processor's fetch/decode/execute loop cannot itself
// block on stdin without stalling bytecode execution.
type terminalController struct {
	mu       sync.Mutex
	fd       int
	oldState *term.State

	// rawStdin is the source runKeyListener reads key bytes from. It
	// defaults to os.Stdin; tests substitute an in-memory reader so the
	// listener goroutine can be exercised without a real tty.
	rawStdin io.Reader

	listening atomic.Bool
	stop      chan struct{}
}

func newTerminalController() *terminalController {
	return &terminalController{fd: int(os.Stdin.Fd()), rawStdin: os.Stdin}
}

func (h *HostModules) handleTermIntr(p *Processor) error {
	switch isa.TermOp(p.regs.Get(isa.Print)) {
	case isa.TermGoto:
		return h.termGoto(p)
	case isa.TermClear:
		return h.termClear(p)
	case isa.TermStyle:
		return h.termStyle(p)
	case isa.TermCursorShape:
		return h.termCursorShape(p)
	case isa.TermSize:
		return h.termSize(p)
	case isa.TermStartKeyListener:
		return h.termStartKeyListener(p)
	case isa.TermStopKeyListener:
		return h.termStopKeyListener(p)
	default:
		p.regs.SetError(isa.InvalidInput)
		return nil
	}
}

func (h *HostModules) termGoto(p *Processor) error {
	row, col := p.regs.Get(isa.R1), p.regs.Get(isa.R2)
	h.Stdout.Write([]byte{0x1b, '['})
	writeDecimal(h.Stdout, row)
	h.Stdout.Write([]byte{';'})
	writeDecimal(h.Stdout, col)
	h.Stdout.Write([]byte{'H'})
	p.regs.SetError(isa.NoError)
	return nil
}

func (h *HostModules) termClear(p *Processor) error {
	h.Stdout.Write([]byte("\x1b[2J\x1b[H"))
	p.regs.SetError(isa.NoError)
	return nil
}

func (h *HostModules) termStyle(p *Processor) error {
	h.Stdout.Write([]byte{0x1b, '['})
	writeDecimal(h.Stdout, p.regs.Get(isa.R1))
	h.Stdout.Write([]byte{'m'})
	p.regs.SetError(isa.NoError)
	return nil
}

func (h *HostModules) termCursorShape(p *Processor) error {
	h.Stdout.Write([]byte{0x1b, '['})
	writeDecimal(h.Stdout, p.regs.Get(isa.R1))
	h.Stdout.Write([]byte(" q"))
	p.regs.SetError(isa.NoError)
	return nil
}

func (h *HostModules) termSize(p *Processor) error {
	ws, err := unix.IoctlGetWinsize(h.term.fd, unix.TIOCGWINSZ)
	if err != nil {
		p.regs.SetError(isa.FromIOError(err))
		return nil
	}
	p.regs.Set(isa.R1, uint64(ws.Row))
	p.regs.Set(isa.R2, uint64(ws.Col))
	p.regs.SetError(isa.NoError)
	return nil
}

func (h *HostModules) termStartKeyListener(p *Processor) error {
	h.term.mu.Lock()
	defer h.term.mu.Unlock()
	if h.term.listening.Load() {
		p.regs.SetError(isa.AlreadyExists)
		return nil
	}
	oldState, err := term.MakeRaw(h.term.fd)
	if err != nil {
		p.regs.SetError(isa.FromIOError(err))
		return nil
	}
	h.term.oldState = oldState

	addr, capacity := p.regs.Get(isa.R1), p.regs.Get(isa.R2)
	if capacity < termKeySlotSize {
		term.Restore(h.term.fd, oldState)
		p.regs.SetError(isa.InvalidInput)
		return nil
	}
	buf, err := p.mem.Borrow(addr, termKeySlotSize)
	if err != nil {
		term.Restore(h.term.fd, oldState)
		p.regs.SetError(isa.OutOfBounds)
		return nil
	}
	buf[0] = byte(termKeyNone)

	h.term.stop = make(chan struct{})
	h.term.listening.Store(true)
	go h.runKeyListener(buf)

	p.regs.SetError(isa.NoError)
	return nil
}

func (h *HostModules) termStopKeyListener(p *Processor) error {
	h.term.mu.Lock()
	defer h.term.mu.Unlock()
	if !h.term.listening.Load() {
		p.regs.SetError(isa.NoError)
		return nil
	}
	close(h.term.stop)
	h.term.listening.Store(false)
	if h.term.oldState != nil {
		term.Restore(h.term.fd, h.term.oldState)
		h.term.oldState = nil
	}
	p.regs.SetError(isa.NoError)
	return nil
}

// runKeyListener fills buf's two-byte mailbox for each key read from
// stdin: byte 1 (the character) is written before byte 0 (the kind), so
// a guest that observes a non-zero kind is guaranteed the character
// byte next to it is already valid, with no lock needed on either side.
// The guest consumes a key by reading byte 0 first and clearing it back
// to termKeyNone; the listener waits for that clear before writing the
// next key, so a key typed faster than the guest polls is held rather
// than overwritten.
func (h *HostModules) runKeyListener(buf []byte) {
	one := make([]byte, 1)
	for {
		select {
		case <-h.term.stop:
			return
		default:
		}
		n, err := h.term.rawStdin.Read(one)
		if err != nil || n == 0 {
			return
		}
		for termKeyKind(buf[0]) != termKeyNone {
			select {
			case <-h.term.stop:
				return
			default:
			}
			runtime.Gosched()
		}
		buf[1] = one[0]
		buf[0] = byte(termKeyChar)
	}
}

func writeDecimal(w interface{ Write([]byte) (int, error) }, v uint64) {
	if v == 0 {
		w.Write([]byte{'0'})
		return
	}
	var digits [20]byte
	i := len(digits)
	for v > 0 {
		i--
		digits[i] = byte('0' + v%10)
		v /= 10
	}
	w.Write(digits[i:])
}
