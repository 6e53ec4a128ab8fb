package vm

import (
	"fmt"
	"math"

	"github.com/nic-obert/rusty-vm/isa"
)

// Argument convention for the stdio family: the scalar interrupts (signed,
// unsigned, char, float) read and write through the print/input registers
// rather than the general-purpose ones, so a program's own r1..r8 survive a
// print or a read untouched. PRINT_BYTES is the one exception: it still
// needs a byte count alongside the print address, and r1 carries that count.
// INPUT_STRING has no caller-owned buffer to write into, so it pushes what
// it read onto the VM stack instead and reports the address/length pair
// through input/r1. Grounded on program_executor.go's register-argument
// convention for its softint handlers, adapted from a fixed two-register
// calling shape to the variable-width one this ISA's interrupts need.

func (h *HostModules) handlePrintSigned(p *Processor) error {
	fmt.Fprintf(h.Stdout, "%d", int64(p.regs.Get(isa.Print)))
	p.regs.SetError(isa.NoError)
	return nil
}

func (h *HostModules) handlePrintUnsigned(p *Processor) error {
	fmt.Fprintf(h.Stdout, "%d", p.regs.Get(isa.Print))
	p.regs.SetError(isa.NoError)
	return nil
}

func (h *HostModules) handlePrintChar(p *Processor) error {
	fmt.Fprintf(h.Stdout, "%c", rune(p.regs.Get(isa.Print)))
	p.regs.SetError(isa.NoError)
	return nil
}

func (h *HostModules) handlePrintFloat(p *Processor) error {
	fmt.Fprintf(h.Stdout, "%g", math.Float64frombits(p.regs.Get(isa.Print)))
	p.regs.SetError(isa.NoError)
	return nil
}

// handlePrintString prints the NUL-terminated string at the address held in
// print, unlike handlePrintBytes below which takes an explicit length.
func (h *HostModules) handlePrintString(p *Processor) error {
	addr := p.regs.Get(isa.Print)
	var out []byte
	for {
		b, err := p.mem.ReadByte(addr)
		if err != nil {
			p.regs.SetError(isa.OutOfBounds)
			return nil
		}
		if b == 0 {
			break
		}
		out = append(out, b)
		addr++
	}
	h.Stdout.Write(out)
	p.regs.SetError(isa.NoError)
	return nil
}

// handlePrintBytes prints r1 bytes starting at the address held in print.
func (h *HostModules) handlePrintBytes(p *Processor) error {
	addr, length := p.regs.Get(isa.Print), p.regs.Get(isa.R1)
	b, err := p.mem.ReadBytes(addr, length)
	if err != nil {
		p.regs.SetError(isa.OutOfBounds)
		return nil
	}
	h.Stdout.Write(b)
	p.regs.SetError(isa.NoError)
	return nil
}

func (h *HostModules) handleInputSigned(p *Processor) error {
	line, err := h.Stdin.ReadString('\n')
	if err != nil && line == "" {
		p.regs.SetError(isa.FromIOError(err))
		return nil
	}
	var v int64
	if _, scanErr := fmt.Sscanf(line, "%d", &v); scanErr != nil {
		p.regs.SetError(isa.InvalidInput)
		return nil
	}
	p.regs.Set(isa.Input, uint64(v))
	p.regs.SetError(isa.NoError)
	return nil
}

func (h *HostModules) handleInputUnsigned(p *Processor) error {
	line, err := h.Stdin.ReadString('\n')
	if err != nil && line == "" {
		p.regs.SetError(isa.FromIOError(err))
		return nil
	}
	var v uint64
	if _, scanErr := fmt.Sscanf(line, "%d", &v); scanErr != nil {
		p.regs.SetError(isa.InvalidInput)
		return nil
	}
	p.regs.Set(isa.Input, v)
	p.regs.SetError(isa.NoError)
	return nil
}

// handleInputString reads one line from stdin and pushes its bytes onto the
// VM stack, since unlike the host-to-program print calls there is no
// caller-owned buffer to write into. input gets the address the bytes
// landed at and r1 gets the byte count.
func (h *HostModules) handleInputString(p *Processor) error {
	line, err := h.Stdin.ReadString('\n')
	if err != nil && line == "" {
		p.regs.SetError(isa.FromIOError(err))
		return nil
	}
	line = trimNewline(line)
	addr := p.regs.Get(isa.Stp)
	if err := p.pushBytes([]byte(line)); err != nil {
		return err
	}
	if p.regs.GetError() != isa.NoError {
		return nil
	}
	p.regs.Set(isa.Input, addr)
	p.regs.Set(isa.R1, uint64(len(line)))
	p.regs.SetError(isa.NoError)
	return nil
}

func (h *HostModules) handleFlushStdout(p *Processor) error {
	if f, ok := h.Stdout.(interface{ Flush() error }); ok {
		if err := f.Flush(); err != nil {
			p.regs.SetError(isa.FromIOError(err))
			return nil
		}
	}
	p.regs.SetError(isa.NoError)
	return nil
}

func trimNewline(s string) string {
	for len(s) > 0 && (s[len(s)-1] == '\n' || s[len(s)-1] == '\r') {
		s = s[:len(s)-1]
	}
	return s
}
