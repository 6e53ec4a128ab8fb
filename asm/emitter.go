package asm

import (
	"errors"
	"fmt"

	"github.com/nic-obert/rusty-vm/isa"
)

// Emitter turns a parsed item list into a bytecode image: it lays
// sections out in a fixed order (.text, then .data, then .bss),
// assigns every label an address in a first pass, then emits the actual
// bytes in a second pass using the completed symbol table — so a jump
// to a label defined later in the file ("forward reference") resolves
// correctly without any later patch-up of already-written bytes.
// Grounded on ie64asm.go's two-pass layout, adapted to this ISA's
// variable-width operand encoding.
type Emitter struct {
	items []Item
	syms  *SymbolTable
	diags DiagnosticList

	lastOrdered []Item
	lastAddrs   []uint64
}

func NewEmitter(items []Item) *Emitter {
	return &Emitter{items: items, syms: NewSymbolTable()}
}

// layout reorders items into final address order: .text, .data, .bss.
func (e *Emitter) layout() []Item {
	var text, data, bss []Item
	for _, it := range e.items {
		switch it.Section {
		case SectionText:
			text = append(text, it)
		case SectionData:
			data = append(data, it)
		case SectionBss:
			bss = append(bss, it)
		}
	}
	out := make([]Item, 0, len(e.items))
	out = append(out, text...)
	out = append(out, data...)
	out = append(out, bss...)
	return out
}

// Assemble runs both passes and returns the final code bytes (without
// the debug-info prefix or entry-address footer; Assembler adds those).
func (e *Emitter) Assemble(entryLabel string) ([]byte, uint64, error) {
	ordered := e.layout()

	addr := uint64(0)
	sizes := make([]uint64, len(ordered))
	addrs := make([]uint64, len(ordered))
	for i, it := range ordered {
		addrs[i] = addr
		if it.Label != "" {
			e.syms.DefineNamed(it.Label, addr)
		}
		if it.Anon {
			e.syms.DefineAnon(addr)
		}
		size := itemSize(it)
		sizes[i] = size
		addr += size
	}
	e.lastOrdered, e.lastAddrs = ordered, addrs

	entry, ok := e.syms.ResolveNamed(entryLabel)
	if !ok {
		return nil, 0, fmt.Errorf("entry label %q not found", entryLabel)
	}

	code := make([]byte, addr)
	pos := uint64(0)
	for i, it := range ordered {
		itemAddr := pos
		n, err := e.encodeItem(it, itemAddr, code[pos:pos+sizes[i]])
		if err != nil {
			var d *Diagnostic
			if errors.As(err, &d) {
				e.diags.Add(d)
				pos += sizes[i]
				continue
			}
			return nil, 0, err
		}
		if n != sizes[i] {
			return nil, 0, fmt.Errorf("internal error: item at %#x sized %d but encoded %d bytes", itemAddr, sizes[i], n)
		}
		pos += sizes[i]
	}

	if e.diags.HasErrors() {
		return nil, 0, &e.diags
	}
	return code, entry, nil
}

// Layout returns the section-ordered item list and each item's resolved
// address from the most recent Assemble call, for BuildDebugInfo.
func (e *Emitter) Layout() ([]Item, []uint64) {
	return e.lastOrdered, e.lastAddrs
}

func itemSize(it Item) uint64 {
	if it.Instruction != nil {
		return instructionSize(it.Instruction)
	}
	if it.Data != nil {
		return dataSize(it.Data)
	}
	return 0
}

func instructionSize(inst *Instruction) uint64 {
	size := uint64(isa.OpcodeSize)
	if inst.HasSize {
		size++
	}
	for _, op := range inst.Operands {
		size += operandEncodedSize(op.Kind, inst)
	}
	return size
}

func operandEncodedSize(kind OperandKind, inst *Instruction) uint64 {
	switch kind {
	case OperandRegister, OperandAddrInReg:
		return isa.RegisterIDSize
	case OperandAddrLiteral:
		return isa.AddressSize
	case OperandImmediate:
		if inst.HasSize {
			return uint64(inst.Size)
		}
		return isa.AddressSize
	default:
		return 0
	}
}

func dataSize(d *DataDirective) uint64 {
	switch d.Kind {
	case DataBytes:
		return uint64(len(d.Bytes))
	case DataNumbers, DataAddresses:
		return uint64(len(d.Values)) * uint64(d.Size)
	case DataReserve:
		return d.Count
	case DataOffsetFrom:
		return uint64(d.Size)
	default:
		return 0
	}
}

func (e *Emitter) encodeItem(it Item, addr uint64, out []byte) (uint64, error) {
	if it.Instruction != nil {
		return e.encodeInstruction(it.Instruction, addr, out)
	}
	if it.Data != nil {
		return e.encodeData(it.Data, addr, out)
	}
	return 0, nil
}

func (e *Emitter) encodeData(d *DataDirective, addr uint64, out []byte) (uint64, error) {
	switch d.Kind {
	case DataBytes:
		copy(out, d.Bytes)
		return uint64(len(d.Bytes)), nil
	case DataNumbers, DataAddresses:
		pos := uint64(0)
		for i, v := range d.Values {
			if label := d.Labels[i]; label != "" {
				resolved, ok := e.syms.ResolveNamed(label)
				if !ok {
					return 0, fmt.Errorf("undefined label %q", label)
				}
				v = resolved
			}
			isa.PutUint(out[pos:pos+uint64(d.Size)], d.Size, v)
			pos += uint64(d.Size)
		}
		return pos, nil
	case DataReserve:
		// out is already zeroed by make([]byte, ...).
		return d.Count, nil
	case DataOffsetFrom:
		target, ok := e.syms.ResolveNamed(d.OffsetFromLabel)
		if !ok {
			return 0, fmt.Errorf("offsetfrom: undefined label %q", d.OffsetFromLabel)
		}
		v := uint64(int64(addr) - int64(target))
		isa.PutUint(out, d.Size, v)
		return uint64(d.Size), nil
	default:
		return 0, nil
	}
}

func (e *Emitter) encodeInstruction(inst *Instruction, addr uint64, out []byte) (uint64, error) {
	pos := uint64(0)
	out[pos] = byte(inst.Op)
	pos++
	if inst.HasSize {
		out[pos] = byte(inst.Size)
		pos++
	}
	for _, op := range inst.Operands {
		n, err := e.encodeOperand(op, inst, addr, out[pos:])
		if err != nil {
			return 0, err
		}
		pos += n
	}
	return pos, nil
}

func (e *Emitter) encodeOperand(op Operand, inst *Instruction, instrAddr uint64, out []byte) (uint64, error) {
	switch op.Kind {
	case OperandRegister, OperandAddrInReg:
		out[0] = byte(op.Reg)
		return isa.RegisterIDSize, nil

	case OperandAddrLiteral:
		addr, err := e.resolveOperandAddress(op, instrAddr)
		if err != nil {
			return 0, err
		}
		isa.PutUint(out, isa.Size8, addr)
		return isa.AddressSize, nil

	case OperandImmediate:
		v := op.Value
		if op.Label != "" {
			addr, err := e.resolveOperandAddress(op, instrAddr)
			if err != nil {
				return 0, err
			}
			v = addr
		}
		size := isa.Size8
		if inst.HasSize {
			size = inst.Size
		}
		isa.PutUint(out, size, v)
		return uint64(size), nil

	default:
		return 0, fmt.Errorf("unknown operand kind %d", op.Kind)
	}
}

func (e *Emitter) resolveOperandAddress(op Operand, instrAddr uint64) (uint64, error) {
	if op.Label == "" {
		return op.Value, nil
	}
	if op.Label == "&" {
		addr, ok := e.syms.ResolveAnon(instrAddr)
		if !ok {
			return 0, &Diagnostic{File: op.Tok.File, Line: op.Tok.Line, Column: op.Tok.Column, Message: "no anonymous label found after this reference"}
		}
		return addr, nil
	}
	addr, ok := e.syms.ResolveNamed(op.Label)
	if !ok {
		return 0, &Diagnostic{File: op.Tok.File, Line: op.Tok.Line, Column: op.Tok.Column, Message: fmt.Sprintf("undefined label %q", op.Label)}
	}
	return addr, nil
}
