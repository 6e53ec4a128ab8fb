package asm

import "github.com/nic-obert/rusty-vm/isa"

// stringTable accumulates distinct strings into one null-terminated blob
// and hands back each string's byte offset, for the debug-info
// name/file tables referenced by pointer from the fixed-width label and
// instruction entries.
type stringTable struct {
	blob    []byte
	offsets map[string]uint64
}

func newStringTable() *stringTable {
	return &stringTable{offsets: make(map[string]uint64)}
}

func (t *stringTable) intern(s string) uint64 {
	if off, ok := t.offsets[s]; ok {
		return off
	}
	off := uint64(len(t.blob))
	t.blob = append(t.blob, []byte(s)...)
	t.blob = append(t.blob, 0)
	t.offsets[s] = off
	return off
}

// BuildDebugInfo assembles the four debug sub-sections (label names,
// source files, labels, instructions) described by isa's
// DebugSection* constants, given the final laid-out item list, each
// item's resolved address, and the completed symbol table.
func BuildDebugInfo(ordered []Item, addrs []uint64, syms *SymbolTable) []byte {
	names := newStringTable()
	files := newStringTable()

	var labelEntries []byte
	var instrEntries []byte

	for i, it := range ordered {
		addr := addrs[i]
		if it.Label != "" {
			entry := make([]byte, isa.DebugLabelEntrySize)
			isa.PutUint(entry[0:8], isa.Size8, names.intern(it.Label))
			isa.PutUint(entry[8:16], isa.Size8, addr)
			isa.PutUint(entry[16:24], isa.Size8, files.intern(it.Tok.File))
			isa.PutUint(entry[24:32], isa.Size8, uint64(it.Tok.Line))
			isa.PutUint(entry[32:40], isa.Size8, uint64(it.Tok.Column))
			labelEntries = append(labelEntries, entry...)
		}
		if it.Instruction != nil {
			entry := make([]byte, isa.DebugInstructionEntrySize)
			isa.PutUint(entry[0:8], isa.Size8, addr)
			isa.PutUint(entry[8:16], isa.Size8, files.intern(it.Tok.File))
			isa.PutUint(entry[16:24], isa.Size8, uint64(it.Tok.Line))
			isa.PutUint(entry[24:32], isa.Size8, uint64(it.Tok.Column))
			instrEntries = append(instrEntries, entry...)
		}
	}

	sections := [isa.DebugSectionCount][]byte{
		isa.DebugSectionLabelNames:    names.blob,
		isa.DebugSectionSourceFiles:   files.blob,
		isa.DebugSectionLabels:        labelEntries,
		isa.DebugSectionInstructions:  instrEntries,
	}

	var header []byte
	var body []byte
	offset := uint64(0)
	for _, s := range sections {
		start := offset
		end := offset + uint64(len(s))
		pair := make([]byte, 16)
		isa.PutUint(pair[0:8], isa.Size8, start)
		isa.PutUint(pair[8:16], isa.Size8, end)
		header = append(header, pair...)
		body = append(body, s...)
		offset = end
	}

	out := make([]byte, 0, len(isa.DebugSectionsMagic)+len(header)+len(body))
	out = append(out, []byte(isa.DebugSectionsMagic)...)
	out = append(out, header...)
	out = append(out, body...)
	return out
}
