package asm

// SymbolTable maps every named and anonymous label in a program to its
// resolved address. Built by the backend's address-assignment pass
// before any bytecode is emitted, so forward references (a jump to a
// label defined later in the file) resolve correctly in a single
// emission pass. Grounded on original_source/assembler/src/tokenizer.rs's
// two-pass label resolution: first walk assigns addresses, second walk
// emits bytes using the completed table.
type SymbolTable struct {
	named map[string]uint64
	// anon holds the address of every anonymous "&:" label, in the
	// order they appear in the final, section-ordered item list.
	anon []uint64
}

func NewSymbolTable() *SymbolTable {
	return &SymbolTable{named: make(map[string]uint64)}
}

func (s *SymbolTable) DefineNamed(name string, addr uint64) {
	s.named[name] = addr
}

func (s *SymbolTable) DefineAnon(addr uint64) {
	s.anon = append(s.anon, addr)
}

// ResolveNamed looks up a named label.
func (s *SymbolTable) ResolveNamed(name string) (uint64, bool) {
	addr, ok := s.named[name]
	return addr, ok
}

// ResolveAnon resolves an anonymous label reference made from an
// instruction at address fromAddr: the nearest anonymous label defined
// at or after fromAddr, matching the "refers forward to the next &:"
// convention this assembler's anonymous labels use.
func (s *SymbolTable) ResolveAnon(fromAddr uint64) (uint64, bool) {
	for _, addr := range s.anon {
		if addr >= fromAddr {
			return addr, true
		}
	}
	return 0, false
}
