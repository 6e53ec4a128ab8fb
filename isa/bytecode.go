package isa

import "encoding/binary"

// SizeTag is the one-byte selector that appears before every sized operand,
// restricted to {1, 2, 4, 8}. Centralizing the little-endian conversions
// here (rather than reading a memory slice through an unsafe pointer cast,
// the way cpu_ie64.go's loadMem/storeMem fast paths do) avoids type-punning
// memory slices directly, since alignment on the flat memory is not
// guaranteed.
type SizeTag byte

const (
	Size1 SizeTag = 1
	Size2 SizeTag = 2
	Size4 SizeTag = 4
	Size8 SizeTag = 8
)

// ValidSizeTag reports whether b is one of {1, 2, 4, 8}.
func ValidSizeTag(b byte) bool {
	switch b {
	case 1, 2, 4, 8:
		return true
	default:
		return false
	}
}

const (
	// RegisterIDSize is the width, in bytes, of an encoded register index.
	RegisterIDSize = 1
	// AddressSize is the width, in bytes, of an address literal or a
	// register's full content.
	AddressSize = 8
	// OpcodeSize is the width, in bytes, of an opcode byte.
	OpcodeSize = 1
	// EntryAddressSize is the width of the footer entry-address field.
	EntryAddressSize = 8
)

// Endian is the single byte order used for every multi-byte value at the
// memory boundary: the bytecode file, the flat memory image, and register
// spill/fill. Every other part of the codebase must go through the
// functions below instead of reaching for encoding/binary directly, so a
// change of byte order only ever touches this file.
var Endian = binary.LittleEndian

func PutUint(buf []byte, size SizeTag, v uint64) {
	switch size {
	case Size1:
		buf[0] = byte(v)
	case Size2:
		Endian.PutUint16(buf, uint16(v))
	case Size4:
		Endian.PutUint32(buf, uint32(v))
	case Size8:
		Endian.PutUint64(buf, v)
	}
}

func GetUint(buf []byte, size SizeTag) uint64 {
	switch size {
	case Size1:
		return uint64(buf[0])
	case Size2:
		return uint64(Endian.Uint16(buf))
	case Size4:
		return uint64(Endian.Uint32(buf))
	case Size8:
		return Endian.Uint64(buf)
	}
	return 0
}

// SignExtend interprets the low `size` bytes of v as a two's-complement
// signed integer of that width and sign-extends it to int64.
func SignExtend(v uint64, size SizeTag) int64 {
	switch size {
	case Size1:
		return int64(int8(v))
	case Size2:
		return int64(int16(v))
	case Size4:
		return int64(int32(v))
	default:
		return int64(v)
	}
}

// MaskToSize zeroes the high 8-size bytes of v, matching the processor's
// "any sized move zeroes the register's high bytes" invariant.
func MaskToSize(v uint64, size SizeTag) uint64 {
	switch size {
	case Size1:
		return v & 0xFF
	case Size2:
		return v & 0xFFFF
	case Size4:
		return v & 0xFFFFFFFF
	default:
		return v
	}
}

// --- Bytecode file layout ---

// DebugSectionsMagic is the literal prefix that marks an optional debug-info
// prefix at the start of a bytecode file.
const DebugSectionsMagic = "DEBUG SECTIONS\x00"

// DebugSectionCount is the number of (start,end) pairs following the magic:
// label-names, source-files, labels, instructions, in that order.
const DebugSectionCount = 4

const (
	DebugSectionLabelNames = iota
	DebugSectionSourceFiles
	DebugSectionLabels
	DebugSectionInstructions
)

// DebugLabelEntrySize is the size, in bytes, of one entry in the labels
// debug sub-section: (name_ptr, address, file_ptr, line, column), all u64.
const DebugLabelEntrySize = 5 * 8

// DebugInstructionEntrySize is the size of one entry in the instructions
// debug sub-section: (pc, file_ptr, line, column), all u64.
const DebugInstructionEntrySize = 4 * 8
