package vm

import (
	"bytes"
	"fmt"

	"github.com/nic-obert/rusty-vm/isa"
)

// Loader installs an assembled bytecode image into a fresh Memory and
// positions the processor's stack and program-counter registers.
// Grounded on program_executor.go's ROM-loading step, generalized from a
// fixed cartridge-image offset to the variable-length debug-info prefix
// and footer entry-address field this bytecode format carries.
type Loader struct {
	StackSize uint64
}

// DebugInfo holds the raw, unparsed byte ranges of an assembled image's
// optional debug-info prefix, kept around for the debug IPC server to
// resolve addresses back to source locations. A full structured decode
// of the four sub-sections is out of scope here; debugipc only needs the
// raw bytes to echo back to a connected client.
type DebugInfo struct {
	LabelNames  []byte
	SourceFiles []byte
	Labels      []byte
	Instruction []byte
}

// Load parses image (the raw contents of a bytecode file), installs its
// code into mem starting at address 0, and returns the debug info found,
// if any, plus the entry address the processor should start execution
// at. It does not itself touch the processor's registers; callers use
// Install for that.
func (l *Loader) Load(mem *Memory, image []byte) (entry uint64, debug *DebugInfo, err error) {
	rest := image
	if bytes.HasPrefix(image, []byte(isa.DebugSectionsMagic)) {
		rest = image[len(isa.DebugSectionsMagic):]
		var bounds [isa.DebugSectionCount][2]uint64
		for i := range bounds {
			if len(rest) < 16 {
				return 0, nil, fmt.Errorf("truncated debug section header")
			}
			bounds[i][0] = isa.Endian.Uint64(rest[0:8])
			bounds[i][1] = isa.Endian.Uint64(rest[8:16])
			rest = rest[16:]
		}
		sectionsStart := len(image) - len(rest)
		debug = &DebugInfo{
			LabelNames:  sliceSection(image, sectionsStart, bounds[isa.DebugSectionLabelNames]),
			SourceFiles: sliceSection(image, sectionsStart, bounds[isa.DebugSectionSourceFiles]),
			Labels:      sliceSection(image, sectionsStart, bounds[isa.DebugSectionLabels]),
			Instruction: sliceSection(image, sectionsStart, bounds[isa.DebugSectionInstructions]),
		}
		maxEnd := uint64(0)
		for _, b := range bounds {
			if b[1] > maxEnd {
				maxEnd = b[1]
			}
		}
		rest = image[sectionsStart+int(maxEnd):]
	}

	if len(rest) < isa.EntryAddressSize {
		return 0, nil, fmt.Errorf("bytecode image too short: missing entry address footer")
	}
	code := rest[:len(rest)-isa.EntryAddressSize]
	entry = isa.Endian.Uint64(rest[len(rest)-isa.EntryAddressSize:])

	if err := mem.LoadImage(code); err != nil {
		return 0, nil, fmt.Errorf("loading code into memory: %w", err)
	}
	return entry, debug, nil
}

func sliceSection(image []byte, base int, bound [2]uint64) []byte {
	start, end := base+int(bound[0]), base+int(bound[1])
	if start < 0 || end > len(image) || start > end {
		return nil
	}
	return image[start:end]
}

// Install positions a processor's pc/sbp/stp/pep for a freshly loaded
// image of codeSize bytes: pc starts at entry, and the stack occupies
// [codeSize, codeSize+StackSize) just past the code.
func (l *Loader) Install(p *Processor, entry uint64, codeSize uint64) {
	p.regs.Set(isa.Pc, entry)
	p.regs.Set(isa.Sbp, codeSize)
	p.regs.Set(isa.Stp, codeSize)
	p.regs.Set(isa.Pep, codeSize+l.StackSize)
}
