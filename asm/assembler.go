package asm

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/nic-obert/rusty-vm/isa"
)

// Options configures one assemble run: the entry point label, the
// library search paths for .include resolution (-L), and whether to
// prepend debug info to the output image (-d).
type Options struct {
	EntryLabel string
	LibPaths   []string
	DebugInfo  bool
}

// Assembler ties the whole pipeline together: lex -> expand includes ->
// expand macros -> parse -> assign addresses -> emit. It is the single
// entry point cmd/rvmasm drives.
type Assembler struct {
	opts Options
	log  *zap.Logger
}

func NewAssembler(opts Options, log *zap.Logger) *Assembler {
	if opts.EntryLabel == "" {
		opts.EntryLabel = "main"
	}
	return &Assembler{opts: opts, log: log}
}

// AssembleFile reads sourcePath and every file it transitively includes,
// and returns the final bytecode image ready to write to disk: an
// optional debug-info prefix, the code, and the 8-byte entry-address
// footer.
func (a *Assembler) AssembleFile(sourcePath string) ([]byte, error) {
	src, err := os.ReadFile(sourcePath)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", sourcePath, err)
	}

	tokens, err := NewLexer(sourcePath, string(src)).Tokenize()
	if err != nil {
		return nil, err
	}

	mm := NewModuleManager(a.opts.LibPaths)
	rootKey := filepath.Clean(sourcePath)
	if canonical, err := filepath.EvalSymlinks(sourcePath); err == nil {
		rootKey = canonical
	}
	mm.included[rootKey] = true // the root file is never re-included

	tokens, err = ExpandIncludes(tokens, mm)
	if err != nil {
		return nil, err
	}

	tokens, err = NewMacroExpander().Expand(tokens)
	if err != nil {
		return nil, err
	}

	items, err := NewParser(tokens).Parse()
	if err != nil {
		return nil, err
	}
	a.log.Debug("parsed program", zap.Int("items", len(items)))

	emitter := NewEmitter(items)
	code, entry, err := emitter.Assemble(a.opts.EntryLabel)
	if err != nil {
		return nil, err
	}

	var out []byte
	if a.opts.DebugInfo {
		ordered, addrs := emitter.Layout()
		out = append(out, BuildDebugInfo(ordered, addrs, emitter.syms)...)
	}
	out = append(out, code...)

	footer := make([]byte, isa.EntryAddressSize)
	isa.PutUint(footer, isa.Size8, entry)
	out = append(out, footer...)

	a.log.Info("assembled", zap.String("input", sourcePath), zap.Int("bytes", len(out)), zap.Uint64("entry", entry))
	return out, nil
}
