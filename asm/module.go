package asm

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/sync/singleflight"
)

// ModuleManager resolves `.include` directives and ensures each distinct
// file is only ever read and tokenized once, no matter how many times it
// is included (directly or transitively). Grounded on
// original_source/assembler/src/module_manager.rs: the same
// absolute -> canonicalize -> caller-dir -> library-path resolution
// order, and the same "already-included files produce no tokens the
// second time" dedup rule, reimplemented with golang.org/x/sync/
// singleflight so concurrent includes of the same file (the parser may
// one day resolve sibling includes concurrently) only read it once.
type ModuleManager struct {
	libPaths []string

	mu       sync.Mutex
	included map[string]bool

	group singleflight.Group
}

// NewModuleManager builds a manager that searches libPaths (from -L
// flags) and the RUSTYVM_ASM_LIB environment variable, in that order,
// after the absolute-path and caller-directory checks fail.
func NewModuleManager(libPaths []string) *ModuleManager {
	m := &ModuleManager{libPaths: libPaths, included: make(map[string]bool)}
	if env := os.Getenv("RUSTYVM_ASM_LIB"); env != "" {
		m.libPaths = append(m.libPaths, filepath.SplitList(env)...)
	}
	return m
}

// Resolve finds the file named by includePath, relative to callerDir,
// searching in order: absolute path, the caller's directory, each -L
// path, then RUSTYVM_ASM_LIB. It returns the canonical (symlink-resolved)
// path.
func (m *ModuleManager) Resolve(includePath, callerDir string) (string, error) {
	candidates := []string{}
	if filepath.IsAbs(includePath) {
		candidates = append(candidates, includePath)
	} else {
		candidates = append(candidates, filepath.Join(callerDir, includePath))
		for _, lib := range m.libPaths {
			candidates = append(candidates, filepath.Join(lib, includePath))
		}
	}

	for _, c := range candidates {
		if canon, err := filepath.EvalSymlinks(c); err == nil {
			return canon, nil
		}
	}
	return "", fmt.Errorf("cannot resolve include %q from %q: tried %v", includePath, callerDir, candidates)
}

// LoadOnce reads and tokenizes path, returning its tokens only the first
// time it is ever requested; every later call (a diamond-shaped include
// graph, or a file that includes itself transitively) returns a nil
// token slice and false, signaling the caller to silently skip it.
type loadResult struct {
	tokens  []Token
	isFirst bool
}

func (m *ModuleManager) LoadOnce(path string) (tokens []Token, isFirst bool, err error) {
	v, err, _ := m.group.Do(path, func() (any, error) {
		m.mu.Lock()
		already := m.included[path]
		m.included[path] = true
		m.mu.Unlock()
		if already {
			return loadResult{isFirst: false}, nil
		}

		src, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		toks, err := NewLexer(path, string(src)).Tokenize()
		if err != nil {
			return nil, err
		}
		return loadResult{tokens: toks, isFirst: true}, nil
	})
	if err != nil {
		return nil, false, err
	}
	res := v.(loadResult)
	return res.tokens, res.isFirst, nil
}
