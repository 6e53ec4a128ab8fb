package asm

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestModuleManagerLoadOnceDedupes(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "lib.asm")
	require.NoError(t, os.WriteFile(path, []byte("exit\n"), 0o644))

	mm := NewModuleManager(nil)

	toks1, first1, err := mm.LoadOnce(path)
	require.NoError(t, err)
	assert.True(t, first1)
	assert.NotEmpty(t, toks1)

	toks2, first2, err := mm.LoadOnce(path)
	require.NoError(t, err)
	assert.False(t, first2)
	assert.Empty(t, toks2)
}

func TestExpandIncludesInlinesFileOnce(t *testing.T) {
	dir := t.TempDir()
	libPath := filepath.Join(dir, "lib.asm")
	require.NoError(t, os.WriteFile(libPath, []byte("exit\n"), 0o644))

	mainPath := filepath.Join(dir, "main.asm")
	src := `.include "lib.asm"
.include "lib.asm"
`
	require.NoError(t, os.WriteFile(mainPath, []byte(src), 0o644))

	toks, err := NewLexer(mainPath, src).Tokenize()
	require.NoError(t, err)

	mm := NewModuleManager(nil)
	out, err := ExpandIncludes(toks, mm)
	require.NoError(t, err)

	count := 0
	for _, tk := range out {
		if tk.Kind == TokIdentifier && tk.Text == "exit" {
			count++
		}
	}
	assert.Equal(t, 1, count)
}

func TestExpandIncludesMasksPrivateLabel(t *testing.T) {
	dir := t.TempDir()
	libPath := filepath.Join(dir, "lib.asm")
	require.NoError(t, os.WriteFile(libPath, []byte("helper:\n\texit\n"), 0o644))

	mainPath := filepath.Join(dir, "main.asm")
	src := `.include "lib.asm"
`
	require.NoError(t, os.WriteFile(mainPath, []byte(src), 0o644))

	toks, err := NewLexer(mainPath, src).Tokenize()
	require.NoError(t, err)

	mm := NewModuleManager(nil)
	out, err := ExpandIncludes(toks, mm)
	require.NoError(t, err)

	for _, tk := range out {
		assert.NotEqual(t, "helper", tk.Text, "private label must not keep its bare name once included")
	}
}

func TestExpandIncludesKeepsExportedLabelNameOneLevelUp(t *testing.T) {
	dir := t.TempDir()
	libPath := filepath.Join(dir, "lib.asm")
	require.NoError(t, os.WriteFile(libPath, []byte("@helper:\n\texit\n"), 0o644))

	mainPath := filepath.Join(dir, "main.asm")
	src := `.include "lib.asm"
main:
	jmp helper
`
	require.NoError(t, os.WriteFile(mainPath, []byte(src), 0o644))

	toks, err := NewLexer(mainPath, src).Tokenize()
	require.NoError(t, err)

	mm := NewModuleManager(nil)
	out, err := ExpandIncludes(toks, mm)
	require.NoError(t, err)

	found := false
	for _, tk := range out {
		if tk.Kind == TokLabelDef && tk.Text == "helper" {
			found = true
		}
	}
	assert.True(t, found, "exported label must keep its name for the including file")
}

func TestExpandIncludesDemotesExportedLabelWithoutReExport(t *testing.T) {
	dir := t.TempDir()
	innerPath := filepath.Join(dir, "inner.asm")
	require.NoError(t, os.WriteFile(innerPath, []byte("@shared:\n\texit\n"), 0o644))

	middlePath := filepath.Join(dir, "middle.asm")
	// No "@@" here, so "shared" is visible to middle.asm but must not
	// survive into whatever includes middle.asm.
	require.NoError(t, os.WriteFile(middlePath, []byte(`.include "inner.asm"`+"\n"), 0o644))

	mainPath := filepath.Join(dir, "main.asm")
	src := `.include "middle.asm"
`
	require.NoError(t, os.WriteFile(mainPath, []byte(src), 0o644))

	toks, err := NewLexer(mainPath, src).Tokenize()
	require.NoError(t, err)

	mm := NewModuleManager(nil)
	out, err := ExpandIncludes(toks, mm)
	require.NoError(t, err)

	for _, tk := range out {
		assert.NotEqual(t, "shared", tk.Text, "non-@@ include must demote the re-exported label before splicing it in")
	}
}

func TestExpandIncludesReExportPropagatesThroughAtAt(t *testing.T) {
	dir := t.TempDir()
	innerPath := filepath.Join(dir, "inner.asm")
	require.NoError(t, os.WriteFile(innerPath, []byte("@shared:\n\texit\n"), 0o644))

	middlePath := filepath.Join(dir, "middle.asm")
	require.NoError(t, os.WriteFile(middlePath, []byte(`.include @@"inner.asm"`+"\n"), 0o644))

	mainPath := filepath.Join(dir, "main.asm")
	src := `.include "middle.asm"
main:
	jmp shared
`
	require.NoError(t, os.WriteFile(mainPath, []byte(src), 0o644))

	toks, err := NewLexer(mainPath, src).Tokenize()
	require.NoError(t, err)

	mm := NewModuleManager(nil)
	out, err := ExpandIncludes(toks, mm)
	require.NoError(t, err)

	found := false
	for _, tk := range out {
		if tk.Kind == TokLabelDef && tk.Text == "shared" {
			found = true
		}
	}
	assert.True(t, found, "@@ re-export must keep the label visible two include levels up")
}

func TestModuleManagerResolveSearchesLibPath(t *testing.T) {
	libDir := t.TempDir()
	callerDir := t.TempDir()
	target := filepath.Join(libDir, "common.asm")
	require.NoError(t, os.WriteFile(target, []byte("exit\n"), 0o644))

	mm := NewModuleManager([]string{libDir})
	resolved, err := mm.Resolve("common.asm", callerDir)
	require.NoError(t, err)

	wantCanon, err := filepath.EvalSymlinks(target)
	require.NoError(t, err)
	assert.Equal(t, wantCanon, resolved)
}
