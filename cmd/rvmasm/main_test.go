package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunAssemblesToDefaultOutputPath(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "prog.asm")
	require.NoError(t, os.WriteFile(src, []byte("main:\n\texit\n"), 0o644))

	code := run([]string{src})
	assert.Equal(t, 0, code)

	out := filepath.Join(dir, "prog.rvm")
	_, err := os.Stat(out)
	assert.NoError(t, err)
}

func TestRunHonorsOutputFlag(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "prog.asm")
	require.NoError(t, os.WriteFile(src, []byte("main:\n\texit\n"), 0o644))
	out := filepath.Join(dir, "custom.bin")

	code := run([]string{"-o", out, src})
	assert.Equal(t, 0, code)

	_, err := os.Stat(out)
	assert.NoError(t, err)
}

func TestRunReportsAssemblyErrors(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "bad.asm")
	require.NoError(t, os.WriteFile(src, []byte("main:\n\tjmp undefined_label\n"), 0o644))

	code := run([]string{src})
	assert.Equal(t, 1, code)
}

func TestRunWithoutInputShowsUsage(t *testing.T) {
	code := run([]string{})
	assert.Equal(t, 2, code)
}
