package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/nic-obert/rusty-vm/asm"
)

func assembleFixture(t *testing.T, src string) string {
	t.Helper()
	dir := t.TempDir()
	in := filepath.Join(dir, "prog.asm")
	require.NoError(t, os.WriteFile(in, []byte(src), 0o644))

	a := asm.NewAssembler(asm.Options{EntryLabel: "main"}, zap.NewNop())
	out, err := a.AssembleFile(in)
	require.NoError(t, err)

	bin := filepath.Join(dir, "prog.rvm")
	require.NoError(t, os.WriteFile(bin, out, 0o644))
	return bin
}

func TestRunExecutesImageAndReturnsExitRegister(t *testing.T) {
	bin := assembleFixture(t, "main:\n\tmov8 exit, 42\n\texit\n")

	code := run([]string{bin})
	assert.Equal(t, 42, code)
}

func TestRunReportsMissingFile(t *testing.T) {
	code := run([]string{filepath.Join(t.TempDir(), "missing.rvm")})
	assert.Equal(t, 1, code)
}

func TestRunWithoutPathShowsUsage(t *testing.T) {
	code := run([]string{})
	assert.Equal(t, 2, code)
}
