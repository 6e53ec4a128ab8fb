package asm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSymbolTableNamedRoundTrip(t *testing.T) {
	s := NewSymbolTable()
	s.DefineNamed("loop", 42)

	addr, ok := s.ResolveNamed("loop")
	assert.True(t, ok)
	assert.Equal(t, uint64(42), addr)

	_, ok = s.ResolveNamed("missing")
	assert.False(t, ok)
}

func TestSymbolTableAnonForwardResolution(t *testing.T) {
	s := NewSymbolTable()
	s.DefineAnon(5)
	s.DefineAnon(20)

	addr, ok := s.ResolveAnon(0)
	assert.True(t, ok)
	assert.Equal(t, uint64(5), addr)

	addr, ok = s.ResolveAnon(5)
	assert.True(t, ok)
	assert.Equal(t, uint64(5), addr)

	addr, ok = s.ResolveAnon(6)
	assert.True(t, ok)
	assert.Equal(t, uint64(20), addr)

	_, ok = s.ResolveAnon(21)
	assert.False(t, ok)
}
