package asm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tokenKinds(toks []Token) []TokenKind {
	kinds := make([]TokenKind, len(toks))
	for i, t := range toks {
		kinds[i] = t.Kind
	}
	return kinds
}

func TestLexerLabelsAndRegisters(t *testing.T) {
	toks, err := NewLexer("t.asm", "main:\n\tmov8 r1, r2\n").Tokenize()
	require.NoError(t, err)

	require.GreaterOrEqual(t, len(toks), 6)
	assert.Equal(t, TokLabelDef, toks[0].Kind)
	assert.Equal(t, "main", toks[0].Text)
	assert.Equal(t, TokNewline, toks[1].Kind)
	assert.Equal(t, TokIdentifier, toks[2].Kind)
	assert.Equal(t, "mov8", toks[2].Text)
	assert.Equal(t, TokIdentifier, toks[3].Kind)
	assert.Equal(t, "r1", toks[3].Text)
	assert.Equal(t, TokComma, toks[4].Kind)
	assert.Equal(t, TokIdentifier, toks[5].Kind)
	assert.Equal(t, "r2", toks[5].Text)
}

func TestLexerNumbersAndStrings(t *testing.T) {
	toks, err := NewLexer("t.asm", `db "hi", 0x1F, 'a'`).Tokenize()
	require.NoError(t, err)

	var kinds []TokenKind
	for _, tk := range toks {
		if tk.Kind != TokEOF {
			kinds = append(kinds, tk.Kind)
		}
	}
	assert.Equal(t, []TokenKind{TokIdentifier, TokString, TokComma, TokNumber, TokComma, TokChar}, kinds)
	assert.Equal(t, "hi", toks[1].Text)
	assert.Equal(t, "0x1F", toks[3].Text)
	assert.Equal(t, "a", toks[5].Text)
}

func TestLexerAnonymousLabels(t *testing.T) {
	toks, err := NewLexer("t.asm", "&:\n\tjmp &\n").Tokenize()
	require.NoError(t, err)

	assert.Equal(t, TokAnonLabelDef, toks[0].Kind)
	assert.Equal(t, TokAnonLabelRef, toks[3].Kind)
}

func TestLexerMacroTokens(t *testing.T) {
	toks, err := NewLexer("t.asm", "%macro foo\n%%foo\n=BAR 1\n%%-BAR").Tokenize()
	require.NoError(t, err)

	kinds := tokenKinds(toks)
	assert.Contains(t, kinds, TokPercent)
	assert.Contains(t, kinds, TokPercentPercent)
	assert.Contains(t, kinds, TokEquals)
	assert.Contains(t, kinds, TokMinus)
}

func TestLexerComment(t *testing.T) {
	toks, err := NewLexer("t.asm", "mov8 r1, 1 ; comment here\nexit").Tokenize()
	require.NoError(t, err)

	for _, tk := range toks {
		assert.NotContains(t, tk.Text, "comment")
	}
}

func TestLexerUnterminatedString(t *testing.T) {
	_, err := NewLexer("t.asm", `db "unterminated`).Tokenize()
	assert.Error(t, err)
}
