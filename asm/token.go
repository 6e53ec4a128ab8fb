// Package asm implements the two-pass bytecode assembler: tokenizer,
// macro and include expansion, a section-aware parser producing an IR,
// and a backend that assigns addresses and emits bytecode with
// forward-reference patching. Grounded on ie64asm.go's overall pipeline
// shape (tokenize -> resolve directives -> emit), adapted to this ISA's
// sized-operand instruction forms and to original_source's macro and
// module-include semantics.
package asm

import "fmt"

// TokenKind classifies one lexical token.
type TokenKind int

const (
	TokEOF TokenKind = iota
	TokNewline
	TokIdentifier   // mnemonic, directive name, macro name, bare label reference
	TokLabelDef     // "name:"
	TokAnonLabelDef // "&:"
	TokAnonLabelRef // "&" used as an operand, refers to the nearest following anon label
	TokNumber       // 123, 0x1F, 0b101
	TokString       // "..."
	TokChar         // '.'
	TokComma
	TokLBracket // [
	TokRBracket // ]
	TokDot      // section directive prefix: .text .data .bss .include
	TokLBrace   // { macro-body parameter reference: {param}
	TokRBrace   // }
	TokAt       // @ marks a label definition exported
	TokAtAt     // @@ re-export prefix on an .include path
	TokPercentPercent // %% parametric macro declaration, or first half of %%- (exported inline macro declaration)
	TokPercent        // first half of %- (private inline macro declaration)
	TokEndMacro       // %endmacro
	TokBang           // ! parametric macro invocation prefix
	TokEquals         // = inline macro invocation prefix
	TokMinus          // unary minus on numeric literals, and second half of %%- / %-
)

// Token is one lexical unit with its source position, for diagnostics and
// for the debug-info label/instruction sub-sections.
type Token struct {
	Kind   TokenKind
	Text   string
	File   string
	Line   int
	Column int
}

func (t Token) String() string {
	return fmt.Sprintf("%s:%d:%d: %s %q", t.File, t.Line, t.Column, t.Kind, t.Text)
}

func (k TokenKind) String() string {
	switch k {
	case TokEOF:
		return "EOF"
	case TokNewline:
		return "newline"
	case TokIdentifier:
		return "identifier"
	case TokLabelDef:
		return "label"
	case TokAnonLabelDef:
		return "anon-label"
	case TokAnonLabelRef:
		return "anon-label-ref"
	case TokNumber:
		return "number"
	case TokString:
		return "string"
	case TokChar:
		return "char"
	case TokComma:
		return "comma"
	case TokLBracket:
		return "["
	case TokRBracket:
		return "]"
	case TokDot:
		return "directive"
	case TokLBrace:
		return "{"
	case TokRBrace:
		return "}"
	case TokAt:
		return "@"
	case TokAtAt:
		return "@@"
	case TokPercentPercent:
		return "%%"
	case TokPercent:
		return "%"
	case TokEndMacro:
		return "%endmacro"
	case TokBang:
		return "!"
	case TokEquals:
		return "="
	case TokMinus:
		return "-"
	default:
		return "unknown"
	}
}
