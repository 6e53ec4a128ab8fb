package asm

import "fmt"

// macroDef is one %% ... %endmacro parametric macro: a name, its
// ordered formal parameter names, and its unexpanded body tokens.
type macroDef struct {
	params []string
	body   []Token
}

// MacroExpander implements the tokenizer-stage macro system: parametric
// macros (`%% name p1 p2 …:` ... `%endmacro`, invoked `!name a1 a2 …`,
// body parameters referenced with `{p1}`), and inline macros (`%%- NAME:
// tokens` exported / `%- NAME: tokens` private, invoked anywhere with
// `=NAME`). Grounded on original_source/assembler/src/parser.rs's
// expand_inline_macros/expand_function_macro pair; reimplemented here as a
// token-stream rewrite rather than a recursive-descent inline expansion,
// since Go's lack of a moveable cursor-by-reference makes a flat rewrite
// pass the more idiomatic shape.
type MacroExpander struct {
	inline     map[string][]Token
	parametric map[string]*macroDef
}

func NewMacroExpander() *MacroExpander {
	return &MacroExpander{
		inline:     make(map[string][]Token),
		parametric: make(map[string]*macroDef),
	}
}

// Expand collects every macro definition in tokens, removes the
// definitions from the stream, and substitutes every invocation with its
// expansion. A macro invoked from inside another macro's body expands
// in place; a macro that (directly or transitively) invokes itself is
// reported as a circular-expansion error rather than looping forever.
func (m *MacroExpander) Expand(tokens []Token) ([]Token, error) {
	withoutDefs, err := m.collectDefinitions(tokens)
	if err != nil {
		return nil, err
	}
	return m.expandInvocations(withoutDefs, make(map[string]bool))
}

func (m *MacroExpander) collectDefinitions(tokens []Token) ([]Token, error) {
	var out []Token
	i := 0
	for i < len(tokens) {
		t := tokens[i]

		// %%- NAME: tokens (exported) or %- NAME: tokens (private). Both
		// spellings declare an inline macro identically as far as the
		// expander is concerned; visibility across .include boundaries is
		// resolved earlier, before macro expansion ever runs.
		if (t.Kind == TokPercentPercent || t.Kind == TokPercent) &&
			i+1 < len(tokens) && tokens[i+1].Kind == TokMinus {
			next, err := m.parseInlineMacroDef(tokens, i+2)
			if err != nil {
				return nil, err
			}
			i = next
			continue
		}

		// %% name p1 p2 …: ... %endmacro
		if t.Kind == TokPercentPercent && i+1 < len(tokens) &&
			(tokens[i+1].Kind == TokIdentifier || tokens[i+1].Kind == TokLabelDef) {
			name, params, next, err := parseParametricHeader(tokens, i+1)
			if err != nil {
				return nil, err
			}
			i = next
			for i < len(tokens) && tokens[i].Kind == TokNewline {
				i++
			}
			var body []Token
			closed := false
			for i < len(tokens) {
				if tokens[i].Kind == TokEndMacro {
					i++
					closed = true
					break
				}
				if tokens[i].Kind == TokEOF {
					break
				}
				body = append(body, tokens[i])
				i++
			}
			if !closed {
				return nil, &Diagnostic{File: t.File, Line: t.Line, Column: t.Column, Message: fmt.Sprintf("macro %q is missing %%endmacro", name)}
			}
			m.parametric[name] = &macroDef{params: params, body: body}
			continue
		}

		out = append(out, t)
		i++
	}
	return out, nil
}

// parseInlineMacroDef parses "NAME: tokens" starting just after the
// declaring sigil (%%- or %-), reading the body up to the next newline.
func (m *MacroExpander) parseInlineMacroDef(tokens []Token, i int) (int, error) {
	if i >= len(tokens) || tokens[i].Kind != TokLabelDef {
		return i, &Diagnostic{Message: "inline macro declaration must be followed by NAME:"}
	}
	name := tokens[i].Text
	i++
	var body []Token
	for i < len(tokens) && tokens[i].Kind != TokNewline && tokens[i].Kind != TokEOF {
		body = append(body, tokens[i])
		i++
	}
	m.inline[name] = body
	return i, nil
}

// parseParametricHeader parses "name p1 p2 …:" starting at the token right
// after the declaring %%, returning the macro name, its ordered parameter
// names, and the index just past the header's closing colon.
func parseParametricHeader(tokens []Token, i int) (name string, params []string, next int, err error) {
	if i >= len(tokens) {
		return "", nil, i, &Diagnostic{Message: "%% must be followed by a macro name"}
	}
	if tokens[i].Kind == TokLabelDef {
		return tokens[i].Text, nil, i + 1, nil
	}
	if tokens[i].Kind != TokIdentifier {
		t := tokens[i]
		return "", nil, i, &Diagnostic{File: t.File, Line: t.Line, Column: t.Column, Message: "%% must be followed by a macro name"}
	}
	name = tokens[i].Text
	i++
	for i < len(tokens) {
		switch tokens[i].Kind {
		case TokIdentifier:
			params = append(params, tokens[i].Text)
			i++
		case TokLabelDef:
			params = append(params, tokens[i].Text)
			return name, params, i + 1, nil
		default:
			t := tokens[i]
			return "", nil, i, &Diagnostic{File: t.File, Line: t.Line, Column: t.Column, Message: fmt.Sprintf("macro %q header must end with ':'", name)}
		}
	}
	return "", nil, i, &Diagnostic{Message: fmt.Sprintf("macro %q header must end with ':'", name)}
}

// expandInvocations substitutes every `=NAME` and `!name a1 a2 …` it finds
// with that macro's expansion, recursively expanding any macro invocation
// the substituted tokens themselves contain. stack tracks macro names
// currently being expanded on the current call chain, so a macro that
// invokes itself (directly or transitively) is caught as an error instead
// of recursing forever.
func (m *MacroExpander) expandInvocations(tokens []Token, stack map[string]bool) ([]Token, error) {
	var out []Token
	i := 0
	for i < len(tokens) {
		t := tokens[i]

		if t.Kind == TokEquals && i+1 < len(tokens) && tokens[i+1].Kind == TokIdentifier {
			name := tokens[i+1].Text
			body, ok := m.inline[name]
			if !ok {
				return nil, &Diagnostic{File: t.File, Line: t.Line, Column: t.Column, Message: fmt.Sprintf("undefined inline macro %q", name)}
			}
			expanded, err := m.expandMacroBody(name, body, stack, t)
			if err != nil {
				return nil, err
			}
			out = append(out, expanded...)
			i += 2
			continue
		}

		if t.Kind == TokBang && i+1 < len(tokens) && tokens[i+1].Kind == TokIdentifier {
			name := tokens[i+1].Text
			def, ok := m.parametric[name]
			if !ok {
				return nil, &Diagnostic{File: t.File, Line: t.Line, Column: t.Column, Message: fmt.Sprintf("undefined macro %q", name)}
			}
			i += 2
			args, consumed := splitMacroArgs(tokens[i:])
			i += consumed
			if len(args) != len(def.params) {
				return nil, &Diagnostic{File: t.File, Line: t.Line, Column: t.Column,
					Message: fmt.Sprintf("macro %q takes %d argument(s), got %d", name, len(def.params), len(args))}
			}
			substituted, err := substituteParams(def, args)
			if err != nil {
				return nil, err
			}
			expanded, err := m.expandMacroBody(name, substituted, stack, t)
			if err != nil {
				return nil, err
			}
			out = append(out, expanded...)
			continue
		}

		out = append(out, t)
		i++
	}
	return out, nil
}

func (m *MacroExpander) expandMacroBody(name string, body []Token, stack map[string]bool, site Token) ([]Token, error) {
	if stack[name] {
		return nil, &Diagnostic{File: site.File, Line: site.Line, Column: site.Column, Message: fmt.Sprintf("circular macro expansion: %q", name)}
	}
	stack[name] = true
	expanded, err := m.expandInvocations(body, stack)
	delete(stack, name)
	return expanded, err
}

// splitMacroArgs reads positional argument tokens up to the next newline.
// Each argument is a single token, except a bracketed run `[ ... ]`, which
// counts as one argument including its brackets: `!foo [r1] r2` passes the
// addressing expression `[r1]` whole as the first argument.
func splitMacroArgs(tokens []Token) (args [][]Token, consumed int) {
	i := 0
	for i < len(tokens) {
		t := tokens[i]
		if t.Kind == TokNewline || t.Kind == TokEOF {
			return args, i
		}
		if t.Kind == TokLBracket {
			depth := 0
			var group []Token
			for i < len(tokens) {
				tok := tokens[i]
				group = append(group, tok)
				i++
				if tok.Kind == TokLBracket {
					depth++
				} else if tok.Kind == TokRBracket {
					depth--
					if depth == 0 {
						break
					}
				}
			}
			args = append(args, group)
			continue
		}
		args = append(args, []Token{t})
		i++
	}
	return args, i
}

// substituteParams replaces every `{param}` in def's body with the
// matching argument's tokens.
func substituteParams(def *macroDef, args [][]Token) ([]Token, error) {
	argFor := make(map[string][]Token, len(def.params))
	for idx, p := range def.params {
		argFor[p] = args[idx]
	}

	var out []Token
	i := 0
	for i < len(def.body) {
		t := def.body[i]
		if t.Kind == TokLBrace && i+2 < len(def.body) &&
			def.body[i+1].Kind == TokIdentifier && def.body[i+2].Kind == TokRBrace {
			name := def.body[i+1].Text
			val, ok := argFor[name]
			if !ok {
				return nil, &Diagnostic{File: t.File, Line: t.Line, Column: t.Column, Message: fmt.Sprintf("unknown macro parameter %q", name)}
			}
			out = append(out, val...)
			i += 3
			continue
		}
		out = append(out, t)
		i++
	}
	return out, nil
}
