package asm

import (
	"fmt"
	"path/filepath"
)

// ExpandIncludes walks tokens looking for `.include "path"` directives,
// recursively substituting each with the tokens of the resolved file (or
// nothing, if that file was already included elsewhere in the program).
// Runs before macro expansion, since a macro may be defined in one file
// and invoked from another. Grounded on
// original_source/assembler/src/module_manager.rs's include-resolution
// order, reimplemented over asm.ModuleManager.
//
// A label or inline macro defined in the included file is visible to the
// including file only if it is exported ("@name:" or "%%- NAME:"); every
// other definition is mangled to a name unique to that include so it can
// never collide with or be referenced from the including file. An
// exported definition is in turn visible only one include level up,
// unless the .include itself was written "@@path", which re-exports it
// for whatever file includes the including file next.
func ExpandIncludes(tokens []Token, mm *ModuleManager) ([]Token, error) {
	uniq := 0
	return expandIncludes(tokens, mm, &uniq)
}

func expandIncludes(tokens []Token, mm *ModuleManager, uniq *int) ([]Token, error) {
	var out []Token
	i := 0
	for i < len(tokens) {
		t := tokens[i]
		if t.Kind == TokDot && i+1 < len(tokens) && tokens[i+1].Kind == TokIdentifier && tokens[i+1].Text == "include" {
			pathIdx := i + 2
			reExport := false
			if pathIdx < len(tokens) && tokens[pathIdx].Kind == TokAtAt {
				reExport = true
				pathIdx++
			}
			if pathIdx >= len(tokens) || tokens[pathIdx].Kind != TokString {
				return nil, &Diagnostic{File: t.File, Line: t.Line, Column: t.Column, Message: ".include must be followed by a string path, optionally prefixed with @@ to re-export it"}
			}
			includePath := tokens[pathIdx].Text
			callerDir := filepath.Dir(t.File)

			resolved, err := mm.Resolve(includePath, callerDir)
			if err != nil {
				return nil, &Diagnostic{File: t.File, Line: t.Line, Column: t.Column, Message: err.Error()}
			}
			included, _, err := mm.LoadOnce(resolved)
			if err != nil {
				return nil, &Diagnostic{File: t.File, Line: t.Line, Column: t.Column, Message: err.Error()}
			}
			// Drop the included file's own end-of-input marker so the
			// including file's tokens after the .include are still parsed.
			if n := len(included); n > 0 && included[n-1].Kind == TokEOF {
				included = included[:n-1]
			}
			if len(included) > 0 {
				nested, err := expandIncludes(included, mm, uniq)
				if err != nil {
					return nil, err
				}
				(*uniq)++
				out = append(out, maskPrivateSymbols(nested, reExport, *uniq)...)
			}
			i = pathIdx + 1
			continue
		}
		out = append(out, t)
		i++
	}
	return out, nil
}

// maskPrivateSymbols renames every non-exported label and inline-macro
// definition (and its references) within an included unit's tokens to a
// name unique to this include, so it cannot be seen from or collide with
// the including file's own symbols. An exported definition keeps its
// literal name either way, since the including file itself can always see
// it; what reExport controls is only whether that definition still looks
// exported to whoever includes the including file next: reExport true
// leaves its "@" (or "%%-") marker in place so it propagates, reExport
// false strips the marker so the next masking pass sees a bare definition
// and hides it there instead.
func maskPrivateSymbols(tokens []Token, reExport bool, uniq int) []Token {
	rename := make(map[string]string) // private name -> mangled name, always applied
	dropAt := make(map[string]bool)   // exported label name -> strip its '@' rather than keep it
	sigilFlip := make(map[int]bool)   // index of a "%%" to demote to "%" for the next level up

	for i, t := range tokens {
		switch {
		case t.Kind == TokLabelDef && !isInlineMacroNameDef(tokens, i):
			if exported := i > 0 && tokens[i-1].Kind == TokAt; exported {
				dropAt[t.Text] = !reExport
			} else {
				rename[t.Text] = fmt.Sprintf("__inc%d_%s", uniq, t.Text)
			}

		case (t.Kind == TokPercentPercent || t.Kind == TokPercent) &&
			i+2 < len(tokens) && tokens[i+1].Kind == TokMinus && tokens[i+2].Kind == TokLabelDef:
			if exported := t.Kind == TokPercentPercent; exported {
				if !reExport {
					sigilFlip[i] = true
				}
			} else {
				name := tokens[i+2].Text
				rename[name] = fmt.Sprintf("__inc%d_%s", uniq, name)
			}
		}
	}

	out := make([]Token, 0, len(tokens))
	for i, t := range tokens {
		switch {
		case t.Kind == TokAt:
			// A private symbol never carries a literal "@"; an exported one's
			// "@" only needs to survive into the output when it is being
			// re-exported one level further up.
			if i+1 < len(tokens) && dropAt[tokens[i+1].Text] {
				continue
			}
		case sigilFlip[i]:
			t.Kind, t.Text = TokPercent, "%"
		case t.Kind == TokLabelDef || t.Kind == TokIdentifier:
			if newName, ok := rename[t.Text]; ok {
				t.Text = newName
			}
		}
		out = append(out, t)
	}
	return out
}

// isInlineMacroNameDef reports whether the TokLabelDef at tokens[i] is the
// NAME of a "%%- NAME:" or "%- NAME:" inline macro declaration rather than
// an ordinary label definition.
func isInlineMacroNameDef(tokens []Token, i int) bool {
	return i >= 2 &&
		(tokens[i-2].Kind == TokPercentPercent || tokens[i-2].Kind == TokPercent) &&
		tokens[i-1].Kind == TokMinus
}
