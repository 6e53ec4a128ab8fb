package asm

import (
	"fmt"
	"strings"
)

// Diagnostic is one assembler error or warning, carrying enough source
// position to print a useful message. Grounded on
// original_source/assembler/src/error.rs's error-reporting shape: a
// message plus file/line/column. The parser and the emitter accumulate
// them rather than stopping at the first, so one pass reports every
// problem it finds; the lexer, include and macro stages return their
// first error.
type Diagnostic struct {
	File    string
	Line    int
	Column  int
	Message string
}

func (d *Diagnostic) Error() string {
	return fmt.Sprintf("%s:%d:%d: %s", d.File, d.Line, d.Column, d.Message)
}

// DiagnosticList collects diagnostics across an entire assemble run. It
// satisfies the error interface so a full run can be treated as a single
// error when nonempty.
type DiagnosticList struct {
	items []*Diagnostic
}

func (l *DiagnosticList) Add(d *Diagnostic) {
	l.items = append(l.items, d)
}

func (l *DiagnosticList) Addf(file string, line, col int, format string, args ...any) {
	l.Add(&Diagnostic{File: file, Line: line, Column: col, Message: fmt.Sprintf(format, args...)})
}

func (l *DiagnosticList) HasErrors() bool { return len(l.items) > 0 }

func (l *DiagnosticList) Items() []*Diagnostic { return l.items }

func (l *DiagnosticList) Error() string {
	lines := make([]string, len(l.items))
	for i, d := range l.items {
		lines[i] = d.Error()
	}
	return strings.Join(lines, "\n")
}
