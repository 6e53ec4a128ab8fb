package asm

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/nic-obert/rusty-vm/isa"
)

// Parser turns a fully macro- and include-expanded token stream into a
// flat list of Items, tracking the active section as it goes. It does
// not resolve label addresses; that is the backend's first pass.
type Parser struct {
	tokens []Token
	pos    int
	diags  DiagnosticList
	items  []Item

	section Section

	genCounter int
}

func NewParser(tokens []Token) *Parser {
	return &Parser{tokens: tokens, section: SectionText}
}

func (p *Parser) cur() Token  { return p.tokens[p.pos] }
func (p *Parser) atEnd() bool { return p.cur().Kind == TokEOF }

func (p *Parser) advance() Token {
	t := p.tokens[p.pos]
	if p.pos < len(p.tokens)-1 {
		p.pos++
	}
	return t
}

func (p *Parser) skipNewlines() {
	for !p.atEnd() && p.cur().Kind == TokNewline {
		p.advance()
	}
}

func (p *Parser) errf(t Token, format string, args ...any) {
	p.diags.Addf(t.File, t.Line, t.Column, format, args...)
}

// Parse runs the whole token stream and returns the resulting items, or
// every diagnostic collected along the way.
func (p *Parser) Parse() ([]Item, error) {
	for !p.atEnd() {
		p.skipNewlines()
		if p.atEnd() {
			break
		}
		p.parseStatement()
		p.skipNewlines()
	}
	if p.diags.HasErrors() {
		return nil, &p.diags
	}
	return p.items, nil
}

func (p *Parser) parseStatement() {
	t := p.cur()

	switch t.Kind {
	case TokDot:
		p.parseSectionDirective()

	case TokAt:
		p.advance()
		label := p.cur()
		if label.Kind != TokLabelDef {
			p.errf(t, "'@' must be followed by a label definition")
			return
		}
		p.advance()
		p.items = append(p.items, Item{Tok: label, Section: p.section, Label: label.Text, Exported: true})

	case TokLabelDef:
		p.advance()
		p.items = append(p.items, Item{Tok: t, Section: p.section, Label: t.Text})

	case TokAnonLabelDef:
		p.advance()
		p.items = append(p.items, Item{Tok: t, Section: p.section, Anon: true})

	case TokIdentifier:
		p.parseInstructionOrDirective()

	default:
		p.errf(t, "unexpected token %s", t)
		p.advance()
	}
}

func (p *Parser) parseSectionDirective() {
	dot := p.advance()
	if p.cur().Kind != TokIdentifier {
		p.errf(dot, "expected section name after '.'")
		return
	}
	name := p.advance().Text
	switch name {
	case "text":
		p.section = SectionText
	case "data":
		p.section = SectionData
	case "bss":
		p.section = SectionBss
	default:
		p.errf(dot, "unknown section directive %q", name)
	}
}

func (p *Parser) parseInstructionOrDirective() {
	nameTok := p.advance()
	name := nameTok.Text

	switch name {
	case "db":
		p.parseDataBytes(nameTok)
		return
	case "dn":
		p.parseDataNumbers(nameTok)
		return
	case "ds":
		p.parseDataReserve(nameTok)
		return
	case "da":
		p.parseDataAddresses(nameTok)
		return
	case "offsetfrom":
		p.parseOffsetFrom(nameTok)
		return
	case "printstr":
		p.parsePrintStr(nameTok)
		return
	}

	inst, ok := p.resolveInstruction(nameTok, name)
	if !ok {
		return
	}
	p.items = append(p.items, Item{Tok: nameTok, Section: p.section, Instruction: inst})
}

// resolveInstruction dispatches a mnemonic to the right opcode family and
// parses its operands: consult a lookup table keyed by mnemonic before
// falling back to generic operand parsing.
func (p *Parser) resolveInstruction(tok Token, name string) (*Instruction, bool) {
	if op, ok := bareOpcodes[name]; ok {
		return &Instruction{Op: op}, true
	}
	if op, ok := jumpOpcodes[name]; ok {
		operand := p.parseOperand()
		return &Instruction{Op: op, Operands: []Operand{operand}}, true
	}

	base, size, hasSize := splitMnemonic(name)

	switch base {
	case "mov":
		return p.resolveMove(tok, size)
	case "cmp":
		return p.resolveCompare(tok, size)
	case "push":
		return p.resolvePush(tok, size)
	case "pop":
		return p.resolvePop(tok, size)
	case "pushsp":
		return p.resolvePushStackPointer(tok)
	case "popsp":
		return p.resolvePopStackPointer(tok)
	case "memcopy":
		return p.resolveMemCopy(tok)
	case "bswap":
		return p.resolveBswap(tok, size)
	case "inc":
		return p.resolveIncDec(tok, size, hasSize, incByDst, isa.IncReg)
	case "dec":
		return p.resolveIncDec(tok, size, hasSize, decByDst, isa.DecReg)
	case "call":
		return p.resolveCall(tok)
	}

	p.errf(tok, "unknown mnemonic %q", name)
	return nil, false
}

// splitMnemonic strips a trailing size digit (1, 2, 4, or 8) from a
// mnemonic, e.g. "mov8" -> ("mov", Size8, true).
func splitMnemonic(name string) (base string, size isa.SizeTag, hasSize bool) {
	if len(name) == 0 {
		return name, 0, false
	}
	last := name[len(name)-1]
	switch last {
	case '1':
		return name[:len(name)-1], isa.Size1, true
	case '2':
		return name[:len(name)-1], isa.Size2, true
	case '4':
		return name[:len(name)-1], isa.Size4, true
	case '8':
		return name[:len(name)-1], isa.Size8, true
	default:
		return name, 0, false
	}
}

func (p *Parser) expectComma(after Token) {
	if p.cur().Kind != TokComma {
		p.errf(after, "expected ','")
		return
	}
	p.advance()
}

func (p *Parser) resolveMove(tok Token, size isa.SizeTag) (*Instruction, bool) {
	dst := p.parseOperand()
	p.expectComma(tok)
	src := p.parseOperand()
	if dst.Kind == OperandImmediate {
		p.errf(tok, "mov destination cannot be an immediate constant")
		return nil, false
	}
	op := moveByDst[dst.Kind][src.Kind]
	return &Instruction{Op: op, Size: size, HasSize: true, Operands: []Operand{dst, src}}, true
}

func (p *Parser) resolveCompare(tok Token, size isa.SizeTag) (*Instruction, bool) {
	a := p.parseOperand()
	p.expectComma(tok)
	b := p.parseOperand()
	op := compareByOperands[a.Kind][b.Kind]
	return &Instruction{Op: op, Size: size, HasSize: true, Operands: []Operand{a, b}}, true
}

func (p *Parser) resolvePush(tok Token, size isa.SizeTag) (*Instruction, bool) {
	src := p.parseOperand()
	return &Instruction{Op: pushBySrc[src.Kind], Size: size, HasSize: true, Operands: []Operand{src}}, true
}

func (p *Parser) resolvePop(tok Token, size isa.SizeTag) (*Instruction, bool) {
	dst := p.parseOperand()
	op, ok := popByDst[dst.Kind]
	if !ok {
		p.errf(tok, "pop destination cannot be an immediate constant")
		return nil, false
	}
	return &Instruction{Op: op, Size: size, HasSize: true, Operands: []Operand{dst}}, true
}

func (p *Parser) resolvePushStackPointer(tok Token) (*Instruction, bool) {
	n := p.parseOperand()
	return &Instruction{Op: pushStackPointerBySrc[n.Kind], Operands: []Operand{n}}, true
}

func (p *Parser) resolvePopStackPointer(tok Token) (*Instruction, bool) {
	n := p.parseOperand()
	return &Instruction{Op: popStackPointerBySrc[n.Kind], Operands: []Operand{n}}, true
}

func (p *Parser) resolveMemCopy(tok Token) (*Instruction, bool) {
	dst := p.parseOperand()
	p.expectComma(tok)
	src := p.parseOperand()
	p.expectComma(tok)
	count := p.parseOperand()
	if dst.Kind != OperandRegister || src.Kind != OperandRegister {
		p.errf(tok, "memcopy destination and source must be registers holding addresses")
		return nil, false
	}
	return &Instruction{Op: memCopyCountBySrc[count.Kind], Operands: []Operand{dst, src, count}}, true
}

func (p *Parser) resolveBswap(tok Token, size isa.SizeTag) (*Instruction, bool) {
	reg := p.parseOperand()
	if reg.Kind != OperandRegister {
		p.errf(tok, "bswap operand must be a register")
		return nil, false
	}
	return &Instruction{Op: isa.SwapBytesEndianness, Size: size, HasSize: true, Operands: []Operand{reg}}, true
}

func (p *Parser) resolveIncDec(tok Token, size isa.SizeTag, hasSize bool, byDst map[OperandKind]isa.Opcode, regOp isa.Opcode) (*Instruction, bool) {
	operand := p.parseOperand()
	if !hasSize {
		if operand.Kind != OperandRegister {
			p.errf(tok, "inc/dec without a size suffix only applies to a register")
			return nil, false
		}
		return &Instruction{Op: regOp, Operands: []Operand{operand}}, true
	}
	op, ok := byDst[operand.Kind]
	if !ok {
		p.errf(tok, "invalid operand for sized inc/dec")
		return nil, false
	}
	return &Instruction{Op: op, Size: size, HasSize: true, Operands: []Operand{operand}}, true
}

func (p *Parser) resolveCall(tok Token) (*Instruction, bool) {
	target := p.parseOperand()
	if target.Kind == OperandRegister {
		return &Instruction{Op: isa.CallReg, Operands: []Operand{target}}, true
	}
	return &Instruction{Op: isa.CallConst, Operands: []Operand{target}}, true
}

// parseOperand reads one operand: a bare register name, a bracketed
// register ([r1], address-in-register), a bracketed literal or label
// ([0x1000] or [label], address literal), or a bare number/label
// (immediate constant, also used as a jump/call target).
func (p *Parser) parseOperand() Operand {
	t := p.cur()

	if t.Kind == TokLBracket {
		p.advance()
		inner := p.cur()
		if inner.Kind == TokIdentifier {
			if reg, ok := isa.RegisterFromName(inner.Text); ok {
				p.advance()
				p.expectRBracket(t)
				return Operand{Kind: OperandAddrInReg, Reg: reg, Tok: inner}
			}
			p.advance()
			p.expectRBracket(t)
			return Operand{Kind: OperandAddrLiteral, Label: inner.Text, Tok: inner}
		}
		if inner.Kind == TokNumber {
			v := parseNumber(inner.Text)
			p.advance()
			p.expectRBracket(t)
			return Operand{Kind: OperandAddrLiteral, Value: v, Tok: inner}
		}
		p.errf(t, "expected register, number, or label inside '[' ']'")
		p.advance()
		return Operand{Kind: OperandAddrLiteral, Tok: t}
	}

	if t.Kind == TokAnonLabelRef {
		p.advance()
		return Operand{Kind: OperandImmediate, Label: "&", Tok: t}
	}

	if t.Kind == TokIdentifier {
		if reg, ok := isa.RegisterFromName(t.Text); ok {
			p.advance()
			return Operand{Kind: OperandRegister, Reg: reg, Tok: t}
		}
		p.advance()
		return Operand{Kind: OperandImmediate, Label: t.Text, Tok: t}
	}

	if t.Kind == TokNumber {
		v := parseNumber(t.Text)
		p.advance()
		return Operand{Kind: OperandImmediate, Value: v, Tok: t}
	}

	if t.Kind == TokMinus {
		p.advance()
		v := parseNumber(p.cur().Text)
		tok := p.cur()
		p.advance()
		return Operand{Kind: OperandImmediate, Value: uint64(-int64(v)), Tok: tok}
	}

	p.errf(t, "expected an operand")
	p.advance()
	return Operand{Kind: OperandImmediate, Tok: t}
}

func (p *Parser) expectRBracket(open Token) {
	if p.cur().Kind != TokRBracket {
		p.errf(open, "expected ']'")
		return
	}
	p.advance()
}

func parseNumber(text string) uint64 {
	text = strings.ReplaceAll(text, "_", "")
	if v, err := strconv.ParseUint(text, 0, 64); err == nil {
		return v
	}
	return 0
}

func (p *Parser) parseDataBytes(tok Token) {
	var bytes []byte
	for {
		t := p.cur()
		switch t.Kind {
		case TokString:
			bytes = append(bytes, []byte(t.Text)...)
			p.advance()
		case TokChar:
			bytes = append(bytes, []byte(t.Text)...)
			p.advance()
		case TokNumber:
			bytes = append(bytes, byte(parseNumber(t.Text)))
			p.advance()
		default:
			p.errf(tok, "expected a string, char, or number in db")
			return
		}
		if p.cur().Kind != TokComma {
			break
		}
		p.advance()
	}
	p.emitTextData(tok, &DataDirective{Kind: DataBytes, Bytes: bytes})
}

func (p *Parser) parseDataNumbers(tok Token) {
	p.parseSizedDataList(tok, DataNumbers, isa.Size8)
}

func (p *Parser) parseDataAddresses(tok Token) {
	p.parseSizedDataList(tok, DataAddresses, isa.Size8)
}

func (p *Parser) parseSizedDataList(tok Token, kind DataKind, size isa.SizeTag) {
	d := &DataDirective{Kind: kind, Size: size}
	for {
		t := p.cur()
		if t.Kind == TokIdentifier {
			if _, ok := isa.RegisterFromName(t.Text); !ok {
				d.Labels = append(d.Labels, t.Text)
				d.Values = append(d.Values, 0)
				p.advance()
				goto next
			}
		}
		if t.Kind == TokNumber {
			d.Labels = append(d.Labels, "")
			d.Values = append(d.Values, parseNumber(t.Text))
			p.advance()
			goto next
		}
		p.errf(tok, "expected a number or label in data directive")
		return
	next:
		if p.cur().Kind != TokComma {
			break
		}
		p.advance()
	}
	p.emitTextData(tok, d)
}

func (p *Parser) parseDataReserve(tok Token) {
	t := p.cur()
	if t.Kind != TokNumber {
		p.errf(tok, "ds expects a byte count")
		return
	}
	n := parseNumber(t.Text)
	p.advance()
	p.emitTextData(tok, &DataDirective{Kind: DataReserve, Count: n})
}

// parseOffsetFrom handles "offsetfrom label", a computed constant equal to
// this item's own address minus label's address.
func (p *Parser) parseOffsetFrom(tok Token) {
	t := p.cur()
	if t.Kind != TokIdentifier {
		p.errf(tok, "offsetfrom expects a label name")
		return
	}
	label := p.advance().Text
	p.emitTextData(tok, &DataDirective{Kind: DataOffsetFrom, Size: isa.Size8, OffsetFromLabel: label})
}

// parsePrintStr handles "printstr \"text\"", sugar for laying the string
// down as data and emitting the instructions to print it: set int to
// PRINT_STRING, load its address into print, and intr.
func (p *Parser) parsePrintStr(tok Token) {
	t := p.cur()
	if t.Kind != TokString {
		p.errf(tok, "printstr expects a string literal")
		return
	}
	p.advance()
	dataLabel := p.newGeneratedLabel("printstr_data")

	p.emitTextData(tok, &DataDirective{Kind: DataBytes, Bytes: append([]byte(t.Text), 0)})
	// emitTextData always appends exactly [data item, skip label] last;
	// attach the generated name to the data item so the mov below can
	// address it.
	p.items[len(p.items)-2].Label = dataLabel

	p.items = append(p.items,
		Item{Tok: tok, Section: p.section, Instruction: &Instruction{
			Op: isa.MoveRegConst, Size: isa.Size1, HasSize: true,
			Operands: []Operand{{Kind: OperandRegister, Reg: isa.Int}, {Kind: OperandImmediate, Value: uint64(isa.PrintString)}},
		}},
		Item{Tok: tok, Section: p.section, Instruction: &Instruction{
			Op: isa.MoveRegConst, Size: isa.Size8, HasSize: true,
			Operands: []Operand{{Kind: OperandRegister, Reg: isa.Print}, {Kind: OperandImmediate, Label: dataLabel, Tok: tok}},
		}},
		Item{Tok: tok, Section: p.section, Instruction: &Instruction{Op: isa.Interrupt}},
	)
}

// emitTextData appends a data-laying item, guarding it with an
// unconditional jump around it when it falls inside .text so the
// processor never fetches the literal bytes as instructions. The jump is
// inserted before any label-only items immediately preceding this point,
// so a label meant to address the data (e.g. "msg: db ...") still
// resolves to the data's own address rather than to the guard jump.
func (p *Parser) emitTextData(tok Token, data *DataDirective) {
	if p.section != SectionText {
		p.items = append(p.items, Item{Tok: tok, Section: p.section, Data: data})
		return
	}

	insertAt := len(p.items)
	for insertAt > 0 {
		prev := p.items[insertAt-1]
		if prev.Instruction == nil && prev.Data == nil && (prev.Label != "" || prev.Anon) {
			insertAt--
			continue
		}
		break
	}

	skip := p.newGeneratedLabel("textdata_skip")
	guard := Item{Tok: tok, Section: p.section, Instruction: &Instruction{
		Op:       isa.Jump,
		Operands: []Operand{{Kind: OperandImmediate, Label: skip, Tok: tok}},
	}}

	p.items = append(p.items, Item{})
	copy(p.items[insertAt+1:], p.items[insertAt:])
	p.items[insertAt] = guard

	p.items = append(p.items, Item{Tok: tok, Section: p.section, Data: data})
	p.items = append(p.items, Item{Tok: tok, Section: p.section, Label: skip})
}

func (p *Parser) newGeneratedLabel(prefix string) string {
	p.genCounter++
	return fmt.Sprintf("__%s_%d", prefix, p.genCounter)
}
