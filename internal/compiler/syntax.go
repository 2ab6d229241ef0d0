package compiler

import (
	"fmt"
	"strconv"
	"strings"

	"fortio.org/safecast"

	"github.com/roach88/p4ir/internal/ir"
)

// Type and expression strings are the leaves of a program document:
//
//	types:       bit<8>  bool  H  register<bit<32>>  Parser<H, M>
//	expressions: hdr.h.a  hdr.h.a[7:1]  5  0x800  8w255  true  default
//	             error.NoMatch  pkt.lookahead<bit<16>>()  hdr.h.isValid()

type tokKind int

const (
	tokEOF tokKind = iota
	tokIdent
	tokNumber
	tokPunct
)

type tok struct {
	kind tokKind
	text string
	pos  int
}

func (t tok) String() string {
	if t.kind == tokEOF {
		return "end of input"
	}
	return strconv.Quote(t.text)
}

func lex(src string) ([]tok, error) {
	var toks []tok
	i := 0
	for i < len(src) {
		c := src[i]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			i++
		case isIdentStart(c):
			j := i + 1
			for j < len(src) && isIdentContinue(src[j]) {
				j++
			}
			toks = append(toks, tok{tokIdent, src[i:j], i})
			i = j
		case c >= '0' && c <= '9':
			// Numbers run until the first byte that cannot continue a literal, so
			// "8w255", "0x800" and "1_000" are single tokens.
			j := i + 1
			for j < len(src) && isIdentContinue(src[j]) {
				j++
			}
			toks = append(toks, tok{tokNumber, src[i:j], i})
			i = j
		case strings.IndexByte("<>,.[]():", c) >= 0:
			toks = append(toks, tok{tokPunct, string(c), i})
			i++
		default:
			return nil, fmt.Errorf("unexpected character %q at offset %d", c, i)
		}
	}
	return append(toks, tok{kind: tokEOF, pos: len(src)}), nil
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentContinue(c byte) bool {
	return isIdentStart(c) || (c >= '0' && c <= '9')
}

type syntaxParser struct {
	src  string
	toks []tok
	pos  int
}

func newSyntaxParser(src string) (*syntaxParser, error) {
	toks, err := lex(src)
	if err != nil {
		return nil, err
	}
	return &syntaxParser{src: src, toks: toks}, nil
}

func (p *syntaxParser) peek() tok { return p.toks[p.pos] }

func (p *syntaxParser) next() tok {
	t := p.toks[p.pos]
	if t.kind != tokEOF {
		p.pos++
	}
	return t
}

func (p *syntaxParser) at(punct string) bool {
	t := p.peek()
	return t.kind == tokPunct && t.text == punct
}

func (p *syntaxParser) expect(punct string) error {
	if t := p.next(); t.kind != tokPunct || t.text != punct {
		return fmt.Errorf("expected %q, got %s", punct, t)
	}
	return nil
}

func (p *syntaxParser) ident() (string, error) {
	t := p.next()
	if t.kind != tokIdent {
		return "", fmt.Errorf("expected a name, got %s", t)
	}
	return t.text, nil
}

func (p *syntaxParser) done() error {
	if t := p.peek(); t.kind != tokEOF {
		return fmt.Errorf("unexpected %s after %q", t, strings.TrimSpace(p.src[:t.pos]))
	}
	return nil
}

// ParseType parses a type string.
func ParseType(s string) (ir.TypeRef, error) {
	p, err := newSyntaxParser(s)
	if err != nil {
		return ir.TypeRef{}, fmt.Errorf("type %q: %w", s, err)
	}
	t, err := p.typeRef()
	if err == nil {
		err = p.done()
	}
	if err != nil {
		return ir.TypeRef{}, fmt.Errorf("type %q: %w", s, err)
	}
	return t, nil
}

func (p *syntaxParser) typeRef() (ir.TypeRef, error) {
	name, err := p.ident()
	if err != nil {
		return ir.TypeRef{}, err
	}
	switch name {
	case "bool":
		return ir.Bool(), nil
	case "bit":
		if err := p.expect("<"); err != nil {
			return ir.TypeRef{}, err
		}
		t := p.next()
		if t.kind != tokNumber {
			return ir.TypeRef{}, fmt.Errorf("expected a width, got %s", t)
		}
		w, err := parseWidth(t.text)
		if err != nil {
			return ir.TypeRef{}, err
		}
		if err := p.expect(">"); err != nil {
			return ir.TypeRef{}, err
		}
		return ir.Bits(w), nil
	}
	if !p.at("<") {
		return ir.Named(name), nil
	}
	args, err := p.typeArgs()
	if err != nil {
		return ir.TypeRef{}, err
	}
	return ir.Named(name, args...), nil
}

// typeArgs parses "<T1, T2>".
func (p *syntaxParser) typeArgs() ([]ir.TypeRef, error) {
	if err := p.expect("<"); err != nil {
		return nil, err
	}
	var args []ir.TypeRef
	for {
		t, err := p.typeRef()
		if err != nil {
			return nil, err
		}
		args = append(args, t)
		if p.at(",") {
			p.next()
			continue
		}
		return args, p.expect(">")
	}
}

// ParseExpr parses an expression string.
func ParseExpr(s string) (ir.Expr, error) {
	p, err := newSyntaxParser(s)
	if err != nil {
		return ir.Expr{}, fmt.Errorf("expression %q: %w", s, err)
	}
	e, err := p.expr()
	if err == nil {
		err = p.done()
	}
	if err != nil {
		return ir.Expr{}, fmt.Errorf("expression %q: %w", s, err)
	}
	return e, nil
}

func (p *syntaxParser) expr() (ir.Expr, error) {
	t := p.next()
	var e ir.Expr
	switch t.kind {
	case tokNumber:
		return parseIntLiteral(t.text)
	case tokIdent:
		switch t.text {
		case "true", "false":
			return ir.BoolLit(t.text == "true"), nil
		case "default", "_":
			return ir.Default(), nil
		}
		e = ir.Path(t.text)
	default:
		return ir.Expr{}, fmt.Errorf("expected an expression, got %s", t)
	}

	for {
		switch {
		case p.at("."):
			p.next()
			field, err := p.ident()
			if err != nil {
				return ir.Expr{}, err
			}
			e = ir.Member(e, field)
		case p.at("["):
			p.next()
			hi, err := p.bound()
			if err != nil {
				return ir.Expr{}, err
			}
			if err := p.expect(":"); err != nil {
				return ir.Expr{}, err
			}
			lo, err := p.bound()
			if err != nil {
				return ir.Expr{}, err
			}
			if err := p.expect("]"); err != nil {
				return ir.Expr{}, err
			}
			e = ir.Slice(e, hi, lo)
		case p.at("<"), p.at("("):
			var typeArgs []ir.TypeRef
			if p.at("<") {
				ta, err := p.typeArgs()
				if err != nil {
					return ir.Expr{}, err
				}
				typeArgs = ta
			}
			args, err := p.callArgs()
			if err != nil {
				return ir.Expr{}, err
			}
			e = ir.Call(e, typeArgs, args...)
		default:
			return e, nil
		}
	}
}

func (p *syntaxParser) callArgs() ([]ir.Expr, error) {
	if err := p.expect("("); err != nil {
		return nil, err
	}
	var args []ir.Expr
	if p.at(")") {
		p.next()
		return args, nil
	}
	for {
		a, err := p.expr()
		if err != nil {
			return nil, err
		}
		args = append(args, a)
		if p.at(",") {
			p.next()
			continue
		}
		return args, p.expect(")")
	}
}

// bound parses a slice index. Indices are plain non-negative decimals.
func (p *syntaxParser) bound() (int, error) {
	t := p.next()
	if t.kind != tokNumber {
		return 0, fmt.Errorf("expected a slice index, got %s", t)
	}
	v, err := strconv.ParseInt(t.text, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("slice index %q: %w", t.text, err)
	}
	return safecast.Conv[int](v)
}

func parseWidth(s string) (int, error) {
	u, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("width %q: %w", s, err)
	}
	return safecast.Conv[int](u)
}

// parseIntLiteral accepts decimal, 0x/0o/0b prefixed and width-annotated (8w255,
// 16w0x800) integers.
func parseIntLiteral(s string) (ir.Expr, error) {
	width := 0
	digits := s
	if i := strings.IndexByte(s, 'w'); i > 0 {
		w, err := parseWidth(s[:i])
		if err != nil {
			return ir.Expr{}, err
		}
		if w == 0 {
			return ir.Expr{}, fmt.Errorf("literal %q has zero width", s)
		}
		width, digits = w, s[i+1:]
	}
	v, err := strconv.ParseInt(digits, 0, 64)
	if err != nil {
		return ir.Expr{}, fmt.Errorf("integer literal %q: %w", s, err)
	}
	if width > 0 {
		return ir.SizedInt(width, v), nil
	}
	return ir.Int(v), nil
}
