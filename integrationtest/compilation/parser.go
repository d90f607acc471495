package compilation

import (
	"fmt"
	"strconv"
	"strings"
	"text/scanner"
)

// Expression kinds, used as keys of the Evaluate bail map.
const (
	KindNumber     = "number"
	KindIdentifier = "identifier"
	KindUnary      = "unary"
	KindBinary     = "binary"
)

// Expr is a node of a parsed expression.
type Expr interface {
	Kind() string
	String() string
}

// Number is a numeric literal.
type Number struct {
	Value float64
}

func (n *Number) Kind() string   { return KindNumber }
func (n *Number) String() string { return strconv.FormatFloat(n.Value, 'g', -1, 64) }

// Identifier names a constant.
type Identifier struct {
	Name string
}

func (i *Identifier) Kind() string   { return KindIdentifier }
func (i *Identifier) String() string { return i.Name }

// Unary is a prefix operation. The only operator is '-'.
type Unary struct {
	Op rune
	X  Expr
}

func (u *Unary) Kind() string   { return KindUnary }
func (u *Unary) String() string { return fmt.Sprintf("(%c%s)", u.Op, u.X) }

// Binary is an infix operation: one of + - * /.
type Binary struct {
	Op          rune
	Left, Right Expr
}

func (b *Binary) Kind() string   { return KindBinary }
func (b *Binary) String() string { return fmt.Sprintf("(%s %c %s)", b.Left, b.Op, b.Right) }

// ParseError reports a syntax error.
type ParseError struct {
	Pos scanner.Position
	Msg string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error at column %d: %s", e.Pos.Column, e.Msg)
}

// Parse parses an arithmetic expression:
//
//	expr    = term { ("+" | "-") term }
//	term    = unary { ("*" | "/") unary }
//	unary   = "-" unary | primary
//	primary = number | identifier | "(" expr ")"
func Parse(src string) (Expr, error) {
	p := &parser{}
	p.s.Init(strings.NewReader(src))
	p.s.Mode = scanner.ScanIdents | scanner.ScanInts | scanner.ScanFloats
	p.s.Error = func(s *scanner.Scanner, msg string) {
		p.fail(msg)
	}
	p.next()

	x := p.expr()
	if p.err == nil && p.tok != scanner.EOF {
		p.fail(fmt.Sprintf("unexpected %s", scanner.TokenString(p.tok)))
	}
	if p.err != nil {
		return nil, p.err
	}
	return x, nil
}

type parser struct {
	s   scanner.Scanner
	tok rune
	err error
}

func (p *parser) next() {
	p.tok = p.s.Scan()
}

func (p *parser) fail(msg string) {
	if p.err == nil {
		p.err = &ParseError{Pos: p.s.Position, Msg: msg}
	}
}

func (p *parser) expr() Expr {
	x := p.term()
	for p.err == nil && (p.tok == '+' || p.tok == '-') {
		op := p.tok
		p.next()
		x = &Binary{Op: op, Left: x, Right: p.term()}
	}
	return x
}

func (p *parser) term() Expr {
	x := p.unary()
	for p.err == nil && (p.tok == '*' || p.tok == '/') {
		op := p.tok
		p.next()
		x = &Binary{Op: op, Left: x, Right: p.unary()}
	}
	return x
}

func (p *parser) unary() Expr {
	if p.tok == '-' {
		p.next()
		return &Unary{Op: '-', X: p.unary()}
	}
	return p.primary()
}

func (p *parser) primary() Expr {
	switch p.tok {
	case scanner.Int, scanner.Float:
		v, err := strconv.ParseFloat(p.s.TokenText(), 64)
		if err != nil {
			p.fail(err.Error())
			return nil
		}
		p.next()
		return &Number{Value: v}
	case scanner.Ident:
		name := p.s.TokenText()
		p.next()
		return &Identifier{Name: name}
	case '(':
		p.next()
		x := p.expr()
		if p.err == nil && p.tok != ')' {
			p.fail(fmt.Sprintf("expected ')', found %s", scanner.TokenString(p.tok)))
		}
		p.next()
		return x
	default:
		p.fail(fmt.Sprintf("unexpected %s", scanner.TokenString(p.tok)))
		return nil
	}
}
