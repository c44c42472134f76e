package demangle

import (
	"errors"
	"math/bits"

	"relist/internal/tokens"
)

const maxDepth = 256

// maxWork caps the tokens pushed plus back-references followed in one
// parse. Back-references can repeat earlier productions, so nesting
// depth alone does not bound the output.
const maxWork = 1 << 16

// parser holds the state of one parse. It is created per call.
type parser struct {
	src   string
	pos   int
	depth int
	work  int
	// output is suppressed while quiet > 0
	quiet int
	// lifetimes introduced by enclosing binders
	bound uint64
	out   *tokens.Stream
}

func newParser(s string) *parser {
	return &parser{src: s, out: tokens.New(16)}
}

func (p *parser) wrap(err error) error {
	var pe *Error
	if errors.As(err, &pe) {
		return err
	}
	return &Error{Pos: p.pos, Err: err}
}

func (p *parser) eof() bool { return p.pos >= len(p.src) }

func (p *parser) peek() byte {
	if p.eof() {
		return 0
	}
	return p.src[p.pos]
}

func (p *parser) eat(b byte) bool {
	if p.peek() == b && !p.eof() {
		p.pos++
		return true
	}
	return false
}

func (p *parser) next() (byte, error) {
	if p.eof() {
		return 0, ErrSyntax
	}
	b := p.src[p.pos]
	p.pos++
	return b, nil
}

// push appends a token. It counts against the work budget even while
// output is suppressed.
func (p *parser) push(text string, c tokens.Color) {
	p.work++
	if p.quiet == 0 && p.work <= maxWork {
		p.out.Push(text, c)
	}
}

func (p *parser) enter() error {
	p.depth++
	if p.depth > maxDepth {
		return ErrRecursionLimit
	}
	return p.budget()
}

// budget fails once the parse has done more than maxWork units.
func (p *parser) budget() error {
	if p.work > maxWork {
		return ErrTooLarge
	}
	return nil
}

func (p *parser) leave() { p.depth-- }

func isDigit(b byte) bool { return b >= '0' && b <= '9' }

func base62Digit(b byte) (uint64, bool) {
	switch {
	case b >= '0' && b <= '9':
		return uint64(b - '0'), true
	case b >= 'a' && b <= 'z':
		return uint64(b-'a') + 10, true
	case b >= 'A' && b <= 'Z':
		return uint64(b-'A') + 36, true
	}
	return 0, false
}

// base62 parses "_" as 0 and "<digits>_" as value+1.
func (p *parser) base62() (uint64, error) {
	if p.eat('_') {
		return 0, nil
	}

	var acc uint64
	digits := 0
	for {
		b, err := p.next()
		if err != nil {
			return 0, err
		}
		if b == '_' {
			break
		}
		d, ok := base62Digit(b)
		if !ok {
			return 0, ErrSyntax
		}
		hi, lo := bits.Mul64(acc, 62)
		if hi != 0 {
			return 0, ErrOverflow
		}
		var carry uint64
		acc, carry = bits.Add64(lo, d, 0)
		if carry != 0 {
			return 0, ErrOverflow
		}
		digits++
	}
	if digits == 0 {
		return 0, ErrSyntax
	}
	if acc == ^uint64(0) {
		return 0, ErrOverflow
	}
	return acc + 1, nil
}

// base10 parses a decimal number. ok is false when no digit is present.
func (p *parser) base10() (n uint64, ok bool, err error) {
	if p.eat('0') {
		return 0, true, nil
	}
	for isDigit(p.peek()) {
		hi, lo := bits.Mul64(n, 10)
		if hi != 0 {
			return 0, true, ErrOverflow
		}
		var carry uint64
		n, carry = bits.Add64(lo, uint64(p.peek()-'0'), 0)
		if carry != 0 {
			return 0, true, ErrOverflow
		}
		p.pos++
		ok = true
	}
	return n, ok, nil
}

// disambiguator parses an optional "s" <base62>. Absent is 0.
func (p *parser) disambiguator() (uint64, error) {
	if !p.eat('s') {
		return 0, nil
	}
	return p.base62()
}

// ident parses [<disambiguator>] <undisambiguated-identifier>.
func (p *parser) ident() (string, uint64, error) {
	dis, err := p.disambiguator()
	if err != nil {
		return "", 0, err
	}
	name, err := p.undisambiguated()
	return name, dis, err
}

func (p *parser) undisambiguated() (string, error) {
	if p.eat('u') {
		return "", ErrPunycode
	}
	n, ok, err := p.base10()
	if err != nil {
		return "", err
	}
	if !ok {
		// an elided name is only accepted at the very end
		if p.eof() {
			return "", nil
		}
		return "", ErrSyntax
	}
	p.eat('_')
	if n > uint64(len(p.src)-p.pos) {
		return "", ErrSyntax
	}
	name := p.src[p.pos : p.pos+int(n)]
	p.pos += int(n)
	return name, nil
}

// backref parses "B" <base62> and returns the target offset. The
// target must precede the tag.
func (p *parser) backref() (int, error) {
	tag := p.pos
	if !p.eat('B') {
		return 0, ErrSyntax
	}
	off, err := p.base62()
	if err != nil {
		return 0, err
	}
	if off >= uint64(tag) {
		return 0, ErrBackref
	}
	return int(off), nil
}

// at runs fn with the cursor moved to off and restores it afterwards.
func (p *parser) at(off int, fn func() error) error {
	p.work++
	if err := p.budget(); err != nil {
		return err
	}
	saved := p.pos
	p.pos = off
	err := fn()
	p.pos = saved
	return err
}
