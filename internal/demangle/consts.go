package demangle

import (
	"strconv"
	"unicode/utf8"

	"relist/internal/tokens"
)

// constant parses <type> <const-data>, "p" or a backreference.
func (p *parser) constant() error {
	if err := p.enter(); err != nil {
		return err
	}
	defer p.leave()

	switch p.peek() {
	case 'p':
		p.pos++
		p.push("_", tokens.Immediate)
		return nil
	case 'B':
		off, err := p.backref()
		if err != nil {
			return err
		}
		return p.at(off, p.constant)
	}

	ty, err := p.next()
	if err != nil {
		return err
	}

	var signed bool
	switch ty {
	case 'h', 't', 'm', 'y', 'o', 'j', 'b', 'c':
	case 'a', 's', 'l', 'x', 'n', 'i':
		signed = true
	default:
		return ErrSyntax
	}

	neg := signed && p.eat('n')
	start := p.pos
	for !p.eat('_') {
		b, err := p.next()
		if err != nil {
			return err
		}
		if !isHex(b) {
			return ErrSyntax
		}
	}
	hex := p.src[start : p.pos-1]

	text, err := renderConst(ty, neg, hex)
	if err != nil {
		return err
	}
	p.push(text, tokens.Immediate)
	return nil
}

func renderConst(ty byte, neg bool, hex string) (string, error) {
	if len(hex) > 16 {
		// wider than 64 bits, only integers can be this large
		if ty == 'b' || ty == 'c' {
			return "", ErrOverflow
		}
		if neg {
			return "-0x" + hex, nil
		}
		return "0x" + hex, nil
	}

	var v uint64
	if hex != "" {
		var err error
		v, err = strconv.ParseUint(hex, 16, 64)
		if err != nil {
			return "", ErrSyntax
		}
	}

	switch ty {
	case 'b':
		switch v {
		case 0:
			return "false", nil
		case 1:
			return "true", nil
		}
		return "", ErrSyntax
	case 'c':
		if v > utf8.MaxRune || !utf8.ValidRune(rune(v)) {
			return "", ErrSyntax
		}
		return strconv.QuoteRune(rune(v)), nil
	}

	s := strconv.FormatUint(v, 10)
	if neg {
		s = "-" + s
	}
	return s, nil
}

func isHex(b byte) bool {
	return (b >= '0' && b <= '9') || (b >= 'a' && b <= 'f')
}
