package demangle

import (
	"strconv"

	"relist/internal/tokens"
)

// path parses a path production and returns its namespace: the
// namespace byte of a nested path, or the tag of any other form.
func (p *parser) path() (byte, error) {
	if err := p.enter(); err != nil {
		return 0, err
	}
	defer p.leave()

	tag, err := p.next()
	if err != nil {
		return 0, err
	}

	switch tag {
	case 'C': // crate root
		name, _, err := p.ident()
		if err != nil {
			return 0, err
		}
		p.push(name, tokens.Path)
		return tag, nil

	case 'M': // <T>
		if err := p.implPath(); err != nil {
			return 0, err
		}
		p.push("<", tokens.Punctuation)
		if err := p.typ(); err != nil {
			return 0, err
		}
		p.push(">", tokens.Punctuation)
		return tag, nil

	case 'X': // <T as Trait>
		if err := p.implPath(); err != nil {
			return 0, err
		}
		return tag, p.qualified()

	case 'Y': // <T as Trait>
		return tag, p.qualified()

	case 'N': // ...::ident
		ns, err := p.next()
		if err != nil {
			return 0, err
		}
		if !isLower(ns) && !isUpper(ns) {
			return 0, ErrSyntax
		}
		if _, err := p.path(); err != nil {
			return 0, err
		}
		name, dis, err := p.ident()
		if err != nil {
			return 0, err
		}
		p.nested(ns, name, dis)
		return ns, nil

	case 'I': // ...<T, U>
		ns, err := p.path()
		if err != nil {
			return 0, err
		}
		// paths to types print Foo<T>, everything else foo::<T>
		if ns != 't' {
			p.push("::", tokens.Separator)
		}
		p.push("<", tokens.Punctuation)
		if err := p.genericArgs(); err != nil {
			return 0, err
		}
		p.push(">", tokens.Punctuation)
		return ns, nil

	case 'B':
		p.pos--
		off, err := p.backref()
		if err != nil {
			return 0, err
		}
		var ns byte
		err = p.at(off, func() error {
			var err error
			ns, err = p.path()
			return err
		})
		return ns, err
	}
	return 0, ErrSyntax
}

// implPath parses [<disambiguator>] <path> without printing it.
func (p *parser) implPath() error {
	p.quiet++
	defer func() { p.quiet-- }()

	if _, err := p.disambiguator(); err != nil {
		return err
	}
	_, err := p.path()
	return err
}

// qualified parses <type> <path> as "<T as Trait>".
func (p *parser) qualified() error {
	p.push("<", tokens.Punctuation)
	if err := p.typ(); err != nil {
		return err
	}
	p.push(" as ", tokens.Keyword)
	if _, err := p.path(); err != nil {
		return err
	}
	p.push(">", tokens.Punctuation)
	return nil
}

func (p *parser) nested(ns byte, name string, dis uint64) {
	p.push("::", tokens.Separator)

	if isLower(ns) {
		p.push(name, tokens.Path)
		return
	}

	var kind string
	switch ns {
	case 'C':
		kind = "closure"
	case 'S':
		kind = "shim"
	default:
		kind = string(ns)
	}

	p.push("{", tokens.Punctuation)
	p.push(kind, tokens.Keyword)
	if name != "" {
		p.push(":", tokens.Punctuation)
		p.push(name, tokens.Path)
	}
	if dis != 0 {
		p.push("#", tokens.Punctuation)
		p.push(strconv.FormatUint(dis, 10), tokens.Immediate)
	}
	p.push("}", tokens.Punctuation)
}

// genericArgs parses {<generic-arg>} "E", comma separated.
func (p *parser) genericArgs() error {
	for i := 0; !p.eat('E'); i++ {
		if p.eof() {
			return ErrSyntax
		}
		if i > 0 {
			p.push(", ", tokens.Punctuation)
		}
		if err := p.genericArg(); err != nil {
			return err
		}
	}
	return nil
}

func (p *parser) genericArg() error {
	switch p.peek() {
	case 'L':
		p.pos++
		lt, err := p.base62()
		if err != nil {
			return err
		}
		p.lifetime(lt, true)
		return nil
	case 'K':
		p.pos++
		return p.constant()
	}
	return p.typ()
}

func isLower(b byte) bool { return b >= 'a' && b <= 'z' }
func isUpper(b byte) bool { return b >= 'A' && b <= 'Z' }
