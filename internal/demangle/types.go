package demangle

import (
	"strconv"
	"strings"

	"relist/internal/tokens"
)

var basicTypes = map[byte]string{
	'b': "bool",
	'c': "char",
	'e': "str",
	'u': "()",
	'a': "i8",
	's': "i16",
	'l': "i32",
	'x': "i64",
	'n': "i128",
	'i': "isize",
	'h': "u8",
	't': "u16",
	'm': "u32",
	'y': "u64",
	'o': "u128",
	'j': "usize",
	'f': "f32",
	'd': "f64",
	'z': "!",
	'p': "_",
	'v': "...",
}

func (p *parser) typ() error {
	if err := p.enter(); err != nil {
		return err
	}
	defer p.leave()

	if p.eof() {
		return ErrSyntax
	}
	tag := p.peek()
	if name, ok := basicTypes[tag]; ok {
		p.pos++
		p.push(name, tokens.Primitive)
		return nil
	}

	switch tag {
	case 'C', 'M', 'X', 'Y', 'N', 'I':
		_, err := p.path()
		return err
	case 'B':
		off, err := p.backref()
		if err != nil {
			return err
		}
		return p.at(off, p.typ)
	}

	p.pos++
	switch tag {
	case 'A': // [T; N]
		p.push("[", tokens.Punctuation)
		if err := p.typ(); err != nil {
			return err
		}
		p.push("; ", tokens.Punctuation)
		if err := p.constant(); err != nil {
			return err
		}
		p.push("]", tokens.Punctuation)

	case 'S': // [T]
		p.push("[", tokens.Punctuation)
		if err := p.typ(); err != nil {
			return err
		}
		p.push("]", tokens.Punctuation)

	case 'T': // (T, U)
		p.push("(", tokens.Punctuation)
		n, err := p.typeList(", ")
		if err != nil {
			return err
		}
		if n == 1 {
			p.push(",", tokens.Punctuation)
		}
		p.push(")", tokens.Punctuation)

	case 'R', 'Q': // &'a T, &'a mut T
		p.push("&", tokens.Punctuation)
		if p.eat('L') {
			lt, err := p.base62()
			if err != nil {
				return err
			}
			if lt != 0 {
				p.lifetime(lt, false)
				p.push(" ", tokens.Text)
			}
		}
		if tag == 'Q' {
			p.push("mut ", tokens.Keyword)
		}
		return p.typ()

	case 'P':
		p.push("*const ", tokens.Keyword)
		return p.typ()

	case 'O':
		p.push("*mut ", tokens.Keyword)
		return p.typ()

	case 'F':
		return p.fnSig()

	case 'D':
		return p.dyn()

	default:
		return ErrSyntax
	}
	return nil
}

// typeList parses {<type>} "E" and returns how many types it read.
func (p *parser) typeList(sep string) (int, error) {
	n := 0
	for !p.eat('E') {
		if p.eof() {
			return n, ErrSyntax
		}
		if n > 0 {
			p.push(sep, tokens.Punctuation)
		}
		if err := p.typ(); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}

// lifetime prints the lifetime with de Bruijn index lt. Index 0 is the
// erased lifetime and is only printed when erased is set. Indices that
// do not refer to an enclosing binder are named in order of appearance.
func (p *parser) lifetime(lt uint64, erased bool) {
	if lt == 0 {
		if erased {
			p.push("'_", tokens.Lifetime)
		}
		return
	}
	var idx uint64
	if lt <= p.bound {
		idx = p.bound - lt
	} else {
		idx = lt - 1
	}
	p.push(lifetimeName(idx), tokens.Lifetime)
}

func lifetimeName(idx uint64) string {
	if idx < 26 {
		return "'" + string(rune('a'+idx))
	}
	return "'_" + strconv.FormatUint(idx, 10)
}

// binder parses an optional "G" <base62> and prints "for<'a, ...> ".
// The returned func drops the bound lifetimes again.
func (p *parser) binder() (func(), error) {
	saved := p.bound
	restore := func() { p.bound = saved }
	if !p.eat('G') {
		return restore, nil
	}

	n, err := p.base62()
	if err != nil {
		return restore, err
	}
	// a binder cannot introduce more lifetimes than there are bytes left
	if n >= uint64(len(p.src)) {
		return restore, ErrSyntax
	}

	p.push("for<", tokens.Keyword)
	for i := uint64(0); i <= n; i++ {
		if i > 0 {
			p.push(", ", tokens.Punctuation)
		}
		p.bound++
		p.push(lifetimeName(p.bound-1), tokens.Lifetime)
	}
	p.push("> ", tokens.Keyword)
	return restore, nil
}

// fnSig parses [<binder>] ["U"] ["K" <abi>] {<type>} "E" <type>.
func (p *parser) fnSig() error {
	restore, err := p.binder()
	defer restore()
	if err != nil {
		return err
	}

	if p.eat('U') {
		p.push("unsafe ", tokens.Keyword)
	}
	if p.eat('K') {
		abi := "C"
		if !p.eat('C') {
			name, err := p.undisambiguated()
			if err != nil {
				return err
			}
			abi = strings.ReplaceAll(name, "_", "-")
		}
		p.push("extern ", tokens.Keyword)
		p.push(strconv.Quote(abi), tokens.Text)
		p.push(" ", tokens.Text)
	}

	p.push("fn", tokens.Keyword)
	p.push("(", tokens.Punctuation)
	if _, err := p.typeList(", "); err != nil {
		return err
	}
	p.push(")", tokens.Punctuation)

	if p.eat('u') {
		return nil
	}
	p.push(" -> ", tokens.Punctuation)
	return p.typ()
}

// dyn parses <dyn-bounds> <lifetime>.
func (p *parser) dyn() error {
	p.push("dyn ", tokens.Keyword)

	restore, err := p.binder()
	defer restore()
	if err != nil {
		return err
	}

	for i := 0; !p.eat('E'); i++ {
		if p.eof() {
			return ErrSyntax
		}
		if i > 0 {
			p.push(" + ", tokens.Punctuation)
		}
		if err := p.dynTrait(); err != nil {
			return err
		}
	}

	if !p.eat('L') {
		return ErrSyntax
	}
	lt, err := p.base62()
	if err != nil {
		return err
	}
	if lt != 0 {
		p.push(" + ", tokens.Punctuation)
		p.lifetime(lt, false)
	}
	return nil
}

// dynTrait parses <path> {"p" <ident> <type>} and prints associated
// type bindings inside the trait's generic brackets.
func (p *parser) dynTrait() error {
	open, err := p.pathMaybeOpenGenerics()
	if err != nil {
		return err
	}
	for p.eat('p') {
		if open {
			p.push(", ", tokens.Punctuation)
		} else {
			p.push("<", tokens.Punctuation)
			open = true
		}
		name, err := p.undisambiguated()
		if err != nil {
			return err
		}
		p.push(name, tokens.Path)
		p.push(" = ", tokens.Punctuation)
		if err := p.typ(); err != nil {
			return err
		}
	}
	if open {
		p.push(">", tokens.Punctuation)
	}
	return nil
}

// pathMaybeOpenGenerics is path, except that a generic application
// leaves its argument list open so bindings can be appended.
func (p *parser) pathMaybeOpenGenerics() (bool, error) {
	if err := p.enter(); err != nil {
		return false, err
	}
	defer p.leave()

	switch p.peek() {
	case 'I':
		p.pos++
		ns, err := p.path()
		if err != nil {
			return false, err
		}
		if ns != 't' {
			p.push("::", tokens.Separator)
		}
		p.push("<", tokens.Punctuation)
		return true, p.genericArgs()
	case 'B':
		off, err := p.backref()
		if err != nil {
			return false, err
		}
		var open bool
		err = p.at(off, func() error {
			var err error
			open, err = p.pathMaybeOpenGenerics()
			return err
		})
		return open, err
	}
	_, err := p.path()
	return false, err
}
