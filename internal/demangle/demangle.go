// Package demangle turns mangled symbol names into coloured token
// streams. Rust v0 names are parsed in-house; C++ and legacy Rust names
// are delegated to github.com/ianlancetaylor/demangle.
package demangle

import (
	"errors"
	"fmt"
	"strings"

	itanium "github.com/ianlancetaylor/demangle"

	"relist/internal/tokens"
)

var (
	ErrSyntax         = errors.New("demangle: invalid mangled name")
	ErrRecursionLimit = errors.New("demangle: recursion limit reached")
	ErrOverflow       = errors.New("demangle: integer overflow")
	ErrPunycode       = errors.New("demangle: punycode identifiers are not supported")
	ErrNotASCII       = errors.New("demangle: name is not ascii")
	ErrVersion        = errors.New("demangle: unsupported encoding version")
	ErrBackref        = errors.New("demangle: invalid back-reference")
	ErrTrailing       = errors.New("demangle: trailing characters")
	ErrTooLarge       = errors.New("demangle: output too large")
)

// Error records where in the mangled body a parse failed.
type Error struct {
	Pos int
	Err error
}

func (e *Error) Error() string { return fmt.Sprintf("%v at offset %d", e.Err, e.Pos) }
func (e *Error) Unwrap() error { return e.Err }

// Rust parses a Rust v0 mangled name. The "_R" prefix ("R" or "__R" on
// some platforms) is optional. A vendor suffix after '.' or '$' is
// ignored. On failure no partial output is returned.
func Rust(s string) (*tokens.Stream, error) {
	for i := 0; i < len(s); i++ {
		if s[i] >= 0x80 {
			return nil, ErrNotASCII
		}
	}

	body := stripPrefix(s)
	if i := strings.IndexAny(body, ".$"); i >= 0 {
		body = body[:i]
	}
	if body == "" {
		return nil, &Error{Pos: 0, Err: ErrSyntax}
	}
	if isDigit(body[0]) {
		return nil, ErrVersion
	}

	p := newParser(body)
	if _, err := p.path(); err != nil {
		return nil, p.wrap(err)
	}
	if !p.eof() {
		// instantiating crate
		p.quiet++
		_, err := p.path()
		p.quiet--
		if err != nil {
			return nil, p.wrap(err)
		}
	}
	if !p.eof() {
		return nil, p.wrap(ErrTrailing)
	}
	if err := p.budget(); err != nil {
		return nil, p.wrap(err)
	}
	if p.out.Len() == 0 {
		return nil, p.wrap(ErrSyntax)
	}
	return p.out, nil
}

func stripPrefix(s string) string {
	switch {
	case strings.HasPrefix(s, "_R"):
		return s[2:]
	case strings.HasPrefix(s, "__R"):
		return s[3:]
	case strings.HasPrefix(s, "R"):
		return s[1:]
	}
	return s
}

// IsRust reports whether s carries a Rust v0 prefix.
func IsRust(s string) bool {
	return strings.HasPrefix(s, "_R") || strings.HasPrefix(s, "__R")
}

// Scheme names the mangling scheme a symbol was decoded with.
type Scheme uint8

const (
	Raw Scheme = iota
	RustV0
	Itanium
)

func (s Scheme) String() string {
	switch s {
	case RustV0:
		return "rust-v0"
	case Itanium:
		return "itanium"
	}
	return "raw"
}

// Symbol demangles name with the first scheme that accepts it, falling
// back to the raw name as a single token.
func Symbol(name string) (*tokens.Stream, Scheme) {
	if IsRust(name) {
		if s, err := Rust(name); err == nil {
			return s, RustV0
		}
	}
	if out, err := itanium.ToString(name, itanium.NoClones); err == nil && out != name {
		return tokens.FromString(out, tokens.Path), Itanium
	}
	return tokens.FromString(name, tokens.Text), Raw
}
