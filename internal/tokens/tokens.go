// Package tokens defines the coloured token stream produced by the
// demangler and the instruction formatters.
package tokens

import (
	"strings"
)

// Color is the semantic class of a token. Renderers map it to a palette.
type Color uint8

const (
	Text Color = iota
	Mnemonic
	Register
	Immediate
	Punctuation
	Path
	Separator
	Keyword
	Lifetime
	Primitive
	Comment
	Label
	Address
	Bytes
	Invalid
)

var colorNames = [...]string{
	Text:        "text",
	Mnemonic:    "mnemonic",
	Register:    "register",
	Immediate:   "immediate",
	Punctuation: "punctuation",
	Path:        "path",
	Separator:   "separator",
	Keyword:     "keyword",
	Lifetime:    "lifetime",
	Primitive:   "primitive",
	Comment:     "comment",
	Label:       "label",
	Address:     "address",
	Bytes:       "bytes",
	Invalid:     "invalid",
}

func (c Color) String() string {
	if int(c) < len(colorNames) {
		return colorNames[c]
	}
	return "unknown"
}

// Token is a piece of text tagged with a colour class.
type Token struct {
	Text  string `json:"text"`
	Color Color  `json:"color"`
}

// Stream is an append-only sequence of tokens.
type Stream struct {
	toks []Token
}

// New returns an empty stream with room for n tokens.
func New(n int) *Stream {
	return &Stream{toks: make([]Token, 0, n)}
}

// FromString returns a stream holding a single token.
func FromString(text string, c Color) *Stream {
	s := New(1)
	s.Push(text, c)
	return s
}

// Push appends a token. Empty text is ignored.
func (s *Stream) Push(text string, c Color) {
	if text == "" {
		return
	}
	s.toks = append(s.toks, Token{Text: text, Color: c})
}

// Append copies every token of o to the end of s.
func (s *Stream) Append(o *Stream) {
	if o == nil {
		return
	}
	s.toks = append(s.toks, o.toks...)
}

// Tokens returns the underlying tokens. Callers must not modify them.
func (s *Stream) Tokens() []Token {
	if s == nil {
		return nil
	}
	return s.toks
}

func (s *Stream) Len() int {
	if s == nil {
		return 0
	}
	return len(s.toks)
}

// String concatenates the text of every token.
func (s *Stream) String() string {
	if s == nil {
		return ""
	}
	var b strings.Builder
	for _, t := range s.toks {
		b.WriteString(t.Text)
	}
	return b.String()
}
