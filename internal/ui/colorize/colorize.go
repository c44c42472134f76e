// Package colorize splits formatted instructions into coloured tokens
// using chroma's assembly lexers.
package colorize

import (
	"os"
	"strings"
	"sync"
	"unicode"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/lexers"

	"relist/internal/tokens"
)

// Dialect selects the lexer used for an architecture's syntax.
type Dialect int

const (
	Intel Dialect = iota // x86 intel syntax
	GNU                  // GNU as syntax (riscv, ppc64, arm64)
	ARM                  // ARM unified syntax
)

var candidates = map[Dialect][]string{
	Intel: {"nasm", "gas"},
	GNU:   {"gas", "GAS", "nasm"},
	ARM:   {"armasm", "gas"},
}

var (
	lexerMu    sync.Mutex
	lexerCache = map[Dialect]chroma.Lexer{}
)

// getAssemblyLexer returns the first available lexer for d, or nil.
func getAssemblyLexer(d Dialect) chroma.Lexer {
	lexerMu.Lock()
	defer lexerMu.Unlock()

	if l, ok := lexerCache[d]; ok {
		return l
	}
	var lexer chroma.Lexer
	for _, name := range candidates[d] {
		if l := lexers.Get(name); l != nil {
			lexer = chroma.Coalesce(l)
			break
		}
	}
	lexerCache[d] = lexer
	return lexer
}

// Disabled reports whether RELIST_NO_COLOR is set.
func Disabled() bool {
	return os.Getenv("RELIST_NO_COLOR") != ""
}

// Tokenize converts an instruction's text into a token stream. The
// concatenated token text always equals the input.
func Tokenize(d Dialect, text string) *tokens.Stream {
	lexer := getAssemblyLexer(d)
	if lexer == nil {
		return plain(text)
	}

	iterator, err := lexer.Tokenise(nil, text)
	if err != nil {
		return plain(text)
	}

	out := tokens.New(8)
	seenMnemonic := false
	for _, tok := range iterator.Tokens() {
		value := strings.ReplaceAll(tok.Value, "\n", "")
		if value == "" {
			continue
		}
		c := classify(tok.Type, value)
		if !seenMnemonic && strings.TrimSpace(value) != "" {
			c = tokens.Mnemonic
			seenMnemonic = true
		}
		out.Push(value, c)
	}

	// lexers may drop input they cannot match
	if out.String() != text {
		return plain(text)
	}
	return out
}

func classify(tt chroma.TokenType, value string) tokens.Color {
	switch {
	case tt.InCategory(chroma.Comment):
		return tokens.Comment
	case tt.InCategory(chroma.LiteralNumber), tt.InSubCategory(chroma.LiteralNumber):
		return tokens.Immediate
	case tt.InCategory(chroma.Keyword):
		return tokens.Mnemonic
	case tt == chroma.NameLabel:
		return tokens.Label
	case tt.InCategory(chroma.Name):
		if looksNumeric(value) {
			return tokens.Immediate
		}
		return tokens.Register
	case tt.InCategory(chroma.Punctuation), tt.InCategory(chroma.Operator):
		return tokens.Punctuation
	case tt.InCategory(chroma.Error):
		return tokens.Text
	}
	if looksNumeric(value) {
		return tokens.Immediate
	}
	return tokens.Text
}

func looksNumeric(s string) bool {
	s = strings.TrimPrefix(s, "-")
	s = strings.TrimPrefix(s, "#")
	s = strings.TrimPrefix(s, "$")
	if s == "" {
		return false
	}
	return unicode.IsDigit(rune(s[0]))
}

// plain splits text into a mnemonic and untyped operands.
func plain(text string) *tokens.Stream {
	out := tokens.New(2)
	mnemonic, rest, found := strings.Cut(text, " ")
	out.Push(mnemonic, tokens.Mnemonic)
	if found {
		out.Push(" "+rest, tokens.Text)
	}
	return out
}
