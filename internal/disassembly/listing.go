package disassembly

import (
	"fmt"
	"strings"

	"relist/internal/processor"
	"relist/internal/symbols"
	"relist/internal/tokens"
)

// Line is one rendered listing entry. Header is set when a label starts
// at Addr.
type Line struct {
	Addr   uint64
	Header *tokens.Stream
	Tokens *tokens.Stream
}

// Labeler is the label lookup Lines needs.
type Labeler interface {
	Get(addr uint64) (*symbols.Label, bool)
}

// Lines renders span, taking raw bytes from proc and label headers from
// labels.
func Lines(proc processor.InspectProcessor, labels Labeler, span processor.Span) []Line {
	out := make([]Line, 0, span.Len())
	for addr, r := range span.All() {
		out = append(out, line(proc, labels, addr, r))
	}
	return out
}

// Lines renders span of d.
func (d *Disassembly) Lines(span processor.Span) []Line {
	return Lines(d.Proc, d.Symbols, span)
}

func line(proc processor.InspectProcessor, labels Labeler, addr uint64, r processor.Result) Line {
	l := Line{Addr: addr, Tokens: tokens.New(16)}

	if labels != nil {
		if lb, ok := labels.Get(addr); ok {
			l.Header = tokens.New(lb.Tokens.Len() + 1)
			if lb.Tokens.Len() == 0 {
				l.Header.Push(lb.Name, tokens.Label)
			} else {
				l.Header.Append(lb.Tokens)
			}
			l.Header.Push(":", tokens.Punctuation)
		}
	}

	l.Tokens.Push(fmt.Sprintf("%08x", addr), tokens.Address)
	l.Tokens.Push("  ", tokens.Text)
	l.Tokens.Push(proc.Bytes(r, addr), tokens.Bytes)
	l.Tokens.Push(" ", tokens.Text)

	if !r.OK() {
		l.Tokens.Push("(bad)", tokens.Invalid)
		if r.Err != nil {
			l.Tokens.Push(" ; ", tokens.Comment)
			l.Tokens.Push(r.Err.Kind.String(), tokens.Comment)
		}
		return l
	}

	if r.Inst.Tokens.Len() > 0 {
		l.Tokens.Append(r.Inst.Tokens)
	} else {
		l.Tokens.Push(r.Inst.Text, tokens.Text)
	}

	for _, x := range r.Xrefs {
		if x.Label == nil {
			continue
		}
		l.Tokens.Push(" ; ", tokens.Comment)
		l.Tokens.Push(x.Label.String(), tokens.Label)
		if x.Offset != 0 {
			l.Tokens.Push(fmt.Sprintf("+%#x", x.Offset), tokens.Comment)
		}
	}
	return l
}

// Text returns the line without its header.
func (l Line) Text() string { return l.Tokens.String() }

// Render formats lines as text, one entry per line. Label headers are
// preceded by a blank line.
func Render(lines []Line, color bool) string {
	var b strings.Builder
	for i, l := range lines {
		if l.Header != nil {
			if i > 0 {
				b.WriteByte('\n')
			}
			b.WriteString(tokens.RenderStream(l.Header, color))
			b.WriteByte('\n')
		}
		b.WriteString(tokens.RenderStream(l.Tokens, color))
		b.WriteByte('\n')
	}
	return b.String()
}
