package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"relist/internal/disassembly"
)

// JSONListing is the --json output.
type JSONListing struct {
	Path         string     `json:"path"`
	Format       string     `json:"format"`
	Arch         string     `json:"arch"`
	Entry        string     `json:"entry"`
	Section      string     `json:"section"`
	Base         string     `json:"base"`
	Instructions int        `json:"instructions"`
	Failures     int        `json:"failures"`
	Lines        []JSONLine `json:"lines"`
}

// JSONLine is one table entry. Exactly one of Text and Error is set.
type JSONLine struct {
	Address string    `json:"address"`
	Label   string    `json:"label,omitempty"`
	Bytes   string    `json:"bytes"`
	Text    string    `json:"text,omitempty"`
	Error   string    `json:"error,omitempty"`
	Refs    []JSONRef `json:"refs,omitempty"`
}

type JSONRef struct {
	Target string `json:"target"`
	Label  string `json:"label,omitempty"`
	Offset uint64 `json:"offset,omitempty"`
}

// sanitizeForJSON cleans a string to be valid UTF-8 and safe for JSON encoding
func sanitizeForJSON(s string) string {
	if utf8.ValidString(s) {
		return s
	}
	return strings.ToValidUTF8(s, "�")
}

func hexAddr(a uint64) string { return fmt.Sprintf("%#x", a) }

func buildJSON(d *disassembly.Disassembly) JSONListing {
	out := JSONListing{
		Path:         d.Path,
		Format:       d.Image.Format.String(),
		Arch:         d.Image.Arch.String(),
		Entry:        hexAddr(d.Image.Entry),
		Section:      d.Section.Name,
		Base:         hexAddr(d.Proc.BaseAddr()),
		Instructions: d.Proc.InstructionCount(),
		Failures:     d.Proc.FailureCount(),
	}
	span := d.Proc.Iter()
	out.Lines = make([]JSONLine, 0, span.Len())
	for addr, r := range span.All() {
		l := JSONLine{
			Address: hexAddr(addr),
			Bytes:   strings.TrimRight(d.Proc.Bytes(r, addr), " "),
		}
		if lb, ok := d.Symbols.Get(addr); ok {
			l.Label = sanitizeForJSON(lb.String())
		}
		if r.OK() {
			l.Text = sanitizeForJSON(r.Inst.Text)
			for _, x := range r.Xrefs {
				ref := JSONRef{Target: hexAddr(x.Target), Offset: x.Offset}
				if x.Label != nil {
					ref.Label = sanitizeForJSON(x.Label.String())
				}
				l.Refs = append(l.Refs, ref)
			}
		} else if r.Err != nil {
			l.Error = r.Err.Error()
		}
		out.Lines = append(out.Lines, l)
	}
	return out
}

func writeJSON(w io.Writer, d *disassembly.Disassembly) error {
	data, err := json.MarshalIndent(buildJSON(d), "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

// writeListing prints a short comment header followed by lines.
func writeListing(w io.Writer, d *disassembly.Disassembly, lines []disassembly.Line, color bool) error {
	header := fmt.Sprintf("; %s\n; %s %s, entry %#x, section %s at %#x\n; %d instructions\n\n",
		d.Path,
		d.Image.Format, d.Image.Arch, d.Image.Entry,
		d.Section.Name, d.Proc.BaseAddr(),
		d.Proc.InstructionCount())
	if _, err := io.WriteString(w, header); err != nil {
		return err
	}
	_, err := io.WriteString(w, disassembly.Render(lines, color))
	return err
}
