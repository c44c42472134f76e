// Package x86 decodes 32 and 64 bit x86 machine code.
package x86

import (
	"errors"

	"golang.org/x/arch/x86/x86asm"

	"relist/internal/arch"
	"relist/internal/decoder"
	"relist/internal/ui/colorize"
)

const maxWidth = 15

// Decoder decodes x86 in the given mode (32 or 64).
type Decoder struct {
	Bits int
}

func (d Decoder) MaxWidth() int { return maxWidth }

func (d Decoder) mode() int {
	if d.Bits == 32 {
		return 32
	}
	return 64
}

func (d Decoder) Decode(r *decoder.Reader, addr uint64) (decoder.Inst, error) {
	src := r.Peek(maxWidth)
	if len(src) == 0 {
		return decoder.Inst{}, decoder.Truncated(decoder.ErrShort)
	}

	inst, err := x86asm.Decode(src, d.mode())
	switch {
	case errors.Is(err, x86asm.ErrTruncated):
		// at most maxWidth bytes were offered, so only the window end can truncate
		if len(src) < maxWidth {
			return decoder.Inst{}, decoder.Truncated(err)
		}
		return decoder.Inst{}, decoder.Invalid(decoder.InvalidOpcode, maxWidth, err)
	case errors.Is(err, x86asm.ErrUnrecognized):
		return decoder.Inst{}, decoder.Invalid(decoder.InvalidOpcode, max(inst.Len, 1), err)
	case err != nil:
		return decoder.Inst{}, decoder.Invalid(decoder.Unsupported, 1, err)
	}
	if inst.Op == 0 || inst.Len > len(src) {
		// x86asm reports both a cut-off encoding and a prefix before an
		// invalid opcode as a lone prefix byte
		if d.cutOff(src) {
			return decoder.Inst{}, decoder.Truncated(decoder.ErrShort)
		}
		return decoder.Inst{}, decoder.Invalid(decoder.InvalidPrefixes, 1, nil)
	}
	r.Skip(inst.Len)

	text := x86asm.IntelSyntax(inst, addr, nil)
	return arch.Build(colorize.Intel, inst.Len, text, targets(inst, addr)), nil
}

// cutOff reports whether src is the start of a valid instruction longer
// than the bytes available.
func (d Decoder) cutOff(src []byte) bool {
	if len(src) >= maxWidth {
		return false
	}
	padded := make([]byte, maxWidth)
	copy(padded, src)
	inst, err := x86asm.Decode(padded, d.mode())
	return err == nil && inst.Op != 0 && inst.Len > len(src)
}

func targets(inst x86asm.Inst, addr uint64) []uint64 {
	next := addr + uint64(inst.Len)
	var out []uint64
	for _, a := range inst.Args {
		switch a := a.(type) {
		case nil:
			return out
		case x86asm.Rel:
			out = append(out, arch.Rel(next, int64(a)))
		case x86asm.Mem:
			if a.Base == x86asm.RIP && a.Index == 0 {
				out = append(out, arch.Rel(next, a.Disp))
			}
		}
	}
	return out
}
