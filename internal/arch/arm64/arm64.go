// Package arm64 decodes AArch64 machine code.
package arm64

import (
	"golang.org/x/arch/arm64/arm64asm"

	"relist/internal/arch"
	"relist/internal/decoder"
	"relist/internal/ui/colorize"
)

const width = 4

type Decoder struct{}

func (Decoder) MaxWidth() int { return width }

func (Decoder) Decode(r *decoder.Reader, addr uint64) (decoder.Inst, error) {
	src := r.Peek(width)
	if len(src) < width {
		return decoder.Inst{}, decoder.Truncated(decoder.ErrShort)
	}

	inst, err := arm64asm.Decode(src)
	if err != nil {
		return decoder.Inst{}, decoder.Invalid(decoder.InvalidOpcode, width, err)
	}
	r.Skip(width)

	text := arm64asm.GNUSyntax(inst)
	var targets []uint64
	for _, a := range inst.Args {
		if a == nil {
			break
		}
		if rel, ok := a.(arm64asm.PCRel); ok {
			target := arch.Rel(addr, int64(rel))
			targets = append(targets, target)
			text = absolute(text, rel, target)
		}
	}
	return arch.Build(colorize.GNU, width, text, targets), nil
}
