// Package arm decodes 32 bit ARM (A32) machine code.
package arm

import (
	"fmt"
	"strings"

	"golang.org/x/arch/arm/armasm"

	"relist/internal/arch"
	"relist/internal/decoder"
	"relist/internal/ui/colorize"
)

const width = 4

// Decoder decodes the ARM instruction set. Thumb is not supported.
type Decoder struct{}

func (Decoder) MaxWidth() int { return width }

func (Decoder) Decode(r *decoder.Reader, addr uint64) (decoder.Inst, error) {
	src := r.Peek(width)
	if len(src) < width {
		return decoder.Inst{}, decoder.Truncated(decoder.ErrShort)
	}

	inst, err := armasm.Decode(src, armasm.ModeARM)
	if err != nil {
		return decoder.Inst{}, decoder.Invalid(decoder.InvalidOpcode, width, err)
	}
	r.Skip(inst.Len)

	text := armasm.GNUSyntax(inst)
	var targets []uint64
	for _, a := range inst.Args {
		if a == nil {
			break
		}
		rel, ok := a.(armasm.PCRel)
		if !ok {
			continue
		}
		// the pc reads two instructions ahead
		target := uint64(uint32(addr) + 8 + uint32(rel))
		targets = append(targets, target)
		text = strings.Replace(text, fmt.Sprintf(".%+#x", int32(rel)+4), fmt.Sprintf("%#x", target), 1)
	}
	return arch.Build(colorize.ARM, inst.Len, text, targets), nil
}
