// Package ppc64 decodes 64 bit PowerPC machine code in either byte
// order.
package ppc64

import (
	"encoding/binary"

	"golang.org/x/arch/ppc64/ppc64asm"

	"relist/internal/arch"
	"relist/internal/decoder"
	"relist/internal/ui/colorize"
)

// prefixed instructions are two words
const maxWidth = 8

type Decoder struct {
	Order binary.ByteOrder
}

func (d Decoder) MaxWidth() int { return maxWidth }

func (d Decoder) order() binary.ByteOrder {
	if d.Order == nil {
		return binary.BigEndian
	}
	return d.Order
}

func (d Decoder) Decode(r *decoder.Reader, addr uint64) (decoder.Inst, error) {
	src := r.Peek(maxWidth)
	if len(src) < 4 {
		return decoder.Inst{}, decoder.Truncated(decoder.ErrShort)
	}
	// primary opcode 1 marks a prefix word
	if d.order().Uint32(src)>>26 == 1 && len(src) < 8 {
		return decoder.Inst{}, decoder.Truncated(decoder.ErrShort)
	}

	inst, err := ppc64asm.Decode(src, d.order())
	if err != nil {
		return decoder.Inst{}, decoder.Invalid(decoder.InvalidOpcode, max(inst.Len, 4), err)
	}
	r.Skip(inst.Len)

	var targets []uint64
	for _, a := range inst.Args {
		if a == nil {
			break
		}
		switch a := a.(type) {
		case ppc64asm.PCRel:
			targets = append(targets, arch.Rel(addr, int64(a)))
		case ppc64asm.Label:
			targets = append(targets, uint64(a))
		}
	}

	text := ppc64asm.GNUSyntax(inst, addr)
	return arch.Build(colorize.GNU, inst.Len, text, targets), nil
}
