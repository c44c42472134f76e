// Package riscv64 decodes RV64GC machine code, including the compressed
// extension.
package riscv64

import (
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/arch/riscv64/riscv64asm"

	"relist/internal/arch"
	"relist/internal/decoder"
	"relist/internal/ui/colorize"
)

const maxWidth = 4

type Decoder struct{}

func (Decoder) MaxWidth() int { return maxWidth }

// width is the encoded length announced by the low opcode bits.
func width(b byte) int {
	if b&3 == 3 {
		return 4
	}
	return 2
}

func (Decoder) Decode(r *decoder.Reader, addr uint64) (decoder.Inst, error) {
	src := r.Peek(maxWidth)
	if len(src) < 2 || len(src) < width(src[0]) {
		return decoder.Inst{}, decoder.Truncated(decoder.ErrShort)
	}

	inst, err := riscv64asm.Decode(src)
	if err != nil {
		return decoder.Inst{}, decoder.Invalid(decoder.InvalidOpcode, width(src[0]), err)
	}
	r.Skip(inst.Len)

	text := riscv64asm.GNUSyntax(inst)
	var targets []uint64
	if isBranch(inst.Op) {
		if off, ok := lastSimm(inst); ok {
			target := arch.Rel(addr, int64(off))
			targets = append(targets, target)
			if s := strconv.Itoa(int(off)); strings.HasSuffix(text, s) {
				text = strings.TrimSuffix(text, s) + fmt.Sprintf("%#x", target)
			}
		}
	}
	return arch.Build(colorize.GNU, inst.Len, text, targets), nil
}

func isBranch(op riscv64asm.Op) bool {
	switch op {
	case riscv64asm.JAL, riscv64asm.BEQ, riscv64asm.BNE, riscv64asm.BLT,
		riscv64asm.BGE, riscv64asm.BLTU, riscv64asm.BGEU:
		return true
	}
	return false
}

func lastSimm(inst riscv64asm.Inst) (int32, bool) {
	var (
		off   int32
		found bool
	)
	for _, a := range inst.Args {
		if a == nil {
			break
		}
		if s, ok := a.(riscv64asm.Simm); ok {
			off, found = s.Imm, true
		}
	}
	return off, found
}
