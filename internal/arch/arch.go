// Package arch holds helpers shared by the architecture decoders.
package arch

import (
	"strings"

	"relist/internal/decoder"
	"relist/internal/ui/colorize"
)

// Build assembles a decoder.Inst from formatted text.
func Build(d colorize.Dialect, width int, text string, targets []uint64) decoder.Inst {
	mnemonic := text
	if f := strings.Fields(text); len(f) > 0 {
		mnemonic = strings.ToLower(f[0])
	}
	return decoder.Inst{
		Width:    width,
		Mnemonic: mnemonic,
		Text:     text,
		Tokens:   colorize.Tokenize(d, text),
		Targets:  targets,
	}
}

// Rel computes pc+off with wrap-around, matching how hardware computes
// branch targets.
func Rel(pc uint64, off int64) uint64 {
	return pc + uint64(off)
}
