package arm64

import (
	"fmt"
	"strings"

	"golang.org/x/arch/arm64/arm64asm"
)

// absolute replaces the ".+off" form of rel in text with the target
// address.
func absolute(text string, rel arm64asm.PCRel, target uint64) string {
	return strings.Replace(text, strings.ToLower(rel.String()), fmt.Sprintf("%#x", target), 1)
}
