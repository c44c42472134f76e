package decoder

import (
	"strings"
)

const hexdigits = "0123456789abcdef"

// EncodeHexBytesTruncated renders b as space separated hex pairs, cut to
// limit characters with a "..." marker and padded with spaces to limit.
func EncodeHexBytesTruncated(b []byte, limit int) string {
	if limit <= 0 {
		return ""
	}

	var sb strings.Builder
	sb.Grow(len(b)*3 + 3)
	for _, c := range b {
		sb.WriteByte(hexdigits[c>>4])
		sb.WriteByte(hexdigits[c&0xf])
		sb.WriteByte(' ')
	}

	s := sb.String()
	if len(s) > limit {
		if limit > 3 {
			s = s[:limit-3] + "..."
		} else {
			s = s[:limit]
		}
	}
	if pad := limit - len(s); pad > 0 {
		s += strings.Repeat(" ", pad)
	}
	return s
}
