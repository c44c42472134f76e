package tokens

import (
	"strings"

	"github.com/charmbracelet/lipgloss/v2"
	"github.com/charmbracelet/x/exp/charmtone"
)

var palette = map[Color]lipgloss.Style{
	Text:        lipgloss.NewStyle().Foreground(lipgloss.Color(charmtone.Salt.Hex())),
	Mnemonic:    lipgloss.NewStyle().Foreground(lipgloss.Color(charmtone.Malibu.Hex())).Bold(true),
	Register:    lipgloss.NewStyle().Foreground(lipgloss.Color(charmtone.Guac.Hex())),
	Immediate:   lipgloss.NewStyle().Foreground(lipgloss.Color(charmtone.Coral.Hex())),
	Punctuation: lipgloss.NewStyle().Foreground(lipgloss.Color(charmtone.Squid.Hex())),
	Path:        lipgloss.NewStyle().Foreground(lipgloss.Color(charmtone.Mustard.Hex())),
	Separator:   lipgloss.NewStyle().Foreground(lipgloss.Color(charmtone.Squid.Hex())),
	Keyword:     lipgloss.NewStyle().Foreground(lipgloss.Color(charmtone.Charple.Hex())),
	Lifetime:    lipgloss.NewStyle().Foreground(lipgloss.Color(charmtone.Pony.Hex())),
	Primitive:   lipgloss.NewStyle().Foreground(lipgloss.Color(charmtone.Zest.Hex())),
	Comment:     lipgloss.NewStyle().Foreground(lipgloss.Color(charmtone.Smoke.Hex())),
	Label:       lipgloss.NewStyle().Foreground(lipgloss.Color(charmtone.Mustard.Hex())).Bold(true),
	Address:     lipgloss.NewStyle().Foreground(lipgloss.Color(charmtone.Smoke.Hex())),
	Bytes:       lipgloss.NewStyle().Foreground(lipgloss.Color(charmtone.Squid.Hex())),
	Invalid:     lipgloss.NewStyle().Foreground(lipgloss.Color(charmtone.Cherry.Hex())),
}

// Render writes toks as a single line, styled when color is set.
func Render(toks []Token, color bool) string {
	var b strings.Builder
	for _, t := range toks {
		if !color {
			b.WriteString(t.Text)
			continue
		}
		st, ok := palette[t.Color]
		if !ok {
			b.WriteString(t.Text)
			continue
		}
		b.WriteString(st.Render(t.Text))
	}
	return b.String()
}

// RenderStream is Render over a stream.
func RenderStream(s *Stream, color bool) string {
	return Render(s.Tokens(), color)
}
