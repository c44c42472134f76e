package styles

import (
	"github.com/charmbracelet/glamour/ansi"
)

// VS Code dark colours used for assembly in code blocks.
const (
	VSCodeForeground = "#D4D4D4"
	VSCodeFunction   = "#DCDCAA"
	VSCodeComment    = "#6A9955"
	VSCodeKeyword    = "#569CD6"
	VSCodeVariable   = "#9CDCFE"
	VSCodeNumber     = "#B5CEA8"
	VSCodeString     = "#CE9178"
	VSCodeError      = "#F44747"
	VSCodeLineNumber = "#858585"
)

// AssemblyChroma maps chroma token classes of the nasm and gas lexers to
// the VS Code dark palette.
func AssemblyChroma() *ansi.Chroma {
	return &ansi.Chroma{
		Text:           ansi.StylePrimitive{Color: stringPtr(VSCodeForeground)},
		Error:          ansi.StylePrimitive{Color: stringPtr(VSCodeError)},
		Comment:        ansi.StylePrimitive{Color: stringPtr(VSCodeComment)},
		CommentPreproc: ansi.StylePrimitive{Color: stringPtr(VSCodeKeyword)},
		Keyword:        ansi.StylePrimitive{Color: stringPtr(VSCodeKeyword)},
		KeywordType:    ansi.StylePrimitive{Color: stringPtr(VSCodeKeyword)},
		Operator:       ansi.StylePrimitive{Color: stringPtr(VSCodeForeground)},
		Punctuation:    ansi.StylePrimitive{Color: stringPtr(VSCodeLineNumber)},
		Name:           ansi.StylePrimitive{Color: stringPtr(VSCodeVariable)},
		NameBuiltin:    ansi.StylePrimitive{Color: stringPtr(VSCodeVariable)},
		NameFunction:   ansi.StylePrimitive{Color: stringPtr(VSCodeFunction), Bold: boolPtr(true)},
		NameConstant:   ansi.StylePrimitive{Color: stringPtr(VSCodeVariable)},
		NameAttribute:  ansi.StylePrimitive{Color: stringPtr(VSCodeFunction)},
		NameOther:      ansi.StylePrimitive{Color: stringPtr(VSCodeVariable)},
		Literal:        ansi.StylePrimitive{Color: stringPtr(VSCodeNumber)},
		LiteralNumber:  ansi.StylePrimitive{Color: stringPtr(VSCodeNumber)},
		LiteralString:  ansi.StylePrimitive{Color: stringPtr(VSCodeString)},
	}
}
