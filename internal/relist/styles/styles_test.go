package styles

import (
	"strings"
	"testing"
)

func TestRenderPlain(t *testing.T) {
	out := Render("# relist\n\nsome **text**\n", 80, false)
	if !strings.Contains(out, "relist") || !strings.Contains(out, "text") {
		t.Errorf("Render() = %q", out)
	}
	if strings.Contains(out, "\x1b[") {
		t.Errorf("plain render contains escape codes: %q", out)
	}
}

func TestMarkdownStyleHighlightsCode(t *testing.T) {
	st := GetMarkdownStyle()
	if st.CodeBlock.Chroma == nil {
		t.Fatal("code blocks have no chroma style")
	}
	if c := st.CodeBlock.Chroma.Comment.Color; c == nil || *c != VSCodeComment {
		t.Errorf("comment colour = %v", c)
	}
}
