package cmd

import (
	"crypto/sha256"
	"fmt"
	"io"
	"os"
	pathpkg "path/filepath"
	"strings"

	"github.com/charmbracelet/x/term"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"relist/internal/disassembly"
	"relist/internal/processor"
	"relist/internal/relist/styles"
	"relist/internal/symbols"
)

// previewLines is the number of entries shown from the entry point.
const previewLines = 12

var infoCmd = &cobra.Command{
	Use:   "info [file]",
	Short: "Summarize a binary",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := resolvePath(args[0])
		if err != nil {
			return err
		}
		digest, size, err := fileDigest(path)
		if err != nil {
			return err
		}
		d, err := openBinary(cmd.Context(), path)
		if err != nil {
			return err
		}
		defer d.Close()

		width := 80
		if w, _, err := term.GetSize(os.Stdout.Fd()); err == nil && w > 0 {
			width = w
		}
		fmt.Fprint(cmd.OutOrStdout(), styles.Render(infoMarkdown(d, digest, size), width-2, useColor()))
		return nil
	},
}

// fileDigest returns the hex sha256 of the file at path and its size.
func fileDigest(path string) (string, int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", 0, fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	h := sha256.New()
	n, err := io.Copy(h, f)
	if err != nil {
		return "", 0, fmt.Errorf("failed to calculate digest: %w", err)
	}
	return fmt.Sprintf("%x", h.Sum(nil)), n, nil
}

// infoMarkdown builds the summary document for d.
func infoMarkdown(d *disassembly.Disassembly, digest string, size int64) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# %s\n\n", pathpkg.Base(d.Path))
	fmt.Fprintf(&b, "- **path** `%s`\n", d.Path)
	fmt.Fprintf(&b, "- **size** %s (%s bytes)\n", humanize.IBytes(uint64(size)), humanize.Comma(size))
	if digest != "" {
		fmt.Fprintf(&b, "- **sha256** `%s`\n", digest)
	}
	fmt.Fprintf(&b, "- **format** %s, **arch** %s\n", d.Image.Format, d.Image.Arch)
	fmt.Fprintf(&b, "- **entry** `%#x` in `%s`\n\n", d.Image.Entry, d.Section.Name)

	b.WriteString("## Sections\n\n")
	b.WriteString("| name | address | size | exec |\n|---|---|---|---|\n")
	for _, s := range d.Image.Sections {
		exec := ""
		if s.Exec {
			exec = "yes"
		}
		fmt.Fprintf(&b, "| %s | `%#x` | %s | %s |\n", s.Name, s.Addr, humanize.IBytes(s.Size), exec)
	}

	counts := map[symbols.Kind]int{}
	for l := range d.Symbols.All() {
		counts[l.Kind]++
	}
	b.WriteString("\n## Listing\n\n")
	fmt.Fprintf(&b, "- %s instructions, %s undecodable entries\n",
		humanize.Comma(int64(d.Proc.InstructionCount())),
		humanize.Comma(int64(d.Proc.FailureCount())))
	fmt.Fprintf(&b, "- %d functions, %d objects, %d imports\n\n",
		counts[symbols.Function], counts[symbols.Object], counts[symbols.Import])

	preview := d.Proc.InRange(processor.Included(d.Image.Entry), processor.Unbounded()).Head(previewLines)
	if preview.Len() > 0 {
		b.WriteString("```nasm\n")
		b.WriteString(disassembly.Render(d.Lines(preview), false))
		b.WriteString("```\n")
	}
	return b.String()
}
