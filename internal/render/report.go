package render

import (
	"fmt"
	"strings"

	"peanalyze/internal/analyze"
)

// Markdown builds a human-readable summary of a Report — sections,
// imports, exports, and per-function signature/frame/loop results — and
// renders it through glamour when color output applies, otherwise
// returns the raw Markdown source.
func Markdown(report *analyze.Report) (string, error) {
	md := buildMarkdown(report)
	if noColor() {
		return md, nil
	}
	r, err := newMarkdownRenderer(reportWidth)
	if err != nil {
		return md, nil
	}
	out, err := r.Render(md)
	if err != nil {
		return md, nil
	}
	return out, nil
}

const reportWidth = 100

func buildMarkdown(report *analyze.Report) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# PE analysis report\n\n")
	fmt.Fprintf(&b, "**Bitness:** %d-bit  \n**Image base:** 0x%X\n\n", report.Bitness, report.ImageBase)

	b.WriteString("## Sections\n\n")
	b.WriteString("| name | VA | size | characteristics |\n|---|---|---|---|\n")
	for _, s := range report.Sections {
		fmt.Fprintf(&b, "| %s | 0x%X | 0x%X | 0x%X |\n", s.Name, report.ImageBase+uint64(s.VirtualAddress), s.VirtualSize, s.Characteristics)
	}
	b.WriteString("\n")

	if len(report.Imports) > 0 {
		b.WriteString("## Imports\n\n")
		for _, imp := range report.Imports {
			fmt.Fprintf(&b, "**%s**\n\n", imp.Library)
			for i, fn := range imp.Functions {
				if len(imp.Demangled) > i && imp.Demangled[i] != "" {
					fmt.Fprintf(&b, "- `%s` (%s)\n", fn, imp.Demangled[i])
				} else {
					fmt.Fprintf(&b, "- `%s`\n", fn)
				}
			}
			b.WriteString("\n")
		}
	}

	if len(report.Exports) > 0 {
		b.WriteString("## Exports\n\n")
		b.WriteString("| name | ordinal | RVA |\n|---|---|---|\n")
		for _, e := range report.Exports {
			fmt.Fprintf(&b, "| %s | %d | 0x%X |\n", e.Name, e.Ordinal, e.RVA)
		}
		b.WriteString("\n")
	}

	b.WriteString("## Functions\n\n")
	for _, fn := range report.Functions {
		name := fn.Function.Name
		if fn.Function.Demangled != "" {
			name = fmt.Sprintf("%s (%s)", name, fn.Function.Demangled)
		}
		fmt.Fprintf(&b, "### %s @ 0x%X (size %d)\n\n", name, fn.Function.Address, fn.Function.Size)
		fmt.Fprintf(&b, "- convention: %s, params: %d\n", fn.Signature.Convention, fn.Signature.ParamCount)
		if fn.Frame != nil {
			fmt.Fprintf(&b, "- frame size: 0x%X, vars: %d\n", fn.Frame.Size, len(fn.Frame.Vars))
		}
		fmt.Fprintf(&b, "- blocks: %d, loops: %d\n\n", len(fn.Blocks), len(fn.Loops))
	}

	return b.String()
}
