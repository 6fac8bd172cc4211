// Package render turns a Report into text meant for a terminal: a
// colorized disassembly listing and a Markdown summary. Both fall back
// to plain text when stdout isn't a terminal or PEANALYZE_NO_COLOR is
// set.
package render

import (
	"fmt"
	"os"
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/formatters"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
	"github.com/charmbracelet/x/term"

	"peanalyze/internal/disasm"
)

// disasmDark is a chroma style tuned for the nasm lexer's token classes
// against the instructions this package formats: registers in teal,
// immediates in pink, labels in gold.
var disasmDark = styles.Register(chroma.MustNewStyle("peanalyze-disasm", chroma.StyleEntries{
	chroma.Text:           "#FFFFFF",
	chroma.Background:     "bg:#1e1e1e",
	chroma.Comment:        "#6A9955",
	chroma.CommentPreproc: "#6A9955",
	chroma.Keyword:        "#FFFFFF",
	chroma.KeywordPseudo:  "#FFFFFF",
	chroma.Name:           "#7C9C9D",
	chroma.NameBuiltin:    "#7C9C9D",
	chroma.NameVariable:   "#7C9C9D",
	chroma.LiteralNumber:  "#FF5F87",
	chroma.NameLabel:      "#FFD700",
	chroma.NameFunction:   "#FFFFFF",
	chroma.Operator:       "#FFFFFF",
	chroma.Punctuation:    "#FFFFFF",
	chroma.String:         "#EACD53",
}))

// noColor reports whether color output should be suppressed: either
// PEANALYZE_NO_COLOR is set, or stdout isn't a terminal.
func noColor() bool {
	if os.Getenv("PEANALYZE_NO_COLOR") != "" {
		return true
	}
	return !term.IsTerminal(os.Stdout.Fd())
}

// FormatInstruction renders one instruction as "addr  mnemonic operands  ; comment",
// uncolored.
func FormatInstruction(in disasm.Instruction) string {
	line := fmt.Sprintf("%08x  %-7s %s", in.VA, in.Mnemonic, in.OpStr)
	if in.Comment != "" {
		line = fmt.Sprintf("%-48s ; %s", line, in.Comment)
	}
	return line
}

// Listing renders a sequence of instructions as a disassembly listing,
// syntax-highlighted with chroma's nasm lexer when color output applies.
func Listing(insts []disasm.Instruction) string {
	var b strings.Builder
	for _, in := range insts {
		line := FormatInstruction(in)
		if noColor() {
			b.WriteString(line)
		} else {
			b.WriteString(colorizeLine(line))
		}
		b.WriteByte('\n')
	}
	return b.String()
}

func colorizeLine(line string) string {
	lexer := lexers.Get("nasm")
	if lexer == nil {
		return line
	}
	formatter := formatters.Get("terminal16m")
	if formatter == nil {
		formatter = formatters.Fallback
	}
	iterator, err := lexer.Tokenise(nil, line)
	if err != nil {
		return line
	}
	var buf strings.Builder
	if err := formatter.Format(&buf, disasmDark, iterator); err != nil {
		return line
	}
	return buf.String()
}
