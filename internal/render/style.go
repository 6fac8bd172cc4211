package render

import (
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/glamour/ansi"
)

// VS Code dark theme colors, reused for the Markdown report so it reads
// consistently with the disassembly listing's palette.
const (
	fgDefault = "#D4D4D4"
	fgHeading = "#569CD6"
	fgLink    = "#4FC1FF"
	fgCode    = "#EACD53"
	fgComment = "#6A9955"
	fgRule    = "#858585"
)

func boolPtr(b bool) *bool       { return &b }
func stringPtr(s string) *string { return &s }
func uintPtr(u uint) *uint       { return &u }

func reportStyle() ansi.StyleConfig {
	heading := ansi.StyleBlock{StylePrimitive: ansi.StylePrimitive{
		BlockSuffix: "\n",
		Color:       stringPtr(fgHeading),
		Bold:        boolPtr(true),
	}}
	return ansi.StyleConfig{
		Document: ansi.StyleBlock{StylePrimitive: ansi.StylePrimitive{Color: stringPtr(fgDefault)}},
		Heading:  heading,
		H1:       ansi.StyleBlock{StylePrimitive: ansi.StylePrimitive{Prefix: "# ", Color: stringPtr(fgHeading), Bold: boolPtr(true)}},
		H2:       ansi.StyleBlock{StylePrimitive: ansi.StylePrimitive{Prefix: "## ", Color: stringPtr(fgHeading), Bold: boolPtr(true)}},
		H3:       ansi.StyleBlock{StylePrimitive: ansi.StylePrimitive{Prefix: "### ", Color: stringPtr(fgHeading)}},
		Strong:   ansi.StylePrimitive{Bold: boolPtr(true), Color: stringPtr(fgDefault)},
		Emph:     ansi.StylePrimitive{Italic: boolPtr(true)},
		List:     ansi.StyleList{LevelIndent: 2},
		Item:     ansi.StylePrimitive{BlockPrefix: "• "},
		Link:     ansi.StylePrimitive{Color: stringPtr(fgLink), Underline: boolPtr(true)},
		LinkText: ansi.StylePrimitive{Color: stringPtr(fgLink)},
		Code:     ansi.StyleBlock{StylePrimitive: ansi.StylePrimitive{Color: stringPtr(fgCode)}},
		CodeBlock: ansi.StyleCodeBlock{StyleBlock: ansi.StyleBlock{
			StylePrimitive: ansi.StylePrimitive{Color: stringPtr(fgDefault)},
			Margin:         uintPtr(1),
		}},
		BlockQuote: ansi.StyleBlock{
			StylePrimitive: ansi.StylePrimitive{Color: stringPtr(fgComment), Italic: boolPtr(true)},
			Indent:         uintPtr(1),
			IndentToken:    stringPtr("│ "),
		},
		HorizontalRule: ansi.StylePrimitive{Color: stringPtr(fgRule), Format: "\n────────────────────\n"},
		Table:          ansi.StyleTable{StyleBlock: ansi.StyleBlock{StylePrimitive: ansi.StylePrimitive{Color: stringPtr(fgDefault)}}},
		Text:           ansi.StylePrimitive{Color: stringPtr(fgDefault)},
	}
}

// newMarkdownRenderer builds a glamour renderer word-wrapped to width,
// styled with reportStyle.
func newMarkdownRenderer(width int) (*glamour.TermRenderer, error) {
	return glamour.NewTermRenderer(
		glamour.WithStyles(reportStyle()),
		glamour.WithWordWrap(width),
	)
}
