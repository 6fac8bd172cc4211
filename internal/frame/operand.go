package frame

import (
	"regexp"
	"strconv"
	"strings"

	"peanalyze/internal/disasm"
)

type ref struct {
	offset  int
	isParam bool
	size    int
}

var (
	reBPMinus = regexp.MustCompile(`\[\s*[re]bp\s*-\s*(0x[0-9a-fA-F]+|[0-9]+)\s*\]`)
	reSPPlus  = regexp.MustCompile(`\[\s*[re]sp\s*\+\s*(0x[0-9a-fA-F]+|[0-9]+)\s*\]`)
	reBPPlus  = regexp.MustCompile(`\[\s*[re]bp\s*\+\s*(0x[0-9a-fA-F]+|[0-9]+)\s*\]`)
)

// operandRefs extracts every rbp/esp-relative stack reference from one
// instruction's operand string.
func operandRefs(opStr string, mode disasm.Mode) []ref {
	size := sizePrefix(opStr, mode)
	paramMin := 0x10
	if mode == disasm.Mode32 {
		paramMin = 0x8
	}

	var out []ref
	for _, n := range extractOffsets(reBPMinus, opStr) {
		out = append(out, ref{offset: n, isParam: false, size: size})
	}
	for _, n := range extractOffsets(reSPPlus, opStr) {
		out = append(out, ref{offset: n, isParam: false, size: size})
	}
	for _, n := range extractOffsets(reBPPlus, opStr) {
		if n >= paramMin {
			out = append(out, ref{offset: n, isParam: true, size: size})
		}
	}
	return out
}

func extractOffsets(re *regexp.Regexp, opStr string) []int {
	matches := re.FindAllStringSubmatch(opStr, -1)
	if matches == nil {
		return nil
	}
	out := make([]int, 0, len(matches))
	for _, m := range matches {
		n, err := strconv.ParseInt(m[1], 0, 64)
		if err == nil {
			out = append(out, int(n))
		}
	}
	return out
}

// sizePrefix maps an Intel-syntax operand-size keyword to its byte
// width, defaulting to the pointer width for the given bitness.
func sizePrefix(opStr string, mode disasm.Mode) int {
	lower := strings.ToLower(opStr)
	switch {
	case strings.Contains(lower, "byte"):
		return 1
	case strings.Contains(lower, "word") && !strings.Contains(lower, "dword") && !strings.Contains(lower, "qword"):
		return 2
	case strings.Contains(lower, "dword"):
		return 4
	case strings.Contains(lower, "qword"):
		return 8
	}
	if mode == disasm.Mode64 {
		return 8
	}
	return 4
}

// parseImmediate parses a decimal or hex immediate operand, e.g. "0x28"
// or "40".
func parseImmediate(s string) (int, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	n, err := strconv.ParseInt(s, 0, 64)
	if err != nil {
		return 0, false
	}
	return int(n), true
}

// splitOperands splits an Intel-syntax "dst, src" operand string on the
// top-level comma, skipping commas nested inside bracketed operands.
func splitOperands(opStr string) (dst, src string, hasSrc bool) {
	depth := 0
	for i, r := range opStr {
		switch r {
		case '[':
			depth++
		case ']':
			depth--
		case ',':
			if depth == 0 {
				return strings.TrimSpace(opStr[:i]), strings.TrimSpace(opStr[i+1:]), true
			}
		}
	}
	return strings.TrimSpace(opStr), "", false
}
