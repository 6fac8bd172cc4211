package sig

import (
	"regexp"
	"strconv"
	"strings"

	"peanalyze/internal/disasm"
)

// regReadBeforeWrite reports whether reg is read before it is ever
// written across insts: the first
// instruction that reads or writes reg decides the outcome.
func regReadBeforeWrite(insts []disasm.Instruction, reg string) bool {
	for _, in := range insts {
		read, write := classifyRegUse(in, reg)
		if read {
			return true
		}
		if write {
			return false
		}
	}
	return false
}

// classifyRegUse applies the per-mnemonic read/write rules for one
// candidate register against one instruction's operands.
func classifyRegUse(in disasm.Instruction, reg string) (read, write bool) {
	if in.Mnemonic == "call" {
		return false, false
	}

	dst, src, hasSrc := splitOperands(in.OpStr)

	switch in.Mnemonic {
	case "mov", "lea", "movzx", "movsx":
		if hasSrc && containsReg(src, reg) && !containsReg(dst, reg) {
			read = true
		}
		if containsReg(dst, reg) {
			write = true
		}
	case "cmp", "test", "push":
		if containsReg(dst, reg) || (hasSrc && containsReg(src, reg)) {
			read = true
		}
	case "add", "sub", "and", "or", "xor":
		isZeroingIdiom := (in.Mnemonic == "xor" || in.Mnemonic == "sub") &&
			hasSrc && sameRegOperand(dst, src, reg)
		if isZeroingIdiom {
			write = true
		} else if containsReg(dst, reg) {
			read = true
		}
	}
	return read, write
}

// splitOperands splits an Intel-syntax "dst, src" operand string on the
// top-level comma, ignoring commas nested inside bracketed memory
// operands (e.g. scale-index-base forms never appear here, but this
// keeps the split robust regardless).
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

func sameRegOperand(dst, src, reg string) bool {
	return containsReg(dst, reg) && containsReg(src, reg) &&
		strings.EqualFold(strings.TrimSpace(dst), strings.TrimSpace(src))
}

// regPatterns holds a precompiled word-boundary matcher for every
// register name classifyRegUse ever queries.
var regPatterns = map[string]*regexp.Regexp{
	"rcx": regexp.MustCompile(`\brcx\b`),
	"rdx": regexp.MustCompile(`\brdx\b`),
	"r8":  regexp.MustCompile(`\br8\b`),
	"r9":  regexp.MustCompile(`\br9\b`),
	"ecx": regexp.MustCompile(`\becx\b`),
}

func containsReg(operand, reg string) bool {
	if operand == "" {
		return false
	}
	re, ok := regPatterns[reg]
	if !ok {
		re = regexp.MustCompile(`\b` + regexp.QuoteMeta(reg) + `\b`)
	}
	return re.MatchString(operand)
}

var (
	reRspDisp = regexp.MustCompile(`\[\s*rsp\s*\+\s*(0x[0-9a-fA-F]+|[0-9]+)\s*\]`)
	reEbpDisp = regexp.MustCompile(`\[\s*ebp\s*\+\s*(0x[0-9a-fA-F]+|[0-9]+)\s*\]`)
)

func rspDisplacements(opStr string) []int {
	return parseDisplacements(reRspDisp, opStr)
}

func ebpPositiveDisplacements(opStr string) []int {
	return parseDisplacements(reEbpDisp, opStr)
}

func parseDisplacements(re *regexp.Regexp, opStr string) []int {
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

// retImmediate extracts the stack-cleanup immediate from a "ret N" /
// "retn N" instruction.
func retImmediate(in disasm.Instruction) (int, bool) {
	if in.Mnemonic != "ret" && in.Mnemonic != "retn" {
		return 0, false
	}
	op := strings.TrimSpace(in.OpStr)
	if op == "" {
		return 0, false
	}
	n, err := strconv.ParseInt(op, 0, 64)
	if err != nil {
		return 0, false
	}
	return int(n), true
}
