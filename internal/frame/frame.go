// Package frame infers a function's stack frame — its fixed allocation
// size plus the local variables and parameters accessed relative to
// rbp/rsp. Shares the per-instruction operand-scan shape with
// internal/sig, adapted to accumulate offset statistics instead of a
// convention decision.
package frame

import (
	"fmt"
	"sort"

	"peanalyze/internal/disasm"
)

// Variable is one stack slot accessed by a function, keyed by the
// unsigned displacement N of its [rbp-N], [rsp+N] or [rbp+N] operand
// (or the ebp/esp forms); IsParam, not the sign, tells a parameter
// above the frame-pointer save from a local.
type Variable struct {
	Offset      int    `json:"offset"`
	IsParam     bool   `json:"is_param"`
	Size        int    `json:"size"`
	AccessCount int    `json:"access_count"`
	Name        string `json:"name"`
}

// Frame is the inferred stack layout for one function.
type Frame struct {
	Size int        `json:"size"`
	Vars []Variable `json:"vars"`
}

const frameSizeScanLimit = 10

// Infer scans a function's instructions for a leading "sub rsp/esp, imm"
// and for every rbp/esp-relative operand. Returns (Frame{}, false) when
// neither a frame size nor any variable was found.
//
// Stack-frame size extraction stops at the first sub rsp/esp, imm,
// so functions using an auxiliary allocation sequence (e.g. __chkstk)
// are under-reported; this is a documented limitation, not a bug.
func Infer(insts []disasm.Instruction, mode disasm.Mode) (Frame, bool) {
	size := frameSize(insts)
	vars := collectVariables(insts, mode)

	if size == 0 && len(vars) == 0 {
		return Frame{}, false
	}

	named := nameVariables(vars)
	return Frame{Size: size, Vars: named}, true
}

func frameSize(insts []disasm.Instruction) int {
	limit := len(insts)
	if limit > frameSizeScanLimit {
		limit = frameSizeScanLimit
	}
	for _, in := range insts[:limit] {
		if in.Mnemonic != "sub" {
			continue
		}
		dst, src, hasSrc := splitOperands(in.OpStr)
		if !hasSrc {
			continue
		}
		if dst != "rsp" && dst != "esp" {
			continue
		}
		if n, ok := parseImmediate(src); ok && n > 0 {
			return n
		}
	}
	return 0
}

type offsetKey struct {
	offset  int
	isParam bool
}

func collectVariables(insts []disasm.Instruction, mode disasm.Mode) map[offsetKey]*Variable {
	vars := make(map[offsetKey]*Variable)

	for _, in := range insts {
		for _, ref := range operandRefs(in.OpStr, mode) {
			key := offsetKey{offset: ref.offset, isParam: ref.isParam}
			v, ok := vars[key]
			if !ok {
				v = &Variable{Offset: key.offset, IsParam: key.isParam, Size: ref.size}
				vars[key] = v
			}
			v.AccessCount++
			if ref.size > v.Size {
				v.Size = ref.size
			}
		}
	}
	return vars
}

func nameVariables(vars map[offsetKey]*Variable) []Variable {
	out := make([]Variable, 0, len(vars))
	for _, v := range vars {
		out = append(out, *v)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].IsParam != out[j].IsParam {
			return !out[i].IsParam // locals sort before params
		}
		return out[i].Offset < out[j].Offset
	})

	paramIdx := 0
	for i := range out {
		if out[i].IsParam {
			out[i].Name = fmt.Sprintf("arg_%d", paramIdx)
			paramIdx++
		} else {
			out[i].Name = fmt.Sprintf("var_%X", out[i].Offset)
		}
	}
	return out
}
