// Package sig infers a function's calling convention and parameter count
// from its leading instructions, via a register-read-before-write scan
// run once per candidate register, instruction by instruction, until
// the first read or write of that register decides it.
package sig

import (
	"encoding/json"

	"peanalyze/internal/disasm"
)

// Convention is a Windows x86/x64 calling convention.
type Convention int

const (
	Fastcall Convention = iota
	Stdcall
	Thiscall
	Cdecl
)

func (c Convention) String() string {
	switch c {
	case Fastcall:
		return "fastcall"
	case Stdcall:
		return "stdcall"
	case Thiscall:
		return "thiscall"
	case Cdecl:
		return "cdecl"
	default:
		return "unknown"
	}
}

// MarshalJSON renders a Convention by its name rather than its
// underlying int, so a Report reads as "fastcall" instead of "0".
func (c Convention) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.String())
}

// Signature is the inferred calling convention and parameter count for
// one function.
type Signature struct {
	Convention Convention `json:"convention"`
	ParamCount int        `json:"param_count"`
}

// Infer runs the 64-bit fastcall scan or the 32-bit convention ladder
// over a function's instructions, depending on mode.
func Infer(insts []disasm.Instruction, mode disasm.Mode) Signature {
	if mode == disasm.Mode64 {
		return Signature{Convention: Fastcall, ParamCount: inferFastcallParamCount(insts)}
	}
	return infer32(insts)
}

var fastcallArgRegs = []string{"rcx", "rdx", "r8", "r9"}

const fastcallScanLimit = 20

func inferFastcallParamCount(insts []disasm.Instruction) int {
	limit := len(insts)
	if limit > fastcallScanLimit {
		limit = fastcallScanLimit
	}
	lead := insts[:limit]

	maxIdx := 0
	for i, reg := range fastcallArgRegs {
		if regReadBeforeWrite(lead, reg) && i+1 > maxIdx {
			maxIdx = i + 1
		}
	}
	if stackIdx := maxRspStackParamIndex(lead); stackIdx > maxIdx {
		maxIdx = stackIdx
	}
	return maxIdx
}

// maxRspStackParamIndex scans for "[rsp + 0xN]" with N >= 0x28 and returns
// the highest implied 1-based argument index, or 0 if none found.
func maxRspStackParamIndex(insts []disasm.Instruction) int {
	max := 0
	for _, in := range insts {
		for _, n := range rspDisplacements(in.OpStr) {
			if n < 0x28 {
				continue
			}
			idx := 5 + int((n-0x28)/8)
			if idx > max {
				max = idx
			}
		}
	}
	return max
}

const (
	stdcallStackWidth = 4
	thiscallScanLimit = 10
	ebpParamMinOffset = 8
)

func infer32(insts []disasm.Instruction) Signature {
	if len(insts) > 0 {
		if n, ok := retImmediate(insts[len(insts)-1]); ok && n > 0 {
			return Signature{Convention: Stdcall, ParamCount: n / stdcallStackWidth}
		}
	}

	limit := len(insts)
	if limit > thiscallScanLimit {
		limit = thiscallScanLimit
	}
	if regReadBeforeWrite(insts[:limit], "ecx") {
		return Signature{Convention: Thiscall, ParamCount: ebpParamCount(insts)}
	}

	return Signature{Convention: Cdecl, ParamCount: ebpParamCount(insts)}
}

// ebpParamCount scans the whole instruction list for "[ebp + 0xN]" with
// N >= 8 and derives the parameter count from the highest offset seen.
func ebpParamCount(insts []disasm.Instruction) int {
	maxN := -1
	for _, in := range insts {
		for _, n := range ebpPositiveDisplacements(in.OpStr) {
			if n < ebpParamMinOffset {
				continue
			}
			if maxN < 0 || n > maxN {
				maxN = n
			}
		}
	}
	if maxN < 0 {
		return 0
	}
	return (maxN-ebpParamMinOffset)/4 + 1
}
