// Package funcs discovers function boundaries in a disassembled code
// section from five independent sources — the entry point, exports,
// prologue byte patterns, alignment padding, and call targets — and
// derives each function's size from the sorted union of their addresses.
package funcs

import (
	"fmt"
	"sort"

	"peanalyze/internal/disasm"
)

// Function is a discovered function: a disjoint, contiguous span over its
// section (spec's DisasmFunction).
type Function struct {
	Name      string `json:"name"`
	Demangled string `json:"demangled,omitempty"` // best-effort demangled display form; "" if Name isn't mangled
	Address   uint64 `json:"address"`
	Size      uint64 `json:"size"`
}

// ExportRef is a named function address supplied by the caller (e.g. a
// PE export, already translated from RVA to VA).
type ExportRef struct {
	Name string
	VA   uint64
}

// maxCallScanSize bounds the call-target collection pass; sections at or
// above this size skip the call-target scan rather than decoding the
// whole section.
const maxCallScanSize = 2 * 1024 * 1024

// wild is an out-of-byte-range sentinel for a wildcard nibble in a
// prologue pattern; it never equals a real byte value.
const wild = 0x100

// prologue64 / prologue32 are fixed-byte prologue patterns scanned without
// decoding.
var prologue64 = [][]int{
	{0x55, 0x48, 0x89, 0xE5},                   // push rbp; mov rbp, rsp
	{0x48, 0x83, 0xEC, wild},                   // sub rsp, imm8
	{0x48, 0x81, 0xEC, wild, wild, wild, wild}, // sub rsp, imm32
}

var prologue32 = [][]int{
	{0x55, 0x8B, 0xEC},
	{0x55, 0x89, 0xE5},
}

// Detect runs the five-source union algorithm over one section's bytes
// and returns its functions sorted by address, sizes derived from the
// distance to the next function (or the section end).
func Detect(data []byte, baseVA uint64, mode disasm.Mode, entry ExportRef, hasEntry bool, exports []ExportRef, sectionEndVA uint64) []Function {
	names := make(map[uint64]string)
	addrs := make(map[uint64]bool)

	mark := func(va uint64, name string) {
		if va < baseVA || va >= sectionEndVA {
			return
		}
		addrs[va] = true
		if _, named := names[va]; !named || name != "" {
			if name == "" {
				name = fmt.Sprintf("sub_%X", va)
			}
			names[va] = name
		}
	}

	if hasEntry {
		mark(entry.VA, "entry_point")
	}
	for _, e := range exports {
		mark(e.VA, e.Name)
	}

	patterns := prologue64
	if mode == disasm.Mode32 {
		patterns = prologue32
	}
	for i := 0; i < len(data); i++ {
		for _, p := range patterns {
			if matchPattern(data[i:], p) {
				mark(baseVA+uint64(i), "")
				break
			}
		}
	}

	for va := range alignmentPadStarts(data, baseVA) {
		mark(va, "")
	}

	if len(data) < maxCallScanSize {
		for _, target := range callTargets(data, baseVA, mode) {
			mark(target, "")
		}
	}

	sorted := make([]uint64, 0, len(addrs))
	for va := range addrs {
		sorted = append(sorted, va)
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	fns := make([]Function, 0, len(sorted))
	for i, va := range sorted {
		end := sectionEndVA
		if i+1 < len(sorted) {
			end = sorted[i+1]
		}
		name := names[va]
		demangled := ""
		if d := Demangle(name); d != name {
			demangled = d
		}
		fns = append(fns, Function{Name: name, Demangled: demangled, Address: va, Size: end - va})
	}
	return fns
}

func matchPattern(data []byte, pattern []int) bool {
	if len(data) < len(pattern) {
		return false
	}
	for i, p := range pattern {
		if p == wild {
			continue
		}
		if data[i] != byte(p) {
			return false
		}
	}
	return true
}

// alignmentPadStarts finds runs of >=2 bytes of 0xCC or 0x90 followed by a
// non-pad byte, returning the VA of the byte right after each such run.
func alignmentPadStarts(data []byte, baseVA uint64) map[uint64]bool {
	starts := make(map[uint64]bool)
	i := 0
	for i < len(data) {
		if data[i] != 0xCC && data[i] != 0x90 {
			i++
			continue
		}
		runStart := i
		pad := data[i]
		for i < len(data) && data[i] == pad {
			i++
		}
		if i-runStart >= 2 && i < len(data) {
			starts[baseVA+uint64(i)] = true
		}
	}
	return starts
}

// callTargets decodes data and returns every in-range call target,
// including the instruction right after an unconditional terminator
// (ret/retn/jmp) when that instruction is itself a call target.
func callTargets(data []byte, baseVA uint64, mode disasm.Mode) []uint64 {
	insts := disasm.Decode(data, baseVA, mode)
	var targets []uint64
	callTargetSet := make(map[uint64]bool)
	for _, in := range insts {
		if in.Mnemonic != "call" {
			continue
		}
		if t, ok := parseCallTarget(in); ok {
			targets = append(targets, t)
			callTargetSet[t] = true
		}
	}

	for i := 1; i < len(insts); i++ {
		prev := insts[i-1]
		if !isTerminator(prev.Mnemonic) {
			continue
		}
		if callTargetSet[insts[i].VA] {
			targets = append(targets, insts[i].VA)
		}
	}
	return targets
}

func isTerminator(mnem string) bool {
	switch mnem {
	case "ret", "retn", "jmp":
		return true
	}
	return false
}
