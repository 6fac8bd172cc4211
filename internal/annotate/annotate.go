// Package annotate resolves a disassembled instruction's comment: the
// string or import it references, if any, via a RIP-then-absolute
// priority rule and a first-match-wins annotator chain.
package annotate

import (
	"regexp"
	"strconv"

	"peanalyze/internal/disasm"
	"peanalyze/internal/pe"
	"peanalyze/internal/strx"
)

const maxCommentLen = 60
const truncateAt = 57

var (
	reRIP = regexp.MustCompile(`\[rip\s*([+-])\s*(0x[0-9a-fA-F]+)\]`)
	reHex = regexp.MustCompile(`0x[0-9a-fA-F]+`)
)

// IATIndex maps an IAT slot VA to its "lib!func" display name, built once
// per image from pe.Image.Imports.
type IATIndex map[uint64]string

// BuildIATIndex flattens an image's import table into a VA-keyed lookup.
func BuildIATIndex(img *pe.Image) IATIndex {
	idx := make(IATIndex)
	for _, lib := range img.Imports {
		for i, fn := range lib.Functions {
			if i >= len(lib.IatVAs) {
				break
			}
			idx[lib.IatVAs[i]] = lib.Library + "!" + fn
		}
	}
	return idx
}

// Comment computes an instruction's trailing comment: first
// a RIP-relative reference resolving into the string map or the IAT,
// then any absolute hex immediate in the operand string resolving the
// same way. Returns "" if nothing resolves.
func Comment(inst disasm.Instruction, img *pe.Image, iat IATIndex) string {
	if m := reRIP.FindStringSubmatch(inst.OpStr); m != nil {
		disp, err := strconv.ParseInt(m[2], 0, 64)
		if err == nil {
			target := int64(inst.VA) + int64(inst.Len)
			if m[1] == "+" {
				target += disp
			} else {
				target -= disp
			}
			if c := resolve(uint64(target), img, iat); c != "" {
				return c
			}
		}
	}

	// Conservative single-match rule: an operand string with
	// more than one bare-hex immediate is never treated as a single
	// combined address; only the first occurrence is considered.
	if m := reHex.FindString(inst.OpStr); m != "" {
		if v, err := strconv.ParseUint(m, 0, 64); err == nil {
			if c := resolve(v, img, iat); c != "" {
				return c
			}
		}
	}

	return ""
}

// Annotate fills in each instruction's Comment in place, run as the pass
// right after a section's instruction stream is decoded.
func Annotate(insts []disasm.Instruction, img *pe.Image, iat IATIndex) {
	for i := range insts {
		insts[i].Comment = Comment(insts[i], img, iat)
	}
}

func resolve(va uint64, img *pe.Image, iat IATIndex) string {
	if s, ok := img.Strings[va]; ok {
		return truncate(s)
	}
	if name, ok := iat[va]; ok {
		return name
	}
	return ""
}

func truncate(s string) string {
	escaped := strx.Escape(s)
	if len([]rune(escaped)) <= maxCommentLen {
		return escaped
	}
	return strx.Truncate(escaped, truncateAt)
}
