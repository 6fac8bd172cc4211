package funcs

import (
	"regexp"
	"strconv"

	"peanalyze/internal/disasm"
)

var reCallTarget = regexp.MustCompile(`^0x[0-9a-fA-F]+$`)

// parseCallTarget extracts a direct call's absolute target address from
// its operand text. A direct near call's operand is the bare resolved
// address; indirect calls ("call rax", "call [rax+0x10]") carry a
// register or bracketed memory operand and are skipped.
func parseCallTarget(in disasm.Instruction) (uint64, bool) {
	if !reCallTarget.MatchString(in.OpStr) {
		return 0, false
	}
	v, err := strconv.ParseUint(in.OpStr, 0, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
