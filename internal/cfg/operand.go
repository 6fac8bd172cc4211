package cfg

import (
	"regexp"
	"strconv"
	"strings"
)

var bareHex = regexp.MustCompile(`^0x[0-9a-fA-F]+$`)

// parseBareHex extracts a jmp/jcc instruction's resolved absolute target
// when its operand is, in its entirety, a single hex literal — the same
// strict rule the xref builder applies.
func parseBareHex(opStr string) (uint64, bool) {
	op := strings.TrimSpace(opStr)
	if !bareHex.MatchString(op) {
		return 0, false
	}
	v, err := strconv.ParseUint(op, 0, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
