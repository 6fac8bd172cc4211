// Package strx recovers printable strings from a PE image's read-only
// data sections, keyed by the virtual address each string starts at.
package strx

import (
	"peanalyze/internal/pe"
)

const minStringLen = 4

// candidateSections lists the section names swept for strings, in the
// priority order the first match wins.
var candidateSections = []string{".rdata", ".rodata", ".data"}

// Extract scans the first matching candidate section for printable ASCII
// and UTF-16LE runs and records them on the image's Strings/StringEncoding
// maps, keyed by VA.
func Extract(img *pe.Image) {
	var section pe.SectionHeader
	var found bool
	for _, name := range candidateSections {
		if s, ok := img.SectionByName(name); ok {
			section, found = s, true
			break
		}
	}
	if !found {
		return
	}

	data := img.SectionBytes(section)
	if data == nil {
		return
	}
	base := img.VA(section.VirtualAddress)

	if img.Strings == nil {
		img.Strings = make(map[uint64]string)
	}
	if img.StringEncoding == nil {
		img.StringEncoding = make(map[uint64]pe.StringEncoding)
	}

	scanASCII(data, base, img.Strings, img.StringEncoding)
	scanUTF16LE(data, base, img.Strings, img.StringEncoding)
}

func isPrintable(b byte) bool {
	return b >= 0x20 && b <= 0x7E
}

func scanASCII(data []byte, base uint64, out map[uint64]string, enc map[uint64]pe.StringEncoding) {
	i := 0
	for i < len(data) {
		if !isPrintable(data[i]) {
			i++
			continue
		}
		start := i
		for i < len(data) && isPrintable(data[i]) {
			i++
		}
		if i-start >= minStringLen {
			va := base + uint64(start)
			out[va] = string(data[start:i])
			enc[va] = pe.EncodingASCII
		}
		// i now sits on a NUL or non-printable terminator, or EOF.
	}
}

func scanUTF16LE(data []byte, base uint64, out map[uint64]string, enc map[uint64]pe.StringEncoding) {
	i := 0
	for i+1 < len(data) {
		if !(isPrintable(data[i]) && data[i+1] == 0) {
			i += 2
			continue
		}
		start := i
		var runes []byte
		for i+1 < len(data) && isPrintable(data[i]) && data[i+1] == 0 {
			runes = append(runes, data[i])
			i += 2
		}
		if len(runes) >= minStringLen {
			va := base + uint64(start)
			if _, exists := out[va]; !exists {
				out[va] = string(runes)
				enc[va] = pe.EncodingUTF16LE
			}
		}
	}
}
