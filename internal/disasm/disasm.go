// Package disasm performs linear-sweep x86/x64 disassembly over a byte
// region, producing a flat sequence of Instructions that own their bytes.
package disasm

import (
	"golang.org/x/arch/x86/x86asm"
)

// Instruction is a decoded x86/x64 instruction. Bytes is a private copy of
// the instruction's encoding, independent of the buffer it was decoded
// from, not a slice of the decoder's input buffer.
type Instruction struct {
	VA        uint64 `json:"va"`
	Bytes     []byte `json:"bytes"`
	Mnemonic  string `json:"mnemonic"`
	OpStr     string `json:"op_str"`            // operand portion, e.g. "rcx, [rip+0x100]"
	Text      string `json:"text"`              // "mnemonic operands"
	Comment   string `json:"comment,omitempty"` // set by internal/annotate.Annotate; "" until then
	Len       int    `json:"len"`
	Undecoded bool   `json:"undecoded,omitempty"` // true for a byte-resync pseudo-instruction
}

// Mode selects 32-bit or 64-bit decoding.
type Mode int

const (
	Mode32 Mode = 32
	Mode64 Mode = 64
)

const chunkSize = 64 * 1024

// Decode performs a linear sweep over data starting at base VA baseVA,
// chunking the sweep at chunkSize boundaries: each chunk is
// decoded instruction-by-instruction; a chunk that yields zero
// instructions advances by one byte and retries (byte-level resync)
// rather than failing the whole sweep.
func Decode(data []byte, baseVA uint64, mode Mode) []Instruction {
	var out []Instruction
	offset := 0
	for offset < len(data) {
		end := offset + chunkSize
		if end > len(data) {
			end = len(data)
		}
		decoded, panicked := decodeChunkSafe(data[offset:end], baseVA+uint64(offset), mode)
		switch {
		case panicked:
			offset += end - offset
		case len(decoded) == 0:
			out = append(out, resyncByte(data, offset, baseVA))
			offset++
		default:
			out = append(out, decoded...)
			offset += lastEnd(decoded)
		}
	}
	return out
}

// DecodeCancelable is like Decode but polls done between chunks, returning
// whatever has been decoded so far once done fires (cancellation is
// "partial output is valid up to the last emitted instruction").
func DecodeCancelable(data []byte, baseVA uint64, mode Mode, done <-chan struct{}) []Instruction {
	var out []Instruction
	offset := 0
	for offset < len(data) {
		select {
		case <-done:
			return out
		default:
		}
		end := offset + chunkSize
		if end > len(data) {
			end = len(data)
		}
		decoded, panicked := decodeChunkSafe(data[offset:end], baseVA+uint64(offset), mode)
		switch {
		case panicked:
			offset += end - offset
		case len(decoded) == 0:
			out = append(out, resyncByte(data, offset, baseVA))
			offset++
		default:
			out = append(out, decoded...)
			offset += lastEnd(decoded)
		}
	}
	return out
}

func resyncByte(data []byte, offset int, baseVA uint64) Instruction {
	return Instruction{
		VA:        baseVA + uint64(offset),
		Bytes:     []byte{data[offset]},
		Mnemonic:  ".byte",
		OpStr:     byteHex(data[offset]),
		Text:      ".byte " + byteHex(data[offset]),
		Len:       1,
		Undecoded: true,
	}
}

// decodeChunkSafe isolates decodeChunk behind a recover: a decoder panic
// on malformed input skips the whole chunk rather than crashing the sweep.
func decodeChunkSafe(chunk []byte, baseVA uint64, mode Mode) (insts []Instruction, panicked bool) {
	defer func() {
		if recover() != nil {
			insts, panicked = nil, true
		}
	}()
	return decodeChunk(chunk, baseVA, mode), false
}

// lastEnd returns the number of bytes consumed by insts, which
// decodeChunk walks contiguously from offset 0.
func lastEnd(insts []Instruction) int {
	total := 0
	for _, in := range insts {
		total += in.Len
	}
	return total
}

func decodeChunk(chunk []byte, baseVA uint64, mode Mode) []Instruction {
	var out []Instruction
	pos := 0
	for pos < len(chunk) {
		inst, err := x86asm.Decode(chunk[pos:], int(mode))
		if err != nil || inst.Len == 0 {
			break
		}
		va := baseVA + uint64(pos)
		text := x86asm.IntelSyntax(inst, va, nil)
		mnem, ops := splitMnemonic(text)
		owned := make([]byte, inst.Len)
		copy(owned, chunk[pos:pos+inst.Len])
		out = append(out, Instruction{
			VA:       va,
			Bytes:    owned,
			Mnemonic: mnem,
			OpStr:    ops,
			Text:     text,
			Len:      inst.Len,
		})
		pos += inst.Len
	}
	return out
}

func splitMnemonic(text string) (mnem, ops string) {
	for i, c := range text {
		if c == ' ' {
			return text[:i], text[i+1:]
		}
	}
	return text, ""
}

func byteHex(b byte) string {
	const hexDigits = "0123456789abcdef"
	return "0x" + string([]byte{hexDigits[b>>4], hexDigits[b&0xF]})
}
