// Package byteview provides a bounds-checked, little-endian random-access
// reader over an immutable byte image. Every parser in this module reads
// through a View rather than indexing the backing slice directly.
package byteview

import "fmt"

// View is a read-only window over a byte slice. The zero value is not
// usable; construct with New.
type View struct {
	data []byte
}

// New wraps data. The caller retains ownership; View never mutates it.
func New(data []byte) View {
	return View{data: data}
}

// Len returns the length of the underlying image.
func (v View) Len() int {
	return len(v.data)
}

// Bytes returns the full backing slice. Callers must not mutate it.
func (v View) Bytes() []byte {
	return v.data
}

// InBounds reports whether [off, off+n) lies within the image.
func (v View) InBounds(off, n int64) bool {
	if off < 0 || n < 0 {
		return false
	}
	end := off + n
	return end >= off && end <= int64(len(v.data))
}

// Slice returns a sub-slice [off, off+n). The returned slice aliases the
// backing array; callers that need an owned copy must clone it themselves.
func (v View) Slice(off, n int64) ([]byte, bool) {
	if !v.InBounds(off, n) {
		return nil, false
	}
	return v.data[off : off+n], true
}

// U8 reads one byte at off.
func (v View) U8(off int64) (uint8, bool) {
	if !v.InBounds(off, 1) {
		return 0, false
	}
	return v.data[off], true
}

// U16 reads a little-endian uint16 at off.
func (v View) U16(off int64) (uint16, bool) {
	if !v.InBounds(off, 2) {
		return 0, false
	}
	return uint16(v.data[off]) | uint16(v.data[off+1])<<8, true
}

// U32 reads a little-endian uint32 at off.
func (v View) U32(off int64) (uint32, bool) {
	if !v.InBounds(off, 4) {
		return 0, false
	}
	b := v.data[off : off+4]
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24, true
}

// U64 reads a little-endian uint64 at off.
func (v View) U64(off int64) (uint64, bool) {
	if !v.InBounds(off, 8) {
		return 0, false
	}
	b := v.data[off : off+8]
	return uint64(b[0]) | uint64(b[1])<<8 | uint64(b[2])<<16 | uint64(b[3])<<24 |
		uint64(b[4])<<32 | uint64(b[5])<<40 | uint64(b[6])<<48 | uint64(b[7])<<56, true
}

// CString reads a NUL-terminated ASCII string starting at off, scanning at
// most maxLen bytes. Returns ok=false if off is out of bounds.
func (v View) CString(off int64, maxLen int) (string, bool) {
	if off < 0 || off > int64(len(v.data)) {
		return "", false
	}
	end := off + int64(maxLen)
	if end > int64(len(v.data)) {
		end = int64(len(v.data))
	}
	for i := off; i < end; i++ {
		if v.data[i] == 0 {
			return string(v.data[off:i]), true
		}
	}
	return string(v.data[off:end]), true
}

// MustSlice is like Slice but panics on out-of-bounds access; used only in
// call sites that already validated bounds and want to avoid a second
// boolean check (never used against untrusted offsets from a file).
func (v View) MustSlice(off, n int64) []byte {
	s, ok := v.Slice(off, n)
	if !ok {
		panic(fmt.Sprintf("byteview: out of bounds slice [%d:%d) of len %d", off, off+n, len(v.data)))
	}
	return s
}
