package byteview

import "testing"

func TestReads(t *testing.T) {
	data := []byte{0x4D, 0x5A, 0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08, 'h', 'i', 0, 'x'}
	v := New(data)

	tests := []struct {
		name string
		fn   func() (any, bool)
		want any
	}{
		{"u8", func() (any, bool) { return asU8(v.U8(0)) }, uint8(0x4D)},
		{"u16", func() (any, bool) { return asU16(v.U16(0)) }, uint16(0x5A4D)},
		{"u32", func() (any, bool) { return asU32(v.U32(2)) }, uint32(0x04030201)},
		{"u64", func() (any, bool) { return asU64(v.U64(2)) }, uint64(0x0807060504030201)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := tt.fn()
			if !ok {
				t.Fatalf("read failed")
			}
			if got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func asU8(v uint8, ok bool) (any, bool)   { return v, ok }
func asU16(v uint16, ok bool) (any, bool) { return v, ok }
func asU32(v uint32, ok bool) (any, bool) { return v, ok }
func asU64(v uint64, ok bool) (any, bool) { return v, ok }

func TestOutOfBounds(t *testing.T) {
	v := New([]byte{1, 2, 3})
	if _, ok := v.U32(1); ok {
		t.Errorf("expected out-of-bounds U32 to fail")
	}
	if _, ok := v.Slice(2, 5); ok {
		t.Errorf("expected out-of-bounds Slice to fail")
	}
}

func TestCString(t *testing.T) {
	v := New([]byte{'h', 'i', 0, 'x'})
	s, ok := v.CString(0, 10)
	if !ok || s != "hi" {
		t.Errorf("got %q, %v, want %q, true", s, ok, "hi")
	}
	s, ok = v.CString(3, 10)
	if !ok || s != "x" {
		t.Errorf("got %q, %v, want %q, true", s, ok, "x")
	}
}
