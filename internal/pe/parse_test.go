package pe

import (
	"bytes"
	"encoding/binary"
	"testing"
)

// buildMinimalPE64 assembles a minimal valid PE32+ image with a single
// executable section, no imports or exports. Headers and section bytes are
// laid out by hand (not via encoding/binary.Write into a struct) because
// the real optional-header layout mixes 4- and 8-byte fields depending on
// PE32 vs PE32+, which a single Go struct can't express for both.
func buildMinimalPE64(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer

	dos := make([]byte, 0x40)
	dos[0], dos[1] = 'M', 'Z'
	binary.LittleEndian.PutUint32(dos[0x3C:], 0x40) // e_lfanew
	buf.Write(dos)

	buf.WriteString("PE\x00\x00")

	coff := make([]byte, 20)
	binary.LittleEndian.PutUint16(coff[0:], 0x8664) // machine: x64
	binary.LittleEndian.PutUint16(coff[2:], 1)      // number of sections
	binary.LittleEndian.PutUint16(coff[16:], 240)   // size of optional header
	buf.Write(coff)

	opt := make([]byte, 240) // PE32+ optional header body plus 16 data directory slots
	binary.LittleEndian.PutUint16(opt[0:], magicPE32P)
	binary.LittleEndian.PutUint32(opt[16:], 0x1000) // AddressOfEntryPoint RVA
	binary.LittleEndian.PutUint64(opt[24:], 0x140000000)
	binary.LittleEndian.PutUint32(opt[32:], 0x1000) // SectionAlignment
	binary.LittleEndian.PutUint32(opt[36:], 0x200)  // FileAlignment
	binary.LittleEndian.PutUint32(opt[56:], 0x3000)
	binary.LittleEndian.PutUint32(opt[60:], 0x400)
	binary.LittleEndian.PutUint32(opt[108:], 2) // NumberOfRvaAndSizes
	buf.Write(opt[:240])

	section := make([]byte, peSectionHeaderSize)
	copy(section[0:8], ".text")
	binary.LittleEndian.PutUint32(section[8:], 0x200)   // VirtualSize
	binary.LittleEndian.PutUint32(section[12:], 0x1000) // VirtualAddress
	binary.LittleEndian.PutUint32(section[16:], 0x200)  // SizeOfRawData
	binary.LittleEndian.PutUint32(section[20:], 0x400)  // PointerToRawData
	binary.LittleEndian.PutUint32(section[36:], 0x60000020)
	buf.Write(section)

	// Pad out to the section's file offset, then write its raw bytes.
	for int64(buf.Len()) < 0x400 {
		buf.WriteByte(0)
	}
	buf.Write(make([]byte, 0x200))

	return buf.Bytes()
}

func TestParseMinimalPE64(t *testing.T) {
	data := buildMinimalPE64(t)
	img, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if img.Bitness != Bitness64 {
		t.Errorf("bitness = %v, want 64", img.Bitness)
	}
	if img.Optional.ImageBase != 0x140000000 {
		t.Errorf("image base = %#x", img.Optional.ImageBase)
	}
	if img.Optional.AddressOfEntryPoint != 0x1000 {
		t.Errorf("entry point = %#x", img.Optional.AddressOfEntryPoint)
	}
	if len(img.Sections) != 1 || img.Sections[0].Name != ".text" {
		t.Fatalf("sections = %+v", img.Sections)
	}
	if !img.Sections[0].IsExecutable() {
		t.Errorf("expected .text to be executable")
	}

	if off := img.FileOffset(0x1000); off != 0x400 {
		t.Errorf("FileOffset(0x1000) = %#x, want 0x400", off)
	}
	if off := img.FileOffset(0x1100); off != 0x500 {
		t.Errorf("FileOffset(0x1100) = %#x, want 0x500", off)
	}
	// An RVA outside every section's virtual range falls back unchanged.
	if off := img.FileOffset(0x9999); off != 0x9999 {
		t.Errorf("FileOffset fallback = %#x, want 0x9999", off)
	}

	if va := img.VA(0x1000); va != 0x140001000 {
		t.Errorf("VA(0x1000) = %#x, want 0x140001000", va)
	}
}

func TestParseRejectsBadSignature(t *testing.T) {
	if _, err := Parse([]byte("not a pe file")); err == nil {
		t.Fatalf("expected error for missing MZ signature")
	}

	data := buildMinimalPE64(t)
	data[0] = 'X' // corrupt MZ
	if _, err := Parse(data); err == nil {
		t.Fatalf("expected error for corrupted signature")
	}
}

func TestParseRejectsSectionRawRangeEscapingImage(t *testing.T) {
	data := buildMinimalPE64(t)
	// SizeOfRawData is at offset 16 within the section header, which
	// itself starts right after the 240-byte optional header.
	sectionHdrOff := 0x40 + 4 + 20 + 240
	binary.LittleEndian.PutUint32(data[sectionHdrOff+16:], 0xFFFFFFFF) // SizeOfRawData

	_, err := Parse(data)
	if err == nil {
		t.Fatalf("expected error for section raw range escaping the image")
	}
}

func TestSectionForRVA(t *testing.T) {
	img, err := Parse(buildMinimalPE64(t))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if _, ok := img.SectionForRVA(0x1000); !ok {
		t.Errorf("expected 0x1000 to resolve to a section")
	}
	if _, ok := img.SectionForRVA(0x5000); ok {
		t.Errorf("expected 0x5000 to resolve to no section")
	}
}
