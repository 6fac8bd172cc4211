package pe

import (
	"bytes"
	"fmt"

	"peanalyze/internal/byteview"
)

const (
	magicPE32  = 0x10b
	magicPE32P = 0x20b

	peSectionHeaderSize = 40
	peImportDescSize    = 20
)

// Parse builds an Image from a whole-file byte slice. It validates the
// MZ/PE signatures, the optional header magic, and that every section's
// raw range lies within the image; a failure at any of those is fatal.
// Past that, imports/exports/data directories degrade gracefully — a
// malformed entry is skipped rather than raising a ParseError.
func Parse(data []byte) (*Image, error) {
	v := byteview.New(data)

	sig, ok := v.U16(0)
	if !ok || sig != 0x5A4D { // "MZ"
		return nil, newParseError("dos", fmt.Sprintf("Invalid DOS signature: 0x%04X", sig))
	}
	elfanew, ok := v.U32(0x3C)
	if !ok {
		return nil, newParseError("dos", "Invalid PE offset")
	}

	peSig, ok := v.U32(int64(elfanew))
	if !ok {
		return nil, newParseError("nt", "Invalid PE offset")
	}
	if peSig != 0x00004550 { // "PE\0\0"
		return nil, newParseError("nt", fmt.Sprintf("Invalid PE signature: 0x%08X", peSig))
	}

	coffOff := int64(elfanew) + 4
	coff, ok := parseCOFFHeader(v, coffOff)
	if !ok {
		return nil, newParseError("nt", "truncated COFF header")
	}

	optOff := coffOff + 20
	magic, ok := v.U16(optOff)
	if !ok {
		return nil, newParseError("optional", "truncated optional header")
	}

	var bitness Bitness
	switch magic {
	case magicPE32:
		bitness = Bitness32
	case magicPE32P:
		bitness = Bitness64
	default:
		return nil, newParseError("optional", fmt.Sprintf("Invalid optional header magic: 0x%04X", magic))
	}

	opt, dataDirsOff, ok := parseOptionalHeader(v, optOff, bitness)
	if !ok {
		return nil, newParseError("optional", "truncated optional header body")
	}

	dataDirs := parseDataDirectories(v, dataDirsOff, opt.NumberOfRvaAndSizes)

	sectionsOff := optOff + int64(coff.SizeOfOptionalHeader)
	sections, err := parseSectionHeaders(v, sectionsOff, int(coff.NumberOfSections))
	if err != nil {
		return nil, newParseError("sections", err.Error())
	}

	img := &Image{
		Bitness:  bitness,
		ELfanew:  elfanew,
		COFF:     coff,
		Optional: opt,
		DataDirs: dataDirs,
		Sections: sections,
		view:     v,
	}

	img.Imports = parseImports(img)
	img.Exports = parseExports(img)

	return img, nil
}

func parseCOFFHeader(v byteview.View, off int64) (COFFHeader, bool) {
	machine, ok1 := v.U16(off)
	numSections, ok2 := v.U16(off + 2)
	timeDate, ok3 := v.U32(off + 4)
	ptrSymtab, ok4 := v.U32(off + 8)
	numSymbols, ok5 := v.U32(off + 12)
	sizeOpt, ok6 := v.U16(off + 16)
	chars, ok7 := v.U16(off + 18)
	if !(ok1 && ok2 && ok3 && ok4 && ok5 && ok6 && ok7) {
		return COFFHeader{}, false
	}
	return COFFHeader{
		Machine:              machine,
		NumberOfSections:     numSections,
		TimeDateStamp:        timeDate,
		PointerToSymbolTable: ptrSymtab,
		NumberOfSymbols:      numSymbols,
		SizeOfOptionalHeader: sizeOpt,
		Characteristics:      chars,
	}, true
}

// parseOptionalHeader reads the fields this core needs and returns the
// file offset at which the data-directory table begins.
func parseOptionalHeader(v byteview.View, off int64, bitness Bitness) (NormalizedOptionalHeader, int64, bool) {
	magic, ok1 := v.U16(off)
	entry, ok2 := v.U32(off + 16)
	if !(ok1 && ok2) {
		return NormalizedOptionalHeader{}, 0, false
	}

	var (
		imageBase               uint64
		sectionAlign, fileAlign uint32
		dataDirsOff             int64
		ok3, ok4                bool
	)
	if bitness == Bitness64 {
		base, ok := v.U64(off + 24)
		imageBase = base
		ok3 = ok
		sectionAlign, _ = v.U32(off + 32)
		fileAlign, ok4 = v.U32(off + 36)
		dataDirsOff = off + 112
	} else {
		base, ok := v.U32(off + 28)
		imageBase = uint64(base)
		ok3 = ok
		sectionAlign, _ = v.U32(off + 32)
		fileAlign, ok4 = v.U32(off + 36)
		dataDirsOff = off + 96
	}
	if !(ok3 && ok4) {
		return NormalizedOptionalHeader{}, 0, false
	}

	sizeOfImage, _ := v.U32(off + 56)
	sizeOfHeaders, _ := v.U32(off + 60)
	checksum, _ := v.U32(off + 64)
	subsystem, _ := v.U16(off + 68)
	dllChars, _ := v.U16(off + 70)

	var numRvaSizes uint32
	if bitness == Bitness64 {
		numRvaSizes, _ = v.U32(off + 108)
	} else {
		numRvaSizes, _ = v.U32(off + 92)
	}

	return NormalizedOptionalHeader{
		Magic:               magic,
		AddressOfEntryPoint: entry,
		ImageBase:           imageBase,
		SectionAlignment:    sectionAlign,
		FileAlignment:       fileAlign,
		SizeOfImage:         sizeOfImage,
		SizeOfHeaders:       sizeOfHeaders,
		CheckSum:            checksum,
		Subsystem:           subsystem,
		DllCharacteristics:  dllChars,
		NumberOfRvaAndSizes: numRvaSizes,
	}, dataDirsOff, true
}

func parseDataDirectories(v byteview.View, off int64, count uint32) []DataDirectory {
	// Clamp against both a sane upper bound and the standard 16-entry
	// table; a corrupt NumberOfRvaAndSizes must not cause an unbounded read.
	if count > 16 {
		count = 16
	}
	dirs := make([]DataDirectory, 0, count)
	for i := uint32(0); i < count; i++ {
		entryOff := off + int64(i)*8
		rva, ok1 := v.U32(entryOff)
		size, ok2 := v.U32(entryOff + 4)
		if !ok1 || !ok2 {
			break
		}
		dirs = append(dirs, DataDirectory{RVA: rva, Size: size})
	}
	return dirs
}

// parseSectionHeaders reads count consecutive IMAGE_SECTION_HEADER entries
// starting at off. A section whose raw range [pointerToRawData,
// pointerToRawData+sizeOfRawData) escapes the image is a hard failure, not
// a skipped entry: the invariant that every section's raw range lies
// within the image must hold for every Image this returns.
func parseSectionHeaders(v byteview.View, off int64, count int) ([]SectionHeader, error) {
	sections := make([]SectionHeader, 0, count)
	for i := 0; i < count; i++ {
		base := off + int64(i)*peSectionHeaderSize
		nameBytes, ok := v.Slice(base, 8)
		if !ok {
			break
		}
		virtSize, ok1 := v.U32(base + 8)
		virtAddr, ok2 := v.U32(base + 12)
		rawSize, ok3 := v.U32(base + 16)
		rawPtr, ok4 := v.U32(base + 20)
		chars, ok5 := v.U32(base + 36)
		if !(ok1 && ok2 && ok3 && ok4 && ok5) {
			break
		}
		name := string(bytes.TrimRight(nameBytes, "\x00"))
		if int64(rawPtr)+int64(rawSize) > int64(v.Len()) {
			return nil, fmt.Errorf("section %q raw range [0x%x, 0x%x) escapes image of length 0x%x",
				name, rawPtr, uint64(rawPtr)+uint64(rawSize), v.Len())
		}
		sections = append(sections, SectionHeader{
			Name:             name,
			VirtualSize:      virtSize,
			VirtualAddress:   virtAddr,
			SizeOfRawData:    rawSize,
			PointerToRawData: rawPtr,
			Characteristics:  chars,
		})
	}
	return sections, nil
}

func (img *Image) dataDir(index int) (DataDirectory, bool) {
	if index < 0 || index >= len(img.DataDirs) {
		return DataDirectory{}, false
	}
	d := img.DataDirs[index]
	if d.RVA == 0 || d.Size == 0 {
		return DataDirectory{}, false
	}
	return d, true
}
