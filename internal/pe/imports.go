package pe

import "fmt"

// parseImports walks the IMAGE_IMPORT_DESCRIPTOR array pointed to by the
// import data directory, one entry per imported DLL, until a zeroed
// terminator entry. Each descriptor's thunk table (OriginalFirstThunk
// preferred, falling back to FirstThunk for binaries built without a
// bound-import hint table) is then walked to recover function names or
// ordinals.
func parseImports(img *Image) []ImportEntry {
	dir, ok := img.dataDir(DirImport)
	if !ok {
		return nil
	}
	v := img.view

	var entries []ImportEntry
	for descIdx := 0; ; descIdx++ {
		descRVA := dir.RVA + uint32(descIdx*peImportDescSize)
		descOff := int64(img.FileOffset(descRVA))

		origFirstThunk, ok1 := v.U32(descOff)
		_, ok2 := v.U32(descOff + 4) // TimeDateStamp, unused
		_, ok3 := v.U32(descOff + 8) // ForwarderChain, unused
		nameRVA, ok4 := v.U32(descOff + 12)
		firstThunk, ok5 := v.U32(descOff + 16)
		if !(ok1 && ok2 && ok3 && ok4 && ok5) {
			break
		}
		if origFirstThunk == 0 && nameRVA == 0 && firstThunk == 0 {
			break // terminator entry
		}

		name, ok := v.CString(int64(img.FileOffset(nameRVA)), 256)
		if !ok {
			name = fmt.Sprintf("unknown_%d.dll", descIdx)
		}

		thunkRVA := origFirstThunk
		if thunkRVA == 0 {
			thunkRVA = firstThunk
		}

		entry := ImportEntry{Library: name}
		entry.Functions, entry.IatVAs = walkThunks(img, thunkRVA, firstThunk)
		entries = append(entries, entry)
	}
	return entries
}

// walkThunks reads a thunk array starting at thunkRVA until a zero
// terminator, resolving each slot to a name (via the hint/name table) or
// an "Ordinal_<n>" placeholder, and pairs it with the corresponding IAT
// slot's VA (iatRVA advances in lockstep, independent of which thunk
// table was used to resolve names).
func walkThunks(img *Image, thunkRVA, iatRVA uint32) ([]string, []uint64) {
	v := img.view
	thunkSize := int64(4)
	ordinalFlag := uint64(0x80000000)
	if img.Bitness == Bitness64 {
		thunkSize = 8
		ordinalFlag = 0x8000000000000000
	}

	var names []string
	var vas []uint64
	for i := 0; ; i++ {
		off := int64(img.FileOffset(thunkRVA)) + int64(i)*thunkSize
		var raw uint64
		var ok bool
		if img.Bitness == Bitness64 {
			raw, ok = v.U64(off)
		} else {
			v32, ok32 := v.U32(off)
			raw, ok = uint64(v32), ok32
		}
		if !ok || raw == 0 {
			break
		}

		var name string
		if raw&ordinalFlag != 0 {
			name = fmt.Sprintf("Ordinal_%d", raw&0xFFFF)
		} else {
			nameRVA := uint32(raw)
			// IMAGE_IMPORT_BY_NAME: Hint (2 bytes), then the name.
			n, ok := v.CString(int64(img.FileOffset(nameRVA))+2, 256)
			if !ok {
				n = fmt.Sprintf("unresolved_%08x", nameRVA)
			}
			name = n
		}

		names = append(names, name)
		vas = append(vas, img.VA(iatRVA+uint32(i)*uint32(thunkSize)))
	}
	return names, vas
}
