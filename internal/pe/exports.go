package pe

const exportDirSize = 40

// parseExports walks IMAGE_EXPORT_DIRECTORY, producing one ExportEntry for
// each i in [0, numberOfNames): ordinal = ordinalTable[i], name = the
// C-string at namePointerTable[i], address = addressTable[ordinal].
// Ordinal-only exports with no name-table entry are not visited; this
// mirrors the export walk exactly rather than generalizing to them. An
// export whose RVA falls inside the export directory's own range is a
// forwarder ("OTHERDLL.Func") rather than code.
func parseExports(img *Image) []ExportEntry {
	dir, ok := img.dataDir(DirExport)
	if !ok {
		return nil
	}
	v := img.view
	dirOff := int64(img.FileOffset(dir.RVA))

	base, ok1 := v.U32(dirOff + 16)
	numNames, ok2 := v.U32(dirOff + 24)
	addrFuncsRVA, ok3 := v.U32(dirOff + 28)
	addrNamesRVA, ok4 := v.U32(dirOff + 32)
	addrOrdsRVA, ok5 := v.U32(dirOff + 36)
	if !(ok1 && ok2 && ok3 && ok4 && ok5) {
		return nil
	}

	entries := make([]ExportEntry, 0, numNames)
	for i := uint32(0); i < numNames; i++ {
		nameRVAOff := int64(img.FileOffset(addrNamesRVA)) + int64(i)*4
		ordOff := int64(img.FileOffset(addrOrdsRVA)) + int64(i)*2
		nameRVA, ok1 := v.U32(nameRVAOff)
		ordIdx, ok2 := v.U16(ordOff)
		if !ok1 || !ok2 {
			continue
		}
		name, ok := v.CString(int64(img.FileOffset(nameRVA)), 512)
		if !ok {
			continue
		}

		funcOff := int64(img.FileOffset(addrFuncsRVA)) + int64(ordIdx)*4
		funcRVA, ok := v.U32(funcOff)
		if !ok || funcRVA == 0 {
			continue
		}

		entry := ExportEntry{Name: name, Ordinal: uint16(base) + ordIdx}
		if funcRVA >= dir.RVA && funcRVA < dir.RVA+dir.Size {
			if fwd, ok := v.CString(int64(img.FileOffset(funcRVA)), 512); ok {
				entry.Forwarder = fwd
			}
		} else {
			entry.RVA = funcRVA
		}
		entries = append(entries, entry)
	}
	return entries
}
