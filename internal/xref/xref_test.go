package xref

import (
	"testing"

	"peanalyze/internal/disasm"
)

func TestBuildBareHexCall(t *testing.T) {
	insts := []disasm.Instruction{
		{VA: 0x1000, Len: 5, Mnemonic: "call", OpStr: "0x140001500"},
	}
	got := Build(insts)
	xs := got[0x140001500]
	if len(xs) != 1 || xs[0].Type != Call || xs[0].From != 0x1000 {
		t.Fatalf("got %+v", xs)
	}
}

func TestBuildBareHexJmpAndBranch(t *testing.T) {
	insts := []disasm.Instruction{
		{VA: 0x1000, Len: 5, Mnemonic: "jmp", OpStr: "0x2000"},
		{VA: 0x1005, Len: 2, Mnemonic: "jz", OpStr: "0x2010"},
	}
	got := Build(insts)
	if got[0x2000][0].Type != Jmp {
		t.Errorf("jmp target type = %v", got[0x2000][0].Type)
	}
	if got[0x2010][0].Type != Branch {
		t.Errorf("jz target type = %v", got[0x2010][0].Type)
	}
}

func TestBuildRIPRelativeCallIsCall(t *testing.T) {
	insts := []disasm.Instruction{
		{VA: 0x1000, Len: 6, Mnemonic: "call", OpStr: "qword ptr [rip+0x100]"},
	}
	got := Build(insts)
	target := uint64(0x1000 + 6 + 0x100)
	if got[target][0].Type != Call {
		t.Errorf("got %+v, want Call", got[target])
	}
}

func TestBuildRIPRelativeNonControlIsData(t *testing.T) {
	insts := []disasm.Instruction{
		{VA: 0x1000, Len: 7, Mnemonic: "lea", OpStr: "rcx, [rip+0x100]"},
	}
	got := Build(insts)
	target := uint64(0x1000 + 7 + 0x100)
	if got[target][0].Type != Data {
		t.Errorf("got %+v, want Data", got[target])
	}
}

func TestBuildDataLiteralAboveThreshold(t *testing.T) {
	insts := []disasm.Instruction{
		{VA: 0x1000, Len: 6, Mnemonic: "mov", OpStr: "rax, 0x140003000"},
		{VA: 0x1010, Len: 5, Mnemonic: "mov", OpStr: "eax, 0x100"}, // below threshold, not recorded
	}
	got := Build(insts)
	if len(got[0x140003000]) != 1 || got[0x140003000][0].Type != Data {
		t.Errorf("got %+v", got[0x140003000])
	}
	if _, ok := got[0x100]; ok {
		t.Errorf("expected sub-threshold literal to be skipped")
	}
}

func TestBuildIgnoresDoubleHexOperand(t *testing.T) {
	// Per the conservative bare-hex rule, "0x1, 0x2" is not a single
	// branch target even on a control mnemonic.
	insts := []disasm.Instruction{
		{VA: 0x1000, Len: 5, Mnemonic: "call", OpStr: "0x1, 0x2"},
	}
	got := Build(insts)
	if len(got) != 0 {
		t.Errorf("got %+v, want no xrefs", got)
	}
}

func TestBuildOrdersByEncounterOrder(t *testing.T) {
	insts := []disasm.Instruction{
		{VA: 0x1000, Len: 5, Mnemonic: "call", OpStr: "0x9000"},
		{VA: 0x1010, Len: 5, Mnemonic: "call", OpStr: "0x9000"},
	}
	got := Build(insts)
	xs := got[0x9000]
	if len(xs) != 2 || xs[0].From != 0x1000 || xs[1].From != 0x1010 {
		t.Fatalf("got %+v, want ordered by encounter", xs)
	}
}
