package sig

import (
	"testing"

	"peanalyze/internal/disasm"
)

func TestInferFastcallZeroParams(t *testing.T) {
	insts := []disasm.Instruction{
		{Mnemonic: "sub", OpStr: "rsp, 0x28"},
		{Mnemonic: "mov", OpStr: "eax, 0x1"},
		{Mnemonic: "add", OpStr: "rsp, 0x28"},
		{Mnemonic: "ret"},
	}
	got := Infer(insts, disasm.Mode64)
	if got != (Signature{Convention: Fastcall, ParamCount: 0}) {
		t.Fatalf("got %+v, want {fastcall 0}", got)
	}
}

func TestInferFastcallRegisterParam(t *testing.T) {
	insts := []disasm.Instruction{
		{Mnemonic: "mov", OpStr: "rax, rcx"},
	}
	got := Infer(insts, disasm.Mode64)
	if got.Convention != Fastcall || got.ParamCount != 1 {
		t.Fatalf("got %+v, want paramCount 1", got)
	}
}

func TestInferFastcallHighestIndexWins(t *testing.T) {
	insts := []disasm.Instruction{
		{Mnemonic: "mov", OpStr: "rax, r9"},
	}
	got := Infer(insts, disasm.Mode64)
	if got.ParamCount != 4 {
		t.Fatalf("got %+v, want paramCount 4 (r9 is the 4th arg register)", got)
	}
}

func TestInferFastcallWriteBeforeReadExcludesRegister(t *testing.T) {
	insts := []disasm.Instruction{
		{Mnemonic: "mov", OpStr: "rcx, 0x5"}, // rcx written before any read: not a param
		{Mnemonic: "mov", OpStr: "rax, rdx"}, // rdx read: param index 2
	}
	got := Infer(insts, disasm.Mode64)
	if got.ParamCount != 2 {
		t.Fatalf("got %+v, want paramCount 2 (rcx excluded, rdx is index 2)", got)
	}
}

func TestInferFastcallStackParam(t *testing.T) {
	insts := []disasm.Instruction{
		{Mnemonic: "mov", OpStr: "rax, [rsp+0x38]"},
	}
	got := Infer(insts, disasm.Mode64)
	if got.ParamCount != 7 {
		t.Fatalf("got %+v, want paramCount 7 (5 + (0x38-0x28)/8)", got)
	}
}

func TestInferFastcallCallDoesNotCountAsRead(t *testing.T) {
	insts := []disasm.Instruction{
		{Mnemonic: "call", OpStr: "0x140001000"},
	}
	got := Infer(insts, disasm.Mode64)
	if got.ParamCount != 0 {
		t.Fatalf("got %+v, want paramCount 0", got)
	}
}

func TestInferFastcallZeroingIdiomIsWriteNotRead(t *testing.T) {
	insts := []disasm.Instruction{
		{Mnemonic: "xor", OpStr: "rcx, rcx"},
	}
	got := Infer(insts, disasm.Mode64)
	if got.ParamCount != 0 {
		t.Fatalf("got %+v, want paramCount 0 (xor rcx,rcx is a write, not a read)", got)
	}
}

func TestInferStdcall(t *testing.T) {
	insts := []disasm.Instruction{
		{Mnemonic: "ret", OpStr: "8"},
	}
	got := Infer(insts, disasm.Mode32)
	if got != (Signature{Convention: Stdcall, ParamCount: 2}) {
		t.Fatalf("got %+v, want {stdcall 2}", got)
	}
}

func TestInferRetZeroIsNotStdcall(t *testing.T) {
	insts := []disasm.Instruction{
		{Mnemonic: "ret", OpStr: "0"},
	}
	got := Infer(insts, disasm.Mode32)
	if got.Convention == Stdcall {
		t.Fatalf("got %+v, ret 0 must not imply stdcall", got)
	}
}

func TestInferThiscall(t *testing.T) {
	insts := []disasm.Instruction{
		{Mnemonic: "mov", OpStr: "eax, ecx"},
		{Mnemonic: "mov", OpStr: "eax, [ebp+0xc]"},
	}
	got := Infer(insts, disasm.Mode32)
	if got != (Signature{Convention: Thiscall, ParamCount: 2}) {
		t.Fatalf("got %+v, want {thiscall 2}", got)
	}
}

func TestInferCdecl(t *testing.T) {
	insts := []disasm.Instruction{
		{Mnemonic: "push", OpStr: "0x5"},
		{Mnemonic: "call", OpStr: "0x1000"},
	}
	got := Infer(insts, disasm.Mode32)
	if got != (Signature{Convention: Cdecl, ParamCount: 0}) {
		t.Fatalf("got %+v, want {cdecl 0}", got)
	}
}
