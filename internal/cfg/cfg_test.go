package cfg

import (
	"testing"

	"peanalyze/internal/disasm"
	"peanalyze/internal/xref"
)

func TestBuildConditionalLoop(t *testing.T) {
	// 0x10: nop (2 bytes, just a stand-in)
	// 0x12: nop
	// 0x14: jne 0x10  (len 2)
	// 0x16: ret
	insts := []disasm.Instruction{
		{VA: 0x10, Len: 2, Mnemonic: "nop"},
		{VA: 0x12, Len: 2, Mnemonic: "nop"},
		{VA: 0x14, Len: 2, Mnemonic: "jne", OpStr: "0x10"},
		{VA: 0x16, Len: 1, Mnemonic: "ret"},
	}
	xrefs := xref.Build(insts)
	blocks := Build(insts, xrefs)

	if len(blocks) != 2 {
		t.Fatalf("got %d blocks, want 2: %+v", len(blocks), blocks)
	}
	if blocks[0].StartAddr != 0x10 || blocks[0].EndAddr != 0x16 {
		t.Errorf("block0 = %+v", blocks[0])
	}
	if blocks[1].StartAddr != 0x16 {
		t.Errorf("block1 = %+v", blocks[1])
	}
	if len(blocks[0].Succs) != 2 {
		t.Fatalf("block0 succs = %v, want 2 (loop back + fallthrough)", blocks[0].Succs)
	}
	if len(blocks[1].Preds) != 1 || blocks[1].Preds[0] != 0 {
		t.Errorf("block1 preds = %v", blocks[1].Preds)
	}

	loops := DetectLoops(blocks)
	if len(loops) != 1 || loops[0].HeaderAddr != 0x10 || loops[0].Depth != 0 {
		t.Fatalf("loops = %+v", loops)
	}
}

func TestBuildStraightLineNoLoop(t *testing.T) {
	insts := []disasm.Instruction{
		{VA: 0x10, Len: 2, Mnemonic: "nop"},
		{VA: 0x12, Len: 1, Mnemonic: "ret"},
	}
	blocks := Build(insts, map[uint64][]xref.Xref{})
	if len(blocks) != 1 {
		t.Fatalf("got %d blocks, want 1", len(blocks))
	}
	if len(blocks[0].Succs) != 0 {
		t.Errorf("expected ret to have no successors, got %v", blocks[0].Succs)
	}
	if loops := DetectLoops(blocks); len(loops) != 0 {
		t.Errorf("expected no loops, got %+v", loops)
	}
}

func TestUnconditionalJmpSingleSuccessor(t *testing.T) {
	insts := []disasm.Instruction{
		{VA: 0x10, Len: 2, Mnemonic: "jmp", OpStr: "0x20"},
		{VA: 0x20, Len: 1, Mnemonic: "ret"},
	}
	blocks := Build(insts, map[uint64][]xref.Xref{})
	if len(blocks) != 2 {
		t.Fatalf("got %d blocks, want 2: %+v", len(blocks), blocks)
	}
	if len(blocks[0].Succs) != 1 || blocks[0].Succs[0] != 1 {
		t.Errorf("block0 succs = %v, want [1]", blocks[0].Succs)
	}
}

func TestNestedLoopDepth(t *testing.T) {
	// Outer loop header 0x10, back edge from 0x30 (range [0x10,0x30)).
	// Inner loop header 0x18, back edge from 0x28 (contained within outer).
	blocks := []BasicBlock{
		{ID: 0, StartAddr: 0x10, EndAddr: 0x18, Succs: []int{1}},
		{ID: 1, StartAddr: 0x18, EndAddr: 0x20, Succs: []int{2}},
		{ID: 2, StartAddr: 0x20, EndAddr: 0x28, Succs: []int{1, 3}}, // back edge to inner header
		{ID: 3, StartAddr: 0x28, EndAddr: 0x30, Succs: []int{0, 4}}, // back edge to outer header
		{ID: 4, StartAddr: 0x30, EndAddr: 0x38},
	}
	loops := DetectLoops(blocks)
	if len(loops) != 2 {
		t.Fatalf("got %d loops, want 2: %+v", len(loops), loops)
	}
	var outer, inner Loop
	for _, l := range loops {
		if l.HeaderAddr == 0x10 {
			outer = l
		} else {
			inner = l
		}
	}
	if outer.Depth != 0 {
		t.Errorf("outer depth = %d, want 0", outer.Depth)
	}
	if inner.Depth != 1 {
		t.Errorf("inner depth = %d, want 1", inner.Depth)
	}
}
