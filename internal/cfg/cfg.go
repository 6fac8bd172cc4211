// Package cfg builds a function's control-flow graph from its
// instruction stream and the xref map, then detects natural loops over
// the resulting block graph: a plain slice-indexed arena, the idiomatic
// Go shape for a small immutable graph.
package cfg

import (
	"sort"

	"peanalyze/internal/disasm"
	"peanalyze/internal/xref"
)

// BasicBlock is a maximal straight-line instruction run within a
// function. Block ids are dense 0..n-1 in source (address) order.
type BasicBlock struct {
	ID           int                  `json:"id"`
	StartAddr    uint64               `json:"start_addr"`
	EndAddr      uint64               `json:"end_addr"` // one past the last instruction
	Instructions []disasm.Instruction `json:"instructions"`
	Succs        []int                `json:"succs"`
	Preds        []int                `json:"preds"`
}

// Build constructs the basic-block list for one function's instruction
// subsequence, given the full xref map (keyed by target VA).
func Build(fnInsts []disasm.Instruction, xrefs map[uint64][]xref.Xref) []BasicBlock {
	if len(fnInsts) == 0 {
		return nil
	}

	leaders := collectLeaders(fnInsts, xrefs)
	blocks := partitionBlocks(fnInsts, leaders)
	linkEdges(blocks)
	return blocks
}

func collectLeaders(insts []disasm.Instruction, xrefs map[uint64][]xref.Xref) map[uint64]bool {
	leaders := map[uint64]bool{insts[0].VA: true}
	inFunction := make(map[uint64]bool, len(insts))
	for _, in := range insts {
		inFunction[in.VA] = true
	}

	for i, in := range insts {
		mnem := in.Mnemonic
		isJmp := mnem == "jmp"
		isCondBranch := isJmp == false && len(mnem) > 0 && mnem[0] == 'j'
		isRet := mnem == "ret" || mnem == "retn"

		if isJmp || isCondBranch {
			if target, ok := directTarget(in); ok && inFunction[target] {
				leaders[target] = true
			}
		}
		if (isJmp || isCondBranch || isRet) && i+1 < len(insts) {
			leaders[insts[i+1].VA] = true
		}
	}

	for target, xs := range xrefs {
		for _, x := range xs {
			if (x.Type == xref.Branch || x.Type == xref.Jmp) && inFunction[target] {
				leaders[target] = true
			}
		}
	}
	return leaders
}

// directTarget extracts a jmp/branch instruction's resolved absolute
// target, mirroring the bare-hex-operand convention the xref builder
// uses (a relative jmp/jcc's operand is rendered as the resolved
// address).
func directTarget(in disasm.Instruction) (uint64, bool) {
	return parseBareHex(in.OpStr)
}

func partitionBlocks(insts []disasm.Instruction, leaders map[uint64]bool) []BasicBlock {
	sortedLeaders := make([]uint64, 0, len(leaders))
	for va := range leaders {
		sortedLeaders = append(sortedLeaders, va)
	}
	sort.Slice(sortedLeaders, func(i, j int) bool { return sortedLeaders[i] < sortedLeaders[j] })

	leaderIdx := make(map[uint64]int, len(sortedLeaders))
	for i, va := range sortedLeaders {
		leaderIdx[va] = i
	}

	blocks := make([]BasicBlock, len(sortedLeaders))
	for i := range blocks {
		blocks[i] = BasicBlock{ID: i, StartAddr: sortedLeaders[i]}
	}

	curBlock := 0
	for _, in := range insts {
		if idx, ok := leaderIdx[in.VA]; ok {
			curBlock = idx
		}
		blocks[curBlock].Instructions = append(blocks[curBlock].Instructions, in)
	}
	for i := range blocks {
		last := blocks[i].Instructions[len(blocks[i].Instructions)-1]
		blocks[i].EndAddr = last.VA + uint64(last.Len)
	}
	return blocks
}

func linkEdges(blocks []BasicBlock) {
	startIdx := make(map[uint64]int, len(blocks))
	for i, b := range blocks {
		startIdx[b.StartAddr] = i
	}

	for i := range blocks {
		insts := blocks[i].Instructions
		last := insts[len(insts)-1]
		mnem := last.Mnemonic
		isRet := mnem == "ret" || mnem == "retn"
		isJmp := mnem == "jmp"
		isCondBranch := !isJmp && len(mnem) > 0 && mnem[0] == 'j'

		switch {
		case isRet:
			// no successors
		case isJmp:
			if target, ok := directTarget(last); ok {
				if idx, found := startIdx[target]; found {
					blocks[i].Succs = append(blocks[i].Succs, idx)
				}
			}
		case isCondBranch:
			if target, ok := directTarget(last); ok {
				if idx, found := startIdx[target]; found {
					blocks[i].Succs = append(blocks[i].Succs, idx)
				}
			}
			if idx, found := startIdx[blocks[i].EndAddr]; found {
				blocks[i].Succs = append(blocks[i].Succs, idx)
			}
		default:
			if idx, found := startIdx[blocks[i].EndAddr]; found {
				blocks[i].Succs = append(blocks[i].Succs, idx)
			}
		}
	}

	for i := range blocks {
		for _, s := range blocks[i].Succs {
			blocks[s].Preds = append(blocks[s].Preds, i)
		}
	}
}
