package cfg

import "sort"

// Loop is a natural loop detected over a function's basic-block graph.
type Loop struct {
	HeaderAddr       uint64 `json:"header_addr"`
	BackEdgeFromAddr uint64 `json:"back_edge_from_addr"`
	Depth            int    `json:"depth"`
}

// DetectLoops runs a BFS layering pass from block 0 and flags any edge
// whose destination layer is at or before its source layer as a back
// edge. Depth approximates containment by address range.
func DetectLoops(blocks []BasicBlock) []Loop {
	if len(blocks) == 0 {
		return nil
	}

	layer := bfsLayers(blocks)

	headerByAddr := make(map[uint64]int) // headerAddr -> index into loops, for backEdgeFromAddr dedup
	var loops []Loop

	for i := range blocks {
		srcLayer, reached := layer[i]
		if !reached {
			continue
		}
		for _, s := range blocks[i].Succs {
			dstLayer, dstReached := layer[s]
			if !dstReached || dstLayer > srcLayer {
				continue
			}
			header := blocks[s].StartAddr
			backEdge := blocks[i].EndAddr
			if idx, exists := headerByAddr[header]; exists {
				if backEdge > loops[idx].BackEdgeFromAddr {
					loops[idx].BackEdgeFromAddr = backEdge
				}
				continue
			}
			headerByAddr[header] = len(loops)
			loops = append(loops, Loop{HeaderAddr: header, BackEdgeFromAddr: backEdge})
		}
	}

	sort.Slice(loops, func(i, j int) bool { return loops[i].HeaderAddr < loops[j].HeaderAddr })
	assignDepths(loops)
	return loops
}

func bfsLayers(blocks []BasicBlock) map[int]int {
	layer := map[int]int{0: 0}
	queue := []int{0}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, s := range blocks[cur].Succs {
			if _, seen := layer[s]; seen {
				continue
			}
			layer[s] = layer[cur] + 1
			queue = append(queue, s)
		}
	}
	return layer
}

// assignDepths counts, for each loop L, the other loops L' that strictly
// contain L's header within [L'.headerAddr, L'.backEdgeFromAddr).
func assignDepths(loops []Loop) {
	for i := range loops {
		depth := 0
		for j := range loops {
			if i == j {
				continue
			}
			if loops[i].HeaderAddr >= loops[j].HeaderAddr && loops[i].HeaderAddr < loops[j].BackEdgeFromAddr {
				depth++
			}
		}
		loops[i].Depth = depth
	}
}
