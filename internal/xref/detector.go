package xref

import (
	"sort"

	"peanalyze/internal/annotate"
	"peanalyze/internal/pe"
)

// Detector enriches the base xref set produced by Build. Chains run in
// order over a flattened xref list, each pass free to add Notes or
// append new entries.
type Detector interface {
	Detect(xrefs []Xref, img *pe.Image) []Xref
}

// DetectorChain runs a sequence of Detectors over a flattened xref list,
// in order.
type DetectorChain []Detector

// Run applies every detector in the chain to xrefs.
func (c DetectorChain) Run(xrefs []Xref, img *pe.Image) []Xref {
	for _, d := range c {
		xrefs = d.Detect(xrefs, img)
	}
	return xrefs
}

// IATDetector annotates Data xrefs whose target lands in an import's IAT
// slot with the imported "lib!func" display name, reusing the
// Annotator's IAT index rather than re-deriving it.
type IATDetector struct {
	IAT annotate.IATIndex
}

func (d IATDetector) Detect(xrefs []Xref, img *pe.Image) []Xref {
	for i := range xrefs {
		if xrefs[i].Type != Data {
			continue
		}
		if name, ok := d.IAT[xrefs[i].To]; ok {
			xrefs[i].Note = name
		}
	}
	return xrefs
}

// Flatten converts a target-keyed xref map into a single slice, ordered
// by ascending target VA and, within a target, by the map's existing
// (encounter) order — a deterministic view for the detector chain.
func Flatten(m map[uint64][]Xref) []Xref {
	targets := make([]uint64, 0, len(m))
	for to := range m {
		targets = append(targets, to)
	}
	sort.Slice(targets, func(i, j int) bool { return targets[i] < targets[j] })

	var out []Xref
	for _, to := range targets {
		out = append(out, m[to]...)
	}
	return out
}

// Regroup rebuilds a target-keyed map from a flattened slice, inverse of
// Flatten (used after a DetectorChain run to restore the map shape
// consumed by the CFG builder).
func Regroup(xrefs []Xref) map[uint64][]Xref {
	out := make(map[uint64][]Xref, len(xrefs))
	for _, x := range xrefs {
		out[x.To] = append(out[x.To], x)
	}
	return out
}
