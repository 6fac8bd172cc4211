// Package analyze orchestrates the full pipeline — parse, extract
// strings, disassemble every executable section, detect functions,
// build xrefs, then per-function CFG/loops/signature/frame — into one
// Report. Grounded on trace_disasm.go's TraceDisasmWithState, the one
// teacher function that walks every other analysis component in order.
package analyze

import (
	"context"
	"fmt"
	"io"
	"sort"

	"github.com/charmbracelet/log"

	"peanalyze/internal/annotate"
	"peanalyze/internal/cfg"
	"peanalyze/internal/disasm"
	"peanalyze/internal/frame"
	"peanalyze/internal/funcs"
	"peanalyze/internal/pe"
	"peanalyze/internal/sig"
	"peanalyze/internal/strx"
	"peanalyze/internal/xref"
)

// Pipeline runs the analysis core over one image at a time. It holds no
// per-image state between calls.
type Pipeline struct {
	Logger *log.Logger
}

// New builds a Pipeline. A nil logger is replaced with one that
// discards output.
func New(logger *log.Logger) *Pipeline {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Pipeline{Logger: logger}
}

// Analyze runs parse -> strings -> disassemble -> detect functions ->
// build xrefs -> per-function CFG+loops+signature+frame over image,
// polling ctx between chunks (disassembly), between functions (the
// per-function analysis passes), and between executable sections.
//
// On cancellation the caller gets whatever Report has been built so
// far, alongside ctx.Err(); every BasicBlock list already appended is
// complete and internally consistent (never a half-initialized
// BasicBlock).
func (p *Pipeline) Analyze(ctx context.Context, image []byte) (*Report, error) {
	img, err := pe.Parse(image)
	if err != nil {
		return nil, fmt.Errorf("analyze: %w", err)
	}
	strx.Extract(img)

	mode := disasm.Mode64
	if img.Bitness == pe.Bitness32 {
		mode = disasm.Mode32
	}

	iat := annotate.BuildIATIndex(img)
	entryVA := img.VA(img.Optional.AddressOfEntryPoint)

	report := &Report{
		Bitness:   img.Bitness,
		ImageBase: img.Optional.ImageBase,
		Sections:  img.Sections,
		Exports:   img.Exports,
		Imports:   buildImportDisplays(img),
		Xrefs:     make(map[uint64][]xref.Xref),
	}

	exportRefs := make([]funcs.ExportRef, 0, len(img.Exports))
	for _, e := range img.Exports {
		if e.Forwarder != "" {
			continue
		}
		exportRefs = append(exportRefs, funcs.ExportRef{Name: e.Name, VA: img.VA(e.RVA)})
	}

	for _, sec := range img.Sections {
		if !sec.IsExecutable() {
			continue
		}
		if err := checkDone(ctx); err != nil {
			return report, err
		}

		data := img.SectionBytes(sec)
		if len(data) == 0 {
			continue
		}
		baseVA := img.VA(sec.VirtualAddress)
		sectionEnd := baseVA + uint64(len(data))

		insts := disasm.DecodeCancelable(data, baseVA, mode, ctx.Done())
		annotate.Annotate(insts, img, iat)
		p.Logger.Debug("disassembled section", "section", sec.Name, "instructions", len(insts))

		hasEntry := entryVA >= baseVA && entryVA < sectionEnd
		fns := funcs.Detect(data, baseVA, mode, funcs.ExportRef{Name: "entry_point", VA: entryVA}, hasEntry, exportRefs, sectionEnd)
		p.Logger.Debug("detected functions", "section", sec.Name, "count", len(fns))

		xrefs := xref.Build(insts)
		flat := xref.DetectorChain{xref.IATDetector{IAT: iat}}.Run(xref.Flatten(xrefs), img)
		xrefs = xref.Regroup(flat)
		mergeXrefs(report.Xrefs, xrefs)

		fnReports, err := p.analyzeFunctions(ctx, fns, insts, xrefs, mode)
		report.Functions = append(report.Functions, fnReports...)
		if err != nil {
			return report, err
		}
	}

	return report, nil
}

func (p *Pipeline) analyzeFunctions(ctx context.Context, fns []funcs.Function, sectionInsts []disasm.Instruction, xrefs map[uint64][]xref.Xref, mode disasm.Mode) ([]FunctionReport, error) {
	out := make([]FunctionReport, 0, len(fns))
	for _, fn := range fns {
		if err := checkDone(ctx); err != nil {
			return out, err
		}

		fnInsts := sliceFunction(sectionInsts, fn.Address, fn.Address+fn.Size)
		blocks := cfg.Build(fnInsts, xrefs)
		loops := cfg.DetectLoops(blocks)
		signature := sig.Infer(fnInsts, mode)

		var fr *frame.Frame
		if f, ok := frame.Infer(fnInsts, mode); ok {
			fr = &f
		}

		out = append(out, FunctionReport{
			Function:  fn,
			Blocks:    blocks,
			Loops:     loops,
			Signature: signature,
			Frame:     fr,
		})
	}
	return out, nil
}

func checkDone(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return nil
	}
}

// sliceFunction returns the contiguous run of insts whose VA falls in
// [start, end); insts is assumed sorted ascending by VA, which Decode
// guarantees.
func sliceFunction(insts []disasm.Instruction, start, end uint64) []disasm.Instruction {
	lo := sort.Search(len(insts), func(i int) bool { return insts[i].VA >= start })
	hi := sort.Search(len(insts), func(i int) bool { return insts[i].VA >= end })
	if lo >= hi {
		return nil
	}
	return insts[lo:hi]
}

func buildImportDisplays(img *pe.Image) []ImportDisplay {
	out := make([]ImportDisplay, 0, len(img.Imports))
	for _, lib := range img.Imports {
		d := ImportDisplay{Library: lib.Library, Functions: lib.Functions, IatVAs: lib.IatVAs}
		demangled := make([]string, len(lib.Functions))
		any := false
		for i, fn := range lib.Functions {
			if dm := funcs.Demangle(fn); dm != fn {
				demangled[i] = dm
				any = true
			}
		}
		if any {
			d.Demangled = demangled
		}
		out = append(out, d)
	}
	return out
}

func mergeXrefs(dst, src map[uint64][]xref.Xref) {
	for to, xs := range src {
		dst[to] = append(dst[to], xs...)
	}
}
