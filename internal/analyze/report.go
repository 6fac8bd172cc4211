package analyze

import (
	"peanalyze/internal/cfg"
	"peanalyze/internal/frame"
	"peanalyze/internal/funcs"
	"peanalyze/internal/pe"
	"peanalyze/internal/sig"
	"peanalyze/internal/xref"
)

// ImportDisplay is one DLL's import entry, widened with a best-effort
// demangled display name alongside each raw function name (§4.3a).
type ImportDisplay struct {
	Library   string   `json:"library"`
	Functions []string `json:"functions"`
	Demangled []string `json:"demangled,omitempty"` // parallel to Functions; "" where not mangled
	IatVAs    []uint64 `json:"iat_vas"`
}

// FunctionReport aggregates every per-function analysis pass's output,
// keyed implicitly by Function.Address.
type FunctionReport struct {
	Function  funcs.Function   `json:"function"`
	Blocks    []cfg.BasicBlock `json:"blocks"`
	Loops     []cfg.Loop       `json:"loops,omitempty"`
	Signature sig.Signature    `json:"signature"`
	Frame     *frame.Frame     `json:"frame,omitempty"`
}

// Report is the result of running the full pipeline over one PE image:
// every component's output from §4.1 through §4.7, aggregated.
type Report struct {
	Bitness   pe.Bitness         `json:"bitness"`
	ImageBase uint64             `json:"image_base"`
	Sections  []pe.SectionHeader `json:"sections"`
	Imports   []ImportDisplay    `json:"imports"`
	Exports   []pe.ExportEntry   `json:"exports"`
	Functions []FunctionReport   `json:"functions"`

	// Xrefs is the xref map (target VA -> referencing instructions)
	// merged across every executable section, after the detector chain
	// (§4.8) has run.
	Xrefs map[uint64][]xref.Xref `json:"xrefs"`
}
