package adapter

import "github.com/kmualim/atac-seq-pipeline/internal/config"

// One params value object per task kind, with explicit defaults. The run
// configuration overrides individual fields; zero config values keep the
// default.

// AlignParams configures the short-read aligner.
type AlignParams struct {
	Multimapping int
	Index        string
}

// DefaultAlignParams returns the documented aligner defaults.
func DefaultAlignParams() AlignParams {
	return AlignParams{Multimapping: 4}
}

// FilterParams configures alignment filtering and duplicate removal.
type FilterParams struct {
	MapqThresh int
	PairedEnd  bool
}

// DefaultFilterParams returns the documented filter defaults.
func DefaultFilterParams() FilterParams {
	return FilterParams{MapqThresh: 30}
}

// XcorParams configures cross-correlation QC.
type XcorParams struct {
	Subsample int // reads used for the cross-correlation estimate
}

// DefaultXcorParams returns the documented xcor defaults.
func DefaultXcorParams() XcorParams {
	return XcorParams{Subsample: 25_000_000}
}

// PeakCallParams configures peak calling.
type PeakCallParams struct {
	CapNumPeak int
	PvalThresh float64
	SmoothWin  int
	GenomeSize string
}

// DefaultPeakCallParams returns the documented peak-calling defaults.
func DefaultPeakCallParams() PeakCallParams {
	return PeakCallParams{CapNumPeak: 300_000, PvalThresh: 0.01, SmoothWin: 150}
}

// IDRParams configures statistical (IDR) reproducibility scoring.
type IDRParams struct {
	Thresh float64
}

// DefaultIDRParams returns the documented IDR defaults.
func DefaultIDRParams() IDRParams {
	return IDRParams{Thresh: 0.05}
}

// PeakCallParamsFrom applies config overrides on top of the defaults.
func PeakCallParamsFrom(cfg *config.RunConfig) PeakCallParams {
	p := DefaultPeakCallParams()
	if cfg.Peaks.CapNumPeak > 0 {
		p.CapNumPeak = cfg.Peaks.CapNumPeak
	}
	if cfg.Peaks.PvalThresh > 0 {
		p.PvalThresh = cfg.Peaks.PvalThresh
	}
	if cfg.Peaks.SmoothWin > 0 {
		p.SmoothWin = cfg.Peaks.SmoothWin
	}
	p.GenomeSize = cfg.Genome.GenomeSize
	return p
}

// IDRParamsFrom applies config overrides on top of the defaults.
func IDRParamsFrom(cfg *config.RunConfig) IDRParams {
	p := DefaultIDRParams()
	if cfg.Peaks.IDRThresh > 0 {
		p.Thresh = cfg.Peaks.IDRThresh
	}
	return p
}

// AlignParamsFrom applies config values on top of the defaults.
func AlignParamsFrom(cfg *config.RunConfig) AlignParams {
	p := DefaultAlignParams()
	p.Index = cfg.Genome.AlignerIndex
	return p
}

// FilterParamsFrom applies config values on top of the defaults.
func FilterParamsFrom(cfg *config.RunConfig) FilterParams {
	p := DefaultFilterParams()
	p.PairedEnd = cfg.PairedEnd
	return p
}
