// Package adapter defines the uniform contract between graph nodes and the
// external tools that implement them: declared input artifacts, one params
// value object per task kind with explicit defaults, named output slots, and
// resource hints. The scientific tools themselves are opaque executables
// expected on PATH.
package adapter

import (
	"fmt"

	"github.com/kmualim/atac-seq-pipeline/internal/config"
	"github.com/kmualim/atac-seq-pipeline/pkg/model"
)

// Input artifact keys shared between the graph builder and the command
// marshalers.
const (
	InR1          = "r1"
	InR2          = "r2"
	InBam         = "bam"
	InTA          = "ta"
	InTAs         = "tas"
	InPeaks       = "peaks"
	InPeaks1      = "peaks1"
	InPeaks2      = "peaks2"
	InPeaksPooled = "peaks_pooled"
	InBlacklist   = "blacklist"
	InPairPeaks   = "pair_peaks"
	InPRPeaks     = "pr_peaks"
	InPPRPeaks    = "ppr_peaks"
)

// Output slot IDs. Slot names (file names) are fixed per node so that no
// output discovery ever depends on "first file matching a wildcard".
const (
	SlotBam          = "bam"
	SlotBai          = "bai"
	SlotAlignQC      = "align_qc"
	SlotNodupBam     = "nodup_bam"
	SlotNodupBai     = "nodup_bai"
	SlotDupQC        = "dup_qc"
	SlotPBCQC        = "pbc_qc"
	SlotTA           = "ta"
	SlotPR1          = "pr1"
	SlotPR2          = "pr2"
	SlotXcorScore    = "score"
	SlotXcorPlot     = "plot"
	SlotPeaks        = "peaks"
	SlotSigFC        = "sig_fc"
	SlotSigPval      = "sig_pval"
	SlotIDRLog       = "log"
	SlotReproQC      = "qc"
	SlotOptimalPeaks = "optimal_peaks"
)

// Slot declares one named output artifact of a task invocation. Name is an
// exact file name relative to the task working directory; a glob pattern is
// permitted but more than one match is a contract violation.
type Slot struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Optional bool   `json:"optional,omitempty"`
}

// Invocation is a fully marshaled external-tool call for one node.
type Invocation struct {
	NodeID  string
	Argv    []string
	Outputs []Slot
}

// KindSpec declares the static contract of a task kind: its command, queue
// routing, and default resource hints. Cores for prefix-chain kinds are
// overridden by the graph builder with the per-replicate share.
type KindSpec struct {
	Command   string
	Queue     model.Queue
	Cores     int
	MemMB     int64
	TimeHours int
}

var kindSpecs = map[model.NodeKind]KindSpec{
	model.KindTrim:            {Command: "atac-trim-adapter", Queue: model.QueueHard, Cores: 2, MemMB: 12000, TimeHours: 24},
	model.KindMerge:           {Command: "atac-merge-fastqs", Queue: model.QueueHard, Cores: 1, MemMB: 8000, TimeHours: 6},
	model.KindAlign:           {Command: "atac-align-bowtie2", Queue: model.QueueHard, Cores: 4, MemMB: 20000, TimeHours: 48},
	model.KindFilter:          {Command: "atac-filter-bam", Queue: model.QueueHard, Cores: 2, MemMB: 12000, TimeHours: 24},
	model.KindBam2TA:          {Command: "atac-bam2ta", Queue: model.QueueHard, Cores: 2, MemMB: 10000, TimeHours: 6},
	model.KindXcor:            {Command: "atac-xcor", Queue: model.QueueShort, Cores: 2, MemMB: 8000, TimeHours: 6},
	model.KindSpr:             {Command: "atac-spr", Queue: model.QueueShort, Cores: 1, MemMB: 8000, TimeHours: 4},
	model.KindPool:            {Command: "atac-pool-ta", Queue: model.QueueShort, Cores: 1, MemMB: 4000, TimeHours: 1},
	model.KindPeakCall:        {Command: "atac-macs2", Queue: model.QueueHard, Cores: 2, MemMB: 16000, TimeHours: 24},
	model.KindBlacklistFilter: {Command: "atac-blacklist-filter", Queue: model.QueueShort, Cores: 1, MemMB: 4000, TimeHours: 1},
	model.KindOverlap:         {Command: "atac-overlap", Queue: model.QueueShort, Cores: 1, MemMB: 4000, TimeHours: 1},
	model.KindIDR:             {Command: "atac-idr", Queue: model.QueueShort, Cores: 1, MemMB: 8000, TimeHours: 4},
	model.KindReproducibility: {Command: "atac-reproducibility-qc", Queue: model.QueueShort, Cores: 1, MemMB: 4000, TimeHours: 1},
}

// Spec returns the static contract for a task kind.
func Spec(kind model.NodeKind) (KindSpec, error) {
	s, ok := kindSpecs[kind]
	if !ok {
		return KindSpec{}, fmt.Errorf("unknown task kind %q", kind)
	}
	return s, nil
}

// Outputs returns the declared output slots for a node. Slot sets depend on
// the node (paired-endedness changes fastq slots, trim slots depend on the
// read-group width), but every name is fixed at build time.
func Outputs(node *model.TaskNode, cfg *config.RunConfig) ([]Slot, error) {
	switch node.Kind {
	case model.KindTrim:
		n := len(node.InputLists[InR1])
		slots := make([]Slot, 0, 2*n)
		for k := 0; k < n; k++ {
			slots = append(slots, Slot{ID: fmt.Sprintf("r1_%d", k), Name: fmt.Sprintf("R1_%d.trim.fastq.gz", k)})
		}
		if cfg.PairedEnd {
			for k := 0; k < n; k++ {
				slots = append(slots, Slot{ID: fmt.Sprintf("r2_%d", k), Name: fmt.Sprintf("R2_%d.trim.fastq.gz", k)})
			}
		}
		return slots, nil
	case model.KindMerge:
		slots := []Slot{{ID: InR1, Name: "merged.R1.fastq.gz"}}
		if cfg.PairedEnd {
			slots = append(slots, Slot{ID: InR2, Name: "merged.R2.fastq.gz"})
		}
		return slots, nil
	case model.KindAlign:
		return []Slot{
			{ID: SlotBam, Name: "aligned.bam"},
			{ID: SlotBai, Name: "aligned.bam.bai"},
			{ID: SlotAlignQC, Name: "align.flagstat.qc"},
		}, nil
	case model.KindFilter:
		return []Slot{
			{ID: SlotNodupBam, Name: "nodup.bam"},
			{ID: SlotNodupBai, Name: "nodup.bam.bai"},
			{ID: SlotDupQC, Name: "dup.qc"},
			{ID: SlotPBCQC, Name: "pbc.qc"},
		}, nil
	case model.KindBam2TA:
		return []Slot{{ID: SlotTA, Name: "fragments.tagAlign.gz"}}, nil
	case model.KindXcor:
		return []Slot{
			{ID: SlotXcorScore, Name: "xcor.qc"},
			{ID: SlotXcorPlot, Name: "xcor.plot.pdf", Optional: true},
		}, nil
	case model.KindSpr:
		return []Slot{
			{ID: SlotPR1, Name: "pr1.tagAlign.gz"},
			{ID: SlotPR2, Name: "pr2.tagAlign.gz"},
		}, nil
	case model.KindPool:
		name := "pooled.tagAlign.gz"
		if node.Variant != model.VariantPooled {
			name = node.Variant + ".tagAlign.gz"
		}
		return []Slot{{ID: SlotTA, Name: name}}, nil
	case model.KindPeakCall:
		return []Slot{
			{ID: SlotPeaks, Name: "peaks.narrowPeak.gz"},
			{ID: SlotSigFC, Name: "sig.fc.bigwig", Optional: true},
			{ID: SlotSigPval, Name: "sig.pval.bigwig", Optional: true},
		}, nil
	case model.KindBlacklistFilter:
		return []Slot{{ID: SlotPeaks, Name: "peaks.bfilt.narrowPeak.gz"}}, nil
	case model.KindOverlap:
		return []Slot{{ID: SlotPeaks, Name: "overlap.peaks.narrowPeak.gz"}}, nil
	case model.KindIDR:
		return []Slot{
			{ID: SlotPeaks, Name: "idr.peaks.narrowPeak.gz"},
			{ID: SlotIDRLog, Name: "idr.log"},
			{ID: SlotXcorPlot, Name: "idr.plot.png", Optional: true},
		}, nil
	case model.KindReproducibility:
		return []Slot{
			{ID: SlotReproQC, Name: "reproducibility.qc"},
			{ID: SlotOptimalPeaks, Name: "optimal.peaks.narrowPeak.gz"},
		}, nil
	}
	return nil, fmt.Errorf("unknown task kind %q", node.Kind)
}

// HasSlot reports whether the node declares an output slot with the given ID.
func HasSlot(node *model.TaskNode, cfg *config.RunConfig, slotID string) bool {
	slots, err := Outputs(node, cfg)
	if err != nil {
		return false
	}
	for _, s := range slots {
		if s.ID == slotID {
			return true
		}
	}
	return false
}
