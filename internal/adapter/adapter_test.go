package adapter

import (
	"strings"
	"testing"

	"github.com/kmualim/atac-seq-pipeline/internal/config"
	"github.com/kmualim/atac-seq-pipeline/pkg/model"
)

func baseConfig() *config.RunConfig {
	return &config.RunConfig{
		Genome: config.Genome{
			AlignerIndex: "/ref/bowtie2_index.tar",
			ChromSizes:   "/ref/chrom.sizes",
			GenomeSize:   "hs",
			Blacklist:    "/ref/blacklist.bed.gz",
		},
		TotalCores: 4,
	}
}

func TestSpecKnownKinds(t *testing.T) {
	for _, kind := range []model.NodeKind{
		model.KindTrim, model.KindMerge, model.KindAlign, model.KindFilter,
		model.KindBam2TA, model.KindXcor, model.KindSpr, model.KindPool,
		model.KindPeakCall, model.KindBlacklistFilter, model.KindOverlap,
		model.KindIDR, model.KindReproducibility,
	} {
		spec, err := Spec(kind)
		if err != nil {
			t.Errorf("Spec(%s): %v", kind, err)
			continue
		}
		if spec.Command == "" || spec.Cores <= 0 {
			t.Errorf("Spec(%s) = %+v", kind, spec)
		}
	}
	if _, err := Spec(model.NodeKind("nope")); err == nil {
		t.Error("expected error for unknown kind")
	}
}

func TestDefaults(t *testing.T) {
	if p := DefaultAlignParams(); p.Multimapping != 4 {
		t.Errorf("multimapping = %d, want 4", p.Multimapping)
	}
	if p := DefaultFilterParams(); p.MapqThresh != 30 {
		t.Errorf("mapq_thresh = %d, want 30", p.MapqThresh)
	}
	if p := DefaultXcorParams(); p.Subsample != 25_000_000 {
		t.Errorf("subsample = %d, want 25000000", p.Subsample)
	}
	p := DefaultPeakCallParams()
	if p.CapNumPeak != 300_000 || p.PvalThresh != 0.01 || p.SmoothWin != 150 {
		t.Errorf("peak defaults = %+v", p)
	}
	if p := DefaultIDRParams(); p.Thresh != 0.05 {
		t.Errorf("idr_thresh = %g, want 0.05", p.Thresh)
	}
}

func TestPeakCallParamsOverrides(t *testing.T) {
	cfg := baseConfig()
	cfg.Peaks = config.Peaks{CapNumPeak: 500_000, PvalThresh: 0.05, SmoothWin: 73}

	p := PeakCallParamsFrom(cfg)
	if p.CapNumPeak != 500_000 || p.PvalThresh != 0.05 || p.SmoothWin != 73 {
		t.Errorf("overridden params = %+v", p)
	}
	if p.GenomeSize != "hs" {
		t.Errorf("genome size = %q", p.GenomeSize)
	}

	// Zero config values keep defaults.
	cfg.Peaks = config.Peaks{}
	p = PeakCallParamsFrom(cfg)
	if p.CapNumPeak != 300_000 || p.PvalThresh != 0.01 || p.SmoothWin != 150 {
		t.Errorf("default params = %+v", p)
	}
}

func TestOutputsFixedNames(t *testing.T) {
	cfg := baseConfig()

	tests := []struct {
		node  *model.TaskNode
		names []string
	}{
		{&model.TaskNode{Kind: model.KindAlign}, []string{"aligned.bam", "aligned.bam.bai", "align.flagstat.qc"}},
		{&model.TaskNode{Kind: model.KindFilter}, []string{"nodup.bam", "nodup.bam.bai", "dup.qc", "pbc.qc"}},
		{&model.TaskNode{Kind: model.KindBam2TA}, []string{"fragments.tagAlign.gz"}},
		{&model.TaskNode{Kind: model.KindSpr}, []string{"pr1.tagAlign.gz", "pr2.tagAlign.gz"}},
		{&model.TaskNode{Kind: model.KindPool, Variant: model.VariantPooled}, []string{"pooled.tagAlign.gz"}},
		{&model.TaskNode{Kind: model.KindPool, Variant: model.VariantPPR1}, []string{"ppr1.tagAlign.gz"}},
		{&model.TaskNode{Kind: model.KindReproducibility}, []string{"reproducibility.qc", "optimal.peaks.narrowPeak.gz"}},
	}
	for _, tt := range tests {
		slots, err := Outputs(tt.node, cfg)
		if err != nil {
			t.Fatalf("Outputs(%s): %v", tt.node.Kind, err)
		}
		if len(slots) != len(tt.names) {
			t.Errorf("%s: %d slots, want %d", tt.node.Kind, len(slots), len(tt.names))
			continue
		}
		for i, want := range tt.names {
			if slots[i].Name != want {
				t.Errorf("%s slot %d = %q, want %q", tt.node.Kind, i, slots[i].Name, want)
			}
		}
	}
}

func TestTrimOutputsTrackReadGroupWidth(t *testing.T) {
	cfg := baseConfig()
	cfg.PairedEnd = true
	node := &model.TaskNode{
		Kind: model.KindTrim,
		InputLists: map[string][]model.ArtifactRef{
			InR1: {{Path: "/in/a_R1.fastq.gz"}, {Path: "/in/b_R1.fastq.gz"}},
			InR2: {{Path: "/in/a_R2.fastq.gz"}, {Path: "/in/b_R2.fastq.gz"}},
		},
	}
	slots, err := Outputs(node, cfg)
	if err != nil {
		t.Fatalf("Outputs: %v", err)
	}
	if len(slots) != 4 {
		t.Fatalf("len(slots) = %d, want 4", len(slots))
	}
	if slots[0].Name != "R1_0.trim.fastq.gz" || slots[3].Name != "R2_1.trim.fastq.gz" {
		t.Errorf("slots = %v", slots)
	}
}

func TestBuildAlign(t *testing.T) {
	cfg := baseConfig()
	cfg.PairedEnd = true
	node := &model.TaskNode{
		ID: "align/rep1", Kind: model.KindAlign,
		Resources: model.Resources{Cores: 2},
	}
	inputs := map[string]string{
		InR1: "/work/merge/rep1/merged.R1.fastq.gz",
		InR2: "/work/merge/rep1/merged.R2.fastq.gz",
	}

	inv, err := Build(node, cfg, inputs, nil)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	argv := strings.Join(inv.Argv, " ")
	for _, want := range []string{
		"atac-align-bowtie2",
		"--index /ref/bowtie2_index.tar",
		"--multimapping 4",
		"--threads 2",
		"--r1 /work/merge/rep1/merged.R1.fastq.gz",
		"--r2 /work/merge/rep1/merged.R2.fastq.gz",
		"--paired-end",
	} {
		if !strings.Contains(argv, want) {
			t.Errorf("argv missing %q: %s", want, argv)
		}
	}
}

func TestBuildPeakCall(t *testing.T) {
	cfg := baseConfig()
	node := &model.TaskNode{ID: "peakcall/rep1", Kind: model.KindPeakCall}
	inputs := map[string]string{InTA: "/work/bam2ta/rep1/fragments.tagAlign.gz"}

	inv, err := Build(node, cfg, inputs, nil)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	argv := strings.Join(inv.Argv, " ")
	for _, want := range []string{
		"atac-macs2",
		"--gensz hs",
		"--cap-num-peak 300000",
		"--pval-thresh 0.01",
		"--smooth-win 150",
	} {
		if !strings.Contains(argv, want) {
			t.Errorf("argv missing %q: %s", want, argv)
		}
	}
}

func TestBuildMissingRequiredInput(t *testing.T) {
	cfg := baseConfig()
	node := &model.TaskNode{ID: "filter/rep1", Kind: model.KindFilter, Resources: model.Resources{Cores: 1}}

	if _, err := Build(node, cfg, map[string]string{}, nil); err == nil {
		t.Fatal("expected error for missing bam input")
	}
}

func TestBuildReproducibilityRequiresComparisons(t *testing.T) {
	cfg := baseConfig()
	node := &model.TaskNode{
		ID: "reproducibility/overlap", Kind: model.KindReproducibility,
		Variant: "overlap",
	}

	if _, err := Build(node, cfg, nil, map[string][]string{}); err == nil {
		t.Fatal("expected error when all comparison lists are empty")
	}

	lists := map[string][]string{
		InPairPeaks: {"/work/bfilt/overlap/rep1-rep2/peaks.bfilt.narrowPeak.gz"},
	}
	inv, err := Build(node, cfg, nil, lists)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	argv := strings.Join(inv.Argv, " ")
	if !strings.Contains(argv, "--pair-peaks /work/bfilt/overlap/rep1-rep2/peaks.bfilt.narrowPeak.gz") {
		t.Errorf("argv = %s", argv)
	}
	if !strings.Contains(argv, "--prefix overlap") {
		t.Errorf("argv = %s", argv)
	}
}

func TestHasSlot(t *testing.T) {
	cfg := baseConfig()
	spr := &model.TaskNode{Kind: model.KindSpr}
	if !HasSlot(spr, cfg, SlotPR1) || !HasSlot(spr, cfg, SlotPR2) {
		t.Error("spr should declare pr1 and pr2")
	}
	if HasSlot(spr, cfg, SlotPeaks) {
		t.Error("spr should not declare peaks")
	}
}
