package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/kmualim/atac-seq-pipeline/pkg/model"
)

func validConfig() *RunConfig {
	return &RunConfig{
		Fastqs: []ReadGroup{
			{R1: []string{"rep1.R1.fastq.gz"}, R2: []string{"rep1.R2.fastq.gz"}},
			{R1: []string{"rep2.R1.fastq.gz"}, R2: []string{"rep2.R2.fastq.gz"}},
		},
		Genome: Genome{
			AlignerIndex: "hg38.tar",
			ChromSizes:   "hg38.chrom.sizes",
			GenomeSize:   "hs",
			Blacklist:    "hg38.blacklist.bed.gz",
		},
		PairedEnd:  true,
		TotalCores: 8,
	}
}

func TestValidateOK(t *testing.T) {
	if err := validConfig().Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestValidateErrors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*RunConfig)
	}{
		{"no cores", func(c *RunConfig) { c.TotalCores = 0 }},
		{"no inputs", func(c *RunConfig) { c.Fastqs = nil }},
		{"empty r1", func(c *RunConfig) { c.Fastqs[0].R1 = nil }},
		{"r1/r2 mismatch", func(c *RunConfig) { c.Fastqs[0].R2 = nil }},
		{"r2 on single-ended", func(c *RunConfig) {
			c.PairedEnd = false
			c.Fastqs[1].R2 = nil
		}},
		{"no blacklist", func(c *RunConfig) { c.Genome.Blacklist = "" }},
		{"no chrom sizes", func(c *RunConfig) { c.Genome.ChromSizes = "" }},
		{"no aligner index", func(c *RunConfig) { c.Genome.AlignerIndex = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			var ce *model.ConfigError
			if !errors.As(err, &ce) {
				t.Fatalf("expected ConfigError, got %T: %v", err, err)
			}
		})
	}
}

func TestLoadYAML(t *testing.T) {
	doc := `
title: test run
fastqs:
  - r1: [rep1.R1.fastq.gz]
    r2: [rep1.R2.fastq.gz]
genome:
  aligner_index: hg38.tar
  chrom_sizes: hg38.chrom.sizes
  genome_size: hs
  blacklist: hg38.blacklist.bed.gz
paired_end: true
total_cores: 4
enable_idr: true
peaks:
  pval_thresh: 0.05
`
	path := filepath.Join(t.TempDir(), "run.yaml")
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Title != "test run" {
		t.Errorf("Title = %q", cfg.Title)
	}
	if !cfg.EnableIDR {
		t.Error("EnableIDR should be true")
	}
	if cfg.Peaks.PvalThresh != 0.05 {
		t.Errorf("PvalThresh = %v", cfg.Peaks.PvalThresh)
	}
	if len(cfg.Fastqs) != 1 || len(cfg.Fastqs[0].R1) != 1 {
		t.Errorf("Fastqs = %+v", cfg.Fastqs)
	}
}
