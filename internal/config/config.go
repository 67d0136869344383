package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/kmualim/atac-seq-pipeline/pkg/model"
)

// ReadGroup is one replicate's raw sequencing input: one or more fastq
// files per mate. R2 is empty for single-ended runs.
type ReadGroup struct {
	R1 []string `yaml:"r1"`
	R2 []string `yaml:"r2,omitempty"`
}

// Genome holds the reference-genome resources every run needs.
type Genome struct {
	AlignerIndex string `yaml:"aligner_index"`
	ChromSizes   string `yaml:"chrom_sizes"`
	GenomeSize   string `yaml:"genome_size"` // e.g. "hs", "mm"
	Blacklist    string `yaml:"blacklist"`
}

// Peaks holds tunable peak-calling and reproducibility thresholds.
// Zero values mean "use the task kind's default".
type Peaks struct {
	CapNumPeak int     `yaml:"cap_num_peak,omitempty"`
	PvalThresh float64 `yaml:"pval_thresh,omitempty"`
	SmoothWin  int     `yaml:"smooth_win,omitempty"`
	IDRThresh  float64 `yaml:"idr_thresh,omitempty"`
}

// RunConfig is the full run configuration consumed by the entry resolver
// and the graph builder. Exactly one of the four input collections is
// expected to be populated; mixed entry types are unsupported.
type RunConfig struct {
	Title string `yaml:"title,omitempty"`

	// Input collections, one element per replicate.
	Fastqs    []ReadGroup `yaml:"fastqs,omitempty"`
	Bams      []string    `yaml:"bams,omitempty"`
	NodupBams []string    `yaml:"nodup_bams,omitempty"`
	TAs       []string    `yaml:"tas,omitempty"`

	Genome    Genome `yaml:"genome"`
	PairedEnd bool   `yaml:"paired_end"`

	// TotalCores is the run-wide concurrency budget; it must divide
	// evenly by the replicate count.
	TotalCores  int    `yaml:"total_cores"`
	Parallelism int    `yaml:"parallelism,omitempty"` // max concurrent nodes; 0 = unbounded
	HardQueue   string `yaml:"hard_queue,omitempty"`  // named queue for heavy stages
	ShortQueue  string `yaml:"short_queue,omitempty"`
	// HardQueueSlots/ShortQueueSlots bound concurrency per logical queue;
	// 0 means the queue shares the global parallelism budget only.
	HardQueueSlots  int `yaml:"hard_queue_slots,omitempty"`
	ShortQueueSlots int `yaml:"short_queue_slots,omitempty"`

	TrueRepOnly bool `yaml:"true_rep_only"`
	EnableIDR   bool `yaml:"enable_idr"`

	Peaks Peaks `yaml:"peaks,omitempty"`

	WorkDir  string `yaml:"work_dir,omitempty"`
	StageDir string `yaml:"stage_dir,omitempty"`
	DBPath   string `yaml:"db_path,omitempty"`
}

// Load reads and validates a YAML run configuration.
func Load(path string) (*RunConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg RunConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the configuration for structural problems that do not
// depend on the resolved replicate count (those live in the entry resolver).
func (c *RunConfig) Validate() error {
	if c.TotalCores <= 0 {
		return model.NewConfigError("total_cores must be positive, got %d", c.TotalCores)
	}
	if len(c.Fastqs)+len(c.Bams)+len(c.NodupBams)+len(c.TAs) == 0 {
		return model.NewConfigError("no input data: all four input collections are empty")
	}
	for i, rg := range c.Fastqs {
		if len(rg.R1) == 0 {
			return model.NewConfigError("fastqs[%d]: r1 is empty", i)
		}
		if c.PairedEnd && len(rg.R2) != len(rg.R1) {
			return model.NewConfigError("fastqs[%d]: paired_end run needs matching r1/r2 counts (%d vs %d)",
				i, len(rg.R1), len(rg.R2))
		}
		if !c.PairedEnd && len(rg.R2) > 0 {
			return model.NewConfigError("fastqs[%d]: r2 given but paired_end is false", i)
		}
	}
	if c.Genome.Blacklist == "" {
		return model.NewConfigError("genome.blacklist is required")
	}
	if c.Genome.ChromSizes == "" {
		return model.NewConfigError("genome.chrom_sizes is required")
	}
	if len(c.Fastqs) > 0 && c.Genome.AlignerIndex == "" {
		return model.NewConfigError("genome.aligner_index is required when starting from reads")
	}
	return nil
}
