package graph

import (
	"github.com/kmualim/atac-seq-pipeline/internal/config"
	"github.com/kmualim/atac-seq-pipeline/pkg/model"
)

// ResolveEntry determines the pipeline entry type and replicate count from
// the four input collections.
//
// The replicate count is the maximum collection length; the entry type is
// the collection matching that maximum, ties broken by the fixed priority
// order {reads, aligned, deduplicated, fragments} (first match wins). The
// tie-break is a deliberate policy: mixed entry types across replicates are
// unsupported, and a run supplying two full collections starts from the
// earlier stage.
func ResolveEntry(cfg *config.RunConfig) (model.EntryType, int, error) {
	lengths := map[model.EntryType]int{
		model.EntryReads:        len(cfg.Fastqs),
		model.EntryAligned:      len(cfg.Bams),
		model.EntryDeduplicated: len(cfg.NodupBams),
		model.EntryFragments:    len(cfg.TAs),
	}

	n := 0
	for _, l := range lengths {
		if l > n {
			n = l
		}
	}
	if n == 0 {
		return "", 0, model.NewConfigError("no input data: all four input collections are empty")
	}

	var entry model.EntryType
	for _, et := range model.EntryPriority {
		if lengths[et] == n {
			entry = et
			break
		}
	}

	// Per-replicate resource partitioning needs a whole-number share.
	if cfg.TotalCores%n != 0 {
		return "", 0, model.NewConfigError(
			"total_cores (%d) is not evenly divisible by replicate count (%d)",
			cfg.TotalCores, n)
	}

	return entry, n, nil
}
