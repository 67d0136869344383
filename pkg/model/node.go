package model

import (
	"fmt"
	"strings"
)

// NodeKind identifies one task kind (one external tool contract).
type NodeKind string

const (
	KindTrim            NodeKind = "trim"
	KindMerge           NodeKind = "merge"
	KindAlign           NodeKind = "align"
	KindFilter          NodeKind = "filter"
	KindBam2TA          NodeKind = "bam2ta"
	KindXcor            NodeKind = "xcor"
	KindSpr             NodeKind = "spr"
	KindPool            NodeKind = "pool"
	KindPeakCall        NodeKind = "peakcall"
	KindBlacklistFilter NodeKind = "bfilt"
	KindOverlap         NodeKind = "overlap"
	KindIDR             NodeKind = "idr"
	KindReproducibility NodeKind = "reproducibility"
)

// Variant tags distinguish node instances of the same kind beyond the
// replicate index: pseudo-replicate halves, pooled sets, and the
// comparison method of an aggregator.
const (
	VariantPR1    = "pr1"
	VariantPR2    = "pr2"
	VariantPooled = "pooled"
	VariantPPR1   = "ppr1"
	VariantPPR2   = "ppr2"
	VariantPR     = "pr" // pr1-vs-pr2 comparison for one replicate
	VariantPPR    = "ppr"
)

// NodeID builds the stable identity of a node: kind, then the variant tag
// when present, then "repN" for replicate-scoped nodes (1-based).
// Examples: "align/rep1", "peakcall/pr1/rep2", "pool/ppr1", "overlap/rep1-rep2".
func NodeID(kind NodeKind, variant string, rep int) string {
	parts := []string{string(kind)}
	if variant != "" {
		parts = append(parts, variant)
	}
	if rep > 0 {
		parts = append(parts, fmt.Sprintf("rep%d", rep))
	}
	return strings.Join(parts, "/")
}

// PairID names an unordered replicate pair (0-indexed in, 1-based out),
// e.g. PairID(0, 2) == "rep1-rep3". Downstream artifact naming and the
// reproducibility summary depend on this format.
func PairID(i, j int) string {
	return fmt.Sprintf("rep%d-rep%d", i+1, j+1)
}

// ArtifactRef names one input artifact of a node: either the output slot
// of an upstream producer (Node+Slot) or an external file (Path).
type ArtifactRef struct {
	Node string `json:"node,omitempty"`
	Slot string `json:"slot,omitempty"`
	Path string `json:"path,omitempty"`
}

// IsExternal returns true when the ref points at a pre-existing file
// rather than an upstream node output.
func (r ArtifactRef) IsExternal() bool {
	return r.Node == ""
}

func (r ArtifactRef) String() string {
	if r.IsExternal() {
		return r.Path
	}
	return r.Node + ":" + r.Slot
}

// Resources holds the resource hints a node declares to the execution
// substrate.
type Resources struct {
	Cores     int   `json:"cores"`
	MemMB     int64 `json:"mem_mb"`
	TimeHours int   `json:"time_hours"`
}

// TaskNode is one immutable node of the task graph: a task kind bound to
// concrete input artifacts. Completion status lives in the scheduler's
// status table, never on the node itself.
type TaskNode struct {
	ID        string                 `json:"id"`
	Kind      NodeKind               `json:"kind"`
	Variant   string                 `json:"variant,omitempty"`
	Replicate int                    `json:"replicate,omitempty"` // 1-based; 0 when not replicate-scoped
	DependsOn []string               `json:"depends_on,omitempty"`
	Inputs    map[string]ArtifactRef `json:"inputs,omitempty"`
	// InputLists holds ordered multi-valued inputs (pooling, aggregation).
	InputLists map[string][]ArtifactRef `json:"input_lists,omitempty"`
	Queue      Queue                    `json:"queue"`
	Resources  Resources                `json:"resources"`
}
