package model

import "time"

// EntryType identifies which intermediate data type a run starts from.
type EntryType string

const (
	EntryReads        EntryType = "reads"
	EntryAligned      EntryType = "aligned"
	EntryDeduplicated EntryType = "deduplicated"
	EntryFragments    EntryType = "fragments"
)

// EntryPriority is the fixed tie-break order used when two input
// collections have the same (maximal) length: first match wins.
var EntryPriority = []EntryType{EntryReads, EntryAligned, EntryDeduplicated, EntryFragments}

// NodeStatus records the outcome of one node within a run.
type NodeStatus struct {
	NodeID      string            `json:"node_id"`
	Kind        NodeKind          `json:"kind"`
	State       NodeState         `json:"state"`
	ExitCode    *int              `json:"exit_code,omitempty"`
	Error       string            `json:"error,omitempty"`
	Stderr      string            `json:"-"`
	Outputs     map[string]string `json:"outputs,omitempty"` // slot → absolute path
	StartedAt   *time.Time        `json:"started_at,omitempty"`
	CompletedAt *time.Time        `json:"completed_at,omitempty"`
}

// Duration returns the wall-clock time the node spent running, or zero
// if it never started or never finished.
func (s *NodeStatus) Duration() time.Duration {
	if s.StartedAt == nil || s.CompletedAt == nil {
		return 0
	}
	return s.CompletedAt.Sub(*s.StartedAt)
}

// Run is one pipeline execution: its resolved shape parameters plus the
// terminal status of every node.
type Run struct {
	ID             string     `json:"id"`
	Title          string     `json:"title,omitempty"`
	State          RunState   `json:"state"`
	EntryType      EntryType  `json:"entry_type"`
	ReplicateCount int        `json:"replicate_count"`
	CreatedAt      time.Time  `json:"created_at"`
	CompletedAt    *time.Time `json:"completed_at,omitempty"`
}

// RunResult is the outcome surface of a completed (or aborted) run.
type RunResult struct {
	Run     Run                    `json:"run"`
	Nodes   map[string]*NodeStatus `json:"nodes"`
	Failed  []string               `json:"failed,omitempty"`
	Skipped []string               `json:"skipped,omitempty"`
	// Summaries holds the terminal reproducibility QC artifacts, keyed by
	// method ("overlap", "idr").
	Summaries map[string]*ReproducibilitySummary `json:"summaries,omitempty"`
}

// Succeeded returns true only if every node reached SUCCEEDED.
func (r *RunResult) Succeeded() bool {
	return len(r.Failed) == 0 && len(r.Skipped) == 0 && r.Run.State == RunStateSucceeded
}

// ReproducibilitySummary points at the aggregate QC produced by one
// reproducibility aggregator node.
type ReproducibilitySummary struct {
	Method       string   `json:"method"` // "overlap" or "idr"
	QCPath       string   `json:"qc_path"`
	OptimalPeaks string   `json:"optimal_peaks,omitempty"`
	Comparisons  []string `json:"comparisons"` // node IDs, in aggregation order
}
