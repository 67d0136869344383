// Package report renders a human-readable summary of a completed run.
package report

import (
	"fmt"
	"io"
	"os"
	"sort"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/kmualim/atac-seq-pipeline/pkg/model"
)

// Render writes a terminal summary of result to w: overall state, per-node
// outcomes, the failure/skip lists, and the reproducibility QC artifacts.
func Render(w io.Writer, result *model.RunResult) {
	run := result.Run

	fmt.Fprintf(w, "Run %s  [%s]\n", run.ID, run.State)
	if run.Title != "" {
		fmt.Fprintf(w, "  title:       %s\n", run.Title)
	}
	fmt.Fprintf(w, "  entry:       %s (%d replicate%s)\n", run.EntryType, run.ReplicateCount, plural(run.ReplicateCount))
	if run.CompletedAt != nil {
		fmt.Fprintf(w, "  elapsed:     %s\n", run.CompletedAt.Sub(run.CreatedAt).Round(time.Second))
	}
	fmt.Fprintln(w)

	counts := map[model.NodeState]int{}
	for _, ns := range result.Nodes {
		counts[ns.State]++
	}
	fmt.Fprintf(w, "Nodes: %d total, %d succeeded, %d failed, %d skipped\n",
		len(result.Nodes),
		counts[model.NodeStateSucceeded],
		counts[model.NodeStateFailed],
		counts[model.NodeStateSkipped])
	fmt.Fprintln(w)

	ids := make([]string, 0, len(result.Nodes))
	for id := range result.Nodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		ns := result.Nodes[id]
		line := fmt.Sprintf("  %-32s %-10s", id, ns.State)
		if d := ns.Duration(); d > 0 {
			line += fmt.Sprintf(" %10s", d.Round(time.Millisecond))
		}
		if size := outputBytes(ns); size > 0 {
			line += fmt.Sprintf("  %s", humanize.Bytes(size))
		}
		fmt.Fprintln(w, line)
	}

	if len(result.Failed) > 0 {
		fmt.Fprintln(w, "\nFailed:")
		for _, id := range result.Failed {
			ns := result.Nodes[id]
			fmt.Fprintf(w, "  %s: %s\n", id, ns.Error)
		}
	}
	if len(result.Skipped) > 0 {
		fmt.Fprintln(w, "\nSkipped:")
		for _, id := range result.Skipped {
			fmt.Fprintf(w, "  %s\n", id)
		}
	}

	if len(result.Summaries) > 0 {
		fmt.Fprintln(w, "\nReproducibility:")
		methods := make([]string, 0, len(result.Summaries))
		for m := range result.Summaries {
			methods = append(methods, m)
		}
		sort.Strings(methods)
		for _, m := range methods {
			s := result.Summaries[m]
			fmt.Fprintf(w, "  %s: %d comparison%s\n", s.Method, len(s.Comparisons), plural(len(s.Comparisons)))
			fmt.Fprintf(w, "    qc:            %s\n", s.QCPath)
			if s.OptimalPeaks != "" {
				fmt.Fprintf(w, "    optimal peaks: %s\n", s.OptimalPeaks)
			}
		}
	}

	if run.CompletedAt != nil {
		fmt.Fprintf(w, "\nFinished %s\n", humanize.Time(*run.CompletedAt))
	}
}

// outputBytes sums the on-disk sizes of a node's resolved outputs.
// Missing files (fakes in tests, discarded partials) count as zero.
func outputBytes(ns *model.NodeStatus) uint64 {
	var total uint64
	for _, path := range ns.Outputs {
		if fi, err := os.Stat(path); err == nil {
			total += uint64(fi.Size())
		}
	}
	return total
}

func plural(n int) string {
	if n == 1 {
		return ""
	}
	return "s"
}
