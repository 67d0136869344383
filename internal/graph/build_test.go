package graph

import (
	"reflect"
	"strings"
	"testing"

	"github.com/kmualim/atac-seq-pipeline/pkg/model"
)

func buildFor(t *testing.T, reads, fragments int, trueRepOnly, enableIDR bool) *Graph {
	t.Helper()
	cfg := collections(reads, 0, 0, fragments)
	cfg.TotalCores = 8
	if n := reads + fragments; n > 0 {
		cfg.TotalCores = 4 * n
	}
	cfg.TrueRepOnly = trueRepOnly
	cfg.EnableIDR = enableIDR
	g, err := Build(cfg)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return g
}

func countKind(g *Graph, kind model.NodeKind) int {
	n := 0
	for _, node := range g.Nodes {
		if node.Kind == kind {
			n++
		}
	}
	return n
}

func TestBuildSingleReplicateOmitsPooledSubtrees(t *testing.T) {
	for _, trueRepOnly := range []bool{false, true} {
		for _, idr := range []bool{false, true} {
			g := buildFor(t, 1, 0, trueRepOnly, idr)
			if got := countKind(g, model.KindPool); got != 0 {
				t.Errorf("trueRepOnly=%v idr=%v: %d pool nodes, want 0", trueRepOnly, idr, got)
			}
			for id := range g.Nodes {
				if strings.Contains(id, "ppr") {
					t.Errorf("trueRepOnly=%v idr=%v: unexpected pooled-pseudo node %s", trueRepOnly, idr, id)
				}
				if strings.Contains(id, "-rep") {
					t.Errorf("trueRepOnly=%v idr=%v: unexpected pairwise node %s", trueRepOnly, idr, id)
				}
			}
		}
	}
}

func TestBuildTrueRepOnly(t *testing.T) {
	g := buildFor(t, 2, 0, true, false)
	if got := countKind(g, model.KindSpr); got != 0 {
		t.Errorf("%d spr nodes, want 0", got)
	}
	if got := countKind(g, model.KindReproducibility); got != 0 {
		t.Errorf("%d reproducibility nodes, want 0", got)
	}
	// Pairwise overlap comparison is not gated on pseudo-replicates.
	if g.Node("overlap/rep1-rep2") == nil {
		t.Error("missing pairwise overlap node")
	}
}

func TestBuildIDRSingleReplicate(t *testing.T) {
	g := buildFor(t, 1, 0, false, true)
	if got := countKind(g, model.KindIDR); got != 1 {
		t.Fatalf("%d idr nodes, want exactly 1", got)
	}
	if g.Node("idr/pr/rep1") == nil {
		t.Error("missing idr/pr/rep1")
	}
	if g.Node("reproducibility/idr") == nil {
		t.Error("missing reproducibility/idr aggregator")
	}
	if g.Node("reproducibility/overlap") == nil {
		t.Error("missing reproducibility/overlap aggregator")
	}
}

func TestBuildPairwiseCount(t *testing.T) {
	g := buildFor(t, 0, 4, false, true)
	pairwise := 0
	for id, node := range g.Nodes {
		if node.Kind == model.KindOverlap && strings.Contains(id, "-rep") {
			pairwise++
		}
	}
	if pairwise != 6 {
		t.Errorf("pairwise overlap nodes = %d, want C(4,2)=6", pairwise)
	}
	if len(g.Pairs) != 6 {
		t.Errorf("len(Pairs) = %d, want 6", len(g.Pairs))
	}
}

func TestBuildEntryChains(t *testing.T) {
	tests := []struct {
		entry   model.EntryType
		present []model.NodeKind
		absent  []model.NodeKind
	}{
		{model.EntryReads,
			[]model.NodeKind{model.KindTrim, model.KindMerge, model.KindAlign, model.KindFilter, model.KindBam2TA},
			nil},
		{model.EntryAligned,
			[]model.NodeKind{model.KindFilter, model.KindBam2TA},
			[]model.NodeKind{model.KindTrim, model.KindMerge, model.KindAlign}},
		{model.EntryDeduplicated,
			[]model.NodeKind{model.KindBam2TA},
			[]model.NodeKind{model.KindTrim, model.KindMerge, model.KindAlign, model.KindFilter}},
		{model.EntryFragments,
			nil,
			[]model.NodeKind{model.KindTrim, model.KindMerge, model.KindAlign, model.KindFilter, model.KindBam2TA}},
	}
	for _, tt := range tests {
		t.Run(string(tt.entry), func(t *testing.T) {
			cfg := collections(0, 0, 0, 0)
			switch tt.entry {
			case model.EntryReads:
				cfg = collections(2, 0, 0, 0)
			case model.EntryAligned:
				cfg = collections(0, 2, 0, 0)
			case model.EntryDeduplicated:
				cfg = collections(0, 0, 2, 0)
			case model.EntryFragments:
				cfg = collections(0, 0, 0, 2)
			}
			cfg.TotalCores = 8
			g, err := Build(cfg)
			if err != nil {
				t.Fatalf("Build: %v", err)
			}
			if g.EntryType != tt.entry {
				t.Fatalf("EntryType = %s, want %s", g.EntryType, tt.entry)
			}
			for _, k := range tt.present {
				if countKind(g, k) != 2 {
					t.Errorf("kind %s: count = %d, want 2", k, countKind(g, k))
				}
			}
			for _, k := range tt.absent {
				if countKind(g, k) != 0 {
					t.Errorf("kind %s: count = %d, want 0", k, countKind(g, k))
				}
			}
			// Every replicate chain ends in cross-correlation QC.
			if countKind(g, model.KindXcor) != 2 {
				t.Errorf("xcor count = %d, want 2", countKind(g, model.KindXcor))
			}
		})
	}
}

func TestBuildDeterministic(t *testing.T) {
	a := buildFor(t, 3, 0, false, true)
	b := buildFor(t, 3, 0, false, true)
	if !reflect.DeepEqual(a.Order, b.Order) {
		t.Error("topological order differs between identical builds")
	}
	if len(a.Nodes) != len(b.Nodes) {
		t.Fatalf("node counts differ: %d vs %d", len(a.Nodes), len(b.Nodes))
	}
	for id, na := range a.Nodes {
		nb := b.Nodes[id]
		if nb == nil {
			t.Fatalf("node %s missing from second build", id)
		}
		if !reflect.DeepEqual(na.DependsOn, nb.DependsOn) {
			t.Errorf("node %s: deps differ: %v vs %v", id, na.DependsOn, nb.DependsOn)
		}
	}
}

func TestBuildEdgesReferenceExistingNodes(t *testing.T) {
	g := buildFor(t, 2, 0, false, true)
	for id, node := range g.Nodes {
		for _, dep := range node.DependsOn {
			if g.Node(dep) == nil {
				t.Errorf("node %s depends on absent node %s", id, dep)
			}
		}
	}
}

func TestBuildTopologicalOrder(t *testing.T) {
	g := buildFor(t, 2, 0, false, true)
	if len(g.Order) != len(g.Nodes) {
		t.Fatalf("order length %d != node count %d", len(g.Order), len(g.Nodes))
	}
	pos := make(map[string]int, len(g.Order))
	for i, id := range g.Order {
		pos[id] = i
	}
	for id, node := range g.Nodes {
		for _, dep := range node.DependsOn {
			if pos[dep] >= pos[id] {
				t.Errorf("dependency %s ordered after dependent %s", dep, id)
			}
		}
	}
}

func TestBuildPerReplicateCPUBudget(t *testing.T) {
	cfg := collections(2, 0, 0, 0)
	cfg.TotalCores = 8
	g, err := Build(cfg)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	for id, node := range g.Nodes {
		if prefixChainKinds[node.Kind] && node.Resources.Cores != 4 {
			t.Errorf("node %s: cores = %d, want 4", id, node.Resources.Cores)
		}
	}
}

func TestBuildAggregatorConsumesAllComparisons(t *testing.T) {
	g := buildFor(t, 3, 0, false, false)
	agg := g.Node("reproducibility/overlap")
	if agg == nil {
		t.Fatal("missing reproducibility/overlap")
	}
	// 3 pairwise + 3 per-replicate pseudo + 1 pooled-pseudo = 7 producers.
	if got := len(agg.DependsOn); got != 7 {
		t.Errorf("aggregator deps = %d (%v), want 7", got, agg.DependsOn)
	}
}

func TestBuildQueueRouting(t *testing.T) {
	g := buildFor(t, 1, 0, false, false)
	for id, node := range g.Nodes {
		want := model.QueueShort
		switch node.Kind {
		case model.KindTrim, model.KindMerge, model.KindAlign, model.KindFilter,
			model.KindBam2TA, model.KindPeakCall:
			want = model.QueueHard
		}
		if node.Queue != want {
			t.Errorf("node %s: queue = %s, want %s", id, node.Queue, want)
		}
	}
}
