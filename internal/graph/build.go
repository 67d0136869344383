package graph

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/kmualim/atac-seq-pipeline/internal/adapter"
	"github.com/kmualim/atac-seq-pipeline/internal/config"
	"github.com/kmualim/atac-seq-pipeline/pkg/model"
)

// prefixChainKinds are the per-replicate stages that receive the partitioned
// per-replicate CPU share.
var prefixChainKinds = map[model.NodeKind]bool{
	model.KindTrim:   true,
	model.KindMerge:  true,
	model.KindAlign:  true,
	model.KindFilter: true,
	model.KindBam2TA: true,
}

// Build resolves the run's shape (entry type, replicate count, flags) and
// emits the complete task graph. Conditional subtrees are structural: a
// disabled feature contributes no nodes at all. Any reference to an artifact
// that was never emitted is a construction-time GraphBuildError.
func Build(cfg *config.RunConfig) (*Graph, error) {
	entry, n, err := ResolveEntry(cfg)
	if err != nil {
		return nil, err
	}

	b := &builder{
		cfg:         cfg,
		coresPerRep: cfg.TotalCores / n,
		g: &Graph{
			EntryType:      entry,
			ReplicateCount: n,
			TrueRepOnly:    cfg.TrueRepOnly,
			EnableIDR:      cfg.EnableIDR,
			Nodes:          make(map[string]*model.TaskNode),
			Pairs:          Pairs(n),
		},
	}

	// Per-replicate prefix chains, each terminating in a fragment artifact.
	fragRefs := make([]model.ArtifactRef, n)
	for i := 0; i < n; i++ {
		fragRefs[i] = b.replicateChain(entry, i)
	}

	// Cross-correlation QC per replicate, independent of all flags.
	for i := 0; i < n; i++ {
		b.node(model.KindXcor, "", i+1, inputs{adapter.InTA: fragRefs[i]}, nil)
	}

	// Pseudo-replicate splits.
	if !cfg.TrueRepOnly {
		for i := 0; i < n; i++ {
			b.node(model.KindSpr, "", i+1, inputs{adapter.InTA: fragRefs[i]}, nil)
		}
	}

	// True-replicate peaks.
	for i := 0; i < n; i++ {
		b.peakCall("", i+1, fragRefs[i])
	}

	// Pooled set and its peaks; pooled pseudo-replicates when enabled.
	if n > 1 {
		pool := b.node(model.KindPool, model.VariantPooled, 0, nil, lists{adapter.InTAs: fragRefs})
		b.peakCall(model.VariantPooled, 0, b.ref(pool, adapter.SlotTA))

		if !cfg.TrueRepOnly {
			for _, v := range []struct{ pool, slot string }{
				{model.VariantPPR1, adapter.SlotPR1},
				{model.VariantPPR2, adapter.SlotPR2},
			} {
				prs := make([]model.ArtifactRef, n)
				for i := 0; i < n; i++ {
					prs[i] = model.ArtifactRef{Node: model.NodeID(model.KindSpr, "", i+1), Slot: v.slot}
				}
				p := b.node(model.KindPool, v.pool, 0, nil, lists{adapter.InTAs: prs})
				b.peakCall(v.pool, 0, b.ref(p, adapter.SlotTA))
			}
		}
	}

	// Per-replicate pseudo-replicate peaks.
	if !cfg.TrueRepOnly {
		for i := 0; i < n; i++ {
			spr := model.NodeID(model.KindSpr, "", i+1)
			b.peakCall(model.VariantPR1, i+1, model.ArtifactRef{Node: spr, Slot: adapter.SlotPR1})
			b.peakCall(model.VariantPR2, i+1, model.ArtifactRef{Node: spr, Slot: adapter.SlotPR2})
		}
	}

	// Comparison subtrees: naive overlap always, IDR mirroring it when enabled.
	b.comparisons(model.KindOverlap)
	if cfg.EnableIDR {
		b.comparisons(model.KindIDR)
	}

	if b.err != nil {
		return nil, b.err
	}
	if err := b.g.topoSort(); err != nil {
		return nil, err
	}
	return b.g, nil
}

type inputs = map[string]model.ArtifactRef
type lists = map[string][]model.ArtifactRef

type builder struct {
	cfg         *config.RunConfig
	coresPerRep int
	g           *Graph
	err         error
}

// replicateChain emits the entry-dependent prefix chain for one replicate
// (0-indexed) and returns the ref to its fragment-record artifact.
func (b *builder) replicateChain(entry model.EntryType, i int) model.ArtifactRef {
	rep := i + 1
	switch entry {
	case model.EntryReads:
		rg := b.cfg.Fastqs[i]
		trimIn := lists{adapter.InR1: externalRefs(rg.R1)}
		if b.cfg.PairedEnd {
			trimIn[adapter.InR2] = externalRefs(rg.R2)
		}
		trim := b.node(model.KindTrim, "", rep, nil, trimIn)

		mergeIn := lists{adapter.InR1: b.trimRefs(trim, "r1", len(rg.R1))}
		if b.cfg.PairedEnd {
			mergeIn[adapter.InR2] = b.trimRefs(trim, "r2", len(rg.R2))
		}
		merge := b.node(model.KindMerge, "", rep, nil, mergeIn)

		alignIn := inputs{adapter.InR1: b.ref(merge, adapter.InR1)}
		if b.cfg.PairedEnd {
			alignIn[adapter.InR2] = b.ref(merge, adapter.InR2)
		}
		align := b.node(model.KindAlign, "", rep, alignIn, nil)

		filter := b.node(model.KindFilter, "", rep,
			inputs{adapter.InBam: b.ref(align, adapter.SlotBam)}, nil)
		ta := b.node(model.KindBam2TA, "", rep,
			inputs{adapter.InBam: b.ref(filter, adapter.SlotNodupBam)}, nil)
		return b.ref(ta, adapter.SlotTA)

	case model.EntryAligned:
		filter := b.node(model.KindFilter, "", rep,
			inputs{adapter.InBam: {Path: b.cfg.Bams[i]}}, nil)
		ta := b.node(model.KindBam2TA, "", rep,
			inputs{adapter.InBam: b.ref(filter, adapter.SlotNodupBam)}, nil)
		return b.ref(ta, adapter.SlotTA)

	case model.EntryDeduplicated:
		ta := b.node(model.KindBam2TA, "", rep,
			inputs{adapter.InBam: {Path: b.cfg.NodupBams[i]}}, nil)
		return b.ref(ta, adapter.SlotTA)

	case model.EntryFragments:
		return model.ArtifactRef{Path: b.cfg.TAs[i]}
	}

	b.fail("", "unknown entry type %q", entry)
	return model.ArtifactRef{}
}

// peakCall emits a peak-calling node plus its blacklist-filter child and
// returns the peak-calling node ID.
func (b *builder) peakCall(variant string, rep int, ta model.ArtifactRef) string {
	pc := b.node(model.KindPeakCall, variant, rep, inputs{adapter.InTA: ta}, nil)
	b.node(model.KindBlacklistFilter, variant, rep, inputs{
		adapter.InPeaks:     b.ref(pc, adapter.SlotPeaks),
		adapter.InBlacklist: {Path: b.cfg.Genome.Blacklist},
	}, nil)
	return pc
}

// comparisons emits the reproducibility-comparison subtree for one method
// (overlap or IDR): pairwise nodes when replicate_count > 1, per-replicate
// and pooled pseudo-replicate nodes unless true_rep_only, and the terminal
// aggregator unless true_rep_only.
func (b *builder) comparisons(kind model.NodeKind) {
	n := b.g.ReplicateCount
	peaks := func(variant string, rep int) model.ArtifactRef {
		return model.ArtifactRef{Node: model.NodeID(model.KindPeakCall, variant, rep), Slot: adapter.SlotPeaks}
	}

	var pairOut, prOut, pprOut []model.ArtifactRef

	if n > 1 {
		for _, p := range b.g.Pairs {
			id := b.compare(kind, model.PairID(p[0], p[1]),
				peaks("", p[0]+1), peaks("", p[1]+1), peaks(model.VariantPooled, 0))
			pairOut = append(pairOut, b.ref(id, adapter.SlotPeaks))
		}
	}

	if !b.cfg.TrueRepOnly {
		for i := 0; i < n; i++ {
			// pr1 vs pr2, anchored on the replicate's own true peaks.
			id := b.compareRep(kind, model.VariantPR, i+1,
				peaks(model.VariantPR1, i+1), peaks(model.VariantPR2, i+1), peaks("", i+1))
			prOut = append(prOut, b.ref(id, adapter.SlotPeaks))
		}
		if n > 1 {
			id := b.compare(kind, model.VariantPPR,
				peaks(model.VariantPPR1, 0), peaks(model.VariantPPR2, 0), peaks(model.VariantPooled, 0))
			pprOut = append(pprOut, b.ref(id, adapter.SlotPeaks))
		}

		method := "overlap"
		if kind == model.KindIDR {
			method = "idr"
		}
		b.node(model.KindReproducibility, method, 0, nil, lists{
			adapter.InPairPeaks: pairOut,
			adapter.InPRPeaks:   prOut,
			adapter.InPPRPeaks:  pprOut,
		})
	}
}

// compare emits one comparison node (variant-tagged) plus its blacklist child.
func (b *builder) compare(kind model.NodeKind, variant string, p1, p2, pooled model.ArtifactRef) string {
	return b.compareRep(kind, variant, 0, p1, p2, pooled)
}

func (b *builder) compareRep(kind model.NodeKind, variant string, rep int, p1, p2, pooled model.ArtifactRef) string {
	id := b.node(kind, variant, rep, inputs{
		adapter.InPeaks1:      p1,
		adapter.InPeaks2:      p2,
		adapter.InPeaksPooled: pooled,
	}, nil)
	// Blacklist child is tagged with the parent's full suffix, e.g.
	// "bfilt/overlap/rep1-rep2".
	suffix := string(kind)
	if variant != "" {
		suffix += "/" + variant
	}
	b.node(model.KindBlacklistFilter, suffix, rep, inputs{
		adapter.InPeaks:     b.ref(id, adapter.SlotPeaks),
		adapter.InBlacklist: {Path: b.cfg.Genome.Blacklist},
	}, nil)
	return id
}

// node emits one node with its queue, resources, and dependencies derived
// from its input refs. Referencing an absent node or an undeclared slot is
// a GraphBuildError; so is emitting the same identity twice.
func (b *builder) node(kind model.NodeKind, variant string, rep int, in inputs, ls lists) string {
	id := model.NodeID(kind, variant, rep)
	if b.err != nil {
		return id
	}
	if _, dup := b.g.Nodes[id]; dup {
		b.fail(id, "duplicate node identity")
		return id
	}

	spec, err := adapter.Spec(kind)
	if err != nil {
		b.fail(id, "%v", err)
		return id
	}

	n := &model.TaskNode{
		ID:         id,
		Kind:       kind,
		Variant:    variant,
		Replicate:  rep,
		Inputs:     in,
		InputLists: ls,
		Queue:      spec.Queue,
		Resources:  model.Resources{Cores: spec.Cores, MemMB: spec.MemMB, TimeHours: spec.TimeHours},
	}
	if prefixChainKinds[kind] {
		n.Resources.Cores = b.coresPerRep
	}

	deps := map[string]bool{}
	check := func(ref model.ArtifactRef) {
		if ref.IsExternal() {
			return
		}
		up, ok := b.g.Nodes[ref.Node]
		if !ok {
			b.fail(id, "depends on absent node %q", ref.Node)
			return
		}
		if !adapter.HasSlot(up, b.cfg, ref.Slot) {
			b.fail(id, "upstream %q declares no output slot %q", ref.Node, ref.Slot)
			return
		}
		deps[ref.Node] = true
	}
	for _, ref := range in {
		check(ref)
	}
	for _, refs := range ls {
		for _, ref := range refs {
			check(ref)
		}
	}
	if b.err != nil {
		return id
	}

	n.DependsOn = make([]string, 0, len(deps))
	for dep := range deps {
		n.DependsOn = append(n.DependsOn, dep)
	}
	sort.Strings(n.DependsOn)

	b.g.Nodes[id] = n
	return id
}

// ref builds an upstream artifact reference without re-checking it; the
// consumer's node() call validates it.
func (b *builder) ref(nodeID, slot string) model.ArtifactRef {
	return model.ArtifactRef{Node: nodeID, Slot: slot}
}

// trimRefs references the per-file trimmed-fastq slots of a trim node.
func (b *builder) trimRefs(trimID, mate string, count int) []model.ArtifactRef {
	refs := make([]model.ArtifactRef, count)
	for k := 0; k < count; k++ {
		refs[k] = model.ArtifactRef{Node: trimID, Slot: mate + "_" + strconv.Itoa(k)}
	}
	return refs
}

func (b *builder) fail(node, format string, args ...any) {
	if b.err == nil {
		b.err = &model.GraphBuildError{Node: node, Msg: fmt.Sprintf(format, args...)}
	}
}

func externalRefs(paths []string) []model.ArtifactRef {
	refs := make([]model.ArtifactRef, len(paths))
	for i, p := range paths {
		refs[i] = model.ArtifactRef{Path: p}
	}
	return refs
}
