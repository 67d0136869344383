package adapter

import (
	"fmt"
	"strconv"

	"github.com/kmualim/atac-seq-pipeline/internal/config"
	"github.com/kmualim/atac-seq-pipeline/pkg/model"
)

// Build marshals a node into a concrete tool invocation. inputs maps single
// input keys to resolved file paths; lists maps multi-valued keys to ordered
// path lists. Every tool writes its declared outputs into the task working
// directory under the slot names from Outputs.
func Build(node *model.TaskNode, cfg *config.RunConfig, inputs map[string]string, lists map[string][]string) (*Invocation, error) {
	spec, err := Spec(node.Kind)
	if err != nil {
		return nil, err
	}
	slots, err := Outputs(node, cfg)
	if err != nil {
		return nil, err
	}

	b := argvBuilder{node: node, inputs: inputs, lists: lists, argv: []string{spec.Command}}

	switch node.Kind {
	case model.KindTrim:
		b.flagListReq("--r1", InR1)
		if cfg.PairedEnd {
			b.flagList("--r2", InR2)
			b.bare("--paired-end")
		}
		b.flag("--threads", strconv.Itoa(node.Resources.Cores))

	case model.KindMerge:
		b.flagListReq("--r1", InR1)
		if cfg.PairedEnd {
			b.flagList("--r2", InR2)
		}

	case model.KindAlign:
		p := AlignParamsFrom(cfg)
		b.flag("--index", p.Index)
		b.flag("--multimapping", strconv.Itoa(p.Multimapping))
		b.flag("--threads", strconv.Itoa(node.Resources.Cores))
		b.flagIn("--r1", InR1)
		if cfg.PairedEnd {
			b.flagIn("--r2", InR2)
			b.bare("--paired-end")
		}

	case model.KindFilter:
		p := FilterParamsFrom(cfg)
		b.flagIn("--bam", InBam)
		b.flag("--mapq-thresh", strconv.Itoa(p.MapqThresh))
		b.flag("--threads", strconv.Itoa(node.Resources.Cores))
		if p.PairedEnd {
			b.bare("--paired-end")
		}

	case model.KindBam2TA:
		b.flagIn("--bam", InBam)
		if cfg.PairedEnd {
			b.bare("--paired-end")
		}

	case model.KindXcor:
		p := DefaultXcorParams()
		b.flagIn("--ta", InTA)
		b.flag("--subsample", strconv.Itoa(p.Subsample))
		if cfg.PairedEnd {
			b.bare("--paired-end")
		}

	case model.KindSpr:
		b.flagIn("--ta", InTA)
		if cfg.PairedEnd {
			b.bare("--paired-end")
		}

	case model.KindPool:
		b.flagListReq("--tas", InTAs)
		b.flag("--out", slotName(slots, SlotTA))

	case model.KindPeakCall:
		p := PeakCallParamsFrom(cfg)
		b.flagIn("--ta", InTA)
		b.flag("--gensz", p.GenomeSize)
		b.flag("--chrsz", cfg.Genome.ChromSizes)
		b.flag("--cap-num-peak", strconv.Itoa(p.CapNumPeak))
		b.flag("--pval-thresh", strconv.FormatFloat(p.PvalThresh, 'g', -1, 64))
		b.flag("--smooth-win", strconv.Itoa(p.SmoothWin))

	case model.KindBlacklistFilter:
		b.flagIn("--peaks", InPeaks)
		b.flagIn("--blacklist", InBlacklist)

	case model.KindOverlap:
		b.flagIn("--peaks1", InPeaks1)
		b.flagIn("--peaks2", InPeaks2)
		b.flagIn("--peaks-pooled", InPeaksPooled)
		b.flag("--chrsz", cfg.Genome.ChromSizes)

	case model.KindIDR:
		p := IDRParamsFrom(cfg)
		b.flagIn("--peaks1", InPeaks1)
		b.flagIn("--peaks2", InPeaks2)
		b.flagIn("--peaks-pooled", InPeaksPooled)
		b.flag("--idr-thresh", strconv.FormatFloat(p.Thresh, 'g', -1, 64))

	case model.KindReproducibility:
		if len(lists[InPairPeaks])+len(lists[InPRPeaks])+len(lists[InPPRPeaks]) == 0 {
			return nil, fmt.Errorf("node %s: no comparison outputs to aggregate", node.ID)
		}
		b.flagList("--pair-peaks", InPairPeaks)
		b.flagList("--pr-peaks", InPRPeaks)
		b.flagList("--ppr-peaks", InPPRPeaks)
		b.flag("--prefix", node.Variant)

	default:
		return nil, fmt.Errorf("unknown task kind %q", node.Kind)
	}

	if b.err != nil {
		return nil, fmt.Errorf("node %s: %w", node.ID, b.err)
	}

	return &Invocation{NodeID: node.ID, Argv: b.argv, Outputs: slots}, nil
}

// argvBuilder accumulates argv, recording the first missing required input.
type argvBuilder struct {
	node   *model.TaskNode
	inputs map[string]string
	lists  map[string][]string
	argv   []string
	err    error
}

func (b *argvBuilder) bare(flag string) {
	b.argv = append(b.argv, flag)
}

func (b *argvBuilder) flag(flag, value string) {
	b.argv = append(b.argv, flag, value)
}

// flagIn appends a flag bound to a required single input artifact.
func (b *argvBuilder) flagIn(flag, key string) {
	path, ok := b.inputs[key]
	if !ok || path == "" {
		if b.err == nil {
			b.err = fmt.Errorf("missing input artifact %q", key)
		}
		return
	}
	b.argv = append(b.argv, flag, path)
}

// flagList appends a flag repeated for each element of a multi-valued input.
// An absent list is allowed (structurally empty aggregation legs).
func (b *argvBuilder) flagList(flag, key string) {
	for _, path := range b.lists[key] {
		b.argv = append(b.argv, flag, path)
	}
}

// flagListReq is flagList for inputs that must have at least one element.
func (b *argvBuilder) flagListReq(flag, key string) {
	if len(b.lists[key]) == 0 {
		if b.err == nil {
			b.err = fmt.Errorf("missing input artifact list %q", key)
		}
		return
	}
	b.flagList(flag, key)
}

func slotName(slots []Slot, id string) string {
	for _, s := range slots {
		if s.ID == id {
			return s.Name
		}
	}
	return ""
}
