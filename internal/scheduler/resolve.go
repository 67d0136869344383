package scheduler

import (
	"fmt"

	"github.com/kmualim/atac-seq-pipeline/pkg/model"
)

// resolveInputs maps a node's artifact refs to concrete paths using the
// outputs of completed producers. Only the coordinator calls this, so the
// status table needs no locking.
func resolveInputs(node *model.TaskNode, statuses map[string]*model.NodeStatus) (map[string]string, map[string][]string, error) {
	resolve := func(ref model.ArtifactRef) (string, error) {
		if ref.IsExternal() {
			return ref.Path, nil
		}
		producer, ok := statuses[ref.Node]
		if !ok || producer.State != model.NodeStateSucceeded {
			return "", fmt.Errorf("producer %q has not succeeded", ref.Node)
		}
		path, ok := producer.Outputs[ref.Slot]
		if !ok {
			return "", fmt.Errorf("producer %q produced no output slot %q", ref.Node, ref.Slot)
		}
		return path, nil
	}

	inputs := make(map[string]string, len(node.Inputs))
	for key, ref := range node.Inputs {
		path, err := resolve(ref)
		if err != nil {
			return nil, nil, fmt.Errorf("input %q: %w", key, err)
		}
		inputs[key] = path
	}

	lists := make(map[string][]string, len(node.InputLists))
	for key, refs := range node.InputLists {
		paths := make([]string, 0, len(refs))
		for _, ref := range refs {
			path, err := resolve(ref)
			if err != nil {
				return nil, nil, fmt.Errorf("input %q: %w", key, err)
			}
			paths = append(paths, path)
		}
		lists[key] = paths
	}

	return inputs, lists, nil
}
