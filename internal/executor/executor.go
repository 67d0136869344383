package executor

import (
	"context"
	"time"

	"github.com/kmualim/atac-seq-pipeline/internal/adapter"
	"github.com/kmualim/atac-seq-pipeline/pkg/model"
)

// Executor runs one marshaled tool invocation to completion. No retries
// happen at this layer; retry policy, if any, belongs to the external
// execution substrate.
type Executor interface {
	// Execute runs the invocation and resolves its declared output slots.
	// A non-zero exit, a missing required output, or an ambiguous output
	// match yields a TaskFailureError. Context cancellation terminates the
	// process and discards partial artifacts.
	Execute(ctx context.Context, node *model.TaskNode, inv *adapter.Invocation) (*Result, error)
}

// Result captures the outcome of one invocation.
type Result struct {
	ExitCode int
	Stdout   string
	Stderr   string
	// Outputs maps slot ID → absolute artifact path.
	Outputs  map[string]string
	Duration time.Duration
}
