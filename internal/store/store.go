package store

import (
	"context"

	"github.com/kmualim/atac-seq-pipeline/pkg/model"
)

// Store persists runs and their per-node status tables.
type Store interface {
	// RecordRun inserts the run, or updates its state if it exists.
	RecordRun(ctx context.Context, run *model.Run) error
	// RecordNode upserts one node's status within a run.
	RecordNode(ctx context.Context, runID string, status *model.NodeStatus) error

	GetRun(ctx context.Context, id string) (*model.Run, error)
	ListRuns(ctx context.Context, limit int) ([]*model.Run, error)
	ListNodes(ctx context.Context, runID string) ([]*model.NodeStatus, error)

	Close() error
	Migrate(ctx context.Context) error
}
