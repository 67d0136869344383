// Package scheduler executes an immutable task graph to completion or first
// unrecoverable failure. A single coordinating loop owns the node status
// table; workers report over a message channel, so no status update is ever
// lost to concurrent mutation.
package scheduler

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/kmualim/atac-seq-pipeline/internal/adapter"
	"github.com/kmualim/atac-seq-pipeline/internal/config"
	"github.com/kmualim/atac-seq-pipeline/internal/executor"
	"github.com/kmualim/atac-seq-pipeline/internal/graph"
	"github.com/kmualim/atac-seq-pipeline/pkg/model"
)

// Recorder persists run and node status transitions. A nil Recorder disables
// persistence.
type Recorder interface {
	RecordRun(ctx context.Context, run *model.Run) error
	RecordNode(ctx context.Context, runID string, status *model.NodeStatus) error
}

// Config bounds the runner's concurrency.
type Config struct {
	// Parallelism is the run-wide cap on concurrently executing nodes.
	// 0 means unbounded.
	Parallelism int
	// HardSlots / ShortSlots additionally bound each logical queue.
	// 0 means the queue only shares the run-wide budget.
	HardSlots  int
	ShortSlots int
}

// ConfigFrom derives scheduler bounds from the run configuration.
func ConfigFrom(cfg *config.RunConfig) Config {
	return Config{
		Parallelism: cfg.Parallelism,
		HardSlots:   cfg.HardQueueSlots,
		ShortSlots:  cfg.ShortQueueSlots,
	}
}

// Runner executes one graph.
type Runner struct {
	graph  *graph.Graph
	cfg    *config.RunConfig
	exec   executor.Executor
	rec    Recorder
	bounds Config
	logger *slog.Logger
}

// New creates a Runner. rec may be nil.
func New(g *graph.Graph, cfg *config.RunConfig, exec executor.Executor, rec Recorder, bounds Config, logger *slog.Logger) *Runner {
	return &Runner{
		graph:  g,
		cfg:    cfg,
		exec:   exec,
		rec:    rec,
		bounds: bounds,
		logger: logger.With("component", "scheduler"),
	}
}

// message is what workers send back to the coordinator: a started
// notification (started=true) followed by a terminal result.
type message struct {
	node    string
	started bool
	res     *executor.Result
	err     error
}

// Run executes the graph. Task failures do not abort independent branches;
// they fail the node, skip its transitive dependents, and surface in the
// result. Context cancellation stops new dispatch, terminates in-flight
// processes, and marks everything unfinished as skipped.
func (r *Runner) Run(ctx context.Context) (*model.RunResult, error) {
	// Status recording must survive run-level cancellation so the final
	// report still reaches the store.
	recCtx := context.WithoutCancel(ctx)

	run := &model.Run{
		ID:             "run_" + uuid.New().String(),
		Title:          r.cfg.Title,
		State:          model.RunStateRunning,
		EntryType:      r.graph.EntryType,
		ReplicateCount: r.graph.ReplicateCount,
		CreatedAt:      time.Now().UTC(),
	}
	r.recordRun(recCtx, run)
	r.logger.Info("run started",
		"run_id", run.ID,
		"entry_type", run.EntryType,
		"replicates", run.ReplicateCount,
		"nodes", len(r.graph.Nodes))

	statuses := make(map[string]*model.NodeStatus, len(r.graph.Nodes))
	waiting := make(map[string]int, len(r.graph.Nodes))
	for id, node := range r.graph.Nodes {
		statuses[id] = &model.NodeStatus{NodeID: id, Kind: node.Kind, State: model.NodeStatePending}
		waiting[id] = len(node.DependsOn)
		r.recordNode(recCtx, run.ID, statuses[id])
	}
	dependents := r.graph.Dependents()

	global := NewSemaphore(r.bounds.Parallelism)
	queues := map[model.Queue]*Semaphore{
		model.QueueHard:  NewSemaphore(r.bounds.HardSlots),
		model.QueueShort: NewSemaphore(r.bounds.ShortSlots),
	}

	results := make(chan message)
	remaining := len(r.graph.Nodes)
	inFlight := 0
	cancelled := false

	setTerminal := func(id string, state model.NodeState, mutate func(*model.NodeStatus)) {
		st := statuses[id]
		if st.State.IsTerminal() {
			return
		}
		now := time.Now().UTC()
		st.State = state
		st.CompletedAt = &now
		if mutate != nil {
			mutate(st)
		}
		remaining--
		r.recordNode(recCtx, run.ID, st)
	}

	// propagateSkip marks every not-yet-dispatched transitive dependent of
	// a failed or skipped node as SKIPPED. Dependents that are already
	// running cannot exist: a node only dispatches once all its producers
	// succeeded.
	var propagateSkip func(id string)
	propagateSkip = func(id string) {
		for _, dep := range dependents[id] {
			if statuses[dep].State != model.NodeStatePending {
				continue
			}
			setTerminal(dep, model.NodeStateSkipped, func(st *model.NodeStatus) {
				st.Error = "upstream " + id + " did not succeed"
			})
			r.logger.Info("node skipped", "node", dep, "upstream", id)
			propagateSkip(dep)
		}
	}

	dispatch := func(id string) {
		node := r.graph.Node(id)
		inputs, lists, err := resolveInputs(node, statuses)
		if err == nil {
			var inv *adapter.Invocation
			inv, err = adapter.Build(node, r.cfg, inputs, lists)
			if err == nil {
				statuses[id].State = model.NodeStateReady
				r.recordNode(recCtx, run.ID, statuses[id])
				inFlight++
				go r.work(ctx, node, inv, global, queues[node.Queue], results)
				return
			}
		}
		// Input resolution or command marshaling failed: the node fails
		// without ever launching.
		setTerminal(id, model.NodeStateFailed, func(st *model.NodeStatus) {
			st.Error = err.Error()
		})
		r.logger.Error("node failed before launch", "node", id, "error", err)
		propagateSkip(id)
	}

	for _, id := range r.graph.Order {
		if waiting[id] == 0 {
			dispatch(id)
		}
	}

	ctxDone := ctx.Done()
	for remaining > 0 {
		if cancelled && inFlight == 0 {
			for id, st := range statuses {
				if !st.State.IsTerminal() {
					setTerminal(id, model.NodeStateSkipped, func(s *model.NodeStatus) {
						s.Error = "run cancelled"
					})
				}
			}
			break
		}

		select {
		case <-ctxDone:
			ctxDone = nil
			cancelled = true
			r.logger.Info("cancellation requested, draining in-flight nodes", "in_flight", inFlight)

		case msg := <-results:
			if msg.started {
				st := statuses[msg.node]
				now := time.Now().UTC()
				st.State = model.NodeStateRunning
				st.StartedAt = &now
				r.recordNode(recCtx, run.ID, st)
				continue
			}

			inFlight--
			switch {
			case msg.err == nil:
				setTerminal(msg.node, model.NodeStateSucceeded, func(st *model.NodeStatus) {
					exit := msg.res.ExitCode
					st.ExitCode = &exit
					st.Outputs = msg.res.Outputs
				})
				r.logger.Info("node succeeded", "node", msg.node, "duration", msg.res.Duration)
				for _, dep := range dependents[msg.node] {
					waiting[dep]--
					if waiting[dep] == 0 && !cancelled && statuses[dep].State == model.NodeStatePending {
						dispatch(dep)
					}
				}

			case cancelled:
				setTerminal(msg.node, model.NodeStateSkipped, func(st *model.NodeStatus) {
					st.Error = "run cancelled"
				})
				propagateSkip(msg.node)

			default:
				setTerminal(msg.node, model.NodeStateFailed, func(st *model.NodeStatus) {
					st.Error = msg.err.Error()
					if msg.res != nil {
						exit := msg.res.ExitCode
						st.ExitCode = &exit
						st.Stderr = msg.res.Stderr
					}
				})
				r.logger.Error("node failed", "node", msg.node, "error", msg.err)
				propagateSkip(msg.node)
			}
		}
	}

	return r.finalize(recCtx, run, statuses, cancelled), nil
}

// work runs one node off the coordinator goroutine: it waits for its queue
// slot and the run-wide slot, announces the start, executes, and reports.
func (r *Runner) work(ctx context.Context, node *model.TaskNode, inv *adapter.Invocation, global, queue *Semaphore, results chan<- message) {
	if !queue.Acquire(ctx) {
		results <- message{node: node.ID, err: ctx.Err()}
		return
	}
	defer queue.Release()
	if !global.Acquire(ctx) {
		results <- message{node: node.ID, err: ctx.Err()}
		return
	}
	defer global.Release()

	results <- message{node: node.ID, started: true}
	res, err := r.exec.Execute(ctx, node, inv)
	results <- message{node: node.ID, res: res, err: err}
}

func (r *Runner) finalize(ctx context.Context, run *model.Run, statuses map[string]*model.NodeStatus, cancelled bool) *model.RunResult {
	result := &model.RunResult{Nodes: statuses, Summaries: map[string]*model.ReproducibilitySummary{}}

	for id, st := range statuses {
		switch st.State {
		case model.NodeStateFailed:
			result.Failed = append(result.Failed, id)
		case model.NodeStateSkipped:
			result.Skipped = append(result.Skipped, id)
		case model.NodeStateSucceeded:
			node := r.graph.Node(id)
			if node.Kind == model.KindReproducibility {
				result.Summaries[node.Variant] = &model.ReproducibilitySummary{
					Method:       node.Variant,
					QCPath:       st.Outputs[adapter.SlotReproQC],
					OptimalPeaks: st.Outputs[adapter.SlotOptimalPeaks],
					Comparisons:  node.DependsOn,
				}
			}
		}
	}
	sort.Strings(result.Failed)
	sort.Strings(result.Skipped)

	switch {
	case cancelled:
		run.State = model.RunStateCancelled
	case len(result.Failed) > 0 || len(result.Skipped) > 0:
		run.State = model.RunStateFailed
	default:
		run.State = model.RunStateSucceeded
	}
	now := time.Now().UTC()
	run.CompletedAt = &now
	result.Run = *run
	r.recordRun(ctx, run)
	r.logger.Info("run finished",
		"run_id", run.ID,
		"state", run.State,
		"failed", len(result.Failed),
		"skipped", len(result.Skipped))
	return result
}

func (r *Runner) recordRun(ctx context.Context, run *model.Run) {
	if r.rec == nil {
		return
	}
	if err := r.rec.RecordRun(ctx, run); err != nil {
		r.logger.Error("record run", "run_id", run.ID, "error", err)
	}
}

func (r *Runner) recordNode(ctx context.Context, runID string, st *model.NodeStatus) {
	if r.rec == nil {
		return
	}
	if err := r.rec.RecordNode(ctx, runID, st); err != nil {
		r.logger.Error("record node", "node", st.NodeID, "error", err)
	}
}
