package model

// NodeState represents the lifecycle state of a TaskNode during a run.
type NodeState string

const (
	NodeStatePending   NodeState = "PENDING"
	NodeStateReady     NodeState = "READY"
	NodeStateRunning   NodeState = "RUNNING"
	NodeStateSucceeded NodeState = "SUCCEEDED"
	NodeStateFailed    NodeState = "FAILED"
	NodeStateSkipped   NodeState = "SKIPPED"
)

// String returns the string representation of the node state.
func (s NodeState) String() string {
	return string(s)
}

// IsTerminal returns true if the node is in a final state.
func (s NodeState) IsTerminal() bool {
	switch s {
	case NodeStateSucceeded, NodeStateFailed, NodeStateSkipped:
		return true
	}
	return false
}

// ValidNodeTransitions defines the allowed state transitions for TaskNodes.
// PENDING → SKIPPED covers dependency-blocked nodes that are never attempted;
// PENDING → FAILED covers nodes whose inputs cannot be resolved at dispatch.
var ValidNodeTransitions = map[NodeState][]NodeState{
	NodeStatePending: {NodeStateReady, NodeStateSkipped, NodeStateFailed},
	NodeStateReady:   {NodeStateRunning, NodeStateSkipped},
	NodeStateRunning: {NodeStateSucceeded, NodeStateFailed, NodeStateSkipped},
}

// CanTransitionTo returns true if moving from the current state to next is valid.
func (s NodeState) CanTransitionTo(next NodeState) bool {
	for _, allowed := range ValidNodeTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// RunState represents the lifecycle state of a whole pipeline run.
type RunState string

const (
	RunStatePending   RunState = "PENDING"
	RunStateRunning   RunState = "RUNNING"
	RunStateSucceeded RunState = "SUCCEEDED"
	RunStateFailed    RunState = "FAILED"
	RunStateCancelled RunState = "CANCELLED"
)

// String returns the string representation of the run state.
func (s RunState) String() string {
	return string(s)
}

// IsTerminal returns true if the run is in a final state.
func (s RunState) IsTerminal() bool {
	switch s {
	case RunStateSucceeded, RunStateFailed, RunStateCancelled:
		return true
	}
	return false
}

// Queue routes a node to one of two logical execution queues. Long
// multi-threaded stages go to the hard queue; light bookkeeping work
// to the short queue.
type Queue string

const (
	QueueHard  Queue = "hard"
	QueueShort Queue = "short"
)
