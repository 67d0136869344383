package model

import "fmt"

// ConfigError reports bad or inconsistent run configuration, detected
// before any execution starts.
type ConfigError struct {
	Msg string
}

func (e *ConfigError) Error() string {
	return "config error: " + e.Msg
}

// NewConfigError creates a ConfigError with a formatted message.
func NewConfigError(format string, args ...any) *ConfigError {
	return &ConfigError{Msg: fmt.Sprintf(format, args...)}
}

// GraphBuildError reports an internal invariant violation during graph
// construction, e.g. an edge referencing a node that was never emitted.
type GraphBuildError struct {
	Node string // the node being added, if known
	Msg  string
}

func (e *GraphBuildError) Error() string {
	if e.Node != "" {
		return fmt.Sprintf("graph build error at %s: %s", e.Node, e.Msg)
	}
	return "graph build error: " + e.Msg
}

// TaskFailureError reports an external tool failure: non-zero exit,
// a missing declared output, or an ambiguous output match.
type TaskFailureError struct {
	Node     string
	ExitCode int
	Reason   string
}

func (e *TaskFailureError) Error() string {
	return fmt.Sprintf("task %s failed (exit %d): %s", e.Node, e.ExitCode, e.Reason)
}

// InvalidTransitionError is returned when a node or run state transition
// is not allowed.
type InvalidTransitionError struct {
	Entity string
	ID     string
	From   string
	To     string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid %s state transition: %s → %s (entity %s)", e.Entity, e.From, e.To, e.ID)
}
