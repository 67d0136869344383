package executor

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/kmualim/atac-seq-pipeline/internal/adapter"
	"github.com/kmualim/atac-seq-pipeline/pkg/model"
)

// Local runs invocations as local OS processes, one working directory per
// node under workDir.
type Local struct {
	workDir string
	logger  *slog.Logger
}

// NewLocal creates a Local executor rooted at workDir. If workDir is empty,
// os.TempDir() is used.
func NewLocal(workDir string, logger *slog.Logger) *Local {
	if workDir == "" {
		workDir = os.TempDir()
	}
	return &Local{
		workDir: workDir,
		logger:  logger.With("component", "local-executor"),
	}
}

// NodeDir returns the working directory for a node's invocation.
func (e *Local) NodeDir(nodeID string) string {
	return filepath.Join(e.workDir, filepath.FromSlash(nodeID))
}

// Execute runs the invocation in the node's working directory, captures
// stdout/stderr and the exit code, and resolves declared output slots.
func (e *Local) Execute(ctx context.Context, node *model.TaskNode, inv *adapter.Invocation) (*Result, error) {
	dir := e.NodeDir(node.ID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("node %s: create work dir: %w", node.ID, err)
	}

	cmd := exec.CommandContext(ctx, inv.Argv[0], inv.Argv[1:]...)
	cmd.Dir = dir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	e.logger.Debug("launching", "node", node.ID, "command", strings.Join(inv.Argv, " "))
	start := time.Now()
	runErr := cmd.Run()
	res := &Result{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		Duration: time.Since(start),
	}

	if ctx.Err() != nil {
		// Terminated by run-level cancellation: discard partial artifacts.
		if rmErr := os.RemoveAll(dir); rmErr != nil {
			e.logger.Warn("discard partial artifacts", "node", node.ID, "error", rmErr)
		}
		return res, ctx.Err()
	}

	switch err := runErr.(type) {
	case nil:
		res.ExitCode = 0
	case *exec.ExitError:
		res.ExitCode = err.ExitCode()
		return res, &model.TaskFailureError{
			Node:     node.ID,
			ExitCode: res.ExitCode,
			Reason:   lastLine(res.Stderr),
		}
	default:
		// Non-exit errors (e.g. binary not found).
		res.ExitCode = -1
		return res, &model.TaskFailureError{
			Node:     node.ID,
			ExitCode: -1,
			Reason:   runErr.Error(),
		}
	}

	outputs, err := ResolveOutputs(dir, inv.Outputs)
	if err != nil {
		return res, &model.TaskFailureError{Node: node.ID, ExitCode: 0, Reason: err.Error()}
	}
	res.Outputs = outputs

	e.logger.Debug("completed", "node", node.ID, "duration", res.Duration, "outputs", len(outputs))
	return res, nil
}

// ResolveOutputs maps each declared slot to its artifact path. Names are
// exact by default; a glob pattern is allowed, but matching more than one
// file is a contract violation, never a silent pick. A missing required
// slot is a task failure.
func ResolveOutputs(dir string, slots []adapter.Slot) (map[string]string, error) {
	outputs := make(map[string]string, len(slots))
	for _, slot := range slots {
		if strings.ContainsAny(slot.Name, "*?[") {
			matches, err := filepath.Glob(filepath.Join(dir, slot.Name))
			if err != nil {
				return nil, fmt.Errorf("output slot %q: bad pattern %q: %w", slot.ID, slot.Name, err)
			}
			switch len(matches) {
			case 0:
				if !slot.Optional {
					return nil, fmt.Errorf("missing declared output %q (%s)", slot.ID, slot.Name)
				}
			case 1:
				outputs[slot.ID] = matches[0]
			default:
				return nil, fmt.Errorf("output slot %q: pattern %q matched %d files", slot.ID, slot.Name, len(matches))
			}
			continue
		}

		path := filepath.Join(dir, slot.Name)
		if _, err := os.Stat(path); err != nil {
			if os.IsNotExist(err) {
				if slot.Optional {
					continue
				}
				return nil, fmt.Errorf("missing declared output %q (%s)", slot.ID, slot.Name)
			}
			return nil, fmt.Errorf("output slot %q: %w", slot.ID, err)
		}
		outputs[slot.ID] = path
	}
	return outputs, nil
}

// lastLine returns the final non-empty line of s, as a short diagnostic.
func lastLine(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	if len(lines) == 0 {
		return ""
	}
	return strings.TrimSpace(lines[len(lines)-1])
}
