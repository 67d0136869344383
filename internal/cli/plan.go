package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kmualim/atac-seq-pipeline/internal/config"
	"github.com/kmualim/atac-seq-pipeline/internal/graph"
)

func newPlanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plan <config.yaml>",
		Short: "Build and print the task graph without executing it",
		Long: `plan resolves the entry point, builds the task graph, and prints every
node in execution order with its dependencies, queue, and core budget.
Nothing is staged or executed.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(args[0])
			if err != nil {
				return err
			}
			g, err := graph.Build(cfg)
			if err != nil {
				return err
			}
			printPlan(g)
			return nil
		},
	}
	return cmd
}

func printPlan(g *graph.Graph) {
	fmt.Fprintf(os.Stdout, "entry: %s, replicates: %d, nodes: %d\n\n", g.EntryType, g.ReplicateCount, len(g.Nodes))
	for _, id := range g.Order {
		node := g.Nodes[id]
		line := fmt.Sprintf("  %-32s queue=%-6s cores=%d", id, node.Queue, node.Resources.Cores)
		if len(node.DependsOn) > 0 {
			line += "  <- " + strings.Join(node.DependsOn, ", ")
		}
		fmt.Fprintln(os.Stdout, line)
	}
}
