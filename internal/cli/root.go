// Package cli implements the atac command-line interface.
package cli

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/kmualim/atac-seq-pipeline/internal/logging"
)

var (
	flagLogLevel  string
	flagLogFormat string

	logger *slog.Logger
)

// NewRootCmd creates the root cobra command for the atac CLI.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "atac",
		Short: "atac — ATAC-seq / DNase-seq processing pipeline",
		Long: `atac builds a task graph from a run configuration and executes it
with bounded concurrency: alignment, filtering, peak calling, and
reproducibility QC across replicates.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logger = logging.NewLogger(logging.ParseLevel(flagLogLevel), flagLogFormat)
		},
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVar(&flagLogLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	root.PersistentFlags().StringVar(&flagLogFormat, "log-format", "text", "Log format (text, json)")

	root.AddCommand(
		newRunCmd(),
		newPlanCmd(),
		newStatusCmd(),
		newServeCmd(),
	)

	return root
}
