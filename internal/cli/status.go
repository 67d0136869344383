package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kmualim/atac-seq-pipeline/internal/store"
)

func newStatusCmd() *cobra.Command {
	var dbPath string
	var limit int

	cmd := &cobra.Command{
		Use:   "status [run-id]",
		Short: "Show recorded runs, or the node states of one run",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := store.NewSQLiteStore(dbPath, logger)
			if err != nil {
				return fmt.Errorf("open run store: %w", err)
			}
			defer st.Close()
			if err := st.Migrate(cmd.Context()); err != nil {
				return fmt.Errorf("migrate run store: %w", err)
			}

			if len(args) == 0 {
				return listRuns(cmd, st, limit)
			}
			return showRun(cmd, st, args[0])
		},
	}

	cmd.Flags().StringVar(&dbPath, "db", "atac.db", "Path to the run database")
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of runs to list")
	return cmd
}

func listRuns(cmd *cobra.Command, st store.Store, limit int) error {
	runs, err := st.ListRuns(cmd.Context(), limit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Fprintln(os.Stdout, "no runs recorded")
		return nil
	}
	for _, run := range runs {
		line := fmt.Sprintf("%-44s %-10s %-12s reps=%d  %s",
			run.ID, run.State, run.EntryType, run.ReplicateCount,
			run.CreatedAt.Format("2006-01-02 15:04:05"))
		fmt.Fprintln(os.Stdout, line)
	}
	return nil
}

func showRun(cmd *cobra.Command, st store.Store, runID string) error {
	run, err := st.GetRun(cmd.Context(), runID)
	if err != nil {
		return err
	}
	if run == nil {
		return fmt.Errorf("run %s not found", runID)
	}
	fmt.Fprintf(os.Stdout, "%s  [%s]  entry=%s reps=%d\n\n", run.ID, run.State, run.EntryType, run.ReplicateCount)

	nodes, err := st.ListNodes(cmd.Context(), runID)
	if err != nil {
		return err
	}
	for _, ns := range nodes {
		line := fmt.Sprintf("  %-32s %-10s", ns.NodeID, ns.State)
		if ns.Error != "" {
			line += "  " + ns.Error
		}
		fmt.Fprintln(os.Stdout, line)
	}
	return nil
}
