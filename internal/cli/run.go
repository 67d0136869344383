package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kmualim/atac-seq-pipeline/internal/config"
	"github.com/kmualim/atac-seq-pipeline/internal/executor"
	"github.com/kmualim/atac-seq-pipeline/internal/graph"
	"github.com/kmualim/atac-seq-pipeline/internal/report"
	"github.com/kmualim/atac-seq-pipeline/internal/scheduler"
	"github.com/kmualim/atac-seq-pipeline/internal/stage"
	"github.com/kmualim/atac-seq-pipeline/internal/store"
)

func newRunCmd() *cobra.Command {
	var noStage bool
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "run <config.yaml>",
		Short: "Execute the pipeline described by a run configuration",
		Long: `run loads a YAML run configuration, stages remote inputs, builds the
task graph for the detected entry point, and executes it. The process
exits nonzero if any node failed or was skipped. SIGINT/SIGTERM cancel
the run: in-flight tasks are stopped and their partial outputs discarded.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runPipeline(ctx, args[0], noStage, jsonOut)
		},
	}

	cmd.Flags().BoolVar(&noStage, "no-stage", false, "Skip input staging (all paths must be local)")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit the run outcome as JSON instead of the text report")
	return cmd
}

func runPipeline(ctx context.Context, configPath string, noStage, jsonOut bool) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	if !noStage {
		if err := stageInputs(ctx, cfg); err != nil {
			return err
		}
	}

	g, err := graph.Build(cfg)
	if err != nil {
		return err
	}
	logger.Info("graph built",
		"entry", g.EntryType,
		"replicates", g.ReplicateCount,
		"nodes", len(g.Nodes))

	var rec scheduler.Recorder
	if cfg.DBPath != "" {
		st, err := store.NewSQLiteStore(cfg.DBPath, logger)
		if err != nil {
			return fmt.Errorf("open run store: %w", err)
		}
		defer st.Close()
		if err := st.Migrate(ctx); err != nil {
			return fmt.Errorf("migrate run store: %w", err)
		}
		rec = st
	}

	workDir := cfg.WorkDir
	if workDir == "" {
		workDir = "."
	}
	exec := executor.NewLocal(workDir, logger)
	runner := scheduler.New(g, cfg, exec, rec, scheduler.ConfigFrom(cfg), logger)

	result, err := runner.Run(ctx)
	if err != nil {
		return err
	}

	if jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(result); err != nil {
			return fmt.Errorf("encode result: %w", err)
		}
	} else {
		report.Render(os.Stdout, result)
	}

	if !result.Succeeded() {
		return fmt.Errorf("run %s finished %s: %d failed, %d skipped",
			result.Run.ID, result.Run.State, len(result.Failed), len(result.Skipped))
	}
	return nil
}

// stageInputs localizes remote inputs. The S3 stager is only constructed
// when the configuration actually references s3:// locations, so local
// runs never touch AWS credential resolution.
func stageInputs(ctx context.Context, cfg *config.RunConfig) error {
	var remote stage.Stager
	if configReferencesS3(cfg) {
		s3, err := stage.NewS3Stager(ctx)
		if err != nil {
			return err
		}
		remote = s3
	}
	resolver := stage.NewResolver(stage.NewFileStager(), remote, logger)
	return resolver.StageConfig(ctx, cfg)
}

func configReferencesS3(cfg *config.RunConfig) bool {
	paths := []string{cfg.Genome.AlignerIndex, cfg.Genome.ChromSizes, cfg.Genome.Blacklist}
	paths = append(paths, cfg.Bams...)
	paths = append(paths, cfg.NodupBams...)
	paths = append(paths, cfg.TAs...)
	for _, rg := range cfg.Fastqs {
		paths = append(paths, rg.R1...)
		paths = append(paths, rg.R2...)
	}
	for _, p := range paths {
		if len(p) > 5 && p[:5] == "s3://" {
			return true
		}
	}
	return false
}
