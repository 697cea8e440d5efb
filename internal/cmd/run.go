package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/organize/organize/internal/config"
	"github.com/organize/organize/internal/engine"
	"github.com/organize/organize/internal/execctx"
	"github.com/organize/organize/internal/pipeline"
)

var (
	runRulePath string
	runDryRun   bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a rule file",
	RunE:  runRun,
}

func init() {
	runCmd.Flags().StringVar(&runRulePath, "rule", "", "path to a rule file (required)")
	runCmd.Flags().BoolVar(&runDryRun, "dry-run", false, "simulate the run without touching real backends")
	runCmd.MarkFlagRequired("rule")
	rootCmd.AddCommand(runCmd)
}

func runRun(c *cobra.Command, args []string) error {
	if runRulePath == "" {
		return fmt.Errorf("--rule is required")
	}
	rule, err := loadRuleFile(runRulePath)
	if err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	ctx := context.Background()
	e, err := engine.New(ctx, engine.Options{
		DatabaseURL: cfg.DatabaseURL,
		DryRun:      runDryRun || cfg.DryRun,
		Interactive: cfg.Interactive,
		OnConflict:  execctx.OnConflict(cfg.OnConflict),
		WorkerLimit: 100,
	}, nil)
	if err != nil {
		return err
	}
	defer e.Close()

	return e.Run(ctx, []pipeline.Rule{rule})
}
