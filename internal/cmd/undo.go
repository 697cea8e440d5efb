package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/organize/organize/internal/config"
	"github.com/organize/organize/internal/engine"
	"github.com/organize/organize/internal/execctx"
	"github.com/organize/organize/internal/undo"
)

var (
	undoSessionID   int64
	undoInteractive bool
	undoOnConflict  string
)

var undoCmd = &cobra.Command{
	Use:   "undo",
	Short: "Reverse a previous run's actions",
	RunE:  runUndo,
}

func init() {
	undoCmd.Flags().Int64Var(&undoSessionID, "session", 0, "journal session ID to undo (see `organize run`'s log output)")
	undoCmd.Flags().BoolVar(&undoInteractive, "interactive", false, "prompt for each undo conflict")
	undoCmd.Flags().StringVar(&undoOnConflict, "on-conflict", "", "conflict policy when the original path is reclaimed: skip|abort|overwrite|auto_rename|rename")
	rootCmd.AddCommand(undoCmd)
}

func runUndo(c *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	var policy undo.ConflictPolicy
	if undoOnConflict != "" {
		policy = undo.ConflictPolicy(undoOnConflict)
	}

	ctx := context.Background()
	e, err := engine.New(ctx, engine.Options{
		DatabaseURL:  cfg.DatabaseURL,
		Interactive:  undoInteractive || cfg.Interactive,
		OnConflict:   execctx.OnConflictRename,
		UndoConflict: policy,
	}, nil)
	if err != nil {
		return err
	}
	defer e.Close()

	if undoSessionID == 0 {
		return fmt.Errorf("--session is required (see `organize run`'s log output for the session ID)")
	}
	return e.UndoSession(ctx, undoSessionID)
}
