package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/organize/organize/internal/providers"
	"github.com/organize/organize/internal/providers/local"
	"github.com/organize/organize/internal/providers/vfs"
)

var (
	snapshotRulePath       string
	snapshotOutput         string
	snapshotIncludeContent bool
)

var snapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "Write a JSON snapshot of a rule's search tree for later dry-run seeding",
	RunE:  runSnapshot,
}

func init() {
	snapshotCmd.Flags().StringVar(&snapshotRulePath, "rule", "", "path to a rule file (required)")
	snapshotCmd.Flags().StringVar(&snapshotOutput, "output", "", "path to write the JSON snapshot to (required)")
	snapshotCmd.Flags().BoolVar(&snapshotIncludeContent, "include-content", false, "embed file content (base64) in the snapshot")
	snapshotCmd.MarkFlagRequired("rule")
	snapshotCmd.MarkFlagRequired("output")
	rootCmd.AddCommand(snapshotCmd)
}

func runSnapshot(c *cobra.Command, args []string) error {
	rule, err := loadRuleFile(snapshotRulePath)
	if err != nil {
		return err
	}
	if len(rule.Stages) == 0 || rule.Stages[0].Location.Path == "" {
		return fmt.Errorf("rule file %s has no search location to snapshot", snapshotRulePath)
	}

	ctx := context.Background()
	real := local.New()
	found, err := real.Discover(ctx, providers.Location{
		Path: rule.Stages[0].Location.Path,
		Mode: providers.MergeReplace,
	})
	if err != nil {
		return fmt.Errorf("discover: %w", err)
	}

	v := vfs.New("file")
	v.Seed(rule.Stages[0].Location.Path, found)
	if snapshotIncludeContent {
		for _, r := range found {
			data, err := r.Bytes(ctx)
			if err != nil {
				continue
			}
			_ = v.WriteAll(ctx, r.Path, data)
		}
	}

	return v.WriteSnapshotFile(ctx, snapshotOutput, snapshotIncludeContent)
}
