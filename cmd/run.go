package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newRunCmd() *cobra.Command {
	var dryRun bool
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Classify every row of the configured store",
		Long: `Reads every row of the configured store, classifies each non-empty URL
and writes the Product and Status columns back. Per-URL failures are counted
and reported at the end; only store read failures abort the run.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			appInstance, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}
			sum, err := appInstance.RunBatch(cmd.Context(), dryRun)
			if err != nil {
				return fmt.Errorf("run batch: %w", err)
			}
			if errors.Is(cmd.Context().Err(), context.Canceled) {
				appInstance.Logger().Warn("run interrupted", zap.Int("processed", sum.URLsProcessed))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "classify and report without writing to the store")
	return cmd
}
