// Package cmd implements the sitecat command line.
package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/sitecat/internal/app"
	"github.com/JakeFAU/sitecat/internal/category"
	"github.com/JakeFAU/sitecat/internal/config"
	"github.com/JakeFAU/sitecat/internal/logging"
	"github.com/JakeFAU/sitecat/internal/telemetry"
)

// appKeyType is the key for storing the App in the context.
type appKeyType string

const appKey appKeyType = "app"

// App is what subcommands need from the application.
type App interface {
	Close()
	Logger() *zap.Logger
	Classify(ctx context.Context, rawURL string) category.Result
	RunBatch(ctx context.Context, dryRun bool) (telemetry.Summary, error)
}

// appHolder carries the App from PersistentPreRunE back to Execute, which
// closes it whether or not the command failed.
type appHolder struct {
	app App
}

func (h *appHolder) close() {
	if h.app != nil {
		h.app.Close()
		h.app = nil
	}
}

// newApp is the application factory; tests replace it.
var newApp = func(ctx context.Context, cfg config.Config, logger *zap.Logger) (App, error) {
	return app.New(ctx, cfg, logger, app.Overrides{})
}

func newRootCmd() *cobra.Command {
	var cfgFile string
	cmd := &cobra.Command{
		Use:   "sitecat",
		Short: "Classify websites into product categories.",
		Long: `sitecat visits every website listed in a spreadsheet (or CSV file or
Postgres table), reads its metadata and writes back a product category code:
9 clothing and shoes, 8 clothing, 7 shoes, 6 lingerie, - no match.`,
		SilenceUsage: true,

		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			logger, err := logging.New(cfg.Logging.Development, logging.WithLevel(cfg.Logging.Level))
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			zap.ReplaceGlobals(logger)

			holder, ok := cmd.Context().Value(appKey).(*appHolder)
			if !ok {
				return errors.New("application holder missing from context")
			}
			appInstance, err := newApp(cmd.Context(), cfg, logger)
			if err != nil {
				return fmt.Errorf("initialize application services: %w", err)
			}
			holder.app = appInstance
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (YAML); env vars use the SITECAT_ prefix")
	cmd.AddCommand(newRunCmd(), newClassifyCmd())
	return cmd
}

func resolveApp(ctx context.Context) (App, error) {
	holder, ok := ctx.Value(appKey).(*appHolder)
	if !ok || holder.app == nil {
		return nil, errors.New("application services not initialized")
	}
	return holder.app, nil
}

// Execute runs the CLI with ctx, typically cancelled on SIGINT/SIGTERM.
func Execute(ctx context.Context) error {
	return executeRoot(ctx, newRootCmd())
}

// executeRoot runs root and closes the App on every exit path. Cobra skips
// PersistentPostRun when RunE fails, so closing happens here.
func executeRoot(ctx context.Context, root *cobra.Command) error {
	holder := &appHolder{}
	defer holder.close()
	return root.ExecuteContext(context.WithValue(ctx, appKey, holder))
}
