package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/vadim/postpilot/internal/app"
	"github.com/vadim/postpilot/internal/telemetry"
)

// NewPublishDueCommand creates the publish-due command
func NewPublishDueCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "publish-due",
		Short: "Run one publisher cycle over the due scheduled posts",
		Long: `Publish every pending scheduled post whose time has come, then exit.

Meant for external schedulers (cron, Kubernetes CronJob) when the API runs
with the in-process scheduler disabled. Exits non-zero if the cycle fails.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(rootOpts)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}

			logger := telemetry.NewLogger(os.Stderr, cfg.Log.Level, cfg.Log.Format)
			ctx := cmd.Context()

			core, err := app.NewCore(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer core.Close()

			res, err := core.Policy.ProcessDue(ctx)
			if err != nil {
				return fmt.Errorf("publisher cycle: %w", err)
			}

			return writeOutput(cmd.OutOrStdout(), rootOpts.Format, res, func(w io.Writer) error {
				_, err := fmt.Fprintf(w, "selected=%d published=%d retrying=%d failed=%d skipped=%d errors=%d\n",
					res.Selected, res.Published, res.Retrying, res.Failed, res.Skipped, res.Errors)
				return err
			})
		},
	}
}
