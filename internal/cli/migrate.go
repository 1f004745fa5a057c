package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/vadim/postpilot/internal/database"
)

// NewMigrateCommand creates the migrate command
func NewMigrateCommand(rootOpts *RootOptions) *cobra.Command {
	var printOnly bool

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply the database schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if printOnly {
				_, err := io.WriteString(cmd.OutOrStdout(), database.Schema())
				return err
			}

			cfg, err := loadConfig(rootOpts)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}

			ctx := cmd.Context()
			pool, err := database.NewPostgresPool(ctx, database.PoolConfig{
				DSN:             cfg.Database.PostgresDSN,
				MaxConns:        2,
				MaxConnLifetime: cfg.Database.ConnLifetime,
			})
			if err != nil {
				return err
			}
			defer pool.Close()

			if err := database.Migrate(ctx, pool); err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), "schema applied")
			return nil
		},
	}

	cmd.Flags().BoolVar(&printOnly, "print", false, "print the schema instead of applying it")

	return cmd
}
