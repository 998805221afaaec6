package cli

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"github.com/weissv/olymp-pay/internal/config"
	"github.com/weissv/olymp-pay/pkg/db"
	"github.com/weissv/olymp-pay/pkg/logger"
)

var migrateCommands = []string{"up", "down", "status", "version", "redo", "reset"}

func NewMigrateCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:       "migrate [up|down|status|version|redo|reset]",
		Short:     "Apply or inspect database migrations",
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: migrateCommands,
		RunE: func(cmd *cobra.Command, args []string) error {
			command := "up"
			if len(args) == 1 {
				command = args[0]
			}
			if !slices.Contains(migrateCommands, command) {
				return fmt.Errorf("invalid migrate command %q: must be one of %v", command, migrateCommands)
			}

			cfg, err := config.LoadDatabaseConfig()
			if err != nil {
				return err
			}
			log, err := opts.newLogger(cfg)
			if err != nil {
				return err
			}
			defer logger.Sync(log)

			pool, err := db.NewPostgresDB(cmd.Context(), cfg.DatabaseURL, 1)
			if err != nil {
				return err
			}
			defer pool.Close()

			return db.Migrate(cmd.Context(), pool, command, log)
		},
	}
}
