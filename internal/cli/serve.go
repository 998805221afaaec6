package cli

import (
	"github.com/spf13/cobra"

	"github.com/weissv/olymp-pay/internal/app"
	"github.com/weissv/olymp-pay/internal/config"
	"github.com/weissv/olymp-pay/pkg/logger"
)

func NewServeCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the webhook server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig()
			if err != nil {
				return err
			}
			log, err := opts.newLogger(cfg)
			if err != nil {
				return err
			}
			defer logger.Sync(log)
			cfg.Log(log)

			a, err := app.Build(cmd.Context(), cfg, log)
			if err != nil {
				return err
			}
			return a.Run(cmd.Context())
		},
	}
}
