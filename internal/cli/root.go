package cli

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/weissv/olymp-pay/internal/config"
	"github.com/weissv/olymp-pay/pkg/logger"
)

const serviceName = "olymp-pay"

// RootOptions holds global flags for all commands.
type RootOptions struct {
	LogLevel string
}

func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:          serviceName,
		Short:        "Payme merchant webhook for olympiad registrations",
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&opts.LogLevel, "log-level", "", "overrides LOG_LEVEL (debug|info|warn|error)")

	cmd.AddCommand(NewServeCommand(opts))
	cmd.AddCommand(NewMigrateCommand(opts))

	return cmd
}

func (o *RootOptions) newLogger(cfg *config.Config) (*zap.Logger, error) {
	level := cfg.LogLevel
	if o.LogLevel != "" {
		level = o.LogLevel
	}
	return logger.New(logger.Config{
		ServiceName: serviceName,
		Env:         string(cfg.AppEnv),
		Level:       level,
		Format:      cfg.LogFormat,
	})
}
