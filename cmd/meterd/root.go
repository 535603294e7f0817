package main

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/dmitrymomot/meterkit/pkg/config"
	"github.com/dmitrymomot/meterkit/pkg/identity"
	"github.com/dmitrymomot/meterkit/pkg/logger"
	"github.com/dmitrymomot/meterkit/pkg/requestid"
)

type rootOptions struct {
	envFiles []string
	cfg      appConfig
	log      *slog.Logger
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:           "meterd",
		Short:         "Usage metering, entitlements and purchase ledger",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := config.Load(&opts.cfg, opts.envFiles...); err != nil {
				return err
			}
			opts.log = logger.NewFromConfig(opts.cfg.Log,
				logger.WithContextExtractors(requestid.LogExtractor(), identity.LogExtractor()),
			)
			logger.SetAsDefault(opts.log)
			return nil
		},
	}
	cmd.PersistentFlags().StringSliceVar(&opts.envFiles, "env-file", nil, "dotenv files to load (default .env)")

	cmd.AddCommand(
		newServeCmd(opts),
		newMigrateCmd(opts),
		newReconcileCmd(opts),
	)
	return cmd
}
