package main

import (
	"github.com/spf13/cobra"

	appconfig "github.com/wolfman30/concierge-dialer/internal/config"
	"github.com/wolfman30/concierge-dialer/pkg/logging"
)

type rootOptions struct {
	logLevel string
	cfg      *appconfig.Config
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:           "concierge",
		Short:         "Reservation concierge tooling",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRun: func(*cobra.Command, []string) {
			opts.cfg = appconfig.Load()
		},
	}
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "warn", "log level for diagnostics on stderr")

	cmd.AddCommand(newChatCmd(opts), newParseCmd(opts), newCallsCmd(opts))
	return cmd
}

func (o *rootOptions) logger(cmd *cobra.Command) *logging.Logger {
	return logging.NewWithWriter(o.logLevel, cmd.ErrOrStderr())
}
