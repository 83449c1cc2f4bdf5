package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

const defaultConfigPath = "configs/pipeline.yaml"

// options - общие флаги всех команд.
type options struct {
	configPath string
	envFile    string
	dryRun     bool
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:   "newsbot",
		Short: "Relay anime news from RSS feeds and pages to WhatsApp and Telegram",
		Long: `newsbot fetches anime news from the configured feeds and pages, keeps only relevant
items it has not delivered yet and sends them to WhatsApp (Twilio) and Telegram
within a daily quota.

Without a subcommand it performs a single run, same as "newsbot run".`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOnce(cmd, opts)
		},
	}

	root.PersistentFlags().StringVar(&opts.configPath, "config", defaultConfigPath, "path to pipeline config file")
	root.PersistentFlags().StringVar(&opts.envFile, "env-file", ".env", "dotenv file with credentials (loaded if present)")
	root.PersistentFlags().BoolVar(&opts.dryRun, "dry-run", false, "log messages instead of sending, leave state files untouched")

	root.AddCommand(
		newRunCmd(opts),
		newWatchCmd(opts),
		newTestMessageCmd(opts),
		newDiscoverCmd(),
		newVersionCmd(),
	)
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "newsbot %s (commit: %s, built: %s)\n", version, commit, date)
		},
	}
}

// signalContext отменяется по Ctrl+C и SIGTERM.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}
