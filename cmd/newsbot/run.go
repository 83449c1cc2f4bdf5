package main

import (
	"github.com/spf13/cobra"
)

func newRunCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Fetch, filter, deduplicate and send new items once",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOnce(cmd, opts)
		},
	}
}

func runOnce(cmd *cobra.Command, opts *options) error {
	ctx, cancel := signalContext(cmd.Context())
	defer cancel()

	rt, err := loadService(cmd, opts)
	if err != nil {
		return err
	}

	p, err := rt.pipeline(ctx)
	if err != nil {
		return err
	}

	if _, err := p.Run(ctx); err != nil {
		rt.log.Error().Err(err).Msg("Run failed")
		return err
	}
	return nil
}
