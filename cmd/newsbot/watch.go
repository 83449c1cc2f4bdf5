package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/maine/anime_news_bot/internal/scheduler"
)

func newWatchCmd(opts *options) *cobra.Command {
	var spec string

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Run the pipeline on a cron schedule until interrupted",
		Long: `Run the pipeline immediately and then on schedule. Runs never overlap: a tick that
arrives while the previous run is still sending is skipped.

The schedule accepts five-field cron expressions and descriptors such as "@every 30m"
or "@hourly". Defaults to schedule.spec from the config.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext(cmd.Context())
			defer cancel()

			rt, err := loadService(cmd, opts)
			if err != nil {
				return err
			}
			if spec == "" {
				spec = rt.cfg.Schedule.Spec
			}

			sched, err := scheduler.New(spec, rt.log)
			if err != nil {
				return err
			}

			p, err := rt.pipeline(ctx)
			if err != nil {
				return err
			}

			return sched.Run(ctx, func(ctx context.Context) {
				if _, err := p.Run(ctx); err != nil {
					rt.log.Error().Err(err).Msg("Scheduled run failed")
				}
			})
		},
	}

	cmd.Flags().StringVar(&spec, "schedule", "", `cron schedule, e.g. "@every 30m" (default: schedule.spec from config)`)
	return cmd
}
