package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/maine/anime_news_bot/internal/formatter"
)

func newTestMessageCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "test-message",
		Short: "Send a greeting through every enabled channel to check credentials",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext(cmd.Context())
			defer cancel()

			rt, err := loadService(cmd, opts)
			if err != nil {
				return err
			}

			notifier, err := rt.notifier()
			if err != nil {
				return err
			}

			res := notifier.Send(ctx, formatter.TestMessage())
			if !res.OK {
				rt.log.Error().Err(res.Err).Msg("Test message failed")
				return fmt.Errorf("send test message: %w", res.Err)
			}
			rt.log.Info().Str("provider_id", res.ProviderMessageID).Msg("Test message sent")
			return nil
		},
	}
}
