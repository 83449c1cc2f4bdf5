package main

import (
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/maine/anime_news_bot/internal/config"
	"github.com/maine/anime_news_bot/internal/logging"
	"github.com/maine/anime_news_bot/internal/sources"
)

func newDiscoverCmd() *cobra.Command {
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "discover <site-url>...",
		Short: "Find RSS/Atom feeds on a site and print them as a source.feeds snippet",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext(cmd.Context())
			defer cancel()

			log := logging.New(logging.Options{Level: "info", Out: cmd.ErrOrStderr()})
			d := sources.NewDiscoverer(&http.Client{Timeout: timeout}, "", log)

			var found []config.Feed
			for _, site := range args {
				feeds, err := d.Discover(ctx, site)
				if err != nil {
					log.Warn().Err(err).Str("site", site).Msg("Discovery failed")
					continue
				}
				log.Info().Str("site", site).Int("feeds", len(feeds)).Msg("Site checked")
				found = append(found, feeds...)
			}
			if len(found) == 0 {
				return fmt.Errorf("no feeds found")
			}

			out, err := yaml.Marshal(map[string]any{"source": map[string]any{"feeds": found}})
			if err != nil {
				return fmt.Errorf("marshal feeds: %w", err)
			}
			_, err = cmd.OutOrStdout().Write(out)
			return err
		},
	}

	cmd.Flags().DurationVar(&timeout, "timeout", 15*time.Second, "HTTP timeout per request")
	return cmd
}
