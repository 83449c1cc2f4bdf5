package notify

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/maine/anime_news_bot/internal/formatter"
	"github.com/maine/anime_news_bot/internal/news"
)

// DryRun только пишет сообщение в лог. Используется с флагом --dry-run.
type DryRun struct {
	log zerolog.Logger
}

func NewDryRun(log zerolog.Logger) *DryRun {
	return &DryRun{log: log.With().Str("channel", "dry-run").Logger()}
}

func (d *DryRun) Name() string {
	return "dry-run"
}

func (d *DryRun) Send(ctx context.Context, msg news.FormattedMessage) news.SendResult {
	if err := ctx.Err(); err != nil {
		return news.Failed(err)
	}
	d.log.Info().
		Str("item_id", msg.ItemID).
		Str("media_url", msg.MediaURL).
		Str("body", formatter.RenderWhatsApp(msg)).
		Msg("Dry run: message not sent")
	return news.Sent("dry-run:" + msg.ItemID)
}
