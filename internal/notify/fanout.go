package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/maine/anime_news_bot/internal/news"
)

// Channel - один канал доставки (WhatsApp, Telegram).
type Channel interface {
	Name() string
	Send(ctx context.Context, msg news.FormattedMessage) news.SendResult
}

// Fanout реализует app.Notifier поверх нескольких каналов.
// Отправка считается успешной, если сообщение дошло хотя бы до одного канала.
type Fanout struct {
	channels []Channel
	log      zerolog.Logger
}

// NewFanout создаёт рассылку по каналам в заданном порядке.
func NewFanout(log zerolog.Logger, channels ...Channel) *Fanout {
	return &Fanout{channels: channels, log: log}
}

func (f *Fanout) Len() int {
	return len(f.channels)
}

// Send реализует app.Notifier.
// ProviderMessageID собирается как "канал:id" через запятую.
func (f *Fanout) Send(ctx context.Context, msg news.FormattedMessage) news.SendResult {
	if len(f.channels) == 0 {
		return news.Failed(errors.New("no notification channels configured"))
	}

	var (
		ids  []string
		errs []error
	)
	for _, ch := range f.channels {
		res := ch.Send(ctx, msg)
		if !res.OK {
			err := res.Err
			if err == nil {
				err = errors.New("unknown error")
			}
			f.log.Warn().Err(err).Str("channel", ch.Name()).Str("item_id", msg.ItemID).Msg("Channel send failed")
			errs = append(errs, fmt.Errorf("%s: %w", ch.Name(), err))
			continue
		}
		ids = append(ids, ch.Name()+":"+res.ProviderMessageID)
	}

	if len(ids) == 0 {
		return news.Failed(errors.Join(errs...))
	}
	return news.Sent(strings.Join(ids, ","))
}
