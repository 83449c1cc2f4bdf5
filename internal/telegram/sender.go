package telegram

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"github.com/maine/anime_news_bot/internal/formatter"
	"github.com/maine/anime_news_bot/internal/news"
)

// ChannelName - имя канала в логах и идентификаторах отправки.
const ChannelName = "telegram"

// Notifier реализует app.Notifier для отправки новости в один чат Telegram.
type Notifier struct {
	client TelegramClient
	chatID int64
	log    zerolog.Logger
}

// NewNotifier создаёт новый экземпляр отправителя.
func NewNotifier(client TelegramClient, chatID int64, log zerolog.Logger) *Notifier {
	return &Notifier{
		client: client,
		chatID: chatID,
		log:    log.With().Str("channel", ChannelName).Logger(),
	}
}

func (n *Notifier) Name() string {
	return ChannelName
}

// Send реализует app.Notifier.
// С картинкой отправляется фото с подписью, без неё - текстовое сообщение.
// Если Telegram не смог скачать картинку, новость уходит текстом.
func (n *Notifier) Send(ctx context.Context, msg news.FormattedMessage) news.SendResult {
	if err := ctx.Err(); err != nil {
		return news.Failed(err)
	}

	if msg.MediaURL != "" {
		sent, err := n.client.Send(n.photo(msg))
		if err == nil {
			return news.Sent(strconv.Itoa(sent.MessageID))
		}
		if !isMediaError(err) {
			return news.Failed(fmt.Errorf("send telegram photo: %w", err))
		}
		n.log.Warn().Err(err).Str("item_id", msg.ItemID).Str("media_url", msg.MediaURL).
			Msg("Telegram rejected image, sending text only")
	}

	sent, err := n.client.Send(n.text(msg))
	if err != nil {
		return news.Failed(fmt.Errorf("send telegram message: %w", err))
	}
	return news.Sent(strconv.Itoa(sent.MessageID))
}

func (n *Notifier) photo(msg news.FormattedMessage) tgbotapi.PhotoConfig {
	photo := tgbotapi.NewPhoto(n.chatID, tgbotapi.FileURL(msg.MediaURL))
	photo.Caption = formatter.RenderTelegramCaption(msg)
	photo.ParseMode = tgbotapi.ModeHTML
	return photo
}

func (n *Notifier) text(msg news.FormattedMessage) tgbotapi.MessageConfig {
	text := tgbotapi.NewMessage(n.chatID, formatter.RenderTelegramHTML(msg))
	text.ParseMode = tgbotapi.ModeHTML
	return text
}

// isMediaError определяет, что Telegram отклонил именно картинку, а не сообщение целиком.
func isMediaError(err error) bool {
	if err == nil {
		return false
	}

	errStr := strings.ToLower(err.Error())

	mediaErrors := []string{
		"wrong file identifier",
		"failed to get http url content",
		"wrong type of the web page content",
		"image_process_failed",
		"photo_invalid_dimensions",
	}

	for _, mediaErr := range mediaErrors {
		if strings.Contains(errStr, mediaErr) {
			return true
		}
	}
	return false
}
