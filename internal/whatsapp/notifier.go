package whatsapp

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/twilio/twilio-go"
	twilioclient "github.com/twilio/twilio-go/client"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"

	"github.com/maine/anime_news_bot/internal/formatter"
	"github.com/maine/anime_news_bot/internal/news"
)

// ChannelName - имя канала в логах и идентификаторах отправки.
const ChannelName = "whatsapp"

// MessageCreator - часть Twilio REST API, через которую уходят сообщения.
type MessageCreator interface {
	CreateMessage(params *twilioApi.CreateMessageParams) (*twilioApi.ApiV2010Message, error)
}

// NewClient создаёт клиента Twilio REST API.
func NewClient(accountSID, authToken string) MessageCreator {
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: accountSID,
		Password: authToken,
	})
	return client.Api
}

// Notifier отправляет новость одним сообщением WhatsApp через Twilio.
type Notifier struct {
	client MessageCreator
	from   string
	to     string
	log    zerolog.Logger
}

// NewNotifier создаёт отправителя. from и to - адреса вида whatsapp:+15551234567.
func NewNotifier(client MessageCreator, from, to string, log zerolog.Logger) *Notifier {
	return &Notifier{
		client: client,
		from:   from,
		to:     to,
		log:    log.With().Str("channel", ChannelName).Logger(),
	}
}

func (n *Notifier) Name() string {
	return ChannelName
}

// Send реализует app.Notifier. Картинка прикладывается через MediaUrl.
func (n *Notifier) Send(ctx context.Context, msg news.FormattedMessage) news.SendResult {
	if err := ctx.Err(); err != nil {
		return news.Failed(err)
	}

	params := &twilioApi.CreateMessageParams{}
	params.SetFrom(n.from)
	params.SetTo(n.to)
	params.SetBody(formatter.RenderWhatsApp(msg))
	if msg.MediaURL != "" {
		params.SetMediaUrl([]string{msg.MediaURL})
	}

	resp, err := n.client.CreateMessage(params)
	if err != nil {
		var restErr *twilioclient.TwilioRestError
		if errors.As(err, &restErr) {
			n.log.Debug().Int("twilio_code", restErr.Code).Int("status", restErr.Status).
				Str("more_info", restErr.MoreInfo).Str("item_id", msg.ItemID).Msg("Twilio rejected message")
		}
		return news.Failed(fmt.Errorf("create twilio message: %w", err))
	}

	sid := ""
	if resp != nil && resp.Sid != nil {
		sid = *resp.Sid
	}
	return news.Sent(sid)
}
