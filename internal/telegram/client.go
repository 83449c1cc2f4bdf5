package telegram

import (
	"fmt"
	"net/http"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// TelegramClient определяет то подмножество Bot API, которое нужно нотификатору.
// Это позволяет легко создавать моки для тестирования.
type TelegramClient interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Убеждаемся, что BotAPI реализует интерфейс TelegramClient.
var _ TelegramClient = (*tgbotapi.BotAPI)(nil)

// NewClient создаёт клиента Bot API. token обязателен; при создании бот проверяет токен через getMe.
func NewClient(token string) (*tgbotapi.BotAPI, error) {
	if token == "" {
		return nil, fmt.Errorf("telegram bot token is empty")
	}
	httpClient := &http.Client{
		Timeout: 15 * time.Second,
	}
	bot, err := tgbotapi.NewBotAPIWithClient(token, tgbotapi.APIEndpoint, httpClient)
	if err != nil {
		return nil, fmt.Errorf("create telegram bot: %w", err)
	}
	return bot, nil
}
