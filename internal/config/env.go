package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// ErrNoChannel возвращается, если не включён ни один канал доставки.
var ErrNoChannel = errors.New("no notification channel enabled: enable notify.whatsapp or notify.telegram")

// EnvConfig содержит токены и другие переменные окружения.
type EnvConfig struct {
	TwilioAccountSID string
	TwilioAuthToken  string
	WhatsAppFrom     string
	WhatsAppTo       string
	TelegramBotToken string
	TelegramChatID   int64
	GeminiAPIKey     string
}

// LoadDotEnv подгружает .env, если файл есть. Уже выставленные переменные не перезаписываются.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	existing := make([]string, 0, len(paths))
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			existing = append(existing, p)
		}
	}
	if len(existing) == 0 {
		return nil
	}
	if err := godotenv.Load(existing...); err != nil {
		return fmt.Errorf("load dotenv: %w", err)
	}
	return nil
}

// LoadEnvConfig читает переменные окружения для включённых каналов.
// Возвращает ошибку, если обязательные переменные отсутствуют или пустые.
func LoadEnvConfig(cfg Root) (*EnvConfig, error) {
	return loadEnv(cfg, os.Getenv)
}

func loadEnv(cfg Root, getenv func(string) string) (*EnvConfig, error) {
	if !cfg.Notify.WhatsApp.Enabled && !cfg.Notify.Telegram.Enabled {
		return nil, ErrNoChannel
	}

	env := &EnvConfig{}
	var missing []string
	require := func(name string) string {
		v := strings.TrimSpace(getenv(name))
		if v == "" {
			missing = append(missing, name)
		}
		return v
	}

	if cfg.Notify.WhatsApp.Enabled {
		env.TwilioAccountSID = require("TWILIO_ACCOUNT_SID")
		env.TwilioAuthToken = require("TWILIO_AUTH_TOKEN")
		env.WhatsAppFrom = whatsAppAddress(require("TWILIO_WHATSAPP_FROM"))
		env.WhatsAppTo = whatsAppAddress(require("TWILIO_WHATSAPP_TO"))
	}

	if cfg.Notify.Telegram.Enabled {
		env.TelegramBotToken = require("TELEGRAM_BOT_TOKEN")
		if raw := require("TELEGRAM_CHAT_ID"); raw != "" {
			id, err := strconv.ParseInt(raw, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("TELEGRAM_CHAT_ID must be a numeric chat id: %w", err)
			}
			env.TelegramChatID = id
		}
	}

	// GEMINI_API_KEY обязателен только если включено переписывание summary
	if cfg.Gemini.Enabled {
		env.GeminiAPIKey = require("GEMINI_API_KEY")
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %s", strings.Join(missing, ", "))
	}
	return env, nil
}

// whatsAppAddress добавляет префикс whatsapp:, который ждёт Twilio.
func whatsAppAddress(v string) string {
	if v == "" || strings.HasPrefix(v, "whatsapp:") {
		return v
	}
	return "whatsapp:" + v
}
