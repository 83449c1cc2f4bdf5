package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

// ErrQuotaExceeded возвращается, когда дневная квота Gemini исчерпана и запросы до конца прогона бессмысленны.
var ErrQuotaExceeded = errors.New("gemini quota exceeded")

// GeminiClient определяет интерфейс для работы с Gemini API.
// Это позволяет легко создавать моки для тестирования.
type GeminiClient interface {
	GenerateText(ctx context.Context, model string, prompt string) (string, error)
}

// Client инкапсулирует работу с Gemini API через официальный SDK.
type Client struct {
	client *genai.Client
}

// Убеждаемся, что Client реализует интерфейс GeminiClient.
var _ GeminiClient = (*Client)(nil)

// NewClient создаёт новый клиент для работы с Gemini API.
// Ключ берётся из EnvConfig и явно передаётся в SDK.
func NewClient(ctx context.Context, apiKey string) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey: apiKey,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	return &Client{
		client: client,
	}, nil
}

// GenerateText отправляет один запрос к Gemini API и возвращает текстовый ответ.
// Повторов нет: при ошибке вызывающий оставляет исходный текст.
func (c *Client) GenerateText(ctx context.Context, model string, prompt string) (string, error) {
	result, err := c.client.Models.GenerateContent(
		ctx,
		model,
		genai.Text(prompt),
		nil,
	)
	if err != nil {
		if isQuotaExceededError(err.Error()) {
			return "", fmt.Errorf("%w: %w", ErrQuotaExceeded, err)
		}
		return "", fmt.Errorf("generate content: %w", err)
	}

	text, err := result.Text()
	if err != nil {
		return "", fmt.Errorf("get text from result: %w", err)
	}
	return text, nil
}

// isQuotaExceededError проверяет, является ли ошибка превышением дневной квоты (RPD).
// Ошибки RPM/TPM сюда не попадают: следующий запрос может пройти.
func isQuotaExceededError(errStr string) bool {
	errLower := strings.ToLower(errStr)
	if strings.Contains(errLower, "generate_content_free_tier_requests") ||
		strings.Contains(errLower, "daily limit") ||
		strings.Contains(errLower, "perday") {
		return true
	}
	// 429 без признаков дневного лимита - это RPM/TPM
	if strings.Contains(errLower, "429") || strings.Contains(errLower, "resource exhausted") {
		return false
	}
	return strings.Contains(errLower, "quota")
}
