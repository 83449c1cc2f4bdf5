package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/maine/anime_news_bot/internal/news"
	"github.com/maine/anime_news_bot/internal/sources"
)

// Rewriter реализует app.Rewriter: переписывает summary новости через Gemini.
type Rewriter struct {
	client GeminiClient
	model  string
	maxLen int
	log    zerolog.Logger

	now   func() time.Time

	// exhaustedOn - дата (UTC), когда пришёл ErrQuotaExceeded; до конца этих суток Gemini не вызывается.
	exhaustedOn string
}

// NewRewriter создаёт новый экземпляр переписчика.
func NewRewriter(client GeminiClient, model string, maxLen int, log zerolog.Logger) *Rewriter {
	return &Rewriter{
		client: client,
		model:  model,
		maxLen: maxLen,
		now:    time.Now,
		log:    log.With().Str("component", "gemini").Logger(),
	}
}

// Rewrite возвращает новое summary длиной не больше maxLen символов.
// При ошибке вызывающий оставляет исходное summary.
func (r *Rewriter) Rewrite(ctx context.Context, item news.CandidateItem) (string, error) {
	if strings.TrimSpace(item.Summary) == "" {
		// Нечего переписывать, а придумывать факты по заголовку нельзя
		return item.Summary, nil
	}
	today := news.QuotaDate(r.now())
	if r.exhaustedOn == today {
		return "", ErrQuotaExceeded
	}

	responseText, err := r.client.GenerateText(ctx, r.model, r.buildPrompt(item))
	if err != nil {
		if errors.Is(err, ErrQuotaExceeded) {
			r.exhaustedOn = today
			r.log.Warn().Err(err).Str("until", "end of "+today+" UTC").
				Msg("Gemini quota exhausted, summaries will be sent as is")
		}
		return "", fmt.Errorf("generate text: %w", err)
	}

	var resp rewriteResponse
	if err := json.Unmarshal([]byte(responseText), &resp); err != nil {
		// Пытаемся извлечь JSON из текста, если модель добавила лишнее
		cleaned := extractJSON(responseText)
		if cleaned == "" {
			return "", fmt.Errorf("unmarshal response: %w (raw: %s)", err, responseText)
		}
		if err := json.Unmarshal([]byte(cleaned), &resp); err != nil {
			return "", fmt.Errorf("unmarshal cleaned response: %w (raw: %s)", err, responseText)
		}
	}

	// Модель может вернуть разметку или превысить лимит: прогоняем через ту же очистку, что и ленту
	summary := sources.CleanSummary(resp.Summary, r.maxLen)
	if summary == "" {
		return "", errors.New("gemini returned empty summary")
	}
	return summary, nil
}

func (r *Rewriter) buildPrompt(item news.CandidateItem) string {
	input, _ := json.Marshal(rewriteInput{Title: item.Title, Summary: item.Summary})
	return fmt.Sprintf(`You are the editor of an anime news channel.
You will receive a news item as JSON with a title and a short summary.
Rewrite the summary in English as one or two lively but factual sentences, at most %d characters.
Do not invent facts that are not in the input. Do not use markdown, emoji or hashtags.
Return only a JSON object without additional comments. Format:
{"summary": "<rewritten summary>"}

Input:
%s`, r.maxLen, input)
}

type rewriteInput struct {
	Title   string `json:"title"`
	Summary string `json:"summary"`
}

type rewriteResponse struct {
	Summary string `json:"summary"`
}

// extractJSON достаёт JSON-объект из ответа модели: убирает ```json-блоки и текст вокруг фигурных скобок.
func extractJSON(text string) string {
	text = strings.TrimSpace(text)
	if start := strings.Index(text, "```"); start != -1 {
		rest := text[start+3:]
		rest = strings.TrimPrefix(rest, "json")
		if end := strings.Index(rest, "```"); end != -1 {
			text = strings.TrimSpace(rest[:end])
		}
	}

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start == -1 || end <= start {
		return ""
	}
	return text[start : end+1]
}
