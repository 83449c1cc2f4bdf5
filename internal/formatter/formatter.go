package formatter

import (
	"strings"
	"unicode/utf8"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/maine/anime_news_bot/internal/config"
	"github.com/maine/anime_news_bot/internal/news"
)

const (
	// TelegramCaptionLimit - максимальная длина подписи к фото в Telegram
	TelegramCaptionLimit = 1024
	// TelegramMessageLimit - максимальная длина текстового сообщения в Telegram
	TelegramMessageLimit = 4096
	// TestGreeting - текст проверочного сообщения команды test-message
	TestGreeting = "Hello Nakama! 🌟 This is a test message from the anime news bot."

	ellipsis = "..."
)

// Formatter реализует app.Formatter: превращает новость в сообщение для каналов.
type Formatter struct {
	header string
}

// New создаёт форматтер с заголовком из конфига.
func New(cfg config.Notify) *Formatter {
	header := cfg.Header
	if header == "" {
		header = config.DefaultHeader
	}
	return &Formatter{header: header}
}

// Build реализует app.Formatter.
func (f *Formatter) Build(item news.CandidateItem) news.FormattedMessage {
	return news.FormattedMessage{
		ItemID:    item.ID,
		Header:    f.header,
		Title:     strings.TrimSpace(item.Title),
		Published: item.Published,
		Summary:   item.Summary,
		Link:      item.Link,
		MediaURL:  item.Image,
	}
}

// TestMessage возвращает сообщение для проверки каналов доставки.
func TestMessage() news.FormattedMessage {
	return news.FormattedMessage{ItemID: "test-message", Summary: TestGreeting}
}

// RenderWhatsApp собирает тело сообщения в разметке WhatsApp:
//
//	header
//	*title*
//	_Published: ..._
//
//	summary
//
//	👉 Read more: link
//
// Пустые части пропускаются.
func RenderWhatsApp(msg news.FormattedMessage) string {
	var top []string
	if msg.Header != "" {
		top = append(top, msg.Header)
	}
	if msg.Title != "" {
		top = append(top, "*"+msg.Title+"*")
	}
	if msg.Published != "" {
		top = append(top, "_Published: "+msg.Published+"_")
	}

	blocks := []string{strings.Join(top, "\n"), msg.Summary}
	if msg.Link != "" {
		blocks = append(blocks, "👉 Read more: "+msg.Link)
	}
	return joinBlocks(blocks)
}

// RenderTelegramHTML собирает то же сообщение в HTML-разметке Telegram.
// Звёздочки markdown из заголовка убираются, текст экранируется.
func RenderTelegramHTML(msg news.FormattedMessage) string {
	return renderTelegram(msg, TelegramMessageLimit)
}

// RenderTelegramCaption - как RenderTelegramHTML, но укладывается в лимит подписи к фото.
// Обрезается summary, разметка остаётся целой.
func RenderTelegramCaption(msg news.FormattedMessage) string {
	return renderTelegram(msg, TelegramCaptionLimit)
}

func renderTelegram(msg news.FormattedMessage, limit int) string {
	var top []string
	if h := plainHeader(msg.Header); h != "" {
		top = append(top, "<b>"+escape(h)+"</b>")
	}
	if msg.Title != "" {
		top = append(top, "<b>"+escape(msg.Title)+"</b>")
	}
	if msg.Published != "" {
		top = append(top, "<i>Published: "+escape(msg.Published)+"</i>")
	}
	head := strings.Join(top, "\n")
	tail := ""
	if msg.Link != "" {
		tail = "👉 Read more: " + escape(msg.Link)
	}

	withoutSummary := joinBlocks([]string{head, tail})
	budget := limit - utf8.RuneCountInString(withoutSummary)
	if withoutSummary != "" {
		budget -= len("\n\n")
	}

	rendered := joinBlocks([]string{head, fitEscaped(msg.Summary, budget), tail})
	if utf8.RuneCountInString(rendered) > limit {
		// Заголовок и ссылка сами не влезают: режем по символам как есть
		rendered = string([]rune(rendered)[:limit])
	}
	return rendered
}

// plainHeader убирает markdown-звёздочки и лишние пробелы из заголовка.
func plainHeader(header string) string {
	return strings.Join(strings.Fields(strings.ReplaceAll(header, "*", "")), " ")
}

// fitEscaped экранирует s и при необходимости обрезает так, чтобы результат с многоточием
// занимал не больше budget символов. Сущности вроде &amp; не разрываются.
func fitEscaped(s string, budget int) string {
	if budget <= 0 || s == "" {
		return ""
	}
	esc := escape(s)
	if utf8.RuneCountInString(esc) <= budget {
		return esc
	}
	runes := []rune(s)
	n := min(len(runes), budget-len(ellipsis))
	for ; n > 0; n-- {
		cut := escape(strings.TrimRight(string(runes[:n]), " ")) + ellipsis
		if utf8.RuneCountInString(cut) <= budget {
			return cut
		}
	}
	return ""
}

func escape(s string) string {
	return tgbotapi.EscapeText(tgbotapi.ModeHTML, s)
}

func joinBlocks(blocks []string) string {
	out := make([]string, 0, len(blocks))
	for _, b := range blocks {
		if b != "" {
			out = append(out, b)
		}
	}
	return strings.Join(out, "\n\n")
}
