package sources

import (
	"strings"
	"unicode"

	"github.com/PuerkitoBio/goquery"
)

const ellipsis = "..."

// blockElements получают пробел после себя, чтобы соседние абзацы не слипались.
const blockElements = "p, div, br, li, tr, h1, h2, h3, h4, h5, h6, blockquote"

// parseFragment разбирает HTML-фрагмент из summary. Ошибка возможна только при сбое ридера.
func parseFragment(raw string) (*goquery.Document, error) {
	return goquery.NewDocumentFromReader(strings.NewReader(raw))
}

// StripHTML убирает разметку и схлопывает пробелы.
func StripHTML(raw string) string {
	if strings.TrimSpace(raw) == "" {
		return ""
	}
	doc, err := parseFragment(raw)
	if err != nil {
		return collapseSpaces(raw)
	}
	doc.Find("script, style").Remove()
	doc.Find(blockElements).AfterHtml(" ")
	return collapseSpaces(doc.Text())
}

// FirstImageSrc возвращает src первого <img> в HTML или пустую строку.
func FirstImageSrc(raw string) string {
	if !strings.Contains(raw, "<img") && !strings.Contains(raw, "<IMG") {
		return ""
	}
	doc, err := parseFragment(raw)
	if err != nil {
		return ""
	}
	src, _ := doc.Find("img[src]").First().Attr("src")
	return strings.TrimSpace(src)
}

// Truncate обрезает текст до max рун по границе слова и добавляет "...".
// Итоговая длина вместе с многоточием не превышает max.
func Truncate(text string, max int) string {
	runes := []rune(text)
	if max <= 0 || len(runes) <= max {
		return text
	}
	if max <= len(ellipsis) {
		return string(runes[:max])
	}

	cut := max - len(ellipsis)
	prefix := runes[:cut]
	// Если следующий символ - пробел, prefix уже заканчивается целым словом.
	if !unicode.IsSpace(runes[cut]) {
		if idx := lastSpace(prefix); idx > 0 {
			prefix = prefix[:idx]
		}
	}
	return strings.TrimRightFunc(string(prefix), unicode.IsSpace) + ellipsis
}

// CleanSummary превращает HTML из ленты в короткий plain text.
func CleanSummary(raw string, max int) string {
	return Truncate(StripHTML(raw), max)
}

func lastSpace(runes []rune) int {
	for i := len(runes) - 1; i >= 0; i-- {
		if unicode.IsSpace(runes[i]) {
			return i
		}
	}
	return -1
}

func collapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
