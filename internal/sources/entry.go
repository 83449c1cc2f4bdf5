package sources

import (
	"errors"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
	ext "github.com/mmcdole/gofeed/extensions"

	"github.com/maine/anime_news_bot/internal/news"
)

// ErrNoIdentifier - у записи нет ни id, ни ссылки, дедуплицировать её нечем.
var ErrNoIdentifier = errors.New("entry has neither id nor link")

// Enclosure - вложение RSS-записи.
type Enclosure struct {
	URL  string
	Type string
}

// FeedEntry - запись источника со всеми необязательными полями в явном виде.
type FeedEntry struct {
	ID              string
	Title           string
	Link            string
	Published       string
	PublishedAt     *time.Time
	SummaryHTML     string
	Enclosures      []Enclosure
	MediaContent    []string
	MediaThumbnails []string
}

// entryFromItem раскладывает gofeed.Item в FeedEntry.
func entryFromItem(item *gofeed.Item) FeedEntry {
	entry := FeedEntry{
		ID:          item.GUID,
		Title:       item.Title,
		Link:        item.Link,
		Published:   item.Published,
		PublishedAt: item.PublishedParsed,
		SummaryHTML: item.Description,
	}
	if entry.SummaryHTML == "" {
		entry.SummaryHTML = item.Content
	}
	if entry.PublishedAt == nil && entry.Published == "" {
		entry.Published = item.Updated
		entry.PublishedAt = item.UpdatedParsed
	}

	for _, enc := range item.Enclosures {
		if enc == nil {
			continue
		}
		entry.Enclosures = append(entry.Enclosures, Enclosure{URL: enc.URL, Type: enc.Type})
	}

	if media, ok := item.Extensions["media"]; ok {
		entry.MediaContent = extensionURLs(media["content"])
		entry.MediaThumbnails = extensionURLs(media["thumbnail"])
		// media:group оборачивает content/thumbnail в некоторых лентах
		for _, group := range media["group"] {
			entry.MediaContent = append(entry.MediaContent, extensionURLs(group.Children["content"])...)
			entry.MediaThumbnails = append(entry.MediaThumbnails, extensionURLs(group.Children["thumbnail"])...)
		}
	}
	return entry
}

func extensionURLs(exts []ext.Extension) []string {
	var urls []string
	for _, e := range exts {
		if u := strings.TrimSpace(e.Attrs["url"]); u != "" {
			urls = append(urls, u)
		}
	}
	return urls
}

// Normalizer приводит FeedEntry к news.CandidateItem.
type Normalizer struct {
	MaxSummaryLen int
	Clock         func() time.Time
}

// Normalize реализует правила выбора id, картинки, даты и очистки summary.
func (n Normalizer) Normalize(source string, entry FeedEntry) news.ExtractResult {
	id := singleLine(entry.ID)
	if id == "" {
		id = singleLine(entry.Link)
	}
	if id == "" {
		return news.ExtractResult{Err: ErrNoIdentifier}
	}

	return news.ExtractResult{Item: news.CandidateItem{
		ID:        id,
		Source:    source,
		Title:     strings.TrimSpace(entry.Title),
		Link:      strings.TrimSpace(entry.Link),
		Published: n.published(entry),
		Summary:   CleanSummary(entry.SummaryHTML, n.maxLen()),
		Image:     ResolveImage(entry),
	}}
}

// ResolveImage выбирает картинку: image/* вложение, media:content, media:thumbnail, <img> в summary.
func ResolveImage(entry FeedEntry) string {
	for _, enc := range entry.Enclosures {
		if strings.HasPrefix(strings.ToLower(enc.Type), "image/") && strings.TrimSpace(enc.URL) != "" {
			return strings.TrimSpace(enc.URL)
		}
	}
	if len(entry.MediaContent) > 0 {
		return entry.MediaContent[0]
	}
	if len(entry.MediaThumbnails) > 0 {
		return entry.MediaThumbnails[0]
	}
	return FirstImageSrc(entry.SummaryHTML)
}

func (n Normalizer) maxLen() int {
	if n.MaxSummaryLen <= 0 {
		return 200
	}
	return n.MaxSummaryLen
}

func (n Normalizer) now() time.Time {
	if n.Clock == nil {
		return time.Now()
	}
	return n.Clock()
}

// published возвращает дату в ISO-8601. Если источник даты не дал, берём время получения.
func (n Normalizer) published(entry FeedEntry) string {
	if entry.PublishedAt != nil {
		return entry.PublishedAt.UTC().Format(time.RFC3339)
	}
	raw := strings.TrimSpace(entry.Published)
	if raw == "" {
		return n.now().UTC().Format(time.RFC3339)
	}
	if t, ok := parseTime(raw); ok {
		return t.UTC().Format(time.RFC3339)
	}
	return raw
}

// lineBreaks заменяет переводы строк: файл просмотренных id хранит по одному id на строку.
var lineBreaks = strings.NewReplacer("\r\n", " ", "\r", " ", "\n", " ")

func singleLine(s string) string {
	return strings.TrimSpace(lineBreaks.Replace(s))
}

func parseTime(value string) (time.Time, bool) {
	formats := []string{
		time.RFC1123Z,
		time.RFC1123,
		time.RFC822Z,
		time.RFC822,
		time.RFC3339,
		"Mon, 02 Jan 2006 15:04:05 MST",
		"02 Jan 2006 15:04:05 MST",
		time.DateOnly,
	}
	for _, f := range formats {
		if t, err := time.Parse(f, value); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
