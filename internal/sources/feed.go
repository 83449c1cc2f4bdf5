package sources

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/mmcdole/gofeed"
	"github.com/rs/zerolog"

	"github.com/maine/anime_news_bot/internal/config"
	"github.com/maine/anime_news_bot/internal/news"
)

const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// FeedSource загружает новости из RSS/Atom-ленты.
type FeedSource struct {
	name       string
	url        string
	parser     *gofeed.Parser
	normalizer Normalizer
	log        zerolog.Logger
}

// NewFeedSource создаёт источник для одной ленты.
func NewFeedSource(feed config.Feed, client *http.Client, userAgent string, normalizer Normalizer, log zerolog.Logger) *FeedSource {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	if userAgent == "" {
		userAgent = defaultUserAgent
	}

	parser := gofeed.NewParser()
	parser.Client = client
	parser.UserAgent = userAgent

	name := feed.Name
	if name == "" {
		name = feed.URL
	}

	return &FeedSource{
		name:       name,
		url:        feed.URL,
		parser:     parser,
		normalizer: normalizer,
		log:        log.With().Str("source", name).Logger(),
	}
}

func (s *FeedSource) Name() string {
	return s.name
}

// Fetch реализует app.Source. Ошибка означает, что лента недоступна целиком.
func (s *FeedSource) Fetch(ctx context.Context) ([]news.CandidateItem, error) {
	feed, err := s.parser.ParseURLWithContext(s.url, ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch feed %s: %w", s.url, err)
	}
	return s.normalize(feed.Items), nil
}

func (s *FeedSource) normalize(items []*gofeed.Item) []news.CandidateItem {
	out := make([]news.CandidateItem, 0, len(items))
	for i, item := range items {
		if item == nil {
			continue
		}
		res := s.normalizer.Normalize(s.name, entryFromItem(item))
		if !res.OK() {
			s.log.Warn().Err(res.Err).Int("index", i).Str("title", item.Title).Msg("skipping feed entry")
			continue
		}
		s.log.Debug().Str("item_id", res.Item.ID).Str("image", res.Item.Image).Msg("entry extracted")
		out = append(out, res.Item)
	}
	return out
}
