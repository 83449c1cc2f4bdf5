package sources

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"
	"github.com/rs/zerolog"

	"github.com/maine/anime_news_bot/internal/config"
)

const maxPageSize = 5 << 20

// feedLinkPatterns - признаки ссылки на ленту в href.
var feedLinkPatterns = []string{"/rss", "/feed", ".rss", ".xml", "/atom"}

// Discoverer ищет RSS/Atom-ленты на странице сайта.
type Discoverer struct {
	client    *http.Client
	userAgent string
	parser    *gofeed.Parser
	log       zerolog.Logger
}

// NewDiscoverer создаёт поисковик лент.
func NewDiscoverer(client *http.Client, userAgent string, log zerolog.Logger) *Discoverer {
	if client == nil {
		client = http.DefaultClient
	}
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	parser := gofeed.NewParser()
	parser.Client = client
	parser.UserAgent = userAgent
	return &Discoverer{client: client, userAgent: userAgent, parser: parser, log: log}
}

// Discover возвращает ленты, найденные на siteURL и успешно разобранные gofeed.
// Если siteURL сам является лентой, возвращается он один.
func (d *Discoverer) Discover(ctx context.Context, siteURL string) ([]config.Feed, error) {
	if feed, err := d.parser.ParseURLWithContext(siteURL, ctx); err == nil {
		return []config.Feed{{Name: feedName(feed, siteURL), URL: siteURL}}, nil
	}

	html, base, err := d.fetchPage(ctx, siteURL)
	if err != nil {
		return nil, err
	}

	var feeds []config.Feed
	for _, candidate := range FeedLinks(html, base) {
		feed, err := d.parser.ParseURLWithContext(candidate, ctx)
		if err != nil {
			d.log.Debug().Err(err).Str("url", candidate).Msg("Candidate is not a feed")
			continue
		}
		feeds = append(feeds, config.Feed{Name: feedName(feed, candidate), URL: candidate})
	}
	return feeds, nil
}

func (d *Discoverer) fetchPage(ctx context.Context, siteURL string) (string, *url.URL, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, siteURL, nil)
	if err != nil {
		return "", nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", d.userAgent)

	resp, err := d.client.Do(req)
	if err != nil {
		return "", nil, fmt.Errorf("fetch %s: %w", siteURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return "", nil, fmt.Errorf("fetch %s: status %d", siteURL, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPageSize))
	if err != nil {
		return "", nil, fmt.Errorf("read %s: %w", siteURL, err)
	}
	return string(body), resp.Request.URL, nil
}

// FeedLinks собирает ссылки-кандидаты на ленты: сначала <link rel="alternate">, затем <a> с rss/feed в href.
// Относительные ссылки разрешаются от base, повторы отбрасываются.
func FeedLinks(html string, base *url.URL) []string {
	doc, err := parseFragment(html)
	if err != nil {
		return nil
	}

	seen := make(map[string]struct{})
	var out []string
	add := func(href string) {
		abs := strings.TrimSuffix(resolve(base, href), "/")
		if abs == "" {
			return
		}
		if _, ok := seen[abs]; ok {
			return
		}
		seen[abs] = struct{}{}
		out = append(out, abs)
	}

	doc.Find(`link[rel="alternate"]`).Each(func(_ int, s *goquery.Selection) {
		typ := strings.ToLower(s.AttrOr("type", ""))
		if strings.Contains(typ, "rss") || strings.Contains(typ, "atom") || strings.Contains(typ, "feed+json") {
			add(s.AttrOr("href", ""))
		}
	})
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href := s.AttrOr("href", "")
		if looksLikeFeed(href) {
			add(href)
		}
	})
	return out
}

func looksLikeFeed(href string) bool {
	lower := strings.ToLower(href)
	for _, pattern := range feedLinkPatterns {
		if strings.Contains(lower, pattern) {
			return true
		}
	}
	return false
}

func feedName(feed *gofeed.Feed, fallback string) string {
	if feed != nil && strings.TrimSpace(feed.Title) != "" {
		return strings.TrimSpace(feed.Title)
	}
	return fallback
}
