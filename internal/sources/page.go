package sources

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog"

	"github.com/maine/anime_news_bot/internal/config"
	"github.com/maine/anime_news_bot/internal/news"
)

// Renderer отдаёт HTML страницы после выполнения JavaScript.
type Renderer interface {
	Render(ctx context.Context, pageURL, waitSelector string) (string, error)
}

var (
	errNoLink  = errors.New("article has no link")
	errNoTitle = errors.New("article has no title")
)

// PageSource собирает новости со страницы, которую нужно отрендерить в браузере.
type PageSource struct {
	page       config.Page
	renderer   Renderer
	normalizer Normalizer
	log        zerolog.Logger
}

// NewPageSource создаёт источник для отрендеренной страницы.
func NewPageSource(page config.Page, renderer Renderer, normalizer Normalizer, log zerolog.Logger) *PageSource {
	if page.Name == "" {
		page.Name = page.URL
	}
	return &PageSource{
		page:       page,
		renderer:   renderer,
		normalizer: normalizer,
		log:        log.With().Str("source", page.Name).Logger(),
	}
}

func (s *PageSource) Name() string {
	return s.page.Name
}

// Fetch реализует app.Source.
func (s *PageSource) Fetch(ctx context.Context) ([]news.CandidateItem, error) {
	html, err := s.renderer.Render(ctx, s.page.URL, s.page.WaitFor())
	if err != nil {
		return nil, fmt.Errorf("render page %s: %w", s.page.URL, err)
	}
	return s.Extract(html)
}

// Extract разбирает отрендеренный HTML. Ошибки отдельных статей логируются и пропускаются.
func (s *PageSource) Extract(html string) ([]news.CandidateItem, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse page html: %w", err)
	}
	base, err := url.Parse(s.page.URL)
	if err != nil {
		return nil, fmt.Errorf("parse page url: %w", err)
	}

	// Дубли ссылок внутри одной страницы отсекаем независимо от файла seen ids.
	seenLinks := make(map[string]struct{})
	var out []news.CandidateItem

	doc.Find(s.page.Selectors.Article).Each(func(i int, sel *goquery.Selection) {
		entry, err := s.extractEntry(sel, base)
		if err != nil {
			s.log.Warn().Err(err).Int("index", i).Msg("skipping article")
			return
		}
		if _, dup := seenLinks[entry.Link]; dup {
			s.log.Debug().Str("link", entry.Link).Msg("duplicate link on page")
			return
		}
		seenLinks[entry.Link] = struct{}{}

		res := s.normalizer.Normalize(s.page.Name, entry)
		if !res.OK() {
			s.log.Warn().Err(res.Err).Int("index", i).Msg("skipping article")
			return
		}
		out = append(out, res.Item)
	})

	return out, nil
}

func (s *PageSource) extractEntry(sel *goquery.Selection, base *url.URL) (FeedEntry, error) {
	selectors := s.page.Selectors

	linkSel := pick(sel, selectors.Link)
	href, _ := linkSel.Attr("href")
	link := resolve(base, href)
	if link == "" {
		return FeedEntry{}, errNoLink
	}

	var title string
	if selectors.Title != "" {
		title = strings.TrimSpace(pick(sel, selectors.Title).Text())
	}
	if title == "" {
		title = strings.TrimSpace(linkSel.Text())
	}
	if title == "" {
		return FeedEntry{}, fmt.Errorf("%w: %s", errNoTitle, link)
	}

	entry := FeedEntry{
		ID:    link,
		Title: title,
		Link:  link,
	}

	if selectors.Summary != "" {
		if summaryHTML, err := sel.Find(selectors.Summary).First().Html(); err == nil {
			entry.SummaryHTML = summaryHTML
		}
	}

	if selectors.Image != "" {
		img := sel.Find(selectors.Image).First()
		src, ok := img.Attr("src")
		if !ok {
			src, _ = img.Attr("data-src")
		}
		if src = resolve(base, src); src != "" {
			entry.MediaContent = []string{src}
		}
	}

	if selectors.Published != "" {
		pub := sel.Find(selectors.Published).First()
		if dt, ok := pub.Attr("datetime"); ok && strings.TrimSpace(dt) != "" {
			entry.Published = strings.TrimSpace(dt)
		} else {
			entry.Published = strings.TrimSpace(pub.Text())
		}
	}

	return entry, nil
}

// pick ищет селектор внутри статьи; пустой селектор или сам элемент-ссылка дают статью целиком.
func pick(sel *goquery.Selection, selector string) *goquery.Selection {
	if strings.TrimSpace(selector) == "" {
		return sel
	}
	if found := sel.Find(selector).First(); found.Length() > 0 {
		return found
	}
	if sel.Is(selector) {
		return sel
	}
	return sel.Find(selector)
}

func resolve(base *url.URL, ref string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" || strings.HasPrefix(ref, "#") || strings.HasPrefix(strings.ToLower(ref), "javascript:") {
		return ""
	}
	u, err := url.Parse(ref)
	if err != nil {
		return ""
	}
	return base.ResolveReference(u).String()
}
