package sources

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/maine/anime_news_bot/internal/news"
)

// Named - источник с именем для логов.
type Named interface {
	Name() string
	Fetch(ctx context.Context) ([]news.CandidateItem, error)
}

// Multi опрашивает источники по очереди и склеивает результаты.
type Multi struct {
	sources []Named
	log     zerolog.Logger
}

func NewMulti(log zerolog.Logger, sources ...Named) *Multi {
	return &Multi{sources: sources, log: log}
}

// Fetch возвращает ошибку, только если недоступны все источники.
func (m *Multi) Fetch(ctx context.Context) ([]news.CandidateItem, error) {
	var (
		items []news.CandidateItem
		errs  []error
	)
	for _, src := range m.sources {
		got, err := src.Fetch(ctx)
		if err != nil {
			m.log.Warn().Err(err).Str("source", src.Name()).Msg("source fetch failed")
			errs = append(errs, err)
			continue
		}
		m.log.Info().Str("source", src.Name()).Int("items", len(got)).Msg("source fetched")
		items = append(items, got...)
	}
	if len(m.sources) > 0 && len(errs) == len(m.sources) {
		return nil, fmt.Errorf("all sources failed: %w", errors.Join(errs...))
	}
	return items, nil
}
