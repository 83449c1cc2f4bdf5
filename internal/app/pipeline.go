package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/maine/anime_news_bot/internal/news"
)

// ErrNotConfigured возвращается, когда пайплайн запущен без обязательных зависимостей.
var ErrNotConfigured = errors.New("pipeline dependencies not configured")

// Stage - состояние пайплайна, пишется в логи полем stage.
type Stage string

const (
	StageFetching   Stage = "fetching"
	StageFiltering  Stage = "filtering"
	StageDeduping   Stage = "deduping"
	StageSending    Stage = "sending"
	StagePersisting Stage = "persisting"
	StageDone       Stage = "done"
)

// Source получает свежие новости. Каждый вызов заново опрашивает источник.
type Source interface {
	Fetch(ctx context.Context) ([]news.CandidateItem, error)
}

// RelevanceFilter решает, относится ли новость к теме канала.
type RelevanceFilter interface {
	IsRelevant(title string) bool
}

// SeenStore хранит идентификаторы уже доставленных новостей.
type SeenStore interface {
	Load(ctx context.Context) (news.SeenSet, error)
	Save(ctx context.Context, set news.SeenSet) error
}

// QuotaTracker ограничивает число отправок в сутки.
type QuotaTracker interface {
	Load(ctx context.Context) (news.DailyQuota, error)
	Remaining() bool
	IncrementAndSave(ctx context.Context) error
	State() news.DailyQuota
	Limit() int
}

// Formatter превращает новость в сообщение для каналов.
type Formatter interface {
	Build(item news.CandidateItem) news.FormattedMessage
}

// Notifier доставляет одно сообщение.
type Notifier interface {
	Send(ctx context.Context, msg news.FormattedMessage) news.SendResult
}

// Rewriter переписывает summary перед отправкой (опционально).
type Rewriter interface {
	Rewrite(ctx context.Context, item news.CandidateItem) (string, error)
}

// Pacer выдерживает паузу между отправками. *rate.Limiter подходит.
type Pacer interface {
	Wait(ctx context.Context) error
}

// PipelineDeps перечисляет зависимости пайплайна.
type PipelineDeps struct {
	Source    Source
	Filter    RelevanceFilter
	Seen      SeenStore
	Quota     QuotaTracker
	Formatter Formatter
	Notifier  Notifier
	Rewriter  Rewriter
	Pacer     Pacer
	// SendInterval используется, если Pacer не задан.
	SendInterval time.Duration
	// DryRun не трогает файлы состояния и квоту.
	DryRun bool
	Log    zerolog.Logger
}

// Pipeline инкапсулирует один прогон: fetch → filter → dedup → quota → notify → persist.
type Pipeline struct {
	source    Source
	filter    RelevanceFilter
	seen      SeenStore
	quota     QuotaTracker
	formatter Formatter
	notifier  Notifier
	rewriter  Rewriter
	pacer     Pacer
	dryRun    bool
	log       zerolog.Logger
}

// NewPipeline создаёт новый экземпляр пайплайна.
func NewPipeline(deps PipelineDeps) *Pipeline {
	pacer := deps.Pacer
	if pacer == nil {
		limit := rate.Inf
		if deps.SendInterval > 0 {
			limit = rate.Every(deps.SendInterval)
		}
		pacer = rate.NewLimiter(limit, 1)
	}

	return &Pipeline{
		source:    deps.Source,
		filter:    deps.Filter,
		seen:      deps.Seen,
		quota:     deps.Quota,
		formatter: deps.Formatter,
		notifier:  deps.Notifier,
		rewriter:  deps.Rewriter,
		pacer:     pacer,
		dryRun:    deps.DryRun,
		log:       deps.Log,
	}
}

// Run исполняет полный цикл обработки новостей.
// Ошибка возвращается только при неполной конфигурации и сбоях чтения/записи файлов состояния;
// сбои источника и отдельных отправок логируются и попадают в RunReport.
func (p *Pipeline) Run(ctx context.Context) (news.RunReport, error) {
	var report news.RunReport
	if err := p.validateDeps(); err != nil {
		return report, err
	}

	seen, err := p.seen.Load(ctx)
	if err != nil {
		return report, fmt.Errorf("load seen ids: %w", err)
	}
	quota, err := p.quota.Load(ctx)
	if err != nil {
		return report, fmt.Errorf("load daily quota: %w", err)
	}
	p.log.Debug().Int("seen", seen.Len()).Str("quota_date", quota.Date).Int("quota_count", quota.Count).
		Msg("State loaded")

	items := p.fetch(ctx, &report)
	relevant := p.relevant(items, &report)
	pending := p.dedup(relevant, &seen, &report)
	p.send(ctx, pending, &seen, &report)

	if err := p.persist(ctx, seen); err != nil {
		return report, err
	}

	quotaState := p.quota.State()
	p.log.Info().Str("stage", string(StageDone)).
		Int("fetched", report.Fetched).
		Int("relevant", report.Relevant).
		Int("duplicates", report.Duplicates).
		Int("sent", report.Sent).
		Int("failed", report.Failed).
		Int("quota_blocked", report.QuotaBlocked).
		Str("quota_date", quotaState.Date).
		Int("quota_used", quotaState.Count).
		Int("quota_limit", p.quota.Limit()).
		Msg("Run finished")
	return report, nil
}

func (p *Pipeline) fetch(ctx context.Context, report *news.RunReport) []news.CandidateItem {
	log := p.log.With().Str("stage", string(StageFetching)).Logger()

	items, err := p.source.Fetch(ctx)
	if err != nil {
		// Источник недоступен целиком: прогон продолжается без новостей
		log.Warn().Err(err).Msg("Fetch failed, continuing with zero items")
		report.FetchErr = err
		return nil
	}
	report.Fetched = len(items)
	log.Info().Int("items", len(items)).Msg("Fetched items")
	return items
}

func (p *Pipeline) relevant(items []news.CandidateItem, report *news.RunReport) []news.CandidateItem {
	out := make([]news.CandidateItem, 0, len(items))
	for _, item := range items {
		if !p.filter.IsRelevant(item.Title) {
			p.log.Debug().Str("stage", string(StageFiltering)).Str("item_id", item.ID).Str("title", item.Title).
				Msg("Item not relevant")
			continue
		}
		out = append(out, item)
	}
	report.Relevant = len(out)
	return out
}

// dedup отбрасывает уже доставленные новости и сразу помечает остальные в памяти.
// Повторы внутри одного fetch отсекаются той же проверкой.
func (p *Pipeline) dedup(items []news.CandidateItem, seen *news.SeenSet, report *news.RunReport) []news.CandidateItem {
	out := make([]news.CandidateItem, 0, len(items))
	for _, item := range items {
		if seen.Contains(item.ID) {
			report.Duplicates++
			p.log.Debug().Str("stage", string(StageDeduping)).Str("item_id", item.ID).Msg("Already seen")
			continue
		}
		seen.Add(item.ID)
		out = append(out, item)
	}
	p.log.Info().Str("stage", string(StageDeduping)).Int("new", len(out)).Int("duplicates", report.Duplicates).
		Msg("Deduplicated items")
	return out
}

func (p *Pipeline) send(ctx context.Context, items []news.CandidateItem, seen *news.SeenSet, report *news.RunReport) {
	log := p.log.With().Str("stage", string(StageSending)).Logger()

	for i, item := range items {
		if err := ctx.Err(); err != nil {
			log.Warn().Err(err).Int("left", len(items)-i).Msg("Run cancelled, remaining items will be retried")
			unmark(seen, items[i:])
			return
		}
		if !p.quota.Remaining() {
			report.QuotaBlocked = len(items) - i
			log.Warn().Int("left", report.QuotaBlocked).Msg("Daily quota exhausted, remaining items will be retried")
			unmark(seen, items[i:])
			return
		}

		item = p.rewrite(ctx, item)
		msg := p.formatter.Build(item)

		if err := p.pacer.Wait(ctx); err != nil {
			log.Warn().Err(err).Int("left", len(items)-i).Msg("Run cancelled, remaining items will be retried")
			unmark(seen, items[i:])
			return
		}

		res := p.notifier.Send(ctx, msg)
		if !res.OK {
			report.Failed++
			seen.Remove(item.ID)
			log.Error().Err(res.Err).Str("item_id", item.ID).Str("title", item.Title).Msg("Send failed")
			continue
		}

		report.Sent++
		log.Info().Str("item_id", item.ID).Str("provider_id", res.ProviderMessageID).Msg("Item sent")

		if p.dryRun {
			continue
		}
		if err := p.quota.IncrementAndSave(ctx); err != nil {
			// Без сохранённого счётчика квота может быть превышена: дальше не отправляем
			log.Error().Err(err).Str("item_id", item.ID).Msg("Save daily quota failed, stopping sends")
			unmark(seen, items[i+1:])
			return
		}
	}
}

func (p *Pipeline) rewrite(ctx context.Context, item news.CandidateItem) news.CandidateItem {
	if p.rewriter == nil {
		return item
	}
	summary, err := p.rewriter.Rewrite(ctx, item)
	if err != nil {
		p.log.Warn().Err(err).Str("stage", string(StageSending)).Str("item_id", item.ID).
			Msg("Summary rewrite failed, using original")
		return item
	}
	item.Summary = summary
	return item
}

func (p *Pipeline) persist(ctx context.Context, seen news.SeenSet) error {
	log := p.log.With().Str("stage", string(StagePersisting)).Logger()
	if p.dryRun {
		log.Info().Msg("Dry run: state files left untouched")
		return nil
	}
	if err := p.seen.Save(ctx, seen); err != nil {
		return fmt.Errorf("persist seen ids: %w", err)
	}
	log.Debug().Int("seen", seen.Len()).Msg("Seen ids saved")
	return nil
}

func unmark(seen *news.SeenSet, items []news.CandidateItem) {
	for _, item := range items {
		seen.Remove(item.ID)
	}
}

func (p *Pipeline) validateDeps() error {
	// rewriter опционален
	switch {
	case p.source == nil,
		p.filter == nil,
		p.seen == nil,
		p.quota == nil,
		p.formatter == nil,
		p.notifier == nil,
		p.pacer == nil:
		return ErrNotConfigured
	default:
		return nil
	}
}
