package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/maine/anime_news_bot/internal/app"
	"github.com/maine/anime_news_bot/internal/config"
	"github.com/maine/anime_news_bot/internal/filter"
	"github.com/maine/anime_news_bot/internal/formatter"
	"github.com/maine/anime_news_bot/internal/gemini"
	"github.com/maine/anime_news_bot/internal/logging"
	"github.com/maine/anime_news_bot/internal/notify"
	"github.com/maine/anime_news_bot/internal/sources"
	"github.com/maine/anime_news_bot/internal/state"
	"github.com/maine/anime_news_bot/internal/telegram"
	"github.com/maine/anime_news_bot/internal/whatsapp"
)

// service - загруженная конфигурация, из которой собираются компоненты.
type service struct {
	cfg    config.Root
	env    *config.EnvConfig
	log    zerolog.Logger
	dryRun bool
}

// loadService читает .env, конфиг и переменные окружения. Любая ошибка здесь - ошибка старта.
func loadService(cmd *cobra.Command, opts *options) (*service, error) {
	if err := config.LoadDotEnv(opts.envFile); err != nil {
		return nil, err
	}

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, fmt.Errorf("load config %s: %w", opts.configPath, err)
	}

	log := logging.New(logging.Options{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Out:    cmd.ErrOrStderr(),
	})

	var env *config.EnvConfig
	if opts.dryRun {
		// В dry-run каналы не используются, токены не нужны
		env = &config.EnvConfig{GeminiAPIKey: os.Getenv("GEMINI_API_KEY")}
	} else {
		env, err = config.LoadEnvConfig(cfg)
		if err != nil {
			return nil, fmt.Errorf("load env config: %w", err)
		}
	}

	return &service{cfg: cfg, env: env, log: log, dryRun: opts.dryRun}, nil
}

// pipeline собирает пайплайн со всеми зависимостями.
func (rt *service) pipeline(ctx context.Context) (*app.Pipeline, error) {
	notifier, err := rt.notifier()
	if err != nil {
		return nil, err
	}
	rewriter, err := rt.rewriter(ctx)
	if err != nil {
		return nil, err
	}

	relevance := filter.New(rt.cfg.Filter.Keywords)
	rt.log.Debug().Strs("keywords", relevance.Keywords()).Msg("Relevance filter ready")

	return app.NewPipeline(app.PipelineDeps{
		Source:       rt.source(),
		Filter:       relevance,
		Seen:         state.NewSeenStore(rt.cfg.Storage.SeenPath),
		Quota:        state.NewQuotaTracker(rt.cfg.Storage.QuotaPath, rt.cfg.Quota.DailyLimit, time.Now, rt.log),
		Formatter:    formatter.New(rt.cfg.Notify),
		Notifier:     notifier,
		Rewriter:     rewriter,
		SendInterval: rt.cfg.Notify.SendInterval.Std(),
		DryRun:       rt.dryRun,
		Log:          rt.log,
	}), nil
}

// source собирает все настроенные ленты и страницу в один источник.
func (rt *service) source() app.Source {
	src := rt.cfg.Source
	httpClient := &http.Client{Timeout: src.FetchTimeout.Std()}
	normalizer := sources.Normalizer{MaxSummaryLen: src.MaxSummaryLen}

	var named []sources.Named
	for _, feed := range src.Feeds {
		named = append(named, sources.NewFeedSource(feed, httpClient, src.UserAgent, normalizer, rt.log))
	}
	if page := src.Page; page != nil {
		renderer := sources.NewChromeRenderer(page.RenderTimeout.Std(), src.UserAgent)
		named = append(named, sources.NewPageSource(*page, renderer, normalizer, rt.log))
	}
	return sources.NewMulti(rt.log, named...)
}

// notifier собирает каналы доставки. В dry-run сообщения только пишутся в лог.
func (rt *service) notifier() (app.Notifier, error) {
	if rt.dryRun {
		return notify.NewDryRun(rt.log), nil
	}

	var channels []notify.Channel
	if rt.cfg.Notify.WhatsApp.Enabled {
		client := whatsapp.NewClient(rt.env.TwilioAccountSID, rt.env.TwilioAuthToken)
		channels = append(channels, whatsapp.NewNotifier(client, rt.env.WhatsAppFrom, rt.env.WhatsAppTo, rt.log))
	}
	if rt.cfg.Notify.Telegram.Enabled {
		bot, err := telegram.NewClient(rt.env.TelegramBotToken)
		if err != nil {
			return nil, err
		}
		channels = append(channels, telegram.NewNotifier(bot, rt.env.TelegramChatID, rt.log))
	}
	if len(channels) == 0 {
		return nil, config.ErrNoChannel
	}
	return notify.NewFanout(rt.log, channels...), nil
}

// rewriter возвращает nil, если переписывание summary выключено.
func (rt *service) rewriter(ctx context.Context) (app.Rewriter, error) {
	if !rt.cfg.Gemini.Enabled {
		return nil, nil
	}
	if rt.env.GeminiAPIKey == "" {
		if rt.dryRun {
			rt.log.Warn().Msg("GEMINI_API_KEY not set, dry run continues without summary rewrite")
			return nil, nil
		}
		return nil, fmt.Errorf("GEMINI_API_KEY is required when gemini.enabled is true")
	}

	client, err := gemini.NewClient(ctx, rt.env.GeminiAPIKey)
	if err != nil {
		return nil, err
	}
	return gemini.NewRewriter(client, rt.cfg.Gemini.Model, rt.cfg.Source.MaxSummaryLen, rt.log), nil
}
