package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DefaultMaxSummaryLen = 200
	DefaultDailyLimit    = 50
	DefaultSendInterval  = time.Second
	DefaultFetchTimeout  = 15 * time.Second
	DefaultRenderTimeout = 20 * time.Second
	DefaultHeader        = "📰 *Nakama News 中間ニュース Update * 📢"
	DefaultSchedule      = "@every 30m"
)

// DefaultKeywords используются, если в конфиге не задан filter.keywords.
var DefaultKeywords = []string{
	"anime", "premiere", "episode", "season", "release", "trailer",
	"movie", "manga", "crunchyroll", "simulcast", "dub",
}

// ErrNoSource возвращается, если не настроен ни один источник.
var ErrNoSource = errors.New("no source configured: set source.feeds or source.page")

type (
	// Root объединяет все конфигурационные блоки.
	Root struct {
		Source   Source   `yaml:"source"`
		Filter   Filter   `yaml:"filter"`
		Storage  Storage  `yaml:"storage"`
		Quota    Quota    `yaml:"quota"`
		Notify   Notify   `yaml:"notify"`
		Gemini   Gemini   `yaml:"gemini"`
		Schedule Schedule `yaml:"schedule"`
		Log      Log      `yaml:"log"`
	}

	// Source описывает, откуда брать новости.
	Source struct {
		Feeds         []Feed   `yaml:"feeds"`
		Page          *Page    `yaml:"page,omitempty"`
		MaxSummaryLen int      `yaml:"max_summary_len"`
		FetchTimeout  Duration `yaml:"fetch_timeout"`
		UserAgent     string   `yaml:"user_agent"`
	}

	// Feed - одна RSS/Atom-лента.
	Feed struct {
		Name string `yaml:"name"`
		URL  string `yaml:"url"`
	}

	// Page - страница, которую нужно отрендерить в браузере перед разбором.
	Page struct {
		Name          string    `yaml:"name"`
		URL           string    `yaml:"url"`
		WaitSelector  string    `yaml:"wait_selector"`
		RenderTimeout Duration  `yaml:"render_timeout"`
		Selectors     Selectors `yaml:"selectors"`
	}

	// Selectors - CSS-селекторы для разбора отрендеренной страницы.
	Selectors struct {
		Article   string `yaml:"article"`
		Title     string `yaml:"title"`
		Link      string `yaml:"link"`
		Summary   string `yaml:"summary"`
		Image     string `yaml:"image"`
		Published string `yaml:"published"`
	}

	Filter struct {
		Keywords []string `yaml:"keywords"`
	}

	// Storage - пути к файлам состояния.
	Storage struct {
		SeenPath  string `yaml:"seen_path"`
		QuotaPath string `yaml:"quota_path"`
	}

	Quota struct {
		DailyLimit int `yaml:"daily_limit"`
	}

	// Notify описывает каналы доставки и оформление сообщений.
	Notify struct {
		Header       string   `yaml:"header"`
		SendInterval Duration `yaml:"send_interval"`
		WhatsApp     Channel  `yaml:"whatsapp"`
		Telegram     Channel  `yaml:"telegram"`
	}

	Channel struct {
		Enabled bool `yaml:"enabled"`
	}

	// Gemini содержит настройки переписывания summary.
	Gemini struct {
		Enabled bool   `yaml:"enabled"`
		Model   string `yaml:"model"`
	}

	Schedule struct {
		Spec string `yaml:"spec"`
	}

	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	}
)

// Load читает основной файл конфигурации и заполняет значения по умолчанию.
func Load(path string) (Root, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Root{}, fmt.Errorf("read config: %w", err)
	}
	return Parse(data)
}

// Parse разбирает YAML, применяет значения по умолчанию и валидирует результат.
func Parse(data []byte) (Root, error) {
	var cfg Root
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Root{}, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return Root{}, err
	}
	return cfg, nil
}

func (c *Root) applyDefaults() {
	if c.Source.MaxSummaryLen <= 0 {
		c.Source.MaxSummaryLen = DefaultMaxSummaryLen
	}
	if c.Source.FetchTimeout <= 0 {
		c.Source.FetchTimeout = Duration(DefaultFetchTimeout)
	}
	if c.Source.Page != nil && c.Source.Page.RenderTimeout <= 0 {
		c.Source.Page.RenderTimeout = Duration(DefaultRenderTimeout)
	}
	if c.Filter.Keywords == nil {
		c.Filter.Keywords = append([]string(nil), DefaultKeywords...)
	}
	if strings.TrimSpace(c.Storage.SeenPath) == "" {
		c.Storage.SeenPath = "state/seen_ids.txt"
	}
	if strings.TrimSpace(c.Storage.QuotaPath) == "" {
		c.Storage.QuotaPath = "state/daily_count.json"
	}
	if c.Quota.DailyLimit <= 0 {
		c.Quota.DailyLimit = DefaultDailyLimit
	}
	if c.Notify.Header == "" {
		c.Notify.Header = DefaultHeader
	}
	if c.Notify.SendInterval <= 0 {
		c.Notify.SendInterval = Duration(DefaultSendInterval)
	}
	if c.Gemini.Model == "" {
		c.Gemini.Model = "gemini-2.5-flash"
	}
	if strings.TrimSpace(c.Schedule.Spec) == "" {
		c.Schedule.Spec = DefaultSchedule
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}

// Validate проверяет, что конфигурация пригодна для запуска.
func (c Root) Validate() error {
	if len(c.Source.Feeds) == 0 && c.Source.Page == nil {
		return ErrNoSource
	}
	for i, f := range c.Source.Feeds {
		if strings.TrimSpace(f.URL) == "" {
			return fmt.Errorf("source.feeds[%d]: url is required", i)
		}
	}
	if p := c.Source.Page; p != nil {
		if strings.TrimSpace(p.URL) == "" {
			return fmt.Errorf("source.page: url is required")
		}
		if strings.TrimSpace(p.Selectors.Article) == "" || strings.TrimSpace(p.Selectors.Link) == "" {
			return fmt.Errorf("source.page: selectors.article and selectors.link are required")
		}
	}
	return nil
}

// WaitFor возвращает селектор ожидания; по умолчанию ждём сами статьи.
func (p Page) WaitFor() string {
	if s := strings.TrimSpace(p.WaitSelector); s != "" {
		return s
	}
	return p.Selectors.Article
}
