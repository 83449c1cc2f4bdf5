package state

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/maine/anime_news_bot/internal/news"
)

// QuotaTracker считает отправки за текущий день (UTC) и хранит счётчик в JSON-файле.
type QuotaTracker struct {
	path  string
	limit int
	clock func() time.Time
	quota news.DailyQuota
	log   zerolog.Logger
}

// NewQuotaTracker создаёт трекер с дневным лимитом limit.
func NewQuotaTracker(path string, limit int, clock func() time.Time, log zerolog.Logger) *QuotaTracker {
	if clock == nil {
		clock = time.Now
	}
	return &QuotaTracker{
		path:  path,
		limit: limit,
		clock: clock,
		log:   log.With().Str("component", "quota").Logger(),
	}
}

// Load читает счётчик. Если сохранённая дата не сегодняшняя, счётчик обнуляется.
func (q *QuotaTracker) Load(ctx context.Context) (news.DailyQuota, error) {
	today := news.QuotaDate(q.clock())
	q.quota = news.DailyQuota{Date: today}

	data, err := os.ReadFile(q.path)
	if err != nil {
		if os.IsNotExist(err) {
			return q.quota, nil
		}
		return news.DailyQuota{}, fmt.Errorf("read quota file: %w", err)
	}

	var stored news.DailyQuota
	if err := json.Unmarshal(data, &stored); err != nil {
		q.recover(data, err)
		return q.quota, nil
	}
	if stored.Count < 0 {
		q.recover(data, fmt.Errorf("negative count %d", stored.Count))
		return q.quota, nil
	}

	if stored.Date == today {
		q.quota.Count = stored.Count
	}
	return q.quota, nil
}

// Remaining сообщает, можно ли ещё отправлять сегодня.
func (q *QuotaTracker) Remaining() bool {
	q.rollover()
	return q.quota.Count < q.limit
}

// Increment увеличивает счётчик только в памяти.
func (q *QuotaTracker) Increment() {
	q.rollover()
	q.quota.Count++
}

// IncrementAndSave учитывает одну успешную отправку и сразу пишет файл.
func (q *QuotaTracker) IncrementAndSave(ctx context.Context) error {
	q.Increment()
	return q.Save(ctx)
}

// Save пишет текущее состояние в файл.
func (q *QuotaTracker) Save(ctx context.Context) error {
	data, err := json.MarshalIndent(q.quota, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal quota: %w", err)
	}
	if err := writeAtomic(q.path, data); err != nil {
		return fmt.Errorf("save quota: %w", err)
	}
	return nil
}

// recover сохраняет повреждённый файл рядом для диагностики; счётчик дня начинается заново.
func (q *QuotaTracker) recover(data []byte, cause error) {
	brokenPath := q.path + ".broken"
	log := q.log.Warn().Err(cause).Str("path", q.path)
	if err := os.WriteFile(brokenPath, data, 0o644); err != nil {
		log = log.AnErr("backup_err", err)
	} else {
		log = log.Str("backup", brokenPath)
	}
	log.Msg("Quota file corrupted, daily count restarts from zero")
}

func (q *QuotaTracker) Limit() int {
	return q.limit
}

// State возвращает копию текущего состояния.
func (q *QuotaTracker) State() news.DailyQuota {
	q.rollover()
	return q.quota
}

// rollover обнуляет счётчик, если процесс пережил полночь UTC (режим watch).
func (q *QuotaTracker) rollover() {
	today := news.QuotaDate(q.clock())
	if q.quota.Date != today {
		q.quota = news.DailyQuota{Date: today}
	}
}
