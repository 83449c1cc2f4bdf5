package news

import (
	"sort"
	"time"
)

// CandidateItem описывает новость сразу после нормализации записи источника.
type CandidateItem struct {
	ID        string `json:"id"`
	Source    string `json:"source"`
	Title     string `json:"title"`
	Link      string `json:"link"`
	Published string `json:"published"`
	Summary   string `json:"summary"`
	Image     string `json:"image,omitempty"`
}

// ExtractResult - результат разбора одной записи источника.
type ExtractResult struct {
	Item CandidateItem
	Err  error
}

// OK сообщает, удалось ли извлечь запись.
func (r ExtractResult) OK() bool {
	return r.Err == nil
}

// SeenSet хранит идентификаторы уже доставленных новостей.
// Копия SeenSet разделяет map с оригиналом.
type SeenSet struct {
	ids map[string]struct{}
}

// NewSeenSet создаёт множество из переданных идентификаторов.
func NewSeenSet(ids ...string) SeenSet {
	s := SeenSet{ids: make(map[string]struct{}, len(ids))}
	for _, id := range ids {
		s.Add(id)
	}
	return s
}

func (s SeenSet) Contains(id string) bool {
	_, ok := s.ids[id]
	return ok
}

func (s *SeenSet) Add(id string) {
	if id == "" {
		return
	}
	if s.ids == nil {
		s.ids = make(map[string]struct{})
	}
	s.ids[id] = struct{}{}
}

func (s *SeenSet) Remove(id string) {
	delete(s.ids, id)
}

func (s SeenSet) Len() int {
	return len(s.ids)
}

// Sorted возвращает идентификаторы по возрастанию (так они и пишутся в файл).
func (s SeenSet) Sorted() []string {
	out := make([]string, 0, len(s.ids))
	for id := range s.ids {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// DailyQuota - счётчик отправок за календарный день (UTC).
type DailyQuota struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

// QuotaDate форматирует момент времени в дату квоты.
func QuotaDate(t time.Time) string {
	return t.UTC().Format(time.DateOnly)
}

// FormattedMessage - сообщение, готовое к отрисовке конкретным провайдером.
type FormattedMessage struct {
	ItemID    string
	Header    string
	Title     string
	Published string
	Summary   string
	Link      string
	MediaURL  string
}

// SendResult описывает исход одной отправки.
type SendResult struct {
	OK                bool
	ProviderMessageID string
	Err               error
}

// Sent создаёт успешный результат.
func Sent(providerMessageID string) SendResult {
	return SendResult{OK: true, ProviderMessageID: providerMessageID}
}

// Failed создаёт неуспешный результат.
func Failed(err error) SendResult {
	return SendResult{Err: err}
}

// RunReport подводит итог одного прогона пайплайна.
type RunReport struct {
	Fetched      int
	Relevant     int
	Duplicates   int
	Sent         int
	Failed       int
	QuotaBlocked int
	FetchErr     error
}
