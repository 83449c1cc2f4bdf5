package filter

import (
	"strings"
)

// Filter отсекает новости, в заголовке которых нет ни одного ключевого слова.
type Filter struct {
	keywords []string
}

// New создаёт фильтр. Пустой список ключевых слов пропускает всё.
func New(keywords []string) *Filter {
	normalized := make([]string, 0, len(keywords))
	seen := make(map[string]struct{}, len(keywords))
	for _, kw := range keywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw == "" {
			continue
		}
		if _, dup := seen[kw]; dup {
			continue
		}
		seen[kw] = struct{}{}
		normalized = append(normalized, kw)
	}
	return &Filter{keywords: normalized}
}

// IsRelevant реализует app.RelevanceFilter.
func (f *Filter) IsRelevant(title string) bool {
	if len(f.keywords) == 0 {
		return true
	}
	lower := strings.ToLower(title)
	for _, kw := range f.keywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// Keywords возвращает нормализованный список ключевых слов.
func (f *Filter) Keywords() []string {
	return append([]string(nil), f.keywords...)
}
