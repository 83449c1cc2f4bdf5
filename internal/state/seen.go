package state

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/maine/anime_news_bot/internal/news"
)

// SeenStore хранит идентификаторы доставленных новостей: по одному на строку, по возрастанию.
type SeenStore struct {
	path string
}

// NewSeenStore создаёт файловый стор.
func NewSeenStore(path string) *SeenStore {
	return &SeenStore{path: path}
}

func (s *SeenStore) Path() string {
	return s.path
}

// Load читает идентификаторы. Отсутствующий файл - пустое множество.
func (s *SeenStore) Load(ctx context.Context) (news.SeenSet, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return news.NewSeenSet(), nil
		}
		return news.SeenSet{}, fmt.Errorf("read seen ids: %w", err)
	}

	set := news.NewSeenSet()
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		if id := strings.TrimSpace(scanner.Text()); id != "" {
			set.Add(id)
		}
	}
	if err := scanner.Err(); err != nil {
		return news.SeenSet{}, fmt.Errorf("scan seen ids: %w", err)
	}
	return set, nil
}

// Save перезаписывает файл целиком, идентификаторы отсортированы.
func (s *SeenStore) Save(ctx context.Context, set news.SeenSet) error {
	var buf bytes.Buffer
	for _, id := range set.Sorted() {
		buf.WriteString(id)
		buf.WriteByte('\n')
	}
	if err := writeAtomic(s.path, buf.Bytes()); err != nil {
		return fmt.Errorf("save seen ids: %w", err)
	}
	return nil
}
