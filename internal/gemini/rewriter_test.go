package gemini

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"github.com/maine/anime_news_bot/internal/news"
)

// mockGeminiClient - мок для тестирования Rewriter
type mockGeminiClient struct {
	generateTextFunc func(ctx context.Context, model string, prompt string) (string, error)
	calls            int
	lastModel        string
	lastPrompt       string
}

func (m *mockGeminiClient) GenerateText(ctx context.Context, model string, prompt string) (string, error) {
	m.calls++
	m.lastModel = model
	m.lastPrompt = prompt
	if m.generateTextFunc != nil {
		return m.generateTextFunc(ctx, model, prompt)
	}
	return `{"summary": "ok"}`, nil
}

func testItem() news.CandidateItem {
	return news.CandidateItem{
		ID:      "cr-1",
		Title:   "Chainsaw Man Movie Release Date",
		Summary: "MAPPA confirmed the Reze arc movie will premiere next fall.",
	}
}

func TestRewriter_Rewrite(t *testing.T) {
	tests := []struct {
		name     string
		response string
		err      error
		want     string
		wantErr  bool
	}{
		{
			name:     "plain json",
			response: `{"summary": "The Reze arc hits theaters next fall, MAPPA says."}`,
			want:     "The Reze arc hits theaters next fall, MAPPA says.",
		},
		{
			name:     "json in code block",
			response: "Sure!\n```json\n{\"summary\": \"Reze arc movie confirmed.\"}\n```",
			want:     "Reze arc movie confirmed.",
		},
		{
			name:     "markup stripped",
			response: `{"summary": "<b>Reze</b> arc   movie confirmed."}`,
			want:     "Reze arc movie confirmed.",
		},
		{
			name:     "not json",
			response: "I cannot help with that.",
			wantErr:  true,
		},
		{
			name:     "empty summary",
			response: `{"summary": "  "}`,
			wantErr:  true,
		},
		{
			name:    "api error",
			err:     errors.New("generate content: 500 internal server error"),
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := &mockGeminiClient{
				generateTextFunc: func(ctx context.Context, model string, prompt string) (string, error) {
					return tt.response, tt.err
				},
			}
			r := NewRewriter(client, "gemini-2.5-flash", 200, zerolog.Nop())

			got, err := r.Rewrite(context.Background(), testItem())
			if (err != nil) != tt.wantErr {
				t.Fatalf("Rewrite() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("Rewrite() = %q, want %q", got, tt.want)
			}
			if client.lastModel != "gemini-2.5-flash" {
				t.Errorf("model = %q", client.lastModel)
			}
		})
	}
}

func TestRewriter_PromptContainsItem(t *testing.T) {
	client := &mockGeminiClient{}
	r := NewRewriter(client, "m", 150, zerolog.Nop())

	if _, err := r.Rewrite(context.Background(), testItem()); err != nil {
		t.Fatalf("Rewrite() error = %v", err)
	}
	for _, want := range []string{"Chainsaw Man Movie Release Date", "Reze arc", "at most 150 characters"} {
		if !strings.Contains(client.lastPrompt, want) {
			t.Errorf("prompt should contain %q", want)
		}
	}
}

func TestRewriter_ResultBounded(t *testing.T) {
	long := strings.Repeat("sakuga ", 100)
	client := &mockGeminiClient{
		generateTextFunc: func(ctx context.Context, model string, prompt string) (string, error) {
			return `{"summary": "` + long + `"}`, nil
		},
	}
	r := NewRewriter(client, "m", 50, zerolog.Nop())

	got, err := r.Rewrite(context.Background(), testItem())
	if err != nil {
		t.Fatalf("Rewrite() error = %v", err)
	}
	if n := utf8.RuneCountInString(got); n > 50 {
		t.Errorf("len = %d, want <= 50", n)
	}
	if !strings.HasSuffix(got, "...") {
		t.Errorf("Rewrite() = %q, want ellipsis", got)
	}
}

func TestRewriter_EmptySummarySkipsCall(t *testing.T) {
	client := &mockGeminiClient{}
	r := NewRewriter(client, "m", 200, zerolog.Nop())
	item := testItem()
	item.Summary = ""

	got, err := r.Rewrite(context.Background(), item)
	if err != nil || got != "" {
		t.Errorf("Rewrite() = %q, %v; want empty, nil", got, err)
	}
	if client.calls != 0 {
		t.Errorf("GenerateText calls = %d, want 0", client.calls)
	}
}

func TestRewriter_QuotaExhaustedStopsCalls(t *testing.T) {
	client := &mockGeminiClient{
		generateTextFunc: func(ctx context.Context, model string, prompt string) (string, error) {
			return "", ErrQuotaExceeded
		},
	}
	r := NewRewriter(client, "m", 200, zerolog.Nop())
	now := time.Date(2026, 10, 19, 22, 0, 0, 0, time.UTC)
	r.now = func() time.Time { return now }

	for i := 0; i < 3; i++ {
		if _, err := r.Rewrite(context.Background(), testItem()); !errors.Is(err, ErrQuotaExceeded) {
			t.Fatalf("Rewrite() error = %v, want ErrQuotaExceeded", err)
		}
	}
	if client.calls != 1 {
		t.Errorf("GenerateText calls = %d, want 1", client.calls)
	}

	// После полуночи UTC Gemini снова вызывается
	now = now.Add(3 * time.Hour)
	client.generateTextFunc = func(ctx context.Context, model string, prompt string) (string, error) {
		return `{"summary": "Fresh summary."}`, nil
	}
	got, err := r.Rewrite(context.Background(), testItem())
	if err != nil {
		t.Fatalf("Rewrite() on next day error = %v", err)
	}
	if got != "Fresh summary." {
		t.Errorf("Rewrite() = %q, want Fresh summary.", got)
	}
	if client.calls != 2 {
		t.Errorf("GenerateText calls = %d, want 2", client.calls)
	}
}

func TestIsQuotaExceededError(t *testing.T) {
	tests := []struct {
		errStr string
		want   bool
	}{
		{"Error 429, Message: Quota exceeded for metric: generativelanguage.googleapis.com/generate_content_free_tier_requests, limit: 20", true},
		{"Error 429, Message: Resource exhausted. Please try again later.", false},
		{"Error 403: quota project not set", true},
		{"Error 500: internal server error", false},
	}

	for _, tt := range tests {
		if got := isQuotaExceededError(tt.errStr); got != tt.want {
			t.Errorf("isQuotaExceededError(%q) = %v, want %v", tt.errStr, got, tt.want)
		}
	}
}
