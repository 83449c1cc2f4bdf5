package whatsapp

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"

	"github.com/maine/anime_news_bot/internal/news"
)

// mockMessageCreator - мок Twilio API, запоминающий параметры запросов
type mockMessageCreator struct {
	createFunc func(params *twilioApi.CreateMessageParams) (*twilioApi.ApiV2010Message, error)
	calls      []*twilioApi.CreateMessageParams
}

func (m *mockMessageCreator) CreateMessage(params *twilioApi.CreateMessageParams) (*twilioApi.ApiV2010Message, error) {
	m.calls = append(m.calls, params)
	if m.createFunc != nil {
		return m.createFunc(params)
	}
	sid := "SM0123456789"
	return &twilioApi.ApiV2010Message{Sid: &sid}, nil
}

func testMessage() news.FormattedMessage {
	return news.FormattedMessage{
		ItemID:    "cr-7",
		Header:    "📰 *Nakama News 中間ニュース Update * 📢",
		Title:     "Dandadan Season 2 Announced",
		Published: "2026-10-19T09:00:00Z",
		Summary:   "Science SARU returns.",
		Link:      "https://example.com/dandadan",
	}
}

func TestNotifier_Send(t *testing.T) {
	const (
		from = "whatsapp:+14155238886"
		to   = "whatsapp:+819012345678"
	)

	tests := []struct {
		name      string
		mediaURL  string
		createErr error
		wantOK    bool
		wantMedia bool
	}{
		{name: "text only", wantOK: true},
		{name: "with image", mediaURL: "https://example.com/d.jpg", wantOK: true, wantMedia: true},
		{name: "api error", createErr: errors.New("status: 400"), wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := &mockMessageCreator{}
			if tt.createErr != nil {
				client.createFunc = func(*twilioApi.CreateMessageParams) (*twilioApi.ApiV2010Message, error) {
					return nil, tt.createErr
				}
			}
			n := NewNotifier(client, from, to, zerolog.Nop())
			msg := testMessage()
			msg.MediaURL = tt.mediaURL

			res := n.Send(context.Background(), msg)
			if res.OK != tt.wantOK {
				t.Fatalf("Send() OK = %v, want %v (err %v)", res.OK, tt.wantOK, res.Err)
			}
			if tt.wantOK && res.ProviderMessageID != "SM0123456789" {
				t.Errorf("ProviderMessageID = %q", res.ProviderMessageID)
			}
			if !tt.wantOK && !errors.Is(res.Err, tt.createErr) {
				t.Errorf("Err = %v, want wrapped %v", res.Err, tt.createErr)
			}

			if len(client.calls) != 1 {
				t.Fatalf("CreateMessage calls = %d, want 1", len(client.calls))
			}
			p := client.calls[0]
			if p.From == nil || *p.From != from || p.To == nil || *p.To != to {
				t.Errorf("From/To = %v/%v", p.From, p.To)
			}
			if p.Body == nil || !strings.Contains(*p.Body, "*Dandadan Season 2 Announced*") {
				t.Errorf("Body = %v", p.Body)
			}
			if tt.wantMedia {
				if p.MediaUrl == nil || len(*p.MediaUrl) != 1 || (*p.MediaUrl)[0] != tt.mediaURL {
					t.Errorf("MediaUrl = %v, want [%s]", p.MediaUrl, tt.mediaURL)
				}
			} else if p.MediaUrl != nil {
				t.Errorf("MediaUrl = %v, want nil", *p.MediaUrl)
			}
		})
	}
}

func TestNotifier_SendCancelled(t *testing.T) {
	client := &mockMessageCreator{}
	n := NewNotifier(client, "whatsapp:+1", "whatsapp:+2", zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res := n.Send(ctx, testMessage())
	if res.OK || !errors.Is(res.Err, context.Canceled) {
		t.Errorf("Send() = %+v, want context.Canceled", res)
	}
	if len(client.calls) != 0 {
		t.Errorf("CreateMessage calls = %d, want 0", len(client.calls))
	}
}
