package discord

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildEmbed(t *testing.T) {
	at := time.Date(2026, 1, 1, 12, 5, 0, 0, time.UTC)
	jst := time.FixedZone("JST", 9*60*60)

	e := BuildEmbed("配信開始!", "alice が配信を開始しました", at, jst)

	assert.Equal(t, "配信開始!", e.Title)
	assert.Equal(t, "alice が配信を開始しました", e.Description)
	assert.Equal(t, colorLive, e.Color)
	assert.Equal(t, "2026-01-01T12:05:00Z", e.Timestamp)
	require.Len(t, e.Fields, 1)
	assert.Equal(t, "21:05", e.Fields[0].Value)

	assert.Equal(t, "配信開始", BuildEmbed("", "", at, nil).Title)
}

func TestNotifier_Send(t *testing.T) {
	var (
		mu       sync.Mutex
		payloads []WebhookPayload
	)
	ok := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var p WebhookPayload
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&p))
		mu.Lock()
		payloads = append(payloads, p)
		mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	}))
	defer ok.Close()

	broken := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer broken.Close()

	n := NewNotifier([]string{ok.URL, ok.URL, broken.URL}, "LiveNotifier", time.UTC)

	report, err := n.Send(context.Background(), "配信開始!", "alice が配信を開始しました")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
	assert.Equal(t, 2, report.Sent)
	assert.Equal(t, 1, report.Failed)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, payloads, 2)
	assert.Equal(t, "LiveNotifier", payloads[0].Username)
	require.Len(t, payloads[0].Embeds, 1)
	assert.Equal(t, "配信開始!", payloads[0].Embeds[0].Title)
}

func TestNotifier_SendNoWebhooks(t *testing.T) {
	report, err := NewNotifier(nil, "", nil).Send(context.Background(), "t", "b")
	require.NoError(t, err)
	assert.Zero(t, report.Sent)
	assert.Zero(t, report.Failed)
}

func TestSendWebhook_TransportErrorHidesURL(t *testing.T) {
	webhookURL := "http://127.0.0.1:1/api/webhooks/123/SECRET-WEBHOOK-TOKEN"
	client := &http.Client{Timeout: 5 * time.Second}

	err := SendWebhook(context.Background(), client, webhookURL, Embed{Title: "t"}, "")
	require.Error(t, err)
	assert.NotContains(t, err.Error(), "SECRET-WEBHOOK-TOKEN")
	assert.Contains(t, err.Error(), "Webhook送信に失敗")
}
