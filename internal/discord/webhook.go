package discord

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"
)

// WebhookPayload はDiscord Webhookのペイロード。
type WebhookPayload struct {
	Embeds   []Embed `json:"embeds"`
	Username string  `json:"username,omitempty"`
}

// SendWebhook は単一のWebhookにEmbedを送信する。
func SendWebhook(ctx context.Context, client *http.Client, webhookURL string, embed Embed, username string) error {
	payload := WebhookPayload{
		Embeds:   []Embed{embed},
		Username: username,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("WebhookペイロードのJSON変換に失敗: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("Webhookリクエスト作成に失敗: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("Webhook送信に失敗: %w", stripURL(err))
	}
	defer resp.Body.Close()

	// レスポンスボディを消費してリソースを解放
	respBody, _ := io.ReadAll(resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("Webhook送信失敗: %d %s", resp.StatusCode, string(respBody))
	}

	slog.Debug("Webhook送信成功", "url", truncate(webhookURL, 50))
	return nil
}

// SendToMultipleWebhooks は複数のWebhookにEmbedを並列送信し、成功数と失敗をまとめて返す。
func SendToMultipleWebhooks(ctx context.Context, client *http.Client, webhookURLs []string, embed Embed, username string) (int, error) {
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		sent int
		errs []error
	)
	for i, webhookURL := range webhookURLs {
		wg.Add(1)
		go func(idx int, u string) {
			defer wg.Done()
			err := SendWebhook(ctx, client, u, embed, username)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				slog.Error("Webhook送信エラー",
					"index", idx+1,
					"total", len(webhookURLs),
					"error", err)
				errs = append(errs, err)
				return
			}
			sent++
		}(i, webhookURL)
	}
	wg.Wait()
	return sent, errors.Join(errs...)
}

// truncate は文字列を指定長で切り詰める。
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}

// stripURL は*url.ErrorからWebhookのシークレットを含むURLを取り除く。
func stripURL(err error) error {
	var ue *url.Error
	if errors.As(err, &ue) {
		return fmt.Errorf("%s: %w", ue.Op, ue.Err)
	}
	return err
}
