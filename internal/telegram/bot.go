// Package telegram はTelegram Bot APIによるチャット通知を提供する。
package telegram

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
	"time"

	"github.com/yuu1111/LiveNotifier/internal/monitor"
)

const defaultAPIBase = "https://api.telegram.org"

// sendMessageRequest はsendMessageのリクエストボディ。
type sendMessageRequest struct {
	ChatID string `json:"chat_id"`
	Text   string `json:"text"`
}

// apiResult はBot APIの共通レスポンス。
type apiResult struct {
	OK          bool   `json:"ok"`
	Description string `json:"description,omitempty"`
}

// Bot は1つのチャットにメッセージを送る。
type Bot struct {
	token   string
	chatID  string
	apiBase string
	client  *http.Client
}

// NewBot はBotを作成する。
func NewBot(token, chatID string) *Bot {
	return &Bot{
		token:   token,
		chatID:  chatID,
		apiBase: defaultAPIBase,
		client:  &http.Client{Timeout: 15 * time.Second},
	}
}

// Send はタイトルと本文を1つのメッセージとして送信する。
func (b *Bot) Send(ctx context.Context, title, body string) (monitor.DeliveryReport, error) {
	text := title
	if body != "" {
		text += "\n" + body
	}

	if err := b.sendMessage(ctx, text); err != nil {
		return monitor.DeliveryReport{Failed: 1}, err
	}
	return monitor.DeliveryReport{Sent: 1}, nil
}

func (b *Bot) sendMessage(ctx context.Context, text string) error {
	payload, err := json.Marshal(sendMessageRequest{ChatID: b.chatID, Text: text})
	if err != nil {
		return fmt.Errorf("メッセージのJSON変換に失敗: %w", err)
	}

	endpoint := fmt.Sprintf("%s/bot%s/sendMessage", b.apiBase, b.token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("Telegramリクエスト作成に失敗: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := b.client.Do(req)
	if err != nil {
		return fmt.Errorf("Telegram送信に失敗: %w", stripURL(err))
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)

	var result apiResult
	_ = json.Unmarshal(respBody, &result)
	if resp.StatusCode != http.StatusOK || !result.OK {
		return fmt.Errorf("Telegram送信失敗: %d %s", resp.StatusCode, result.Description)
	}

	slog.Debug("Telegram送信成功", "chat", b.chatID)
	return nil
}

// stripURL は*url.Errorからトークンを含むURLを取り除く。
func stripURL(err error) error {
	var ue *url.Error
	if errors.As(err, &ue) {
		return fmt.Errorf("%s: %w", ue.Op, ue.Err)
	}
	return err
}
