// Package push は登録済みデバイストークンへのFCMプッシュ通知を提供する。
package push

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"google.golang.org/api/option"

	"github.com/yuu1111/LiveNotifier/internal/monitor"
)

// MaxBatchSize は1回のマルチキャストで送るトークン数の上限。FCMの制限と同じ。
const MaxBatchSize = 500

// Sender はFCMのマルチキャスト送信。*messaging.Clientが満たす。
type Sender interface {
	SendEachForMulticast(ctx context.Context, message *messaging.MulticastMessage) (*messaging.BatchResponse, error)
}

// NewFirebaseSender はFirebase Admin SDKのメッセージングクライアントを作成する。
// credentialsFileが空の場合はApplication Default Credentialsを使う。
func NewFirebaseSender(ctx context.Context, credentialsFile, projectID string) (*messaging.Client, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}

	var conf *firebase.Config
	if projectID != "" {
		conf = &firebase.Config{ProjectID: projectID}
	}

	app, err := firebase.NewApp(ctx, conf, opts...)
	if err != nil {
		return nil, fmt.Errorf("Firebaseアプリの初期化に失敗: %w", err)
	}

	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("FCMクライアントの作成に失敗: %w", err)
	}
	return client, nil
}

// Notifier はTokenRegistryに登録された全トークンへ通知を送る。
type Notifier struct {
	registry monitor.TokenRegistry
	sender   Sender
}

// NewNotifier はNotifierを作成する。
func NewNotifier(registry monitor.TokenRegistry, sender Sender) *Notifier {
	return &Notifier{registry: registry, sender: sender}
}

// NewMessage は全トークン共通のメッセージを組み立てる。
// Androidでは最大優先度・デフォルト音・ロック画面表示で届ける。
func NewMessage(title, body string, tokens []string) *messaging.MulticastMessage {
	return &messaging.MulticastMessage{
		Tokens: tokens,
		Notification: &messaging.Notification{
			Title: title,
			Body:  body,
		},
		Android: &messaging.AndroidConfig{
			Priority: "high",
			Notification: &messaging.AndroidNotification{
				Priority:     messaging.PriorityMax,
				DefaultSound: true,
				Visibility:   messaging.VisibilityPublic,
			},
		},
		Data: map[string]string{"title": title, "body": body},
	}
}

// Send は登録済みトークンをMaxBatchSizeずつに分けて送信する。
// トークンが1つもない場合は何もしない。
func (n *Notifier) Send(ctx context.Context, title, body string) (monitor.DeliveryReport, error) {
	tokens, err := n.registry.ListAll(ctx)
	if err != nil {
		return monitor.DeliveryReport{}, fmt.Errorf("トークン一覧の取得に失敗: %w", err)
	}
	if len(tokens) == 0 {
		slog.Debug("登録済みトークンがないためプッシュ通知をスキップ")
		return monitor.DeliveryReport{}, nil
	}

	var (
		report monitor.DeliveryReport
		errs   []error
	)
	for start := 0; start < len(tokens); start += MaxBatchSize {
		end := min(start+MaxBatchSize, len(tokens))
		batch := tokens[start:end]

		resp, err := n.sender.SendEachForMulticast(ctx, NewMessage(title, body, batch))
		if err != nil {
			report.Failed += len(batch)
			errs = append(errs, fmt.Errorf("プッシュ通知送信に失敗: %w", err))
			continue
		}
		report.Sent += resp.SuccessCount
		report.Failed += resp.FailureCount
		logFailures(batch, resp)
	}

	slog.Debug("プッシュ通知送信", "sent", report.Sent, "failed", report.Failed)
	return report, errors.Join(errs...)
}

// logFailures はトークンごとの送信失敗を出力する。トークンは先頭だけ残す。
func logFailures(batch []string, resp *messaging.BatchResponse) {
	for i, r := range resp.Responses {
		if r == nil || r.Success || i >= len(batch) {
			continue
		}
		token := batch[i]
		if len(token) > 8 {
			token = token[:8] + "..."
		}
		slog.Warn("プッシュ通知の配送失敗",
			"token", token,
			"unregistered", messaging.IsUnregistered(r.Error),
			"error", r.Error)
	}
}
