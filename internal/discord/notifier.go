package discord

import (
	"context"
	"net/http"
	"time"

	"github.com/yuu1111/LiveNotifier/internal/monitor"
)

// Notifier は登録済みの全Webhookに配信開始通知を送る。
type Notifier struct {
	urls     []string
	username string
	loc      *time.Location
	client   *http.Client
	now      func() time.Time
}

// NewNotifier はNotifierを作成する。
func NewNotifier(urls []string, username string, loc *time.Location) *Notifier {
	return &Notifier{
		urls:     urls,
		username: username,
		loc:      loc,
		client:   http.DefaultClient,
		now:      time.Now,
	}
}

// Send は全Webhookに並列送信する。一部の失敗は送信結果とエラーの両方に反映される。
func (n *Notifier) Send(ctx context.Context, title, body string) (monitor.DeliveryReport, error) {
	embed := BuildEmbed(title, body, n.now(), n.loc)
	sent, err := SendToMultipleWebhooks(ctx, n.client, n.urls, embed, n.username)
	return monitor.DeliveryReport{Sent: sent, Failed: len(n.urls) - sent}, err
}
