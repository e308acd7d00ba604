package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/yuu1111/LiveNotifier/internal/config"
	"github.com/yuu1111/LiveNotifier/internal/discord"
	"github.com/yuu1111/LiveNotifier/internal/logging"
	"github.com/yuu1111/LiveNotifier/internal/monitor"
	"github.com/yuu1111/LiveNotifier/internal/notify"
	"github.com/yuu1111/LiveNotifier/internal/page"
	"github.com/yuu1111/LiveNotifier/internal/push"
	"github.com/yuu1111/LiveNotifier/internal/store"
	"github.com/yuu1111/LiveNotifier/internal/telegram"
	"github.com/yuu1111/LiveNotifier/internal/twitch"
)

// app は設定から組み立てたコンポーネント一式。
type app struct {
	cfg     *config.Config
	backend *store.Backend
	source  monitor.ObservationSource
	poller  *monitor.Poller
}

// setupLogging は設定のログレベルとディレクトリでロガーを初期化する。
func setupLogging(cfg *config.Config) (func() error, error) {
	return logging.Setup(cfg.Log.Level, cfg.Log.Dir)
}

// wireApp は設定からストア・取得元・通知先・Pollerを組み立てる。
func wireApp(cfg *config.Config) (*app, error) {
	backend, err := store.OpenBackend(cfg.Store.Driver, cfg.Store.Path)
	if err != nil {
		return nil, fmt.Errorf("ストアを開けません: %w", err)
	}

	source, err := newSource(cfg)
	if err != nil {
		_ = backend.Close()
		return nil, err
	}

	notifier, err := newNotifier(cfg, backend.Tokens)
	if err != nil {
		_ = backend.Close()
		return nil, err
	}

	poller := monitor.NewPoller(source, backend.Statuses, backend.Ledger, notifier, monitor.PollerOptions{
		Accounts:      cfg.Accounts,
		Interval:      cfg.PollInterval(),
		CycleTimeout:  cfg.PollTimeout(),
		NotifyTimeout: cfg.NotifyTimeout(),
		Alert: monitor.AlertTemplate{
			Title: cfg.Notification.Title,
			Body:  cfg.Notification.Body,
		},
		Location: cfg.Location(),
	})

	return &app{cfg: cfg, backend: backend, source: source, poller: poller}, nil
}

// validateSource は取得元が事前検証に対応していれば監視対象を検証する。
func (a *app) validateSource(ctx context.Context) {
	v, ok := a.source.(interface {
		Validate(ctx context.Context, accounts []string) error
	})
	if !ok {
		return
	}
	if err := v.Validate(ctx, a.poller.Accounts()); err != nil {
		slog.Warn("監視対象の検証に失敗", "error", err)
	}
}

func (a *app) Close() error {
	return a.backend.Close()
}

func newSource(cfg *config.Config) (monitor.ObservationSource, error) {
	switch cfg.Source {
	case config.SourceTwitch:
		auth := twitch.NewAuth(cfg.Twitch.ClientID, cfg.Twitch.ClientSecret)
		return twitch.NewSource(twitch.NewAPI(auth, cfg.Twitch.ClientID)), nil
	case config.SourcePage:
		return page.NewSource(cfg.Page.URLTemplate, cfg.Page.UserAgent), nil
	default:
		return nil, fmt.Errorf("不明な取得元: %s", cfg.Source)
	}
}

// newPushSender はFCM送信クライアントを作成する。テストで差し替える。
var newPushSender = func(ctx context.Context, cfg config.PushConfig) (push.Sender, error) {
	return push.NewFirebaseSender(ctx, cfg.CredentialsFile, cfg.ProjectID)
}

// newNotifier は設定済みの通知先をまとめる。通知先が1つもない場合はnilを返す。
func newNotifier(cfg *config.Config, tokens monitor.TokenRegistry) (monitor.Notifier, error) {
	var targets []notify.Named

	if len(cfg.Discord.Webhooks) > 0 {
		urls := make([]string, 0, len(cfg.Discord.Webhooks))
		for _, w := range cfg.Discord.Webhooks {
			urls = append(urls, w.URL)
		}
		targets = append(targets, notify.Named{
			Name:     "discord",
			Notifier: discord.NewNotifier(urls, "LiveNotifier", cfg.Location()),
		})
	}
	if cfg.Telegram.BotToken != "" {
		targets = append(targets, notify.Named{
			Name:     "telegram",
			Notifier: telegram.NewBot(cfg.Telegram.BotToken, cfg.Telegram.ChatID),
		})
	}
	if cfg.Push.Enabled {
		sender, err := newPushSender(context.Background(), cfg.Push)
		if err != nil {
			return nil, err
		}
		targets = append(targets, notify.Named{
			Name:     "push",
			Notifier: push.NewNotifier(tokens, sender),
		})
	}

	if len(targets) == 0 {
		slog.Warn("通知先が設定されていません")
		return nil, nil
	}
	return notify.NewMulti(targets...), nil
}
