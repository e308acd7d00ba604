package monitor

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"
)

// AlertTemplate は配信開始通知の固定ペイロード。{account}はアカウントIDに置換される。
type AlertTemplate struct {
	Title string
	Body  string
}

// Render はアカウントIDを埋め込んだタイトルと本文を返す。
func (t AlertTemplate) Render(accountID string) (string, string) {
	r := strings.NewReplacer("{account}", accountID)
	return r.Replace(t.Title), r.Replace(t.Body)
}

const (
	// ledgerTimeout は状態確定後の履歴更新に使うタイムアウト。
	ledgerTimeout = 10 * time.Second

	// defaultNotifyTimeout はNotifyTimeout未指定時の通知タイムアウト。
	defaultNotifyTimeout = 30 * time.Second
)

// PollerOptions はPollerの動作設定。
type PollerOptions struct {
	Accounts      []string
	Interval      time.Duration
	CycleTimeout  time.Duration
	NotifyTimeout time.Duration
	Alert         AlertTemplate
	Location      *time.Location
	Now           func() time.Time
}

// CycleResult は1回のポーリングサイクルの結果。
type CycleResult struct {
	Observation LiveObservation
	Previous    *StatusRecord
	Decision    Decision
	Session     *SessionRecord
	Delivery    *DeliveryReport
	Anomaly     error
	NotifyErr   error
}

// Notified は通知が1件以上配送されたかを返す。
func (r *CycleResult) Notified() bool {
	return r.Delivery != nil && r.Delivery.Sent > 0
}

// Poller はアカウントの配信状態を定期的にポーリングし、状態・履歴を更新して通知する。
type Poller struct {
	source   ObservationSource
	statuses StatusStore
	ledger   SessionLedger
	notifier Notifier
	opts     PollerOptions
	locks    accountLocks
}

// NewPoller はPollerインスタンスを作成する。notifierがnilの場合は通知を送らない。
func NewPoller(source ObservationSource, statuses StatusStore, ledger SessionLedger, notifier Notifier, opts PollerOptions) *Poller {
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	accounts := make([]string, 0, len(opts.Accounts))
	for _, a := range opts.Accounts {
		accounts = append(accounts, NormalizeAccountID(a))
	}
	opts.Accounts = accounts

	return &Poller{
		source:   source,
		statuses: statuses,
		ledger:   ledger,
		notifier: notifier,
		opts:     opts,
		locks:    accountLocks{m: make(map[string]*sync.Mutex)},
	}
}

// Accounts は監視対象のアカウントID一覧を返す。
func (p *Poller) Accounts() []string {
	return append([]string(nil), p.opts.Accounts...)
}

// Run はポーリングループを開始する。ctxがキャンセルされるまで実行する。
// 前回のサイクルが終わるまで次のサイクルは始まらない。
func (p *Poller) Run(ctx context.Context) error {
	p.PollAll(ctx)

	ticker := time.NewTicker(p.opts.Interval)
	defer ticker.Stop()

	slog.Info("ポーリング開始",
		"interval", p.opts.Interval.String(),
		"accounts", len(p.opts.Accounts))

	for {
		select {
		case <-ctx.Done():
			slog.Info("ポーリング停止")
			return nil
		case <-ticker.C:
			p.PollAll(ctx)
		}
	}
}

// PollAll は全アカウントを順番にポーリングする。エラーはログに出力して継続する。
func (p *Poller) PollAll(ctx context.Context) {
	for _, id := range p.opts.Accounts {
		if ctx.Err() != nil {
			return
		}
		if _, err := p.PollAccount(ctx, id); err != nil {
			slog.Error("ポーリングエラー", "account", id, "error", err)
		}
	}
}

// PollAccount は1アカウント分のポーリングサイクルを同期的に実行する。
// 同一アカウントのサイクルは排他され、状態の書き込み→履歴の更新→通知の順に行う。
// 取得失敗・状態の読み書き失敗の場合は何も変更せずにエラーを返す。
func (p *Poller) PollAccount(ctx context.Context, accountID string) (*CycleResult, error) {
	accountID = NormalizeAccountID(accountID)

	unlock := p.locks.lock(accountID)
	defer unlock()

	cycleCtx := ctx
	if p.opts.CycleTimeout > 0 {
		var cancel context.CancelFunc
		cycleCtx, cancel = context.WithTimeout(ctx, p.opts.CycleTimeout)
		defer cancel()
	}

	obs, err := p.source.Fetch(cycleCtx, accountID)
	if err != nil {
		return nil, &FetchError{AccountID: accountID, Err: err}
	}
	obs.AccountID = accountID
	obs.ObservedAt = p.opts.Now().In(p.opts.Location)

	current, err := p.statuses.Get(cycleCtx, accountID)
	if err != nil {
		return nil, &StoreError{Op: "状態の読み込み", AccountID: accountID, Err: err}
	}

	if current == nil {
		status := "オフライン"
		if obs.IsLive {
			status = "配信中"
		}
		slog.Info("初期状態", "account", accountID, "status", status)
	}

	decision := Evaluate(accountID, obs, current)

	if err := p.statuses.Put(cycleCtx, decision.NewStatus); err != nil {
		return nil, &StoreError{Op: "状態の保存", AccountID: accountID, Err: err}
	}

	result := &CycleResult{
		Observation: obs,
		Previous:    current,
		Decision:    decision,
	}

	// 状態の確定後は呼び出し元のキャンセルに影響されない
	ledgerCtx, cancelLedger := context.WithTimeout(context.WithoutCancel(cycleCtx), ledgerTimeout)
	defer cancelLedger()
	p.applyLedger(ledgerCtx, result)

	if decision.Notify {
		p.notify(context.WithoutCancel(ctx), result)
	}

	return result, nil
}

// applyLedger はDecisionのセッション操作を適用する。
// 状態は既に確定しているため、失敗は不整合として記録するだけに留める。
func (p *Poller) applyLedger(ctx context.Context, result *CycleResult) {
	id := result.Decision.NewStatus.AccountID
	op := result.Decision.Ledger

	switch op.Kind {
	case LedgerOpen:
		session, err := p.ledger.OpenSession(ctx, id, op.StartTime, op.Date)
		if err != nil {
			result.Anomaly = &AnomalyError{
				AccountID: id,
				Reason:    "セッションを作成できませんでした",
				Err:       &StoreError{Op: "セッションの作成", AccountID: id, Err: err},
			}
			slog.Warn("セッション作成失敗", "account", id, "error", result.Anomaly)
			return
		}
		result.Session = &session
		slog.Info("配信開始", "account", id, "start", op.StartTime.Format(time.RFC3339))

	case LedgerClose:
		open, err := p.ledger.FindOpenSession(ctx, id)
		if err != nil {
			result.Anomaly = &AnomalyError{
				AccountID: id,
				Reason:    "オープン中のセッションを検索できませんでした",
				Err:       &StoreError{Op: "セッションの検索", AccountID: id, Err: err},
			}
			slog.Warn("セッション検索失敗", "account", id, "error", result.Anomaly)
			return
		}
		if open == nil {
			result.Anomaly = &AnomalyError{
				AccountID: id,
				Reason:    "配信中の記録があるのにオープン中のセッションがありません",
			}
			slog.Warn("セッション終了をスキップ", "account", id, "error", result.Anomaly)
			return
		}

		closed, err := p.ledger.CloseSession(ctx, *open, op.EndTime)
		if err != nil {
			result.Anomaly = &AnomalyError{
				AccountID: id,
				Reason:    "セッションを終了できませんでした",
				Err:       &StoreError{Op: "セッションの終了", AccountID: id, Err: err},
			}
			slog.Warn("セッション終了失敗", "account", id, "error", result.Anomaly)
			return
		}
		result.Session = &closed
		duration := 0
		if closed.DurationMinutes != nil {
			duration = *closed.DurationMinutes
		}
		slog.Info("配信終了", "account", id, "durationMinutes", duration)
	}
}

// notify は配信開始通知を送る。失敗はログに出力して破棄する。
// ctxはキャンセルされないもので、NotifyTimeoutだけで打ち切る。
func (p *Poller) notify(ctx context.Context, result *CycleResult) {
	id := result.Decision.NewStatus.AccountID
	if p.notifier == nil {
		slog.Debug("通知先が未設定のため通知をスキップ", "account", id)
		return
	}

	timeout := p.opts.NotifyTimeout
	if timeout <= 0 {
		timeout = defaultNotifyTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	title, body := p.opts.Alert.Render(id)
	report, err := p.notifier.Send(ctx, title, body)
	result.Delivery = &report
	if err != nil {
		result.NotifyErr = &NotifyError{AccountID: id, Err: err}
		slog.Error("通知送信失敗", "account", id, "error", result.NotifyErr)
	}

	slog.Info("配信開始を通知",
		"account", id,
		"sent", report.Sent,
		"failed", report.Failed)
}

// accountLocks はアカウント単位の排他ロック。
type accountLocks struct {
	mu sync.Mutex
	m  map[string]*sync.Mutex
}

func (l *accountLocks) lock(accountID string) func() {
	l.mu.Lock()
	m, ok := l.m[accountID]
	if !ok {
		m = &sync.Mutex{}
		l.m[accountID] = m
	}
	l.mu.Unlock()

	m.Lock()
	return m.Unlock
}

// IsFetchError はerrが観測元の取得失敗かを返す。
func IsFetchError(err error) bool {
	var fe *FetchError
	return errors.As(err, &fe)
}
