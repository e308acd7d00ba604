package monitor

import (
	"context"
	"time"
)

// ObservationSource はアカウントの現在の配信状態を取得する。
type ObservationSource interface {
	Fetch(ctx context.Context, accountID string) (LiveObservation, error)
}

// StatusStore はアカウントごとの最新状態を保持する。
// Getはレコードが存在しない場合にnil, nilを返す。Putはupsert。
type StatusStore interface {
	Get(ctx context.Context, accountID string) (*StatusRecord, error)
	Put(ctx context.Context, record StatusRecord) error
}

// SessionLedger は配信セッション履歴を保持する。
type SessionLedger interface {
	OpenSession(ctx context.Context, accountID string, startTime time.Time, date string) (SessionRecord, error)
	FindOpenSession(ctx context.Context, accountID string) (*SessionRecord, error)
	CloseSession(ctx context.Context, session SessionRecord, endTime time.Time) (SessionRecord, error)
	ListSessions(ctx context.Context, q SessionQuery) ([]SessionRecord, error)
}

// TokenRegistry は通知先デバイストークンを保持する。Registerは冪等。
type TokenRegistry interface {
	Register(ctx context.Context, token string) error
	ListAll(ctx context.Context) ([]string, error)
}

// Notifier は通知を配送する。
type Notifier interface {
	Send(ctx context.Context, title, body string) (DeliveryReport, error)
}
