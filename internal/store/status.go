package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/yuu1111/LiveNotifier/internal/monitor"
)

// StatusStore はlive_statusテーブルへのアクセスを提供する。
type StatusStore struct {
	db *DB
}

// NewStatusStore はStatusStoreを作成する。
func NewStatusStore(db *DB) *StatusStore {
	return &StatusStore{db: db}
}

// Get はアカウントの状態を返す。存在しない場合はnil, nilを返す。
func (s *StatusStore) Get(ctx context.Context, accountID string) (*monitor.StatusRecord, error) {
	var (
		rec       monitor.StatusRecord
		isLive    bool
		liveStart sql.NullInt64
		lastCheck int64
	)

	err := s.db.conn.QueryRowContext(ctx, `
		SELECT account_id, is_live, last_live_start, last_check
		FROM live_status WHERE account_id = ?
	`, accountID).Scan(&rec.AccountID, &isLive, &liveStart, &lastCheck)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("状態の取得に失敗: %w", err)
	}

	rec.IsLive = isLive
	rec.LastCheck = time.UnixMilli(lastCheck).UTC()
	if liveStart.Valid {
		t := time.UnixMilli(liveStart.Int64).UTC()
		rec.LastLiveStart = &t
	}
	return &rec, nil
}

// Put は状態をupsertする。全フィールドを1文で書き込む。
func (s *StatusStore) Put(ctx context.Context, rec monitor.StatusRecord) error {
	var liveStart sql.NullInt64
	if rec.LastLiveStart != nil {
		liveStart = sql.NullInt64{Int64: rec.LastLiveStart.UnixMilli(), Valid: true}
	}

	_, err := s.db.conn.ExecContext(ctx, `
		INSERT INTO live_status (account_id, is_live, last_live_start, last_check)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(account_id) DO UPDATE SET
			is_live = excluded.is_live,
			last_live_start = excluded.last_live_start,
			last_check = excluded.last_check
	`, rec.AccountID, rec.IsLive, liveStart, rec.LastCheck.UnixMilli())
	if err != nil {
		return fmt.Errorf("状態の保存に失敗: %w", err)
	}
	return nil
}
