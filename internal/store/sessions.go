package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/yuu1111/LiveNotifier/internal/monitor"
)

const defaultSessionLimit = 100

// SessionLedger はlive_sessionsテーブルへのアクセスを提供する。
type SessionLedger struct {
	db *DB
}

// NewSessionLedger はSessionLedgerを作成する。
func NewSessionLedger(db *DB) *SessionLedger {
	return &SessionLedger{db: db}
}

// OpenSession は新しいセッションを作成する。既存のオープン中セッションは確認しない。
func (l *SessionLedger) OpenSession(ctx context.Context, accountID string, startTime time.Time, date string) (monitor.SessionRecord, error) {
	rec := monitor.SessionRecord{
		ID:        uuid.New().String(),
		AccountID: accountID,
		StartTime: startTime,
		Date:      date,
	}

	_, err := l.db.conn.ExecContext(ctx, `
		INSERT INTO live_sessions (id, account_id, start_time, date)
		VALUES (?, ?, ?, ?)
	`, rec.ID, rec.AccountID, startTime.UnixMilli(), date)
	if err != nil {
		return monitor.SessionRecord{}, fmt.Errorf("セッションの作成に失敗: %w", err)
	}
	return rec, nil
}

// FindOpenSession は終了していないセッションのうち開始が最も新しいものを返す。
// 存在しない場合はnil, nilを返す。
func (l *SessionLedger) FindOpenSession(ctx context.Context, accountID string) (*monitor.SessionRecord, error) {
	row := l.db.conn.QueryRowContext(ctx, `
		SELECT id, account_id, start_time, end_time, duration_minutes, date
		FROM live_sessions
		WHERE account_id = ? AND end_time IS NULL
		ORDER BY start_time DESC
		LIMIT 1
	`, accountID)

	rec, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("オープン中セッションの検索に失敗: %w", err)
	}
	return &rec, nil
}

// CloseSession はセッションに終了時刻と配信時間(分)を設定する。
// 終了済みのセッションに対してはErrSessionClosedを返す。
func (l *SessionLedger) CloseSession(ctx context.Context, session monitor.SessionRecord, endTime time.Time) (monitor.SessionRecord, error) {
	if !session.IsOpen() {
		return session, ErrSessionClosed
	}

	duration := monitor.DurationMinutes(session.StartTime, endTime)

	res, err := l.db.conn.ExecContext(ctx, `
		UPDATE live_sessions SET end_time = ?, duration_minutes = ?
		WHERE id = ? AND end_time IS NULL
	`, endTime.UnixMilli(), duration, session.ID)
	if err != nil {
		return session, fmt.Errorf("セッションの終了に失敗: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return session, fmt.Errorf("セッションの終了に失敗: %w", err)
	}
	if n == 0 {
		return session, ErrSessionClosed
	}

	end := endTime
	session.EndTime = &end
	session.DurationMinutes = &duration
	return session, nil
}

// ListSessions はセッション履歴を開始時刻の新しい順に返す。
func (l *SessionLedger) ListSessions(ctx context.Context, q monitor.SessionQuery) ([]monitor.SessionRecord, error) {
	limit := q.Limit
	if limit <= 0 {
		limit = defaultSessionLimit
	}

	query := `
		SELECT id, account_id, start_time, end_time, duration_minutes, date
		FROM live_sessions`
	args := []any{}
	if q.AccountID != "" {
		query += ` WHERE account_id = ?`
		args = append(args, q.AccountID)
	}
	query += ` ORDER BY start_time DESC LIMIT ?`
	args = append(args, limit)

	rows, err := l.db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("セッション一覧の取得に失敗: %w", err)
	}
	defer rows.Close()

	sessions := []monitor.SessionRecord{}
	for rows.Next() {
		rec, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("セッションの読み込みに失敗: %w", err)
		}
		sessions = append(sessions, rec)
	}
	return sessions, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (monitor.SessionRecord, error) {
	var (
		rec      monitor.SessionRecord
		start    int64
		end      sql.NullInt64
		duration sql.NullInt64
	)
	if err := row.Scan(&rec.ID, &rec.AccountID, &start, &end, &duration, &rec.Date); err != nil {
		return monitor.SessionRecord{}, err
	}

	rec.StartTime = time.UnixMilli(start).UTC()
	if end.Valid {
		t := time.UnixMilli(end.Int64).UTC()
		rec.EndTime = &t
	}
	if duration.Valid {
		d := int(duration.Int64)
		rec.DurationMinutes = &d
	}
	return rec, nil
}
