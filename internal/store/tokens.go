package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrEmptyToken は空のトークンを登録しようとした場合のエラー。
var ErrEmptyToken = errors.New("トークンが空です")

// TokenRegistry はtokensテーブルへのアクセスを提供する。
type TokenRegistry struct {
	db  *DB
	now func() time.Time
}

// NewTokenRegistry はTokenRegistryを作成する。
func NewTokenRegistry(db *DB) *TokenRegistry {
	return &TokenRegistry{db: db, now: time.Now}
}

// Register はトークンを登録する。登録済みのトークンは何もしない。
func (r *TokenRegistry) Register(ctx context.Context, token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return ErrEmptyToken
	}

	_, err := r.db.conn.ExecContext(ctx, `
		INSERT INTO tokens (token, created_at) VALUES (?, ?)
		ON CONFLICT(token) DO NOTHING
	`, token, r.now().UnixMilli())
	if err != nil {
		return fmt.Errorf("トークンの登録に失敗: %w", err)
	}
	return nil
}

// ListAll は登録済みの全トークンを登録順に返す。
func (r *TokenRegistry) ListAll(ctx context.Context) ([]string, error) {
	rows, err := r.db.conn.QueryContext(ctx, `SELECT token FROM tokens ORDER BY created_at, token`)
	if err != nil {
		return nil, fmt.Errorf("トークン一覧の取得に失敗: %w", err)
	}
	defer rows.Close()

	var tokens []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, fmt.Errorf("トークンの読み込みに失敗: %w", err)
		}
		tokens = append(tokens, t)
	}
	return tokens, rows.Err()
}
