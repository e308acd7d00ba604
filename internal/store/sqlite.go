// Package store は配信状態・セッション履歴・通知トークンの永続化を提供する。
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
)

// ErrSessionClosed は終了済みのセッションを再度終了しようとした場合のエラー。
var ErrSessionClosed = errors.New("セッションは既に終了しています")

// DB はSQLite接続とスキーマ初期化をまとめたもの。
type DB struct {
	conn *sql.DB
	path string
}

// Open は指定パスのSQLiteデータベースを開き、スキーマを初期化する。
// pathが":memory:"の場合はプロセス内のみのデータベースになる。
func Open(path string) (*DB, error) {
	dsn := ":memory:"
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("データベースディレクトリの作成に失敗: %w", err)
		}
		dsn = path + "?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000"
	}

	conn, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("データベースのオープンに失敗: %w", err)
	}

	// 書き込みは1接続に直列化する。:memory:でも接続ごとに別DBにならないようにする
	conn.SetMaxOpenConns(1)

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("データベースへの接続に失敗: %w", err)
	}

	if err := initSchema(conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("スキーマの初期化に失敗: %w", err)
	}

	return &DB{conn: conn, path: path}, nil
}

// Close はデータベース接続を閉じる。
func (db *DB) Close() error {
	if db.conn != nil {
		return db.conn.Close()
	}
	return nil
}

// Path はデータベースファイルのパスを返す。
func (db *DB) Path() string {
	return db.path
}

// Ping は接続が生きているかを確認する。
func (db *DB) Ping() error {
	return db.conn.Ping()
}

func initSchema(conn *sql.DB) error {
	schema := []string{
		`CREATE TABLE IF NOT EXISTS live_status (
			account_id TEXT PRIMARY KEY,
			is_live INTEGER NOT NULL DEFAULT 0,
			last_live_start INTEGER,
			last_check INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS live_sessions (
			id TEXT PRIMARY KEY,
			account_id TEXT NOT NULL,
			start_time INTEGER NOT NULL,
			end_time INTEGER,
			duration_minutes INTEGER,
			date TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_live_sessions_account_start ON live_sessions(account_id, start_time)`,
		`CREATE INDEX IF NOT EXISTS idx_live_sessions_start ON live_sessions(start_time)`,
		`CREATE TABLE IF NOT EXISTS tokens (
			token TEXT PRIMARY KEY,
			created_at INTEGER NOT NULL
		)`,
	}

	for _, stmt := range schema {
		if _, err := conn.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}
