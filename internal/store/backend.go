package store

import (
	"fmt"

	"github.com/yuu1111/LiveNotifier/internal/monitor"
)

const (
	DriverSQLite = "sqlite"
	DriverMemory = "memory"
)

// Backend は設定されたドライバの各ストアをまとめたもの。
type Backend struct {
	Statuses monitor.StatusStore
	Ledger   monitor.SessionLedger
	Tokens   monitor.TokenRegistry

	db *DB
}

// OpenBackend はドライバに応じたストア一式を開く。
func OpenBackend(driver, path string) (*Backend, error) {
	switch driver {
	case DriverMemory:
		m := NewMemory()
		return &Backend{Statuses: m, Ledger: m, Tokens: m}, nil

	case DriverSQLite, "":
		db, err := Open(path)
		if err != nil {
			return nil, err
		}
		return &Backend{
			Statuses: NewStatusStore(db),
			Ledger:   NewSessionLedger(db),
			Tokens:   NewTokenRegistry(db),
			db:       db,
		}, nil

	default:
		return nil, fmt.Errorf("不明なストアドライバ: %s", driver)
	}
}

// Ping はストアが利用可能かを確認する。
func (b *Backend) Ping() error {
	if b.db == nil {
		return nil
	}
	return b.db.Ping()
}

// Close はストアを閉じる。
func (b *Backend) Close() error {
	if b.db == nil {
		return nil
	}
	return b.db.Close()
}
