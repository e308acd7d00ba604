// Package api は配信状態・配信履歴の参照とトークン登録のHTTP APIを提供する。
package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/yuu1111/LiveNotifier/internal/monitor"
)

// LiveChecker は同期的なポーリングサイクルを実行する。*monitor.Pollerが実装する。
type LiveChecker interface {
	PollAccount(ctx context.Context, accountID string) (*monitor.CycleResult, error)
	Accounts() []string
}

// Pinger はストアの疎通を確認する。
type Pinger interface {
	Ping() error
}

// Deps はルーターが依存するコンポーネント。
type Deps struct {
	Checker LiveChecker
	Ledger  monitor.SessionLedger
	Tokens  monitor.TokenRegistry
	Store   Pinger
}

// NewRouter は全ルートとミドルウェアを設定したchiルーターを作成する。
func NewRouter(deps Deps, apiKey string, logger *slog.Logger) *chi.Mux {
	r := chi.NewRouter()

	r.Use(RequestID)
	r.Use(Logger(logger))
	r.Use(Recovery(logger))

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "見つかりません")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "許可されていないメソッドです")
	})

	healthH := NewHealthHandler(deps.Store)
	liveH := NewLiveHandler(deps.Checker, deps.Ledger)
	tokenH := NewTokenHandler(deps.Tokens)

	r.Get("/health", healthH.Health)

	r.Group(func(r chi.Router) {
		r.Use(BearerAuth(apiKey))

		r.Get("/live", liveH.Live)
		r.Get("/livesessions", liveH.Sessions)
		r.Post("/fcm", tokenH.Register)
	})

	return r
}
