package api

import (
	"log/slog"
	"net/http"
	"slices"
	"strconv"

	"github.com/yuu1111/LiveNotifier/internal/monitor"
)

const maxSessionLimit = 1000

// liveResponse はGET /liveのレスポンス。
type liveResponse struct {
	Status    string `json:"status"`
	AccountID string `json:"accountId"`
	IsLive    bool   `json:"isLive"`
	Message   string `json:"message"`
	Notified  bool   `json:"notified"`
}

// sessionsResponse はGET /livesessionsのレスポンス。
type sessionsResponse struct {
	Status   string                  `json:"status"`
	Sessions []monitor.SessionRecord `json:"sessions"`
}

// LiveHandler は配信状態と配信履歴のリクエストを処理する。
type LiveHandler struct {
	checker LiveChecker
	ledger  monitor.SessionLedger
}

// NewLiveHandler はLiveHandlerを作成する。
func NewLiveHandler(checker LiveChecker, ledger monitor.SessionLedger) *LiveHandler {
	return &LiveHandler{checker: checker, ledger: ledger}
}

// Live handles GET /live
// 同期的にポーリングサイクルを実行し、その結果を返す。accountを省略すると最初の監視対象を使う。
func (h *LiveHandler) Live(w http.ResponseWriter, r *http.Request) {
	accounts := h.checker.Accounts()
	account := monitor.NormalizeAccountID(r.URL.Query().Get("account"))
	if account == "" {
		if len(accounts) == 0 {
			writeError(w, http.StatusNotFound, "監視対象のアカウントがありません")
			return
		}
		account = accounts[0]
	}
	if !slices.Contains(accounts, account) {
		writeError(w, http.StatusNotFound, "監視対象外のアカウントです: "+account)
		return
	}

	result, err := h.checker.PollAccount(r.Context(), account)
	if err != nil {
		status, message := http.StatusInternalServerError, "配信状態の確認に失敗しました"
		if monitor.IsFetchError(err) {
			status, message = http.StatusBadGateway, "配信状態の取得に失敗しました"
		}
		slog.Error("配信状態の確認に失敗", "account", account, "error", err)
		writeError(w, status, message)
		return
	}

	isLive := result.Decision.NewStatus.IsLive
	message := "オフラインです"
	if isLive {
		message = "配信中です"
	}

	writeJSON(w, http.StatusOK, liveResponse{
		Status:    statusSuccess,
		AccountID: account,
		IsLive:    isLive,
		Message:   message,
		Notified:  result.Notified(),
	})
}

// Sessions handles GET /livesessions
func (h *LiveHandler) Sessions(w http.ResponseWriter, r *http.Request) {
	q := monitor.SessionQuery{
		AccountID: monitor.NormalizeAccountID(r.URL.Query().Get("account")),
	}
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 || n > maxSessionLimit {
			writeError(w, http.StatusBadRequest, "limitは1から1000の整数で指定してください")
			return
		}
		q.Limit = n
	}

	sessions, err := h.ledger.ListSessions(r.Context(), q)
	if err != nil {
		slog.Error("配信履歴の取得に失敗", "error", err)
		writeError(w, http.StatusInternalServerError, "配信履歴の取得に失敗しました")
		return
	}
	if sessions == nil {
		sessions = []monitor.SessionRecord{}
	}

	writeJSON(w, http.StatusOK, sessionsResponse{Status: statusSuccess, Sessions: sessions})
}
