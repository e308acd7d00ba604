package api

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/yuu1111/LiveNotifier/internal/monitor"
)

type registerTokenRequest struct {
	Token string `json:"token"`
}

type messageResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// TokenHandler は通知先トークンの登録を処理する。
type TokenHandler struct {
	tokens monitor.TokenRegistry
}

// NewTokenHandler はTokenHandlerを作成する。
func NewTokenHandler(tokens monitor.TokenRegistry) *TokenHandler {
	return &TokenHandler{tokens: tokens}
}

// Register handles POST /fcm
// 登録済みのトークンを再登録しても成功を返す。
func (h *TokenHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerTokenRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "リクエストボディが不正です")
		return
	}
	token := strings.TrimSpace(req.Token)
	if token == "" {
		writeError(w, http.StatusBadRequest, "tokenは必須です")
		return
	}

	if err := h.tokens.Register(r.Context(), token); err != nil {
		slog.Error("トークンの登録に失敗", "error", err)
		writeError(w, http.StatusInternalServerError, "トークンの保存に失敗しました")
		return
	}

	writeJSON(w, http.StatusOK, messageResponse{Status: statusSuccess, Message: "トークンを保存しました"})
}
