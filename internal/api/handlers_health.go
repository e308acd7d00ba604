package api

import (
	"log/slog"
	"net/http"
)

type healthResponse struct {
	Status string `json:"status"`
	Store  string `json:"store"`
}

type HealthHandler struct {
	store Pinger
}

func NewHealthHandler(store Pinger) *HealthHandler {
	return &HealthHandler{store: store}
}

func (h *HealthHandler) Health(w http.ResponseWriter, _ *http.Request) {
	resp := healthResponse{Status: "ok", Store: "ok"}
	status := http.StatusOK

	if h.store != nil {
		if err := h.store.Ping(); err != nil {
			resp.Status = "degraded"
			slog.Error("ストアの疎通確認に失敗", "error", err)
			resp.Store = "unavailable"
			status = http.StatusServiceUnavailable
		}
	}
	writeJSON(w, status, resp)
}
