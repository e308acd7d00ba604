package twitch

import (
	"context"
	"log/slog"
	"strings"

	"github.com/yuu1111/LiveNotifier/internal/monitor"
)

// Source はHelix /streams の結果から配信状態を判定する。
type Source struct {
	api *API
}

// NewSource はSourceを作成する。
func NewSource(api *API) *Source {
	return &Source{api: api}
}

// Fetch はアカウント(login名)が配信中かどうかを取得する。
func (s *Source) Fetch(ctx context.Context, accountID string) (monitor.LiveObservation, error) {
	key := strings.ToLower(accountID)
	streams, err := s.api.GetStreams(ctx, []string{key})
	if err != nil {
		return monitor.LiveObservation{}, err
	}

	_, live := streams[key]
	return monitor.LiveObservation{AccountID: key, IsLive: live}, nil
}

// Validate は監視対象のアカウントがTwitchに存在するか確認し、見つからないものを警告する。
func (s *Source) Validate(ctx context.Context, accounts []string) error {
	users, err := s.api.GetUsers(ctx, accounts)
	if err != nil {
		return err
	}

	for _, a := range accounts {
		if _, ok := users[strings.ToLower(a)]; !ok {
			slog.Warn("ユーザーが見つかりません", "account", a)
		}
	}
	return nil
}
