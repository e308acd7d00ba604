// Package twitch はTwitch Helix APIを使った配信状態の取得元を提供する。
package twitch

// apiResponse はTwitch APIの共通レスポンス構造。
type apiResponse[T any] struct {
	Data []T `json:"data"`
}

// User はTwitchユーザー情報。
type User struct {
	ID          string `json:"id"`
	Login       string `json:"login"`
	DisplayName string `json:"display_name"`
}

// Stream はTwitch配信情報。配信中のユーザーのみ返される。
type Stream struct {
	ID        string `json:"id"`
	UserID    string `json:"user_id"`
	UserLogin string `json:"user_login"`
	Title     string `json:"title"`
	StartedAt string `json:"started_at"`
}

// tokenResponse はOAuth2トークンレスポンス。
type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
	TokenType   string `json:"token_type"`
}
