package twitch

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestServer はトークン発行とHelix APIを模したサーバーを作成する。
func newTestServer(t *testing.T, live map[string]bool, tokenCalls *atomic.Int32) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		tokenCalls.Add(1)
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, "client_credentials", r.PostForm.Get("grant_type"))
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token": "tok",
			"expires_in":   3600,
			"token_type":   "bearer",
		})
	})
	mux.HandleFunc("/helix/streams", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		assert.Equal(t, "cid", r.Header.Get("Client-Id"))

		data := []map[string]any{}
		for _, login := range r.URL.Query()["user_login"] {
			if live[login] {
				data = append(data, map[string]any{"user_login": login, "type": "live"})
			}
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"data": data})
	})
	mux.HandleFunc("/helix/users", func(w http.ResponseWriter, r *http.Request) {
		data := []map[string]any{}
		for _, login := range r.URL.Query()["login"] {
			if login != "ghost" {
				data = append(data, map[string]any{"login": login, "id": "1"})
			}
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"data": data})
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newTestSource(srv *httptest.Server) *Source {
	auth := NewAuth("cid", "secret")
	auth.tokenURL = srv.URL + "/token"
	api := NewAPI(auth, "cid")
	api.baseURL = srv.URL + "/helix"
	return NewSource(api)
}

func TestSource_Fetch(t *testing.T) {
	var tokenCalls atomic.Int32
	srv := newTestServer(t, map[string]bool{"alice": true}, &tokenCalls)
	s := newTestSource(srv)
	ctx := context.Background()

	obs, err := s.Fetch(ctx, "Alice")
	require.NoError(t, err)
	assert.True(t, obs.IsLive)

	obs, err = s.Fetch(ctx, "bob")
	require.NoError(t, err)
	assert.False(t, obs.IsLive)

	// トークンはキャッシュされる
	assert.Equal(t, int32(1), tokenCalls.Load())
}

func TestSource_Validate(t *testing.T) {
	var tokenCalls atomic.Int32
	srv := newTestServer(t, nil, &tokenCalls)

	err := newTestSource(srv).Validate(context.Background(), []string{"alice", "ghost"})
	require.NoError(t, err)
}

func TestAuth_RefreshesExpiredToken(t *testing.T) {
	var tokenCalls atomic.Int32
	srv := newTestServer(t, nil, &tokenCalls)

	auth := NewAuth("cid", "secret")
	auth.tokenURL = srv.URL + "/token"
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	auth.now = func() time.Time { return now }

	ctx := context.Background()
	_, err := auth.GetToken(ctx)
	require.NoError(t, err)
	_, err = auth.GetToken(ctx)
	require.NoError(t, err)
	assert.Equal(t, int32(1), tokenCalls.Load())

	now = now.Add(2 * time.Hour)
	_, err = auth.GetToken(ctx)
	require.NoError(t, err)
	assert.Equal(t, int32(2), tokenCalls.Load())

	auth.Invalidate()
	_, err = auth.GetToken(ctx)
	require.NoError(t, err)
	assert.Equal(t, int32(3), tokenCalls.Load())
}

func TestAPI_UnauthorizedInvalidatesToken(t *testing.T) {
	var tokenCalls atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, _ *http.Request) {
		tokenCalls.Add(1)
		_ = json.NewEncoder(w).Encode(map[string]any{"access_token": "tok", "expires_in": 3600})
	})
	mux.HandleFunc("/helix/streams", func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"message":"invalid token"}`, http.StatusUnauthorized)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	s := newTestSource(srv)
	ctx := context.Background()

	_, err := s.Fetch(ctx, "alice")
	require.Error(t, err)
	_, err = s.Fetch(ctx, "alice")
	require.Error(t, err)

	assert.Equal(t, int32(2), tokenCalls.Load())
}
