package page

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetect(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		want    bool
		wantErr bool
	}{
		{name: "isLiveBroadcast true", body: `<script>{"isLiveBroadcast":true}</script>`, want: true},
		{name: "isLiveBroadcast 空白あり", body: `{"isLiveBroadcast" :  true}`, want: true},
		{name: "isLiveBroadcast false", body: `{"isLiveBroadcast":false}`, want: false},
		{name: "埋め込み状態 status 2", body: `<script id="SIGI_STATE" type="application/json">{"LiveRoom":{"liveRoomUserInfo":{"user":{"status":2}}}}</script>`, want: true},
		{name: "埋め込み状態 status 4", body: `<script id="SIGI_STATE" type="application/json">{"LiveRoom":{"liveRoomUserInfo":{"user":{"status":4}}}}</script>`, want: false},
		{name: "埋め込み状態 LiveRoomなし", body: `<script id="SIGI_STATE">{"AppContext":{}}</script>`, want: false},
		{name: "どちらもなし", body: `<html><body>offline</body></html>`, want: false},
		{name: "埋め込み状態 シングルクォートのid", body: `<script type='application/json' id='SIGI_STATE'>{"LiveRoom":{"liveRoomUserInfo":{"user":{"status":2}}}}</script>`, want: true},
		{name: "埋め込み状態 属性値に>を含む", body: `<script data-note="a>b" id="SIGI_STATE">{"LiveRoom":{"liveRoomUserInfo":{"user":{"status":2}}}}</script>`, want: true},
		{name: "埋め込み状態 idの前に別のscript", body: `<script>var x = "</div>";</script><script nonce="n" id=SIGI_STATE>{"LiveRoom":{"liveRoomUserInfo":{"user":{"status":2}}}}</script>`, want: true},
		{name: "壊れた埋め込み状態", body: `<script id="SIGI_STATE">{not json</script>`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Detect([]byte(tt.body))
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSource_Fetch(t *testing.T) {
	var (
		mu            sync.Mutex
		gotUA, gotPath string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		gotUA = r.Header.Get("User-Agent")
		gotPath = r.URL.Path
		mu.Unlock()
		switch r.URL.Path {
		case "/@alice/live":
			_, _ = w.Write([]byte(`{"isLiveBroadcast":true}`))
		case "/@bob/live":
			_, _ = w.Write([]byte(`<html>offline</html>`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	s := NewSource(srv.URL+"/@{account}/live", "test-agent")
	ctx := context.Background()

	obs, err := s.Fetch(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, obs.IsLive)
	assert.Equal(t, "alice", obs.AccountID)
	mu.Lock()
	assert.Equal(t, "test-agent", gotUA)
	assert.Equal(t, "/@alice/live", gotPath)
	mu.Unlock()

	obs, err = s.Fetch(ctx, "bob")
	require.NoError(t, err)
	assert.False(t, obs.IsLive)

	_, err = s.Fetch(ctx, "carol")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
}

func TestSource_FetchCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"isLiveBroadcast":true}`))
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewSource(srv.URL+"/{account}", "").Fetch(ctx, "alice")
	require.Error(t, err)
}
