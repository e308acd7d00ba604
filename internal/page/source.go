// Package page は公開配信ページを取得して配信状態を判定する取得元を提供する。
package page

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/yuu1111/LiveNotifier/internal/monitor"
)

// liveRoomStatusLive は埋め込み状態の user.status が配信中を表す値。
const liveRoomStatusLive = 2

const maxBodySize = 8 << 20

var liveBroadcastPattern = regexp.MustCompile(`"isLiveBroadcast"\s*:\s*true`)

// sigiState はページに埋め込まれた状態JSONのうち判定に使う部分。
type sigiState struct {
	LiveRoom struct {
		LiveRoomUserInfo struct {
			User struct {
				Status int `json:"status"`
			} `json:"user"`
		} `json:"liveRoomUserInfo"`
	} `json:"LiveRoom"`
}

// Source は配信ページのHTMLから配信状態を判定する。
type Source struct {
	urlTemplate string
	userAgent   string
	client      *http.Client
}

// NewSource はSourceを作成する。urlTemplateの{account}はアカウントIDに置換される。
func NewSource(urlTemplate, userAgent string) *Source {
	return &Source{
		urlTemplate: urlTemplate,
		userAgent:   userAgent,
		client:      &http.Client{Timeout: 30 * time.Second},
	}
}

// Fetch は配信ページを取得し、配信中かどうかを返す。
func (s *Source) Fetch(ctx context.Context, accountID string) (monitor.LiveObservation, error) {
	pageURL := strings.ReplaceAll(s.urlTemplate, "{account}", url.PathEscape(accountID))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return monitor.LiveObservation{}, fmt.Errorf("ページリクエスト作成に失敗: %w", err)
	}
	if s.userAgent != "" {
		req.Header.Set("User-Agent", s.userAgent)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return monitor.LiveObservation{}, fmt.Errorf("ページ取得に失敗: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return monitor.LiveObservation{}, fmt.Errorf("ページの読み込みに失敗: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return monitor.LiveObservation{}, fmt.Errorf("ページ取得失敗: %d", resp.StatusCode)
	}

	live, err := Detect(body)
	if err != nil {
		return monitor.LiveObservation{}, err
	}
	return monitor.LiveObservation{AccountID: accountID, IsLive: live}, nil
}

// Detect はページ本文から配信中かどうかを判定する。
// isLiveBroadcastがtrue、または埋め込み状態のstatusが2なら配信中とみなす。
// 埋め込み状態が存在するのに解析できない場合はエラーを返す。
func Detect(body []byte) (bool, error) {
	if liveBroadcastPattern.Match(body) {
		return true, nil
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return false, fmt.Errorf("ページの解析に失敗: %w", err)
	}

	script := doc.Find("script#SIGI_STATE").First()
	if script.Length() == 0 {
		return false, nil
	}

	var state sigiState
	if err := json.Unmarshal([]byte(script.Text()), &state); err != nil {
		return false, fmt.Errorf("埋め込み状態の解析に失敗: %w", err)
	}
	return state.LiveRoom.LiveRoomUserInfo.User.Status == liveRoomStatusLive, nil
}
