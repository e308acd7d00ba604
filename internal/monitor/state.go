// Package monitor はアカウントの配信状態遷移の判定とポーリング処理を提供する。
package monitor

import (
	"math"
	"strings"
	"time"
)

// DateLayout はSessionRecord.Dateの書式(YYYY-MM-DD)。
const DateLayout = "2006-01-02"

// LiveObservation は1回のポーリングで得られた配信状態の観測値。
type LiveObservation struct {
	AccountID  string
	IsLive     bool
	ObservedAt time.Time
}

// StatusRecord はアカウントごとに1件だけ存在する最新の配信状態。
type StatusRecord struct {
	AccountID     string     `json:"accountId"`
	IsLive        bool       `json:"isLive"`
	LastLiveStart *time.Time `json:"lastLiveStart,omitempty"`
	LastCheck     time.Time  `json:"lastCheck"`
}

// SessionRecord は1回分の配信セッションの履歴。
// EndTimeがnilの間は配信中(オープン)として扱う。
type SessionRecord struct {
	ID              string     `json:"id"`
	AccountID       string     `json:"accountId"`
	StartTime       time.Time  `json:"startTime"`
	EndTime         *time.Time `json:"endTime,omitempty"`
	DurationMinutes *int       `json:"durationMinutes,omitempty"`
	Date            string     `json:"date"`
}

// IsOpen はセッションが終了していないかを返す。
func (s SessionRecord) IsOpen() bool {
	return s.EndTime == nil
}

// SessionQuery はセッション履歴の検索条件。AccountIDが空なら全アカウントが対象。
type SessionQuery struct {
	AccountID string
	Limit     int
}

// DeliveryReport は通知送信結果の集計。
type DeliveryReport struct {
	Sent   int `json:"sent"`
	Failed int `json:"failed"`
}

// Add は別の送信結果を加算した結果を返す。
func (r DeliveryReport) Add(other DeliveryReport) DeliveryReport {
	return DeliveryReport{Sent: r.Sent + other.Sent, Failed: r.Failed + other.Failed}
}

// NormalizeAccountID はアカウントIDを比較用の正規形(前後空白・先頭@除去、小文字)にする。
func NormalizeAccountID(id string) string {
	id = strings.TrimSpace(id)
	id = strings.TrimPrefix(id, "@")
	return strings.ToLower(id)
}

// DurationMinutes は開始から終了までの分数を四捨五入で返す。
func DurationMinutes(start, end time.Time) int {
	return int(math.Round(end.Sub(start).Minutes()))
}
