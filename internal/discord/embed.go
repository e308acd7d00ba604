// Package discord はDiscord Webhookによる通知を提供する。
package discord

import (
	"time"
)

// colorLive は配信開始通知の色。
const colorLive = 0x9146ff

// EmbedField はDiscord Embedのフィールド。
type EmbedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline,omitempty"`
}

// EmbedFooter はDiscord Embedのフッター。
type EmbedFooter struct {
	Text string `json:"text"`
}

// Embed はDiscord Embed構造。
type Embed struct {
	Title       string       `json:"title"`
	Description string       `json:"description,omitempty"`
	Color       int          `json:"color"`
	Fields      []EmbedField `json:"fields,omitempty"`
	Timestamp   string       `json:"timestamp,omitempty"`
	Footer      *EmbedFooter `json:"footer,omitempty"`
}

// formatTime は時刻をHH:MM形式にフォーマットする。
func formatTime(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	return t.In(loc).Format("15:04")
}

// orDefault は空文字列の場合にデフォルト値を返す。
func orDefault(s, defaultVal string) string {
	if s == "" {
		return defaultVal
	}
	return s
}

// BuildEmbed は通知タイトル・本文からDiscord Embedを構築する。
func BuildEmbed(title, body string, at time.Time, loc *time.Location) Embed {
	return Embed{
		Title:       orDefault(title, "配信開始"),
		Description: body,
		Color:       colorLive,
		Timestamp:   at.UTC().Format(time.RFC3339),
		Fields: []EmbedField{
			{Name: "検出時刻", Value: formatTime(at, loc), Inline: true},
		},
		Footer: &EmbedFooter{Text: "LiveNotifier"},
	}
}
