// Package config はアプリケーション設定の読み込み・保存・バリデーションを提供する。
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// LogLevel はログ出力レベルを表す。
type LogLevel = string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// SourceType は配信状態の取得元を表す。
type SourceType = string

const (
	SourceTwitch SourceType = "twitch"
	SourcePage   SourceType = "page"
)

const (
	// DefaultPath は設定ファイルの既定パス。
	DefaultPath = "./config.json"

	// EnvPrefix は環境変数による上書きのプレフィックス。
	EnvPrefix = "LIVENOTIFIER"

	// WebhookURLPrefix はDiscord Webhook URLの必須プレフィックス。
	WebhookURLPrefix = "https://discord.com/api/webhooks/"

	// MinIntervalSeconds はポーリング間隔の下限。
	MinIntervalSeconds = 10
)

// TwitchConfig はTwitch API認証設定。
type TwitchConfig struct {
	ClientID     string `json:"clientId" mapstructure:"clientId"`
	ClientSecret string `json:"clientSecret" mapstructure:"clientSecret"`
}

// PageConfig は配信ページ取得の設定。URLTemplateの{account}はアカウントIDに置換される。
type PageConfig struct {
	URLTemplate string `json:"urlTemplate" mapstructure:"urlTemplate"`
	UserAgent   string `json:"userAgent" mapstructure:"userAgent"`
}

// PollingConfig はポーリング間隔設定。
type PollingConfig struct {
	IntervalSeconds int `json:"intervalSeconds" mapstructure:"intervalSeconds"`
	TimeoutSeconds  int `json:"timeoutSeconds" mapstructure:"timeoutSeconds"`
}

// NotificationConfig は配信開始通知の内容。{account}はアカウントIDに置換される。
type NotificationConfig struct {
	Title          string `json:"title" mapstructure:"title"`
	Body           string `json:"body" mapstructure:"body"`
	TimeoutSeconds int    `json:"timeoutSeconds" mapstructure:"timeoutSeconds"`
}

// WebhookConfig はDiscord Webhook設定。
type WebhookConfig struct {
	Name string `json:"name,omitempty" mapstructure:"name"`
	URL  string `json:"url" mapstructure:"url"`
}

// DiscordConfig はDiscord通知設定。
type DiscordConfig struct {
	Webhooks []WebhookConfig `json:"webhooks" mapstructure:"webhooks"`
}

// TelegramConfig はTelegram Bot通知設定。
type TelegramConfig struct {
	BotToken string `json:"botToken,omitempty" mapstructure:"botToken"`
	ChatID   string `json:"chatId,omitempty" mapstructure:"chatId"`
}

// PushConfig はFCMによるデバイス向けプッシュ通知設定。
// CredentialsFileが空の場合はApplication Default Credentialsを使う。
type PushConfig struct {
	Enabled         bool   `json:"enabled" mapstructure:"enabled"`
	CredentialsFile string `json:"credentialsFile,omitempty" mapstructure:"credentialsFile"`
	ProjectID       string `json:"projectId,omitempty" mapstructure:"projectId"`
}

// StoreConfig は永続化設定。
type StoreConfig struct {
	Driver string `json:"driver" mapstructure:"driver"`
	Path   string `json:"path" mapstructure:"path"`
}

// ServerConfig はHTTPサーバー設定。Portが0の場合はサーバーを起動しない。
type ServerConfig struct {
	Port   int    `json:"port" mapstructure:"port"`
	APIKey string `json:"apiKey,omitempty" mapstructure:"apiKey"`
}

// LogConfig はログ設定。
type LogConfig struct {
	Level LogLevel `json:"level" mapstructure:"level"`
	Dir   string   `json:"dir" mapstructure:"dir"`
}

// Config はアプリケーション全体の設定。
type Config struct {
	Source       SourceType         `json:"source" mapstructure:"source"`
	Twitch       TwitchConfig       `json:"twitch" mapstructure:"twitch"`
	Page         PageConfig         `json:"page" mapstructure:"page"`
	Polling      PollingConfig      `json:"polling" mapstructure:"polling"`
	Accounts     []string           `json:"accounts" mapstructure:"accounts"`
	Notification NotificationConfig `json:"notification" mapstructure:"notification"`
	Discord      DiscordConfig      `json:"discord" mapstructure:"discord"`
	Telegram     TelegramConfig     `json:"telegram" mapstructure:"telegram"`
	Push         PushConfig         `json:"push" mapstructure:"push"`
	Store        StoreConfig        `json:"store" mapstructure:"store"`
	Server       ServerConfig       `json:"server" mapstructure:"server"`
	Timezone     string             `json:"timezone" mapstructure:"timezone"`
	Log          LogConfig          `json:"log" mapstructure:"log"`
}

func applyDefaults(v *viper.Viper) {
	v.SetDefault("source", SourcePage)
	v.SetDefault("page.urlTemplate", "https://www.tiktok.com/@{account}/live")
	v.SetDefault("page.userAgent",
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36")
	v.SetDefault("polling.intervalSeconds", 60)
	v.SetDefault("polling.timeoutSeconds", 30)
	v.SetDefault("notification.title", "配信開始!")
	v.SetDefault("notification.body", "{account} が配信を開始しました")
	v.SetDefault("notification.timeoutSeconds", 30)
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.path", "./data/live-notifier.db")
	v.SetDefault("server.port", 3000)
	v.SetDefault("timezone", "UTC")
	v.SetDefault("log.level", LogInfo)
	v.SetDefault("log.dir", "./logs")
}

// Load は指定パスの設定ファイルを読み込み、環境変数で上書きしてバリデーションする。
func Load(path string) (*Config, error) {
	cfg, err := LoadForEdit(path)
	if err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadForEdit はバリデーションせずに設定を読み込む。CLIでの設定編集に使う。
func LoadForEdit(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("json")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	applyDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("設定ファイルの読み込みに失敗: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("設定ファイルの解析に失敗: %w", err)
	}

	return &cfg, nil
}

// Save は設定をJSON形式で指定パスに保存する。
func Save(path string, cfg *Config) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("設定のJSON変換に失敗: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}

// Validate は設定のバリデーションを行う。
func (c *Config) Validate() error {
	var errs []error

	switch c.Source {
	case SourceTwitch:
		if c.Twitch.ClientID == "" {
			errs = append(errs, fmt.Errorf("twitch.clientIdは必須です"))
		}
		if c.Twitch.ClientSecret == "" {
			errs = append(errs, fmt.Errorf("twitch.clientSecretは必須です"))
		}
	case SourcePage:
		if !strings.Contains(c.Page.URLTemplate, "{account}") {
			errs = append(errs, fmt.Errorf("page.urlTemplateには{account}を含めてください"))
		}
	default:
		errs = append(errs, fmt.Errorf("sourceは twitch/page のいずれかを設定してください"))
	}

	if c.Polling.IntervalSeconds < MinIntervalSeconds {
		errs = append(errs, fmt.Errorf("polling.intervalSecondsは%d以上で設定してください", MinIntervalSeconds))
	}
	if c.Polling.TimeoutSeconds < 0 || c.Notification.TimeoutSeconds < 0 {
		errs = append(errs, fmt.Errorf("timeoutSecondsは0以上で設定してください"))
	}
	if len(c.Accounts) == 0 {
		errs = append(errs, fmt.Errorf("accountsに1つ以上のアカウントを設定してください"))
	}
	for i, a := range c.Accounts {
		if strings.TrimSpace(a) == "" {
			errs = append(errs, fmt.Errorf("accounts[%d]が空です", i))
		}
	}

	for i, w := range c.Discord.Webhooks {
		if !strings.HasPrefix(w.URL, WebhookURLPrefix) {
			errs = append(errs, fmt.Errorf("discord.webhooks[%d].url: Discord Webhook URLの形式が無効です", i))
		}
	}
	if (c.Telegram.BotToken == "") != (c.Telegram.ChatID == "") {
		errs = append(errs, fmt.Errorf("telegram.botTokenとtelegram.chatIdは両方設定してください"))
	}

	if c.Store.Driver != "sqlite" && c.Store.Driver != "memory" {
		errs = append(errs, fmt.Errorf("store.driverは sqlite/memory のいずれかを設定してください"))
	}
	if c.Store.Driver == "sqlite" && c.Store.Path == "" {
		errs = append(errs, fmt.Errorf("store.pathは必須です"))
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.portは0から65535の範囲で設定してください"))
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		errs = append(errs, fmt.Errorf("timezoneが無効です: %s", c.Timezone))
	}

	validLevels := map[string]bool{
		LogDebug: true, LogInfo: true, LogWarn: true, LogError: true,
	}
	if !validLevels[c.Log.Level] {
		errs = append(errs, fmt.Errorf("log.levelは debug/info/warn/error のいずれかを設定してください"))
	}

	return errors.Join(errs...)
}

// Location は設定されたタイムゾーンを返す。
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// PollInterval はポーリング間隔を返す。
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Polling.IntervalSeconds) * time.Second
}

// PollTimeout は1サイクルのタイムアウトを返す。
func (c *Config) PollTimeout() time.Duration {
	return time.Duration(c.Polling.TimeoutSeconds) * time.Second
}

// NotifyTimeout は通知送信のタイムアウトを返す。
func (c *Config) NotifyTimeout() time.Duration {
	return time.Duration(c.Notification.TimeoutSeconds) * time.Second
}

// HasAccount はアカウントが登録済みかを返す。大文字小文字は区別しない。
func (c *Config) HasAccount(id string) bool {
	return c.accountIndex(id) >= 0
}

// AddAccount はアカウントを追加する。登録済みの場合はfalseを返す。
func (c *Config) AddAccount(id string) bool {
	if c.HasAccount(id) {
		return false
	}
	c.Accounts = append(c.Accounts, strings.TrimSpace(id))
	return true
}

// RemoveAccount はアカウントを削除する。未登録の場合はfalseを返す。
func (c *Config) RemoveAccount(id string) bool {
	i := c.accountIndex(id)
	if i < 0 {
		return false
	}
	c.Accounts = append(c.Accounts[:i], c.Accounts[i+1:]...)
	return true
}

func (c *Config) accountIndex(id string) int {
	key := normalize(id)
	for i, a := range c.Accounts {
		if normalize(a) == key {
			return i
		}
	}
	return -1
}

func normalize(id string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(id), "@"))
}
