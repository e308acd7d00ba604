// Package cli はlive-notifierのコマンドラインインターフェースを提供する。
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/yuu1111/LiveNotifier/internal/config"
)

// rootOptions は全コマンド共通のフラグ。
type rootOptions struct {
	configPath string
}

// Execute はルートコマンドを実行する。
func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:           "live-notifier",
		Short:         "配信状態を監視して配信開始を通知する",
		Long:          "live-notifier は登録したアカウントの配信状態を定期的に確認し、配信開始時に一度だけ通知を送り、配信履歴を記録します。",
		SilenceUsage:  true,
		SilenceErrors: false,
		// サブコマンドなしの場合は監視を開始する
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runMonitor(cmd.Context(), opts)
		},
	}
	rootCmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", config.DefaultPath, "設定ファイルのパス")

	rootCmd.AddCommand(
		newRunCmd(opts),
		newCheckCmd(opts),
		newSessionsCmd(opts),
		newTokenCmd(opts),
		newAccountCmd(opts),
		newWebhookCmd(opts),
	)

	return rootCmd
}

// loadConfig はバリデーション済みの設定を読み込む。
func (o *rootOptions) loadConfig() (*config.Config, error) {
	return config.Load(o.configPath)
}

// loadConfigForEdit は編集用に設定を読み込む。設定ファイルが存在しない場合は空の設定から始める。
func (o *rootOptions) loadConfigForEdit() (*config.Config, error) {
	if _, err := os.Stat(o.configPath); os.IsNotExist(err) {
		if err := os.WriteFile(o.configPath, []byte("{}"), 0644); err != nil {
			return nil, fmt.Errorf("設定ファイルの作成に失敗: %w", err)
		}
	}
	return config.LoadForEdit(o.configPath)
}
