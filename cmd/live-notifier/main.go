// Package main はLiveNotifierのエントリーポイントを提供する。
package main

import (
	"log/slog"
	"os"

	"github.com/yuu1111/LiveNotifier/internal/cli"
	"github.com/yuu1111/LiveNotifier/internal/logging"
)

func main() {
	// 設定読み込み前のログ用
	if _, err := logging.Setup("info", ""); err != nil {
		slog.Error("ロガーの初期化に失敗", "error", err)
	}

	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
