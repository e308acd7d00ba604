package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/yuu1111/LiveNotifier/internal/api"
)

const shutdownTimeout = 10 * time.Second

func newRunCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "監視とHTTP APIを開始する",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runMonitor(cmd.Context(), opts)
		},
	}
}

// runMonitor はポーリングループとHTTPサーバーを起動し、シグナルを受けるまで実行する。
func runMonitor(ctx context.Context, opts *rootOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := opts.loadConfig()
	if err != nil {
		return err
	}

	closeLog, err := setupLogging(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = closeLog() }()

	slog.Info("LiveNotifier 起動中...", "source", cfg.Source, "accounts", len(cfg.Accounts))

	a, err := wireApp(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			slog.Error("ストアのクローズに失敗", "error", err)
		}
	}()

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a.validateSource(ctx)

	var (
		srv   *http.Server
		srvCh = make(chan error, 1)
	)
	if cfg.Server.Port > 0 {
		router := api.NewRouter(api.Deps{
			Checker: a.poller,
			Ledger:  a.backend.Ledger,
			Tokens:  a.backend.Tokens,
			Store:   a.backend,
		}, cfg.Server.APIKey, slog.Default())

		srv = &http.Server{
			Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
			Handler:      router,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 60 * time.Second,
			IdleTimeout:  120 * time.Second,
		}

		go func() {
			slog.Info("HTTPサーバー起動", "addr", srv.Addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("HTTPサーバーエラー", "error", err)
				srvCh <- err
				stop()
			}
		}()
	}

	runErr := a.poller.Run(ctx)

	if srv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("HTTPサーバーの停止に失敗", "error", err)
		}
	}

	select {
	case err := <-srvCh:
		return fmt.Errorf("HTTPサーバーの起動に失敗: %w", err)
	default:
	}

	slog.Info("LiveNotifier 停止")
	return runErr
}
