// Package logging はコンソールとローテーション付きファイルへのログ出力を提供する。
package logging

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"
)

// ANSI色コード
const (
	colorReset  = "\033[0m"
	colorDim    = "\033[2m"
	colorBright = "\033[1m"
	colorCyan   = "\033[36m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorRed    = "\033[31m"
)

var levelColors = map[slog.Level]string{
	slog.LevelDebug: colorCyan,
	slog.LevelInfo:  colorGreen,
	slog.LevelWarn:  colorYellow,
	slog.LevelError: colorRed,
}

// ConsoleHandler はANSI色付きのコンソール出力ハンドラ。
// WARN以上はerrWへ、それ以外はoutWへ出力する。
type ConsoleHandler struct {
	level slog.Level
	mu    *sync.Mutex
	outW  io.Writer
	errW  io.Writer
	attrs []slog.Attr
}

// NewConsoleHandler はConsoleHandlerを作成する。
func NewConsoleHandler(level slog.Level, outW, errW io.Writer) *ConsoleHandler {
	return &ConsoleHandler{level: level, mu: &sync.Mutex{}, outW: outW, errW: errW}
}

func (h *ConsoleHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level
}

func (h *ConsoleHandler) Handle(_ context.Context, r slog.Record) error {
	timestamp := r.Time.Format(time.RFC3339)
	color := levelColors[r.Level]
	levelStr := fmt.Sprintf("%-5s", strings.ToUpper(r.Level.String()))

	var attrs strings.Builder
	write := func(a slog.Attr) bool {
		if a.Key == "error" {
			fmt.Fprintf(&attrs, " %sError: %s%s", colorRed, a.Value.String(), colorReset)
		} else {
			fmt.Fprintf(&attrs, " %s=%s", a.Key, a.Value.String())
		}
		return true
	}
	for _, a := range h.attrs {
		write(a)
	}
	r.Attrs(write)

	line := fmt.Sprintf("%s[%s]%s %s%s%s %s%s%s",
		colorDim, timestamp, colorReset,
		color, levelStr, colorReset,
		colorBright, r.Message, colorReset,
	)
	if attrs.Len() > 0 {
		line += attrs.String()
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	w := h.outW
	if r.Level >= slog.LevelWarn {
		w = h.errW
	}
	_, err := fmt.Fprintln(w, line)
	return err
}

func (h *ConsoleHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	nh := *h
	nh.attrs = append(append([]slog.Attr(nil), h.attrs...), attrs...)
	return &nh
}

func (h *ConsoleHandler) WithGroup(_ string) slog.Handler {
	return h
}

// MultiHandler は複数のslog.Handlerに同時出力する。
type MultiHandler struct {
	handlers []slog.Handler
}

// NewMultiHandler はMultiHandlerを作成する。
func NewMultiHandler(handlers ...slog.Handler) *MultiHandler {
	return &MultiHandler{handlers: handlers}
}

func (m *MultiHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range m.handlers {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (m *MultiHandler) Handle(ctx context.Context, r slog.Record) error {
	var errs []error
	for _, h := range m.handlers {
		if h.Enabled(ctx, r.Level) {
			if err := h.Handle(ctx, r.Clone()); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

func (m *MultiHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	handlers := make([]slog.Handler, len(m.handlers))
	for i, h := range m.handlers {
		handlers[i] = h.WithAttrs(attrs)
	}
	return &MultiHandler{handlers: handlers}
}

func (m *MultiHandler) WithGroup(name string) slog.Handler {
	handlers := make([]slog.Handler, len(m.handlers))
	for i, h := range m.handlers {
		handlers[i] = h.WithGroup(name)
	}
	return &MultiHandler{handlers: handlers}
}

// ParseLevel はログレベル文字列をslog.Levelに変換する。不明な値はINFO。
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// rotatingFile はローテーション付きのログファイルを作成する。
func rotatingFile(dir, name string) *lumberjack.Logger {
	return &lumberjack.Logger{
		Filename:   filepath.Join(dir, name),
		MaxSize:    10, // MB
		MaxBackups: 5,
		MaxAge:     14, // days
		Compress:   true,
	}
}

// Setup はslogのグローバルロガーをセットアップする。
// dirが空の場合はコンソールのみに出力する。戻り値でファイルを閉じる。
// ファイルはJSON形式で、app.logに全レベル、error.logにERROR以上を出力する。
func Setup(level, dir string) (func() error, error) {
	slogLevel := ParseLevel(level)
	handlers := []slog.Handler{NewConsoleHandler(slogLevel, os.Stdout, os.Stderr)}
	closers := []io.Closer{}

	if dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("ログディレクトリの作成に失敗: %w", err)
		}
		app := rotatingFile(dir, "app.log")
		errLog := rotatingFile(dir, "error.log")
		closers = append(closers, app, errLog)

		handlers = append(handlers,
			slog.NewJSONHandler(app, &slog.HandlerOptions{Level: slogLevel}),
			slog.NewJSONHandler(errLog, &slog.HandlerOptions{Level: slog.LevelError}),
		)
	}

	slog.SetDefault(slog.New(NewMultiHandler(handlers...)))

	return func() error {
		var errs []error
		for _, c := range closers {
			if err := c.Close(); err != nil {
				errs = append(errs, err)
			}
		}
		return errors.Join(errs...)
	}, nil
}
